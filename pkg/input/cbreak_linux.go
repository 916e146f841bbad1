//go:build linux

package input

import "golang.org/x/sys/unix"

// setCbreak disables canonical mode and echo but keeps signal generation,
// so Ctrl-C still interrupts the process.
func setCbreak(fd int) error {
	t, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return err
	}
	t.Lflag &^= unix.ICANON | unix.ECHO
	t.Cc[unix.VMIN] = 1
	t.Cc[unix.VTIME] = 0
	return unix.IoctlSetTermios(fd, unix.TCSETS, t)
}
