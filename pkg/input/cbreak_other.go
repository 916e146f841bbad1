//go:build !linux

package input

import "golang.org/x/term"

// setCbreak falls back to raw mode. Ctrl-C then arrives as a byte and is
// turned back into SIGINT by the key reader.
func setCbreak(fd int) error {
	_, err := term.MakeRaw(fd)
	return err
}
