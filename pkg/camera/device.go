package camera

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ErrInvalidDevice is returned for a descriptor that is neither an index, a
// /dev/videoN path nor a GStreamer pipeline.
var ErrInvalidDevice = errors.New("camera: invalid capture source")

// Device is a parsed capture source descriptor. Exactly one of the fields
// is meaningful, as reported by Kind.
type Device struct {
	Index    int
	Path     string
	Pipeline string
}

// DeviceKind classifies a Device.
type DeviceKind int

const (
	KindIndex DeviceKind = iota
	KindPath
	KindPipeline
)

// Kind reports which field of d is set.
func (d Device) Kind() DeviceKind {
	switch {
	case d.Pipeline != "":
		return KindPipeline
	case d.Path != "":
		return KindPath
	default:
		return KindIndex
	}
}

func (d Device) String() string {
	switch d.Kind() {
	case KindPipeline:
		return d.Pipeline
	case KindPath:
		return d.Path
	default:
		return strconv.Itoa(d.Index)
	}
}

// ParseDevice parses a capture source descriptor: a V4L2 index ("0"), a
// device path ("/dev/video0") or a GStreamer pipeline containing "appsink".
func ParseDevice(s string) (Device, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Device{}, nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 {
			return Device{}, fmt.Errorf("%w: negative index %d", ErrInvalidDevice, n)
		}
		return Device{Index: n}, nil
	}
	if strings.HasPrefix(s, "/dev/video") {
		if _, err := strconv.Atoi(strings.TrimPrefix(s, "/dev/video")); err != nil {
			return Device{}, fmt.Errorf("%w: %q is not a /dev/videoN path", ErrInvalidDevice, s)
		}
		return Device{Path: s}, nil
	}
	if strings.Contains(s, "!") && strings.Contains(s, "appsink") {
		return Device{Pipeline: s}, nil
	}
	return Device{}, fmt.Errorf("%w: %q (use an index like 0, a path like /dev/video0 or a GStreamer pipeline ending in appsink)", ErrInvalidDevice, s)
}

// OpenError reports a device that could not be opened. Hints carry
// remediation steps for the operator and are not part of Error().
type OpenError struct {
	Device string
	Hints  []string
	Err    error
}

func (e *OpenError) Error() string {
	msg := fmt.Sprintf("cannot open camera %s", e.Device)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *OpenError) Unwrap() error { return e.Err }

// OpenHints returns remediation hints for a device that failed to open.
func OpenHints(d Device) []string {
	var hints []string
	if d.Kind() == KindPath {
		if f, err := os.Open(d.Path); err != nil {
			if os.IsPermission(err) {
				hints = append(hints, "permission: add your user to the 'video' group (usermod -aG video $USER)")
			}
		} else {
			f.Close()
		}
	}
	hints = append(hints,
		"check that the camera feeder (libcamerasrc -> v4l2sink) is running",
		fmt.Sprintf("inspect the device with: v4l2-ctl --all -d %s", devicePath(d)),
	)
	return hints
}

func devicePath(d Device) string {
	if d.Kind() == KindPath {
		return d.Path
	}
	return fmt.Sprintf("/dev/video%d", d.Index)
}
