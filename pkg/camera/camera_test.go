package camera

import (
	"context"
	"image"
	"image/color"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResolution(t *testing.T) {
	tests := []struct {
		in      string
		w, h    int
		wantErr bool
	}{
		{"640x480", 640, 480, false},
		{" 1280X720 ", 1280, 720, false},
		{"vga", 640, 480, false},
		{"1080p", 1920, 1080, false},
		{"640", 0, 0, true},
		{"0x480", 0, 0, true},
		{"axb", 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			w, h, err := ParseResolution(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.w, w)
			assert.Equal(t, tt.h, h)
		})
	}
}

func TestParseDevice(t *testing.T) {
	d, err := ParseDevice("30")
	require.NoError(t, err)
	assert.Equal(t, KindIndex, d.Kind())
	assert.Equal(t, 30, d.Index)
	assert.Equal(t, "30", d.String())

	d, err = ParseDevice("/dev/video2")
	require.NoError(t, err)
	assert.Equal(t, KindPath, d.Kind())
	assert.Equal(t, "/dev/video2", d.String())

	pipe := "libcamerasrc ! videoconvert ! appsink"
	d, err = ParseDevice(pipe)
	require.NoError(t, err)
	assert.Equal(t, KindPipeline, d.Kind())
	assert.Equal(t, pipe, d.Pipeline)

	for _, bad := range []string{"-1", "/dev/videoX", "webcam"} {
		_, err := ParseDevice(bad)
		assert.ErrorIs(t, err, ErrInvalidDevice, bad)
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	cfg.Backend = "picamera"
	assert.ErrorIs(t, cfg.Validate(), ErrUnknownBackend)

	cfg = DefaultConfig()
	cfg.Device = "webcam"
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidDevice)

	cfg = DefaultConfig()
	cfg.Width = 0
	assert.Error(t, cfg.Validate())
}

func TestOpenError(t *testing.T) {
	d := Device{Index: 30}
	err := &OpenError{Device: d.String(), Hints: OpenHints(d)}
	assert.Equal(t, "cannot open camera 30", err.Error())
	assert.Contains(t, err.Hints, "inspect the device with: v4l2-ctl --all -d /dev/video30")
}

func TestMailbox_LatestFrameWins(t *testing.T) {
	m := NewMailbox()
	a := image.NewRGBA(image.Rect(0, 0, 1, 1))
	b := image.NewRGBA(image.Rect(0, 0, 2, 2))

	m.Offer(a)
	m.Offer(b)

	got := <-m.Frames()
	assert.Same(t, b, got)
	assert.Equal(t, uint64(1), m.Drops())
	assert.Equal(t, uint64(2), m.Offers())

	m.Close()
	m.Close()
	m.Offer(a)
	_, ok := <-m.Frames()
	assert.False(t, ok)
}

func TestMockCamera(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Backend = BackendMock
	cfg.Width, cfg.Height = 32, 24
	cfg.Framerate = 100

	cam := NewMockCamera(cfg, nil)
	cam.Period = 1
	require.NoError(t, cam.Start(context.Background()))

	select {
	case img := <-cam.Frames():
		require.NotNil(t, img)
		assert.Equal(t, image.Rect(0, 0, 32, 24), img.Bounds())
		_, _, _, a := img.At(0, 0).RGBA()
		assert.Equal(t, uint32(0xffff), a)
	case <-time.After(2 * time.Second):
		t.Fatal("no frame")
	}

	require.NoError(t, cam.Stop())
	for range cam.Frames() {
	}
}

func TestSolidFrame(t *testing.T) {
	img := solidFrame(4, 3, color.RGBA{R: 1, G: 2, B: 3, A: 255})
	assert.Equal(t, color.RGBA{R: 1, G: 2, B: 3, A: 255}, img.RGBAAt(3, 2))
}
