package camera

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Resolution preset names accepted by ParseResolution.
const (
	PresetQVGA  = "qvga"
	PresetVGA   = "vga"
	Preset720p  = "720p"
	Preset1080p = "1080p"
)

// Presets returns the named resolutions.
func Presets() map[string][2]int {
	return map[string][2]int{
		PresetQVGA:  {320, 240},
		PresetVGA:   {640, 480},
		Preset720p:  {1280, 720},
		Preset1080p: {1920, 1080},
	}
}

// PresetNames returns the preset names, sorted.
func PresetNames() []string {
	names := make([]string, 0, 4)
	for name := range Presets() {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ParseResolution parses "WxH" (e.g. "640x480") or a preset name.
func ParseResolution(s string) (width, height int, err error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if wh, ok := Presets()[s]; ok {
		return wh[0], wh[1], nil
	}

	ws, hs, ok := strings.Cut(s, "x")
	if !ok {
		return 0, 0, fmt.Errorf("invalid resolution %q: want WxH or one of %v", s, PresetNames())
	}
	width, err = strconv.Atoi(ws)
	if err != nil || width <= 0 {
		return 0, 0, fmt.Errorf("invalid resolution width %q", ws)
	}
	height, err = strconv.Atoi(hs)
	if err != nil || height <= 0 {
		return 0, 0, fmt.Errorf("invalid resolution height %q", hs)
	}
	return width, height, nil
}
