package render

import (
	"fmt"
	"strings"
)

// Caps tags the raw media a node produces.
type Caps string

const (
	CapsAny   Caps = ""
	CapsAudio Caps = "audio/x-raw"
	CapsVideo Caps = "video/x-raw"
)

// ElementKind identifies an entry of the element factory table.
type ElementKind int

const (
	ElementNone ElementKind = iota
	ElementVideoTestSrc
	ElementAudioTestSrc
	ElementURIDecodeBin
	ElementCompositor
	ElementAudioMixer
	ElementFramePositioner
	ElementVolume
	ElementCapsFilter
	ElementVideoConvert
	ElementAudioConvert
	ElementAlpha
	ElementAudioAmplify
)

type elementSpec struct {
	name         string
	caps         Caps
	defaults     map[string]any
	controllable []string
}

// elementFactories is the complete set of elements the engine can build.
var elementFactories = map[ElementKind]elementSpec{
	ElementVideoTestSrc: {
		name:     "videotestsrc",
		caps:     CapsVideo,
		defaults: map[string]any{"pattern": "smpte"},
	},
	ElementAudioTestSrc: {
		name:     "audiotestsrc",
		caps:     CapsAudio,
		defaults: map[string]any{"wave": "sine"},
	},
	ElementURIDecodeBin: {
		name: "uridecodebin",
		defaults: map[string]any{
			"uri":                "",
			"expose-all-streams": false,
			"use-buffering":      false,
			"download":           true,
			"buffer-size":        int64(10 * 1024 * 1024),
		},
	},
	ElementCompositor: {name: "compositor", caps: CapsVideo},
	ElementAudioMixer: {name: "audiomixer", caps: CapsAudio},
	ElementFramePositioner: {
		name:         "framepositioner",
		caps:         CapsVideo,
		defaults:     map[string]any{"alpha": 1.0, "zorder": 0.0},
		controllable: []string{"alpha", "zorder"},
	},
	ElementVolume: {
		name:         "volume",
		caps:         CapsAudio,
		defaults:     map[string]any{"volume": 1.0},
		controllable: []string{"volume"},
	},
	ElementCapsFilter:   {name: "capsfilter"},
	ElementVideoConvert: {name: "videoconvert", caps: CapsVideo},
	ElementAudioConvert: {name: "audioconvert", caps: CapsAudio},
	ElementAlpha: {
		name:         "alpha",
		caps:         CapsVideo,
		defaults:     map[string]any{"alpha": 1.0},
		controllable: []string{"alpha"},
	},
	ElementAudioAmplify: {
		name:         "audioamplify",
		caps:         CapsAudio,
		defaults:     map[string]any{"amplification": 1.0},
		controllable: []string{"amplification"},
	},
}

// String returns the element's factory name.
func (k ElementKind) String() string {
	if spec, ok := elementFactories[k]; ok {
		return spec.name
	}
	return fmt.Sprintf("element(%d)", int(k))
}

// ParseElementKind maps a factory name back to its ElementKind.
func ParseElementKind(name string) (ElementKind, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for kind, spec := range elementFactories {
		if spec.name == name {
			return kind, true
		}
	}
	return ElementNone, false
}

func (k ElementKind) controllable(property string) bool {
	spec, ok := elementFactories[k]
	if !ok {
		return false
	}
	for _, name := range spec.controllable {
		if name == property {
			return true
		}
	}
	return false
}
