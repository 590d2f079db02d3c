package ges

import (
	"fmt"
	"slices"

	"github.com/agnivade/levenshtein"

	"timeliner/internal/logging"
	"timeliner/internal/render"
)

const (
	kindTestSource = "TestSource"
	kindTestClip   = "TestClip"

	DefaultVideoPattern = "smpte"
	DefaultAudioWave    = "sine"
)

var videoPatterns = []string{
	"smpte", "snow", "black", "white", "red", "green", "blue",
	"checkers-1", "checkers-2", "checkers-4", "checkers-8",
	"circular", "blink", "smpte75", "zone-plate", "gamut",
	"chroma-zone-plate", "solid-color", "ball", "smpte100", "bar",
	"pinwheel", "spokes", "gradient", "colors",
}

var audioWaves = []string{
	"sine", "square", "saw", "triangle", "silence", "white-noise",
	"pink-noise", "sine-table", "ticks", "gaussian-noise", "red-noise",
	"blue-noise", "violet-noise",
}

// PatternNames lists the generator names valid for a single media type.
func PatternNames(mt MediaType) []string {
	switch mt {
	case MediaTypeVideo:
		return slices.Clone(videoPatterns)
	case MediaTypeAudio:
		return slices.Clone(audioWaves)
	}
	return nil
}

// closestName returns the candidate with the smallest edit distance to name.
func closestName(name string, candidates []string) string {
	best, bestDistance := "", -1
	for _, candidate := range candidates {
		d := levenshtein.ComputeDistance(name, candidate)
		if bestDistance < 0 || d < bestDistance {
			best, bestDistance = candidate, d
		}
	}
	return best
}

// TestSource is a single-media generated source: a video pattern or an audio wave.
type TestSource struct {
	*Object
	v *testVariant
}

// TestClip is a generated clip that may carry both video and audio.
type TestClip struct {
	*Object
	v *testVariant
}

type testVariant struct {
	obj     *Object
	clip    bool
	pattern string
}

// NewTestSource builds a generated source for exactly one media type.
// MediaTypeUnknown defers the choice to SetMediaType.
func NewTestSource(g render.Graph, mt MediaType, pattern string, opts ...Option) (*TestSource, error) {
	o, v, err := newTestObject(g, mt, pattern, false, opts)
	if err != nil {
		return nil, err
	}
	return &TestSource{Object: o, v: v}, nil
}

// NewTestClip builds a generated clip for any mix of video and audio.
func NewTestClip(g render.Graph, mt MediaType, pattern string, opts ...Option) (*TestClip, error) {
	o, v, err := newTestObject(g, mt, pattern, true, opts)
	if err != nil {
		return nil, err
	}
	return &TestClip{Object: o, v: v}, nil
}

func newTestObject(g render.Graph, mt MediaType, pattern string, clip bool, opts []Option) (*Object, *testVariant, error) {
	options := applyOptions(opts)
	v := &testVariant{clip: clip, pattern: pattern}
	if mt != MediaTypeUnknown {
		if err := v.acceptsMediaType(mt); err != nil {
			return nil, nil, err
		}
	}
	o := newObject(g, options.logger, mt, v)
	v.obj = o
	o.materialize()
	return o, v, nil
}

// Pattern returns the generator name as given at construction.
func (s *TestSource) Pattern() string { return s.v.pattern }

// Pattern returns the generator name as given at construction.
func (c *TestClip) Pattern() string { return c.v.pattern }

func (v *testVariant) kind() string {
	if v.clip {
		return kindTestClip
	}
	return kindTestSource
}

func (v *testVariant) acceptsMediaType(mt MediaType) error {
	if v.clip {
		if !mt.Concrete() || mt&^(MediaTypeAudio|MediaTypeVideo) != 0 {
			return fmt.Errorf("%w: %s for %s", ErrInvalidMediaType, mt, v.kind())
		}
		return nil
	}
	if mt != MediaTypeAudio && mt != MediaTypeVideo {
		return fmt.Errorf("%w: %s for %s", ErrInvalidMediaType, mt, v.kind())
	}
	return nil
}

func (v *testVariant) makeElement(mt MediaType) (render.NodeID, error) {
	g := v.obj.graph
	switch mt {
	case MediaTypeVideo:
		return g.NewElement(render.ElementVideoTestSrc, map[string]any{"pattern": v.patternFor(mt)})
	case MediaTypeAudio:
		return g.NewElement(render.ElementAudioTestSrc, map[string]any{"wave": v.patternFor(mt)})
	}
	return render.NoNode, fmt.Errorf("%w: %s", ErrInvalidMediaType, mt)
}

// patternFor maps the configured name onto a valid generator name for mt,
// falling back to the default when it is unknown.
func (v *testVariant) patternFor(mt MediaType) string {
	names, fallback := videoPatterns, DefaultVideoPattern
	if mt == MediaTypeAudio {
		names, fallback = audioWaves, DefaultAudioWave
	}
	if v.pattern == "" {
		return fallback
	}
	if slices.Contains(names, v.pattern) {
		return v.pattern
	}
	logging.WarnWithContext(v.obj.logger, "unknown test pattern", "test_pattern_unknown",
		logging.String("pattern", v.pattern),
		logging.String("media_type", mt.String()),
		logging.String("using", fallback),
		logging.String(logging.FieldErrorHint, fmt.Sprintf("did you mean %q?", closestName(v.pattern, names))),
		logging.String(logging.FieldImpact, "default pattern is used"),
	)
	return fallback
}

func (v *testVariant) fields() []string {
	return []string{v.pattern}
}
