package ges

import (
	"log/slog"
	"time"

	"timeliner/internal/logging"
	"timeliner/internal/render"
)

// Controllable properties driven by transitions. Fade-in and fade-out use
// different elements so an object can be faded in by one neighbour and out
// by the next.
const (
	videoFadeOutProperty = "alpha::alpha"
	videoFadeInProperty  = "framepositioner::alpha"
	videoZOrderProperty  = "framepositioner::zorder"
	audioFadeOutProperty = "audioamplify::amplification"
	audioFadeInProperty  = "volume::volume"
)

// Transition is the crossfade between two overlapping objects of one track.
type Transition struct {
	mediaType MediaType
	fadeOut   *Object
	fadeIn    *Object
	logger    *slog.Logger

	fadeOutCurve *render.ControlCurve
	fadeInCurve  *render.ControlCurve
	zorderCurve  *render.ControlCurve
	zorderBase   float64

	start time.Duration
	stop  time.Duration
}

func fadeProperties(mt MediaType) (out, in string) {
	if mt == MediaTypeVideo {
		return videoFadeOutProperty, videoFadeInProperty
	}
	return audioFadeOutProperty, audioFadeInProperty
}

// newTransition binds the pair and applies the curves. Properties missing
// from either render subtree leave the matching curve unset.
func newTransition(mt MediaType, fadeOut, fadeIn *Object, logger *slog.Logger) *Transition {
	t := &Transition{
		mediaType: mt,
		fadeOut:   fadeOut,
		fadeIn:    fadeIn,
		logger:    logging.NewComponentLogger(logger, "transition"),
	}
	outProp, inProp := fadeProperties(mt)
	if node, ok := fadeOut.RenderNode(mt); ok {
		t.fadeOutCurve, _ = fadeOut.graph.Controllable(node, outProp)
	}
	if node, ok := fadeIn.RenderNode(mt); ok {
		g := fadeIn.graph
		t.fadeInCurve, _ = g.Controllable(node, inProp)
		if mt == MediaTypeVideo {
			if curve, ok := g.Controllable(node, videoZOrderProperty); ok {
				curve.SetMode(render.InterpolationDiscrete)
				t.zorderCurve = curve
				if value, ok := g.Property(node, "zorder"); ok {
					if base, ok := value.(float64); ok {
						t.zorderBase = base
					}
				}
			}
		}
	}
	fadeOut.outgoing[mt] = t
	fadeIn.incoming[mt] = t
	t.Update()
	return t
}

func (t *Transition) MediaType() MediaType { return t.mediaType }

// FadeOut returns the earlier object, or nil after Reset.
func (t *Transition) FadeOut() *Object { return t.fadeOut }

// FadeIn returns the later object, or nil after Reset.
func (t *Transition) FadeIn() *Object { return t.fadeIn }

// Start is the point in the fade-out object's media where the fade begins.
func (t *Transition) Start() time.Duration { return t.start }

// Stop is the point in the fade-out object's media where it is fully faded.
func (t *Transition) Stop() time.Duration { return t.stop }

func (t *Transition) Duration() time.Duration { return t.stop - t.start }

// Active reports whether the transition still binds a pair.
func (t *Transition) Active() bool { return t.fadeOut != nil && t.fadeIn != nil }

// Update recomputes the window from the current timing of both objects and
// rewrites the curves.
func (t *Transition) Update() {
	if !t.Active() {
		return
	}
	fo, fi := t.fadeOut, t.fadeIn
	t.start = fo.inpoint + fi.start - fo.start
	t.stop = fo.inpoint + fo.duration
	d := t.stop - t.start

	if t.ownsFadeOut() && t.fadeOutCurve != nil {
		t.fadeOutCurve.Clear()
		t.fadeOutCurve.Set(fo.inpoint, 1)
		t.fadeOutCurve.Set(t.start, 1)
		t.fadeOutCurve.Set(t.stop, 0)
	}
	if t.ownsFadeIn() {
		if t.fadeInCurve != nil {
			t.fadeInCurve.Clear()
			t.fadeInCurve.Set(fi.inpoint, 0)
			t.fadeInCurve.Set(fi.inpoint+d, 1)
			t.fadeInCurve.Set(fi.inpoint+fi.duration, 1)
		}
		if t.zorderCurve != nil {
			t.zorderCurve.Clear()
			t.zorderCurve.Set(fi.inpoint, t.zorderBase+1)
			t.zorderCurve.Set(fi.inpoint+d, t.zorderBase)
		}
	}
	t.logger.Debug("transition updated",
		logging.String("media_type", t.mediaType.String()),
		logging.String("fade_out", fo.id.String()),
		logging.String("fade_in", fi.id.String()),
		logging.Duration("start", t.start),
		logging.Duration("stop", t.stop),
	)
}

// Reset flattens the curves back to fully visible or audible over each
// object's span, drops the z-order bump and unbinds the pair. Calling it on
// an inactive transition does nothing.
func (t *Transition) Reset() {
	if fo := t.fadeOut; fo != nil && t.ownsFadeOut() {
		flatten(t.fadeOutCurve, fo.inpoint, fo.duration)
		delete(fo.outgoing, t.mediaType)
	}
	if fi := t.fadeIn; fi != nil && t.ownsFadeIn() {
		flatten(t.fadeInCurve, fi.inpoint, fi.duration)
		if t.zorderCurve != nil {
			t.zorderCurve.Clear()
		}
		delete(fi.incoming, t.mediaType)
	}
	t.fadeOut, t.fadeIn = nil, nil
	t.fadeOutCurve, t.fadeInCurve, t.zorderCurve = nil, nil, nil
}

// A newer transition may already have claimed one side of the pair.
func (t *Transition) ownsFadeOut() bool {
	return t.fadeOut != nil && t.fadeOut.outgoing[t.mediaType] == t
}

func (t *Transition) ownsFadeIn() bool {
	return t.fadeIn != nil && t.fadeIn.incoming[t.mediaType] == t
}

func flatten(curve *render.ControlCurve, inpoint, duration time.Duration) {
	if curve == nil {
		return
	}
	curve.Clear()
	curve.Set(inpoint, 1)
	curve.Set(inpoint+duration, 1)
}
