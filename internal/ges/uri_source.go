package ges

import (
	"context"
	"errors"
	"fmt"
	"time"

	"timeliner/internal/asset"
	"timeliner/internal/logging"
	"timeliner/internal/render"
)

const (
	kindURISource = "URISource"
	kindURIClip   = "URIClip"
)

// URISource plays one media type of an asset.
type URISource struct {
	*Object
	v *uriVariant
}

// URIClip plays any mix of the video and audio streams of an asset.
type URIClip struct {
	*Object
	v *uriVariant
}

type uriVariant struct {
	obj  *Object
	clip bool
	uri  string
	info *asset.Info
}

// NewURISource resolves uri and builds a source for exactly one media type.
// Resolution failure follows env.Policy: degrade keeps an object without
// asset bounds and zero duration, strict returns an error wrapping
// asset.ErrUnresolved.
func NewURISource(ctx context.Context, env Env, uri string, mt MediaType) (*URISource, error) {
	o, v, err := newURIObject(ctx, env, uri, mt, false)
	if err != nil {
		return nil, err
	}
	return &URISource{Object: o, v: v}, nil
}

// NewURIClip resolves uri and builds a clip for the declared media types.
func NewURIClip(ctx context.Context, env Env, uri string, mt MediaType) (*URIClip, error) {
	o, v, err := newURIObject(ctx, env, uri, mt, true)
	if err != nil {
		return nil, err
	}
	return &URIClip{Object: o, v: v}, nil
}

func newURIObject(ctx context.Context, env Env, uri string, mt MediaType, clip bool) (*Object, *uriVariant, error) {
	if uri == "" {
		return nil, nil, errors.New("ges: empty uri")
	}
	if env.Resolver == nil {
		return nil, nil, fmt.Errorf("%w: %s: no resolver", asset.ErrUnresolved, uri)
	}
	v := &uriVariant{clip: clip, uri: uri}
	o := newObject(env.Graph, env.Logger, mt, v)
	v.obj = o

	info, err := env.Resolver.Resolve(ctx, uri)
	switch {
	case err == nil:
		v.info = &info
		o.duration = info.Duration
	case env.Policy == asset.PolicyStrict:
		if !errors.Is(err, asset.ErrUnresolved) {
			err = fmt.Errorf("%w: %w", asset.ErrUnresolved, err)
		}
		return nil, nil, fmt.Errorf("resolve %s: %w", uri, err)
	default:
		logging.WarnWithContext(o.logger, "asset resolution failed", "asset_unresolved",
			logging.String("uri", uri),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "set the duration explicitly or fix the uri"),
			logging.String(logging.FieldImpact, "object has no asset bounds and zero duration"),
		)
	}

	if mt != MediaTypeUnknown {
		if err := v.acceptsMediaType(mt); err != nil {
			return nil, nil, err
		}
	}
	o.materialize()
	return o, v, nil
}

// URI returns the uri the object was created from.
func (s *URISource) URI() string { return s.v.uri }

// Asset returns the resolved asset facts, if resolution succeeded.
func (s *URISource) Asset() (asset.Info, bool) { return s.v.asset() }

// URI returns the uri the object was created from.
func (c *URIClip) URI() string { return c.v.uri }

// Asset returns the resolved asset facts, if resolution succeeded.
func (c *URIClip) Asset() (asset.Info, bool) { return c.v.asset() }

func (v *uriVariant) asset() (asset.Info, bool) {
	if v.info == nil {
		return asset.Info{}, false
	}
	return *v.info, true
}

func (v *uriVariant) kind() string {
	if v.clip {
		return kindURIClip
	}
	return kindURISource
}

func (v *uriVariant) acceptsMediaType(mt MediaType) error {
	if v.clip {
		if !mt.Concrete() || mt&^(MediaTypeAudio|MediaTypeVideo) != 0 {
			return fmt.Errorf("%w: %s for %s", ErrInvalidMediaType, mt, v.kind())
		}
	} else if mt != MediaTypeAudio && mt != MediaTypeVideo {
		return fmt.Errorf("%w: %s for %s", ErrInvalidMediaType, mt, v.kind())
	}
	if v.info == nil {
		return nil
	}
	if mt&MediaTypeVideo != 0 && !v.info.HasVideo {
		return fmt.Errorf("%w: %s has no video", ErrNoMatchingStream, v.uri)
	}
	if mt&MediaTypeAudio != 0 && !v.info.HasAudio {
		return fmt.Errorf("%w: %s has no audio", ErrNoMatchingStream, v.uri)
	}
	return nil
}

func (v *uriVariant) makeElement(mt MediaType) (render.NodeID, error) {
	target := v.uri
	if v.info != nil && v.info.URI != "" {
		target = v.info.URI
	}
	return v.obj.graph.NewElement(render.ElementURIDecodeBin, map[string]any{
		"caps": mt.Caps(),
		"uri":  target,
	})
}

// assetDuration returns the asset length when known.
func (v *uriVariant) assetDuration() (time.Duration, bool) {
	if v.info == nil || v.info.Duration <= 0 {
		return 0, false
	}
	return v.info.Duration, true
}

func (v *uriVariant) checkInpoint(inpoint, duration time.Duration) (time.Duration, error) {
	total, ok := v.assetDuration()
	if !ok {
		return duration, nil
	}
	if inpoint >= total {
		return duration, fmt.Errorf("%w: inpoint %s, asset %s", ErrOutOfBounds, inpoint, total)
	}
	if inpoint+duration > total {
		return total - inpoint, nil
	}
	return duration, nil
}

func (v *uriVariant) checkDuration(inpoint, duration time.Duration) error {
	total, ok := v.assetDuration()
	if !ok {
		return nil
	}
	if inpoint+duration > total {
		return fmt.Errorf("%w: inpoint %s + duration %s, asset %s", ErrOutOfBounds, inpoint, duration, total)
	}
	return nil
}

func (v *uriVariant) fields() []string {
	return []string{v.uri}
}
