package asset

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrUnresolved reports that no backend could describe a URI.
var ErrUnresolved = errors.New("asset unresolved")

// Info describes a resolved asset.
type Info struct {
	URI      string
	Duration time.Duration
	HasAudio bool
	HasVideo bool
}

// Resolver turns a URI into asset facts.
type Resolver interface {
	Resolve(ctx context.Context, uri string) (Info, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(ctx context.Context, uri string) (Info, error)

func (f ResolverFunc) Resolve(ctx context.Context, uri string) (Info, error) {
	return f(ctx, uri)
}

// Policy decides what object constructors do when resolution fails.
type Policy int

const (
	// PolicyDegrade keeps the object without asset bounds and logs a warning.
	PolicyDegrade Policy = iota
	// PolicyStrict refuses to build the object.
	PolicyStrict
)

func (p Policy) String() string {
	if p == PolicyStrict {
		return "fail"
	}
	return "degrade"
}

// ParsePolicy maps the resolver.on_failure config value onto a Policy.
func ParsePolicy(value string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "degrade":
		return PolicyDegrade, nil
	case "fail", "strict":
		return PolicyStrict, nil
	}
	return PolicyDegrade, fmt.Errorf("asset: unknown failure policy %q", value)
}

// Static resolves from a fixed table. Unknown URIs fail with ErrUnresolved.
type Static map[string]Info

func (s Static) Resolve(_ context.Context, uri string) (Info, error) {
	info, ok := s[uri]
	if !ok {
		return Info{}, fmt.Errorf("%w: %s", ErrUnresolved, uri)
	}
	if info.URI == "" {
		info.URI = uri
	}
	return info, nil
}
