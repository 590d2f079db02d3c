package ges

import (
	"log/slog"

	"timeliner/internal/asset"
	"timeliner/internal/render"
)

type options struct {
	logger          *slog.Logger
	videoBackground string
	audioBackground string
}

// Option customizes timelines and objects.
type Option func(*options)

// WithLogger sets the base logger. Components add their own attributes.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithBackground picks the generators that fill gaps in each composition.
// Empty names keep the defaults (black video, silent audio).
func WithBackground(videoPattern, audioWave string) Option {
	return func(o *options) {
		if videoPattern != "" {
			o.videoBackground = videoPattern
		}
		if audioWave != "" {
			o.audioBackground = audioWave
		}
	}
}

func applyOptions(opts []Option) options {
	o := options{videoBackground: "black", audioBackground: "silence"}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// Env carries the collaborators asset-backed objects need.
type Env struct {
	Graph    render.Graph
	Resolver asset.Resolver
	Policy   asset.Policy
	Logger   *slog.Logger
}
