package ges

import (
	"errors"
	"fmt"
	"log/slog"

	"timeliner/internal/logging"
	"timeliner/internal/render"
)

// Playable is implemented by anything that can be grafted into a playback
// host. MakePlayable(true) exposes the render output through a bin;
// MakePlayable(false) puts the nodes back where they came from.
type Playable interface {
	MakePlayable(active bool) (render.NodeID, error)
}

type exposedNode struct {
	node   render.NodeID
	filter render.NodeID
	parent render.NodeID
}

// exposure remembers where exposed nodes came from. The bin is created on
// first use and kept across cycles, like its outputs.
type exposure struct {
	bin     render.NodeID
	exposed bool
	entries []exposedNode
}

func newExposure() exposure {
	return exposure{bin: render.NoNode}
}

func (x *exposure) expose(g render.Graph, logger *slog.Logger, name string, nodes []render.NodeID) (render.NodeID, error) {
	if x.exposed {
		logger.Debug("already exposed", logging.Int("bin", int(x.bin)))
		return x.bin, nil
	}
	if len(nodes) == 0 {
		return render.NoNode, ErrNotMaterialized
	}
	if x.bin == render.NoNode {
		x.bin = g.NewBin(name + "-playable")
	}
	x.exposed = true
	for i, node := range nodes {
		if err := x.exposeOne(g, i, node); err != nil {
			_, restoreErr := x.unexpose(g, logger)
			return render.NoNode, errors.Join(fmt.Errorf("expose node %d: %w", node, err), restoreErr)
		}
	}
	logger.Debug("exposed", logging.Int("bin", int(x.bin)), logging.Int("outputs", len(nodes)))
	return x.bin, nil
}

func (x *exposure) exposeOne(g render.Graph, index int, node render.NodeID) error {
	parent := g.Parent(node)
	if parent != render.NoNode {
		if err := g.Remove(parent, node); err != nil {
			return err
		}
	}
	entry := exposedNode{node: node, filter: render.NoNode, parent: parent}
	if err := g.Add(x.bin, node); err != nil {
		x.reattach(g, entry)
		return err
	}
	x.entries = append(x.entries, entry)

	filter, err := g.NewElement(render.ElementCapsFilter, map[string]any{"caps": g.Caps(node)})
	if err != nil {
		return err
	}
	if err := g.Add(x.bin, filter); err != nil {
		g.Release(filter)
		return err
	}
	x.entries[len(x.entries)-1].filter = filter
	if err := g.SetOutput(x.bin, index, filter); err != nil {
		return err
	}
	return g.SetOutputActive(x.bin, index, true)
}

func (x *exposure) unexpose(g render.Graph, logger *slog.Logger) (render.NodeID, error) {
	if !x.exposed {
		logger.Debug("not exposed")
		return x.bin, nil
	}
	var errs []error
	for i, entry := range x.entries {
		if entry.filter != render.NoNode {
			if err := g.SetOutput(x.bin, i, render.NoNode); err != nil {
				errs = append(errs, err)
			}
			if err := g.Remove(x.bin, entry.filter); err != nil {
				errs = append(errs, err)
			}
			g.Release(entry.filter)
		}
		if err := g.Remove(x.bin, entry.node); err != nil {
			errs = append(errs, err)
		}
		if err := x.reattach(g, entry); err != nil {
			errs = append(errs, err)
		}
	}
	x.entries = nil
	x.exposed = false
	logger.Debug("unexposed", logging.Int("bin", int(x.bin)))
	return x.bin, errors.Join(errs...)
}

func (x *exposure) reattach(g render.Graph, entry exposedNode) error {
	if entry.parent == render.NoNode {
		return nil
	}
	return g.Add(entry.parent, entry.node)
}

func (x *exposure) release(g render.Graph) {
	if x.bin != render.NoNode {
		g.Release(x.bin)
		x.bin = render.NoNode
	}
}
