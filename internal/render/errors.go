package render

import "errors"

var (
	// ErrNoSuchNode is returned when a NodeID does not address a live node.
	ErrNoSuchNode = errors.New("render: no such node")
	// ErrHasParent is returned when adding a node that is still owned by another container.
	ErrHasParent = errors.New("render: node already has a parent")
	// ErrNotChild is returned when removing a node from a container that does not own it.
	ErrNotChild = errors.New("render: node is not a child of container")
	// ErrNotComposition is returned when a composition-only primitive is used on another node kind.
	ErrNotComposition = errors.New("render: node is not a composition")
	// ErrNotBin is returned when a bin-only primitive is used on another node kind.
	ErrNotBin = errors.New("render: node is not a bin")
	// ErrNoSuchOutput is returned for an output index a bin does not publish.
	ErrNoSuchOutput = errors.New("render: no such bin output")
	// ErrUnknownElement is returned for element names missing from the factory table.
	ErrUnknownElement = errors.New("render: unknown element")
	// ErrNoURIHandler is returned when no handler is registered for a URI scheme.
	ErrNoURIHandler = errors.New("render: no uri handler for scheme")
	// ErrCycle is returned when an Add would make a node its own ancestor.
	ErrCycle = errors.New("render: node would contain itself")
)
