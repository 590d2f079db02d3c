package render

import "time"

// NodeID addresses a node in the engine's arena.
type NodeID int

// NoNode is the zero parent: a node that is not owned by any container.
const NoNode NodeID = -1

// NodeKind describes the role a node plays in the graph.
type NodeKind int

const (
	KindElement NodeKind = iota
	// KindSource wraps a media-producing subtree so a composition can schedule it.
	KindSource
	// KindOperation wraps a mixing element inside a composition.
	KindOperation
	KindComposition
	// KindBin is a plain container with a published output.
	KindBin
)

func (k NodeKind) String() string {
	switch k {
	case KindElement:
		return "element"
	case KindSource:
		return "source"
	case KindOperation:
		return "operation"
	case KindComposition:
		return "composition"
	case KindBin:
		return "bin"
	default:
		return "unknown"
	}
}

// Update reasons carried on composition notifications.
const (
	ReasonCommit = "Commit"
	ReasonSeek   = "Seek"
)

// UpdateKind distinguishes the two halves of a composition update.
type UpdateKind int

const (
	UpdateStarted UpdateKind = iota
	UpdateDone
)

func (k UpdateKind) String() string {
	if k == UpdateDone {
		return "done"
	}
	return "started"
}

// Update is posted by a composition when its topology starts or finishes settling.
type Update struct {
	Composition NodeID
	Kind        UpdateKind
	Reason      string
	Seqnum      uint64
}

// URIHandler opens a URI and returns the node producing its output.
type URIHandler func(uri string) (NodeID, error)

// Graph is the set of render engine primitives the editing model relies on.
type Graph interface {
	NewComposition(name string, caps Caps) NodeID
	NewSource(name string, caps Caps) NodeID
	NewOperation(name string, caps Caps) NodeID
	NewBin(name string) NodeID
	NewElement(kind ElementKind, props map[string]any) (NodeID, error)
	ParseDescription(desc string) (NodeID, error)
	Release(id NodeID)

	Add(parent, child NodeID) error
	Remove(parent, child NodeID) error
	Parent(id NodeID) NodeID
	Children(id NodeID) []NodeID
	Describe(id NodeID) (Node, error)
	Caps(id NodeID) Caps

	SetPriority(id NodeID, priority uint32) error
	SetStart(id NodeID, start time.Duration) error
	SetInpoint(id NodeID, inpoint time.Duration) error
	SetDuration(id NodeID, duration time.Duration) error
	SetExpandable(id NodeID, expandable bool) error
	SetProperty(id NodeID, name string, value any) error
	Property(id NodeID, name string) (any, bool)
	Controllable(id NodeID, property string) (*ControlCurve, bool)

	Commit(composition NodeID) error
	Seek(composition NodeID, position time.Duration) error
	Updates(composition NodeID) (<-chan Update, error)

	SetOutput(bin NodeID, index int, target NodeID) error
	SetOutputActive(bin NodeID, index int, active bool) error

	RegisterURIHandler(scheme string, handler URIHandler)
	OpenURI(uri string) (NodeID, error)
}
