package render

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"timeliner/internal/logging"
)

// Node is a snapshot of one arena entry.
type Node struct {
	ID         NodeID
	Name       string
	Kind       NodeKind
	Element    ElementKind
	Caps       Caps
	Parent     NodeID
	Children   []NodeID
	Priority   uint32
	Start      time.Duration
	Inpoint    time.Duration
	Duration   time.Duration
	Expandable bool
	Props      map[string]any

	// Published outputs of a bin.
	Outputs []Output
}

// Output is one published output socket of a bin. An output without a
// target is never active.
type Output struct {
	Target NodeID
	Active bool
}

type node struct {
	Node
	curves  map[string]*ControlCurve
	updates *updateStream
}

type updateStream struct {
	mu     sync.Mutex
	ch     chan Update
	quit   chan struct{}
	closed bool
	seqnum uint64
}

const updateBuffer = 64

// Engine is an in-process render graph. It is safe for concurrent use.
type Engine struct {
	mu       sync.Mutex
	nodes    []*node
	handlers map[string]URIHandler
	logger   *slog.Logger
	inflight sync.WaitGroup
	counter  int
}

var _ Graph = (*Engine)(nil)

// NewEngine constructs an empty engine.
func NewEngine(logger *slog.Logger) *Engine {
	return &Engine{
		handlers: make(map[string]URIHandler),
		logger:   logging.NewComponentLogger(logger, "render"),
	}
}

func (e *Engine) alloc(kind NodeKind, name string, caps Caps) *node {
	e.counter++
	if strings.TrimSpace(name) == "" {
		name = fmt.Sprintf("%s%d", kind, e.counter)
	}
	n := &node{Node: Node{
		ID:     NodeID(len(e.nodes)),
		Name:   name,
		Kind:   kind,
		Caps:   caps,
		Parent: NoNode,
		Props:  make(map[string]any),
	}}
	e.nodes = append(e.nodes, n)
	return n
}

func (e *Engine) lookup(id NodeID) (*node, error) {
	if id < 0 || int(id) >= len(e.nodes) || e.nodes[id] == nil {
		return nil, fmt.Errorf("%w: %d", ErrNoSuchNode, id)
	}
	return e.nodes[id], nil
}

// Live returns the number of nodes not yet released.
func (e *Engine) Live() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	live := 0
	for _, n := range e.nodes {
		if n != nil {
			live++
		}
	}
	return live
}

// NewComposition creates a composition filtering on caps.
func (e *Engine) NewComposition(name string, caps Caps) NodeID {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := e.alloc(KindComposition, name, caps)
	n.updates = &updateStream{ch: make(chan Update, updateBuffer), quit: make(chan struct{})}
	e.logger.Debug("composition created", logging.String("name", n.Name), logging.String("caps", string(caps)))
	return n.ID
}

// NewSource creates an empty source wrapper.
func (e *Engine) NewSource(name string, caps Caps) NodeID {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.alloc(KindSource, name, caps).ID
}

// NewOperation creates an empty operation wrapper.
func (e *Engine) NewOperation(name string, caps Caps) NodeID {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.alloc(KindOperation, name, caps).ID
}

// NewBin creates an empty container with an inactive published output.
func (e *Engine) NewBin(name string) NodeID {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.alloc(KindBin, name, CapsAny).ID
}

// NewElement builds an element from the factory table and applies props over its defaults.
func (e *Engine) NewElement(kind ElementKind, props map[string]any) (NodeID, error) {
	spec, ok := elementFactories[kind]
	if !ok {
		return NoNode, fmt.Errorf("%w: %s", ErrUnknownElement, kind)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	n := e.alloc(KindElement, "", spec.caps)
	n.Name = fmt.Sprintf("%s%d", spec.name, e.counter)
	n.Element = kind
	for key, value := range spec.defaults {
		n.Props[key] = value
	}
	for key, value := range props {
		n.Props[key] = value
	}
	if caps, ok := props["caps"].(Caps); ok {
		n.Caps = caps
	}
	return n.ID, nil
}

// Release removes a node and its whole subtree from the arena.
func (e *Engine) Release(id NodeID) {
	e.mu.Lock()
	n, err := e.lookup(id)
	if err != nil {
		e.mu.Unlock()
		return
	}
	if parent, perr := e.lookup(n.Parent); perr == nil {
		parent.Children = removeID(parent.Children, id)
	}
	var streams []*updateStream
	e.releaseLocked(n, &streams)
	e.mu.Unlock()

	for _, s := range streams {
		close(s.quit)
		s.mu.Lock()
		s.closed = true
		close(s.ch)
		s.mu.Unlock()
	}
}

func (e *Engine) releaseLocked(n *node, streams *[]*updateStream) {
	for _, child := range n.Children {
		if c, err := e.lookup(child); err == nil {
			e.releaseLocked(c, streams)
		}
	}
	if n.updates != nil {
		*streams = append(*streams, n.updates)
	}
	e.nodes[n.ID] = nil
}

// Add makes child a member of parent. The child must not already have a parent.
func (e *Engine) Add(parent, child NodeID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, err := e.lookup(parent)
	if err != nil {
		return err
	}
	c, err := e.lookup(child)
	if err != nil {
		return err
	}
	if c.Parent != NoNode {
		return fmt.Errorf("%w: %s in %d", ErrHasParent, c.Name, c.Parent)
	}
	for cursor := p; cursor != nil; {
		if cursor.ID == child {
			return ErrCycle
		}
		next, err := e.lookup(cursor.Parent)
		if err != nil {
			break
		}
		cursor = next
	}
	c.Parent = parent
	p.Children = append(p.Children, child)
	return nil
}

// Remove detaches child from parent. The child stays alive in the arena.
func (e *Engine) Remove(parent, child NodeID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, err := e.lookup(parent)
	if err != nil {
		return err
	}
	c, err := e.lookup(child)
	if err != nil {
		return err
	}
	if c.Parent != parent {
		return fmt.Errorf("%w: %s", ErrNotChild, c.Name)
	}
	p.Children = removeID(p.Children, child)
	c.Parent = NoNode
	if p.Kind == KindBin {
		for i, out := range p.Outputs {
			if out.Target != NoNode && e.isWithin(out.Target, child) {
				p.Outputs[i] = Output{Target: NoNode}
			}
		}
	}
	return nil
}

func (e *Engine) isWithin(id, ancestor NodeID) bool {
	for id != NoNode {
		if id == ancestor {
			return true
		}
		n, err := e.lookup(id)
		if err != nil {
			return false
		}
		id = n.Parent
	}
	return false
}

// Parent returns the owning container, or NoNode.
func (e *Engine) Parent(id NodeID) NodeID {
	e.mu.Lock()
	defer e.mu.Unlock()
	n, err := e.lookup(id)
	if err != nil {
		return NoNode
	}
	return n.Parent
}

// Children returns a copy of the node's children in insertion order.
func (e *Engine) Children(id NodeID) []NodeID {
	e.mu.Lock()
	defer e.mu.Unlock()
	n, err := e.lookup(id)
	if err != nil {
		return nil
	}
	return append([]NodeID(nil), n.Children...)
}

// Describe returns a snapshot of the node.
func (e *Engine) Describe(id NodeID) (Node, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	n, err := e.lookup(id)
	if err != nil {
		return Node{}, err
	}
	snapshot := n.Node
	snapshot.Children = append([]NodeID(nil), n.Children...)
	snapshot.Outputs = append([]Output(nil), n.Outputs...)
	snapshot.Props = make(map[string]any, len(n.Props))
	for key, value := range n.Props {
		snapshot.Props[key] = value
	}
	return snapshot, nil
}

// Caps returns the node's caps tag, or CapsAny for unknown nodes.
func (e *Engine) Caps(id NodeID) Caps {
	e.mu.Lock()
	defer e.mu.Unlock()
	n, err := e.lookup(id)
	if err != nil {
		return CapsAny
	}
	return n.Caps
}

func (e *Engine) update(id NodeID, fn func(*node)) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	n, err := e.lookup(id)
	if err != nil {
		return err
	}
	fn(n)
	return nil
}

func (e *Engine) SetPriority(id NodeID, priority uint32) error {
	return e.update(id, func(n *node) { n.Priority = priority })
}

func (e *Engine) SetStart(id NodeID, start time.Duration) error {
	return e.update(id, func(n *node) { n.Start = start })
}

func (e *Engine) SetInpoint(id NodeID, inpoint time.Duration) error {
	return e.update(id, func(n *node) { n.Inpoint = inpoint })
}

func (e *Engine) SetDuration(id NodeID, duration time.Duration) error {
	return e.update(id, func(n *node) { n.Duration = duration })
}

func (e *Engine) SetExpandable(id NodeID, expandable bool) error {
	return e.update(id, func(n *node) { n.Expandable = expandable })
}

// findProperty returns the first node in the subtree rooted at n that carries name.
func (e *Engine) findProperty(n *node, name string) *node {
	if _, ok := n.Props[name]; ok {
		return n
	}
	for _, child := range n.Children {
		c, err := e.lookup(child)
		if err != nil {
			continue
		}
		if found := e.findProperty(c, name); found != nil {
			return found
		}
	}
	return nil
}

// SetProperty sets name on the node, or on the first descendant that carries it.
func (e *Engine) SetProperty(id NodeID, name string, value any) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	n, err := e.lookup(id)
	if err != nil {
		return err
	}
	if target := e.findProperty(n, name); target != nil {
		n = target
	}
	n.Props[name] = value
	return nil
}

// Property reads name from the node or the first descendant that carries it.
func (e *Engine) Property(id NodeID, name string) (any, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	n, err := e.lookup(id)
	if err != nil {
		return nil, false
	}
	target := e.findProperty(n, name)
	if target == nil {
		return nil, false
	}
	return target.Props[name], true
}

// Controllable returns the control curve bound to property on the first
// element of the subtree that exposes it, creating the curve on first use.
// A "factory::property" name restricts the search to elements built by
// that factory.
func (e *Engine) Controllable(id NodeID, property string) (*ControlCurve, bool) {
	factory := ""
	if f, p, ok := strings.Cut(property, "::"); ok {
		factory, property = f, p
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	n, err := e.lookup(id)
	if err != nil {
		return nil, false
	}
	target := e.findControllable(n, factory, property)
	if target == nil {
		return nil, false
	}
	if target.curves == nil {
		target.curves = make(map[string]*ControlCurve)
	}
	curve, ok := target.curves[property]
	if !ok {
		curve = newControlCurve(property)
		target.curves[property] = curve
	}
	return curve, true
}

func (e *Engine) findControllable(n *node, factory, property string) *node {
	if n.Kind == KindElement && n.Element.controllable(property) &&
		(factory == "" || n.Element.String() == factory) {
		return n
	}
	for _, child := range n.Children {
		c, err := e.lookup(child)
		if err != nil {
			continue
		}
		if found := e.findControllable(c, factory, property); found != nil {
			return found
		}
	}
	return nil
}

// Commit asks the composition to apply pending structural changes. The
// call returns immediately; progress is reported on Updates.
func (e *Engine) Commit(composition NodeID) error {
	return e.requestUpdate(composition, ReasonCommit)
}

// Seek repositions the composition, which settles with a Seek-tagged update.
func (e *Engine) Seek(composition NodeID, position time.Duration) error {
	e.logger.Debug("composition seek", logging.Int("composition", int(composition)), logging.Duration("position", position))
	return e.requestUpdate(composition, ReasonSeek)
}

func (e *Engine) requestUpdate(composition NodeID, reason string) error {
	e.mu.Lock()
	n, err := e.lookup(composition)
	if err != nil {
		e.mu.Unlock()
		return err
	}
	if n.Kind != KindComposition || n.updates == nil {
		e.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotComposition, n.Name)
	}
	stream := n.updates
	e.inflight.Add(1)
	e.mu.Unlock()

	go func() {
		defer e.inflight.Done()
		stream.mu.Lock()
		defer stream.mu.Unlock()
		if stream.closed {
			return
		}
		stream.seqnum++
		seq := stream.seqnum
		for _, kind := range []UpdateKind{UpdateStarted, UpdateDone} {
			select {
			case stream.ch <- Update{Composition: composition, Kind: kind, Reason: reason, Seqnum: seq}:
			case <-stream.quit:
				return
			}
		}
	}()
	return nil
}

// Updates returns the notification channel of a composition. The channel
// is closed when the composition is released.
func (e *Engine) Updates(composition NodeID) (<-chan Update, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	n, err := e.lookup(composition)
	if err != nil {
		return nil, err
	}
	if n.updates == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotComposition, n.Name)
	}
	return n.updates.ch, nil
}

// Wait blocks until every update requested so far has been delivered.
func (e *Engine) Wait() {
	e.inflight.Wait()
}

// SetOutput points output index of the bin at target, which must live inside
// the bin. Index may be one past the last output to publish a new one. A
// NoNode target clears and deactivates the output.
func (e *Engine) SetOutput(bin NodeID, index int, target NodeID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	b, err := e.lookupBin(bin)
	if err != nil {
		return err
	}
	if index < 0 || index > len(b.Outputs) {
		return fmt.Errorf("%w: %d", ErrNoSuchOutput, index)
	}
	if target != NoNode {
		if _, err := e.lookup(target); err != nil {
			return err
		}
		if !e.isWithin(target, bin) || target == bin {
			return fmt.Errorf("%w: output target %d", ErrNotChild, target)
		}
	}
	if index == len(b.Outputs) {
		b.Outputs = append(b.Outputs, Output{Target: NoNode})
	}
	b.Outputs[index].Target = target
	if target == NoNode {
		b.Outputs[index].Active = false
	}
	return nil
}

// SetOutputActive toggles one published output of the bin.
func (e *Engine) SetOutputActive(bin NodeID, index int, active bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	b, err := e.lookupBin(bin)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(b.Outputs) {
		return fmt.Errorf("%w: %d", ErrNoSuchOutput, index)
	}
	b.Outputs[index].Active = active && b.Outputs[index].Target != NoNode
	return nil
}

func (e *Engine) lookupBin(id NodeID) (*node, error) {
	b, err := e.lookup(id)
	if err != nil {
		return nil, err
	}
	if b.Kind != KindBin {
		return nil, fmt.Errorf("%w: %s", ErrNotBin, b.Name)
	}
	return b, nil
}

// RegisterURIHandler installs the handler for scheme, replacing any previous one.
func (e *Engine) RegisterURIHandler(scheme string, handler URIHandler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers[strings.ToLower(scheme)] = handler
}

// OpenURI dispatches uri to the handler registered for its scheme.
func (e *Engine) OpenURI(uri string) (NodeID, error) {
	scheme, _, ok := strings.Cut(uri, "://")
	if !ok {
		return NoNode, fmt.Errorf("%w: %q", ErrNoURIHandler, uri)
	}
	e.mu.Lock()
	handler, ok := e.handlers[strings.ToLower(scheme)]
	e.mu.Unlock()
	if !ok {
		return NoNode, fmt.Errorf("%w: %s", ErrNoURIHandler, scheme)
	}
	return handler(uri)
}

func removeID(ids []NodeID, id NodeID) []NodeID {
	for i, candidate := range ids {
		if candidate == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
