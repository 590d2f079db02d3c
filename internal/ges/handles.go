package ges

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"timeliner/internal/render"
)

// DefaultScheme is the uri scheme of playable handles.
const DefaultScheme = "ges"

// Handles maps process-local uris such as ges://<uuid> to live playables.
// The uris are not persisted and mean nothing to another process.
type Handles struct {
	scheme string

	mu      sync.Mutex
	entries map[string]Playable
}

// NewHandles creates a registry for scheme, DefaultScheme when empty.
func NewHandles(scheme string) *Handles {
	scheme = strings.ToLower(strings.TrimSpace(scheme))
	if scheme == "" {
		scheme = DefaultScheme
	}
	return &Handles{scheme: scheme, entries: make(map[string]Playable)}
}

func (h *Handles) Scheme() string { return h.scheme }

// Register stores p under a fresh handle and returns its uri.
func (h *Handles) Register(p Playable) string {
	handle := uuid.NewString()
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries[handle] = p
	return h.scheme + "://" + handle
}

// Unregister forgets the handle behind uri.
func (h *Handles) Unregister(uri string) bool {
	handle, ok := h.handle(uri)
	if !ok {
		return false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.entries[handle]; !ok {
		return false
	}
	delete(h.entries, handle)
	return true
}

// Lookup returns the playable registered under uri.
func (h *Handles) Lookup(uri string) (Playable, bool) {
	handle, ok := h.handle(uri)
	if !ok {
		return nil, false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	p, ok := h.entries[handle]
	return p, ok
}

// Install registers the scheme with the graph so OpenURI exposes the
// playable behind a handle.
func (h *Handles) Install(g render.Graph) {
	g.RegisterURIHandler(h.scheme, h.open)
}

func (h *Handles) open(uri string) (render.NodeID, error) {
	p, ok := h.Lookup(uri)
	if !ok {
		return render.NoNode, fmt.Errorf("%w: %s", ErrUnknownHandle, uri)
	}
	return p.MakePlayable(true)
}

func (h *Handles) handle(uri string) (string, bool) {
	scheme, rest, ok := strings.Cut(uri, "://")
	if !ok || !strings.EqualFold(scheme, h.scheme) || rest == "" {
		return "", false
	}
	return rest, true
}
