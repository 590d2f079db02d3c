package ges

import (
	"time"

	"github.com/google/btree"
)

type seqEntry struct {
	start time.Duration
	seq   uint64
	obj   *Object
}

func seqLess(a, b seqEntry) bool {
	if a.start != b.start {
		return a.start < b.start
	}
	return a.seq < b.seq
}

// sequence keeps objects ordered by start. Ties keep insertion order.
type sequence struct {
	tree    *btree.BTreeG[seqEntry]
	entries map[*Object]seqEntry
	counter uint64
}

func newSequence() *sequence {
	return &sequence{
		tree:    btree.NewG[seqEntry](16, seqLess),
		entries: make(map[*Object]seqEntry),
	}
}

func (s *sequence) insert(o *Object) bool {
	if _, ok := s.entries[o]; ok {
		return false
	}
	s.counter++
	e := seqEntry{start: o.start, seq: s.counter, obj: o}
	s.tree.ReplaceOrInsert(e)
	s.entries[o] = e
	return true
}

func (s *sequence) remove(o *Object) bool {
	e, ok := s.entries[o]
	if !ok {
		return false
	}
	s.tree.Delete(e)
	delete(s.entries, o)
	return true
}

// reposition re-keys o after its start changed.
func (s *sequence) reposition(o *Object) {
	e, ok := s.entries[o]
	if !ok || e.start == o.start {
		return
	}
	s.tree.Delete(e)
	e.start = o.start
	s.tree.ReplaceOrInsert(e)
	s.entries[o] = e
}

func (s *sequence) contains(o *Object) bool {
	_, ok := s.entries[o]
	return ok
}

func (s *sequence) len() int { return s.tree.Len() }

func (s *sequence) ascend(fn func(*Object) bool) {
	s.tree.Ascend(func(e seqEntry) bool { return fn(e.obj) })
}

func (s *sequence) objects() []*Object {
	out := make([]*Object, 0, s.tree.Len())
	s.ascend(func(o *Object) bool {
		out = append(out, o)
		return true
	})
	return out
}
