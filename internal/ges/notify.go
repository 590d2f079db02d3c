package ges

import (
	"sync"
	"time"
)

// Change describes an attribute transition on an object.
type Change[T any] struct {
	Object *Object
	Old    T
	New    T
}

// TrackIndexChange describes a track index move for one media type.
type TrackIndexChange struct {
	Object    *Object
	MediaType MediaType
	Old       int
	New       int
}

type observer[T any] struct {
	id int
	fn func(T)
}

// Observers is a typed callback list. The zero value is ready to use.
type Observers[T any] struct {
	mu     sync.Mutex
	nextID int
	list   []observer[T]
}

// Subscribe registers fn and returns a function that removes it.
func (o *Observers[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.nextID++
	id := o.nextID
	o.list = append(o.list, observer[T]{id: id, fn: fn})
	return func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		for i, entry := range o.list {
			if entry.id == id {
				o.list = append(o.list[:i:i], o.list[i+1:]...)
				return
			}
		}
	}
}

// Len returns the number of subscribers.
func (o *Observers[T]) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.list)
}

// notify calls every subscriber in subscription order without holding the lock.
func (o *Observers[T]) notify(value T) {
	o.mu.Lock()
	list := append([]observer[T](nil), o.list...)
	o.mu.Unlock()
	for _, entry := range list {
		entry.fn(value)
	}
}

type timingObservers = Observers[Change[time.Duration]]
