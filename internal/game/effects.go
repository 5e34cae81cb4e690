package game

import (
	"container/list"
	"sync"
)

// ActivationQueue accumulates ability activations until a view drains them
type ActivationQueue struct {
	mu      sync.Mutex
	pending *list.List // AbilityActivation
}

// NewActivationQueue creates an empty queue
func NewActivationQueue() *ActivationQueue {
	return &ActivationQueue{
		pending: list.New(),
	}
}

// Enqueue adds an activation to the queue
func (q *ActivationQueue) Enqueue(a AbilityActivation) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending.PushBack(a)
}

// Drain pops all pending activations in arrival order
func (q *ActivationQueue) Drain() []AbilityActivation {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]AbilityActivation, 0, q.pending.Len())
	for elem := q.pending.Front(); elem != nil; elem = elem.Next() {
		out = append(out, elem.Value.(AbilityActivation))
	}
	q.pending.Init()
	return out
}

// Count returns the number of pending activations
func (q *ActivationQueue) Count() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pending.Len()
}

// Clear drops everything pending
func (q *ActivationQueue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending.Init()
}
