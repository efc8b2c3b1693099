package paging

import "sync"

// Guard owns the accumulated item list. Every read for merge purposes and
// every replace/append happens under its lock, so a load-more completing at
// the same instant as a refresh can never interleave into a corrupted list.
type Guard[T any] struct {
	mu    sync.Mutex
	items []T // guarded by mu; never handed out for writing
}

// NewGuard creates an empty guard.
func NewGuard[T any]() *Guard[T] {
	return &Guard[T]{}
}

// Apply merges page pageNum into the list under exclusion and returns the
// resulting list, which callers publish and must not modify.
func (g *Guard[T]) Apply(pageNum int, page Page[T]) MergeResult[T] {
	g.mu.Lock()
	defer g.mu.Unlock()

	result := MergePage(g.items, pageNum, page)
	g.items = result.Items
	return result
}

// Reset drops the accumulated list.
func (g *Guard[T]) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.items = nil
}

// Len returns the number of accumulated items.
func (g *Guard[T]) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.items)
}
