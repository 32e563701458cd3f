package telemetry

import "sync"

// Cell holds the most recent Sample. Write replaces it in one step; Read
// returns a copy. The lock is held only for the assignment or copy, never
// while parsing or drawing, and concurrent readers do not block one another.
type Cell struct {
	mu     sync.RWMutex
	sample Sample
	writes uint64
}

// NewCell creates a cell holding initial.
func NewCell(initial Sample) *Cell {
	return &Cell{sample: initial}
}

// Write installs s as the current sample.
func (c *Cell) Write(s Sample) {
	c.mu.Lock()
	c.sample = s
	c.writes++
	c.mu.Unlock()
}

// Read returns a copy of the current sample.
func (c *Cell) Read() Sample {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sample
}

// Writes returns how many samples have been written since creation.
func (c *Cell) Writes() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.writes
}
