package edge

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/banshee-data/viewplan/internal/model"
)

type pairKey struct {
	a, b model.Key
}

// Cached memoizes EdgeCost of Inner in a bounded LRU. Edge and Edges are
// passed through. The owner clears it between experiments.
type Cached struct {
	Inner Solver
	costs *lru.Cache[pairKey, float64]
}

// NewCached wraps inner with a cache holding up to size costs.
func NewCached(inner Solver, size int) (*Cached, error) {
	costs, err := lru.New[pairKey, float64](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create edge cache: %w", err)
	}
	return &Cached{Inner: inner, costs: costs}, nil
}

// EdgeCost implements Solver.
func (c *Cached) EdgeCost(a, b model.Configuration) float64 {
	k := pairKey{a: a.Key(), b: b.Key()}
	if v, ok := c.costs.Get(k); ok {
		return v
	}
	v := c.Inner.EdgeCost(a, b)
	c.costs.Add(k, v)
	return v
}

// Edge implements Solver.
func (c *Cached) Edge(a, b model.Configuration) Segment {
	return c.Inner.Edge(a, b)
}

// Edges implements Solver.
func (c *Cached) Edges(tour []model.Configuration) []Segment {
	return c.Inner.Edges(tour)
}

// Len returns the number of cached costs.
func (c *Cached) Len() int {
	return c.costs.Len()
}

// Clear drops every cached cost.
func (c *Cached) Clear() {
	c.costs.Purge()
}
