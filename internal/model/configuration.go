// Package model holds the vehicle configurations shared by the sampling,
// edge and tour packages.
package model

import (
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/viewplan/internal/airplane"
	"github.com/banshee-data/viewplan/internal/dubins"
)

// Configuration is one candidate vehicle state sampled inside a visibility
// volume. Group identifies the volume. Samples that belong to several
// volumes are materialized once per volume; those copies share ID and list
// every covered group in Visits.
type Configuration struct {
	ID      int     `json:"id"`
	Group   int     `json:"group"`
	Dim     int     `json:"dim"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Z       float64 `json:"z,omitempty"`
	Heading float64 `json:"heading"`
	Pitch   float64 `json:"pitch,omitempty"`
	Visits  []int   `json:"visits,omitempty"`
}

// New2D returns a planar configuration.
func New2D(id, group int, x, y, heading float64) Configuration {
	return Configuration{ID: id, Group: group, Dim: 2, X: x, Y: y, Heading: heading}
}

// New3D returns a spatial configuration.
func New3D(id, group int, x, y, z, heading, pitch float64) Configuration {
	return Configuration{ID: id, Group: group, Dim: 3, X: x, Y: y, Z: z, Heading: heading, Pitch: pitch}
}

// Is3D reports whether the altitude channel is meaningful.
func (c Configuration) Is3D() bool {
	return c.Dim == 3
}

// IsMulti reports whether the configuration is one copy of a shared sample.
func (c Configuration) IsMulti() bool {
	return len(c.Visits) > 0
}

// HasVisit reports whether group g is listed in Visits.
func (c Configuration) HasVisit(g int) bool {
	return slices.Contains(c.Visits, g)
}

// Pose2 projects the configuration onto the plane.
func (c Configuration) Pose2() dubins.Pose {
	return dubins.Pose{X: c.X, Y: c.Y, Heading: c.Heading}
}

// Pose3 returns the 3-D pose.
func (c Configuration) Pose3() airplane.Pose {
	return airplane.Pose{X: c.X, Y: c.Y, Z: c.Z, Heading: c.Heading, Pitch: c.Pitch}
}

// Point returns the position.
func (c Configuration) Point() r3.Vec {
	return r3.Vec{X: c.X, Y: c.Y, Z: c.Z}
}

// Direction is the unit vector along the heading, tilted by the pitch for
// 3-D configurations.
func (c Configuration) Direction() r3.Vec {
	sh, ch := math.Sincos(c.Heading)
	if !c.Is3D() {
		return r3.Vec{X: ch, Y: sh}
	}
	sp, cp := math.Sincos(c.Pitch)
	return r3.Vec{X: ch * cp, Y: sh * cp, Z: sp}
}

// Shifted returns a copy moved by v. Planar configurations ignore v.Z.
func (c Configuration) Shifted(v r3.Vec) Configuration {
	c.X += v.X
	c.Y += v.Y
	if c.Is3D() {
		c.Z += v.Z
	}
	c.Visits = slices.Clone(c.Visits)
	return c
}

// WithVisits returns a copy whose Visits is the sorted union of its own
// visits, its group and the given groups.
func (c Configuration) WithVisits(groups ...int) Configuration {
	set := append(slices.Clone(c.Visits), c.Group)
	set = append(set, groups...)
	slices.Sort(set)
	c.Visits = slices.Compact(set)
	return c
}

// Key identifies the configuration state for caching. Two configurations
// with the same key produce the same edges.
type Key struct {
	ID, Group, Dim          int
	X, Y, Z, Heading, Pitch float64
	Visits                  int
}

// Key returns the cache key of c.
func (c Configuration) Key() Key {
	return Key{
		ID:      c.ID,
		Group:   c.Group,
		Dim:     c.Dim,
		X:       c.X,
		Y:       c.Y,
		Z:       c.Z,
		Heading: c.Heading,
		Pitch:   c.Pitch,
		Visits:  len(c.Visits),
	}
}

func (c Configuration) String() string {
	if c.Is3D() {
		return fmt.Sprintf("#%d[g%d](%.3f, %.3f, %.3f | %.3f, %.3f)", c.ID, c.Group, c.X, c.Y, c.Z, c.Heading, c.Pitch)
	}
	return fmt.Sprintf("#%d[g%d](%.3f, %.3f | %.3f)", c.ID, c.Group, c.X, c.Y, c.Heading)
}

// Groups returns the sorted distinct groups present in configs.
func Groups(configs []Configuration) []int {
	out := make([]int, 0)
	for _, c := range configs {
		out = append(out, c.Group)
	}
	slices.Sort(out)
	return slices.Compact(out)
}
