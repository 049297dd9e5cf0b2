package edge

import (
	"fmt"

	"github.com/banshee-data/viewplan/internal/airplane"
	"github.com/banshee-data/viewplan/internal/config"
	"github.com/banshee-data/viewplan/internal/headings"
)

// NewSolver builds the solver stack described by s for turn radius r and
// pitch bounds b. Bounds are ignored by the planar solver.
func NewSolver(s config.EdgeStrategy, r float64, b airplane.Bounds) (Solver, error) {
	var base Solver
	switch s.Type {
	case config.EdgeDubinsCar:
		base = Car{Radius: r}
	case config.EdgeVanaAirplane:
		base = Airplane{Radius: r, Bounds: b, Geometry: airplane.Vana{}}
	case config.EdgeModifiedAirplane:
		base = Airplane{Radius: r, Bounds: b, Geometry: airplane.Extended{}}
	case config.EdgeHeuristic:
		h, err := headings.New(s.GetHeadings())
		if err != nil {
			return nil, err
		}
		base = Heuristic{
			Airplane: Airplane{Radius: r, Bounds: b, Geometry: airplane.Vana{}},
			Headings: h,
		}
	default:
		return nil, fmt.Errorf("unknown edge type %q", s.Type)
	}

	switch s.Modification {
	case "", config.ModificationNone:
		return base, nil
	case config.ModificationDwell:
		return DwellStraight{Dwell: s.Dwell, Multiply: s.Multiply, Inner: base}, nil
	case config.ModificationLeadInDwell:
		return LeadInDwell{Lead: s.Lead, Dwell: s.Dwell, Multiply: s.Multiply, Inner: base}, nil
	}
	return nil, fmt.Errorf("unknown edge modification %q", s.Modification)
}
