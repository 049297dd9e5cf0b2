package dubins

import "math"

// Pose is a planar position with heading in radians, measured
// counter-clockwise from +X.
type Pose struct {
	X, Y    float64
	Heading float64
}

// Maneuver is one constant-curvature piece of a path. Length is an arc
// length in the same units as the radius it is traced with.
type Maneuver struct {
	Turn   Turn
	Length float64
}

// NormalizeAngle maps a onto [0, 2π).
func NormalizeAngle(a float64) float64 {
	return mod(a, 2*math.Pi)
}

func mod(a, b float64) float64 {
	return a - math.Floor(a/b)*b
}

// Advance moves p along a single maneuver of the given length on a circle
// of radius r.
func Advance(p Pose, turn Turn, length, r float64) Pose {
	if turn == Straight {
		s, c := math.Sincos(p.Heading)
		p.X += length * c
		p.Y += length * s
		return p
	}
	d := float64(turn)
	phi := d * length / r
	s0, c0 := math.Sincos(p.Heading)
	s1, c1 := math.Sincos(p.Heading + phi)
	p.X += r * d * (s1 - s0)
	p.Y += r * d * (c0 - c1)
	p.Heading += phi
	return p
}

// Trace returns the pose reached after travelling s along the maneuvers
// starting at start. s is clamped to [0, total length].
func Trace(start Pose, r float64, maneuvers []Maneuver, s float64) Pose {
	p := start
	if s < 0 {
		s = 0
	}
	for _, m := range maneuvers {
		if s <= 0 {
			break
		}
		l := math.Min(s, m.Length)
		p = Advance(p, m.Turn, l, r)
		s -= l
	}
	return p
}

// TotalLength sums the maneuver lengths.
func TotalLength(maneuvers []Maneuver) float64 {
	var total float64
	for _, m := range maneuvers {
		total += m.Length
	}
	return total
}
