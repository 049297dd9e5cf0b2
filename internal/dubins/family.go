package dubins

import "fmt"

// Turn is the signed direction of one maneuver: +1 turns left
// (counter-clockwise), -1 turns right and 0 flies straight.
type Turn int8

const (
	Right    Turn = -1
	Straight Turn = 0
	Left     Turn = 1
)

func (t Turn) String() string {
	switch t {
	case Left:
		return "L"
	case Right:
		return "R"
	default:
		return "S"
	}
}

// Opposite returns the turn in the other direction. Straight stays straight.
func (t Turn) Opposite() Turn {
	return -t
}

// TurnFromLetter maps 'L', 'R' and 'S' to a Turn.
func TurnFromLetter(c byte) (Turn, bool) {
	switch c {
	case 'L':
		return Left, true
	case 'R':
		return Right, true
	case 'S':
		return Straight, true
	}
	return Straight, false
}

// Family enumerates the six Dubins words.
type Family uint8

const (
	Unknown Family = iota
	LSL
	LSR
	RSL
	RSR
	LRL
	RLR
)

// Families lists the solvable words in evaluation order. When two words
// have the same cost the earlier one wins.
var Families = [...]Family{LSL, LSR, RSL, RSR, LRL, RLR}

var familyNames = [...]string{"UNKNOWN", "LSL", "LSR", "RSL", "RSR", "LRL", "RLR"}

var familyTurns = [...][3]Turn{
	{Straight, Straight, Straight},
	{Left, Straight, Left},
	{Left, Straight, Right},
	{Right, Straight, Left},
	{Right, Straight, Right},
	{Left, Right, Left},
	{Right, Left, Right},
}

func (f Family) String() string {
	if int(f) < len(familyNames) {
		return familyNames[f]
	}
	return fmt.Sprintf("Family(%d)", uint8(f))
}

// Turns returns the three turn directions of the word.
func (f Family) Turns() [3]Turn {
	if int(f) < len(familyTurns) {
		return familyTurns[f]
	}
	return familyTurns[Unknown]
}

// IsCCC reports whether the word is curve-curve-curve.
func (f Family) IsCCC() bool {
	return f == LRL || f == RLR
}

// ParseFamily parses a three letter word such as "RSL".
func ParseFamily(s string) (Family, error) {
	for i, name := range familyNames {
		if name == s {
			return Family(i), nil
		}
	}
	return Unknown, fmt.Errorf("dubins: unknown path family %q", s)
}

// MarshalText encodes the family by name.
func (f Family) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText decodes a family name.
func (f *Family) UnmarshalText(b []byte) error {
	v, err := ParseFamily(string(b))
	if err != nil {
		return err
	}
	*f = v
	return nil
}
