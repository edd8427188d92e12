package grid

import "github.com/rotisserie/eris"

// Policy controls how non-numeric tokens and short rows are treated.
type Policy int

const (
	// Lenient replaces malformed tokens and missing cells with "0".
	Lenient Policy = iota
	// Strict fails on the first malformed token or ragged row.
	Strict
)

// ParsePolicy maps a configuration value to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "lenient":
		return Lenient, nil
	case "strict":
		return Strict, nil
	default:
		return Lenient, eris.Errorf("grid: unknown policy %q", s)
	}
}

func (p Policy) String() string {
	if p == Strict {
		return "strict"
	}
	return "lenient"
}
