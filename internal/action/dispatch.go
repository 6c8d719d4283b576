package action

import "fmt"

// Canonical is the normalized fixed-length per-player action vector. It is
// freshly allocated on every Normalize call and consumed within one step.
type Canonical []Code

// InvalidShapeError reports an action whose cardinality does not match the
// number of controlled players. Recoverable: the caller must fix the call
// site and may keep stepping.
type InvalidShapeError struct {
	Got  int
	Want int
}

func (e *InvalidShapeError) Error() string {
	return fmt.Sprintf("invalid action shape: got %d action(s), want %d", e.Got, e.Want)
}

// Normalize resolves the accepted input representations into a Canonical
// vector of length expected. Accepted: a single scalar code (only when
// expected == 1, scalars are never broadcast), a slice of codes, or a
// fixed-size numeric slice. Side-effect free.
func Normalize(raw any, expected int) (Canonical, error) {
	if expected < 1 {
		return nil, fmt.Errorf("normalize: expected player count %d out of range", expected)
	}
	switch v := raw.(type) {
	case Code:
		return scalar(v, expected)
	case int:
		return scalar(Code(v), expected)
	case int32:
		return scalar(Code(v), expected)
	case int64:
		return scalar(Code(v), expected)
	case Canonical:
		return fromCodes(v, expected)
	case []Code:
		return fromCodes(v, expected)
	case []int:
		out := make(Canonical, 0, len(v))
		for _, c := range v {
			out = append(out, Code(c))
		}
		return checked(out, expected)
	case []int32:
		out := make(Canonical, 0, len(v))
		for _, c := range v {
			out = append(out, Code(c))
		}
		return checked(out, expected)
	case []int64:
		out := make(Canonical, 0, len(v))
		for _, c := range v {
			out = append(out, Code(c))
		}
		return checked(out, expected)
	case []float64:
		out := make(Canonical, 0, len(v))
		for _, c := range v {
			if c != float64(int(c)) {
				return nil, fmt.Errorf("normalize: non-integral action code %v", c)
			}
			out = append(out, Code(int(c)))
		}
		return checked(out, expected)
	default:
		return nil, fmt.Errorf("normalize: unsupported action type %T", raw)
	}
}

func scalar(c Code, expected int) (Canonical, error) {
	if expected != 1 {
		return nil, &InvalidShapeError{Got: 1, Want: expected}
	}
	return checked(Canonical{c}, expected)
}

func fromCodes(v []Code, expected int) (Canonical, error) {
	out := make(Canonical, len(v))
	copy(out, v)
	return checked(out, expected)
}

func checked(v Canonical, expected int) (Canonical, error) {
	if len(v) != expected {
		return nil, &InvalidShapeError{Got: len(v), Want: expected}
	}
	for _, c := range v {
		if !c.Valid() {
			return nil, fmt.Errorf("normalize: action code %d out of range [0, %d)", int(c), NumCodes)
		}
	}
	return v, nil
}
