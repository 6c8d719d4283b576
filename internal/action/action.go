// Package action defines the enumerated action set and the dispatcher that
// normalizes heterogeneous caller inputs into one canonical per-player
// vector. Nothing downstream of Normalize branches on the caller's
// representation.
package action

// Code is a discrete action in the fixed enumerated set.
type Code int

const (
	Idle Code = iota
	Left
	TopLeft
	Top
	TopRight
	Right
	BottomRight
	Bottom
	BottomLeft
	ShortPass
	LongPass
	HighPass
	Shot
	Sprint
	ReleaseDirection
	ReleaseSprint

	NumCodes = int(ReleaseSprint) + 1
)

var names = [...]string{
	Idle:             "idle",
	Left:             "left",
	TopLeft:          "top_left",
	Top:              "top",
	TopRight:         "top_right",
	Right:            "right",
	BottomRight:      "bottom_right",
	Bottom:           "bottom",
	BottomLeft:       "bottom_left",
	ShortPass:        "short_pass",
	LongPass:         "long_pass",
	HighPass:         "high_pass",
	Shot:             "shot",
	Sprint:           "sprint",
	ReleaseDirection: "release_direction",
	ReleaseSprint:    "release_sprint",
}

func (c Code) String() string {
	if !c.Valid() {
		return "invalid"
	}
	return names[c]
}

func (c Code) Valid() bool { return c >= 0 && int(c) < NumCodes }

// Delta returns the movement direction a code commands. ok is false for
// codes that are not direction actions.
func (c Code) Delta() (dx, dy float64, ok bool) {
	switch c {
	case Left:
		return -1, 0, true
	case TopLeft:
		return -1, 1, true
	case Top:
		return 0, 1, true
	case TopRight:
		return 1, 1, true
	case Right:
		return 1, 0, true
	case BottomRight:
		return 1, -1, true
	case Bottom:
		return 0, -1, true
	case BottomLeft:
		return -1, -1, true
	}
	return 0, 0, false
}

var mirrored = [...]Code{
	Idle:             Idle,
	Left:             Right,
	TopLeft:          BottomRight,
	Top:              Bottom,
	TopRight:         BottomLeft,
	Right:            Left,
	BottomRight:      TopLeft,
	Bottom:           Top,
	BottomLeft:       TopRight,
	ShortPass:        ShortPass,
	LongPass:         LongPass,
	HighPass:         HighPass,
	Shot:             Shot,
	Sprint:           Sprint,
	ReleaseDirection: ReleaseDirection,
	ReleaseSprint:    ReleaseSprint,
}

// Mirror maps a code to its point reflection (left<->right, top<->bottom).
// Non-directional codes map to themselves.
func (c Code) Mirror() Code {
	if !c.Valid() {
		return c
	}
	return mirrored[c]
}
