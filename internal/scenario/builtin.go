package scenario

const DefaultName = "11_vs_11_deterministic"

// eleven is a 4-4-2 style kickoff layout for the left team; the right
// team uses its point reflection so the kickoff is symmetric. The
// kickoff taker leads the list because controlled players are taken from
// the front of the formation order.
var eleven = []Point{
	{X: -0.02, Y: 0.00}, // kickoff taker
	{X: -0.10, Y: -0.08},
	{X: -0.35, Y: -0.30},
	{X: -0.40, Y: -0.10},
	{X: -0.40, Y: 0.10},
	{X: -0.35, Y: 0.30},
	{X: -0.60, Y: -0.30},
	{X: -0.65, Y: -0.10},
	{X: -0.65, Y: 0.10},
	{X: -0.60, Y: 0.30},
	{X: -0.95, Y: 0.00}, // keeper
}

func mirrorPoints(ps []Point) []Point {
	out := make([]Point, len(ps))
	for i, p := range ps {
		out[i] = Point{X: -p.X, Y: -p.Y}
	}
	return out
}

var builtins = map[string]Scenario{
	"11_vs_11_deterministic": {
		Name:           "11_vs_11_deterministic",
		LeftFormation:  eleven,
		RightFormation: mirrorPoints(eleven),
		LeftAgents:     1,
		DurationTicks:  3000,
		Deterministic:  true,
	},
	"11_vs_11_stochastic": {
		Name:           "11_vs_11_stochastic",
		LeftFormation:  eleven,
		RightFormation: mirrorPoints(eleven),
		LeftAgents:     1,
		DurationTicks:  3000,
	},
	// Point-symmetric layout with agents on both sides. Mirrored runs of
	// this scenario stay in exact lockstep when both sides play the
	// mirrored policy.
	"symmetric": {
		Name:           "symmetric",
		LeftFormation:  eleven,
		RightFormation: mirrorPoints(eleven),
		LeftAgents:     1,
		RightAgents:    1,
		DurationTicks:  1000,
		Deterministic:  true,
	},
	// One attacker against an empty goal, ball at the attacker's feet.
	// Walking the controlled player right scores.
	"empty_goal": {
		Name:           "empty_goal",
		LeftFormation:  []Point{{X: 0.0, Y: 0}, {X: -0.95, Y: 0}},
		RightFormation: []Point{{X: 0.95, Y: 0.4}},
		LeftAgents:     1,
		BallStart:      Point{X: 0.01, Y: 0},
		DurationTicks:  500,
		EndOnScore:     true,
		Deterministic:  true,
	},
	"1_vs_1": {
		Name:           "1_vs_1",
		LeftFormation:  []Point{{X: -0.05, Y: 0}, {X: -0.95, Y: 0}},
		RightFormation: []Point{{X: 0.05, Y: 0}, {X: 0.95, Y: 0}},
		LeftAgents:     1,
		RightAgents:    1,
		DurationTicks:  1000,
		EndOnScore:     true,
		Deterministic:  true,
	},
}
