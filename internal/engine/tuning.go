package engine

// Tick-level tuning. Values are per-tick in normalized pitch units.
// Everything here is symmetric around the pitch center; the mirror
// invariant depends on that.
const (
	baseSpeed    = 0.012
	sprintBoost  = 0.5
	tiredPenalty = 0.5
	policySpeed  = 0.8 // uncontrolled players move at this fraction of base

	tiredSprintRate  = 0.0009
	tiredMoveRate    = 0.0004
	tiredRecoverRate = 0.0002
	tiredMax         = 0.95

	ballFriction  = 0.97
	gravity       = 0.002
	bounceDamping = 0.5
	bounceMinVZ   = 0.004

	possessRadius = 0.02
	controlHeight = 0.1
	dribbleOffset = 0.008

	shortPassSpeed = 0.018
	longPassSpeed  = 0.028
	highPassSpeed  = 0.024
	highPassLift   = 0.02
	shotSpeed      = 0.035

	kickCooldownTicks = 10
	chaseRadius       = 0.35
	shootRange        = 0.3
	homeStopDist      = 0.01
	policyNoise       = 0.1
)
