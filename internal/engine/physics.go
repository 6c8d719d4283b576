package engine

import (
	"fmt"
	"math"

	"pitchcraft.ai/internal/action"
)

// Advance runs one tick in place. leftActs/rightActs are canonical codes
// for the controlled players of each team, in engine orientation. Returns
// done once the episode terminated; advancing a done state is a fault.
//
// Phase order is fixed and, together with the configurable team order, is
// what keeps reversed runs exact point reflections of normal ones: every
// per-team phase iterates teams in e.order, and every cross-team decision
// is either symmetric or resolved by an RNG draw over candidates listed in
// that same order.
func (e *Engine) Advance(st *State, leftActs, rightActs []action.Code) (bool, error) {
	if st == nil {
		return false, fmt.Errorf("engine: advance on nil state")
	}
	if st.Done {
		return true, faultf(st.Tick, "advance on finished episode")
	}
	if st.Rng.Exhausted() {
		return false, faultf(st.Tick, "rng stream exhausted (cursor %d)", st.Rng.Cursor)
	}
	la, ra := e.Agents()
	if len(leftActs) != la || len(rightActs) != ra {
		return false, faultf(st.Tick, "action count mismatch: got %d/%d want %d/%d",
			len(leftActs), len(rightActs), la, ra)
	}
	prevTick := st.Tick
	prevScore := st.Score

	acts := [2][]action.Code{TeamLeft: leftActs, TeamRight: rightActs}
	for _, ti := range e.order {
		e.applyActions(st, ti, acts[ti])
	}
	for _, ti := range e.order {
		e.movePlayers(st, ti)
	}
	e.moveBall(st)
	scored := e.handleGoals(st)
	if !scored {
		e.contendPossession(st)
	}
	for _, ti := range e.order {
		e.updateActive(st, ti)
		e.updateFatigue(st, ti)
	}

	st.Tick++
	st.StepsLeft--
	if st.StepsLeft <= 0 {
		st.Done = true
	}

	if st.Tick != prevTick+1 {
		return st.Done, faultf(st.Tick, "tick did not advance by one")
	}
	if st.Score[0] < prevScore[0] || st.Score[1] < prevScore[1] {
		return st.Done, faultf(st.Tick, "score decreased: %v -> %v", prevScore, st.Score)
	}
	if err := e.checkBounds(st); err != nil {
		return st.Done, err
	}
	return st.Done, nil
}

// applyActions consumes the controlled players' codes and runs the
// built-in policy for the rest of the team.
func (e *Engine) applyActions(st *State, ti int, acts []action.Code) {
	t := st.team(ti)
	for i, code := range acts {
		p := &t.Players[i]
		if dx, dy, ok := code.Delta(); ok {
			p.MoveDir = Vec2{dx, dy}
			continue
		}
		switch code {
		case action.Idle:
		case action.Sprint:
			p.Sprinting = true
		case action.ReleaseSprint:
			p.Sprinting = false
		case action.ReleaseDirection:
			p.MoveDir = Vec2{}
		case action.ShortPass:
			e.kick(st, ti, i, facingOr(p, e.goalDir(ti)).Scale(shortPassSpeed), 0)
		case action.LongPass:
			e.kick(st, ti, i, facingOr(p, e.goalDir(ti)).Scale(longPassSpeed), 0)
		case action.HighPass:
			e.kick(st, ti, i, facingOr(p, e.goalDir(ti)).Scale(highPassSpeed), highPassLift)
		case action.Shot:
			e.kick(st, ti, i, e.aimAtGoal(st, ti).Scale(shotSpeed), 0)
		}
	}
	e.runPolicy(st, ti, len(acts))
}

// runPolicy steers the uncontrolled players: the team's ball-nearest
// player chases within a radius, an uncontrolled ball owner drives at the
// opposing goal and shoots in range, everyone else returns to formation.
func (e *Engine) runPolicy(st *State, ti, fromIdx int) {
	t := st.team(ti)
	chaser := e.closestToBall(st, ti)
	for i := fromIdx; i < len(t.Players); i++ {
		p := &t.Players[i]
		switch {
		case st.Owner.Team == ti && st.Owner.Player == i:
			p.MoveDir = e.goalDir(ti)
			if e.goalDistance(st, ti, p.Pos) < shootRange {
				e.kick(st, ti, i, e.aimAtGoal(st, ti).Scale(shotSpeed), 0)
			}
		case i == chaser && st.Ball.Pos.Sub(p.Pos).Len() < chaseRadius:
			p.MoveDir = st.Ball.Pos.Sub(p.Pos)
		default:
			home := e.homePos(ti, i)
			to := home.Sub(p.Pos)
			if to.Len() < homeStopDist {
				p.MoveDir = Vec2{}
			} else {
				p.MoveDir = to
			}
		}
		// Noise is a small rotation of the commanded direction: rotation
		// commutes with the mirror reflection, additive jitter would not.
		if !e.cfg.Deterministic && !p.MoveDir.IsZero() {
			theta := (st.Rng.Float64() - 0.5) * policyNoise
			p.MoveDir = rotate(p.MoveDir.Unit(), theta)
		}
	}
}

func (e *Engine) kick(st *State, ti, pi int, vel Vec2, lift float64) {
	if st.Owner.Team != ti || st.Owner.Player != pi {
		return
	}
	st.Ball.Vel = vel
	st.Ball.VZ = lift
	st.Owner = Possession{Team: NoTeam}
	st.team(ti).Players[pi].KickCooldown = kickCooldownTicks
}

func facingOr(p *Player, fallback Vec2) Vec2 {
	if p.MoveDir.IsZero() {
		return fallback
	}
	return p.MoveDir.Unit()
}

// goalDir is the unit direction toward the goal a team attacks.
func (e *Engine) goalDir(ti int) Vec2 {
	if ti == TeamLeft {
		return Vec2{1, 0}
	}
	return Vec2{-1, 0}
}

func (e *Engine) goalCenter(ti int) Vec2 {
	if ti == TeamLeft {
		return Vec2{PitchHalfX, 0}
	}
	return Vec2{-PitchHalfX, 0}
}

func (e *Engine) goalDistance(st *State, ti int, from Vec2) float64 {
	return e.goalCenter(ti).Sub(from).Len()
}

func (e *Engine) aimAtGoal(st *State, ti int) Vec2 {
	aim := e.goalCenter(ti).Sub(st.Ball.Pos).Unit()
	if aim.IsZero() {
		return e.goalDir(ti)
	}
	return aim
}

func (e *Engine) movePlayers(st *State, ti int) {
	t := st.team(ti)
	for i := range t.Players {
		p := &t.Players[i]
		dir := p.MoveDir.Unit()
		if dir.IsZero() {
			p.Dir = Vec2{}
			continue
		}
		speed := baseSpeed
		if i >= e.teamAgents(ti) {
			speed *= policySpeed
		}
		if p.Sprinting {
			speed *= 1 + sprintBoost
		}
		speed *= 1 - tiredPenalty*p.TiredFactor
		next := p.Pos.Add(dir.Scale(speed))
		next.X = clamp(next.X, -PitchHalfX, PitchHalfX)
		next.Y = clamp(next.Y, -PitchHalfY, PitchHalfY)
		p.Dir = next.Sub(p.Pos)
		p.Pos = next
	}
}

func (e *Engine) teamAgents(ti int) int {
	la, ra := e.Agents()
	if ti == TeamLeft {
		return la
	}
	return ra
}

func (e *Engine) moveBall(st *State) {
	b := &st.Ball
	if st.Owner.Team != NoTeam {
		p := st.team(st.Owner.Team).Players[st.Owner.Player]
		b.Pos = p.Pos.Add(p.Dir.Unit().Scale(dribbleOffset))
		b.Vel = p.Dir
		b.Z, b.VZ = 0, 0
		return
	}
	b.Pos = b.Pos.Add(b.Vel)
	b.Vel = b.Vel.Scale(ballFriction)
	if b.Z > 0 || b.VZ != 0 {
		b.Z += b.VZ
		b.VZ -= gravity
		if b.Z <= 0 {
			b.Z = 0
			if b.VZ < -bounceMinVZ {
				b.VZ = -b.VZ * bounceDamping
			} else {
				b.VZ = 0
			}
		}
	}
	// Side lines bounce; goal lines bounce outside the goal mouth (the
	// mouth itself is handled by handleGoals).
	if b.Pos.Y > PitchHalfY {
		b.Pos.Y = 2*PitchHalfY - b.Pos.Y
		b.Vel.Y = -b.Vel.Y
	} else if b.Pos.Y < -PitchHalfY {
		b.Pos.Y = -2*PitchHalfY - b.Pos.Y
		b.Vel.Y = -b.Vel.Y
	}
	inMouth := b.Pos.Y >= -GoalHalfWidth && b.Pos.Y <= GoalHalfWidth
	if !inMouth {
		if b.Pos.X > PitchHalfX {
			b.Pos.X = 2*PitchHalfX - b.Pos.X
			b.Vel.X = -b.Vel.X
		} else if b.Pos.X < -PitchHalfX {
			b.Pos.X = -2*PitchHalfX - b.Pos.X
			b.Vel.X = -b.Vel.X
		}
	}
}

// handleGoals scores a crossed goal line and resets to kickoff. Returns
// true when a goal happened this tick.
func (e *Engine) handleGoals(st *State) bool {
	b := st.Ball
	inMouth := b.Pos.Y >= -GoalHalfWidth && b.Pos.Y <= GoalHalfWidth
	if !inMouth {
		return false
	}
	var scorer int
	switch {
	case b.Pos.X > PitchHalfX:
		scorer = TeamLeft
	case b.Pos.X < -PitchHalfX:
		scorer = TeamRight
	default:
		return false
	}
	st.Score[scorer]++
	if e.cfg.EndOnScore {
		// The scoring frame is the terminal observation; no kickoff.
		st.Done = true
		return true
	}
	e.resetKickoff(st, 1-scorer)
	return true
}

// resetKickoff returns everyone to kickoff positions and hands the ball to
// kickTeam. Fatigue persists across kickoffs.
func (e *Engine) resetKickoff(st *State, kickTeam int) {
	starts := [2][]Vec2{TeamLeft: e.leftStart, TeamRight: e.rightStart}
	for _, ti := range e.order {
		t := st.team(ti)
		for i := range t.Players {
			p := &t.Players[i]
			p.Pos = starts[ti][i]
			p.Dir = Vec2{}
			p.MoveDir = Vec2{}
			p.KickCooldown = 0
		}
	}
	st.Ball = Ball{}
	st.Owner = Possession{Team: kickTeam, Player: e.closestTo(st, kickTeam, Vec2{})}
}

// contendPossession lets a loose ball be claimed by the strictly nearest
// eligible player. Exact inter-team distance ties are settled by one RNG
// draw over the tied candidates, listed in team processing order, which
// keeps the decision mirror-equivariant.
func (e *Engine) contendPossession(st *State) {
	if st.Owner.Team != NoTeam {
		return
	}
	if st.Ball.Z >= controlHeight {
		return
	}
	type cand struct {
		team, player int
		dist         float64
	}
	var best []cand
	for _, ti := range e.order {
		t := st.team(ti)
		for i := range t.Players {
			p := &t.Players[i]
			if p.KickCooldown > 0 {
				continue
			}
			d := st.Ball.Pos.Sub(p.Pos).Len()
			if d > possessRadius {
				continue
			}
			switch {
			case len(best) == 0 || d < best[0].dist:
				best = append(best[:0], cand{ti, i, d})
			case d == best[0].dist:
				best = append(best, cand{ti, i, d})
			}
		}
	}
	if len(best) == 0 {
		return
	}
	pick := best[0]
	if len(best) > 1 {
		pick = best[int(st.Rng.Float64()*float64(len(best)))]
	}
	st.Owner = Possession{Team: pick.team, Player: pick.player}
}

func (e *Engine) closestToBall(st *State, ti int) int {
	return e.closestTo(st, ti, st.Ball.Pos)
}

func (e *Engine) closestTo(st *State, ti int, target Vec2) int {
	t := st.team(ti)
	bestIdx, bestDist := 0, target.Sub(t.Players[0].Pos).Len()
	for i := 1; i < len(t.Players); i++ {
		if d := target.Sub(t.Players[i].Pos).Len(); d < bestDist {
			bestIdx, bestDist = i, d
		}
	}
	return bestIdx
}

func (e *Engine) updateActive(st *State, ti int) {
	st.team(ti).Active = e.closestToBall(st, ti)
}

func (e *Engine) updateFatigue(st *State, ti int) {
	t := st.team(ti)
	for i := range t.Players {
		p := &t.Players[i]
		moving := !p.Dir.IsZero()
		switch {
		case moving && p.Sprinting:
			p.TiredFactor += tiredSprintRate
		case moving:
			p.TiredFactor += tiredMoveRate
		default:
			p.TiredFactor -= tiredRecoverRate
		}
		p.TiredFactor = clamp(p.TiredFactor, 0, tiredMax)
		if p.KickCooldown > 0 {
			p.KickCooldown--
		}
	}
}

func (e *Engine) homePos(ti, i int) Vec2 {
	if ti == TeamLeft {
		return e.leftStart[i]
	}
	return e.rightStart[i]
}

func (e *Engine) checkBounds(st *State) error {
	if !inBounds(st.Ball.Pos) {
		return faultf(st.Tick, "ball out of bounds at (%v, %v)", st.Ball.Pos.X, st.Ball.Pos.Y)
	}
	for _, ti := range e.order {
		t := st.team(ti)
		for i := range t.Players {
			if !inBounds(t.Players[i].Pos) {
				return faultf(st.Tick, "player %d/%d out of bounds at (%v, %v)",
					ti, i, t.Players[i].Pos.X, t.Players[i].Pos.Y)
			}
		}
	}
	return nil
}

func rotate(v Vec2, theta float64) Vec2 {
	sin, cos := math.Sin(theta), math.Cos(theta)
	return Vec2{v.X*cos - v.Y*sin, v.X*sin + v.Y*cos}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
