package engine

// MirrorState returns the point reflection of st: teams swap roles,
// positions and directions negate, score entries swap, tiredness and ball
// height are unchanged. It is the single transform applied at the
// state-to-observation boundary for reversed environments; the physics
// never branches on orientation.
func MirrorState(st *State) *State {
	out := &State{
		Tick:        st.Tick,
		StepsLeft:   st.StepsLeft,
		Score:       [2]int{st.Score[1], st.Score[0]},
		Left:        mirrorTeam(st.Right),
		Right:       mirrorTeam(st.Left),
		KickoffTeam: mirrorTeamIdx(st.KickoffTeam),
		Rng:         st.Rng,
		Done:        st.Done,
	}
	out.Ball = Ball{
		Pos: st.Ball.Pos.Neg(),
		Z:   st.Ball.Z,
		Vel: st.Ball.Vel.Neg(),
		VZ:  st.Ball.VZ,
	}
	out.Owner = Possession{Team: mirrorTeamIdx(st.Owner.Team), Player: st.Owner.Player}
	return out
}

func mirrorTeam(t Team) Team {
	out := Team{Players: make([]Player, len(t.Players)), Active: t.Active}
	for i, p := range t.Players {
		out.Players[i] = Player{
			Pos:          p.Pos.Neg(),
			Dir:          p.Dir.Neg(),
			MoveDir:      p.MoveDir.Neg(),
			TiredFactor:  p.TiredFactor,
			Sprinting:    p.Sprinting,
			KickCooldown: p.KickCooldown,
		}
	}
	return out
}

func mirrorTeamIdx(ti int) int {
	switch ti {
	case TeamLeft:
		return TeamRight
	case TeamRight:
		return TeamLeft
	}
	return ti
}
