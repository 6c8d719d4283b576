package engine

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"
	"math"
)

// Digest hashes the state canonically: fixed field order, little-endian
// integer and float-bit encoding, no map iteration. Two states with equal
// digests advance identically. recordLeft/recordRight select which team
// halves enter the hash; trackers use that to scope comparisons.
func Digest(st *State, recordLeft, recordRight bool) string {
	h := sha256.New()
	var tmp [8]byte

	digestU64(h, &tmp, uint64(st.Tick))
	digestU64(h, &tmp, uint64(st.StepsLeft))
	digestU64(h, &tmp, uint64(st.Score[0]))
	digestU64(h, &tmp, uint64(st.Score[1]))

	digestF64(h, &tmp, st.Ball.Pos.X)
	digestF64(h, &tmp, st.Ball.Pos.Y)
	digestF64(h, &tmp, st.Ball.Z)
	digestF64(h, &tmp, st.Ball.Vel.X)
	digestF64(h, &tmp, st.Ball.Vel.Y)
	digestF64(h, &tmp, st.Ball.VZ)

	digestU64(h, &tmp, uint64(int64(st.Owner.Team)))
	digestU64(h, &tmp, uint64(st.Owner.Player))
	digestU64(h, &tmp, uint64(int64(st.KickoffTeam)))

	digestU64(h, &tmp, st.Rng.State)
	digestU64(h, &tmp, st.Rng.Cursor)
	h.Write([]byte{boolByte(st.Done)})

	if recordLeft {
		digestTeam(h, &tmp, st.Left)
	}
	if recordRight {
		digestTeam(h, &tmp, st.Right)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func digestTeam(h hash.Hash, tmp *[8]byte, t Team) {
	digestU64(h, tmp, uint64(len(t.Players)))
	digestU64(h, tmp, uint64(t.Active))
	for _, p := range t.Players {
		digestF64(h, tmp, p.Pos.X)
		digestF64(h, tmp, p.Pos.Y)
		digestF64(h, tmp, p.Dir.X)
		digestF64(h, tmp, p.Dir.Y)
		digestF64(h, tmp, p.MoveDir.X)
		digestF64(h, tmp, p.MoveDir.Y)
		digestF64(h, tmp, p.TiredFactor)
		h.Write([]byte{boolByte(p.Sprinting)})
		digestU64(h, tmp, uint64(p.KickCooldown))
	}
}

func digestU64(h hash.Hash, tmp *[8]byte, v uint64) {
	binary.LittleEndian.PutUint64(tmp[:], v)
	h.Write(tmp[:])
}

func digestF64(h hash.Hash, tmp *[8]byte, v float64) {
	// Negative zero hashes as zero. Mirrored construction and gob decoding
	// both flip the sign of zero coordinates without changing behavior;
	// the digest must not tell such states apart.
	if v == 0 {
		v = 0
	}
	digestU64(h, tmp, math.Float64bits(v))
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
