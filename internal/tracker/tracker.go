// Package tracker records per-tick state digests under session tags and
// compares sessions tick-for-tick. The intended use is lockstep
// verification: drive two environments through one shared tracker,
// alternating sessions, and any divergence is caught at the tick it
// happens.
package tracker

import (
	"sort"
	"sync"

	"pitchcraft.ai/internal/engine"
)

// Mode is the tracker's state-machine state. Transitions happen only via
// Attach/Detach/SetSession/Disable, never by ad hoc field mutation.
type Mode int

const (
	Detached Mode = iota
	Recording
	Disabled
)

func (m Mode) String() string {
	switch m {
	case Detached:
		return "detached"
	case Recording:
		return "recording"
	case Disabled:
		return "disabled"
	}
	return "unknown"
}

// Entry is one recorded tick. Pos is the 1-based record ordinal within
// its session; cross-session comparison aligns on Pos, not Tick, so a
// session started from a restored snapshot still lines up.
type Entry struct {
	Pos    int
	Tick   int
	Digest string
}

const defaultMaxEntries = 2000000000

// Tracker is safe for use from multiple environments on separate
// goroutines; recording itself is synchronous within the caller's step.
type Tracker struct {
	mu sync.Mutex

	attached map[string]struct{}
	session  int
	haveSess bool
	disabled bool

	startPos    int
	maxEntries  int
	recordLeft  bool
	recordRight bool

	sessions map[int][]Entry

	failed      bool
	failPos     int
	failSession [2]int
}

func New() *Tracker {
	return &Tracker{
		attached:    map[string]struct{}{},
		sessions:    map[int][]Entry{},
		maxEntries:  defaultMaxEntries,
		recordLeft:  true,
		recordRight: true,
	}
}

// Attach registers an environment (by instance id) as a record source.
// A tracker may serve several environments at once; that is the point of
// the cross-instance replay pattern.
func (t *Tracker) Attach(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.attached[id] = struct{}{}
}

func (t *Tracker) Detach(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.attached, id)
}

// Mode reports the current state-machine state.
func (t *Tracker) Mode() Mode {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.attached) == 0 {
		return Detached
	}
	if !t.haveSess || t.disabled {
		return Disabled
	}
	return Recording
}

// Reset drops all session histories, the failure latch and the active
// session. Attachment is untouched.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sessions = map[int][]Entry{}
	t.haveSess = false
	t.disabled = false
	t.failed = false
	t.failPos = 0
}

// Setup configures the comparison window and which team halves enter the
// digest.
func (t *Tracker) Setup(startPos, maxEntries int, recordLeft, recordRight bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.startPos = startPos
	if maxEntries <= 0 {
		maxEntries = defaultMaxEntries
	}
	t.maxEntries = maxEntries
	t.recordLeft = recordLeft
	t.recordRight = recordRight
}

// SetSession routes subsequent records to session id. Switching is the
// only way sessions alternate; records never interleave within a tick.
func (t *Tracker) SetSession(id int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.session = id
	t.haveSess = true
	t.disabled = false
}

// Disable suspends recording until the next SetSession.
func (t *Tracker) Disable() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.disabled = true
}

// Record appends the state digest to the active session and immediately
// cross-checks the same position in every other session inside the
// window. Called synchronously from the attached environment's step.
func (t *Tracker) Record(tick int, st *engine.State) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.haveSess || t.disabled {
		return
	}
	digest := engine.Digest(st, t.recordLeft, t.recordRight)
	pos := len(t.sessions[t.session]) + 1
	t.sessions[t.session] = append(t.sessions[t.session], Entry{Pos: pos, Tick: tick, Digest: digest})

	if t.failed || pos < t.startPos || pos >= t.startPos+t.maxEntries {
		return
	}
	for _, id := range t.sessionIDsLocked() {
		if id == t.session {
			continue
		}
		other := t.sessions[id]
		if len(other) < pos {
			continue
		}
		if other[pos-1].Digest != digest {
			t.failed = true
			t.failPos = pos
			t.failSession = [2]int{id, t.session}
			return
		}
	}
}

// Failure reports the first cross-session mismatch, if any.
func (t *Tracker) Failure() (pos int, sessions [2]int, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.failPos, t.failSession, t.failed
}

// Compare walks sessions a and b over their common prefix and returns the
// first mismatching position, or ok=false when they agree.
func (t *Tracker) Compare(a, b int) (pos int, mismatch bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	sa, sb := t.sessions[a], t.sessions[b]
	n := len(sa)
	if len(sb) < n {
		n = len(sb)
	}
	for i := 0; i < n; i++ {
		if sa[i].Digest != sb[i].Digest {
			return i + 1, true
		}
	}
	return 0, false
}

// SessionLen returns the number of records in a session.
func (t *Tracker) SessionLen(id int) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.sessions[id])
}

// Session returns a copy of a session's entries.
func (t *Tracker) Session(id int) []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Entry(nil), t.sessions[id]...)
}

func (t *Tracker) sessionIDsLocked() []int {
	ids := make([]int, 0, len(t.sessions))
	for id := range t.sessions {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
