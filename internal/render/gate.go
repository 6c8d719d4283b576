// Package render manages the process-wide rendering resource. Only the
// lease lifecycle lives here: at most one environment may render at a
// time, and acquisition fails fast instead of queueing. Pixel production
// is out of scope.
package render

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// ErrResourceBusy is returned by Acquire while another lease is
// outstanding. Recoverable: close the competing instance and retry.
var ErrResourceBusy = errors.New("render: resource busy, another environment holds the lease")

// Gate guards one rendering resource. Environments get a Gate injected
// rather than reaching into process globals; production code passes
// Default(), tests construct their own.
type Gate struct {
	mu     sync.Mutex
	holder *Lease
}

// Lease is the singleton token granting rendering ownership. Release is
// idempotent-safe so error-path cleanup never faults.
type Lease struct {
	gate  *Gate
	token uuid.UUID
	owner string

	mu       sync.Mutex
	released bool
}

func (l *Lease) Token() string { return l.token.String() }
func (l *Lease) Owner() string { return l.owner }

func NewGate() *Gate { return &Gate{} }

var defaultGate = NewGate()

// Default returns the process-wide gate shared by all environments.
func Default() *Gate { return defaultGate }

// Acquire takes the lease or fails immediately with ErrResourceBusy.
// There is no waiting and no reentrancy: a second acquire from the same
// owner is still busy.
func (g *Gate) Acquire(owner string) (*Lease, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.holder != nil {
		return nil, fmt.Errorf("acquire for %q: %w (held by %q)", owner, ErrResourceBusy, g.holder.owner)
	}
	l := &Lease{gate: g, token: uuid.New(), owner: owner}
	g.holder = l
	return l, nil
}

// Release frees the lease. Releasing nil, an already-released lease, or a
// lease the gate no longer tracks is a no-op.
func (g *Gate) Release(l *Lease) {
	if l == nil {
		return
	}
	l.mu.Lock()
	if l.released {
		l.mu.Unlock()
		return
	}
	l.released = true
	l.mu.Unlock()

	g.mu.Lock()
	if g.holder == l {
		g.holder = nil
	}
	g.mu.Unlock()
}

// Release frees the lease on its own gate; same idempotency as
// Gate.Release.
func (l *Lease) Release() {
	if l == nil {
		return
	}
	l.gate.Release(l)
}

// Held reports whether any lease is outstanding.
func (g *Gate) Held() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.holder != nil
}
