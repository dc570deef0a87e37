// Package countdown implements the client-side countdown state machine: a
// single-threaded, cooperative, poll-based loop that fires one-shot local UI
// transitions (warning, blink, celebration) around a target instant without
// any server round-trips.
//
// State progression:
//
//	Idle → Warned → Blinking → Celebrating → Settled
//
// Every transition is one-shot: crossing the same threshold twice, whether by
// polling or by a clock resync, never re-fires a callback. A client that was
// suspended past a threshold (backgrounded tab) fires the missed transitions
// once on its next tick.
package countdown

import (
	"context"
	"sync"
	"time"

	"github.com/mateteriya/chime"
)

// State is the client-local countdown state. It is ephemeral: rebuilt from
// the time source and the target instant on every page load, never persisted.
type State int

const (
	// Idle means the target is still more than the warning lead away.
	Idle State = iota
	// Warned means local time crossed target minus the warning lead.
	Warned
	// Blinking means local time crossed target minus the blink lead.
	Blinking
	// Celebrating means local time crossed the target.
	Celebrating
	// Settled means the celebration window has elapsed.
	Settled
)

// String returns the state name for logging.
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Warned:
		return "warned"
	case Blinking:
		return "blinking"
	case Celebrating:
		return "celebrating"
	case Settled:
		return "settled"
	default:
		return "unknown"
	}
}

const (
	warnLead        = 2 * time.Minute
	blinkLead       = 1 * time.Minute
	celebrationSpan = 5 * time.Minute
	maxBlinks       = 2
	pollInterval    = time.Second
	blinkInterval   = time.Second
)

// Machine drives the countdown transitions for a single client against a
// single target instant.
//
// Thread safety: Tick, Resync, and State are safe to call concurrently,
// though the intended use is one cooperative polling goroutine via Run.
type Machine struct {
	mu     sync.Mutex
	target time.Time
	clock  chime.Clock
	state  State

	// One-shot guards. A fired flag stays set for the lifetime of the
	// machine so a resync or a repeated tick cannot double-fire.
	warnedFired      bool
	blinkFired       bool
	celebrationFired bool
	blinksEmitted    int
	lastBlinkAt      time.Time

	onStateChange func(from, to State)
	onBlink       func(n int)
}

// MachineOption configures a Machine during construction.
type MachineOption func(*Machine)

// WithMachineClock sets the time source. Defaults to the system clock.
func WithMachineClock(clock chime.Clock) MachineOption {
	return func(m *Machine) {
		if clock != nil {
			m.clock = clock
		}
	}
}

// WithStateChange registers a callback invoked on every state transition,
// including the skipped intermediate states after a suspend/resume gap.
func WithStateChange(fn func(from, to State)) MachineOption {
	return func(m *Machine) {
		m.onStateChange = fn
	}
}

// WithBlink registers a callback for blink pulses. It fires at most twice.
func WithBlink(fn func(n int)) MachineOption {
	return func(m *Machine) {
		m.onBlink = fn
	}
}

// NewMachine creates a Machine counting down to the target instant.
func NewMachine(target time.Time, opts ...MachineOption) *Machine {
	m := &Machine{
		target: target,
		clock:  chime.SystemClock{},
		state:  Idle,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State returns the current countdown state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Run polls once per second until the context is canceled or the countdown
// settles. This method blocks and should typically be run in a goroutine.
func (m *Machine) Run(ctx context.Context) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if m.Tick() == Settled {
				return
			}
		}
	}
}

// Tick advances the machine against the current time and returns the
// resulting state. Each threshold fires exactly once no matter how many
// ticks observe it, and a single tick that lands past several thresholds
// fires each missed transition once, in order.
func (m *Machine) Tick() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.advance(m.clock.Now())
	return m.state
}

// Resync recomputes the state from scratch against the corrected time.
// Called after the time source adjusts to a server reference so a suspended
// client neither misses nor double-fires a transition: the fired guards
// survive the resync, so only genuinely uncrossed thresholds fire.
func (m *Machine) Resync() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.advance(m.clock.Now())
	return m.state
}

// advance walks the threshold ladder from the current state. Caller holds mu.
func (m *Machine) advance(now time.Time) {
	if m.state == Idle && !now.Before(m.target.Add(-warnLead)) && !m.warnedFired {
		m.warnedFired = true
		m.transition(Warned)
	}
	if m.state == Warned && !now.Before(m.target.Add(-blinkLead)) && !m.blinkFired {
		m.blinkFired = true
		m.transition(Blinking)
	}
	if m.state == Blinking && now.Before(m.target) {
		m.emitBlink(now)
	}
	if (m.state == Blinking || m.state == Warned || m.state == Idle) && !now.Before(m.target) && !m.celebrationFired {
		// Suspended clients can land here straight from Idle; walk through
		// the intermediate states so observers see the full progression.
		if m.state == Idle {
			m.warnedFired = true
			m.transition(Warned)
		}
		if m.state == Warned {
			m.blinkFired = true
			m.transition(Blinking)
		}
		m.celebrationFired = true
		m.transition(Celebrating)
	}
	if m.state == Celebrating && !now.Before(m.target.Add(celebrationSpan)) {
		m.transition(Settled)
	}
}

// emitBlink pulses the blink callback at most maxBlinks times, one second
// apart. Caller holds mu.
func (m *Machine) emitBlink(now time.Time) {
	if m.blinksEmitted >= maxBlinks {
		return
	}
	if !m.lastBlinkAt.IsZero() && now.Sub(m.lastBlinkAt) < blinkInterval {
		return
	}
	m.blinksEmitted++
	m.lastBlinkAt = now
	if m.onBlink != nil {
		m.onBlink(m.blinksEmitted)
	}
}

// transition moves to the next state and notifies the observer. Caller holds mu.
func (m *Machine) transition(to State) {
	from := m.state
	m.state = to
	if m.onStateChange != nil {
		m.onStateChange(from, to)
	}
}
