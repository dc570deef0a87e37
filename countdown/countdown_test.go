package countdown

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mateteriya/chime"
)

// steppableClock is a manually advanced time source.
type steppableClock struct {
	now time.Time
}

func (c *steppableClock) Now() time.Time {
	return c.now
}

func (c *steppableClock) advance(d time.Duration) {
	c.now = c.now.Add(d)
}

var testTarget = time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)

type transition struct {
	from, to State
}

func newTestMachine(clock *steppableClock) (*Machine, *[]transition, *[]int) {
	var transitions []transition
	var blinks []int
	m := NewMachine(testTarget,
		WithMachineClock(clock),
		WithStateChange(func(from, to State) {
			transitions = append(transitions, transition{from, to})
		}),
		WithBlink(func(n int) {
			blinks = append(blinks, n)
		}),
	)
	return m, &transitions, &blinks
}

func TestMachine_FullLadder(t *testing.T) {
	clock := &steppableClock{now: testTarget.Add(-3 * time.Minute)}
	m, transitions, blinks := newTestMachine(clock)

	assert.Equal(t, Idle, m.Tick())

	// One simulated tick per second through the whole countdown.
	for clock.now.Before(testTarget.Add(6 * time.Minute)) {
		clock.advance(time.Second)
		m.Tick()
	}

	assert.Equal(t, Settled, m.State())
	assert.Equal(t, []transition{
		{Idle, Warned},
		{Warned, Blinking},
		{Blinking, Celebrating},
		{Celebrating, Settled},
	}, *transitions)
	assert.Equal(t, []int{1, 2}, *blinks)
}

func TestMachine_WarnedFiresExactlyOnce(t *testing.T) {
	clock := &steppableClock{now: testTarget.Add(-90 * time.Second)}
	m, transitions, _ := newTestMachine(clock)

	for i := 0; i < 30; i++ {
		m.Tick()
		clock.advance(time.Second)
	}

	assert.Equal(t, Warned, m.State())
	assert.Equal(t, []transition{{Idle, Warned}}, *transitions)
}

func TestMachine_SuspendedClientWalksSkippedStates(t *testing.T) {
	clock := &steppableClock{now: testTarget.Add(-10 * time.Minute)}
	m, transitions, blinks := newTestMachine(clock)

	assert.Equal(t, Idle, m.Tick())

	// Backgrounded tab: the next tick lands five seconds past the target.
	clock.now = testTarget.Add(5 * time.Second)
	assert.Equal(t, Celebrating, m.Tick())

	assert.Equal(t, []transition{
		{Idle, Warned},
		{Warned, Blinking},
		{Blinking, Celebrating},
	}, *transitions)
	assert.Empty(t, *blinks, "blinks never fire after the target")
}

func TestMachine_CelebrationFiresExactlyOnce(t *testing.T) {
	clock := &steppableClock{now: testTarget.Add(-10 * time.Second)}
	m, transitions, _ := newTestMachine(clock)
	m.Tick()

	clock.now = testTarget.Add(5 * time.Second)
	for i := 0; i < 10; i++ {
		m.Tick()
		clock.advance(time.Second)
	}

	celebrations := 0
	for _, tr := range *transitions {
		if tr.to == Celebrating {
			celebrations++
		}
	}
	assert.Equal(t, 1, celebrations)
	assert.Equal(t, Celebrating, m.State())
}

func TestMachine_AtMostTwoBlinks(t *testing.T) {
	clock := &steppableClock{now: testTarget.Add(-blinkLead)}
	m, _, blinks := newTestMachine(clock)

	// Poll far more often than the blink interval.
	for clock.now.Before(testTarget) {
		m.Tick()
		clock.advance(100 * time.Millisecond)
	}

	assert.Equal(t, []int{1, 2}, *blinks)
}

func TestMachine_ResyncDoesNotDoubleFire(t *testing.T) {
	clock := &steppableClock{now: testTarget.Add(-90 * time.Second)}
	m, transitions, _ := newTestMachine(clock)

	m.Tick()
	require.Equal(t, Warned, m.State())

	// A clock correction lands slightly earlier but still past the warning
	// threshold; the fired guard holds.
	clock.now = testTarget.Add(-100 * time.Second)
	m.Resync()

	assert.Equal(t, []transition{{Idle, Warned}}, *transitions)
	assert.Equal(t, Warned, m.State())
}

func TestMachine_ResyncFiresNewlyCrossedThreshold(t *testing.T) {
	clock := &steppableClock{now: testTarget.Add(-5 * time.Minute)}
	m, transitions, _ := newTestMachine(clock)

	assert.Equal(t, Idle, m.Tick())

	// The server reference reveals the local clock was two minutes slow.
	clock.now = testTarget.Add(-90 * time.Second)
	assert.Equal(t, Warned, m.Resync())

	assert.Equal(t, []transition{{Idle, Warned}}, *transitions)
}

func TestMachine_SettlesAfterCelebrationSpan(t *testing.T) {
	clock := &steppableClock{now: testTarget}
	m, _, _ := newTestMachine(clock)

	assert.Equal(t, Celebrating, m.Tick())

	clock.now = testTarget.Add(celebrationSpan - time.Second)
	assert.Equal(t, Celebrating, m.Tick())

	clock.now = testTarget.Add(celebrationSpan)
	assert.Equal(t, Settled, m.Tick())
}

func TestMachine_StateStrings(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "warned", Warned.String())
	assert.Equal(t, "blinking", Blinking.String())
	assert.Equal(t, "celebrating", Celebrating.String())
	assert.Equal(t, "settled", Settled.String())
	assert.Equal(t, "unknown", State(99).String())
}

func TestSyncedClock_Sync(t *testing.T) {
	clock := &SyncedClock{}

	// Pretend the server is running one hour ahead of local time.
	offset := clock.Sync(time.Now().Add(time.Hour))

	assert.InDelta(t, time.Hour, offset, float64(time.Second))
	assert.InDelta(t, time.Hour, clock.Offset(), float64(time.Second))
	assert.InDelta(t, time.Hour, time.Until(clock.Now()), float64(time.Second))

	// A second sync against an honest server cancels the correction.
	offset = clock.Sync(time.Now())
	assert.InDelta(t, 0, offset, float64(time.Second))
}

var _ chime.Clock = (*SyncedClock)(nil)
