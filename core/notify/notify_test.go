package notify

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTimer struct {
	d       time.Duration
	fire    func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	t.stopped = true
	return true
}

type fakeClock struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (c *fakeClock) install(t *testing.T) {
	orig := afterFunc
	afterFunc = func(d time.Duration, f func()) timer {
		c.mu.Lock()
		defer c.mu.Unlock()
		ft := &fakeTimer{d: d, fire: f}
		c.timers = append(c.timers, ft)
		return ft
	}
	t.Cleanup(func() { afterFunc = orig })
}

func TestCenter_AutoDismiss(t *testing.T) {
	clock := &fakeClock{}
	clock.install(t)

	c := NewCenter(3 * time.Second)
	first := c.Push(Success, "User created successfully")
	c.Error("Failed to delete user")

	active := c.Active()
	require.Len(t, active, 2)
	assert.Equal(t, first.ID, active[0].ID)
	assert.Equal(t, Error, active[1].Kind)
	assert.NotEqual(t, active[0].ID, active[1].ID)
	assert.Equal(t, 3*time.Second, clock.timers[0].d)

	clock.timers[0].fire()
	active = c.Active()
	require.Len(t, active, 1)
	assert.Equal(t, "Failed to delete user", active[0].Message)

	clock.timers[1].fire()
	assert.Empty(t, c.Active())
}

func TestCenter_Dismiss(t *testing.T) {
	clock := &fakeClock{}
	clock.install(t)

	c := NewCenter(time.Second)
	n := c.Push(Info, "Loading")

	assert.True(t, c.Dismiss(n.ID))
	assert.True(t, clock.timers[0].stopped)
	assert.Empty(t, c.Active())
	assert.False(t, c.Dismiss(n.ID))

	// a timer firing after an early dismiss is harmless
	clock.timers[0].fire()
	assert.Empty(t, c.Active())
}

func TestCenter_Close(t *testing.T) {
	clock := &fakeClock{}
	clock.install(t)

	c := NewCenter(time.Second)
	c.Success("a")
	c.Success("b")
	c.Close()
	assert.Empty(t, c.Active())
	for _, tm := range clock.timers {
		assert.True(t, tm.stopped)
	}
}

func TestCenter_RealTimer(t *testing.T) {
	c := NewCenter(10 * time.Millisecond)
	c.Success("gone soon")
	assert.Eventually(t, func() bool { return len(c.Active()) == 0 }, time.Second, 5*time.Millisecond)
}

func TestWriterNotifier(t *testing.T) {
	var buf bytes.Buffer
	w := WriterNotifier{W: &buf}
	w.Success("Subject created successfully")
	w.Error("Failed to create subject")
	assert.Equal(t, "✔ Subject created successfully\n✘ Failed to create subject\n", buf.String())
}
