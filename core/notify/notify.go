package notify

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/NVK2907/sms-app-sub000/core"
)

type Kind string

const (
	Success Kind = "success"
	Error   Kind = "error"
	Info    Kind = "info"
)

type Notification struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

type timer interface {
	Stop() bool
}

// mockable
var (
	afterFunc = func(d time.Duration, f func()) timer { return time.AfterFunc(d, f) }
	nowFunc   = time.Now
)

// Center holds the active notifications of one session. Each one is dismissed
// automatically once its TTL has elapsed.
type Center struct {
	ttl time.Duration

	mu     sync.Mutex
	items  []Notification
	timers map[string]timer
}

func NewCenter(ttl time.Duration) *Center {
	if ttl <= 0 {
		ttl = core.Conf.NotifyTimeout
	}
	return &Center{ttl: ttl, timers: make(map[string]timer)}
}

func (c *Center) Push(kind Kind, msg string) Notification {
	n := Notification{ID: uuid.NewString(), Kind: kind, Message: msg, CreatedAt: nowFunc()}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append(c.items, n)
	c.timers[n.ID] = afterFunc(c.ttl, func() { c.remove(n.ID, false) })
	return n
}

func (c *Center) Success(msg string) { c.Push(Success, msg) }
func (c *Center) Error(msg string)   { c.Push(Error, msg) }
func (c *Center) Info(msg string)    { c.Push(Info, msg) }

// Dismiss removes a notification before its TTL; false if it is already gone.
func (c *Center) Dismiss(id string) bool {
	return c.remove(id, true)
}

func (c *Center) remove(id string, stop bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, n := range c.items {
		if n.ID != id {
			continue
		}
		c.items = append(c.items[:i], c.items[i+1:]...)
		if t, ok := c.timers[id]; ok && stop {
			t.Stop()
		}
		delete(c.timers, id)
		return true
	}
	return false
}

// Active returns the notifications not yet dismissed, oldest first.
func (c *Center) Active() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Notification{}, c.items...)
}

// Close stops every pending timer and drops the notifications.
func (c *Center) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range c.timers {
		t.Stop()
	}
	c.items = nil
	c.timers = make(map[string]timer)
}

// WriterNotifier prints notifications as they come, eg. to a terminal.
type WriterNotifier struct {
	W io.Writer
}

func (w WriterNotifier) Success(msg string) { fmt.Fprintf(w.W, "✔ %s\n", msg) }
func (w WriterNotifier) Error(msg string)   { fmt.Fprintf(w.W, "✘ %s\n", msg) }
