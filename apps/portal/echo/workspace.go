package echoportal

import (
	"context"
	"sync"
	"time"

	"github.com/NVK2907/sms-app-sub000/core/notify"
	"github.com/NVK2907/sms-app-sub000/core/session"
	"github.com/NVK2907/sms-app-sub000/services/api"
	"github.com/NVK2907/sms-app-sub000/storage/sessionstore"
)

// workspace is the state of one browser session.
type workspace struct {
	sid    string
	gate   *session.Gate
	client *api.Client
	notes  *notify.Center

	mu       sync.Mutex
	screen   screen // mounted screen, if any
	lastSeen time.Time
}

// mounted returns the mounted screen if it is `name`.
func (ws *workspace) mounted(name string) (screen, bool) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	if ws.screen == nil || ws.screen.name() != name {
		return nil, false
	}
	return ws.screen, true
}

// mount replaces the mounted screen.
func (ws *workspace) mount(s screen) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	ws.screen = s
}

func (ws *workspace) unmount() { ws.mount(nil) }

func (ws *workspace) touch(now time.Time) {
	ws.mu.Lock()
	ws.lastSeen = now
	ws.mu.Unlock()
}

func (ws *workspace) idleSince() time.Time {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return ws.lastSeen
}

type workspaces struct {
	opts    *Options
	auth    *api.Auth
	metrics *metrics
	now     func() time.Time

	mu    sync.Mutex
	items map[string]*workspace
	done  chan struct{}
	once  sync.Once
}

func newWorkspaces(opts *Options, m *metrics) *workspaces {
	w := &workspaces{
		opts:    opts,
		auth:    api.NewAuth(opts.API),
		metrics: m,
		now:     time.Now,
		items:   make(map[string]*workspace),
		done:    make(chan struct{}),
	}
	go w.sweepEvery(opts.IdleTimeout / 4)
	return w
}

// get returns the workspace of sid, creating it (and starting its session
// initialization) on first use.
func (w *workspaces) get(sid string) *workspace {
	w.mu.Lock()
	defer w.mu.Unlock()

	ws, ok := w.items[sid]
	if !ok {
		ws = &workspace{
			sid:   sid,
			notes: notify.NewCenter(w.opts.NotifyTTL),
		}
		ws.gate = session.NewGate(w.opts.Sessions.For(sid), w.auth, w.opts.Logger)
		ws.client = w.opts.API.WithTokens(ws.gate)
		w.items[sid] = ws
		go ws.gate.Initialize(context.Background())
	}
	ws.touch(w.now())
	return ws
}

// sweep drops the workspaces idle since before `deadline`. Their persisted sessions
// stay in the store and are picked up again on the next visit.
func (w *workspaces) sweep(deadline time.Time) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := 0
	for sid, ws := range w.items {
		if ws.idleSince().Before(deadline) {
			ws.notes.Close()
			delete(w.items, sid)
			n++
		}
	}
	return n
}

func (w *workspaces) sweepEvery(d time.Duration) {
	if d <= 0 {
		d = time.Minute
	}
	ticker := time.NewTicker(d)
	defer ticker.Stop()
	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			w.housekeep(context.Background())
		}
	}
}

// housekeep drops the idle workspaces, and the expired persisted sessions of backends
// that keep them.
func (w *workspaces) housekeep(ctx context.Context) {
	if n := w.sweep(w.now().Add(-w.opts.IdleTimeout)); n > 0 {
		w.opts.Logger.Debug("portal: dropped idle workspaces", map[string]interface{}{"count": n})
	}
	purger, ok := w.opts.Sessions.(sessionstore.Purger)
	if !ok {
		return
	}
	n, err := purger.Purge(ctx)
	if err != nil {
		w.opts.Logger.Warn("portal: purging expired sessions", err)
		return
	}
	if n > 0 {
		w.opts.Logger.Debug("portal: purged expired sessions", map[string]interface{}{"count": n})
	}
}

func (w *workspaces) close() {
	w.once.Do(func() { close(w.done) })
	w.sweep(w.now().Add(time.Hour)) // all of them
}
