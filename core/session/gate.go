package session

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/NVK2907/sms-app-sub000/core"
)

var (
	// errors
	ErrInvalidToken    = errors.New("invalid or expired token")
	ErrIncompleteLogin = errors.New("login response is missing the token or the user")
)

type (
	Credentials struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	Registration struct {
		Username string `json:"username" validate:"required,min=3,alphanum_"`
		Password string `json:"password" validate:"required,min=6"`
		FullName string `json:"fullName" validate:"required"`
		Email    string `json:"email" validate:"omitempty,email"`
		Role     string `json:"role,omitempty" validate:"omitempty,oneof=admin teacher student ADMIN TEACHER STUDENT"`
	}

	// Store persists the identity and the credential token. Both are always written
	// together and cleared together.
	Store interface {
		// Load returns a nil identity and/or an empty token when nothing is stored.
		Load(ctx context.Context) (*Identity, string, error)
		Save(ctx context.Context, identity *Identity, token string) error
		Clear(ctx context.Context) error
	}

	// Authenticator is the remote side of the session.
	Authenticator interface {
		Login(ctx context.Context, creds Credentials) (token string, identity *Identity, err error)
		Register(ctx context.Context, reg Registration) (*Identity, error)
		// ValidateToken returns ErrInvalidToken when the backend rejects the token.
		ValidateToken(ctx context.Context, token string) error
	}
)

// Gate owns the current identity of one application instance.
// It starts loading; Initialize resolves it exactly once.
type Gate struct {
	store  Store
	auth   Authenticator
	logger core.Logger

	mu       sync.RWMutex
	identity *Identity
	token    string
	loading  bool
	gen      uint64 // bumped by Login/Logout so a late Initialize cannot overwrite them

	once  sync.Once
	ready chan struct{}
}

func NewGate(store Store, auth Authenticator, logger core.Logger) *Gate {
	if logger == nil {
		logger = core.NopLogger{}
	}
	return &Gate{
		store:   store,
		auth:    auth,
		logger:  logger,
		loading: true,
		ready:   make(chan struct{}),
	}
}

// Initialize reads the persisted session and confirms the token with the backend.
// Only the first call does any work; Loading stays true until it returns.
func (g *Gate) Initialize(ctx context.Context) {
	g.once.Do(func() {
		defer close(g.ready)
		g.resolve(ctx)
	})
}

func (g *Gate) resolve(ctx context.Context) {
	g.mu.RLock()
	gen := g.gen
	g.mu.RUnlock()

	identity, token, err := g.store.Load(ctx)
	if err != nil {
		g.logger.Warn("session: reading persisted session", errors.Wrap(err, "loading session store"))
		g.settle(ctx, gen, nil, "", true)
		return
	}
	if identity == nil || token == "" {
		g.settle(ctx, gen, nil, "", false)
		return
	}

	if err := g.auth.ValidateToken(ctx, token); err != nil {
		// silent forced logout
		g.logger.Debug("session: token rejected", errors.Wrap(err, "validating token"), *identity)
		g.settle(ctx, gen, nil, "", true)
		return
	}
	g.settle(ctx, gen, identity, token, false)
}

// settle ends the loading state. The resolved session (and the clearing of the store)
// only applies if no Login/Logout happened since resolution started.
func (g *Gate) settle(ctx context.Context, gen uint64, identity *Identity, token string, clear bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.loading = false
	if g.gen != gen {
		return
	}
	if clear {
		if err := g.store.Clear(ctx); err != nil {
			g.logger.Error("session: clearing persisted session", errors.Wrap(err, "clearing session store"))
		}
	}
	g.identity = identity
	g.token = token
}

// Ready is closed once Initialize has completed.
func (g *Gate) Ready() <-chan struct{} { return g.ready }

// Wait blocks until Initialize has completed or ctx is done.
func (g *Gate) Wait(ctx context.Context) error {
	select {
	case <-g.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// State returns a snapshot; the identity is a copy.
func (g *Gate) State() State {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return State{Identity: g.identity.Clone(), Loading: g.loading}
}

// Token is the bearer token attached to outgoing requests ("" when logged out).
func (g *Gate) Token() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.token
}

// Login authenticates against the backend, then persists and adopts the new session.
// On failure the persisted session is left as it was.
func (g *Gate) Login(ctx context.Context, creds Credentials) (*Identity, error) {
	creds.Username = core.CleanString(creds.Username)
	if err := core.ValidateStruct(creds); err != nil {
		return nil, err
	}

	token, identity, err := g.auth.Login(ctx, creds)
	if err != nil {
		return nil, errors.Wrap(err, "logging in")
	}
	if identity == nil || token == "" {
		return nil, ErrIncompleteLogin
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.store.Save(ctx, identity, token); err != nil {
		return nil, errors.Wrap(err, "persisting session")
	}
	g.identity = identity.Clone()
	g.token = token
	g.gen++

	g.logger.Info("session: logged in", *identity)
	return identity.Clone(), nil
}

// Logout forgets the session locally. It is safe to call when already logged out.
func (g *Gate) Logout(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.identity = nil
	g.token = ""
	g.gen++
	return errors.Wrap(g.store.Clear(ctx), "clearing session store")
}

// Register forwards a registration; it does not log the new user in.
func (g *Gate) Register(ctx context.Context, reg Registration) (*Identity, error) {
	reg.Username = core.CleanString(reg.Username)
	reg.Email = core.CleanString(reg.Email, true /* lower */)
	reg.FullName = core.CleanString(reg.FullName)
	if err := core.ValidateStruct(reg); err != nil {
		return nil, err
	}
	identity, err := g.auth.Register(ctx, reg)
	if err != nil {
		return nil, errors.Wrap(err, "registering")
	}
	return identity, nil
}
