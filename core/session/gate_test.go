package session

import (
	"context"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NVK2907/sms-app-sub000/core"
)

type memStore struct {
	mu       sync.Mutex
	identity *Identity
	token    string
	loadErr  error
	saveErr  error
	clears   int
}

func (s *memStore) Load(context.Context) (*Identity, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity.Clone(), s.token, s.loadErr
}

func (s *memStore) Save(_ context.Context, identity *Identity, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.identity, s.token = identity.Clone(), token
	return nil
}

func (s *memStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identity, s.token = nil, ""
	s.clears++
	return nil
}

type fakeAuth struct {
	validateErr   error
	validateCalls int
	validateHook  func()

	loginToken    string
	loginIdentity *Identity
	loginErr      error
	loginCalls    int

	registerErr error
	registered  []Registration
}

func (a *fakeAuth) Login(_ context.Context, _ Credentials) (string, *Identity, error) {
	a.loginCalls++
	return a.loginToken, a.loginIdentity, a.loginErr
}

func (a *fakeAuth) Register(_ context.Context, reg Registration) (*Identity, error) {
	if a.registerErr != nil {
		return nil, a.registerErr
	}
	a.registered = append(a.registered, reg)
	return &Identity{ID: 99, Username: reg.Username, FullName: reg.FullName}, nil
}

func (a *fakeAuth) ValidateToken(context.Context, string) error {
	a.validateCalls++
	if a.validateHook != nil {
		a.validateHook()
	}
	return a.validateErr
}

func adminIdentity() *Identity {
	return &Identity{ID: 1, Username: "admin", Roles: []RoleDescriptor{{RoleName: "ADMIN"}}}
}

func TestGate_Initialize(t *testing.T) {
	tests := []struct {
		name          string
		identity      *Identity
		token         string
		loadErr       error
		validateErr   error
		wantAuthed    bool
		wantValidates int
		wantCleared   bool
	}{
		{name: "valid token", identity: adminIdentity(), token: "tok", wantAuthed: true, wantValidates: 1},
		{name: "rejected token", identity: adminIdentity(), token: "tok", validateErr: ErrInvalidToken, wantValidates: 1, wantCleared: true},
		{name: "validation errors out", identity: adminIdentity(), token: "tok", validateErr: errors.New("connection refused"), wantValidates: 1, wantCleared: true},
		{name: "no token", identity: adminIdentity()},
		{name: "no identity", token: "tok"},
		{name: "nothing stored"},
		{name: "unreadable store", loadErr: errors.New("corrupt file"), wantCleared: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &memStore{identity: tt.identity, token: tt.token, loadErr: tt.loadErr}
			auth := &fakeAuth{validateErr: tt.validateErr}
			gate := NewGate(store, auth, nil)

			require.True(t, gate.State().Loading)
			gate.Initialize(context.Background())

			st := gate.State()
			assert.False(t, st.Loading)
			assert.Equal(t, tt.wantAuthed, st.Authenticated())
			assert.Equal(t, tt.wantValidates, auth.validateCalls)
			assert.Equal(t, tt.wantCleared, store.clears > 0)
			if tt.wantAuthed {
				assert.Equal(t, "tok", gate.Token())
				assert.Equal(t, RoleAdmin, st.Role())
			} else {
				assert.Empty(t, gate.Token())
			}

			select {
			case <-gate.Ready():
			default:
				t.Fatal("Ready() not closed after Initialize")
			}
		})
	}
}

func TestGate_InitializeRunsOnce(t *testing.T) {
	store := &memStore{identity: adminIdentity(), token: "tok"}
	auth := &fakeAuth{}
	gate := NewGate(store, auth, nil)

	gate.Initialize(context.Background())
	gate.Initialize(context.Background())
	assert.Equal(t, 1, auth.validateCalls)
}

func TestGate_LoadingUntilResolved(t *testing.T) {
	store := &memStore{identity: adminIdentity(), token: "tok"}
	gate := NewGate(store, nil, nil)
	auth := &fakeAuth{}
	auth.validateHook = func() {
		// mid-resolution: still loading, nothing decided
		st := gate.State()
		assert.True(t, st.Loading)
		assert.Equal(t, Wait, Authorize(st, Route{Path: "/admin/users", RequiredRole: RoleAdmin}, "/admin/users").Verdict)
		assert.Equal(t, Wait, DispatchRoot(st).Verdict)
	}
	gate.auth = auth

	gate.Initialize(context.Background())
	assert.False(t, gate.State().Loading)
}

func TestGate_LoginDuringInitializeWins(t *testing.T) {
	store := &memStore{identity: adminIdentity(), token: "stale"}
	gate := NewGate(store, nil, nil)
	teacher := &Identity{ID: 2, Username: "teacher", Roles: []RoleDescriptor{{RoleName: "teacher"}}}
	auth := &fakeAuth{validateErr: ErrInvalidToken, loginToken: "fresh", loginIdentity: teacher}
	auth.validateHook = func() {
		_, err := gate.Login(context.Background(), Credentials{Username: "teacher", Password: "pwd"})
		require.NoError(t, err)
	}
	gate.auth = auth

	gate.Initialize(context.Background())
	st := gate.State()
	require.True(t, st.Authenticated())
	assert.Equal(t, RoleTeacher, st.Role())
	assert.Equal(t, "fresh", gate.Token())
	assert.Equal(t, "fresh", store.token, "the fresh login must stay persisted")
}

func TestGate_Login(t *testing.T) {
	t.Run("success persists token and identity", func(t *testing.T) {
		store := &memStore{}
		auth := &fakeAuth{loginToken: "tok", loginIdentity: adminIdentity()}
		gate := NewGate(store, auth, nil)
		gate.Initialize(context.Background())

		usr, err := gate.Login(context.Background(), Credentials{Username: " admin ", Password: "secret"})
		require.NoError(t, err)
		assert.Equal(t, "admin", usr.Username)
		assert.True(t, gate.State().Authenticated())
		assert.Equal(t, "tok", gate.Token())
		assert.Equal(t, "tok", store.token)
		assert.Equal(t, int64(1), store.identity.ID)
	})

	t.Run("backend failure leaves persisted state alone", func(t *testing.T) {
		store := &memStore{identity: adminIdentity(), token: "old"}
		auth := &fakeAuth{loginErr: errors.New("bad credentials")}
		gate := NewGate(store, auth, nil)

		_, err := gate.Login(context.Background(), Credentials{Username: "admin", Password: "nope"})
		require.Error(t, err)
		assert.Equal(t, "old", store.token)
		assert.Zero(t, store.clears)
	})

	t.Run("missing credentials never reach the backend", func(t *testing.T) {
		auth := &fakeAuth{}
		gate := NewGate(&memStore{}, auth, nil)

		_, err := gate.Login(context.Background(), Credentials{Username: "  "})
		var verr *core.ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Len(t, verr.Fields, 2)
		assert.Zero(t, auth.loginCalls)
	})

	t.Run("incomplete response", func(t *testing.T) {
		auth := &fakeAuth{loginToken: "tok"}
		gate := NewGate(&memStore{}, auth, nil)

		_, err := gate.Login(context.Background(), Credentials{Username: "admin", Password: "pwd"})
		assert.Equal(t, ErrIncompleteLogin, err)
		assert.False(t, gate.State().Authenticated())
	})

	t.Run("store failure keeps session logged out", func(t *testing.T) {
		store := &memStore{saveErr: errors.New("disk full")}
		auth := &fakeAuth{loginToken: "tok", loginIdentity: adminIdentity()}
		gate := NewGate(store, auth, nil)

		_, err := gate.Login(context.Background(), Credentials{Username: "admin", Password: "pwd"})
		require.Error(t, err)
		assert.False(t, gate.State().Authenticated())
		assert.Empty(t, gate.Token())
	})
}

func TestGate_LogoutIdempotent(t *testing.T) {
	store := &memStore{identity: adminIdentity(), token: "tok"}
	gate := NewGate(store, &fakeAuth{}, nil)
	gate.Initialize(context.Background())
	require.True(t, gate.State().Authenticated())

	require.NoError(t, gate.Logout(context.Background()))
	require.NoError(t, gate.Logout(context.Background()))

	assert.False(t, gate.State().Authenticated())
	assert.Empty(t, gate.Token())
	assert.Nil(t, store.identity)
	assert.Empty(t, store.token)
	assert.Equal(t, 2, store.clears)
}

func TestGate_RegisterDoesNotLogin(t *testing.T) {
	auth := &fakeAuth{}
	gate := NewGate(&memStore{}, auth, nil)
	gate.Initialize(context.Background())

	usr, err := gate.Register(context.Background(), Registration{
		Username: "new_student",
		Password: "secret1",
		FullName: "New Student",
		Email:    "NEW@school.test",
		Role:     "student",
	})
	require.NoError(t, err)
	assert.Equal(t, "new_student", usr.Username)
	assert.Equal(t, "new@school.test", auth.registered[0].Email)
	assert.False(t, gate.State().Authenticated())

	_, err = gate.Register(context.Background(), Registration{Username: "x"})
	var verr *core.ValidationError
	assert.True(t, errors.As(err, &verr))
	assert.Len(t, auth.registered, 1)
}

func TestGate_StateIsACopy(t *testing.T) {
	gate := NewGate(&memStore{identity: adminIdentity(), token: "tok"}, &fakeAuth{}, nil)
	gate.Initialize(context.Background())

	st := gate.State()
	st.Identity.Roles[0].RoleName = "student"
	assert.Equal(t, RoleAdmin, gate.State().Role())
}
