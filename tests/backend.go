package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/NVK2907/sms-app-sub000/core/school"
	"github.com/NVK2907/sms-app-sub000/core/session"
)

// Record is a backend record as JSON sees it.
type Record = map[string]interface{}

// Request is a request received by the Backend.
type Request struct {
	Method string
	Path   string
	Query  map[string]string
	Token  string
}

type account struct {
	password string
	identity session.Identity
}

type failure struct {
	status  int
	message string
}

var signingKey = []byte("test-backend-key")

// Backend is an in-memory stand-in for the school management REST API.
type Backend struct {
	*httptest.Server
	TokenTTL time.Duration

	mu          sync.Mutex
	accounts    map[string]account
	revoked     map[string]bool
	collections map[string][]Record
	nextID      int64
	requests    []Request
	failures    map[string]failure
	holds       map[string]chan struct{}
	wrongKey    string
}

// NewBackend starts a Backend, stopped at the end of the test.
func NewBackend(t *testing.T) *Backend {
	t.Helper()
	b := &Backend{
		TokenTTL:    time.Hour,
		accounts:    make(map[string]account),
		revoked:     make(map[string]bool),
		collections: make(map[string][]Record),
		failures:    make(map[string]failure),
		holds:       make(map[string]chan struct{}),
	}
	b.Server = httptest.NewServer(b.routes())
	t.Cleanup(b.Close)
	return b
}

// BaseURL is the API base URL to configure clients with.
func (b *Backend) BaseURL() string { return b.URL + "/api" }

func (b *Backend) routes() http.Handler {
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = func(err error, ctx echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			msg = fmt.Sprint(he.Message)
		}
		_ = ctx.JSON(code, echo.Map{"success": false, "message": msg})
	}
	e.Use(b.record, b.holdRequests, b.injectFailures)

	api := e.Group("/api")
	api.POST("/auth/login", b.login)
	api.POST("/auth/register", b.register)
	api.GET("/auth/validate", b.validate, b.requireToken)

	for _, def := range school.Resources {
		def := def
		g := api.Group(def.Path, b.requireToken)
		g.GET("", func(ctx echo.Context) error { return b.list(ctx, def, false) })
		g.GET("/search", func(ctx echo.Context) error { return b.list(ctx, def, true) })
		g.GET("/:id", func(ctx echo.Context) error { return b.get(ctx, def) })
		g.POST("", func(ctx echo.Context) error { return b.create(ctx, def) })
		g.PUT("/:id", func(ctx echo.Context) error { return b.update(ctx, def) })
		g.DELETE("/:id", func(ctx echo.Context) error { return b.delete(ctx, def) })
		g.PUT("/:id/:action", func(ctx echo.Context) error { return b.action(ctx, def) })
	}
	return e
}

func ok(ctx echo.Context, msg string, data interface{}) error {
	return ctx.JSON(http.StatusOK, echo.Map{"success": true, "message": msg, "data": data})
}

func (b *Backend) record(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		q := make(map[string]string)
		for k, v := range ctx.QueryParams() {
			q[k] = v[0]
		}
		b.mu.Lock()
		b.requests = append(b.requests, Request{
			Method: ctx.Request().Method,
			Path:   strings.TrimPrefix(ctx.Request().URL.Path, "/api"),
			Query:  q,
			Token:  bearer(ctx),
		})
		b.mu.Unlock()
		return next(ctx)
	}
}

func (b *Backend) injectFailures(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		key := ctx.Request().Method + " " + strings.TrimPrefix(ctx.Request().URL.Path, "/api")
		b.mu.Lock()
		f, found := b.failures[key]
		delete(b.failures, key)
		b.mu.Unlock()
		if !found {
			return next(ctx)
		}
		if f.message == "" {
			return ctx.NoContent(f.status)
		}
		return ctx.JSON(f.status, echo.Map{"success": false, "message": f.message})
	}
}

func (b *Backend) holdRequests(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		key := ctx.Request().Method + " " + strings.TrimPrefix(ctx.Request().URL.Path, "/api")
		b.mu.Lock()
		ch, found := b.holds[key]
		b.mu.Unlock()
		if found {
			select {
			case <-ch:
			case <-ctx.Request().Context().Done():
				return ctx.Request().Context().Err()
			}
		}
		return next(ctx)
	}
}

// Hold makes requests to "METHOD /path" wait until release is called.
func (b *Backend) Hold(method, path string) (release func()) {
	ch := make(chan struct{})
	key := method + " " + path
	b.mu.Lock()
	b.holds[key] = ch
	b.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.holds, key)
			b.mu.Unlock()
			close(ch)
		})
	}
}

func bearer(ctx echo.Context) string {
	return strings.TrimPrefix(ctx.Request().Header.Get(echo.HeaderAuthorization), "Bearer ")
}

func (b *Backend) requireToken(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		token := bearer(ctx)
		b.mu.Lock()
		revoked := b.revoked[token]
		b.mu.Unlock()
		if token == "" || revoked {
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired token")
		}
		if _, err := jwt.Parse(token, func(*jwt.Token) (interface{}, error) { return signingKey, nil }); err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired token")
		}
		return next(ctx)
	}
}

// AddAccount registers a user who can log in, with a single role (eg. "ADMIN").
func (b *Backend) AddAccount(username, password, role string) session.Identity {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := session.Identity{
		ID:       b.nextID,
		Username: username,
		FullName: strings.ToUpper(username[:1]) + username[1:],
		Email:    username + "@school.test",
		Roles:    []session.RoleDescriptor{{ID: 1, RoleName: role}},
	}
	b.accounts[username] = account{password: password, identity: id}
	return id
}

// IssueToken mints a token the backend accepts.
func (b *Backend) IssueToken(t *testing.T, id session.Identity) string {
	t.Helper()
	token, err := b.issue(id)
	if err != nil {
		t.Fatalf("IssueToken() failed: %v", err)
	}
	return token
}

func (b *Backend) issue(id session.Identity) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(id.ID, 10),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(b.TokenTTL)),
		ID:        strconv.FormatInt(time.Now().UnixNano(), 36),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(signingKey)
}

// Revoke makes the backend reject token from now on.
func (b *Backend) Revoke(token string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.revoked[token] = true
}

// Seed adds n records to a collection; fn builds the i-th one (1-based).
func (b *Backend) Seed(entity string, n int, fn func(i int) Record) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := 1; i <= n; i++ {
		rec := fn(i)
		b.nextID++
		rec["id"] = b.nextID
		b.collections[entity] = append(b.collections[entity], rec)
	}
}

// Records returns a copy of a collection.
func (b *Backend) Records(entity string) []Record {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Record, 0, len(b.collections[entity]))
	for _, rec := range b.collections[entity] {
		cp := make(Record, len(rec))
		for k, v := range rec {
			cp[k] = v
		}
		out = append(out, cp)
	}
	return out
}

// Fail makes the next request to "METHOD /path" fail with status. An empty message
// gives a response without a body.
func (b *Backend) Fail(method, path string, status int, message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[method+" "+path] = failure{status: status, message: message}
}

// UseCollectionKey makes list responses hold their records under key.
func (b *Backend) UseCollectionKey(key string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.wrongKey = key
}

// Requests returns the requests received so far, optionally only those of a method.
func (b *Backend) Requests(method ...string) []Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []Request
	for _, r := range b.requests {
		if len(method) == 0 || r.Method == method[0] {
			out = append(out, r)
		}
	}
	return out
}

// LastRequest returns the last request of a method and path prefix.
func (b *Backend) LastRequest(method, pathPrefix string) (Request, bool) {
	reqs := b.Requests(method)
	for i := len(reqs) - 1; i >= 0; i-- {
		if strings.HasPrefix(reqs[i].Path, pathPrefix) {
			return reqs[i], true
		}
	}
	return Request{}, false
}

func (b *Backend) ResetRequests() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.requests = nil
}

func (b *Backend) login(ctx echo.Context) error {
	var creds session.Credentials
	if err := ctx.Bind(&creds); err != nil {
		return err
	}
	b.mu.Lock()
	acc, found := b.accounts[creds.Username]
	b.mu.Unlock()
	if !found || acc.password != creds.Password {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid username or password")
	}
	token, err := b.issue(acc.identity)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"token": token, "user": acc.identity})
}

func (b *Backend) register(ctx echo.Context) error {
	var reg session.Registration
	if err := ctx.Bind(&reg); err != nil {
		return err
	}
	b.mu.Lock()
	_, taken := b.accounts[reg.Username]
	b.mu.Unlock()
	if taken {
		return echo.NewHTTPError(http.StatusConflict, "Username is already taken")
	}
	role := strings.ToUpper(reg.Role)
	if role == "" {
		role = "STUDENT"
	}
	id := b.AddAccount(reg.Username, reg.Password, role)
	return ok(ctx, "User registered successfully", id)
}

func (b *Backend) validate(ctx echo.Context) error {
	return ok(ctx, "Token is valid", nil)
}

var pageParams = map[string]bool{"page": true, "size": true, "sortBy": true, "sortDir": true}

func matches(rec Record, filters map[string]string) bool {
	for k, want := range filters {
		if k == "keyword" {
			found := false
			for _, v := range rec {
				if s, ok := v.(string); ok && strings.Contains(strings.ToLower(s), strings.ToLower(want)) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
			continue
		}
		if !strings.EqualFold(fmt.Sprint(rec[k]), want) {
			return false
		}
	}
	return true
}

func (b *Backend) list(ctx echo.Context, def school.Resource, search bool) error {
	page, _ := strconv.Atoi(ctx.QueryParam("page"))
	size, _ := strconv.Atoi(ctx.QueryParam("size"))
	if size <= 0 {
		size = 10
	}
	filters := make(map[string]string)
	if search {
		for k, v := range ctx.QueryParams() {
			if !pageParams[k] {
				filters[k] = v[0]
			}
		}
	}

	b.mu.Lock()
	var all []Record
	for _, rec := range b.collections[def.Name] {
		if matches(rec, filters) {
			all = append(all, rec)
		}
	}
	key := def.CollectionKey
	if b.wrongKey != "" {
		key = b.wrongKey
	}
	b.mu.Unlock()

	desc := strings.EqualFold(ctx.QueryParam("sortDir"), "desc")
	sort.SliceStable(all, func(i, j int) bool {
		less := all[i]["id"].(int64) < all[j]["id"].(int64)
		if desc {
			return !less
		}
		return less
	})

	start, end := page*size, (page+1)*size
	if start > len(all) {
		start = len(all)
	}
	if end > len(all) {
		end = len(all)
	}
	items := all[start:end]
	if items == nil {
		items = []Record{}
	}
	return ok(ctx, "", echo.Map{
		key:             items,
		"currentPage":   page,
		"pageSize":      size,
		"totalElements": len(all),
		"totalPages":    (len(all) + size - 1) / size,
	})
}

func (b *Backend) find(def school.Resource, rawID string) (int, error) {
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return -1, echo.NewHTTPError(http.StatusBadRequest, "Invalid id")
	}
	for i, rec := range b.collections[def.Name] {
		if rec["id"].(int64) == id {
			return i, nil
		}
	}
	return -1, echo.NewHTTPError(http.StatusNotFound, def.Label+" not found")
}

func (b *Backend) get(ctx echo.Context, def school.Resource) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	i, err := b.find(def, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ok(ctx, "", b.collections[def.Name][i])
}

func (b *Backend) create(ctx echo.Context, def school.Resource) error {
	rec := Record{}
	if err := json.NewDecoder(ctx.Request().Body).Decode(&rec); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid body")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	rec["id"] = b.nextID
	b.collections[def.Name] = append(b.collections[def.Name], rec)
	return ctx.JSON(http.StatusCreated, echo.Map{"success": true, "message": def.Label + " created", "data": rec})
}

func (b *Backend) update(ctx echo.Context, def school.Resource) error {
	rec := Record{}
	if err := json.NewDecoder(ctx.Request().Body).Decode(&rec); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid body")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	i, err := b.find(def, ctx.Param("id"))
	if err != nil {
		return err
	}
	rec["id"] = b.collections[def.Name][i]["id"]
	b.collections[def.Name][i] = rec
	return ok(ctx, def.Label+" updated", rec)
}

func (b *Backend) delete(ctx echo.Context, def school.Resource) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	i, err := b.find(def, ctx.Param("id"))
	if err != nil {
		return err
	}
	recs := b.collections[def.Name]
	b.collections[def.Name] = append(recs[:i], recs[i+1:]...)
	return ok(ctx, def.Label+" deleted", nil)
}

func (b *Backend) action(ctx echo.Context, def school.Resource) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	i, err := b.find(def, ctx.Param("id"))
	if err != nil {
		return err
	}
	rec := b.collections[def.Name][i]
	switch ctx.Param("action") {
	case "toggle-status":
		active, _ := rec["isActive"].(bool)
		rec["isActive"] = !active
	case "reset-password":
	default:
		return echo.NewHTTPError(http.StatusNotFound, "Unknown action")
	}
	return ok(ctx, "", rec)
}
