package echoportal

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/NVK2907/sms-app-sub000/core/notify"
	"github.com/NVK2907/sms-app-sub000/services/api"
	"github.com/NVK2907/sms-app-sub000/storage/sessionstore"
	"github.com/NVK2907/sms-app-sub000/tests"
)

const pwd = "secret1"

type env struct {
	srv      *server
	backend  *testutil.Backend
	sessions *sessionstore.MemoryBackend
}

func setup(t *testing.T, opts ...func(*Options)) env {
	t.Helper()
	backend := testutil.NewBackend(t)
	backend.AddAccount("admin", pwd, "ADMIN")
	backend.AddAccount("teacher", pwd, "TEACHER")
	backend.AddAccount("student", pwd, "STUDENT")

	client, err := api.NewClient(api.Options{BaseURL: backend.BaseURL()})
	require.NoError(t, err)

	sessions := sessionstore.NewMemoryBackend()
	o := &Options{
		DisableReqLogs: true,
		Sessions:       sessions,
		API:            client,
		LoginRate:      "1000-M",
		MetricsPath:    "/metrics",
		InitWait:       time.Second,
		PageSize:       2,
	}
	for _, f := range opts {
		f(o)
	}
	srv, err := NewServer(o)
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Stop(context.Background()) })
	return env{srv: srv.(*server), backend: backend, sessions: sessions}
}

type httpTest struct {
	name         string
	method       string
	path         string
	body         []byte
	wantCode     int
	wantLocation string
	wantData     []byte
}

// visitor is a browser: it keeps the session cookie between requests.
type visitor struct {
	t      *testing.T
	srv    http.Handler
	cookie *http.Cookie
}

func (e env) visitor(t *testing.T) *visitor {
	return &visitor{t: t, srv: e.srv}
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	return req, httptest.NewRecorder()
}

func (v *visitor) do(method, path string, data ...[]byte) *httptest.ResponseRecorder {
	req, rec := newRequest(method, path, data...)
	if v.cookie != nil {
		req.AddCookie(v.cookie)
	}
	v.srv.ServeHTTP(rec, req)
	for _, c := range rec.Result().Cookies() {
		if c.Name == "sid" {
			v.cookie = c
		}
	}
	return rec
}

func (v *visitor) login(username string) {
	v.t.Helper()
	rec := v.do(http.MethodPost, "/login", []byte(`{"username":"`+username+`","password":"`+pwd+`"}`))
	require.Equal(v.t, http.StatusOK, rec.Code, rec.Body.String())
}

func marshalObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshalObj() failed: %v", err)
	}
	return data
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
	}
	if tt.wantLocation != "" {
		if loc := rec.Header().Get("Location"); loc != tt.wantLocation {
			t.Errorf("failed! location = %v; wantLocation %v", loc, tt.wantLocation)
		}
	}
	if tt.wantData != nil {
		var got, want interface{}
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			t.Fatalf("decoding body %q: %v", rec.Body.String(), err)
		}
		if err := json.Unmarshal(tt.wantData, &want); err != nil {
			t.Fatalf("decoding wantData: %v", err)
		}
		require.Equal(t, want, got)
	}
}

type testView struct {
	Screen string `json:"screen"`
	List   struct {
		Items         []map[string]interface{} `json:"items"`
		Page          int                      `json:"page"`
		PageSize      int                      `json:"pageSize"`
		TotalElements int64                    `json:"totalElements"`
		TotalPages    int                      `json:"totalPages"`
		Status        string                   `json:"status"`
		Mode          string                   `json:"mode"`
		Filters       map[string]string        `json:"filters"`
		Dialog        struct {
			Kind   string                 `json:"kind"`
			Record map[string]interface{} `json:"record"`
			Draft  map[string]interface{} `json:"draft"`
		} `json:"dialog"`
		DisplayPage int  `json:"displayPage"`
		HasNext     bool `json:"hasNext"`
		HasPrev     bool `json:"hasPrev"`
	} `json:"list"`
	Notifications []notify.Notification `json:"notifications"`
}

func decodeView(t *testing.T, rec *httptest.ResponseRecorder) testView {
	t.Helper()
	var view testView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view), rec.Body.String())
	return view
}

func seedStudents(b *testutil.Backend, n int) {
	names := []string{"Ann", "Bob"}
	b.Seed("students", n, func(i int) testutil.Record {
		return testutil.Record{
			"studentId": "S" + string(rune('0'+i)),
			"firstName": names[i%2],
			"lastName":  "Doe",
			"className": "A",
		}
	})
}
