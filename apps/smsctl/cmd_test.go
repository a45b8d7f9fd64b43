package main

import (
	"bytes"
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NVK2907/sms-app-sub000/services/api"
	"github.com/NVK2907/sms-app-sub000/storage/sessionstore"
	"github.com/NVK2907/sms-app-sub000/tests"
)

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	wantOut    []string
	extra      interface{}
}

type extra struct {
	pwd string
}

type env struct {
	backend *testutil.Backend
	store   *sessionstore.FileStore
	client  *api.Client
}

func setup(t *testing.T) env {
	backend := testutil.NewBackend(t)
	backend.AddAccount("admin", "secret1", "ADMIN")
	backend.AddAccount("student", "secret1", "STUDENT")

	client, err := api.NewClient(api.Options{BaseURL: backend.BaseURL()})
	require.NoError(t, err)
	return env{
		backend: backend,
		store:   sessionstore.NewFileStore(filepath.Join(t.TempDir(), "smsctl", "session.json")),
		client:  client,
	}
}

// run is one invocation of the program, with a fresh process state.
func (e env) run(tt cliTest) (string, error) {
	readPasswordFunc = func(fd int) ([]byte, error) {
		if extra, ok := tt.extra.(extra); ok {
			return []byte(extra.pwd), nil
		}
		return nil, nil
	}
	var out bytes.Buffer
	cli := newCommandLine(e.store, e.client, nil, &out)
	err := cli.run(context.Background(), append([]string{"smsctl"}, tt.args...))
	return out.String(), err
}

func runTests(t *testing.T, e env, tests []cliTest) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := e.run(tt)
			switch {
			case tt.wantErr != nil:
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
				}
			case tt.wantErrStr != "":
				if err == nil || err.Error() != tt.wantErrStr {
					t.Errorf("cli.run() error = %v, wantErrStr %s", err, tt.wantErrStr)
				}
			case err != nil:
				t.Errorf("cli.run() unexpected error = %v; output %s", err, out)
			}
			for _, want := range tt.wantOut {
				assert.Contains(t, out, want)
			}
		})
	}
}

func login(t *testing.T, e env, username string) {
	t.Helper()
	_, err := e.run(cliTest{args: []string{"login", username}, extra: extra{pwd: "secret1"}})
	require.NoError(t, err)
}

func Test_commandLine_session(t *testing.T) {
	e := setup(t)

	runTests(t, e, []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"frobnicate"}, wantErrStr: `unknown command "frobnicate" for "smsctl"`},
		{name: "login: no username", args: []string{"login"}, wantErrStr: "accepts 1 arg(s), received 0"},
		{name: "login: no password", args: []string{"login", "admin"}, wantErr: errHelp},
		{name: "login: wrong password", args: []string{"login", "admin"}, extra: extra{pwd: "nope"}, wantErr: errReported, wantOut: []string{"✘ Invalid username or password"}},
		{name: "whoami: logged out", args: []string{"whoami"}, wantErr: errNotLoggedIn},
		{name: "home: logged out", args: []string{"home"}, wantOut: []string{"/login"}},
		{name: "login", args: []string{"login", "admin"}, extra: extra{pwd: "secret1"}, wantOut: []string{"Logged in as Admin (admin)"}},
		{name: "whoami", args: []string{"whoami"}, wantOut: []string{"Admin (admin)", "role: admin", "email: admin@school.test", "session expires:"}},
		{name: "home", args: []string{"home"}, wantOut: []string{"/admin/dashboard", "  students", "  academic-years"}},
		{name: "logout", args: []string{"logout"}, wantOut: []string{"Logged out"}},
		{name: "logged out again", args: []string{"whoami"}, wantErr: errNotLoggedIn},
		{name: "logout twice", args: []string{"logout"}},
	})
}

func Test_commandLine_sessionFile(t *testing.T) {
	e := setup(t)
	login(t, e, "student")

	info, err := os.Stat(e.store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	identity, token, err := e.store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "student", identity.Username)
	assert.NotEmpty(t, token)

	// a token the backend rejects is forgotten on next use
	e.backend.Revoke(token)
	_, err = e.run(cliTest{args: []string{"whoami"}})
	assert.ErrorIs(t, err, errNotLoggedIn)
	_, err = os.Stat(e.store.Path())
	assert.True(t, os.IsNotExist(err))
}

func Test_commandLine_register(t *testing.T) {
	e := setup(t)

	runTests(t, e, []cliTest{
		{name: "invalid", args: []string{"register", "x"}, extra: extra{pwd: "secret1"}, wantErr: errReported, wantOut: []string{"✘ "}},
		{
			name:    "register",
			args:    []string{"register", "new_student", "--full-name", "New Student", "--role", "student"},
			extra:   extra{pwd: "secret1"},
			wantOut: []string{"✔ Registered new_student"},
		},
		{
			name:    "taken",
			args:    []string{"register", "new_student", "--full-name", "New Student"},
			extra:   extra{pwd: "secret1"},
			wantErr: errReported,
			wantOut: []string{"✘ Username is already taken"},
		},
		{name: "not logged in", args: []string{"whoami"}, wantErr: errNotLoggedIn},
	})
}

func Test_commandLine_list(t *testing.T) {
	e := setup(t)
	names := []string{"Ann", "Bob"}
	e.backend.Seed("students", 5, func(i int) testutil.Record {
		return testutil.Record{"studentId": "S" + strconv.Itoa(i), "firstName": names[i%2], "lastName": "Doe", "className": "A"}
	})

	runTests(t, e, []cliTest{{name: "not logged in", args: []string{"list", "students"}, wantErr: errNotLoggedIn}})
	login(t, e, "admin")

	runTests(t, e, []cliTest{
		{name: "no entity", args: []string{"list"}, wantErrStr: "accepts 1 arg(s), received 0"},
		{name: "unknown entity", args: []string{"list", "pets"}, wantErrStr: `unknown entity "pets" (one of: academic-years, attendance, classes, grades, semesters, students, subjects, teachers, users)`},
		{name: "bad page", args: []string{"list", "students", "--page", "0"}, wantErrStr: "--page starts at 1"},
		{name: "first page", args: []string{"list", "students", "--size", "2"}, wantOut: []string{"ID", "STUDENTID", "FIRSTNAME", "S1", "page 1 of 3, 5 records"}},
		{name: "last page", args: []string{"list", "students", "--size", "2", "--page", "3"}, wantOut: []string{"S5", "page 3 of 3, 5 records"}},
		{name: "keyword", args: []string{"list", "students", "--keyword", "ann"}, wantOut: []string{"page 1 of 1, 2 records (keyword=ann)"}},
		{name: "filter", args: []string{"list", "students", "--filter", "firstName=Bob"}, wantOut: []string{"3 records (firstName=Bob)"}},
	})

	// the all sentinel alone is a plain list request
	e.backend.ResetRequests()
	_, err := e.run(cliTest{args: []string{"list", "students", "--filter", "className=all"}})
	require.NoError(t, err)
	_, searched := e.backend.LastRequest(http.MethodGet, "/students/search")
	assert.False(t, searched)

	e.backend.Fail(http.MethodGet, "/students", http.StatusServiceUnavailable, "")
	out, err := e.run(cliTest{args: []string{"list", "students"}})
	assert.ErrorIs(t, err, errReported)
	assert.Contains(t, out, "✘ Failed to load students")
}

func Test_commandLine_records(t *testing.T) {
	e := setup(t)
	e.backend.Seed("students", 2, func(i int) testutil.Record {
		return testutil.Record{"studentId": "S" + strconv.Itoa(i), "firstName": "Bob", "lastName": "Doe"}
	})
	id := strconv.FormatInt(e.backend.Records("students")[0]["id"].(int64), 10)
	login(t, e, "admin")

	runTests(t, e, []cliTest{
		{name: "get", args: []string{"get", "students", id}, wantOut: []string{`"firstName": "Bob"`}},
		{name: "get: bad id", args: []string{"get", "students", "x"}, wantErrStr: `invalid id "x"`},
		{name: "get: missing", args: []string{"get", "students", "999"}, wantErr: errReported, wantOut: []string{"✘ Student not found"}},
		{name: "create: no data", args: []string{"create", "students"}, wantErrStr: `required flag(s) "data" not set`},
		{name: "create: invalid", args: []string{"create", "students", "--data", `{"studentId":"S9"}`}, wantErr: errReported, wantOut: []string{"✘ firstName: this field is required"}},
		{name: "create: not json", args: []string{"create", "students", "--data", `{`}, wantErr: errReported, wantOut: []string{"✘ Failed to create student"}},
		{
			name:    "create",
			args:    []string{"create", "students", "--data", `{"studentId":"S9","firstName":"Cleo","lastName":"Doe"}`},
			wantOut: []string{"✔ Student created successfully", "Cleo", "page 1 of 1, 3 records"},
		},
		{
			name:    "update",
			args:    []string{"update", "students", id, "--data", `{"studentId":"S1","firstName":"Bobby","lastName":"Doe"}`},
			wantOut: []string{"✔ Student updated successfully", "Bobby"},
		},
		{name: "delete", args: []string{"delete", "students", id}, wantOut: []string{"✔ Student deleted successfully", "2 records"}},
		{name: "delete: missing", args: []string{"delete", "students", id}, wantErr: errReported, wantOut: []string{"✘ Student not found"}},
	})
	assert.Len(t, e.backend.Records("students"), 2)
}

func Test_commandLine_grades(t *testing.T) {
	e := setup(t)
	login(t, e, "admin")

	runTests(t, e, []cliTest{
		{name: "score out of range", args: []string{"create", "grades", "--data", `{"studentId":1,"subjectId":2,"score":101}`}, wantErr: errReported, wantOut: []string{"✘ score: score must be between 0 and 100"}},
		{name: "letter from score", args: []string{"create", "grades", "--data", `{"studentId":1,"subjectId":2,"score":85.5}`}, wantOut: []string{"✔ Grade created successfully", "85.5", "B"}},
	})

	recs := e.backend.Records("grades")
	require.Len(t, recs, 1)
	assert.Equal(t, 85.5, recs[0]["score"], "scores are sent as numbers")
	assert.Equal(t, "B", recs[0]["gradeLetter"])
}

func Test_commandLine_users(t *testing.T) {
	e := setup(t)
	e.backend.Seed("users", 1, func(int) testutil.Record {
		return testutil.Record{"username": "jdoe", "fullName": "J Doe", "isActive": true}
	})
	id := strconv.FormatInt(e.backend.Records("users")[0]["id"].(int64), 10)
	login(t, e, "admin")

	runTests(t, e, []cliTest{
		{name: "toggle-status", args: []string{"users", "toggle-status", id}, wantOut: []string{"✔ User status updated successfully", "jdoe"}},
		{name: "reset-password: too short", args: []string{"users", "reset-password", id}, extra: extra{pwd: "abc"}, wantErr: errReported, wantOut: []string{"✘ "}},
		{name: "reset-password", args: []string{"users", "reset-password", id}, extra: extra{pwd: "abcdef"}, wantOut: []string{"✔ Password reset successfully"}},
	})
	assert.Equal(t, false, e.backend.Records("users")[0]["isActive"])

	e.backend.Fail(http.MethodPut, "/users/"+id+"/toggle-status", http.StatusForbidden, "You cannot deactivate yourself")
	out, err := e.run(cliTest{args: []string{"users", "toggle-status", id}})
	assert.ErrorIs(t, err, errReported)
	assert.Contains(t, out, "✘ You cannot deactivate yourself")
}
