package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func stateAs(roles ...string) State {
	id := &Identity{ID: 7, Username: "someone"}
	for _, r := range roles {
		id.Roles = append(id.Roles, RoleDescriptor{RoleName: r})
	}
	return State{Identity: id}
}

func TestAuthorize(t *testing.T) {
	adminUsers := Route{Path: "/admin/users", RequiredRole: RoleAdmin}
	profile := Route{Path: "/profile"}

	tests := []struct {
		name      string
		state     State
		route     Route
		requested string
		want      Decision
	}{
		{
			name:      "loading waits",
			state:     State{Loading: true},
			route:     adminUsers,
			requested: "/admin/users",
			want:      Decision{Verdict: Wait},
		},
		{
			name:      "loading waits even with a stale identity",
			state:     State{Loading: true, Identity: stateAs("ADMIN").Identity},
			route:     adminUsers,
			requested: "/admin/users",
			want:      Decision{Verdict: Wait},
		},
		{
			name:      "anonymous goes to login with origin",
			state:     State{},
			route:     adminUsers,
			requested: "/admin/users?page=2",
			want:      Decision{Verdict: Redirect, Location: LoginPath, From: "/admin/users?page=2"},
		},
		{
			name:      "wrong role goes to root",
			state:     stateAs("TEACHER"),
			route:     adminUsers,
			requested: "/admin/users",
			want:      Decision{Verdict: Redirect, Location: RootPath},
		},
		{
			name:      "role match ignores case",
			state:     stateAs("ADMIN"),
			route:     adminUsers,
			requested: "/admin/users",
			want:      Decision{Verdict: Render},
		},
		{
			name:      "only the first role counts",
			state:     stateAs("TEACHER", "ADMIN"),
			route:     adminUsers,
			requested: "/admin/users",
			want:      Decision{Verdict: Redirect, Location: RootPath},
		},
		{
			name:      "no roles at all",
			state:     stateAs(),
			route:     adminUsers,
			requested: "/admin/users",
			want:      Decision{Verdict: Redirect, Location: RootPath},
		},
		{
			name:      "authentication only",
			state:     stateAs("student"),
			route:     profile,
			requested: "/profile",
			want:      Decision{Verdict: Render},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Authorize(tt.state, tt.route, tt.requested))
		})
	}
}

func TestDispatchRoot(t *testing.T) {
	tests := []struct {
		name  string
		state State
		want  Decision
	}{
		{name: "loading", state: State{Loading: true}, want: Decision{Verdict: Wait}},
		{name: "anonymous", state: State{}, want: Decision{Verdict: Redirect, Location: LoginPath}},
		{name: "admin", state: stateAs("ADMIN"), want: Decision{Verdict: Redirect, Location: "/admin/dashboard"}},
		{name: "teacher", state: stateAs("Teacher"), want: Decision{Verdict: Redirect, Location: "/teacher/dashboard"}},
		{name: "student", state: stateAs("student", "admin"), want: Decision{Verdict: Redirect, Location: "/student/dashboard"}},
		{name: "unknown role", state: stateAs("JANITOR"), want: Decision{Verdict: Redirect, Location: LoginPath}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DispatchRoot(tt.state))
		})
	}
}

func TestVerdict_String(t *testing.T) {
	assert.Equal(t, "wait", Wait.String())
	assert.Equal(t, "redirect", Redirect.String())
	assert.Equal(t, "render", Render.String())
	assert.Equal(t, "unknown", Verdict(42).String())
}

func TestIdentity_DisplayName(t *testing.T) {
	assert.Equal(t, "Jane Doe", (&Identity{Username: "jane", FullName: " Jane Doe "}).DisplayName())
	assert.Equal(t, "jane", (&Identity{Username: "jane"}).DisplayName())
	assert.Empty(t, (*Identity)(nil).DisplayName())
	assert.Equal(t, RoleNone, (*Identity)(nil).PrimaryRole())
}

func TestIdentity_PrimaryRole(t *testing.T) {
	tests := []struct {
		name  string
		roles []RoleDescriptor
		want  Role
	}{
		{name: "backend casing", roles: []RoleDescriptor{{RoleName: "TEACHER"}}, want: RoleTeacher},
		{name: "padded", roles: []RoleDescriptor{{RoleName: " admin "}}, want: RoleAdmin},
		{name: "only the first counts", roles: []RoleDescriptor{{RoleName: "student"}, {RoleName: "admin"}}, want: RoleStudent},
		{name: "unknown", roles: []RoleDescriptor{{RoleName: "janitor"}}, want: RoleNone},
		{name: "no roles", want: RoleNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, (&Identity{Roles: tt.roles}).PrimaryRole())
		})
	}
}
