package session

const (
	LoginPath = "/login"
	RootPath  = "/"
)

// Verdict of a route access decision.
type Verdict int

const (
	// Wait means the session is still loading: show a neutral waiting state,
	// neither redirect nor render.
	Wait Verdict = iota
	Redirect
	Render
)

func (v Verdict) String() string {
	switch v {
	case Wait:
		return "wait"
	case Redirect:
		return "redirect"
	case Render:
		return "render"
	default:
		return "unknown"
	}
}

type Decision struct {
	Verdict  Verdict
	Location string // redirect target
	From     string // originally requested location, set on redirects to the login route
}

// Route is a protected route. An empty RequiredRole only requires authentication.
type Route struct {
	Path         string
	RequiredRole Role
}

var dashboards = map[Role]string{
	RoleAdmin:   "/admin/dashboard",
	RoleTeacher: "/teacher/dashboard",
	RoleStudent: "/student/dashboard",
}

// DashboardPath returns the dashboard route of a role.
func DashboardPath(r Role) (string, bool) {
	p, ok := dashboards[r]
	return p, ok
}

// Authorize decides whether `route` may render for the session, `requested` being the
// full location the visitor asked for.
func Authorize(st State, route Route, requested string) Decision {
	switch {
	case st.Loading:
		return Decision{Verdict: Wait}
	case !st.Authenticated():
		return Decision{Verdict: Redirect, Location: LoginPath, From: requested}
	case route.RequiredRole != RoleNone && st.Role() != route.RequiredRole:
		return Decision{Verdict: Redirect, Location: RootPath}
	default:
		return Decision{Verdict: Render}
	}
}

// DispatchRoot forwards the generic root to the dashboard of the primary role.
func DispatchRoot(st State) Decision {
	if st.Loading {
		return Decision{Verdict: Wait}
	}
	if p, ok := DashboardPath(st.Role()); ok && st.Authenticated() {
		return Decision{Verdict: Redirect, Location: p}
	}
	return Decision{Verdict: Redirect, Location: LoginPath}
}
