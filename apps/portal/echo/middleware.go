package echoportal

import (
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/NVK2907/sms-app-sub000/core/session"
)

const contextWorkspaceKey = "workspace"

var loadingBody = echo.Map{"status": "loading"}

// workspaceMiddleware attaches the workspace of the visitor, issuing a new sid cookie
// when there is none (or it is not ours).
func (s *server) workspaceMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		var sid string
		if cookie, err := ctx.Cookie(s.opts.CookieName); err == nil {
			if id, err := uuid.Parse(cookie.Value); err == nil {
				sid = id.String()
			}
		}
		if sid == "" {
			sid = uuid.NewString()
			ctx.SetCookie(&http.Cookie{
				Name:     s.opts.CookieName,
				Value:    sid,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}
		ctx.Set(contextWorkspaceKey, s.workspaces.get(sid))
		return next(ctx)
	}
}

func getWorkspace(ctx echo.Context) *workspace {
	ws, _ := ctx.Get(contextWorkspaceKey).(*workspace)
	return ws
}

// sessionState gives a loading session a short grace period to settle, so that most
// first requests are answered with a real decision rather than a 503.
func (s *server) sessionState(ctx echo.Context, ws *workspace) session.State {
	timer := time.NewTimer(s.opts.InitWait)
	defer timer.Stop()
	select {
	case <-ws.gate.Ready():
	case <-timer.C:
	case <-ctx.Request().Context().Done():
	}
	return ws.gate.State()
}

// gateMiddleware guards the routes of one role.
func (s *server) gateMiddleware(role session.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			ws := getWorkspace(ctx)
			st := s.sessionState(ctx, ws)
			decision := session.Authorize(st, session.Route{Path: ctx.Path(), RequiredRole: role}, ctx.Request().RequestURI)
			s.metrics.decision(decision.Verdict)
			if decision.Verdict == session.Render {
				return next(ctx)
			}
			return respondDecision(ctx, decision)
		}
	}
}

func respondDecision(ctx echo.Context, d session.Decision) error {
	switch d.Verdict {
	case session.Wait:
		ctx.Response().Header().Set("Retry-After", "1")
		return ctx.JSON(http.StatusServiceUnavailable, loadingBody)
	case session.Redirect:
		loc := d.Location
		if d.From != "" {
			loc += "?" + url.Values{"from": {d.From}}.Encode()
		}
		return ctx.Redirect(http.StatusFound, loc)
	default:
		return errHttpNotFound
	}
}
