package echoportal

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/NVK2907/sms-app-sub000/core"
	"github.com/NVK2907/sms-app-sub000/core/notify"
	"github.com/NVK2907/sms-app-sub000/core/session"
	"github.com/NVK2907/sms-app-sub000/services/api"
)

const (
	loginFailedMsg    = "Login failed. Please try again."
	registerFailedMsg = "Registration failed. Please try again."
)

type (
	loginResp struct {
		User     *session.Identity `json:"user"`
		Location string            `json:"location"`
	}

	dashboardView struct {
		User          *session.Identity     `json:"user"`
		DisplayName   string                `json:"displayName"`
		Role          session.Role          `json:"role"`
		Screens       []string              `json:"screens"`
		Notifications []notify.Notification `json:"notifications"`
	}
)

// safeFrom keeps `from` only if it is a local path, so the login cannot redirect off site.
func safeFrom(from string) string {
	if from == "" || !strings.HasPrefix(from, "/") || strings.HasPrefix(from, "//") || strings.HasPrefix(from, "/\\") {
		return ""
	}
	u, err := url.Parse(from)
	if err != nil || u.Host != "" || u.Scheme != "" || u.Path == session.LoginPath {
		return ""
	}
	return from
}

// failure answers a failed login or registration with the backend message, if any.
func failure(err error, code int, fallback string) error {
	var verr *core.ValidationError
	if errors.As(err, &verr) {
		return verr
	}
	var aErr *api.Error
	if errors.As(err, &aErr) && aErr.Status >= 400 && aErr.Status < 500 && code != http.StatusUnauthorized {
		code = aErr.Status
	}
	return echo.NewHTTPError(code, core.UserMessage(err, fallback))
}

// Handlers

func (s *server) root(ctx echo.Context) error {
	st := s.sessionState(ctx, getWorkspace(ctx))
	d := session.DispatchRoot(st)
	s.metrics.decision(d.Verdict)
	return respondDecision(ctx, d)
}

func (s *server) loginView(ctx echo.Context) error {
	st := s.sessionState(ctx, getWorkspace(ctx))
	// sessions without a dashboard (unknown role) get the login screen too
	if d := session.DispatchRoot(st); d.Location != session.LoginPath {
		s.metrics.decision(d.Verdict)
		return respondDecision(ctx, d)
	}
	return ctx.JSON(http.StatusOK, echo.Map{"from": safeFrom(ctx.QueryParam("from"))})
}

func (s *server) login(ctx echo.Context) error {
	var creds session.Credentials
	if err := ctx.Bind(&creds); err != nil {
		return errors.Wrap(err, "binding Credentials")
	}
	ws := getWorkspace(ctx)
	usr, err := ws.gate.Login(ctx.Request().Context(), creds)
	if err != nil {
		s.opts.Logger.Info("portal: login failed", err, map[string]interface{}{"username": creds.Username})
		return failure(err, http.StatusUnauthorized, loginFailedMsg)
	}
	ws.unmount()

	loc := safeFrom(ctx.QueryParam("from"))
	if loc == "" {
		loc, _ = session.DashboardPath(usr.PrimaryRole())
	}
	if loc == "" {
		loc = session.RootPath
	}
	return ctx.JSON(http.StatusOK, loginResp{User: usr, Location: loc})
}

func (s *server) logout(ctx echo.Context) error {
	ws := getWorkspace(ctx)
	if err := ws.gate.Logout(ctx.Request().Context()); err != nil {
		return errors.Wrap(err, "logging out")
	}
	ws.unmount()
	return ctx.JSON(http.StatusOK, echo.Map{"location": session.LoginPath})
}

func (s *server) register(ctx echo.Context) error {
	var reg session.Registration
	if err := ctx.Bind(&reg); err != nil {
		return errors.Wrap(err, "binding Registration")
	}
	usr, err := getWorkspace(ctx).gate.Register(ctx.Request().Context(), reg)
	if err != nil {
		return failure(err, http.StatusBadRequest, registerFailedMsg)
	}
	return ctx.JSON(http.StatusCreated, echo.Map{"user": usr, "location": session.LoginPath})
}

func (s *server) dashboard(ctx echo.Context) error {
	ws := getWorkspace(ctx)
	ws.unmount()
	usr := ws.gate.State().Identity
	role := usr.PrimaryRole()

	names := make([]string, 0, len(screensOf(role)))
	for _, def := range screensOf(role) {
		names = append(names, def.resource.Name)
	}
	return ctx.JSON(http.StatusOK, dashboardView{
		User:          usr,
		DisplayName:   usr.DisplayName(),
		Role:          role,
		Screens:       names,
		Notifications: ws.notes.Active(),
	})
}

func (s *server) dismissNotification(ctx echo.Context) error {
	if !getWorkspace(ctx).notes.Dismiss(ctx.Param("id")) {
		return errHttpNotFound
	}
	return ctx.NoContent(http.StatusNoContent)
}
