package echoportal

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/NVK2907/sms-app-sub000/core/listing"
	"github.com/NVK2907/sms-app-sub000/core/notify"
	"github.com/NVK2907/sms-app-sub000/core/session"
	"github.com/NVK2907/sms-app-sub000/services/api"
)

type (
	screenView struct {
		Screen        string                `json:"screen"`
		List          interface{}           `json:"list"`
		Notifications []notify.Notification `json:"notifications"`
	}

	searchForm struct {
		Keyword string `json:"keyword"`
	}

	dialogForm struct {
		Kind string `json:"kind"`
		ID   int64  `json:"id"`
	}

	resetPasswordForm struct {
		NewPassword string `json:"newPassword"`
	}
)

type screenApi struct {
	s   *server
	def screenDef
}

func (s *server) registerScreen(g *echo.Group, def screenDef) {
	h := screenApi{s: s, def: def}

	sg := g.Group("/" + def.resource.Name)
	sg.GET("", h.show)
	sg.POST("/filters", h.filter)
	sg.DELETE("/filters", h.clearFilters)
	sg.POST("/search", h.search)
	sg.POST("/dialog", h.openDialog)
	sg.DELETE("/dialog", h.closeDialog)

	if def.readOnly {
		sg.POST("", methodNotAllowed)
		sg.PUT("/:id", methodNotAllowed)
		sg.DELETE("/:id", methodNotAllowed)
		return
	}
	sg.POST("", h.create)
	sg.PUT("/:id", h.update)
	sg.DELETE("/:id", h.destroy)
	if def.actions {
		sg.POST("/:id/toggle-status", h.toggleStatus)
		sg.POST("/:id/reset-password", h.resetPassword)
	}
}

func methodNotAllowed(echo.Context) error { return echo.ErrMethodNotAllowed }

// screen returns the mounted screen, mounting (and loading the first page of) this one
// when another screen, or none, is mounted.
func (h *screenApi) screen(ctx echo.Context, page int) (screen, bool, error) {
	ws := getWorkspace(ctx)
	if sc, ok := ws.mounted(h.def.key()); ok {
		return sc, false, nil
	}
	sc := h.def.mount(ws, listing.Options{
		PageSize: h.s.opts.PageSize,
		Notifier: ws.notes,
		Logger:   h.s.opts.Logger,
		OnFetch:  h.s.metrics.fetchObserver(h.def.key()),
	})
	ws.mount(sc)
	return sc, true, sc.load(ctx.Request().Context(), page)
}

func (h *screenApi) render(ctx echo.Context, code int, sc screen) error {
	ws := getWorkspace(ctx)
	return ctx.JSON(code, screenView{
		Screen:        h.def.key(),
		List:          sc.view(),
		Notifications: ws.notes.Active(),
	})
}

// settle turns the outcome of a screen operation into a response. List fetch failures
// are quiet: the view shows the degraded empty page. A token rejected by the backend
// logs the visitor out.
func (h *screenApi) settle(ctx echo.Context, code int, sc screen, err error) error {
	var mErr mutationError
	switch {
	case err == nil:
		return h.render(ctx, code, sc)
	case api.IsStatus(err, http.StatusUnauthorized):
		return h.s.forceLogout(ctx)
	case errors.As(err, &mErr):
		return h.render(ctx, http.StatusUnprocessableEntity, sc)
	case errors.Is(err, listing.ErrPageOutOfRange):
		return err
	case isFetchFailure(err):
		h.s.opts.Logger.Debug("portal: list fetch failed", err, map[string]interface{}{"screen": h.def.key()})
		return h.render(ctx, code, sc)
	default:
		return err
	}
}

// isFetchFailure tells whether err is a failed list fetch the screen can carry on from.
// A rejected token is not one.
func isFetchFailure(err error) bool {
	if api.IsStatus(err, http.StatusUnauthorized) {
		return false
	}
	var aErr *api.Error
	var sErr *api.ShapeError
	return errors.As(err, &aErr) || errors.As(err, &sErr)
}

func pageParam(ctx echo.Context) (int, bool, error) {
	raw := ctx.QueryParam("page")
	if raw == "" {
		return 0, false, nil
	}
	page, err := strconv.Atoi(raw)
	if err != nil || page < 0 {
		return 0, false, errInvalidPage
	}
	return page, true, nil
}

func idParam(ctx echo.Context) (int64, error) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errInvalidID
	}
	return id, nil
}

func decoder(ctx echo.Context) func(interface{}) error {
	return func(v interface{}) error { return ctx.Bind(v) }
}

// Handlers

func (h *screenApi) show(ctx echo.Context) error {
	page, paged, err := pageParam(ctx)
	if err != nil {
		return err
	}
	sc, fresh, err := h.screen(ctx, page)
	if !fresh {
		if paged {
			err = sc.changePage(ctx.Request().Context(), page)
		} else {
			err = sc.refresh(ctx.Request().Context())
		}
	}
	return h.settle(ctx, http.StatusOK, sc, err)
}

func (h *screenApi) filter(ctx echo.Context) error {
	filters := make(map[string]string)
	if err := ctx.Bind(&filters); err != nil {
		return errors.Wrap(err, "binding filters")
	}
	sc, _, err := h.screen(ctx, 0)
	if err == nil || isFetchFailure(err) {
		err = sc.setFilters(ctx.Request().Context(), filters)
	}
	return h.settle(ctx, http.StatusOK, sc, err)
}

func (h *screenApi) search(ctx echo.Context) error {
	var form searchForm
	if err := ctx.Bind(&form); err != nil {
		return errors.Wrap(err, "binding searchForm")
	}
	sc, _, err := h.screen(ctx, 0)
	if err == nil || isFetchFailure(err) {
		err = sc.submitSearch(ctx.Request().Context(), form.Keyword)
	}
	return h.settle(ctx, http.StatusOK, sc, err)
}

func (h *screenApi) clearFilters(ctx echo.Context) error {
	sc, fresh, err := h.screen(ctx, 0)
	if !fresh {
		err = sc.clearFilters(ctx.Request().Context())
	}
	return h.settle(ctx, http.StatusOK, sc, err)
}

func (h *screenApi) openDialog(ctx echo.Context) error {
	var form dialogForm
	if err := ctx.Bind(&form); err != nil {
		return errors.Wrap(err, "binding dialogForm")
	}
	kind, ok := listing.ParseDialogKind(form.Kind)
	if !ok || kind == listing.NoDialog {
		return errInvalidDialog
	}
	sc, _, err := h.screen(ctx, 0)
	if err != nil && !isFetchFailure(err) {
		return h.settle(ctx, http.StatusOK, sc, err)
	}
	// unlike list fetches, a record that cannot be opened is reported
	if err := sc.openDialog(ctx.Request().Context(), kind, form.ID); err != nil {
		if api.IsStatus(err, http.StatusUnauthorized) {
			return h.s.forceLogout(ctx)
		}
		return err
	}
	return h.render(ctx, http.StatusOK, sc)
}

func (h *screenApi) closeDialog(ctx echo.Context) error {
	sc, _, err := h.screen(ctx, 0)
	sc.closeDialog()
	return h.settle(ctx, http.StatusOK, sc, err)
}

func (h *screenApi) create(ctx echo.Context) error {
	sc, _, err := h.screen(ctx, 0)
	if err == nil || isFetchFailure(err) {
		err = sc.create(ctx.Request().Context(), decoder(ctx))
	}
	return h.settle(ctx, http.StatusCreated, sc, err)
}

func (h *screenApi) update(ctx echo.Context) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	sc, _, err := h.screen(ctx, 0)
	if err == nil || isFetchFailure(err) {
		err = sc.update(ctx.Request().Context(), id, decoder(ctx))
	}
	return h.settle(ctx, http.StatusOK, sc, err)
}

func (h *screenApi) destroy(ctx echo.Context) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	sc, _, err := h.screen(ctx, 0)
	if err == nil || isFetchFailure(err) {
		err = sc.delete(ctx.Request().Context(), id)
	}
	return h.settle(ctx, http.StatusOK, sc, err)
}

func (h *screenApi) toggleStatus(ctx echo.Context) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	sc, _, err := h.screen(ctx, 0)
	if err == nil || isFetchFailure(err) {
		err = sc.toggleStatus(ctx.Request().Context(), id)
	}
	return h.settle(ctx, http.StatusOK, sc, err)
}

func (h *screenApi) resetPassword(ctx echo.Context) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	var form resetPasswordForm
	if err := ctx.Bind(&form); err != nil {
		return errors.Wrap(err, "binding resetPasswordForm")
	}
	sc, _, err := h.screen(ctx, 0)
	if err == nil || isFetchFailure(err) {
		err = sc.resetPassword(ctx.Request().Context(), id, form.NewPassword)
	}
	return h.settle(ctx, http.StatusOK, sc, err)
}

// forceLogout ends a session the backend no longer accepts.
func (s *server) forceLogout(ctx echo.Context) error {
	ws := getWorkspace(ctx)
	if err := ws.gate.Logout(ctx.Request().Context()); err != nil {
		s.opts.Logger.Warn("portal: forced logout", err)
	}
	ws.unmount()
	d := session.Decision{Verdict: session.Redirect, Location: session.LoginPath}
	if ctx.Request().Method == http.MethodGet {
		d.From = ctx.Request().RequestURI
	}
	s.metrics.decision(d.Verdict)
	return respondDecision(ctx, d)
}
