package echoportal

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/NVK2907/sms-app-sub000/core"
	"github.com/NVK2907/sms-app-sub000/core/session"
	"github.com/NVK2907/sms-app-sub000/services/api"
	"github.com/NVK2907/sms-app-sub000/storage/sessionstore"
)

type (
	Options struct {
		Address        string
		DisableReqLogs bool
		Logger         core.Logger
		Sessions       sessionstore.Backend
		API            *api.Client
		CookieName     string
		LoginRate      string        // eg. "10-M"
		MetricsPath    string        // empty disables metrics
		NotifyTTL      time.Duration // lifetime of notifications
		InitWait       time.Duration // how long a request waits for a session still loading
		IdleTimeout    time.Duration // workspaces unused for that long are dropped
		PageSize       int
	}

	Server interface {
		http.Handler
		Start() error
		Stop(context.Context) error
	}

	server struct {
		opts       *Options
		app        *echo.Echo
		workspaces *workspaces
		metrics    *metrics
	}
)

var _ Server = (*server)(nil)

func NewServer(opts *Options) (Server, error) {
	if opts.Logger == nil {
		opts.Logger = core.NopLogger{}
	}
	if opts.CookieName == "" {
		opts.CookieName = core.Conf.Portal.CookieName
	}
	if opts.InitWait <= 0 {
		opts.InitWait = 2 * time.Second
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = 24 * time.Hour
	}
	s := &server{
		opts:    opts,
		app:     echo.New(),
		metrics: newMetrics(),
	}
	s.workspaces = newWorkspaces(opts, s.metrics)
	if err := s.setup(); err != nil {
		s.workspaces.close()
		return nil, err
	}
	return s, nil
}

func (s *server) setup() error {
	debug := core.Conf.Debug

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(debug || core.Conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	if s.opts.MetricsPath != "" {
		s.app.Use(s.metrics.middleware)
		s.app.GET(s.opts.MetricsPath, s.metrics.handler())
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger)
	s.app.Debug = debug

	rateLimit, err := newRateLimiter(s.opts.LoginRate)
	if err != nil {
		return err
	}

	app := s.app.Group("", s.workspaceMiddleware)
	app.GET("/", s.root)
	app.GET(session.LoginPath, s.loginView)
	app.POST(session.LoginPath, s.login, rateLimit)
	app.POST("/logout", s.logout)
	app.POST("/register", s.register, rateLimit)
	app.DELETE("/notifications/:id", s.dismissNotification)

	for _, role := range []session.Role{session.RoleAdmin, session.RoleTeacher, session.RoleStudent} {
		g := app.Group("/"+role.String(), s.gateMiddleware(role))
		g.GET("/dashboard", s.dashboard)
		for _, def := range screensOf(role) {
			s.registerScreen(g, def)
		}
	}
	return nil
}

func (s *server) Start() error {
	err := s.app.Start(s.opts.Address)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *server) Stop(ctx context.Context) error {
	err := s.app.Shutdown(ctx)
	s.workspaces.close()
	return err
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}
