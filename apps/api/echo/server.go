package echoapi

import (
	"context"
	"net/http"
	"os"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/mzalendo/daftari/core"
	"github.com/mzalendo/daftari/core/journal"
	"github.com/mzalendo/daftari/core/session"
	"github.com/mzalendo/daftari/core/user"
)

type (
	// Deps holds the services the API server depends on.
	Deps struct {
		Logger     core.Logger
		UserSvc    user.Service
		JournalSvc journal.Service
		Denylist   session.TokenDenylist
	}

	Server interface {
		http.Handler
		Start()
		Stop(context.Context) error
	}

	server struct {
		addr     string
		shutdown chan os.Signal
		deps     *Deps
		app      *echo.Echo
	}
)

var _ Server = (*server)(nil)

func NewServer(addr string, shutdown chan os.Signal, deps *Deps) Server {
	s := &server{
		addr:     addr,
		shutdown: shutdown,
		deps:     deps,
		app:      echo.New(),
	}
	s.setup()
	return s
}

func (s *server) setup() {
	s.app.Pre(middleware.RemoveTrailingSlash())
	s.app.Use(legacyAuthHeaderMiddleware())
	if !core.Conf.TestMode {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(core.Conf.Debug || core.Conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	validate, translator := core.NewValidator()
	user.RegisterValidators(validate, translator)
	journal.RegisterValidators(validate)

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, translator, s.signalShutdown)
	s.app.Debug = core.Conf.Debug

	s.app.GET("/", home)
	s.app.GET("/login", loginPage)
	s.app.GET("/admin", adminPage)

	api := s.app.Group("/api")
	jwt := appJWTMiddleware()

	usrAPI := registerUserAPI(api, jwt, s.deps.UserSvc, s.deps.Denylist, validate, translator)
	registerJournalAPI(api, jwt, s.deps.JournalSvc, s.deps.UserSvc, s.deps.Denylist, validate)

	// logout is deliberately un-authed; an expired token should still log out cleanly
	s.app.POST("/logout", usrAPI.logout)
}

// signalShutdown sends the shutdown signal when an unrecoverable error is caught.
func (s *server) signalShutdown() {
	if s.shutdown != nil {
		s.shutdown <- syscall.SIGTERM
	}
}

func (s *server) Start() {
	s.app.Logger.Fatal(s.app.Start(s.addr))
}

func (s *server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to the Daftari API!")
}

func loginPage(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Daftari - Sign In")
}

// adminPage only serves admins; everyone else is bounced to the login page.
func adminPage(ctx echo.Context) error {
	if raw := readRequestToken(ctx); raw != "" {
		if claims, err := parseToken(raw); err == nil && claims.IsAdmin {
			return ctx.String(http.StatusOK, "Daftari - Administration")
		}
	}
	return ctx.Redirect(http.StatusFound, "/login")
}
