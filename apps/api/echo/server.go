package echoapi

import (
	"context"
	"net/http"
	"strconv"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/lophoc/core"
	"github.com/trezcool/lophoc/core/classroom"
	"github.com/trezcool/lophoc/core/reward"
	"github.com/trezcool/lophoc/core/student"
	"github.com/trezcool/lophoc/core/user"
	"github.com/trezcool/lophoc/services/spreadsheet"
)

type (
	Options struct {
		Conf           *core.Config
		Logger         core.Logger
		Validate       *validator.Validate
		Translator     ut.Translator
		DisableReqLogs bool
		SignalShutdown func()

		ClassroomSvc   *classroom.Service
		StudentSvc     *student.Service
		RewardSvc      *reward.Service
		UserSvc        *user.Service
		SpreadsheetSvc *spreadsheet.Service
	}

	Server interface {
		http.Handler
		Start() error
		Stop(context.Context) error
	}

	server struct {
		opts *Options
		auth *Auth
		app  *echo.Echo
	}
)

var _ Server = (*server)(nil)

func NewServer(opts *Options) Server {
	if opts.SignalShutdown == nil {
		opts.SignalShutdown = func() {}
	}
	s := &server{
		opts: opts,
		auth: NewAuth(opts.Conf),
		app:  echo.New(),
	}
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.opts.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(middleware.CORSWithConfig(middleware.CORSConfig{AllowOrigins: conf.Server.CORSOrigins}))

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger, s.opts.Translator, s.opts.SignalShutdown)
	s.app.Debug = conf.Debug

	api := s.app.Group("/api")
	api.GET("/health", s.health)

	jwt := s.auth.Middleware()
	registerUserAPI(api, jwt, s.auth, s.opts.UserSvc, s.opts.Validate)

	var authed []echo.MiddlewareFunc
	if conf.Server.AuthEnabled {
		authed = append(authed, jwt, activeUserMiddleware(s.opts.UserSvc))
	}
	ag := api.Group("", authed...)

	registerClassroomAPI(ag, s.opts.ClassroomSvc, s.opts.Validate)
	registerStudentAPI(ag, s.opts.StudentSvc, s.opts.Validate)
	registerRewardAPI(ag, s.opts.RewardSvc, s.opts.Validate)
	registerExcelAPI(ag, s.opts.SpreadsheetSvc, conf.Server.MaxUploadSize)
}

func (s *server) Start() error {
	return s.app.Start(s.opts.Conf.Server.Address)
}

func (s *server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

type (
	HealthResponse struct {
		Status string `json:"status"`
		App    string `json:"app"`
		Build  string `json:"build"`
	}

	MessageResponse struct {
		Message string `json:"message"`
	}
)

func (s *server) health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, HealthResponse{Status: "ok", App: s.opts.Conf.AppName, Build: s.opts.Conf.Build})
}

func bodyLimit(size int64) echo.MiddlewareFunc {
	return middleware.BodyLimit(strconv.FormatInt(size, 10))
}
