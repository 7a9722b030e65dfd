package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ThumulaGamage/EduPlatform-backend/core"
	"github.com/ThumulaGamage/EduPlatform-backend/core/account"
	"github.com/ThumulaGamage/EduPlatform-backend/core/assignment"
	"github.com/ThumulaGamage/EduPlatform-backend/core/course"
	"github.com/ThumulaGamage/EduPlatform-backend/core/enrollment"
	"github.com/ThumulaGamage/EduPlatform-backend/core/guard"
	"github.com/ThumulaGamage/EduPlatform-backend/core/message"
	"github.com/ThumulaGamage/EduPlatform-backend/core/review"
	"github.com/ThumulaGamage/EduPlatform-backend/core/teacher"
)

type (
	// Pinger reports whether the backing store is reachable.
	Pinger interface {
		Ping(ctx context.Context) error
	}

	ServerDeps struct {
		Conf       *core.Config
		Logger     core.Logger
		Translator ut.Translator
		Guard      *guard.Guard
		DB         Pinger

		AccountSvc    *account.Service
		CourseSvc     *course.Service
		EnrollmentSvc *enrollment.Service
		AssignmentSvc *assignment.Service
		MessageSvc    *message.Service
		ReviewSvc     *review.Service
		TeacherSvc    *teacher.Service
	}

	Server struct {
		deps     ServerDeps
		app      *echo.Echo
		errors   chan error
		shutdown chan os.Signal
	}
)

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		deps:     deps,
		app:      echo.New(),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Debug = conf.Debug
	s.app.Logger.SetLevel(log.INFO)

	s.app.Pre(middleware.RemoveTrailingSlash())
	s.app.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: newRequestID}))
	if !conf.TestMode {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(middleware.CORS())
	if conf.Server.BodyLimit != "" {
		s.app.Use(middleware.BodyLimit(conf.Server.BodyLimit))
	}
	s.app.Use(metricsMiddleware())

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)

	s.app.GET("/", home)
	s.app.GET("/health", s.health)
	s.app.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	auth := authMiddleware(s.deps.AccountSvc)

	registerAccountAPI(s.app.Group(""), auth, s.deps.AccountSvc, s.deps.Guard)
	registerCourseAPI(s.app.Group("/courses"), auth, s.deps.CourseSvc)
	registerMaterialAPI(s.app.Group("/materials"), auth, s.deps.CourseSvc)
	registerEnrollmentAPI(s.app.Group("/enrollments", auth), s.deps.EnrollmentSvc)
	registerAssignmentAPI(s.app.Group("/api", auth), s.deps.AssignmentSvc)
	registerMessageAPI(s.app.Group("/messages", auth), s.deps.MessageSvc)
	registerReviewAPI(s.app.Group("/reviews"), auth, s.deps.ReviewSvc)
	registerTeacherAPI(s.app.Group("/teachers"), auth, s.deps.TeacherSvc)
}

// Start listens on the configured address. Listener failures are reported on Errors.
func (s *Server) Start() {
	if err := s.app.Start(s.deps.Conf.Server.Host); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error {
	return s.errors
}

func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	signal.Stop(s.shutdown)
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	signal.Stop(s.shutdown)
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to EduPlatform API!")
}

func (s *Server) health(ctx echo.Context) error {
	status, code := "ok", http.StatusOK
	if s.deps.DB != nil {
		if err := s.deps.DB.Ping(ctx.Request().Context()); err != nil {
			s.deps.Logger.Warn("health check: database unreachable", err)
			status, code = "unavailable", http.StatusServiceUnavailable
		}
	}
	return ctx.JSON(code, echo.Map{"status": status, "build": s.deps.Conf.Build})
}
