package main

import (
	"context"
	"expvar"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"

	echoapi "github.com/ThumulaGamage/EduPlatform-backend/apps/api/echo"
	"github.com/ThumulaGamage/EduPlatform-backend/core"
	"github.com/ThumulaGamage/EduPlatform-backend/core/account"
	"github.com/ThumulaGamage/EduPlatform-backend/core/assignment"
	"github.com/ThumulaGamage/EduPlatform-backend/core/course"
	"github.com/ThumulaGamage/EduPlatform-backend/core/enrollment"
	"github.com/ThumulaGamage/EduPlatform-backend/core/guard"
	"github.com/ThumulaGamage/EduPlatform-backend/core/message"
	"github.com/ThumulaGamage/EduPlatform-backend/core/review"
	"github.com/ThumulaGamage/EduPlatform-backend/core/teacher"
	emailsvc "github.com/ThumulaGamage/EduPlatform-backend/services/email"
	logsvc "github.com/ThumulaGamage/EduPlatform-backend/services/logger"
	"github.com/ThumulaGamage/EduPlatform-backend/services/metrics"
	"github.com/ThumulaGamage/EduPlatform-backend/storage/database"
	b2store "github.com/ThumulaGamage/EduPlatform-backend/storage/files/b2"
	memstore "github.com/ThumulaGamage/EduPlatform-backend/storage/files/memory"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(logsvc.NewZerolog(os.Stdout, conf), conf)
	logger.Enable(!conf.Debug)

	store, err := database.Open(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = store.Close(context.Background()); err != nil {
			logger.Error("closing database", err)
		}
	}()
	if err = store.Migrate(context.Background()); err != nil {
		logger.Fatal(err.Error(), err)
	}

	blobs, err := openBlobStore(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up file storage: %v", err), err)
	}
	blobs = metrics.InstrumentBlobStore(blobs)

	var mailSvc core.EmailService
	if conf.Debug || conf.Email.SendgridAPIKey == "" {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate, translator := core.NewValidator()
	account.InitValidators(validate, translator)
	course.InitValidators(validate, translator)
	assignment.InitValidators(validate, translator)

	g := guard.MustNew()
	tokens := account.NewTokenIssuer(conf.SecretKey, conf.JWTExpirationDelta, conf.AppName)

	accountSvc := account.NewService(store.Accounts, tokens, validate)
	courseSvc := course.NewService(store.Courses, accountSvc, blobs, g, validate, logger)
	enrollmentSvc := enrollment.NewService(store.Enrollments, courseSvc, accountSvc, g, validate, mailSvc, logger)
	assignmentSvc := assignment.NewService(assignment.Deps{
		Assignments: store.Assignments,
		Submissions: store.Submissions,
		Courses:     courseSvc,
		Enrollments: enrollmentSvc,
		Accounts:    accountSvc,
		Blobs:       blobs,
		Guard:       g,
		Validate:    validate,
		Mailer:      mailSvc,
		Logger:      logger,
	})
	messageSvc := message.NewService(store.Messages, courseSvc, accountSvc, g, validate)
	reviewSvc := review.NewService(store.Reviews, courseSvc, enrollmentSvc, accountSvc, g, validate)
	teacherSvc := teacher.NewService(accountSvc, courseSvc, enrollmentSvc, g)

	courseSvc.OnDelete(enrollmentSvc.DeleteByCourse, assignmentSvc.DeleteByCourse, reviewSvc.DeleteByCourse)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(echoapi.ServerDeps{
		Conf:          conf,
		Logger:        logger,
		Translator:    translator,
		Guard:         g,
		DB:            store,
		AccountSvc:    accountSvc,
		CourseSvc:     courseSvc,
		EnrollmentSvc: enrollmentSvc,
		AssignmentSvc: assignmentSvc,
		MessageSvc:    messageSvc,
		ReviewSvc:     reviewSvc,
		TeacherSvc:    teacherSvc,
	})

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func openBlobStore(conf *core.Config) (core.BlobStore, error) {
	switch conf.Storage.Engine {
	case core.EngineB2:
		return b2store.Open(context.Background(), conf)
	case core.EngineMemory:
		return memstore.New(), nil
	default:
		return nil, fmt.Errorf("unknown storage engine %q", conf.Storage.Engine)
	}
}
