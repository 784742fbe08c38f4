package main

import (
	"context"
	"database/sql"
	"expvar"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	echoapi "github.com/qacenter/qacenter/apps/api/echo"
	"github.com/qacenter/qacenter/assets"
	"github.com/qacenter/qacenter/core"
	"github.com/qacenter/qacenter/core/evaluation"
	"github.com/qacenter/qacenter/core/rubric"
	"github.com/qacenter/qacenter/core/user"
	emailsvc "github.com/qacenter/qacenter/services/email"
	exportsvc "github.com/qacenter/qacenter/services/export"
	logsvc "github.com/qacenter/qacenter/services/logger"
	metricsvc "github.com/qacenter/qacenter/services/metrics"
	"github.com/qacenter/qacenter/storage/database"
	sqlxrepos "github.com/qacenter/qacenter/storage/database/sqlx"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf, err := core.NewConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		os.Exit(1)
	}

	// set up loggers
	zl, err := logsvc.NewZapLogger(conf)
	if err != nil {
		fmt.Fprintf(os.Stderr, "setting up logger: %v\n", err)
		os.Exit(1)
	}
	rootLogger := logsvc.NewRollbarLogger(zl, conf)
	rootLogger.Enable(!conf.Debug)
	defer func() { _ = rootLogger.Sync() }()

	logger := rootLogger.Named("api")
	dbLogger := rootLogger.Named("db")

	// set up DB
	db, err := setUpDB(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			dbLogger.Error("failed to close", err)
		}
	}()

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)
	rubric.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	evaluation.InitValidators(validate, translator)

	core.ParseEmailTemplates(assets.FS, conf, logger)

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf)
	}
	metrics := metricsvc.NewManager()

	usrSvc := user.NewService(sqlxrepos.NewUserRepository(db, conf.Database.Engine))
	evalSvc := evaluation.NewService(evaluation.ServiceDeps{
		DB:       db,
		Repo:     sqlxrepos.NewEvaluationRepository(db, conf.Database.Engine),
		UserSvc:  usrSvc,
		Validate: validate,
		MailSvc:  mailSvc,
		Exporter: exportsvc.NewXLSXExporter(),
		Recorder: metrics,
		Logger:   logger,
		Conf:     conf,
	})

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugAddress, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:          conf,
			Logger:        logger,
			ZapLogger:     logger.Zap(),
			UserSvc:       usrSvc,
			EvaluationSvc: evalSvc,
			Metrics:       metrics,
			Validate:      validate,
			Translator:    translator,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Error(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Error(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpDB(conf *core.Config) (*sql.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(context.Background(), db, conf.Database.Engine); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}
