package main

import (
	"fmt"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/qacenter/qacenter/core"
	"github.com/qacenter/qacenter/core/rubric"
	"github.com/qacenter/qacenter/core/user"
	logsvc "github.com/qacenter/qacenter/services/logger"
	"github.com/qacenter/qacenter/storage/database"
	sqlxrepos "github.com/qacenter/qacenter/storage/database/sqlx"
)

func main() {
	conf, err := core.NewConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		os.Exit(1)
	}
	zl, err := logsvc.NewZapLogger(conf)
	if err != nil {
		fmt.Fprintf(os.Stderr, "setting up logger: %v\n", err)
		os.Exit(1)
	}
	logger := logsvc.NewRollbarLogger(zl, conf).Named("admin")

	os.Exit(run(conf, logger))
}

func run(conf *core.Config, logger *logsvc.RollbarLogger) int {
	defer func() { _ = logger.Sync() }()

	// set up DB
	if err := database.CreateIfNotExist(conf); err != nil {
		logger.Error("creating database", err)
		return 1
	}
	db, err := database.Open(conf)
	if err != nil {
		logger.Error("opening database", err)
		return 1
	}
	defer db.Close()

	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator)
	rubric.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	// start CLI
	cli := commandLine{
		db:         db,
		engine:     conf.Database.Engine,
		usrSvc:     user.NewService(sqlxrepos.NewUserRepository(db, conf.Database.Engine)),
		validate:   validate,
		translator: translator,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			fmt.Fprintf(os.Stderr, "\nerror: %s\n", err)
		}
		return 1
	}
	return 0
}
