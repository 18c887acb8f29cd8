package main

import (
	stdlog "log"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	echoapi "github.com/peerval/peerval/apps/api/echo"
	"github.com/peerval/peerval/core"
	"github.com/peerval/peerval/core/evaluation"
	"github.com/peerval/peerval/core/student"
	logsvc "github.com/peerval/peerval/services/logger"
	"github.com/peerval/peerval/storage/database"
	sqlxrepos "github.com/peerval/peerval/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()

	std := stdlog.New(os.Stdout, "API : ", stdlog.LstdFlags|stdlog.Lmicroseconds|stdlog.Lshortfile)

	// set up logger
	var logger core.Logger
	if conf.Debug || conf.TestMode {
		logger = logsvc.NewConsoleLogger(std)
	} else {
		logger = logsvc.NewRollbarLogger(std, conf)
	}

	// set up DB
	db, err := database.Open(conf)
	errAndDie(err, logger)
	defer func() { _ = db.Close() }()
	errAndDie(database.Ping(db), logger)

	// set up services
	validate := newValidator()
	studentSvc := student.NewService(sqlxrepos.NewStudentRepository(db), logger)
	evalSvc := evaluation.NewService(sqlxrepos.NewEvaluationRepository(db, logger), studentSvc, validate, logger)

	// start API server
	app := echoapi.NewServer(
		&echoapi.Options{
			Addr:       conf.Server.Addr,
			Conf:       conf,
			Logger:     logger,
			StudentSvc: studentSvc,
			EvalSvc:    evalSvc,
		},
	)
	logger.Info("starting server on " + conf.Server.Addr)
	app.Start()
}

func newValidator() *validator.Validate {
	enLocale := en.New()
	uni := ut.New(enLocale, enLocale)
	translator, _ := uni.GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator)
	return validate
}

func errAndDie(err error, logger core.Logger) {
	if err != nil {
		logger.Fatal(err.Error())
	}
}
