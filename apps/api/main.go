package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"

	echoapi "github.com/mzalendo/daftari/apps/api/echo"
	"github.com/mzalendo/daftari/core"
	"github.com/mzalendo/daftari/core/journal"
	"github.com/mzalendo/daftari/core/session"
	"github.com/mzalendo/daftari/core/user"
	emailsvc "github.com/mzalendo/daftari/services/email"
	logsvc "github.com/mzalendo/daftari/services/logger"
	"github.com/mzalendo/daftari/storage/database"
	sqlxrepos "github.com/mzalendo/daftari/storage/database/sqlx"
	redisstore "github.com/mzalendo/daftari/storage/redis"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.Conf

	// set up logger
	var logger core.Logger
	std := log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	if conf.Debug {
		logger = logsvc.NewStdLogger(std)
	} else {
		logger = logsvc.NewRollbarLogger(std, conf)
	}

	// set up DB
	db, err := setUpDB(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			logger.Error("closing database", err)
		}
	}()

	// set up token denylist; fall back to the in-process one when Redis
	// is not configured
	var denylist session.TokenDenylist
	if conf.Redis.URL != "" {
		rdb, err := redisstore.NewClient(conf.Redis.URL)
		if err != nil {
			logger.Fatal(fmt.Sprintf("connecting to redis: %v", err), err)
		}
		defer rdb.Close()
		denylist = redisstore.NewDenylist(rdb)
	} else {
		denylist = session.NewMemoryDenylist()
	}

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService()
	} else {
		mailSvc = emailsvc.NewSendgridService(logger)
	}
	usrSvc := user.NewService(sqlxrepos.NewUserRepository(db), mailSvc)
	jrnSvc := journal.NewService(sqlxrepos.NewJournalRepository(db), usrSvc)

	// =========================================================================
	// Start API Service

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	server := echoapi.NewServer(conf.Server.Addr, shutdown, &echoapi.Deps{
		Logger:     logger,
		UserSvc:    usrSvc,
		JournalSvc: jrnSvc,
		Denylist:   denylist,
	})

	go server.Start()

	// =========================================================================
	// Shutdown

	sig := <-shutdown
	logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

	// give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err = server.Stop(ctx); err != nil {
		logger.Fatal(fmt.Sprintf("could not stop server gracefully: %v", err), err)
	}
}

func setUpDB(conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db.DB); err != nil {
		return nil, err
	}
	return db, nil
}
