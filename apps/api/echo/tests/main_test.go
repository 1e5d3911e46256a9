package tests

import (
	"io"
	"log"
	"os"
	"testing"

	. "github.com/mzalendo/daftari/apps/api/echo"
	"github.com/mzalendo/daftari/core"
	"github.com/mzalendo/daftari/core/journal"
	"github.com/mzalendo/daftari/core/session"
	"github.com/mzalendo/daftari/core/user"
	emailsvc "github.com/mzalendo/daftari/services/email"
	logsvc "github.com/mzalendo/daftari/services/logger"
	inmemdb "github.com/mzalendo/daftari/storage/database/inmem"
)

var (
	app      Server
	db       *inmemdb.DB
	usrRepo  user.Repository
	jrnRepo  journal.Repository
	usrSvc   user.Service
	jrnSvc   journal.Service
	denylist session.TokenDenylist

	errMissingToken = newHTTPErr("missing or malformed jwt")
)

func TestMain(m *testing.M) {
	core.Conf.TestMode = true
	core.Conf.Debug = false

	// set up DB & repos
	var err error
	db, err = inmemdb.Open()
	if err != nil {
		log.Fatalf("inmemdb.Open(): %v", err)
	}
	usrRepo = inmemdb.NewUserRepository(db)
	jrnRepo = inmemdb.NewJournalRepository(db)

	// set up services
	mailSvc := emailsvc.NewConsoleServiceMock()
	usrSvc = user.NewServiceMock(usrRepo, mailSvc)
	jrnSvc = journal.NewService(jrnRepo, usrSvc)
	denylist = session.NewMemoryDenylist()

	// set up server
	app = NewServer(
		"",  /* addr */
		nil, /* shutdown */
		&Deps{
			Logger:     logsvc.NewStdLogger(log.New(io.Discard, "", 0)),
			UserSvc:    usrSvc,
			JournalSvc: jrnSvc,
			Denylist:   denylist,
		},
	)

	os.Exit(m.Run())
}
