package dig_container

import (
	"context"
	"fmt"
	"log"
	"os"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/lophoc/apps/api/echo"
	"github.com/trezcool/lophoc/core"
	"github.com/trezcool/lophoc/core/classroom"
	"github.com/trezcool/lophoc/core/reward"
	"github.com/trezcool/lophoc/core/student"
	"github.com/trezcool/lophoc/core/user"
	logsvc "github.com/trezcool/lophoc/services/logger"
	"github.com/trezcool/lophoc/services/spreadsheet"
	rediscache "github.com/trezcool/lophoc/storage/cache/redis"
	"github.com/trezcool/lophoc/storage/database"
	inmemdb "github.com/trezcool/lophoc/storage/database/inmem"
	sqlxrepos "github.com/trezcool/lophoc/storage/database/sqlx"
)

// MemoryEngine keeps everything in process memory; nothing survives a restart.
const MemoryEngine = "memory"

type (
	DBLoggerParam struct {
		dig.In
		Logger core.Logger `name:"dbLogger"`
	}

	// Repositories are provided together since they share one store.
	Repositories struct {
		dig.Out
		Classroom classroom.Repository
		Student   student.Repository
		Reward    reward.Repository
		User      user.Repository
	}

	// Shutdown is closed by the server when a request hits a core.shutdown error.
	Shutdown chan os.Signal
)

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags)
	return logsvc.NewRollbarLogger(stdLogger, conf)
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	return logsvc.NewRollbarLogger(stdLogger, conf)
}

// newDB creates, opens and migrates the database; nil with the memory engine.
func newDB(conf *core.Config, loggerParam DBLoggerParam) *sqlx.DB {
	if conf.Database.Engine == MemoryEngine {
		return nil
	}

	setUp := func() (*sqlx.DB, error) {
		if err := database.CreateIfNotExist(context.Background(), conf); err != nil {
			return nil, err
		}

		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}

		if err = database.Migrate(db); err != nil {
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return db
}

func newRepositories(db *sqlx.DB) Repositories {
	if db == nil {
		mem := inmemdb.Open()
		return Repositories{
			Classroom: inmemdb.NewClassroomRepository(mem),
			Student:   inmemdb.NewStudentRepository(mem),
			Reward:    inmemdb.NewRewardRepository(mem),
			User:      inmemdb.NewUserRepository(mem),
		}
	}
	return Repositories{
		Classroom: sqlxrepos.NewClassroomRepository(db),
		Student:   sqlxrepos.NewStudentRepository(db),
		Reward:    sqlxrepos.NewRewardRepository(db),
		User:      sqlxrepos.NewUserRepository(db),
	}
}

// newRedisClient returns nil when the rankings cache is disabled.
func newRedisClient(conf *core.Config) *redis.Client {
	if !conf.Redis.Enabled {
		return nil
	}
	return rediscache.NewClient(conf)
}

func newRankingsCache(client *redis.Client, conf *core.Config, logger core.Logger) student.RankingsCache {
	if client == nil {
		return nil
	}
	cache := rediscache.NewRankingsCache(client, conf)
	if err := cache.Ping(context.Background()); err != nil {
		logger.Warn("redis unreachable, rankings will be computed on every request", err)
	}
	return cache
}

func newValidator(translator ut.Translator) *validator.Validate {
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	return validate
}

func newShutdown() Shutdown {
	return make(Shutdown, 1)
}

func newServer(
	conf *core.Config,
	logger core.Logger,
	validate *validator.Validate,
	translator ut.Translator,
	shutdown Shutdown,
	classroomSvc *classroom.Service,
	studentSvc *student.Service,
	rewardSvc *reward.Service,
	userSvc *user.Service,
	spreadsheetSvc *spreadsheet.Service,
) echoapi.Server {
	return echoapi.NewServer(&echoapi.Options{
		Conf:       conf,
		Logger:     logger,
		Validate:   validate,
		Translator: translator,
		SignalShutdown: func() {
			select {
			case shutdown <- syscall.SIGTERM:
			default:
			}
		},
		ClassroomSvc:   classroomSvc,
		StudentSvc:     studentSvc,
		RewardSvc:      rewardSvc,
		UserSvc:        userSvc,
		SpreadsheetSvc: spreadsheetSvc,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newDB))
	must(c.Provide(newRepositories))
	must(c.Provide(newRedisClient))
	must(c.Provide(newRankingsCache))
	must(c.Provide(core.NewTranslator))
	must(c.Provide(newValidator))
	must(c.Provide(student.NewService))
	must(c.Provide(func(svc *student.Service) classroom.RankingsInvalidator { return svc }))
	must(c.Provide(classroom.NewService))
	must(c.Provide(reward.NewService))
	must(c.Provide(user.NewService))
	must(c.Provide(spreadsheet.NewService))
	must(c.Provide(newShutdown))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
