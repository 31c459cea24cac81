package testutil

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/lophoc/core"
	"github.com/trezcool/lophoc/core/classroom"
	"github.com/trezcool/lophoc/core/reward"
	"github.com/trezcool/lophoc/core/student"
	"github.com/trezcool/lophoc/core/user"
	logsvc "github.com/trezcool/lophoc/services/logger"
	inmemdb "github.com/trezcool/lophoc/storage/database/inmem"
)

// App holds services wired on an in-memory database.
type App struct {
	Conf     *core.Config
	Logger   core.Logger
	Validate *validator.Validate
	DB       *inmemdb.DB

	ClassroomRepo classroom.Repository
	StudentRepo   student.Repository
	RewardRepo    reward.Repository
	UserRepo      user.Repository

	ClassroomSvc *classroom.Service
	StudentSvc   *student.Service
	RewardSvc    *reward.Service
	UserSvc      *user.Service
}

func NewApp() *App {
	conf := core.NewTestConfig()
	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	db := inmemdb.Open()
	app := &App{
		Conf:          conf,
		Logger:        logger,
		Validate:      validate,
		DB:            db,
		ClassroomRepo: inmemdb.NewClassroomRepository(db),
		StudentRepo:   inmemdb.NewStudentRepository(db),
		RewardRepo:    inmemdb.NewRewardRepository(db),
		UserRepo:      inmemdb.NewUserRepository(db),
	}
	app.StudentSvc = student.NewService(app.StudentRepo, app.ClassroomRepo, nil, logger, conf)
	app.ClassroomSvc = classroom.NewService(app.ClassroomRepo, app.StudentSvc)
	app.RewardSvc = reward.NewService(app.RewardRepo, app.ClassroomRepo, app.StudentRepo, app.StudentSvc)
	app.UserSvc = user.NewService(app.UserRepo)
	return app
}

func (app *App) CreateClassroom(t *testing.T, name string) classroom.Classroom {
	c, err := app.ClassroomSvc.Create(context.Background(), classroom.NewClassroom{Name: name})
	if err != nil {
		t.Fatalf("createClassroom() failed: %v", err)
	}
	return c
}

func (app *App) CreateStudent(t *testing.T, classroomID, name string, orderNumber, points int) student.Student {
	s, err := app.StudentSvc.Create(context.Background(), classroomID, student.NewStudent{
		Name:        name,
		OrderNumber: orderNumber,
		TotalPoints: points,
	})
	if err != nil {
		t.Fatalf("createStudent() failed: %v", err)
	}
	return s
}

func (app *App) CreateReward(t *testing.T, classroomID, name string, cost int) reward.Reward {
	r, err := app.RewardSvc.Create(context.Background(), classroomID, reward.NewReward{Name: name, PointsRequired: cost})
	if err != nil {
		t.Fatalf("createReward() failed: %v", err)
	}
	return r
}

func (app *App) ChangePoints(t *testing.T, studentID string, change int, reason string) student.ChangeResult {
	res, err := app.StudentSvc.ChangePoints(context.Background(), studentID, student.PointChange{Change: change, Reason: reason})
	if err != nil {
		t.Fatalf("changePoints() failed: %v", err)
	}
	return res
}

func CreateUser(t *testing.T, repo user.Repository, name, uname, pwd string, isActive bool, createdAt ...time.Time) user.User {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		ID:        uname,
		Name:      name,
		Username:  uname,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("createUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	return usr
}
