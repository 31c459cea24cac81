package classroom

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

var ErrNotFound = errors.New("classroom not found")

type (
	Repository interface {
		CreateClassroom(ctx context.Context, c Classroom) (Classroom, error)
		// QueryClassrooms returns every classroom with its StudentCount, oldest first.
		QueryClassrooms(ctx context.Context) ([]Classroom, error)
		GetClassroom(ctx context.Context, id string) (Classroom, error)
		// DeleteClassroom removes the classroom along with its students, rewards and their history.
		DeleteClassroom(ctx context.Context, id string) error
	}

	// RankingsInvalidator drops the cached leaderboard of a classroom.
	RankingsInvalidator interface {
		InvalidateRankings(ctx context.Context, classroomID string)
	}

	Service struct {
		repo     Repository
		rankings RankingsInvalidator
	}
)

// NewService returns the classroom Service. rankings may be nil.
func NewService(repo Repository, rankings RankingsInvalidator) *Service {
	return &Service{repo: repo, rankings: rankings}
}

func (svc *Service) Create(ctx context.Context, nc NewClassroom) (Classroom, error) {
	c := Classroom{
		ID:        uuid.NewString(),
		Name:      nc.Name,
		CreatedAt: time.Now().UTC(),
	}
	return svc.repo.CreateClassroom(ctx, c)
}

func (svc *Service) Query(ctx context.Context) ([]Classroom, error) {
	return svc.repo.QueryClassrooms(ctx)
}

func (svc *Service) Get(ctx context.Context, id string) (Classroom, error) {
	return svc.repo.GetClassroom(ctx, id)
}

// Delete removes the classroom with everything in it; its cached leaderboard is dropped afterwards.
func (svc *Service) Delete(ctx context.Context, id string) error {
	if err := svc.repo.DeleteClassroom(ctx, id); err != nil {
		return err
	}
	if svc.rankings != nil {
		svc.rankings.InvalidateRankings(ctx, id)
	}
	return nil
}
