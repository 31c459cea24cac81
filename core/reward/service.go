package reward

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/lophoc/core"
	"github.com/trezcool/lophoc/core/classroom"
	"github.com/trezcool/lophoc/core/student"
)

var (
	ErrNotFound        = errors.New("reward not found")
	ErrNotEnoughPoints = errors.New("not enough points")
	ErrOtherClassroom  = errors.New("reward belongs to another classroom")
)

type (
	Repository interface {
		CreateReward(ctx context.Context, r Reward) (Reward, error)
		// QueryRewards returns a classroom's rewards, cheapest first.
		QueryRewards(ctx context.Context, classroomID string) ([]Reward, error)
		GetReward(ctx context.Context, id string) (Reward, error)
		DeleteReward(ctx context.Context, id string) error
	}

	Service struct {
		repo          Repository
		classroomRepo classroom.Repository
		studentRepo   student.Repository
		studentSvc    *student.Service
	}
)

func NewService(
	repo Repository,
	classroomRepo classroom.Repository,
	studentRepo student.Repository,
	studentSvc *student.Service,
) *Service {
	return &Service{
		repo:          repo,
		classroomRepo: classroomRepo,
		studentRepo:   studentRepo,
		studentSvc:    studentSvc,
	}
}

func (svc *Service) Create(ctx context.Context, classroomID string, nr NewReward) (Reward, error) {
	if _, err := svc.classroomRepo.GetClassroom(ctx, classroomID); err != nil {
		return Reward{}, errors.Wrap(err, "getting classroom")
	}
	return svc.repo.CreateReward(ctx, Reward{
		ID:             uuid.NewString(),
		ClassroomID:    classroomID,
		Name:           nr.Name,
		Description:    nr.Description,
		Icon:           nr.Icon,
		PointsRequired: nr.PointsRequired,
		CreatedAt:      time.Now().UTC(),
	})
}

func (svc *Service) Query(ctx context.Context, classroomID string) ([]Reward, error) {
	return svc.repo.QueryRewards(ctx, classroomID)
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteReward(ctx, id)
}

// Redeem exchanges the student's points for the reward.
// The deduction, its history entry and the redemption record are stored together or not at all.
func (svc *Service) Redeem(ctx context.Context, rr RedeemRequest) (RedeemResult, error) {
	rwd, err := svc.repo.GetReward(ctx, rr.RewardID)
	if err != nil {
		return RedeemResult{}, errors.Wrap(err, "getting reward")
	}

	s, _, err := svc.studentRepo.UpdatePoints(ctx, rr.StudentID, func(current student.Student) (student.PointsUpdate, error) {
		if current.ClassroomID != rwd.ClassroomID {
			return student.PointsUpdate{}, core.NewValidationError(ErrOtherClassroom)
		}
		if !CanAfford(current, rwd) {
			return student.PointsUpdate{}, core.NewValidationError(fmt.Errorf(
				"%w: need %d, have %d", ErrNotEnoughPoints, rwd.PointsRequired, current.TotalPoints,
			))
		}
		return student.PointsUpdate{
			Change: -rwd.PointsRequired,
			Reason: RedeemReason(rwd.Name),
			Redemption: &student.Redemption{
				RewardID:    rwd.ID,
				RewardName:  rwd.Name,
				PointsSpent: rwd.PointsRequired,
			},
		}, nil
	})
	if err != nil {
		return RedeemResult{}, errors.Wrap(err, "redeeming points")
	}
	svc.studentSvc.InvalidateRankings(ctx, s.ClassroomID)

	return RedeemResult{Student: s, Message: RedeemMessage(s.TotalPoints)}, nil
}

// RedeemReason is the history reason recorded for a redemption.
func RedeemReason(rewardName string) string {
	return "Đổi quà: " + rewardName
}

// RedeemMessage is shown after a successful redemption.
func RedeemMessage(pointsLeft int) string {
	return fmt.Sprintf("Reward redeemed! %d points left", pointsLeft)
}
