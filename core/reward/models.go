package reward

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/lophoc/core"
	"github.com/trezcool/lophoc/core/student"
)

const DefaultIcon = "🎁"

type Reward struct {
	ID             string    `json:"id"`
	ClassroomID    string    `json:"classroom_id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	Icon           string    `json:"icon"`
	PointsRequired int       `json:"points_required"`
	CreatedAt      time.Time `json:"created_at"` // UTC
}

// NewReward contains information needed to create a new Reward.
type NewReward struct {
	Name           string `json:"name" validate:"required,notblank,max=100"`
	Description    string `json:"description"`
	Icon           string `json:"icon"`
	PointsRequired int    `json:"points_required" validate:"gt=0"`
}

func (nr *NewReward) Validate(validate *validator.Validate) error {
	nr.Name = core.CleanString(nr.Name)
	nr.Description = core.CleanString(nr.Description)
	nr.Icon = core.CleanString(nr.Icon)
	if nr.Icon == "" {
		nr.Icon = DefaultIcon
	}
	return validate.Struct(nr)
}

type RedeemRequest struct {
	StudentID string `json:"student_id" validate:"required"`
	RewardID  string `json:"reward_id" validate:"required"`
}

func (rr *RedeemRequest) Validate(validate *validator.Validate) error {
	rr.StudentID = core.CleanString(rr.StudentID)
	rr.RewardID = core.CleanString(rr.RewardID)
	return validate.Struct(rr)
}

type RedeemResult struct {
	Student student.Student `json:"student"`
	Message string          `json:"message"`
}

// CanAfford reports whether s has enough points for r.
func CanAfford(s student.Student, r Reward) bool {
	return s.TotalPoints >= r.PointsRequired
}

// PreviewBalance returns the total s would have left after redeeming r. It may be negative.
func PreviewBalance(s student.Student, r Reward) int {
	return s.TotalPoints - r.PointsRequired
}
