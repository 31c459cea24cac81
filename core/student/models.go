package student

import (
	"encoding/json"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/lophoc/core"
	"github.com/trezcool/lophoc/core/rank"
)

var (
	ErrEmptyName      = errors.New("student name cannot be blank")
	ErrZeroChange     = errors.New("point change cannot be zero")
	ErrReasonRequired = errors.New("a reason is required when deducting points")
	ErrReasonTooLong  = errors.New("reason must be at most 255 characters")
	ErrNegativePoints = errors.New("points cannot be negative")
)

const maxReasonLen = 255

type Student struct {
	ID          string    `json:"id"`
	ClassroomID string    `json:"classroom_id"`
	Name        string    `json:"name"`
	OrderNumber int       `json:"order_number"`
	TotalPoints int       `json:"total_points"`
	Avatar      string    `json:"avatar"` // empty when the student has no custom avatar
	CreatedAt   time.Time `json:"created_at"` // UTC
}

// Rank returns the tier of the student's current total.
func (s Student) Rank() rank.Tier {
	return rank.TierOf(s.TotalPoints)
}

// AvatarURL returns the custom avatar, or the default one derived from the name.
func (s Student) AvatarURL() string {
	if s.Avatar != "" {
		return s.Avatar
	}
	return DefaultAvatar(s.Name)
}

// MarshalJSON adds the derived rank and avatar_url; avatar keeps the stored value.
// Both are output only, decoding a Student ignores them.
func (s Student) MarshalJSON() ([]byte, error) {
	type student Student
	return json.Marshal(struct {
		student
		AvatarURL string    `json:"avatar_url"`
		Rank      rank.Tier `json:"rank"`
	}{
		student:   student(s),
		AvatarURL: s.AvatarURL(),
		Rank:      s.Rank(),
	})
}

// NewStudent contains information needed to create a new Student.
type NewStudent struct {
	Name        string `json:"name" validate:"required,notblank,max=100"`
	OrderNumber int    `json:"order_number" validate:"min=0"`
	Avatar      string `json:"avatar"`
	TotalPoints int    `json:"total_points" validate:"min=0"`
}

func (ns *NewStudent) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	ns.Avatar = core.CleanString(ns.Avatar)
	return validate.Struct(ns)
}

// CheckName rejects a blank name without needing a validator; used before any request is made.
func CheckName(name string) error {
	if core.CleanString(name) == "" {
		return core.NewValidationError(ErrEmptyName, core.FieldError{Field: "name", Error: ErrEmptyName.Error()})
	}
	return nil
}

// UpdateStudent defines what information may be provided to modify an existing Student.
// Nil fields are left untouched.
type UpdateStudent struct {
	Name        *string `json:"name" validate:"omitempty,notblank,max=100"`
	OrderNumber *int    `json:"order_number" validate:"omitempty,min=0"`
	Avatar      *string `json:"avatar"`
}

func (us *UpdateStudent) Validate(validate *validator.Validate) error {
	if us.Name != nil {
		name := core.CleanString(*us.Name)
		if name == "" {
			return CheckName(name)
		}
		us.Name = &name
	}
	return validate.Struct(us)
}

// PointChange is a signed adjustment of a student's total.
type PointChange struct {
	Change int    `json:"change"`
	Reason string `json:"reason"`
}

// Validate rejects a zero change and a deduction without a reason.
func (pc *PointChange) Validate() error {
	pc.Reason = core.CleanString(pc.Reason)

	switch {
	case pc.Change == 0:
		return core.NewValidationError(ErrZeroChange, core.FieldError{Field: "change", Error: ErrZeroChange.Error()})
	case pc.Change < 0 && pc.Reason == "":
		return core.NewValidationError(ErrReasonRequired, core.FieldError{Field: "reason", Error: ErrReasonRequired.Error()})
	case utf8.RuneCountInString(pc.Reason) > maxReasonLen:
		return core.NewValidationError(ErrReasonTooLong, core.FieldError{Field: "reason", Error: ErrReasonTooLong.Error()})
	}
	return nil
}

// PointHistoryEntry records one applied point change. Entries are never modified.
type PointHistoryEntry struct {
	ID          string    `json:"id"`
	StudentID   string    `json:"student_id"`
	Change      int       `json:"change"`
	Reason      string    `json:"reason"`
	PointsAfter int       `json:"points_after"`
	Timestamp   time.Time `json:"timestamp"` // UTC
}

// Redemption records a reward exchanged for points.
// The reward name and cost are copied so the record survives the reward's deletion.
type Redemption struct {
	ID          string    `json:"id"`
	StudentID   string    `json:"student_id"`
	RewardID    string    `json:"reward_id"`
	RewardName  string    `json:"reward_name"`
	PointsSpent int       `json:"points_spent"`
	Timestamp   time.Time `json:"timestamp"` // UTC
}

// ChangeResult is the outcome of a point change.
type ChangeResult struct {
	Student     Student    `json:"student"`
	RankChanged bool       `json:"rank_changed"` // true only on promotion
	NewRank     *rank.Tier `json:"new_rank"`
}

// Detail is a student with its full history, newest first.
type Detail struct {
	Student
	PointHistory    []PointHistoryEntry `json:"point_history"`
	RewardsRedeemed []Redemption        `json:"rewards_redeemed"`
	MonthlyStats    []MonthStat         `json:"monthly_stats"`
}

func (d Detail) MarshalJSON() ([]byte, error) {
	studentJSON, err := d.Student.MarshalJSON()
	if err != nil {
		return nil, err
	}
	extraJSON, err := json.Marshal(struct {
		PointHistory    []PointHistoryEntry `json:"point_history"`
		RewardsRedeemed []Redemption        `json:"rewards_redeemed"`
		MonthlyStats    []MonthStat         `json:"monthly_stats"`
	}{d.PointHistory, d.RewardsRedeemed, d.MonthlyStats})
	if err != nil {
		return nil, err
	}

	var fields map[string]json.RawMessage
	if err = json.Unmarshal(studentJSON, &fields); err != nil {
		return nil, err
	}
	if err = json.Unmarshal(extraJSON, &fields); err != nil {
		return nil, err
	}
	return json.Marshal(fields)
}

// RankingEntry is one line of a classroom leaderboard.
type RankingEntry struct {
	Position    int       `json:"position"`
	StudentID   string    `json:"student_id"`
	Name        string    `json:"name"`
	Avatar      string    `json:"avatar"`
	TotalPoints int       `json:"total_points"`
	Rank        rank.Tier `json:"rank"`
	Trend       int       `json:"trend"`
}
