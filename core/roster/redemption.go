package roster

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/lophoc/core"
	"github.com/trezcool/lophoc/core/reward"
)

var (
	ErrNoStudentSelected = errors.New("no student selected")
	ErrNothingProposed   = errors.New("no reward proposed")
)

// Redeemer asks the backend to redeem a reward.
type Redeemer interface {
	Redeem(ctx context.Context, rr reward.RedeemRequest) (reward.RedeemResult, error)
}

// Preview is what a proposed redemption would do.
type Preview struct {
	StudentID  string
	Reward     reward.Reward
	Affordable bool
	Balance    int // may be negative
}

// Redemption is the two-step propose then confirm flow of the reward shop.
type Redemption struct {
	view     *View
	backend  Redeemer
	mu       sync.Mutex
	selected string
	proposal *Preview
}

func NewRedemption(view *View, backend Redeemer) *Redemption {
	return &Redemption{view: view, backend: backend}
}

// Select sets the student redeeming; any proposal is dropped.
func (r *Redemption) Select(studentID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.selected = studentID
	r.proposal = nil
}

func (r *Redemption) Selected() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.selected
}

// Propose previews redeeming rwd for the selected student.
func (r *Redemption) Propose(rwd reward.Reward) (Preview, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.selected == "" {
		return Preview{}, core.NewValidationError(ErrNoStudentSelected)
	}
	s, ok := r.view.Student(r.selected)
	if !ok {
		return Preview{}, core.NewValidationError(errors.Wrap(ErrUnknownStudent, r.selected))
	}

	p := Preview{
		StudentID:  s.ID,
		Reward:     rwd,
		Affordable: reward.CanAfford(s, rwd),
		Balance:    reward.PreviewBalance(s, rwd),
	}
	r.proposal = &p
	return p, nil
}

// Confirm redeems the proposed reward. The proposal is cleared once the backend has answered.
// The backend refuses unaffordable redemptions.
func (r *Redemption) Confirm(ctx context.Context) (reward.RedeemResult, error) {
	r.mu.Lock()
	p := r.proposal
	r.mu.Unlock()
	if p == nil {
		return reward.RedeemResult{}, ErrNothingProposed
	}

	done, err := r.view.Begin(p.StudentID)
	if err != nil {
		return reward.RedeemResult{}, err
	}
	defer done()

	res, err := r.backend.Redeem(ctx, reward.RedeemRequest{StudentID: p.StudentID, RewardID: p.Reward.ID})

	r.mu.Lock()
	if r.proposal == p {
		r.proposal = nil
	}
	r.mu.Unlock()

	if err != nil {
		return reward.RedeemResult{}, err
	}
	r.view.ApplyStudent(res.Student)
	return res, nil
}

// Cancel drops the proposal, keeping the selection.
func (r *Redemption) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.proposal = nil
}
