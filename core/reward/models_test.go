package reward

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/lophoc/core"
	"github.com/trezcool/lophoc/core/student"
)

func TestCanAfford(t *testing.T) {
	rwd := Reward{PointsRequired: 100}
	assert.True(t, CanAfford(student.Student{TotalPoints: 100}, rwd))
	assert.True(t, CanAfford(student.Student{TotalPoints: 150}, rwd))
	assert.False(t, CanAfford(student.Student{TotalPoints: 99}, rwd))

	assert.Equal(t, 50, PreviewBalance(student.Student{TotalPoints: 150}, rwd))
	assert.Equal(t, -1, PreviewBalance(student.Student{TotalPoints: 99}, rwd))
}

func TestNewReward_Validate(t *testing.T) {
	validate := validator.New()
	core.InitValidators(validate, core.NewTranslator())

	nr := NewReward{Name: " Sticker ", PointsRequired: 20}
	require.NoError(t, nr.Validate(validate))
	assert.Equal(t, "Sticker", nr.Name)
	assert.Equal(t, DefaultIcon, nr.Icon)

	nr = NewReward{Name: "Pen", PointsRequired: 0}
	assert.Error(t, nr.Validate(validate))

	nr = NewReward{Name: "", PointsRequired: 10}
	assert.Error(t, nr.Validate(validate))
}

func TestRedeemMessage(t *testing.T) {
	assert.Equal(t, "Reward redeemed! 7 points left", RedeemMessage(7))
	assert.Equal(t, "Đổi quà: Bút chì", RedeemReason("Bút chì"))
}
