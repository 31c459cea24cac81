package student

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/lophoc/core"
	"github.com/trezcool/lophoc/core/rank"
)

func TestPointChange_Validate(t *testing.T) {
	tests := []struct {
		name    string
		pc      PointChange
		wantErr error
	}{
		{name: "award without reason", pc: PointChange{Change: 5}},
		{name: "deduction with reason", pc: PointChange{Change: -5, Reason: "talking in class"}},
		{name: "deduction without reason", pc: PointChange{Change: -5, Reason: ""}, wantErr: ErrReasonRequired},
		{name: "deduction with blank reason", pc: PointChange{Change: -5, Reason: "   "}, wantErr: ErrReasonRequired},
		{name: "zero", pc: PointChange{Change: 0, Reason: "nothing"}, wantErr: ErrZeroChange},
		{name: "reason too long", pc: PointChange{Change: 1, Reason: strings.Repeat("x", 256)}, wantErr: ErrReasonTooLong},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.pc.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, core.IsValidation(err))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestNewStudent_Validate(t *testing.T) {
	validate := validator.New()
	core.InitValidators(validate, core.NewTranslator())

	ns := NewStudent{Name: "  An  ", TotalPoints: 10}
	require.NoError(t, ns.Validate(validate))
	assert.Equal(t, "An", ns.Name)

	ns = NewStudent{Name: "   "}
	assert.Error(t, ns.Validate(validate))

	ns = NewStudent{Name: "Bình", TotalPoints: -1}
	assert.Error(t, ns.Validate(validate))

	ns = NewStudent{Name: strings.Repeat("a", 101)}
	assert.Error(t, ns.Validate(validate))

	blank := " "
	us := UpdateStudent{Name: &blank}
	err := us.Validate(validate)
	assert.ErrorIs(t, err, ErrEmptyName)

	assert.ErrorIs(t, CheckName(""), ErrEmptyName)
	assert.NoError(t, CheckName("Chi"))
}

func TestDefaultAvatar(t *testing.T) {
	a := DefaultAvatar("an")
	assert.True(t, strings.HasPrefix(a, "data:image/svg+xml,"))
	assert.Equal(t, a, DefaultAvatar("an"))
	assert.Contains(t, a, "%3EA%3C%2Ftext%3E") // ">A</text>"
	assert.NotEqual(t, a, DefaultAvatar("anh"), "colour depends on the name length")

	assert.Equal(t, "custom.png", Student{Name: "an", Avatar: "custom.png"}.AvatarURL())
	assert.Equal(t, a, Student{Name: "an"}.AvatarURL())
}

func TestStudent_MarshalJSON(t *testing.T) {
	s := Student{ID: "s1", ClassroomID: "c1", Name: "Lan", TotalPoints: 120}
	data, err := json.Marshal(s)
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "gold", got["rank"])
	assert.Equal(t, float64(120), got["total_points"])
	assert.Equal(t, "", got["avatar"])
	assert.Equal(t, DefaultAvatar("Lan"), got["avatar_url"])

	var decoded Student
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Empty(t, decoded.Avatar)
	assert.Equal(t, DefaultAvatar("Lan"), decoded.AvatarURL())

	data, err = json.Marshal(Student{Name: "Lan", Avatar: "custom.png"})
	require.NoError(t, err)
	got = nil
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "custom.png", got["avatar"])
	assert.Equal(t, "custom.png", got["avatar_url"])

	d := Detail{Student: s, PointHistory: []PointHistoryEntry{{ID: "h1", Change: 5}}}
	data, err = json.Marshal(d)
	require.NoError(t, err)
	got = nil
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "s1", got["id"])
	assert.Equal(t, "gold", got["rank"])
	assert.Len(t, got["point_history"], 1)

	var back Detail
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, "s1", back.ID)
	assert.Equal(t, 120, back.TotalPoints)
}

func TestMonthlyStats(t *testing.T) {
	at := func(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 10, 0, 0, 0, time.UTC) }
	history := []PointHistoryEntry{
		{Change: 5, Timestamp: at(2024, time.February, 3)},
		{Change: -3, Timestamp: at(2024, time.January, 20)},
		{Change: 10, Timestamp: at(2024, time.January, 2)},
		{Change: -2, Timestamp: at(2024, time.February, 1)},
		{Change: 7, Timestamp: at(2023, time.December, 31)},
	}
	assert.Equal(t, []MonthStat{
		{Month: "12/2023", Added: 7},
		{Month: "1/2024", Added: 10, Deducted: 3},
		{Month: "2/2024", Added: 5, Deducted: 2},
	}, MonthlyStats(history))
	assert.Empty(t, MonthlyStats(nil))
}

func TestBuildRankings(t *testing.T) {
	now := time.Now()
	students := []Student{
		{ID: "a", Name: "A", OrderNumber: 3, TotalPoints: 50, CreatedAt: now},
		{ID: "b", Name: "B", OrderNumber: 1, TotalPoints: 210, CreatedAt: now},
		{ID: "c", Name: "C", OrderNumber: 2, TotalPoints: 50, CreatedAt: now},
		{ID: "d", Name: "D", OrderNumber: 2, TotalPoints: 50, CreatedAt: now.Add(-time.Hour)},
	}
	entries := BuildRankings(students)
	require.Len(t, entries, 4)

	ids := make([]string, 0, 4)
	for i, e := range entries {
		assert.Equal(t, i+1, e.Position)
		assert.Equal(t, 0, e.Trend)
		ids = append(ids, e.StudentID)
	}
	assert.Equal(t, []string{"b", "d", "c", "a"}, ids)
	assert.Equal(t, rank.Diamond, entries[0].Rank)
	assert.Equal(t, DefaultAvatar("B"), entries[0].Avatar)
}
