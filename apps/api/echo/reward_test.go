package echoapi_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/lophoc/core/reward"
	"github.com/trezcool/lophoc/core/student"
)

func Test_rewardApi(t *testing.T) {
	app, srv := setup(t)

	c := app.CreateClassroom(t, "5A")
	other := app.CreateClassroom(t, "5B")
	an := app.CreateStudent(t, c.ID, "An", 1, 100)
	binh := app.CreateStudent(t, c.ID, "Bình", 2, 99)
	pencil := app.CreateReward(t, c.ID, "Bút chì", 100)
	sticker := app.CreateReward(t, c.ID, "Nhãn dán", 10)
	foreign := app.CreateReward(t, other.ID, "Kẹo", 5)

	redeem := func(studentID, rewardID string) []byte {
		return marshallObj(t, reward.RedeemRequest{StudentID: studentID, RewardID: rewardID})
	}

	runHTTPTests(t, srv, []httpTest{
		{name: "list (cheapest first)", path: "/api/rewards/" + c.ID, wantData: marshallObj(t, []reward.Reward{sticker, pencil})},
		{
			name: "create (free)", method: http.MethodPost, path: "/api/rewards/" + c.ID,
			body: []byte(`{"name": "Free", "points_required": 0}`), wantCode: http.StatusBadRequest,
		},
		{
			name: "create (unknown classroom)", method: http.MethodPost, path: "/api/rewards/nope",
			body: []byte(`{"name": "Vở", "points_required": 20}`), wantCode: http.StatusNotFound,
		},
		{
			name: "redeem (not enough points)", method: http.MethodPost, path: "/api/rewards/redeem",
			body: redeem(binh.ID, pencil.ID), wantCode: http.StatusBadRequest,
			wantData: errDetail("not enough points: need 100, have 99"),
		},
		{
			name: "redeem (other classroom)", method: http.MethodPost, path: "/api/rewards/redeem",
			body: redeem(an.ID, foreign.ID), wantCode: http.StatusBadRequest,
			wantData: errDetail(reward.ErrOtherClassroom.Error()),
		},
		{
			name: "redeem (unknown reward)", method: http.MethodPost, path: "/api/rewards/redeem",
			body: redeem(an.ID, "nope"), wantCode: http.StatusNotFound, wantData: errDetail("reward not found"),
		},
		{
			name: "redeem (missing student)", method: http.MethodPost, path: "/api/rewards/redeem",
			body: []byte(`{"reward_id": "` + pencil.ID + `"}`), wantCode: http.StatusBadRequest,
		},
	})

	t.Run("create", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/api/rewards/"+c.ID, []byte(`{"name": "Vở", "points_required": 20}`))
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var r reward.Reward
		decode(t, rec, &r)
		assert.Equal(t, "Vở", r.Name)
		assert.Equal(t, reward.DefaultIcon, r.Icon)
		assert.Equal(t, 20, r.PointsRequired)
	})

	t.Run("redeem exact balance", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/api/rewards/redeem", redeem(an.ID, pencil.ID))
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var res struct {
			Student student.Student `json:"student"`
			Message string          `json:"message"`
		}
		decode(t, rec, &res)
		assert.Equal(t, 0, res.Student.TotalPoints)
		assert.Equal(t, "Reward redeemed! 0 points left", res.Message)

		detail, err := app.StudentSvc.Detail(req.Context(), an.ID)
		require.NoError(t, err)
		require.Len(t, detail.PointHistory, 1)
		assert.Equal(t, -100, detail.PointHistory[0].Change)
		assert.Equal(t, "Đổi quà: Bút chì", detail.PointHistory[0].Reason)
		require.Len(t, detail.RewardsRedeemed, 1)
		assert.Equal(t, pencil.ID, detail.RewardsRedeemed[0].RewardID)
		assert.Equal(t, 100, detail.RewardsRedeemed[0].PointsSpent)
	})

	t.Run("delete keeps redemptions", func(t *testing.T) {
		req, rec := newRequest(http.MethodDelete, "/api/rewards/"+pencil.ID)
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"message": "Reward deleted"}`, rec.Body.String())

		redemptions, err := app.StudentSvc.ClassroomRedemptions(req.Context(), c.ID)
		require.NoError(t, err)
		require.Len(t, redemptions, 1)
		assert.Equal(t, "Bút chì", redemptions[0].RewardName)
	})
}
