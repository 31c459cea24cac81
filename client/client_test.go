package client_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/lophoc/apps/api/echo"
	"github.com/trezcool/lophoc/client"
	"github.com/trezcool/lophoc/core"
	"github.com/trezcool/lophoc/core/rank"
	"github.com/trezcool/lophoc/core/reward"
	"github.com/trezcool/lophoc/core/roster"
	"github.com/trezcool/lophoc/core/student"
	"github.com/trezcool/lophoc/services/spreadsheet"
	testutil "github.com/trezcool/lophoc/tests"
)

func setup(t *testing.T) (*testutil.App, *client.Client) {
	t.Helper()
	app := testutil.NewApp()
	srv := echoapi.NewServer(&echoapi.Options{
		Conf:           app.Conf,
		Logger:         app.Logger,
		Validate:       app.Validate,
		Translator:     core.NewTranslator(),
		DisableReqLogs: true,
		ClassroomSvc:   app.ClassroomSvc,
		StudentSvc:     app.StudentSvc,
		RewardSvc:      app.RewardSvc,
		UserSvc:        app.UserSvc,
		SpreadsheetSvc: spreadsheet.NewService(app.ClassroomSvc, app.StudentSvc, app.Validate),
	})
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	return app, client.New(ts.URL + "/api/")
}

func TestClient_roundTrip(t *testing.T) {
	_, cl := setup(t)
	ctx := context.Background()

	c, err := cl.CreateClassroom(ctx, "5A")
	require.NoError(t, err)

	an, err := cl.CreateStudent(ctx, c.ID, student.NewStudent{Name: "An", OrderNumber: 1, TotalPoints: 95})
	require.NoError(t, err)
	assert.Empty(t, an.Avatar, "no custom avatar")
	assert.Equal(t, student.DefaultAvatar("An"), an.AvatarURL())
	_, err = cl.CreateStudent(ctx, c.ID, student.NewStudent{Name: "Bình", OrderNumber: 2})
	require.NoError(t, err)

	students, err := cl.Students(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, students, 2)

	view := roster.NewView()
	view.Replace(c.ID, students)

	res, err := cl.ChangePoints(ctx, an.ID, student.PointChange{Change: 10, Reason: "Giỏi"})
	require.NoError(t, err)
	assert.True(t, res.RankChanged)
	require.NotNil(t, res.NewRank)
	assert.Equal(t, rank.Gold, *res.NewRank)

	change, err := view.ApplyPointChange(res.Student, res.RankChanged)
	require.NoError(t, err)
	assert.Equal(t, 10, change.Delta)
	assert.Equal(t, []roster.Event{
		roster.Updated{StudentID: an.ID, Delta: 10},
		roster.Promoted{StudentID: an.ID, Name: "An", Tier: rank.Gold},
	}, view.Drain())

	entries, err := cl.Rankings(ctx, c.ID, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "An", entries[0].Name)
	assert.Equal(t, 105, entries[0].TotalPoints)

	detail, err := cl.StudentDetail(ctx, an.ID)
	require.NoError(t, err)
	assert.Equal(t, "An", detail.Name)
	require.Len(t, detail.PointHistory, 1)
	assert.Equal(t, 105, detail.PointHistory[0].PointsAfter)

	classrooms, err := cl.Classrooms(ctx)
	require.NoError(t, err)
	require.Len(t, classrooms, 1)
	assert.Equal(t, 2, classrooms[0].StudentCount)
}

func TestClient_localValidation(t *testing.T) {
	var called bool
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))
	defer ts.Close()
	cl := client.New(ts.URL)
	ctx := context.Background()

	_, err := cl.ChangePoints(ctx, "s1", student.PointChange{Change: -3})
	assert.ErrorIs(t, err, student.ErrReasonRequired)
	assert.True(t, core.IsValidation(err))

	_, err = cl.ChangePoints(ctx, "s1", student.PointChange{Change: 0, Reason: "x"})
	assert.ErrorIs(t, err, student.ErrZeroChange)

	_, err = cl.CreateStudent(ctx, "c1", student.NewStudent{Name: "  "})
	assert.ErrorIs(t, err, student.ErrEmptyName)

	blank := " "
	_, err = cl.UpdateStudent(ctx, "s1", student.UpdateStudent{Name: &blank})
	assert.ErrorIs(t, err, student.ErrEmptyName)

	assert.False(t, called, "the backend must not be called")
}

func TestClient_requestErrors(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/rewards/redeem":
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"detail": "not enough points: need 100, have 99"}`))
		case "/classrooms":
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte(`<html>oops</html>`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"detail": "student not found"}`))
		}
	}))
	ctx := context.Background()
	cl := client.New(ts.URL)

	_, err := cl.Redeem(ctx, reward.RedeemRequest{StudentID: "s1", RewardID: "r1"})
	var rerr *client.RequestError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, http.StatusBadRequest, rerr.Status)
	assert.Equal(t, "not enough points: need 100, have 99", rerr.Detail)

	_, err = cl.Classrooms(ctx)
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, http.StatusBadGateway, rerr.Status)
	assert.Equal(t, "Bad Gateway", rerr.Detail)

	_, err = cl.StudentDetail(ctx, "s1")
	assert.True(t, client.IsNotFound(err))

	ts.Close()
	_, err = cl.Classrooms(ctx)
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, 0, rerr.Status)
	assert.Equal(t, "request failed", rerr.Detail)
	assert.Error(t, rerr.Unwrap())
}

func TestClient_redemption(t *testing.T) {
	app, cl := setup(t)
	ctx := context.Background()

	c := app.CreateClassroom(t, "5A")
	an := app.CreateStudent(t, c.ID, "An", 1, 120)
	pencil := app.CreateReward(t, c.ID, "Bút chì", 30)

	view := roster.NewView()
	students, err := cl.Students(ctx, c.ID)
	require.NoError(t, err)
	view.Replace(c.ID, students)

	rdm := roster.NewRedemption(view, cl)
	rdm.Select(an.ID)
	preview, err := rdm.Propose(pencil)
	require.NoError(t, err)
	assert.True(t, preview.Affordable)
	assert.Equal(t, 90, preview.Balance)

	res, err := rdm.Confirm(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Reward redeemed! 90 points left", res.Message)

	got, ok := view.Student(an.ID)
	require.True(t, ok)
	assert.Equal(t, 90, got.TotalPoints)
	assert.Equal(t, rank.Silver, got.Rank())
}

func TestClient_spreadsheets(t *testing.T) {
	app, cl := setup(t)
	ctx := context.Background()
	c := app.CreateClassroom(t, "5A")

	res, err := cl.Import(ctx, c.ID, "lop.csv", strings.NewReader("Tên,Điểm\nAn,5\n\n,7\nBình,9\n"))
	var perr core.PartialImportError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 2, perr.Imported)
	assert.Equal(t, []string{"row 4: student name not found"}, perr.Errors)
	assert.Equal(t, 2, res.Imported)

	res, err = cl.Import(ctx, c.ID, "lop.csv", strings.NewReader("Name\nChi\n"))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Imported)

	_, err = cl.Import(ctx, c.ID, "lop.pdf", strings.NewReader("x"))
	var rerr *client.RequestError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, http.StatusBadRequest, rerr.Status)
	assert.Equal(t, spreadsheet.ErrUnsupportedFormat.Error(), rerr.Detail)

	var buf bytes.Buffer
	filename, err := cl.Export(ctx, c.ID, &buf)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(filename, "xephang_5A_"), filename)
	assert.NotZero(t, buf.Len())
}
