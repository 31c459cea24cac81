package student_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/lophoc/core/classroom"
	"github.com/trezcool/lophoc/core/reward"
	"github.com/trezcool/lophoc/core/student"
	testutil "github.com/trezcool/lophoc/tests"
)

var errCacheDown = errors.New("cache down")

type fakeRankingsCache struct {
	entries     map[string][]student.RankingEntry
	sets        int
	invalidated []string

	getErr, setErr, invalidateErr error
}

var _ student.RankingsCache = (*fakeRankingsCache)(nil)

func (c *fakeRankingsCache) GetRankings(_ context.Context, classroomID string) ([]student.RankingEntry, error) {
	if c.getErr != nil {
		return nil, c.getErr
	}
	entries, ok := c.entries[classroomID]
	if !ok {
		return nil, student.ErrCacheMiss
	}
	return entries, nil
}

func (c *fakeRankingsCache) SetRankings(_ context.Context, classroomID string, entries []student.RankingEntry) error {
	c.sets++
	if c.setErr != nil {
		return c.setErr
	}
	c.entries[classroomID] = entries
	return nil
}

func (c *fakeRankingsCache) InvalidateRankings(_ context.Context, classroomID string) error {
	c.invalidated = append(c.invalidated, classroomID)
	if c.invalidateErr != nil {
		return c.invalidateErr
	}
	delete(c.entries, classroomID)
	return nil
}

// newCachedApp returns a test app whose services share a fake rankings cache.
func newCachedApp() (*testutil.App, *fakeRankingsCache) {
	app := testutil.NewApp()
	cache := &fakeRankingsCache{entries: make(map[string][]student.RankingEntry)}

	app.StudentSvc = student.NewService(app.StudentRepo, app.ClassroomRepo, cache, app.Logger, app.Conf)
	app.ClassroomSvc = classroom.NewService(app.ClassroomRepo, app.StudentSvc)
	app.RewardSvc = reward.NewService(app.RewardRepo, app.ClassroomRepo, app.StudentRepo, app.StudentSvc)
	return app, cache
}

type rankedStudent struct {
	name   string
	points int
}

func rankings(t *testing.T, app *testutil.App, classroomID string) []rankedStudent {
	t.Helper()
	entries, err := app.StudentSvc.Rankings(context.Background(), classroomID, 0)
	require.NoError(t, err)
	got := make([]rankedStudent, 0, len(entries))
	for _, e := range entries {
		got = append(got, rankedStudent{name: e.Name, points: e.TotalPoints})
	}
	return got
}

func TestService_Rankings_cached(t *testing.T) {
	app, cache := newCachedApp()
	cls := app.CreateClassroom(t, "5A")
	app.CreateStudent(t, cls.ID, "An", 1, 80)

	// miss then fill
	assert.Equal(t, []rankedStudent{{"An", 80}}, rankings(t, app, cls.ID))
	assert.Equal(t, 1, cache.sets)
	require.Len(t, cache.entries[cls.ID], 1)

	// hit: the cached leaderboard is served as is
	cache.entries[cls.ID] = []student.RankingEntry{{Position: 1, Name: "Cached", TotalPoints: 1}}
	assert.Equal(t, []rankedStudent{{"Cached", 1}}, rankings(t, app, cls.ID))
	assert.Equal(t, 1, cache.sets)
}

func TestService_Rankings_invalidation(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(t *testing.T, app *testutil.App, classroomID string, an, binh student.Student)
		want   []rankedStudent
	}{
		{
			name: "create student",
			mutate: func(t *testing.T, app *testutil.App, classroomID string, an, binh student.Student) {
				app.CreateStudent(t, classroomID, "Chi", 3, 50)
			},
			want: []rankedStudent{{"An", 80}, {"Chi", 50}, {"Bình", 20}},
		},
		{
			name: "update student",
			mutate: func(t *testing.T, app *testutil.App, classroomID string, an, binh student.Student) {
				name := "An Nguyễn"
				_, err := app.StudentSvc.Update(ctx, an.ID, student.UpdateStudent{Name: &name})
				require.NoError(t, err)
			},
			want: []rankedStudent{{"An Nguyễn", 80}, {"Bình", 20}},
		},
		{
			name: "delete student",
			mutate: func(t *testing.T, app *testutil.App, classroomID string, an, binh student.Student) {
				require.NoError(t, app.StudentSvc.Delete(ctx, an.ID))
			},
			want: []rankedStudent{{"Bình", 20}},
		},
		{
			name: "change points",
			mutate: func(t *testing.T, app *testutil.App, classroomID string, an, binh student.Student) {
				app.ChangePoints(t, binh.ID, 100, "Thi tốt")
			},
			want: []rankedStudent{{"Bình", 120}, {"An", 80}},
		},
		{
			name: "redeem",
			mutate: func(t *testing.T, app *testutil.App, classroomID string, an, binh student.Student) {
				rwd := app.CreateReward(t, classroomID, "Sách", 70)
				_, err := app.RewardSvc.Redeem(ctx, reward.RedeemRequest{StudentID: an.ID, RewardID: rwd.ID})
				require.NoError(t, err)
			},
			want: []rankedStudent{{"Bình", 20}, {"An", 10}},
		},
		{
			name: "delete classroom",
			mutate: func(t *testing.T, app *testutil.App, classroomID string, an, binh student.Student) {
				require.NoError(t, app.ClassroomSvc.Delete(ctx, classroomID))
			},
			want: []rankedStudent{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, cache := newCachedApp()
			cls := app.CreateClassroom(t, "5A")
			an := app.CreateStudent(t, cls.ID, "An", 1, 80)
			binh := app.CreateStudent(t, cls.ID, "Bình", 2, 20)

			require.Equal(t, []rankedStudent{{"An", 80}, {"Bình", 20}}, rankings(t, app, cls.ID))
			cache.invalidated = nil

			tt.mutate(t, app, cls.ID, an, binh)

			assert.Contains(t, cache.invalidated, cls.ID)
			assert.Equal(t, tt.want, rankings(t, app, cls.ID))
		})
	}
}

func TestService_Rankings_refusedChangeKeepsCache(t *testing.T) {
	app, cache := newCachedApp()
	cls := app.CreateClassroom(t, "5A")
	an := app.CreateStudent(t, cls.ID, "An", 1, 10)
	rankings(t, app, cls.ID)
	cache.invalidated = nil

	_, err := app.StudentSvc.ChangePoints(context.Background(), an.ID, student.PointChange{Change: -20, Reason: "Nói chuyện"})
	require.Error(t, err)
	assert.Empty(t, cache.invalidated)
	assert.Len(t, cache.entries[cls.ID], 1)
}

func TestService_Rankings_cacheErrors(t *testing.T) {
	tests := []struct {
		name       string
		breakCache func(c *fakeRankingsCache)
	}{
		{name: "get fails", breakCache: func(c *fakeRankingsCache) { c.getErr = errCacheDown }},
		{name: "set fails", breakCache: func(c *fakeRankingsCache) { c.setErr = errCacheDown }},
		{name: "invalidate fails", breakCache: func(c *fakeRankingsCache) { c.invalidateErr = errCacheDown }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, cache := newCachedApp()
			tt.breakCache(cache)
			cls := app.CreateClassroom(t, "5A")
			an := app.CreateStudent(t, cls.ID, "An", 1, 80)

			// the repository is the fallback; cache failures are only logged
			assert.Equal(t, []rankedStudent{{"An", 80}}, rankings(t, app, cls.ID))
			res := app.ChangePoints(t, an.ID, 5, "")
			assert.Equal(t, 85, res.Student.TotalPoints)
		})
	}
}
