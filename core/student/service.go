package student

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/lophoc/core"
	"github.com/trezcool/lophoc/core/classroom"
	"github.com/trezcool/lophoc/core/rank"
)

var (
	ErrNotFound  = errors.New("student not found")
	ErrCacheMiss = errors.New("rankings not cached")
)

type (
	// PointsUpdate is the change a PointsUpdater decided to apply to a locked student.
	PointsUpdate struct {
		Change     int
		Reason     string
		Redemption *Redemption // stored in the same transaction when set
	}

	// PointsUpdater inspects the locked student and decides on the update; an error aborts it.
	PointsUpdater func(current Student) (PointsUpdate, error)

	Repository interface {
		CreateStudent(ctx context.Context, s Student) (Student, error)
		// QueryStudents returns a classroom's students ordered by order number then creation time.
		QueryStudents(ctx context.Context, classroomID string) ([]Student, error)
		GetStudent(ctx context.Context, id string) (Student, error)
		UpdateStudent(ctx context.Context, id string, us UpdateStudent) (Student, error)
		// DeleteStudent removes the student along with its history and redemptions.
		DeleteStudent(ctx context.Context, id string) error
		// UpdatePoints locks the student, asks fn what to apply and stores the result with its history entry,
		// all or nothing.
		UpdatePoints(ctx context.Context, id string, fn PointsUpdater) (Student, PointHistoryEntry, error)
		// QueryHistory & QueryRedemptions return a student's records, newest first.
		QueryHistory(ctx context.Context, studentID string) ([]PointHistoryEntry, error)
		QueryRedemptions(ctx context.Context, studentID string) ([]Redemption, error)
		// QueryClassroomHistory & QueryClassroomRedemptions return the records of every student of a classroom,
		// newest first.
		QueryClassroomHistory(ctx context.Context, classroomID string) ([]PointHistoryEntry, error)
		QueryClassroomRedemptions(ctx context.Context, classroomID string) ([]Redemption, error)
	}

	// RankingsCache stores the full ordered leaderboard of a classroom.
	RankingsCache interface {
		// GetRankings returns ErrCacheMiss when nothing is cached.
		GetRankings(ctx context.Context, classroomID string) ([]RankingEntry, error)
		SetRankings(ctx context.Context, classroomID string, entries []RankingEntry) error
		InvalidateRankings(ctx context.Context, classroomID string) error
	}

	Service struct {
		repo          Repository
		classroomRepo classroom.Repository
		cache         RankingsCache
		logger        core.Logger

		rankingsLimit    int
		rankingsMaxLimit int
	}
)

// Apply returns s with the update applied, along with the records to store.
func (u PointsUpdate) Apply(s Student, now time.Time) (Student, PointHistoryEntry, *Redemption) {
	s.TotalPoints += u.Change
	entry := PointHistoryEntry{
		ID:          uuid.NewString(),
		StudentID:   s.ID,
		Change:      u.Change,
		Reason:      u.Reason,
		PointsAfter: s.TotalPoints,
		Timestamp:   now,
	}

	var rdm *Redemption
	if u.Redemption != nil {
		r := *u.Redemption
		if r.ID == "" {
			r.ID = uuid.NewString()
		}
		r.StudentID = s.ID
		r.Timestamp = now
		rdm = &r
	}
	return s, entry, rdm
}

// NewService returns the student Service. cache may be nil.
func NewService(
	repo Repository,
	classroomRepo classroom.Repository,
	cache RankingsCache,
	logger core.Logger,
	conf *core.Config,
) *Service {
	return &Service{
		repo:             repo,
		classroomRepo:    classroomRepo,
		cache:            cache,
		logger:           logger,
		rankingsLimit:    conf.RankingsLimit,
		rankingsMaxLimit: conf.RankingsMaxLimit,
	}
}

func (svc *Service) Create(ctx context.Context, classroomID string, ns NewStudent) (Student, error) {
	if _, err := svc.classroomRepo.GetClassroom(ctx, classroomID); err != nil {
		return Student{}, errors.Wrap(err, "getting classroom")
	}

	s, err := svc.repo.CreateStudent(ctx, Student{
		ID:          uuid.NewString(),
		ClassroomID: classroomID,
		Name:        ns.Name,
		OrderNumber: ns.OrderNumber,
		TotalPoints: ns.TotalPoints,
		Avatar:      ns.Avatar,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		return Student{}, err
	}
	svc.invalidateRankings(ctx, classroomID)
	return s, nil
}

func (svc *Service) Query(ctx context.Context, classroomID string) ([]Student, error) {
	return svc.repo.QueryStudents(ctx, classroomID)
}

func (svc *Service) Get(ctx context.Context, id string) (Student, error) {
	return svc.repo.GetStudent(ctx, id)
}

// Detail returns the student with its history, redemptions and monthly statistics.
func (svc *Service) Detail(ctx context.Context, id string) (Detail, error) {
	s, err := svc.repo.GetStudent(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	history, err := svc.repo.QueryHistory(ctx, id)
	if err != nil {
		return Detail{}, errors.Wrap(err, "querying history")
	}
	redemptions, err := svc.repo.QueryRedemptions(ctx, id)
	if err != nil {
		return Detail{}, errors.Wrap(err, "querying redemptions")
	}
	return Detail{
		Student:         s,
		PointHistory:    history,
		RewardsRedeemed: redemptions,
		MonthlyStats:    MonthlyStats(history),
	}, nil
}

// ClassroomHistory returns the point history of every student of the classroom, newest first.
func (svc *Service) ClassroomHistory(ctx context.Context, classroomID string) ([]PointHistoryEntry, error) {
	return svc.repo.QueryClassroomHistory(ctx, classroomID)
}

// ClassroomRedemptions returns the redemptions of every student of the classroom, newest first.
func (svc *Service) ClassroomRedemptions(ctx context.Context, classroomID string) ([]Redemption, error) {
	return svc.repo.QueryClassroomRedemptions(ctx, classroomID)
}

func (svc *Service) Update(ctx context.Context, id string, us UpdateStudent) (Student, error) {
	s, err := svc.repo.UpdateStudent(ctx, id, us)
	if err != nil {
		return Student{}, err
	}
	svc.invalidateRankings(ctx, s.ClassroomID)
	return s, nil
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	s, err := svc.repo.GetStudent(ctx, id)
	if err != nil {
		return err
	}
	if err = svc.repo.DeleteStudent(ctx, id); err != nil {
		return err
	}
	svc.invalidateRankings(ctx, s.ClassroomID)
	return nil
}

// ChangePoints atomically applies pc to the student and appends it to its history.
// A change that would leave the student with a negative total is refused.
func (svc *Service) ChangePoints(ctx context.Context, id string, pc PointChange) (ChangeResult, error) {
	if err := pc.Validate(); err != nil {
		return ChangeResult{}, err
	}

	var before int
	s, _, err := svc.repo.UpdatePoints(ctx, id, func(current Student) (PointsUpdate, error) {
		before = current.TotalPoints
		if current.TotalPoints+pc.Change < 0 {
			return PointsUpdate{}, core.NewValidationError(ErrNegativePoints)
		}
		return PointsUpdate{Change: pc.Change, Reason: pc.Reason}, nil
	})
	if err != nil {
		return ChangeResult{}, errors.Wrap(err, "updating points")
	}
	svc.invalidateRankings(ctx, s.ClassroomID)

	newRank := s.Rank()
	return ChangeResult{
		Student:     s,
		RankChanged: pc.Change > 0 && rank.TierOf(before) != newRank,
		NewRank:     &newRank,
	}, nil
}

// Rankings returns the classroom leaderboard: points descending, ties by order number then creation time.
// limit defaults to the configured limit and is capped at the configured maximum.
func (svc *Service) Rankings(ctx context.Context, classroomID string, limit int) ([]RankingEntry, error) {
	if limit <= 0 {
		limit = svc.rankingsLimit
	}
	if limit > svc.rankingsMaxLimit {
		limit = svc.rankingsMaxLimit
	}

	entries, err := svc.cachedRankings(ctx, classroomID)
	if err != nil {
		return nil, err
	}
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (svc *Service) cachedRankings(ctx context.Context, classroomID string) ([]RankingEntry, error) {
	if svc.cache != nil {
		entries, err := svc.cache.GetRankings(ctx, classroomID)
		if err == nil {
			return entries, nil
		}
		if errors.Cause(err) != ErrCacheMiss {
			svc.logger.Warn("reading cached rankings", err, map[string]interface{}{"classroom_id": classroomID})
		}
	}

	students, err := svc.repo.QueryStudents(ctx, classroomID)
	if err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	entries := BuildRankings(students)

	if svc.cache != nil {
		if err = svc.cache.SetRankings(ctx, classroomID, entries); err != nil {
			svc.logger.Warn("caching rankings", err, map[string]interface{}{"classroom_id": classroomID})
		}
	}
	return entries, nil
}

// InvalidateRankings drops the cached leaderboard of a classroom.
func (svc *Service) InvalidateRankings(ctx context.Context, classroomID string) {
	svc.invalidateRankings(ctx, classroomID)
}

func (svc *Service) invalidateRankings(ctx context.Context, classroomID string) {
	if svc.cache == nil {
		return
	}
	if err := svc.cache.InvalidateRankings(ctx, classroomID); err != nil {
		svc.logger.Warn("invalidating rankings", err, map[string]interface{}{"classroom_id": classroomID})
	}
}

// BuildRankings orders students into a full leaderboard.
func BuildRankings(students []Student) []RankingEntry {
	sorted := make([]Student, len(students))
	copy(sorted, students)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.TotalPoints != b.TotalPoints {
			return a.TotalPoints > b.TotalPoints
		}
		if a.OrderNumber != b.OrderNumber {
			return a.OrderNumber < b.OrderNumber
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})

	entries := make([]RankingEntry, 0, len(sorted))
	for i, s := range sorted {
		entries = append(entries, RankingEntry{
			Position:    i + 1,
			StudentID:   s.ID,
			Name:        s.Name,
			Avatar:      s.AvatarURL(),
			TotalPoints: s.TotalPoints,
			Rank:        s.Rank(),
		})
	}
	return entries
}
