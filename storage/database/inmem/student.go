package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/trezcool/lophoc/core/student"
)

type studentRepository struct {
	db *DB
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *DB) student.Repository {
	return &studentRepository{db: db}
}

func (repo *studentRepository) CreateStudent(_ context.Context, s student.Student) (student.Student, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.students[s.ID] = &s
	return s, nil
}

func (repo *studentRepository) QueryStudents(_ context.Context, classroomID string) ([]student.Student, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	students := make([]student.Student, 0)
	for _, s := range repo.db.students {
		if s.ClassroomID == classroomID {
			students = append(students, *s)
		}
	}
	sort.Slice(students, func(i, j int) bool {
		if students[i].OrderNumber != students[j].OrderNumber {
			return students[i].OrderNumber < students[j].OrderNumber
		}
		return students[i].CreatedAt.Before(students[j].CreatedAt)
	})
	return students, nil
}

func (repo *studentRepository) GetStudent(_ context.Context, id string) (student.Student, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if s, ok := repo.db.students[id]; ok {
		return *s, nil
	}
	return student.Student{}, student.ErrNotFound
}

func (repo *studentRepository) UpdateStudent(_ context.Context, id string, us student.UpdateStudent) (student.Student, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	s, ok := repo.db.students[id]
	if !ok {
		return student.Student{}, student.ErrNotFound
	}
	// only save set fields
	if us.Name != nil {
		s.Name = *us.Name
	}
	if us.OrderNumber != nil {
		s.OrderNumber = *us.OrderNumber
	}
	if us.Avatar != nil {
		s.Avatar = *us.Avatar
	}
	return *s, nil
}

func (repo *studentRepository) DeleteStudent(_ context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.students[id]; !ok {
		return student.ErrNotFound
	}
	repo.db.deleteStudent(id)
	return nil
}

func (repo *studentRepository) UpdatePoints(
	_ context.Context,
	id string,
	fn student.PointsUpdater,
) (student.Student, student.PointHistoryEntry, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	s, ok := repo.db.students[id]
	if !ok {
		return student.Student{}, student.PointHistoryEntry{}, student.ErrNotFound
	}
	update, err := fn(*s)
	if err != nil {
		return student.Student{}, student.PointHistoryEntry{}, err
	}

	updated, entry, rdm := update.Apply(*s, time.Now().UTC())
	*s = updated
	repo.db.history = append(repo.db.history, entry)
	if rdm != nil {
		repo.db.redemptions = append(repo.db.redemptions, *rdm)
	}
	return updated, entry, nil
}

// newest first; entries appended later win ties
func (repo *studentRepository) filterHistory(keep func(h student.PointHistoryEntry) bool) []student.PointHistoryEntry {
	history := make([]student.PointHistoryEntry, 0)
	for i := len(repo.db.history) - 1; i >= 0; i-- {
		if h := repo.db.history[i]; keep(h) {
			history = append(history, h)
		}
	}
	sort.SliceStable(history, func(i, j int) bool { return history[i].Timestamp.After(history[j].Timestamp) })
	return history
}

func (repo *studentRepository) filterRedemptions(keep func(r student.Redemption) bool) []student.Redemption {
	redemptions := make([]student.Redemption, 0)
	for i := len(repo.db.redemptions) - 1; i >= 0; i-- {
		if r := repo.db.redemptions[i]; keep(r) {
			redemptions = append(redemptions, r)
		}
	}
	sort.SliceStable(redemptions, func(i, j int) bool { return redemptions[i].Timestamp.After(redemptions[j].Timestamp) })
	return redemptions
}

func (repo *studentRepository) inClassroom(studentID, classroomID string) bool {
	s, ok := repo.db.students[studentID]
	return ok && s.ClassroomID == classroomID
}

func (repo *studentRepository) QueryHistory(_ context.Context, studentID string) ([]student.PointHistoryEntry, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	return repo.filterHistory(func(h student.PointHistoryEntry) bool { return h.StudentID == studentID }), nil
}

func (repo *studentRepository) QueryClassroomHistory(_ context.Context, classroomID string) ([]student.PointHistoryEntry, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	return repo.filterHistory(func(h student.PointHistoryEntry) bool {
		return repo.inClassroom(h.StudentID, classroomID)
	}), nil
}

func (repo *studentRepository) QueryRedemptions(_ context.Context, studentID string) ([]student.Redemption, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	return repo.filterRedemptions(func(r student.Redemption) bool { return r.StudentID == studentID }), nil
}

func (repo *studentRepository) QueryClassroomRedemptions(_ context.Context, classroomID string) ([]student.Redemption, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	return repo.filterRedemptions(func(r student.Redemption) bool {
		return repo.inClassroom(r.StudentID, classroomID)
	}), nil
}
