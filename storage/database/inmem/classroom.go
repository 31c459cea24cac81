package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/lophoc/core/classroom"
)

type classroomRepository struct {
	db *DB
}

var _ classroom.Repository = (*classroomRepository)(nil) // interface compliance check

func NewClassroomRepository(db *DB) classroom.Repository {
	return &classroomRepository{db: db}
}

func (repo *classroomRepository) withCount(c classroom.Classroom) classroom.Classroom {
	c.StudentCount = 0
	for _, s := range repo.db.students {
		if s.ClassroomID == c.ID {
			c.StudentCount++
		}
	}
	return c
}

func (repo *classroomRepository) CreateClassroom(_ context.Context, c classroom.Classroom) (classroom.Classroom, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.classrooms[c.ID] = &c
	return c, nil
}

func (repo *classroomRepository) QueryClassrooms(_ context.Context) ([]classroom.Classroom, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	classrooms := make([]classroom.Classroom, 0, len(repo.db.classrooms))
	for _, c := range repo.db.classrooms {
		classrooms = append(classrooms, repo.withCount(*c))
	}
	sort.Slice(classrooms, func(i, j int) bool { return classrooms[i].CreatedAt.Before(classrooms[j].CreatedAt) })
	return classrooms, nil
}

func (repo *classroomRepository) GetClassroom(_ context.Context, id string) (classroom.Classroom, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if c, ok := repo.db.classrooms[id]; ok {
		return repo.withCount(*c), nil
	}
	return classroom.Classroom{}, classroom.ErrNotFound
}

func (repo *classroomRepository) DeleteClassroom(_ context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.classrooms[id]; !ok {
		return classroom.ErrNotFound
	}
	delete(repo.db.classrooms, id)

	for sid, s := range repo.db.students {
		if s.ClassroomID == id {
			repo.db.deleteStudent(sid)
		}
	}
	for rid, r := range repo.db.rewards {
		if r.ClassroomID == id {
			delete(repo.db.rewards, rid)
		}
	}
	return nil
}
