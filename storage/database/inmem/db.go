// Package inmemdb implements the repositories in memory; used by tests and the demo mode of the API.
package inmemdb

import (
	"sync"

	"github.com/trezcool/lophoc/core/classroom"
	"github.com/trezcool/lophoc/core/reward"
	"github.com/trezcool/lophoc/core/student"
	"github.com/trezcool/lophoc/core/user"
)

// DB holds every table behind a single lock, so multi-table writes are atomic.
type DB struct {
	mutex sync.RWMutex

	classrooms  map[string]*classroom.Classroom
	students    map[string]*student.Student
	history     []student.PointHistoryEntry // append-only
	redemptions []student.Redemption        // append-only
	rewards     map[string]*reward.Reward
	users       map[string]*user.User
}

func Open() *DB {
	return &DB{
		classrooms: make(map[string]*classroom.Classroom),
		students:   make(map[string]*student.Student),
		rewards:    make(map[string]*reward.Reward),
		users:      make(map[string]*user.User),
	}
}

// Flush empties every table.
func (db *DB) Flush() {
	db.mutex.Lock()
	defer db.mutex.Unlock()

	db.classrooms = make(map[string]*classroom.Classroom)
	db.students = make(map[string]*student.Student)
	db.history = nil
	db.redemptions = nil
	db.rewards = make(map[string]*reward.Reward)
	db.users = make(map[string]*user.User)
}

// deleteStudent must be called with the write lock held.
func (db *DB) deleteStudent(id string) {
	delete(db.students, id)

	history := db.history[:0]
	for _, h := range db.history {
		if h.StudentID != id {
			history = append(history, h)
		}
	}
	db.history = history

	redemptions := db.redemptions[:0]
	for _, r := range db.redemptions {
		if r.StudentID != id {
			redemptions = append(redemptions, r)
		}
	}
	db.redemptions = redemptions
}
