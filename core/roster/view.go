package roster

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/lophoc/core/student"
)

var (
	ErrUnknownStudent    = errors.New("student is not in the roster")
	ErrRequestPending    = errors.New("a request for this student is already in progress")
	ErrPromotionMismatch = errors.New("local promotion verdict disagrees with the server")
)

// View owns the student list of the selected classroom.
// It is only mutated with server-confirmed data and is safe for concurrent use.
type View struct {
	mu          sync.Mutex
	classroomID string
	students    []student.Student
	pending     map[string]struct{}
	events      []Event
}

func NewView() *View {
	return &View{pending: make(map[string]struct{})}
}

// Replace swaps the whole list, e.g. when another classroom is selected. Undrained events are dropped.
func (v *View) Replace(classroomID string, students []student.Student) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.classroomID = classroomID
	v.students = make([]student.Student, len(students))
	copy(v.students, students)
	v.events = nil
}

func (v *View) ClassroomID() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.classroomID
}

// Students returns a copy of the list in its current order.
func (v *View) Students() []student.Student {
	v.mu.Lock()
	defer v.mu.Unlock()

	students := make([]student.Student, len(v.students))
	copy(students, v.students)
	return students
}

func (v *View) Student(id string) (student.Student, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if i := v.indexOf(id); i >= 0 {
		return v.students[i], true
	}
	return student.Student{}, false
}

func (v *View) TopThree() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return TopThree(v.students)
}

func (v *View) IsTopThree(id string) bool {
	for _, topID := range v.TopThree() {
		if topID == id {
			return true
		}
	}
	return false
}

func (v *View) indexOf(id string) int {
	for i, s := range v.students {
		if s.ID == id {
			return i
		}
	}
	return -1
}

// ApplyPointChange reconciles updated with the held copy, replaces it and queues the resulting events.
// ErrPromotionMismatch is returned, with the update applied, when serverPromoted disagrees with the local verdict.
func (v *View) ApplyPointChange(updated student.Student, serverPromoted bool) (Change, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	i := v.indexOf(updated.ID)
	if i < 0 {
		return Change{}, errors.Wrap(ErrUnknownStudent, updated.ID)
	}

	change := Reconcile(v.students[i], updated)
	v.students[i] = updated

	v.events = append(v.events, Updated{StudentID: updated.ID, Delta: change.Delta})
	if change.TierChanged {
		v.events = append(v.events, Promoted{StudentID: updated.ID, Name: updated.Name, Tier: *change.NewTier})
	}

	if change.TierChanged != serverPromoted {
		return change, ErrPromotionMismatch
	}
	return change, nil
}

// ApplyStudent replaces the held copy of updated without queuing events.
// A student of the selected classroom missing from the list is appended.
func (v *View) ApplyStudent(updated student.Student) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	if i := v.indexOf(updated.ID); i >= 0 {
		v.students[i] = updated
		return true
	}
	if updated.ClassroomID == v.classroomID {
		v.students = append(v.students, updated)
		return true
	}
	return false
}

// Remove drops a student from the list.
func (v *View) Remove(id string) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if i := v.indexOf(id); i >= 0 {
		v.students = append(v.students[:i], v.students[i+1:]...)
	}
}

// Begin marks a request for the student as in flight. done must be called once the request completes.
// A second Begin for the same student before done fails with ErrRequestPending.
func (v *View) Begin(studentID string) (done func(), err error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if _, ok := v.pending[studentID]; ok {
		return nil, ErrRequestPending
	}
	v.pending[studentID] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			v.mu.Lock()
			delete(v.pending, studentID)
			v.mu.Unlock()
		})
	}, nil
}

// Drain returns the queued events, oldest first, and empties the queue.
func (v *View) Drain() []Event {
	v.mu.Lock()
	defer v.mu.Unlock()

	events := v.events
	v.events = nil
	return events
}
