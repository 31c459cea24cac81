package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/lophoc/core"
	"github.com/trezcool/lophoc/core/classroom"
)

type classroomRow struct {
	ID           string    `db:"id"`
	Name         string    `db:"name"`
	CreatedAt    time.Time `db:"created_at"`
	StudentCount int       `db:"student_count"`
}

func (r classroomRow) unbind() classroom.Classroom {
	return classroom.Classroom{
		ID:           r.ID,
		Name:         r.Name,
		StudentCount: r.StudentCount,
		CreatedAt:    r.CreatedAt.UTC(),
	}
}

const classroomSelect = `
	SELECT c.id, c.name, c.created_at, COUNT(s.id) AS student_count
	FROM classrooms c
	LEFT JOIN students s ON s.classroom_id = c.id`

type classroomRepository struct {
	db *sqlx.DB
}

var _ classroom.Repository = (*classroomRepository)(nil) // interface compliance check

func NewClassroomRepository(db *sqlx.DB) classroom.Repository {
	return &classroomRepository{db: db}
}

func (repo classroomRepository) CreateClassroom(ctx context.Context, c classroom.Classroom) (classroom.Classroom, error) {
	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO classrooms (id, name, created_at) VALUES ($1, $2, $3)`,
		c.ID, c.Name, c.CreatedAt.UTC(),
	)
	if err != nil {
		return classroom.Classroom{}, errors.Wrap(err, "inserting classroom")
	}
	return c, nil
}

func (repo classroomRepository) QueryClassrooms(ctx context.Context) ([]classroom.Classroom, error) {
	var rows []classroomRow
	q := classroomSelect + ` GROUP BY c.id` + core.OrderBy(core.DBOrdering{Field: "c.created_at", Ascending: true})
	if err := repo.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, errors.Wrap(err, "querying classrooms")
	}

	classrooms := make([]classroom.Classroom, 0, len(rows))
	for _, r := range rows {
		classrooms = append(classrooms, r.unbind())
	}
	return classrooms, nil
}

func (repo classroomRepository) GetClassroom(ctx context.Context, id string) (classroom.Classroom, error) {
	if !validID(id) {
		return classroom.Classroom{}, classroom.ErrNotFound
	}
	var row classroomRow
	q := classroomSelect + ` WHERE c.id = $1 GROUP BY c.id`
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		return classroom.Classroom{}, trapNoRowsErr(err, classroom.ErrNotFound, "getting classroom")
	}
	return row.unbind(), nil
}

func (repo classroomRepository) DeleteClassroom(ctx context.Context, id string) error {
	if !validID(id) {
		return classroom.ErrNotFound
	}
	// students, rewards and their records go with it (ON DELETE CASCADE)
	return execAffected(ctx, repo.db, classroom.ErrNotFound, "deleting classroom",
		`DELETE FROM classrooms WHERE id = $1`, id)
}
