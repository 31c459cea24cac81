package sqlxrepos

import (
	"context"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/lophoc/core"
	"github.com/trezcool/lophoc/core/student"
)

type studentRow struct {
	ID          string      `db:"id"`
	ClassroomID string      `db:"classroom_id"`
	Name        string      `db:"name"`
	OrderNumber int         `db:"order_number"`
	TotalPoints int         `db:"total_points"`
	Avatar      null.String `db:"avatar"`
	CreatedAt   time.Time   `db:"created_at"`
}

func bindStudent(s student.Student) studentRow {
	return studentRow{
		ID:          s.ID,
		ClassroomID: s.ClassroomID,
		Name:        s.Name,
		OrderNumber: s.OrderNumber,
		TotalPoints: s.TotalPoints,
		Avatar:      null.NewString(s.Avatar, s.Avatar != ""),
		CreatedAt:   s.CreatedAt.UTC(),
	}
}

func (r studentRow) unbind() student.Student {
	return student.Student{
		ID:          r.ID,
		ClassroomID: r.ClassroomID,
		Name:        r.Name,
		OrderNumber: r.OrderNumber,
		TotalPoints: r.TotalPoints,
		Avatar:      r.Avatar.String,
		CreatedAt:   r.CreatedAt.UTC(),
	}
}

type historyRow struct {
	ID          string    `db:"id"`
	StudentID   string    `db:"student_id"`
	Change      int       `db:"change"`
	Reason      string    `db:"reason"`
	PointsAfter int       `db:"points_after"`
	Timestamp   time.Time `db:"timestamp"`
}

func (r historyRow) unbind() student.PointHistoryEntry {
	return student.PointHistoryEntry{
		ID:          r.ID,
		StudentID:   r.StudentID,
		Change:      r.Change,
		Reason:      r.Reason,
		PointsAfter: r.PointsAfter,
		Timestamp:   r.Timestamp.UTC(),
	}
}

type redemptionRow struct {
	ID          string      `db:"id"`
	StudentID   string      `db:"student_id"`
	RewardID    null.String `db:"reward_id"`
	RewardName  string      `db:"reward_name"`
	PointsSpent int         `db:"points_spent"`
	Timestamp   time.Time   `db:"timestamp"`
}

func (r redemptionRow) unbind() student.Redemption {
	return student.Redemption{
		ID:          r.ID,
		StudentID:   r.StudentID,
		RewardID:    r.RewardID.String,
		RewardName:  r.RewardName,
		PointsSpent: r.PointsSpent,
		Timestamp:   r.Timestamp.UTC(),
	}
}

const (
	studentColumns    = `id, classroom_id, name, order_number, total_points, avatar, created_at`
	historyColumns    = `h.id, h.student_id, h.change, h.reason, h.points_after, h.timestamp`
	redemptionColumns = `r.id, r.student_id, r.reward_id, r.reward_name, r.points_spent, r.timestamp`
)

var studentOrdering = core.OrderBy(
	core.DBOrdering{Field: "order_number", Ascending: true},
	core.DBOrdering{Field: "created_at", Ascending: true},
)

type studentRepository struct {
	db *sqlx.DB
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *sqlx.DB) student.Repository {
	return &studentRepository{db: db}
}

func (repo studentRepository) CreateStudent(ctx context.Context, s student.Student) (student.Student, error) {
	_, err := repo.db.NamedExecContext(ctx,
		`INSERT INTO students (`+studentColumns+`)
		VALUES (:id, :classroom_id, :name, :order_number, :total_points, :avatar, :created_at)`,
		bindStudent(s),
	)
	if err != nil {
		return student.Student{}, errors.Wrap(err, "inserting student")
	}
	return s, nil
}

func (repo studentRepository) QueryStudents(ctx context.Context, classroomID string) ([]student.Student, error) {
	if !validID(classroomID) {
		return []student.Student{}, nil
	}
	var rows []studentRow
	q := `SELECT ` + studentColumns + ` FROM students WHERE classroom_id = $1` + studentOrdering
	if err := repo.db.SelectContext(ctx, &rows, q, classroomID); err != nil {
		return nil, errors.Wrap(err, "querying students")
	}

	students := make([]student.Student, 0, len(rows))
	for _, r := range rows {
		students = append(students, r.unbind())
	}
	return students, nil
}

func (repo studentRepository) getStudent(ctx context.Context, q sqlx.QueryerContext, id string, lock bool) (student.Student, error) {
	if !validID(id) {
		return student.Student{}, student.ErrNotFound
	}
	query := `SELECT ` + studentColumns + ` FROM students WHERE id = $1`
	if lock {
		query += ` FOR UPDATE`
	}
	var row studentRow
	if err := sqlx.GetContext(ctx, q, &row, query, id); err != nil {
		return student.Student{}, trapNoRowsErr(err, student.ErrNotFound, "getting student")
	}
	return row.unbind(), nil
}

func (repo studentRepository) GetStudent(ctx context.Context, id string) (student.Student, error) {
	return repo.getStudent(ctx, repo.db, id, false)
}

func (repo studentRepository) UpdateStudent(ctx context.Context, id string, us student.UpdateStudent) (student.Student, error) {
	if !validID(id) {
		return student.Student{}, student.ErrNotFound
	}

	// only save set fields
	sets := make([]string, 0, 3)
	args := map[string]interface{}{"id": id}
	if us.Name != nil {
		sets = append(sets, "name = :name")
		args["name"] = *us.Name
	}
	if us.OrderNumber != nil {
		sets = append(sets, "order_number = :order_number")
		args["order_number"] = *us.OrderNumber
	}
	if us.Avatar != nil {
		sets = append(sets, "avatar = :avatar")
		args["avatar"] = null.NewString(*us.Avatar, *us.Avatar != "")
	}
	if len(sets) == 0 {
		return repo.GetStudent(ctx, id)
	}

	q := `UPDATE students SET ` + strings.Join(sets, ", ") + ` WHERE id = :id RETURNING ` + studentColumns
	rows, err := repo.db.NamedQueryContext(ctx, q, args)
	if err != nil {
		return student.Student{}, errors.Wrap(err, "updating student")
	}
	defer func() { _ = rows.Close() }()

	if !rows.Next() {
		if err = rows.Err(); err != nil {
			return student.Student{}, errors.Wrap(err, "updating student")
		}
		return student.Student{}, student.ErrNotFound
	}
	var row studentRow
	if err = rows.StructScan(&row); err != nil {
		return student.Student{}, errors.Wrap(err, "scanning student")
	}
	return row.unbind(), nil
}

func (repo studentRepository) DeleteStudent(ctx context.Context, id string) error {
	if !validID(id) {
		return student.ErrNotFound
	}
	// history and redemptions go with it (ON DELETE CASCADE)
	return execAffected(ctx, repo.db, student.ErrNotFound, "deleting student",
		`DELETE FROM students WHERE id = $1`, id)
}

func (repo studentRepository) UpdatePoints(
	ctx context.Context,
	id string,
	fn student.PointsUpdater,
) (student.Student, student.PointHistoryEntry, error) {
	var (
		updated student.Student
		entry   student.PointHistoryEntry
	)

	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		current, err := repo.getStudent(ctx, tx, id, true)
		if err != nil {
			return err
		}
		update, err := fn(current)
		if err != nil {
			return err
		}

		var rdm *student.Redemption
		updated, entry, rdm = update.Apply(current, time.Now().UTC())

		if _, err = tx.ExecContext(ctx,
			`UPDATE students SET total_points = $1 WHERE id = $2`, updated.TotalPoints, updated.ID,
		); err != nil {
			return errors.Wrap(err, "updating total points")
		}
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO point_history (id, student_id, change, reason, points_after, timestamp)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			entry.ID, entry.StudentID, entry.Change, entry.Reason, entry.PointsAfter, entry.Timestamp,
		); err != nil {
			return errors.Wrap(err, "inserting point history")
		}
		if rdm != nil {
			if _, err = tx.ExecContext(ctx,
				`INSERT INTO rewards_redeemed (id, student_id, reward_id, reward_name, points_spent, timestamp)
				VALUES ($1, $2, $3, $4, $5, $6)`,
				rdm.ID, rdm.StudentID, null.NewString(rdm.RewardID, rdm.RewardID != ""), rdm.RewardName,
				rdm.PointsSpent, rdm.Timestamp,
			); err != nil {
				return errors.Wrap(err, "inserting redemption")
			}
		}
		return nil
	})
	if err != nil {
		return student.Student{}, student.PointHistoryEntry{}, err
	}
	return updated, entry, nil
}

func (repo studentRepository) queryHistory(ctx context.Context, msg, where string, arg string) ([]student.PointHistoryEntry, error) {
	var rows []historyRow
	q := `SELECT ` + historyColumns + ` FROM point_history h JOIN students s ON s.id = h.student_id
		WHERE ` + where + core.OrderBy(core.DBOrdering{Field: "h.timestamp"})
	if err := repo.db.SelectContext(ctx, &rows, q, arg); err != nil {
		return nil, errors.Wrap(err, msg)
	}

	history := make([]student.PointHistoryEntry, 0, len(rows))
	for _, r := range rows {
		history = append(history, r.unbind())
	}
	return history, nil
}

func (repo studentRepository) QueryHistory(ctx context.Context, studentID string) ([]student.PointHistoryEntry, error) {
	if !validID(studentID) {
		return []student.PointHistoryEntry{}, nil
	}
	return repo.queryHistory(ctx, "querying point history", "h.student_id = $1", studentID)
}

func (repo studentRepository) QueryClassroomHistory(ctx context.Context, classroomID string) ([]student.PointHistoryEntry, error) {
	if !validID(classroomID) {
		return []student.PointHistoryEntry{}, nil
	}
	return repo.queryHistory(ctx, "querying classroom point history", "s.classroom_id = $1", classroomID)
}

func (repo studentRepository) queryRedemptions(ctx context.Context, msg, where string, arg string) ([]student.Redemption, error) {
	var rows []redemptionRow
	q := `SELECT ` + redemptionColumns + ` FROM rewards_redeemed r JOIN students s ON s.id = r.student_id
		WHERE ` + where + core.OrderBy(core.DBOrdering{Field: "r.timestamp"})
	if err := repo.db.SelectContext(ctx, &rows, q, arg); err != nil {
		return nil, errors.Wrap(err, msg)
	}

	redemptions := make([]student.Redemption, 0, len(rows))
	for _, r := range rows {
		redemptions = append(redemptions, r.unbind())
	}
	return redemptions, nil
}

func (repo studentRepository) QueryRedemptions(ctx context.Context, studentID string) ([]student.Redemption, error) {
	if !validID(studentID) {
		return []student.Redemption{}, nil
	}
	return repo.queryRedemptions(ctx, "querying redemptions", "r.student_id = $1", studentID)
}

func (repo studentRepository) QueryClassroomRedemptions(ctx context.Context, classroomID string) ([]student.Redemption, error) {
	if !validID(classroomID) {
		return []student.Redemption{}, nil
	}
	return repo.queryRedemptions(ctx, "querying classroom redemptions", "s.classroom_id = $1", classroomID)
}
