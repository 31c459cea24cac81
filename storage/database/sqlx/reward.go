package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/lophoc/core"
	"github.com/trezcool/lophoc/core/reward"
)

type rewardRow struct {
	ID             string    `db:"id"`
	ClassroomID    string    `db:"classroom_id"`
	Name           string    `db:"name"`
	Description    string    `db:"description"`
	Icon           string    `db:"icon"`
	PointsRequired int       `db:"points_required"`
	CreatedAt      time.Time `db:"created_at"`
}

func (r rewardRow) unbind() reward.Reward {
	return reward.Reward{
		ID:             r.ID,
		ClassroomID:    r.ClassroomID,
		Name:           r.Name,
		Description:    r.Description,
		Icon:           r.Icon,
		PointsRequired: r.PointsRequired,
		CreatedAt:      r.CreatedAt.UTC(),
	}
}

const rewardColumns = `id, classroom_id, name, description, icon, points_required, created_at`

// cheapest first
var rewardOrdering = core.OrderBy(
	core.DBOrdering{Field: "points_required", Ascending: true},
	core.DBOrdering{Field: "created_at", Ascending: true},
)

type rewardRepository struct {
	db *sqlx.DB
}

var _ reward.Repository = (*rewardRepository)(nil) // interface compliance check

func NewRewardRepository(db *sqlx.DB) reward.Repository {
	return &rewardRepository{db: db}
}

func (repo rewardRepository) CreateReward(ctx context.Context, r reward.Reward) (reward.Reward, error) {
	_, err := repo.db.NamedExecContext(ctx,
		`INSERT INTO rewards (`+rewardColumns+`)
		VALUES (:id, :classroom_id, :name, :description, :icon, :points_required, :created_at)`,
		rewardRow{
			ID:             r.ID,
			ClassroomID:    r.ClassroomID,
			Name:           r.Name,
			Description:    r.Description,
			Icon:           r.Icon,
			PointsRequired: r.PointsRequired,
			CreatedAt:      r.CreatedAt.UTC(),
		},
	)
	if err != nil {
		return reward.Reward{}, errors.Wrap(err, "inserting reward")
	}
	return r, nil
}

func (repo rewardRepository) QueryRewards(ctx context.Context, classroomID string) ([]reward.Reward, error) {
	if !validID(classroomID) {
		return []reward.Reward{}, nil
	}
	var rows []rewardRow
	q := `SELECT ` + rewardColumns + ` FROM rewards WHERE classroom_id = $1` + rewardOrdering
	if err := repo.db.SelectContext(ctx, &rows, q, classroomID); err != nil {
		return nil, errors.Wrap(err, "querying rewards")
	}

	rewards := make([]reward.Reward, 0, len(rows))
	for _, r := range rows {
		rewards = append(rewards, r.unbind())
	}
	return rewards, nil
}

func (repo rewardRepository) GetReward(ctx context.Context, id string) (reward.Reward, error) {
	if !validID(id) {
		return reward.Reward{}, reward.ErrNotFound
	}
	var row rewardRow
	q := `SELECT ` + rewardColumns + ` FROM rewards WHERE id = $1`
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		return reward.Reward{}, trapNoRowsErr(err, reward.ErrNotFound, "getting reward")
	}
	return row.unbind(), nil
}

func (repo rewardRepository) DeleteReward(ctx context.Context, id string) error {
	if !validID(id) {
		return reward.ErrNotFound
	}
	// redemption records keep their copied name and cost (ON DELETE SET NULL)
	return execAffected(ctx, repo.db, reward.ErrNotFound, "deleting reward",
		`DELETE FROM rewards WHERE id = $1`, id)
}
