package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/lophoc/core/reward"
)

type rewardRepository struct {
	db *DB
}

var _ reward.Repository = (*rewardRepository)(nil) // interface compliance check

func NewRewardRepository(db *DB) reward.Repository {
	return &rewardRepository{db: db}
}

func (repo *rewardRepository) CreateReward(_ context.Context, r reward.Reward) (reward.Reward, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.rewards[r.ID] = &r
	return r, nil
}

func (repo *rewardRepository) QueryRewards(_ context.Context, classroomID string) ([]reward.Reward, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	rewards := make([]reward.Reward, 0)
	for _, r := range repo.db.rewards {
		if r.ClassroomID == classroomID {
			rewards = append(rewards, *r)
		}
	}
	sort.Slice(rewards, func(i, j int) bool {
		if rewards[i].PointsRequired != rewards[j].PointsRequired {
			return rewards[i].PointsRequired < rewards[j].PointsRequired
		}
		return rewards[i].CreatedAt.Before(rewards[j].CreatedAt)
	})
	return rewards, nil
}

func (repo *rewardRepository) GetReward(_ context.Context, id string) (reward.Reward, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if r, ok := repo.db.rewards[id]; ok {
		return *r, nil
	}
	return reward.Reward{}, reward.ErrNotFound
}

func (repo *rewardRepository) DeleteReward(_ context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.rewards[id]; !ok {
		return reward.ErrNotFound
	}
	delete(repo.db.rewards, id)
	return nil
}
