package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"seeding/internal/model"
)

// SeedCount is how many actions of one polarity were logged for a seed.
type SeedCount struct {
	Seed     model.Seed
	Polarity model.Polarity
	Count    int64
}

// ActionRepository stores logged actions.
type ActionRepository struct {
	db *gorm.DB
}

func NewActionRepository(db *gorm.DB) *ActionRepository {
	return &ActionRepository{db: db}
}

func (r *ActionRepository) Create(ctx context.Context, action *model.Action) error {
	action.CreatedAt = action.CreatedAt.UTC()
	if err := r.db.WithContext(ctx).Create(action).Error; err != nil {
		return fmt.Errorf("create action: %w", err)
	}
	return nil
}

// CreateWithCommitment stores a negative action and the commitment made for
// it in one transaction. The commitment is linked to the new action id.
func (r *ActionRepository) CreateWithCommitment(ctx context.Context, action *model.Action, commitment *model.Commitment) error {
	action.CreatedAt = action.CreatedAt.UTC()
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(action).Error; err != nil {
			return fmt.Errorf("create action: %w", err)
		}
		commitment.ActionID = &action.ID
		return createCommitment(tx, commitment)
	})
}

func (r *ActionRepository) ListSince(ctx context.Context, userID uint, since time.Time) ([]model.Action, error) {
	var actions []model.Action
	if err := r.db.WithContext(ctx).Where("user_id = ? AND created_at >= ?", userID, since.UTC()).
		Order("created_at DESC").
		Find(&actions).Error; err != nil {
		return nil, fmt.Errorf("list actions: %w", err)
	}
	return actions, nil
}

// SeedTally counts the user's actions per seed and polarity since the given time.
func (r *ActionRepository) SeedTally(ctx context.Context, userID uint, since time.Time) ([]SeedCount, error) {
	var counts []SeedCount
	if err := r.db.WithContext(ctx).Model(&model.Action{}).
		Select("seed, polarity, COUNT(*) AS count").
		Where("user_id = ? AND created_at >= ? AND seed <> ''", userID, since.UTC()).
		Group("seed, polarity").
		Order("seed ASC, polarity ASC").
		Scan(&counts).Error; err != nil {
		return nil, fmt.Errorf("seed tally: %w", err)
	}
	return counts, nil
}
