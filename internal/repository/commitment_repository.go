package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"seeding/internal/lifecycle"
	"seeding/internal/model"
)

// CommitmentRepository handles CRUD for commitments.
type CommitmentRepository struct {
	db *gorm.DB
}

func NewCommitmentRepository(db *gorm.DB) *CommitmentRepository {
	return &CommitmentRepository{db: db}
}

func (r *CommitmentRepository) Create(ctx context.Context, commitment *model.Commitment) error {
	return createCommitment(r.db.WithContext(ctx), commitment)
}

func createCommitment(db *gorm.DB, commitment *model.Commitment) error {
	commitment.Deadline = commitment.Deadline.UTC()
	commitment.CreatedAt = commitment.CreatedAt.UTC()
	if err := db.Create(commitment).Error; err != nil {
		return fmt.Errorf("create commitment: %w", err)
	}
	return nil
}

func (r *CommitmentRepository) FindByRef(ctx context.Context, userID uint, ref string) (*model.Commitment, error) {
	return findByRef[model.Commitment](ctx, r.db, userID, ref)
}

// ListByStatus returns the user's commitments in the given states, soonest deadline first.
func (r *CommitmentRepository) ListByStatus(ctx context.Context, userID uint, statuses ...lifecycle.Status) ([]model.Commitment, error) {
	var commitments []model.Commitment
	if err := r.db.WithContext(ctx).Where("user_id = ? AND status IN ?", userID, encodeStatuses(statuses)).
		Order("deadline ASC, created_at ASC").
		Find(&commitments).Error; err != nil {
		return nil, fmt.Errorf("list commitments: %w", err)
	}
	return commitments, nil
}

// UpdateStatus writes the obligation's status only if the stored row still
// has the previous status. It reports whether the row was updated.
func (r *CommitmentRepository) UpdateStatus(ctx context.Context, o lifecycle.Obligation, previous lifecycle.Status) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Commitment{}).
		Where("id = ? AND status = ?", o.ID, encodeStatus(previous)).
		Updates(map[string]interface{}{
			"status":       encodeStatus(o.Status),
			"fulfilled_at": utcPtr(o.ResolvedAt),
		})
	if res.Error != nil {
		return false, fmt.Errorf("update commitment: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// CommitmentObligation converts a stored commitment into its lifecycle form.
func CommitmentObligation(c model.Commitment) (lifecycle.Obligation, error) {
	status, err := decodeStatus(c.Status)
	if err != nil {
		return lifecycle.Obligation{}, fmt.Errorf("commitment %s: %w", c.ID, err)
	}
	return lifecycle.Obligation{
		ID:         c.ID,
		Kind:       lifecycle.KindCommitment,
		CreatedAt:  c.CreatedAt,
		Deadline:   c.Deadline,
		Status:     status,
		ResolvedAt: c.FulfilledAt,
	}, nil
}

// NewCommitmentRow builds a row for a freshly created obligation.
func NewCommitmentRow(userID uint, actionID *uint, title string, o lifecycle.Obligation) model.Commitment {
	return model.Commitment{
		ID:        o.ID,
		UserID:    userID,
		ActionID:  actionID,
		Title:     title,
		Deadline:  o.Deadline,
		Status:    encodeStatus(o.Status),
		CreatedAt: o.CreatedAt,
	}
}

// ApplyCommitment copies lifecycle fields back onto a loaded row.
func ApplyCommitment(c *model.Commitment, o lifecycle.Obligation) {
	c.Status = encodeStatus(o.Status)
	c.FulfilledAt = o.ResolvedAt
}
