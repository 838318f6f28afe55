package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"seeding/internal/lifecycle"
	"seeding/internal/model"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := NewDB(dsn, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func newUser(t *testing.T, db *gorm.DB, telegramID int64) *model.User {
	t.Helper()
	user, err := NewUserRepository(db).Upsert(context.Background(), Profile{TelegramID: telegramID, FirstName: "Ann"})
	require.NoError(t, err)
	return user
}

var base = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func TestUserUpsert(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	first, err := repo.Upsert(ctx, Profile{TelegramID: 42, FirstName: "Ann"})
	require.NoError(t, err)

	second, err := repo.Upsert(ctx, Profile{TelegramID: 42, FirstName: "Anna", Username: "anna", LanguageCode: "de"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	stored, err := repo.FindByTelegramID(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "Anna", stored.FirstName)
	assert.Equal(t, "anna", stored.Username)
	assert.Equal(t, "de", stored.LanguageCode)

	users, err := repo.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestCommitmentConditionalUpdate(t *testing.T) {
	db := newTestDB(t)
	user := newUser(t, db, 1)
	repo := NewCommitmentRepository(db)
	ctx := context.Background()

	o, err := lifecycle.NewCommitment(base, base.Add(15*time.Minute))
	require.NoError(t, err)
	row := NewCommitmentRow(user.ID, nil, "call mom", o)
	require.NoError(t, repo.Create(ctx, &row))

	unfulfilled, ok := lifecycle.Advance(o, base.Add(time.Hour))
	require.True(t, ok)

	updated, err := repo.UpdateStatus(ctx, unfulfilled, lifecycle.StatusPending)
	require.NoError(t, err)
	assert.True(t, updated)

	// A second writer that still believes the row is pending loses.
	fulfilled, err := lifecycle.Fulfill(o, base.Add(time.Minute))
	require.NoError(t, err)
	updated, err = repo.UpdateStatus(ctx, fulfilled, lifecycle.StatusPending)
	require.NoError(t, err)
	assert.False(t, updated)

	stored, err := repo.FindByRef(ctx, user.ID, ShortRef(o.ID))
	require.NoError(t, err)
	got, err := CommitmentObligation(*stored)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusUnfulfilled, got.Status)
	assert.True(t, got.Deadline.Equal(o.Deadline))
	assert.Nil(t, got.ResolvedAt)
}

func TestFindByRef(t *testing.T) {
	db := newTestDB(t)
	owner := newUser(t, db, 1)
	other := newUser(t, db, 2)
	repo := NewGoalRepository(db)
	ctx := context.Background()

	o, err := lifecycle.NewGoal(base, base.Add(24*time.Hour))
	require.NoError(t, err)
	row := NewGoalRow(owner.ID, "run 5k", "", model.SeedHealth, o)
	require.NoError(t, repo.Create(ctx, &row))

	found, err := repo.FindByRef(ctx, owner.ID, o.ID)
	require.NoError(t, err)
	assert.Equal(t, "run 5k", found.Title)

	found, err = repo.FindByRef(ctx, owner.ID, ShortRef(o.ID))
	require.NoError(t, err)
	assert.Equal(t, o.ID, found.ID)

	_, err = repo.FindByRef(ctx, other.ID, o.ID)
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound), "other users cannot see the goal")

	_, err = repo.FindByRef(ctx, owner.ID, "%")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	second := row
	second.ID = o.ID[:4] + uuid.NewString()[4:]
	require.NoError(t, repo.Create(ctx, &second))
	_, err = repo.FindByRef(ctx, owner.ID, o.ID[:4])
	assert.ErrorIs(t, err, ErrAmbiguousRef)
}

func TestObligationStore(t *testing.T) {
	db := newTestDB(t)
	user := newUser(t, db, 1)
	commitments := NewCommitmentRepository(db)
	goals := NewGoalRepository(db)
	store := NewObligationStore(commitments, goals)
	ctx := context.Background()

	c, err := lifecycle.NewCommitment(base, base.Add(time.Hour))
	require.NoError(t, err)
	cRow := NewCommitmentRow(user.ID, nil, "apologise", c)
	require.NoError(t, commitments.Create(ctx, &cRow))

	g, err := lifecycle.NewGoal(base, base.Add(48*time.Hour))
	require.NoError(t, err)
	gRow := NewGoalRow(user.ID, "read a book", "", model.SeedLearning, g)
	require.NoError(t, goals.Create(ctx, &gRow))

	done, err := lifecycle.NewGoal(base, base.Add(48*time.Hour))
	require.NoError(t, err)
	done, err = lifecycle.Complete(done, base.Add(time.Hour))
	require.NoError(t, err)
	doneRow := NewGoalRow(user.ID, "done already", "", "", done)
	require.NoError(t, goals.Create(ctx, &doneRow))

	active, err := store.LoadActiveObligations(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, lifecycle.KindCommitment, active[0].Kind)
	assert.Equal(t, lifecycle.KindGoal, active[1].Kind)

	overdue, ok := lifecycle.Advance(active[1], base.Add(72*time.Hour))
	require.True(t, ok)
	saved, err := store.Save(ctx, overdue, lifecycle.StatusInProgress)
	require.NoError(t, err)
	assert.True(t, saved)

	active, err = store.LoadActiveObligations(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, active, 1)

	_, err = store.Save(ctx, lifecycle.Obligation{ID: "x"}, lifecycle.StatusPending)
	assert.Error(t, err)
}

func TestActionWithCommitment(t *testing.T) {
	db := newTestDB(t)
	user := newUser(t, db, 1)
	actions := NewActionRepository(db)
	ctx := context.Background()

	require.NoError(t, actions.Create(ctx, &model.Action{
		UserID: user.ID, Title: "helped a neighbour", Polarity: model.PolarityPositive,
		Seed: model.SeedKindness, CreatedAt: base,
	}))

	o, err := lifecycle.NewCommitment(base, base.Add(15*time.Minute))
	require.NoError(t, err)
	commitment := NewCommitmentRow(user.ID, nil, "say sorry", o)
	action := model.Action{
		UserID: user.ID, Title: "snapped at a friend", Polarity: model.PolarityNegative,
		Seed: model.SeedPatience, CreatedAt: base.Add(time.Minute),
	}
	require.NoError(t, actions.CreateWithCommitment(ctx, &action, &commitment))
	require.NotNil(t, commitment.ActionID)
	assert.Equal(t, action.ID, *commitment.ActionID)

	listed, err := actions.ListSince(ctx, user.ID, base)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, "snapped at a friend", listed[0].Title)

	tally, err := actions.SeedTally(ctx, user.ID, base.Add(-time.Hour))
	require.NoError(t, err)
	assert.ElementsMatch(t, []SeedCount{
		{Seed: model.SeedKindness, Polarity: model.PolarityPositive, Count: 1},
		{Seed: model.SeedPatience, Polarity: model.PolarityNegative, Count: 1},
	}, tally)
}

func TestStatusCodec(t *testing.T) {
	for status, name := range statusNames {
		decoded, err := decodeStatus(name)
		require.NoError(t, err)
		assert.Equal(t, status, decoded)
	}
	_, err := decodeStatus("done")
	assert.Error(t, err)
}

func TestEnsureDirForSQLite(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, ensureDirForSQLite("file:"+dir+"/nested/seeding.db?_fk=1"))
	assert.DirExists(t, dir+"/nested")
	require.NoError(t, ensureDirForSQLite(":memory:"))
}
