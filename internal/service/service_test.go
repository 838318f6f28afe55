package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"seeding/internal/model"
	"seeding/internal/repository"
	"seeding/internal/settings"
)

var base = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	db          *gorm.DB
	clock       *testClock
	users       *repository.UserRepository
	store       *repository.ObligationStore
	commitments *CommitmentService
	goals       *GoalService
	actions     *ActionService
	reconcile   *ReconcileService
	reminders   *ReminderService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := zap.NewNop()
	db, err := repository.NewDB(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()), log)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	clock := &testClock{now: base}
	commitmentRepo := repository.NewCommitmentRepository(db)
	goalRepo := repository.NewGoalRepository(db)
	users := repository.NewUserRepository(db)
	store := repository.NewObligationStore(commitmentRepo, goalRepo)

	st, err := settings.New(5*time.Hour, "en")
	require.NoError(t, err)

	f := &fixture{
		db:          db,
		clock:       clock,
		users:       users,
		store:       store,
		commitments: NewCommitmentService(commitmentRepo, clock, log),
		goals:       NewGoalService(goalRepo, clock, log),
		actions:     NewActionService(repository.NewActionRepository(db), clock, 15*time.Minute, log),
		reconcile:   NewReconcileService(users, store, clock, 4, log),
	}
	f.reminders = NewReminderService(f.commitments, f.goals, f.actions, st)
	return f
}

func (f *fixture) user(t *testing.T, telegramID int64) *model.User {
	t.Helper()
	user, err := f.users.Upsert(context.Background(), repository.Profile{TelegramID: telegramID, FirstName: "Sam"})
	require.NoError(t, err)
	return user
}
