package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"seeding/internal/bot"
	"seeding/internal/config"
	"seeding/internal/lifecycle"
	"seeding/internal/repository"
	"seeding/internal/service"
	"seeding/internal/settings"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "seeding: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, err := newLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	db, err := repository.NewDB(cfg.DatabaseURL, log)
	if err != nil {
		return fmt.Errorf("db: %w", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	st, err := settings.New(cfg.ReportInterval, cfg.Language)
	if err != nil {
		return fmt.Errorf("settings: %w", err)
	}

	clock := lifecycle.InLocation(lifecycle.SystemClock{}, loc)
	userRepo := repository.NewUserRepository(db)
	actionRepo := repository.NewActionRepository(db)
	commitmentRepo := repository.NewCommitmentRepository(db)
	goalRepo := repository.NewGoalRepository(db)
	store := repository.NewObligationStore(commitmentRepo, goalRepo)

	actionSvc := service.NewActionService(actionRepo, clock, cfg.CommitmentWindow, log.Named("actions"))
	commitmentSvc := service.NewCommitmentService(commitmentRepo, clock, log.Named("commitments"))
	goalSvc := service.NewGoalService(goalRepo, clock, log.Named("goals"))
	reconcileSvc := service.NewReconcileService(userRepo, store, clock, runtime.GOMAXPROCS(0), log.Named("reconcile"))
	reminderSvc := service.NewReminderService(commitmentSvc, goalSvc, actionSvc, st)

	telegramBot, err := bot.New(cfg.TelegramToken, bot.Services{
		Users:       userRepo,
		Actions:     actionSvc,
		Commitments: commitmentSvc,
		Goals:       goalSvc,
		Reminders:   reminderSvc,
		Reconcile:   reconcileSvc,
	}, st, clock, log.Named("bot"))
	if err != nil {
		return fmt.Errorf("bot: %w", err)
	}

	scheduler := service.NewSchedulerService(loc)

	sweep := func() {
		jobCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		if _, err := reconcileSvc.Sweep(jobCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("reconcile sweep", zap.Error(err))
		}
	}
	if _, err := scheduler.ScheduleInterval(cfg.ReconcileInterval, sweep); err != nil {
		return fmt.Errorf("schedule reconcile: %w", err)
	}

	report := func() {
		jobCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		if err := telegramBot.SendReports(jobCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("send reports", zap.Error(err))
		}
	}
	reportID, err := scheduler.ScheduleInterval(st.Snapshot().ReportInterval, report)
	if err != nil {
		return fmt.Errorf("schedule reports: %w", err)
	}

	var reportMu sync.Mutex
	unsubscribe := st.Subscribe(func(snap settings.Snapshot) {
		reportMu.Lock()
		defer reportMu.Unlock()
		id, err := scheduler.Reschedule(reportID, snap.ReportInterval, report)
		if err != nil {
			log.Error("reschedule reports", zap.Duration("interval", snap.ReportInterval), zap.Error(err))
			return
		}
		reportID = id
	})
	defer unsubscribe()

	if cfg.DigestTime != "" {
		if _, err := scheduler.ScheduleDaily(cfg.DigestTime, report); err != nil {
			return fmt.Errorf("schedule digest: %w", err)
		}
	}

	scheduler.Start()
	defer scheduler.Stop()

	sweep()

	log.Info("seeding bot started",
		zap.Duration("reconcile_interval", cfg.ReconcileInterval),
		zap.Duration("report_interval", cfg.ReportInterval),
		zap.String("timezone", loc.String()),
	)
	if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("bot stopped: %w", err)
	}
	log.Info("shutdown complete")
	return nil
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}
