package main

import (
	"context"
	"fmt"

	"CashNudge/internal/batch"
	"CashNudge/internal/calculator"
	"CashNudge/internal/config"
	"CashNudge/internal/dispatcher"
	"CashNudge/internal/logger"
	"CashNudge/internal/notifier"
	"CashNudge/internal/quickadd"
	"CashNudge/internal/reconcile"
	"CashNudge/internal/scheduler"
	"CashNudge/internal/store"
	"CashNudge/internal/suggest"

	"github.com/rs/zerolog"
)

// app is the wired component graph shared by every command.
type app struct {
	cfg        *config.Config
	log        zerolog.Logger
	store      *store.SQLiteStore
	positions  *reconcile.Service
	quickAdd   *quickadd.Handler
	dispatcher *dispatcher.Dispatcher
	runner     *batch.Runner
	scheduler  *scheduler.Scheduler
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log := logger.New(cfg.Log.Level)

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	threshold, err := cfg.Threshold()
	if err != nil {
		return nil, err
	}
	minUntracked, err := cfg.MinUntracked()
	if err != nil {
		return nil, err
	}

	st, err := store.Open(cfg.Database.SQLitePath, cfg.Database.Timeout, log)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	gen := suggest.NewGenerator(suggest.Options{
		LookbackDays:   cfg.Rules.SuggestionLookbackDays,
		RoutineBonus:   cfg.Rules.RoutineBonus,
		MaxSuggestions: cfg.Rules.MaxSuggestions,
	})
	rules := calculator.Rules{Threshold: threshold, MinDays: cfg.Rules.MinDaysSinceWithdrawal}
	positions := reconcile.NewService(st, rules, cfg.Rules.LookbackDays, gen)
	disp := dispatcher.New(loc, log)

	var deliverer batch.Deliverer
	if cfg.TelegramEnabled() {
		deliverer = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, log)
		log.Info().Msg("telegram delivery enabled")
	}

	runner := batch.New(st, positions, gen, disp, deliverer, batch.Config{
		Workers:      cfg.Batch.Workers,
		UserTimeout:  cfg.Batch.UserTimeout,
		MinUntracked: minUntracked,
	}, log)

	sched := scheduler.NewScheduler(ctx, runner, st, loc, log)
	if err := sched.Register(cfg.Schedule.NightlyCron); err != nil {
		_ = st.Close()
		return nil, err
	}

	return &app{
		cfg:        cfg,
		log:        log,
		store:      st,
		positions:  positions,
		quickAdd:   quickadd.NewHandler(st, positions, log),
		dispatcher: disp,
		runner:     runner,
		scheduler:  sched,
	}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.log.Error().Err(err).Msg("close store")
	}
}
