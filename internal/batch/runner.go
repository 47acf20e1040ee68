// Package batch evaluates every active user once per scheduling cycle and
// creates deduplicated cash_check nudges.
package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"CashNudge/internal/dispatcher"
	"CashNudge/internal/ledger"
	"CashNudge/internal/model"
	"CashNudge/internal/reconcile"
	"CashNudge/internal/suggest"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Deliverer pushes a stored notification to a client channel.
type Deliverer interface {
	Deliver(ctx context.Context, n model.Notification) error
}

// Config tunes a run.
type Config struct {
	Workers      int
	UserTimeout  time.Duration
	MinUntracked decimal.Decimal
}

// Runner holds no state between runs; Run is a function of now and the
// store contents.
type Runner struct {
	Store      ledger.Store
	Positions  *reconcile.Service
	Suggest    *suggest.Generator
	Dispatcher *dispatcher.Dispatcher
	Deliverer  Deliverer

	cfg Config
	log zerolog.Logger
}

// New creates a Runner. A nil Deliverer disables push delivery.
func New(store ledger.Store, positions *reconcile.Service, gen *suggest.Generator, disp *dispatcher.Dispatcher, deliverer Deliverer, cfg Config, log zerolog.Logger) *Runner {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.UserTimeout <= 0 {
		cfg.UserTimeout = 10 * time.Second
	}
	return &Runner{
		Store:      store,
		Positions:  positions,
		Suggest:    gen,
		Dispatcher: disp,
		Deliverer:  deliverer,
		cfg:        cfg,
		log:        log,
	}
}

type outcome int

const (
	outcomeIneligible outcome = iota
	outcomeNotified
	outcomeSkipped
)

// Run evaluates every active user. Per-user failures are logged and
// counted; only a roster failure aborts the run.
func (r *Runner) Run(ctx context.Context, now time.Time) (model.BatchResult, error) {
	res := model.BatchResult{StartedAt: now}
	start := time.Now()

	users, err := r.Store.ActiveUsers(ctx)
	if err != nil {
		return res, fmt.Errorf("load active users: %w", err)
	}
	r.log.Info().Int("users", len(users)).Time("now", now).Msg("nightly cash check started")

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(r.cfg.Workers)

	for _, userID := range users {
		g.Go(func() error {
			out, n, err := r.evaluate(ctx, userID, now)

			mu.Lock()
			res.Processed++
			switch {
			case err != nil:
				res.Failed++
			case out == outcomeNotified:
				res.Notified++
			case out == outcomeSkipped:
				res.Skipped++
			default:
				res.Ineligible++
			}
			mu.Unlock()

			if err != nil {
				r.log.Error().Err(err).Str("user_id", userID).
					Bool("transient", errors.Is(err, model.ErrTransient)).
					Msg("cash check failed")
				return nil
			}
			if out == outcomeNotified {
				r.deliver(ctx, n)
			}
			return nil
		})
	}
	_ = g.Wait()

	res.FinishedAt = now.Add(time.Since(start))
	r.log.Info().
		Int("processed", res.Processed).
		Int("notified", res.Notified).
		Int("skipped", res.Skipped).
		Int("ineligible", res.Ineligible).
		Int("failed", res.Failed).
		Msg("nightly cash check finished")
	return res, nil
}

// evaluate runs one user's read-evaluate-insert sequence in a single
// transaction.
func (r *Runner) evaluate(ctx context.Context, userID string, now time.Time) (out outcome, n model.Notification, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic evaluating user %s: %v", userID, p)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, r.cfg.UserTimeout)
	defer cancel()

	err = r.Store.WithTx(ctx, func(tx ledger.Tx) error {
		pos, err := r.Positions.Position(ctx, tx, userID, now, 0)
		if err != nil {
			return err
		}
		if !pos.EligibleForNudge || pos.EstimatedUntrackedCash.LessThan(r.cfg.MinUntracked) {
			out = outcomeIneligible
			return nil
		}

		suggestions, err := r.Suggest.Suggest(ctx, tx, userID, now)
		if err != nil {
			return err
		}

		created, result, err := r.Dispatcher.Create(ctx, tx, userID, pos, suggestions, now)
		if err != nil {
			return err
		}
		if result == model.OutcomeSkipped {
			out = outcomeSkipped
			return nil
		}
		out, n = outcomeNotified, created
		return nil
	})
	if err != nil {
		return outcomeIneligible, model.Notification{}, err
	}
	return out, n, nil
}

func (r *Runner) deliver(ctx context.Context, n model.Notification) {
	if r.Deliverer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, r.cfg.UserTimeout)
	defer cancel()
	if err := r.Deliverer.Deliver(ctx, n); err != nil {
		r.log.Warn().Err(err).Str("user_id", n.UserID).Str("notification_id", n.ID).Msg("delivery failed")
	}
}
