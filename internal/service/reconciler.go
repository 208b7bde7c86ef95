package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"postguard/internal/models"
	"postguard/internal/observability"
	"postguard/internal/repository"
)

// PostVerifier runs one verification pass over a post.
type PostVerifier interface {
	VerifyPost(ctx context.Context, post *models.Post) error
}

// ReconcilerService periodically sweeps pending posts and dispatches each
// one with due work to the verifier. The interval is measured from the end
// of one sweep to the start of the next, so slow sweeps never overlap.
type ReconcilerService struct {
	repo      repository.PostRepository
	verifier  PostVerifier
	interval  time.Duration
	batchSize int
	kick      chan struct{}
	now       func() time.Time
}

// NewReconcilerService creates the background reconciliation loop.
func NewReconcilerService(repo repository.PostRepository, verifier PostVerifier, interval time.Duration, batchSize int) *ReconcilerService {
	return &ReconcilerService{
		repo:      repo,
		verifier:  verifier,
		interval:  interval,
		batchSize: batchSize,
		kick:      make(chan struct{}, 1),
		now:       time.Now,
	}
}

// Kick requests an immediate sweep without waiting for the interval. It
// never blocks; a sweep already requested absorbs further kicks.
func (s *ReconcilerService) Kick() {
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

// Run executes sweeps until ctx is cancelled. Cancellation is honored
// between posts, never mid-write.
func (s *ReconcilerService) Run(ctx context.Context) {
	slog.InfoContext(ctx, "reconciliation loop started", "interval", s.interval)
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "reconciliation loop stopped")
			return
		case <-timer.C:
		case <-s.kick:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
		}

		if err := s.Sweep(ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.ErrorContext(ctx, "sweep failed", "error", err)
		}

		timer.Reset(s.interval)
	}
}

// Sweep runs one pass over all pending posts. A single post's failure is
// logged and counted; the sweep continues with the remaining posts.
func (s *ReconcilerService) Sweep(ctx context.Context) error {
	ctx, span := observability.Tracer.Start(ctx, "reconciler.Sweep")
	defer span.End()

	start := time.Now()
	posts, err := s.repo.ListPending(ctx, s.batchSize)
	if err != nil {
		return err
	}

	dispatched := 0
	for _, post := range posts {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !post.AnyFieldDue(s.now()) {
			continue
		}
		if err := s.verifier.VerifyPost(ctx, post); err != nil {
			observability.SweepPostErrors.Inc()
			slog.ErrorContext(ctx, "post verification failed", "post_id", post.ID, "error", err)
			continue
		}
		dispatched++
	}

	observability.SweepsTotal.Inc()
	observability.SweepDuration.Observe(time.Since(start).Seconds())
	slog.DebugContext(ctx, "sweep complete", "scanned", len(posts), "dispatched", dispatched)
	return nil
}
