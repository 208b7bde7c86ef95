package service

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"postguard/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// verifierStub is a stub for PostVerifier.
type verifierStub struct {
	verifyFn func(context.Context, *models.Post) error
	calls    int64
}

func (s *verifierStub) VerifyPost(ctx context.Context, post *models.Post) error {
	atomic.AddInt64(&s.calls, 1)
	return s.verifyFn(ctx, post)
}

func TestSweepDispatchesDuePosts(t *testing.T) {
	repo := noopPostRepo()
	repo.listPendingFn = func(_ context.Context, _ int) ([]*models.Post, error) {
		return []*models.Post{
			{ID: "due", Title: "a"},
			{ID: "settled", Title: "b", TextSafe: models.DoneState(true)},
		}, nil
	}

	var verified []string
	verifier := &verifierStub{verifyFn: func(_ context.Context, post *models.Post) error {
		verified = append(verified, post.ID)
		return nil
	}}

	svc := NewReconcilerService(repo, verifier, time.Second, 100)
	require.NoError(t, svc.Sweep(context.Background()))
	assert.Equal(t, []string{"due"}, verified)
}

func TestSweepContinuesPastFailingPost(t *testing.T) {
	repo := noopPostRepo()
	repo.listPendingFn = func(_ context.Context, _ int) ([]*models.Post, error) {
		return []*models.Post{
			{ID: "boom", Title: "a"},
			{ID: "fine", Title: "b"},
		}, nil
	}

	var verified []string
	verifier := &verifierStub{verifyFn: func(_ context.Context, post *models.Post) error {
		verified = append(verified, post.ID)
		if post.ID == "boom" {
			return models.NewClassifierUnavailableError("text", assert.AnError)
		}
		return nil
	}}

	svc := NewReconcilerService(repo, verifier, time.Second, 100)
	require.NoError(t, svc.Sweep(context.Background()))
	assert.Equal(t, []string{"boom", "fine"}, verified)
}

func TestSweepStopsBetweenPostsOnCancel(t *testing.T) {
	repo := noopPostRepo()
	repo.listPendingFn = func(_ context.Context, _ int) ([]*models.Post, error) {
		return []*models.Post{
			{ID: "first", Title: "a"},
			{ID: "second", Title: "b"},
		}, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	verifier := &verifierStub{verifyFn: func(_ context.Context, _ *models.Post) error {
		cancel()
		return nil
	}}

	svc := NewReconcilerService(repo, verifier, time.Second, 100)
	err := svc.Sweep(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int64(1), atomic.LoadInt64(&verifier.calls))
}

func TestSweepPropagatesStoreFailure(t *testing.T) {
	repo := noopPostRepo()
	repo.listPendingFn = func(_ context.Context, _ int) ([]*models.Post, error) {
		return nil, models.NewStoreUnavailableError(assert.AnError)
	}

	svc := NewReconcilerService(repo, &verifierStub{verifyFn: func(_ context.Context, _ *models.Post) error { return nil }}, time.Second, 100)
	err := svc.Sweep(context.Background())
	require.Error(t, err)
	assert.True(t, models.HasCode(err, models.ErrCodeStoreUnavailable))
}

func TestRunHonorsKickAndCancel(t *testing.T) {
	repo := noopPostRepo()
	sweeps := make(chan struct{}, 16)
	repo.listPendingFn = func(_ context.Context, _ int) ([]*models.Post, error) {
		select {
		case sweeps <- struct{}{}:
		default:
		}
		return nil, nil
	}

	verifier := &verifierStub{verifyFn: func(_ context.Context, _ *models.Post) error { return nil }}
	svc := NewReconcilerService(repo, verifier, time.Hour, 100)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.Run(ctx)
		close(done)
	}()

	// The initial sweep fires immediately; a kick forces the next one long
	// before the hour interval.
	for i := 0; i < 2; i++ {
		select {
		case <-sweeps:
		case <-time.After(2 * time.Second):
			t.Fatal("sweep did not run in time")
		}
		svc.Kick()
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not stop after cancellation")
	}
}
