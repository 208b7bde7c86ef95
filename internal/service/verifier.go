// Package service implements the verification pipeline: the per-post
// verifier, the synchronous pre-check gate and the reconciliation loop.
package service

import (
	"context"
	"log/slog"
	"time"

	"postguard/internal/classifier"
	"postguard/internal/models"
	"postguard/internal/observability"
	"postguard/internal/repository"

	"golang.org/x/sync/errgroup"
)

// TextChecker classifies free text.
type TextChecker interface {
	ClassifyText(ctx context.Context, text string) (classifier.TextVerdict, error)
}

// ImageChecker classifies an image by reference.
type ImageChecker interface {
	ClassifyImage(ctx context.Context, imageRef string) (classifier.ImageVerdict, error)
}

// VerifierService runs one verification pass over a post: it evaluates every
// due field, merges fresh verdicts with carried ones and commits the result
// in a single conditional write.
type VerifierService struct {
	repo     repository.PostRepository
	text     TextChecker
	image    ImageChecker
	cooldown time.Duration
	now      func() time.Time
}

// NewVerifierService creates a verifier. cooldown is how long a field backs
// off after its content is reported malformed.
func NewVerifierService(repo repository.PostRepository, text TextChecker, image ImageChecker, cooldown time.Duration) *VerifierService {
	return &VerifierService{
		repo:     repo,
		text:     text,
		image:    image,
		cooldown: cooldown,
		now:      time.Now,
	}
}

// fieldResult is the outcome of checking one field in this pass.
type fieldResult struct {
	state   models.FieldState
	reasons []string
	checked bool
	imageAI bool
}

// VerifyPost runs one pass over the post. Due fields are checked
// concurrently; a transient classifier or store failure aborts the pass with
// no write, so the post is retried unchanged on a later sweep. Content a
// classifier permanently rejects puts only that field into cooldown and the
// pass continues.
func (s *VerifierService) VerifyPost(ctx context.Context, post *models.Post) error {
	ctx, span := observability.Tracer.Start(ctx, "verifier.VerifyPost")
	defer span.End()

	now := s.now()
	textRes := fieldResult{state: post.TextSafe}
	imageRes := fieldResult{state: post.ImageSafe}

	g, gctx := errgroup.WithContext(ctx)

	if post.TextSafe.Due(now) {
		g.Go(func() error {
			res, err := s.checkText(gctx, post, now)
			if err != nil {
				return err
			}
			textRes = res
			return nil
		})
	}
	if post.HasImage() && post.ImageSafe.Due(now) {
		g.Go(func() error {
			res, err := s.checkImage(gctx, post, now)
			if err != nil {
				return err
			}
			imageRes = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	status, visible := mergeStatus(post, textRes.state, imageRes.state)

	reasons := mergeReasons(post, textRes, imageRes)

	fields := map[string]interface{}{
		"text_safe_status":          textRes.state.Status,
		"text_safe_safe":            textRes.state.Safe,
		"text_safe_cooldown_until":  textRes.state.CooldownUntil,
		"image_safe_status":         imageRes.state.Status,
		"image_safe_safe":           imageRes.state.Safe,
		"image_safe_cooldown_until": imageRes.state.CooldownUntil,
		"verification_status":       status,
		"rejected_reasons":          models.ReasonList(reasons),
		"is_visible":                visible,
		"last_verified_at":          now,
	}
	if imageRes.imageAI {
		fields["image_ai"] = true
	}

	if err := s.repo.UpdateVerification(ctx, post.ID, post.Version, fields); err != nil {
		return err
	}

	observability.VerificationOutcomes.WithLabelValues(string(status)).Inc()
	slog.InfoContext(ctx, "verification pass complete",
		"post_id", post.ID,
		"status", status,
		"text_status", textRes.state.Status,
		"image_status", imageRes.state.Status,
		"reasons", len(reasons),
	)
	return nil
}

func (s *VerifierService) checkText(ctx context.Context, post *models.Post, now time.Time) (fieldResult, error) {
	verdict, err := s.text.ClassifyText(ctx, post.CombinedText())
	if err != nil {
		if models.HasCode(err, models.ErrCodeMalformedContent) {
			slog.WarnContext(ctx, "text unprocessable, backing off", "post_id", post.ID, "error", err)
			return fieldResult{state: models.CooldownState(now.Add(s.cooldown)), checked: true}, nil
		}
		return fieldResult{}, err
	}
	return fieldResult{state: models.DoneState(verdict.Safe), reasons: verdict.Reasons, checked: true}, nil
}

func (s *VerifierService) checkImage(ctx context.Context, post *models.Post, now time.Time) (fieldResult, error) {
	verdict, err := s.image.ClassifyImage(ctx, post.ImageURL)
	if err != nil {
		if models.HasCode(err, models.ErrCodeMalformedContent) {
			slog.WarnContext(ctx, "image unprocessable, backing off", "post_id", post.ID, "error", err)
			return fieldResult{state: models.CooldownState(now.Add(s.cooldown)), checked: true}, nil
		}
		return fieldResult{}, err
	}
	if verdict.AIGenerated {
		// Synthetic images are allowed through; they are labeled, not blocked.
		return fieldResult{state: models.DoneState(true), checked: true, imageAI: true}, nil
	}
	return fieldResult{state: models.DoneState(verdict.Safe), reasons: verdict.Reasons, checked: true}, nil
}

// mergeStatus derives the overall status from the per-field states. Any
// evaluated unsafe field rejects the post. Approval requires every
// applicable field to be evaluated safe. Anything else stays pending and
// hidden.
func mergeStatus(post *models.Post, text, image models.FieldState) (models.VerificationStatus, bool) {
	imageApplies := post.HasImage()

	if text.Evaluated() && !text.Safe {
		return models.VerificationRejected, false
	}
	if imageApplies && image.Evaluated() && !image.Safe {
		return models.VerificationRejected, false
	}
	if text.Evaluated() && (!imageApplies || image.Evaluated()) {
		return models.VerificationApproved, true
	}
	return models.VerificationPending, false
}

// mergeReasons rebuilds the rejection reason list for this pass. Fresh
// verdicts contribute their reasons; a carried unsafe verdict keeps the
// reasons recorded when it was produced.
func mergeReasons(post *models.Post, text, image fieldResult) []string {
	var reasons []string
	carriedUnsafe := (!text.checked && text.state.Evaluated() && !text.state.Safe) ||
		(post.HasImage() && !image.checked && image.state.Evaluated() && !image.state.Safe)
	if carriedUnsafe {
		reasons = append(reasons, post.RejectedReasons...)
	}
	reasons = append(reasons, text.reasons...)
	reasons = append(reasons, image.reasons...)
	return reasons
}
