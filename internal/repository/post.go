// Package repository provides data access for posts moving through the
// verification pipeline.
package repository

import (
	"context"
	"errors"

	"postguard/internal/models"

	"gorm.io/gorm"
)

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id string) (*models.Post, error)
	ListPending(ctx context.Context, limit int) ([]*models.Post, error)
	ListByStatus(ctx context.Context, status models.VerificationStatus, limit, offset int) ([]*models.Post, error)
	UpdateVerification(ctx context.Context, id string, version int64, fields map[string]interface{}) error
	ResetVerification(ctx context.Context, id string) error
}

// postRepository implements PostRepository
type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		return models.NewStoreUnavailableError(err)
	}
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id string) (*models.Post, error) {
	var post models.Post
	err := r.db.WithContext(ctx).First(&post, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("post", id)
		}
		return nil, models.NewStoreUnavailableError(err)
	}
	return &post, nil
}

// ListPending returns posts still awaiting a verdict, oldest first so that
// no post starves behind newer submissions.
func (r *postRepository) ListPending(ctx context.Context, limit int) ([]*models.Post, error) {
	var posts []*models.Post
	err := r.db.WithContext(ctx).
		Where("verification_status = ?", models.VerificationPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&posts).Error
	if err != nil {
		return nil, models.NewStoreUnavailableError(err)
	}
	return posts, nil
}

func (r *postRepository) ListByStatus(ctx context.Context, status models.VerificationStatus, limit, offset int) ([]*models.Post, error) {
	var posts []*models.Post
	err := r.db.WithContext(ctx).
		Where("verification_status = ?", status).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	if err != nil {
		return nil, models.NewStoreUnavailableError(err)
	}
	return posts, nil
}

// UpdateVerification applies the given verification columns only if the row
// still carries the version the caller read. A lost race surfaces as
// VERSION_CONFLICT so the caller can drop its stale result.
func (r *postRepository) UpdateVerification(ctx context.Context, id string, version int64, fields map[string]interface{}) error {
	fields["version"] = gorm.Expr("version + 1")

	res := r.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("id = ? AND version = ?", id, version).
		Updates(fields)
	if res.Error != nil {
		return models.NewStoreUnavailableError(res.Error)
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return models.NewStoreUnavailableError(err)
		}
		if count == 0 {
			return models.NewNotFoundError("post", id)
		}
		return models.NewVersionConflictError(id)
	}
	return nil
}

// ResetVerification returns a post to the unprocessed state so the next
// sweep re-evaluates everything from scratch.
func (r *postRepository) ResetVerification(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"verification_status":       models.VerificationPending,
			"is_visible":                false,
			"rejected_reasons":          models.ReasonList(nil),
			"text_safe_status":          models.FieldNotProcessed,
			"text_safe_safe":            false,
			"text_safe_cooldown_until":  nil,
			"image_safe_status":         models.FieldNotProcessed,
			"image_safe_safe":           false,
			"image_safe_cooldown_until": nil,
			"last_verified_at":          nil,
			"version":                   gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return models.NewStoreUnavailableError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("post", id)
	}
	return nil
}
