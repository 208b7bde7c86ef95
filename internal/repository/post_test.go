package repository

import (
	"context"
	"testing"
	"time"

	"postguard/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared&_pragma=foreign_keys(1)&mode=memory"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Post{}))
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		_ = sqlDB.Close()
	})
	return db
}

func TestCreateAndGetByID(t *testing.T) {
	repo := NewPostRepository(setupTestDB(t))
	ctx := context.Background()

	post := &models.Post{Title: "hello", Caption: "world", ImageURL: "https://cdn.example.com/a.jpg"}
	require.NoError(t, repo.Create(ctx, post))
	require.NotEmpty(t, post.ID)

	got, err := repo.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Title)
	assert.Equal(t, models.VerificationPending, got.VerificationStatus)
	assert.Equal(t, models.FieldNotProcessed, got.TextSafe.Status)
	assert.False(t, got.IsVisible)
}

func TestGetByIDNotFound(t *testing.T) {
	repo := NewPostRepository(setupTestDB(t))

	_, err := repo.GetByID(context.Background(), "no-such-id")
	require.Error(t, err)
	assert.True(t, models.HasCode(err, models.ErrCodeNotFound))
}

func TestListPendingOrdersOldestFirst(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	older := &models.Post{Title: "older"}
	newer := &models.Post{Title: "newer"}
	require.NoError(t, repo.Create(ctx, older))
	require.NoError(t, repo.Create(ctx, newer))
	require.NoError(t, db.Model(older).Update("created_at", time.Now().Add(-time.Hour)).Error)

	approved := &models.Post{Title: "done", VerificationStatus: models.VerificationApproved}
	require.NoError(t, repo.Create(ctx, approved))

	posts, err := repo.ListPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, "older", posts[0].Title)
	assert.Equal(t, "newer", posts[1].Title)
}

func TestUpdateVerificationVersionGuard(t *testing.T) {
	repo := NewPostRepository(setupTestDB(t))
	ctx := context.Background()

	post := &models.Post{Title: "guarded"}
	require.NoError(t, repo.Create(ctx, post))

	err := repo.UpdateVerification(ctx, post.ID, post.Version, map[string]interface{}{
		"verification_status": models.VerificationApproved,
		"is_visible":          true,
		"text_safe_status":    models.FieldDone,
		"text_safe_safe":      true,
	})
	require.NoError(t, err)

	got, err := repo.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, models.VerificationApproved, got.VerificationStatus)
	assert.True(t, got.IsVisible)
	assert.Equal(t, post.Version+1, got.Version)

	// A second write against the stale version must lose.
	err = repo.UpdateVerification(ctx, post.ID, post.Version, map[string]interface{}{
		"verification_status": models.VerificationRejected,
	})
	require.Error(t, err)
	assert.True(t, models.HasCode(err, models.ErrCodeVersionConflict))

	got, err = repo.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, models.VerificationApproved, got.VerificationStatus)
}

func TestUpdateVerificationNotFound(t *testing.T) {
	repo := NewPostRepository(setupTestDB(t))

	err := repo.UpdateVerification(context.Background(), "missing", 0, map[string]interface{}{
		"is_visible": true,
	})
	require.Error(t, err)
	assert.True(t, models.HasCode(err, models.ErrCodeNotFound))
}

func TestResetVerification(t *testing.T) {
	repo := NewPostRepository(setupTestDB(t))
	ctx := context.Background()

	post := &models.Post{
		Title:              "to reset",
		VerificationStatus: models.VerificationRejected,
		RejectedReasons:    models.ReasonList{"Category: /Adult"},
		TextSafe:           models.DoneState(false),
	}
	require.NoError(t, repo.Create(ctx, post))

	require.NoError(t, repo.ResetVerification(ctx, post.ID))

	got, err := repo.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, models.VerificationPending, got.VerificationStatus)
	assert.Equal(t, models.FieldNotProcessed, got.TextSafe.Status)
	assert.Empty(t, got.RejectedReasons)
	assert.False(t, got.IsVisible)
}

func TestStoreErrorsMapToStoreUnavailable(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	mock.ExpectQuery("SELECT").WillReturnError(assert.AnError)

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB, PreferSimpleProtocol: true}), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	repo := NewPostRepository(db)
	_, err = repo.GetByID(context.Background(), "any")
	require.Error(t, err)
	assert.True(t, models.HasCode(err, models.ErrCodeStoreUnavailable))
}
