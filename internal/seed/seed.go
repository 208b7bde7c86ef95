// Package seed provides helpers to create test and demo data for the
// application database. These helpers are intended for development and
// testing only.
package seed

import (
	"fmt"
	"math/rand"
	"time"

	"postguard/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
)

// Factory builds posts in various verification states and persists them.
type Factory struct {
	db *gorm.DB
	r  *rand.Rand
}

// NewFactory creates a new Factory bound to the provided Gorm DB.
func NewFactory(db *gorm.DB) *Factory {
	gofakeit.Seed(time.Now().UnixNano())
	return &Factory{db: db, r: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// BuildPendingPost constructs an unprocessed post without persisting it.
func (f *Factory) BuildPendingPost(overrides ...func(*models.Post)) *models.Post {
	post := &models.Post{
		Title:   gofakeit.Sentence(5),
		Caption: gofakeit.Paragraph(1, 2, 8, "\n"),
	}

	// two thirds of posts carry an image
	if f.r.Intn(3) != 0 {
		post.ImageURL = fmt.Sprintf("https://picsum.photos/seed/%s/800/800", gofakeit.UUID())
	}

	// realistic created_at spread over the last two weeks
	post.CreatedAt = time.Now().
		Add(-time.Duration(f.r.Intn(14*24)) * time.Hour).
		Add(-time.Duration(f.r.Intn(60)) * time.Minute)

	for _, override := range overrides {
		override(post)
	}
	return post
}

// SeedPendingPosts creates count posts awaiting verification.
func (f *Factory) SeedPendingPosts(count int) ([]*models.Post, error) {
	posts := make([]*models.Post, 0, count)
	for i := 0; i < count; i++ {
		posts = append(posts, f.BuildPendingPost())
	}
	if err := f.db.CreateInBatches(posts, 100).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

// SeedVerifiedPosts creates count posts that already carry a verdict, split
// between approved and rejected.
func (f *Factory) SeedVerifiedPosts(count int) ([]*models.Post, error) {
	posts := make([]*models.Post, 0, count)
	for i := 0; i < count; i++ {
		approved := f.r.Intn(4) != 0
		post := f.BuildPendingPost(func(p *models.Post) {
			now := time.Now()
			p.TextSafe = models.DoneState(approved)
			if p.ImageURL != "" {
				p.ImageSafe = models.DoneState(true)
			}
			p.LastVerifiedAt = &now
			if approved {
				p.VerificationStatus = models.VerificationApproved
				p.IsVisible = true
			} else {
				p.VerificationStatus = models.VerificationRejected
				p.RejectedReasons = models.ReasonList{"Category: " + gofakeit.BuzzWord()}
			}
		})
		posts = append(posts, post)
	}
	if err := f.db.CreateInBatches(posts, 100).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

// ClearAll removes every post. Development only.
func (f *Factory) ClearAll() error {
	return f.db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.Post{}).Error
}
