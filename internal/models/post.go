// Package models contains data structures for the application's domain models.
package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// VerificationStatus is the overall moderation state of a post. It is
// terminal once it leaves Pending, unless an operator forces a recheck.
type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationApproved VerificationStatus = "approved"
	VerificationRejected VerificationStatus = "rejected"
)

// FieldStatus is the per-field verification progress marker.
type FieldStatus string

const (
	// FieldNotProcessed means the field has never been evaluated; always due.
	FieldNotProcessed FieldStatus = "not_processed"
	// FieldCooldown means a prior pass failed or was ambiguous; due again
	// once the cooldown expires.
	FieldCooldown FieldStatus = "cooldown"
	// FieldDone means the field has a verdict for this sweep; due again only
	// when an operator forces a recheck.
	FieldDone FieldStatus = "done"
)

// FieldState tracks verification progress for one independently verifiable
// aspect of a post (text, image safety).
type FieldState struct {
	Status        FieldStatus `gorm:"size:16;default:not_processed" json:"status"`
	Safe          bool        `json:"safe"`
	CooldownUntil *time.Time  `json:"cooldown_until,omitempty"`
}

// Due reports whether the field needs (re)evaluation at the given time.
// A cooldown with a missing or zero timestamp counts as due: the store may
// contain partially written legacy records, and re-checking is always safe
// while silently skipping forever is not.
func (s FieldState) Due(now time.Time) bool {
	switch s.Status {
	case FieldDone:
		return false
	case FieldCooldown:
		if s.CooldownUntil == nil || s.CooldownUntil.IsZero() {
			return true
		}
		return !now.Before(*s.CooldownUntil)
	default:
		return true
	}
}

// Evaluated reports whether the field has a verdict.
func (s FieldState) Evaluated() bool {
	return s.Status == FieldDone
}

// DoneState returns a terminal field state carrying a verdict.
func DoneState(safe bool) FieldState {
	return FieldState{Status: FieldDone, Safe: safe}
}

// CooldownState returns a deferred-retry field state.
func CooldownState(until time.Time) FieldState {
	return FieldState{Status: FieldCooldown, CooldownUntil: &until}
}

// ReasonList is an ordered sequence of human-readable rejection causes,
// stored as a JSON array. It is replaced wholesale on every completed pass.
type ReasonList []string

// Value implements driver.Valuer.
func (r ReasonList) Value() (driver.Value, error) {
	if len(r) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (r *ReasonList) Scan(value interface{}) error {
	if value == nil {
		*r = nil
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type for ReasonList: %T", value)
	}
	if len(data) == 0 {
		*r = nil
		return nil
	}
	return json.Unmarshal(data, r)
}

// Post represents a user submission moving through the verification pipeline.
// Posts are created by the upstream submission flow with status Pending and
// all fields not processed; only the verifier mutates the verification
// columns afterwards.
type Post struct {
	ID       string `gorm:"primaryKey;size:36" json:"id"`
	Title    string `gorm:"size:300" json:"title"`
	Caption  string `gorm:"type:text" json:"caption"`
	ImageURL string `json:"image_url,omitempty"`

	TextSafe  FieldState `gorm:"embedded;embeddedPrefix:text_safe_" json:"text_safe"`
	ImageSafe FieldState `gorm:"embedded;embeddedPrefix:image_safe_" json:"image_safe"`
	// ImageAI is a stable false default: the detection heuristic is
	// disabled and must not be reintroduced without a contract change.
	ImageAI bool `json:"image_ai"`

	VerificationStatus VerificationStatus `gorm:"size:16;index;default:pending" json:"verification_status"`
	RejectedReasons    ReasonList         `gorm:"type:text" json:"rejected_reasons,omitempty"`
	IsVisible          bool               `json:"is_visible"`
	LastVerifiedAt     *time.Time         `json:"last_verified_at,omitempty"`

	// Version guards read-modify-write cycles; every verification write is
	// conditional on the version observed at read time.
	Version int64 `gorm:"default:0" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate assigns an opaque ID when the caller did not provide one.
func (p *Post) BeforeCreate(_ *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// HasImage reports whether the image fields apply to this post.
func (p *Post) HasImage() bool {
	return strings.TrimSpace(p.ImageURL) != ""
}

// CombinedText is the text submitted to the classifier in the batch path:
// title and caption checked as a single field.
func (p *Post) CombinedText() string {
	return strings.TrimSpace(p.Title + "\n" + p.Caption)
}

// AnyFieldDue reports whether at least one applicable field needs work.
func (p *Post) AnyFieldDue(now time.Time) bool {
	if p.TextSafe.Due(now) {
		return true
	}
	return p.HasImage() && p.ImageSafe.Due(now)
}
