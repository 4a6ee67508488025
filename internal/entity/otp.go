package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OneTimeCode is keyed by email because a code is issued before the account
// exists.
type OneTimeCode struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Email     string    `gorm:"size:255;not null;index" json:"email"`
	CodeHash  string    `gorm:"size:255;not null" json:"-"`
	ExpiresAt time.Time `gorm:"not null;index" json:"expires_at"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (o *OneTimeCode) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// ExpiredAt reports whether the code is unusable at now. The expiry instant
// itself already counts as expired.
func (o *OneTimeCode) ExpiredAt(now time.Time) bool {
	return !now.Before(o.ExpiresAt)
}
