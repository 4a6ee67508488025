package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	RegistrationStatusRegistered = "registered"
	RegistrationStatusCheckedIn  = "checked-in"
	RegistrationStatusCancelled  = "cancelled"
)

const DefaultTeamName = "Solo"

type TeamMember struct {
	Name      string `json:"name"`
	CollegeID string `json:"college_id"`
}

// Registration is unique per (event, user); the composite index is what
// rejects a concurrent duplicate.
type Registration struct {
	ID          uuid.UUID                       `gorm:"type:uuid;primaryKey" json:"id"`
	EventID     uuid.UUID                       `gorm:"type:uuid;not null;uniqueIndex:idx_registration_event_user" json:"event_id"`
	Event       *Event                          `gorm:"foreignKey:EventID;constraint:OnDelete:RESTRICT" json:"event,omitempty"`
	UserID      uuid.UUID                       `gorm:"type:uuid;not null;uniqueIndex:idx_registration_event_user;index" json:"user_id"`
	User        *User                           `gorm:"foreignKey:UserID;constraint:OnDelete:RESTRICT" json:"user,omitempty"`
	TeamName    string                          `gorm:"size:100;not null;default:Solo" json:"team_name"`
	Members     datatypes.JSONSlice[TeamMember] `json:"members"`
	QR          string                          `gorm:"type:text" json:"qr"`
	CheckedIn   bool                            `gorm:"not null;default:false" json:"checked_in"`
	CheckedInAt *time.Time                      `json:"checked_in_at,omitempty"`
	Status      string                          `gorm:"size:20;not null;default:registered" json:"status"`
	CreatedAt   time.Time                       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time                       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (r *Registration) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
