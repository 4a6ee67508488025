package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	EventStatusPending          = "pending_approval"
	EventStatusApproved         = "approved"
	EventStatusRejected         = "rejected"
	EventStatusChangesRequested = "changes_requested"
)

const (
	TimingUpcoming = "upcoming"
	TimingLive     = "live"
	TimingPast     = "past"
)

// LiveWindow is how long an event counts as running after it starts.
const LiveWindow = 3 * time.Hour

func IsValidEventStatus(status string) bool {
	switch status {
	case EventStatusPending, EventStatusApproved, EventStatusRejected, EventStatusChangesRequested:
		return true
	}
	return false
}

type Event struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	AdminID     uuid.UUID  `gorm:"type:uuid;not null;index" json:"admin_id"`
	Admin       *User      `gorm:"foreignKey:AdminID;constraint:OnDelete:RESTRICT" json:"admin,omitempty"`
	Title       string     `gorm:"size:200;not null" json:"title"`
	Description string     `gorm:"type:text" json:"description"`
	Category    string     `gorm:"size:100;not null;index" json:"category"`
	DateTime    time.Time  `gorm:"not null;index" json:"date_time"`
	Venue       string     `gorm:"size:200" json:"venue"`
	Location    string     `gorm:"size:200" json:"location"`
	Capacity    int        `gorm:"not null;default:0" json:"capacity"`
	Price       float64    `gorm:"not null;default:0" json:"price"`
	ImageURL    *string    `gorm:"type:text" json:"image_url,omitempty"`
	Tags        []EventTag `gorm:"foreignKey:EventID;constraint:OnDelete:CASCADE" json:"-"`

	Mode           string  `gorm:"size:20" json:"mode"`
	RoomNeeded     bool    `gorm:"not null;default:false" json:"room_needed"`
	RoomType       string  `gorm:"size:100" json:"room_type"`
	Participants   int     `gorm:"not null;default:0" json:"participants"`
	FundingNeeded  bool    `gorm:"not null;default:false" json:"funding_needed"`
	FundingAmount  float64 `gorm:"not null;default:0" json:"funding_amount"`
	MentorApproved bool    `gorm:"not null;default:false" json:"mentor_approved"`
	SubEvents      string  `gorm:"type:text" json:"sub_events"`
	ContactName    string  `gorm:"size:100" json:"contact_name"`
	ContactPhone   string  `gorm:"size:30" json:"contact_phone"`
	TeamStrength   int     `gorm:"not null;default:0" json:"team_strength"`

	Status    string    `gorm:"size:30;not null;index;default:pending_approval" json:"status"`
	Feedback  string    `gorm:"type:text" json:"feedback"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (e *Event) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// TagNames returns the event's tags in stored order.
func (e *Event) TagNames() []string {
	names := make([]string, 0, len(e.Tags))
	for _, t := range e.Tags {
		names = append(names, t.Tag)
	}
	return names
}

// Timing is derived from the schedule on every read and never stored.
func (e *Event) Timing(now time.Time) string {
	switch {
	case now.Before(e.DateTime):
		return TimingUpcoming
	case now.Before(e.DateTime.Add(LiveWindow)):
		return TimingLive
	default:
		return TimingPast
	}
}

type EventTag struct {
	EventID uuid.UUID `gorm:"type:uuid;primaryKey" json:"-"`
	Tag     string    `gorm:"size:50;primaryKey;index" json:"tag"`
}
