package dto

import (
	"time"

	"anoa.com/cluverse/internal/entity"
	"github.com/google/uuid"
)

type RegisterRequest struct {
	TeamName string              `json:"team_name" binding:"max=100"`
	Members  []entity.TeamMember `json:"members" binding:"max=20"`
}

type ScanRequest struct {
	Payload string `json:"payload" binding:"required"`
}

type EventSummary struct {
	ID       uuid.UUID `json:"id"`
	Title    string    `json:"title"`
	DateTime time.Time `json:"date_time"`
	Venue    string    `json:"venue"`
	Status   string    `json:"status"`
	ImageURL *string   `json:"image_url,omitempty"`
}

type UserSummary struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

type RegistrationResponse struct {
	ID          uuid.UUID           `json:"id"`
	EventID     uuid.UUID           `json:"event_id"`
	UserID      uuid.UUID           `json:"user_id"`
	TeamName    string              `json:"team_name"`
	Members     []entity.TeamMember `json:"members"`
	QR          string              `json:"qr"`
	CheckedIn   bool                `json:"checked_in"`
	CheckedInAt *time.Time          `json:"checked_in_at,omitempty"`
	Status      string              `json:"status"`
	CreatedAt   time.Time           `json:"created_at"`
	Event       *EventSummary       `json:"event,omitempty"`
	User        *UserSummary        `json:"user,omitempty"`
}

func NewRegistrationResponse(r *entity.Registration) *RegistrationResponse {
	members := []entity.TeamMember(r.Members)
	if members == nil {
		members = []entity.TeamMember{}
	}

	res := &RegistrationResponse{
		ID:          r.ID,
		EventID:     r.EventID,
		UserID:      r.UserID,
		TeamName:    r.TeamName,
		Members:     members,
		QR:          r.QR,
		CheckedIn:   r.CheckedIn,
		CheckedInAt: r.CheckedInAt,
		Status:      r.Status,
		CreatedAt:   r.CreatedAt,
	}

	if r.Event != nil {
		res.Event = &EventSummary{
			ID:       r.Event.ID,
			Title:    r.Event.Title,
			DateTime: r.Event.DateTime,
			Venue:    r.Event.Venue,
			Status:   r.Event.Status,
			ImageURL: r.Event.ImageURL,
		}
	}
	if r.User != nil {
		res.User = &UserSummary{
			ID:    r.User.ID,
			Name:  r.User.Name,
			Email: r.User.Email,
		}
	}

	return res
}

func NewRegistrationResponses(regs []*entity.Registration) []*RegistrationResponse {
	res := make([]*RegistrationResponse, 0, len(regs))
	for _, r := range regs {
		res = append(res, NewRegistrationResponse(r))
	}
	return res
}
