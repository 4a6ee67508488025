package dto

import (
	"strings"
	"time"

	"anoa.com/cluverse/internal/entity"
	commonDto "anoa.com/cluverse/pkg/dto"
	"github.com/google/uuid"
)

type CreateEventRequest struct {
	Title       string     `json:"title" binding:"max=200"`
	Description string     `json:"description"`
	Category    string     `json:"category" binding:"max=100"`
	DateTime    *time.Time `json:"date_time"`
	Venue       string     `json:"venue" binding:"max=200"`
	Location    string     `json:"location" binding:"max=200"`
	Capacity    int        `json:"capacity" binding:"min=0"`
	Price       float64    `json:"price" binding:"min=0"`
	ImageURL    *string    `json:"image_url" binding:"omitempty,url"`
	Tags        []string   `json:"tags" binding:"max=20,dive,max=50"`

	Mode           string  `json:"mode" binding:"event_mode"`
	RoomNeeded     bool    `json:"room_needed"`
	RoomType       string  `json:"room_type" binding:"room_type"`
	Participants   int     `json:"participants" binding:"min=0"`
	FundingNeeded  bool    `json:"funding_needed"`
	FundingAmount  float64 `json:"funding_amount" binding:"min=0"`
	MentorApproved bool    `json:"mentor_approved"`
	SubEvents      string  `json:"sub_events"`
	ContactName    string  `json:"contact_name" binding:"max=100"`
	ContactPhone   string  `json:"contact_phone" binding:"max=30"`
	TeamStrength   int     `json:"team_strength" binding:"min=0"`
}

// UpdateEventRequest only touches the fields that are present. Status is
// honored solely as a resubmission request.
type UpdateEventRequest struct {
	Title       *string    `json:"title" binding:"omitempty,min=1,max=200"`
	Description *string    `json:"description"`
	Category    *string    `json:"category" binding:"omitempty,min=1,max=100"`
	DateTime    *time.Time `json:"date_time"`
	Venue       *string    `json:"venue" binding:"omitempty,max=200"`
	Location    *string    `json:"location" binding:"omitempty,max=200"`
	Capacity    *int       `json:"capacity" binding:"omitempty,min=0"`
	Price       *float64   `json:"price" binding:"omitempty,min=0"`
	ImageURL    *string    `json:"image_url" binding:"omitempty,url"`
	Tags        *[]string  `json:"tags" binding:"omitempty,max=20,dive,max=50"`

	Mode           *string  `json:"mode" binding:"omitempty,event_mode"`
	RoomNeeded     *bool    `json:"room_needed"`
	RoomType       *string  `json:"room_type" binding:"omitempty,room_type"`
	Participants   *int     `json:"participants" binding:"omitempty,min=0"`
	FundingNeeded  *bool    `json:"funding_needed"`
	FundingAmount  *float64 `json:"funding_amount" binding:"omitempty,min=0"`
	MentorApproved *bool    `json:"mentor_approved"`
	SubEvents      *string  `json:"sub_events"`
	ContactName    *string  `json:"contact_name" binding:"omitempty,max=100"`
	ContactPhone   *string  `json:"contact_phone" binding:"omitempty,max=30"`
	TeamStrength   *int     `json:"team_strength" binding:"omitempty,min=0"`

	Status   *string `json:"status"`
	Resubmit bool    `json:"resubmit"`
}

// WantsResubmit reports whether the owner explicitly asked for another
// review round.
func (r UpdateEventRequest) WantsResubmit() bool {
	return r.Resubmit || (r.Status != nil && *r.Status == entity.EventStatusPending)
}

type ActionRequest struct {
	Action   string `json:"action" binding:"required"`
	Feedback string `json:"feedback"`
}

// EventFilter is bound from the list query string.
type EventFilter struct {
	Status string   `form:"status"`
	Tag    string   `form:"tag"`
	Tags   []string `form:"tags"`
	Search string   `form:"search"`
	Admin  string   `form:"admin"`
	Page   int      `form:"page" binding:"omitempty,min=1"`
	Limit  int      `form:"limit" binding:"omitempty,min=1,max=100"`
}

// NormalizedTags splits comma lists and drops blanks and duplicates.
func (f EventFilter) NormalizedTags() []string {
	seen := map[string]bool{}
	var tags []string
	for _, raw := range f.Tags {
		for _, tag := range strings.Split(raw, ",") {
			tag = strings.TrimSpace(tag)
			if tag == "" || seen[tag] {
				continue
			}
			seen[tag] = true
			tags = append(tags, tag)
		}
	}
	return tags
}

func (f EventFilter) Paginated() bool {
	return f.Page > 0 && f.Limit > 0
}

type EventResponse struct {
	ID          uuid.UUID `json:"id"`
	AdminID     uuid.UUID `json:"admin_id"`
	ClubName    string    `json:"club_name,omitempty"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	DateTime    time.Time `json:"date_time"`
	Venue       string    `json:"venue"`
	Location    string    `json:"location"`
	Capacity    int       `json:"capacity"`
	Price       float64   `json:"price"`
	ImageURL    *string   `json:"image_url,omitempty"`
	Tags        []string  `json:"tags"`

	Mode           string  `json:"mode"`
	RoomNeeded     bool    `json:"room_needed"`
	RoomType       string  `json:"room_type"`
	Participants   int     `json:"participants"`
	FundingNeeded  bool    `json:"funding_needed"`
	FundingAmount  float64 `json:"funding_amount"`
	MentorApproved bool    `json:"mentor_approved"`
	SubEvents      string  `json:"sub_events"`
	ContactName    string  `json:"contact_name"`
	ContactPhone   string  `json:"contact_phone"`
	TeamStrength   int     `json:"team_strength"`

	Status    string    `json:"status"`
	Feedback  string    `json:"feedback"`
	Timing    string    `json:"timing"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewEventResponse(e *entity.Event, now time.Time) *EventResponse {
	res := &EventResponse{
		ID:             e.ID,
		AdminID:        e.AdminID,
		Title:          e.Title,
		Description:    e.Description,
		Category:       e.Category,
		DateTime:       e.DateTime,
		Venue:          e.Venue,
		Location:       e.Location,
		Capacity:       e.Capacity,
		Price:          e.Price,
		ImageURL:       e.ImageURL,
		Tags:           e.TagNames(),
		Mode:           e.Mode,
		RoomNeeded:     e.RoomNeeded,
		RoomType:       e.RoomType,
		Participants:   e.Participants,
		FundingNeeded:  e.FundingNeeded,
		FundingAmount:  e.FundingAmount,
		MentorApproved: e.MentorApproved,
		SubEvents:      e.SubEvents,
		ContactName:    e.ContactName,
		ContactPhone:   e.ContactPhone,
		TeamStrength:   e.TeamStrength,
		Status:         e.Status,
		Feedback:       e.Feedback,
		Timing:         e.Timing(now),
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      e.UpdatedAt,
	}
	if e.Admin != nil && e.Admin.Club != nil {
		res.ClubName = e.Admin.Club.ClubName
	}
	return res
}

type EventListResponse struct {
	Events     []*EventResponse         `json:"events"`
	Pagination commonDto.PaginationMeta `json:"pagination"`
}
