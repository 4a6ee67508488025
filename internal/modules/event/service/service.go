package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"anoa.com/cluverse/internal/entity"
	"anoa.com/cluverse/internal/modules/event/dto"
	"anoa.com/cluverse/internal/modules/event/repository"
	search "anoa.com/cluverse/internal/modules/search/service"
	"anoa.com/cluverse/pkg/apperror"
	commonDto "anoa.com/cluverse/pkg/dto"
	"anoa.com/cluverse/pkg/response"
	"anoa.com/cluverse/pkg/storage"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"gorm.io/gorm"
)

const (
	ActionApprove = "approve"
	ActionReject  = "reject"
	ActionChanges = "changes"
)

const posterFolder = "posters"

var (
	ErrInvalidTransition = apperror.WithKind("invalid_transition", "only events pending approval can be reviewed", apperror.ErrConflict)
	ErrUnknownAction     = apperror.New(http.StatusBadRequest, "action must be approve, reject or changes", apperror.ErrInvalidAction)
	ErrEditConflict      = apperror.New(http.StatusConflict, "event was reviewed while you were editing, reload and try again", apperror.ErrConflict)
	errEventNotFound     = fmt.Errorf("event: %w", apperror.ErrNotFound)
)

type Service interface {
	Create(ctx context.Context, identity *response.Identity, req dto.CreateEventRequest) (*dto.EventResponse, error)
	Update(ctx context.Context, identity *response.Identity, id uuid.UUID, req dto.UpdateEventRequest) (*dto.EventResponse, error)
	Act(ctx context.Context, id uuid.UUID, action, feedback string) (*dto.EventResponse, error)
	List(ctx context.Context, viewer *response.Identity, filter dto.EventFilter) (interface{}, error)
	Get(ctx context.Context, viewer *response.Identity, id uuid.UUID) (*dto.EventResponse, error)
	ListPending(ctx context.Context) ([]*dto.EventResponse, error)
	SetImage(ctx context.Context, identity *response.Identity, id uuid.UUID, file *commonDto.ImageFile) (*dto.EventResponse, error)
	Search(ctx context.Context, query string, limit int) ([]*dto.EventResponse, error)
}

// StatsInvalidator drops cached dashboard counts.
type StatsInvalidator interface {
	Invalidate(ctx context.Context)
}

type service struct {
	repo      repository.Repository
	index     search.EventIndex
	storage   storage.ImageStorage
	stats     StatsInvalidator
	sanitizer *bluemonday.Policy
	now       func() time.Time
}

// NewService builds the event service. index, imageStorage and stats may
// be nil.
func NewService(repo repository.Repository, index search.EventIndex, imageStorage storage.ImageStorage, stats StatsInvalidator) Service {
	return newService(repo, index, imageStorage, stats)
}

func newService(repo repository.Repository, index search.EventIndex, imageStorage storage.ImageStorage, stats StatsInvalidator) *service {
	return &service{
		repo:      repo,
		index:     index,
		storage:   imageStorage,
		stats:     stats,
		sanitizer: bluemonday.UGCPolicy(),
		now:       time.Now,
	}
}

// Create files a new event request. It always starts pending approval with
// no feedback, owned by the caller.
func (s *service) Create(ctx context.Context, identity *response.Identity, req dto.CreateEventRequest) (*dto.EventResponse, error) {
	title := strings.TrimSpace(req.Title)
	category := strings.TrimSpace(req.Category)
	if title == "" || category == "" || req.DateTime == nil || req.DateTime.IsZero() {
		return nil, apperror.New(http.StatusBadRequest, "title, category and date_time are required", apperror.ErrInvalidInput)
	}

	event := &entity.Event{
		AdminID:        identity.UserID,
		Title:          title,
		Description:    s.sanitizer.Sanitize(req.Description),
		Category:       category,
		DateTime:       req.DateTime.UTC(),
		Venue:          strings.TrimSpace(req.Venue),
		Location:       strings.TrimSpace(req.Location),
		Capacity:       req.Capacity,
		Price:          req.Price,
		ImageURL:       req.ImageURL,
		Mode:           req.Mode,
		RoomNeeded:     req.RoomNeeded,
		RoomType:       req.RoomType,
		Participants:   req.Participants,
		FundingNeeded:  req.FundingNeeded,
		FundingAmount:  req.FundingAmount,
		MentorApproved: req.MentorApproved,
		SubEvents:      req.SubEvents,
		ContactName:    req.ContactName,
		ContactPhone:   req.ContactPhone,
		TeamStrength:   req.TeamStrength,
		Status:         entity.EventStatusPending,
		Feedback:       "",
	}
	for _, tag := range normalizeTags(req.Tags) {
		event.Tags = append(event.Tags, entity.EventTag{Tag: tag})
	}

	if err := s.repo.Create(ctx, event); err != nil {
		return nil, err
	}
	s.invalidateStats(ctx)

	return s.reload(ctx, event.ID)
}

// Update applies the owner's edits. Changing title, schedule or venue sends
// the event back to review; an explicit resubmission also clears feedback.
// Any other requested status is ignored. Only the touched columns are
// written, and only while the event still has the status that was read.
func (s *service) Update(ctx context.Context, identity *response.Identity, id uuid.UUID, req dto.UpdateEventRequest) (*dto.EventResponse, error) {
	event, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	if identity == nil || identity.Role != entity.RoleAdmin || event.AdminID != identity.UserID {
		return nil, apperror.New(http.StatusForbidden, "only the owning club admin can edit this event", apperror.ErrForbidden)
	}

	readStatus := event.Status
	reviewRelevant := false
	changes := map[string]interface{}{}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, apperror.New(http.StatusBadRequest, "title cannot be empty", apperror.ErrInvalidInput)
		}
		if title != event.Title {
			reviewRelevant = true
		}
		event.Title = title
		changes["title"] = title
	}
	if req.DateTime != nil {
		if req.DateTime.IsZero() {
			return nil, apperror.New(http.StatusBadRequest, "date_time cannot be empty", apperror.ErrInvalidInput)
		}
		at := req.DateTime.UTC()
		if !at.Equal(event.DateTime) {
			reviewRelevant = true
		}
		event.DateTime = at
		changes["date_time"] = at
	}
	if req.Venue != nil {
		venue := strings.TrimSpace(*req.Venue)
		if venue != event.Venue {
			reviewRelevant = true
		}
		event.Venue = venue
		changes["venue"] = venue
	}
	if req.Category != nil {
		category := strings.TrimSpace(*req.Category)
		if category == "" {
			return nil, apperror.New(http.StatusBadRequest, "category cannot be empty", apperror.ErrInvalidInput)
		}
		event.Category = category
		changes["category"] = category
	}
	if req.Description != nil {
		event.Description = s.sanitizer.Sanitize(*req.Description)
		changes["description"] = event.Description
	}
	if req.Location != nil {
		event.Location = strings.TrimSpace(*req.Location)
		changes["location"] = event.Location
	}
	if req.Capacity != nil {
		event.Capacity = *req.Capacity
		changes["capacity"] = event.Capacity
	}
	if req.Price != nil {
		event.Price = *req.Price
		changes["price"] = event.Price
	}
	if req.ImageURL != nil {
		event.ImageURL = req.ImageURL
		changes["image_url"] = *req.ImageURL
	}
	if req.Mode != nil {
		event.Mode = *req.Mode
		changes["mode"] = event.Mode
	}
	if req.RoomNeeded != nil {
		event.RoomNeeded = *req.RoomNeeded
		changes["room_needed"] = event.RoomNeeded
	}
	if req.RoomType != nil {
		event.RoomType = *req.RoomType
		changes["room_type"] = event.RoomType
	}
	if req.Participants != nil {
		event.Participants = *req.Participants
		changes["participants"] = event.Participants
	}
	if req.FundingNeeded != nil {
		event.FundingNeeded = *req.FundingNeeded
		changes["funding_needed"] = event.FundingNeeded
	}
	if req.FundingAmount != nil {
		event.FundingAmount = *req.FundingAmount
		changes["funding_amount"] = event.FundingAmount
	}
	if req.MentorApproved != nil {
		event.MentorApproved = *req.MentorApproved
		changes["mentor_approved"] = event.MentorApproved
	}
	if req.SubEvents != nil {
		event.SubEvents = *req.SubEvents
		changes["sub_events"] = event.SubEvents
	}
	if req.ContactName != nil {
		event.ContactName = *req.ContactName
		changes["contact_name"] = event.ContactName
	}
	if req.ContactPhone != nil {
		event.ContactPhone = *req.ContactPhone
		changes["contact_phone"] = event.ContactPhone
	}
	if req.TeamStrength != nil {
		event.TeamStrength = *req.TeamStrength
		changes["team_strength"] = event.TeamStrength
	}

	if req.WantsResubmit() {
		event.Status = entity.EventStatusPending
		event.Feedback = ""
		changes["status"] = event.Status
		changes["feedback"] = ""
	} else if reviewRelevant {
		event.Status = entity.EventStatusPending
		changes["status"] = event.Status
	}
	changes["updated_at"] = s.now().UTC()

	var tags *[]string
	if req.Tags != nil {
		normalized := normalizeTags(*req.Tags)
		tags = &normalized
	}

	affected, err := s.repo.Update(ctx, event.ID, readStatus, changes, tags)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, ErrEditConflict
	}

	if readStatus != event.Status {
		s.invalidateStats(ctx)
	}

	updated, err := s.find(ctx, event.ID)
	if err != nil {
		return nil, err
	}

	if readStatus == entity.EventStatusApproved && updated.Status != entity.EventStatusApproved {
		s.unindex(updated.ID)
	} else if updated.Status == entity.EventStatusApproved {
		s.reindex(updated)
	}

	return dto.NewEventResponse(updated, s.now()), nil
}

// Act records a boss decision on a pending event. The update is conditional
// on the event still being pending, so two reviewers cannot both decide.
func (s *service) Act(ctx context.Context, id uuid.UUID, action, feedback string) (*dto.EventResponse, error) {
	var to string
	switch strings.ToLower(strings.TrimSpace(action)) {
	case ActionApprove:
		to = entity.EventStatusApproved
		feedback = ""
	case ActionReject:
		to = entity.EventStatusRejected
	case ActionChanges:
		to = entity.EventStatusChangesRequested
	default:
		return nil, ErrUnknownAction
	}

	affected, err := s.repo.Transition(ctx, id, entity.EventStatusPending, to, feedback)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		if _, err := s.find(ctx, id); err != nil {
			return nil, err
		}
		return nil, ErrInvalidTransition
	}
	s.invalidateStats(ctx)

	event, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	if event.Status == entity.EventStatusApproved {
		s.reindex(event)
	}

	return dto.NewEventResponse(event, s.now()), nil
}

// List returns approved events unless the caller asks for an admin's own
// listing and is that admin or a boss.
func (s *service) List(ctx context.Context, viewer *response.Identity, filter dto.EventFilter) (interface{}, error) {
	q := repository.Query{
		Status: entity.EventStatusApproved,
		Tag:    strings.TrimSpace(filter.Tag),
		Tags:   filter.NormalizedTags(),
		Search: strings.TrimSpace(filter.Search),
	}

	if filter.Admin != "" {
		adminID, err := uuid.Parse(filter.Admin)
		if err != nil {
			return nil, apperror.New(http.StatusBadRequest, "invalid admin id", apperror.ErrInvalidInput)
		}
		q.AdminID = &adminID

		if canSeeAllOf(viewer, adminID) {
			q.Status = ""
			if filter.Status != "" {
				if !entity.IsValidEventStatus(filter.Status) {
					return nil, apperror.New(http.StatusBadRequest, "invalid status filter", apperror.ErrInvalidInput)
				}
				q.Status = filter.Status
			}
		}
	}

	if filter.Paginated() {
		q.Offset = (filter.Page - 1) * filter.Limit
		q.Limit = filter.Limit
	}

	events, total, err := s.repo.FindAll(ctx, q)
	if err != nil {
		return nil, err
	}

	responses := s.toResponses(events)
	if !filter.Paginated() {
		return responses, nil
	}

	return &dto.EventListResponse{
		Events:     responses,
		Pagination: commonDto.NewPaginationMeta(filter.Page, filter.Limit, total),
	}, nil
}

// Get hides non-approved events from everyone but the owner and bosses.
func (s *service) Get(ctx context.Context, viewer *response.Identity, id uuid.UUID) (*dto.EventResponse, error) {
	event, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	if event.Status != entity.EventStatusApproved && !canSeeAllOf(viewer, event.AdminID) {
		return nil, errEventNotFound
	}

	return dto.NewEventResponse(event, s.now()), nil
}

func (s *service) ListPending(ctx context.Context) ([]*dto.EventResponse, error) {
	events, _, err := s.repo.FindAll(ctx, repository.Query{Status: entity.EventStatusPending})
	if err != nil {
		return nil, err
	}
	return s.toResponses(events), nil
}

func (s *service) SetImage(ctx context.Context, identity *response.Identity, id uuid.UUID, file *commonDto.ImageFile) (*dto.EventResponse, error) {
	if s.storage == nil {
		return nil, apperror.New(http.StatusServiceUnavailable, "image uploads are not configured", storage.ErrNotConfigured)
	}
	if file == nil {
		return nil, apperror.New(http.StatusBadRequest, "image file is required", apperror.ErrInvalidInput)
	}

	event, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if identity == nil || event.AdminID != identity.UserID {
		return nil, apperror.New(http.StatusForbidden, "only the owning club admin can change the poster", apperror.ErrForbidden)
	}

	url, err := s.storage.UploadImage(ctx, file.Reader, posterFolder, file.FileName)
	if err != nil {
		return nil, apperror.New(http.StatusBadRequest, err.Error(), apperror.ErrBadRequest)
	}

	if err := s.repo.SetImage(ctx, id, url); err != nil {
		return nil, err
	}

	if event.ImageURL != nil && *event.ImageURL != "" {
		old := *event.ImageURL
		go func() {
			if err := s.storage.DeleteImage(context.Background(), old); err != nil {
				log.Printf("Failed to delete old poster %s: %v", old, err)
			}
		}()
	}

	event.ImageURL = &url
	if event.Status == entity.EventStatusApproved {
		s.reindex(event)
	}

	return dto.NewEventResponse(event, s.now()), nil
}

// Search queries the full-text index and falls back to a title match when
// the index is unavailable.
func (s *service) Search(ctx context.Context, query string, limit int) ([]*dto.EventResponse, error) {
	query = strings.TrimSpace(query)
	if limit <= 0 || limit > 50 {
		limit = 20
	}

	if s.index != nil && query != "" {
		ids, err := s.index.SearchEventIDs(query, limit)
		if err == nil {
			return s.byIDs(ctx, ids)
		}
		log.Printf("Meilisearch search failed, falling back to database: %v", err)
	}

	events, _, err := s.repo.FindAll(ctx, repository.Query{
		Status: entity.EventStatusApproved,
		Search: query,
		Limit:  limit,
	})
	if err != nil {
		return nil, err
	}
	return s.toResponses(events), nil
}

// byIDs loads approved events in the order the index ranked them.
func (s *service) byIDs(ctx context.Context, ids []string) ([]*dto.EventResponse, error) {
	parsed := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if u, err := uuid.Parse(id); err == nil {
			parsed = append(parsed, u)
		}
	}
	if len(parsed) == 0 {
		return []*dto.EventResponse{}, nil
	}

	events, _, err := s.repo.FindAll(ctx, repository.Query{Status: entity.EventStatusApproved, IDs: parsed})
	if err != nil {
		return nil, err
	}

	byID := make(map[uuid.UUID]*entity.Event, len(events))
	for _, e := range events {
		byID[e.ID] = e
	}

	now := s.now()
	res := make([]*dto.EventResponse, 0, len(events))
	for _, id := range parsed {
		if e, ok := byID[id]; ok {
			res = append(res, dto.NewEventResponse(e, now))
		}
	}
	return res, nil
}

func (s *service) find(ctx context.Context, id uuid.UUID) (*entity.Event, error) {
	event, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errEventNotFound
		}
		return nil, err
	}
	return event, nil
}

func (s *service) reload(ctx context.Context, id uuid.UUID) (*dto.EventResponse, error) {
	event, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	return dto.NewEventResponse(event, s.now()), nil
}

func (s *service) toResponses(events []*entity.Event) []*dto.EventResponse {
	now := s.now()
	res := make([]*dto.EventResponse, 0, len(events))
	for _, e := range events {
		res = append(res, dto.NewEventResponse(e, now))
	}
	return res
}

func (s *service) invalidateStats(ctx context.Context) {
	if s.stats != nil {
		s.stats.Invalidate(ctx)
	}
}

func (s *service) reindex(event *entity.Event) {
	if s.index == nil {
		return
	}
	go func() {
		if err := s.index.IndexEvent(event); err != nil {
			log.Printf("Failed to index event %s: %v", event.ID, err)
		}
	}()
}

func (s *service) unindex(id uuid.UUID) {
	if s.index == nil {
		return
	}
	go func() {
		if err := s.index.DeleteEvent(id.String()); err != nil {
			log.Printf("Failed to remove event %s from index: %v", id, err)
		}
	}()
}

func canSeeAllOf(viewer *response.Identity, adminID uuid.UUID) bool {
	if viewer == nil {
		return false
	}
	return viewer.Role == entity.RoleBoss || (viewer.Role == entity.RoleAdmin && viewer.UserID == adminID)
}

func normalizeTags(tags []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}
