package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"anoa.com/cluverse/internal/entity"
	"anoa.com/cluverse/internal/modules/registration/dto"
	"anoa.com/cluverse/internal/modules/registration/repository"
	"anoa.com/cluverse/pkg/apperror"
	"anoa.com/cluverse/pkg/database"
	"anoa.com/cluverse/pkg/qrcode"
	"anoa.com/cluverse/pkg/response"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrAlreadyRegistered = apperror.WithKind(apperror.KindConflict, "already registered for this event", apperror.ErrConflict)
	ErrAlreadyCheckedIn  = apperror.WithKind("already_checked_in", "registration is already checked in", apperror.ErrConflict)
	ErrEventClosed       = apperror.New(http.StatusBadRequest, "event is not open for registration", apperror.ErrInvalidInput)
	ErrInvalidPayload    = apperror.New(http.StatusBadRequest, "invalid QR payload", apperror.ErrInvalidInput)

	errRegistrationNotFound = fmt.Errorf("registration: %w", apperror.ErrNotFound)
	errEventNotFound        = fmt.Errorf("event: %w", apperror.ErrNotFound)
)

// EventLookup is the slice of the event store registration needs.
type EventLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Event, error)
}

type Service interface {
	Register(ctx context.Context, eventID, userID uuid.UUID, req dto.RegisterRequest) (*dto.RegistrationResponse, error)
	CheckIn(ctx context.Context, registrationID uuid.UUID) (*dto.RegistrationResponse, error)
	CheckInByPayload(ctx context.Context, payload string) (*dto.RegistrationResponse, error)
	ListMine(ctx context.Context, userID uuid.UUID) ([]*dto.RegistrationResponse, error)
	Get(ctx context.Context, identity *response.Identity, id uuid.UUID) (*dto.RegistrationResponse, error)
	ListForEvent(ctx context.Context, eventID uuid.UUID) ([]*dto.RegistrationResponse, error)
}

// StatsInvalidator drops cached dashboard counts.
type StatsInvalidator interface {
	Invalidate(ctx context.Context)
}

type service struct {
	repo     repository.Repository
	events   EventLookup
	renderer qrcode.Renderer
	stats    StatsInvalidator
	now      func() time.Time
}

func NewService(repo repository.Repository, events EventLookup, renderer qrcode.Renderer, stats StatsInvalidator) Service {
	return newService(repo, events, renderer, stats)
}

func newService(repo repository.Repository, events EventLookup, renderer qrcode.Renderer, stats StatsInvalidator) *service {
	return &service{
		repo:     repo,
		events:   events,
		renderer: renderer,
		stats:    stats,
		now:      time.Now,
	}
}

// Register signs userID up for an approved event. The QR image is rendered
// before the insert so a stored registration always carries its code.
func (s *service) Register(ctx context.Context, eventID, userID uuid.UUID, req dto.RegisterRequest) (*dto.RegistrationResponse, error) {
	event, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errEventNotFound
		}
		return nil, err
	}
	if event.Status != entity.EventStatusApproved {
		return nil, ErrEventClosed
	}

	exists, err := s.repo.Exists(ctx, eventID, userID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrAlreadyRegistered
	}

	teamName := strings.TrimSpace(req.TeamName)
	if teamName == "" {
		teamName = entity.DefaultTeamName
	}

	members := make([]entity.TeamMember, 0, len(req.Members))
	for _, m := range req.Members {
		name := strings.TrimSpace(m.Name)
		if name == "" {
			continue
		}
		members = append(members, entity.TeamMember{Name: name, CollegeID: strings.TrimSpace(m.CollegeID)})
	}

	reg := &entity.Registration{
		ID:       uuid.New(),
		EventID:  eventID,
		UserID:   userID,
		TeamName: teamName,
		Members:  members,
		Status:   entity.RegistrationStatusRegistered,
	}

	reg.QR, err = s.renderer.Encode(qrcode.Payload(reg.ID.String()))
	if err != nil {
		return nil, fmt.Errorf("render registration qr: %w", err)
	}

	if err := s.repo.Create(ctx, reg); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, ErrAlreadyRegistered
		}
		return nil, err
	}
	if s.stats != nil {
		s.stats.Invalidate(ctx)
	}

	return s.load(ctx, reg.ID)
}

func (s *service) CheckIn(ctx context.Context, registrationID uuid.UUID) (*dto.RegistrationResponse, error) {
	rows, err := s.repo.MarkCheckedIn(ctx, registrationID, s.now().UTC())
	if err != nil {
		return nil, err
	}

	if rows == 0 {
		if _, err := s.find(ctx, registrationID); err != nil {
			return nil, err
		}
		return nil, ErrAlreadyCheckedIn
	}

	return s.load(ctx, registrationID)
}

func (s *service) CheckInByPayload(ctx context.Context, payload string) (*dto.RegistrationResponse, error) {
	raw, err := qrcode.DecodePayload(payload)
	if err != nil {
		return nil, ErrInvalidPayload
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, ErrInvalidPayload
	}

	return s.CheckIn(ctx, id)
}

func (s *service) ListMine(ctx context.Context, userID uuid.UUID) ([]*dto.RegistrationResponse, error) {
	regs, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return dto.NewRegistrationResponses(regs), nil
}

// Get returns a registration to its owner or to staff.
func (s *service) Get(ctx context.Context, identity *response.Identity, id uuid.UUID) (*dto.RegistrationResponse, error) {
	reg, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	if reg.UserID != identity.UserID && !identity.HasRole(entity.RoleAdmin, entity.RoleBoss) {
		return nil, apperror.New(http.StatusForbidden, "not allowed to view this registration", apperror.ErrForbidden)
	}

	return dto.NewRegistrationResponse(reg), nil
}

func (s *service) ListForEvent(ctx context.Context, eventID uuid.UUID) ([]*dto.RegistrationResponse, error) {
	if _, err := s.events.FindByID(ctx, eventID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errEventNotFound
		}
		return nil, err
	}

	regs, err := s.repo.FindByEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	return dto.NewRegistrationResponses(regs), nil
}

func (s *service) find(ctx context.Context, id uuid.UUID) (*entity.Registration, error) {
	reg, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errRegistrationNotFound
		}
		return nil, err
	}
	return reg, nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*dto.RegistrationResponse, error) {
	reg, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	return dto.NewRegistrationResponse(reg), nil
}
