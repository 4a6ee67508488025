package service

import (
	"context"

	"anoa.com/cluverse/internal/entity"
	"anoa.com/cluverse/internal/modules/admin/dto"
	eventDto "anoa.com/cluverse/internal/modules/event/dto"
	event "anoa.com/cluverse/internal/modules/event/service"
	userRepo "anoa.com/cluverse/internal/modules/user/repository"
	"github.com/google/uuid"
)

// Approver flips a user's approval flag.
type Approver interface {
	SetApproved(ctx context.Context, userID uuid.UUID, approved bool) (*entity.User, error)
}

// AdminService is the boss console: club approvals, the user list and the
// event review queue.
type AdminService interface {
	GetPendingClubs(ctx context.Context) ([]*dto.PendingClubResponse, error)
	ApproveUser(ctx context.Context, userID uuid.UUID) (*entity.User, error)
	GetAllUsers(ctx context.Context, filter dto.UserListFilter) ([]*entity.User, error)
	GetPendingEvents(ctx context.Context) ([]*eventDto.EventResponse, error)
	ActOnEvent(ctx context.Context, eventID uuid.UUID, action, feedback string) (*eventDto.EventResponse, error)
}

type adminService struct {
	users    userRepo.UserRepository
	approver Approver
	events   event.Service
}

func NewAdminService(users userRepo.UserRepository, approver Approver, events event.Service) AdminService {
	return &adminService{
		users:    users,
		approver: approver,
		events:   events,
	}
}

func (s *adminService) GetPendingClubs(ctx context.Context) ([]*dto.PendingClubResponse, error) {
	unapproved := false
	users, err := s.users.FindAll(ctx, userRepo.UserFilter{Role: entity.RoleAdmin, Approved: &unapproved})
	if err != nil {
		return nil, err
	}

	res := make([]*dto.PendingClubResponse, 0, len(users))
	for _, u := range users {
		res = append(res, &dto.PendingClubResponse{User: u, Club: u.Club})
	}
	return res, nil
}

func (s *adminService) ApproveUser(ctx context.Context, userID uuid.UUID) (*entity.User, error) {
	return s.approver.SetApproved(ctx, userID, true)
}

func (s *adminService) GetAllUsers(ctx context.Context, filter dto.UserListFilter) ([]*entity.User, error) {
	return s.users.FindAll(ctx, userRepo.UserFilter{Role: filter.Role, Approved: filter.Approved})
}

func (s *adminService) GetPendingEvents(ctx context.Context) ([]*eventDto.EventResponse, error) {
	return s.events.ListPending(ctx)
}

// ActOnEvent is the same decision path as the event module's action route.
func (s *adminService) ActOnEvent(ctx context.Context, eventID uuid.UUID, action, feedback string) (*eventDto.EventResponse, error) {
	return s.events.Act(ctx, eventID, action, feedback)
}
