package service

import (
	"context"
	"testing"
	"time"

	"anoa.com/cluverse/internal/entity"
	"anoa.com/cluverse/internal/modules/admin/dto"
	eventRepo "anoa.com/cluverse/internal/modules/event/repository"
	event "anoa.com/cluverse/internal/modules/event/service"
	userRepo "anoa.com/cluverse/internal/modules/user/repository"
	user "anoa.com/cluverse/internal/modules/user/service"
	"anoa.com/cluverse/internal/testutil"
	"anoa.com/cluverse/pkg/apperror"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type statsCounter struct {
	calls int
}

func (c *statsCounter) Invalidate(context.Context) { c.calls++ }

func newAdminService(db *gorm.DB, stats *statsCounter) AdminService {
	users := userRepo.NewUserRepository(db)

	return NewAdminService(
		users,
		user.NewAuthService(users, nil, nil, nil, stats),
		event.NewService(eventRepo.NewRepository(db), nil, nil, stats),
	)
}

func TestPendingClubsAndApproval(t *testing.T) {
	db := testutil.NewDB(t)
	stats := &statsCounter{}
	svc := newAdminService(db, stats)
	ctx := context.Background()

	waiting := &entity.User{
		Name:  "Robotics",
		Email: "robo@example.com",
		Role:  entity.RoleAdmin,
		Club:  &entity.ClubProfile{ClubName: "Robotics Club", President: "Ravi"},
	}
	require.NoError(t, db.Create(waiting).Error)
	testutil.CreateUser(t, db, "active@example.com", entity.RoleAdmin, true)
	testutil.CreateUser(t, db, "s@learner.manipal.edu", entity.RoleStudent, true)

	pending, err := svc.GetPendingClubs(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, waiting.ID, pending[0].User.ID)
	require.NotNil(t, pending[0].Club)
	assert.Equal(t, "Robotics Club", pending[0].Club.ClubName)

	approved, err := svc.ApproveUser(ctx, waiting.ID)
	require.NoError(t, err)
	assert.True(t, approved.Approved)
	assert.Equal(t, 1, stats.calls)

	pending, err = svc.GetPendingClubs(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	_, err = svc.ApproveUser(ctx, uuid.New())
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestGetAllUsers_Filters(t *testing.T) {
	db := testutil.NewDB(t)
	svc := newAdminService(db, &statsCounter{})

	testutil.CreateUser(t, db, "a@example.com", entity.RoleAdmin, false)
	testutil.CreateUser(t, db, "b@example.com", entity.RoleAdmin, true)
	testutil.CreateUser(t, db, "s@learner.manipal.edu", entity.RoleStudent, true)

	all, err := svc.GetAllUsers(context.Background(), dto.UserListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	approved := true
	admins, err := svc.GetAllUsers(context.Background(), dto.UserListFilter{Role: entity.RoleAdmin, Approved: &approved})
	require.NoError(t, err)
	require.Len(t, admins, 1)
	assert.Equal(t, "b@example.com", admins[0].Email)
}

func TestEventQueue(t *testing.T) {
	db := testutil.NewDB(t)
	stats := &statsCounter{}
	svc := newAdminService(db, stats)
	ctx := context.Background()

	club := testutil.CreateUser(t, db, "club@example.com", entity.RoleAdmin, true)
	at := time.Date(2026, 5, 1, 18, 0, 0, 0, time.UTC)
	first := testutil.CreateEvent(t, db, club, "First", entity.EventStatusPending, at)
	testutil.CreateEvent(t, db, club, "Second", entity.EventStatusPending, at.Add(time.Hour))
	testutil.CreateEvent(t, db, club, "Live", entity.EventStatusApproved, at)

	queue, err := svc.GetPendingEvents(ctx)
	require.NoError(t, err)
	require.Len(t, queue, 2)

	res, err := svc.ActOnEvent(ctx, first.ID, event.ActionChanges, "add a venue map")
	require.NoError(t, err)
	assert.Equal(t, entity.EventStatusChangesRequested, res.Status)
	assert.Equal(t, "add a venue map", res.Feedback)
	assert.Equal(t, 1, stats.calls)

	_, err = svc.ActOnEvent(ctx, first.ID, event.ActionApprove, "")
	assert.ErrorIs(t, err, event.ErrInvalidTransition)

	queue, err = svc.GetPendingEvents(ctx)
	require.NoError(t, err)
	assert.Len(t, queue, 1)
}
