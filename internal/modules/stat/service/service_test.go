package service

import (
	"context"
	"testing"
	"time"

	"anoa.com/cluverse/internal/entity"
	eventRepo "anoa.com/cluverse/internal/modules/event/repository"
	registrationRepo "anoa.com/cluverse/internal/modules/registration/repository"
	"anoa.com/cluverse/internal/modules/user/repository"
	"anoa.com/cluverse/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetStats_CountsWithoutCache(t *testing.T) {
	db := testutil.NewDB(t)
	at := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)

	club := testutil.CreateUser(t, db, "club@example.com", entity.RoleAdmin, true)
	testutil.CreateUser(t, db, "waiting@example.com", entity.RoleAdmin, false)
	student := testutil.CreateUser(t, db, "s@learner.manipal.edu", entity.RoleStudent, true)
	testutil.CreateUser(t, db, "boss@example.com", entity.RoleBoss, true)

	open := testutil.CreateEvent(t, db, club, "Open", entity.EventStatusApproved, at)
	testutil.CreateEvent(t, db, club, "Waiting", entity.EventStatusPending, at)
	testutil.CreateEvent(t, db, club, "Another", entity.EventStatusPending, at)
	require.NoError(t, db.Create(&entity.Registration{EventID: open.ID, UserID: student.ID, TeamName: "Solo"}).Error)

	svc := NewStatService(repository.NewUserRepository(db), eventRepo.NewRepository(db), registrationRepo.NewRepository(db), nil, time.Minute)

	stats, err := svc.GetStats(context.Background())
	require.NoError(t, err)

	assert.EqualValues(t, 3, stats.TotalEvents)
	assert.EqualValues(t, 2, stats.PendingEvents)
	assert.EqualValues(t, 1, stats.TotalRegistrations)
	assert.EqualValues(t, 4, stats.TotalUsers)
	assert.EqualValues(t, 1, stats.PendingClubs)

	svc.Invalidate(context.Background())

	testutil.CreateUser(t, db, "late@example.com", entity.RoleAdmin, false)
	stats, err = svc.GetStats(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 2, stats.PendingClubs)
}
