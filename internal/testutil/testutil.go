// Package testutil holds fixtures shared by the module tests.
package testutil

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"anoa.com/cluverse/internal/bootstrap"
	"anoa.com/cluverse/internal/entity"
	"anoa.com/cluverse/pkg/database"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// NewDB opens a migrated SQLite database private to the test.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "cluverse-test.db"))
	require.NoError(t, err)
	require.NoError(t, bootstrap.Migrate(db))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	return db
}

// Clock is a settable time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(now time.Time) *Clock {
	return &Clock{now: now}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// SentMail is one message captured by Mailer.
type SentMail struct {
	To      string
	Subject string
	Body    string
}

// Mailer records messages instead of delivering them.
type Mailer struct {
	mu   sync.Mutex
	sent []SentMail
	Err  error
}

func (m *Mailer) Send(_ context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, SentMail{To: to, Subject: subject, Body: body})
	return m.Err
}

func (m *Mailer) Sent() []SentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SentMail(nil), m.sent...)
}

// CreateUser inserts an account directly, bypassing signup.
func CreateUser(t *testing.T, db *gorm.DB, email, role string, approved bool) *entity.User {
	t.Helper()

	user := &entity.User{
		Name:     email,
		Email:    email,
		Role:     role,
		Approved: approved,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// CreateEvent inserts an event owned by admin with the given status.
func CreateEvent(t *testing.T, db *gorm.DB, admin *entity.User, title, status string, at time.Time, tags ...string) *entity.Event {
	t.Helper()

	event := &entity.Event{
		AdminID:  admin.ID,
		Title:    title,
		Category: "tech",
		DateTime: at,
		Venue:    "AB5",
		Status:   status,
	}
	for _, tag := range tags {
		event.Tags = append(event.Tags, entity.EventTag{Tag: tag})
	}
	require.NoError(t, db.Create(event).Error)
	return event
}
