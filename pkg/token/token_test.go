package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndParse(t *testing.T) {
	t.Parallel()

	m := NewManager("super-secret", time.Hour)

	tok, exp, err := m.Issue("user-123", "admin", "Robotics Club")
	require.NoError(t, err)
	assert.Greater(t, exp, time.Now().Unix())

	claims, err := m.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.Subject)
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, "Robotics Club", claims.Name)
}

func TestParse_Expired(t *testing.T) {
	t.Parallel()

	m := NewManager("secret", time.Hour)
	m.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	tok, _, err := m.Issue("u1", "student", "A")
	require.NoError(t, err)

	fresh := NewManager("secret", time.Hour)
	_, err = fresh.Parse(tok)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestParse_WrongSecret(t *testing.T) {
	t.Parallel()

	tok, _, err := NewManager("right-secret", time.Hour).Issue("u2", "boss", "B")
	require.NoError(t, err)

	_, err = NewManager("wrong-secret", time.Hour).Parse(tok)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestParse_MissingAndGarbage(t *testing.T) {
	t.Parallel()

	m := NewManager("secret", time.Hour)

	_, err := m.Parse("")
	assert.ErrorIs(t, err, ErrMissing)

	_, err = m.Parse("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalid)
}
