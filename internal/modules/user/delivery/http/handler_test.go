package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"anoa.com/cluverse/internal/modules/user/dto"
	user "anoa.com/cluverse/internal/modules/user/service"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type callbackAuth struct {
	user.AuthService
	res *dto.AuthResponse
	err error
}

func (a *callbackAuth) GoogleCallback(context.Context, string) (*dto.AuthResponse, error) {
	return a.res, a.err
}

func callback(t *testing.T, auth user.AuthService) *url.URL {
	t.Helper()
	gin.SetMode(gin.TestMode)

	r := gin.New()
	h := NewAuthHandler(auth, "http://app.example.com", false)
	r.GET("/api/auth/google/callback", h.GoogleCallback)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/google/callback?state=abc&code=xyz", nil)
	req.AddCookie(&http.Cookie{Name: oauthStateCookie, Value: "abc"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusTemporaryRedirect, w.Code)
	loc, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	return loc
}

func TestGoogleCallback_RedirectHidesStoreErrors(t *testing.T) {
	loc := callback(t, &callbackAuth{err: errors.New(`pq: relation "users" does not exist`)})

	assert.Equal(t, "/login", loc.Path)
	assert.Equal(t, "upstream_failure", loc.Query().Get("error"))
	assert.NotContains(t, loc.String(), "relation")
}

func TestGoogleCallback_RedirectCarriesKind(t *testing.T) {
	loc := callback(t, &callbackAuth{err: user.ErrPendingApproval})
	assert.Equal(t, "pending_approval", loc.Query().Get("error"))

	loc = callback(t, &callbackAuth{err: user.ErrEmailUnverified})
	assert.Equal(t, "validation_error", loc.Query().Get("error"))
}

func TestGoogleCallback_Success(t *testing.T) {
	loc := callback(t, &callbackAuth{res: &dto.AuthResponse{Token: "signed"}})

	assert.Equal(t, "/social-success", loc.Path)
	assert.Equal(t, "signed", loc.Query().Get("token"))
}
