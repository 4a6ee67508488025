package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"anoa.com/cluverse/internal/bootstrap"
	"anoa.com/cluverse/internal/config"
	"anoa.com/cluverse/internal/testutil"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var codePattern = regexp.MustCompile(`\b\d{6}\b`)

type harness struct {
	t      *testing.T
	srv    *Server
	mailer *testutil.Mailer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		AppEnv:             "development",
		JWTSecret:          "test-secret",
		JWTTTL:             time.Hour,
		OTPTTL:             10 * time.Minute,
		StudentEmailDomain: "learner.manipal.edu",
		MailTimeout:        time.Second,
		FrontendURL:        "http://localhost:5173",
		AllowedOrigins:     []string{"http://localhost:5173"},
		BossEmail:          "boss@manipal.edu",
		BossPassword:       "boss-password",
		BossName:           "Student Welfare",
	}

	db := testutil.NewDB(t)
	require.NoError(t, bootstrap.SeedBoss(db, cfg))

	mail := &testutil.Mailer{}
	srv, err := NewServerWithOptions(cfg, db, nil, Options{Mailer: mail})
	require.NoError(t, err)

	return &harness{t: t, srv: srv, mailer: mail}
}

func (h *harness) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	h.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(h.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	h.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

// signup requests a code, reads it from the captured mail and creates the
// account.
func (h *harness) signup(email, role, name string, extra map[string]string) {
	h.t.Helper()

	rec := h.do(http.MethodPost, "/api/auth/request-otp", "", map[string]string{"email": email, "role": role})
	require.Equal(h.t, http.StatusOK, rec.Code, rec.Body.String())

	var code string
	require.Eventually(h.t, func() bool {
		for _, m := range h.mailer.Sent() {
			if m.To == email {
				code = codePattern.FindString(m.Body)
			}
		}
		return code != ""
	}, 2*time.Second, 10*time.Millisecond)

	body := map[string]string{
		"email":    email,
		"otp":      code,
		"password": "password123",
		"role":     role,
		"name":     name,
	}
	for k, v := range extra {
		body[k] = v
	}
	rec = h.do(http.MethodPost, "/api/auth/signup", "", body)
	require.Equal(h.t, http.StatusCreated, rec.Code, rec.Body.String())
}

func (h *harness) login(email, password string) *httptest.ResponseRecorder {
	return h.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": email, "password": password})
}

func (h *harness) token(email, password string) string {
	h.t.Helper()
	rec := h.login(email, password)
	require.Equal(h.t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[map[string]interface{}](h.t, rec)["token"].(string)
}

func TestHealth(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodGet, "/api/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode[map[string]interface{}](t, rec)["status"])
}

func TestEventLifecycleOverHTTP(t *testing.T) {
	h := newHarness(t)

	h.signup("robotics@gmail.com", "admin", "Robotics", map[string]string{"club_name": "Robotics Club"})
	h.signup("jd.20221234@learner.manipal.edu", "student", "Jane", map[string]string{"branch": "CSE"})

	rec := h.login("robotics@gmail.com", "password123")
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "pending_approval", decode[map[string]string](t, rec)["kind"])

	boss := h.token("boss@manipal.edu", "boss-password")
	student := h.token("jd.20221234@learner.manipal.edu", "password123")

	rec = h.do(http.MethodGet, "/api/admin/pending-clubs", student, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = h.do(http.MethodGet, "/api/admin/pending-clubs", boss, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	clubs := decode[[]map[string]map[string]interface{}](t, rec)
	require.Len(t, clubs, 1)
	clubID := clubs[0]["user"]["id"].(string)

	rec = h.do(http.MethodPost, "/api/admin/approve-user/"+clubID, boss, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	club := h.token("robotics@gmail.com", "password123")

	rec = h.do(http.MethodPost, "/api/events", student, map[string]interface{}{"title": "Nope"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = h.do(http.MethodPost, "/api/events", club, map[string]interface{}{
		"title":     "Hack Night",
		"category":  "tech",
		"date_time": time.Now().Add(72 * time.Hour).UTC().Format(time.RFC3339),
		"venue":     "AB5",
		"tags":      []string{"coding"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	eventID := decode[map[string]interface{}](t, rec)["id"].(string)

	rec = h.do(http.MethodGet, "/api/events", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]map[string]interface{}](t, rec))

	rec = h.do(http.MethodPost, "/api/registrations/"+eventID, student, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(http.MethodPost, "/api/events/"+eventID+"/action", boss, map[string]string{"action": "approve"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "approved", decode[map[string]interface{}](t, rec)["status"])

	rec = h.do(http.MethodPost, "/api/events/"+eventID+"/action", boss, map[string]string{"action": "reject"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "invalid_transition", decode[map[string]string](t, rec)["kind"])

	rec = h.do(http.MethodPost, "/api/registrations/"+eventID, student, map[string]string{"team_name": "Byte Me"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	reg := decode[map[string]interface{}](t, rec)
	regID := reg["id"].(string)
	assert.Equal(t, "Byte Me", reg["team_name"])

	rec = h.do(http.MethodPost, "/api/registrations/"+eventID, student, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = h.do(http.MethodPost, "/api/registrations/scan", student, map[string]string{"payload": "REG:" + regID})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = h.do(http.MethodPost, "/api/registrations/scan", club, map[string]string{"payload": "REG:" + regID})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "checked-in", decode[map[string]interface{}](t, rec)["status"])

	rec = h.do(http.MethodPost, "/api/registrations/checkin/"+regID, club, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "already_checked_in", decode[map[string]string](t, rec)["kind"])

	rec = h.do(http.MethodGet, "/api/registrations/mine", student, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]map[string]interface{}](t, rec), 1)

	rec = h.do(http.MethodGet, "/api/admin/stats", club, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[map[string]interface{}](t, rec)
	assert.EqualValues(t, 1, stats["total_events"])
	assert.EqualValues(t, 1, stats["total_registrations"])

	rec = h.do(http.MethodGet, "/api/profile", student, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	profile := decode[map[string]interface{}](t, rec)
	assert.Len(t, profile["registrations"], 1)
}

func TestUnauthenticatedAndBadToken(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodGet, "/api/registrations/mine", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = h.do(http.MethodGet, "/api/registrations/mine", "garbage", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "invalid_credential", decode[map[string]string](t, rec)["kind"])
}
