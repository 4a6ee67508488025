package handler

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"

	"anoa.com/cluverse/internal/modules/user/dto"
	user "anoa.com/cluverse/internal/modules/user/service"
	"anoa.com/cluverse/pkg/apperror"
	commonDto "anoa.com/cluverse/pkg/dto"
	"anoa.com/cluverse/pkg/ratelimiter"
	"anoa.com/cluverse/pkg/response"
	"github.com/gin-gonic/gin"
)

const oauthStateCookie = "oauth_state"

type AuthHandler struct {
	authService user.AuthService
	frontendURL string
	secure      bool
}

func NewAuthHandler(authService user.AuthService, frontendURL string, secureCookies bool) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		frontendURL: frontendURL,
		secure:      secureCookies,
	}
}

func (h *AuthHandler) RequestOTP(c *gin.Context) {
	var input dto.RequestOTPInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.BindingError(c, err)
		return
	}

	if err := h.authService.RequestOTP(c.Request.Context(), input); err != nil {
		var rateLimitErr *ratelimiter.RateLimitError
		if errors.As(err, &rateLimitErr) {
			c.Header("Retry-After", fmt.Sprintf("%.0f", rateLimitErr.RetryAfter.Seconds()))
		}
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, commonDto.MessageResponse{OK: true})
}

func (h *AuthHandler) Signup(c *gin.Context) {
	var input dto.SignupInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.BindingError(c, err)
		return
	}

	if _, err := h.authService.Signup(c.Request.Context(), input); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, commonDto.MessageResponse{OK: true})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var input dto.LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.BindingError(c, err)
		return
	}

	res, err := h.authService.Login(c.Request.Context(), input)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *AuthHandler) GoogleLogin(c *gin.Context) {
	state, err := newState()
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	authURL, err := h.authService.GoogleLoginURL(state)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(oauthStateCookie, state, 600, "/", "", h.secure, true)
	c.Redirect(http.StatusTemporaryRedirect, authURL)
}

func (h *AuthHandler) GoogleCallback(c *gin.Context) {
	expected, _ := c.Cookie(oauthStateCookie)
	c.SetCookie(oauthStateCookie, "", -1, "/", "", h.secure, true)

	if expected == "" || c.Query("state") != expected {
		h.redirectLoginError(c, "invalid oauth state")
		return
	}

	code := c.Query("code")
	if code == "" {
		h.redirectLoginError(c, "code not found")
		return
	}

	res, err := h.authService.GoogleCallback(c.Request.Context(), code)
	if err != nil {
		log.Printf("Google sign-in failed: %v", err)
		h.redirectLoginError(c, apperror.MapErrorToKind(err))
		return
	}

	c.Redirect(http.StatusTemporaryRedirect, h.frontendURL+"/social-success?token="+url.QueryEscape(res.Token))
}

func (h *AuthHandler) redirectLoginError(c *gin.Context, message string) {
	c.Redirect(http.StatusTemporaryRedirect, h.frontendURL+"/login?error="+url.QueryEscape(message))
}

func newState() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
