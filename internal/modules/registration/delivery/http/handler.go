package handler

import (
	"errors"
	"io"
	"net/http"

	"anoa.com/cluverse/internal/modules/registration/dto"
	registration "anoa.com/cluverse/internal/modules/registration/service"
	"anoa.com/cluverse/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type RegistrationHandler struct {
	service registration.Service
}

func NewRegistrationHandler(service registration.Service) *RegistrationHandler {
	return &RegistrationHandler{service: service}
}

// Register signs the caller up for the event in the path. The body is
// optional; an empty one registers a solo entry.
func (h *RegistrationHandler) Register(c *gin.Context) {
	eventID, ok := parseID(c, "invalid event id")
	if !ok {
		return
	}

	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.BindingError(c, err)
		return
	}

	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	res, err := h.service.Register(c.Request.Context(), eventID, userID, req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, res)
}

func (h *RegistrationHandler) CheckIn(c *gin.Context) {
	registrationID, ok := parseID(c, "invalid registration id")
	if !ok {
		return
	}

	res, err := h.service.CheckIn(c.Request.Context(), registrationID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *RegistrationHandler) Scan(c *gin.Context) {
	var req dto.ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindingError(c, err)
		return
	}

	res, err := h.service.CheckInByPayload(c.Request.Context(), req.Payload)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *RegistrationHandler) ListMine(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	res, err := h.service.ListMine(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *RegistrationHandler) Get(c *gin.Context) {
	registrationID, ok := parseID(c, "invalid registration id")
	if !ok {
		return
	}

	identity, err := response.GetIdentity(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	res, err := h.service.Get(c.Request.Context(), identity, registrationID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *RegistrationHandler) ListForEvent(c *gin.Context) {
	eventID, ok := parseID(c, "invalid event id")
	if !ok {
		return
	}

	res, err := h.service.ListForEvent(c.Request.Context(), eventID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func parseID(c *gin.Context, message string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": message, "kind": "validation_error"})
		return uuid.Nil, false
	}
	return id, true
}
