package handler

import (
	"net/http"
	"strconv"

	"anoa.com/cluverse/internal/modules/event/dto"
	event "anoa.com/cluverse/internal/modules/event/service"
	commonDto "anoa.com/cluverse/pkg/dto"
	"anoa.com/cluverse/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type EventHandler struct {
	service event.Service
}

func NewEventHandler(service event.Service) *EventHandler {
	return &EventHandler{service: service}
}

func (h *EventHandler) CreateEvent(c *gin.Context) {
	var req dto.CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindingError(c, err)
		return
	}

	identity, err := response.GetIdentity(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	res, err := h.service.Create(c.Request.Context(), identity, req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, res)
}

func (h *EventHandler) GetEvents(c *gin.Context) {
	var filter dto.EventFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BindingError(c, err)
		return
	}

	res, err := h.service.List(c.Request.Context(), response.OptionalIdentity(c), filter)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *EventHandler) GetEvent(c *gin.Context) {
	eventID, ok := parseID(c)
	if !ok {
		return
	}

	res, err := h.service.Get(c.Request.Context(), response.OptionalIdentity(c), eventID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *EventHandler) UpdateEvent(c *gin.Context) {
	eventID, ok := parseID(c)
	if !ok {
		return
	}

	var req dto.UpdateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindingError(c, err)
		return
	}

	identity, err := response.GetIdentity(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	res, err := h.service.Update(c.Request.Context(), identity, eventID, req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *EventHandler) ActOnEvent(c *gin.Context) {
	eventID, ok := parseID(c)
	if !ok {
		return
	}

	var req dto.ActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindingError(c, err)
		return
	}

	res, err := h.service.Act(c.Request.Context(), eventID, req.Action, req.Feedback)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *EventHandler) GetPendingEvents(c *gin.Context) {
	res, err := h.service.ListPending(c.Request.Context())
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *EventHandler) UploadImage(c *gin.Context) {
	eventID, ok := parseID(c)
	if !ok {
		return
	}

	identity, err := response.GetIdentity(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image file is required", "kind": "validation_error"})
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read image", "kind": "validation_error"})
		return
	}
	defer file.Close()

	res, err := h.service.SetImage(c.Request.Context(), identity, eventID, &commonDto.ImageFile{
		Reader:   file,
		FileName: fileHeader.Filename,
	})
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *EventHandler) SearchEvents(c *gin.Context) {
	limit := 20
	if l, err := strconv.Atoi(c.Query("limit")); err == nil && l > 0 {
		limit = l
	}

	res, err := h.service.Search(c.Request.Context(), c.Query("q"), limit)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event id", "kind": "validation_error"})
		return uuid.Nil, false
	}
	return id, true
}
