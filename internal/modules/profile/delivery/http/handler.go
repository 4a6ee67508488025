package handler

import (
	"net/http"

	profileDto "anoa.com/cluverse/internal/modules/profile/dto"
	profile "anoa.com/cluverse/internal/modules/profile/service"
	commonDto "anoa.com/cluverse/pkg/dto"
	"anoa.com/cluverse/pkg/response"
	"github.com/gin-gonic/gin"
)

type ProfileHandler struct {
	profileService profile.ProfileService
}

func NewProfileHandler(profileService profile.ProfileService) *ProfileHandler {
	return &ProfileHandler{
		profileService: profileService,
	}
}

func (h *ProfileHandler) GetCurrentProfile(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	res, err := h.profileService.GetCurrentProfile(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

// UpdateProfile accepts JSON or a multipart form; a "profile_pic" file part
// is uploaded and wins over a URL field.
func (h *ProfileHandler) UpdateProfile(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var input profileDto.UpdateProfileInput
	if err := c.ShouldBind(&input); err != nil {
		response.BindingError(c, err)
		return
	}

	var avatar *commonDto.ImageFile
	if fileHeader, err := c.FormFile("profile_pic"); err == nil && fileHeader != nil {
		file, err := fileHeader.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read profile picture", "kind": "validation_error"})
			return
		}
		defer file.Close()

		avatar = &commonDto.ImageFile{
			Reader:   file,
			FileName: fileHeader.Filename,
		}
		input.ProfilePic = nil
	}

	res, err := h.profileService.UpdateProfile(c.Request.Context(), userID, input, avatar)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *ProfileHandler) ChangePassword(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var input profileDto.ChangePasswordInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.BindingError(c, err)
		return
	}

	if err := h.profileService.ChangePassword(c.Request.Context(), userID, input); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, commonDto.MessageResponse{OK: true, Message: "password updated"})
}
