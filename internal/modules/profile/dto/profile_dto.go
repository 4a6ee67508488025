package dto

import (
	"anoa.com/cluverse/internal/entity"
	registrationDto "anoa.com/cluverse/internal/modules/registration/dto"
)

// UpdateProfileInput carries the editable fields. Nil leaves a field as is;
// phone and branch only apply to the role profile that has them.
type UpdateProfileInput struct {
	Phone      *string `json:"phone" form:"phone" binding:"omitempty,max=30"`
	Branch     *string `json:"branch" form:"branch" binding:"omitempty,max=100"`
	Bio        *string `json:"bio" form:"bio" binding:"omitempty,max=1000"`
	ProfilePic *string `json:"profile_pic" form:"profile_pic" binding:"omitempty,url"`
}

type ChangePasswordInput struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8"`
}

// ProfileResponse is the caller's own profile page.
type ProfileResponse struct {
	User          *entity.User                            `json:"user"`
	Profile       interface{}                             `json:"profile"`
	Registrations []*registrationDto.RegistrationResponse `json:"registrations"`
}
