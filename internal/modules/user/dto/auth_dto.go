package dto

import (
	"anoa.com/cluverse/internal/entity"
)

type RequestOTPInput struct {
	Email string `json:"email" binding:"required,email"`
	Role  string `json:"role" binding:"omitempty,oneof=student admin"`
}

// SignupInput carries the shared fields plus whichever role-specific ones the
// client sends; fields that do not belong to the role are ignored.
type SignupInput struct {
	Email    string `json:"email" binding:"required,email"`
	OTP      string `json:"otp"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role" binding:"required"`
	Name     string `json:"name" binding:"required,max=100"`

	Branch string `json:"branch" binding:"max=100"`
	Phone  string `json:"phone" binding:"max=30"`

	ClubName  string `json:"club_name" binding:"max=150"`
	Category  string `json:"category" binding:"max=100"`
	President string `json:"president" binding:"max=100"`
	Vice      string `json:"vice" binding:"max=100"`
}

// AccountFields is what a local account is created from once the email has
// been proven.
type AccountFields struct {
	Email    string
	Password string
	Role     string
	Name     string

	Branch string
	Phone  string

	ClubName  string
	Category  string
	President string
	Vice      string
}

func (in SignupInput) AccountFields() AccountFields {
	return AccountFields{
		Email:     in.Email,
		Password:  in.Password,
		Role:      in.Role,
		Name:      in.Name,
		Branch:    in.Branch,
		Phone:     in.Phone,
		ClubName:  in.ClubName,
		Category:  in.Category,
		President: in.President,
		Vice:      in.Vice,
	}
}

type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// ExternalProfile is what the identity provider tells us about a user.
type ExternalProfile struct {
	ExternalID    string
	Email         string
	EmailVerified bool
	Name          string
	PictureURL    string
}

type AuthResponse struct {
	Token     string       `json:"token"`
	TokenType string       `json:"token_type"`
	ExpiresAt int64        `json:"expires_at"`
	User      *entity.User `json:"user"`
}
