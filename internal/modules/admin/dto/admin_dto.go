package dto

import "anoa.com/cluverse/internal/entity"

type UserListFilter struct {
	Role     string `form:"role" binding:"omitempty,oneof=student admin boss"`
	Approved *bool  `form:"approved"`
}

// PendingClubResponse is an admin account waiting for approval together
// with the club it registered.
type PendingClubResponse struct {
	User *entity.User        `json:"user"`
	Club *entity.ClubProfile `json:"club,omitempty"`
}
