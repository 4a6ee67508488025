package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleStudent = "student"
	RoleAdmin   = "admin"
	RoleBoss    = "boss"
)

func IsValidRole(role string) bool {
	switch role {
	case RoleStudent, RoleAdmin, RoleBoss:
		return true
	}
	return false
}

// DefaultApproval is the approval flag a fresh account starts with: club
// admins wait for a boss, everyone else is active immediately.
func DefaultApproval(role string) bool {
	return role != RoleAdmin
}

// NormalizeEmail lower-cases and trims an address before any lookup or write.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type User struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Name         string          `gorm:"size:100;not null" json:"name"`
	Email        string          `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash string          `gorm:"size:255" json:"-"`
	GoogleID     *string         `gorm:"size:100;uniqueIndex" json:"google_id,omitempty"`
	ProfilePic   *string         `gorm:"type:text" json:"profile_pic,omitempty"`
	Bio          string          `gorm:"type:text" json:"bio,omitempty"`
	Role         string          `gorm:"size:20;not null;index" json:"role"`
	Approved     bool            `gorm:"not null;default:false" json:"approved"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
	Student      *StudentProfile `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"student,omitempty"`
	Club         *ClubProfile    `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"club,omitempty"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	u.Email = NormalizeEmail(u.Email)
	return nil
}

func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}

// StudentProfile extends a student account.
type StudentProfile struct {
	UserID      uuid.UUID `gorm:"type:uuid;primaryKey" json:"-"`
	Branch      string    `gorm:"size:100" json:"branch,omitempty"`
	YearOfJoin  *int      `json:"year_of_join,omitempty"`
	YearOfStudy *int      `json:"year_of_study,omitempty"`
	Phone       string    `gorm:"size:30" json:"phone,omitempty"`
}

// ClubProfile extends a club admin account.
type ClubProfile struct {
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey" json:"-"`
	ClubName  string    `gorm:"size:150" json:"club_name,omitempty"`
	Category  string    `gorm:"size:100" json:"category,omitempty"`
	President string    `gorm:"size:100" json:"president,omitempty"`
	Vice      string    `gorm:"size:100" json:"vice,omitempty"`
	Phone     string    `gorm:"size:30" json:"phone,omitempty"`
}
