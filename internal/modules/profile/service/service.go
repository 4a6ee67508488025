package profile

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"anoa.com/cluverse/internal/entity"
	profileDto "anoa.com/cluverse/internal/modules/profile/dto"
	registrationDto "anoa.com/cluverse/internal/modules/registration/dto"
	userRepo "anoa.com/cluverse/internal/modules/user/repository"
	"anoa.com/cluverse/pkg/apperror"
	commonDto "anoa.com/cluverse/pkg/dto"
	"anoa.com/cluverse/pkg/storage"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const avatarFolder = "avatars"

var (
	ErrWrongPassword = apperror.New(http.StatusBadRequest, "current password is incorrect", apperror.ErrInvalidInput)
	ErrNoPassword    = apperror.New(http.StatusBadRequest, "account has no password set", apperror.ErrInvalidInput)

	errUserNotFound = fmt.Errorf("user: %w", apperror.ErrNotFound)
)

// RegistrationLister loads a user's registrations with their events.
type RegistrationLister interface {
	FindByUser(ctx context.Context, userID uuid.UUID) ([]*entity.Registration, error)
}

type ProfileService interface {
	GetCurrentProfile(ctx context.Context, userID uuid.UUID) (*profileDto.ProfileResponse, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, input profileDto.UpdateProfileInput, avatar *commonDto.ImageFile) (*profileDto.ProfileResponse, error)
	ChangePassword(ctx context.Context, userID uuid.UUID, input profileDto.ChangePasswordInput) error
}

type profileService struct {
	repo          userRepo.UserRepository
	registrations RegistrationLister
	imageStorage  storage.ImageStorage
}

func NewProfileService(repo userRepo.UserRepository, registrations RegistrationLister, imageStorage storage.ImageStorage) ProfileService {
	return &profileService{
		repo:          repo,
		registrations: registrations,
		imageStorage:  imageStorage,
	}
}

func (s *profileService) GetCurrentProfile(ctx context.Context, userID uuid.UUID) (*profileDto.ProfileResponse, error) {
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	regs, err := s.registrations.FindByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	res := &profileDto.ProfileResponse{
		User:          user,
		Registrations: registrationDto.NewRegistrationResponses(regs),
	}
	switch {
	case user.Student != nil:
		res.Profile = user.Student
	case user.Club != nil:
		res.Profile = user.Club
	}

	return res, nil
}

func (s *profileService) UpdateProfile(ctx context.Context, userID uuid.UUID, input profileDto.UpdateProfileInput, avatar *commonDto.ImageFile) (*profileDto.ProfileResponse, error) {
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if input.Bio != nil {
		user.Bio = strings.TrimSpace(*input.Bio)
	}
	if input.Phone != nil {
		phone := strings.TrimSpace(*input.Phone)
		if user.Student != nil {
			user.Student.Phone = phone
		}
		if user.Club != nil {
			user.Club.Phone = phone
		}
	}
	if input.Branch != nil && user.Student != nil {
		user.Student.Branch = strings.TrimSpace(*input.Branch)
	}

	oldPic := user.ProfilePic
	switch {
	case avatar != nil && avatar.Reader != nil:
		if s.imageStorage == nil {
			return nil, apperror.New(http.StatusServiceUnavailable, "image uploads are not configured", storage.ErrNotConfigured)
		}
		url, err := s.imageStorage.UploadImage(ctx, avatar.Reader, avatarFolder, avatar.FileName)
		if err != nil {
			return nil, apperror.New(http.StatusBadRequest, err.Error(), apperror.ErrInvalidInput)
		}
		user.ProfilePic = &url
	case input.ProfilePic != nil:
		pic := strings.TrimSpace(*input.ProfilePic)
		if pic == "" {
			user.ProfilePic = nil
		} else {
			user.ProfilePic = &pic
		}
	}

	if err := s.repo.UpdateProfile(ctx, user); err != nil {
		return nil, err
	}

	if s.imageStorage != nil && oldPic != nil && (user.ProfilePic == nil || *oldPic != *user.ProfilePic) {
		go func(url string) {
			if err := s.imageStorage.DeleteImage(context.Background(), url); err != nil {
				log.Printf("Failed to delete old profile picture: %v", err)
			}
		}(*oldPic)
	}

	return s.GetCurrentProfile(ctx, userID)
}

// ChangePassword requires the current password. Accounts created through
// Google have none and must keep signing in that way.
func (s *profileService) ChangePassword(ctx context.Context, userID uuid.UUID, input profileDto.ChangePasswordInput) error {
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return err
	}

	if !user.HasPassword() {
		return ErrNoPassword
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.OldPassword)); err != nil {
		return ErrWrongPassword
	}
	if len(input.NewPassword) < 8 {
		return apperror.New(http.StatusBadRequest, "password must be at least 8 characters", apperror.ErrInvalidInput)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	return s.repo.UpdatePassword(ctx, userID, string(hash))
}

func (s *profileService) findUser(ctx context.Context, userID uuid.UUID) (*entity.User, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errUserNotFound
		}
		return nil, err
	}
	return user, nil
}
