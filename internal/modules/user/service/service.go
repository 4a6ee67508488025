package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"anoa.com/cluverse/internal/entity"
	otp "anoa.com/cluverse/internal/modules/otp/service"
	"anoa.com/cluverse/internal/modules/user/dto"
	"anoa.com/cluverse/internal/modules/user/repository"
	"anoa.com/cluverse/pkg/apperror"
	"anoa.com/cluverse/pkg/database"
	"anoa.com/cluverse/pkg/token"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	passwordCost      = 12
	minPasswordLength = 8
)

var digitRun = regexp.MustCompile(`[0-9]{4,}`)

var (
	ErrInvalidCredentials = apperror.WithKind("invalid_credentials", "wrong email or password", apperror.ErrUnauthorized)
	ErrPendingApproval    = apperror.WithKind("pending_approval", "account is waiting for approval", apperror.ErrForbidden)
	ErrEmailTaken         = apperror.New(http.StatusConflict, "user already exists", apperror.ErrConflict)
	ErrPasswordTooShort   = apperror.New(http.StatusBadRequest, "password too short (min 8 chars)", apperror.ErrInvalidInput)
	ErrEmailUnverified    = apperror.New(http.StatusBadRequest, "identity provider has not verified this email", apperror.ErrInvalidInput)
)

// StatsInvalidator drops cached dashboard counts.
type StatsInvalidator interface {
	Invalidate(ctx context.Context)
}

type AuthService interface {
	RequestOTP(ctx context.Context, input dto.RequestOTPInput) error
	Signup(ctx context.Context, input dto.SignupInput) (*entity.User, error)
	CreateLocalAccount(ctx context.Context, fields dto.AccountFields) (*entity.User, error)
	Login(ctx context.Context, input dto.LoginInput) (*dto.AuthResponse, error)
	LinkOrCreateExternalAccount(ctx context.Context, profile dto.ExternalProfile) (*entity.User, error)
	GoogleLoginURL(state string) (string, error)
	GoogleCallback(ctx context.Context, code string) (*dto.AuthResponse, error)
	SetApproved(ctx context.Context, userID uuid.UUID, approved bool) (*entity.User, error)
}

type authService struct {
	repo     repository.UserRepository
	otp      otp.Service
	tokens   *token.Manager
	provider IdentityProvider
	stats    StatsInvalidator
	now      func() time.Time
}

// NewAuthService wires the account flows. stats may be nil.
func NewAuthService(repo repository.UserRepository, otpService otp.Service, tokens *token.Manager, provider IdentityProvider, stats StatsInvalidator) AuthService {
	return newAuthService(repo, otpService, tokens, provider, stats)
}

func newAuthService(repo repository.UserRepository, otpService otp.Service, tokens *token.Manager, provider IdentityProvider, stats StatsInvalidator) *authService {
	return &authService{
		repo:     repo,
		otp:      otpService,
		tokens:   tokens,
		provider: provider,
		stats:    stats,
		now:      time.Now,
	}
}

func (s *authService) RequestOTP(ctx context.Context, input dto.RequestOTPInput) error {
	return s.otp.RequestCode(ctx, input.Email, input.Role)
}

// Signup proves the email with the one-time code and creates the account.
// Bosses are provisioned out of band and cannot sign up.
func (s *authService) Signup(ctx context.Context, input dto.SignupInput) (*entity.User, error) {
	input.Email = entity.NormalizeEmail(input.Email)

	exists, err := s.repo.ExistsByEmail(ctx, input.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrEmailTaken
	}

	if input.Role != entity.RoleStudent && input.Role != entity.RoleAdmin {
		return nil, apperror.New(http.StatusBadRequest, "role must be student or admin", apperror.ErrInvalidInput)
	}
	if len(input.Password) < minPasswordLength {
		return nil, ErrPasswordTooShort
	}

	// The code does not remember the role it was requested for.
	if err := s.otp.CheckEmail(input.Email, input.Role); err != nil {
		return nil, err
	}

	if err := s.otp.VerifyAndConsume(ctx, input.Email, input.OTP); err != nil {
		return nil, err
	}

	return s.CreateLocalAccount(ctx, input.AccountFields())
}

func (s *authService) CreateLocalAccount(ctx context.Context, fields dto.AccountFields) (*entity.User, error) {
	email := entity.NormalizeEmail(fields.Email)
	if email == "" {
		return nil, apperror.New(http.StatusBadRequest, "email is required", apperror.ErrInvalidInput)
	}
	if !entity.IsValidRole(fields.Role) {
		return nil, apperror.New(http.StatusBadRequest, "invalid role", apperror.ErrInvalidInput)
	}
	if len(fields.Password) < minPasswordLength {
		return nil, ErrPasswordTooShort
	}

	exists, err := s.repo.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(fields.Password), passwordCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	name := fields.Name
	if name == "" {
		name = displayName("", email)
	}

	user := &entity.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         fields.Role,
		Approved:     entity.DefaultApproval(fields.Role),
	}

	switch fields.Role {
	case entity.RoleStudent:
		student := &entity.StudentProfile{
			Branch: fields.Branch,
			Phone:  fields.Phone,
		}
		if join, ok := AdmissionYear(email); ok {
			study := YearOfStudy(join, s.now())
			student.YearOfJoin = &join
			student.YearOfStudy = &study
		}
		user.Student = student
	case entity.RoleAdmin:
		user.Club = &entity.ClubProfile{
			ClubName:  fields.ClubName,
			Category:  fields.Category,
			President: fields.President,
			Vice:      fields.Vice,
			Phone:     fields.Phone,
		}
	}

	if err := s.repo.Create(ctx, user); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	s.invalidateStats(ctx)

	user.PasswordHash = ""
	return user, nil
}

func (s *authService) Login(ctx context.Context, input dto.LoginInput) (*dto.AuthResponse, error) {
	user, err := s.repo.FindByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !user.HasPassword() {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.buildAuthResponse(user)
}

// LinkOrCreateExternalAccount resolves an external identity by external id,
// then by email (linking the id), and only then creates a new student.
func (s *authService) LinkOrCreateExternalAccount(ctx context.Context, profile dto.ExternalProfile) (*entity.User, error) {
	if profile.ExternalID == "" {
		return nil, apperror.New(http.StatusBadRequest, "external id is required", apperror.ErrInvalidInput)
	}

	user, err := s.repo.FindByGoogleID(ctx, profile.ExternalID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	email := entity.NormalizeEmail(profile.Email)
	if email == "" {
		return nil, apperror.New(http.StatusBadRequest, "identity provider did not share an email", apperror.ErrInvalidInput)
	}
	// Linking and creating both trust the email, so it has to be proven.
	if !profile.EmailVerified {
		return nil, ErrEmailUnverified
	}

	var picture *string
	if profile.PictureURL != "" {
		picture = &profile.PictureURL
	}

	user, err = s.repo.FindByEmail(ctx, email)
	if err == nil {
		if err := s.repo.LinkGoogle(ctx, user.ID, profile.ExternalID, picture); err != nil {
			return nil, err
		}
		user.GoogleID = &profile.ExternalID
		if picture != nil {
			user.ProfilePic = picture
		}
		return user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	googleID := profile.ExternalID
	user = &entity.User{
		Name:       displayName(profile.Name, email),
		Email:      email,
		GoogleID:   &googleID,
		ProfilePic: picture,
		Role:       entity.RoleStudent,
		Approved:   true,
		Student:    &entity.StudentProfile{},
	}
	if join, ok := AdmissionYear(email); ok {
		study := YearOfStudy(join, s.now())
		user.Student.YearOfJoin = &join
		user.Student.YearOfStudy = &study
	}

	if err := s.repo.Create(ctx, user); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, apperror.New(http.StatusConflict, "account was linked concurrently, try again", apperror.ErrConflict)
		}
		return nil, err
	}
	s.invalidateStats(ctx)

	return user, nil
}

func (s *authService) GoogleLoginURL(state string) (string, error) {
	if s.provider == nil {
		return "", ErrGoogleNotConfigured
	}
	return s.provider.AuthCodeURL(state), nil
}

func (s *authService) GoogleCallback(ctx context.Context, code string) (*dto.AuthResponse, error) {
	if s.provider == nil {
		return nil, ErrGoogleNotConfigured
	}

	profile, err := s.provider.FetchProfile(ctx, code)
	if err != nil {
		return nil, apperror.New(http.StatusBadGateway, "google sign-in failed", err)
	}

	user, err := s.LinkOrCreateExternalAccount(ctx, *profile)
	if err != nil {
		return nil, err
	}

	return s.buildAuthResponse(user)
}

func (s *authService) SetApproved(ctx context.Context, userID uuid.UUID, approved bool) (*entity.User, error) {
	affected, err := s.repo.SetApproved(ctx, userID, approved)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, fmt.Errorf("user: %w", apperror.ErrNotFound)
	}
	s.invalidateStats(ctx)

	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user: %w", apperror.ErrNotFound)
		}
		return nil, err
	}

	user.PasswordHash = ""
	return user, nil
}

func (s *authService) invalidateStats(ctx context.Context) {
	if s.stats != nil {
		s.stats.Invalidate(ctx)
	}
}

// buildAuthResponse applies the approval gate shared by every sign-in path.
func (s *authService) buildAuthResponse(user *entity.User) (*dto.AuthResponse, error) {
	if user.Role == entity.RoleAdmin && !user.Approved {
		return nil, ErrPendingApproval
	}

	signed, expiresAt, err := s.tokens.Issue(user.ID.String(), user.Role, user.Name)
	if err != nil {
		return nil, err
	}

	user.PasswordHash = ""

	return &dto.AuthResponse{
		Token:     signed,
		TokenType: "Bearer",
		ExpiresAt: expiresAt,
		User:      user,
	}, nil
}

// AdmissionYear reads the cohort year out of an institutional address such
// as jd.20221234@learner.manipal.edu: the first four digits of the first run
// of at least four digits in the local part.
func AdmissionYear(email string) (int, bool) {
	local, _, _ := strings.Cut(email, "@")

	digits := digitRun.FindString(local)
	if digits == "" {
		return 0, false
	}

	year, err := strconv.Atoi(digits[:4])
	if err != nil || year < 1900 || year > 2100 {
		return 0, false
	}
	return year, true
}

// YearOfStudy counts academic years since joining. The academic year rolls
// over in July.
func YearOfStudy(yearOfJoin int, now time.Time) int {
	academicYear := now.Year()
	if now.Month() >= time.July {
		academicYear++
	}
	if study := academicYear - yearOfJoin; study > 1 {
		return study
	}
	return 1
}
