package service

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"anoa.com/cluverse/internal/config"
	"anoa.com/cluverse/internal/entity"
	otpRepo "anoa.com/cluverse/internal/modules/otp/repository"
	otp "anoa.com/cluverse/internal/modules/otp/service"
	"anoa.com/cluverse/internal/modules/user/dto"
	"anoa.com/cluverse/internal/modules/user/repository"
	"anoa.com/cluverse/internal/testutil"
	"anoa.com/cluverse/pkg/apperror"
	"anoa.com/cluverse/pkg/token"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var codePattern = regexp.MustCompile(`\b\d{6}\b`)

type stubOTP struct {
	err      error
	verified []string
}

func (s *stubOTP) CheckEmail(string, string) error { return nil }

func (s *stubOTP) RequestCode(context.Context, string, string) error { return nil }

func (s *stubOTP) VerifyAndConsume(_ context.Context, email, _ string) error {
	s.verified = append(s.verified, email)
	return s.err
}

func (s *stubOTP) Purge(context.Context) (int64, error) { return 0, nil }

type stubProvider struct {
	profile *dto.ExternalProfile
	err     error
}

func (p *stubProvider) AuthCodeURL(state string) string {
	return "https://accounts.example.com/auth?state=" + state
}

func (p *stubProvider) FetchProfile(context.Context, string) (*dto.ExternalProfile, error) {
	return p.profile, p.err
}

type statsCounter struct {
	calls int
}

func (c *statsCounter) Invalidate(context.Context) { c.calls++ }

func newTestService(t *testing.T, otpService otp.Service, provider IdentityProvider) (*authService, *gorm.DB) {
	t.Helper()

	db := testutil.NewDB(t)
	svc := newAuthService(repository.NewUserRepository(db), otpService, token.NewManager("test-secret", 7*24*time.Hour), provider, nil)
	svc.now = func() time.Time { return time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC) }
	return svc, db
}

func TestAdmissionYear(t *testing.T) {
	tests := []struct {
		email string
		year  int
		ok    bool
	}{
		{"jd.20221234@learner.manipal.edu", 2022, true},
		{"jd2019@learner.manipal.edu", 2019, true},
		{"a12.b2023x@learner.manipal.edu", 2023, true},
		{"jd.123@learner.manipal.edu", 0, false},
		{"jd.12345678@learner.manipal.edu", 0, false},
		{"nodigits@learner.manipal.edu", 0, false},
		{"jd@2022.edu", 0, false},
	}

	for _, tt := range tests {
		year, ok := AdmissionYear(tt.email)
		assert.Equal(t, tt.ok, ok, tt.email)
		assert.Equal(t, tt.year, year, tt.email)
	}
}

func TestYearOfStudy(t *testing.T) {
	assert.Equal(t, 3, YearOfStudy(2022, time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 4, YearOfStudy(2022, time.Date(2025, time.September, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 4, YearOfStudy(2022, time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 1, YearOfStudy(2025, time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 1, YearOfStudy(2030, time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)))
}

func TestSignup_StudentDerivesCohort(t *testing.T) {
	stub := &stubOTP{}
	svc, db := newTestService(t, stub, nil)

	user, err := svc.Signup(context.Background(), dto.SignupInput{
		Email:    " JD.20221234@learner.manipal.edu",
		OTP:      "123456",
		Password: "password1",
		Role:     entity.RoleStudent,
		Name:     "J D",
		Branch:   "CSE",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"jd.20221234@learner.manipal.edu"}, stub.verified)
	assert.True(t, user.Approved)
	assert.Empty(t, user.PasswordHash)

	var stored entity.User
	require.NoError(t, db.Preload("Student").Where("email = ?", "jd.20221234@learner.manipal.edu").First(&stored).Error)
	require.NotNil(t, stored.Student)
	require.NotNil(t, stored.Student.YearOfJoin)
	assert.Equal(t, 2022, *stored.Student.YearOfJoin)
	assert.Equal(t, 3, *stored.Student.YearOfStudy)
	assert.Equal(t, "CSE", stored.Student.Branch)
	assert.NotEqual(t, "password1", stored.PasswordHash)
}

func TestSignup_AdminStartsUnapproved(t *testing.T) {
	svc, db := newTestService(t, &stubOTP{}, nil)

	user, err := svc.Signup(context.Background(), dto.SignupInput{
		Email:    "robotics@gmail.com",
		Password: "password1",
		Role:     entity.RoleAdmin,
		Name:     "Robotics",
		ClubName: "Robotics Club",
	})
	require.NoError(t, err)
	assert.False(t, user.Approved)

	var club entity.ClubProfile
	require.NoError(t, db.Where("user_id = ?", user.ID).First(&club).Error)
	assert.Equal(t, "Robotics Club", club.ClubName)
}

func TestSignup_Failures(t *testing.T) {
	ctx := context.Background()

	t.Run("duplicate email", func(t *testing.T) {
		stub := &stubOTP{}
		svc, db := newTestService(t, stub, nil)
		testutil.CreateUser(t, db, "taken@gmail.com", entity.RoleAdmin, false)

		_, err := svc.Signup(ctx, dto.SignupInput{Email: "Taken@gmail.com", Password: "password1", Role: entity.RoleAdmin})
		assert.ErrorIs(t, err, apperror.ErrConflict)
		assert.Empty(t, stub.verified)
	})

	t.Run("boss cannot self register", func(t *testing.T) {
		svc, _ := newTestService(t, &stubOTP{}, nil)
		_, err := svc.Signup(ctx, dto.SignupInput{Email: "b@x.edu", Password: "password1", Role: entity.RoleBoss})
		assert.ErrorIs(t, err, apperror.ErrInvalidInput)
	})

	t.Run("short password", func(t *testing.T) {
		stub := &stubOTP{}
		svc, _ := newTestService(t, stub, nil)
		_, err := svc.Signup(ctx, dto.SignupInput{Email: "a@x.edu", Password: "short", Role: entity.RoleAdmin})
		assert.ErrorIs(t, err, ErrPasswordTooShort)
		assert.Empty(t, stub.verified)
	})

	t.Run("otp failure", func(t *testing.T) {
		svc, db := newTestService(t, &stubOTP{err: otp.ErrMismatch}, nil)
		_, err := svc.Signup(ctx, dto.SignupInput{Email: "a@x.edu", Password: "password1", Role: entity.RoleAdmin})
		assert.ErrorIs(t, err, otp.ErrMismatch)

		var count int64
		require.NoError(t, db.Model(&entity.User{}).Count(&count).Error)
		assert.Zero(t, count)
	})
}

func TestSignupWithRealOTPStore(t *testing.T) {
	db := testutil.NewDB(t)
	otpService := otp.NewService(otpRepo.NewRepository(db), &testutil.Mailer{}, nil, &config.Config{})
	svc := newAuthService(repository.NewUserRepository(db), otpService, token.NewManager("s", time.Hour), nil, nil)

	_, err := svc.Signup(context.Background(), dto.SignupInput{Email: "a@x.edu", OTP: "123456", Password: "password1", Role: entity.RoleAdmin})
	assert.ErrorIs(t, err, otp.ErrNotRequested)
}

func TestSignup_StudentDomainIgnoresCodeRole(t *testing.T) {
	db := testutil.NewDB(t)
	mail := &testutil.Mailer{}
	cfg := &config.Config{StudentEmailDomain: "learner.manipal.edu", MailTimeout: time.Second}
	otpService := otp.NewService(otpRepo.NewRepository(db), mail, nil, cfg)
	svc := newAuthService(repository.NewUserRepository(db), otpService, token.NewManager("s", time.Hour), nil, nil)
	ctx := context.Background()

	email := "x@gmail.com"
	require.Error(t, svc.RequestOTP(ctx, dto.RequestOTPInput{Email: email, Role: entity.RoleStudent}))
	require.NoError(t, svc.RequestOTP(ctx, dto.RequestOTPInput{Email: email, Role: entity.RoleAdmin}))

	var code string
	require.Eventually(t, func() bool {
		for _, m := range mail.Sent() {
			if m.To == email {
				code = codePattern.FindString(m.Body)
			}
		}
		return code != ""
	}, 2*time.Second, 10*time.Millisecond)

	_, err := svc.Signup(ctx, dto.SignupInput{Email: email, OTP: code, Password: "password1", Role: entity.RoleStudent})
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)

	var count int64
	require.NoError(t, db.Model(&entity.User{}).Count(&count).Error)
	assert.Zero(t, count)

	user, err := svc.Signup(ctx, dto.SignupInput{Email: email, OTP: code, Password: "password1", Role: entity.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, entity.RoleAdmin, user.Role)
	assert.False(t, user.Approved)
}

func TestSignup_StudentDomainCheckedWithoutCodes(t *testing.T) {
	db := testutil.NewDB(t)
	otpService := otp.NewService(otpRepo.NewRepository(db), &testutil.Mailer{}, nil, &config.Config{DevSkipOTP: true})
	svc := newAuthService(repository.NewUserRepository(db), otpService, token.NewManager("s", time.Hour), nil, nil)
	ctx := context.Background()

	_, err := svc.Signup(ctx, dto.SignupInput{Email: "x@gmail.com", Password: "password1", Role: entity.RoleStudent})
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)

	user, err := svc.Signup(ctx, dto.SignupInput{Email: "jd.20221234@learner.manipal.edu", Password: "password1", Role: entity.RoleStudent})
	require.NoError(t, err)
	assert.True(t, user.Approved)
}

func TestLogin(t *testing.T) {
	svc, db := newTestService(t, &stubOTP{}, nil)
	ctx := context.Background()

	_, err := svc.CreateLocalAccount(ctx, dto.AccountFields{Email: "student@learner.manipal.edu", Password: "password1", Role: entity.RoleStudent, Name: "Stu"})
	require.NoError(t, err)
	admin, err := svc.CreateLocalAccount(ctx, dto.AccountFields{Email: "club@gmail.com", Password: "password1", Role: entity.RoleAdmin, Name: "Club"})
	require.NoError(t, err)

	res, err := svc.Login(ctx, dto.LoginInput{Email: "Student@learner.manipal.edu", Password: "password1"})
	require.NoError(t, err)
	claims, err := svc.tokens.Parse(res.Token)
	require.NoError(t, err)
	assert.Equal(t, entity.RoleStudent, claims.Role)
	assert.Equal(t, "Stu", claims.Name)

	_, err = svc.Login(ctx, dto.LoginInput{Email: "student@learner.manipal.edu", Password: "wrong-password"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Equal(t, 401, apperror.MapErrorToStatus(err))

	_, err = svc.Login(ctx, dto.LoginInput{Email: "nobody@gmail.com", Password: "password1"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, dto.LoginInput{Email: "club@gmail.com", Password: "password1"})
	assert.ErrorIs(t, err, ErrPendingApproval)
	assert.Equal(t, 403, apperror.MapErrorToStatus(err))

	_, err = svc.SetApproved(ctx, admin.ID, true)
	require.NoError(t, err)
	res, err = svc.Login(ctx, dto.LoginInput{Email: "club@gmail.com", Password: "password1"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)

	external := testutil.CreateUser(t, db, "google-only@gmail.com", entity.RoleStudent, true)
	_, err = svc.Login(ctx, dto.LoginInput{Email: external.Email, Password: ""})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLinkOrCreateExternalAccount_LookupOrder(t *testing.T) {
	svc, db := newTestService(t, &stubOTP{}, nil)
	ctx := context.Background()

	local, err := svc.CreateLocalAccount(ctx, dto.AccountFields{Email: "jd.20221234@learner.manipal.edu", Password: "password1", Role: entity.RoleStudent, Name: "JD"})
	require.NoError(t, err)

	linked, err := svc.LinkOrCreateExternalAccount(ctx, dto.ExternalProfile{ExternalID: "g-1", Email: "JD.20221234@learner.manipal.edu", EmailVerified: true, Name: "Other", PictureURL: "https://pic/1"})
	require.NoError(t, err)
	assert.Equal(t, local.ID, linked.ID)
	assert.Equal(t, "JD", linked.Name)

	again, err := svc.LinkOrCreateExternalAccount(ctx, dto.ExternalProfile{ExternalID: "g-1", Email: "changed@gmail.com"})
	require.NoError(t, err)
	assert.Equal(t, local.ID, again.ID)
	require.NotNil(t, again.ProfilePic)
	assert.Equal(t, "https://pic/1", *again.ProfilePic)

	created, err := svc.LinkOrCreateExternalAccount(ctx, dto.ExternalProfile{ExternalID: "g-2", Email: "new@gmail.com", EmailVerified: true})
	require.NoError(t, err)
	assert.NotEqual(t, local.ID, created.ID)
	assert.Equal(t, entity.RoleStudent, created.Role)
	assert.True(t, created.Approved)
	assert.Equal(t, "new", created.Name)

	var stored entity.User
	require.NoError(t, db.Where("id = ?", created.ID).First(&stored).Error)
	assert.False(t, stored.HasPassword())
}

func TestGoogleCallback_AppliesApprovalGate(t *testing.T) {
	provider := &stubProvider{profile: &dto.ExternalProfile{ExternalID: "g-9", Email: "club@gmail.com", EmailVerified: true, Name: "Club"}}
	svc, db := newTestService(t, &stubOTP{}, provider)
	ctx := context.Background()

	testutil.CreateUser(t, db, "club@gmail.com", entity.RoleAdmin, false)

	_, err := svc.GoogleCallback(ctx, "code")
	assert.ErrorIs(t, err, ErrPendingApproval)

	var stored entity.User
	require.NoError(t, db.Where("email = ?", "club@gmail.com").First(&stored).Error)
	require.NotNil(t, stored.GoogleID)
	assert.Equal(t, "g-9", *stored.GoogleID)
	assert.False(t, stored.Approved)

	provider.profile = &dto.ExternalProfile{ExternalID: "g-10", Email: "fresh@gmail.com", EmailVerified: true}
	res, err := svc.GoogleCallback(ctx, "code")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)

	provider.err = errors.New("boom")
	_, err = svc.GoogleCallback(ctx, "code")
	assert.Equal(t, 502, apperror.MapErrorToStatus(err))
}

func TestGoogleCallback_UnverifiedEmailCannotLink(t *testing.T) {
	provider := &stubProvider{profile: &dto.ExternalProfile{ExternalID: "g-evil", Email: "boss@manipal.edu", Name: "Boss"}}
	svc, db := newTestService(t, &stubOTP{}, provider)
	ctx := context.Background()

	testutil.CreateUser(t, db, "boss@manipal.edu", entity.RoleBoss, true)

	_, err := svc.GoogleCallback(ctx, "code")
	assert.ErrorIs(t, err, ErrEmailUnverified)
	assert.Equal(t, apperror.KindValidation, apperror.MapErrorToKind(err))

	var stored entity.User
	require.NoError(t, db.Where("email = ?", "boss@manipal.edu").First(&stored).Error)
	assert.Nil(t, stored.GoogleID)

	provider.profile = &dto.ExternalProfile{ExternalID: "g-new", Email: "someone@gmail.com"}
	_, err = svc.GoogleCallback(ctx, "code")
	assert.ErrorIs(t, err, ErrEmailUnverified)

	var count int64
	require.NoError(t, db.Model(&entity.User{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestAccountWritesInvalidateStats(t *testing.T) {
	svc, _ := newTestService(t, &stubOTP{}, nil)
	stats := &statsCounter{}
	svc.stats = stats
	ctx := context.Background()

	club, err := svc.Signup(ctx, dto.SignupInput{Email: "club@gmail.com", Password: "password1", Role: entity.RoleAdmin, ClubName: "Club"})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.calls)

	_, err = svc.SetApproved(ctx, club.ID, true)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.calls)

	_, err = svc.LinkOrCreateExternalAccount(ctx, dto.ExternalProfile{ExternalID: "g-1", Email: "new@gmail.com", EmailVerified: true})
	require.NoError(t, err)
	assert.Equal(t, 3, stats.calls)

	_, err = svc.SetApproved(ctx, uuid.New(), true)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	assert.Equal(t, 3, stats.calls)
}

func TestGoogleWithoutProvider(t *testing.T) {
	svc, _ := newTestService(t, &stubOTP{}, nil)

	_, err := svc.GoogleLoginURL("state")
	assert.ErrorIs(t, err, ErrGoogleNotConfigured)
	_, err = svc.GoogleCallback(context.Background(), "code")
	assert.ErrorIs(t, err, ErrGoogleNotConfigured)
}

func TestSetApproved_NotFound(t *testing.T) {
	svc, _ := newTestService(t, &stubOTP{}, nil)

	_, err := svc.SetApproved(context.Background(), uuid.New(), true)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}
