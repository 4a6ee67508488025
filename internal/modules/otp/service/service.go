package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"math/big"
	"net/http"
	"regexp"
	"time"

	"anoa.com/cluverse/internal/config"
	"anoa.com/cluverse/internal/entity"
	"anoa.com/cluverse/internal/modules/otp/repository"
	"anoa.com/cluverse/pkg/apperror"
	"anoa.com/cluverse/pkg/mailer"
	"anoa.com/cluverse/pkg/ratelimiter"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrNotRequested = apperror.WithKind("otp_not_requested", "OTP not requested", apperror.ErrInvalidInput)
	ErrExpired      = apperror.WithKind("otp_expired", "OTP expired", apperror.ErrInvalidInput)
	ErrMismatch     = apperror.WithKind("otp_mismatch", "OTP wrong", apperror.ErrInvalidInput)
)

const requestScope = "otp_request"

type Service interface {
	CheckEmail(email, role string) error
	RequestCode(ctx context.Context, email, role string) error
	VerifyAndConsume(ctx context.Context, email, code string) error
	Purge(ctx context.Context) (int64, error)
}

type service struct {
	repo        repository.Repository
	mailer      mailer.Mailer
	limiter     *ratelimiter.Limiter
	bypass      bool
	ttl         time.Duration
	cooldown    time.Duration
	mailTimeout time.Duration
	domain      string
	studentMail *regexp.Regexp
	now         func() time.Time
	generate    func() (string, error)
}

func NewService(repo repository.Repository, m mailer.Mailer, limiter *ratelimiter.Limiter, cfg *config.Config) Service {
	return newService(repo, m, limiter, cfg)
}

func newService(repo repository.Repository, m mailer.Mailer, limiter *ratelimiter.Limiter, cfg *config.Config) *service {
	ttl := cfg.OTPTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	mailTimeout := cfg.MailTimeout
	if mailTimeout <= 0 {
		mailTimeout = 10 * time.Second
	}
	domain := cfg.StudentEmailDomain
	if domain == "" {
		domain = "learner.manipal.edu"
	}

	return &service{
		repo:        repo,
		mailer:      m,
		limiter:     limiter,
		bypass:      cfg.DevSkipOTP,
		ttl:         ttl,
		cooldown:    cfg.OTPRequestCooldown,
		mailTimeout: mailTimeout,
		domain:      domain,
		studentMail: regexp.MustCompile(`(?i)^[\w.+-]+@` + regexp.QuoteMeta(domain) + `$`),
		now:         time.Now,
		generate:    generateCode,
	}
}

// CheckEmail applies the address rules for role. Students must use the
// institutional domain. It runs even when code delivery is bypassed.
func (s *service) CheckEmail(email, role string) error {
	email = entity.NormalizeEmail(email)
	if email == "" {
		return apperror.New(http.StatusBadRequest, "email is required", apperror.ErrInvalidInput)
	}
	if role == entity.RoleStudent && !s.studentMail.MatchString(email) {
		return apperror.New(http.StatusBadRequest, fmt.Sprintf("student email must be @%s", s.domain), apperror.ErrInvalidInput)
	}
	return nil
}

func (s *service) RequestCode(ctx context.Context, email, role string) error {
	if err := s.CheckEmail(email, role); err != nil {
		return err
	}
	email = entity.NormalizeEmail(email)

	if s.bypass {
		return nil
	}

	if err := s.limiter.Acquire(ctx, requestScope, email, s.cooldown); err != nil {
		return err
	}

	code, err := s.generate()
	if err != nil {
		_ = s.limiter.Release(ctx, requestScope, email)
		return fmt.Errorf("generate otp: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		_ = s.limiter.Release(ctx, requestScope, email)
		return fmt.Errorf("hash otp: %w", err)
	}

	record := &entity.OneTimeCode{
		Email:     email,
		CodeHash:  string(hash),
		ExpiresAt: s.now().Add(s.ttl),
	}
	if err := s.repo.Replace(ctx, record); err != nil {
		_ = s.limiter.Release(ctx, requestScope, email)
		return fmt.Errorf("store otp: %w", err)
	}

	mailer.Dispatch(s.mailer, s.mailTimeout, email, "Your Cluverse verification code", otpBody(code, s.ttl))

	return nil
}

// VerifyAndConsume checks code against the live record for email and
// deletes every code for the email on success. Only one caller can consume
// a given code.
func (s *service) VerifyAndConsume(ctx context.Context, email, code string) error {
	if s.bypass {
		return nil
	}

	email = entity.NormalizeEmail(email)

	record, err := s.repo.FindLatest(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotRequested
		}
		return err
	}

	if record.ExpiredAt(s.now()) {
		return ErrExpired
	}

	if err := bcrypt.CompareHashAndPassword([]byte(record.CodeHash), []byte(code)); err != nil {
		return ErrMismatch
	}

	deleted, err := s.repo.DeleteByEmail(ctx, email)
	if err != nil {
		return err
	}
	if deleted == 0 {
		return ErrNotRequested
	}

	return nil
}

func (s *service) Purge(ctx context.Context) (int64, error) {
	n, err := s.repo.DeleteExpired(ctx, s.now())
	if err != nil {
		log.Printf("Failed to purge expired OTPs: %v", err)
		return 0, err
	}
	return n, nil
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func otpBody(code string, ttl time.Duration) string {
	return fmt.Sprintf("Your verification code is %s.\n\nIt expires in %d minutes. If you did not request it, ignore this email.", code, int(ttl.Minutes()))
}
