package service

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"anoa.com/cluverse/internal/entity"
	"anoa.com/cluverse/internal/modules/user/repository"
	"github.com/redis/go-redis/v9"
)

const statsCacheKey = "stats:dashboard"

// Stats is the dashboard summary shown to club admins and the boss.
type Stats struct {
	TotalEvents        int64     `json:"total_events"`
	TotalRegistrations int64     `json:"total_registrations"`
	TotalUsers         int64     `json:"total_users"`
	PendingEvents      int64     `json:"pending_events"`
	PendingClubs       int64     `json:"pending_clubs"`
	GeneratedAt        time.Time `json:"generated_at"`
}

type EventCounter interface {
	Count(ctx context.Context, status string) (int64, error)
}

type RegistrationCounter interface {
	Count(ctx context.Context, checkedIn *bool) (int64, error)
}

type StatService interface {
	GetStats(ctx context.Context) (*Stats, error)
	Invalidate(ctx context.Context)
}

type statService struct {
	userRepo      repository.UserRepository
	events        EventCounter
	registrations RegistrationCounter
	redisClient   *redis.Client
	ttl           time.Duration
	now           func() time.Time
}

// NewStatService caches the summary in redis for ttl. A nil client or a
// non-positive ttl computes it on every call.
func NewStatService(userRepo repository.UserRepository, events EventCounter, registrations RegistrationCounter, redisClient *redis.Client, ttl time.Duration) StatService {
	return &statService{
		userRepo:      userRepo,
		events:        events,
		registrations: registrations,
		redisClient:   redisClient,
		ttl:           ttl,
		now:           time.Now,
	}
}

func (s *statService) GetStats(ctx context.Context) (*Stats, error) {
	if cached := s.cached(ctx); cached != nil {
		return cached, nil
	}

	stats, err := s.compute(ctx)
	if err != nil {
		return nil, err
	}

	if s.cacheEnabled() {
		if raw, err := json.Marshal(stats); err == nil {
			if err := s.redisClient.Set(ctx, statsCacheKey, raw, s.ttl).Err(); err != nil {
				log.Printf("Failed to cache stats: %v", err)
			}
		}
	}

	return stats, nil
}

func (s *statService) Invalidate(ctx context.Context) {
	if !s.cacheEnabled() {
		return
	}
	if err := s.redisClient.Del(ctx, statsCacheKey).Err(); err != nil {
		log.Printf("Failed to invalidate stats cache: %v", err)
	}
}

func (s *statService) compute(ctx context.Context) (*Stats, error) {
	var (
		stats = &Stats{GeneratedAt: s.now().UTC()}
		err   error
	)

	if stats.TotalEvents, err = s.events.Count(ctx, ""); err != nil {
		return nil, err
	}
	if stats.PendingEvents, err = s.events.Count(ctx, entity.EventStatusPending); err != nil {
		return nil, err
	}
	if stats.TotalRegistrations, err = s.registrations.Count(ctx, nil); err != nil {
		return nil, err
	}
	if stats.TotalUsers, err = s.userRepo.Count(ctx, repository.UserFilter{}); err != nil {
		return nil, err
	}

	unapproved := false
	if stats.PendingClubs, err = s.userRepo.Count(ctx, repository.UserFilter{Role: entity.RoleAdmin, Approved: &unapproved}); err != nil {
		return nil, err
	}

	return stats, nil
}

func (s *statService) cached(ctx context.Context) *Stats {
	if !s.cacheEnabled() {
		return nil
	}

	raw, err := s.redisClient.Get(ctx, statsCacheKey).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Printf("Failed to read stats cache: %v", err)
		}
		return nil
	}

	var stats Stats
	if err := json.Unmarshal(raw, &stats); err != nil {
		return nil
	}
	return &stats
}

func (s *statService) cacheEnabled() bool {
	return s.redisClient != nil && s.ttl > 0
}
