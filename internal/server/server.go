package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"anoa.com/cluverse/internal/config"
	"anoa.com/cluverse/internal/entity"
	"anoa.com/cluverse/internal/middleware"
	"anoa.com/cluverse/pkg/mailer"
	"anoa.com/cluverse/pkg/qrcode"
	"anoa.com/cluverse/pkg/ratelimiter"
	"anoa.com/cluverse/pkg/storage"
	"anoa.com/cluverse/pkg/token"
	"anoa.com/cluverse/pkg/validator"

	adminHttp "anoa.com/cluverse/internal/modules/admin/delivery/http"
	adminService "anoa.com/cluverse/internal/modules/admin/service"

	eventHttp "anoa.com/cluverse/internal/modules/event/delivery/http"
	eventRepo "anoa.com/cluverse/internal/modules/event/repository"
	eventService "anoa.com/cluverse/internal/modules/event/service"

	otpRepo "anoa.com/cluverse/internal/modules/otp/repository"
	otpService "anoa.com/cluverse/internal/modules/otp/service"

	profileHttp "anoa.com/cluverse/internal/modules/profile/delivery/http"
	profileService "anoa.com/cluverse/internal/modules/profile/service"

	registrationHttp "anoa.com/cluverse/internal/modules/registration/delivery/http"
	registrationRepo "anoa.com/cluverse/internal/modules/registration/repository"
	registrationService "anoa.com/cluverse/internal/modules/registration/service"

	searchService "anoa.com/cluverse/internal/modules/search/service"

	statHttp "anoa.com/cluverse/internal/modules/stat/delivery/http"
	statService "anoa.com/cluverse/internal/modules/stat/service"

	userHttp "anoa.com/cluverse/internal/modules/user/delivery/http"
	userRepo "anoa.com/cluverse/internal/modules/user/repository"
	userService "anoa.com/cluverse/internal/modules/user/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/meilisearch/meilisearch-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const otpPurgeInterval = time.Hour

type Server struct {
	engine      *gin.Engine
	cfg         *config.Config
	db          *gorm.DB
	redisClient *redis.Client
	otp         otpService.Service
}

// Options lets callers swap out external services. Zero values build them
// from the config.
type Options struct {
	Mailer       mailer.Mailer
	ImageStorage storage.ImageStorage
	EventIndex   searchService.EventIndex
}

func NewServer(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	return NewServerWithOptions(cfg, db, redisClient, Options{})
}

func NewServerWithOptions(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, opts Options) (*Server, error) {
	if err := validator.Register(); err != nil {
		return nil, fmt.Errorf("register validators: %w", err)
	}

	mail := opts.Mailer
	if mail == nil {
		var err error
		mail, err = mailer.New(mailer.Options{
			Provider: cfg.MailProvider,
			Host:     cfg.MailHost,
			Port:     cfg.MailPort,
			Secure:   cfg.MailSecure,
			Username: cfg.MailUser,
			Password: cfg.MailPass,
			FromName: "Cluverse",
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize mailer: %w", err)
		}
	}

	imageStorage := opts.ImageStorage
	if imageStorage == nil {
		s, err := storage.NewCloudinaryStorage(cfg.CloudinaryURL, cfg.CloudinaryCloudName, cfg.CloudinaryUploadFolder)
		switch {
		case errors.Is(err, storage.ErrNotConfigured):
			log.Println("⚠️  CLOUDINARY_URL not set, image uploads disabled")
		case err != nil:
			return nil, err
		default:
			imageStorage = s
		}
	}

	eventIndex := opts.EventIndex
	if eventIndex == nil && cfg.MeiliSearchHost != "" {
		meiliHost := cfg.MeiliSearchHost
		if !strings.HasPrefix(meiliHost, "http") {
			meiliHost = "http://" + meiliHost + ":7700"
		}
		meiliClient := meilisearch.New(meiliHost, meilisearch.WithAPIKey(cfg.MeiliMasterKey))
		eventIndex = searchService.NewMeiliSearchService(meiliClient)
	}

	tokens := token.NewManager(cfg.JWTSecret, cfg.JWTTTL)
	limiter := ratelimiter.New(redisClient)

	userRepository := userRepo.NewUserRepository(db)
	eventRepository := eventRepo.NewRepository(db)
	registrationRepository := registrationRepo.NewRepository(db)

	statSvc := statService.NewStatService(userRepository, eventRepository, registrationRepository, redisClient, cfg.StatsCacheTTL)
	statHandler := statHttp.NewStatHandler(statSvc)

	otpSvc := otpService.NewService(otpRepo.NewRepository(db), mail, limiter, cfg)

	authSvc := userService.NewAuthService(userRepository, otpSvc, tokens, userService.NewGoogleProvider(cfg), statSvc)
	authHandler := userHttp.NewAuthHandler(authSvc, cfg.FrontendURL, !cfg.IsDevelopment())

	eventSvc := eventService.NewService(eventRepository, eventIndex, imageStorage, statSvc)
	eventHandler := eventHttp.NewEventHandler(eventSvc)

	registrationSvc := registrationService.NewService(registrationRepository, eventRepository, qrcode.NewPNGRenderer(), statSvc)
	registrationHandler := registrationHttp.NewRegistrationHandler(registrationSvc)

	profileSvc := profileService.NewProfileService(userRepository, registrationRepository, imageStorage)
	profileHandler := profileHttp.NewProfileHandler(profileSvc)

	adminSvc := adminService.NewAdminService(userRepository, authSvc, eventSvc)
	adminHandler := adminHttp.NewAdminHandler(adminSvc)

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	setupCORS(router, cfg.AllowedOrigins)

	router.Use(gin.Recovery())
	router.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/api/health"},
	}))

	authMiddleware := middleware.NewAuthMiddleware(tokens)
	staff := authMiddleware.RequireRoles(entity.RoleAdmin, entity.RoleBoss)
	clubOnly := authMiddleware.RequireRoles(entity.RoleAdmin)
	bossOnly := authMiddleware.RequireRoles(entity.RoleBoss)

	api := router.Group("/api")

	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().UTC()})
	})

	// Public routes (no auth required)
	auth := api.Group("/auth")
	{
		auth.POST("/request-otp", authHandler.RequestOTP)
		auth.POST("/signup", authHandler.Signup)
		auth.POST("/login", authHandler.Login)
		auth.GET("/google", authHandler.GoogleLogin)
		auth.GET("/google/callback", authHandler.GoogleCallback)
	}

	events := api.Group("/events")
	{
		events.GET("", authMiddleware.OptionalAuth(), eventHandler.GetEvents)
		events.GET("/search", eventHandler.SearchEvents)
		events.GET("/pending-requests/all", authMiddleware.RequireAuth(), bossOnly, eventHandler.GetPendingEvents)
		events.GET("/:id", authMiddleware.OptionalAuth(), eventHandler.GetEvent)
		events.POST("", authMiddleware.RequireAuth(), clubOnly, eventHandler.CreateEvent)
		events.PUT("/:id", authMiddleware.RequireAuth(), clubOnly, eventHandler.UpdateEvent)
		events.POST("/:id/image", authMiddleware.RequireAuth(), clubOnly, eventHandler.UploadImage)
		events.POST("/:id/action", authMiddleware.RequireAuth(), bossOnly, eventHandler.ActOnEvent)
	}

	// Protected routes (apply auth middleware explicitly)
	protected := api.Group("")
	protected.Use(authMiddleware.RequireAuth())
	{
		registrations := protected.Group("/registrations")
		{
			registrations.GET("/mine", registrationHandler.ListMine)
			registrations.GET("/event/:id", staff, registrationHandler.ListForEvent)
			registrations.GET("/:id", registrationHandler.Get)
			registrations.POST("/scan", staff, registrationHandler.Scan)
			registrations.POST("/checkin/:id", staff, registrationHandler.CheckIn)
			registrations.POST("/:id/checkin", staff, registrationHandler.CheckIn)
			registrations.POST("/:id", authMiddleware.RequireRoles(entity.RoleStudent), registrationHandler.Register)
		}

		protected.GET("/profile", profileHandler.GetCurrentProfile)
		protected.PUT("/profile", profileHandler.UpdateProfile)
		protected.PUT("/profile/password", profileHandler.ChangePassword)

		adminGroup := protected.Group("/admin")
		{
			adminGroup.GET("/stats", staff, statHandler.GetStats)
			adminGroup.GET("/pending-clubs", bossOnly, adminHandler.GetPendingClubs)
			adminGroup.POST("/approve-user/:id", bossOnly, adminHandler.ApproveUser)
			adminGroup.GET("/users", bossOnly, adminHandler.GetAllUsers)
			adminGroup.GET("/pending-events", bossOnly, adminHandler.GetPendingEvents)
			adminGroup.POST("/event-action/:id", bossOnly, adminHandler.ActOnEvent)
		}
	}

	return &Server{
		engine:      router,
		cfg:         cfg,
		db:          db,
		redisClient: redisClient,
		otp:         otpSvc,
	}, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// StartBackgroundJobs runs the periodic maintenance loops until ctx is done.
func (s *Server) StartBackgroundJobs(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(otpPurgeInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.purgeExpiredCodes(ctx)
			}
		}
	}()
}

func (s *Server) purgeExpiredCodes(ctx context.Context) {
	log.Println("🧹 Purging expired verification codes...")
	removed, err := s.otp.Purge(ctx)
	if err != nil {
		log.Printf("❌ Error purging verification codes: %v", err)
		return
	}
	log.Printf("✅ Removed %d expired verification codes.", removed)
}

func (s *Server) Run(addr string) error {
	return s.engine.Run(addr)
}

func setupCORS(router *gin.Engine, origins []string) {
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
}
