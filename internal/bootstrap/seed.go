package bootstrap

import (
	"errors"
	"log"

	"anoa.com/cluverse/internal/config"
	"anoa.com/cluverse/internal/entity"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&entity.User{},
		&entity.StudentProfile{},
		&entity.ClubProfile{},
		&entity.OneTimeCode{},
		&entity.Event{},
		&entity.EventTag{},
		&entity.Registration{},
	)
}

// SeedBoss provisions the oversight account. Bosses never sign up through
// the public flow, so without BOSS_EMAIL and BOSS_PASSWORD nobody can
// approve clubs or events.
func SeedBoss(db *gorm.DB, cfg *config.Config) error {
	if cfg.BossEmail == "" || cfg.BossPassword == "" {
		log.Println("⚠️  BOSS_EMAIL/BOSS_PASSWORD not set, skipping boss seed")
		return nil
	}
	if len(cfg.BossPassword) < 8 {
		return errors.New("BOSS_PASSWORD must be at least 8 characters")
	}

	email := entity.NormalizeEmail(cfg.BossEmail)

	var count int64
	if err := db.Model(&entity.User{}).
		Where("email = ?", email).
		Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		log.Println("Boss user already exists, skipping seed")
		return nil
	}

	hashedPasswordBytes, err := bcrypt.GenerateFromPassword([]byte(cfg.BossPassword), 12)
	if err != nil {
		return err
	}

	name := cfg.BossName
	if name == "" {
		name = "Student Welfare"
	}

	boss := entity.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hashedPasswordBytes),
		Role:         entity.RoleBoss,
		Approved:     true,
	}

	if err := db.Create(&boss).Error; err != nil {
		return err
	}

	log.Println("✅ Boss user seeded successfully")
	log.Printf("   Email: %s", email)

	return nil
}
