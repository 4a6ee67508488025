package repository

import (
	"context"
	"time"

	"anoa.com/cluverse/internal/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, reg *entity.Registration) error
	Exists(ctx context.Context, eventID, userID uuid.UUID) (bool, error)
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Registration, error)
	MarkCheckedIn(ctx context.Context, id uuid.UUID, at time.Time) (int64, error)
	FindByUser(ctx context.Context, userID uuid.UUID) ([]*entity.Registration, error)
	FindByEvent(ctx context.Context, eventID uuid.UUID) ([]*entity.Registration, error)
	Count(ctx context.Context, checkedIn *bool) (int64, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, reg *entity.Registration) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Omit("Event", "User").Create(reg).Error
	})
}

func (r *repository) Exists(ctx context.Context, eventID, userID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&entity.Registration{}).
		Where("event_id = ? AND user_id = ?", eventID, userID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Registration, error) {
	var reg entity.Registration
	if err := r.db.WithContext(ctx).
		Preload("Event").
		Preload("User").
		Where("id = ?", id).
		First(&reg).Error; err != nil {
		return nil, err
	}
	return &reg, nil
}

// MarkCheckedIn flips the flag only while it is still false, so concurrent
// scanners cannot both succeed.
func (r *repository) MarkCheckedIn(ctx context.Context, id uuid.UUID, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&entity.Registration{}).
		Where("id = ? AND checked_in = ?", id, false).
		Updates(map[string]interface{}{
			"checked_in":    true,
			"checked_in_at": at,
			"status":        entity.RegistrationStatusCheckedIn,
		})
	return res.RowsAffected, res.Error
}

func (r *repository) FindByUser(ctx context.Context, userID uuid.UUID) ([]*entity.Registration, error) {
	var regs []*entity.Registration
	if err := r.db.WithContext(ctx).
		Preload("Event").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&regs).Error; err != nil {
		return nil, err
	}
	return regs, nil
}

func (r *repository) FindByEvent(ctx context.Context, eventID uuid.UUID) ([]*entity.Registration, error) {
	var regs []*entity.Registration
	if err := r.db.WithContext(ctx).
		Preload("User").
		Where("event_id = ?", eventID).
		Order("created_at ASC").
		Find(&regs).Error; err != nil {
		return nil, err
	}
	return regs, nil
}

func (r *repository) Count(ctx context.Context, checkedIn *bool) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&entity.Registration{})
	if checkedIn != nil {
		query = query.Where("checked_in = ?", *checkedIn)
	}
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
