package repository

import (
	"context"
	"time"

	"anoa.com/cluverse/internal/entity"
	"gorm.io/gorm"
)

type Repository interface {
	// Replace drops every code stored for the email and inserts code, in one
	// transaction.
	Replace(ctx context.Context, code *entity.OneTimeCode) error
	FindLatest(ctx context.Context, email string) (*entity.OneTimeCode, error)
	DeleteByEmail(ctx context.Context, email string) (int64, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Replace(ctx context.Context, code *entity.OneTimeCode) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("email = ?", code.Email).Delete(&entity.OneTimeCode{}).Error; err != nil {
			return err
		}
		return tx.Create(code).Error
	})
}

func (r *repository) FindLatest(ctx context.Context, email string) (*entity.OneTimeCode, error) {
	var code entity.OneTimeCode
	if err := r.db.WithContext(ctx).
		Where("email = ?", email).
		Order("created_at DESC").
		First(&code).Error; err != nil {
		return nil, err
	}
	return &code, nil
}

func (r *repository) DeleteByEmail(ctx context.Context, email string) (int64, error) {
	res := r.db.WithContext(ctx).Where("email = ?", email).Delete(&entity.OneTimeCode{})
	return res.RowsAffected, res.Error
}

func (r *repository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&entity.OneTimeCode{})
	return res.RowsAffected, res.Error
}
