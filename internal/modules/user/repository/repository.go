package repository

import (
	"context"

	"anoa.com/cluverse/internal/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserFilter struct {
	Role     string
	Approved *bool
}

type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error)
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	FindByGoogleID(ctx context.Context, googleID string) (*entity.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	LinkGoogle(ctx context.Context, id uuid.UUID, googleID string, picture *string) error
	SetApproved(ctx context.Context, id uuid.UUID, approved bool) (int64, error)
	UpdateProfile(ctx context.Context, user *entity.User) error
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	FindAll(ctx context.Context, filter UserFilter) ([]*entity.User, error)
	Count(ctx context.Context, filter UserFilter) (int64, error)
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// Create inserts the user together with its role profile.
func (r *userRepository) Create(ctx context.Context, user *entity.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	var user entity.User
	if err := r.db.WithContext(ctx).
		Preload("Student").
		Preload("Club").
		Where("id = ?", id).
		First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	var user entity.User
	if err := r.db.WithContext(ctx).
		Preload("Student").
		Preload("Club").
		Where("email = ?", entity.NormalizeEmail(email)).
		First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByGoogleID(ctx context.Context, googleID string) (*entity.User, error) {
	var user entity.User
	if err := r.db.WithContext(ctx).
		Preload("Student").
		Preload("Club").
		Where("google_id = ?", googleID).
		First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&entity.User{}).
		Where("email = ?", entity.NormalizeEmail(email)).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *userRepository) LinkGoogle(ctx context.Context, id uuid.UUID, googleID string, picture *string) error {
	updates := map[string]interface{}{"google_id": googleID}
	if picture != nil {
		updates["profile_pic"] = *picture
	}
	return r.db.WithContext(ctx).
		Model(&entity.User{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *userRepository) SetApproved(ctx context.Context, id uuid.UUID, approved bool) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&entity.User{}).
		Where("id = ?", id).
		Update("approved", approved)
	return res.RowsAffected, res.Error
}

// UpdateProfile saves the editable profile fields of user and its role
// profile.
func (r *userRepository) UpdateProfile(ctx context.Context, user *entity.User) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&entity.User{}).
			Where("id = ?", user.ID).
			Updates(map[string]interface{}{
				"bio":         user.Bio,
				"profile_pic": user.ProfilePic,
			}).Error; err != nil {
			return err
		}

		if user.Student != nil {
			if err := tx.Model(&entity.StudentProfile{}).
				Where("user_id = ?", user.ID).
				Updates(map[string]interface{}{
					"phone":  user.Student.Phone,
					"branch": user.Student.Branch,
				}).Error; err != nil {
				return err
			}
		}

		if user.Club != nil {
			if err := tx.Model(&entity.ClubProfile{}).
				Where("user_id = ?", user.ID).
				Update("phone", user.Club.Phone).Error; err != nil {
				return err
			}
		}

		return nil
	})
}

func (r *userRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	return r.db.WithContext(ctx).
		Model(&entity.User{}).
		Where("id = ?", id).
		Update("password_hash", passwordHash).Error
}

func (r *userRepository) FindAll(ctx context.Context, filter UserFilter) ([]*entity.User, error) {
	var users []*entity.User
	if err := r.filtered(ctx, filter).
		Preload("Student").
		Preload("Club").
		Order("created_at DESC").
		Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (r *userRepository) Count(ctx context.Context, filter UserFilter) (int64, error) {
	var count int64
	if err := r.filtered(ctx, filter).Model(&entity.User{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *userRepository) filtered(ctx context.Context, filter UserFilter) *gorm.DB {
	query := r.db.WithContext(ctx)
	if filter.Role != "" {
		query = query.Where("role = ?", filter.Role)
	}
	if filter.Approved != nil {
		query = query.Where("approved = ?", *filter.Approved)
	}
	return query
}
