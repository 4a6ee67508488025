package repository

import (
	"context"
	"strings"

	"anoa.com/cluverse/internal/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Query is the storage-level view of an event listing.
type Query struct {
	AdminID *uuid.UUID
	Status  string
	Tag     string
	Tags    []string
	Search  string
	IDs     []uuid.UUID
	Offset  int
	Limit   int
}

type Repository interface {
	Create(ctx context.Context, event *entity.Event) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Event, error)
	Update(ctx context.Context, id uuid.UUID, fromStatus string, changes map[string]interface{}, tags *[]string) (int64, error)
	Transition(ctx context.Context, id uuid.UUID, from, to, feedback string) (int64, error)
	SetImage(ctx context.Context, id uuid.UUID, imageURL string) error
	FindAll(ctx context.Context, q Query) ([]*entity.Event, int64, error)
	Count(ctx context.Context, status string) (int64, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, event *entity.Event) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Event, error) {
	var event entity.Event
	if err := r.db.WithContext(ctx).
		Preload("Tags").
		Preload("Admin").
		Preload("Admin.Club").
		Where("id = ?", id).
		First(&event).Error; err != nil {
		return nil, err
	}
	return &event, nil
}

// Update writes changes to the event row only while it is still in
// fromStatus, and replaces its tags when tags is non-nil. It reports the
// number of event rows changed; tags are left alone when that is zero.
func (r *repository) Update(ctx context.Context, id uuid.UUID, fromStatus string, changes map[string]interface{}, tags *[]string) (int64, error) {
	var affected int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&entity.Event{}).
			Where("id = ? AND status = ?", id, fromStatus).
			Updates(changes)
		if res.Error != nil {
			return res.Error
		}
		affected = res.RowsAffected
		if affected == 0 || tags == nil {
			return nil
		}

		if err := tx.Where("event_id = ?", id).Delete(&entity.EventTag{}).Error; err != nil {
			return err
		}

		rows := make([]entity.EventTag, 0, len(*tags))
		for _, tag := range *tags {
			rows = append(rows, entity.EventTag{EventID: id, Tag: tag})
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.Create(&rows).Error
	})
	return affected, err
}

// Transition moves the event from one status to another only if it is still
// in the expected state. It reports the number of rows changed.
func (r *repository) Transition(ctx context.Context, id uuid.UUID, from, to, feedback string) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&entity.Event{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{
			"status":   to,
			"feedback": feedback,
		})
	return res.RowsAffected, res.Error
}

func (r *repository) SetImage(ctx context.Context, id uuid.UUID, imageURL string) error {
	return r.db.WithContext(ctx).
		Model(&entity.Event{}).
		Where("id = ?", id).
		Update("image_url", imageURL).Error
}

func (r *repository) FindAll(ctx context.Context, q Query) ([]*entity.Event, int64, error) {
	var events []*entity.Event
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Event{})

	if q.AdminID != nil {
		query = query.Where("admin_id = ?", *q.AdminID)
	}

	if q.Status != "" {
		query = query.Where("status = ?", q.Status)
	}

	if q.Tag != "" {
		query = query.Where("id IN (?)",
			r.db.Model(&entity.EventTag{}).Select("event_id").Where("tag = ?", q.Tag))
	}

	if len(q.Tags) > 0 {
		query = query.Where("id IN (?)",
			r.db.Model(&entity.EventTag{}).
				Select("event_id").
				Where("tag IN ?", q.Tags).
				Group("event_id").
				Having("COUNT(DISTINCT tag) = ?", len(q.Tags)))
	}

	if q.Search != "" {
		query = query.Where("LOWER(title) LIKE ?", "%"+strings.ToLower(q.Search)+"%")
	}

	if q.IDs != nil {
		query = query.Where("id IN ?", q.IDs)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.
		Preload("Tags").
		Preload("Admin").
		Preload("Admin.Club").
		Order("date_time ASC")

	if q.Limit > 0 {
		query = query.Offset(q.Offset).Limit(q.Limit)
	}

	if err := query.Find(&events).Error; err != nil {
		return nil, 0, err
	}

	return events, total, nil
}

func (r *repository) Count(ctx context.Context, status string) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&entity.Event{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
