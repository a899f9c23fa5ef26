package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/kendall-kelly/home-services-api/models"
)

// JobCardFilter narrows JobCardRepository.List.
type JobCardFilter struct {
	CustomerID string
	ProviderID string
	Status     string
	Page       Page
}

// JobCardRepository persists job cards.
type JobCardRepository struct {
	db *gorm.DB
}

func NewJobCardRepository(db *gorm.DB) *JobCardRepository {
	return &JobCardRepository{db: db}
}

func (r *JobCardRepository) Create(ctx context.Context, card *models.JobCard) error {
	return r.db.WithContext(ctx).Create(card).Error
}

// FindByID resolves id through DefaultLookup.
func (r *JobCardRepository) FindByID(ctx context.Context, id string) (*models.JobCard, string, error) {
	return FindFirst[models.JobCard](ctx, r.db, id, DefaultLookup)
}

// List returns matching cards newest first, along with the unpaginated total.
func (r *JobCardRepository) List(ctx context.Context, f JobCardFilter) ([]models.JobCard, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.JobCard{})
	if f.CustomerID != "" {
		q = q.Where("customer_id = ?", f.CustomerID)
	}
	if f.ProviderID != "" {
		q = q.Where("provider_id = ?", f.ProviderID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var out []models.JobCard
	err := f.Page.apply(q.Order("created_at DESC")).Find(&out).Error
	return out, total, err
}

// UpdateLive writes columns from patch only while the card is not in a
// terminal status. It reports false when the card was already completed or
// cancelled at write time.
func (r *JobCardRepository) UpdateLive(ctx context.Context, id string, patch models.JobCard, columns ...string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.JobCard{}).
		Where("id = ? AND status NOT IN ?", id, models.JobCardTerminalStatuses).
		Select(touched(columns)).
		Updates(patch)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// Update writes the named columns from patch regardless of status.
func (r *JobCardRepository) Update(ctx context.Context, id string, patch models.JobCard, columns ...string) error {
	return r.db.WithContext(ctx).
		Model(&models.JobCard{}).
		Where("id = ?", id).
		Select(touched(columns)).
		Updates(patch).Error
}

// Delete hard-deletes a card and reports whether a row was removed.
func (r *JobCardRepository) Delete(ctx context.Context, id string) (bool, error) {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.JobCard{})
	return res.RowsAffected == 1, res.Error
}

// Get reloads a card by its exact id.
func (r *JobCardRepository) Get(ctx context.Context, id string) (*models.JobCard, error) {
	var out models.JobCard
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}
