package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/kendall-kelly/home-services-api/models"
)

// ReviewFilter narrows ReviewRepository.List.
type ReviewFilter struct {
	ProviderID string
	CustomerID string
	JobCardID  string
	Page       Page
}

// ReviewRepository persists reviews.
type ReviewRepository struct {
	db *gorm.DB
}

func NewReviewRepository(db *gorm.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// Create inserts a review. A second review for the same job card and customer
// fails on the unique index.
func (r *ReviewRepository) Create(ctx context.Context, review *models.Review) error {
	return r.db.WithContext(ctx).Create(review).Error
}

func (r *ReviewRepository) FindByID(ctx context.Context, id string) (*models.Review, string, error) {
	return FindFirst[models.Review](ctx, r.db, id, DefaultLookup)
}

// Exists reports whether customerID already reviewed jobCardID.
func (r *ReviewRepository) Exists(ctx context.Context, jobCardID, customerID string) (bool, error) {
	var review models.Review
	err := r.db.WithContext(ctx).
		Select("id").
		Where("job_card_id = ? AND customer_id = ?", jobCardID, customerID).
		Take(&review).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (r *ReviewRepository) List(ctx context.Context, f ReviewFilter) ([]models.Review, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Review{})
	if f.ProviderID != "" {
		q = q.Where("provider_id = ?", f.ProviderID)
	}
	if f.CustomerID != "" {
		q = q.Where("customer_id = ?", f.CustomerID)
	}
	if f.JobCardID != "" {
		q = q.Where("job_card_id = ?", f.JobCardID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var out []models.Review
	err := f.Page.apply(q.Order("created_at DESC")).Find(&out).Error
	return out, total, err
}

// UpdateComment changes only the comment. Rating is immutable after creation.
func (r *ReviewRepository) UpdateComment(ctx context.Context, id, comment string) error {
	return r.db.WithContext(ctx).
		Model(&models.Review{}).
		Where("id = ?", id).
		Select("comment", "updated_at").
		Updates(models.Review{Comment: comment}).Error
}

func (r *ReviewRepository) Delete(ctx context.Context, id string) (bool, error) {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Review{})
	return res.RowsAffected == 1, res.Error
}

// RatingSummary is the mean rating and count across a provider's reviews.
type RatingSummary struct {
	Average float64
	Count   int64
}

// ProviderSummary scans every review for providerID.
func (r *ReviewRepository) ProviderSummary(ctx context.Context, providerID string) (RatingSummary, error) {
	var row struct {
		Average *float64
		Count   int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.Review{}).
		Select("AVG(rating) AS average, COUNT(*) AS count").
		Where("provider_id = ?", providerID).
		Scan(&row).Error
	if err != nil {
		return RatingSummary{}, err
	}
	summary := RatingSummary{Count: row.Count}
	if row.Average != nil {
		summary.Average = *row.Average
	}
	return summary, nil
}
