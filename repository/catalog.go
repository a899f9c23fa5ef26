package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/kendall-kelly/home-services-api/models"
)

// CategoryRepository persists service categories.
type CategoryRepository struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// List returns categories sorted for display. Inactive ones are included only when asked.
func (r *CategoryRepository) List(ctx context.Context, includeInactive bool) ([]models.ServiceCategory, error) {
	q := r.db.WithContext(ctx).Model(&models.ServiceCategory{})
	if !includeInactive {
		q = q.Where("is_active = ?", true)
	}
	var out []models.ServiceCategory
	err := q.Order("sort_order ASC").Order("name ASC").Find(&out).Error
	return out, err
}

func (r *CategoryRepository) FindByID(ctx context.Context, id string) (*models.ServiceCategory, string, error) {
	return FindFirst[models.ServiceCategory](ctx, r.db, id, DefaultLookup)
}

func (r *CategoryRepository) Create(ctx context.Context, c *models.ServiceCategory) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *CategoryRepository) Update(ctx context.Context, id string, patch models.ServiceCategory, columns ...string) error {
	return r.db.WithContext(ctx).
		Model(&models.ServiceCategory{}).
		Where("id = ?", id).
		Select(touched(columns)).
		Updates(patch).Error
}

func (r *CategoryRepository) Delete(ctx context.Context, id string) (bool, error) {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.ServiceCategory{})
	return res.RowsAffected == 1, res.Error
}

// RecommendationFilter narrows RecommendationRepository.List.
type RecommendationFilter struct {
	RecommendedBy string
	Status        string
	ServiceType   string
	Page          Page
}

// RecommendationRepository persists contact recommendations.
type RecommendationRepository struct {
	db *gorm.DB
}

func NewRecommendationRepository(db *gorm.DB) *RecommendationRepository {
	return &RecommendationRepository{db: db}
}

func (r *RecommendationRepository) Create(ctx context.Context, rec *models.ContactRecommendation) error {
	return r.db.WithContext(ctx).Create(rec).Error
}

func (r *RecommendationRepository) FindByID(ctx context.Context, id string) (*models.ContactRecommendation, string, error) {
	return FindFirst[models.ContactRecommendation](ctx, r.db, id, DefaultLookup)
}

func (r *RecommendationRepository) List(ctx context.Context, f RecommendationFilter) ([]models.ContactRecommendation, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.ContactRecommendation{})
	if f.RecommendedBy != "" {
		q = q.Where("recommended_by = ?", f.RecommendedBy)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.ServiceType != "" {
		q = q.Where("service_type = ?", f.ServiceType)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var out []models.ContactRecommendation
	err := f.Page.apply(q.Order("created_at DESC")).Find(&out).Error
	return out, total, err
}

func (r *RecommendationRepository) Update(ctx context.Context, id string, patch models.ContactRecommendation, columns ...string) error {
	return r.db.WithContext(ctx).
		Model(&models.ContactRecommendation{}).
		Where("id = ?", id).
		Select(touched(columns)).
		Updates(patch).Error
}
