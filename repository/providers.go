package repository

import (
	"context"
	"slices"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/kendall-kelly/home-services-api/models"
)

// ProviderFilter narrows ProviderRepository.List. Nil pointers mean "any".
type ProviderFilter struct {
	ApprovalStatus string
	ServiceType    string
	City           string
	State          string
	IsOnline       *bool
	MinRating      *float64
	Page           Page
}

// ProviderRepository persists provider profiles.
type ProviderRepository struct {
	db *gorm.DB
}

func NewProviderRepository(db *gorm.DB) *ProviderRepository {
	return &ProviderRepository{db: db}
}

func (r *ProviderRepository) FindByID(ctx context.Context, id string) (*models.Provider, string, error) {
	return FindFirst[models.Provider](ctx, r.db, id, DefaultLookup)
}

// Create inserts a new profile.
func (r *ProviderRepository) Create(ctx context.Context, p *models.Provider) error {
	p.SyncLocationIndex()
	return r.db.WithContext(ctx).Create(p).Error
}

// Update writes the named columns from patch.
func (r *ProviderRepository) Update(ctx context.Context, id string, patch models.Provider, columns ...string) error {
	patch.SyncLocationIndex()
	var extra []string
	if slices.Contains(columns, "location") {
		extra = []string{"city", "state"}
	}
	return r.db.WithContext(ctx).
		Model(&models.Provider{}).
		Where("id = ?", id).
		Select(touched(columns, extra...)).
		Updates(patch).Error
}

// List filters in the store on indexed columns and on service type in memory,
// since categories are stored as a serialized list.
func (r *ProviderRepository) List(ctx context.Context, f ProviderFilter) ([]models.Provider, error) {
	q := r.db.WithContext(ctx).Model(&models.Provider{})
	if f.ApprovalStatus != "" {
		q = q.Where("approval_status = ?", f.ApprovalStatus)
	}
	if f.City != "" {
		q = q.Where("city = ?", strings.ToLower(strings.TrimSpace(f.City)))
	}
	if f.State != "" {
		q = q.Where("state = ?", strings.ToLower(strings.TrimSpace(f.State)))
	}
	if f.IsOnline != nil {
		q = q.Where("is_online = ?", *f.IsOnline)
	}
	if f.MinRating != nil {
		q = q.Where("rating >= ?", *f.MinRating)
	}
	q = q.Order("rating DESC").Order("id")

	if f.ServiceType == "" {
		var out []models.Provider
		err := f.Page.apply(q).Find(&out).Error
		return out, err
	}

	var all []models.Provider
	if err := q.Find(&all).Error; err != nil {
		return nil, err
	}
	matched := make([]models.Provider, 0, len(all))
	for _, p := range all {
		if p.Serves(f.ServiceType) {
			matched = append(matched, p)
		}
	}
	return paginate(matched, f.Page), nil
}

// Candidates returns approved providers that are online, available and serve serviceType.
func (r *ProviderRepository) Candidates(ctx context.Context, serviceType string) ([]models.Provider, error) {
	var all []models.Provider
	err := r.db.WithContext(ctx).
		Where("approval_status = ? AND is_online = ? AND is_available = ?", models.ApprovalApproved, true, true).
		Find(&all).Error
	if err != nil {
		return nil, err
	}
	out := make([]models.Provider, 0, len(all))
	for _, p := range all {
		if p.Serves(serviceType) {
			out = append(out, p)
		}
	}
	return out, nil
}

// SetRating stores a recomputed aggregate. It reports false when the provider
// has no profile row.
func (r *ProviderRepository) SetRating(ctx context.Context, id string, rating float64, total int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Provider{}).
		Where("id = ?", id).
		Select("rating", "total_reviews", "updated_at").
		Updates(models.Provider{Rating: rating, TotalReviews: int(total)})
	return res.RowsAffected == 1, res.Error
}

// SetApproval records an admin approval decision.
func (r *ProviderRepository) SetApproval(ctx context.Context, id, status, reason, adminID string, at time.Time) error {
	patch := models.Provider{ApprovalStatus: status, RejectionReason: reason}
	columns := []string{"approval_status", "rejection_reason"}
	if status == models.ApprovalApproved {
		patch.ApprovedBy = adminID
		patch.ApprovedAt = &at
		patch.Verified = true
		columns = append(columns, "approved_by", "approved_at", "verified")
	}
	return r.Update(ctx, id, patch, columns...)
}

func paginate[T any](items []T, p Page) []T {
	limit := p.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	start := p.Offset
	if start < 0 {
		start = 0
	}
	if start >= len(items) {
		return []T{}
	}
	end := start + limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
