package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/kendall-kelly/home-services-api/models"
)

// ServiceRequestFilter narrows ServiceRequestRepository.List.
type ServiceRequestFilter struct {
	CustomerID string
	ProviderID string
	Status     string
	Page       Page
}

// ServiceRequestRepository persists service requests.
type ServiceRequestRepository struct {
	db *gorm.DB
}

func NewServiceRequestRepository(db *gorm.DB) *ServiceRequestRepository {
	return &ServiceRequestRepository{db: db}
}

// Create inserts a new request. The id must already be set.
func (r *ServiceRequestRepository) Create(ctx context.Context, req *models.ServiceRequest) error {
	return r.db.WithContext(ctx).Create(req).Error
}

// FindByID resolves id through ServiceRequestLookup.
func (r *ServiceRequestRepository) FindByID(ctx context.Context, id string) (*models.ServiceRequest, string, error) {
	return FindFirst[models.ServiceRequest](ctx, r.db, id, ServiceRequestLookup)
}

// List returns matching requests newest first, along with the unpaginated total.
func (r *ServiceRequestRepository) List(ctx context.Context, f ServiceRequestFilter) ([]models.ServiceRequest, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.ServiceRequest{})
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

	var out []models.ServiceRequest
	err := f.Page.apply(q.Order("created_at DESC")).Find(&out).Error
	return out, total, err
}

// AssignProvider atomically moves a pending, unassigned request to accepted
// with the provider snapshot in patch. It reports false when the row was not
// in that state at write time, which is how concurrent acceptances lose.
func (r *ServiceRequestRepository) AssignProvider(ctx context.Context, id string, patch models.ServiceRequest) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.ServiceRequest{}).
		Where("id = ? AND status = ? AND (provider_id IS NULL OR provider_id = '')", id, models.StatusPending).
		Select(
			"status", "provider_id", "provider_name", "provider_phone", "provider_email",
			"provider_specialization", "provider_rating", "provider_image", "provider_address",
			"accepted_at", "updated_at",
		).
		Updates(patch)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// Transition writes columns from patch only while the row is still in one of
// the from statuses. It reports false when the status moved underneath.
func (r *ServiceRequestRepository) Transition(ctx context.Context, id string, from []string, patch models.ServiceRequest, columns ...string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.ServiceRequest{}).
		Where("id = ? AND status IN ?", id, from).
		Select(touched(columns)).
		Updates(patch)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// Update writes the named columns from patch unconditionally.
func (r *ServiceRequestRepository) Update(ctx context.Context, id string, patch models.ServiceRequest, columns ...string) error {
	return r.db.WithContext(ctx).
		Model(&models.ServiceRequest{}).
		Where("id = ?", id).
		Select(touched(columns)).
		Updates(patch).Error
}

// Get reloads a request by its exact id.
func (r *ServiceRequestRepository) Get(ctx context.Context, id string) (*models.ServiceRequest, error) {
	var out models.ServiceRequest
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}
