package services

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/kendall-kelly/home-services-api/apperrors"
	"github.com/kendall-kelly/home-services-api/models"
	"github.com/kendall-kelly/home-services-api/repository"
	"github.com/kendall-kelly/home-services-api/utils"
)

// CategoryInput creates or patches a service category. Nil means unchanged.
type CategoryInput struct {
	ID              string                   `json:"id"`
	Name            *string                  `json:"name" validate:"omitempty,notblank,max=100"`
	Description     *string                  `json:"description"`
	DescriptionHi   *string                  `json:"descriptionHi"`
	Icon            *string                  `json:"icon"`
	Color           *string                  `json:"color" validate:"omitempty,hexcolor"`
	Order           *int                     `json:"order"`
	IsActive        *bool                    `json:"isActive"`
	RequiresVehicle *bool                    `json:"requiresVehicle"`
	Questionnaire   []map[string]interface{} `json:"questionnaire"`
}

// CategoryService manages the service category reference data.
type CategoryService struct {
	categories *repository.CategoryRepository
	validator  *validator.Validate
	logger     *zap.Logger
}

func NewCategoryService(categories *repository.CategoryRepository, validate *validator.Validate, logger *zap.Logger) *CategoryService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CategoryService{categories: categories, validator: validate, logger: logger}
}

// List returns active categories, and inactive ones too for admins who ask.
func (s *CategoryService) List(ctx context.Context, actor Identity, includeInactive bool) ([]models.ServiceCategory, error) {
	out, err := s.categories.List(ctx, includeInactive && actor.IsAdmin())
	if err != nil {
		return nil, apperrors.FromError(err)
	}
	return out, nil
}

func (s *CategoryService) Get(ctx context.Context, id string) (*models.ServiceCategory, error) {
	c, _, err := s.categories.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("Service category not found")
	}
	if err != nil {
		return nil, apperrors.FromError(err)
	}
	return c, nil
}

// Create adds a category. New categories are active unless stated otherwise.
func (s *CategoryService) Create(ctx context.Context, in CategoryInput) (*models.ServiceCategory, error) {
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		return nil, apperrors.Validation("Category name is required")
	}
	if err := s.validator.Struct(in); err != nil {
		return nil, validationError(err)
	}

	c := &models.ServiceCategory{
		ID:       firstNonEmpty(strings.TrimSpace(in.ID), utils.NewDocumentID()),
		IsActive: true,
	}
	applyCategory(c, in)
	if err := s.categories.Create(ctx, c); err != nil {
		return nil, apperrors.FromError(err)
	}
	s.logger.Info("service category created", zap.String("category_id", c.ID), zap.String("name", c.Name))
	return c, nil
}

func (s *CategoryService) Update(ctx context.Context, id string, in CategoryInput) (*models.ServiceCategory, error) {
	if err := s.validator.Struct(in); err != nil {
		return nil, validationError(err)
	}
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	var patch models.ServiceCategory
	columns := applyCategory(&patch, in)
	if err := s.categories.Update(ctx, existing.ID, patch, columns...); err != nil {
		return nil, apperrors.FromError(err)
	}
	return s.Get(ctx, existing.ID)
}

func (s *CategoryService) Delete(ctx context.Context, id string) error {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	deleted, err := s.categories.Delete(ctx, existing.ID)
	if err != nil {
		return apperrors.FromError(err)
	}
	if !deleted {
		return apperrors.NotFound("Service category not found")
	}
	return nil
}

func applyCategory(c *models.ServiceCategory, in CategoryInput) []string {
	var columns []string
	if in.Name != nil {
		c.Name = strings.TrimSpace(*in.Name)
		columns = append(columns, "name")
	}
	if in.Description != nil {
		c.Description = *in.Description
		columns = append(columns, "description")
	}
	if in.DescriptionHi != nil {
		c.DescriptionHi = *in.DescriptionHi
		columns = append(columns, "description_hi")
	}
	if in.Icon != nil {
		c.Icon = *in.Icon
		columns = append(columns, "icon")
	}
	if in.Color != nil {
		c.Color = *in.Color
		columns = append(columns, "color")
	}
	if in.Order != nil {
		c.Order = *in.Order
		columns = append(columns, "sort_order")
	}
	if in.IsActive != nil {
		c.IsActive = *in.IsActive
		columns = append(columns, "is_active")
	}
	if in.RequiresVehicle != nil {
		c.RequiresVehicle = *in.RequiresVehicle
		columns = append(columns, "requires_vehicle")
	}
	if in.Questionnaire != nil {
		c.Questionnaire = in.Questionnaire
		columns = append(columns, "questionnaire")
	}
	return columns
}

// CreateRecommendationInput refers a prospective provider.
type CreateRecommendationInput struct {
	RecommendedProviderName  string `json:"recommendedProviderName" validate:"required,notblank,max=100"`
	RecommendedProviderPhone string `json:"recommendedProviderPhone" validate:"required,notblank,max=20"`
	ServiceType              string `json:"serviceType" validate:"required,notblank"`
	Address                  string `json:"address" validate:"max=500"`
}

// RecommendationListInput filters the admin recommendation list.
type RecommendationListInput struct {
	Status      string
	ServiceType string
	Page        repository.Page
}

// RecommendationService records referrals and credits customers for them.
type RecommendationService struct {
	recommendations *repository.RecommendationRepository
	users           *repository.UserRepository
	validator       *validator.Validate
	logger          *zap.Logger
}

func NewRecommendationService(recommendations *repository.RecommendationRepository, users *repository.UserRepository, validate *validator.Validate, logger *zap.Logger) *RecommendationService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecommendationService{recommendations: recommendations, users: users, validator: validate, logger: logger}
}

// Create stores a recommendation from a customer or provider. Customers are
// credited CustomerRecommendationPoints for each one.
func (s *RecommendationService) Create(ctx context.Context, actor Identity, in CreateRecommendationInput) (*models.ContactRecommendation, error) {
	if !actor.IsCustomer() && !actor.IsProvider() {
		return nil, apperrors.Forbidden("Only customers and providers can create contact recommendations")
	}
	if err := s.validator.Struct(in); err != nil {
		return nil, validationError(err)
	}

	user, err := s.users.FindByID(ctx, actor.ID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("User not found")
	}
	if err != nil {
		return nil, apperrors.FromError(err)
	}

	rec := &models.ContactRecommendation{
		ID:                       utils.NewObjectID(),
		RecommendedProviderName:  strings.TrimSpace(in.RecommendedProviderName),
		RecommendedProviderPhone: strings.TrimSpace(in.RecommendedProviderPhone),
		ServiceType:              strings.TrimSpace(in.ServiceType),
		Address:                  strings.TrimSpace(in.Address),
		RecommendedBy:            actor.ID,
		RecommendedByName:        user.DisplayLabel(),
		RecommendedByPhone:       user.ContactPhone(),
		RecommendedByRole:        actor.Role,
		Status:                   models.RecommendationPending,
	}
	if err := s.recommendations.Create(ctx, rec); err != nil {
		return nil, apperrors.FromError(err)
	}

	if actor.IsCustomer() {
		if err := s.users.AddPoints(ctx, actor.ID, models.CustomerRecommendationPoints); err != nil {
			s.logger.Warn("failed to award recommendation points", zap.String("user_id", actor.ID), zap.Error(err))
			return rec, nil
		}
		rec.PointsAwarded = models.CustomerRecommendationPoints
		if err := s.recommendations.Update(ctx, rec.ID, *rec, "points_awarded"); err != nil {
			s.logger.Warn("failed to record awarded points", zap.String("recommendation_id", rec.ID), zap.Error(err))
		}
		s.logger.Info("recommendation points awarded",
			zap.String("user_id", actor.ID),
			zap.Int("points", models.CustomerRecommendationPoints),
		)
	}
	return rec, nil
}

// Mine returns the caller's own recommendations.
func (s *RecommendationService) Mine(ctx context.Context, actor Identity, page repository.Page) ([]models.ContactRecommendation, int64, error) {
	out, total, err := s.recommendations.List(ctx, repository.RecommendationFilter{RecommendedBy: actor.ID, Page: page})
	if err != nil {
		return nil, 0, apperrors.FromError(err)
	}
	return out, total, nil
}

// List returns every recommendation. Admin only.
func (s *RecommendationService) List(ctx context.Context, actor Identity, in RecommendationListInput) ([]models.ContactRecommendation, int64, error) {
	if !actor.IsAdmin() {
		return nil, 0, apperrors.Forbidden("Only administrators can view all contact recommendations")
	}
	if in.Status != "" && !models.IsValidRecommendationStatus(in.Status) {
		return nil, 0, apperrors.Validation("Invalid status filter")
	}
	out, total, err := s.recommendations.List(ctx, repository.RecommendationFilter{
		Status:      in.Status,
		ServiceType: in.ServiceType,
		Page:        in.Page,
	})
	if err != nil {
		return nil, 0, apperrors.FromError(err)
	}
	return out, total, nil
}

// UpdateStatus moves a recommendation through admin follow-up.
func (s *RecommendationService) UpdateStatus(ctx context.Context, actor Identity, id, status, notes string) (*models.ContactRecommendation, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.Forbidden("Only administrators can update recommendation status")
	}
	if !models.IsValidRecommendationStatus(status) {
		return nil, apperrors.Validation("Valid status is required (pending, contacted, registered, rejected)")
	}

	rec, _, err := s.recommendations.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("Contact recommendation not found")
	}
	if err != nil {
		return nil, apperrors.FromError(err)
	}

	patch := models.ContactRecommendation{Status: status, AdminNotes: strings.TrimSpace(notes)}
	columns := []string{"status"}
	if patch.AdminNotes != "" {
		columns = append(columns, "admin_notes")
	}
	if err := s.recommendations.Update(ctx, rec.ID, patch, columns...); err != nil {
		return nil, apperrors.FromError(err)
	}

	updated, _, err := s.recommendations.FindByID(ctx, rec.ID)
	if err != nil {
		return nil, apperrors.FromError(err)
	}
	return updated, nil
}
