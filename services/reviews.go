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

// CreateReviewInput is a customer's review of a completed job card.
type CreateReviewInput struct {
	JobCardID  string   `json:"jobCardId" validate:"required,notblank"`
	ProviderID string   `json:"providerId"`
	Rating     int      `json:"rating" validate:"required,min=1,max=5"`
	Comment    string   `json:"comment" validate:"max=2000"`
	Photos     []string `json:"photos" validate:"max=10"`
}

// UpdateReviewInput only allows the comment to change. Rating is rejected if present.
type UpdateReviewInput struct {
	Comment *string `json:"comment" validate:"omitempty,max=2000"`
	Rating  *int    `json:"rating"`
}

// ReviewService manages reviews and keeps provider ratings current.
type ReviewService struct {
	reviews    *repository.ReviewRepository
	cards      *repository.JobCardRepository
	users      *repository.UserRepository
	providers  *repository.ProviderRepository
	aggregator *RatingAggregator
	validator  *validator.Validate
	logger     *zap.Logger
}

func NewReviewService(store *repository.Store, aggregator *RatingAggregator, validate *validator.Validate, logger *zap.Logger) *ReviewService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReviewService{
		reviews:    store.Reviews,
		cards:      store.JobCards,
		users:      store.Users,
		providers:  store.Providers,
		aggregator: aggregator,
		validator:  validate,
		logger:     logger,
	}
}

// Create stores one review per job card per customer, then recomputes the
// provider's rating. A failed recompute is logged and does not fail the create.
func (s *ReviewService) Create(ctx context.Context, actor Identity, in CreateReviewInput) (*models.Review, error) {
	if err := s.validator.Struct(in); err != nil {
		if in.Rating != 0 && (in.Rating < models.MinRating || in.Rating > models.MaxRating) {
			return nil, apperrors.Validation("Rating must be between 1 and 5")
		}
		return nil, validationError(err)
	}

	card, _, err := s.cards.FindByID(ctx, in.JobCardID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("Job card not found").WithKey("jobCards.notFound")
	}
	if err != nil {
		return nil, apperrors.FromError(err)
	}
	if card.CustomerID != actor.ID {
		return nil, apperrors.Forbidden("Job card does not belong to you").WithKey("common.forbidden")
	}
	if card.Status != models.StatusCompleted {
		return nil, apperrors.InvalidState("Can only review completed jobs").WithKey("reviews.jobNotCompleted")
	}

	providerID := strings.TrimSpace(in.ProviderID)
	if providerID == "" {
		providerID = card.ProviderID
	}
	if providerID != card.ProviderID {
		return nil, apperrors.Validation("providerId does not match the job card")
	}

	exists, err := s.reviews.Exists(ctx, card.ID, actor.ID)
	if err != nil {
		return nil, apperrors.FromError(err)
	}
	if exists {
		return nil, duplicateReview()
	}

	review := &models.Review{
		ID:           utils.NewObjectID(),
		JobCardID:    card.ID,
		CustomerID:   actor.ID,
		CustomerName: s.customerName(ctx, actor),
		ProviderID:   providerID,
		ProviderName: s.providerName(ctx, providerID, card.ProviderName),
		ServiceType:  firstNonEmpty(card.ServiceType, "Service"),
		Rating:       in.Rating,
		Comment:      in.Comment,
		Photos:       in.Photos,
	}
	if err := s.reviews.Create(ctx, review); err != nil {
		// The unique index settles concurrent creates that both passed Exists.
		if apperrors.IsDuplicateKey(err) {
			return nil, duplicateReview()
		}
		return nil, apperrors.FromError(err)
	}

	s.logger.Info("review created",
		zap.String("review_id", review.ID),
		zap.String("job_card_id", review.JobCardID),
		zap.String("provider_id", review.ProviderID),
		zap.Int("rating", review.Rating),
	)
	s.recompute(ctx, providerID)
	return review, nil
}

func duplicateReview() error {
	return apperrors.Clone(apperrors.ErrDuplicate, "Review already exists for this job card").
		WithKey("reviews.duplicate")
}

func (s *ReviewService) customerName(ctx context.Context, actor Identity) string {
	user, err := s.users.FindByID(ctx, actor.ID)
	if err == nil {
		return firstNonEmpty(user.DisplayName, user.Name, actor.Name, "Customer")
	}
	return firstNonEmpty(actor.Name, "Customer")
}

func (s *ReviewService) providerName(ctx context.Context, providerID, snapshot string) string {
	provider, _, err := s.providers.FindByID(ctx, providerID)
	if err == nil {
		return firstNonEmpty(provider.DisplayName, provider.Name, snapshot, "Provider")
	}
	return firstNonEmpty(snapshot, "Provider")
}

func (s *ReviewService) recompute(ctx context.Context, providerID string) {
	summary, err := s.aggregator.Recompute(ctx, providerID)
	if err != nil {
		s.logger.Warn("failed to recompute provider rating",
			zap.String("provider_id", providerID),
			zap.Error(err),
		)
		return
	}
	s.logger.Debug("provider rating recomputed",
		zap.String("provider_id", providerID),
		zap.Float64("rating", summary.Average),
		zap.Int64("total_reviews", summary.Count),
	)
}

// Get returns a review by id.
func (s *ReviewService) Get(ctx context.Context, id string) (*models.Review, error) {
	return s.find(ctx, id)
}

// List returns reviews matching the filter, newest first.
func (s *ReviewService) List(ctx context.Context, f repository.ReviewFilter) ([]models.Review, int64, error) {
	items, total, err := s.reviews.List(ctx, f)
	if err != nil {
		return nil, 0, apperrors.FromError(err)
	}
	return items, total, nil
}

// Update changes the comment on the caller's own review.
func (s *ReviewService) Update(ctx context.Context, actor Identity, id string, in UpdateReviewInput) (*models.Review, error) {
	if in.Rating != nil {
		return nil, apperrors.Validation("Rating cannot be changed after a review is created")
	}
	if err := s.validator.Struct(in); err != nil {
		return nil, validationError(err)
	}

	review, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if review.CustomerID != actor.ID {
		return nil, apperrors.Forbidden("You can only update your own reviews").WithKey("common.forbidden")
	}

	if in.Comment != nil {
		if err := s.reviews.UpdateComment(ctx, review.ID, *in.Comment); err != nil {
			return nil, apperrors.FromError(err)
		}
	}
	return s.find(ctx, review.ID)
}

// Delete removes a review for its owner or an admin and recomputes the rating.
func (s *ReviewService) Delete(ctx context.Context, actor Identity, id string) error {
	review, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if !actor.IsAdmin() && review.CustomerID != actor.ID {
		return apperrors.Forbidden("You can only delete your own reviews").WithKey("common.forbidden")
	}

	deleted, err := s.reviews.Delete(ctx, review.ID)
	if err != nil {
		return apperrors.FromError(err)
	}
	if !deleted {
		return apperrors.NotFound("Review not found")
	}

	s.logger.Info("review deleted", zap.String("review_id", review.ID), zap.String("actor_id", actor.ID))
	s.recompute(ctx, review.ProviderID)
	return nil
}

func (s *ReviewService) find(ctx context.Context, id string) (*models.Review, error) {
	review, _, err := s.reviews.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("Review not found")
	}
	if err != nil {
		return nil, apperrors.FromError(err)
	}
	return review, nil
}
