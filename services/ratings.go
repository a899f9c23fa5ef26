package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/kendall-kelly/home-services-api/repository"
)

// RatingAggregator keeps a provider's rating and review count in step with
// its reviews by rescanning them. Concurrent recomputes for one provider may
// interleave; the last writer wins.
type RatingAggregator struct {
	reviews   *repository.ReviewRepository
	providers *repository.ProviderRepository
	logger    *zap.Logger
}

func NewRatingAggregator(reviews *repository.ReviewRepository, providers *repository.ProviderRepository, logger *zap.Logger) *RatingAggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RatingAggregator{reviews: reviews, providers: providers, logger: logger}
}

// Recompute sets rating to the mean of every review for providerID and
// totalReviews to their count.
func (a *RatingAggregator) Recompute(ctx context.Context, providerID string) (repository.RatingSummary, error) {
	summary, err := a.reviews.ProviderSummary(ctx, providerID)
	if err != nil {
		return repository.RatingSummary{}, err
	}

	updated, err := a.providers.SetRating(ctx, providerID, summary.Average, summary.Count)
	if err != nil {
		return summary, err
	}
	if !updated {
		a.logger.Debug("no provider profile to store rating on", zap.String("provider_id", providerID))
	}
	return summary, nil
}
