package repository

import "gorm.io/gorm"

// Store bundles the repositories over one database handle.
type Store struct {
	Users           *UserRepository
	Providers       *ProviderRepository
	ServiceRequests *ServiceRequestRepository
	JobCards        *JobCardRepository
	Reviews         *ReviewRepository
	Categories      *CategoryRepository
	Recommendations *RecommendationRepository
}

func NewStore(db *gorm.DB) *Store {
	return &Store{
		Users:           NewUserRepository(db),
		Providers:       NewProviderRepository(db),
		ServiceRequests: NewServiceRequestRepository(db),
		JobCards:        NewJobCardRepository(db),
		Reviews:         NewReviewRepository(db),
		Categories:      NewCategoryRepository(db),
		Recommendations: NewRecommendationRepository(db),
	}
}
