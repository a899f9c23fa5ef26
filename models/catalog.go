package models

import (
	"time"
)

// ServiceCategory is reference data describing a bookable service.
type ServiceCategory struct {
	ID              string                   `gorm:"primaryKey" json:"id"`
	Name            string                   `gorm:"not null" json:"name"`
	Description     string                   `json:"description,omitempty"`
	DescriptionHi   string                   `json:"descriptionHi,omitempty"`
	Icon            string                   `json:"icon,omitempty"`
	Color           string                   `json:"color,omitempty"`
	Order           int                      `gorm:"column:sort_order;index" json:"order"`
	IsActive        bool                     `gorm:"index" json:"isActive"`
	RequiresVehicle bool                     `json:"requiresVehicle"`
	Questionnaire   []map[string]interface{} `gorm:"serializer:json" json:"questionnaire"`
	CreatedAt       time.Time                `json:"createdAt"`
	UpdatedAt       time.Time                `json:"updatedAt"`
}

// TableName specifies the table name for the ServiceCategory model
func (ServiceCategory) TableName() string {
	return "service_categories"
}

const (
	RecommendationPending    = "pending"
	RecommendationContacted  = "contacted"
	RecommendationRegistered = "registered"
	RecommendationRejected   = "rejected"
)

// RecommendationStatuses lists every contact recommendation status.
var RecommendationStatuses = []string{
	RecommendationPending, RecommendationContacted, RecommendationRegistered, RecommendationRejected,
}

// CustomerRecommendationPoints is credited to a customer for each recommendation.
const CustomerRecommendationPoints = 5

// ContactRecommendation is a referral of a prospective provider by a customer or provider.
type ContactRecommendation struct {
	ID                       string    `gorm:"primaryKey" json:"id"`
	RecommendedProviderName  string    `gorm:"not null" json:"recommendedProviderName"`
	RecommendedProviderPhone string    `gorm:"not null" json:"recommendedProviderPhone"`
	ServiceType              string    `gorm:"not null;index" json:"serviceType"`
	Address                  string    `json:"address,omitempty"`
	RecommendedBy            string    `gorm:"not null;index" json:"recommendedBy"`
	RecommendedByName        string    `json:"recommendedByName,omitempty"`
	RecommendedByPhone       string    `json:"recommendedByPhone,omitempty"`
	RecommendedByRole        string    `gorm:"not null" json:"recommendedByRole"`
	Status                   string    `gorm:"not null;default:'pending';index" json:"status"`
	PointsAwarded            int       `gorm:"not null;default:0" json:"pointsAwarded"`
	AdminNotes               string    `json:"adminNotes,omitempty"`
	CreatedAt                time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt                time.Time `json:"updatedAt"`
}

// TableName specifies the table name for the ContactRecommendation model
func (ContactRecommendation) TableName() string {
	return "contact_recommendations"
}

// IsValidRecommendationStatus reports whether status is known.
func IsValidRecommendationStatus(status string) bool {
	return contains(RecommendationStatuses, status)
}
