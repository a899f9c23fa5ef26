package models

import (
	"time"
)

const (
	MinRating = 1
	MaxRating = 5
)

// Review is a customer's feedback on a completed job card.
// The (job_card_id, customer_id) unique index enforces one review per customer per card.
type Review struct {
	ID           string    `gorm:"primaryKey" json:"id"`
	JobCardID    string    `gorm:"not null;uniqueIndex:idx_reviews_job_card_customer,priority:1" json:"jobCardId"`
	CustomerID   string    `gorm:"not null;uniqueIndex:idx_reviews_job_card_customer,priority:2;index" json:"customerId"`
	CustomerName string    `gorm:"not null" json:"customerName"`
	ProviderID   string    `gorm:"not null;index" json:"providerId"`
	ProviderName string    `gorm:"not null" json:"providerName"`
	ServiceType  string    `gorm:"not null" json:"serviceType"`
	Rating       int       `gorm:"not null;check:rating >= 1 AND rating <= 5" json:"rating"`
	Comment      string    `json:"comment"`
	Photos       []string  `gorm:"serializer:json" json:"photos"`
	CreatedAt    time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// TableName specifies the table name for the Review model
func (Review) TableName() string {
	return "reviews"
}
