package models

import (
	"time"
)

const (
	UrgencyImmediate = "immediate"
	UrgencyScheduled = "scheduled"
)

// ServiceRequest is a customer's demand for service, negotiated with providers.
//
// Provider fields stay empty until a provider accepts. ConsultationID carries
// the id the request had in the predecessor system and is looked up as a fallback.
type ServiceRequest struct {
	ID              string  `gorm:"primaryKey" json:"id"`
	ConsultationID  string  `gorm:"index" json:"consultationId,omitempty"`
	CustomerID      string  `gorm:"not null;index:idx_sr_customer_created,priority:1;index:idx_sr_customer_status,priority:1" json:"customerId"`
	CustomerName    string  `json:"customerName"`
	CustomerPhone   string  `json:"customerPhone"`
	CustomerAddress Address `gorm:"serializer:json" json:"customerAddress"`
	ServiceType     string  `gorm:"not null;index" json:"serviceType"`
	Problem         string  `json:"problem,omitempty"`
	Status          string  `gorm:"not null;default:'pending';index:idx_sr_customer_status,priority:2;index" json:"status"`
	Urgency         string  `gorm:"not null;default:'immediate'" json:"urgency"`

	ScheduledTime *time.Time `json:"scheduledTime,omitempty"`

	ProviderID             string   `gorm:"index" json:"providerId,omitempty"`
	ProviderName           string   `json:"providerName,omitempty"`
	ProviderPhone          string   `json:"providerPhone,omitempty"`
	ProviderEmail          string   `json:"providerEmail,omitempty"`
	ProviderSpecialization string   `json:"providerSpecialization,omitempty"`
	ProviderRating         float64  `json:"providerRating,omitempty"`
	ProviderImage          string   `json:"providerImage,omitempty"`
	ProviderAddress        *Address `gorm:"serializer:json" json:"providerAddress,omitempty"`

	AcceptedAt *time.Time `json:"acceptedAt,omitempty"`

	QuestionnaireAnswers map[string]interface{} `gorm:"serializer:json" json:"questionnaireAnswers,omitempty"`
	Photos               []string               `gorm:"serializer:json" json:"photos"`

	CancellationReason string     `json:"cancellationReason,omitempty"`
	CancelledAt        *time.Time `json:"cancelledAt,omitempty"`
	RejectionReason    string     `json:"rejectionReason,omitempty"`
	RejectedBy         string     `json:"rejectedBy,omitempty"`
	RejectedAt         *time.Time `json:"rejectedAt,omitempty"`
	CompletedAt        *time.Time `json:"completedAt,omitempty"`

	CreatedAt time.Time `gorm:"index:idx_sr_customer_created,priority:2,sort:desc" json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName specifies the table name for the ServiceRequest model
func (ServiceRequest) TableName() string {
	return "service_requests"
}

// IsAssignedTo reports whether providerID holds the assignment.
func (r ServiceRequest) IsAssignedTo(providerID string) bool {
	return r.ProviderID != "" && r.ProviderID == providerID
}
