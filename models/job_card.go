package models

import (
	"time"
)

// JobCard is a provider-committed record of work with its own lifecycle.
// Completed and cancelled cards never change status again.
type JobCard struct {
	ID              string   `gorm:"primaryKey" json:"id"`
	ProviderID      string   `gorm:"not null;index:idx_jc_provider_created,priority:1" json:"providerId"`
	ProviderName    string   `json:"providerName"`
	ProviderAddress *Address `gorm:"serializer:json" json:"providerAddress,omitempty"`
	CustomerID      string   `gorm:"not null;index:idx_jc_customer_created,priority:1" json:"customerId"`
	CustomerName    string   `json:"customerName"`
	CustomerPhone   string   `json:"customerPhone,omitempty"`
	CustomerAddress *Address `gorm:"serializer:json" json:"customerAddress,omitempty"`
	ServiceType     string   `gorm:"not null" json:"serviceType"`
	Problem         string   `json:"problem,omitempty"`
	BookingID       string   `gorm:"index" json:"bookingId,omitempty"`
	Status          string   `gorm:"not null;default:'pending';index" json:"status"`

	TaskPIN        string     `gorm:"column:task_pin" json:"taskPIN,omitempty"`
	PinGeneratedAt *time.Time `json:"pinGeneratedAt,omitempty"`
	ScheduledTime  *time.Time `json:"scheduledTime,omitempty"`

	CancellationReason string     `json:"cancellationReason,omitempty"`
	CancelledAt        *time.Time `json:"cancelledAt,omitempty"`
	CancelledBy        string     `json:"cancelledBy,omitempty"`
	CompletedAt        *time.Time `json:"completedAt,omitempty"`

	CreatedAt time.Time `gorm:"index:idx_jc_provider_created,priority:2,sort:desc;index:idx_jc_customer_created,priority:2,sort:desc" json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName specifies the table name for the JobCard model
func (JobCard) TableName() string {
	return "job_cards"
}

// IsTerminal reports whether the card has reached end-of-life.
func (j JobCard) IsTerminal() bool {
	return IsTerminalJobCardStatus(j.Status)
}
