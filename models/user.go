package models

import (
	"time"
)

const (
	RoleCustomer = "customer"
	RoleProvider = "provider"
	RoleAdmin    = "admin"
)

// IsValidRole reports whether role is one of the known roles.
func IsValidRole(role string) bool {
	return role == RoleCustomer || role == RoleProvider || role == RoleAdmin
}

// User represents an authenticated account. ID is the identity provider's subject id.
type User struct {
	ID            string    `gorm:"primaryKey" json:"id"`
	Email         string    `gorm:"index" json:"email,omitempty"`
	Phone         string    `json:"phone,omitempty"`
	PhoneNumber   string    `gorm:"index" json:"phoneNumber,omitempty"`
	PhoneVerified bool      `json:"phoneVerified"`
	Name          string    `json:"name,omitempty"`
	DisplayName   string    `json:"displayName,omitempty"`
	Role          string    `gorm:"not null;default:'customer';index" json:"role"` // customer, provider or admin
	FCMToken      *string   `gorm:"column:fcm_token" json:"fcmToken,omitempty"`
	Location      *Address  `gorm:"serializer:json" json:"location,omitempty"`
	PhotoURL      string    `gorm:"column:photo_url" json:"photoURL,omitempty"`
	Points        int       `gorm:"not null;default:0" json:"points"`
	Verified      bool      `json:"verified"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// TableName specifies the table name for the User model
func (User) TableName() string {
	return "users"
}

// DisplayLabel returns the best human-readable name for the user.
func (u User) DisplayLabel() string {
	if u.Name != "" {
		return u.Name
	}
	return u.DisplayName
}

// ContactPhone returns whichever phone field is populated.
func (u User) ContactPhone() string {
	if u.PhoneNumber != "" {
		return u.PhoneNumber
	}
	return u.Phone
}

// RoleChangeLog records an administrative role change.
type RoleChangeLog struct {
	ID            string    `gorm:"primaryKey" json:"id"`
	UserID        string    `gorm:"not null;index" json:"userId"`
	OldRole       string    `json:"oldRole"`
	NewRole       string    `gorm:"not null" json:"newRole"`
	ChangedBy     string    `gorm:"not null;index" json:"changedBy"`
	ChangedByName string    `json:"changedByName,omitempty"`
	ChangedAt     time.Time `gorm:"not null;index" json:"changedAt"`
}

// TableName specifies the table name for the RoleChangeLog model
func (RoleChangeLog) TableName() string {
	return "role_change_logs"
}
