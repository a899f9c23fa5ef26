package models

import "gorm.io/gorm"

// Address is the postal snapshot stored on requests, job cards and profiles.
type Address struct {
	Type      string   `json:"type,omitempty"` // home or office, provider addresses only
	Address   string   `json:"address,omitempty"`
	City      string   `json:"city,omitempty"`
	State     string   `json:"state,omitempty"`
	Pincode   string   `json:"pincode,omitempty"`
	Country   string   `json:"country,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// GeoPoint is a last-known live position.
type GeoPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// All returns every persisted model, in migration order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&RoleChangeLog{},
		&Provider{},
		&ServiceCategory{},
		&ServiceRequest{},
		&JobCard{},
		&Review{},
		&ContactRecommendation{},
	}
}

// AutoMigrate creates or updates every table and index.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(All()...)
}
