package models

import (
	"strings"
	"time"
)

const (
	ApprovalPending  = "pending"
	ApprovalApproved = "approved"
	ApprovalRejected = "rejected"
)

// Document kinds a provider can upload for verification.
const (
	DocumentIDProof      = "idProof"
	DocumentAddressProof = "addressProof"
	DocumentCertificate  = "certificate"
)

// ProviderDocuments holds storage keys and review state for verification documents.
type ProviderDocuments struct {
	IDProof                     string `json:"idProof,omitempty"`
	AddressProof                string `json:"addressProof,omitempty"`
	Certificate                 string `json:"certificate,omitempty"`
	IDProofVerified             bool   `json:"idProofVerified"`
	IDProofRejected             bool   `json:"idProofRejected"`
	IDProofRejectionReason      string `json:"idProofRejectionReason,omitempty"`
	AddressProofVerified        bool   `json:"addressProofVerified"`
	AddressProofRejected        bool   `json:"addressProofRejected"`
	AddressProofRejectionReason string `json:"addressProofRejectionReason,omitempty"`
	CertificateVerified         bool   `json:"certificateVerified"`
	CertificateRejected         bool   `json:"certificateRejected"`
	CertificateRejectionReason  string `json:"certificateRejectionReason,omitempty"`
}

// SetKey stores key against kind and clears that document's review state.
func (d *ProviderDocuments) SetKey(kind, key string) bool {
	switch kind {
	case DocumentIDProof:
		d.IDProof, d.IDProofVerified, d.IDProofRejected, d.IDProofRejectionReason = key, false, false, ""
	case DocumentAddressProof:
		d.AddressProof, d.AddressProofVerified, d.AddressProofRejected, d.AddressProofRejectionReason = key, false, false, ""
	case DocumentCertificate:
		d.Certificate, d.CertificateVerified, d.CertificateRejected, d.CertificateRejectionReason = key, false, false, ""
	default:
		return false
	}
	return true
}

// Key returns the stored key for kind.
func (d ProviderDocuments) Key(kind string) string {
	switch kind {
	case DocumentIDProof:
		return d.IDProof
	case DocumentAddressProof:
		return d.AddressProof
	case DocumentCertificate:
		return d.Certificate
	}
	return ""
}

// Provider is the business profile of a user with the provider role.
// Rating and TotalReviews are derived from reviews and never written by clients.
type Provider struct {
	ID                string            `gorm:"primaryKey" json:"id"`
	Name              string            `json:"name,omitempty"`
	DisplayName       string            `json:"displayName,omitempty"`
	Email             string            `json:"email,omitempty"`
	PhoneNumber       string            `json:"phoneNumber,omitempty"`
	Specialization    string            `json:"specialization,omitempty"`
	ServiceCategories []string          `gorm:"serializer:json" json:"serviceCategories"`
	Experience        int               `json:"experience,omitempty"`
	ServiceFee        float64           `json:"serviceFee,omitempty"`
	ApprovalStatus    string            `gorm:"not null;default:'pending';index" json:"approvalStatus"`
	RejectionReason   string            `json:"rejectionReason,omitempty"`
	ApprovedBy        string            `json:"approvedBy,omitempty"`
	ApprovedAt        *time.Time        `json:"approvedAt,omitempty"`
	Verified          bool              `json:"verified"`
	Rating            float64           `gorm:"not null;default:0;index" json:"rating"`
	TotalReviews      int               `gorm:"not null;default:0" json:"totalReviews"`
	IsOnline          bool              `gorm:"index" json:"isOnline"`
	IsAvailable       bool              `json:"isAvailable"`
	Location          *Address          `gorm:"serializer:json" json:"location,omitempty"`
	City              string            `gorm:"index" json:"-"` // copied from Location for filtering
	State             string            `gorm:"index" json:"-"`
	CurrentLocation   *GeoPoint         `gorm:"serializer:json" json:"currentLocation,omitempty"`
	FCMToken          string            `gorm:"column:fcm_token" json:"fcmToken,omitempty"`
	ProfileImage      string            `json:"profileImage,omitempty"`
	Documents         ProviderDocuments `gorm:"serializer:json" json:"documents"`
	Photos            []string          `gorm:"serializer:json" json:"photos"`
	LastUpdated       *time.Time        `json:"lastUpdated,omitempty"`
	CreatedAt         time.Time         `json:"createdAt"`
	UpdatedAt         time.Time         `json:"updatedAt"`
}

// TableName specifies the table name for the Provider model
func (Provider) TableName() string {
	return "providers"
}

// DisplayLabel returns the best human-readable name for the provider.
func (p Provider) DisplayLabel() string {
	if p.Name != "" {
		return p.Name
	}
	return p.DisplayName
}

// Serves reports whether the provider offers serviceType, either through a
// listed category or its specialization. Matching is case-insensitive.
func (p Provider) Serves(serviceType string) bool {
	want := strings.TrimSpace(serviceType)
	if want == "" {
		return false
	}
	for _, c := range p.ServiceCategories {
		if strings.EqualFold(strings.TrimSpace(c), want) {
			return true
		}
	}
	return strings.EqualFold(strings.TrimSpace(p.Specialization), want)
}

// SyncLocationIndex copies the city/state used by list filters out of Location.
func (p *Provider) SyncLocationIndex() {
	if p.Location == nil {
		p.City, p.State = "", ""
		return
	}
	p.City = strings.ToLower(strings.TrimSpace(p.Location.City))
	p.State = strings.ToLower(strings.TrimSpace(p.Location.State))
}
