package services

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/kendall-kelly/home-services-api/apperrors"
	"github.com/kendall-kelly/home-services-api/models"
	"github.com/kendall-kelly/home-services-api/repository"
	"github.com/kendall-kelly/home-services-api/utils"
)

// ProviderListInput filters the public provider directory.
type ProviderListInput struct {
	ServiceType    string
	City           string
	State          string
	IsOnline       *bool
	MinRating      *float64
	ApprovalStatus string
	Page           repository.Page
}

// ProviderProfileInput carries the self-editable profile fields. Approval
// state and rating are not part of it.
type ProviderProfileInput struct {
	Name              *string         `json:"name"`
	DisplayName       *string         `json:"displayName"`
	Email             *string         `json:"email" validate:"omitempty,email"`
	PhoneNumber       *string         `json:"phoneNumber"`
	Specialization    *string         `json:"specialization"`
	ServiceCategories []string        `json:"serviceCategories" validate:"omitempty,max=20,dive,notblank"`
	Experience        *int            `json:"experience" validate:"omitempty,gte=0,lte=80"`
	ServiceFee        *float64        `json:"serviceFee" validate:"omitempty,gte=0"`
	Location          *models.Address `json:"location"`
	FCMToken          *string         `json:"fcmToken"`
	ProfileImage      *string         `json:"profileImage"`
	Photos            []string        `json:"photos" validate:"omitempty,max=20"`
	IsAvailable       *bool           `json:"isAvailable"`
}

// PresenceInput is a provider's live status update.
type PresenceInput struct {
	IsOnline        *bool            `json:"isOnline"`
	IsAvailable     *bool            `json:"isAvailable"`
	CurrentLocation *models.GeoPoint `json:"currentLocation"`
}

// ErrStorageUnavailable is returned when document storage is not configured.
var ErrStorageUnavailable = apperrors.New("STORAGE_UNAVAILABLE", http.StatusServiceUnavailable, "Document storage is not configured")

// ProviderService manages provider profiles, presence and approval.
type ProviderService struct {
	providers *repository.ProviderRepository
	documents *DocumentService
	projector *Projector
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewProviderService returns a provider service. documents may be nil.
func NewProviderService(providers *repository.ProviderRepository, documents *DocumentService, projector *Projector, validate *validator.Validate, logger *zap.Logger) *ProviderService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProviderService{
		providers: providers,
		documents: documents,
		projector: projector,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

// List shows approved providers to everyone and any approval state to admins.
func (s *ProviderService) List(ctx context.Context, actor Identity, in ProviderListInput) ([]models.Provider, error) {
	approval := models.ApprovalApproved
	if actor.IsAdmin() {
		approval = in.ApprovalStatus
	}
	if approval != "" && approval != models.ApprovalPending && approval != models.ApprovalApproved && approval != models.ApprovalRejected {
		return nil, apperrors.Validation("Invalid approval status")
	}

	providers, err := s.providers.List(ctx, repository.ProviderFilter{
		ApprovalStatus: approval,
		ServiceType:    in.ServiceType,
		City:           in.City,
		State:          in.State,
		IsOnline:       in.IsOnline,
		MinRating:      in.MinRating,
		Page:           in.Page,
	})
	if err != nil {
		return nil, apperrors.FromError(err)
	}
	if !actor.IsAdmin() {
		for i := range providers {
			providers[i].FCMToken = ""
		}
	}
	return providers, nil
}

// Get returns one provider profile.
func (s *ProviderService) Get(ctx context.Context, actor Identity, id string) (*models.Provider, error) {
	p, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && actor.ID != p.ID {
		p.FCMToken = ""
	}
	return p, nil
}

// UpsertMe creates or updates the caller's provider profile.
func (s *ProviderService) UpsertMe(ctx context.Context, actor Identity, in ProviderProfileInput) (*models.Provider, bool, error) {
	if err := s.validator.Struct(in); err != nil {
		return nil, false, validationError(err)
	}

	_, _, err := s.providers.FindByID(ctx, actor.ID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		p := &models.Provider{
			ID:             actor.ID,
			Name:           firstNonEmpty(deref(in.Name), actor.Name),
			Email:          firstNonEmpty(deref(in.Email), actor.Email),
			PhoneNumber:    firstNonEmpty(deref(in.PhoneNumber), actor.Phone),
			ApprovalStatus: models.ApprovalPending,
			IsAvailable:    true,
		}
		applyProviderProfile(p, in)
		if err := s.providers.Create(ctx, p); err != nil {
			if !apperrors.IsDuplicateKey(err) {
				return nil, false, apperrors.FromError(err)
			}
		} else {
			s.logger.Info("provider profile created", zap.String("provider_id", p.ID))
			return p, true, nil
		}
	} else if err != nil {
		return nil, false, apperrors.FromError(err)
	}

	var patch models.Provider
	columns := applyProviderProfile(&patch, in)
	if err := s.providers.Update(ctx, actor.ID, patch, columns...); err != nil {
		return nil, false, apperrors.FromError(err)
	}
	p, err := s.find(ctx, actor.ID)
	if err != nil {
		return nil, false, err
	}
	return p, false, nil
}

// applyProviderProfile copies the set fields of in onto p and returns their columns.
func applyProviderProfile(p *models.Provider, in ProviderProfileInput) []string {
	var columns []string
	if in.Name != nil {
		p.Name = *in.Name
		columns = append(columns, "name")
	}
	if in.DisplayName != nil {
		p.DisplayName = *in.DisplayName
		columns = append(columns, "display_name")
	}
	if in.Email != nil {
		p.Email = *in.Email
		columns = append(columns, "email")
	}
	if in.PhoneNumber != nil {
		p.PhoneNumber = *in.PhoneNumber
		columns = append(columns, "phone_number")
	}
	if in.Specialization != nil {
		p.Specialization = strings.TrimSpace(*in.Specialization)
		columns = append(columns, "specialization")
	}
	if in.ServiceCategories != nil {
		p.ServiceCategories = in.ServiceCategories
		columns = append(columns, "service_categories")
	}
	if in.Experience != nil {
		p.Experience = *in.Experience
		columns = append(columns, "experience")
	}
	if in.ServiceFee != nil {
		p.ServiceFee = *in.ServiceFee
		columns = append(columns, "service_fee")
	}
	if in.Location != nil {
		p.Location = in.Location
		columns = append(columns, "location")
	}
	if in.FCMToken != nil {
		p.FCMToken = *in.FCMToken
		columns = append(columns, "fcm_token")
	}
	if in.ProfileImage != nil {
		p.ProfileImage = *in.ProfileImage
		columns = append(columns, "profile_image")
	}
	if in.Photos != nil {
		p.Photos = in.Photos
		columns = append(columns, "photos")
	}
	if in.IsAvailable != nil {
		p.IsAvailable = *in.IsAvailable
		columns = append(columns, "is_available")
	}
	return columns
}

// UpdatePresence stores the caller's online state and mirrors it to the
// live-status projection.
func (s *ProviderService) UpdatePresence(ctx context.Context, actor Identity, in PresenceInput) (*models.Provider, error) {
	p, err := s.find(ctx, actor.ID)
	if err != nil {
		return nil, err
	}

	var patch models.Provider
	var columns []string
	if in.IsOnline != nil {
		patch.IsOnline = *in.IsOnline
		columns = append(columns, "is_online")
	}
	if in.IsAvailable != nil {
		patch.IsAvailable = *in.IsAvailable
		columns = append(columns, "is_available")
	}
	if in.CurrentLocation != nil {
		now := s.now()
		patch.CurrentLocation = in.CurrentLocation
		patch.LastUpdated = &now
		columns = append(columns, "current_location", "last_updated")
	}

	if err := s.providers.Update(ctx, p.ID, patch, columns...); err != nil {
		return nil, apperrors.FromError(err)
	}
	updated, err := s.find(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	s.projector.ProviderPresenceChanged(updated)
	return updated, nil
}

// SetApproval records an admin approval decision. Rejection needs a reason.
func (s *ProviderService) SetApproval(ctx context.Context, actor Identity, id, status, reason string) (*models.Provider, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.Forbidden("Admin access required").WithKey("common.forbidden")
	}
	switch status {
	case models.ApprovalPending, models.ApprovalApproved:
		reason = ""
	case models.ApprovalRejected:
		reason = strings.TrimSpace(reason)
		if reason == "" {
			return nil, apperrors.Validation("A rejection reason is required")
		}
	default:
		return nil, apperrors.Validation("Invalid approval status")
	}

	p, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.providers.SetApproval(ctx, p.ID, status, reason, actor.ID, s.now()); err != nil {
		return nil, apperrors.FromError(err)
	}

	s.logger.Info("provider approval changed",
		zap.String("provider_id", p.ID),
		zap.String("from", p.ApprovalStatus),
		zap.String("to", status),
		zap.String("admin_id", actor.ID),
	)
	return s.find(ctx, p.ID)
}

// UploadDocument stores a verification document for the caller and resets
// that document's review state. It returns the profile and a temporary URL.
func (s *ProviderService) UploadDocument(ctx context.Context, actor Identity, kind string, fileHeader *multipart.FileHeader) (*models.Provider, string, error) {
	if kind != models.DocumentIDProof && kind != models.DocumentAddressProof && kind != models.DocumentCertificate {
		return nil, "", apperrors.Validation("Unknown document kind: " + kind)
	}
	if s.documents == nil {
		return nil, "", ErrStorageUnavailable
	}

	p, err := s.find(ctx, actor.ID)
	if err != nil {
		return nil, "", err
	}

	key, err := s.documents.Upload(ctx, p.ID, kind, fileHeader)
	if err != nil {
		var fileErr *utils.FileUploadError
		if errors.As(err, &fileErr) {
			return nil, "", apperrors.New(fileErr.Code, http.StatusBadRequest, fileErr.Message)
		}
		return nil, "", apperrors.Internal(err)
	}

	docs := p.Documents
	previous := docs.Key(kind)
	docs.SetKey(kind, key)
	if err := s.providers.Update(ctx, p.ID, models.Provider{Documents: docs}, "documents"); err != nil {
		_ = s.documents.Delete(ctx, key)
		return nil, "", apperrors.FromError(err)
	}
	if previous != "" && previous != key {
		if err := s.documents.Delete(ctx, previous); err != nil {
			s.logger.Warn("failed to delete replaced document", zap.String("key", previous), zap.Error(err))
		}
	}

	url, err := s.documents.URL(ctx, key)
	if err != nil {
		s.logger.Warn("failed to presign document url", zap.String("key", key), zap.Error(err))
	}
	updated, err := s.find(ctx, p.ID)
	if err != nil {
		return nil, "", err
	}
	return updated, url, nil
}

func (s *ProviderService) find(ctx context.Context, id string) (*models.Provider, error) {
	p, _, err := s.providers.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("Provider not found")
	}
	if err != nil {
		return nil, apperrors.FromError(err)
	}
	return p, nil
}
