package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/kendall-kelly/home-services-api/apperrors"
	"github.com/kendall-kelly/home-services-api/metrics"
	"github.com/kendall-kelly/home-services-api/models"
	"github.com/kendall-kelly/home-services-api/repository"
	"github.com/kendall-kelly/home-services-api/utils"
)

const defaultRejectionReason = "Provider rejected the service request"

// CreateServiceRequestInput is the customer payload for a new request.
type CreateServiceRequestInput struct {
	// DocumentID is the "_id" older clients send; it wins over ID.
	DocumentID           string                 `json:"_id"`
	ID                   string                 `json:"id"`
	CustomerName         string                 `json:"customerName"`
	CustomerPhone        string                 `json:"customerPhone"`
	CustomerAddress      *models.Address        `json:"customerAddress"`
	ServiceType          string                 `json:"serviceType"`
	Problem              string                 `json:"problem"`
	Urgency              string                 `json:"urgency" validate:"omitempty,oneof=immediate scheduled"`
	ScheduledTime        *time.Time             `json:"scheduledTime"`
	QuestionnaireAnswers map[string]interface{} `json:"questionnaireAnswers"`
	Photos               []string               `json:"photos" validate:"max=10"`
}

// UpdateServiceRequestInput carries the fields a customer may change. Nil means unchanged.
type UpdateServiceRequestInput struct {
	CustomerName         *string                `json:"customerName"`
	CustomerPhone        *string                `json:"customerPhone"`
	CustomerAddress      *models.Address        `json:"customerAddress"`
	ServiceType          *string                `json:"serviceType"`
	Problem              *string                `json:"problem"`
	Urgency              *string                `json:"urgency" validate:"omitempty,oneof=immediate scheduled"`
	ScheduledTime        *time.Time             `json:"scheduledTime"`
	QuestionnaireAnswers map[string]interface{} `json:"questionnaireAnswers"`
	Photos               []string               `json:"photos" validate:"omitempty,max=10"`
}

// ProviderDetails is the snapshot a provider supplies when accepting.
// Missing values fall back to the caller's identity.
type ProviderDetails struct {
	ProviderName           string          `json:"providerName"`
	ProviderPhone          string          `json:"providerPhone"`
	ProviderEmail          string          `json:"providerEmail"`
	ProviderSpecialization string          `json:"providerSpecialization"`
	ProviderRating         *float64        `json:"providerRating" validate:"omitempty,gte=0,lte=5"`
	ProviderImage          string          `json:"providerImage"`
	ProviderAddress        *models.Address `json:"providerAddress"`
}

// ServiceRequestListInput filters a role-scoped list.
type ServiceRequestListInput struct {
	Status string
	Page   repository.Page
}

// ServiceRequestService owns the service request lifecycle.
type ServiceRequestService struct {
	requests  *repository.ServiceRequestRepository
	fanOut    *FanOut
	validator *validator.Validate
	logger    *zap.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

func NewServiceRequestService(requests *repository.ServiceRequestRepository, fanOut *FanOut, validate *validator.Validate, logger *zap.Logger, m *metrics.Metrics) *ServiceRequestService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ServiceRequestService{
		requests:  requests,
		fanOut:    fanOut,
		validator: validate,
		logger:    logger,
		metrics:   m,
		now:       time.Now,
	}
}

// Create stores a pending request for the acting customer and schedules
// provider notifications without waiting for them.
func (s *ServiceRequestService) Create(ctx context.Context, actor Identity, in CreateServiceRequestInput) (*models.ServiceRequest, error) {
	if in.CustomerAddress == nil ||
		strings.TrimSpace(in.CustomerAddress.Address) == "" ||
		strings.TrimSpace(in.CustomerAddress.Pincode) == "" {
		return nil, apperrors.Validation("Invalid address. Address and pincode are required").
			WithKey("serviceRequests.invalidAddress")
	}
	if strings.TrimSpace(in.ServiceType) == "" {
		return nil, apperrors.Validation("Service type is required").
			WithKey("serviceRequests.serviceTypeRequired")
	}
	if err := s.validator.Struct(in); err != nil {
		return nil, validationError(err)
	}

	id := firstNonEmpty(strings.TrimSpace(in.DocumentID), strings.TrimSpace(in.ID))
	if id == "" {
		id = utils.NewDocumentID()
	}

	req := &models.ServiceRequest{
		ID:                   id,
		ConsultationID:       id,
		CustomerID:           actor.ID,
		CustomerName:         firstNonEmpty(in.CustomerName, actor.Name),
		CustomerPhone:        firstNonEmpty(in.CustomerPhone, actor.Phone),
		CustomerAddress:      *in.CustomerAddress,
		ServiceType:          strings.TrimSpace(in.ServiceType),
		Problem:              in.Problem,
		Status:               models.StatusPending,
		Urgency:              firstNonEmpty(in.Urgency, models.UrgencyImmediate),
		ScheduledTime:        in.ScheduledTime,
		QuestionnaireAnswers: in.QuestionnaireAnswers,
		Photos:               in.Photos,
	}

	if err := s.requests.Create(ctx, req); err != nil {
		return nil, apperrors.FromError(err)
	}

	s.metrics.Transition("service_request", models.StatusPending)
	s.logger.Info("service request created",
		zap.String("service_request_id", req.ID),
		zap.String("customer_id", req.CustomerID),
		zap.String("service_type", req.ServiceType),
	)

	s.fanOut.ServiceRequestCreated(req)
	return req, nil
}

// Accept assigns the request to the acting provider. The second return value
// is true when the same provider had already accepted, in which case nothing
// is written.
func (s *ServiceRequestService) Accept(ctx context.Context, actor Identity, id string, details ProviderDetails) (*models.ServiceRequest, bool, error) {
	if err := s.validator.Struct(details); err != nil {
		return nil, false, validationError(err)
	}

	req, err := s.find(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if err := checkAcceptable(req, actor.ID); err != nil {
		return nil, false, err
	}
	if req.IsAssignedTo(actor.ID) && req.Status == models.StatusAccepted {
		return req, true, nil
	}

	now := s.now()
	patch := models.ServiceRequest{
		Status:                 models.StatusAccepted,
		ProviderID:             actor.ID,
		ProviderName:           firstNonEmpty(details.ProviderName, actor.Name, "Provider"),
		ProviderPhone:          firstNonEmpty(details.ProviderPhone, actor.Phone),
		ProviderEmail:          firstNonEmpty(details.ProviderEmail, actor.Email),
		ProviderSpecialization: details.ProviderSpecialization,
		ProviderImage:          details.ProviderImage,
		ProviderAddress:        details.ProviderAddress,
		AcceptedAt:             &now,
	}
	if details.ProviderRating != nil {
		patch.ProviderRating = *details.ProviderRating
	}

	ok, err := s.requests.AssignProvider(ctx, req.ID, patch)
	if err != nil {
		return nil, false, apperrors.FromError(err)
	}
	if !ok {
		// Lost the race. Classify against what is stored now.
		current, err := s.requests.Get(ctx, req.ID)
		if err != nil {
			return nil, false, apperrors.FromError(err)
		}
		if err := checkAcceptable(current, actor.ID); err != nil {
			return nil, false, err
		}
		if current.IsAssignedTo(actor.ID) && current.Status == models.StatusAccepted {
			return current, true, nil
		}
		return nil, false, apperrors.Conflict("Service request was modified concurrently").
			WithKey("serviceRequests.alreadyAssigned")
	}

	s.metrics.Transition("service_request", models.StatusAccepted)
	s.logger.Info("service request accepted",
		zap.String("service_request_id", req.ID),
		zap.String("provider_id", actor.ID),
	)

	updated, err := s.requests.Get(ctx, req.ID)
	if err != nil {
		return nil, false, apperrors.FromError(err)
	}
	return updated, false, nil
}

// checkAcceptable returns the error accept must report for req, or nil when
// providerID may accept it or has already done so.
func checkAcceptable(req *models.ServiceRequest, providerID string) error {
	if req.ProviderID != "" && req.ProviderID != providerID {
		return apperrors.Conflict("This service request has already been assigned to another provider").
			WithKey("serviceRequests.alreadyAssigned")
	}
	if req.IsAssignedTo(providerID) && req.Status == models.StatusAccepted {
		return nil
	}
	if req.Status != models.StatusPending {
		return notPending(req.Status, "accepted")
	}
	return nil
}

func notPending(status, action string) error {
	return apperrors.InvalidState("Cannot "+strings.TrimSuffix(action, "ed")+" service request with status: "+status).
		WithKey("serviceRequests.notPending").
		WithParams(map[string]string{"status": status, "action": action})
}

// Reject declines a pending request. No provider is assigned.
func (s *ServiceRequestService) Reject(ctx context.Context, actor Identity, id, reason string) (*models.ServiceRequest, error) {
	req, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Status != models.StatusPending {
		return nil, notPending(req.Status, "rejected")
	}

	now := s.now()
	patch := models.ServiceRequest{
		Status:          models.StatusRejected,
		RejectionReason: firstNonEmpty(strings.TrimSpace(reason), defaultRejectionReason),
		RejectedBy:      actor.ID,
		RejectedAt:      &now,
	}
	ok, err := s.requests.Transition(ctx, req.ID, []string{models.StatusPending}, patch,
		"status", "rejection_reason", "rejected_by", "rejected_at")
	if err != nil {
		return nil, apperrors.FromError(err)
	}
	if !ok {
		return nil, s.reclassify(ctx, req.ID, "rejected")
	}

	s.metrics.Transition("service_request", models.StatusRejected)
	s.logger.Info("service request rejected",
		zap.String("service_request_id", req.ID),
		zap.String("provider_id", actor.ID),
	)
	return s.reload(ctx, req.ID)
}

// Cancel is the owning customer's exit from any non-terminal state.
func (s *ServiceRequestService) Cancel(ctx context.Context, actor Identity, id, reason string) (*models.ServiceRequest, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperrors.Validation("Cancellation reason is required").
			WithKey("serviceRequests.cancellationReasonRequired")
	}

	req, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.CustomerID != actor.ID {
		return nil, apperrors.Forbidden("You can only cancel your own service requests").
			WithKey("common.forbidden")
	}
	if err := checkCancellable(req.Status); err != nil {
		return nil, err
	}

	now := s.now()
	patch := models.ServiceRequest{
		Status:             models.StatusCancelled,
		CancellationReason: reason,
		CancelledAt:        &now,
	}
	from := []string{models.StatusPending, models.StatusAccepted, models.StatusInProgress}
	ok, err := s.requests.Transition(ctx, req.ID, from, patch, "status", "cancellation_reason", "cancelled_at")
	if err != nil {
		return nil, apperrors.FromError(err)
	}
	if !ok {
		current, err := s.requests.Get(ctx, req.ID)
		if err != nil {
			return nil, apperrors.FromError(err)
		}
		if err := checkCancellable(current.Status); err != nil {
			return nil, err
		}
		return nil, apperrors.Conflict("Service request was modified concurrently")
	}

	s.metrics.Transition("service_request", models.StatusCancelled)
	s.logger.Info("service request cancelled",
		zap.String("service_request_id", req.ID),
		zap.String("customer_id", actor.ID),
	)
	return s.reload(ctx, req.ID)
}

func checkCancellable(status string) error {
	if status == models.StatusCancelled {
		return apperrors.InvalidState("Service request is already cancelled").
			WithKey("serviceRequests.alreadyCancelled")
	}
	if models.IsTerminalServiceRequestStatus(status) {
		return apperrors.InvalidState("Service request is "+status+" and cannot be cancelled").
			WithKey("serviceRequests.cannotCancel").
			WithParams(map[string]string{"status": status})
	}
	return nil
}

// Advance moves an accepted request forward for its assigned provider.
func (s *ServiceRequestService) Advance(ctx context.Context, actor Identity, id, status string) (*models.ServiceRequest, error) {
	if status != models.StatusInProgress && status != models.StatusCompleted {
		return nil, apperrors.Validation("Status must be in-progress or completed")
	}

	req, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !req.IsAssignedTo(actor.ID) {
		return nil, apperrors.Forbidden("This service request is not assigned to you").
			WithKey("common.forbidden")
	}
	if !models.CanTransitionServiceRequest(req.Status, status) {
		return nil, apperrors.InvalidState("Cannot move service request from " + req.Status + " to " + status)
	}

	patch := models.ServiceRequest{Status: status}
	columns := []string{"status"}
	if status == models.StatusCompleted {
		now := s.now()
		patch.CompletedAt = &now
		columns = append(columns, "completed_at")
	}

	ok, err := s.requests.Transition(ctx, req.ID, []string{req.Status}, patch, columns...)
	if err != nil {
		return nil, apperrors.FromError(err)
	}
	if !ok {
		return nil, apperrors.Conflict("Service request was modified concurrently")
	}

	s.metrics.Transition("service_request", status)
	s.logger.Info("service request advanced",
		zap.String("service_request_id", req.ID),
		zap.String("provider_id", actor.ID),
		zap.String("status", status),
	)
	return s.reload(ctx, req.ID)
}

// Update patches the customer-editable fields of the caller's own request.
func (s *ServiceRequestService) Update(ctx context.Context, actor Identity, id string, in UpdateServiceRequestInput) (*models.ServiceRequest, error) {
	if err := s.validator.Struct(in); err != nil {
		return nil, validationError(err)
	}

	req, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.CustomerID != actor.ID {
		return nil, apperrors.Forbidden("You can only update your own service requests").
			WithKey("common.forbidden")
	}
	if models.IsTerminalServiceRequestStatus(req.Status) {
		return nil, apperrors.InvalidState("Service request is " + req.Status + " and can no longer be changed")
	}

	var patch models.ServiceRequest
	var columns []string
	if in.CustomerName != nil {
		patch.CustomerName = *in.CustomerName
		columns = append(columns, "customer_name")
	}
	if in.CustomerPhone != nil {
		patch.CustomerPhone = *in.CustomerPhone
		columns = append(columns, "customer_phone")
	}
	if in.CustomerAddress != nil {
		if strings.TrimSpace(in.CustomerAddress.Address) == "" || strings.TrimSpace(in.CustomerAddress.Pincode) == "" {
			return nil, apperrors.Validation("Invalid address. Address and pincode are required").
				WithKey("serviceRequests.invalidAddress")
		}
		patch.CustomerAddress = *in.CustomerAddress
		columns = append(columns, "customer_address")
	}
	if in.ServiceType != nil {
		if strings.TrimSpace(*in.ServiceType) == "" {
			return nil, apperrors.Validation("Service type is required").
				WithKey("serviceRequests.serviceTypeRequired")
		}
		patch.ServiceType = strings.TrimSpace(*in.ServiceType)
		columns = append(columns, "service_type")
	}
	if in.Problem != nil {
		patch.Problem = *in.Problem
		columns = append(columns, "problem")
	}
	if in.Urgency != nil {
		patch.Urgency = *in.Urgency
		columns = append(columns, "urgency")
	}
	if in.ScheduledTime != nil {
		patch.ScheduledTime = in.ScheduledTime
		columns = append(columns, "scheduled_time")
	}
	if in.QuestionnaireAnswers != nil {
		patch.QuestionnaireAnswers = in.QuestionnaireAnswers
		columns = append(columns, "questionnaire_answers")
	}
	if in.Photos != nil {
		patch.Photos = in.Photos
		columns = append(columns, "photos")
	}

	// updatedAt is stamped even when nothing else changed.
	if err := s.requests.Update(ctx, req.ID, patch, columns...); err != nil {
		return nil, apperrors.FromError(err)
	}
	return s.reload(ctx, req.ID)
}

// GetForCustomer returns one of the caller's own requests.
func (s *ServiceRequestService) GetForCustomer(ctx context.Context, actor Identity, id string) (*models.ServiceRequest, error) {
	req, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.CustomerID != actor.ID && !actor.IsAdmin() {
		return nil, apperrors.Forbidden("You can only view your own service requests").
			WithKey("common.forbidden")
	}
	return req, nil
}

// Get returns any request. Providers browse open requests before accepting.
func (s *ServiceRequestService) Get(ctx context.Context, id string) (*models.ServiceRequest, error) {
	return s.find(ctx, id)
}

// ListForCustomer returns the caller's requests, newest first.
func (s *ServiceRequestService) ListForCustomer(ctx context.Context, actor Identity, in ServiceRequestListInput) ([]models.ServiceRequest, int64, error) {
	items, total, err := s.requests.List(ctx, repository.ServiceRequestFilter{
		CustomerID: actor.ID,
		Status:     in.Status,
		Page:       in.Page,
	})
	if err != nil {
		return nil, 0, apperrors.FromError(err)
	}
	return items, total, nil
}

// ListForProvider returns requests assigned to the caller, or the open
// pending pool when status is pending.
func (s *ServiceRequestService) ListForProvider(ctx context.Context, actor Identity, in ServiceRequestListInput) ([]models.ServiceRequest, int64, error) {
	filter := repository.ServiceRequestFilter{ProviderID: actor.ID, Status: in.Status, Page: in.Page}
	if in.Status == models.StatusPending {
		filter.ProviderID = ""
	}
	items, total, err := s.requests.List(ctx, filter)
	if err != nil {
		return nil, 0, apperrors.FromError(err)
	}
	return items, total, nil
}

func (s *ServiceRequestService) find(ctx context.Context, id string) (*models.ServiceRequest, error) {
	req, strategy, err := s.requests.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("Service request not found").WithKey("serviceRequests.notFound")
	}
	if err != nil {
		return nil, apperrors.FromError(err)
	}
	if strategy != repository.ByPrimaryID.Name {
		s.logger.Debug("service request resolved by fallback lookup",
			zap.String("id", id),
			zap.String("strategy", strategy),
		)
	}
	return req, nil
}

func (s *ServiceRequestService) reload(ctx context.Context, id string) (*models.ServiceRequest, error) {
	req, err := s.requests.Get(ctx, id)
	if err != nil {
		return nil, apperrors.FromError(err)
	}
	return req, nil
}

func (s *ServiceRequestService) reclassify(ctx context.Context, id, action string) error {
	current, err := s.requests.Get(ctx, id)
	if err != nil {
		return apperrors.FromError(err)
	}
	if current.Status != models.StatusPending {
		return notPending(current.Status, action)
	}
	return apperrors.Conflict("Service request was modified concurrently")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
