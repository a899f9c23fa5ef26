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

// CreateJobCardInput is the payload for a new job card. ProviderID is only
// read when an admin creates the card on a provider's behalf.
type CreateJobCardInput struct {
	ProviderID      string          `json:"providerId"`
	ProviderName    string          `json:"providerName"`
	ProviderAddress *models.Address `json:"providerAddress"`
	CustomerID      string          `json:"customerId" validate:"required,notblank"`
	CustomerName    string          `json:"customerName"`
	CustomerPhone   string          `json:"customerPhone"`
	CustomerAddress *models.Address `json:"customerAddress"`
	ServiceType     string          `json:"serviceType" validate:"required,notblank"`
	Problem         string          `json:"problem"`
	BookingID       string          `json:"bookingId"`
	TaskPIN         string          `json:"taskPIN" validate:"omitempty,numeric,min=4,max=8"`
	ScheduledTime   *time.Time      `json:"scheduledTime"`
}

// JobCardStatusInput changes a card's status, its PIN, or both.
type JobCardStatusInput struct {
	Status             string `json:"status"`
	TaskPIN            string `json:"taskPIN" validate:"omitempty,numeric,min=4,max=8"`
	CancellationReason string `json:"cancellationReason"`
}

// AdminJobCardInput carries the descriptive fields an admin may correct. Nil means unchanged.
type AdminJobCardInput struct {
	ProviderName    *string         `json:"providerName"`
	ProviderAddress *models.Address `json:"providerAddress"`
	CustomerName    *string         `json:"customerName"`
	CustomerPhone   *string         `json:"customerPhone"`
	CustomerAddress *models.Address `json:"customerAddress"`
	ServiceType     *string         `json:"serviceType"`
	Problem         *string         `json:"problem"`
	BookingID       *string         `json:"bookingId"`
	ScheduledTime   *time.Time      `json:"scheduledTime"`
}

// JobCardListInput filters a role-scoped list. CustomerID and ProviderID
// are honoured for admins only.
type JobCardListInput struct {
	Status     string
	CustomerID string
	ProviderID string
	Page       repository.Page
}

// JobCardService owns the job card lifecycle.
type JobCardService struct {
	cards     *repository.JobCardRepository
	users     *repository.UserRepository
	projector *Projector
	validator *validator.Validate
	logger    *zap.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

func NewJobCardService(cards *repository.JobCardRepository, users *repository.UserRepository, projector *Projector, validate *validator.Validate, logger *zap.Logger, m *metrics.Metrics) *JobCardService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JobCardService{
		cards:     cards,
		users:     users,
		projector: projector,
		validator: validate,
		logger:    logger,
		metrics:   m,
		now:       time.Now,
	}
}

// Create records work a provider has committed to. Cards start accepted.
func (s *JobCardService) Create(ctx context.Context, actor Identity, in CreateJobCardInput) (*models.JobCard, error) {
	if err := s.validator.Struct(in); err != nil {
		return nil, apperrors.Validation("customerId and serviceType are required").
			WithDetails(validationError(err).Details)
	}

	providerID := actor.ID
	providerName := firstNonEmpty(in.ProviderName, actor.Name)
	if actor.IsAdmin() {
		providerID = strings.TrimSpace(in.ProviderID)
		if providerID == "" {
			return nil, apperrors.Validation("providerId is required when an admin creates a job card")
		}
		providerName = in.ProviderName
	}
	if providerName == "" {
		providerName = s.userLabel(ctx, providerID, "Provider")
	}

	customerID := strings.TrimSpace(in.CustomerID)
	customerName := in.CustomerName
	if customerName == "" {
		customerName = s.userLabel(ctx, customerID, "Customer")
	}

	card := &models.JobCard{
		ID:              utils.NewObjectID(),
		ProviderID:      providerID,
		ProviderName:    providerName,
		ProviderAddress: in.ProviderAddress,
		CustomerID:      customerID,
		CustomerName:    customerName,
		CustomerPhone:   in.CustomerPhone,
		CustomerAddress: in.CustomerAddress,
		ServiceType:     strings.TrimSpace(in.ServiceType),
		Problem:         in.Problem,
		BookingID:       in.BookingID,
		Status:          models.StatusAccepted,
		ScheduledTime:   in.ScheduledTime,
	}
	if in.TaskPIN != "" {
		now := s.now()
		card.TaskPIN = in.TaskPIN
		card.PinGeneratedAt = &now
	}

	if err := s.cards.Create(ctx, card); err != nil {
		return nil, apperrors.FromError(err)
	}

	s.metrics.Transition("job_card", card.Status)
	s.logger.Info("job card created",
		zap.String("job_card_id", card.ID),
		zap.String("provider_id", card.ProviderID),
		zap.String("customer_id", card.CustomerID),
	)
	s.projector.JobCardChanged(card)
	return card, nil
}

// userLabel returns a display name for a stored user, or fallback.
func (s *JobCardService) userLabel(ctx context.Context, id, fallback string) string {
	if s.users == nil || id == "" {
		return fallback
	}
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Warn("failed to load user for job card snapshot", zap.String("user_id", id), zap.Error(err))
		}
		return fallback
	}
	return firstNonEmpty(user.DisplayLabel(), fallback)
}

// UpdateStatus applies a role-gated status and PIN change. Customers may only
// cancel. Completed and cancelled cards are never changed.
func (s *JobCardService) UpdateStatus(ctx context.Context, actor Identity, id string, in JobCardStatusInput) (*models.JobCard, error) {
	change, err := s.checkStatusChange(actor, in)
	if err != nil {
		return nil, err
	}

	card, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canMutateJobCard(actor, card) {
		return nil, apperrors.Forbidden("You do not have permission to update this job card").
			WithKey("common.forbidden")
	}

	patch, columns, err := change.patch(actor, card, s.now())
	if err != nil {
		return nil, err
	}
	return s.writeLive(ctx, actor, card, change, patch, columns)
}

// statusChange is a validated status and/or PIN request.
type statusChange struct {
	status string
	pin    string
	reason string
}

func (c statusChange) empty() bool { return c.status == "" && c.pin == "" }

// checkStatusChange validates in before any lookup. It never touches the store.
func (s *JobCardService) checkStatusChange(actor Identity, in JobCardStatusInput) (statusChange, error) {
	change := statusChange{
		status: strings.TrimSpace(in.Status),
		pin:    strings.TrimSpace(in.TaskPIN),
		reason: strings.TrimSpace(in.CancellationReason),
	}

	if change.empty() {
		return change, apperrors.Validation("status or taskPIN is required").WithKey("jobCards.badRequest")
	}
	if change.status != "" && !models.IsValidJobCardStatus(change.status) {
		return change, apperrors.Validation("Invalid status. Must be one of: " + strings.Join(models.JobCardStatuses, ", ")).
			WithKey("jobCards.invalidStatus")
	}
	if !actor.IsAdmin() && !actor.IsProvider() {
		if change.status != models.StatusCancelled || change.pin != "" {
			return change, apperrors.Forbidden("Customers can only cancel job cards").
				WithKey("jobCards.customerCancelOnly")
		}
	}
	if err := s.validator.Struct(in); err != nil {
		return change, validationError(err)
	}
	if change.status == models.StatusCancelled && change.reason == "" {
		return change, apperrors.Validation("Cancellation reason is required").
			WithKey("jobCards.cancellationReasonRequired")
	}
	return change, nil
}

// patch builds the columns for change against the card as last read.
func (c statusChange) patch(actor Identity, card *models.JobCard, now time.Time) (models.JobCard, []string, error) {
	var patch models.JobCard
	var columns []string
	if card.IsTerminal() {
		return patch, nil, terminalJobCard(card.Status, c.status)
	}

	if c.status != "" {
		patch.Status = c.status
		columns = append(columns, "status")
		switch c.status {
		case models.StatusCancelled:
			patch.CancelledAt = &now
			patch.CancellationReason = c.reason
			patch.CancelledBy = actor.ID
			columns = append(columns, "cancelled_at", "cancellation_reason", "cancelled_by")
		case models.StatusCompleted:
			patch.CompletedAt = &now
			columns = append(columns, "completed_at")
		}
	}
	if c.pin != "" {
		patch.TaskPIN = c.pin
		patch.PinGeneratedAt = &now
		columns = append(columns, "task_pin", "pin_generated_at")
	}
	return patch, columns, nil
}

// writeLive writes patch in one statement that only matches a non-terminal
// card, then reloads it and projects any status change.
func (s *JobCardService) writeLive(ctx context.Context, actor Identity, card *models.JobCard, change statusChange, patch models.JobCard, columns []string) (*models.JobCard, error) {
	ok, err := s.cards.UpdateLive(ctx, card.ID, patch, columns...)
	if err != nil {
		return nil, apperrors.FromError(err)
	}
	if !ok {
		current, err := s.cards.Get(ctx, card.ID)
		if err != nil {
			return nil, apperrors.FromError(err)
		}
		if current.IsTerminal() {
			return nil, terminalJobCard(current.Status, change.status)
		}
		return nil, apperrors.Conflict("Job card was modified concurrently")
	}

	updated, err := s.cards.Get(ctx, card.ID)
	if err != nil {
		return nil, apperrors.FromError(err)
	}

	if change.status != "" && change.status != card.Status {
		s.metrics.Transition("job_card", change.status)
		s.projector.JobCardChanged(updated)
	}
	s.logger.Info("job card updated",
		zap.String("job_card_id", card.ID),
		zap.String("actor_id", actor.ID),
		zap.String("role", actor.Role),
		zap.String("from", card.Status),
		zap.String("to", updated.Status),
		zap.Bool("pin_set", change.pin != ""),
	)
	return updated, nil
}

// Cancel is the customer-facing shortcut for UpdateStatus(cancelled).
func (s *JobCardService) Cancel(ctx context.Context, actor Identity, id, reason string) (*models.JobCard, error) {
	return s.UpdateStatus(ctx, actor, id, JobCardStatusInput{
		Status:             models.StatusCancelled,
		CancellationReason: reason,
	})
}

func canMutateJobCard(actor Identity, card *models.JobCard) bool {
	switch {
	case actor.IsAdmin():
		return true
	case actor.IsProvider():
		return card.ProviderID == actor.ID
	default:
		return card.CustomerID == actor.ID
	}
}

func terminalJobCard(current, requested string) error {
	if requested == models.StatusCancelled {
		if current == models.StatusCancelled {
			return apperrors.InvalidState("Job card is already cancelled").WithKey("jobCards.alreadyCancelled")
		}
		return apperrors.InvalidState("Cannot cancel a completed job").WithKey("jobCards.cannotCancelCompleted")
	}
	return apperrors.InvalidState("Job card is "+current+" and can no longer change status").
		WithKey("jobCards.terminal").
		WithParams(map[string]string{"status": current})
}

// Get returns a card visible to actor.
func (s *JobCardService) Get(ctx context.Context, actor Identity, id string) (*models.JobCard, error) {
	card, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && card.CustomerID != actor.ID && card.ProviderID != actor.ID {
		return nil, apperrors.Forbidden("You do not have access to this job card").
			WithKey("common.forbidden")
	}
	return card, nil
}

// List scopes customers and providers to their own cards.
func (s *JobCardService) List(ctx context.Context, actor Identity, in JobCardListInput) ([]models.JobCard, int64, error) {
	filter := repository.JobCardFilter{Status: in.Status, Page: in.Page}
	switch {
	case actor.IsAdmin():
		filter.CustomerID = in.CustomerID
		filter.ProviderID = in.ProviderID
	case actor.IsProvider():
		filter.ProviderID = actor.ID
	default:
		filter.CustomerID = actor.ID
	}

	items, total, err := s.cards.List(ctx, filter)
	if err != nil {
		return nil, 0, apperrors.FromError(err)
	}
	return items, total, nil
}

// AdminUpdate corrects descriptive fields and optionally applies a status or
// PIN change under the same rules as UpdateStatus. Nothing is written when
// either part is refused.
func (s *JobCardService) AdminUpdate(ctx context.Context, actor Identity, id string, in AdminJobCardInput, statusIn JobCardStatusInput) (*models.JobCard, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.Forbidden("Admin access required").WithKey("common.forbidden")
	}
	var change statusChange
	if strings.TrimSpace(statusIn.Status) != "" || strings.TrimSpace(statusIn.TaskPIN) != "" {
		var err error
		if change, err = s.checkStatusChange(actor, statusIn); err != nil {
			return nil, err
		}
	}
	card, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	var patch models.JobCard
	var columns []string
	if in.ProviderName != nil {
		patch.ProviderName = *in.ProviderName
		columns = append(columns, "provider_name")
	}
	if in.ProviderAddress != nil {
		patch.ProviderAddress = in.ProviderAddress
		columns = append(columns, "provider_address")
	}
	if in.CustomerName != nil {
		patch.CustomerName = *in.CustomerName
		columns = append(columns, "customer_name")
	}
	if in.CustomerPhone != nil {
		patch.CustomerPhone = *in.CustomerPhone
		columns = append(columns, "customer_phone")
	}
	if in.CustomerAddress != nil {
		patch.CustomerAddress = in.CustomerAddress
		columns = append(columns, "customer_address")
	}
	if in.ServiceType != nil {
		if strings.TrimSpace(*in.ServiceType) == "" {
			return nil, apperrors.Validation("serviceType cannot be empty")
		}
		patch.ServiceType = strings.TrimSpace(*in.ServiceType)
		columns = append(columns, "service_type")
	}
	if in.Problem != nil {
		patch.Problem = *in.Problem
		columns = append(columns, "problem")
	}
	if in.BookingID != nil {
		patch.BookingID = *in.BookingID
		columns = append(columns, "booking_id")
	}
	if in.ScheduledTime != nil {
		patch.ScheduledTime = in.ScheduledTime
		columns = append(columns, "scheduled_time")
	}

	if !change.empty() {
		// Field edits and the status change go out as one conditional update,
		// so a refused change leaves the card untouched.
		statusPatch, statusColumns, err := change.patch(actor, card, s.now())
		if err != nil {
			return nil, err
		}
		mergeJobCardStatus(&patch, statusPatch)
		return s.writeLive(ctx, actor, card, change, patch, append(columns, statusColumns...))
	}

	if err := s.cards.Update(ctx, card.ID, patch, columns...); err != nil {
		return nil, apperrors.FromError(err)
	}
	updated, err := s.cards.Get(ctx, card.ID)
	if err != nil {
		return nil, apperrors.FromError(err)
	}
	return updated, nil
}

// mergeJobCardStatus copies the status-owned fields of src into dst.
func mergeJobCardStatus(dst *models.JobCard, src models.JobCard) {
	dst.Status = src.Status
	dst.CancelledAt = src.CancelledAt
	dst.CancellationReason = src.CancellationReason
	dst.CancelledBy = src.CancelledBy
	dst.CompletedAt = src.CompletedAt
	dst.TaskPIN = src.TaskPIN
	dst.PinGeneratedAt = src.PinGeneratedAt
}

// Delete hard-deletes a card. Admin only.
func (s *JobCardService) Delete(ctx context.Context, actor Identity, id string) error {
	if !actor.IsAdmin() {
		return apperrors.Forbidden("Admin access required").WithKey("common.forbidden")
	}
	card, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	deleted, err := s.cards.Delete(ctx, card.ID)
	if err != nil {
		return apperrors.FromError(err)
	}
	if !deleted {
		return apperrors.NotFound("Job card not found").WithKey("jobCards.notFound")
	}
	s.logger.Info("job card deleted", zap.String("job_card_id", card.ID), zap.String("admin_id", actor.ID))
	return nil
}

func (s *JobCardService) find(ctx context.Context, id string) (*models.JobCard, error) {
	card, _, err := s.cards.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("Job card not found").WithKey("jobCards.notFound")
	}
	if err != nil {
		return nil, apperrors.FromError(err)
	}
	return card, nil
}
