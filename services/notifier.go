package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kendall-kelly/home-services-api/metrics"
	"github.com/kendall-kelly/home-services-api/models"
)

// BookingData is the payload pushed to providers about a new service request.
type BookingData struct {
	ID               string    `json:"id"`
	ServiceRequestID string    `json:"serviceRequestId"`
	ConsultationID   string    `json:"consultationId"`
	CustomerID       string    `json:"customerId"`
	CustomerName     string    `json:"customerName"`
	CustomerPhone    string    `json:"customerPhone"`
	ServiceType      string    `json:"serviceType"`
	Problem          string    `json:"problem"`
	Address          string    `json:"address"`
	Pincode          string    `json:"pincode"`
	Status           string    `json:"status"`
	CreatedAt        time.Time `json:"createdAt"`
}

// NewBookingData builds the normalized payload for req.
func NewBookingData(req *models.ServiceRequest) BookingData {
	name := req.CustomerName
	if name == "" {
		name = "Customer"
	}
	return BookingData{
		ID:               req.ID,
		ServiceRequestID: req.ID,
		ConsultationID:   req.ConsultationID,
		CustomerID:       req.CustomerID,
		CustomerName:     name,
		CustomerPhone:    req.CustomerPhone,
		ServiceType:      req.ServiceType,
		Problem:          req.Problem,
		Address:          req.CustomerAddress.Address,
		Pincode:          req.CustomerAddress.Pincode,
		Status:           req.Status,
		CreatedAt:        req.CreatedAt,
	}
}

// Notifier delivers one booking notification to one provider.
type Notifier interface {
	NotifyProvider(ctx context.Context, providerID string, booking BookingData) error
}

// HTTPNotifier posts to the real-time notification service.
type HTTPNotifier struct {
	baseURL    string
	httpClient *http.Client
}

func NewHTTPNotifier(baseURL string, client *http.Client) *HTTPNotifier {
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPNotifier{baseURL: baseURL, httpClient: client}
}

type emitBookingRequest struct {
	ProviderID  string      `json:"providerId"`
	BookingData BookingData `json:"bookingData"`
}

func (n *HTTPNotifier) NotifyProvider(ctx context.Context, providerID string, booking BookingData) error {
	body, err := json.Marshal(emitBookingRequest{ProviderID: providerID, BookingData: booking})
	if err != nil {
		return fmt.Errorf("failed to encode booking: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.baseURL+"/emit-booking", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call notification service: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("notification service returned status %d: %s", resp.StatusCode, string(msg))
	}
	return nil
}

// CandidateFinder resolves the providers to notify for a service type.
type CandidateFinder interface {
	Candidates(ctx context.Context, serviceType string) ([]models.Provider, error)
}

// FanOut notifies every matching provider about a new service request.
// Delivery runs on the task runner so the create call never waits for it.
type FanOut struct {
	finder      CandidateFinder
	notifier    Notifier
	runner      *TaskRunner
	timeout     time.Duration
	concurrency int
	log         *zap.Logger
	metrics     *metrics.Metrics
}

// NewFanOut returns a fan-out. A nil notifier disables delivery.
func NewFanOut(finder CandidateFinder, notifier Notifier, runner *TaskRunner, timeout time.Duration, concurrency int, log *zap.Logger, m *metrics.Metrics) *FanOut {
	if log == nil {
		log = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if concurrency <= 0 {
		concurrency = 8
	}
	return &FanOut{
		finder:      finder,
		notifier:    notifier,
		runner:      runner,
		timeout:     timeout,
		concurrency: concurrency,
		log:         log,
		metrics:     m,
	}
}

// ServiceRequestCreated schedules notifications for req and returns immediately.
func (f *FanOut) ServiceRequestCreated(req *models.ServiceRequest) {
	if f == nil || f.notifier == nil || req == nil {
		return
	}
	booking := NewBookingData(req)
	f.runner.Go("notify_providers", 0, func(ctx context.Context) error {
		return f.deliver(ctx, booking)
	})
}

func (f *FanOut) deliver(ctx context.Context, booking BookingData) error {
	findCtx, cancel := context.WithTimeout(ctx, f.timeout)
	providers, err := f.finder.Candidates(findCtx, booking.ServiceType)
	cancel()
	if err != nil {
		return fmt.Errorf("failed to resolve candidate providers: %w", err)
	}

	f.log.Info("notifying providers",
		zap.String("service_request_id", booking.ID),
		zap.String("service_type", booking.ServiceType),
		zap.Int("providers", len(providers)),
	)

	var g errgroup.Group
	g.SetLimit(f.concurrency)
	for _, p := range providers {
		providerID := p.ID
		g.Go(func() error {
			f.notifyOne(ctx, providerID, booking)
			return nil
		})
	}
	return g.Wait()
}

// notifyOne never returns an error so that one recipient cannot cancel another.
func (f *FanOut) notifyOne(ctx context.Context, providerID string, booking BookingData) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	if err := f.notifier.NotifyProvider(ctx, providerID, booking); err != nil {
		f.metrics.NotificationSent("failed")
		f.log.Warn("provider notification failed",
			zap.String("provider_id", providerID),
			zap.String("service_request_id", booking.ID),
			zap.Error(err),
		)
		return
	}
	f.metrics.NotificationSent("sent")
	f.log.Debug("provider notified",
		zap.String("provider_id", providerID),
		zap.String("service_request_id", booking.ID),
	)
}
