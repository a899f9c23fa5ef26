package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kendall-kelly/home-services-api/models"
)

// bookingSink is a stand-in for the real-time notification service.
type bookingSink struct {
	mu        sync.Mutex
	received  map[string]emitBookingRequest
	gate      chan struct{}
	failFor   string
	stallFor  string
	delivered []string
}

func newBookingSink() *bookingSink {
	return &bookingSink{received: map[string]emitBookingRequest{}, gate: make(chan struct{})}
}

func (s *bookingSink) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/emit-booking" || r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var body emitBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.received[body.ProviderID] = body
	s.mu.Unlock()

	select {
	case <-s.gate:
	case <-r.Context().Done():
		return
	}

	switch body.ProviderID {
	case s.failFor:
		http.Error(w, "socket not connected", http.StatusInternalServerError)
	case s.stallFor:
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	default:
		s.mu.Lock()
		s.delivered = append(s.delivered, body.ProviderID)
		s.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}
}

func seedCandidate(t *testing.T, f *fixture, id string, online bool, approval string) {
	t.Helper()
	require.NoError(t, f.store.Providers.Create(context.Background(), &models.Provider{
		ID:                id,
		Name:              id,
		ServiceCategories: []string{"Plumbing"},
		ApprovalStatus:    approval,
		IsOnline:          online,
		IsAvailable:       true,
	}))
}

func TestFanOutIsolatesRecipientFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	seedCandidate(t, f, "prov-a", true, models.ApprovalApproved)
	seedCandidate(t, f, "prov-b", true, models.ApprovalApproved)
	seedCandidate(t, f, "prov-c", true, models.ApprovalApproved)
	seedCandidate(t, f, "prov-offline", false, models.ApprovalApproved)
	seedCandidate(t, f, "prov-unapproved", true, models.ApprovalPending)

	sink := newBookingSink()
	sink.failFor = "prov-b"
	sink.stallFor = "prov-c"
	server := httptest.NewServer(sink)
	t.Cleanup(server.Close)

	core, logs := observer.New(zap.WarnLevel)
	fanOut := NewFanOut(f.store.Providers, NewHTTPNotifier(server.URL, server.Client()), f.runner, 200*time.Millisecond, 2, zap.New(core), nil)
	requests := NewServiceRequestService(f.store.ServiceRequests, fanOut, nil, nil, nil)

	in := validRequestInput()
	in.ServiceType = "plumbing"
	req, err := requests.Create(ctx, customer, in)
	require.NoError(t, err, "create must not wait on notification delivery")
	assert.Equal(t, models.StatusPending, req.Status)

	close(sink.gate)
	waitRunner(t, f.runner)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.Len(t, sink.received, 3)
	assert.Contains(t, sink.received, "prov-a")
	assert.NotContains(t, sink.received, "prov-offline")
	assert.NotContains(t, sink.received, "prov-unapproved")
	assert.Equal(t, []string{"prov-a"}, sink.delivered)

	booking := sink.received["prov-a"].BookingData
	assert.Equal(t, req.ID, booking.ServiceRequestID)
	assert.Equal(t, "Asha", booking.CustomerName)
	assert.Equal(t, "411001", booking.Pincode)

	assert.Equal(t, 2, logs.FilterMessage("provider notification failed").Len())
}

func TestFanOutWithoutNotifierIsNoop(t *testing.T) {
	f := newFixture(t)
	requests := NewServiceRequestService(f.store.ServiceRequests, NewFanOut(f.store.Providers, nil, f.runner, 0, 0, nil, nil), nil, nil, nil)

	_, err := requests.Create(context.Background(), customer, validRequestInput())
	require.NoError(t, err)
	waitRunner(t, f.runner)
}

func TestHTTPNotifierReportsNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("provider offline"))
	}))
	t.Cleanup(server.Close)

	err := NewHTTPNotifier(server.URL, nil).NotifyProvider(context.Background(), "prov-1", BookingData{ID: "sr-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
	assert.Contains(t, err.Error(), "provider offline")
}

func TestNewBookingDataDefaultsCustomerName(t *testing.T) {
	booking := NewBookingData(&models.ServiceRequest{
		ID:              "sr-1",
		ConsultationID:  "sr-1",
		ServiceType:     "plumbing",
		CustomerAddress: models.Address{Address: "12 MG Road", Pincode: "411001"},
		Status:          models.StatusPending,
	})
	assert.Equal(t, "Customer", booking.CustomerName)
	assert.Equal(t, "12 MG Road", booking.Address)
	assert.Equal(t, "sr-1", booking.ServiceRequestID)
}
