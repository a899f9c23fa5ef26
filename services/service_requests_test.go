package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kendall-kelly/home-services-api/apperrors"
	"github.com/kendall-kelly/home-services-api/models"
)

func TestServiceRequestCreate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("defaults from the caller", func(t *testing.T) {
		req, err := f.requests.Create(ctx, customer, validRequestInput())
		require.NoError(t, err)

		assert.Len(t, req.ID, 20)
		assert.Equal(t, req.ID, req.ConsultationID)
		assert.Equal(t, models.StatusPending, req.Status)
		assert.Equal(t, models.UrgencyImmediate, req.Urgency)
		assert.Equal(t, customer.ID, req.CustomerID)
		assert.Equal(t, customer.Name, req.CustomerName)
		assert.Equal(t, customer.Phone, req.CustomerPhone)
		assert.Empty(t, req.ProviderID)
	})

	t.Run("caller supplied id", func(t *testing.T) {
		in := validRequestInput()
		in.ID = "  clientGeneratedId01 "
		req, err := f.requests.Create(ctx, customer, in)
		require.NoError(t, err)
		assert.Equal(t, "clientGeneratedId01", req.ID)
	})

	t.Run("underscore id wins over id", func(t *testing.T) {
		in := validRequestInput()
		in.DocumentID = "legacyDocumentId0001"
		in.ID = "clientGeneratedId02"
		req, err := f.requests.Create(ctx, customer, in)
		require.NoError(t, err)
		assert.Equal(t, "legacyDocumentId0001", req.ID)
		assert.Equal(t, "legacyDocumentId0001", req.ConsultationID)
	})

	t.Run("missing pincode", func(t *testing.T) {
		in := validRequestInput()
		in.CustomerAddress.Pincode = " "
		_, err := f.requests.Create(ctx, customer, in)
		assertAppError(t, err, apperrors.CodeValidation, "serviceRequests.invalidAddress")
	})

	t.Run("missing address", func(t *testing.T) {
		in := validRequestInput()
		in.CustomerAddress = nil
		_, err := f.requests.Create(ctx, customer, in)
		assertAppError(t, err, apperrors.CodeValidation, "serviceRequests.invalidAddress")
	})

	t.Run("missing service type", func(t *testing.T) {
		in := validRequestInput()
		in.ServiceType = ""
		_, err := f.requests.Create(ctx, customer, in)
		assertAppError(t, err, apperrors.CodeValidation, "serviceRequests.serviceTypeRequired")
	})

	t.Run("unknown urgency", func(t *testing.T) {
		in := validRequestInput()
		in.Urgency = "yesterday"
		_, err := f.requests.Create(ctx, customer, in)
		assertAppError(t, err, apperrors.CodeValidation, "")
	})
}

func TestServiceRequestAccept(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req, err := f.requests.Create(ctx, customer, validRequestInput())
	require.NoError(t, err)

	accepted, already, err := f.requests.Accept(ctx, provider, req.ID, ProviderDetails{ProviderSpecialization: "plumbing"})
	require.NoError(t, err)
	assert.False(t, already)
	assert.Equal(t, models.StatusAccepted, accepted.Status)
	assert.Equal(t, provider.ID, accepted.ProviderID)
	assert.Equal(t, provider.Name, accepted.ProviderName)
	assert.Equal(t, provider.Phone, accepted.ProviderPhone)
	require.NotNil(t, accepted.AcceptedAt)

	t.Run("same provider again is idempotent", func(t *testing.T) {
		again, already, err := f.requests.Accept(ctx, provider, req.ID, ProviderDetails{ProviderName: "Someone Else"})
		require.NoError(t, err)
		assert.True(t, already)
		assert.Equal(t, accepted.ProviderName, again.ProviderName)
		assert.Equal(t, accepted.AcceptedAt.Unix(), again.AcceptedAt.Unix())
	})

	t.Run("another provider conflicts", func(t *testing.T) {
		_, _, err := f.requests.Accept(ctx, otherProvider, req.ID, ProviderDetails{})
		assertAppError(t, err, apperrors.CodeConflict, "serviceRequests.alreadyAssigned")
	})

	t.Run("unknown id", func(t *testing.T) {
		_, _, err := f.requests.Accept(ctx, provider, "missing", ProviderDetails{})
		assertAppError(t, err, apperrors.CodeNotFound, "serviceRequests.notFound")
	})

	t.Run("rejected request cannot be accepted", func(t *testing.T) {
		other, err := f.requests.Create(ctx, customer, validRequestInput())
		require.NoError(t, err)
		_, err = f.requests.Reject(ctx, otherProvider, other.ID, "")
		require.NoError(t, err)

		_, _, err = f.requests.Accept(ctx, provider, other.ID, ProviderDetails{})
		assertAppError(t, err, apperrors.CodeInvalidState, "serviceRequests.notPending")
	})
}

func TestServiceRequestConcurrentAcceptHasOneWinner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req, err := f.requests.Create(ctx, customer, validRequestInput())
	require.NoError(t, err)

	const n = 8
	var wg sync.WaitGroup
	results := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			actor := Identity{ID: "racer-" + string(rune('a'+i)), Role: models.RoleProvider}
			_, _, results[i] = f.requests.Accept(ctx, actor, req.ID, ProviderDetails{})
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range results {
		if err == nil {
			winners++
			continue
		}
		assertAppError(t, err, apperrors.CodeConflict, "serviceRequests.alreadyAssigned")
	}
	assert.Equal(t, 1, winners)

	stored, err := f.requests.Get(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAccepted, stored.Status)
	assert.NotEmpty(t, stored.ProviderID)
}

func TestServiceRequestReject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req, err := f.requests.Create(ctx, customer, validRequestInput())
	require.NoError(t, err)

	rejected, err := f.requests.Reject(ctx, provider, req.ID, "  ")
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, rejected.Status)
	assert.Equal(t, defaultRejectionReason, rejected.RejectionReason)
	assert.Equal(t, provider.ID, rejected.RejectedBy)
	assert.Empty(t, rejected.ProviderID)

	_, err = f.requests.Reject(ctx, provider, req.ID, "again")
	assertAppError(t, err, apperrors.CodeInvalidState, "serviceRequests.notPending")
}

func TestServiceRequestCancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		setup   func(t *testing.T, id string)
		actor   Identity
		reason  string
		code    string
		key     string
		wantErr bool
	}{
		{name: "pending", actor: customer, reason: "changed my mind"},
		{
			name:   "accepted",
			actor:  customer,
			reason: "found someone else",
			setup: func(t *testing.T, id string) {
				_, _, err := f.requests.Accept(ctx, provider, id, ProviderDetails{})
				require.NoError(t, err)
			},
		},
		{name: "blank reason", actor: customer, reason: " ", wantErr: true, code: apperrors.CodeValidation, key: "serviceRequests.cancellationReasonRequired"},
		{name: "not the owner", actor: otherCustomer, reason: "nope", wantErr: true, code: apperrors.CodeForbidden, key: "common.forbidden"},
		{
			name:    "completed",
			actor:   customer,
			reason:  "late",
			wantErr: true,
			code:    apperrors.CodeInvalidState,
			key:     "serviceRequests.cannotCancel",
			setup: func(t *testing.T, id string) {
				_, _, err := f.requests.Accept(ctx, provider, id, ProviderDetails{})
				require.NoError(t, err)
				_, err = f.requests.Advance(ctx, provider, id, models.StatusCompleted)
				require.NoError(t, err)
			},
		},
		{
			name:    "already cancelled",
			actor:   customer,
			reason:  "twice",
			wantErr: true,
			code:    apperrors.CodeInvalidState,
			key:     "serviceRequests.alreadyCancelled",
			setup: func(t *testing.T, id string) {
				_, err := f.requests.Cancel(ctx, customer, id, "first")
				require.NoError(t, err)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := f.requests.Create(ctx, customer, validRequestInput())
			require.NoError(t, err)
			if tt.setup != nil {
				tt.setup(t, req.ID)
			}

			got, err := f.requests.Cancel(ctx, tt.actor, req.ID, tt.reason)
			if tt.wantErr {
				assertAppError(t, err, tt.code, tt.key)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, models.StatusCancelled, got.Status)
			assert.Equal(t, tt.reason, got.CancellationReason)
			assert.NotNil(t, got.CancelledAt)
		})
	}
}

func TestServiceRequestAdvance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req, err := f.requests.Create(ctx, customer, validRequestInput())
	require.NoError(t, err)

	_, err = f.requests.Advance(ctx, provider, req.ID, models.StatusInProgress)
	assertAppError(t, err, apperrors.CodeForbidden, "")

	_, _, err = f.requests.Accept(ctx, provider, req.ID, ProviderDetails{})
	require.NoError(t, err)

	_, err = f.requests.Advance(ctx, otherProvider, req.ID, models.StatusInProgress)
	assertAppError(t, err, apperrors.CodeForbidden, "common.forbidden")

	_, err = f.requests.Advance(ctx, provider, req.ID, models.StatusCancelled)
	assertAppError(t, err, apperrors.CodeValidation, "")

	inProgress, err := f.requests.Advance(ctx, provider, req.ID, models.StatusInProgress)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, inProgress.Status)

	done, err := f.requests.Advance(ctx, provider, req.ID, models.StatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, done.Status)
	assert.NotNil(t, done.CompletedAt)

	_, err = f.requests.Advance(ctx, provider, req.ID, models.StatusInProgress)
	assertAppError(t, err, apperrors.CodeInvalidState, "")
}

func TestServiceRequestUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req, err := f.requests.Create(ctx, customer, validRequestInput())
	require.NoError(t, err)

	problem := "Leaking tap and a blocked drain"
	updated, err := f.requests.Update(ctx, customer, req.ID, UpdateServiceRequestInput{Problem: &problem})
	require.NoError(t, err)
	assert.Equal(t, problem, updated.Problem)
	assert.Equal(t, req.ServiceType, updated.ServiceType)
	assert.False(t, updated.UpdatedAt.Before(req.UpdatedAt))

	_, err = f.requests.Update(ctx, otherCustomer, req.ID, UpdateServiceRequestInput{Problem: &problem})
	assertAppError(t, err, apperrors.CodeForbidden, "common.forbidden")

	blank := ""
	_, err = f.requests.Update(ctx, customer, req.ID, UpdateServiceRequestInput{ServiceType: &blank})
	assertAppError(t, err, apperrors.CodeValidation, "serviceRequests.serviceTypeRequired")

	_, err = f.requests.Cancel(ctx, customer, req.ID, "done")
	require.NoError(t, err)
	_, err = f.requests.Update(ctx, customer, req.ID, UpdateServiceRequestInput{Problem: &problem})
	assertAppError(t, err, apperrors.CodeInvalidState, "")
}

func TestServiceRequestLists(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.requests.Create(ctx, customer, validRequestInput())
	require.NoError(t, err)
	_, err = f.requests.Create(ctx, customer, validRequestInput())
	require.NoError(t, err)
	_, err = f.requests.Create(ctx, otherCustomer, validRequestInput())
	require.NoError(t, err)

	_, _, err = f.requests.Accept(ctx, provider, first.ID, ProviderDetails{})
	require.NoError(t, err)

	mine, total, err := f.requests.ListForCustomer(ctx, customer, ServiceRequestListInput{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, mine, 2)

	pool, total, err := f.requests.ListForProvider(ctx, provider, ServiceRequestListInput{Status: models.StatusPending})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	for _, r := range pool {
		assert.Equal(t, models.StatusPending, r.Status)
	}

	assigned, total, err := f.requests.ListForProvider(ctx, provider, ServiceRequestListInput{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, first.ID, assigned[0].ID)

	_, err = f.requests.GetForCustomer(ctx, otherCustomer, first.ID)
	assertAppError(t, err, apperrors.CodeForbidden, "common.forbidden")

	got, err := f.requests.GetForCustomer(ctx, admin, first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
}
