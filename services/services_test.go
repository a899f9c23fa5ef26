package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kendall-kelly/home-services-api/apperrors"
	"github.com/kendall-kelly/home-services-api/models"
	"github.com/kendall-kelly/home-services-api/repository"
	"github.com/kendall-kelly/home-services-api/tests/testutil"
)

var (
	customer      = Identity{ID: "cust-1", Name: "Asha", Phone: "9999999999", Email: "asha@example.com", Role: models.RoleCustomer}
	otherCustomer = Identity{ID: "cust-2", Name: "Meera", Role: models.RoleCustomer}
	provider      = Identity{ID: "prov-1", Name: "Ravi", Phone: "8888888888", Role: models.RoleProvider}
	otherProvider = Identity{ID: "prov-2", Name: "Kiran", Role: models.RoleProvider}
	admin         = Identity{ID: "admin-1", Name: "Ops", Role: models.RoleAdmin}
)

// fixture wires every service over one in-memory database.
type fixture struct {
	store    *repository.Store
	runner   *TaskRunner
	requests *ServiceRequestService
	cards    *JobCardService
	reviews  *ReviewService
	users    *UserService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	testutil.RequireTestEnvironment(t)

	store := repository.NewStore(testutil.NewTestDB(t))
	runner := NewTaskRunner(zap.NewNop(), nil)
	t.Cleanup(func() { _ = runner.Close(context.Background()) })

	validate := NewValidator()
	return &fixture{
		store:    store,
		runner:   runner,
		requests: NewServiceRequestService(store.ServiceRequests, nil, validate, nil, nil),
		cards:    NewJobCardService(store.JobCards, store.Users, nil, validate, nil, nil),
		reviews:  NewReviewService(store, NewRatingAggregator(store.Reviews, store.Providers, nil), validate, nil),
		users:    NewUserService(store.Users, nil, validate, nil),
	}
}

func validRequestInput() CreateServiceRequestInput {
	return CreateServiceRequestInput{
		CustomerAddress: &models.Address{Address: "12 MG Road", Pincode: "411001"},
		ServiceType:     "plumbing",
		Problem:         "Leaking tap",
	}
}

// assertAppError checks the code and translation key of err.
func assertAppError(t *testing.T, err error, code, key string) {
	t.Helper()
	require.Error(t, err)
	var appErr *apperrors.Error
	require.True(t, errors.As(err, &appErr), "expected *apperrors.Error, got %T", err)
	assert.Equal(t, code, appErr.Code)
	if key != "" {
		assert.Equal(t, key, appErr.Key)
	}
}

func waitRunner(t *testing.T, r *TaskRunner) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, r.Wait(ctx))
}
