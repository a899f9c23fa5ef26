package integration

import (
	"context"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kendall-kelly/home-services-api/controllers"
	"github.com/kendall-kelly/home-services-api/middleware"
	"github.com/kendall-kelly/home-services-api/repository"
	"github.com/kendall-kelly/home-services-api/services"
	"github.com/kendall-kelly/home-services-api/tests/testutil"
)

// stack is the router plus the collaborators a suite inspects.
type stack struct {
	router  *gin.Engine
	store   *repository.Store
	storage *services.MockS3Service
}

// newStack wires the HTTP layer over an in-memory store, verifying bearer
// tokens signed with testutil.TestJWTSecret.
func newStack(t *testing.T) *stack {
	t.Helper()
	testutil.RequireTestEnvironment(t)
	gin.SetMode(gin.TestMode)

	store := repository.NewStore(testutil.NewTestDB(t))
	storage := services.NewMockS3Service()
	validate := services.NewValidator()
	runner := services.NewTaskRunner(zap.NewNop(), nil)
	t.Cleanup(func() { _ = runner.Close(context.Background()) })

	resolver := services.NewIdentityResolver(services.NewHMACVerifier(testutil.TestJWTSecret), store.Users, nil)
	fanOut := services.NewFanOut(store.Providers, nil, runner, time.Second, 2, nil, nil)

	router := gin.New()
	router.Use(middleware.Recovery(zap.NewNop()), middleware.Language())
	controllers.RegisterRoutes(router.Group("/api"), controllers.Handlers{
		Users:           controllers.NewUserController(services.NewUserService(store.Users, nil, validate, nil)),
		Providers:       controllers.NewProviderController(services.NewProviderService(store.Providers, services.NewDocumentService(storage), nil, validate, nil)),
		ServiceRequests: controllers.NewServiceRequestController(services.NewServiceRequestService(store.ServiceRequests, fanOut, validate, nil, nil)),
		JobCards:        controllers.NewJobCardController(services.NewJobCardService(store.JobCards, store.Users, nil, validate, nil, nil)),
		Reviews:         controllers.NewReviewController(services.NewReviewService(store, services.NewRatingAggregator(store.Reviews, store.Providers, nil), validate, nil)),
		Categories:      controllers.NewCategoryController(services.NewCategoryService(store.Categories, validate, nil)),
		Recommendations: controllers.NewRecommendationController(services.NewRecommendationService(store.Recommendations, store.Users, validate, nil)),
	}, middleware.Authenticate(resolver, nil), middleware.OptionalAuthenticate(resolver, nil))

	return &stack{router: router, store: store, storage: storage}
}
