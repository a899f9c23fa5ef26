package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kendall-kelly/home-services-api/middleware"
	"github.com/kendall-kelly/home-services-api/models"
	"github.com/kendall-kelly/home-services-api/repository"
	"github.com/kendall-kelly/home-services-api/services"
	"github.com/kendall-kelly/home-services-api/tests/testutil"
)

// userHeader names the test identity a request runs as.
const userHeader = "X-Test-User"

var identities = map[string]services.Identity{
	"cust-1":  {ID: "cust-1", Name: "Asha", Phone: "9999999999", Email: "asha@example.com", Role: models.RoleCustomer},
	"cust-2":  {ID: "cust-2", Name: "Meera", Role: models.RoleCustomer},
	"prov-1":  {ID: "prov-1", Name: "Ravi", Phone: "8888888888", Role: models.RoleProvider},
	"prov-2":  {ID: "prov-2", Name: "Kiran", Role: models.RoleProvider},
	"admin-1": {ID: "admin-1", Name: "Ops", Role: models.RoleAdmin},
}

// mockAuthMiddleware installs the identity named by userHeader the way the
// real authenticator does. Unknown or missing users get 401 unless optional.
func mockAuthMiddleware(optional bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := identities[c.GetHeader(userHeader)]
		if !ok {
			if optional {
				c.Next()
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   gin.H{"code": "MISSING_TOKEN", "message": "Unauthorized"},
			})
			return
		}
		middleware.SetIdentity(c, &identity)
		c.Next()
	}
}

type harness struct {
	router  *gin.Engine
	store   *repository.Store
	runner  *services.TaskRunner
	storage *services.MockS3Service
}

type harnessOptions struct {
	notifier services.Notifier
}

func newHarness(t *testing.T, opts ...func(*harnessOptions)) *harness {
	t.Helper()
	testutil.RequireTestEnvironment(t)
	gin.SetMode(gin.TestMode)

	var o harnessOptions
	for _, opt := range opts {
		opt(&o)
	}

	store := repository.NewStore(testutil.NewTestDB(t))
	runner := services.NewTaskRunner(zap.NewNop(), nil)
	t.Cleanup(func() { _ = runner.Close(context.Background()) })
	storage := services.NewMockS3Service()
	validate := services.NewValidator()

	fanOut := services.NewFanOut(store.Providers, o.notifier, runner, time.Second, 4, nil, nil)
	requests := services.NewServiceRequestService(store.ServiceRequests, fanOut, validate, nil, nil)
	cards := services.NewJobCardService(store.JobCards, store.Users, nil, validate, nil, nil)
	reviews := services.NewReviewService(store, services.NewRatingAggregator(store.Reviews, store.Providers, nil), validate, nil)

	router := gin.New()
	router.Use(middleware.Language())
	RegisterRoutes(router.Group("/api"), Handlers{
		Users:           NewUserController(services.NewUserService(store.Users, nil, validate, nil)),
		Providers:       NewProviderController(services.NewProviderService(store.Providers, services.NewDocumentService(storage), nil, validate, nil)),
		ServiceRequests: NewServiceRequestController(requests),
		JobCards:        NewJobCardController(cards),
		Reviews:         NewReviewController(reviews),
		Categories:      NewCategoryController(services.NewCategoryService(store.Categories, validate, nil)),
		Recommendations: NewRecommendationController(services.NewRecommendationService(store.Recommendations, store.Users, validate, nil)),
	}, mockAuthMiddleware(false), mockAuthMiddleware(true))

	return &harness{router: router, store: store, runner: runner, storage: storage}
}

// do sends a JSON request as user and decodes the envelope.
func (h *harness) do(t *testing.T, method, path, user string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != "" {
		req.Header.Set(userHeader, user)
	}

	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)

	var envelope map[string]interface{}
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope), w.Body.String())
	}
	return w, envelope
}

func dataOf(t *testing.T, envelope map[string]interface{}) map[string]interface{} {
	t.Helper()
	data, ok := envelope["data"].(map[string]interface{})
	require.True(t, ok, "envelope has no object data: %v", envelope)
	return data
}

func errorCode(envelope map[string]interface{}) string {
	errBody, _ := envelope["error"].(map[string]interface{})
	code, _ := errBody["code"].(string)
	return code
}

func newServiceRequestBody() gin.H {
	return gin.H{
		"customerAddress": gin.H{"address": "12 MG Road", "pincode": "411001", "city": "Pune"},
		"serviceType":     "Plumbing",
		"problem":         "Leaking tap",
	}
}
