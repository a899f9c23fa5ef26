package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/kendall-kelly/home-services-api/middleware"
	"github.com/kendall-kelly/home-services-api/models"
)

// Handlers groups the resource controllers mounted under /api.
type Handlers struct {
	Users           *UserController
	Providers       *ProviderController
	ServiceRequests *ServiceRequestController
	JobCards        *JobCardController
	Reviews         *ReviewController
	Categories      *CategoryController
	Recommendations *RecommendationController
}

// RegisterRoutes mounts every resource on api. auth rejects anonymous
// callers; optionalAuth resolves a caller when a token is present.
func RegisterRoutes(api *gin.RouterGroup, h Handlers, auth, optionalAuth gin.HandlerFunc) {
	page := middleware.Pagination()
	customerOnly := middleware.RequireRoles(models.RoleCustomer)
	providerOnly := middleware.RequireRoles(models.RoleProvider)
	adminOnly := middleware.RequireRoles(models.RoleAdmin)

	users := api.Group("/users", auth)
	{
		users.GET("", adminOnly, page, h.Users.ListUsers)
		users.GET("/me", h.Users.GetMe)
		users.POST("/me", h.Users.UpsertMe)
		users.PUT("/me", h.Users.UpdateMe)
		users.GET("/:userId", h.Users.GetUser)
		users.PUT("/:userId/fcmToken", h.Users.UpdateFCMToken)
		users.PUT("/:userId/role", adminOnly, h.Users.ChangeRole)
		users.GET("/:userId/roleChanges", adminOnly, h.Users.RoleChanges)
	}

	providers := api.Group("/providers")
	{
		providers.GET("", optionalAuth, page, h.Providers.ListProviders)
		providers.PUT("/me", auth, providerOnly, h.Providers.UpsertMe)
		providers.PUT("/me/status", auth, providerOnly, h.Providers.UpdateStatus)
		providers.POST("/me/documents/:kind", auth, providerOnly, h.Providers.UploadDocument)
		providers.GET("/:providerId", optionalAuth, h.Providers.GetProvider)
		providers.PUT("/:providerId/approval", auth, adminOnly, h.Providers.UpdateApproval)
	}

	categories := api.Group("/serviceCategories")
	{
		categories.GET("", optionalAuth, h.Categories.ListCategories)
		categories.GET("/:categoryId", h.Categories.GetCategory)
		categories.POST("", auth, adminOnly, h.Categories.CreateCategory)
		categories.PUT("/:categoryId", auth, adminOnly, h.Categories.UpdateCategory)
		categories.DELETE("/:categoryId", auth, adminOnly, h.Categories.DeleteCategory)
	}

	reviews := api.Group("/reviews", auth)
	{
		reviews.GET("", page, h.Reviews.ListReviews)
		reviews.GET("/:reviewId", h.Reviews.GetReview)
		reviews.POST("", customerOnly, h.Reviews.CreateReview)
		reviews.PUT("/:reviewId", customerOnly, h.Reviews.UpdateReview)
		reviews.DELETE("/:reviewId", h.Reviews.DeleteReview)
	}

	recommendations := api.Group("/contactRecommendations", auth)
	{
		recommendations.POST("", h.Recommendations.CreateRecommendation)
		recommendations.GET("", adminOnly, page, h.Recommendations.ListRecommendations)
		recommendations.GET("/me", page, h.Recommendations.MyRecommendations)
		recommendations.PUT("/:id/status", adminOnly, h.Recommendations.UpdateRecommendationStatus)
	}

	customer := api.Group("/customer", auth, customerOnly)
	{
		customer.GET("/serviceRequests", page, h.ServiceRequests.ListForCustomer)
		customer.POST("/serviceRequests", h.ServiceRequests.Create)
		customer.GET("/serviceRequests/:serviceRequestId", h.ServiceRequests.GetForCustomer)
		customer.PUT("/serviceRequests/:serviceRequestId", h.ServiceRequests.Update)
		customer.PUT("/serviceRequests/:serviceRequestId/cancel", h.ServiceRequests.Cancel)

		customer.GET("/jobCards", page, h.JobCards.List)
		customer.GET("/jobCards/:jobCardId", h.JobCards.Get)
		customer.PUT("/jobCards/:jobCardId/cancel", h.JobCards.Cancel)
	}

	provider := api.Group("/provider", auth, providerOnly)
	{
		provider.GET("/serviceRequests", page, h.ServiceRequests.ListForProvider)
		provider.GET("/serviceRequests/:serviceRequestId", h.ServiceRequests.GetForProvider)
		provider.PUT("/serviceRequests/:serviceRequestId/accept", h.ServiceRequests.Accept)
		provider.PUT("/serviceRequests/:serviceRequestId/reject", h.ServiceRequests.Reject)
		provider.PUT("/serviceRequests/:serviceRequestId/status", h.ServiceRequests.Advance)

		provider.GET("/jobCards", page, h.JobCards.List)
		provider.POST("/jobCards", h.JobCards.Create)
		provider.GET("/jobCards/:jobCardId", h.JobCards.Get)
		provider.PUT("/jobCards/:jobCardId/status", h.JobCards.UpdateStatus)
	}

	admin := api.Group("/admin", auth, adminOnly)
	{
		admin.GET("/jobCards", page, h.JobCards.List)
		admin.POST("/jobCards", h.JobCards.Create)
		admin.GET("/jobCards/:jobCardId", h.JobCards.Get)
		admin.PUT("/jobCards/:jobCardId", h.JobCards.AdminUpdate)
		admin.DELETE("/jobCards/:jobCardId", h.JobCards.Delete)
	}

	// Any authenticated role; the service applies the customer cancel-only gate.
	api.PUT("/jobCards/:jobCardId/status", auth, h.JobCards.UpdateStatus)
}
