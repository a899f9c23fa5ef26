package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kendall-kelly/home-services-api/middleware"
	"github.com/kendall-kelly/home-services-api/repository"
	"github.com/kendall-kelly/home-services-api/services"
)

// ReviewController serves /api/reviews.
type ReviewController struct {
	reviews *services.ReviewService
}

func NewReviewController(reviews *services.ReviewService) *ReviewController {
	return &ReviewController{reviews: reviews}
}

// ListReviews handles GET /api/reviews
func (h *ReviewController) ListReviews(c *gin.Context) {
	items, total, err := h.reviews.List(c.Request.Context(), repository.ReviewFilter{
		ProviderID: c.Query("providerId"),
		CustomerID: c.Query("customerId"),
		JobCardID:  c.Query("jobCardId"),
		Page:       middleware.GetPage(c),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondList(c, items, total)
}

// GetReview handles GET /api/reviews/:reviewId
func (h *ReviewController) GetReview(c *gin.Context) {
	review, err := h.reviews.Get(c.Request.Context(), c.Param("reviewId"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, review, "")
}

// CreateReview handles POST /api/reviews (customer). The provider's rating
// is recomputed before the response is written.
func (h *ReviewController) CreateReview(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	var req services.CreateReviewInput
	if !bindJSON(c, &req) {
		return
	}

	review, err := h.reviews.Create(c.Request.Context(), identity, req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, review, "Review created successfully")
}

// UpdateReview handles PUT /api/reviews/:reviewId (customer, comment only)
func (h *ReviewController) UpdateReview(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	var req services.UpdateReviewInput
	if !bindJSON(c, &req) {
		return
	}

	review, err := h.reviews.Update(c.Request.Context(), identity, c.Param("reviewId"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, review, "Review updated successfully")
}

// DeleteReview handles DELETE /api/reviews/:reviewId (owner or admin)
func (h *ReviewController) DeleteReview(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	if err := h.reviews.Delete(c.Request.Context(), identity, c.Param("reviewId")); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, nil, "Review deleted successfully")
}
