package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kendall-kelly/home-services-api/middleware"
	"github.com/kendall-kelly/home-services-api/services"
)

// CategoryController serves /api/serviceCategories.
type CategoryController struct {
	categories *services.CategoryService
}

func NewCategoryController(categories *services.CategoryService) *CategoryController {
	return &CategoryController{categories: categories}
}

// ListCategories handles GET /api/serviceCategories. Inactive categories are
// included only for admins asking for them.
func (h *CategoryController) ListCategories(c *gin.Context) {
	categories, err := h.categories.List(c.Request.Context(), optionalIdentity(c), c.Query("includeInactive") == "true")
	if err != nil {
		respondError(c, err)
		return
	}
	respondList(c, categories, int64(len(categories)))
}

// GetCategory handles GET /api/serviceCategories/:categoryId
func (h *CategoryController) GetCategory(c *gin.Context) {
	category, err := h.categories.Get(c.Request.Context(), c.Param("categoryId"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, category, "")
}

// CreateCategory handles POST /api/serviceCategories (admin)
func (h *CategoryController) CreateCategory(c *gin.Context) {
	var req services.CategoryInput
	if !bindJSON(c, &req) {
		return
	}

	category, err := h.categories.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, category, "Category created successfully")
}

// UpdateCategory handles PUT /api/serviceCategories/:categoryId (admin)
func (h *CategoryController) UpdateCategory(c *gin.Context) {
	var req services.CategoryInput
	if !bindJSON(c, &req) {
		return
	}

	category, err := h.categories.Update(c.Request.Context(), c.Param("categoryId"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, category, "Category updated successfully")
}

// DeleteCategory handles DELETE /api/serviceCategories/:categoryId (admin)
func (h *CategoryController) DeleteCategory(c *gin.Context) {
	if err := h.categories.Delete(c.Request.Context(), c.Param("categoryId")); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, nil, "Category deleted successfully")
}

// RecommendationController serves /api/contactRecommendations.
type RecommendationController struct {
	recommendations *services.RecommendationService
}

func NewRecommendationController(recommendations *services.RecommendationService) *RecommendationController {
	return &RecommendationController{recommendations: recommendations}
}

// RecommendationStatusRequest is the body of PUT /api/contactRecommendations/:id/status
type RecommendationStatusRequest struct {
	Status     string `json:"status"`
	AdminNotes string `json:"adminNotes"`
}

// CreateRecommendation handles POST /api/contactRecommendations
func (h *RecommendationController) CreateRecommendation(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	var req services.CreateRecommendationInput
	if !bindJSON(c, &req) {
		return
	}

	rec, err := h.recommendations.Create(c.Request.Context(), identity, req)
	if err != nil {
		respondError(c, err)
		return
	}

	message := "Thank you for your recommendation!"
	if rec.PointsAwarded > 0 {
		message = "Thank you for your recommendation! You earned points."
	}
	respondOK(c, http.StatusCreated, rec, message)
}

// ListRecommendations handles GET /api/contactRecommendations (admin)
func (h *RecommendationController) ListRecommendations(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	items, total, err := h.recommendations.List(c.Request.Context(), identity, services.RecommendationListInput{
		Status:      c.Query("status"),
		ServiceType: c.Query("serviceType"),
		Page:        middleware.GetPage(c),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondList(c, items, total)
}

// MyRecommendations handles GET /api/contactRecommendations/me
func (h *RecommendationController) MyRecommendations(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	items, total, err := h.recommendations.Mine(c.Request.Context(), identity, middleware.GetPage(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondList(c, items, total)
}

// UpdateRecommendationStatus handles PUT /api/contactRecommendations/:id/status (admin)
func (h *RecommendationController) UpdateRecommendationStatus(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	var req RecommendationStatusRequest
	if !bindJSON(c, &req) {
		return
	}

	rec, err := h.recommendations.UpdateStatus(c.Request.Context(), identity, c.Param("id"), req.Status, req.AdminNotes)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, rec, "Recommendation status updated successfully")
}
