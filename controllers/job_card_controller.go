package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kendall-kelly/home-services-api/middleware"
	"github.com/kendall-kelly/home-services-api/services"
)

// JobCardController serves the customer, provider and admin job card trees
// and the shared status endpoint.
type JobCardController struct {
	cards *services.JobCardService
}

func NewJobCardController(cards *services.JobCardService) *JobCardController {
	return &JobCardController{cards: cards}
}

// AdminUpdateRequest is the body of PUT /api/admin/jobCards/:jobCardId.
// Status and PIN changes follow the same rules as the status endpoint.
type AdminUpdateRequest struct {
	services.AdminJobCardInput
	services.JobCardStatusInput
}

// List handles GET on the customer, provider and admin collections. The
// caller's role decides the scope.
func (h *JobCardController) List(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	items, total, err := h.cards.List(c.Request.Context(), identity, services.JobCardListInput{
		Status:     c.Query("status"),
		CustomerID: c.Query("customerId"),
		ProviderID: c.Query("providerId"),
		Page:       middleware.GetPage(c),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondList(c, items, total)
}

// Get handles GET /:jobCardId on every job card tree.
func (h *JobCardController) Get(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	card, err := h.cards.Get(c.Request.Context(), identity, c.Param("jobCardId"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, card, "")
}

// Create handles POST /api/provider/jobCards. Cards start out accepted.
func (h *JobCardController) Create(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	var req services.CreateJobCardInput
	if !bindJSON(c, &req) {
		return
	}

	card, err := h.cards.Create(c.Request.Context(), identity, req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, card, "Job card created successfully")
}

// UpdateStatus handles PUT /api/provider/jobCards/:jobCardId/status and
// PUT /api/jobCards/:jobCardId/status
func (h *JobCardController) UpdateStatus(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	var req services.JobCardStatusInput
	if !bindJSON(c, &req) {
		return
	}

	card, err := h.cards.UpdateStatus(c.Request.Context(), identity, c.Param("jobCardId"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, card, "jobCards.statusUpdated")
}

// Cancel handles PUT /api/customer/jobCards/:jobCardId/cancel
func (h *JobCardController) Cancel(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	var req CancelRequest
	if !bindJSON(c, &req) {
		return
	}

	card, err := h.cards.Cancel(c.Request.Context(), identity, c.Param("jobCardId"), req.CancellationReason)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, card, "jobCards.cancelledSuccessfully")
}

// AdminUpdate handles PUT /api/admin/jobCards/:jobCardId
func (h *JobCardController) AdminUpdate(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	var req AdminUpdateRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()
	id := c.Param("jobCardId")

	card, err := h.cards.AdminUpdate(ctx, identity, id, req.AdminJobCardInput, req.JobCardStatusInput)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, card, "Job card updated successfully")
}

// Delete handles DELETE /api/admin/jobCards/:jobCardId
func (h *JobCardController) Delete(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	if err := h.cards.Delete(c.Request.Context(), identity, c.Param("jobCardId")); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, nil, "Job card deleted successfully")
}
