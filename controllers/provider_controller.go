package controllers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kendall-kelly/home-services-api/middleware"
	"github.com/kendall-kelly/home-services-api/services"
)

// ProviderController serves /api/providers.
type ProviderController struct {
	providers *services.ProviderService
}

func NewProviderController(providers *services.ProviderService) *ProviderController {
	return &ProviderController{providers: providers}
}

// ApprovalRequest is the body of PUT /api/providers/:providerId/approval
type ApprovalRequest struct {
	ApprovalStatus  string `json:"approvalStatus" binding:"required"`
	RejectionReason string `json:"rejectionReason"`
}

// ListProviders handles GET /api/providers
func (h *ProviderController) ListProviders(c *gin.Context) {
	isOnline, err := queryBool(c, "isOnline")
	if err != nil {
		respondError(c, err)
		return
	}
	minRating, err := queryFloat(c, "minRating")
	if err != nil {
		respondError(c, err)
		return
	}

	providers, err := h.providers.List(c.Request.Context(), optionalIdentity(c), services.ProviderListInput{
		ServiceType:    c.Query("serviceType"),
		City:           c.Query("city"),
		State:          c.Query("state"),
		IsOnline:       isOnline,
		MinRating:      minRating,
		ApprovalStatus: c.Query("approvalStatus"),
		Page:           middleware.GetPage(c),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondList(c, providers, int64(len(providers)))
}

// GetProvider handles GET /api/providers/:providerId
func (h *ProviderController) GetProvider(c *gin.Context) {
	provider, err := h.providers.Get(c.Request.Context(), optionalIdentity(c), c.Param("providerId"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, provider, "")
}

// UpsertMe handles PUT /api/providers/me (provider)
func (h *ProviderController) UpsertMe(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	var req services.ProviderProfileInput
	if !bindJSON(c, &req) {
		return
	}

	provider, created, err := h.providers.UpsertMe(c.Request.Context(), identity, req)
	if err != nil {
		respondError(c, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	respondOK(c, status, provider, "Provider profile updated successfully")
}

// UpdateStatus handles PUT /api/providers/me/status (provider)
func (h *ProviderController) UpdateStatus(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	var req services.PresenceInput
	if !bindJSON(c, &req) {
		return
	}

	provider, err := h.providers.UpdatePresence(c.Request.Context(), identity, req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, provider, "Provider status updated successfully")
}

// UpdateApproval handles PUT /api/providers/:providerId/approval (admin)
func (h *ProviderController) UpdateApproval(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	var req ApprovalRequest
	if !bindJSON(c, &req) {
		return
	}

	provider, err := h.providers.SetApproval(c.Request.Context(), identity, c.Param("providerId"), req.ApprovalStatus, req.RejectionReason)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, provider, fmt.Sprintf("Provider %s successfully", req.ApprovalStatus))
}
