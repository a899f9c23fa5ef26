package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kendall-kelly/home-services-api/middleware"
	"github.com/kendall-kelly/home-services-api/services"
)

// ServiceRequestController serves /api/customer/serviceRequests and
// /api/provider/serviceRequests.
type ServiceRequestController struct {
	requests *services.ServiceRequestService
}

func NewServiceRequestController(requests *services.ServiceRequestService) *ServiceRequestController {
	return &ServiceRequestController{requests: requests}
}

// CancelRequest is the body of the cancel endpoints.
type CancelRequest struct {
	CancellationReason string `json:"cancellationReason"`
}

// RejectRequest is the body of PUT /api/provider/serviceRequests/:serviceRequestId/reject
type RejectRequest struct {
	RejectionReason string `json:"rejectionReason"`
}

// StatusRequest is the body of the provider progression endpoint.
type StatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// ListForCustomer handles GET /api/customer/serviceRequests
func (h *ServiceRequestController) ListForCustomer(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	items, total, err := h.requests.ListForCustomer(c.Request.Context(), identity, services.ServiceRequestListInput{
		Status: c.Query("status"),
		Page:   middleware.GetPage(c),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondList(c, items, total)
}

// Create handles POST /api/customer/serviceRequests. Providers are notified
// in the background; the response does not wait for them.
func (h *ServiceRequestController) Create(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	var req services.CreateServiceRequestInput
	if !bindJSON(c, &req) {
		return
	}

	created, err := h.requests.Create(c.Request.Context(), identity, req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, created, "serviceRequests.created")
}

// GetForCustomer handles GET /api/customer/serviceRequests/:serviceRequestId
func (h *ServiceRequestController) GetForCustomer(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	req, err := h.requests.GetForCustomer(c.Request.Context(), identity, c.Param("serviceRequestId"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, req, "")
}

// Update handles PUT /api/customer/serviceRequests/:serviceRequestId
func (h *ServiceRequestController) Update(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	var req services.UpdateServiceRequestInput
	if !bindJSON(c, &req) {
		return
	}

	updated, err := h.requests.Update(c.Request.Context(), identity, c.Param("serviceRequestId"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, updated, "serviceRequests.updated")
}

// Cancel handles PUT /api/customer/serviceRequests/:serviceRequestId/cancel
func (h *ServiceRequestController) Cancel(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	var req CancelRequest
	if !bindJSON(c, &req) {
		return
	}

	cancelled, err := h.requests.Cancel(c.Request.Context(), identity, c.Param("serviceRequestId"), req.CancellationReason)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, cancelled, "serviceRequests.cancelled")
}

// ListForProvider handles GET /api/provider/serviceRequests. status=pending
// lists the open pool, anything else the caller's assignments.
func (h *ServiceRequestController) ListForProvider(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	items, total, err := h.requests.ListForProvider(c.Request.Context(), identity, services.ServiceRequestListInput{
		Status: c.Query("status"),
		Page:   middleware.GetPage(c),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondList(c, items, total)
}

// GetForProvider handles GET /api/provider/serviceRequests/:serviceRequestId
func (h *ServiceRequestController) GetForProvider(c *gin.Context) {
	req, err := h.requests.Get(c.Request.Context(), c.Param("serviceRequestId"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, req, "")
}

// Accept handles PUT /api/provider/serviceRequests/:serviceRequestId/accept.
// Of two providers racing for the same request exactly one wins; the other
// gets 409.
func (h *ServiceRequestController) Accept(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	var req services.ProviderDetails
	if !bindJSON(c, &req) {
		return
	}

	accepted, already, err := h.requests.Accept(c.Request.Context(), identity, c.Param("serviceRequestId"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	message := "serviceRequests.accepted"
	if already {
		message = "serviceRequests.alreadyAccepted"
	}
	respondOK(c, http.StatusOK, accepted, message)
}

// Reject handles PUT /api/provider/serviceRequests/:serviceRequestId/reject
func (h *ServiceRequestController) Reject(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	var req RejectRequest
	if !bindJSON(c, &req) {
		return
	}

	rejected, err := h.requests.Reject(c.Request.Context(), identity, c.Param("serviceRequestId"), req.RejectionReason)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, rejected, "serviceRequests.rejected")
}

// Advance handles PUT /api/provider/serviceRequests/:serviceRequestId/status
func (h *ServiceRequestController) Advance(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	var req StatusRequest
	if !bindJSON(c, &req) {
		return
	}

	updated, err := h.requests.Advance(c.Request.Context(), identity, c.Param("serviceRequestId"), req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, updated, "serviceRequests.updated")
}
