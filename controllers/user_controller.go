package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kendall-kelly/home-services-api/middleware"
	"github.com/kendall-kelly/home-services-api/services"
)

// UserController serves /api/users.
type UserController struct {
	users *services.UserService
}

func NewUserController(users *services.UserService) *UserController {
	return &UserController{users: users}
}

// FCMTokenRequest is the body of PUT /api/users/:userId/fcmToken
type FCMTokenRequest struct {
	FCMToken string `json:"fcmToken"`
}

// ChangeRoleRequest is the body of PUT /api/users/:userId/role
type ChangeRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

// UpsertMe handles POST /api/users/me - creates the caller's profile on first
// sign-in (201) or updates it (200)
func (h *UserController) UpsertMe(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	var req services.UpsertUserInput
	if !bindJSON(c, &req) {
		return
	}

	user, created, err := h.users.Upsert(c.Request.Context(), identity, middleware.AccessToken(c), req)
	if err != nil {
		respondError(c, err)
		return
	}

	if created {
		respondOK(c, http.StatusCreated, user, "User created successfully")
		return
	}
	respondOK(c, http.StatusOK, user, "User updated successfully")
}

// GetMe handles GET /api/users/me
func (h *UserController) GetMe(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	user, err := h.users.Me(c.Request.Context(), identity)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, user, "")
}

// UpdateMe handles PUT /api/users/me. A role in the body is ignored.
func (h *UserController) UpdateMe(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	var req services.UpsertUserInput
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.users.UpdateMe(c.Request.Context(), identity, req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, user, "User updated successfully")
}

// GetUser handles GET /api/users/:userId
func (h *UserController) GetUser(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	user, err := h.users.Get(c.Request.Context(), identity, c.Param("userId"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, user, "")
}

// UpdateFCMToken handles PUT /api/users/:userId/fcmToken
func (h *UserController) UpdateFCMToken(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	var req FCMTokenRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.users.UpdateFCMToken(c.Request.Context(), identity, c.Param("userId"), req.FCMToken); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, nil, "FCM token updated successfully")
}

// ListUsers handles GET /api/users (admin)
func (h *UserController) ListUsers(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	users, total, err := h.users.List(c.Request.Context(), identity, services.UserListInput{
		Role: c.Query("role"),
		Page: middleware.GetPage(c),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondList(c, users, total)
}

// ChangeRole handles PUT /api/users/:userId/role (admin)
func (h *UserController) ChangeRole(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	var req ChangeRoleRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.users.ChangeRole(c.Request.Context(), identity, c.Param("userId"), req.Role)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, user, "User role updated successfully")
}

// RoleChanges handles GET /api/users/:userId/roleChanges (admin)
func (h *UserController) RoleChanges(c *gin.Context) {
	logs, err := h.users.RoleChanges(c.Request.Context(), c.Param("userId"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondList(c, logs, int64(len(logs)))
}
