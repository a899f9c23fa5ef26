package controllers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/kendall-kelly/home-services-api/apperrors"
	"github.com/kendall-kelly/home-services-api/config"
	"github.com/kendall-kelly/home-services-api/i18n"
	"github.com/kendall-kelly/home-services-api/middleware"
	"github.com/kendall-kelly/home-services-api/services"
	"github.com/kendall-kelly/home-services-api/utils"
)

// respondOK writes a success envelope. message is a translation key or literal text.
func respondOK(c *gin.Context, status int, data interface{}, message string) {
	body := gin.H{"success": true}
	if data != nil {
		body["data"] = data
	}
	if message != "" {
		body["message"] = translate(c, message, nil)
	}
	c.JSON(status, body)
}

// respondList writes a list envelope carrying the page size and the total match count.
func respondList[T any](c *gin.Context, items []T, total int64) {
	if items == nil {
		items = []T{}
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    items,
		"count":   len(items),
		"total":   total,
	})
}

// respondError renders any error as the failure envelope.
func respondError(c *gin.Context, err error) {
	var uploadErr *utils.FileUploadError
	if errors.As(err, &uploadErr) {
		err = apperrors.Validation(uploadErr.Message).WithDetails(uploadErr.Code)
	}

	appErr := apperrors.FromError(err)
	message := appErr.Message
	if appErr.Key != "" {
		message = translate(c, appErr.Key, appErr.Params)
	}

	errBody := gin.H{
		"code":    appErr.Code,
		"message": message,
	}
	if appErr.Details != "" {
		errBody["details"] = appErr.Details
	}
	if appErr.Err != nil && appErr.Status >= http.StatusInternalServerError && development() {
		errBody["details"] = appErr.Err.Error()
	}

	c.AbortWithStatusJSON(appErr.Status, gin.H{
		"success": false,
		"message": message,
		"error":   errBody,
	})
}

// bindJSON decodes the request body, answering 400 on malformed input. An
// empty body leaves dst untouched.
func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		respondError(c, apperrors.Validation("Invalid request data").WithDetails(err.Error()))
		return false
	}
	return true
}

// currentIdentity returns the caller or writes the 401 envelope.
func currentIdentity(c *gin.Context) (services.Identity, bool) {
	identity, err := middleware.GetIdentity(c)
	if err != nil {
		respondError(c, apperrors.Unauthorized("Could not extract user information").WithKey("common.unauthorized"))
		return services.Identity{}, false
	}
	return *identity, true
}

// optionalIdentity returns the caller when one was resolved, the zero identity otherwise.
func optionalIdentity(c *gin.Context) services.Identity {
	if identity, err := middleware.GetIdentity(c); err == nil {
		return *identity
	}
	return services.Identity{}
}

func translate(c *gin.Context, key string, params map[string]string) string {
	if !i18n.Has(key) {
		return key
	}
	return i18n.T(middleware.GetLanguage(c), key, params)
}

func development() bool {
	cfg := config.GetConfig()
	return cfg != nil && cfg.IsDevelopment()
}

func queryBool(c *gin.Context, name string) (*bool, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, apperrors.Validation(name + " must be true or false")
	}
	return &v, nil
}

func queryFloat(c *gin.Context, name string) (*float64, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, apperrors.Validation(name + " must be a number")
	}
	return &v, nil
}
