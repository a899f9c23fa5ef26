package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kendall-kelly/home-services-api/i18n"
	"github.com/kendall-kelly/home-services-api/middleware/requestid"
	"github.com/kendall-kelly/home-services-api/repository"
)

const (
	languageKey = "lang"
	pageKey     = "page"
)

// Language picks the response language from ?lang= or Accept-Language.
func Language() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(languageKey, i18n.Detect(c.Query("lang"), c.GetHeader("Accept-Language")))
		c.Next()
	}
}

// GetLanguage returns the negotiated language, English when none was set.
func GetLanguage(c *gin.Context) string {
	if lang := c.GetString(languageKey); lang != "" {
		return lang
	}
	return i18n.English
}

// Pagination validates ?limit= and ?offset=. limit must be 1-100 and
// defaults to 50; offset must not be negative.
func Pagination() gin.HandlerFunc {
	return func(c *gin.Context) {
		page := repository.Page{Limit: repository.DefaultLimit}

		if raw := c.Query("limit"); raw != "" {
			limit, err := strconv.Atoi(raw)
			if err != nil || limit < 1 || limit > repository.MaxLimit {
				abortWithError(c, http.StatusBadRequest, "INVALID_PAGINATION", "limit must be an integer between 1 and 100")
				return
			}
			page.Limit = limit
		}
		if raw := c.Query("offset"); raw != "" {
			offset, err := strconv.Atoi(raw)
			if err != nil || offset < 0 {
				abortWithError(c, http.StatusBadRequest, "INVALID_PAGINATION", "offset must be a non-negative integer")
				return
			}
			page.Offset = offset
		}

		c.Set(pageKey, page)
		c.Next()
	}
}

// GetPage returns the validated page, or the default page when Pagination did not run.
func GetPage(c *gin.Context) repository.Page {
	if v, ok := c.Get(pageKey); ok {
		if page, ok := v.(repository.Page); ok {
			return page
		}
	}
	return repository.Page{Limit: repository.DefaultLimit}
}

// Recovery turns a panic into a 500 envelope and logs it with the request id.
func Recovery(log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, recovered interface{}) {
		log.Error("panic recovered",
			zap.Any("panic", recovered),
			zap.String("path", c.Request.URL.Path),
			zap.String("request_id", requestid.Value(c)),
			zap.Stack("stack"),
		)
		abortWithError(c, http.StatusInternalServerError, "INTERNAL_ERROR", i18n.T(GetLanguage(c), "common.serverError", nil))
	})
}
