package middleware

import (
	"context"
	"errors"
	"net/http"

	jwtmiddleware "github.com/auth0/go-jwt-middleware/v2"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kendall-kelly/home-services-api/i18n"
	"github.com/kendall-kelly/home-services-api/services"
)

const (
	identityKey    = "identity"
	accessTokenKey = "access_token"
)

// IdentityResolver turns a bearer token into the caller's identity.
type IdentityResolver interface {
	Resolve(ctx context.Context, token string) (*services.Identity, error)
}

// Authenticate rejects requests without a valid bearer token and stores the
// resolved identity and the raw token in the Gin context.
func Authenticate(resolver IdentityResolver, log *zap.Logger) gin.HandlerFunc {
	return authenticate(resolver, log, false)
}

// OptionalAuthenticate resolves the caller when a bearer token is sent and
// lets anonymous requests through. An invalid token is still rejected.
func OptionalAuthenticate(resolver IdentityResolver, log *zap.Logger) gin.HandlerFunc {
	return authenticate(resolver, log, true)
}

func authenticate(resolver IdentityResolver, log *zap.Logger, optional bool) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}

	validate := func(ctx context.Context, token string) (interface{}, error) {
		return resolver.Resolve(ctx, token)
	}

	return func(c *gin.Context) {
		errorHandler := func(w http.ResponseWriter, r *http.Request, err error) {
			code := "INVALID_TOKEN"
			if errors.Is(err, jwtmiddleware.ErrJWTMissing) {
				code = "MISSING_TOKEN"
			}
			log.Debug("request rejected by authentication",
				zap.String("path", r.URL.Path),
				zap.Error(err),
			)
			abortWithError(c, http.StatusUnauthorized, code, i18n.T(GetLanguage(c), "common.unauthorized", nil))
		}

		mw := jwtmiddleware.New(
			validate,
			jwtmiddleware.WithErrorHandler(errorHandler),
			jwtmiddleware.WithValidateOnOptions(false),
			jwtmiddleware.WithCredentialsOptional(optional),
		)

		var handler http.HandlerFunc = func(w http.ResponseWriter, r *http.Request) {
			identity, ok := r.Context().Value(jwtmiddleware.ContextKey{}).(*services.Identity)
			if !ok || identity == nil {
				if optional {
					c.Next()
					return
				}
				abortWithError(c, http.StatusUnauthorized, "INVALID_TOKEN", i18n.T(GetLanguage(c), "common.unauthorized", nil))
				return
			}
			token, _ := jwtmiddleware.AuthHeaderTokenExtractor(r)

			c.Request = r
			SetIdentity(c, identity)
			c.Set(accessTokenKey, token)
			c.Next()
		}

		mw.CheckJWT(handler).ServeHTTP(c.Writer, c.Request)
	}
}

// SetIdentity installs identity as the authenticated caller.
func SetIdentity(c *gin.Context, identity *services.Identity) {
	c.Set(identityKey, identity)
}

// GetIdentity returns the authenticated caller.
func GetIdentity(c *gin.Context) (*services.Identity, error) {
	v, exists := c.Get(identityKey)
	if !exists {
		return nil, &AuthError{Code: "MISSING_IDENTITY", Message: "Identity not found in context"}
	}
	identity, ok := v.(*services.Identity)
	if !ok || identity == nil {
		return nil, &AuthError{Code: "INVALID_IDENTITY", Message: "Identity is not in the expected format"}
	}
	return identity, nil
}

// AccessToken returns the raw bearer token of the request, if any.
func AccessToken(c *gin.Context) string {
	return c.GetString(accessTokenKey)
}

// RequireRoles allows the request through only for callers holding one of roles.
func RequireRoles(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, err := GetIdentity(c)
		if err != nil {
			abortWithError(c, http.StatusUnauthorized, "UNAUTHORIZED", i18n.T(GetLanguage(c), "common.unauthorized", nil))
			return
		}
		for _, role := range roles {
			if identity.Role == role {
				c.Next()
				return
			}
		}
		abortWithError(c, http.StatusForbidden, "FORBIDDEN", i18n.T(GetLanguage(c), "common.forbidden", nil))
	}
}

// AuthError represents an authentication error
type AuthError struct {
	Code    string
	Message string
}

func (e *AuthError) Error() string {
	return e.Message
}

func abortWithError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}
