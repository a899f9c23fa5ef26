package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/auth0/go-jwt-middleware/v2/jwks"
	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/kendall-kelly/home-services-api/models"
)

// Identity is the authenticated caller of an operation.
type Identity struct {
	ID    string
	Email string
	Phone string
	Name  string
	Role  string
}

func (i Identity) IsAdmin() bool    { return i.Role == models.RoleAdmin }
func (i Identity) IsProvider() bool { return i.Role == models.RoleProvider }
func (i Identity) IsCustomer() bool { return i.Role == models.RoleCustomer }

// Claims is what a verified bearer token asserts about its subject.
type Claims struct {
	Subject string
	Email   string
	Phone   string
	Name    string
}

// ErrInvalidToken is returned by verifiers for any token they cannot accept.
var ErrInvalidToken = errors.New("invalid or expired authentication token")

// TokenVerifier checks a raw bearer token.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*Claims, error)
}

// Auth0Claims are the custom claims read from an Auth0 access token.
type Auth0Claims struct {
	Scope       string `json:"scope"`
	Email       string `json:"email"`
	Name        string `json:"name"`
	PhoneNumber string `json:"phone_number"`
}

// Validate satisfies validator.CustomClaims. Nothing beyond the registered claims is enforced.
func (c *Auth0Claims) Validate(ctx context.Context) error {
	return nil
}

// HasScope checks whether the token carries a specific scope.
func (c *Auth0Claims) HasScope(expectedScope string) bool {
	for _, s := range strings.Split(c.Scope, " ") {
		if s == expectedScope {
			return true
		}
	}
	return false
}

// Auth0Verifier validates RS256 tokens against the tenant's cached JWKS.
type Auth0Verifier struct {
	validator *validator.Validator
}

func NewAuth0Verifier(domain, audience string) (*Auth0Verifier, error) {
	issuerURL, err := url.Parse("https://" + domain + "/")
	if err != nil {
		return nil, fmt.Errorf("failed to parse the issuer url: %w", err)
	}

	provider := jwks.NewCachingProvider(issuerURL, 5*time.Minute)

	v, err := validator.New(
		provider.KeyFunc,
		validator.RS256,
		issuerURL.String(),
		[]string{audience},
		validator.WithCustomClaims(func() validator.CustomClaims {
			return &Auth0Claims{}
		}),
		validator.WithAllowedClockSkew(time.Minute),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to set up the jwt validator: %w", err)
	}
	return &Auth0Verifier{validator: v}, nil
}

func (v *Auth0Verifier) Verify(ctx context.Context, token string) (*Claims, error) {
	out, err := v.validator.ValidateToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	validated, ok := out.(*validator.ValidatedClaims)
	if !ok || validated.RegisteredClaims.Subject == "" {
		return nil, ErrInvalidToken
	}

	claims := &Claims{Subject: validated.RegisteredClaims.Subject}
	if custom, ok := validated.CustomClaims.(*Auth0Claims); ok {
		claims.Email = custom.Email
		claims.Name = custom.Name
		claims.Phone = custom.PhoneNumber
	}
	return claims, nil
}

// hmacClaims is the body of a locally signed HS256 token.
type hmacClaims struct {
	Email       string `json:"email,omitempty"`
	Name        string `json:"name,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
	jwt.RegisteredClaims
}

// HMACVerifier validates HS256 tokens signed with a shared secret. It serves
// local development and service-to-service callers.
type HMACVerifier struct {
	secret []byte
}

func NewHMACVerifier(secret string) *HMACVerifier {
	return &HMACVerifier{secret: []byte(secret)}
}

func (v *HMACVerifier) Verify(ctx context.Context, token string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &hmacClaims{}, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithLeeway(time.Minute))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	c, ok := parsed.Claims.(*hmacClaims)
	if !ok || !parsed.Valid || c.Subject == "" {
		return nil, ErrInvalidToken
	}
	return &Claims{Subject: c.Subject, Email: c.Email, Name: c.Name, Phone: c.PhoneNumber}, nil
}

// SignHMACToken issues an HS256 token for subject. Used by tooling and tests.
func SignHMACToken(secret string, claims Claims, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, hmacClaims{
		Email:       claims.Email,
		Name:        claims.Name,
		PhoneNumber: claims.Phone,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   claims.Subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	return token.SignedString([]byte(secret))
}

// ChainVerifier accepts a token if any of its verifiers does.
type ChainVerifier []TokenVerifier

func (c ChainVerifier) Verify(ctx context.Context, token string) (*Claims, error) {
	if len(c) == 0 {
		return nil, ErrInvalidToken
	}
	var lastErr error
	for _, v := range c {
		claims, err := v.Verify(ctx, token)
		if err == nil {
			return claims, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// UserFinder is the slice of the user store the resolver needs.
type UserFinder interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// IdentityResolver maps a bearer token to an Identity. The role comes from
// the stored user record and defaults to customer when none exists yet.
type IdentityResolver struct {
	verifier TokenVerifier
	users    UserFinder
	log      *zap.Logger
}

func NewIdentityResolver(verifier TokenVerifier, users UserFinder, log *zap.Logger) *IdentityResolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &IdentityResolver{verifier: verifier, users: users, log: log}
}

func (r *IdentityResolver) Resolve(ctx context.Context, token string) (*Identity, error) {
	claims, err := r.verifier.Verify(ctx, token)
	if err != nil {
		return nil, err
	}

	id := &Identity{
		ID:    claims.Subject,
		Email: claims.Email,
		Phone: claims.Phone,
		Name:  claims.Name,
		Role:  models.RoleCustomer,
	}

	user, err := r.users.FindByID(ctx, claims.Subject)
	switch {
	case err == nil:
		if models.IsValidRole(user.Role) {
			id.Role = user.Role
		}
		if id.Name == "" {
			id.Name = user.DisplayLabel()
		}
		if id.Email == "" {
			id.Email = user.Email
		}
		if id.Phone == "" {
			id.Phone = user.ContactPhone()
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		r.log.Warn("failed to resolve user role, defaulting to customer",
			zap.String("user_id", claims.Subject),
			zap.Error(err),
		)
	}
	return id, nil
}
