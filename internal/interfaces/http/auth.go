package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/garyjia/fieldops/internal/domain/entity"
)

const scopeKey = "scope"

// ErrInvalidToken is returned for any token that fails verification
var ErrInvalidToken = errors.New("invalid token")

// Claims are the JWT claims identifying the actor. The subject holds the
// actor id.
type Claims struct {
	TenantID int64 `json:"tenant_id"`
	jwt.RegisteredClaims
}

// AuthConfig configures token verification
type AuthConfig struct {
	Secret string
	Issuer string
}

// Authenticator resolves the tenant and actor of a request from an
// HS256 bearer token
type Authenticator struct {
	secret []byte
	issuer string
}

// NewAuthenticator creates a new authenticator
func NewAuthenticator(cfg AuthConfig) *Authenticator {
	return &Authenticator{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
	}
}

// IssueToken signs a token for actorID in tenantID
func (a *Authenticator) IssueToken(actorID, tenantID int64, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		TenantID: tenantID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(actorID, 10),
			Issuer:    a.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// Parse verifies tokenString and returns the scope it grants
func (a *Authenticator) Parse(tokenString string) (entity.Scope, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, opts...)
	if err != nil {
		return entity.Scope{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return entity.Scope{}, ErrInvalidToken
	}

	actorID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || actorID <= 0 {
		return entity.Scope{}, fmt.Errorf("%w: subject is not an actor id", ErrInvalidToken)
	}
	if claims.TenantID <= 0 {
		return entity.Scope{}, fmt.Errorf("%w: missing tenant", ErrInvalidToken)
	}
	return entity.Scope{TenantID: claims.TenantID, ActorID: actorID}, nil
}

// Middleware rejects requests without a valid bearer token and stores the
// resolved scope on the gin context
func (a *Authenticator) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		tokenString, found := strings.CutPrefix(header, "Bearer ")
		if !found || tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Message: "Missing bearer token"})
			return
		}

		scope, err := a.Parse(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Message: "Invalid or expired token"})
			return
		}

		c.Set(scopeKey, scope)
		c.Next()
	}
}

// scopeFrom returns the scope stored by the auth middleware
func scopeFrom(c *gin.Context) (entity.Scope, bool) {
	v, ok := c.Get(scopeKey)
	if !ok {
		return entity.Scope{}, false
	}
	scope, ok := v.(entity.Scope)
	return scope, ok
}
