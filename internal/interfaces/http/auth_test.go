package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/fieldops/internal/domain/entity"
)

func TestAuthenticator_Parse(t *testing.T) {
	auth := NewAuthenticator(AuthConfig{Secret: "s3cret", Issuer: "fieldops"})

	valid, err := auth.IssueToken(7, 3, time.Hour)
	require.NoError(t, err)
	expired, err := auth.IssueToken(7, 3, -time.Minute)
	require.NoError(t, err)
	otherKey, err := NewAuthenticator(AuthConfig{Secret: "other", Issuer: "fieldops"}).IssueToken(7, 3, time.Hour)
	require.NoError(t, err)
	otherIssuer, err := NewAuthenticator(AuthConfig{Secret: "s3cret", Issuer: "elsewhere"}).IssueToken(7, 3, time.Hour)
	require.NoError(t, err)
	noTenant, err := auth.IssueToken(7, 0, time.Hour)
	require.NoError(t, err)
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{
		TenantID:         3,
		RegisteredClaims: jwt.RegisteredClaims{Subject: "7", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name    string
		token   string
		want    entity.Scope
		wantErr bool
	}{
		{name: "valid", token: valid, want: entity.Scope{TenantID: 3, ActorID: 7}},
		{name: "expired", token: expired, wantErr: true},
		{name: "wrong key", token: otherKey, wantErr: true},
		{name: "wrong issuer", token: otherIssuer, wantErr: true},
		{name: "missing tenant", token: noTenant, wantErr: true},
		{name: "unsigned", token: none, wantErr: true},
		{name: "garbage", token: "not-a-token", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scope, err := auth.Parse(tt.token)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidToken)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, scope)
		})
	}
}

func TestAuthenticator_Middleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	auth := NewAuthenticator(AuthConfig{Secret: "s3cret"})
	token, err := auth.IssueToken(9, 4, time.Hour)
	require.NoError(t, err)

	router := gin.New()
	router.GET("/whoami", auth.Middleware(), func(c *gin.Context) {
		scope, ok := scopeFrom(c)
		require.True(t, ok)
		c.JSON(http.StatusOK, gin.H{"tenant": scope.TenantID, "actor": scope.ActorID})
	})

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"bad token", "Bearer abc", http.StatusUnauthorized},
		{"valid", "Bearer " + token, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusOK {
				assert.JSONEq(t, `{"tenant":4,"actor":9}`, w.Body.String())
			}
		})
	}
}
