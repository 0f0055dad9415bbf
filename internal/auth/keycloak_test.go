package auth_test

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/mautops/claims-gin/internal/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKid = "test-key"

// jwksServer 提供测试用 JWKS
type jwksServer struct {
	*httptest.Server
	key      *rsa.PrivateKey
	requests int32
}

func newJWKSServer(t *testing.T) *jwksServer {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	s := &jwksServer{key: key}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&s.requests, 1)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"keys": []map[string]string{{
				"kid": testKid,
				"kty": "RSA",
				"n":   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
			}},
		})
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *jwksServer) sign(t *testing.T, issuer, kid string, expiresIn time.Duration) string {
	claims := jwt.MapClaims{
		"iss":                issuer,
		"sub":                "user-123",
		"preferred_username": "coordinator",
		"email":              "coordinator@example.com",
		"realm_access":       map[string]interface{}{"roles": []string{"coordinator"}},
		"exp":                time.Now().Add(expiresIn).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	if kid != "" {
		token.Header["kid"] = kid
	}
	signed, err := token.SignedString(s.key)
	require.NoError(t, err)
	return signed
}

const issuer = "https://keycloak.example.com/realms/claims"

// TestKeycloakTokenValidator_ValidToken 测试合法 token
func TestKeycloakTokenValidator_ValidToken(t *testing.T) {
	server := newJWKSServer(t)
	validator := auth.NewKeycloakTokenValidator(issuer, server.URL)

	claims, err := validator.ValidateToken(server.sign(t, issuer, testKid, time.Hour))
	require.NoError(t, err)
	assert.Equal(t, "coordinator", claims.Identity())
	assert.Equal(t, "coordinator@example.com", claims.Email)
	assert.Equal(t, []string{"coordinator"}, claims.RealmAccess.Roles)

	// 公钥被缓存
	_, err = validator.ValidateToken(server.sign(t, issuer, testKid, time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&server.requests))
}

// TestKeycloakTokenValidator_InvalidTokens 测试非法 token
func TestKeycloakTokenValidator_InvalidTokens(t *testing.T) {
	server := newJWKSServer(t)
	validator := auth.NewKeycloakTokenValidator(issuer, server.URL)

	tests := map[string]string{
		"expired":      server.sign(t, issuer, testKid, -time.Hour),
		"wrong issuer": server.sign(t, "https://evil.example.com", testKid, time.Hour),
		"missing kid":  server.sign(t, issuer, "", time.Hour),
		"unknown kid":  server.sign(t, issuer, "other", time.Hour),
		"garbage":      "not-a-jwt",
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := validator.ValidateToken(token)
			assert.Error(t, err)
		})
	}
}

// TestKeycloakTokenValidator_DefaultJWKSURL 测试默认 JWKS 地址
func TestKeycloakTokenValidator_DefaultJWKSURL(t *testing.T) {
	validator := auth.NewKeycloakTokenValidator(issuer+"/", "")
	assert.Equal(t, issuer, validator.Issuer())
}

// TestReviewerIdentityMiddleware 测试审核人身份中间件
func TestReviewerIdentityMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	server := newJWKSServer(t)
	validator := auth.NewKeycloakTokenValidator(issuer, server.URL)

	router := gin.New()
	router.Use(auth.ReviewerIdentityMiddleware(validator))
	router.GET("/whoami", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user": c.GetString(auth.ContextKeyUserID)})
	})

	do := func(header string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	// 没有 token 时匿名放行
	w := do("")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user":""}`, w.Body.String())

	w = do("Bearer " + server.sign(t, issuer, testKid, time.Hour))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user":"coordinator"}`, w.Body.String())

	w = do("Bearer invalid")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
