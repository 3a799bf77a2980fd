package tokens

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/sheetsync/sheetsync/backend/go-services/internal/config"
	"github.com/sheetsync/sheetsync/backend/go-services/internal/models"
	"github.com/sheetsync/sheetsync/backend/go-services/pkg/middleware"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.JWT.Secret = "test-secret-32-bytes-should-be-long-enough"
	return cfg
}

func TestGenerateAccessToken_ValidAndClaims(t *testing.T) {
	cfg := testConfig()
	u := &models.User{Sub: "user-123", Name: "Test User", Email: "test@example.com"}
	tokenStr, err := GenerateAccessToken(cfg, u, 2*time.Minute)
	require.NoError(t, err)

	parsed, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		return []byte(cfg.JWT.Secret), nil
	})
	require.NoError(t, err)
	require.True(t, parsed.Valid)

	claims, ok := parsed.Claims.(jwt.MapClaims)
	require.True(t, ok)
	require.Equal(t, "user-123", claims["sub"])
	require.Equal(t, "test@example.com", claims["email"])
}

func TestVerifier_RoundTrip(t *testing.T) {
	cfg := testConfig()
	u := &models.User{Sub: "user-123"}
	tokenStr, err := GenerateAccessToken(cfg, u, 2*time.Minute)
	require.NoError(t, err)

	ver := NewVerifier(cfg.JWT.Secret)
	tok, err := ver.Verify(context.Background(), tokenStr)
	require.NoError(t, err)

	var claims map[string]interface{}
	require.NoError(t, tok.Claims(&claims))
	require.Equal(t, "user-123", middleware.Subject(claims))
}

func TestVerifier_RejectsWrongSecret(t *testing.T) {
	cfg := testConfig()
	tokenStr, err := GenerateAccessToken(cfg, &models.User{Sub: "user-123"}, time.Minute)
	require.NoError(t, err)

	ver := NewVerifier("a-different-secret-entirely-0000000")
	_, err = ver.Verify(context.Background(), tokenStr)
	require.Error(t, err)
}

func TestVerifier_RejectsExpired(t *testing.T) {
	cfg := testConfig()
	tokenStr, err := GenerateAccessToken(cfg, &models.User{Sub: "user-123"}, -time.Minute)
	require.NoError(t, err)

	ver := NewVerifier(cfg.JWT.Secret)
	_, err = ver.Verify(context.Background(), tokenStr)
	require.Error(t, err)
}

func TestVerifier_RejectsGarbage(t *testing.T) {
	ver := NewVerifier("secret")
	_, err := ver.Verify(context.Background(), "not-a-jwt")
	require.Error(t, err)
}
