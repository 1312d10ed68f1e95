package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, accessTTL, refreshTTL time.Duration) *AuthService {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	privatePEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
	publicDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	publicPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "PUBLIC KEY",
		Bytes: publicDER,
	})

	service, err := NewAuthService(privatePEM, publicPEM, accessTTL, refreshTTL)
	require.NoError(t, err)
	return service
}

func TestGenerateTokenPair_RoundTrip(t *testing.T) {
	service := newTestService(t, 15*time.Minute, 7*24*time.Hour)

	identity := Identity{
		UID:         "u1",
		DisplayName: "Grace Hopper",
		PhotoURL:    "https://img.example.com/grace.png",
		Email:       "grace@example.com",
	}
	pair, err := service.GenerateTokenPair(identity)
	require.NoError(t, err)

	access, err := service.ValidateToken(pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "access", access.TokenType)
	require.Equal(t, "u1", access.UID)
	require.Equal(t, "Grace Hopper", access.DisplayName)
	require.Equal(t, "grace@example.com", access.Email)

	refresh, err := service.ValidateToken(pair.RefreshToken)
	require.NoError(t, err)
	require.Equal(t, "refresh", refresh.TokenType)
	// jti 是吊销黑名单的键，刷新令牌必须携带
	require.NotEmpty(t, refresh.ID)
	require.False(t, access.ExpiresAt.Time.After(refresh.ExpiresAt.Time),
		"access token must expire before the refresh token")
}

func TestValidateToken_Rejections(t *testing.T) {
	service := newTestService(t, 15*time.Minute, time.Hour)

	_, err := service.ValidateToken("")
	require.Error(t, err)

	_, err = service.ValidateToken("not-a-jwt")
	require.Error(t, err)

	// 其他实例签发的令牌验签失败。
	other := newTestService(t, 15*time.Minute, time.Hour)
	pair, err := other.GenerateTokenPair(Identity{UID: "u1"})
	require.NoError(t, err)

	_, err = service.ValidateToken(pair.AccessToken)
	require.Error(t, err, "token signed with a foreign key must be rejected")
}

func TestValidateToken_Expired(t *testing.T) {
	service := newTestService(t, -time.Minute, time.Hour)

	pair, err := service.GenerateTokenPair(Identity{UID: "u1"})
	require.NoError(t, err)

	_, err = service.ValidateToken(pair.AccessToken)
	require.Error(t, err, "expired access token must be rejected")
}

func TestNewAuthService_RequiresKeys(t *testing.T) {
	_, err := NewAuthService(nil, []byte("x"), time.Minute, time.Hour)
	require.Error(t, err)

	_, err = NewAuthService([]byte("x"), nil, time.Minute, time.Hour)
	require.Error(t, err)

	_, err = NewAuthService([]byte("not pem"), []byte("not pem"), time.Minute, time.Hour)
	require.Error(t, err)
}
