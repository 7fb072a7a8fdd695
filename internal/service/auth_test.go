package service

import (
	"testing"
	"time"

	"rewear/config"
	"rewear/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoleForPhone(t *testing.T) {
	assert.Equal(t, models.RoleAdmin, RoleForPhone("admin9000"))
	assert.Equal(t, models.RoleAdmin, RoleForPhone("9000ADMIN"))
	assert.Equal(t, models.RoleUser, RoleForPhone("9876543210"))
	assert.Equal(t, models.RoleUser, RoleForPhone(""))
}

func TestTokenRoundTrip(t *testing.T) {
	svc := &AuthService{
		cfg: &config.Config{
			Auth: config.AuthConfig{
				JWTSecret: "test-secret",
				TokenTTL:  time.Hour,
			},
		},
	}

	user := &models.User{ID: 42, Role: models.RoleAdmin}
	token, err := svc.GenerateToken(user)
	require.NoError(t, err)

	claims, err := svc.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, models.RoleAdmin, claims.Role)
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	issuer := &AuthService{
		cfg: &config.Config{
			Auth: config.AuthConfig{JWTSecret: "secret-a", TokenTTL: time.Hour},
		},
	}
	verifier := &AuthService{
		cfg: &config.Config{
			Auth: config.AuthConfig{JWTSecret: "secret-b", TokenTTL: time.Hour},
		},
	}

	token, err := issuer.GenerateToken(&models.User{ID: 1, Role: models.RoleUser})
	require.NoError(t, err)

	_, err = verifier.ParseToken(token)
	assert.Error(t, err)
}

func TestParseTokenRejectsGarbage(t *testing.T) {
	svc := &AuthService{
		cfg: &config.Config{
			Auth: config.AuthConfig{JWTSecret: "test-secret", TokenTTL: time.Hour},
		},
	}

	_, err := svc.ParseToken("not-a-token")
	assert.Error(t, err)
}
