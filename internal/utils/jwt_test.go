package utils

import (
	"testing"
	"time"

	"github.com/ahmadqo/event-certificate-service/internal/model"
	"github.com/stretchr/testify/require"
)

func TestValidateToken(t *testing.T) {
	claims := model.JWTClaims{UserID: "user-1", Email: "admin@example.com", Role: "admin", Name: "Admin"}

	t.Run("valid token", func(t *testing.T) {
		token, err := GenerateAccessToken(claims, "secret", time.Hour)
		require.NoError(t, err)

		got, err := ValidateToken(token, "secret")
		require.NoError(t, err)
		require.Equal(t, claims, *got)
	})

	t.Run("wrong secret", func(t *testing.T) {
		token, err := GenerateAccessToken(claims, "secret", time.Hour)
		require.NoError(t, err)

		_, err = ValidateToken(token, "other")
		require.Error(t, err)
	})

	t.Run("expired token", func(t *testing.T) {
		token, err := GenerateAccessToken(claims, "secret", -time.Minute)
		require.NoError(t, err)

		_, err = ValidateToken(token, "secret")
		require.Error(t, err)
	})
}
