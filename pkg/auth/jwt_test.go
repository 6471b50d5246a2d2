package auth

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	a := New("test_secret")

	token, err := a.GenerateToken(42, "alice")
	require.NoError(t, err)

	claims, err := a.ValidateToken(token)
	require.NoError(t, err)
	require.Equal(t, int64(42), claims.UserID)
	require.Equal(t, "alice", claims.Username)
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	token, err := New("secret_a").GenerateToken(1, "alice")
	require.NoError(t, err)

	_, err = New("secret_b").ValidateToken(token)
	require.Error(t, err)
}

func TestValidateRejectsGarbage(t *testing.T) {
	_, err := New("secret").ValidateToken("not.a.token")
	require.Error(t, err)
}
