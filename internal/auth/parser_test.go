package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func sign(t *testing.T, secret string, method jwt.SigningMethod, claims Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestParseValidToken(t *testing.T) {
	id := uuid.New()
	token := sign(t, "secret", jwt.SigningMethodHS256, Claims{
		UserID: id.String(),
		Email:  "ann@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	principal, err := NewParser("secret").Parse(token)
	require.NoError(t, err)
	require.Equal(t, id, principal.UserID)
	require.Equal(t, "ann@example.com", principal.Email)
}

func TestParseFallsBackToSubject(t *testing.T) {
	id := uuid.New()
	token := sign(t, "secret", jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: id.String()},
	})

	principal, err := NewParser("secret").Parse(token)
	require.NoError(t, err)
	require.Equal(t, id, principal.UserID)
}

func TestParseRejects(t *testing.T) {
	id := uuid.NewString()
	cases := map[string]string{
		"wrong secret": sign(t, "other", jwt.SigningMethodHS256, Claims{UserID: id}),
		"expired": sign(t, "secret", jwt.SigningMethodHS256, Claims{
			UserID:           id,
			RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute))},
		}),
		"wrong algorithm": sign(t, "secret", jwt.SigningMethodHS512, Claims{UserID: id}),
		"bad user id":     sign(t, "secret", jwt.SigningMethodHS256, Claims{UserID: "42"}),
		"garbage":         "not-a-token",
	}
	parser := NewParser("secret")
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := parser.Parse(token)
			require.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestExtractBearer(t *testing.T) {
	token, err := ExtractBearer("Bearer abc.def")
	require.NoError(t, err)
	require.Equal(t, "abc.def", token)

	_, err = ExtractBearer("Basic abc")
	require.ErrorIs(t, err, ErrInvalidToken)
	_, err = ExtractBearer("")
	require.ErrorIs(t, err, ErrInvalidToken)
}
