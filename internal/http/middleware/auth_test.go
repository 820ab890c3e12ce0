package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/nurpe/snowops-agreements/internal/model"
)

type parserFunc func(string) (model.Principal, error)

func (f parserFunc) Parse(token string) (model.Principal, error) { return f(token) }

func TestAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	id := uuid.New()
	parser := parserFunc(func(token string) (model.Principal, error) {
		if token != "good" {
			return model.Principal{}, errors.New("bad token")
		}
		return model.Principal{UserID: id}, nil
	})

	router := gin.New()
	router.GET("/me", Auth(parser), func(c *gin.Context) {
		principal, ok := MustPrincipal(c)
		require.True(t, ok)
		c.String(http.StatusOK, principal.UserID.String())
	})

	cases := []struct {
		header string
		status int
	}{
		{"Bearer good", http.StatusOK},
		{"Bearer bad", http.StatusUnauthorized},
		{"good", http.StatusUnauthorized},
		{"", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		require.Equal(t, tc.status, rec.Code, tc.header)
		if tc.status == http.StatusOK {
			require.Equal(t, id.String(), rec.Body.String())
		}
	}
}
