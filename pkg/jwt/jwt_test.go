package jwt

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signed(t *testing.T, claims Claims) string {
	t.Helper()
	raw, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims).SignedString([]byte("backend-secret"))
	require.NoError(t, err)
	return raw
}

func TestParse_ReadsClaimsWithoutKey(t *testing.T) {
	raw := signed(t, Claims{
		ProfileID:        "prof-7",
		Role:             "customer",
		RegisteredClaims: gojwt.RegisteredClaims{Subject: "user-1"},
	})

	c, err := Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "user-1", c.UserID())
	assert.Equal(t, "prof-7", c.ProfileID)
	assert.Equal(t, "customer", c.Role)
}

func TestParse_Garbage(t *testing.T) {
	_, err := Parse("not-a-token")
	assert.Error(t, err)
}

func TestWithToken(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, "", TokenFrom(ctx))
	assert.Nil(t, GetClaims(ctx))

	raw := signed(t, Claims{RegisteredClaims: gojwt.RegisteredClaims{Subject: "user-2"}})
	ctx = WithToken(ctx, raw)
	assert.Equal(t, raw, TokenFrom(ctx))
	require.NotNil(t, GetClaims(ctx))
	assert.Equal(t, "user-2", GetClaims(ctx).UserID())

	// opaque tokens are still carried
	ctx = WithToken(context.Background(), "opaque")
	assert.Equal(t, "opaque", TokenFrom(ctx))
	assert.Nil(t, GetClaims(ctx))
}

func TestRequireToken(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	h := Carry(RequireToken(ok))

	expired := signed(t, Claims{RegisteredClaims: gojwt.RegisteredClaims{
		Subject:   "user-3",
		ExpiresAt: gojwt.NewNumericDate(time.Now().Add(-time.Hour)),
	}})
	valid := signed(t, Claims{RegisteredClaims: gojwt.RegisteredClaims{
		Subject:   "user-3",
		ExpiresAt: gojwt.NewNumericDate(time.Now().Add(time.Hour)),
	}})

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"expired", "Bearer " + expired, http.StatusUnauthorized},
		{"valid", "Bearer " + valid, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}
