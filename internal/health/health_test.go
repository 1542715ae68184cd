package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandler(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("refused") }

	tests := []struct {
		name   string
		checks map[string]Check
		status int
		want   map[string]string
	}{
		{"no deps", nil, http.StatusOK, map[string]string{}},
		{"all up", map[string]Check{"redis": ok, "postgres": ok}, http.StatusOK, map[string]string{"redis": "up", "postgres": "up"}},
		{"one down", map[string]Check{"redis": ok, "postgres": down}, http.StatusServiceUnavailable, map[string]string{"redis": "up", "postgres": "down"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			Handler("car-rental", tt.checks)(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			assert.Equal(t, tt.status, rec.Code)
			var res Response
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
			assert.Equal(t, "car-rental", res.Service)
			assert.Equal(t, tt.want, res.Checks)
		})
	}
}
