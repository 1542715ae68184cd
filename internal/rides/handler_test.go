package rides

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"car-rental/internal/journal"
	"car-rental/pkg/jwt"
)

type staticFailed []journal.Record

func (s staticFailed) Failed(context.Context, int) ([]journal.Record, error) { return s, nil }

func doJSON(t *testing.T, h http.Handler, method, path string, body any, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandler_StartUsesProfileFromToken(t *testing.T) {
	svc, _ := newTestService(t, nil, &okBackend{}, time.Millisecond)
	h := jwt.Carry(NewHandler(svc, nil).Routes())

	raw, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, jwt.Claims{ProfileID: "prof-9"}).
		SignedString([]byte("anything"))
	require.NoError(t, err)

	rec := doJSON(t, h, http.MethodPost, "/", map[string]any{
		"position": map[string]float64{"latitude": 0, "longitude": 0},
	}, http.Header{"Authorization": {"Bearer " + raw}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var res StartResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	assert.Equal(t, "prof-9", res.Ride.CustomerID)
	assert.Len(t, res.Cars, 2)
}

func TestHandler_ErrorStatuses(t *testing.T) {
	svc, _ := newTestService(t, nil, &okBackend{}, time.Millisecond)
	h := NewHandler(svc, nil).Routes()

	rec := doJSON(t, h, http.MethodPost, "/", map[string]any{"position": map[string]float64{"latitude": 0}}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "missing customer")

	rec = doJSON(t, h, http.MethodGet, "/nope", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/", map[string]any{"customer_id": "c1", "position": map[string]float64{}}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var res StartResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))

	rec = doJSON(t, h, http.MethodPost, "/"+res.Ride.ID+"/accept", map[string]any{"destination": map[string]float64{"latitude": 1, "longitude": 1}}, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/"+res.Ride.ID+"/select", map[string]string{"car_id": "unknown"}, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/"+res.Ride.ID+"/select", map[string]string{"car_id": "car-near"}, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodDelete, "/"+res.Ride.ID, nil, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestHandler_Failed(t *testing.T) {
	svc, _ := newTestService(t, nil, &okBackend{}, time.Millisecond)

	rec := doJSON(t, NewHandler(svc, nil).Routes(), http.MethodGet, "/failed", nil, nil)
	assert.Equal(t, http.StatusNotImplemented, rec.Code)

	recs := staticFailed{{RideID: "r1", FailedStep: StepCreatePayment, Outcome: journal.OutcomeFailed}}
	rec = doJSON(t, NewHandler(svc, recs).Routes(), http.MethodGet, "/failed", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got []journal.Record
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	require.Len(t, got, 1)
	assert.Equal(t, StepCreatePayment, got[0].FailedStep)
}
