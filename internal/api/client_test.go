package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"car-rental/internal/geo"
	"car-rental/pkg/jwt"
	"car-rental/pkg/logger"
)

func newTestClient(t *testing.T, r chi.Router) *Client {
	t.Helper()
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, 2*time.Second, logger.NewNop())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func TestClient_AttachesBearerFromContext(t *testing.T) {
	var gotAuth atomic.Value
	r := chi.NewRouter()
	r.Get("/api/cars/all", func(w http.ResponseWriter, r *http.Request) {
		gotAuth.Store(r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, []Car{{ID: "c1", Brand: "Toyota", Status: CarAvailable}})
	})
	c := newTestClient(t, r)

	cars, err := c.ListCars(jwt.WithToken(context.Background(), "tok-123"))
	require.NoError(t, err)
	require.Len(t, cars, 1)
	assert.Equal(t, "Toyota", cars[0].Brand)
	assert.Equal(t, "Bearer tok-123", gotAuth.Load())

	_, err = c.ListCars(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "", gotAuth.Load())
}

func TestClient_NotFoundMapsToSentinel(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/profiles/{id}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "profile not found"})
	})
	c := newTestClient(t, r)

	_, err := c.GetProfile(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))

	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Contains(t, apiErr.Body, "profile not found")
}

func TestClient_ServerErrorIsNotNotFound(t *testing.T) {
	r := chi.NewRouter()
	r.Post("/rental/create", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	c := newTestClient(t, r)

	_, err := c.CreateRental(context.Background(), &Rental{CarID: "c1"})
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestClient_UpdateCarLocation(t *testing.T) {
	var got CarLocationUpdate
	r := chi.NewRouter()
	r.Put("/api/cars/{id}/location", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "c9", chi.URLParam(r, "id"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	})
	c := newTestClient(t, r)

	err := c.UpdateCarLocation(context.Background(), "c9", CarLocationUpdate{
		Latitude: 6.9, Longitude: 79.8, DistanceTravelled: 1250,
	})
	require.NoError(t, err)
	assert.Equal(t, 1250.0, got.DistanceTravelled)
	assert.Equal(t, 6.9, got.Latitude)
}

func TestClient_SearchLocation(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/location/search", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "6.9344", r.URL.Query().Get("latitude"))
		assert.Equal(t, "79.8428", r.URL.Query().Get("longitude"))
		writeJSON(w, http.StatusOK, Location{ID: "loc-1", Name: "Fort"})
	})
	c := newTestClient(t, r)

	loc, err := c.SearchLocation(context.Background(), geo.Point{Lat: 6.9344, Lng: 79.8428})
	require.NoError(t, err)
	assert.Equal(t, "loc-1", loc.ID)
}

func TestClient_CreatePaymentRoundTrip(t *testing.T) {
	r := chi.NewRouter()
	r.Post("/payment/create", func(w http.ResponseWriter, r *http.Request) {
		var p Payment
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&p))
		p.ID = "pay-1"
		writeJSON(w, http.StatusCreated, p)
	})
	c := newTestClient(t, r)

	p, err := c.CreatePayment(context.Background(), &Payment{RentalID: "r1", PaymentAmount: 512.5, PaymentMethod: "CARD"})
	require.NoError(t, err)
	assert.Equal(t, "pay-1", p.ID)
	assert.Equal(t, "r1", p.RentalID)
	assert.Equal(t, 512.5, p.PaymentAmount)
}

func TestClient_DeleteWithNoContent(t *testing.T) {
	r := chi.NewRouter()
	r.Delete("/insurance/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	c := newTestClient(t, r)

	assert.NoError(t, c.DeleteInsurance(context.Background(), "ins-1"))
}

func TestClient_UnreachableBackend(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", 200*time.Millisecond, logger.NewNop())
	_, err := c.ListReports(context.Background())
	assert.ErrorIs(t, err, ErrUnreachable)
	assert.NotErrorIs(t, err, ErrNotFound)
}
