package reports

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"car-rental/internal/api"
	"car-rental/internal/api/apitest"
	"car-rental/pkg/logger"
)

func TestHandler_GenerateAndExport(t *testing.T) {
	backend := apitest.New(t)
	backend.Rentals["r1"] = api.Rental{ID: "r1", TotalCost: 40}
	h := NewHandler(NewService(backend.Client(), logger.NewNop()), nil).Routes()

	body, _ := json.Marshal(GenerateForm{TimePeriod: "daily", ExportFormat: "csv"})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/generate", bytes.NewReader(body)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var rep api.FinancialReport
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&rep))
	assert.Equal(t, 40.0, rep.NetProfit)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/"+rep.ReportID+"/export?format=csv", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), rep.ReportID+".csv")
	assert.True(t, strings.HasPrefix(rec.Body.String(), "reportID,"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/"+rep.ReportID+"/export?format=pdf", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing/export", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_TodayDisabled(t *testing.T) {
	h := NewHandler(NewService(apitest.New(t).Client(), logger.NewNop()), nil).Routes()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/today", nil))
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}

func TestHandler_Today(t *testing.T) {
	tally := newTally(t)
	require.NoError(t, tally.Handle(context.Background(), completed(t, 12.5, tally.now())))
	h := NewHandler(NewService(apitest.New(t).Client(), logger.NewNop()), tally).Routes()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/today", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var today Today
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&today))
	assert.InDelta(t, 12.5, today.Revenue, 1e-9)
}
