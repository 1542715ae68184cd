// Package apitest runs an in-memory fleet backend on httptest for handler and
// service tests.
package apitest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"car-rental/internal/api"
	"car-rental/pkg/logger"
)

// Backend is the fake server state. Tests seed the maps directly and read
// them back after the call under test.
type Backend struct {
	mu sync.Mutex

	Cars        map[string]api.Car
	Profiles    map[string]api.Profile
	Rentals     map[string]api.Rental
	Payments    []api.Payment
	Locations   []api.Location
	Insurance   map[string]api.Insurance
	Maintenance map[string]api.Maintenance
	Reports     map[string]api.FinancialReport

	// Fail maps a chi route pattern such as "POST /rental/create" to the
	// status it should answer with instead of handling the call.
	Fail map[string]int
	// Calls lists every handled call as "METHOD pattern", in order.
	Calls []string
	// Tokens lists the bearer token of every call, "" when absent.
	Tokens []string

	seq    int
	router chi.Router
	server *httptest.Server
}

// New starts a fake backend that is closed when the test ends.
func New(t *testing.T) *Backend {
	t.Helper()
	b := &Backend{
		Cars:        map[string]api.Car{},
		Profiles:    map[string]api.Profile{},
		Rentals:     map[string]api.Rental{},
		Insurance:   map[string]api.Insurance{},
		Maintenance: map[string]api.Maintenance{},
		Reports:     map[string]api.FinancialReport{},
		Fail:        map[string]int{},
	}
	b.router = b.routes()
	b.server = httptest.NewServer(b.router)
	t.Cleanup(b.server.Close)
	return b
}

// URL is the base URL to hand to api.NewClient.
func (b *Backend) URL() string { return b.server.URL }

// Client returns an api.Client pointed at the fake.
func (b *Backend) Client() *api.Client {
	return api.NewClient(b.server.URL, 5*time.Second, logger.NewNop())
}

// Lock and Unlock guard direct access to the maps while the server runs.
func (b *Backend) Lock()   { b.mu.Lock() }
func (b *Backend) Unlock() { b.mu.Unlock() }

// CallLog returns a copy of Calls.
func (b *Backend) CallLog() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.Calls...)
}

func (b *Backend) nextID(prefix string) string {
	b.seq++
	return fmt.Sprintf("%s-%d", prefix, b.seq)
}

func (b *Backend) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(b.record)

	r.Get("/api/cars/all", func(w http.ResponseWriter, r *http.Request) { writeJSON(w, http.StatusOK, values(b.Cars)) })
	r.Get("/api/cars/{id}", b.getCar)
	r.Post("/api/cars/create", b.createCar)
	r.Put("/api/cars/{id}", b.updateCar)
	r.Delete("/api/cars/{id}", func(w http.ResponseWriter, r *http.Request) { remove(w, b.Cars, chi.URLParam(r, "id")) })
	r.Put("/api/cars/{id}/location", b.updateCarLocation)

	r.Get("/profiles/all", func(w http.ResponseWriter, r *http.Request) { writeJSON(w, http.StatusOK, values(b.Profiles)) })
	r.Get("/profiles/{id}", func(w http.ResponseWriter, r *http.Request) { get(w, b.Profiles, chi.URLParam(r, "id")) })
	r.Post("/profiles/create", b.createProfile)
	r.Put("/profiles/{id}", b.updateProfile)
	r.Put("/profiles/{id}/approve", b.approveProfile)

	r.Post("/rental/create", b.createRental)
	r.Get("/rental/all", func(w http.ResponseWriter, r *http.Request) { writeJSON(w, http.StatusOK, values(b.Rentals)) })
	r.Get("/rental/{id}", func(w http.ResponseWriter, r *http.Request) { get(w, b.Rentals, chi.URLParam(r, "id")) })
	r.Get("/rental/customer/{id}", b.customerRentals)

	r.Post("/payment/create", b.createPayment)
	r.Get("/payment/all", func(w http.ResponseWriter, r *http.Request) { writeJSON(w, http.StatusOK, b.Payments) })

	r.Get("/location/all", func(w http.ResponseWriter, r *http.Request) { writeJSON(w, http.StatusOK, b.Locations) })
	r.Get("/location/search", b.searchLocation)

	r.Get("/insurance/all", func(w http.ResponseWriter, r *http.Request) { writeJSON(w, http.StatusOK, values(b.Insurance)) })
	r.Post("/insurance/create", b.createInsurance)
	r.Put("/insurance/{id}", b.updateInsurance)
	r.Delete("/insurance/{id}", func(w http.ResponseWriter, r *http.Request) { remove(w, b.Insurance, chi.URLParam(r, "id")) })

	r.Get("/maintenance/all", func(w http.ResponseWriter, r *http.Request) { writeJSON(w, http.StatusOK, values(b.Maintenance)) })
	r.Post("/maintenance/create", b.createMaintenance)
	r.Put("/maintenance/{id}", b.updateMaintenance)
	r.Delete("/maintenance/{id}", func(w http.ResponseWriter, r *http.Request) { remove(w, b.Maintenance, chi.URLParam(r, "id")) })

	r.Get("/reports/all", func(w http.ResponseWriter, r *http.Request) { writeJSON(w, http.StatusOK, values(b.Reports)) })
	r.Get("/reports/{id}", func(w http.ResponseWriter, r *http.Request) { get(w, b.Reports, chi.URLParam(r, "id")) })
	r.Post("/reports/generate", b.generateReport)

	return r
}

// record serialises every call, logs it and applies injected failures.
func (b *Backend) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()

		pattern := r.URL.Path
		if rctx := chi.NewRouteContext(); b.router.Match(rctx, r.Method, r.URL.Path) {
			pattern = rctx.RoutePattern()
		}
		call := r.Method + " " + pattern
		b.Calls = append(b.Calls, call)
		token := ""
		if h := r.Header.Get("Authorization"); len(h) > 7 {
			token = h[7:]
		}
		b.Tokens = append(b.Tokens, token)

		if status, ok := b.Fail[call]; ok {
			writeJSON(w, status, map[string]string{"message": "injected failure"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) getCar(w http.ResponseWriter, r *http.Request) {
	get(w, b.Cars, chi.URLParam(r, "id"))
}

func (b *Backend) createCar(w http.ResponseWriter, r *http.Request) {
	var c api.Car
	if !decode(w, r, &c) {
		return
	}
	c.ID = b.nextID("car")
	b.Cars[c.ID] = c
	writeJSON(w, http.StatusCreated, c)
}

func (b *Backend) updateCar(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := b.Cars[id]; !ok {
		notFound(w)
		return
	}
	var c api.Car
	if !decode(w, r, &c) {
		return
	}
	c.ID = id
	b.Cars[id] = c
	writeJSON(w, http.StatusOK, c)
}

func (b *Backend) updateCarLocation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	c, ok := b.Cars[id]
	if !ok {
		notFound(w)
		return
	}
	var upd api.CarLocationUpdate
	if !decode(w, r, &upd) {
		return
	}
	c.Location.Lat, c.Location.Lng = upd.Latitude, upd.Longitude
	c.Mileage += upd.DistanceTravelled / 1000
	b.Cars[id] = c
	w.WriteHeader(http.StatusOK)
}

func (b *Backend) createProfile(w http.ResponseWriter, r *http.Request) {
	var p api.Profile
	if !decode(w, r, &p) {
		return
	}
	p.ID = b.nextID("prof")
	if p.Status == "" {
		p.Status = api.ProfilePending
	}
	b.Profiles[p.ID] = p
	writeJSON(w, http.StatusCreated, p)
}

func (b *Backend) updateProfile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	old, ok := b.Profiles[id]
	if !ok {
		notFound(w)
		return
	}
	var p api.Profile
	if !decode(w, r, &p) {
		return
	}
	p.ID = id
	if p.Status == "" {
		p.Status = old.Status
	}
	b.Profiles[id] = p
	writeJSON(w, http.StatusOK, p)
}

func (b *Backend) approveProfile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p, ok := b.Profiles[id]
	if !ok {
		notFound(w)
		return
	}
	p.Status = api.ProfileApproved
	b.Profiles[id] = p
	writeJSON(w, http.StatusOK, p)
}

func (b *Backend) createRental(w http.ResponseWriter, r *http.Request) {
	var rental api.Rental
	if !decode(w, r, &rental) {
		return
	}
	rental.ID = b.nextID("rental")
	b.Rentals[rental.ID] = rental
	writeJSON(w, http.StatusCreated, rental)
}

func (b *Backend) customerRentals(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	out := []api.Rental{}
	for _, rental := range values(b.Rentals) {
		if rental.CustomerID == id {
			out = append(out, rental)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) createPayment(w http.ResponseWriter, r *http.Request) {
	var p api.Payment
	if !decode(w, r, &p) {
		return
	}
	if _, ok := b.Rentals[p.RentalID]; !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "unknown rental"})
		return
	}
	p.ID = b.nextID("pay")
	b.Payments = append(b.Payments, p)
	writeJSON(w, http.StatusCreated, p)
}

// searchLocation returns the nearest seeded location, or 404 when none are
// seeded.
func (b *Backend) searchLocation(w http.ResponseWriter, r *http.Request) {
	lat, _ := strconv.ParseFloat(r.URL.Query().Get("latitude"), 64)
	lng, _ := strconv.ParseFloat(r.URL.Query().Get("longitude"), 64)
	if len(b.Locations) == 0 {
		notFound(w)
		return
	}
	best, bestD := b.Locations[0], -1.0
	for _, l := range b.Locations {
		d := (l.Latitude-lat)*(l.Latitude-lat) + (l.Longitude-lng)*(l.Longitude-lng)
		if bestD < 0 || d < bestD {
			best, bestD = l, d
		}
	}
	writeJSON(w, http.StatusOK, best)
}

func (b *Backend) createInsurance(w http.ResponseWriter, r *http.Request) {
	var in api.Insurance
	if !decode(w, r, &in) {
		return
	}
	in.ID = b.nextID("ins")
	b.Insurance[in.ID] = in
	writeJSON(w, http.StatusCreated, in)
}

func (b *Backend) updateInsurance(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := b.Insurance[id]; !ok {
		notFound(w)
		return
	}
	var in api.Insurance
	if !decode(w, r, &in) {
		return
	}
	in.ID = id
	b.Insurance[id] = in
	writeJSON(w, http.StatusOK, in)
}

func (b *Backend) createMaintenance(w http.ResponseWriter, r *http.Request) {
	var m api.Maintenance
	if !decode(w, r, &m) {
		return
	}
	m.ID = b.nextID("mnt")
	b.Maintenance[m.ID] = m
	writeJSON(w, http.StatusCreated, m)
}

func (b *Backend) updateMaintenance(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := b.Maintenance[id]; !ok {
		notFound(w)
		return
	}
	var m api.Maintenance
	if !decode(w, r, &m) {
		return
	}
	m.ID = id
	b.Maintenance[id] = m
	writeJSON(w, http.StatusOK, m)
}

// generateReport totals rentals as revenue and maintenance as expense. It
// leaves NetProfit unset, as some backend versions do.
func (b *Backend) generateReport(w http.ResponseWriter, r *http.Request) {
	var req api.ReportRequest
	if !decode(w, r, &req) {
		return
	}
	rep := api.FinancialReport{
		ReportID:     b.nextID("rep"),
		GenerateDate: time.Now().UTC(),
		TimePeriod:   req.TimePeriod,
		ExportFormat: req.ExportFormat,
	}
	for _, rental := range b.Rentals {
		rep.TotalRevenue += rental.TotalCost
	}
	for _, m := range b.Maintenance {
		rep.TotalExpense += m.Cost
	}
	b.Reports[rep.ReportID] = rep
	writeJSON(w, http.StatusCreated, rep)
}

func get[T any](w http.ResponseWriter, m map[string]T, id string) {
	v, ok := m[id]
	if !ok {
		notFound(w)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func remove[T any](w http.ResponseWriter, m map[string]T, id string) {
	if _, ok := m[id]; !ok {
		notFound(w)
		return
	}
	delete(m, id)
	w.WriteHeader(http.StatusNoContent)
}

func values[T any](m map[string]T) []T {
	out := make([]T, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	return out
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid body"})
		return false
	}
	return true
}

func notFound(w http.ResponseWriter) {
	writeJSON(w, http.StatusNotFound, map[string]string{"message": "not found"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
