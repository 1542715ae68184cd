package fleet

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"car-rental/internal/api"
	"car-rental/internal/api/apitest"
	"car-rental/internal/geo"
	"car-rental/pkg/logger"
	rredis "car-rental/pkg/redis"
	"car-rental/pkg/validation"
)

func validForm() CarForm {
	return CarForm{
		Brand:        "Toyota",
		Model:        "Corolla",
		Year:         2021,
		LicensePlate: "AB-123-CD",
		RentalRate:   12.5,
		Category:     "sedan",
		Location:     geo.Point{Lat: 48.85, Lng: 2.35},
	}
}

func newTestService(t *testing.T) (*Service, *apitest.Backend, *rredis.Client) {
	t.Helper()
	backend := apitest.New(t)
	mr := miniredis.RunT(t)
	rc, err := rredis.NewClient(mr.Addr(), "", logger.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { rc.Close() })
	return NewService(backend.Client(), rc, logger.NewNop()), backend, rc
}

func TestCarForm_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*CarForm)
		field  string
	}{
		{"valid", func(*CarForm) {}, ""},
		{"blank brand", func(f *CarForm) { f.Brand = "  " }, "brand"},
		{"old year", func(f *CarForm) { f.Year = 1850 }, "year"},
		{"lowercase plate", func(f *CarForm) { f.LicensePlate = "ab123" }, "licensePlate"},
		{"zero rate", func(f *CarForm) { f.RentalRate = 0 }, "rentalRate"},
		{"huge rate", func(f *CarForm) { f.RentalRate = 2_000_000 }, "rentalRate"},
		{"bad status", func(f *CarForm) { f.Status = "stolen" }, "status"},
		{"negative mileage", func(f *CarForm) { f.Mileage = -1 }, "mileage"},
		{"bad location", func(f *CarForm) { f.Location.Lat = 100 }, "location"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := validForm()
			tt.mutate(&f)
			err := f.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var verr validation.Errors
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr, tt.field)
		})
	}
}

func TestService_CreateIndexesAvailableCar(t *testing.T) {
	svc, backend, rc := newTestService(t)
	ctx := context.Background()

	car, err := svc.Create(ctx, validForm())
	require.NoError(t, err)
	assert.NotEmpty(t, car.ID)
	assert.Equal(t, api.CarAvailable, car.Status)

	ids, err := rc.GetNearbyCars(ctx, 48.85, 2.35, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{car.ID}, ids)

	_, err = svc.SetStatus(ctx, car.ID, api.CarMaintenance)
	require.NoError(t, err)
	ids, err = rc.GetNearbyCars(ctx, 48.85, 2.35, 1, 10)
	require.NoError(t, err)
	assert.Empty(t, ids, "cars under maintenance are not offered")

	backend.Lock()
	assert.Equal(t, api.CarMaintenance, backend.Cars[car.ID].Status)
	backend.Unlock()
}

func TestService_CreateRejectsInvalidFormWithoutCallingBackend(t *testing.T) {
	svc, backend, _ := newTestService(t)
	f := validForm()
	f.Brand = ""

	_, err := svc.Create(context.Background(), f)
	require.Error(t, err)
	assert.Empty(t, backend.CallLog())
}

func TestService_ListFilters(t *testing.T) {
	svc, backend, _ := newTestService(t)
	backend.Cars["a"] = api.Car{ID: "a", Status: api.CarAvailable, Category: "suv"}
	backend.Cars["b"] = api.Car{ID: "b", Status: api.CarRented, Category: "suv"}
	backend.Cars["c"] = api.Car{ID: "c", Status: api.CarAvailable, Category: "sedan"}
	ctx := context.Background()

	cars, err := svc.List(ctx, Filter{Status: api.CarAvailable, Category: "suv"})
	require.NoError(t, err)
	require.Len(t, cars, 1)
	assert.Equal(t, "a", cars[0].ID)

	cars, err = svc.List(ctx, Filter{})
	require.NoError(t, err)
	assert.Len(t, cars, 3)

	_, err = svc.List(ctx, Filter{Status: "flying"})
	assert.Error(t, err)
}

func TestService_Summary(t *testing.T) {
	svc, backend, _ := newTestService(t)
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	overdue1 := now.Add(-48 * time.Hour)
	overdue2 := now.Add(-24 * time.Hour)
	later := now.Add(24 * time.Hour)
	backend.Cars["a"] = api.Car{ID: "a", Status: api.CarAvailable, Category: "suv", MaintenanceDue: &overdue2}
	backend.Cars["b"] = api.Car{ID: "b", Status: api.CarRented, Category: "suv", MaintenanceDue: &later}
	backend.Cars["c"] = api.Car{ID: "c", Status: api.CarMaintenance, MaintenanceDue: &overdue1}
	backend.Cars["d"] = api.Car{ID: "d", Status: api.CarAvailable}

	sum, err := svc.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, sum.Total)
	assert.Equal(t, 2, sum.ByStatus[api.CarAvailable])
	assert.Equal(t, 1, sum.ByStatus[api.CarRented])
	assert.Equal(t, 2, sum.ByCategory["suv"])
	require.Len(t, sum.MaintenanceDue, 2)
	assert.Equal(t, "c", sum.MaintenanceDue[0].ID, "most overdue first")
	assert.Equal(t, "a", sum.MaintenanceDue[1].ID)
}

func TestService_ReindexAndDelete(t *testing.T) {
	svc, backend, rc := newTestService(t)
	ctx := context.Background()
	backend.Cars["a"] = api.Car{ID: "a", Status: api.CarAvailable, Location: geo.Point{Lat: 1, Lng: 1}}
	backend.Cars["b"] = api.Car{ID: "b", Status: api.CarRented, Location: geo.Point{Lat: 1, Lng: 1}}

	n, err := svc.Reindex(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	ids, err := svc.Nearby(ctx, 1, 1, 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ids)

	require.NoError(t, svc.Delete(ctx, "a"))
	ids, err = rc.GetNearbyCars(ctx, 1, 1, 5, 10)
	require.NoError(t, err)
	assert.Empty(t, ids)

	assert.ErrorIs(t, svc.Delete(ctx, "a"), api.ErrNotFound)
}

func TestService_NearbyWithoutIndex(t *testing.T) {
	svc := NewService(apitest.New(t).Client(), nil, logger.NewNop())
	_, err := svc.Nearby(context.Background(), 0, 0, 5)
	assert.ErrorIs(t, err, ErrIndexDisabled)
}
