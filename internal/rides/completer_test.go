package rides

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"car-rental/internal/api"
	"car-rental/internal/geo"
	"car-rental/internal/journal"
	"car-rental/internal/notifications"
	"car-rental/pkg/kafka"
	"car-rental/pkg/logger"
)

type backendMock struct{ mock.Mock }

func (m *backendMock) UpdateCarLocation(ctx context.Context, id string, upd api.CarLocationUpdate) error {
	return m.Called(ctx, id, upd).Error(0)
}

func (m *backendMock) SearchLocation(ctx context.Context, p geo.Point) (*api.Location, error) {
	args := m.Called(ctx, p)
	loc, _ := args.Get(0).(*api.Location)
	return loc, args.Error(1)
}

func (m *backendMock) CreateRental(ctx context.Context, r *api.Rental) (*api.Rental, error) {
	args := m.Called(ctx, r)
	out, _ := args.Get(0).(*api.Rental)
	return out, args.Error(1)
}

func (m *backendMock) CreatePayment(ctx context.Context, p *api.Payment) (*api.Payment, error) {
	args := m.Called(ctx, p)
	out, _ := args.Get(0).(*api.Payment)
	return out, args.Error(1)
}

func (m *backendMock) methods() []string {
	out := make([]string, 0, len(m.Calls))
	for _, c := range m.Calls {
		out = append(out, c.Method)
	}
	return out
}

type recordingJournal struct {
	mu       sync.Mutex
	begun    []journal.Entry
	steps    []string
	failed   []string
	outcomes []journal.Outcome
}

func (j *recordingJournal) Begin(_ context.Context, e journal.Entry) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.begun = append(j.begun, e)
	return nil
}

func (j *recordingJournal) Step(_ context.Context, _ string, step string, err error) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.steps = append(j.steps, step)
	if err != nil {
		j.failed = append(j.failed, step)
	}
	return nil
}

func (j *recordingJournal) Finish(_ context.Context, o journal.Outcome) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.outcomes = append(j.outcomes, o)
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, topic, _ string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	return p.err
}

type recordingLocator struct {
	mu  sync.Mutex
	set map[string]geo.Point
}

func (l *recordingLocator) SetCarLocation(_ context.Context, carID string, lat, lng float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.set == nil {
		l.set = map[string]geo.Point{}
	}
	l.set[carID] = geo.Point{Lat: lat, Lng: lng}
	return nil
}

var (
	testPickup  = geo.Point{Lat: 0, Lng: 0}
	testDropoff = geo.Point{Lat: 0, Lng: 0.01} // 1.11 km east
)

func testJob() Job {
	return Job{
		RideID:     "ride-1",
		CustomerID: "cust-1",
		Car:        api.Car{ID: "car-1", Brand: "Toyota", Model: "Corolla", RentalRate: 10, Status: api.CarAvailable},
		Pickup:     testPickup,
		Dropoff:    testDropoff,
	}
}

func expectLocations(m *backendMock) {
	m.On("SearchLocation", mock.Anything, testPickup).Return(&api.Location{ID: "loc-a"}, nil).Once()
	m.On("SearchLocation", mock.Anything, testDropoff).Return(&api.Location{ID: "loc-b"}, nil).Once()
}

func TestComplete_CallsStepsInOrder(t *testing.T) {
	m := &backendMock{}
	m.On("UpdateCarLocation", mock.Anything, "car-1", mock.MatchedBy(func(u api.CarLocationUpdate) bool {
		return u.Latitude == 0 && u.Longitude == 0.01 && math.Abs(u.DistanceTravelled-1110) < 1e-6
	})).Return(nil).Once()
	expectLocations(m)
	m.On("CreateRental", mock.Anything, mock.MatchedBy(func(r *api.Rental) bool {
		return r.CarID == "car-1" && r.CustomerID == "cust-1" &&
			r.PickupLocationID == "loc-a" && r.DropoffLocationID == "loc-b" &&
			r.DistanceInKm == 1.11 && r.TotalCost == 11.1
	})).Return(&api.Rental{ID: "rent-1", TotalCost: 11.1}, nil).Once()
	m.On("CreatePayment", mock.Anything, mock.MatchedBy(func(p *api.Payment) bool {
		return p.RentalID == "rent-1" && p.PaymentAmount == 11.1 &&
			p.PaymentMethod == "CARD" && p.PaymentStatus == "completed"
	})).Return(&api.Payment{ID: "pay-1"}, nil).Once()

	notes := notifications.NewMemoryStore()
	j := &recordingJournal{}
	pub := &recordingPublisher{}
	loc := &recordingLocator{}
	c := NewCompleter(m, notes, "CARD", logger.NewNop(),
		WithJournal(j), WithPublisher(pub), WithCarLocator(loc))

	sum, err := c.Complete(context.Background(), testJob())
	require.NoError(t, err)
	assert.Equal(t, &Summary{DistanceKm: 1.11, TotalCost: 11.1, RentalID: "rent-1", PaymentID: "pay-1"}, sum)

	m.AssertExpectations(t)
	assert.Equal(t, []string{
		"UpdateCarLocation", "SearchLocation", "SearchLocation", "CreateRental", "CreatePayment",
	}, m.methods())

	assert.Equal(t, []string{
		StepDistance, StepUpdateLocation, StepResolveLocations, StepCreateRental, StepCreatePayment,
	}, j.steps)
	assert.Empty(t, j.failed)
	require.Len(t, j.outcomes, 1)
	assert.Equal(t, journal.OutcomeCompleted, j.outcomes[0].Outcome)

	assert.Equal(t, []string{kafka.TopicCarLocationUpdated, kafka.TopicRideCompleted}, pub.topics)
	assert.Equal(t, testDropoff, loc.set["car-1"])

	items, err := notes.List(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, notifications.KindRideCompleted, items[0].Kind)
	assert.Contains(t, items[0].Message, "1.11 km")
	assert.Contains(t, items[0].Message, "rent-1")
}

func TestComplete_RentalFailureSkipsPayment(t *testing.T) {
	m := &backendMock{}
	m.On("UpdateCarLocation", mock.Anything, "car-1", mock.Anything).Return(nil).Once()
	expectLocations(m)
	m.On("CreateRental", mock.Anything, mock.Anything).
		Return(nil, &api.Error{Method: "POST", Path: "/rental/create", Status: 500, Body: "db down"}).Once()

	notes := notifications.NewMemoryStore()
	j := &recordingJournal{}
	pub := &recordingPublisher{}
	c := NewCompleter(m, notes, "CARD", logger.NewNop(), WithJournal(j), WithPublisher(pub))

	sum, err := c.Complete(context.Background(), testJob())
	require.Error(t, err)
	assert.Nil(t, sum)

	var se *StepError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, StepCreateRental, se.Step)
	var apiErr *api.Error
	assert.True(t, errors.As(err, &apiErr))

	m.AssertNotCalled(t, "CreatePayment", mock.Anything, mock.Anything)

	// The car location stays updated; only the journal shows the gap.
	assert.Equal(t, []string{StepCreateRental}, j.failed)
	require.Len(t, j.outcomes, 1)
	assert.Equal(t, journal.OutcomeFailed, j.outcomes[0].Outcome)
	assert.Equal(t, StepCreateRental, j.outcomes[0].FailedStep)
	assert.Equal(t, []string{kafka.TopicCarLocationUpdated}, pub.topics)

	items, _ := notes.List(context.Background())
	require.Len(t, items, 1)
	assert.Equal(t, notifications.KindRideFailed, items[0].Kind)
	assert.Equal(t, FailureMessage, items[0].Message)
}

func TestComplete_LocationUpdateFailureStopsEverything(t *testing.T) {
	m := &backendMock{}
	m.On("UpdateCarLocation", mock.Anything, "car-1", mock.Anything).Return(errors.New("timeout")).Once()

	pub := &recordingPublisher{}
	c := NewCompleter(m, notifications.NewMemoryStore(), "CARD", logger.NewNop(), WithPublisher(pub))

	_, err := c.Complete(context.Background(), testJob())
	var se *StepError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StepUpdateLocation, se.Step)
	assert.Equal(t, []string{"UpdateCarLocation"}, m.methods())
	assert.Empty(t, pub.topics)
}

func TestComplete_UnresolvedLocationStopsBeforeRental(t *testing.T) {
	m := &backendMock{}
	m.On("UpdateCarLocation", mock.Anything, "car-1", mock.Anything).Return(nil).Once()
	m.On("SearchLocation", mock.Anything, testPickup).Return(nil, &api.Error{Status: 404}).Once()

	c := NewCompleter(m, notifications.NewMemoryStore(), "CARD", logger.NewNop())

	_, err := c.Complete(context.Background(), testJob())
	var se *StepError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StepResolveLocations, se.Step)
	assert.ErrorIs(t, err, api.ErrNotFound)
	m.AssertNotCalled(t, "CreateRental", mock.Anything, mock.Anything)
	m.AssertNotCalled(t, "CreatePayment", mock.Anything, mock.Anything)
}

func TestComplete_RentalWithoutIDSkipsPayment(t *testing.T) {
	m := &backendMock{}
	m.On("UpdateCarLocation", mock.Anything, "car-1", mock.Anything).Return(nil).Once()
	expectLocations(m)
	// a 2xx with an empty body decodes to a zero rental
	m.On("CreateRental", mock.Anything, mock.Anything).Return(&api.Rental{}, nil).Once()

	j := &recordingJournal{}
	c := NewCompleter(m, notifications.NewMemoryStore(), "CARD", logger.NewNop(), WithJournal(j))

	sum, err := c.Complete(context.Background(), testJob())
	assert.Nil(t, sum)
	var se *StepError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StepCreateRental, se.Step)
	assert.ErrorIs(t, err, errNoRentalID)
	m.AssertNotCalled(t, "CreatePayment", mock.Anything, mock.Anything)

	require.Len(t, j.outcomes, 1)
	assert.Equal(t, StepCreateRental, j.outcomes[0].FailedStep)
	assert.Equal(t, 1.11, j.outcomes[0].DistanceKm, "a failed ride still records how far it went")
}

func TestComplete_PaysTheComputedCost(t *testing.T) {
	m := &backendMock{}
	m.On("UpdateCarLocation", mock.Anything, "car-1", mock.Anything).Return(nil).Once()
	expectLocations(m)
	m.On("CreateRental", mock.Anything, mock.Anything).Return(&api.Rental{ID: "rent-1"}, nil).Once()
	m.On("CreatePayment", mock.Anything, mock.MatchedBy(func(p *api.Payment) bool {
		return p.RentalID == "rent-1" && p.PaymentAmount == 11.1
	})).Return(&api.Payment{ID: "pay-1"}, nil).Once()

	c := NewCompleter(m, notifications.NewMemoryStore(), "CARD", logger.NewNop())

	sum, err := c.Complete(context.Background(), testJob())
	require.NoError(t, err)
	m.AssertExpectations(t)
	assert.Equal(t, 11.1, sum.TotalCost)
}

func TestComplete_LocationWithoutIDStopsBeforeRental(t *testing.T) {
	m := &backendMock{}
	m.On("UpdateCarLocation", mock.Anything, "car-1", mock.Anything).Return(nil).Once()
	m.On("SearchLocation", mock.Anything, testPickup).Return(&api.Location{ID: "loc-a"}, nil).Once()
	m.On("SearchLocation", mock.Anything, testDropoff).Return(&api.Location{}, nil).Once()

	c := NewCompleter(m, notifications.NewMemoryStore(), "CARD", logger.NewNop())

	_, err := c.Complete(context.Background(), testJob())
	var se *StepError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StepResolveLocations, se.Step)
	assert.ErrorIs(t, err, errNoLocationID)
	m.AssertNotCalled(t, "CreateRental", mock.Anything, mock.Anything)
}

// ctxJournal fails writes on a dead context, the way pgx does.
type ctxJournal struct {
	recordingJournal
	finishErr error
}

func (j *ctxJournal) Finish(ctx context.Context, o journal.Outcome) error {
	j.mu.Lock()
	j.finishErr = ctx.Err()
	j.mu.Unlock()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return j.recordingJournal.Finish(ctx, o)
}

func TestComplete_CancelledRideStillClosesJournal(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := &backendMock{}
	m.On("UpdateCarLocation", mock.Anything, "car-1", mock.Anything).Return(nil).Once()
	expectLocations(m)
	m.On("CreateRental", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { cancel() }).
		Return(nil, context.Canceled).Once()

	j := &ctxJournal{}
	notes := notifications.NewMemoryStore()
	c := NewCompleter(m, notes, "CARD", logger.NewNop(), WithJournal(j))

	_, err := c.Complete(ctx, testJob())
	require.ErrorIs(t, err, context.Canceled)

	assert.NoError(t, j.finishErr)
	require.Len(t, j.outcomes, 1)
	assert.Equal(t, journal.OutcomeFailed, j.outcomes[0].Outcome)
	assert.Equal(t, StepCreateRental, j.outcomes[0].FailedStep)

	items, _ := notes.List(context.Background())
	assert.Len(t, items, 1)
}

func TestComplete_PublishFailureIsNotFatal(t *testing.T) {
	m := &backendMock{}
	m.On("UpdateCarLocation", mock.Anything, "car-1", mock.Anything).Return(nil)
	expectLocations(m)
	m.On("CreateRental", mock.Anything, mock.Anything).Return(&api.Rental{ID: "rent-1", TotalCost: 11.1}, nil)
	m.On("CreatePayment", mock.Anything, mock.Anything).Return(&api.Payment{ID: "pay-1"}, nil)

	c := NewCompleter(m, notifications.NewMemoryStore(), "CARD", logger.NewNop(),
		WithPublisher(&recordingPublisher{err: errors.New("broker down")}))

	sum, err := c.Complete(context.Background(), testJob())
	require.NoError(t, err)
	assert.Equal(t, "pay-1", sum.PaymentID)
}

func TestRentalCost(t *testing.T) {
	tests := []struct {
		km, rate, want float64
	}{
		{1.11, 10, 11.1},
		{2.345, 3, 7.04},
		{0, 50, 0},
		{12.5, 0.1, 1.25},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RentalCost(tt.km, tt.rate), "%v × %v", tt.km, tt.rate)
	}
}
