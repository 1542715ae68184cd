package api

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// EnrichRentals looks up the car of every rental concurrently, one request
// per distinct car id, and waits for all of them. Any failed lookup fails the
// whole call.
func (c *Client) EnrichRentals(ctx context.Context, rentals []Rental) ([]RentalView, error) {
	var (
		mu   sync.Mutex
		cars = make(map[string]*Car)
	)

	g, gctx := errgroup.WithContext(ctx)
	seen := make(map[string]bool)
	for _, r := range rentals {
		id := r.CarID
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		g.Go(func() error {
			car, err := c.GetCar(gctx, id)
			if err != nil {
				return fmt.Errorf("car %s: %w", id, err)
			}
			mu.Lock()
			cars[id] = car
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	views := make([]RentalView, len(rentals))
	for i, r := range rentals {
		views[i] = RentalView{Rental: r, Car: cars[r.CarID]}
	}
	return views, nil
}
