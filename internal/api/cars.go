package api

import (
	"context"
	"net/http"
	"net/url"
)

func (c *Client) ListCars(ctx context.Context) ([]Car, error) {
	var cars []Car
	if err := c.do(ctx, http.MethodGet, "cars", "/api/cars/all", nil, &cars); err != nil {
		return nil, err
	}
	return cars, nil
}

func (c *Client) GetCar(ctx context.Context, id string) (*Car, error) {
	var car Car
	if err := c.do(ctx, http.MethodGet, "cars", "/api/cars/"+url.PathEscape(id), nil, &car); err != nil {
		return nil, err
	}
	return &car, nil
}

func (c *Client) CreateCar(ctx context.Context, car *Car) (*Car, error) {
	var created Car
	if err := c.do(ctx, http.MethodPost, "cars", "/api/cars/create", car, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) UpdateCar(ctx context.Context, id string, car *Car) (*Car, error) {
	var updated Car
	if err := c.do(ctx, http.MethodPut, "cars", "/api/cars/"+url.PathEscape(id), car, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (c *Client) DeleteCar(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "cars", "/api/cars/"+url.PathEscape(id), nil, nil)
}

// UpdateCarLocation reports a car's new position and the distance it
// travelled to get there, in metres.
func (c *Client) UpdateCarLocation(ctx context.Context, id string, upd CarLocationUpdate) error {
	return c.do(ctx, http.MethodPut, "cars", "/api/cars/"+url.PathEscape(id)+"/location", upd, nil)
}
