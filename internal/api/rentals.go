package api

import (
	"context"
	"net/http"
	"net/url"
)

func (c *Client) CreateRental(ctx context.Context, r *Rental) (*Rental, error) {
	var created Rental
	if err := c.do(ctx, http.MethodPost, "rentals", "/rental/create", r, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) ListRentals(ctx context.Context) ([]Rental, error) {
	var rentals []Rental
	if err := c.do(ctx, http.MethodGet, "rentals", "/rental/all", nil, &rentals); err != nil {
		return nil, err
	}
	return rentals, nil
}

func (c *Client) GetRental(ctx context.Context, id string) (*Rental, error) {
	var r Rental
	if err := c.do(ctx, http.MethodGet, "rentals", "/rental/"+url.PathEscape(id), nil, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (c *Client) ListCustomerRentals(ctx context.Context, customerID string) ([]Rental, error) {
	var rentals []Rental
	if err := c.do(ctx, http.MethodGet, "rentals", "/rental/customer/"+url.PathEscape(customerID), nil, &rentals); err != nil {
		return nil, err
	}
	return rentals, nil
}
