package api

import (
	"context"
	"net/http"
)

func (c *Client) CreatePayment(ctx context.Context, p *Payment) (*Payment, error) {
	var created Payment
	if err := c.do(ctx, http.MethodPost, "payments", "/payment/create", p, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) ListPayments(ctx context.Context) ([]Payment, error) {
	var payments []Payment
	if err := c.do(ctx, http.MethodGet, "payments", "/payment/all", nil, &payments); err != nil {
		return nil, err
	}
	return payments, nil
}
