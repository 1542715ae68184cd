package api

import (
	"context"
	"net/http"
	"net/url"
)

func (c *Client) ListInsurance(ctx context.Context) ([]Insurance, error) {
	var out []Insurance
	if err := c.do(ctx, http.MethodGet, "insurance", "/insurance/all", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateInsurance(ctx context.Context, in *Insurance) (*Insurance, error) {
	var created Insurance
	if err := c.do(ctx, http.MethodPost, "insurance", "/insurance/create", in, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) UpdateInsurance(ctx context.Context, id string, in *Insurance) (*Insurance, error) {
	var updated Insurance
	if err := c.do(ctx, http.MethodPut, "insurance", "/insurance/"+url.PathEscape(id), in, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (c *Client) DeleteInsurance(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "insurance", "/insurance/"+url.PathEscape(id), nil, nil)
}
