package api

import (
	"context"
	"net/http"
	"net/url"
)

func (c *Client) ListMaintenance(ctx context.Context) ([]Maintenance, error) {
	var out []Maintenance
	if err := c.do(ctx, http.MethodGet, "maintenance", "/maintenance/all", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateMaintenance(ctx context.Context, m *Maintenance) (*Maintenance, error) {
	var created Maintenance
	if err := c.do(ctx, http.MethodPost, "maintenance", "/maintenance/create", m, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) UpdateMaintenance(ctx context.Context, id string, m *Maintenance) (*Maintenance, error) {
	var updated Maintenance
	if err := c.do(ctx, http.MethodPut, "maintenance", "/maintenance/"+url.PathEscape(id), m, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (c *Client) DeleteMaintenance(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "maintenance", "/maintenance/"+url.PathEscape(id), nil, nil)
}
