package api

import (
	"context"
	"net/http"
	"net/url"
)

func (c *Client) ListProfiles(ctx context.Context) ([]Profile, error) {
	var profiles []Profile
	if err := c.do(ctx, http.MethodGet, "profiles", "/profiles/all", nil, &profiles); err != nil {
		return nil, err
	}
	return profiles, nil
}

func (c *Client) GetProfile(ctx context.Context, id string) (*Profile, error) {
	var p Profile
	if err := c.do(ctx, http.MethodGet, "profiles", "/profiles/"+url.PathEscape(id), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) CreateProfile(ctx context.Context, p *Profile) (*Profile, error) {
	var created Profile
	if err := c.do(ctx, http.MethodPost, "profiles", "/profiles/create", p, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) UpdateProfile(ctx context.Context, id string, p *Profile) (*Profile, error) {
	var updated Profile
	if err := c.do(ctx, http.MethodPut, "profiles", "/profiles/"+url.PathEscape(id), p, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// ApproveProfile moves a pending profile to approved.
func (c *Client) ApproveProfile(ctx context.Context, id string) (*Profile, error) {
	var approved Profile
	if err := c.do(ctx, http.MethodPut, "profiles", "/profiles/"+url.PathEscape(id)+"/approve", nil, &approved); err != nil {
		return nil, err
	}
	return &approved, nil
}
