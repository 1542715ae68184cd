package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"car-rental/internal/geo"
)

func (c *Client) ListLocations(ctx context.Context) ([]Location, error) {
	var locs []Location
	if err := c.do(ctx, http.MethodGet, "locations", "/location/all", nil, &locs); err != nil {
		return nil, err
	}
	return locs, nil
}

// SearchLocation resolves the backend location registered for a coordinate.
func (c *Client) SearchLocation(ctx context.Context, p geo.Point) (*Location, error) {
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(p.Lat, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(p.Lng, 'f', -1, 64))

	var loc Location
	if err := c.do(ctx, http.MethodGet, "locations", "/location/search?"+q.Encode(), nil, &loc); err != nil {
		return nil, err
	}
	return &loc, nil
}
