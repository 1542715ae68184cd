package api

import (
	"context"
	"net/http"
	"net/url"
)

func (c *Client) ListReports(ctx context.Context) ([]FinancialReport, error) {
	var out []FinancialReport
	if err := c.do(ctx, http.MethodGet, "reports", "/reports/all", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetReport(ctx context.Context, id string) (*FinancialReport, error) {
	var r FinancialReport
	if err := c.do(ctx, http.MethodGet, "reports", "/reports/"+url.PathEscape(id), nil, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (c *Client) GenerateReport(ctx context.Context, req ReportRequest) (*FinancialReport, error) {
	var r FinancialReport
	if err := c.do(ctx, http.MethodPost, "reports", "/reports/generate", req, &r); err != nil {
		return nil, err
	}
	return &r, nil
}
