// Package reports backs the financial reporting screens: backend reports,
// client-side export and the live revenue tally fed by completed rides.
package reports

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	ozzo "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/shopspring/decimal"

	"car-rental/internal/api"
	"car-rental/pkg/logger"
	"car-rental/pkg/validation"
)

// Periods and formats the generate form accepts.
var (
	Periods = []interface{}{"daily", "weekly", "monthly", "quarterly", "yearly"}
	Formats = []interface{}{"csv", "json", "pdf"}
)

// GenerateForm is the "generate report" form.
type GenerateForm struct {
	TimePeriod   string `json:"timePeriod"`
	ExportFormat string `json:"exportFormat"`
}

func (f GenerateForm) Validate() error {
	return validation.FromOzzo(ozzo.ValidateStruct(&f,
		ozzo.Field(&f.TimePeriod, ozzo.Required, ozzo.In(Periods...)),
		ozzo.Field(&f.ExportFormat, ozzo.In(Formats...)),
	))
}

// Backend is the reports part of the fleet API.
type Backend interface {
	ListReports(ctx context.Context) ([]api.FinancialReport, error)
	GetReport(ctx context.Context, id string) (*api.FinancialReport, error)
	GenerateReport(ctx context.Context, req api.ReportRequest) (*api.FinancialReport, error)
}

// Service contains report screen logic.
type Service struct {
	backend Backend
	log     logger.Logger
}

func NewService(backend Backend, log logger.Logger) *Service {
	return &Service{backend: backend, log: log}
}

// List returns every report, newest first, with profit filled in.
func (s *Service) List(ctx context.Context) ([]api.FinancialReport, error) {
	reps, err := s.backend.ListReports(ctx)
	if err != nil {
		return nil, err
	}
	for i := range reps {
		fillProfit(&reps[i])
	}
	sort.SliceStable(reps, func(i, j int) bool { return reps[i].GenerateDate.After(reps[j].GenerateDate) })
	return reps, nil
}

func (s *Service) Get(ctx context.Context, id string) (*api.FinancialReport, error) {
	rep, err := s.backend.GetReport(ctx, id)
	if err != nil {
		return nil, err
	}
	fillProfit(rep)
	return rep, nil
}

func (s *Service) Generate(ctx context.Context, f GenerateForm) (*api.FinancialReport, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	if f.ExportFormat == "" {
		f.ExportFormat = "json"
	}
	rep, err := s.backend.GenerateReport(ctx, api.ReportRequest{TimePeriod: f.TimePeriod, ExportFormat: f.ExportFormat})
	if err != nil {
		return nil, err
	}
	fillProfit(rep)
	s.log.Info("report generated", logger.String("report_id", rep.ReportID), logger.String("period", f.TimePeriod))
	return rep, nil
}

// fillProfit sets NetProfit to revenue - expense when the backend left it out.
func fillProfit(r *api.FinancialReport) {
	if r.NetProfit != 0 {
		return
	}
	r.NetProfit = decimal.NewFromFloat(r.TotalRevenue).
		Sub(decimal.NewFromFloat(r.TotalExpense)).
		Round(2).
		InexactFloat64()
}

// Export renders a report as csv or json.
func Export(w io.Writer, rep *api.FinancialReport, format string) error {
	switch format {
	case "csv":
		cw := csv.NewWriter(w)
		rows := [][]string{
			{"reportID", "generateDate", "timePeriod", "totalRevenue", "totalExpense", "netProfit"},
			{
				rep.ReportID,
				rep.GenerateDate.UTC().Format(time.RFC3339),
				rep.TimePeriod,
				money(rep.TotalRevenue),
				money(rep.TotalExpense),
				money(rep.NetProfit),
			},
		}
		if err := cw.WriteAll(rows); err != nil {
			return fmt.Errorf("failed to write csv: %w", err)
		}
		return nil
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	default:
		return validation.Errors{"format": "must be csv or json"}
	}
}

func money(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
