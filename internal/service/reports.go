package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"html/template"
	"strconv"
	"strings"
	"time"

	"cctvstore/backend/internal/domain"
	"cctvstore/backend/internal/store"
)

func (s *Service) SalesReport(ctx context.Context, date string) (domain.SalesReport, error) {
	if _, err := requireRole(ctx, domain.RoleAdmin, domain.RoleStaff); err != nil {
		return domain.SalesReport{}, err
	}

	var day time.Time
	if strings.TrimSpace(date) == "" {
		now := s.now()
		day = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	} else {
		parsed, err := time.Parse("2006-01-02", date)
		if err != nil {
			return domain.SalesReport{}, store.ErrInvalidInput
		}
		day = parsed.UTC()
	}

	report, err := s.repo.GetSalesReport(ctx, day, day.Add(24*time.Hour))
	if err != nil {
		return domain.SalesReport{}, err
	}
	report.Date = day.Format("2006-01-02")
	return report, nil
}

// SalesReportCSV flattens a report into metric,key,value rows.
func SalesReportCSV(report domain.SalesReport) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	rows := [][]string{
		{"metric", "key", "value"},
		{"date", "", report.Date},
		{"orders", "", strconv.FormatInt(report.Orders, 10)},
		{"gross_sales", "", formatCents(report.GrossSalesCents)},
		{"discount", "", formatCents(report.DiscountCents)},
		{"net_sales", "", formatCents(report.NetSalesCents)},
		{"quotation_sales", "", formatCents(report.QuotationCents)},
	}
	for _, p := range report.ByPayment {
		rows = append(rows,
			[]string{"payment_orders", p.PaymentMethod, strconv.FormatInt(p.Orders, 10)},
			[]string{"payment_total", p.PaymentMethod, formatCents(p.TotalCents)},
		)
	}
	for _, st := range report.ByStatus {
		rows = append(rows, []string{"status_orders", st.Status, strconv.FormatInt(st.Orders, 10)})
	}

	if err := w.WriteAll(rows); err != nil {
		return nil, fmt.Errorf("write report csv: %w", err)
	}
	return buf.Bytes(), nil
}

var reportTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"money": formatCents,
}).Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Sales report {{.Date}}</title>
<style>
body { font-family: sans-serif; margin: 2rem; }
table { border-collapse: collapse; margin-bottom: 1.5rem; }
th, td { border-bottom: 1px solid #ccc; padding: .4rem 1rem; text-align: left; }
</style>
</head>
<body>
<h1>Sales report {{.Date}}</h1>
<table>
<tr><th>Orders</th><td>{{.Orders}}</td></tr>
<tr><th>Gross sales</th><td>{{money .GrossSalesCents}}</td></tr>
<tr><th>Discounts</th><td>{{money .DiscountCents}}</td></tr>
<tr><th>Net sales</th><td>{{money .NetSalesCents}}</td></tr>
<tr><th>Quotation kits</th><td>{{money .QuotationCents}}</td></tr>
</table>
<h2>By payment</h2>
<table>
<tr><th>Method</th><th>Orders</th><th>Total</th></tr>
{{range .ByPayment}}<tr><td>{{.PaymentMethod}}</td><td>{{.Orders}}</td><td>{{money .TotalCents}}</td></tr>
{{end}}</table>
<h2>By status</h2>
<table>
<tr><th>Status</th><th>Orders</th></tr>
{{range .ByStatus}}<tr><td>{{.Status}}</td><td>{{.Orders}}</td></tr>
{{end}}</table>
</body>
</html>
`))

func SalesReportHTML(report domain.SalesReport) ([]byte, error) {
	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, report); err != nil {
		return nil, fmt.Errorf("render report: %w", err)
	}
	return buf.Bytes(), nil
}
