package service

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"cctvstore/backend/internal/domain"
	"cctvstore/backend/internal/store"
	"cctvstore/backend/internal/xid"
)

func (s *Service) CreateDealer(ctx context.Context, req domain.DealerCreateRequest) (domain.Dealer, error) {
	if _, err := requireRole(ctx, domain.RoleAdmin); err != nil {
		return domain.Dealer{}, err
	}

	username := strings.ToLower(strings.TrimSpace(req.Username))
	if len(username) < 4 || strings.ContainsAny(username, " \t\r\n") {
		return domain.Dealer{}, fmt.Errorf("%w: username must be at least 4 characters without spaces", store.ErrInvalidInput)
	}
	if len(req.Password) < 6 {
		return domain.Dealer{}, fmt.Errorf("%w: password must be at least 6 characters", store.ErrInvalidInput)
	}
	if strings.TrimSpace(req.BusinessName) == "" {
		return domain.Dealer{}, fmt.Errorf("%w: business name is required", store.ErrInvalidInput)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return domain.Dealer{}, fmt.Errorf("hash dealer password: %w", err)
	}

	now := s.now()
	created, err := s.repo.CreateDealer(ctx, domain.Dealer{
		ID:           xid.New("dlr"),
		Username:     username,
		BusinessName: strings.TrimSpace(req.BusinessName),
		Phone:        strings.TrimSpace(req.Phone),
		Address:      strings.TrimSpace(req.Address),
		Active:       true,
		CreatedAt:    now,
	}, domain.UserAccount{
		Username:  username,
		Password:  string(hash),
		Role:      domain.RoleDealer,
		Active:    true,
		CreatedAt: now,
	})
	if err != nil {
		return domain.Dealer{}, err
	}

	s.logAudit(ctx, "dealer_create", "dealer", created.ID, fmt.Sprintf("username=%s,business=%s", created.Username, created.BusinessName))
	return *created, nil
}

func (s *Service) ListDealers(ctx context.Context) ([]domain.Dealer, error) {
	if _, err := requireRole(ctx, domain.RoleAdmin, domain.RoleStaff); err != nil {
		return nil, err
	}
	return s.repo.ListDealers(ctx)
}

// currentDealer resolves the dealer profile of the signed-in dealer account.
func (s *Service) currentDealer(ctx context.Context) (domain.Dealer, error) {
	actor, err := requireRole(ctx, domain.RoleDealer)
	if err != nil {
		return domain.Dealer{}, err
	}
	dealer, err := s.repo.GetDealerByUsername(ctx, actor.Username)
	if err != nil {
		return domain.Dealer{}, err
	}
	if !dealer.Active {
		return domain.Dealer{}, fmt.Errorf("%w: dealer account is inactive", ErrForbidden)
	}
	return *dealer, nil
}

func (s *Service) DealerInventory(ctx context.Context) (domain.DealerInventoryResponse, error) {
	dealer, err := s.currentDealer(ctx)
	if err != nil {
		return domain.DealerInventoryResponse{}, err
	}
	items, err := s.repo.GetDealerInventory(ctx, dealer.ID)
	if err != nil {
		return domain.DealerInventoryResponse{}, err
	}
	return domain.DealerInventoryResponse{DealerID: dealer.ID, Items: items}, nil
}

// CreateInvoice drafts an invoice for the signed-in dealer. Purchase lines are
// priced at the catalog dealer price; sale lines keep the dealer's own price.
func (s *Service) CreateInvoice(ctx context.Context, req domain.InvoiceCreateRequest) (domain.Invoice, error) {
	dealer, err := s.currentDealer(ctx)
	if err != nil {
		return domain.Invoice{}, err
	}

	invoiceType := strings.ToLower(strings.TrimSpace(req.Type))
	if invoiceType != domain.InvoiceTypePurchase && invoiceType != domain.InvoiceTypeSale {
		return domain.Invoice{}, fmt.Errorf("%w: invoice type must be purchase or sale", store.ErrInvalidInput)
	}
	if len(req.Items) == 0 {
		return domain.Invoice{}, fmt.Errorf("%w: invoice has no lines", store.ErrInvalidInput)
	}
	if req.TaxRatePercent < 0 || req.TaxRatePercent > 100 {
		return domain.Invoice{}, fmt.Errorf("%w: tax rate must be between 0 and 100", store.ErrInvalidInput)
	}

	skus := make([]string, 0, len(req.Items))
	for _, item := range req.Items {
		skus = append(skus, strings.ToUpper(strings.TrimSpace(item.SKU)))
	}
	products, err := s.repo.GetProductsBySKUs(ctx, skus)
	if err != nil {
		return domain.Invoice{}, err
	}

	invoice := domain.Invoice{
		ID:               xid.New("inv"),
		DealerID:         dealer.ID,
		Type:             invoiceType,
		CounterpartyName: strings.TrimSpace(req.CounterpartyName),
		Notes:            strings.TrimSpace(req.Notes),
		TaxRatePercent:   req.TaxRatePercent,
		CreatedAt:        s.now(),
		Items:            make([]domain.InvoiceLine, 0, len(req.Items)),
	}
	if invoiceType == domain.InvoiceTypePurchase && invoice.CounterpartyName == "" {
		invoice.CounterpartyName = "CCTV Store"
	}

	seen := make(map[string]struct{}, len(req.Items))
	for i, item := range req.Items {
		sku := skus[i]
		if sku == "" || item.Qty < 1 {
			return domain.Invoice{}, fmt.Errorf("%w: invoice lines need a sku and a positive qty", store.ErrInvalidInput)
		}
		if _, dup := seen[sku]; dup {
			return domain.Invoice{}, fmt.Errorf("%w: sku %s appears on more than one line", store.ErrInvalidInput, sku)
		}
		seen[sku] = struct{}{}
		line := domain.InvoiceLine{SKU: sku, Qty: item.Qty, Name: strings.TrimSpace(item.Name)}
		product, known := products[sku]
		if known {
			line.Name = product.Name
		}

		switch invoiceType {
		case domain.InvoiceTypePurchase:
			if !known || product.DealerPriceCents < 1 {
				return domain.Invoice{}, fmt.Errorf("%w: sku %s is not sold to dealers", store.ErrInvalidInput, sku)
			}
			line.UnitPriceCents = product.DealerPriceCents
		case domain.InvoiceTypeSale:
			if item.UnitPriceCents < 0 {
				return domain.Invoice{}, fmt.Errorf("%w: sale price must not be negative", store.ErrInvalidInput)
			}
			line.UnitPriceCents = item.UnitPriceCents
		}
		line.TotalCents = line.UnitPriceCents * int64(line.Qty)
		invoice.SubtotalCents += line.TotalCents
		invoice.Items = append(invoice.Items, line)
	}

	invoice.TaxCents = decimal.NewFromInt(invoice.SubtotalCents).
		Mul(decimal.NewFromFloat(invoice.TaxRatePercent)).
		Div(decimal.NewFromInt(100)).
		Round(0).
		IntPart()
	invoice.TotalCents = invoice.SubtotalCents + invoice.TaxCents

	created, err := s.repo.CreateInvoice(ctx, invoice)
	if err != nil {
		return domain.Invoice{}, err
	}

	s.logAudit(ctx, "invoice_create", "invoice", created.ID, fmt.Sprintf("type=%s,total=%d", created.Type, created.TotalCents))
	return *created, nil
}

func (s *Service) ListInvoices(ctx context.Context, limit int) (domain.InvoiceListResponse, error) {
	dealerID := ""
	if !isBackOffice(ctx) {
		dealer, err := s.currentDealer(ctx)
		if err != nil {
			return domain.InvoiceListResponse{}, err
		}
		dealerID = dealer.ID
	}
	invoices, err := s.repo.ListInvoices(ctx, dealerID, limit)
	if err != nil {
		return domain.InvoiceListResponse{}, err
	}
	return domain.InvoiceListResponse{Invoices: invoices}, nil
}

// GetInvoice lets back office read any invoice and dealers only their own.
// Another dealer's invoice reads as not found.
func (s *Service) GetInvoice(ctx context.Context, id string) (domain.Invoice, error) {
	invoice, err := s.repo.GetInvoice(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.Invoice{}, err
	}
	if isBackOffice(ctx) {
		return *invoice, nil
	}
	dealer, err := s.currentDealer(ctx)
	if err != nil {
		return domain.Invoice{}, err
	}
	if invoice.DealerID != dealer.ID {
		return domain.Invoice{}, store.ErrNotFound
	}
	return *invoice, nil
}

func (s *Service) ownInvoice(ctx context.Context, id string) (domain.Invoice, error) {
	dealer, err := s.currentDealer(ctx)
	if err != nil {
		return domain.Invoice{}, err
	}
	invoice, err := s.repo.GetInvoice(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.Invoice{}, err
	}
	if invoice.DealerID != dealer.ID {
		return domain.Invoice{}, store.ErrNotFound
	}
	return *invoice, nil
}

func (s *Service) DeleteInvoice(ctx context.Context, id string) error {
	invoice, err := s.ownInvoice(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteDraftInvoice(ctx, invoice.ID); err != nil {
		return err
	}
	s.logAudit(ctx, "invoice_delete", "invoice", invoice.ID, "")
	return nil
}

func (s *Service) FinalizeInvoice(ctx context.Context, id string) (domain.Invoice, error) {
	invoice, err := s.ownInvoice(ctx, id)
	if err != nil {
		return domain.Invoice{}, err
	}
	finalized, err := s.repo.FinalizeInvoice(ctx, invoice.ID, s.now())
	if err != nil {
		return domain.Invoice{}, err
	}
	s.logAudit(ctx, "invoice_finalize", "invoice", finalized.ID, fmt.Sprintf("type=%s,lines=%d", finalized.Type, len(finalized.Items)))
	return *finalized, nil
}

var invoiceTemplate = template.Must(template.New("invoice").Funcs(template.FuncMap{
	"money": formatCents,
	"date":  func(t time.Time) string { return t.Format("02 Jan 2006") },
}).Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Invoice {{.Invoice.ID}}</title>
<style>
body { font-family: sans-serif; margin: 2rem; }
table { border-collapse: collapse; width: 100%; }
th, td { border-bottom: 1px solid #ccc; padding: .4rem; text-align: left; }
td.num, th.num { text-align: right; }
</style>
</head>
<body>
<h1>{{if eq .Invoice.Type "sale"}}Sales{{else}}Purchase{{end}} Invoice</h1>
<p><strong>{{.Dealer.BusinessName}}</strong><br>{{.Dealer.Address}}<br>{{.Dealer.Phone}}</p>
<p>Invoice: {{.Invoice.ID}}<br>Date: {{date .Invoice.CreatedAt}}<br>To: {{.Invoice.CounterpartyName}}<br>Status: {{if .Invoice.Finalized}}final{{else}}draft{{end}}</p>
<table>
<thead><tr><th>SKU</th><th>Item</th><th class="num">Qty</th><th class="num">Unit</th><th class="num">Total</th></tr></thead>
<tbody>
{{range .Invoice.Items}}<tr><td>{{.SKU}}</td><td>{{.Name}}</td><td class="num">{{.Qty}}</td><td class="num">{{money .UnitPriceCents}}</td><td class="num">{{money .TotalCents}}</td></tr>
{{end}}</tbody>
</table>
<p class="num">Subtotal: {{money .Invoice.SubtotalCents}}<br>Tax ({{.Invoice.TaxRatePercent}}%): {{money .Invoice.TaxCents}}<br><strong>Total: {{money .Invoice.TotalCents}}</strong></p>
{{if .Invoice.Notes}}<p>{{.Invoice.Notes}}</p>{{end}}
</body>
</html>
`))

// RenderInvoiceHTML renders a printable invoice page.
func (s *Service) RenderInvoiceHTML(ctx context.Context, id string) ([]byte, error) {
	invoice, err := s.GetInvoice(ctx, id)
	if err != nil {
		return nil, err
	}

	dealer := domain.Dealer{ID: invoice.DealerID}
	dealers, err := s.repo.ListDealers(ctx)
	if err != nil {
		return nil, err
	}
	for _, d := range dealers {
		if d.ID == invoice.DealerID {
			dealer = d
			break
		}
	}

	var buf bytes.Buffer
	if err := invoiceTemplate.Execute(&buf, struct {
		Invoice domain.Invoice
		Dealer  domain.Dealer
	}{invoice, dealer}); err != nil {
		return nil, fmt.Errorf("render invoice: %w", err)
	}
	return buf.Bytes(), nil
}

func formatCents(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}
