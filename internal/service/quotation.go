package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"cctvstore/backend/internal/domain"
	"cctvstore/backend/internal/quotation"
	"cctvstore/backend/internal/store"
)

// RepositorySource serves the price table from the admin-managed quotation
// options.
type RepositorySource struct {
	repo store.Repository
}

func NewRepositorySource(repo store.Repository) *RepositorySource {
	return &RepositorySource{repo: repo}
}

func (s *RepositorySource) Fetch(ctx context.Context) (domain.PriceTableDocument, error) {
	options, err := s.repo.ListQuotationOptions(ctx, false)
	if err != nil {
		return domain.PriceTableDocument{}, fmt.Errorf("list quotation options: %w", err)
	}
	if len(options) == 0 {
		return domain.PriceTableDocument{}, errors.New("no quotation options configured")
	}
	return DocumentFromOptions(options), nil
}

// DocumentFromOptions groups option rows into the wire document, keeping the
// row order inside each category.
func DocumentFromOptions(options []domain.QuotationOption) domain.PriceTableDocument {
	var doc domain.PriceTableDocument
	for _, opt := range options {
		row := domain.PriceOption{
			Price:   opt.Price,
			HDPrice: opt.HDPrice,
			IPPrice: opt.IPPrice,
		}
		switch opt.Category {
		case domain.OptionChannel:
			row.ChannelCount = domain.Label(opt.Name)
		case domain.OptionStorage:
			row.Capacity = opt.Name
		default:
			row.Name = opt.Name
		}

		switch opt.Category {
		case domain.OptionCameraType:
			doc.CameraTypes = append(doc.CameraTypes, row)
		case domain.OptionBrand:
			doc.Brands = append(doc.Brands, row)
		case domain.OptionChannel:
			doc.Channels = append(doc.Channels, row)
		case domain.OptionPixel:
			doc.Pixels = append(doc.Pixels, row)
		case domain.OptionTechType:
			doc.TechTypes = append(doc.TechTypes, row)
		case domain.OptionStorage:
			doc.Storage = append(doc.Storage, row)
		case domain.OptionCable:
			doc.Cables = append(doc.Cables, row)
		case domain.OptionAccessory:
			doc.Accessories = append(doc.Accessories, row)
		}
	}
	return doc
}

func (s *Service) PriceTable(ctx context.Context) domain.PriceTableDocument {
	return s.tables.Load(ctx).Document()
}

func (s *Service) RefreshPriceTable(ctx context.Context) (domain.PriceTableDocument, error) {
	if _, err := requireRole(ctx, domain.RoleAdmin, domain.RoleStaff); err != nil {
		return domain.PriceTableDocument{}, err
	}
	table := s.tables.Refresh(ctx)
	s.logAudit(ctx, "price_table_refresh", "price_table", "current", fmt.Sprintf("fallback=%t", s.tables.Fallback()))
	return table.Document(), nil
}

// Quote prices a kit against the current price table. Client-side totals are
// never consulted.
func (s *Service) Quote(ctx context.Context, req domain.QuotationRequest) (domain.QuoteResponse, error) {
	q, bom, _, err := s.quote(ctx, req)
	if err != nil {
		return domain.QuoteResponse{}, err
	}
	return toQuoteResponse(q, bom), nil
}

func (s *Service) quote(ctx context.Context, req domain.QuotationRequest) (quotation.Quote, []domain.BOMLine, quotation.Configuration, error) {
	cfg, err := quotation.FromRequest(req)
	if err != nil {
		return quotation.Quote{}, nil, quotation.Configuration{}, err
	}

	mode := quotation.Lenient
	if req.Strict {
		mode = quotation.Strict
	}
	q, err := quotation.NewEvaluator(mode).Quote(cfg, s.tables.Load(ctx))
	if err != nil {
		return quotation.Quote{}, nil, quotation.Configuration{}, err
	}
	if len(q.Missing) > 0 {
		s.logger.Debug("quote priced with missing options", zap.Strings("missing", q.Missing))
	}

	bom := quotation.AttachKitPrice(quotation.GenerateBOM(cfg), q.Total)
	return q, bom, cfg, nil
}

func toQuoteResponse(q quotation.Quote, bom []domain.BOMLine) domain.QuoteResponse {
	terms := make([]domain.QuoteTerm, 0, len(q.Terms))
	for _, t := range q.Terms {
		terms = append(terms, domain.QuoteTerm{Name: t.Name, Amount: t.Amount.String()})
	}
	return domain.QuoteResponse{
		Total:        q.Total,
		TotalCameras: q.TotalCameras,
		Terms:        terms,
		Missing:      q.Missing,
		BOM:          bom,
	}
}

func (s *Service) ListQuotationOptions(ctx context.Context, includeInactive bool) ([]domain.QuotationOption, error) {
	if includeInactive {
		if _, err := requireRole(ctx, domain.RoleAdmin, domain.RoleStaff); err != nil {
			return nil, err
		}
	}
	return s.repo.ListQuotationOptions(ctx, includeInactive)
}

func (s *Service) CreateQuotationOption(ctx context.Context, req domain.QuotationOptionRequest) (domain.QuotationOption, error) {
	if _, err := requireRole(ctx, domain.RoleAdmin); err != nil {
		return domain.QuotationOption{}, err
	}

	option := domain.QuotationOption{
		Category: strings.ToLower(strings.TrimSpace(req.Category)),
		Name:     strings.TrimSpace(req.Name),
		Price:    req.Price,
		HDPrice:  req.HDPrice,
		IPPrice:  req.IPPrice,
		Position: req.Position,
		Active:   true,
	}
	if err := validateOption(option); err != nil {
		return domain.QuotationOption{}, err
	}

	created, err := s.repo.CreateQuotationOption(ctx, option)
	if err != nil {
		return domain.QuotationOption{}, err
	}

	s.tables.Invalidate(ctx)
	s.logAudit(ctx, "quotation_option_create", "quotation_option", created.ID, fmt.Sprintf("category=%s,name=%s", created.Category, created.Name))
	return *created, nil
}

func (s *Service) UpdateQuotationOption(ctx context.Context, id string, req domain.QuotationOptionUpdateRequest) (domain.QuotationOption, error) {
	if _, err := requireRole(ctx, domain.RoleAdmin); err != nil {
		return domain.QuotationOption{}, err
	}

	existing, err := s.repo.GetQuotationOption(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.QuotationOption{}, err
	}

	updated := *existing
	if req.Name != nil {
		updated.Name = strings.TrimSpace(*req.Name)
	}
	if req.Price != nil {
		updated.Price = *req.Price
	}
	if req.HDPrice != nil {
		updated.HDPrice = *req.HDPrice
	}
	if req.IPPrice != nil {
		updated.IPPrice = *req.IPPrice
	}
	if req.Position != nil {
		updated.Position = *req.Position
	}
	if req.Active != nil {
		updated.Active = *req.Active
	}
	updated.UpdatedAt = s.now()
	if err := validateOption(updated); err != nil {
		return domain.QuotationOption{}, err
	}

	saved, err := s.repo.UpdateQuotationOption(ctx, updated)
	if err != nil {
		return domain.QuotationOption{}, err
	}

	s.tables.Invalidate(ctx)
	s.logAudit(ctx, "quotation_option_update", "quotation_option", saved.ID, fmt.Sprintf("name=%s,active=%t", saved.Name, saved.Active))
	return *saved, nil
}

func (s *Service) DeleteQuotationOption(ctx context.Context, id string) error {
	if _, err := requireRole(ctx, domain.RoleAdmin); err != nil {
		return err
	}
	id = strings.TrimSpace(id)
	if err := s.repo.DeleteQuotationOption(ctx, id); err != nil {
		return err
	}

	s.tables.Invalidate(ctx)
	s.logAudit(ctx, "quotation_option_delete", "quotation_option", id, "")
	return nil
}

func validateOption(option domain.QuotationOption) error {
	if option.Name == "" {
		return fmt.Errorf("%w: option name is required", store.ErrInvalidInput)
	}
	valid := false
	for _, c := range domain.OptionCategories {
		if c == option.Category {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("%w: unknown option category %q", store.ErrInvalidInput, option.Category)
	}
	if option.Category == domain.OptionChannel && quotation.ChannelCapacity(option.Name) < 1 {
		return fmt.Errorf("%w: channel option %q has no channel count", store.ErrInvalidInput, option.Name)
	}
	for _, p := range []decimal.NullDecimal{option.Price, option.HDPrice, option.IPPrice} {
		if p.Valid && p.Decimal.IsNegative() {
			return fmt.Errorf("%w: option prices must not be negative", store.ErrInvalidInput)
		}
	}
	return nil
}
