package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"

	"cctvstore/backend/internal/domain"
	"cctvstore/backend/internal/store"
	"cctvstore/backend/internal/xid"
)

// Quotation totals are whole currency units; orders are kept in cents.
const centsPerUnit = 100

var nextStatuses = map[string][]string{
	domain.OrderStatusAwaitingPayment: {domain.OrderStatusCancelled},
	domain.OrderStatusPending:         {domain.OrderStatusConfirmed, domain.OrderStatusCancelled},
	domain.OrderStatusConfirmed:       {domain.OrderStatusShipped, domain.OrderStatusCancelled},
	domain.OrderStatusShipped:         {domain.OrderStatusDelivered, domain.OrderStatusCancelled},
}

func canTransition(from string, to string) bool {
	for _, next := range nextStatuses[from] {
		if next == to {
			return true
		}
	}
	return false
}

func (s *Service) PlaceOrder(ctx context.Context, req domain.OrderRequest) (domain.OrderResponse, error) {
	req.IdempotencyKey = strings.TrimSpace(req.IdempotencyKey)
	if req.IdempotencyKey == "" {
		return domain.OrderResponse{}, fmt.Errorf("%w: idempotency_key is required", store.ErrInvalidInput)
	}

	existing, err := s.repo.FindOrderByIdempotency(ctx, req.IdempotencyKey)
	if err == nil {
		return domain.OrderResponse{Order: *existing, Duplicate: true}, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return domain.OrderResponse{}, err
	}

	req.CustomerName = strings.TrimSpace(req.CustomerName)
	req.Phone = strings.TrimSpace(req.Phone)
	req.Address = strings.TrimSpace(req.Address)
	req.PaymentMethod = strings.ToLower(strings.TrimSpace(req.PaymentMethod))
	if req.CustomerName == "" || req.Phone == "" || req.Address == "" {
		return domain.OrderResponse{}, fmt.Errorf("%w: customer name, phone and address are required", store.ErrInvalidInput)
	}
	if req.PaymentMethod != domain.PaymentMethodCOD && req.PaymentMethod != domain.PaymentMethodOnline {
		return domain.OrderResponse{}, fmt.Errorf("%w: unsupported payment method %q", store.ErrInvalidInput, req.PaymentMethod)
	}

	cart, err := normalizeItems(req.CartItems)
	if err != nil {
		return domain.OrderResponse{}, err
	}
	if len(cart) == 0 && req.Quotation == nil {
		return domain.OrderResponse{}, fmt.Errorf("%w: order has no items", store.ErrInvalidInput)
	}

	order := domain.Order{
		ID:             xid.New("ord"),
		IdempotencyKey: req.IdempotencyKey,
		CustomerName:   req.CustomerName,
		Phone:          req.Phone,
		Email:          strings.TrimSpace(req.Email),
		Address:        req.Address,
		City:           strings.TrimSpace(req.City),
		Notes:          strings.TrimSpace(req.Notes),
		PaymentMethod:  req.PaymentMethod,
		PaymentStatus:  domain.PaymentStatusUnpaid,
		Status:         domain.OrderStatusPending,
		Items:          make([]domain.OrderItem, 0, len(cart)),
		CreatedAt:      s.now(),
	}
	if req.PaymentMethod == domain.PaymentMethodOnline {
		order.Status = domain.OrderStatusAwaitingPayment
		order.PaymentReference = xid.Reference("PAY")
	}

	if len(cart) > 0 {
		skus := make([]string, 0, len(cart))
		for _, item := range cart {
			skus = append(skus, item.SKU)
		}
		products, err := s.repo.GetProductsBySKUs(ctx, skus)
		if err != nil {
			return domain.OrderResponse{}, err
		}
		for _, item := range cart {
			product, ok := products[item.SKU]
			if !ok {
				return domain.OrderResponse{}, fmt.Errorf("%w: sku %s is not available", store.ErrInvalidInput, item.SKU)
			}
			line := domain.OrderItem{
				SKU:            product.SKU,
				Name:           product.Name,
				Qty:            item.Qty,
				UnitPriceCents: product.PriceCents,
				TotalCents:     product.PriceCents * int64(item.Qty),
			}
			order.Items = append(order.Items, line)
			order.SubtotalCents += line.TotalCents
		}
	}

	if req.Quotation != nil {
		q, bom, cfg, err := s.quote(ctx, *req.Quotation)
		if err != nil {
			return domain.OrderResponse{}, err
		}
		if q.TotalCameras == 0 {
			return domain.OrderResponse{}, fmt.Errorf("%w: quotation has no cameras", store.ErrInvalidInput)
		}
		kit := cfg.Request()
		order.Quotation = &kit
		order.QuotationBOM = bom
		order.QuotationCents = q.Total * centsPerUnit
		order.SubtotalCents += order.QuotationCents
	}

	discount, err := s.calculateDiscount(ctx, order.SubtotalCents)
	if err != nil {
		return domain.OrderResponse{}, err
	}
	order.DiscountCents = discount
	order.TotalCents = order.SubtotalCents - discount

	created, err := s.repo.CreateOrder(ctx, order)
	if err != nil {
		return domain.OrderResponse{}, err
	}

	duplicate := created.ID != order.ID
	if !duplicate {
		s.logAudit(ctx, "order_create", "order", created.ID, fmt.Sprintf("payment=%s,total=%d,quotation=%d", created.PaymentMethod, created.TotalCents, created.QuotationCents))
	}
	return domain.OrderResponse{Order: *created, Duplicate: duplicate}, nil
}

func (s *Service) ListOrders(ctx context.Context, status string, limit int) (domain.OrderListResponse, error) {
	if _, err := requireRole(ctx, domain.RoleAdmin, domain.RoleStaff); err != nil {
		return domain.OrderListResponse{}, err
	}
	orders, err := s.repo.ListOrders(ctx, strings.ToLower(strings.TrimSpace(status)), limit)
	if err != nil {
		return domain.OrderListResponse{}, err
	}
	return domain.OrderListResponse{Orders: orders}, nil
}

func (s *Service) GetOrder(ctx context.Context, id string) (domain.Order, error) {
	if _, err := requireRole(ctx, domain.RoleAdmin, domain.RoleStaff); err != nil {
		return domain.Order{}, err
	}
	order, err := s.repo.GetOrder(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.Order{}, err
	}
	return *order, nil
}

func (s *Service) UpdateOrderStatus(ctx context.Context, id string, req domain.OrderStatusRequest) (domain.Order, error) {
	if _, err := requireRole(ctx, domain.RoleAdmin, domain.RoleStaff); err != nil {
		return domain.Order{}, err
	}

	current, err := s.repo.GetOrder(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.Order{}, err
	}
	to := strings.ToLower(strings.TrimSpace(req.Status))
	if !canTransition(current.Status, to) {
		return domain.Order{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, to)
	}

	updated, err := s.repo.UpdateOrderStatus(ctx, current.ID, current.Status, to, s.now())
	if err != nil {
		return domain.Order{}, err
	}

	s.logAudit(ctx, "order_status", "order", updated.ID, fmt.Sprintf("from=%s,to=%s,reason=%s", current.Status, to, defaultString(strings.TrimSpace(req.Reason), "-")))
	return *updated, nil
}

func (s *Service) ConfirmPayment(ctx context.Context, id string, req domain.PaymentConfirmRequest) (domain.Order, error) {
	if _, err := requireRole(ctx, domain.RoleAdmin, domain.RoleStaff); err != nil {
		return domain.Order{}, err
	}

	current, err := s.repo.GetOrder(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.Order{}, err
	}
	if current.PaymentMethod != domain.PaymentMethodOnline {
		return domain.Order{}, fmt.Errorf("%w: only online orders take payment confirmation", store.ErrInvalidInput)
	}

	updated, err := s.repo.ConfirmOrderPayment(ctx, current.ID, strings.TrimSpace(req.PaymentReference), s.now())
	if err != nil {
		return domain.Order{}, err
	}

	s.logAudit(ctx, "order_payment_confirm", "order", updated.ID, fmt.Sprintf("reference=%s", updated.PaymentReference))
	return *updated, nil
}

// TrackOrder is the public lookup. A phone mismatch reads as not found.
func (s *Service) TrackOrder(ctx context.Context, id string, phone string) (domain.Order, error) {
	id = strings.TrimSpace(id)
	if id == "" || digitsOnly(phone) == "" {
		return domain.Order{}, store.ErrInvalidInput
	}
	order, err := s.repo.GetOrder(ctx, id)
	if err != nil {
		return domain.Order{}, err
	}
	if digitsOnly(order.Phone) != digitsOnly(phone) {
		return domain.Order{}, store.ErrNotFound
	}
	return *order, nil
}

func digitsOnly(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func normalizeItems(items []domain.CartItem) ([]domain.CartItem, error) {
	merged := map[string]int{}
	for _, item := range items {
		sku := strings.ToUpper(strings.TrimSpace(item.SKU))
		if sku == "" || item.Qty < 1 {
			return nil, fmt.Errorf("%w: cart items need a sku and a positive qty", store.ErrInvalidInput)
		}
		merged[sku] += item.Qty
	}

	normalized := make([]domain.CartItem, 0, len(merged))
	for sku, qty := range merged {
		normalized = append(normalized, domain.CartItem{SKU: sku, Qty: qty})
	}
	sort.Slice(normalized, func(i, j int) bool {
		return normalized[i].SKU < normalized[j].SKU
	})
	return normalized, nil
}

func (s *Service) CreatePricingRule(ctx context.Context, req domain.PricingRuleCreateRequest) (domain.PricingRule, error) {
	if _, err := requireRole(ctx, domain.RoleAdmin); err != nil {
		return domain.PricingRule{}, err
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Type = strings.TrimSpace(req.Type)
	if req.Name == "" {
		return domain.PricingRule{}, store.ErrInvalidInput
	}
	if req.MinSubtotalCents < 0 || req.DiscountPercent < 0 || req.DiscountPercent > 100 || req.FlatDiscountCents < 0 {
		return domain.PricingRule{}, store.ErrInvalidInput
	}
	switch req.Type {
	case domain.PricingRuleCartPercent:
		if req.DiscountPercent <= 0 {
			return domain.PricingRule{}, store.ErrInvalidInput
		}
	case domain.PricingRuleFlatCart:
		if req.FlatDiscountCents <= 0 {
			return domain.PricingRule{}, store.ErrInvalidInput
		}
	default:
		return domain.PricingRule{}, store.ErrInvalidInput
	}

	saved, err := s.repo.CreatePricingRule(ctx, domain.PricingRule{
		ID:                xid.New("rule"),
		Name:              req.Name,
		Type:              req.Type,
		MinSubtotalCents:  req.MinSubtotalCents,
		DiscountPercent:   req.DiscountPercent,
		FlatDiscountCents: req.FlatDiscountCents,
		Active:            true,
		CreatedAt:         s.now(),
	})
	if err != nil {
		return domain.PricingRule{}, err
	}

	s.logAudit(ctx, "pricing_rule_create", "pricing_rule", saved.ID, fmt.Sprintf("type=%s,name=%s", saved.Type, saved.Name))
	return *saved, nil
}

func (s *Service) ListPricingRules(ctx context.Context) ([]domain.PricingRule, error) {
	if _, err := requireRole(ctx, domain.RoleAdmin, domain.RoleStaff); err != nil {
		return nil, err
	}
	return s.repo.ListPricingRules(ctx)
}

func (s *Service) SetPricingRuleActive(ctx context.Context, ruleID string, active bool) (domain.PricingRule, error) {
	if _, err := requireRole(ctx, domain.RoleAdmin); err != nil {
		return domain.PricingRule{}, err
	}

	rule, err := s.repo.UpdatePricingRuleActive(ctx, ruleID, active)
	if err != nil {
		return domain.PricingRule{}, err
	}

	s.logAudit(ctx, "pricing_rule_toggle", "pricing_rule", ruleID, fmt.Sprintf("active=%t", active))
	return *rule, nil
}

// calculateDiscount applies the single best active rule, capped at the
// subtotal.
func (s *Service) calculateDiscount(ctx context.Context, subtotalCents int64) (int64, error) {
	if subtotalCents < 1 {
		return 0, nil
	}

	rules, err := s.repo.ListPricingRules(ctx)
	if err != nil {
		return 0, err
	}

	var best int64
	for _, rule := range rules {
		if !rule.Active || subtotalCents < rule.MinSubtotalCents {
			continue
		}

		discount := int64(0)
		switch rule.Type {
		case domain.PricingRuleCartPercent:
			discount = decimal.NewFromInt(subtotalCents).
				Mul(decimal.NewFromFloat(rule.DiscountPercent)).
				Div(decimal.NewFromInt(100)).
				Round(0).
				IntPart()
		case domain.PricingRuleFlatCart:
			discount = rule.FlatDiscountCents
		}

		if discount > best {
			best = discount
		}
	}
	if best > subtotalCents {
		return subtotalCents, nil
	}
	return best, nil
}
