package memory

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"cctvstore/backend/internal/domain"
	"cctvstore/backend/internal/quotation"
	"cctvstore/backend/internal/store"
	"cctvstore/backend/internal/xid"
)

const SeedDealerID = "dealer-demo"

type Store struct {
	mu                sync.RWMutex
	products          map[string]domain.Product
	priceHistoryBySKU map[string][]domain.ProductPriceHistory
	optionsByID       map[string]domain.QuotationOption
	rulesByID         map[string]domain.PricingRule
	ordersByID        map[string]*domain.Order
	ordersByIdem      map[string]string
	dealersByID       map[string]domain.Dealer
	dealerInventory   map[string]map[string]int
	invoicesByID      map[string]*domain.Invoice
	usersByUsername   map[string]domain.UserAccount
	auditLogs         []domain.AuditLog
}

// seedUsers builds the dev/demo accounts. Passwords come from
// SEED_ADMIN_PASSWORD, SEED_STAFF_PASSWORD and SEED_DEALER_PASSWORD, with
// fixed dev defaults when unset. Production runs on PostgreSQL.
func seedUsers(logger *zap.Logger) map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	staffPwd := envOr("SEED_STAFF_PASSWORD", "staff123")
	dealerPwd := envOr("SEED_DEALER_PASSWORD", "dealer123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_DEALER_PASSWORD") == "" {
		logger.Warn("memory store using default dev credentials; set SEED_ADMIN_PASSWORD and SEED_DEALER_PASSWORD to override")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"admin", adminPwd, domain.RoleAdmin},
		{"staff", staffPwd, domain.RoleStaff},
		{"dealer", dealerPwd, domain.RoleDealer},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			logger.Fatal("hash seed password", zap.String("username", u.username), zap.Error(err))
		}
		users[u.username] = domain.UserAccount{
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// New returns an empty store.
func New() *Store {
	return &Store{
		products:          make(map[string]domain.Product),
		priceHistoryBySKU: make(map[string][]domain.ProductPriceHistory),
		optionsByID:       make(map[string]domain.QuotationOption),
		rulesByID:         make(map[string]domain.PricingRule),
		ordersByID:        make(map[string]*domain.Order),
		ordersByIdem:      make(map[string]string),
		dealersByID:       make(map[string]domain.Dealer),
		dealerInventory:   make(map[string]map[string]int),
		invoicesByID:      make(map[string]*domain.Invoice),
		usersByUsername:   make(map[string]domain.UserAccount),
		auditLogs:         make([]domain.AuditLog, 0, 128),
	}
}

// NewSeeded returns a store with a demo catalog, the built-in quotation
// options and one account per role.
func NewSeeded(logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := New()

	products := []domain.Product{
		{SKU: "CAM-HIK-2MP-DOME", Name: "Hikvision 2MP Turbo HD Dome", Category: "camera", Brand: "Hikvision", PriceCents: 65000, DealerPriceCents: 52000},
		{SKU: "CAM-HIK-4MP-BULLET", Name: "Hikvision 4MP IP Bullet", Category: "camera", Brand: "Hikvision", PriceCents: 145000, DealerPriceCents: 118000},
		{SKU: "CAM-DAH-5MP-FC", Name: "Dahua 5MP Full Color Bullet", Category: "camera", Brand: "Dahua", PriceCents: 189000, DealerPriceCents: 152000},
		{SKU: "REC-HIK-DVR-8CH", Name: "Hikvision 8CH Turbo HD DVR", Category: "recorder", Brand: "Hikvision", PriceCents: 320000, DealerPriceCents: 268000},
		{SKU: "REC-DAH-NVR-16CH", Name: "Dahua 16CH NVR", Category: "recorder", Brand: "Dahua", PriceCents: 540000, DealerPriceCents: 455000},
		{SKU: "HDD-WD-1TB", Name: "WD Purple 1TB Surveillance HDD", Category: "storage", Brand: "WD", PriceCents: 250000, DealerPriceCents: 210000},
		{SKU: "HDD-WD-2TB", Name: "WD Purple 2TB Surveillance HDD", Category: "storage", Brand: "WD", PriceCents: 340000, DealerPriceCents: 290000},
		{SKU: "CBL-31-ROLL", Name: "3+1 Coaxial Cable 90m Roll", Category: "cable", Brand: "Generic", PriceCents: 180000, DealerPriceCents: 150000},
		{SKU: "CBL-CAT6-BOX", Name: "CAT6 UTP Cable 305m Box", Category: "cable", Brand: "Generic", PriceCents: 260000, DealerPriceCents: 220000},
		{SKU: "ACC-BNC-10", Name: "BNC Connector (10 pcs)", Category: "accessory", Brand: "Generic", PriceCents: 20000, DealerPriceCents: 15000},
		{SKU: "ACC-PSU-12V", Name: "12V 10A Power Supply", Category: "accessory", Brand: "Generic", PriceCents: 45000, DealerPriceCents: 36000},
	}
	for _, p := range products {
		p.Active = true
		p.Stock = 50
		s.products[p.SKU] = p
	}

	doc := quotation.DefaultDocument()
	now := time.Now().UTC()
	for _, group := range []struct {
		category string
		options  []domain.PriceOption
	}{
		{domain.OptionCameraType, doc.CameraTypes},
		{domain.OptionBrand, doc.Brands},
		{domain.OptionChannel, doc.Channels},
		{domain.OptionPixel, doc.Pixels},
		{domain.OptionTechType, doc.TechTypes},
		{domain.OptionStorage, doc.Storage},
		{domain.OptionCable, doc.Cables},
		{domain.OptionAccessory, doc.Accessories},
	} {
		for i, opt := range group.options {
			name := opt.Name
			switch {
			case opt.Capacity != "":
				name = opt.Capacity
			case opt.ChannelCount != "":
				name = opt.ChannelCount.String()
			}
			id := xid.New("qopt")
			s.optionsByID[id] = domain.QuotationOption{
				ID:        id,
				Category:  group.category,
				Name:      name,
				Price:     opt.Price,
				HDPrice:   opt.HDPrice,
				IPPrice:   opt.IPPrice,
				Position:  i + 1,
				Active:    true,
				UpdatedAt: now,
			}
		}
	}

	s.usersByUsername = seedUsers(logger)
	s.dealersByID[SeedDealerID] = domain.Dealer{
		ID:           SeedDealerID,
		Username:     "dealer",
		BusinessName: "Demo Security Supplies",
		Phone:        "0800000000",
		Active:       true,
		CreatedAt:    now,
	}
	s.dealerInventory[SeedDealerID] = map[string]int{"CAM-HIK-2MP-DOME": 4}

	return s
}

func (s *Store) ListProducts(_ context.Context, filter domain.ProductFilter, includeInactive bool) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	products := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		if !p.Active && !includeInactive {
			continue
		}
		if filter.Category != "" && !strings.EqualFold(p.Category, filter.Category) {
			continue
		}
		if filter.Brand != "" && !strings.EqualFold(p.Brand, filter.Brand) {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(p.Name), search) && !strings.Contains(strings.ToLower(p.SKU), search) {
			continue
		}
		products = append(products, p)
	}

	slices.SortFunc(products, func(a, b domain.Product) int {
		if a.Category == b.Category {
			return strings.Compare(a.Name, b.Name)
		}
		return strings.Compare(a.Category, b.Category)
	})
	return products, nil
}

func validProduct(p domain.Product) bool {
	return p.SKU != "" && p.Name != "" && p.Category != "" && p.PriceCents >= 1 && p.DealerPriceCents >= 0 && p.Stock >= 0
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !validProduct(product) {
		return nil, store.ErrInvalidInput
	}
	if _, exists := s.products[product.SKU]; exists {
		return nil, store.ErrConflict
	}

	product.Active = true
	s.products[product.SKU] = product
	created := product
	return &created, nil
}

func (s *Store) GetProductBySKU(_ context.Context, sku string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, exists := s.products[sku]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyProduct := product
	return &copyProduct, nil
}

func (s *Store) GetProductsBySKUs(_ context.Context, skus []string) (map[string]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]domain.Product, len(skus))
	for _, sku := range skus {
		if p, ok := s.products[sku]; ok && p.Active {
			result[sku] = p
		}
	}
	return result, nil
}

func (s *Store) UpdateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !validProduct(product) {
		return nil, store.ErrInvalidInput
	}
	if _, exists := s.products[product.SKU]; !exists {
		return nil, store.ErrNotFound
	}

	s.products[product.SKU] = product
	updated := product
	return &updated, nil
}

func (s *Store) CreatePriceHistory(_ context.Context, entry domain.ProductPriceHistory) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = xid.New("ph")
	}
	if entry.ChangedAt.IsZero() {
		entry.ChangedAt = time.Now().UTC()
	}
	s.priceHistoryBySKU[entry.SKU] = append(s.priceHistoryBySKU[entry.SKU], entry)
	return nil
}

func (s *Store) ListPriceHistory(_ context.Context, sku string, limit int) ([]domain.ProductPriceHistory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.priceHistoryBySKU[sku]
	result := make([]domain.ProductPriceHistory, len(history))
	copy(result, history)
	slices.SortFunc(result, func(a, b domain.ProductPriceHistory) int {
		if c := b.ChangedAt.Compare(a.ChangedAt); c != 0 {
			return c
		}
		return strings.Compare(b.ID, a.ID)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) ListQuotationOptions(_ context.Context, includeInactive bool) ([]domain.QuotationOption, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	options := make([]domain.QuotationOption, 0, len(s.optionsByID))
	for _, opt := range s.optionsByID {
		if !opt.Active && !includeInactive {
			continue
		}
		options = append(options, opt)
	}
	slices.SortFunc(options, compareOptions)
	return options, nil
}

func compareOptions(a, b domain.QuotationOption) int {
	if c := strings.Compare(a.Category, b.Category); c != 0 {
		return c
	}
	if a.Position != b.Position {
		return a.Position - b.Position
	}
	return strings.Compare(a.Name, b.Name)
}

func (s *Store) GetQuotationOption(_ context.Context, id string) (*domain.QuotationOption, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	opt, ok := s.optionsByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &opt, nil
}

func (s *Store) optionNameTakenLocked(option domain.QuotationOption) bool {
	for id, existing := range s.optionsByID {
		if id == option.ID {
			continue
		}
		if existing.Category == option.Category && strings.EqualFold(existing.Name, option.Name) {
			return true
		}
	}
	return false
}

func (s *Store) CreateQuotationOption(_ context.Context, option domain.QuotationOption) (*domain.QuotationOption, error) {
	if strings.TrimSpace(option.Name) == "" || !slices.Contains(domain.OptionCategories, option.Category) {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if option.ID == "" {
		option.ID = xid.New("qopt")
	}
	if s.optionNameTakenLocked(option) {
		return nil, store.ErrConflict
	}
	if option.UpdatedAt.IsZero() {
		option.UpdatedAt = time.Now().UTC()
	}
	option.Active = true
	s.optionsByID[option.ID] = option
	created := option
	return &created, nil
}

func (s *Store) UpdateQuotationOption(_ context.Context, option domain.QuotationOption) (*domain.QuotationOption, error) {
	if strings.TrimSpace(option.Name) == "" {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.optionsByID[option.ID]
	if !ok {
		return nil, store.ErrNotFound
	}
	option.Category = existing.Category
	if s.optionNameTakenLocked(option) {
		return nil, store.ErrConflict
	}
	if option.UpdatedAt.IsZero() {
		option.UpdatedAt = time.Now().UTC()
	}
	s.optionsByID[option.ID] = option
	updated := option
	return &updated, nil
}

func (s *Store) DeleteQuotationOption(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.optionsByID[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.optionsByID, id)
	return nil
}

func (s *Store) CreatePricingRule(_ context.Context, rule domain.PricingRule) (*domain.PricingRule, error) {
	if strings.TrimSpace(rule.Name) == "" || rule.MinSubtotalCents < 0 {
		return nil, store.ErrInvalidInput
	}
	switch rule.Type {
	case domain.PricingRuleCartPercent:
		if rule.DiscountPercent <= 0 || rule.DiscountPercent > 100 {
			return nil, store.ErrInvalidInput
		}
	case domain.PricingRuleFlatCart:
		if rule.FlatDiscountCents <= 0 {
			return nil, store.ErrInvalidInput
		}
	default:
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if rule.ID == "" {
		rule.ID = xid.New("rule")
	}
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = time.Now().UTC()
	}
	rule.Active = true
	s.rulesByID[rule.ID] = rule
	created := rule
	return &created, nil
}

func (s *Store) ListPricingRules(_ context.Context) ([]domain.PricingRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rules := make([]domain.PricingRule, 0, len(s.rulesByID))
	for _, rule := range s.rulesByID {
		rules = append(rules, rule)
	}
	slices.SortFunc(rules, func(a, b domain.PricingRule) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return rules, nil
}

func (s *Store) UpdatePricingRuleActive(_ context.Context, ruleID string, active bool) (*domain.PricingRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rule, exists := s.rulesByID[ruleID]
	if !exists {
		return nil, store.ErrNotFound
	}
	rule.Active = active
	s.rulesByID[ruleID] = rule
	updated := rule
	return &updated, nil
}

func (s *Store) FindOrderByIdempotency(_ context.Context, key string) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.ordersByIdem[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneOrder(s.ordersByID[id]), nil
}

func (s *Store) GetOrder(_ context.Context, id string) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, ok := s.ordersByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneOrder(order), nil
}

func (s *Store) CreateOrder(_ context.Context, order domain.Order) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if order.IdempotencyKey == "" {
		return nil, store.ErrInvalidInput
	}
	if id, ok := s.ordersByIdem[order.IdempotencyKey]; ok {
		return cloneOrder(s.ordersByID[id]), nil
	}
	if len(order.Items) == 0 && order.Quotation == nil {
		return nil, store.ErrInvalidInput
	}

	for _, item := range order.Items {
		if item.Qty < 1 {
			return nil, store.ErrInvalidInput
		}
		product, exists := s.products[item.SKU]
		if !exists || !product.Active {
			return nil, fmt.Errorf("sku %s unavailable: %w", item.SKU, store.ErrInvalidInput)
		}
		if product.Stock < item.Qty {
			return nil, fmt.Errorf("sku %s: %w", item.SKU, store.ErrInsufficientStock)
		}
	}
	for _, item := range order.Items {
		product := s.products[item.SKU]
		product.Stock -= item.Qty
		s.products[item.SKU] = product
	}

	if order.ID == "" {
		order.ID = xid.New("ord")
	}
	now := time.Now().UTC()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = order.CreatedAt

	stored := cloneOrder(&order)
	s.ordersByID[order.ID] = stored
	s.ordersByIdem[order.IdempotencyKey] = order.ID
	return cloneOrder(stored), nil
}

func (s *Store) ListOrders(_ context.Context, status string, limit int) ([]domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	orders := make([]domain.Order, 0, len(s.ordersByID))
	for _, order := range s.ordersByID {
		if status != "" && order.Status != status {
			continue
		}
		orders = append(orders, *cloneOrder(order))
	}
	slices.SortFunc(orders, func(a, b domain.Order) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(b.ID, a.ID)
	})
	if limit > 0 && len(orders) > limit {
		orders = orders[:limit]
	}
	return orders, nil
}

func (s *Store) UpdateOrderStatus(_ context.Context, id string, from string, to string, at time.Time) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.ordersByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if order.Status != from {
		return nil, store.ErrConflict
	}

	if to == domain.OrderStatusCancelled {
		for _, item := range order.Items {
			if product, exists := s.products[item.SKU]; exists {
				product.Stock += item.Qty
				s.products[item.SKU] = product
			}
		}
	}
	order.Status = to
	order.UpdatedAt = at
	return cloneOrder(order), nil
}

func (s *Store) ConfirmOrderPayment(_ context.Context, id string, reference string, at time.Time) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.ordersByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if order.PaymentStatus == domain.PaymentStatusPaid || order.Status == domain.OrderStatusCancelled {
		return nil, store.ErrConflict
	}
	order.PaymentStatus = domain.PaymentStatusPaid
	if reference != "" {
		order.PaymentReference = reference
	}
	if order.Status == domain.OrderStatusAwaitingPayment {
		order.Status = domain.OrderStatusPending
	}
	order.UpdatedAt = at
	return cloneOrder(order), nil
}

func (s *Store) CreateDealer(_ context.Context, dealer domain.Dealer, account domain.UserAccount) (*domain.Dealer, error) {
	username := strings.ToLower(strings.TrimSpace(account.Username))
	if username == "" || strings.TrimSpace(account.Password) == "" || strings.TrimSpace(dealer.BusinessName) == "" {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.usersByUsername[username]; exists {
		return nil, store.ErrConflict
	}

	now := time.Now().UTC()
	if dealer.ID == "" {
		dealer.ID = xid.New("dlr")
	}
	if dealer.CreatedAt.IsZero() {
		dealer.CreatedAt = now
	}
	dealer.Username = username
	dealer.Active = true

	account.Username = username
	account.Role = domain.RoleDealer
	account.Active = true
	if account.CreatedAt.IsZero() {
		account.CreatedAt = now
	}

	s.usersByUsername[username] = account
	s.dealersByID[dealer.ID] = dealer
	s.dealerInventory[dealer.ID] = map[string]int{}
	created := dealer
	return &created, nil
}

func (s *Store) ListDealers(_ context.Context) ([]domain.Dealer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	dealers := make([]domain.Dealer, 0, len(s.dealersByID))
	for _, d := range s.dealersByID {
		dealers = append(dealers, d)
	}
	slices.SortFunc(dealers, func(a, b domain.Dealer) int {
		return strings.Compare(a.BusinessName, b.BusinessName)
	})
	return dealers, nil
}

func (s *Store) GetDealerByUsername(_ context.Context, username string) (*domain.Dealer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	username = strings.ToLower(strings.TrimSpace(username))
	for _, d := range s.dealersByID {
		if d.Username == username {
			found := d
			return &found, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) GetDealerInventory(_ context.Context, dealerID string) ([]domain.DealerStock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.dealersByID[dealerID]; !ok {
		return nil, store.ErrNotFound
	}
	items := make([]domain.DealerStock, 0, len(s.dealerInventory[dealerID]))
	for sku, qty := range s.dealerInventory[dealerID] {
		if qty == 0 {
			continue
		}
		items = append(items, domain.DealerStock{SKU: sku, Name: s.products[sku].Name, Qty: qty})
	}
	slices.SortFunc(items, func(a, b domain.DealerStock) int {
		return strings.Compare(a.SKU, b.SKU)
	})
	return items, nil
}

func (s *Store) CreateInvoice(_ context.Context, invoice domain.Invoice) (*domain.Invoice, error) {
	if len(invoice.Items) == 0 || (invoice.Type != domain.InvoiceTypePurchase && invoice.Type != domain.InvoiceTypeSale) {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.dealersByID[invoice.DealerID]; !ok {
		return nil, store.ErrNotFound
	}
	if invoice.ID == "" {
		invoice.ID = xid.New("inv")
	}
	if invoice.CreatedAt.IsZero() {
		invoice.CreatedAt = time.Now().UTC()
	}
	invoice.Finalized = false
	invoice.FinalizedAt = nil

	stored := cloneInvoice(&invoice)
	s.invoicesByID[invoice.ID] = stored
	return cloneInvoice(stored), nil
}

func (s *Store) GetInvoice(_ context.Context, id string) (*domain.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	invoice, ok := s.invoicesByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneInvoice(invoice), nil
}

func (s *Store) ListInvoices(_ context.Context, dealerID string, limit int) ([]domain.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	invoices := make([]domain.Invoice, 0, 16)
	for _, invoice := range s.invoicesByID {
		if dealerID != "" && invoice.DealerID != dealerID {
			continue
		}
		invoices = append(invoices, *cloneInvoice(invoice))
	}
	slices.SortFunc(invoices, func(a, b domain.Invoice) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(b.ID, a.ID)
	})
	if limit > 0 && len(invoices) > limit {
		invoices = invoices[:limit]
	}
	return invoices, nil
}

func (s *Store) DeleteDraftInvoice(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	invoice, ok := s.invoicesByID[id]
	if !ok {
		return store.ErrNotFound
	}
	if invoice.Finalized {
		return store.ErrConflict
	}
	delete(s.invoicesByID, id)
	return nil
}

func (s *Store) FinalizeInvoice(_ context.Context, id string, at time.Time) (*domain.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	invoice, ok := s.invoicesByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if invoice.Finalized {
		return nil, store.ErrConflict
	}
	inventory := s.dealerInventory[invoice.DealerID]
	if inventory == nil {
		inventory = map[string]int{}
		s.dealerInventory[invoice.DealerID] = inventory
	}

	// validate summed quantities per sku before moving any stock
	needed := make(map[string]int, len(invoice.Items))
	for _, item := range invoice.Items {
		needed[item.SKU] += item.Qty
	}
	for _, item := range invoice.Items {
		qty, pending := needed[item.SKU]
		if !pending {
			continue
		}
		delete(needed, item.SKU)
		switch invoice.Type {
		case domain.InvoiceTypePurchase:
			product, exists := s.products[item.SKU]
			if !exists {
				return nil, fmt.Errorf("sku %s: %w", item.SKU, store.ErrNotFound)
			}
			if product.Stock < qty {
				return nil, fmt.Errorf("sku %s: %w", item.SKU, store.ErrInsufficientStock)
			}
		case domain.InvoiceTypeSale:
			if inventory[item.SKU] < qty {
				return nil, fmt.Errorf("sku %s: %w", item.SKU, store.ErrInsufficientStock)
			}
		}
	}
	for _, item := range invoice.Items {
		switch invoice.Type {
		case domain.InvoiceTypePurchase:
			product := s.products[item.SKU]
			product.Stock -= item.Qty
			s.products[item.SKU] = product
			inventory[item.SKU] += item.Qty
		case domain.InvoiceTypeSale:
			inventory[item.SKU] -= item.Qty
		}
	}

	finalizedAt := at
	invoice.Finalized = true
	invoice.FinalizedAt = &finalizedAt
	return cloneInvoice(invoice), nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username := strings.ToLower(strings.TrimSpace(user.Username))
	if username == "" || strings.TrimSpace(user.Password) == "" {
		return store.ErrInvalidInput
	}
	if _, exists := s.usersByUsername[username]; exists {
		return store.ErrConflict
	}
	user.Username = username
	if user.Role == "" {
		user.Role = domain.RoleStaff
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	user.Active = true
	s.usersByUsername[user.Username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, user := range s.usersByUsername {
		users = append(users, user)
	}
	slices.SortFunc(users, func(a, b domain.UserAccount) int {
		return strings.Compare(a.Username, b.Username)
	})
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return store.ErrInvalidInput
	}
	user, exists := s.usersByUsername[username]
	if !exists {
		return store.ErrNotFound
	}
	user.Password = password
	s.usersByUsername[username] = user
	return nil
}

func (s *Store) CreateAuditLog(_ context.Context, entry domain.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.auditLogs = append(s.auditLogs, entry)
	return nil
}

func (s *Store) ListAuditLogs(_ context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.AuditLog, 0, 64)
	for _, entry := range s.auditLogs {
		if entry.CreatedAt.Before(from) || !entry.CreatedAt.Before(to) {
			continue
		}
		result = append(result, entry)
	}

	slices.SortFunc(result, func(a, b domain.AuditLog) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(b.ID, a.ID)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) GetSalesReport(_ context.Context, from time.Time, to time.Time) (domain.SalesReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	report := domain.SalesReport{
		ByPayment: make([]domain.SalesReportPayment, 0, 2),
		ByStatus:  make([]domain.SalesReportStatus, 0, 6),
	}
	byPayment := map[string]*domain.SalesReportPayment{}
	byStatus := map[string]*domain.SalesReportStatus{}

	for _, order := range s.ordersByID {
		if order.CreatedAt.Before(from) || !order.CreatedAt.Before(to) {
			continue
		}

		status := byStatus[order.Status]
		if status == nil {
			status = &domain.SalesReportStatus{Status: order.Status}
			byStatus[order.Status] = status
		}
		status.Orders++

		if order.Status == domain.OrderStatusCancelled {
			continue
		}
		report.Orders++
		report.GrossSalesCents += order.SubtotalCents
		report.DiscountCents += order.DiscountCents
		report.NetSalesCents += order.TotalCents
		report.QuotationCents += order.QuotationCents

		payment := byPayment[order.PaymentMethod]
		if payment == nil {
			payment = &domain.SalesReportPayment{PaymentMethod: order.PaymentMethod}
			byPayment[order.PaymentMethod] = payment
		}
		payment.Orders++
		payment.TotalCents += order.TotalCents
	}

	for _, entry := range byPayment {
		report.ByPayment = append(report.ByPayment, *entry)
	}
	for _, entry := range byStatus {
		report.ByStatus = append(report.ByStatus, *entry)
	}
	slices.SortFunc(report.ByPayment, func(a, b domain.SalesReportPayment) int {
		return strings.Compare(a.PaymentMethod, b.PaymentMethod)
	})
	slices.SortFunc(report.ByStatus, func(a, b domain.SalesReportStatus) int {
		return strings.Compare(a.Status, b.Status)
	})
	return report, nil
}

func cloneOrder(src *domain.Order) *domain.Order {
	if src == nil {
		return nil
	}
	dup := *src
	dup.Items = slices.Clone(src.Items)
	dup.QuotationBOM = slices.Clone(src.QuotationBOM)
	if src.Quotation != nil {
		q := *src.Quotation
		q.IndoorCameras = cloneZone(src.Quotation.IndoorCameras)
		q.OutdoorCameras = cloneZone(src.Quotation.OutdoorCameras)
		dup.Quotation = &q
	}
	return &dup
}

func cloneZone(src domain.ZoneCameras) domain.ZoneCameras {
	if src == nil {
		return nil
	}
	dup := make(domain.ZoneCameras, len(src))
	for tech, pixels := range src {
		p := make(map[string]int, len(pixels))
		for pixel, qty := range pixels {
			p[pixel] = qty
		}
		dup[tech] = p
	}
	return dup
}

func cloneInvoice(src *domain.Invoice) *domain.Invoice {
	if src == nil {
		return nil
	}
	dup := *src
	dup.Items = slices.Clone(src.Items)
	if src.FinalizedAt != nil {
		at := *src.FinalizedAt
		dup.FinalizedAt = &at
	}
	return &dup
}
