package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"cctvstore/backend/internal/domain"
	"cctvstore/backend/internal/store"
	"cctvstore/backend/internal/xid"
)

//go:embed schema.sql
var schemaSQL string

type Store struct {
	db *sqlx.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sqlx.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// NewWithDB wraps an existing connection pool.
func NewWithDB(db *sqlx.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate creates any missing tables. Statements are idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

const productColumns = `sku, name, category, brand, description, price_cents, dealer_price_cents, stock, active`

func (s *Store) ListProducts(ctx context.Context, filter domain.ProductFilter, includeInactive bool) ([]domain.Product, error) {
	conditions := []string{}
	args := map[string]any{}
	if !includeInactive {
		conditions = append(conditions, "active = true")
	}
	if filter.Category != "" {
		conditions = append(conditions, "lower(category) = lower(:category)")
		args["category"] = filter.Category
	}
	if filter.Brand != "" {
		conditions = append(conditions, "lower(brand) = lower(:brand)")
		args["brand"] = filter.Brand
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		conditions = append(conditions, "(name ILIKE :search OR sku ILIKE :search)")
		args["search"] = "%" + search + "%"
	}

	query := `SELECT ` + productColumns + ` FROM products`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY category, name"

	query, bound, err := sqlx.Named(query, args)
	if err != nil {
		return nil, err
	}
	products := make([]domain.Product, 0, 64)
	if err := s.db.SelectContext(ctx, &products, s.db.Rebind(query), bound...); err != nil {
		return nil, err
	}
	return products, nil
}

func validProduct(p domain.Product) bool {
	return p.SKU != "" && p.Name != "" && p.Category != "" && p.PriceCents >= 1 && p.DealerPriceCents >= 0 && p.Stock >= 0
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if !validProduct(product) {
		return nil, store.ErrInvalidInput
	}

	product.Active = true
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO products (sku, name, category, brand, description, price_cents, dealer_price_cents, stock, active, created_at, updated_at)
		VALUES (:sku, :name, :category, :brand, :description, :price_cents, :dealer_price_cents, :stock, :active, now(), now())
	`, product)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}

	created := product
	return &created, nil
}

func (s *Store) GetProductBySKU(ctx context.Context, sku string) (*domain.Product, error) {
	var product domain.Product
	err := s.db.GetContext(ctx, &product, `SELECT `+productColumns+` FROM products WHERE sku = $1`, sku)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &product, nil
}

func (s *Store) GetProductsBySKUs(ctx context.Context, skus []string) (map[string]domain.Product, error) {
	result := make(map[string]domain.Product, len(skus))
	if len(skus) == 0 {
		return result, nil
	}

	query, args, err := sqlx.In(`SELECT `+productColumns+` FROM products WHERE active = true AND sku IN (?)`, skus)
	if err != nil {
		return nil, err
	}
	var products []domain.Product
	if err := s.db.SelectContext(ctx, &products, s.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	for _, p := range products {
		result[p.SKU] = p
	}
	return result, nil
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if !validProduct(product) {
		return nil, store.ErrInvalidInput
	}

	res, err := s.db.NamedExecContext(ctx, `
		UPDATE products
		SET name = :name, category = :category, brand = :brand, description = :description,
			price_cents = :price_cents, dealer_price_cents = :dealer_price_cents,
			stock = :stock, active = :active, updated_at = now()
		WHERE sku = :sku
	`, product)
	if err != nil {
		return nil, err
	}
	if err := expectAffected(res); err != nil {
		return nil, err
	}

	updated := product
	return &updated, nil
}

func (s *Store) CreatePriceHistory(ctx context.Context, entry domain.ProductPriceHistory) error {
	if entry.ID == "" {
		entry.ID = xid.New("ph")
	}
	if entry.ChangedAt.IsZero() {
		entry.ChangedAt = time.Now().UTC()
	}
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO product_price_history (id, sku, old_price_cents, new_price_cents, changed_by, changed_at)
		VALUES (:id, :sku, :old_price_cents, :new_price_cents, :changed_by, :changed_at)
	`, entry)
	return err
}

func (s *Store) ListPriceHistory(ctx context.Context, sku string, limit int) ([]domain.ProductPriceHistory, error) {
	if limit <= 0 {
		limit = 50
	}
	history := make([]domain.ProductPriceHistory, 0, limit)
	err := s.db.SelectContext(ctx, &history, `
		SELECT id, sku, old_price_cents, new_price_cents, changed_by, changed_at
		FROM product_price_history
		WHERE sku = $1
		ORDER BY changed_at DESC, id DESC
		LIMIT $2
	`, sku, limit)
	if err != nil {
		return nil, err
	}
	return history, nil
}

const optionColumns = `id, category, name, price, hd_price, ip_price, position, active, updated_at`

func (s *Store) ListQuotationOptions(ctx context.Context, includeInactive bool) ([]domain.QuotationOption, error) {
	query := `SELECT ` + optionColumns + ` FROM quotation_options`
	if !includeInactive {
		query += ` WHERE active = true`
	}
	query += ` ORDER BY category, position, name`

	options := make([]domain.QuotationOption, 0, 64)
	if err := s.db.SelectContext(ctx, &options, query); err != nil {
		return nil, err
	}
	return options, nil
}

func (s *Store) GetQuotationOption(ctx context.Context, id string) (*domain.QuotationOption, error) {
	var option domain.QuotationOption
	err := s.db.GetContext(ctx, &option, `SELECT `+optionColumns+` FROM quotation_options WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &option, nil
}

func (s *Store) CreateQuotationOption(ctx context.Context, option domain.QuotationOption) (*domain.QuotationOption, error) {
	if strings.TrimSpace(option.Name) == "" || !validOptionCategory(option.Category) {
		return nil, store.ErrInvalidInput
	}
	if option.ID == "" {
		option.ID = xid.New("qopt")
	}
	if option.UpdatedAt.IsZero() {
		option.UpdatedAt = time.Now().UTC()
	}
	option.Active = true

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO quotation_options (id, category, name, price, hd_price, ip_price, position, active, updated_at)
		VALUES (:id, :category, :name, :price, :hd_price, :ip_price, :position, :active, :updated_at)
	`, option)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}
	created := option
	return &created, nil
}

func (s *Store) UpdateQuotationOption(ctx context.Context, option domain.QuotationOption) (*domain.QuotationOption, error) {
	if strings.TrimSpace(option.Name) == "" {
		return nil, store.ErrInvalidInput
	}
	if option.UpdatedAt.IsZero() {
		option.UpdatedAt = time.Now().UTC()
	}

	var updated domain.QuotationOption
	query, args, err := s.db.BindNamed(`
		UPDATE quotation_options
		SET name = :name, price = :price, hd_price = :hd_price, ip_price = :ip_price,
			position = :position, active = :active, updated_at = :updated_at
		WHERE id = :id
		RETURNING `+optionColumns, option)
	if err != nil {
		return nil, err
	}
	if err := s.db.GetContext(ctx, &updated, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}
	return &updated, nil
}

func (s *Store) DeleteQuotationOption(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM quotation_options WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

func validOptionCategory(category string) bool {
	for _, c := range domain.OptionCategories {
		if c == category {
			return true
		}
	}
	return false
}

func (s *Store) CreatePricingRule(ctx context.Context, rule domain.PricingRule) (*domain.PricingRule, error) {
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

	if rule.ID == "" {
		rule.ID = xid.New("rule")
	}
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = time.Now().UTC()
	}
	rule.Active = true

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO pricing_rules (id, name, type, min_subtotal_cents, discount_percent, flat_discount_cents, active, created_at)
		VALUES (:id, :name, :type, :min_subtotal_cents, :discount_percent, :flat_discount_cents, :active, :created_at)
	`, rule)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}
	created := rule
	return &created, nil
}

func (s *Store) ListPricingRules(ctx context.Context) ([]domain.PricingRule, error) {
	rules := make([]domain.PricingRule, 0, 16)
	err := s.db.SelectContext(ctx, &rules, `
		SELECT id, name, type, min_subtotal_cents, discount_percent, flat_discount_cents, active, created_at
		FROM pricing_rules
		ORDER BY created_at, id
	`)
	if err != nil {
		return nil, err
	}
	return rules, nil
}

func (s *Store) UpdatePricingRuleActive(ctx context.Context, ruleID string, active bool) (*domain.PricingRule, error) {
	var rule domain.PricingRule
	err := s.db.GetContext(ctx, &rule, `
		UPDATE pricing_rules SET active = $2 WHERE id = $1
		RETURNING id, name, type, min_subtotal_cents, discount_percent, flat_discount_cents, active, created_at
	`, ruleID, active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &rule, nil
}

type orderRow struct {
	ID               string    `db:"id"`
	IdempotencyKey   string    `db:"idempotency_key"`
	CustomerName     string    `db:"customer_name"`
	Phone            string    `db:"phone"`
	Email            string    `db:"email"`
	Address          string    `db:"address"`
	City             string    `db:"city"`
	Notes            string    `db:"notes"`
	PaymentMethod    string    `db:"payment_method"`
	PaymentStatus    string    `db:"payment_status"`
	PaymentReference string    `db:"payment_reference"`
	Status           string    `db:"status"`
	SubtotalCents    int64     `db:"subtotal_cents"`
	DiscountCents    int64     `db:"discount_cents"`
	TotalCents       int64     `db:"total_cents"`
	Quotation        []byte    `db:"quotation"`
	QuotationBOM     []byte    `db:"quotation_bom"`
	QuotationCents   int64     `db:"quotation_cents"`
	CreatedAt        time.Time `db:"created_at"`
	UpdatedAt        time.Time `db:"updated_at"`
}

const orderColumns = `id, idempotency_key, customer_name, phone, email, address, city, notes,
	payment_method, payment_status, payment_reference, status,
	subtotal_cents, discount_cents, total_cents, quotation, quotation_bom, quotation_cents,
	created_at, updated_at`

func (r orderRow) toDomain() (domain.Order, error) {
	order := domain.Order{
		ID:               r.ID,
		IdempotencyKey:   r.IdempotencyKey,
		CustomerName:     r.CustomerName,
		Phone:            r.Phone,
		Email:            r.Email,
		Address:          r.Address,
		City:             r.City,
		Notes:            r.Notes,
		PaymentMethod:    r.PaymentMethod,
		PaymentStatus:    r.PaymentStatus,
		PaymentReference: r.PaymentReference,
		Status:           r.Status,
		SubtotalCents:    r.SubtotalCents,
		DiscountCents:    r.DiscountCents,
		TotalCents:       r.TotalCents,
		QuotationCents:   r.QuotationCents,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
		Items:            []domain.OrderItem{},
	}
	if len(r.Quotation) > 0 && string(r.Quotation) != "null" {
		var q domain.QuotationRequest
		if err := json.Unmarshal(r.Quotation, &q); err != nil {
			return domain.Order{}, fmt.Errorf("decode order quotation: %w", err)
		}
		order.Quotation = &q
	}
	if len(r.QuotationBOM) > 0 && string(r.QuotationBOM) != "null" {
		if err := json.Unmarshal(r.QuotationBOM, &order.QuotationBOM); err != nil {
			return domain.Order{}, fmt.Errorf("decode order bom: %w", err)
		}
	}
	return order, nil
}

type orderItemRow struct {
	OrderID        string `db:"order_id"`
	LineNo         int    `db:"line_no"`
	SKU            string `db:"sku"`
	Name           string `db:"name"`
	Qty            int    `db:"qty"`
	UnitPriceCents int64  `db:"unit_price_cents"`
	TotalCents     int64  `db:"total_cents"`
}

func (s *Store) FindOrderByIdempotency(ctx context.Context, key string) (*domain.Order, error) {
	return s.findOrder(ctx, s.db, "idempotency_key", key)
}

func (s *Store) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	return s.findOrder(ctx, s.db, "id", id)
}

func (s *Store) findOrder(ctx context.Context, q sqlx.QueryerContext, column string, value string) (*domain.Order, error) {
	var row orderRow
	err := sqlx.GetContext(ctx, q, &row, `SELECT `+orderColumns+` FROM orders WHERE `+column+` = $1`, value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	order, err := row.toDomain()
	if err != nil {
		return nil, err
	}

	var items []orderItemRow
	err = sqlx.SelectContext(ctx, q, &items, `
		SELECT order_id, line_no, sku, name, qty, unit_price_cents, total_cents
		FROM order_items WHERE order_id = $1 ORDER BY line_no
	`, order.ID)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		order.Items = append(order.Items, domain.OrderItem{
			SKU:            item.SKU,
			Name:           item.Name,
			Qty:            item.Qty,
			UnitPriceCents: item.UnitPriceCents,
			TotalCents:     item.TotalCents,
		})
	}
	return &order, nil
}

func (s *Store) CreateOrder(ctx context.Context, order domain.Order) (*domain.Order, error) {
	if order.IdempotencyKey == "" {
		return nil, store.ErrInvalidInput
	}
	if len(order.Items) == 0 && order.Quotation == nil {
		return nil, store.ErrInvalidInput
	}

	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	if existing, err := s.findOrder(ctx, tx, "idempotency_key", order.IdempotencyKey); err == nil {
		return existing, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	skus := uniqueSKUs(order.Items)
	stock := map[string]int{}
	if len(skus) > 0 {
		query, args, err := sqlx.In(`SELECT sku, stock FROM products WHERE active = true AND sku IN (?) FOR UPDATE`, skus)
		if err != nil {
			return nil, err
		}
		var rows []struct {
			SKU   string `db:"sku"`
			Stock int    `db:"stock"`
		}
		if err := tx.SelectContext(ctx, &rows, tx.Rebind(query), args...); err != nil {
			return nil, err
		}
		for _, r := range rows {
			stock[r.SKU] = r.Stock
		}
	}

	needed := map[string]int{}
	for _, item := range order.Items {
		if item.Qty < 1 {
			return nil, store.ErrInvalidInput
		}
		if _, ok := stock[item.SKU]; !ok {
			return nil, fmt.Errorf("sku %s unavailable: %w", item.SKU, store.ErrInvalidInput)
		}
		needed[item.SKU] += item.Qty
	}
	for sku, qty := range needed {
		if stock[sku] < qty {
			return nil, fmt.Errorf("sku %s: %w", sku, store.ErrInsufficientStock)
		}
	}
	for _, sku := range skus {
		if _, err := tx.ExecContext(ctx, `UPDATE products SET stock = stock - $2, updated_at = now() WHERE sku = $1`, sku, needed[sku]); err != nil {
			return nil, err
		}
	}

	if order.ID == "" {
		order.ID = xid.New("ord")
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now().UTC()
	}
	order.UpdatedAt = order.CreatedAt

	quotationJSON, err := nullableJSON(order.Quotation, order.Quotation == nil)
	if err != nil {
		return nil, err
	}
	bomJSON, err := nullableJSON(order.QuotationBOM, len(order.QuotationBOM) == 0)
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (`+orderColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)
	`, order.ID, order.IdempotencyKey, order.CustomerName, order.Phone, order.Email, order.Address, order.City, order.Notes,
		order.PaymentMethod, order.PaymentStatus, order.PaymentReference, order.Status,
		order.SubtotalCents, order.DiscountCents, order.TotalCents, quotationJSON, bomJSON, order.QuotationCents,
		order.CreatedAt, order.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}

	for i, item := range order.Items {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO order_items (order_id, line_no, sku, name, qty, unit_price_cents, total_cents)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
		`, order.ID, i+1, item.SKU, item.Name, item.Qty, item.UnitPriceCents, item.TotalCents)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	created := order
	return &created, nil
}

func (s *Store) ListOrders(ctx context.Context, status string, limit int) ([]domain.Order, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []orderRow
	query := `SELECT ` + orderColumns + ` FROM orders`
	args := []any{}
	if status != "" {
		query += ` WHERE status = $1 ORDER BY created_at DESC, id DESC LIMIT $2`
		args = append(args, status, limit)
	} else {
		query += ` ORDER BY created_at DESC, id DESC LIMIT $1`
		args = append(args, limit)
	}
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}

	orders := make([]domain.Order, 0, len(rows))
	for _, row := range rows {
		order, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, nil
}

func (s *Store) UpdateOrderStatus(ctx context.Context, id string, from string, to string, at time.Time) (*domain.Order, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `UPDATE orders SET status = $3, updated_at = $4 WHERE id = $1 AND status = $2`, id, from, to, at)
	if err != nil {
		return nil, err
	}
	if err := expectAffected(res); err != nil {
		if _, getErr := s.findOrder(ctx, tx, "id", id); errors.Is(getErr, store.ErrNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, store.ErrConflict
	}

	if to == domain.OrderStatusCancelled {
		_, err := tx.ExecContext(ctx, `
			UPDATE products p
			SET stock = p.stock + i.qty, updated_at = now()
			FROM (SELECT sku, SUM(qty) AS qty FROM order_items WHERE order_id = $1 GROUP BY sku) i
			WHERE p.sku = i.sku
		`, id)
		if err != nil {
			return nil, err
		}
	}

	order, err := s.findOrder(ctx, tx, "id", id)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *Store) ConfirmOrderPayment(ctx context.Context, id string, reference string, at time.Time) (*domain.Order, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE orders
		SET payment_status = $2,
			payment_reference = CASE WHEN $3 = '' THEN payment_reference ELSE $3 END,
			status = CASE WHEN status = $4 THEN $5 ELSE status END,
			updated_at = $6
		WHERE id = $1 AND payment_status <> $2 AND status <> $7
	`, id, domain.PaymentStatusPaid, reference, domain.OrderStatusAwaitingPayment, domain.OrderStatusPending, at, domain.OrderStatusCancelled)
	if err != nil {
		return nil, err
	}
	if err := expectAffected(res); err != nil {
		if _, getErr := s.GetOrder(ctx, id); errors.Is(getErr, store.ErrNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, store.ErrConflict
	}
	return s.GetOrder(ctx, id)
}

const dealerColumns = `id, username, business_name, phone, address, active, created_at`

func (s *Store) CreateDealer(ctx context.Context, dealer domain.Dealer, account domain.UserAccount) (*domain.Dealer, error) {
	username := strings.ToLower(strings.TrimSpace(account.Username))
	if username == "" || strings.TrimSpace(account.Password) == "" || strings.TrimSpace(dealer.BusinessName) == "" {
		return nil, store.ErrInvalidInput
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	if dealer.ID == "" {
		dealer.ID = xid.New("dlr")
	}
	if dealer.CreatedAt.IsZero() {
		dealer.CreatedAt = now
	}
	dealer.Username = username
	dealer.Active = true

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO users (username, password, role, active, created_at) VALUES ($1,$2,$3,true,$4)
	`, username, account.Password, domain.RoleDealer, now); err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}
	if _, err := tx.NamedExecContext(ctx, `
		INSERT INTO dealers (`+dealerColumns+`)
		VALUES (:id, :username, :business_name, :phone, :address, :active, :created_at)
	`, dealer); err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	created := dealer
	return &created, nil
}

func (s *Store) ListDealers(ctx context.Context) ([]domain.Dealer, error) {
	dealers := make([]domain.Dealer, 0, 16)
	if err := s.db.SelectContext(ctx, &dealers, `SELECT `+dealerColumns+` FROM dealers ORDER BY business_name`); err != nil {
		return nil, err
	}
	return dealers, nil
}

func (s *Store) GetDealerByUsername(ctx context.Context, username string) (*domain.Dealer, error) {
	var dealer domain.Dealer
	err := s.db.GetContext(ctx, &dealer, `SELECT `+dealerColumns+` FROM dealers WHERE username = $1`, strings.ToLower(strings.TrimSpace(username)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &dealer, nil
}

func (s *Store) GetDealerInventory(ctx context.Context, dealerID string) ([]domain.DealerStock, error) {
	items := make([]domain.DealerStock, 0, 16)
	err := s.db.SelectContext(ctx, &items, `
		SELECT di.sku, COALESCE(p.name, '') AS name, di.qty
		FROM dealer_inventory di
		LEFT JOIN products p ON p.sku = di.sku
		WHERE di.dealer_id = $1 AND di.qty > 0
		ORDER BY di.sku
	`, dealerID)
	if err != nil {
		return nil, err
	}
	return items, nil
}

type invoiceRow struct {
	ID               string       `db:"id"`
	DealerID         string       `db:"dealer_id"`
	Type             string       `db:"type"`
	CounterpartyName string       `db:"counterparty_name"`
	Notes            string       `db:"notes"`
	SubtotalCents    int64        `db:"subtotal_cents"`
	TaxRatePercent   float64      `db:"tax_rate_percent"`
	TaxCents         int64        `db:"tax_cents"`
	TotalCents       int64        `db:"total_cents"`
	Finalized        bool         `db:"finalized"`
	FinalizedAt      sql.NullTime `db:"finalized_at"`
	CreatedAt        time.Time    `db:"created_at"`
}

const invoiceColumns = `id, dealer_id, type, counterparty_name, notes, subtotal_cents, tax_rate_percent, tax_cents, total_cents, finalized, finalized_at, created_at`

func (r invoiceRow) toDomain() domain.Invoice {
	invoice := domain.Invoice{
		ID:               r.ID,
		DealerID:         r.DealerID,
		Type:             r.Type,
		CounterpartyName: r.CounterpartyName,
		Notes:            r.Notes,
		SubtotalCents:    r.SubtotalCents,
		TaxRatePercent:   r.TaxRatePercent,
		TaxCents:         r.TaxCents,
		TotalCents:       r.TotalCents,
		Finalized:        r.Finalized,
		CreatedAt:        r.CreatedAt,
		Items:            []domain.InvoiceLine{},
	}
	if r.FinalizedAt.Valid {
		at := r.FinalizedAt.Time
		invoice.FinalizedAt = &at
	}
	return invoice
}

func (s *Store) CreateInvoice(ctx context.Context, invoice domain.Invoice) (*domain.Invoice, error) {
	if len(invoice.Items) == 0 || (invoice.Type != domain.InvoiceTypePurchase && invoice.Type != domain.InvoiceTypeSale) {
		return nil, store.ErrInvalidInput
	}
	if invoice.ID == "" {
		invoice.ID = xid.New("inv")
	}
	if invoice.CreatedAt.IsZero() {
		invoice.CreatedAt = time.Now().UTC()
	}
	invoice.Finalized = false
	invoice.FinalizedAt = nil

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO invoices (`+invoiceColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,false,NULL,$10)
	`, invoice.ID, invoice.DealerID, invoice.Type, invoice.CounterpartyName, invoice.Notes,
		invoice.SubtotalCents, invoice.TaxRatePercent, invoice.TaxCents, invoice.TotalCents, invoice.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	for i, item := range invoice.Items {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO invoice_items (invoice_id, line_no, sku, name, qty, unit_price_cents, total_cents)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
		`, invoice.ID, i+1, item.SKU, item.Name, item.Qty, item.UnitPriceCents, item.TotalCents)
		if err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	created := invoice
	return &created, nil
}

func (s *Store) GetInvoice(ctx context.Context, id string) (*domain.Invoice, error) {
	return s.findInvoice(ctx, s.db, id, false)
}

func (s *Store) findInvoice(ctx context.Context, q sqlx.QueryerContext, id string, forUpdate bool) (*domain.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	var row invoiceRow
	if err := sqlx.GetContext(ctx, q, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	invoice := row.toDomain()

	var items []struct {
		SKU            string `db:"sku"`
		Name           string `db:"name"`
		Qty            int    `db:"qty"`
		UnitPriceCents int64  `db:"unit_price_cents"`
		TotalCents     int64  `db:"total_cents"`
	}
	err := sqlx.SelectContext(ctx, q, &items, `
		SELECT sku, name, qty, unit_price_cents, total_cents
		FROM invoice_items WHERE invoice_id = $1 ORDER BY line_no
	`, id)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		invoice.Items = append(invoice.Items, domain.InvoiceLine{
			SKU:            item.SKU,
			Name:           item.Name,
			Qty:            item.Qty,
			UnitPriceCents: item.UnitPriceCents,
			TotalCents:     item.TotalCents,
		})
	}
	return &invoice, nil
}

func (s *Store) ListInvoices(ctx context.Context, dealerID string, limit int) ([]domain.Invoice, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []invoiceRow
	query := `SELECT ` + invoiceColumns + ` FROM invoices`
	args := []any{}
	if dealerID != "" {
		query += ` WHERE dealer_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2`
		args = append(args, dealerID, limit)
	} else {
		query += ` ORDER BY created_at DESC, id DESC LIMIT $1`
		args = append(args, limit)
	}
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	invoices := make([]domain.Invoice, 0, len(rows))
	for _, row := range rows {
		invoices = append(invoices, row.toDomain())
	}
	return invoices, nil
}

func (s *Store) DeleteDraftInvoice(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM invoices WHERE id = $1 AND finalized = false`, id)
	if err != nil {
		return err
	}
	if err := expectAffected(res); err != nil {
		if _, getErr := s.GetInvoice(ctx, id); errors.Is(getErr, store.ErrNotFound) {
			return store.ErrNotFound
		}
		return store.ErrConflict
	}
	return nil
}

func (s *Store) FinalizeInvoice(ctx context.Context, id string, at time.Time) (*domain.Invoice, error) {
	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	invoice, err := s.findInvoice(ctx, tx, id, true)
	if err != nil {
		return nil, err
	}
	if invoice.Finalized {
		return nil, store.ErrConflict
	}

	for _, item := range invoice.Items {
		switch invoice.Type {
		case domain.InvoiceTypePurchase:
			res, err := tx.ExecContext(ctx, `
				UPDATE products SET stock = stock - $2, updated_at = now()
				WHERE sku = $1 AND stock >= $2
			`, item.SKU, item.Qty)
			if err != nil {
				return nil, err
			}
			if err := expectAffected(res); err != nil {
				return nil, fmt.Errorf("sku %s: %w", item.SKU, store.ErrInsufficientStock)
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO dealer_inventory (dealer_id, sku, qty, updated_at) VALUES ($1,$2,$3,now())
				ON CONFLICT (dealer_id, sku) DO UPDATE SET qty = dealer_inventory.qty + EXCLUDED.qty, updated_at = now()
			`, invoice.DealerID, item.SKU, item.Qty); err != nil {
				return nil, err
			}
		case domain.InvoiceTypeSale:
			res, err := tx.ExecContext(ctx, `
				UPDATE dealer_inventory SET qty = qty - $3, updated_at = now()
				WHERE dealer_id = $1 AND sku = $2 AND qty >= $3
			`, invoice.DealerID, item.SKU, item.Qty)
			if err != nil {
				return nil, err
			}
			if err := expectAffected(res); err != nil {
				return nil, fmt.Errorf("sku %s: %w", item.SKU, store.ErrInsufficientStock)
			}
		}
	}

	if _, err := tx.ExecContext(ctx, `UPDATE invoices SET finalized = true, finalized_at = $2 WHERE id = $1`, id, at); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	finalizedAt := at
	invoice.Finalized = true
	invoice.FinalizedAt = &finalizedAt
	return invoice, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	username := strings.ToLower(strings.TrimSpace(user.Username))
	if username == "" || strings.TrimSpace(user.Password) == "" {
		return store.ErrInvalidInput
	}
	if user.Role == "" {
		user.Role = domain.RoleStaff
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, password, role, active, created_at)
		VALUES ($1,$2,$3,true,now())
	`, username, user.Password, user.Role)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrConflict
		}
		return err
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	users := make([]domain.UserAccount, 0, 16)
	if err := s.db.SelectContext(ctx, &users, `SELECT username, password, role, active, created_at FROM users ORDER BY username`); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return store.ErrInvalidInput
	}
	res, err := s.db.ExecContext(ctx, `UPDATE users SET password = $2 WHERE username = $1`, username, password)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

func (s *Store) CreateAuditLog(ctx context.Context, entry domain.AuditLog) error {
	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO audit_logs (id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at)
		VALUES (:id, :actor_username, :actor_role, :action, :entity_type, :entity_id, :detail, :created_at)
	`, entry)
	return err
}

func (s *Store) ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	if limit <= 0 {
		limit = 200
	}
	logs := make([]domain.AuditLog, 0, 64)
	err := s.db.SelectContext(ctx, &logs, `
		SELECT id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at
		FROM audit_logs
		WHERE created_at >= $1 AND created_at < $2
		ORDER BY created_at DESC, id DESC
		LIMIT $3
	`, from, to, limit)
	if err != nil {
		return nil, err
	}
	return logs, nil
}

func (s *Store) GetSalesReport(ctx context.Context, from time.Time, to time.Time) (domain.SalesReport, error) {
	report := domain.SalesReport{
		ByPayment: []domain.SalesReportPayment{},
		ByStatus:  []domain.SalesReportStatus{},
	}

	var totals struct {
		Orders         int64 `db:"orders"`
		Gross          int64 `db:"gross"`
		Discount       int64 `db:"discount"`
		Net            int64 `db:"net"`
		QuotationCents int64 `db:"quotation_cents"`
	}
	err := s.db.GetContext(ctx, &totals, `
		SELECT COUNT(*) AS orders,
			COALESCE(SUM(subtotal_cents), 0) AS gross,
			COALESCE(SUM(discount_cents), 0) AS discount,
			COALESCE(SUM(total_cents), 0) AS net,
			COALESCE(SUM(quotation_cents), 0) AS quotation_cents
		FROM orders
		WHERE created_at >= $1 AND created_at < $2 AND status <> $3
	`, from, to, domain.OrderStatusCancelled)
	if err != nil {
		return domain.SalesReport{}, err
	}
	report.Orders = totals.Orders
	report.GrossSalesCents = totals.Gross
	report.DiscountCents = totals.Discount
	report.NetSalesCents = totals.Net
	report.QuotationCents = totals.QuotationCents

	err = s.db.SelectContext(ctx, &report.ByPayment, `
		SELECT payment_method, COUNT(*) AS orders, COALESCE(SUM(total_cents), 0) AS total_cents
		FROM orders
		WHERE created_at >= $1 AND created_at < $2 AND status <> $3
		GROUP BY payment_method
		ORDER BY payment_method
	`, from, to, domain.OrderStatusCancelled)
	if err != nil {
		return domain.SalesReport{}, err
	}

	err = s.db.SelectContext(ctx, &report.ByStatus, `
		SELECT status, COUNT(*) AS orders
		FROM orders
		WHERE created_at >= $1 AND created_at < $2
		GROUP BY status
		ORDER BY status
	`, from, to)
	if err != nil {
		return domain.SalesReport{}, err
	}
	return report, nil
}

func expectAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func nullableJSON(value any, empty bool) (any, error) {
	if empty {
		return nil, nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	return string(payload), nil
}

func uniqueSKUs(items []domain.OrderItem) []string {
	set := make(map[string]struct{}, len(items))
	for _, item := range items {
		if item.SKU == "" {
			continue
		}
		set[item.SKU] = struct{}{}
	}

	skus := make([]string, 0, len(set))
	for sku := range set {
		skus = append(skus, sku)
	}
	sort.Strings(skus)
	return skus
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
