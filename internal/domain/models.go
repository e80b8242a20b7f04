package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	SKU              string `json:"sku" db:"sku"`
	Name             string `json:"name" db:"name"`
	Category         string `json:"category" db:"category"`
	Brand            string `json:"brand" db:"brand"`
	Description      string `json:"description,omitempty" db:"description"`
	PriceCents       int64  `json:"price_cents" db:"price_cents"`
	DealerPriceCents int64  `json:"dealer_price_cents" db:"dealer_price_cents"`
	Stock            int    `json:"stock" db:"stock"`
	Active           bool   `json:"active" db:"active"`
}

type ProductFilter struct {
	Category string
	Brand    string
	Search   string
}

type ProductCreateRequest struct {
	SKU              string `json:"sku"`
	Name             string `json:"name"`
	Category         string `json:"category"`
	Brand            string `json:"brand"`
	Description      string `json:"description"`
	PriceCents       int64  `json:"price_cents"`
	DealerPriceCents int64  `json:"dealer_price_cents"`
	InitialStock     int    `json:"initial_stock"`
}

type ProductUpdateRequest struct {
	Name             *string `json:"name,omitempty"`
	Category         *string `json:"category,omitempty"`
	Brand            *string `json:"brand,omitempty"`
	Description      *string `json:"description,omitempty"`
	PriceCents       *int64  `json:"price_cents,omitempty"`
	DealerPriceCents *int64  `json:"dealer_price_cents,omitempty"`
	Stock            *int    `json:"stock,omitempty"`
	Active           *bool   `json:"active,omitempty"`
}

type ProductPriceHistory struct {
	ID            string    `json:"id" db:"id"`
	SKU           string    `json:"sku" db:"sku"`
	OldPriceCents int64     `json:"old_price_cents" db:"old_price_cents"`
	NewPriceCents int64     `json:"new_price_cents" db:"new_price_cents"`
	ChangedBy     string    `json:"changed_by" db:"changed_by"`
	ChangedAt     time.Time `json:"changed_at" db:"changed_at"`
}

// PriceOption is one row of a price-table category as served by the
// price-table endpoint. Exactly one of Name, Capacity or ChannelCount names
// the option; any of the price fields may be absent.
type PriceOption struct {
	Name         string              `json:"name,omitempty"`
	Capacity     string              `json:"capacity,omitempty"`
	ChannelCount Label               `json:"channel_count,omitempty"`
	Price        decimal.NullDecimal `json:"price"`
	HDPrice      decimal.NullDecimal `json:"hd_price"`
	IPPrice      decimal.NullDecimal `json:"ip_price"`
}

// PriceTableDocument is the wire shape of the quotation price tables.
type PriceTableDocument struct {
	CameraTypes []PriceOption `json:"camera_types"`
	Brands      []PriceOption `json:"brands"`
	Channels    []PriceOption `json:"channels"`
	Pixels      []PriceOption `json:"pixels"`
	TechTypes   []PriceOption `json:"tech_types"`
	Storage     []PriceOption `json:"storage"`
	Cables      []PriceOption `json:"cables"`
	Accessories []PriceOption `json:"accessories"`
}

const (
	OptionCameraType = "camera_type"
	OptionBrand      = "brand"
	OptionChannel    = "channel"
	OptionPixel      = "pixel"
	OptionTechType   = "tech_type"
	OptionStorage    = "storage"
	OptionCable      = "cable"
	OptionAccessory  = "accessory"
)

var OptionCategories = []string{
	OptionCameraType,
	OptionBrand,
	OptionChannel,
	OptionPixel,
	OptionTechType,
	OptionStorage,
	OptionCable,
	OptionAccessory,
}

// QuotationOption is the admin-managed persistence row behind one PriceOption.
type QuotationOption struct {
	ID        string              `json:"id" db:"id"`
	Category  string              `json:"category" db:"category"`
	Name      string              `json:"name" db:"name"`
	Price     decimal.NullDecimal `json:"price" db:"price"`
	HDPrice   decimal.NullDecimal `json:"hd_price" db:"hd_price"`
	IPPrice   decimal.NullDecimal `json:"ip_price" db:"ip_price"`
	Position  int                 `json:"position" db:"position"`
	Active    bool                `json:"active" db:"active"`
	UpdatedAt time.Time           `json:"updated_at" db:"updated_at"`
}

type QuotationOptionRequest struct {
	Category string              `json:"category"`
	Name     string              `json:"name"`
	Price    decimal.NullDecimal `json:"price"`
	HDPrice  decimal.NullDecimal `json:"hd_price"`
	IPPrice  decimal.NullDecimal `json:"ip_price"`
	Position int                 `json:"position"`
}

type QuotationOptionUpdateRequest struct {
	Name     *string              `json:"name,omitempty"`
	Price    *decimal.NullDecimal `json:"price,omitempty"`
	HDPrice  *decimal.NullDecimal `json:"hd_price,omitempty"`
	IPPrice  *decimal.NullDecimal `json:"ip_price,omitempty"`
	Position *int                 `json:"position,omitempty"`
	Active   *bool                `json:"active,omitempty"`
}

// ZoneCameras maps tech type -> pixel tier -> quantity.
type ZoneCameras map[string]map[string]int

// QuotationRequest is the client-submitted kit configuration.
type QuotationRequest struct {
	CameraType     string      `json:"camera_type"`
	Brand          string      `json:"brand"`
	Channel        string      `json:"channel"`
	DefaultPixel   string      `json:"default_pixel,omitempty"`
	Storage        string      `json:"storage,omitempty"`
	Cable          string      `json:"cable,omitempty"`
	CableRolls     int         `json:"cable_rolls,omitempty"`
	Accessories    bool        `json:"accessories"`
	Installation   bool        `json:"installation"`
	IndoorCameras  ZoneCameras `json:"indoor_cameras,omitempty"`
	OutdoorCameras ZoneCameras `json:"outdoor_cameras,omitempty"`
	Strict         bool        `json:"strict,omitempty"`
}

type QuoteTerm struct {
	Name   string `json:"name"`
	Amount string `json:"amount"`
}

type BOMLine struct {
	Model       string `json:"model"`
	Qty         int    `json:"qty"`
	Description string `json:"description"`
	UnitPrice   int64  `json:"unit_price"`
	TotalPrice  int64  `json:"total_price"`
}

type QuoteResponse struct {
	Total        int64       `json:"total"`
	TotalCameras int         `json:"total_cameras"`
	Terms        []QuoteTerm `json:"terms"`
	Missing      []string    `json:"missing,omitempty"`
	BOM          []BOMLine   `json:"bom"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	Username string
	Role     string
}

const (
	RoleAdmin  = "admin"
	RoleStaff  = "staff"
	RoleDealer = "dealer"
)

type CartItem struct {
	SKU string `json:"sku"`
	Qty int    `json:"qty"`
}

type OrderRequest struct {
	IdempotencyKey string            `json:"idempotency_key"`
	CustomerName   string            `json:"customer_name"`
	Phone          string            `json:"phone"`
	Email          string            `json:"email,omitempty"`
	Address        string            `json:"address"`
	City           string            `json:"city"`
	Notes          string            `json:"notes,omitempty"`
	PaymentMethod  string            `json:"payment_method"`
	CartItems      []CartItem        `json:"cart_items,omitempty"`
	Quotation      *QuotationRequest `json:"quotation,omitempty"`
}

type OrderItem struct {
	SKU            string `json:"sku"`
	Name           string `json:"name"`
	Qty            int    `json:"qty"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	TotalCents     int64  `json:"total_cents"`
}

type Order struct {
	ID               string            `json:"id"`
	IdempotencyKey   string            `json:"-"`
	CustomerName     string            `json:"customer_name"`
	Phone            string            `json:"phone"`
	Email            string            `json:"email,omitempty"`
	Address          string            `json:"address"`
	City             string            `json:"city"`
	Notes            string            `json:"notes,omitempty"`
	PaymentMethod    string            `json:"payment_method"`
	PaymentStatus    string            `json:"payment_status"`
	PaymentReference string            `json:"payment_reference,omitempty"`
	Status           string            `json:"status"`
	SubtotalCents    int64             `json:"subtotal_cents"`
	DiscountCents    int64             `json:"discount_cents"`
	TotalCents       int64             `json:"total_cents"`
	Items            []OrderItem       `json:"items"`
	Quotation        *QuotationRequest `json:"quotation,omitempty"`
	QuotationBOM     []BOMLine         `json:"quotation_bom,omitempty"`
	QuotationCents   int64             `json:"quotation_cents"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

type OrderResponse struct {
	Order     Order `json:"order"`
	Duplicate bool  `json:"duplicate"`
}

type OrderStatusRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

type PaymentConfirmRequest struct {
	PaymentReference string `json:"payment_reference"`
}

type OrderListResponse struct {
	Orders []Order `json:"orders"`
}

const (
	PaymentMethodCOD    = "cod"
	PaymentMethodOnline = "online"
)

const (
	PaymentStatusUnpaid = "unpaid"
	PaymentStatusPaid   = "paid"
)

const (
	OrderStatusAwaitingPayment = "awaiting_payment"
	OrderStatusPending         = "pending"
	OrderStatusConfirmed       = "confirmed"
	OrderStatusShipped         = "shipped"
	OrderStatusDelivered       = "delivered"
	OrderStatusCancelled       = "cancelled"
)

type Dealer struct {
	ID           string    `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	BusinessName string    `json:"business_name" db:"business_name"`
	Phone        string    `json:"phone" db:"phone"`
	Address      string    `json:"address,omitempty" db:"address"`
	Active       bool      `json:"active" db:"active"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

type DealerCreateRequest struct {
	Username     string `json:"username"`
	Password     string `json:"password"`
	BusinessName string `json:"business_name"`
	Phone        string `json:"phone"`
	Address      string `json:"address"`
}

type DealerStock struct {
	SKU  string `json:"sku" db:"sku"`
	Name string `json:"name" db:"name"`
	Qty  int    `json:"qty" db:"qty"`
}

type DealerInventoryResponse struct {
	DealerID string        `json:"dealer_id"`
	Items    []DealerStock `json:"items"`
}

type InvoiceLine struct {
	SKU            string `json:"sku"`
	Name           string `json:"name,omitempty"`
	Qty            int    `json:"qty"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	TotalCents     int64  `json:"total_cents"`
}

type Invoice struct {
	ID               string        `json:"id"`
	DealerID         string        `json:"dealer_id"`
	Type             string        `json:"type"`
	CounterpartyName string        `json:"counterparty_name"`
	Notes            string        `json:"notes,omitempty"`
	SubtotalCents    int64         `json:"subtotal_cents"`
	TaxRatePercent   float64       `json:"tax_rate_percent"`
	TaxCents         int64         `json:"tax_cents"`
	TotalCents       int64         `json:"total_cents"`
	Finalized        bool          `json:"finalized"`
	FinalizedAt      *time.Time    `json:"finalized_at,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
	Items            []InvoiceLine `json:"items"`
}

type InvoiceCreateRequest struct {
	Type             string        `json:"type"`
	CounterpartyName string        `json:"counterparty_name"`
	Notes            string        `json:"notes"`
	TaxRatePercent   float64       `json:"tax_rate_percent"`
	Items            []InvoiceLine `json:"items"`
}

type InvoiceResponse struct {
	Invoice Invoice `json:"invoice"`
}

type InvoiceListResponse struct {
	Invoices []Invoice `json:"invoices"`
}

const (
	InvoiceTypePurchase = "purchase"
	InvoiceTypeSale     = "sale"
)

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	Username  string    `db:"username"`
	Password  string    `db:"password"`
	Role      string    `db:"role"`
	Active    bool      `db:"active"`
	CreatedAt time.Time `db:"created_at"`
}

type StaffCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type StaffUser struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

type SalesReportPayment struct {
	PaymentMethod string `json:"payment_method" db:"payment_method"`
	Orders        int64  `json:"orders" db:"orders"`
	TotalCents    int64  `json:"total_cents" db:"total_cents"`
}

type SalesReportStatus struct {
	Status string `json:"status" db:"status"`
	Orders int64  `json:"orders" db:"orders"`
}

type SalesReport struct {
	Date            string               `json:"date"`
	Orders          int64                `json:"orders"`
	GrossSalesCents int64                `json:"gross_sales_cents"`
	DiscountCents   int64                `json:"discount_cents"`
	NetSalesCents   int64                `json:"net_sales_cents"`
	QuotationCents  int64                `json:"quotation_cents"`
	ByPayment       []SalesReportPayment `json:"by_payment"`
	ByStatus        []SalesReportStatus  `json:"by_status"`
}

type AuditLog struct {
	ID            string    `json:"id" db:"id"`
	ActorUsername string    `json:"actor_username" db:"actor_username"`
	ActorRole     string    `json:"actor_role" db:"actor_role"`
	Action        string    `json:"action" db:"action"`
	EntityType    string    `json:"entity_type" db:"entity_type"`
	EntityID      string    `json:"entity_id" db:"entity_id"`
	Detail        string    `json:"detail" db:"detail"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

type PricingRule struct {
	ID                string    `json:"id" db:"id"`
	Name              string    `json:"name" db:"name"`
	Type              string    `json:"type" db:"type"`
	MinSubtotalCents  int64     `json:"min_subtotal_cents" db:"min_subtotal_cents"`
	DiscountPercent   float64   `json:"discount_percent" db:"discount_percent"`
	FlatDiscountCents int64     `json:"flat_discount_cents" db:"flat_discount_cents"`
	Active            bool      `json:"active" db:"active"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
}

type PricingRuleCreateRequest struct {
	Name              string  `json:"name"`
	Type              string  `json:"type"`
	MinSubtotalCents  int64   `json:"min_subtotal_cents"`
	DiscountPercent   float64 `json:"discount_percent"`
	FlatDiscountCents int64   `json:"flat_discount_cents"`
}

type PricingRuleToggleRequest struct {
	Active bool `json:"active"`
}

const (
	PricingRuleCartPercent = "cart_percent"
	PricingRuleFlatCart    = "flat_cart"
)
