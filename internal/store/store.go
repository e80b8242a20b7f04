package store

import (
	"context"
	"errors"
	"time"

	"cctvstore/backend/internal/domain"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidInput      = errors.New("invalid input")
	ErrConflict          = errors.New("conflict")
)

type Repository interface {
	ListProducts(ctx context.Context, filter domain.ProductFilter, includeInactive bool) ([]domain.Product, error)
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	GetProductBySKU(ctx context.Context, sku string) (*domain.Product, error)
	GetProductsBySKUs(ctx context.Context, skus []string) (map[string]domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	CreatePriceHistory(ctx context.Context, entry domain.ProductPriceHistory) error
	ListPriceHistory(ctx context.Context, sku string, limit int) ([]domain.ProductPriceHistory, error)

	ListQuotationOptions(ctx context.Context, includeInactive bool) ([]domain.QuotationOption, error)
	GetQuotationOption(ctx context.Context, id string) (*domain.QuotationOption, error)
	CreateQuotationOption(ctx context.Context, option domain.QuotationOption) (*domain.QuotationOption, error)
	UpdateQuotationOption(ctx context.Context, option domain.QuotationOption) (*domain.QuotationOption, error)
	DeleteQuotationOption(ctx context.Context, id string) error

	CreatePricingRule(ctx context.Context, rule domain.PricingRule) (*domain.PricingRule, error)
	ListPricingRules(ctx context.Context) ([]domain.PricingRule, error)
	UpdatePricingRuleActive(ctx context.Context, ruleID string, active bool) (*domain.PricingRule, error)

	FindOrderByIdempotency(ctx context.Context, key string) (*domain.Order, error)
	GetOrder(ctx context.Context, id string) (*domain.Order, error)
	// CreateOrder stores the order and debits catalog stock for its items in
	// one step. A repeated idempotency key returns the stored order.
	CreateOrder(ctx context.Context, order domain.Order) (*domain.Order, error)
	ListOrders(ctx context.Context, status string, limit int) ([]domain.Order, error)
	// UpdateOrderStatus moves an order from one status to another and fails
	// with ErrConflict when the order is no longer in the expected status.
	// Moving to cancelled puts the catalog items back in stock.
	UpdateOrderStatus(ctx context.Context, id string, from string, to string, at time.Time) (*domain.Order, error)
	ConfirmOrderPayment(ctx context.Context, id string, reference string, at time.Time) (*domain.Order, error)

	CreateDealer(ctx context.Context, dealer domain.Dealer, account domain.UserAccount) (*domain.Dealer, error)
	ListDealers(ctx context.Context) ([]domain.Dealer, error)
	GetDealerByUsername(ctx context.Context, username string) (*domain.Dealer, error)
	GetDealerInventory(ctx context.Context, dealerID string) ([]domain.DealerStock, error)

	CreateInvoice(ctx context.Context, invoice domain.Invoice) (*domain.Invoice, error)
	GetInvoice(ctx context.Context, id string) (*domain.Invoice, error)
	ListInvoices(ctx context.Context, dealerID string, limit int) ([]domain.Invoice, error)
	DeleteDraftInvoice(ctx context.Context, id string) error
	// FinalizeInvoice applies the stock movement of an invoice exactly once.
	FinalizeInvoice(ctx context.Context, id string, at time.Time) (*domain.Invoice, error)

	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error

	CreateAuditLog(ctx context.Context, entry domain.AuditLog) error
	ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error)
	GetSalesReport(ctx context.Context, from time.Time, to time.Time) (domain.SalesReport, error)
}
