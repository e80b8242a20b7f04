package postgres

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cctvstore/backend/internal/domain"
	"cctvstore/backend/internal/store"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewWithDB(sqlx.NewDb(db, "pgx")), mock
}

var productRowColumns = []string{"sku", "name", "category", "brand", "description", "price_cents", "dealer_price_cents", "stock", "active"}

func TestGetProductBySKU(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT sku, name, category .* FROM products WHERE sku = \$1`).
		WithArgs("HDD-WD-1TB").
		WillReturnRows(sqlmock.NewRows(productRowColumns).
			AddRow("HDD-WD-1TB", "WD Purple 1TB", "storage", "WD", "", int64(250000), int64(210000), 12, true))

	product, err := s.GetProductBySKU(context.Background(), "HDD-WD-1TB")
	require.NoError(t, err)
	assert.Equal(t, "WD Purple 1TB", product.Name)
	assert.Equal(t, 12, product.Stock)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetProductBySKUNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`FROM products WHERE sku = \$1`).
		WithArgs("NOPE").
		WillReturnRows(sqlmock.NewRows(productRowColumns))

	_, err := s.GetProductBySKU(context.Background(), "NOPE")
	require.ErrorIs(t, err, store.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetProductsBySKUsExpandsInClause(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`AND sku IN ($1, $2)`)).
		WithArgs("A", "B").
		WillReturnRows(sqlmock.NewRows(productRowColumns).
			AddRow("A", "Cam A", "camera", "X", "", int64(100), int64(90), 1, true))

	products, err := s.GetProductsBySKUs(context.Background(), []string{"A", "B"})
	require.NoError(t, err)
	assert.Len(t, products, 1)
	assert.Contains(t, products, "A")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateProductMapsUniqueViolationToConflict(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`INSERT INTO products`).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	_, err := s.CreateProduct(context.Background(), domain.Product{SKU: "A", Name: "Cam", Category: "camera", PriceCents: 100})
	require.ErrorIs(t, err, store.ErrConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateProductRejectsInvalidInputWithoutQuery(t *testing.T) {
	s, mock := newMockStore(t)

	_, err := s.CreateProduct(context.Background(), domain.Product{SKU: "A", Name: "Cam", Category: "camera"})
	require.ErrorIs(t, err, store.ErrInvalidInput)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListQuotationOptionsScansNullablePrices(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`FROM quotation_options WHERE active = true ORDER BY category, position, name`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "category", "name", "price", "hd_price", "ip_price", "position", "active", "updated_at"}).
			AddRow("qopt-1", domain.OptionBrand, "Hikvision", nil, "200.00", "350.00", 0, true, now).
			AddRow("qopt-2", domain.OptionPixel, "2MP", "50.00", nil, nil, 0, true, now))

	options, err := s.ListQuotationOptions(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, options, 2)
	assert.False(t, options[0].Price.Valid)
	assert.True(t, options[0].HDPrice.Decimal.Equal(decimal.NewFromInt(200)))
	assert.True(t, options[1].Price.Decimal.Equal(decimal.NewFromInt(50)))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteQuotationOptionNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM quotation_options WHERE id = $1`)).
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.ErrorIs(t, s.DeleteQuotationOption(context.Background(), "missing"), store.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func orderRows() *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{
		"id", "idempotency_key", "customer_name", "phone", "email", "address", "city", "notes",
		"payment_method", "payment_status", "payment_reference", "status",
		"subtotal_cents", "discount_cents", "total_cents", "quotation", "quotation_bom", "quotation_cents",
		"created_at", "updated_at",
	}).AddRow(
		"ord-1", "idem-1", "Budi", "0812", "", "Jl. Mawar 1", "Bandung", "",
		domain.PaymentMethodCOD, domain.PaymentStatusUnpaid, "", domain.OrderStatusShipped,
		int64(100000), int64(0), int64(100000),
		[]byte(`{"camera_type":"HD","brand":"Hikvision","channel":"4","accessories":false,"installation":true}`),
		[]byte(`[{"model":"HIK-DVR-4CH","qty":1,"description":"4-channel DVR recorder","unit_price":0,"total_price":0}]`),
		int64(100000), now, now,
	)
}

func TestGetOrderDecodesQuotationColumns(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`FROM orders WHERE id = \$1`).WithArgs("ord-1").WillReturnRows(orderRows())
	mock.ExpectQuery(`FROM order_items WHERE order_id = \$1`).WithArgs("ord-1").
		WillReturnRows(sqlmock.NewRows([]string{"order_id", "line_no", "sku", "name", "qty", "unit_price_cents", "total_cents"}))

	order, err := s.GetOrder(context.Background(), "ord-1")
	require.NoError(t, err)
	require.NotNil(t, order.Quotation)
	assert.Equal(t, "Hikvision", order.Quotation.Brand)
	assert.True(t, order.Quotation.Installation)
	require.Len(t, order.QuotationBOM, 1)
	assert.Equal(t, "HIK-DVR-4CH", order.QuotationBOM[0].Model)
	assert.Empty(t, order.Items)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateOrderStatusReportsConflictWhenStatusMoved(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE orders SET status = \$3`).
		WithArgs("ord-1", domain.OrderStatusPending, domain.OrderStatusConfirmed, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`FROM orders WHERE id = \$1`).WithArgs("ord-1").WillReturnRows(orderRows())
	mock.ExpectQuery(`FROM order_items WHERE order_id = \$1`).WithArgs("ord-1").
		WillReturnRows(sqlmock.NewRows([]string{"order_id", "line_no", "sku", "name", "qty", "unit_price_cents", "total_cents"}))
	mock.ExpectRollback()

	_, err := s.UpdateOrderStatus(context.Background(), "ord-1", domain.OrderStatusPending, domain.OrderStatusConfirmed, time.Now())
	require.ErrorIs(t, err, store.ErrConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteDraftInvoiceRefusesFinalized(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectExec(`DELETE FROM invoices WHERE id = \$1 AND finalized = false`).
		WithArgs("inv-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`FROM invoices WHERE id = \$1`).WithArgs("inv-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "dealer_id", "type", "counterparty_name", "notes", "subtotal_cents",
			"tax_rate_percent", "tax_cents", "total_cents", "finalized", "finalized_at", "created_at",
		}).AddRow("inv-1", "dealer-demo", domain.InvoiceTypeSale, "Toko", "", int64(1000), 11.0, int64(110), int64(1110), true, now, now))
	mock.ExpectQuery(`FROM invoice_items WHERE invoice_id = \$1`).WithArgs("inv-1").
		WillReturnRows(sqlmock.NewRows([]string{"sku", "name", "qty", "unit_price_cents", "total_cents"}))

	require.ErrorIs(t, s.DeleteDraftInvoice(context.Background(), "inv-1"), store.ErrConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSalesReportAggregates(t *testing.T) {
	s, mock := newMockStore(t)
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)

	mock.ExpectQuery(`SELECT COUNT\(\*\) AS orders`).
		WithArgs(from, to, domain.OrderStatusCancelled).
		WillReturnRows(sqlmock.NewRows([]string{"orders", "gross", "discount", "net", "quotation_cents"}).
			AddRow(int64(3), int64(900), int64(100), int64(800), int64(500)))
	mock.ExpectQuery(`GROUP BY payment_method`).
		WillReturnRows(sqlmock.NewRows([]string{"payment_method", "orders", "total_cents"}).
			AddRow(domain.PaymentMethodCOD, int64(3), int64(800)))
	mock.ExpectQuery(`GROUP BY status`).
		WillReturnRows(sqlmock.NewRows([]string{"status", "orders"}).
			AddRow(domain.OrderStatusPending, int64(3)).
			AddRow(domain.OrderStatusCancelled, int64(1)))

	report, err := s.GetSalesReport(context.Background(), from, to)
	require.NoError(t, err)
	assert.Equal(t, int64(3), report.Orders)
	assert.Equal(t, int64(800), report.NetSalesCents)
	assert.Equal(t, int64(500), report.QuotationCents)
	assert.Len(t, report.ByPayment, 1)
	assert.Len(t, report.ByStatus, 2)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFinalizeInvoiceDebitsRepeatedSKULinesInTurn(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM invoices WHERE id = \$1 FOR UPDATE`).WithArgs("inv-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "dealer_id", "type", "counterparty_name", "notes", "subtotal_cents",
			"tax_rate_percent", "tax_cents", "total_cents", "finalized", "finalized_at", "created_at",
		}).AddRow("inv-1", "dealer-demo", domain.InvoiceTypeSale, "Toko", "", int64(420000), 0.0, int64(0), int64(420000), false, nil, now))
	mock.ExpectQuery(`FROM invoice_items WHERE invoice_id = \$1`).WithArgs("inv-1").
		WillReturnRows(sqlmock.NewRows([]string{"sku", "name", "qty", "unit_price_cents", "total_cents"}).
			AddRow("CAM-HIK-2MP-DOME", "Dome", 3, int64(70000), int64(210000)).
			AddRow("CAM-HIK-2MP-DOME", "Dome", 3, int64(70000), int64(210000)))
	mock.ExpectExec(`UPDATE dealer_inventory SET qty = qty - \$3`).
		WithArgs("dealer-demo", "CAM-HIK-2MP-DOME", 3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE dealer_inventory SET qty = qty - \$3`).
		WithArgs("dealer-demo", "CAM-HIK-2MP-DOME", 3).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := s.FinalizeInvoice(context.Background(), "inv-1", now)
	require.ErrorIs(t, err, store.ErrInsufficientStock)
	require.NoError(t, mock.ExpectationsWereMet())
}
