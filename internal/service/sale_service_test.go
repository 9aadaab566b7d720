package service

import (
	"context"
	"testing"

	"tillsync/internal/dto"
	"tillsync/internal/model"
	"tillsync/internal/worker"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type saleFixture struct {
	*cashFixture
	cash CashService
	svc  SaleService
}

func newSaleFixture() *saleFixture {
	cf := newCashFixture()
	dispatcher := worker.NewDispatcher(cf.queue, "test-terminal")
	return &saleFixture{
		cashFixture: cf,
		cash:        cf.svc,
		svc:         NewSaleService(cf.sales, cf.svc, dispatcher),
	}
}

func TestRecordSale(t *testing.T) {
	f := newSaleFixture()
	sessionID := f.openSession(t, "500.00")

	resp, err := f.svc.RecordSale(context.Background(), dto.RecordSaleRequest{
		SessionID: sessionID.String(),
		Lines: []dto.SaleLineRequest{
			{ProductID: 10, Quantity: decimal.RequireFromString("2"), UnitPrice: decimal.RequireFromString("3.50")},
			{ProductID: 11, Quantity: decimal.RequireFromString("1"), UnitPrice: decimal.RequireFromString("2.00")},
		},
		Payments: []dto.SalePaymentRequest{
			{Method: model.PayCash, Amount: decimal.RequireFromString("10.00")},
		},
	})

	require.NoError(t, err)
	assert.Equal(t, 1, resp.TicketNumber)
	assert.True(t, resp.Total.Equal(decimal.RequireFromString("9.00")), "total %s", resp.Total)

	require.Len(t, f.sales.sales, 1)
	sale := f.sales.sales[0]
	assert.Len(t, sale.Lines, 2)
	assert.True(t, sale.Lines[0].LineTotal.Equal(decimal.RequireFromString("7.00")))

	// Sale entry queued after the session open entry.
	assert.Equal(t, []string{model.EntityCashSessionOpen, model.EntitySale}, f.queueEntityTypes())
}

func TestRecordSaleTicketSequence(t *testing.T) {
	f := newSaleFixture()
	sessionID := f.openSession(t, "0.00")

	for want := 1; want <= 3; want++ {
		resp, err := f.svc.RecordSale(context.Background(), dto.RecordSaleRequest{
			SessionID: sessionID.String(),
			Lines: []dto.SaleLineRequest{
				{ProductID: 1, Quantity: decimal.NewFromInt(1), UnitPrice: decimal.RequireFromString("5.00")},
			},
			Payments: []dto.SalePaymentRequest{
				{Method: model.PayCash, Amount: decimal.RequireFromString("5.00")},
			},
		})
		require.NoError(t, err)
		assert.Equal(t, want, resp.TicketNumber)
	}
}

func TestRecordSaleInsufficientPayment(t *testing.T) {
	f := newSaleFixture()
	sessionID := f.openSession(t, "0.00")

	_, err := f.svc.RecordSale(context.Background(), dto.RecordSaleRequest{
		SessionID: sessionID.String(),
		Lines: []dto.SaleLineRequest{
			{ProductID: 1, Quantity: decimal.NewFromInt(1), UnitPrice: decimal.RequireFromString("9.99")},
		},
		Payments: []dto.SalePaymentRequest{
			{Method: model.PayCash, Amount: decimal.RequireFromString("9.98")},
		},
	})
	assert.ErrorIs(t, err, ErrInsufficientPayment)

	// Nothing persisted, nothing queued beyond the session open.
	assert.Empty(t, f.sales.sales)
	assert.Equal(t, []string{model.EntityCashSessionOpen}, f.queueEntityTypes())
}

func TestRecordSaleRequiresOpenSession(t *testing.T) {
	f := newSaleFixture()

	_, err := f.svc.RecordSale(context.Background(), dto.RecordSaleRequest{
		SessionID: uuid.NewString(),
		Lines: []dto.SaleLineRequest{
			{ProductID: 1, Quantity: decimal.NewFromInt(1), UnitPrice: decimal.RequireFromString("1.00")},
		},
		Payments: []dto.SalePaymentRequest{
			{Method: model.PayCash, Amount: decimal.RequireFromString("1.00")},
		},
	})
	assert.ErrorIs(t, err, ErrSessionNotFound)

	sessionID := f.openSession(t, "0.00")
	require.NoError(t, f.cash.SuspendSession(context.Background(), sessionID))

	_, err = f.svc.RecordSale(context.Background(), dto.RecordSaleRequest{
		SessionID: sessionID.String(),
		Lines: []dto.SaleLineRequest{
			{ProductID: 1, Quantity: decimal.NewFromInt(1), UnitPrice: decimal.RequireFromString("1.00")},
		},
		Payments: []dto.SalePaymentRequest{
			{Method: model.PayCash, Amount: decimal.RequireFromString("1.00")},
		},
	})
	assert.ErrorIs(t, err, ErrSessionNotOpen)
}

func TestRecordSaleRejectsBadLine(t *testing.T) {
	f := newSaleFixture()
	sessionID := f.openSession(t, "0.00")

	_, err := f.svc.RecordSale(context.Background(), dto.RecordSaleRequest{
		SessionID: sessionID.String(),
		Lines: []dto.SaleLineRequest{
			{ProductID: 1, Quantity: decimal.Zero, UnitPrice: decimal.RequireFromString("1.00")},
		},
		Payments: []dto.SalePaymentRequest{
			{Method: model.PayCash, Amount: decimal.RequireFromString("1.00")},
		},
	})
	assert.ErrorIs(t, err, ErrInvalidAmount)
}
