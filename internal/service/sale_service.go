package service

import (
	"context"
	"fmt"
	"time"

	"tillsync/internal/dto"
	"tillsync/internal/model"
	"tillsync/internal/repository"
	"tillsync/internal/worker"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SaleService records sales locally and queues them for the backend. Ticket
// numbers come from a local sequence so receipts print while offline.
type SaleService interface {
	RecordSale(ctx context.Context, req dto.RecordSaleRequest) (*dto.SaleResponse, error)
	GetSale(ctx context.Context, id uuid.UUID) (*dto.SaleResponse, error)
}

type saleService struct {
	repo       repository.SaleRepository
	cash       CashService
	dispatcher *worker.Dispatcher
}

func NewSaleService(repo repository.SaleRepository, cash CashService, dispatcher *worker.Dispatcher) SaleService {
	return &saleService{repo: repo, cash: cash, dispatcher: dispatcher}
}

// RecordSale validates, persists and enqueues one sale:
//  1. the session must be open
//  2. line totals and the sale total are computed here, in decimal
//  3. payments must cover the total
//  4. sale rows and the queue entry commit in one transaction
func (s *saleService) RecordSale(ctx context.Context, req dto.RecordSaleRequest) (*dto.SaleResponse, error) {
	sessionID, err := uuid.Parse(req.SessionID)
	if err != nil {
		return nil, fmt.Errorf("invalid session_id: %w", err)
	}
	session, err := s.cash.RequireOpenSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	saleID := uuid.New()
	total := decimal.Zero
	lines := make([]model.SaleLine, 0, len(req.Lines))
	payloadLines := make([]dto.SalePayloadLine, 0, len(req.Lines))
	for _, l := range req.Lines {
		if !l.Quantity.IsPositive() || l.UnitPrice.IsNegative() {
			return nil, ErrInvalidAmount
		}
		lineTotal := l.Quantity.Mul(l.UnitPrice)
		total = total.Add(lineTotal)
		lines = append(lines, model.SaleLine{
			ID:        uuid.New(),
			SaleID:    saleID,
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			LineTotal: lineTotal,
		})
		payloadLines = append(payloadLines, dto.SalePayloadLine{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			LineTotal: lineTotal,
		})
	}

	paid := decimal.Zero
	payments := make([]model.SalePayment, 0, len(req.Payments))
	payloadPayments := make([]dto.SalePayloadPayment, 0, len(req.Payments))
	for _, p := range req.Payments {
		if !p.Amount.IsPositive() {
			return nil, ErrInvalidAmount
		}
		paid = paid.Add(p.Amount)
		payments = append(payments, model.SalePayment{
			ID:     uuid.New(),
			SaleID: saleID,
			Method: p.Method,
			Amount: p.Amount,
		})
		payloadPayments = append(payloadPayments, dto.SalePayloadPayment{
			Method: p.Method,
			Amount: p.Amount,
		})
	}
	if paid.LessThan(total) {
		return nil, ErrInsufficientPayment
	}

	sale := &model.Sale{
		ID:         saleID,
		SessionID:  session.ID,
		CustomerID: req.CustomerID,
		Total:      total,
		CreatedAt:  time.Now(),
		Lines:      lines,
		Payments:   payments,
	}

	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		ticket, err := s.repo.NextTicketNumber(ctx, tx)
		if err != nil {
			return err
		}
		sale.TicketNumber = ticket

		if err := s.repo.CreateTx(tx, sale); err != nil {
			return err
		}
		_, err = s.dispatcher.Enqueue(ctx, tx, model.EntitySale, model.OpCreate, dto.SalePayload{
			SaleID:       sale.ID,
			SessionID:    sale.SessionID,
			TicketNumber: sale.TicketNumber,
			CustomerID:   sale.CustomerID,
			Total:        sale.Total,
			Lines:        payloadLines,
			Payments:     payloadPayments,
			CreatedAt:    sale.CreatedAt,
		})
		return err
	})
	if txErr != nil {
		return nil, txErr
	}

	return saleResponse(sale), nil
}

func (s *saleService) GetSale(ctx context.Context, id uuid.UUID) (*dto.SaleResponse, error) {
	sale, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return saleResponse(sale), nil
}

func saleResponse(sale *model.Sale) *dto.SaleResponse {
	return &dto.SaleResponse{
		SaleID:       sale.ID.String(),
		TicketNumber: sale.TicketNumber,
		Total:        sale.Total,
		CreatedAt:    sale.CreatedAt.Format(time.RFC3339),
	}
}
