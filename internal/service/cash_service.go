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

// CashService is the drawer state machine and reconciliation arithmetic.
// Every write both persists locally and appends to the mutation queue inside
// one transaction, so a crash can never leave a session without its queue
// entry or vice versa.
type CashService interface {
	OpenSession(ctx context.Context, req dto.OpenSessionRequest) (*dto.SessionResponse, error)
	RecordMovement(ctx context.Context, req dto.MovementRequest) (*dto.MovementResponse, error)
	ComputeExpected(ctx context.Context, sessionID uuid.UUID) (decimal.Decimal, error)
	CloseSession(ctx context.Context, req dto.CloseSessionRequest) (*dto.SessionSummaryResponse, error)
	SuspendSession(ctx context.Context, sessionID uuid.UUID) error
	ResumeSession(ctx context.Context, sessionID uuid.UUID) error
	TransferSession(ctx context.Context, req dto.TransferSessionRequest) (*dto.TransferResponse, error)
	ActiveSession(ctx context.Context) (*dto.SessionResponse, error)
	SessionReport(ctx context.Context, sessionID uuid.UUID) (*dto.SessionResponse, error)
	ListSessions(ctx context.Context, page, limit int) ([]dto.SessionResponse, int64, error)
	// RequireOpenSession is used by SaleService to validate a sale's session.
	RequireOpenSession(ctx context.Context, sessionID uuid.UUID) (*model.CashSession, error)
}

type cashService struct {
	repo          repository.CashRepository
	sales         repository.SaleRepository
	dispatcher    *worker.Dispatcher
	pointOfSaleID int
}

func NewCashService(repo repository.CashRepository, sales repository.SaleRepository, dispatcher *worker.Dispatcher, pointOfSaleID int) CashService {
	return &cashService{repo: repo, sales: sales, dispatcher: dispatcher, pointOfSaleID: pointOfSaleID}
}

// runTx executes fn inside a GORM transaction when db is available,
// or calls fn(nil) directly when db is nil (unit test mode).
func runTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if db == nil {
		return fn(nil)
	}
	return db.WithContext(ctx).Transaction(fn)
}

// ── OpenSession ───────────────────────────────────────────────────────────────

func (s *cashService) OpenSession(ctx context.Context, req dto.OpenSessionRequest) (*dto.SessionResponse, error) {
	// Guard: at most one active session per point of sale. A suspended
	// session still owns the drawer, so it blocks a new open as well.
	if existing, err := s.repo.FindOpenSessionByPOS(ctx, s.pointOfSaleID); err == nil && existing != nil {
		return nil, ErrSessionAlreadyOpen
	}
	if req.OpeningAmount.IsNegative() {
		return nil, ErrInvalidAmount
	}
	openedBy, err := uuid.Parse(req.OpenedBy)
	if err != nil {
		return nil, fmt.Errorf("invalid opened_by: %w", err)
	}

	number, err := s.repo.NextSessionNumber(ctx, s.pointOfSaleID)
	if err != nil {
		return nil, err
	}

	session := &model.CashSession{
		ID:            uuid.New(),
		SessionNumber: number,
		PointOfSaleID: s.pointOfSaleID,
		OpenedBy:      openedBy,
		OpenedAt:      time.Now(),
		OpeningAmount: req.OpeningAmount,
		Status:        model.SessionOpen,
		Notes:         req.Notes,
	}

	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		if err := s.repo.CreateSessionTx(tx, session); err != nil {
			return err
		}
		_, err := s.dispatcher.Enqueue(ctx, tx, model.EntityCashSessionOpen, model.OpCreate, dto.SessionOpenPayload{
			SessionID:     session.ID,
			SessionNumber: session.SessionNumber,
			PointOfSaleID: session.PointOfSaleID,
			OpenedBy:      session.OpenedBy,
			OpenedAt:      session.OpenedAt,
			OpeningAmount: session.OpeningAmount,
			Notes:         session.Notes,
		})
		return err
	})
	if txErr != nil {
		return nil, txErr
	}

	return s.buildResponse(ctx, session)
}

// ── RecordMovement ────────────────────────────────────────────────────────────
// Deposits and withdrawals. Movements are immutable — there is no update or
// delete path, corrections create inverse entries.

func (s *cashService) RecordMovement(ctx context.Context, req dto.MovementRequest) (*dto.MovementResponse, error) {
	sessionID, err := uuid.Parse(req.SessionID)
	if err != nil {
		return nil, fmt.Errorf("invalid session_id: %w", err)
	}
	session, err := s.RequireOpenSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !req.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if req.Type == model.MovementWithdrawal && (req.AuthorizedBy == nil || *req.AuthorizedBy == "") {
		return nil, ErrAuthorizationRequired
	}

	movement := &model.CashMovement{
		ID:           uuid.New(),
		SessionID:    session.ID,
		Type:         req.Type,
		Amount:       req.Amount,
		Reason:       req.Reason,
		AuthorizedBy: req.AuthorizedBy,
		Description:  req.Description,
		Reference:    req.Reference,
		CreatedAt:    time.Now(),
	}

	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		if err := s.repo.CreateMovementTx(tx, movement); err != nil {
			return err
		}
		_, err := s.dispatcher.Enqueue(ctx, tx, model.EntityCashMovement, model.OpCreate, dto.CashMovementPayload{
			MovementID:   movement.ID,
			SessionID:    movement.SessionID,
			Type:         movement.Type,
			Amount:       movement.Amount,
			Reason:       movement.Reason,
			AuthorizedBy: movement.AuthorizedBy,
			Description:  movement.Description,
			Reference:    movement.Reference,
			CreatedAt:    movement.CreatedAt,
		})
		return err
	})
	if txErr != nil {
		return nil, txErr
	}

	return &dto.MovementResponse{
		MovementID:   movement.ID.String(),
		SessionID:    movement.SessionID.String(),
		Type:         movement.Type,
		Amount:       movement.Amount,
		Reason:       movement.Reason,
		AuthorizedBy: movement.AuthorizedBy,
		CreatedAt:    movement.CreatedAt.Format(time.RFC3339),
	}, nil
}

// ── ComputeExpected ───────────────────────────────────────────────────────────
// opening + cash-tender sale payments + deposits − withdrawals. All decimal,
// no intermediate rounding: summation order cannot change the result.

func (s *cashService) ComputeExpected(ctx context.Context, sessionID uuid.UUID) (decimal.Decimal, error) {
	session, err := s.repo.FindSessionByID(ctx, sessionID)
	if err != nil {
		return decimal.Zero, ErrSessionNotFound
	}
	return s.computeExpected(ctx, session)
}

func (s *cashService) computeExpected(ctx context.Context, session *model.CashSession) (decimal.Decimal, error) {
	expected := session.OpeningAmount

	movements, err := s.repo.ListMovements(ctx, session.ID)
	if err != nil {
		return decimal.Zero, err
	}
	for _, m := range movements {
		switch m.Type {
		case model.MovementDeposit:
			expected = expected.Add(m.Amount)
		case model.MovementWithdrawal:
			expected = expected.Sub(m.Amount)
		}
	}

	payments, err := s.sales.ListPaymentsBySession(ctx, session.ID)
	if err != nil {
		return decimal.Zero, err
	}
	for _, p := range payments {
		if p.Method == model.PayCash {
			expected = expected.Add(p.Amount)
		}
	}

	return expected, nil
}

// ── CloseSession ──────────────────────────────────────────────────────────────
// Produces the immutable SessionSummary. A non-zero difference is a normal
// business outcome — it is recorded and returned, never suppressed.

func (s *cashService) CloseSession(ctx context.Context, req dto.CloseSessionRequest) (*dto.SessionSummaryResponse, error) {
	sessionID, err := uuid.Parse(req.SessionID)
	if err != nil {
		return nil, fmt.Errorf("invalid session_id: %w", err)
	}
	closedBy, err := uuid.Parse(req.ClosedBy)
	if err != nil {
		return nil, fmt.Errorf("invalid closed_by: %w", err)
	}

	session, err := s.RequireOpenSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	summary, err := s.closeOut(ctx, nil, session, closedBy, req.Count, req.Notes, model.SessionClosed)
	if err != nil {
		return nil, err
	}
	return summaryResponse(summary), nil
}

// closeOut settles a session into closed or transferred state. When tx is
// nil it opens its own transaction; TransferSession passes its outer one so
// the handover commits as a single unit.
func (s *cashService) closeOut(ctx context.Context, tx *gorm.DB, session *model.CashSession, closedBy uuid.UUID, count dto.CashCount, notes *string, finalStatus string) (*model.SessionSummary, error) {
	closingAmount, err := countTotal(count)
	if err != nil {
		return nil, err
	}
	expected, err := s.computeExpected(ctx, session)
	if err != nil {
		return nil, err
	}

	salesCount, err := s.sales.CountBySession(ctx, session.ID)
	if err != nil {
		return nil, err
	}
	sales, err := s.sales.ListBySession(ctx, session.ID)
	if err != nil {
		return nil, err
	}
	salesTotal := decimal.Zero
	for _, sale := range sales {
		salesTotal = salesTotal.Add(sale.Total)
	}

	now := time.Now()
	session.Status = finalStatus
	session.ClosedBy = &closedBy
	session.ClosedAt = &now
	if notes != nil {
		session.Notes = notes
	}

	summary := &model.SessionSummary{
		ID:             uuid.New(),
		SessionID:      session.ID,
		SalesCount:     salesCount,
		SalesTotal:     salesTotal,
		ExpectedAmount: expected,
		ClosingAmount:  closingAmount,
		Difference:     closingAmount.Sub(expected),
	}

	persist := func(tx *gorm.DB) error {
		if err := s.repo.UpdateSessionTx(tx, session); err != nil {
			return err
		}
		if err := s.repo.CreateSummaryTx(tx, summary); err != nil {
			return err
		}
		_, err := s.dispatcher.Enqueue(ctx, tx, model.EntityCashSessionClose, model.OpUpdate, dto.SessionClosePayload{
			SessionID:      session.ID,
			ClosedBy:       closedBy,
			ClosedAt:       now,
			Status:         finalStatus,
			SalesCount:     summary.SalesCount,
			SalesTotal:     summary.SalesTotal,
			ExpectedAmount: summary.ExpectedAmount,
			ClosingAmount:  summary.ClosingAmount,
			Difference:     summary.Difference,
			Notes:          notes,
		})
		return err
	}

	if tx != nil {
		err = persist(tx)
	} else {
		err = runTx(ctx, s.repo.DB(), persist)
	}
	if err != nil {
		return nil, err
	}
	return summary, nil
}

// ── Suspend / Resume ──────────────────────────────────────────────────────────

func (s *cashService) SuspendSession(ctx context.Context, sessionID uuid.UUID) error {
	session, err := s.repo.FindSessionByID(ctx, sessionID)
	if err != nil {
		return ErrSessionNotFound
	}
	if session.Status != model.SessionOpen {
		return ErrSessionNotOpen
	}
	session.Status = model.SessionSuspended
	return runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		return s.repo.UpdateSessionTx(tx, session)
	})
}

func (s *cashService) ResumeSession(ctx context.Context, sessionID uuid.UUID) error {
	session, err := s.repo.FindSessionByID(ctx, sessionID)
	if err != nil {
		return ErrSessionNotFound
	}
	if session.Status != model.SessionSuspended {
		return ErrSessionNotSuspended
	}
	session.Status = model.SessionOpen
	return runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		return s.repo.UpdateSessionTx(tx, session)
	})
}

// ── TransferSession ───────────────────────────────────────────────────────────
// Shift handover: the outgoing session settles as transferred and the
// incoming one opens, atomically. Both queue entries ride one transaction —
// one logical unit, or nothing.

func (s *cashService) TransferSession(ctx context.Context, req dto.TransferSessionRequest) (*dto.TransferResponse, error) {
	sessionID, err := uuid.Parse(req.SessionID)
	if err != nil {
		return nil, fmt.Errorf("invalid session_id: %w", err)
	}
	closedBy, err := uuid.Parse(req.ClosedBy)
	if err != nil {
		return nil, fmt.Errorf("invalid closed_by: %w", err)
	}
	toUser, err := uuid.Parse(req.ToUser)
	if err != nil {
		return nil, fmt.Errorf("invalid to_user: %w", err)
	}
	if req.OpeningAmount.IsNegative() {
		return nil, ErrInvalidAmount
	}

	session, err := s.RequireOpenSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	number, err := s.repo.NextSessionNumber(ctx, s.pointOfSaleID)
	if err != nil {
		return nil, err
	}
	successor := &model.CashSession{
		ID:            uuid.New(),
		SessionNumber: number,
		PointOfSaleID: s.pointOfSaleID,
		OpenedBy:      toUser,
		OpenedAt:      time.Now(),
		OpeningAmount: req.OpeningAmount,
		Status:        model.SessionOpen,
	}

	var summary *model.SessionSummary
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		var err error
		// Enqueue order matters: the close entry must precede the successor's
		// open entry in the queue, and drain order follows creation order.
		summary, err = s.closeOut(ctx, tx, session, closedBy, req.Count, req.Notes, model.SessionTransferred)
		if err != nil {
			return err
		}
		if err := s.repo.CreateSessionTx(tx, successor); err != nil {
			return err
		}
		_, err = s.dispatcher.Enqueue(ctx, tx, model.EntityCashSessionOpen, model.OpCreate, dto.SessionOpenPayload{
			SessionID:     successor.ID,
			SessionNumber: successor.SessionNumber,
			PointOfSaleID: successor.PointOfSaleID,
			OpenedBy:      successor.OpenedBy,
			OpenedAt:      successor.OpenedAt,
			OpeningAmount: successor.OpeningAmount,
		})
		return err
	})
	if txErr != nil {
		return nil, txErr
	}

	closed := sessionResponse(session, summary.ExpectedAmount)
	closed.Summary = summaryResponse(summary)
	opened := sessionResponse(successor, successor.OpeningAmount)
	return &dto.TransferResponse{Closed: *closed, Opened: *opened}, nil
}

// ── Reads ─────────────────────────────────────────────────────────────────────

func (s *cashService) ActiveSession(ctx context.Context) (*dto.SessionResponse, error) {
	session, err := s.repo.FindOpenSessionByPOS(ctx, s.pointOfSaleID)
	if err != nil || session == nil {
		return nil, ErrSessionNotFound
	}
	return s.buildResponse(ctx, session)
}

func (s *cashService) SessionReport(ctx context.Context, sessionID uuid.UUID) (*dto.SessionResponse, error) {
	session, err := s.repo.FindSessionByID(ctx, sessionID)
	if err != nil {
		return nil, ErrSessionNotFound
	}
	return s.buildResponse(ctx, session)
}

func (s *cashService) ListSessions(ctx context.Context, page, limit int) ([]dto.SessionResponse, int64, error) {
	sessions, total, err := s.repo.ListSessions(ctx, page, limit)
	if err != nil {
		return nil, 0, err
	}
	out := make([]dto.SessionResponse, 0, len(sessions))
	for i := range sessions {
		resp, err := s.buildResponse(ctx, &sessions[i])
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *resp)
	}
	return out, total, nil
}

func (s *cashService) RequireOpenSession(ctx context.Context, sessionID uuid.UUID) (*model.CashSession, error) {
	session, err := s.repo.FindSessionByID(ctx, sessionID)
	if err != nil {
		return nil, ErrSessionNotFound
	}
	if session.Status != model.SessionOpen {
		return nil, ErrSessionNotOpen
	}
	return session, nil
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// countTotal turns the physical count into a closing amount:
// Σ(denomination × count) over bills and coins, plus vouchers, checks and
// other values. Denominations are decimal strings; counts must not be
// negative.
func countTotal(count dto.CashCount) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, group := range []map[string]int64{count.Bills, count.Coins} {
		for denom, n := range group {
			if n < 0 {
				return decimal.Zero, ErrInvalidAmount
			}
			value, err := decimal.NewFromString(denom)
			if err != nil || value.Sign() <= 0 {
				return decimal.Zero, ErrInvalidDenomination
			}
			total = total.Add(value.Mul(decimal.NewFromInt(n)))
		}
	}
	if count.Vouchers.IsNegative() || count.Checks.IsNegative() || count.OtherValues.IsNegative() {
		return decimal.Zero, ErrInvalidAmount
	}
	return total.Add(count.Vouchers).Add(count.Checks).Add(count.OtherValues), nil
}

func (s *cashService) buildResponse(ctx context.Context, session *model.CashSession) (*dto.SessionResponse, error) {
	expected, err := s.computeExpected(ctx, session)
	if err != nil {
		return nil, err
	}
	resp := sessionResponse(session, expected)
	if session.Status == model.SessionClosed || session.Status == model.SessionTransferred {
		if summary, err := s.repo.FindSummaryBySession(ctx, session.ID); err == nil {
			resp.Summary = summaryResponse(summary)
		}
	}
	return resp, nil
}

func sessionResponse(session *model.CashSession, expected decimal.Decimal) *dto.SessionResponse {
	resp := &dto.SessionResponse{
		SessionID:      session.ID.String(),
		SessionNumber:  session.SessionNumber,
		PointOfSaleID:  session.PointOfSaleID,
		Status:         session.Status,
		OpenedBy:       session.OpenedBy.String(),
		OpenedAt:       session.OpenedAt.Format(time.RFC3339),
		OpeningAmount:  session.OpeningAmount,
		ExpectedAmount: expected,
		Notes:          session.Notes,
	}
	if session.ClosedBy != nil {
		v := session.ClosedBy.String()
		resp.ClosedBy = &v
	}
	if session.ClosedAt != nil {
		v := session.ClosedAt.Format(time.RFC3339)
		resp.ClosedAt = &v
	}
	return resp
}

func summaryResponse(summary *model.SessionSummary) *dto.SessionSummaryResponse {
	return &dto.SessionSummaryResponse{
		SalesCount:     summary.SalesCount,
		SalesTotal:     summary.SalesTotal,
		ExpectedAmount: summary.ExpectedAmount,
		ClosingAmount:  summary.ClosingAmount,
		Difference:     summary.Difference,
	}
}
