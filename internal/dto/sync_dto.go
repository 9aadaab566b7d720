package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ─── Queue payloads ──────────────────────────────────────────────────────────
// These structs are what actually travels to the backend for each entity
// type. They are serialized canonically (sorted keys) so the idempotency key
// derived from them is stable across retries.

type SessionOpenPayload struct {
	SessionID     uuid.UUID       `json:"session_id"`
	SessionNumber int             `json:"session_number"`
	PointOfSaleID int             `json:"point_of_sale_id"`
	OpenedBy      uuid.UUID       `json:"opened_by"`
	OpenedAt      time.Time       `json:"opened_at"`
	OpeningAmount decimal.Decimal `json:"opening_amount"`
	Notes         *string         `json:"notes,omitempty"`
}

type CashMovementPayload struct {
	MovementID   uuid.UUID       `json:"movement_id"`
	SessionID    uuid.UUID       `json:"session_id"`
	Type         string          `json:"type"`
	Amount       decimal.Decimal `json:"amount"`
	Reason       string          `json:"reason"`
	AuthorizedBy *string         `json:"authorized_by,omitempty"`
	Description  *string         `json:"description,omitempty"`
	Reference    *string         `json:"reference,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

type SessionClosePayload struct {
	SessionID      uuid.UUID       `json:"session_id"`
	ClosedBy       uuid.UUID       `json:"closed_by"`
	ClosedAt       time.Time       `json:"closed_at"`
	Status         string          `json:"status"` // closed | transferred
	SalesCount     int             `json:"sales_count"`
	SalesTotal     decimal.Decimal `json:"sales_total"`
	ExpectedAmount decimal.Decimal `json:"expected_amount"`
	ClosingAmount  decimal.Decimal `json:"closing_amount"`
	Difference     decimal.Decimal `json:"difference"`
	Notes          *string         `json:"notes,omitempty"`
}

type SalePayloadLine struct {
	ProductID int64           `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

type SalePayloadPayment struct {
	Method string          `json:"method"`
	Amount decimal.Decimal `json:"amount"`
}

type SalePayload struct {
	SaleID       uuid.UUID            `json:"sale_id"`
	SessionID    uuid.UUID            `json:"session_id"`
	TicketNumber int                  `json:"ticket_number"`
	CustomerID   *int64               `json:"customer_id,omitempty"`
	Total        decimal.Decimal      `json:"total"`
	Lines        []SalePayloadLine    `json:"lines"`
	Payments     []SalePayloadPayment `json:"payments"`
	CreatedAt    time.Time            `json:"created_at"`
}

// ─── Status DTOs ─────────────────────────────────────────────────────────────

type CursorStatus struct {
	EntityType   string `json:"entity_type"`
	LastSyncedAt string `json:"last_synced_at"`
	LastSyncedID int64  `json:"last_synced_id"`
}

type SyncStatusResponse struct {
	Degraded     bool           `json:"degraded"`
	CircuitState string         `json:"circuit_state"`
	Pending      int64          `json:"pending"`
	InFlight     int64          `json:"in_flight"`
	Failed       int64          `json:"failed"`
	Synced       int64          `json:"synced"`
	Cursors      []CursorStatus `json:"cursors"`
}

type FailedEntryResponse struct {
	ID           string  `json:"id"`
	EntityType   string  `json:"entity_type"`
	Operation    string  `json:"operation"`
	AttemptCount int     `json:"attempt_count"`
	LastError    *string `json:"last_error"`
	CreatedAt    string  `json:"created_at"`
}

type PullResultResponse struct {
	Upserted map[string]int `json:"upserted"`
}
