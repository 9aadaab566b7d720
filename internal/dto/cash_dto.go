package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type OpenSessionRequest struct {
	OpenedBy      string          `json:"opened_by"      validate:"required,uuid"`
	OpeningAmount decimal.Decimal `json:"opening_amount" validate:"min=0"`
	Notes         *string         `json:"notes"`
}

type MovementRequest struct {
	SessionID string          `json:"session_id" validate:"required,uuid"`
	Type      string          `json:"type"       validate:"required,oneof=deposit withdrawal"`
	Amount    decimal.Decimal `json:"amount"     validate:"required"`
	Reason    string          `json:"reason"     validate:"required,oneof=change_fund cash_drop supplier_payment expense correction shift_handover other"`
	// AuthorizedBy must carry the supervisor's id for withdrawals. The UI
	// obtains it via /v1/auth/validate-pin before submitting.
	AuthorizedBy *string `json:"authorized_by"`
	Description  *string `json:"description"`
	Reference    *string `json:"reference"`
}

// CashCount is the physical count entered at close. Bills and coins map the
// denomination (decimal string, e.g. "100.00") to how many were counted.
// It is consumed to produce a SessionSummary and never stored on its own.
type CashCount struct {
	Bills           map[string]int64 `json:"bills"`
	Coins           map[string]int64 `json:"coins"`
	Vouchers        decimal.Decimal  `json:"vouchers"`
	Checks          decimal.Decimal  `json:"checks"`
	OtherValues     decimal.Decimal  `json:"other_values"`
	OtherValuesNote string           `json:"other_values_note"`
}

type CloseSessionRequest struct {
	SessionID string    `json:"session_id" validate:"required,uuid"`
	ClosedBy  string    `json:"closed_by"  validate:"required,uuid"`
	Count     CashCount `json:"count"      validate:"required"`
	Notes     *string   `json:"notes"`
}

type SessionActionRequest struct {
	SessionID string `json:"session_id" validate:"required,uuid"`
}

// TransferSessionRequest hands the drawer over to the next shift: the current
// session ends as transferred and its successor opens atomically.
type TransferSessionRequest struct {
	SessionID     string          `json:"session_id"     validate:"required,uuid"`
	ToUser        string          `json:"to_user"        validate:"required,uuid"`
	ClosedBy      string          `json:"closed_by"      validate:"required,uuid"`
	Count         CashCount       `json:"count"          validate:"required"`
	OpeningAmount decimal.Decimal `json:"opening_amount" validate:"min=0"`
	Notes         *string         `json:"notes"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type SessionSummaryResponse struct {
	SalesCount     int             `json:"sales_count"`
	SalesTotal     decimal.Decimal `json:"sales_total"`
	ExpectedAmount decimal.Decimal `json:"expected_amount"`
	ClosingAmount  decimal.Decimal `json:"closing_amount"`
	// Difference is signed: positive = surplus, negative = shortage.
	Difference decimal.Decimal `json:"difference"`
}

type SessionResponse struct {
	SessionID      string                  `json:"session_id"`
	SessionNumber  int                     `json:"session_number"`
	PointOfSaleID  int                     `json:"point_of_sale_id"`
	Status         string                  `json:"status"`
	OpenedBy       string                  `json:"opened_by"`
	OpenedAt       string                  `json:"opened_at"`
	OpeningAmount  decimal.Decimal         `json:"opening_amount"`
	ExpectedAmount decimal.Decimal         `json:"expected_amount"`
	ClosedBy       *string                 `json:"closed_by,omitempty"`
	ClosedAt       *string                 `json:"closed_at,omitempty"`
	Notes          *string                 `json:"notes,omitempty"`
	Summary        *SessionSummaryResponse `json:"summary,omitempty"`
}

type MovementResponse struct {
	MovementID   string          `json:"movement_id"`
	SessionID    string          `json:"session_id"`
	Type         string          `json:"type"`
	Amount       decimal.Decimal `json:"amount"`
	Reason       string          `json:"reason"`
	AuthorizedBy *string         `json:"authorized_by,omitempty"`
	CreatedAt    string          `json:"created_at"`
}

// TransferResponse carries both halves of a shift handover.
type TransferResponse struct {
	Closed SessionResponse `json:"closed"`
	Opened SessionResponse `json:"opened"`
}
