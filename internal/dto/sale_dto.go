package dto

import "github.com/shopspring/decimal"

type SaleLineRequest struct {
	ProductID int64           `json:"product_id" validate:"required,min=1"`
	Quantity  decimal.Decimal `json:"quantity"   validate:"required"`
	UnitPrice decimal.Decimal `json:"unit_price" validate:"required"`
}

type SalePaymentRequest struct {
	Method string          `json:"method" validate:"required,oneof=cash debit credit transfer"`
	Amount decimal.Decimal `json:"amount" validate:"required"`
}

type RecordSaleRequest struct {
	SessionID  string               `json:"session_id" validate:"required,uuid"`
	CustomerID *int64               `json:"customer_id"`
	Lines      []SaleLineRequest    `json:"lines"    validate:"required,min=1,dive"`
	Payments   []SalePaymentRequest `json:"payments" validate:"required,min=1,dive"`
}

type SaleResponse struct {
	SaleID       string          `json:"sale_id"`
	TicketNumber int             `json:"ticket_number"`
	Total        decimal.Decimal `json:"total"`
	CreatedAt    string          `json:"created_at"`
}
