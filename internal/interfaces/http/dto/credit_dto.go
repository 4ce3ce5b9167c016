package dto

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the wire format of calendar dates
const DateLayout = "2006-01-02"

// IdempotencyKeyHeader carries the client's retry key for payment requests
const IdempotencyKeyHeader = "Idempotency-Key"

// RegisterPaymentRequest is a client-level payment spread over the oldest
// outstanding installments. Amount accepts a JSON number or a decimal string.
type RegisterPaymentRequest struct {
	ClientID  string          `json:"client_id" binding:"required,uuid"`
	Amount    decimal.Decimal `json:"amount" binding:"decimal_gt0"`
	Method    string          `json:"method" binding:"omitempty,max=32"`
	Reference string          `json:"reference" binding:"omitempty,max=1024"`
}

// SettleInstallmentRequest pays off one installment's residual
type SettleInstallmentRequest struct {
	Method    string `json:"method" binding:"omitempty,max=32"`
	Reference string `json:"reference" binding:"omitempty,max=1024"`
}

// CreateClientRequest registers a credit client
type CreateClientRequest struct {
	Name     string `json:"name" binding:"required,min=1,max=200"`
	Phone    string `json:"phone" binding:"omitempty,max=50"`
	Email    string `json:"email" binding:"omitempty,email,max=200"`
	Document string `json:"document" binding:"omitempty,max=50"`
	Address  string `json:"address" binding:"omitempty,max=500"`
}

// ScheduleLineRequest is one explicit installment of a credit sale
type ScheduleLineRequest struct {
	DueDate string          `json:"due_date" binding:"required,datetime=2006-01-02"`
	Amount  decimal.Decimal `json:"amount" binding:"decimal_gt0"`
}

// CreateSaleRequest records a sale. A credit sale needs either explicit
// installments or installment_count with first_due_date.
type CreateSaleRequest struct {
	ClientID         string                `json:"client_id" binding:"omitempty,uuid"`
	Total            decimal.Decimal       `json:"total" binding:"decimal_gt0"`
	PaymentMethod    string                `json:"payment_method" binding:"required,max=32"`
	Installments     []ScheduleLineRequest `json:"installments" binding:"omitempty,max=120,dive"`
	InstallmentCount int                   `json:"installment_count" binding:"omitempty,min=1,max=120"`
	FirstDueDate     string                `json:"first_due_date" binding:"omitempty,datetime=2006-01-02"`
	IntervalMonths   int                   `json:"interval_months" binding:"omitempty,min=1,max=12"`
}

// ListInstallmentsRequest filters the installment portfolio
type ListInstallmentsRequest struct {
	Status   string `form:"status" binding:"omitempty,max=20"`
	ClientID string `form:"client_id" binding:"omitempty,uuid"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// PortfolioFilterRequest selects the installments for stats and export
type PortfolioFilterRequest struct {
	Status   string `form:"status" binding:"omitempty,max=20"`
	ClientID string `form:"client_id" binding:"omitempty,uuid"`
}

// ParseDate parses a YYYY-MM-DD date as UTC midnight; empty yields the zero time
func ParseDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation(DateLayout, raw, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", raw, err)
	}
	return t, nil
}
