package credit

import (
	"time"

	"github.com/fiado/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event type names
const (
	EventTypePaymentRegistered = "credit.PaymentRegistered"
	EventTypeInstallmentPaid   = "credit.InstallmentPaid"
	EventTypeSaleSettled       = "credit.SaleSettled"
)

// InstallmentPaidEvent is raised when an installment reaches paid
type InstallmentPaidEvent struct {
	shared.BaseDomainEvent
	InstallmentID uuid.UUID       `json:"installment_id"`
	SaleID        uuid.UUID       `json:"sale_id"`
	FaceAmount    decimal.Decimal `json:"face_amount"`
	AmountPaid    decimal.Decimal `json:"amount_paid"`
	PaidAt        time.Time       `json:"paid_at"`
}

// NewInstallmentPaidEvent creates a new InstallmentPaidEvent
func NewInstallmentPaidEvent(i *Installment) *InstallmentPaidEvent {
	paidAt := time.Now()
	if i.PaidAt != nil {
		paidAt = *i.PaidAt
	}
	return &InstallmentPaidEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInstallmentPaid, "Installment", i.ID),
		InstallmentID:   i.ID,
		SaleID:          i.SaleID,
		FaceAmount:      i.FaceAmount,
		AmountPaid:      i.AmountPaid,
		PaidAt:          paidAt,
	}
}

// SaleSettledEvent is raised when the last installment of a credit sale is paid
type SaleSettledEvent struct {
	shared.BaseDomainEvent
	SaleID    uuid.UUID       `json:"sale_id"`
	ClientID  *uuid.UUID      `json:"client_id,omitempty"`
	Total     decimal.Decimal `json:"total"`
	SettledAt time.Time       `json:"settled_at"`
}

// NewSaleSettledEvent creates a new SaleSettledEvent
func NewSaleSettledEvent(s *Sale) *SaleSettledEvent {
	settledAt := time.Now()
	if s.SettledAt != nil {
		settledAt = *s.SettledAt
	}
	return &SaleSettledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSaleSettled, "Sale", s.ID),
		SaleID:          s.ID,
		ClientID:        s.ClientID,
		Total:           s.Total,
		SettledAt:       settledAt,
	}
}

// PaymentRegisteredEvent is raised once per client payment that applied any amount
type PaymentRegisteredEvent struct {
	shared.BaseDomainEvent
	ClientID      uuid.UUID       `json:"client_id"`
	UserID        uuid.UUID       `json:"user_id"`
	ReceiptNo     string          `json:"receipt_no"`
	Method        PaymentMethod   `json:"method"`
	Amount        decimal.Decimal `json:"amount"`
	AmountApplied decimal.Decimal `json:"amount_applied"`
	Remainder     decimal.Decimal `json:"remainder"`
	Installments  int             `json:"installments"`
}

// NewPaymentRegisteredEvent creates a new PaymentRegisteredEvent
func NewPaymentRegisteredEvent(pc PaymentContext, plan *AllocationPlan) *PaymentRegisteredEvent {
	return &PaymentRegisteredEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentRegistered, "Client", pc.ClientID),
		ClientID:        pc.ClientID,
		UserID:          pc.UserID,
		ReceiptNo:       pc.ReceiptNo,
		Method:          pc.Method,
		Amount:          plan.PaymentAmount,
		AmountApplied:   plan.TotalApplied,
		Remainder:       plan.Remainder,
		Installments:    len(plan.Entries),
	}
}
