package credit

import (
	"time"

	"github.com/fiado/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Sale is a recorded sale. Credit sales start pending and become paid once every
// installment of their schedule is paid; all other sales are paid at creation.
type Sale struct {
	shared.BaseAggregateRoot
	ClientID      *uuid.UUID // nil for walk-in sales
	Total         decimal.Decimal
	PaymentMethod PaymentMethod
	PaymentStatus PaymentStatus
	SettledAt     *time.Time
}

// NewSale creates a new sale
func NewSale(clientID *uuid.UUID, total decimal.Decimal, method PaymentMethod) (*Sale, error) {
	if total.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Sale total must be positive")
	}
	if !method.IsValid() {
		return nil, shared.NewDomainError("INVALID_PAYMENT_METHOD", "Invalid payment method")
	}
	if method.IsCredit() && (clientID == nil || *clientID == uuid.Nil) {
		return nil, shared.NewDomainError("CLIENT_REQUIRED", "A credit sale requires a client")
	}

	sale := &Sale{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		ClientID:          clientID,
		Total:             total,
		PaymentMethod:     method,
		PaymentStatus:     PaymentStatusPaid,
	}
	if method.IsCredit() {
		sale.PaymentStatus = PaymentStatusPending
	} else {
		now := sale.CreatedAt
		sale.SettledAt = &now
	}
	return sale, nil
}

// IsCredit reports whether the sale is paid through installments
func (s *Sale) IsCredit() bool {
	return s.PaymentMethod.IsCredit()
}

// IsPaid reports whether the sale is settled
func (s *Sale) IsPaid() bool {
	return s.PaymentStatus == PaymentStatusPaid
}

// MarkPaid settles the sale. It only moves pending to paid and reports whether
// the status changed; a paid sale is never reverted.
func (s *Sale) MarkPaid() bool {
	if s.IsPaid() {
		return false
	}
	now := time.Now()
	s.PaymentStatus = PaymentStatusPaid
	s.SettledAt = &now
	s.UpdatedAt = now
	s.IncrementVersion()
	s.AddDomainEvent(NewSaleSettledEvent(s))
	return true
}
