package credit

import (
	"fmt"
	"time"

	"github.com/fiado/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Installment is one scheduled obligation of a credit sale. Its face amount is fixed;
// AmountPaid only grows, and only through an allocation plan.
type Installment struct {
	shared.BaseAggregateRoot
	SaleID     uuid.UUID
	Number     int // 1-based position in the schedule
	DueDate    time.Time
	FaceAmount decimal.Decimal
	AmountPaid decimal.Decimal
	Status     InstallmentStatus
	PaidAt     *time.Time
}

// NewInstallment creates a pending installment
func NewInstallment(saleID uuid.UUID, number int, dueDate time.Time, face decimal.Decimal) (*Installment, error) {
	if saleID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_SALE", "Installment requires a sale")
	}
	if number < 1 {
		return nil, shared.NewDomainError("INVALID_NUMBER", "Installment number must be at least 1")
	}
	if dueDate.IsZero() {
		return nil, shared.NewDomainError("INVALID_DUE_DATE", "Installment due date is required")
	}
	if face.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Installment amount must be positive")
	}
	return &Installment{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		SaleID:            saleID,
		Number:            number,
		DueDate:           dueDate,
		FaceAmount:        face,
		AmountPaid:        decimal.Zero,
		Status:            InstallmentStatusPending,
	}, nil
}

// Residual returns faceAmount - amountPaid
func (i *Installment) Residual() decimal.Decimal {
	return i.FaceAmount.Sub(i.AmountPaid)
}

// IsPaid reports whether the installment is settled
func (i *Installment) IsPaid() bool {
	return i.Status == InstallmentStatusPaid
}

// IsOutstanding reports whether there is debt left to collect on the installment
func (i *Installment) IsOutstanding(tol Tolerance) bool {
	return !i.IsPaid() && !tol.IsZero(i.Residual())
}

// IsOverdue reports whether the installment is pending and its due date has passed
func (i *Installment) IsOverdue(now time.Time) bool {
	return i.Status == InstallmentStatusPending && i.DueDate.Before(now)
}

// Apply applies an allocation plan entry computed for this installment.
// The entry must have been computed from the installment's current paid amount.
func (i *Installment) Apply(entry PlanEntry, tol Tolerance) error {
	if entry.InstallmentID != i.ID {
		return shared.NewDomainError("INVALID_PLAN", "Plan entry does not belong to this installment")
	}
	if !entry.PreviousAmountPaid.Equal(i.AmountPaid) || entry.ExpectedVersion != i.Version {
		return shared.ErrConcurrencyConflict
	}
	if entry.AmountApplied.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_AMOUNT", "Applied amount must be positive")
	}

	newPaid := i.AmountPaid.Add(entry.AmountApplied)
	if tol.Exceeds(newPaid, i.FaceAmount) {
		return shared.NewDomainError("OVERPAYMENT", fmt.Sprintf(
			"Applying %s would exceed installment face amount %s", entry.AmountApplied.StringFixed(2), i.FaceAmount.StringFixed(2)))
	}

	wasPaid := i.IsPaid()
	i.AmountPaid = newPaid
	if tol.Covers(newPaid, i.FaceAmount) {
		i.Status = InstallmentStatusPaid
	} else {
		i.Status = InstallmentStatusPending
	}
	now := time.Now()
	i.UpdatedAt = now
	i.IncrementVersion()

	if !wasPaid && i.IsPaid() {
		i.PaidAt = &now
		i.AddDomainEvent(NewInstallmentPaidEvent(i))
	}
	return nil
}
