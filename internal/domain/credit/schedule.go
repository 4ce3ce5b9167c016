package credit

import (
	"fmt"
	"time"

	"github.com/fiado/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// MaxScheduleLength bounds the number of installments of one sale
const MaxScheduleLength = 120

// ScheduleLine is one requested installment of a credit sale
type ScheduleLine struct {
	DueDate time.Time
	Amount  decimal.Decimal
}

// BuildSchedule validates the lines of a credit sale and creates its installments.
// Lines must be non-empty, positive, dated, and sum to the sale total within tolerance.
func BuildSchedule(sale *Sale, lines []ScheduleLine, tol Tolerance) ([]Installment, error) {
	if sale == nil || !sale.IsCredit() {
		return nil, shared.NewDomainError("INVALID_SALE", "Only credit sales carry an installment schedule")
	}
	if len(lines) == 0 {
		return nil, shared.NewDomainError("INVALID_SCHEDULE", "A credit sale needs at least one installment")
	}
	if len(lines) > MaxScheduleLength {
		return nil, shared.NewDomainError("INVALID_SCHEDULE", fmt.Sprintf("A schedule cannot exceed %d installments", MaxScheduleLength))
	}

	sum := decimal.Zero
	installments := make([]Installment, 0, len(lines))
	for idx, line := range lines {
		inst, err := NewInstallment(sale.ID, idx+1, line.DueDate, line.Amount)
		if err != nil {
			return nil, err
		}
		sum = sum.Add(line.Amount)
		installments = append(installments, *inst)
	}

	if !tol.Equal(sum, sale.Total) {
		return nil, shared.NewDomainError("INVALID_SCHEDULE", fmt.Sprintf(
			"Installments add up to %s but the sale total is %s", sum.StringFixed(2), sale.Total.StringFixed(2)))
	}
	return installments, nil
}

// SplitSchedule splits total into count equal installments due every intervalMonths
// starting at firstDue. Amounts are truncated to cents and the last installment
// absorbs the rounding residue.
func SplitSchedule(total decimal.Decimal, count int, firstDue time.Time, intervalMonths int) ([]ScheduleLine, error) {
	if total.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Schedule total must be positive")
	}
	if count < 1 || count > MaxScheduleLength {
		return nil, shared.NewDomainError("INVALID_SCHEDULE", fmt.Sprintf("Installment count must be between 1 and %d", MaxScheduleLength))
	}
	if firstDue.IsZero() {
		return nil, shared.NewDomainError("INVALID_DUE_DATE", "First due date is required")
	}
	if intervalMonths < 1 {
		intervalMonths = 1
	}

	share := total.Div(decimal.NewFromInt(int64(count))).Truncate(2)
	if share.IsZero() {
		return nil, shared.NewDomainError("INVALID_SCHEDULE", "Total is too small for the requested number of installments")
	}

	lines := make([]ScheduleLine, count)
	allocated := decimal.Zero
	for i := 0; i < count; i++ {
		amount := share
		if i == count-1 {
			amount = total.Sub(allocated)
		}
		lines[i] = ScheduleLine{
			DueDate: firstDue.AddDate(0, i*intervalMonths, 0),
			Amount:  amount,
		}
		allocated = allocated.Add(amount)
	}
	return lines, nil
}
