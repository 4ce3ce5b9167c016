package credit

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var (
	jan = time.Date(2025, time.January, 10, 0, 0, 0, 0, time.UTC)
	feb = time.Date(2025, time.February, 10, 0, 0, 0, 0, time.UTC)
	mar = time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func makeInstallment(t *testing.T, saleID uuid.UUID, number int, face, paid string, due time.Time) Installment {
	t.Helper()
	inst, err := NewInstallment(saleID, number, due, dec(face))
	require.NoError(t, err)
	inst.AmountPaid = dec(paid)
	if DefaultTolerance().Covers(inst.AmountPaid, inst.FaceAmount) {
		inst.Status = InstallmentStatusPaid
	}
	return *inst
}
