package testutil

import (
	"time"

	"github.com/brianvoe/gofakeit/v7"
	creditapp "github.com/fiado/backend/internal/application/credit"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FakeClientInput returns a client with random contact data
func FakeClientInput() creditapp.CreateClientInput {
	return creditapp.CreateClientInput{
		Name:     gofakeit.Name(),
		Phone:    gofakeit.Phone(),
		Email:    gofakeit.Email(),
		Document: gofakeit.DigitN(8),
		Address:  gofakeit.Street(),
	}
}

// MonthlySchedule builds count equal installments of face, the first due at
// first and the rest one month apart.
func MonthlySchedule(first time.Time, count int, face decimal.Decimal) []creditapp.ScheduleLineInput {
	lines := make([]creditapp.ScheduleLineInput, 0, count)
	for i := 0; i < count; i++ {
		lines = append(lines, creditapp.ScheduleLineInput{
			DueDate: first.AddDate(0, i, 0),
			Amount:  face,
		})
	}
	return lines
}

// CreditSaleInput is an installments sale for clientID over lines
func CreditSaleInput(clientID uuid.UUID, lines []creditapp.ScheduleLineInput) creditapp.CreateSaleInput {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.Amount)
	}
	return creditapp.CreateSaleInput{
		ClientID:      &clientID,
		Total:         total,
		PaymentMethod: "installments",
		Lines:         lines,
	}
}

// Day truncates t to midnight UTC
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
