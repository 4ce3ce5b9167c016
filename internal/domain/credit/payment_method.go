package credit

import (
	"fmt"
	"strings"

	"github.com/fiado/backend/internal/domain/shared"
)

// PaymentMethod is the closed set of ways a sale or an installment payment can be tendered.
type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "cash"
	PaymentMethodTransfer     PaymentMethod = "transfer"
	PaymentMethodCard         PaymentMethod = "card"
	PaymentMethodInstallments PaymentMethod = "installments" // credit sale paid through an installment schedule
)

// legacyPaymentMethods maps the wire values used by the POS frontend.
var legacyPaymentMethods = map[string]PaymentMethod{
	"efectivo":      PaymentMethodCash,
	"transferencia": PaymentMethodTransfer,
	"tarjeta":       PaymentMethodCard,
	"cuotas":        PaymentMethodInstallments,
}

// AllPaymentMethods returns every valid payment method
func AllPaymentMethods() []PaymentMethod {
	return []PaymentMethod{
		PaymentMethodCash,
		PaymentMethodTransfer,
		PaymentMethodCard,
		PaymentMethodInstallments,
	}
}

// IsValid checks if the method is one of the known values
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodTransfer, PaymentMethodCard, PaymentMethodInstallments:
		return true
	}
	return false
}

// IsCredit reports whether a sale with this method carries an installment schedule
func (m PaymentMethod) IsCredit() bool {
	return m == PaymentMethodInstallments
}

// CanSettle reports whether the method can be used to pay installments
func (m PaymentMethod) CanSettle() bool {
	return m.IsValid() && !m.IsCredit()
}

// String returns the string representation
func (m PaymentMethod) String() string {
	return string(m)
}

// ParsePaymentMethod parses a payment method from its wire value, accepting legacy aliases.
func ParsePaymentMethod(raw string) (PaymentMethod, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	if legacy, ok := legacyPaymentMethods[value]; ok {
		return legacy, nil
	}
	m := PaymentMethod(value)
	if !m.IsValid() {
		return "", shared.NewDomainError("INVALID_PAYMENT_METHOD", fmt.Sprintf("Unknown payment method %q", raw))
	}
	return m, nil
}

// ParseSettlementMethod parses the method used to pay installments.
// An empty value defaults to cash; the credit method itself is rejected.
func ParseSettlementMethod(raw string) (PaymentMethod, error) {
	if strings.TrimSpace(raw) == "" {
		return PaymentMethodCash, nil
	}
	m, err := ParsePaymentMethod(raw)
	if err != nil {
		return "", err
	}
	if !m.CanSettle() {
		return "", shared.NewDomainError("INVALID_PAYMENT_METHOD", "Installments cannot be paid with the installments method")
	}
	return m, nil
}
