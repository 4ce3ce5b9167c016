package credit

import (
	"strings"
	"time"

	"github.com/fiado/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentRecordKind distinguishes normal ledger entries from compensating ones
type PaymentRecordKind string

const (
	PaymentRecordKindPayment  PaymentRecordKind = "payment"
	PaymentRecordKindReversal PaymentRecordKind = "reversal"
)

// Channel tags appended to the reference of each ledger entry
const (
	ChannelTagGlobal = " (Abono Global)"
	ChannelTagDirect = " (Direct API)"
)

// MaxReferenceLength bounds the free-text reference stored with a record
const MaxReferenceLength = 255

// PaymentRecord is an append-only ledger line: the part of one client payment that
// went to one installment. Records are never updated or deleted.
type PaymentRecord struct {
	ID            uuid.UUID
	ReceiptNo     string
	SaleID        uuid.UUID
	InstallmentID uuid.UUID
	ClientID      uuid.UUID
	UserID        uuid.UUID
	Amount        decimal.Decimal
	Method        PaymentMethod
	Reference     string
	Kind          PaymentRecordKind
	CreatedAt     time.Time
}

// PaymentContext carries who paid, how, and through which channel
type PaymentContext struct {
	ClientID   uuid.UUID
	UserID     uuid.UUID
	Method     PaymentMethod
	Reference  string
	ChannelTag string
	ReceiptNo  string
}

// TaggedReference returns the reference with the channel tag appended
func (c PaymentContext) TaggedReference() string {
	return strings.TrimSpace(c.Reference + c.ChannelTag)
}

// NewPaymentRecord creates the ledger record for one applied plan entry
func NewPaymentRecord(entry PlanEntry, pc PaymentContext) (*PaymentRecord, error) {
	if entry.AmountApplied.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Payment record amount must be positive")
	}
	if !pc.Method.CanSettle() {
		return nil, shared.NewDomainError("INVALID_PAYMENT_METHOD", "Invalid settlement method")
	}
	return &PaymentRecord{
		ID:            uuid.New(),
		ReceiptNo:     pc.ReceiptNo,
		SaleID:        entry.SaleID,
		InstallmentID: entry.InstallmentID,
		ClientID:      pc.ClientID,
		UserID:        pc.UserID,
		Amount:        entry.AmountApplied,
		Method:        pc.Method,
		Reference:     truncateReference(pc.TaggedReference()),
		Kind:          PaymentRecordKindPayment,
		CreatedAt:     time.Now(),
	}, nil
}

// NewReversalRecord creates the compensating record for a ledger line whose
// installment update had to be rolled back.
func NewReversalRecord(original *PaymentRecord, reason string) *PaymentRecord {
	return &PaymentRecord{
		ID:            uuid.New(),
		ReceiptNo:     original.ReceiptNo,
		SaleID:        original.SaleID,
		InstallmentID: original.InstallmentID,
		ClientID:      original.ClientID,
		UserID:        original.UserID,
		Amount:        original.Amount.Neg(),
		Method:        original.Method,
		Reference:     truncateReference("Reversal: " + reason),
		Kind:          PaymentRecordKindReversal,
		CreatedAt:     time.Now(),
	}
}

func truncateReference(ref string) string {
	runes := []rune(ref)
	if len(runes) <= MaxReferenceLength {
		return ref
	}
	return string(runes[:MaxReferenceLength])
}
