package credit

import (
	"context"
	"testing"

	"github.com/fiado/backend/internal/domain/credit"
	"github.com/fiado/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestPaymentAuditHandler_EventTypes(t *testing.T) {
	handler := NewPaymentAuditHandler(zap.NewNop())
	assert.ElementsMatch(t, []string{
		credit.EventTypePaymentRegistered,
		credit.EventTypeInstallmentPaid,
		credit.EventTypeSaleSettled,
	}, handler.EventTypes())
}

func TestPaymentAuditHandler_Handle(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	handler := NewPaymentAuditHandler(zap.New(core))

	clientID := uuid.New()
	sale, err := credit.NewSale(&clientID, dec("90"), credit.PaymentMethodInstallments)
	require.NoError(t, err)
	require.True(t, sale.MarkPaid())

	plan := &credit.AllocationPlan{PaymentAmount: dec("90"), TotalApplied: dec("90"), Remainder: dec("0")}
	pc := credit.PaymentContext{ClientID: clientID, Method: credit.PaymentMethodCash, ReceiptNo: "R-1"}

	require.NoError(t, handler.Handle(context.Background(), credit.NewPaymentRegisteredEvent(pc, plan)))
	require.NoError(t, handler.Handle(context.Background(), credit.NewSaleSettledEvent(sale)))

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "payment registered", entries[0].Message)
	assert.Equal(t, "R-1", entries[0].ContextMap()["receipt_no"])
	assert.Equal(t, "90.00", entries[0].ContextMap()["amount"])
	assert.Equal(t, "sale settled", entries[1].Message)
	assert.Equal(t, clientID.String(), entries[1].ContextMap()["client_id"])
}

type otherEvent struct {
	shared.BaseDomainEvent
}

func TestPaymentAuditHandler_UnexpectedEvent(t *testing.T) {
	handler := NewPaymentAuditHandler(zap.NewNop())
	event := &otherEvent{BaseDomainEvent: shared.NewBaseDomainEvent("other.Thing", "Thing", uuid.New())}

	err := handler.Handle(context.Background(), event)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "other.Thing")
}
