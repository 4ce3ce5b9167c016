package credit

import (
	"context"
	"fmt"

	"github.com/fiado/backend/internal/domain/credit"
	"github.com/fiado/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// PaymentAuditHandler writes an audit trail line for every credit event
type PaymentAuditHandler struct {
	logger *zap.Logger
}

// NewPaymentAuditHandler creates a new handler for credit events
func NewPaymentAuditHandler(logger *zap.Logger) *PaymentAuditHandler {
	return &PaymentAuditHandler{
		logger: logger.Named("audit"),
	}
}

// EventTypes returns the event types this handler is interested in
func (h *PaymentAuditHandler) EventTypes() []string {
	return []string{
		credit.EventTypePaymentRegistered,
		credit.EventTypeInstallmentPaid,
		credit.EventTypeSaleSettled,
	}
}

// Handle logs one credit event
func (h *PaymentAuditHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	fields := []zap.Field{
		zap.String("event_id", event.EventID().String()),
		zap.String("event_type", event.EventType()),
		zap.Time("occurred_at", event.OccurredAt()),
	}

	switch e := event.(type) {
	case *credit.PaymentRegisteredEvent:
		h.logger.Info("payment registered", append(fields,
			zap.String("client_id", e.ClientID.String()),
			zap.String("user_id", e.UserID.String()),
			zap.String("receipt_no", e.ReceiptNo),
			zap.String("method", string(e.Method)),
			zap.String("amount", e.Amount.StringFixed(2)),
			zap.String("amount_applied", e.AmountApplied.StringFixed(2)),
			zap.String("remainder", e.Remainder.StringFixed(2)),
			zap.Int("installments", e.Installments),
		)...)
	case *credit.InstallmentPaidEvent:
		h.logger.Info("installment paid", append(fields,
			zap.String("installment_id", e.InstallmentID.String()),
			zap.String("sale_id", e.SaleID.String()),
			zap.String("amount_paid", e.AmountPaid.StringFixed(2)),
		)...)
	case *credit.SaleSettledEvent:
		clientID := ""
		if e.ClientID != nil {
			clientID = e.ClientID.String()
		}
		h.logger.Info("sale settled", append(fields,
			zap.String("sale_id", e.SaleID.String()),
			zap.String("client_id", clientID),
			zap.String("total", e.Total.StringFixed(2)),
		)...)
	default:
		h.logger.Error("unexpected event type", zap.String("actual", event.EventType()))
		return fmt.Errorf("unexpected event type: %s", event.EventType())
	}
	return nil
}
