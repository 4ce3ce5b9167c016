package credit

import (
	"context"
	"fmt"
	"time"

	"github.com/fiado/backend/internal/domain/credit"
	"github.com/fiado/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// SaleService records sales and their installment schedules
type SaleService struct {
	store        credit.Store
	tolerance    credit.Tolerance
	storeTimeout time.Duration
	logger       *zap.Logger
}

// NewSaleService creates a new SaleService
func NewSaleService(store credit.Store, tol credit.Tolerance, storeTimeout time.Duration, logger *zap.Logger) *SaleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SaleService{
		store:        store,
		tolerance:    tol,
		storeTimeout: storeTimeout,
		logger:       logger,
	}
}

// CreateSale records a sale. A credit sale is stored together with its
// schedule; every other sale is paid on creation.
func (s *SaleService) CreateSale(ctx context.Context, in CreateSaleInput) (*SaleResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "credit", "create_sale")
	defer span.End()

	method, err := credit.ParsePaymentMethod(in.PaymentMethod)
	if err != nil {
		return nil, validationError(err.Error())
	}
	sale, err := credit.NewSale(in.ClientID, in.Total, method)
	if err != nil {
		return nil, err
	}

	var installments []credit.Installment
	if sale.IsCredit() {
		lines, err := scheduleLines(in)
		if err != nil {
			return nil, err
		}
		installments, err = credit.BuildSchedule(sale, lines, s.tolerance)
		if err != nil {
			return nil, err
		}
	} else if len(in.Lines) > 0 || in.InstallmentCount > 0 {
		return nil, validationError("only installment sales take a schedule")
	}

	err = s.store.Atomic(ctx, func(ctx context.Context, repos credit.Repositories) error {
		repos = withTimeout(repos, s.storeTimeout)
		if sale.ClientID != nil {
			if _, err := repos.Clients.FindByID(ctx, *sale.ClientID); err != nil {
				return storeReadFailed("load client", notFoundAs(err, ErrClientNotFound))
			}
		}
		if err := repos.Sales.Create(ctx, sale); err != nil {
			return fmt.Errorf("failed to create sale: %w", err)
		}
		if err := repos.Installments.CreateBatch(ctx, installments); err != nil {
			return fmt.Errorf("failed to create installments: %w", err)
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrSaleID, sale.ID.String(),
		telemetry.SpanAttrPaymentMethod, string(method),
		"installments", len(installments),
	)
	s.logger.Info("Sale created",
		zap.String("sale_id", sale.ID.String()),
		zap.String("payment_method", string(method)),
		zap.Int("installments", len(installments)),
	)
	return toSaleResponse(sale, installments, time.Now()), nil
}

// GetSale returns a sale with its schedule
func (s *SaleService) GetSale(ctx context.Context, id uuid.UUID) (*SaleResponse, error) {
	repos := withTimeout(s.store.Repositories(), s.storeTimeout)
	sale, err := repos.Sales.FindByID(ctx, id)
	if err != nil {
		return nil, storeReadFailed("load sale", notFoundAs(err, ErrSaleNotFound))
	}
	installments, err := repos.Installments.FindBySale(ctx, id)
	if err != nil {
		return nil, storeReadFailed("load installments", err)
	}
	return toSaleResponse(sale, installments, time.Now()), nil
}

func scheduleLines(in CreateSaleInput) ([]credit.ScheduleLine, error) {
	if len(in.Lines) > 0 {
		if in.InstallmentCount > 0 {
			return nil, validationError("give either explicit installments or an installment count, not both")
		}
		return lo.Map(in.Lines, func(l ScheduleLineInput, _ int) credit.ScheduleLine {
			return credit.ScheduleLine{DueDate: l.DueDate, Amount: l.Amount}
		}), nil
	}
	if in.InstallmentCount == 0 {
		return nil, validationError("an installment sale needs installments or an installment count")
	}
	return credit.SplitSchedule(in.Total, in.InstallmentCount, in.FirstDueDate, in.IntervalMonths)
}

func toSaleResponse(sale *credit.Sale, installments []credit.Installment, now time.Time) *SaleResponse {
	items := make([]InstallmentResponse, len(installments))
	for i := range installments {
		items[i] = toInstallmentResponse(&installments[i], now)
		items[i].ClientID = sale.ClientID
	}
	return &SaleResponse{
		ID:            sale.ID,
		ClientID:      sale.ClientID,
		Total:         sale.Total,
		PaymentMethod: string(sale.PaymentMethod),
		PaymentStatus: string(sale.PaymentStatus),
		SettledAt:     sale.SettledAt,
		Installments:  items,
		CreatedAt:     sale.CreatedAt,
		Version:       sale.Version,
	}
}
