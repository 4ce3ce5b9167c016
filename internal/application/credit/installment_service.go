package credit

import (
	"context"
	"fmt"
	"time"

	"github.com/fiado/backend/internal/domain/credit"
	"github.com/fiado/backend/internal/domain/shared"
	"github.com/fiado/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// Page size bounds for installment listings
const (
	defaultInstallmentPageSize = 20
	maxInstallmentPageSize     = 100
)

// DefaultExportURLExpiry is how long an uploaded export stays downloadable
const DefaultExportURLExpiry = 15 * time.Minute

// InstallmentServiceOption configures InstallmentService
type InstallmentServiceOption func(*InstallmentService)

// WithPortfolioRenderer enables portfolio exports
func WithPortfolioRenderer(renderer PortfolioRenderer) InstallmentServiceOption {
	return func(s *InstallmentService) {
		s.renderer = renderer
	}
}

// WithExportStorage uploads exports instead of returning them inline
func WithExportStorage(storage ExportStorage, urlExpiry time.Duration) InstallmentServiceOption {
	return func(s *InstallmentService) {
		s.storage = storage
		if urlExpiry > 0 {
			s.urlExpiry = urlExpiry
		}
	}
}

// WithInstallmentLogger sets the logger
func WithInstallmentLogger(logger *zap.Logger) InstallmentServiceOption {
	return func(s *InstallmentService) {
		s.logger = logger
	}
}

// InstallmentService serves the installment portfolio: listings, totals,
// single-installment settlement and exports.
type InstallmentService struct {
	store        credit.Store
	payments     *PaymentService
	renderer     PortfolioRenderer
	storage      ExportStorage
	urlExpiry    time.Duration
	storeTimeout time.Duration
	now          func() time.Time
	logger       *zap.Logger
}

// NewInstallmentService creates a new InstallmentService. Settlements go
// through payments so they share its ledger and sale-completion path.
func NewInstallmentService(store credit.Store, payments *PaymentService, opts ...InstallmentServiceOption) *InstallmentService {
	s := &InstallmentService{
		store:        store,
		payments:     payments,
		urlExpiry:    DefaultExportURLExpiry,
		storeTimeout: payments.cfg.StoreTimeout,
		now:          time.Now,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns one page of the installments in the requested view, ordered by
// due date. An installment due today is already overdue.
func (s *InstallmentService) List(ctx context.Context, in ListInstallmentsInput) (*shared.Paginated[InstallmentResponse], error) {
	view, err := credit.ParseInstallmentView(in.View)
	if err != nil {
		return nil, err
	}
	page, pageSize := normalizePage(in.Page, in.PageSize)

	now := s.now()
	repos := withTimeout(s.store.Repositories(), s.storeTimeout)
	installments, err := s.findView(ctx, repos, view, in.ClientID, now)
	if err != nil {
		return nil, err
	}

	total := len(installments)
	start := (page - 1) * pageSize
	pageItems := lo.Slice(installments, start, start+pageSize)

	owners, err := s.resolveOwners(ctx, repos, pageItems)
	if err != nil {
		return nil, err
	}
	items := make([]InstallmentResponse, len(pageItems))
	for i := range pageItems {
		items[i] = toInstallmentResponse(&pageItems[i], now)
		if owner, ok := owners[pageItems[i].SaleID]; ok {
			items[i].ClientID = owner.clientID
			items[i].ClientName = owner.name
		}
	}

	result := shared.NewPaginated(items, int64(total), page, pageSize)
	return &result, nil
}

// Stats totals the portfolio, optionally for one client
func (s *InstallmentService) Stats(ctx context.Context, clientID *uuid.UUID) (*StatsResponse, error) {
	repos := withTimeout(s.store.Repositories(), s.storeTimeout)
	now := s.now()
	installments, err := s.findView(ctx, repos, credit.InstallmentViewAll, clientID, now)
	if err != nil {
		return nil, err
	}
	stats := toStatsResponse(credit.ComputePortfolioStats(installments, now))
	return &stats, nil
}

// SettleInstallment pays the full residual of one installment
func (s *InstallmentService) SettleInstallment(ctx context.Context, in SettleInstallmentInput) (*PaymentResult, error) {
	return s.payments.SettleInstallment(ctx, in)
}

// ExportPortfolio renders the installments of a view as a spreadsheet. With
// object storage configured the file is uploaded and a time-limited link is
// returned; otherwise the file travels in Data.
func (s *InstallmentService) ExportPortfolio(ctx context.Context, view string, clientID *uuid.UUID) (*ExportResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "credit", "export_portfolio")
	defer span.End()

	var result *ExportResult
	var operationErr error
	telemetry.WithProfilingLabels(ctx, telemetry.CreditOperationLabels(telemetry.OperationExportPortfolio, ""), func(c context.Context) {
		result, operationErr = s.exportPortfolio(c, view, clientID)
	})
	if operationErr != nil {
		telemetry.RecordError(span, operationErr)
		return nil, operationErr
	}
	telemetry.SetAttributes(span, "rows", result.Rows, "uploaded", result.URL != "")
	return result, nil
}

func (s *InstallmentService) exportPortfolio(ctx context.Context, rawView string, clientID *uuid.UUID) (*ExportResult, error) {
	if s.renderer == nil {
		return nil, shared.NewDomainError("EXPORT_DISABLED", "Portfolio export is not configured")
	}
	view, err := credit.ParseInstallmentView(rawView)
	if err != nil {
		return nil, err
	}

	now := s.now()
	repos := withTimeout(s.store.Repositories(), s.storeTimeout)
	installments, err := s.findView(ctx, repos, view, clientID, now)
	if err != nil {
		return nil, err
	}
	owners, err := s.resolveOwners(ctx, repos, installments)
	if err != nil {
		return nil, err
	}

	rows := make([]PortfolioRow, len(installments))
	for i := range installments {
		inst := &installments[i]
		owner := owners[inst.SaleID]
		rows[i] = PortfolioRow{
			InstallmentID:  inst.ID,
			SaleID:         inst.SaleID,
			ClientID:       owner.clientID,
			ClientName:     owner.name,
			ClientDocument: owner.document,
			Number:         inst.Number,
			DueDate:        inst.DueDate,
			FaceAmount:     inst.FaceAmount,
			AmountPaid:     inst.AmountPaid,
			Residual:       inst.Residual(),
			Status:         string(inst.Status),
			PaidAt:         inst.PaidAt,
		}
	}

	data, err := s.renderer.RenderPortfolio(rows, credit.ComputePortfolioStats(installments, now), now)
	if err != nil {
		return nil, fmt.Errorf("failed to render portfolio: %w", err)
	}

	result := &ExportResult{
		FileName:    fmt.Sprintf("portfolio-%s-%s.xlsx", view, now.UTC().Format("20060102-150405")),
		ContentType: s.renderer.ContentType(),
		Rows:        len(rows),
	}
	if s.storage == nil {
		result.Data = data
		return result, nil
	}

	key := "portfolio/" + uuid.NewString() + "/" + result.FileName
	if err := s.storage.Upload(ctx, key, data, result.ContentType); err != nil {
		return nil, fmt.Errorf("failed to upload export: %w", err)
	}
	url, expiresAt, err := s.storage.GenerateDownloadURL(ctx, key, s.urlExpiry)
	if err != nil {
		return nil, fmt.Errorf("failed to generate download url: %w", err)
	}
	result.URL = url
	result.ExpiresAt = &expiresAt

	s.logger.Info("Portfolio exported",
		zap.String("view", string(view)),
		zap.Int("rows", result.Rows),
		zap.String("key", key),
	)
	return result, nil
}

// findView loads every installment of a view ordered by due date
func (s *InstallmentService) findView(ctx context.Context, repos credit.Repositories, view credit.InstallmentView, clientID *uuid.UUID, now time.Time) ([]credit.Installment, error) {
	filter := credit.InstallmentFilter{ClientID: clientID}
	pending := credit.InstallmentStatusPending
	paid := credit.InstallmentStatusPaid
	switch view {
	case credit.InstallmentViewPending:
		filter.Status = &pending
		filter.DueFrom = &now
	case credit.InstallmentViewOverdue:
		filter.Status = &pending
		filter.DueBefore = &now
	case credit.InstallmentViewPaid:
		filter.Status = &paid
	}

	installments, err := repos.Installments.FindAll(ctx, filter)
	if err != nil {
		return nil, storeReadFailed("list installments", err)
	}
	return lo.Filter(installments, func(inst credit.Installment, _ int) bool {
		return view.Matches(&inst, now)
	}), nil
}

type installmentOwner struct {
	clientID *uuid.UUID
	name     string
	document string
}

// resolveOwners maps each sale of the given installments to its client
func (s *InstallmentService) resolveOwners(ctx context.Context, repos credit.Repositories, installments []credit.Installment) (map[uuid.UUID]installmentOwner, error) {
	owners := make(map[uuid.UUID]installmentOwner)
	clients := make(map[uuid.UUID]*credit.Client)

	saleIDs := lo.Uniq(lo.Map(installments, func(inst credit.Installment, _ int) uuid.UUID { return inst.SaleID }))
	for _, saleID := range saleIDs {
		sale, err := repos.Sales.FindByID(ctx, saleID)
		if err != nil {
			return nil, storeReadFailed("load sale", err)
		}
		owner := installmentOwner{clientID: sale.ClientID}
		if sale.ClientID != nil {
			client, ok := clients[*sale.ClientID]
			if !ok {
				client, err = repos.Clients.FindByID(ctx, *sale.ClientID)
				if err != nil {
					return nil, storeReadFailed("load client", err)
				}
				clients[*sale.ClientID] = client
			}
			owner.name = client.Name
			owner.document = client.Document
		}
		owners[saleID] = owner
	}
	return owners, nil
}

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultInstallmentPageSize
	}
	if pageSize > maxInstallmentPageSize {
		pageSize = maxInstallmentPageSize
	}
	return page, pageSize
}
