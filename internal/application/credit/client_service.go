package credit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fiado/backend/internal/domain/credit"
	"github.com/fiado/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// ClientService manages the client registry and answers debt and ledger queries
type ClientService struct {
	store        credit.Store
	aggregator   *DebtAggregator
	storeTimeout time.Duration
	logger       *zap.Logger
}

// NewClientService creates a new ClientService
func NewClientService(store credit.Store, tol credit.Tolerance, storeTimeout time.Duration, logger *zap.Logger) *ClientService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClientService{
		store:        store,
		aggregator:   NewDebtAggregator(tol),
		storeTimeout: storeTimeout,
		logger:       logger,
	}
}

func (s *ClientService) repos() credit.Repositories {
	return withTimeout(s.store.Repositories(), s.storeTimeout)
}

// Create registers a new client
func (s *ClientService) Create(ctx context.Context, in CreateClientInput) (*ClientResponse, error) {
	client, err := credit.NewClient(in.Name)
	if err != nil {
		return nil, err
	}
	client.SetContact(in.Phone, in.Email, in.Address)
	client.SetDocument(in.Document)

	if err := s.repos().Clients.Save(ctx, client); err != nil {
		return nil, fmt.Errorf("failed to save client: %w", err)
	}
	s.logger.Info("Client created", zap.String("client_id", client.ID.String()))

	resp := toClientResponse(client)
	return &resp, nil
}

// Get returns a client by ID
func (s *ClientService) Get(ctx context.Context, id uuid.UUID) (*ClientResponse, error) {
	client, err := s.repos().Clients.FindByID(ctx, id)
	if err != nil {
		return nil, storeReadFailed("load client", notFoundAs(err, ErrClientNotFound))
	}
	resp := toClientResponse(client)
	return &resp, nil
}

// List returns one page of clients
func (s *ClientService) List(ctx context.Context, in ListClientsInput) (*shared.Paginated[ClientResponse], error) {
	page, pageSize := normalizePage(in.Page, in.PageSize)
	filter := shared.DefaultFilter()
	filter.Page = page
	filter.PageSize = pageSize
	filter.Search = strings.TrimSpace(in.Search)
	if in.OrderBy != "" {
		filter.OrderBy = in.OrderBy
	}
	if in.OrderDir != "" {
		filter.OrderDir = in.OrderDir
	}

	repos := s.repos()
	clients, err := repos.Clients.FindAll(ctx, filter)
	if err != nil {
		return nil, storeReadFailed("list clients", err)
	}
	total, err := repos.Clients.Count(ctx, filter)
	if err != nil {
		return nil, storeReadFailed("count clients", err)
	}

	items := lo.Map(clients, func(c credit.Client, _ int) ClientResponse { return toClientResponse(&c) })
	result := shared.NewPaginated(items, total, page, pageSize)
	return &result, nil
}

// Debt returns the client's outstanding position with every unpaid installment
// in maturity order
func (s *ClientService) Debt(ctx context.Context, clientID uuid.UUID) (*DebtResponse, error) {
	repos := s.repos()
	if _, err := repos.Clients.FindByID(ctx, clientID); err != nil {
		return nil, storeReadFailed("load client", notFoundAs(err, ErrClientNotFound))
	}

	summary, err := s.aggregator.Aggregate(ctx, repos, clientID)
	if err != nil {
		return nil, err
	}

	now := s.aggregator.now()
	items := make([]InstallmentResponse, len(summary.Installments))
	for i := range summary.Installments {
		items[i] = toInstallmentResponse(&summary.Installments[i], now)
		items[i].ClientID = &clientID
	}
	return &DebtResponse{
		ClientID:           clientID,
		TotalOutstanding:   summary.TotalOutstanding,
		OverdueOutstanding: summary.OverdueOutstanding,
		OverdueCount:       summary.OverdueCount,
		Installments:       items,
	}, nil
}

// Payments returns the client's ledger, newest first
func (s *ClientService) Payments(ctx context.Context, clientID uuid.UUID, page, pageSize int) ([]PaymentRecordResponse, error) {
	page, pageSize = normalizePage(page, pageSize)
	filter := shared.Filter{
		Page:     page,
		PageSize: pageSize,
		OrderBy:  "created_at",
		OrderDir: "desc",
	}
	records, err := s.repos().Payments.FindByClient(ctx, clientID, filter)
	if err != nil {
		return nil, storeReadFailed("load payments", err)
	}
	return lo.Map(records, func(r credit.PaymentRecord, _ int) PaymentRecordResponse {
		return toPaymentRecordResponse(&r)
	}), nil
}
