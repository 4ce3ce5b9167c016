package remotestore

import (
	"context"
	"strings"
	"time"

	"github.com/fiado/backend/internal/domain/credit"
	"github.com/fiado/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

// ClientRepository implements credit.ClientRepository over the remote store
type ClientRepository struct {
	client *Client
}

// FindByID finds a client by its ID
func (r *ClientRepository) FindByID(ctx context.Context, id uuid.UUID) (*credit.Client, error) {
	var rows []clientRow
	if err := r.client.Query(ctx, collectionClients, NewQuery().Eq("id", id).Limit(1), &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, shared.ErrNotFound
	}
	c := rows[0].toDomain()
	return &c, nil
}

// FindAll finds all clients matching the filter
func (r *ClientRepository) FindAll(ctx context.Context, filter shared.Filter) ([]credit.Client, error) {
	q := clientQuery(filter).Order("name", false).Limit(filter.PageSize).Offset(filter.Offset())
	var rows []clientRow
	if err := r.client.Query(ctx, collectionClients, q, &rows); err != nil {
		return nil, err
	}
	return lo.Map(rows, func(row clientRow, _ int) credit.Client { return row.toDomain() }), nil
}

// Count counts clients matching the filter
func (r *ClientRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	return r.client.Count(ctx, collectionClients, clientQuery(filter))
}

// Save inserts a client. The remote registry is owned by the POS frontend, so
// existing clients are never rewritten from here.
func (r *ClientRepository) Save(ctx context.Context, c *credit.Client) error {
	return r.client.Insert(ctx, collectionClients, clientRowFromDomain(c), nil)
}

func clientQuery(filter shared.Filter) *Query {
	q := NewQuery().Search(strings.TrimSpace(filter.Search), "name", "phone", "document")
	if doc, ok := filter.Filters["document"].(string); ok && doc != "" {
		q.Eq("document", doc)
	}
	return q
}

// SaleRepository implements credit.SaleRepository over the remote store
type SaleRepository struct {
	client *Client
}

// FindByID finds a sale by its ID
func (r *SaleRepository) FindByID(ctx context.Context, id uuid.UUID) (*credit.Sale, error) {
	var rows []saleRow
	if err := r.client.Query(ctx, collectionSales, NewQuery().Eq("id", id).Limit(1), &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, shared.ErrNotFound
	}
	s := rows[0].toDomain()
	return &s, nil
}

// FindCreditSalesByClient returns the client's installment sales, oldest first
func (r *SaleRepository) FindCreditSalesByClient(ctx context.Context, clientID uuid.UUID) ([]credit.Sale, error) {
	q := NewQuery().
		Eq("client_id", clientID).
		Eq("payment_method", string(credit.PaymentMethodInstallments)).
		Order("created_at", false)
	var rows []saleRow
	if err := r.client.Query(ctx, collectionSales, q, &rows); err != nil {
		return nil, err
	}
	return lo.Map(rows, func(row saleRow, _ int) credit.Sale { return row.toDomain() }), nil
}

// Create inserts a new sale
func (r *SaleRepository) Create(ctx context.Context, sale *credit.Sale) error {
	return r.client.Insert(ctx, collectionSales, saleRowFromDomain(sale), nil)
}

// MarkPaid moves a pending sale to paid; the status filter keeps it one-way
func (r *SaleRepository) MarkPaid(ctx context.Context, id uuid.UUID, settledAt time.Time) (bool, error) {
	patch := map[string]any{
		"payment_status": string(credit.PaymentStatusPaid),
		"settled_at":     settledAt,
		"updated_at":     time.Now(),
	}
	n, err := r.client.Update(ctx, collectionSales, patch,
		NewQuery().Eq("id", id).Eq("payment_status", string(credit.PaymentStatusPending)))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// InstallmentRepository implements credit.InstallmentRepository over the remote store
type InstallmentRepository struct {
	client *Client
}

func maturityOrder(q *Query) *Query {
	return q.Order("due_date", false).Order("number", false).Order("created_at", false).Order("id", false)
}

// FindByID finds an installment by its ID
func (r *InstallmentRepository) FindByID(ctx context.Context, id uuid.UUID) (*credit.Installment, error) {
	var rows []installmentRow
	if err := r.client.Query(ctx, collectionInstallments, NewQuery().Eq("id", id).Limit(1), &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, shared.ErrNotFound
	}
	inst := rows[0].toDomain()
	return &inst, nil
}

// FindBySale returns every installment of a sale ordered by due date
func (r *InstallmentRepository) FindBySale(ctx context.Context, saleID uuid.UUID) ([]credit.Installment, error) {
	return r.query(ctx, maturityOrder(NewQuery().Eq("sale_id", saleID)))
}

// FindUnpaidBySales returns the not-yet-paid installments of the given sales
func (r *InstallmentRepository) FindUnpaidBySales(ctx context.Context, saleIDs []uuid.UUID) ([]credit.Installment, error) {
	if len(saleIDs) == 0 {
		return []credit.Installment{}, nil
	}
	ids := lo.Map(lo.Uniq(saleIDs), func(id uuid.UUID, _ int) any { return id })
	q := NewQuery().In("sale_id", ids...).Neq("status", string(credit.InstallmentStatusPaid))
	return r.query(ctx, maturityOrder(q))
}

// FindAll finds the installments matching the filter. A client filter is resolved
// to that client's sales first.
func (r *InstallmentRepository) FindAll(ctx context.Context, filter credit.InstallmentFilter) ([]credit.Installment, error) {
	q := NewQuery()
	if filter.ClientID != nil {
		var sales []saleRow
		if err := r.client.Query(ctx, collectionSales, NewQuery().Eq("client_id", *filter.ClientID), &sales); err != nil {
			return nil, err
		}
		if len(sales) == 0 {
			return []credit.Installment{}, nil
		}
		q.In("sale_id", lo.Map(sales, func(s saleRow, _ int) any { return s.ID })...)
	}
	if filter.SaleID != nil {
		q.Eq("sale_id", *filter.SaleID)
	}
	if filter.Status != nil {
		q.Eq("status", string(*filter.Status))
	}
	if filter.DueBefore != nil {
		q.Lt("due_date", filter.DueBefore.Format(dateLayout))
	}
	if filter.DueFrom != nil {
		q.Gte("due_date", filter.DueFrom.Format(dateLayout))
	}
	q.Limit(filter.PageSize).Offset(filter.Offset())
	return r.query(ctx, maturityOrder(q))
}

func (r *InstallmentRepository) query(ctx context.Context, q *Query) ([]credit.Installment, error) {
	var rows []installmentRow
	if err := r.client.Query(ctx, collectionInstallments, q, &rows); err != nil {
		return nil, err
	}
	return lo.Map(rows, func(row installmentRow, _ int) credit.Installment { return row.toDomain() }), nil
}

// CreateBatch inserts the schedule in a single bulk request
func (r *InstallmentRepository) CreateBatch(ctx context.Context, installments []credit.Installment) error {
	if len(installments) == 0 {
		return nil
	}
	rows := make([]installmentRow, len(installments))
	for i := range installments {
		rows[i] = installmentRowFromDomain(&installments[i])
	}
	return r.client.Insert(ctx, collectionInstallments, rows, nil)
}

// ApplyPayment patches the installment only while version and amount_paid still
// hold the values the plan was computed from.
func (r *InstallmentRepository) ApplyPayment(ctx context.Context, entry credit.PlanEntry) error {
	now := time.Now()
	patch := map[string]any{
		"amount_paid": entry.NewAmountPaid,
		"status":      string(entry.NewStatus),
		"version":     entry.ExpectedVersion + 1,
		"updated_at":  now,
	}
	if entry.SettlesInstallment() {
		patch["paid_at"] = now
	}
	q := matchVersion(NewQuery().Eq("id", entry.InstallmentID), entry.ExpectedVersion).
		Eq("amount_paid", entry.PreviousAmountPaid)
	return r.conditionalUpdate(ctx, patch, q)
}

// RevertPayment restores what ApplyPayment replaced for the same entry
func (r *InstallmentRepository) RevertPayment(ctx context.Context, entry credit.PlanEntry) error {
	patch := map[string]any{
		"amount_paid": entry.PreviousAmountPaid,
		"status":      string(entry.PreviousStatus),
		"version":     entry.ExpectedVersion + 2,
		"updated_at":  time.Now(),
	}
	if entry.SettlesInstallment() {
		patch["paid_at"] = nil
	}
	q := NewQuery().
		Eq("id", entry.InstallmentID).
		Eq("version", entry.ExpectedVersion+1).
		Eq("amount_paid", entry.NewAmountPaid)
	return r.conditionalUpdate(ctx, patch, q)
}

// matchVersion filters on the expected version. Rows read with a null version
// are loaded as version 1, so that case also matches null.
func matchVersion(q *Query, version int) *Query {
	if version <= 1 {
		return q.EqOrNull("version", 1)
	}
	return q.Eq("version", version)
}

func (r *InstallmentRepository) conditionalUpdate(ctx context.Context, patch map[string]any, q *Query) error {
	n, err := r.client.Update(ctx, collectionInstallments, patch, q)
	if err != nil {
		return err
	}
	if n == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// PaymentRecordRepository implements credit.PaymentRecordRepository over the remote store
type PaymentRecordRepository struct {
	client *Client
}

// Append inserts a ledger record
func (r *PaymentRecordRepository) Append(ctx context.Context, record *credit.PaymentRecord) error {
	return r.client.Insert(ctx, collectionPayments, paymentRecordRowFromDomain(record), nil)
}

// FindByClient returns a client's ledger, newest first
func (r *PaymentRecordRepository) FindByClient(ctx context.Context, clientID uuid.UUID, filter shared.Filter) ([]credit.PaymentRecord, error) {
	q := NewQuery().Eq("client_id", clientID)
	if receipt, ok := filter.Filters["receipt_no"].(string); ok && receipt != "" {
		q.Eq("receipt_no", receipt)
	}
	q.Order("created_at", !strings.EqualFold(filter.OrderDir, "asc")).Limit(filter.PageSize).Offset(filter.Offset())
	return r.query(ctx, q)
}

// FindByInstallment returns the ledger lines of one installment in insertion order
func (r *PaymentRecordRepository) FindByInstallment(ctx context.Context, installmentID uuid.UUID) ([]credit.PaymentRecord, error) {
	return r.query(ctx, NewQuery().Eq("installment_id", installmentID).Order("created_at", false))
}

func (r *PaymentRecordRepository) query(ctx context.Context, q *Query) ([]credit.PaymentRecord, error) {
	var rows []paymentRecordRow
	if err := r.client.Query(ctx, collectionPayments, q, &rows); err != nil {
		return nil, err
	}
	return lo.Map(rows, func(row paymentRecordRow, _ int) credit.PaymentRecord { return row.toDomain() }), nil
}

var (
	_ credit.ClientRepository        = (*ClientRepository)(nil)
	_ credit.SaleRepository          = (*SaleRepository)(nil)
	_ credit.InstallmentRepository   = (*InstallmentRepository)(nil)
	_ credit.PaymentRecordRepository = (*PaymentRecordRepository)(nil)
)
