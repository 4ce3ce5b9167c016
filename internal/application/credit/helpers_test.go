package credit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fiado/backend/internal/domain/credit"
	"github.com/fiado/backend/internal/domain/shared"
	"github.com/fiado/backend/internal/infrastructure/persistence"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// newTestStore opens an in-memory SQLite credit store
func newTestStore(t *testing.T) *persistence.GormStore {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, persistence.AutoMigrate(db))
	return persistence.NewGormStore(db)
}

// daysFromNow returns midnight UTC offset days away from today
func daysFromNow(offset int) time.Time {
	return time.Now().UTC().Truncate(24*time.Hour).AddDate(0, 0, offset)
}

func seedClient(t *testing.T, store credit.Store, name string) *credit.Client {
	client, err := credit.NewClient(name)
	require.NoError(t, err)
	require.NoError(t, store.Repositories().Clients.Save(context.Background(), client))
	return client
}

// scheduledInstallment describes one installment to seed
type scheduledInstallment struct {
	face string
	paid string
	due  time.Time
}

// seedCreditSale stores an installment sale for the client with the given schedule
func seedCreditSale(t *testing.T, store credit.Store, clientID uuid.UUID, schedule ...scheduledInstallment) (*credit.Sale, []credit.Installment) {
	ctx := context.Background()
	tol := credit.DefaultTolerance()

	total := decimal.Zero
	for _, s := range schedule {
		total = total.Add(dec(s.face))
	}
	sale, err := credit.NewSale(&clientID, total, credit.PaymentMethodInstallments)
	require.NoError(t, err)
	require.NoError(t, store.Repositories().Sales.Create(ctx, sale))

	installments := make([]credit.Installment, 0, len(schedule))
	for i, s := range schedule {
		inst, err := credit.NewInstallment(sale.ID, i+1, s.due, dec(s.face))
		require.NoError(t, err)
		if s.paid != "" {
			inst.AmountPaid = dec(s.paid)
			if tol.Covers(inst.AmountPaid, inst.FaceAmount) {
				inst.Status = credit.InstallmentStatusPaid
				paidAt := s.due
				inst.PaidAt = &paidAt
			}
		}
		installments = append(installments, *inst)
	}
	require.NoError(t, store.Repositories().Installments.CreateBatch(ctx, installments))
	return sale, installments
}

func loadInstallment(t *testing.T, store credit.Store, id uuid.UUID) *credit.Installment {
	inst, err := store.Repositories().Installments.FindByID(context.Background(), id)
	require.NoError(t, err)
	return inst
}

func loadSale(t *testing.T, store credit.Store, id uuid.UUID) *credit.Sale {
	sale, err := store.Repositories().Sales.FindByID(context.Background(), id)
	require.NoError(t, err)
	return sale
}

func ledger(t *testing.T, store credit.Store, clientID uuid.UUID) []credit.PaymentRecord {
	records, err := store.Repositories().Payments.FindByClient(context.Background(), clientID, shared.Filter{OrderBy: "created_at", OrderDir: "asc"})
	require.NoError(t, err)
	return records
}

// sequentialReceipts issues R-000001, R-000002, ...
type sequentialReceipts struct {
	n atomic.Int64
}

func (g *sequentialReceipts) NextReceiptNo() string {
	return fmt.Sprintf("R-%06d", g.n.Add(1))
}

// faults injects write failures into a wrapped store
type faults struct {
	mu           sync.Mutex
	conflicts    int // ApplyPayment calls to reject with a conflict
	appendsOK    int // payment appends allowed before failing; negative means unlimited
	revertErr    error
	applyCalls   int
	markPaidFail uuid.UUID // sale whose MarkPaid fails
}

var (
	errLedgerDown = errors.New("ledger unavailable")
	errSalesDown  = errors.New("sales write down")
)

func (f *faults) wrap(repos credit.Repositories) credit.Repositories {
	repos.Installments = &faultyInstallments{InstallmentRepository: repos.Installments, f: f}
	repos.Payments = &faultyPayments{PaymentRecordRepository: repos.Payments, f: f}
	repos.Sales = &faultySales{SaleRepository: repos.Sales, f: f}
	return repos
}

type faultySales struct {
	credit.SaleRepository
	f *faults
}

func (r *faultySales) MarkPaid(ctx context.Context, id uuid.UUID, settledAt time.Time) (bool, error) {
	r.f.mu.Lock()
	fail := r.f.markPaidFail == id
	r.f.mu.Unlock()
	if fail {
		return false, errSalesDown
	}
	return r.SaleRepository.MarkPaid(ctx, id, settledAt)
}

type faultyInstallments struct {
	credit.InstallmentRepository
	f *faults
}

func (r *faultyInstallments) ApplyPayment(ctx context.Context, entry credit.PlanEntry) error {
	r.f.mu.Lock()
	r.f.applyCalls++
	reject := r.f.conflicts > 0
	if reject {
		r.f.conflicts--
	}
	r.f.mu.Unlock()
	if reject {
		return shared.ErrConcurrencyConflict
	}
	return r.InstallmentRepository.ApplyPayment(ctx, entry)
}

func (r *faultyInstallments) RevertPayment(ctx context.Context, entry credit.PlanEntry) error {
	r.f.mu.Lock()
	err := r.f.revertErr
	r.f.mu.Unlock()
	if err != nil {
		return err
	}
	return r.InstallmentRepository.RevertPayment(ctx, entry)
}

type faultyPayments struct {
	credit.PaymentRecordRepository
	f *faults
}

func (r *faultyPayments) Append(ctx context.Context, record *credit.PaymentRecord) error {
	if record.Kind == credit.PaymentRecordKindPayment {
		r.f.mu.Lock()
		allowed := r.f.appendsOK != 0
		if r.f.appendsOK > 0 {
			r.f.appendsOK--
		}
		r.f.mu.Unlock()
		if !allowed {
			return errLedgerDown
		}
	}
	return r.PaymentRecordRepository.Append(ctx, record)
}

// faultyStore wraps a GormStore with injected faults. With transactional false
// Atomic runs fn directly, like the REST store does.
type faultyStore struct {
	inner         *persistence.GormStore
	f             *faults
	transactional bool
}

func newFaultyStore(inner *persistence.GormStore, transactional bool) *faultyStore {
	return &faultyStore{inner: inner, f: &faults{appendsOK: -1}, transactional: transactional}
}

func (s *faultyStore) Repositories() credit.Repositories {
	return s.f.wrap(s.inner.Repositories())
}

func (s *faultyStore) Atomic(ctx context.Context, fn func(ctx context.Context, repos credit.Repositories) error) error {
	if !s.transactional {
		return fn(ctx, s.Repositories())
	}
	return s.inner.Atomic(ctx, func(ctx context.Context, repos credit.Repositories) error {
		return fn(ctx, s.f.wrap(repos))
	})
}

func (s *faultyStore) Transactional() bool {
	return s.transactional
}

// MockEventPublisher is a mock implementation of shared.EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

// eventTypes lists the types of the published events in order
func eventTypes(events []shared.DomainEvent) []string {
	types := make([]string, len(events))
	for i, e := range events {
		types[i] = e.EventType()
	}
	return types
}
