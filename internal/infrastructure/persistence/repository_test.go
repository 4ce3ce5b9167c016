package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/fiado/backend/internal/domain/credit"
	"github.com/fiado/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupCreditTestDB creates an in-memory SQLite database with the credit tables
func setupCreditTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, AutoMigrate(db))
	return db
}

func day(offset int) time.Time {
	return time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, offset)
}

// seedCreditSale stores a client, an installment sale and its schedule
func seedCreditSale(t *testing.T, store *GormStore, faces ...string) (*credit.Client, *credit.Sale, []credit.Installment) {
	ctx := context.Background()
	repos := store.Repositories()

	client, err := credit.NewClient("Marta Gómez")
	require.NoError(t, err)
	require.NoError(t, repos.Clients.Save(ctx, client))

	total := decimal.Zero
	for _, f := range faces {
		total = total.Add(decimal.RequireFromString(f))
	}
	sale, err := credit.NewSale(&client.ID, total, credit.PaymentMethodInstallments)
	require.NoError(t, err)
	require.NoError(t, repos.Sales.Create(ctx, sale))

	installments := make([]credit.Installment, 0, len(faces))
	for i, f := range faces {
		inst, err := credit.NewInstallment(sale.ID, i+1, day(30*i), decimal.RequireFromString(f))
		require.NoError(t, err)
		installments = append(installments, *inst)
	}
	require.NoError(t, repos.Installments.CreateBatch(ctx, installments))
	return client, sale, installments
}

func TestGormClientRepository_SaveAndFind(t *testing.T) {
	store := NewGormStore(setupCreditTestDB(t))
	repo := store.Repositories().Clients
	ctx := context.Background()

	for _, name := range []string{"Ana Pérez", "Bruno Díaz", "Carla Ruiz"} {
		c, err := credit.NewClient(name)
		require.NoError(t, err)
		c.SetDocument("DOC-" + name[:1])
		require.NoError(t, repo.Save(ctx, c))
	}

	t.Run("search is case insensitive on name", func(t *testing.T) {
		filter := shared.DefaultFilter()
		filter.OrderBy = ""
		filter.Search = "bruno"
		clients, err := repo.FindAll(ctx, filter)
		require.NoError(t, err)
		require.Len(t, clients, 1)
		assert.Equal(t, "Bruno Díaz", clients[0].Name)
	})

	t.Run("count ignores pagination", func(t *testing.T) {
		filter := shared.DefaultFilter()
		filter.PageSize = 1
		count, err := repo.Count(ctx, filter)
		require.NoError(t, err)
		assert.Equal(t, int64(3), count)

		page, err := repo.FindAll(ctx, filter)
		require.NoError(t, err)
		assert.Len(t, page, 1)
	})

	t.Run("unknown sort field falls back to name", func(t *testing.T) {
		filter := shared.Filter{OrderBy: "name; DROP TABLE clients", OrderDir: "asc"}
		clients, err := repo.FindAll(ctx, filter)
		require.NoError(t, err)
		require.Len(t, clients, 3)
		assert.Equal(t, "Ana Pérez", clients[0].Name)
	})

	t.Run("missing client maps to not found", func(t *testing.T) {
		_, err := repo.FindByID(ctx, uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestGormSaleRepository_MarkPaid(t *testing.T) {
	store := NewGormStore(setupCreditTestDB(t))
	_, sale, _ := seedCreditSale(t, store, "100")
	repo := store.Repositories().Sales
	ctx := context.Background()

	changed, err := repo.MarkPaid(ctx, sale.ID, time.Now())
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = repo.MarkPaid(ctx, sale.ID, time.Now())
	require.NoError(t, err)
	assert.False(t, changed, "a paid sale is never updated again")

	stored, err := repo.FindByID(ctx, sale.ID)
	require.NoError(t, err)
	assert.Equal(t, credit.PaymentStatusPaid, stored.PaymentStatus)
	assert.NotNil(t, stored.SettledAt)
	assert.Equal(t, 2, stored.Version)
}

func TestGormSaleRepository_FindCreditSalesByClient(t *testing.T) {
	store := NewGormStore(setupCreditTestDB(t))
	client, sale, _ := seedCreditSale(t, store, "50", "50")
	ctx := context.Background()

	cash, err := credit.NewSale(&client.ID, decimal.NewFromInt(20), credit.PaymentMethodCash)
	require.NoError(t, err)
	require.NoError(t, store.Repositories().Sales.Create(ctx, cash))

	sales, err := store.Repositories().Sales.FindCreditSalesByClient(ctx, client.ID)
	require.NoError(t, err)
	require.Len(t, sales, 1)
	assert.Equal(t, sale.ID, sales[0].ID)
	assert.True(t, sales[0].Total.Equal(decimal.NewFromInt(100)))
}

func TestGormInstallmentRepository_FindUnpaidBySales(t *testing.T) {
	store := NewGormStore(setupCreditTestDB(t))
	_, sale, installments := seedCreditSale(t, store, "100", "100", "100")
	repo := store.Repositories().Installments
	ctx := context.Background()

	entry := planEntryFor(installments[0], "100", credit.InstallmentStatusPaid)
	require.NoError(t, repo.ApplyPayment(ctx, entry))

	unpaid, err := repo.FindUnpaidBySales(ctx, []uuid.UUID{sale.ID, sale.ID})
	require.NoError(t, err)
	require.Len(t, unpaid, 2)
	assert.Equal(t, 2, unpaid[0].Number)
	assert.Equal(t, 3, unpaid[1].Number)

	none, err := repo.FindUnpaidBySales(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestGormInstallmentRepository_ApplyAndRevert(t *testing.T) {
	store := NewGormStore(setupCreditTestDB(t))
	_, _, installments := seedCreditSale(t, store, "100")
	repo := store.Repositories().Installments
	ctx := context.Background()
	inst := installments[0]

	t.Run("partial payment keeps pending and bumps version", func(t *testing.T) {
		entry := planEntryFor(inst, "40", credit.InstallmentStatusPending)
		require.NoError(t, repo.ApplyPayment(ctx, entry))

		stored, err := repo.FindByID(ctx, inst.ID)
		require.NoError(t, err)
		assert.True(t, stored.AmountPaid.Equal(decimal.NewFromInt(40)))
		assert.Equal(t, credit.InstallmentStatusPending, stored.Status)
		assert.Equal(t, 2, stored.Version)
		assert.Nil(t, stored.PaidAt)
	})

	t.Run("stale entry is rejected", func(t *testing.T) {
		stale := planEntryFor(inst, "60", credit.InstallmentStatusPaid)
		err := repo.ApplyPayment(ctx, stale)
		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
	})

	t.Run("fresh entry settles and revert restores", func(t *testing.T) {
		current, err := repo.FindByID(ctx, inst.ID)
		require.NoError(t, err)
		entry := planEntryFor(*current, "60", credit.InstallmentStatusPaid)
		require.NoError(t, repo.ApplyPayment(ctx, entry))

		paid, err := repo.FindByID(ctx, inst.ID)
		require.NoError(t, err)
		assert.Equal(t, credit.InstallmentStatusPaid, paid.Status)
		assert.NotNil(t, paid.PaidAt)

		require.NoError(t, repo.RevertPayment(ctx, entry))
		reverted, err := repo.FindByID(ctx, inst.ID)
		require.NoError(t, err)
		assert.True(t, reverted.AmountPaid.Equal(decimal.NewFromInt(40)))
		assert.Equal(t, credit.InstallmentStatusPending, reverted.Status)
		assert.Nil(t, reverted.PaidAt)
		assert.Equal(t, 4, reverted.Version)

		assert.ErrorIs(t, repo.RevertPayment(ctx, entry), shared.ErrConcurrencyConflict)
	})
}

func TestGormInstallmentRepository_FindAll(t *testing.T) {
	store := NewGormStore(setupCreditTestDB(t))
	client, sale, _ := seedCreditSale(t, store, "10", "20", "30")
	seedCreditSale(t, store, "99")
	repo := store.Repositories().Installments
	ctx := context.Background()

	byClient, err := repo.FindAll(ctx, credit.InstallmentFilter{ClientID: &client.ID})
	require.NoError(t, err)
	require.Len(t, byClient, 3)
	for _, inst := range byClient {
		assert.Equal(t, sale.ID, inst.SaleID)
	}

	due := day(30)
	before, err := repo.FindAll(ctx, credit.InstallmentFilter{ClientID: &client.ID, DueBefore: &due})
	require.NoError(t, err)
	require.Len(t, before, 1)
	assert.Equal(t, 1, before[0].Number)

	from, err := repo.FindAll(ctx, credit.InstallmentFilter{SaleID: &sale.ID, DueFrom: &due})
	require.NoError(t, err)
	assert.Len(t, from, 2)

	pending := credit.InstallmentStatusPending
	all, err := repo.FindAll(ctx, credit.InstallmentFilter{Status: &pending})
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestGormPaymentRecordRepository(t *testing.T) {
	store := NewGormStore(setupCreditTestDB(t))
	client, _, installments := seedCreditSale(t, store, "100")
	repo := store.Repositories().Payments
	ctx := context.Background()

	pc := credit.PaymentContext{
		ClientID:   client.ID,
		UserID:     uuid.New(),
		Method:     credit.PaymentMethodCash,
		Reference:  "caja 2",
		ChannelTag: credit.ChannelTagGlobal,
		ReceiptNo:  "R-1",
	}
	record, err := credit.NewPaymentRecord(planEntryFor(installments[0], "25", credit.InstallmentStatusPending), pc)
	require.NoError(t, err)
	require.NoError(t, repo.Append(ctx, record))
	require.NoError(t, repo.Append(ctx, credit.NewReversalRecord(record, "conflict")))

	byClient, err := repo.FindByClient(ctx, client.ID, shared.DefaultFilter())
	require.NoError(t, err)
	assert.Len(t, byClient, 2)

	filter := shared.DefaultFilter()
	filter.Filters["receipt_no"] = "R-2"
	none, err := repo.FindByClient(ctx, client.ID, filter)
	require.NoError(t, err)
	assert.Empty(t, none)

	lines, err := repo.FindByInstallment(ctx, installments[0].ID)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	references := []string{lines[0].Reference, lines[1].Reference}
	assert.ElementsMatch(t, []string{"caja 2 (Abono Global)", "Reversal: conflict"}, references)
	assert.True(t, lines[0].Amount.Add(lines[1].Amount).IsZero())
}

func TestGormStore_AtomicRollsBack(t *testing.T) {
	store := NewGormStore(setupCreditTestDB(t))
	_, _, installments := seedCreditSale(t, store, "100")
	ctx := context.Background()
	assert.True(t, store.Transactional())

	err := store.Atomic(ctx, func(ctx context.Context, repos credit.Repositories) error {
		if err := repos.Installments.ApplyPayment(ctx, planEntryFor(installments[0], "100", credit.InstallmentStatusPaid)); err != nil {
			return err
		}
		return shared.ErrStoreUnavailable
	})
	assert.ErrorIs(t, err, shared.ErrStoreUnavailable)

	stored, err := store.Repositories().Installments.FindByID(ctx, installments[0].ID)
	require.NoError(t, err)
	assert.True(t, stored.AmountPaid.IsZero())
	assert.Equal(t, 1, stored.Version)
}

func planEntryFor(inst credit.Installment, amount string, status credit.InstallmentStatus) credit.PlanEntry {
	applied := decimal.RequireFromString(amount)
	return credit.PlanEntry{
		InstallmentID:      inst.ID,
		SaleID:             inst.SaleID,
		DueDate:            inst.DueDate,
		FaceAmount:         inst.FaceAmount,
		PreviousAmountPaid: inst.AmountPaid,
		PreviousStatus:     inst.Status,
		ExpectedVersion:    inst.Version,
		AmountApplied:      applied,
		NewAmountPaid:      inst.AmountPaid.Add(applied),
		NewStatus:          status,
	}
}
