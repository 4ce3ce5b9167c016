package credit

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/fiado/backend/internal/domain/credit"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockPortfolioRenderer is a mock implementation of PortfolioRenderer
type MockPortfolioRenderer struct {
	mock.Mock
}

func (m *MockPortfolioRenderer) RenderPortfolio(rows []PortfolioRow, stats credit.PortfolioStats, generatedAt time.Time) ([]byte, error) {
	args := m.Called(rows, stats, generatedAt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockPortfolioRenderer) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// MockExportStorage is a mock implementation of ExportStorage
type MockExportStorage struct {
	mock.Mock
}

func (m *MockExportStorage) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	args := m.Called(ctx, key, data, contentType)
	return args.Error(0)
}

func (m *MockExportStorage) GenerateDownloadURL(ctx context.Context, key string, expiresIn time.Duration) (string, time.Time, error) {
	args := m.Called(ctx, key, expiresIn)
	return args.String(0), args.Get(1).(time.Time), args.Error(2)
}

// seedPortfolio stores two clients with installments in every state
func seedPortfolio(t *testing.T, store credit.Store) (*credit.Client, *credit.Client, []credit.Installment) {
	ana := seedClient(t, store, "Ana")
	beto := seedClient(t, store, "Beto")
	_, anaInsts := seedCreditSale(t, store, ana.ID,
		scheduledInstallment{face: "100", paid: "100", due: daysFromNow(-60)},
		scheduledInstallment{face: "100", paid: "30", due: daysFromNow(-30)},
		scheduledInstallment{face: "100", due: daysFromNow(30)},
	)
	_, betoInsts := seedCreditSale(t, store, beto.ID,
		scheduledInstallment{face: "50", due: daysFromNow(-10)},
		scheduledInstallment{face: "50", due: daysFromNow(20)},
	)
	return ana, beto, append(anaInsts, betoInsts...)
}

func newInstallmentService(store credit.Store, opts ...InstallmentServiceOption) *InstallmentService {
	return NewInstallmentService(store, newPaymentService(store), opts...)
}

func TestInstallmentService_List(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	ana, _, _ := seedPortfolio(t, store)
	svc := newInstallmentService(store)

	tests := []struct {
		name     string
		input    ListInstallmentsInput
		expected int
	}{
		{"default view is pending", ListInstallmentsInput{}, 2},
		{"overdue", ListInstallmentsInput{View: "overdue"}, 2},
		{"legacy overdue name", ListInstallmentsInput{View: "vencido"}, 2},
		{"paid", ListInstallmentsInput{View: "paid"}, 1},
		{"all", ListInstallmentsInput{View: "all"}, 5},
		{"one client", ListInstallmentsInput{View: "all", ClientID: &ana.ID}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := svc.List(ctx, tt.input)
			require.NoError(t, err)
			assert.Equal(t, int64(tt.expected), page.Total)
			assert.Len(t, page.Items, tt.expected)
		})
	}

	t.Run("overdue items carry client and residual", func(t *testing.T) {
		page, err := svc.List(ctx, ListInstallmentsInput{View: "overdue"})
		require.NoError(t, err)
		require.Len(t, page.Items, 2)

		first := page.Items[0]
		assert.Equal(t, "Ana", first.ClientName)
		require.NotNil(t, first.ClientID)
		assert.Equal(t, ana.ID, *first.ClientID)
		assert.True(t, first.Residual.Equal(dec("70")))
		assert.True(t, first.Overdue)
		assert.Equal(t, "Beto", page.Items[1].ClientName)
	})

	t.Run("pages through the view", func(t *testing.T) {
		page, err := svc.List(ctx, ListInstallmentsInput{View: "all", Page: 2, PageSize: 2})
		require.NoError(t, err)
		assert.Equal(t, int64(5), page.Total)
		assert.Equal(t, 3, page.TotalPages)
		assert.Len(t, page.Items, 2)

		page, err = svc.List(ctx, ListInstallmentsInput{View: "all", Page: 4, PageSize: 2})
		require.NoError(t, err)
		assert.Empty(t, page.Items)
	})

	t.Run("unknown view", func(t *testing.T) {
		_, err := svc.List(ctx, ListInstallmentsInput{View: "late"})
		require.Error(t, err)
	})
}

func TestInstallmentService_Stats(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	_, beto, _ := seedPortfolio(t, store)
	svc := newInstallmentService(store)

	stats, err := svc.Stats(ctx, nil)
	require.NoError(t, err)
	assert.True(t, stats.ToCollect.Equal(dec("150")))
	assert.True(t, stats.Overdue.Equal(dec("120")))
	assert.True(t, stats.Recovered.Equal(dec("130")))
	assert.Equal(t, 2, stats.PendingCount)
	assert.Equal(t, 2, stats.OverdueCount)
	assert.Equal(t, 1, stats.PaidCount)

	stats, err = svc.Stats(ctx, &beto.ID)
	require.NoError(t, err)
	assert.True(t, stats.ToCollect.Equal(dec("50")))
	assert.True(t, stats.Overdue.Equal(dec("50")))
	assert.True(t, stats.Recovered.IsZero())
}

func TestInstallmentService_SettleInstallment(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	_, _, insts := seedPortfolio(t, store)
	svc := newInstallmentService(store)

	result, err := svc.SettleInstallment(ctx, SettleInstallmentInput{InstallmentID: insts[3].ID})
	require.NoError(t, err)
	assert.True(t, result.AmountApplied.Equal(dec("50")))

	_, err = svc.SettleInstallment(ctx, SettleInstallmentInput{InstallmentID: insts[0].ID})
	assert.ErrorIs(t, err, ErrInstallmentSettled)
}

func TestInstallmentService_ExportPortfolio(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the file inline without storage", func(t *testing.T) {
		store := newTestStore(t)
		seedPortfolio(t, store)
		renderer := new(MockPortfolioRenderer)
		renderer.On("RenderPortfolio", mock.MatchedBy(func(rows []PortfolioRow) bool {
			return len(rows) == 2 && rows[0].ClientName == "Ana" && rows[0].Residual.Equal(dec("70"))
		}), mock.Anything, mock.Anything).Return([]byte("xlsx"), nil)

		svc := newInstallmentService(store, WithPortfolioRenderer(renderer))
		result, err := svc.ExportPortfolio(ctx, "overdue", nil)
		require.NoError(t, err)

		assert.Equal(t, []byte("xlsx"), result.Data)
		assert.Equal(t, 2, result.Rows)
		assert.Empty(t, result.URL)
		assert.Nil(t, result.ExpiresAt)
		assert.True(t, strings.HasPrefix(result.FileName, "portfolio-overdue-"))
		assert.True(t, strings.HasSuffix(result.FileName, ".xlsx"))
		renderer.AssertExpectations(t)
	})

	t.Run("uploads and links with storage", func(t *testing.T) {
		store := newTestStore(t)
		seedPortfolio(t, store)
		renderer := new(MockPortfolioRenderer)
		renderer.On("RenderPortfolio", mock.Anything, mock.Anything, mock.Anything).Return([]byte("xlsx"), nil)

		expires := time.Now().Add(time.Hour)
		storage := new(MockExportStorage)
		storage.On("Upload", mock.Anything, mock.MatchedBy(func(key string) bool {
			return strings.HasPrefix(key, "portfolio/")
		}), []byte("xlsx"), renderer.ContentType()).Return(nil)
		storage.On("GenerateDownloadURL", mock.Anything, mock.Anything, time.Hour).
			Return("https://exports.example.com/portfolio.xlsx", expires, nil)

		svc := newInstallmentService(store, WithPortfolioRenderer(renderer), WithExportStorage(storage, time.Hour))
		result, err := svc.ExportPortfolio(ctx, "all", nil)
		require.NoError(t, err)

		assert.Equal(t, 5, result.Rows)
		assert.Nil(t, result.Data)
		assert.Equal(t, "https://exports.example.com/portfolio.xlsx", result.URL)
		require.NotNil(t, result.ExpiresAt)
		assert.Equal(t, expires, *result.ExpiresAt)
		storage.AssertExpectations(t)
	})

	t.Run("upload failure", func(t *testing.T) {
		store := newTestStore(t)
		renderer := new(MockPortfolioRenderer)
		renderer.On("RenderPortfolio", mock.Anything, mock.Anything, mock.Anything).Return([]byte("xlsx"), nil)
		storage := new(MockExportStorage)
		storage.On("Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("bucket gone"))

		svc := newInstallmentService(store, WithPortfolioRenderer(renderer), WithExportStorage(storage, 0))
		_, err := svc.ExportPortfolio(ctx, "", nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bucket gone")
	})

	t.Run("disabled without renderer", func(t *testing.T) {
		svc := newInstallmentService(newTestStore(t))
		_, err := svc.ExportPortfolio(ctx, "all", &uuid.UUID{})
		require.Error(t, err)
	})
}
