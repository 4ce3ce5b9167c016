package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	creditapp "github.com/fiado/backend/internal/application/credit"
	"github.com/fiado/backend/internal/domain/shared"
	"github.com/fiado/backend/internal/interfaces/http/dto"
	"github.com/fiado/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

// MockPaymentRegistrar is a mock implementation of PaymentRegistrar
type MockPaymentRegistrar struct {
	mock.Mock
}

func (m *MockPaymentRegistrar) RegisterPayment(ctx context.Context, in creditapp.RegisterPaymentInput) (*creditapp.PaymentResult, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*creditapp.PaymentResult), args.Error(1)
}

// MockClientDirectory is a mock implementation of ClientDirectory
type MockClientDirectory struct {
	mock.Mock
}

func (m *MockClientDirectory) Create(ctx context.Context, in creditapp.CreateClientInput) (*creditapp.ClientResponse, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*creditapp.ClientResponse), args.Error(1)
}

func (m *MockClientDirectory) Get(ctx context.Context, id uuid.UUID) (*creditapp.ClientResponse, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*creditapp.ClientResponse), args.Error(1)
}

func (m *MockClientDirectory) List(ctx context.Context, in creditapp.ListClientsInput) (*shared.Paginated[creditapp.ClientResponse], error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.Paginated[creditapp.ClientResponse]), args.Error(1)
}

func (m *MockClientDirectory) Debt(ctx context.Context, clientID uuid.UUID) (*creditapp.DebtResponse, error) {
	args := m.Called(ctx, clientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*creditapp.DebtResponse), args.Error(1)
}

func (m *MockClientDirectory) Payments(ctx context.Context, clientID uuid.UUID, page, pageSize int) ([]creditapp.PaymentRecordResponse, error) {
	args := m.Called(ctx, clientID, page, pageSize)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]creditapp.PaymentRecordResponse), args.Error(1)
}

// MockSaleRecorder is a mock implementation of SaleRecorder
type MockSaleRecorder struct {
	mock.Mock
}

func (m *MockSaleRecorder) CreateSale(ctx context.Context, in creditapp.CreateSaleInput) (*creditapp.SaleResponse, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*creditapp.SaleResponse), args.Error(1)
}

func (m *MockSaleRecorder) GetSale(ctx context.Context, id uuid.UUID) (*creditapp.SaleResponse, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*creditapp.SaleResponse), args.Error(1)
}

// MockInstallmentPortfolio is a mock implementation of InstallmentPortfolio
type MockInstallmentPortfolio struct {
	mock.Mock
}

func (m *MockInstallmentPortfolio) List(ctx context.Context, in creditapp.ListInstallmentsInput) (*shared.Paginated[creditapp.InstallmentResponse], error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.Paginated[creditapp.InstallmentResponse]), args.Error(1)
}

func (m *MockInstallmentPortfolio) Stats(ctx context.Context, clientID *uuid.UUID) (*creditapp.StatsResponse, error) {
	args := m.Called(ctx, clientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*creditapp.StatsResponse), args.Error(1)
}

func (m *MockInstallmentPortfolio) SettleInstallment(ctx context.Context, in creditapp.SettleInstallmentInput) (*creditapp.PaymentResult, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*creditapp.PaymentResult), args.Error(1)
}

func (m *MockInstallmentPortfolio) ExportPortfolio(ctx context.Context, view string, clientID *uuid.UUID) (*creditapp.ExportResult, error) {
	args := m.Called(ctx, view, clientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*creditapp.ExportResult), args.Error(1)
}

// setCaller simulates a request that passed the JWT middleware
func setCaller(userID uuid.UUID) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.JWTUserIDKey, userID.String())
		c.Next()
	}
}

func performJSON(t *testing.T, r http.Handler, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}
