package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	creditapp "github.com/fiado/backend/internal/application/credit"
	"github.com/fiado/backend/internal/domain/credit"
	"github.com/fiado/backend/internal/infrastructure/auth"
	"github.com/fiado/backend/internal/infrastructure/cache"
	"github.com/fiado/backend/internal/infrastructure/config"
	"github.com/fiado/backend/internal/infrastructure/idgen"
	"github.com/fiado/backend/internal/infrastructure/persistence"
	"github.com/fiado/backend/internal/interfaces/http/dto"
	"github.com/fiado/backend/internal/interfaces/http/handler"
	"github.com/fiado/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

func TestNewRouter(t *testing.T) {
	r := NewRouter(gin.New())

	assert.NotNil(t, r)
	assert.Equal(t, "v1", r.apiVersion)
	assert.Empty(t, r.registrars)
}

func TestRouterWithAPIVersion(t *testing.T) {
	r := NewRouter(gin.New(), WithAPIVersion("v2"))

	assert.Equal(t, "v2", r.apiVersion)
}

func TestRouterSetup(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine)

	group := NewDomainGroup("test", "/test")
	group.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})
	r.Register(group)
	r.Setup()

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/test/ping", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())
}

func TestRouterMiddlewareAppliesToGroups(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine)
	r.Use(func(c *gin.Context) {
		c.Header("X-Group", "yes")
		c.Next()
	})

	r.Register(NewDomainGroup("a", "/a").GET("", func(c *gin.Context) { c.Status(http.StatusOK) }))
	api := r.Setup()
	api.GET("/open", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/a", nil))
	assert.Equal(t, "yes", w.Header().Get("X-Group"))

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/open", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("X-Group"))
}

func TestDomainGroup(t *testing.T) {
	t.Run("name and prefix", func(t *testing.T) {
		g := NewDomainGroup("credit", "/credit")
		assert.Equal(t, "credit", g.Name())
		assert.Equal(t, "/credit", g.Prefix())
	})

	t.Run("nested groups with middleware", func(t *testing.T) {
		engine := gin.New()
		g := NewDomainGroup("outer", "/outer").Use(func(c *gin.Context) {
			c.Header("X-Outer", "1")
			c.Next()
		})
		g.Group("inner", "/inner").POST("/items", func(c *gin.Context) {
			c.String(http.StatusCreated, "created")
		})
		g.RegisterRoutes(engine.Group("/api/v1"))

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/outer/inner/items", nil))

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, "1", w.Header().Get("X-Outer"))
	})
}

type testApp struct {
	engine *gin.Engine
	token  string
	userID uuid.UUID
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	db, err := persistence.NewSQLiteDatabase(":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, persistence.AutoMigrate(db.DB))

	store := persistence.NewGormStore(db.DB)
	tol := credit.DefaultTolerance()
	receipts, err := idgen.NewSnowflakeReceiptGenerator(1)
	require.NoError(t, err)
	replay := cache.NewInMemoryReplayStore()
	t.Cleanup(func() { _ = replay.Close() })

	payments := creditapp.NewPaymentService(store, credit.NewAllocationEngine(tol), receipts,
		creditapp.WithReplayStore(replay))
	installments := creditapp.NewInstallmentService(store, payments)

	jwtService := auth.NewJWTService(config.JWTConfig{
		Secret:                "router-test-secret-with-enough-length",
		Issuer:                "fiado-test",
		AccessTokenExpiration: time.Hour,
	})
	userID := uuid.New()
	token, _, err := jwtService.GenerateAccessToken(userID, "cashier@example.test")
	require.NoError(t, err)

	system := handler.NewSystemHandler("test").AddCheck("database", db.PingContext)

	engine := NewEngine(EngineConfig{
		HTTP:       config.HTTPConfig{MaxBodySize: 1 << 20},
		JWTService: jwtService,
		System:     system,
		Credit: CreditHandlers{
			Payments:     handler.NewPaymentHandler(payments),
			Clients:      handler.NewClientHandler(creditapp.NewClientService(store, tol, time.Second, nil)),
			Sales:        handler.NewSaleHandler(creditapp.NewSaleService(store, tol, time.Second, nil)),
			Installments: handler.NewInstallmentHandler(installments),
		},
	})

	return &testApp{engine: engine, token: token, userID: userID}
}

func (a *testApp) do(t *testing.T, method, path string, body any, headers map[string]string) (*httptest.ResponseRecorder, dto.Response) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.token)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)

	var resp dto.Response
	if w.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w, resp
}

func dataMap(t *testing.T, resp dto.Response) map[string]any {
	t.Helper()
	m, ok := resp.Data.(map[string]any)
	require.True(t, ok, "response data is not an object: %#v", resp.Data)
	return m
}

func TestEngine_PublicEndpoints(t *testing.T) {
	app := newTestApp(t)

	w := httptest.NewRecorder()
	app.engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))

	w = httptest.NewRecorder()
	app.engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestEngine_CreditRoutesRequireToken(t *testing.T) {
	app := newTestApp(t)

	w := httptest.NewRecorder()
	app.engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/credit/installments", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestEngine_PaymentLifecycle(t *testing.T) {
	app := newTestApp(t)
	today := time.Now().UTC()
	day := func(offset int) string { return today.AddDate(0, 0, offset).Format(dto.DateLayout) }

	w, resp := app.do(t, http.MethodPost, "/api/v1/credit/clients", map[string]any{
		"name":  "Rosa Díaz",
		"phone": "555-0199",
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	clientID := dataMap(t, resp)["id"].(string)

	w, resp = app.do(t, http.MethodPost, "/api/v1/credit/sales", map[string]any{
		"client_id":      clientID,
		"total":          "300.00",
		"payment_method": "installments",
		"installments": []map[string]any{
			{"due_date": day(-30), "amount": "100.00"},
			{"due_date": day(30), "amount": "100.00"},
			{"due_date": day(60), "amount": "100.00"},
		},
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	sale := dataMap(t, resp)
	saleID := sale["id"].(string)
	schedule := sale["installments"].([]any)
	require.Len(t, schedule, 3)
	secondID := schedule[1].(map[string]any)["id"].(string)

	// 150 covers the overdue installment and half of the next one
	key := map[string]string{dto.IdempotencyKeyHeader: "abono-1"}
	w, resp = app.do(t, http.MethodPost, "/api/v1/credit/payments", map[string]any{
		"client_id": clientID,
		"amount":    "150",
	}, key)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	first := dataMap(t, resp)
	assert.Equal(t, "applied", first["status"])
	assert.Equal(t, "150", first["amount_applied"])
	assert.Len(t, first["detail"].([]any), 2)

	w, resp = app.do(t, http.MethodPost, "/api/v1/credit/payments", map[string]any{
		"client_id": clientID,
		"amount":    "150",
	}, key)
	require.Equal(t, http.StatusOK, w.Code)
	replayed := dataMap(t, resp)
	assert.Equal(t, first["receipt_no"], replayed["receipt_no"])
	assert.Equal(t, true, replayed["replayed"])

	w, resp = app.do(t, http.MethodGet, "/api/v1/credit/clients/"+clientID+"/debt", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	debt := dataMap(t, resp)
	assert.Equal(t, "150", debt["total_outstanding"])
	assert.Len(t, debt["installments"].([]any), 2)

	w, resp = app.do(t, http.MethodPost, "/api/v1/credit/installments/"+secondID+"/settle", map[string]any{
		"method": "transfer",
	}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "50", dataMap(t, resp)["amount_applied"])

	w, _ = app.do(t, http.MethodPost, "/api/v1/credit/installments/"+secondID+"/settle", nil, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	// overpaying the last installment leaves an informational remainder
	w, resp = app.do(t, http.MethodPost, "/api/v1/credit/payments/direct", map[string]any{
		"client_id": clientID,
		"amount":    "120",
	}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	last := dataMap(t, resp)
	assert.Equal(t, "100", last["amount_applied"])
	assert.Equal(t, "20", last["remainder"])
	assert.Equal(t, []any{saleID}, last["sales_settled"])

	w, resp = app.do(t, http.MethodGet, "/api/v1/credit/sales/"+saleID, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "paid", dataMap(t, resp)["payment_status"])

	w, resp = app.do(t, http.MethodPost, "/api/v1/credit/payments", map[string]any{
		"client_id": clientID,
		"amount":    "10",
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "no_debt", dataMap(t, resp)["status"])

	w, resp = app.do(t, http.MethodGet, "/api/v1/credit/installments?status=paid&client_id="+clientID, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, int64(3), resp.Meta.Total)

	w, resp = app.do(t, http.MethodGet, "/api/v1/credit/clients/"+clientID+"/payments", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	ledger := resp.Data.([]any)
	require.Len(t, ledger, 4)
	assert.Equal(t, app.userID.String(), ledger[0].(map[string]any)["user_id"])
}

func TestEngine_ExportDisabledWithoutRenderer(t *testing.T) {
	app := newTestApp(t)

	w, resp := app.do(t, http.MethodGet, "/api/v1/credit/installments/export", nil, nil)

	assert.Equal(t, http.StatusNotImplemented, w.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, dto.ErrCodeFeatureDisabled, resp.Error.Code)
}
