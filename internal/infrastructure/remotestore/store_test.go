package remotestore

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/fiado/backend/internal/domain/credit"
	"github.com/fiado/backend/internal/domain/shared"
	"github.com/fiado/backend/internal/infrastructure/auth"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	Method string
	Path   string
	Query  map[string][]string
	Header http.Header
	Body   string
}

// fakeRemote answers every request with the next queued response and records the request
type fakeRemote struct {
	mu        sync.Mutex
	requests  []recordedRequest
	responses []fakeResponse
}

type fakeResponse struct {
	status int
	body   string
	header map[string]string
}

func (f *fakeRemote) enqueue(status int, body string) {
	f.push(fakeResponse{status: status, body: body})
}

func (f *fakeRemote) push(resp fakeResponse) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses = append(f.responses, resp)
}

func (f *fakeRemote) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	body, _ := io.ReadAll(r.Body)
	f.requests = append(f.requests, recordedRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.Query(),
		Header: r.Header.Clone(),
		Body:   string(body),
	})

	resp := fakeResponse{status: http.StatusOK, body: "[]"}
	if len(f.responses) > 0 {
		resp, f.responses = f.responses[0], f.responses[1:]
	}
	for k, v := range resp.header {
		w.Header().Set(k, v)
	}
	w.WriteHeader(resp.status)
	_, _ = w.Write([]byte(resp.body))
}

func (f *fakeRemote) last(t *testing.T) recordedRequest {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.requests)
	return f.requests[len(f.requests)-1]
}

func newTestStore(t *testing.T) (*Store, *fakeRemote) {
	fake := &fakeRemote{}
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	client, err := NewClient(Config{BaseURL: server.URL + "/", APIKey: "anon-key", Timeout: 2 * time.Second})
	require.NoError(t, err)
	return NewStore(client), fake
}

func testEntry() credit.PlanEntry {
	return credit.PlanEntry{
		InstallmentID:      uuid.New(),
		SaleID:             uuid.New(),
		FaceAmount:         decimal.NewFromInt(100),
		PreviousAmountPaid: decimal.NewFromInt(40),
		PreviousStatus:     credit.InstallmentStatusPending,
		ExpectedVersion:    2,
		AmountApplied:      decimal.NewFromInt(60),
		NewAmountPaid:      decimal.NewFromInt(100),
		NewStatus:          credit.InstallmentStatusPaid,
	}
}

func TestNewClient_RejectsBadURL(t *testing.T) {
	_, err := NewClient(Config{BaseURL: "not a url"})
	assert.Error(t, err)
}

func TestClient_Credentials(t *testing.T) {
	store, fake := newTestStore(t)
	repos := store.Repositories()

	t.Run("api key is the default bearer", func(t *testing.T) {
		_, _ = repos.Clients.FindByID(context.Background(), uuid.New())
		req := fake.last(t)
		assert.Equal(t, "anon-key", req.Header.Get("apikey"))
		assert.Equal(t, "Bearer anon-key", req.Header.Get("Authorization"))
		assert.Equal(t, "/rest/v1/clients", req.Path)
	})

	t.Run("caller token from context", func(t *testing.T) {
		ctx := auth.WithBearerToken(context.Background(), "user-jwt")
		_, _ = repos.Clients.FindByID(ctx, uuid.New())
		assert.Equal(t, "Bearer user-jwt", fake.last(t).Header.Get("Authorization"))
	})

	t.Run("explicit token wins", func(t *testing.T) {
		scoped := NewStore(store.client.WithToken("Bearer pinned"))
		ctx := auth.WithBearerToken(context.Background(), "user-jwt")
		_, _ = scoped.Repositories().Clients.FindByID(ctx, uuid.New())
		assert.Equal(t, "Bearer pinned", fake.last(t).Header.Get("Authorization"))
		assert.Equal(t, "anon-key", fake.last(t).Header.Get("apikey"))
	})
}

func TestInstallmentRepository_ApplyPayment(t *testing.T) {
	t.Run("patch is conditional on the previous amount", func(t *testing.T) {
		store, fake := newTestStore(t)
		entry := testEntry()
		fake.enqueue(http.StatusOK, `[{"id":"`+entry.InstallmentID.String()+`"}]`)

		err := store.Repositories().Installments.ApplyPayment(context.Background(), entry)
		require.NoError(t, err)

		req := fake.last(t)
		assert.Equal(t, http.MethodPatch, req.Method)
		assert.Equal(t, "/rest/v1/installments", req.Path)
		assert.Equal(t, []string{"eq." + entry.InstallmentID.String()}, req.Query["id"])
		assert.Equal(t, []string{"eq.40"}, req.Query["amount_paid"])
		assert.Equal(t, []string{"eq.2"}, req.Query["version"])
		assert.Equal(t, "return=representation", req.Header.Get("Prefer"))

		var patch map[string]any
		require.NoError(t, json.Unmarshal([]byte(req.Body), &patch))
		assert.Equal(t, "100", patch["amount_paid"])
		assert.Equal(t, "paid", patch["status"])
		assert.EqualValues(t, 3, patch["version"])
		assert.Contains(t, patch, "paid_at")
	})

	t.Run("first version also matches rows without a version", func(t *testing.T) {
		store, fake := newTestStore(t)
		entry := testEntry()
		entry.ExpectedVersion = 1
		fake.enqueue(http.StatusOK, `[{}]`)

		require.NoError(t, store.Repositories().Installments.ApplyPayment(context.Background(), entry))
		req := fake.last(t)
		assert.Empty(t, req.Query["version"])
		assert.Equal(t, []string{"(version.eq.1,version.is.null)"}, req.Query["or"])
	})

	t.Run("no matching row is a conflict", func(t *testing.T) {
		store, fake := newTestStore(t)
		fake.enqueue(http.StatusOK, `[]`)

		err := store.Repositories().Installments.ApplyPayment(context.Background(), testEntry())
		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
	})

	t.Run("revert matches the applied amount", func(t *testing.T) {
		store, fake := newTestStore(t)
		entry := testEntry()
		fake.enqueue(http.StatusOK, `[{}]`)

		require.NoError(t, store.Repositories().Installments.RevertPayment(context.Background(), entry))
		req := fake.last(t)
		assert.Equal(t, []string{"eq.100"}, req.Query["amount_paid"])
		assert.Equal(t, []string{"eq.3"}, req.Query["version"])

		var patch map[string]any
		require.NoError(t, json.Unmarshal([]byte(req.Body), &patch))
		assert.Equal(t, "40", patch["amount_paid"])
		assert.Equal(t, "pending", patch["status"])
		assert.Nil(t, patch["paid_at"])
	})
}

func TestClient_ErrorMapping(t *testing.T) {
	store, fake := newTestStore(t)
	repos := store.Repositories()

	fake.enqueue(http.StatusServiceUnavailable, `{"message":"upstream down"}`)
	_, err := repos.Sales.FindByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, shared.ErrStoreUnavailable)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "upstream down", apiErr.Message)

	fake.enqueue(http.StatusUnauthorized, `{"message":"JWT expired"}`)
	_, err = repos.Sales.FindByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, shared.ErrUnauthorized)

	fake.enqueue(http.StatusBadRequest, `{"code":"PGRST100","message":"bad filter"}`)
	_, err = repos.Sales.FindByID(context.Background(), uuid.New())
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "PGRST100", apiErr.Code)
	assert.NotErrorIs(t, err, shared.ErrStoreUnavailable)
}

func TestClient_UnreachableStore(t *testing.T) {
	client, err := NewClient(Config{BaseURL: "http://127.0.0.1:1", Timeout: time.Second})
	require.NoError(t, err)

	_, err = NewStore(client).Repositories().Sales.FindByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, shared.ErrStoreUnavailable)
}

func TestInstallmentRepository_FindUnpaidBySales(t *testing.T) {
	store, fake := newTestStore(t)
	saleID := uuid.New()
	instID := uuid.New()
	fake.enqueue(http.StatusOK, `[{
		"id":"`+instID.String()+`","sale_id":"`+saleID.String()+`","number":2,
		"due_date":"2025-04-01","face_amount":100.00,"amount_paid":"25.5",
		"status":"pending","paid_at":null,"version":null,
		"created_at":"2025-03-01T10:00:00.123456+00:00","updated_at":"2025-03-01T10:00:00+00:00"
	}]`)

	installments, err := store.Repositories().Installments.FindUnpaidBySales(context.Background(), []uuid.UUID{saleID, saleID})
	require.NoError(t, err)
	require.Len(t, installments, 1)

	inst := installments[0]
	assert.Equal(t, instID, inst.ID)
	assert.Equal(t, time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC), inst.DueDate)
	assert.True(t, inst.FaceAmount.Equal(decimal.NewFromInt(100)))
	assert.True(t, inst.AmountPaid.Equal(decimal.RequireFromString("25.5")))
	assert.Equal(t, 1, inst.Version)

	req := fake.last(t)
	assert.Equal(t, []string{"in.(" + saleID.String() + ")"}, req.Query["sale_id"])
	assert.Equal(t, []string{"neq.paid"}, req.Query["status"])
	assert.Equal(t, "due_date.asc,number.asc,created_at.asc,id.asc", req.Query["order"][0])
}

func TestInstallmentRepository_FindAllByClient(t *testing.T) {
	store, fake := newTestStore(t)
	clientID := uuid.New()

	fake.enqueue(http.StatusOK, `[]`)
	installments, err := store.Repositories().Installments.FindAll(context.Background(), credit.InstallmentFilter{ClientID: &clientID})
	require.NoError(t, err)
	assert.Empty(t, installments)
	assert.Equal(t, "/rest/v1/sales", fake.last(t).Path, "a client without sales needs no installment query")
}

func TestSaleRepository_MarkPaid(t *testing.T) {
	store, fake := newTestStore(t)
	id := uuid.New()

	fake.enqueue(http.StatusOK, `[{"id":"`+id.String()+`"}]`)
	changed, err := store.Repositories().Sales.MarkPaid(context.Background(), id, time.Now())
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, []string{"eq.pending"}, fake.last(t).Query["payment_status"])

	fake.enqueue(http.StatusOK, `[]`)
	changed, err = store.Repositories().Sales.MarkPaid(context.Background(), id, time.Now())
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestClientRepository_Count(t *testing.T) {
	store, fake := newTestStore(t)
	fake.push(fakeResponse{
		status: http.StatusOK,
		header: map[string]string{"Content-Range": "0-24/3573"},
	})

	count, err := store.Repositories().Clients.Count(context.Background(), shared.Filter{Search: "ana"})
	require.NoError(t, err)
	assert.Equal(t, int64(3573), count)

	req := fake.last(t)
	assert.Equal(t, http.MethodHead, req.Method)
	assert.Equal(t, "count=exact", req.Header.Get("Prefer"))
}

func TestStore_IsNotTransactional(t *testing.T) {
	store, _ := newTestStore(t)
	assert.False(t, store.Transactional())

	called := false
	err := store.Atomic(context.Background(), func(ctx context.Context, repos credit.Repositories) error {
		called = true
		assert.NotNil(t, repos.Installments)
		return nil
	})
	require.NoError(t, err)
	assert.True(t, called)
}

func TestParseContentRange(t *testing.T) {
	n, err := parseContentRange("*/0")
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	_, err = parseContentRange("0-9")
	assert.Error(t, err)
}

func TestDate_RoundTrip(t *testing.T) {
	var d Date
	require.NoError(t, json.Unmarshal([]byte(`"2025-03-01T15:04:05Z"`), &d))
	assert.Equal(t, 2025, d.Year())

	out, err := json.Marshal(Date{time.Date(2025, 12, 31, 23, 0, 0, 0, time.UTC)})
	require.NoError(t, err)
	assert.Equal(t, `"2025-12-31"`, string(out))
}
