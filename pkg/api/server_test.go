package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/0xmhha/show-indexer/internal/config"
	"github.com/0xmhha/show-indexer/pkg/api/middleware"
	"github.com/0xmhha/show-indexer/pkg/eventbus"
	"github.com/0xmhha/show-indexer/pkg/storage"
	"github.com/0xmhha/show-indexer/pkg/u256"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) GetShowByID(ctx context.Context, id u256.Uint256) (*storage.ShowSnapshot, error) {
	args := m.Called(ctx, id)
	show, _ := args.Get(0).(*storage.ShowSnapshot)
	return show, args.Error(1)
}

func (m *mockStore) ListShows(ctx context.Context, limit, offset int) ([]storage.ShowSnapshot, error) {
	args := m.Called(ctx, limit, offset)
	shows, _ := args.Get(0).([]storage.ShowSnapshot)
	return shows, args.Error(1)
}

func (m *mockStore) PutShow(ctx context.Context, state storage.ShowState) (*storage.ShowSnapshot, error) {
	args := m.Called(ctx, state)
	show, _ := args.Get(0).(*storage.ShowSnapshot)
	return show, args.Error(1)
}

func (m *mockStore) UpdateShow(ctx context.Context, id u256.Uint256, patch storage.ShowPatch) (*storage.ShowSnapshot, error) {
	args := m.Called(ctx, id, patch)
	show, _ := args.Get(0).(*storage.ShowSnapshot)
	return show, args.Error(1)
}

func (m *mockStore) DeleteShow(ctx context.Context, id u256.Uint256) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockStore) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type fakeCache struct {
	mu      sync.Mutex
	entries map[string]storage.ShowSnapshot
	deleted []string
	pingErr error
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]storage.ShowSnapshot)}
}

func (c *fakeCache) Get(_ context.Context, id u256.Uint256) (*storage.ShowSnapshot, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	show, ok := c.entries[id.Hex()]
	if !ok {
		return nil, false, nil
	}
	return &show, true, nil
}

func (c *fakeCache) Set(_ context.Context, show *storage.ShowSnapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[show.ID.Hex()] = *show
	return nil
}

func (c *fakeCache) Delete(_ context.Context, id u256.Uint256) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id.Hex())
	c.deleted = append(c.deleted, id.Hex())
	return nil
}

func (c *fakeCache) Ping(context.Context) error {
	return c.pingErr
}

type fakePublisher struct {
	mu     sync.Mutex
	events []eventbus.ShowUpserted
}

func (p *fakePublisher) Publish(_ context.Context, ev eventbus.ShowUpserted) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *fakePublisher) Type() eventbus.BusType { return eventbus.BusTypeLocal }
func (p *fakePublisher) Close() error           { return nil }

type fakeJournal struct{ n uint64 }

func (j fakeJournal) Len() uint64 { return j.n }

func snapshot(id uint64) *storage.ShowSnapshot {
	return &storage.ShowSnapshot{
		ID:          u256.FromUint64(id),
		Name:        "Demo Show One",
		Description: "First demo show",
		Location:    "City Hall",
		EventTime:   u256.FromUint64(1735689600),
		TicketPrice: u256.MustParse("1000000000000000000"),
		MaxTickets:  u256.FromUint64(1000),
		SoldTickets: u256.FromUint64(10),
		IsActive:    true,
		Organizer:   "alice",
		CreatedAt:   time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func testConfig() *Config {
	cfg := DefaultConfig()
	cfg.EnableRateLimit = false
	cfg.EnableWebSocket = false
	return cfg
}

func newTestServer(t *testing.T, store ShowStore, opts ...Option) *Server {
	t.Helper()
	opts = append([]Option{WithGatherer(prometheus.NewRegistry())}, opts...)
	s, err := NewServer(testConfig(), zap.NewNop(), store, opts...)
	require.NoError(t, err)
	t.Cleanup(s.shutdownBackground)
	return s
}

type envelope struct {
	Code    Code            `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func do(t *testing.T, s *Server, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

const createBody = `{
	"id": "0x2a",
	"name": "Demo Show One",
	"description": "First demo show",
	"location": "City Hall",
	"start_time": 1735689600,
	"end_time": 1735696800,
	"total_tickets": "1000",
	"ticket_price": "1000000000000000000",
	"tickets_sold": "10",
	"metadata_uri": "ipfs://demo1",
	"status": "active",
	"organizer": "alice"
}`

// ---- Codes ----

func TestCode_StatusAndMessage(t *testing.T) {
	tests := []struct {
		code    Code
		status  int
		message string
	}{
		{CodeOK, 200, "ok"},
		{CodeValidation, 400, "validation error"},
		{CodeInvalidID, 400, "invalid show id"},
		{CodeInvalidJSON, 400, "invalid json body"},
		{CodeInvalidQuery, 400, "invalid query params"},
		{CodeRateLimited, 429, "too many requests"},
		{CodeNotFound, 404, "show not found"},
		{CodeInternal, 500, "internal error"},
		{CodeDatabase, 500, "database error"},
		{CodeDecode, 500, "decode error"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.status, tt.code.HTTPStatus(), "code %d", tt.code)
		assert.Equal(t, tt.message, tt.code.Message(), "code %d", tt.code)
	}
}

// ---- GET /show/{id} ----

func TestGetShow_ReadsThroughCache(t *testing.T) {
	store := new(mockStore)
	store.On("GetShowByID", mock.Anything, u256.FromUint64(42)).Return(snapshot(42), nil).Once()
	cache := newFakeCache()
	s := newTestServer(t, store, WithCache(cache))

	rec, env := do(t, s, http.MethodGet, "/show/42", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, CodeOK, env.Code)
	assert.Equal(t, "ok", env.Message)

	var show storage.ShowSnapshot
	require.NoError(t, json.Unmarshal(env.Data, &show))
	assert.Equal(t, "42", show.ID.String())
	assert.Equal(t, "1000000000000000000", show.TicketPrice.String())

	// Hex form of the same id hits the cached entry
	rec, _ = do(t, s, http.MethodGet, "/show/0x2a", "")
	require.Equal(t, http.StatusOK, rec.Code)
	store.AssertExpectations(t)
}

func TestGetShow_Errors(t *testing.T) {
	store := new(mockStore)
	store.On("GetShowByID", mock.Anything, u256.FromUint64(7)).Return(nil, storage.ErrNotFound)
	store.On("GetShowByID", mock.Anything, u256.FromUint64(8)).Return(nil, errors.New("connection reset"))
	s := newTestServer(t, store)

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantCode   Code
	}{
		{"invalid id", "/show/abc", http.StatusBadRequest, CodeInvalidID},
		{"id out of range", "/show/0x" + strings.Repeat("f", 65), http.StatusBadRequest, CodeInvalidID},
		{"not found", "/show/7", http.StatusNotFound, CodeNotFound},
		{"database error", "/show/8", http.StatusInternalServerError, CodeDatabase},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := do(t, s, http.MethodGet, tt.path, "")
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantCode, env.Code)
			assert.Equal(t, tt.wantCode.Message(), env.Message)
			assert.Empty(t, env.Data)
		})
	}
}

// ---- GET /shows ----

func TestListShows(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantLimit  int
		wantOffset int
	}{
		{"defaults", "", 20, 0},
		{"explicit", "?limit=5&offset=10", 5, 10},
		{"clamped", "?limit=5000&offset=-1", 1000, 0},
		{"non-positive limit", "?limit=0", 20, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := new(mockStore)
			store.On("ListShows", mock.Anything, tt.wantLimit, tt.wantOffset).Return(nil, nil)
			s := newTestServer(t, store)

			rec, env := do(t, s, http.MethodGet, "/shows"+tt.query, "")
			require.Equal(t, http.StatusOK, rec.Code)

			var list struct {
				Items  []storage.ShowSnapshot `json:"items"`
				Limit  int                    `json:"limit"`
				Offset int                    `json:"offset"`
			}
			require.NoError(t, json.Unmarshal(env.Data, &list))
			assert.NotNil(t, list.Items)
			assert.Equal(t, tt.wantLimit, list.Limit)
			assert.Equal(t, tt.wantOffset, list.Offset)
			store.AssertExpectations(t)
		})
	}
}

func TestListShows_InvalidQuery(t *testing.T) {
	s := newTestServer(t, new(mockStore))

	for _, q := range []string{"?limit=abc", "?offset=1.5"} {
		rec, env := do(t, s, http.MethodGet, "/shows"+q, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, CodeInvalidQuery, env.Code)
	}
}

// ---- POST /show ----

func TestCreateShow(t *testing.T) {
	store := new(mockStore)
	store.On("PutShow", mock.Anything, mock.MatchedBy(func(state storage.ShowState) bool {
		return state.ShowID.Eq(u256.FromUint64(42)) &&
			state.Status == storage.ShowStatusActive &&
			state.StartTime.Eq(u256.FromUint64(1735689600)) &&
			state.MetadataURI == "ipfs://demo1"
	})).Return(snapshot(42), nil)
	cache := newFakeCache()
	require.NoError(t, cache.Set(context.Background(), snapshot(42)))
	publisher := &fakePublisher{}
	s := newTestServer(t, store, WithCache(cache), WithPublisher(publisher))

	rec, env := do(t, s, http.MethodPost, "/show", createBody)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, CodeOK, env.Code)

	_, hit, _ := cache.Get(context.Background(), u256.FromUint64(42))
	assert.False(t, hit, "write invalidates the cached entry")

	require.Len(t, publisher.events, 1)
	assert.Equal(t, "42", publisher.events[0].ShowID.String())
	assert.Equal(t, "ACTIVE", publisher.events[0].Status)
	assert.Nil(t, publisher.events[0].TxHash)
	store.AssertExpectations(t)
}

func TestCreateShow_Rejects(t *testing.T) {
	s := newTestServer(t, new(mockStore))

	tests := []struct {
		name     string
		body     string
		wantCode Code
	}{
		{"malformed json", `{"id":`, CodeInvalidJSON},
		{"unknown field", `{"id":"1","name":"x","organizer":"a","venue":"y"}`, CodeInvalidJSON},
		{"non-integer amount", `{"id":"1","name":"x","organizer":"a","ticket_price":"1.5"}`, CodeInvalidJSON},
		{"trailing data", `{"id":"1","name":"x","organizer":"a"} {}`, CodeInvalidJSON},
		{"missing id", `{"name":"x","organizer":"a"}`, CodeValidation},
		{"blank name", `{"id":"1","name":"  ","organizer":"a"}`, CodeValidation},
		{"missing organizer", `{"id":"1","name":"x"}`, CodeValidation},
		{"bad status", `{"id":"1","name":"x","organizer":"a","status":"POSTPONED"}`, CodeValidation},
		{"end before start", `{"id":"1","name":"x","organizer":"a","start_time":"10","end_time":"9"}`, CodeValidation},
		{"oversold", `{"id":"1","name":"x","organizer":"a","total_tickets":"1","tickets_sold":"2"}`, CodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := do(t, s, http.MethodPost, "/show", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.wantCode, env.Code)
		})
	}
}

// ---- PUT /show/{id} ----

func TestUpdateShow(t *testing.T) {
	cancelled := storage.ShowStatusCancelled
	name := "Renamed"
	store := new(mockStore)
	store.On("UpdateShow", mock.Anything, u256.FromUint64(42), storage.ShowPatch{Name: &name, Status: &cancelled}).
		Return(snapshot(42), nil)
	cache := newFakeCache()
	publisher := &fakePublisher{}
	s := newTestServer(t, store, WithCache(cache), WithPublisher(publisher))

	rec, env := do(t, s, http.MethodPut, "/show/42", `{"name":" Renamed ","status":"cancelled"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, CodeOK, env.Code)
	assert.Equal(t, []string{u256.FromUint64(42).Hex()}, cache.deleted)
	require.Len(t, publisher.events, 1)
	assert.Equal(t, "CANCELLED", publisher.events[0].Status)
	store.AssertExpectations(t)
}

func TestUpdateShow_Errors(t *testing.T) {
	name := "x"
	store := new(mockStore)
	store.On("UpdateShow", mock.Anything, u256.FromUint64(9), storage.ShowPatch{Name: &name}).
		Return(nil, storage.ErrNotFound)
	s := newTestServer(t, store)

	tests := []struct {
		name       string
		path       string
		body       string
		wantStatus int
		wantCode   Code
	}{
		{"empty patch", "/show/1", `{}`, http.StatusBadRequest, CodeValidation},
		{"empty name", "/show/1", `{"name":""}`, http.StatusBadRequest, CodeValidation},
		{"bad id", "/show/-1", `{"name":"x"}`, http.StatusBadRequest, CodeInvalidID},
		{"bad json", "/show/1", `name=x`, http.StatusBadRequest, CodeInvalidJSON},
		{"not found", "/show/9", `{"name":"x"}`, http.StatusNotFound, CodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := do(t, s, http.MethodPut, tt.path, tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantCode, env.Code)
		})
	}
}

// ---- DELETE /show/{id} ----

func TestDeleteShow(t *testing.T) {
	store := new(mockStore)
	store.On("DeleteShow", mock.Anything, u256.FromUint64(42)).Return(nil)
	store.On("DeleteShow", mock.Anything, u256.FromUint64(43)).Return(storage.ErrNotFound)
	cache := newFakeCache()
	publisher := &fakePublisher{}
	s := newTestServer(t, store, WithCache(cache), WithPublisher(publisher))

	rec, env := do(t, s, http.MethodDelete, "/show/0x2a", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, CodeOK, env.Code)
	assert.Empty(t, env.Data)
	assert.Equal(t, []string{"0x2a"}, cache.deleted)
	assert.Empty(t, publisher.events)

	rec, env = do(t, s, http.MethodDelete, "/show/43", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, CodeNotFound, env.Code)
}

// ---- Middleware wiring ----

func TestRequestIDHeader(t *testing.T) {
	store := new(mockStore)
	store.On("GetShowByID", mock.Anything, mock.Anything).Return(nil, storage.ErrNotFound)
	s := newTestServer(t, store)

	rec, _ := do(t, s, http.MethodGet, "/show/1", "")
	assert.Len(t, rec.Header().Get(middleware.RequestIDHeader), 36)

	req := httptest.NewRequest(http.MethodGet, "/show/1", nil)
	req.Header.Set(middleware.RequestIDHeader, "trace-me")
	rec = httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	assert.Equal(t, "trace-me", rec.Header().Get(middleware.RequestIDHeader))
}

func TestRateLimitEnvelope(t *testing.T) {
	store := new(mockStore)
	store.On("ListShows", mock.Anything, 20, 0).Return(nil, nil)
	cfg := testConfig()
	cfg.EnableRateLimit = true
	cfg.RateLimitPerSecond = 1
	cfg.RateLimitBurst = 1
	s, err := NewServer(cfg, zap.NewNop(), store, WithGatherer(prometheus.NewRegistry()))
	require.NoError(t, err)
	defer s.shutdownBackground()

	rec, _ := do(t, s, http.MethodGet, "/shows", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec, env := do(t, s, http.MethodGet, "/shows", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, CodeRateLimited, env.Code)
}

func TestUnknownRoute(t *testing.T) {
	s := newTestServer(t, new(mockStore))
	rec, env := do(t, s, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, CodeNotFound, env.Code)
	assert.Equal(t, "route not found", env.Message)
}

// ---- Health / Metrics / GraphQL ----

func TestHealth(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		store := new(mockStore)
		store.On("Ping", mock.Anything).Return(nil)
		bus := eventbus.NewLocalBus()
		defer bus.Close()
		s := newTestServer(t, store, WithCache(newFakeCache()), WithLocalBus(bus), WithJournal(fakeJournal{n: 3}))

		rec, _ := do(t, s, http.MethodGet, "/health", "")
		require.Equal(t, http.StatusOK, rec.Code)
		var health HealthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
		assert.Equal(t, "ok", health.Status)
		assert.True(t, health.Storage.Connected)
		require.NotNil(t, health.Cache)
		assert.True(t, health.Cache.Connected)
		require.NotNil(t, health.EventBus)
		require.NotNil(t, health.Journal)
		assert.Equal(t, uint64(3), health.Journal.DroppedEvents)
	})

	t.Run("cache down is degraded", func(t *testing.T) {
		store := new(mockStore)
		store.On("Ping", mock.Anything).Return(nil)
		cache := newFakeCache()
		cache.pingErr = errors.New("dial tcp: refused")
		s := newTestServer(t, store, WithCache(cache))

		rec, _ := do(t, s, http.MethodGet, "/health", "")
		require.Equal(t, http.StatusOK, rec.Code)
		var health HealthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
		assert.Equal(t, "degraded", health.Status)
		assert.Equal(t, "down", health.Cache.Status)
	})

	t.Run("database down", func(t *testing.T) {
		store := new(mockStore)
		store.On("Ping", mock.Anything).Return(errors.New("no route to host"))
		s := newTestServer(t, store)

		rec, _ := do(t, s, http.MethodGet, "/health", "")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		var health HealthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
		assert.Equal(t, "unhealthy", health.Status)
		assert.Equal(t, "no route to host", health.Storage.Message)
	})
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "show_indexer_test_total", Help: "test"})
	reg.MustRegister(counter)
	counter.Inc()

	s, err := NewServer(testConfig(), zap.NewNop(), new(mockStore), WithGatherer(reg))
	require.NoError(t, err)
	defer s.shutdownBackground()

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "show_indexer_test_total 1")
}

func TestGraphQLRoute_UsesCache(t *testing.T) {
	cache := newFakeCache()
	require.NoError(t, cache.Set(context.Background(), snapshot(5)))
	s := newTestServer(t, new(mockStore), WithCache(cache))

	body, _ := json.Marshal(map[string]string{"query": `{ show(id: "5") { name } }`})
	req := httptest.NewRequest(http.MethodPost, "/graphql", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Demo Show One")
}

// ---- Config ----

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	var nilCfg *Config
	assert.Error(t, nilCfg.Validate())

	cfg := DefaultConfig()
	cfg.Port = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.RateLimitBurst = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.EnableGraphQL = true
	cfg.GraphQLPath = ""
	assert.Error(t, cfg.Validate())
}

func TestConfigFromApp(t *testing.T) {
	app := config.NewConfig().API
	app.Port = 8080
	app.RateLimit = 0

	cfg := ConfigFromApp(app)
	assert.Equal(t, "0.0.0.0:8080", cfg.Address())
	assert.False(t, cfg.EnableRateLimit)
	assert.NoError(t, cfg.Validate())
}
