package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solar-sync-backend/config"
	"solar-sync-backend/internal/db"
	"solar-sync-backend/internal/model"
	"solar-sync-backend/internal/store"
	"solar-sync-backend/internal/syncer"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// mockSyncer is a mock implementation of the Syncer interface.
type mockSyncer struct {
	SyncAllFunc       func(ctx context.Context, full bool, siteFilter []int64) (*syncer.SyncSummary, error)
	GetSyncStatusFunc func(ctx context.Context, siteIDs ...int64) ([]syncer.SiteStatus, error)
}

func (m *mockSyncer) SyncAll(ctx context.Context, full bool, siteFilter []int64) (*syncer.SyncSummary, error) {
	return m.SyncAllFunc(ctx, full, siteFilter)
}

func (m *mockSyncer) GetSyncStatus(ctx context.Context, siteIDs ...int64) ([]syncer.SiteStatus, error) {
	return m.GetSyncStatusFunc(ctx, siteIDs...)
}

type fixedQuota struct{ remaining, limit int }

func (q fixedQuota) RemainingRequests() int { return q.remaining }
func (q fixedQuota) DailyLimit() int        { return q.limit }

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	gormDB, err := db.Init(&config.DatabaseConfig{DSN: "sqlite:file::memory:", LogLevel: "silent"})
	require.NoError(t, err)
	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return store.NewGormStore(gormDB)
}

type testEnv struct {
	router *gin.Engine
	store  store.Store
	syncer *mockSyncer
	cache  *cache.Cache
}

func setupRouter(t *testing.T) *testEnv {
	t.Helper()
	st := newTestStore(t)
	sy := &mockSyncer{}
	responses := cache.New(time.Minute, time.Minute)
	h := NewHandler(st, sy, fixedQuota{remaining: 250, limit: 300}, &webpush.Options{VAPIDPublicKey: "public-key"}, responses)
	cfg := config.ServerConfig{RateLimitPerSec: 1000, RateLimitBurst: 1000, CacheTTLSeconds: 60}
	return &testEnv{router: NewRouter(h, cfg, prometheus.NewRegistry()), store: st, syncer: sy, cache: responses}
}

func (e *testEnv) do(method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func TestPutSubscription_InvalidRequest(t *testing.T) {
	env := setupRouter(t)

	w := env.do(http.MethodPut, "/api/subscriptions", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"invalid request"}`, w.Body.String())
}

func TestSubscriptionLifecycle(t *testing.T) {
	env := setupRouter(t)
	require.NoError(t, env.store.UpsertSites(context.Background(), []model.Site{{ID: 7, Name: "Barn"}}))

	w := env.do(http.MethodPut, "/api/subscriptions", gin.H{
		"endpoint": "https://push.example/abc", "p256dh": "key", "auth": "secret", "subscribed_sites": []int64{7},
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = env.do(http.MethodGet, "/api/subscriptions?endpoint=https://push.example/abc", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"subscribed_sites":[7]}`, w.Body.String())

	w = env.do(http.MethodDelete, "/api/subscriptions", gin.H{"endpoint": "https://push.example/abc"})
	require.Equal(t, http.StatusNoContent, w.Code)

	w = env.do(http.MethodGet, "/api/subscriptions?endpoint=https://push.example/abc", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(http.MethodGet, "/api/subscriptions", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetStatus(t *testing.T) {
	env := setupRouter(t)
	lastSync := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	env.syncer.GetSyncStatusFunc = func(_ context.Context, siteIDs ...int64) ([]syncer.SiteStatus, error) {
		assert.Equal(t, []int64{1, 2}, siteIDs)
		return []syncer.SiteStatus{{
			SiteID:   1,
			SiteName: "Home",
			DataTypes: map[string]syncer.DataTypeStatus{
				"energy": {LastSync: lastSync, Records: 5, Status: model.SyncStatusSuccess},
			},
		}}, nil
	}

	w := env.do(http.MethodGet, "/api/status?sites=1,2", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp statusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Sites, 1)
	assert.Equal(t, 5, resp.Sites[0].DataTypes["energy"].Records)
	require.NotNil(t, resp.Quota)
	assert.Equal(t, 250, resp.Quota.Remaining)

	w = env.do(http.MethodGet, "/api/status?sites=abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPostSync(t *testing.T) {
	env := setupRouter(t)

	t.Run("returns the summary and flushes the cache", func(t *testing.T) {
		env.cache.Set("/api/sites", "stale", time.Minute)
		env.syncer.SyncAllFunc = func(_ context.Context, full bool, sites []int64) (*syncer.SyncSummary, error) {
			assert.True(t, full)
			assert.Equal(t, []int64{3}, sites)
			return &syncer.SyncSummary{RunID: "run-1", TotalSites: 1, SuccessfulSites: 1}, nil
		}

		w := env.do(http.MethodPost, "/api/sync", gin.H{"full": true, "sites": []int64{3}})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"runId":"run-1"`)
		assert.Zero(t, env.cache.ItemCount())
	})

	t.Run("conflict while a run is active", func(t *testing.T) {
		env.syncer.SyncAllFunc = func(context.Context, bool, []int64) (*syncer.SyncSummary, error) {
			return nil, syncer.ErrSyncInProgress
		}

		w := env.do(http.MethodPost, "/api/sync", nil)
		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestGetEnergyAndPower(t *testing.T) {
	env := setupRouter(t)
	ctx := context.Background()
	day := time.Date(2024, 6, 14, 0, 0, 0, 0, time.UTC)
	wh := 1500.0
	require.NoError(t, env.store.UpsertSites(ctx, []model.Site{{ID: 1, Name: "Home"}}))
	require.NoError(t, env.store.UpsertEnergyReadings(ctx, []model.EnergyReading{{SiteID: 1, ReadingDate: day, TimeUnit: "DAY", EnergyWh: &wh}}))
	require.NoError(t, env.store.UpsertPowerReadings(ctx, []model.PowerReading{{SiteID: 1, Timestamp: day.Add(10 * time.Hour), PowerWatts: &wh}}))

	w := env.do(http.MethodGet, "/api/sites/1/energy?start=2024-06-01&end=2024-06-30", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var energy []model.EnergyReading
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &energy))
	require.Len(t, energy, 1)
	assert.Equal(t, 1500.0, *energy[0].EnergyWh)

	w = env.do(http.MethodGet, "/api/sites/1/power?start=2024-06-14T00:00:00Z&end=2024-06-15T00:00:00Z", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"powerWatts":1500`)

	w = env.do(http.MethodGet, "/api/sites/x/energy", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodGet, "/api/sites/1/energy?start=2024-07-01&end=2024-06-01", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodGet, "/api/sites", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"name":"Home"`)
}

func TestGetVAPIDPublicKey(t *testing.T) {
	env := setupRouter(t)
	w := env.do(http.MethodGet, "/api/vapid_public_key", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"public_key":"public-key"}`, w.Body.String())

	r := gin.New()
	r.GET("/key", NewHandler(nil, nil, nil, nil, nil).GetVAPIDPublicKey)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/key", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	env := setupRouter(t)

	w := env.do(http.MethodGet, "/api/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = env.do(http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
