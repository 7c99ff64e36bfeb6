package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Soar-Robotics/HeroOfTheDay/internal/config"
	"github.com/Soar-Robotics/HeroOfTheDay/internal/duty"
	"github.com/Soar-Robotics/HeroOfTheDay/internal/metrics"
	"github.com/Soar-Robotics/HeroOfTheDay/internal/store"
	"github.com/Soar-Robotics/HeroOfTheDay/internal/store/storetest"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var t0 = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

const (
	alice = "alice@example.com"
	bob   = "bob@example.com"
	carol = "carol@example.com"
)

type testServer struct {
	router *gin.Engine
	now    time.Time
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	return newTestServerOn(t, storetest.OpenDB(t))
}

func newTestServerOn(t *testing.T, db *gorm.DB) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ts := &testServer{now: t0}
	st := store.New(db)
	reg := prometheus.NewRegistry()
	engine := duty.New(st,
		duty.WithClock(func() time.Time { return ts.now }),
		duty.WithMetrics(metrics.New(reg)),
		duty.WithBackoff(func(int) time.Duration { return 0 }),
	)
	server := NewServer(engine, st, config.APIConfig{MemberHeader: "X-Member-Id"}, zap.NewNop())
	ts.router = server.Router(promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return ts
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Member-Id", "Alice@Example.com")
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func at(d time.Duration) string {
	return t0.Add(d).Format(time.RFC3339)
}

func TestHealthAndIdentity(t *testing.T) {
	ts := newTestServer(t)

	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	ts.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/heroes", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHeroLifecycle(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/heroes", gin.H{"name": "support", "members": []string{bob, "Alice@example.com"}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodPost, "/heroes", gin.H{"name": "support"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	rec = ts.do(t, http.MethodPost, "/heroes", gin.H{"members": []string{alice}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPost, "/heroes", gin.H{"name": "ops", "members": []string{"not an email"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = ts.do(t, http.MethodPut, "/heroes/support/members/carol", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPut, "/heroes/support/members/"+carol, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	hero := decode[struct {
		Members []string `json:"members"`
	}](t, rec)
	assert.Equal(t, []string{alice, bob, carol}, hero.Members)

	rec = ts.do(t, http.MethodDelete, "/heroes/support/members/zed@example.com", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = ts.do(t, http.MethodDelete, "/heroes/support/members/Carol@example.com", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodGet, "/heroes", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name":"support"`)

	rec = ts.do(t, http.MethodDelete, "/heroes/support", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = ts.do(t, http.MethodGet, "/heroes/support", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = ts.do(t, http.MethodGet, "/heroes/support/stats", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestScheduleErrors(t *testing.T) {
	ts := newTestServer(t)
	require.Equal(t, http.StatusCreated, ts.do(t, http.MethodPost, "/heroes", gin.H{"name": "support", "members": []string{alice, bob}}).Code)

	rec := ts.do(t, http.MethodPut, "/heroes/support/schedule", gin.H{"member": alice, "start": at(0), "end": at(8 * time.Hour)})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	tests := []struct {
		name string
		body gin.H
		want int
	}{
		{"overlap", gin.H{"member": bob, "start": at(4 * time.Hour)}, http.StatusConflict},
		{"past write", gin.H{"member": bob, "start": at(-time.Hour)}, http.StatusUnprocessableEntity},
		{"unknown member", gin.H{"member": "zed@example.com", "start": at(9 * time.Hour)}, http.StatusNotFound},
		{"missing start", gin.H{"member": bob}, http.StatusBadRequest},
		{"member not an email", gin.H{"member": "bob", "start": at(9 * time.Hour)}, http.StatusBadRequest},
		{"end and duration", gin.H{"member": bob, "start": at(9 * time.Hour), "end": at(10 * time.Hour), "duration": "1h"}, http.StatusBadRequest},
		{"bad duration", gin.H{"member": bob, "start": at(9 * time.Hour), "duration": "soon"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, http.MethodPut, "/heroes/support/schedule", tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}

	rec = ts.do(t, http.MethodPut, "/heroes/unknown/schedule", gin.H{"member": alice, "start": at(0)})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = ts.do(t, http.MethodGet, "/heroes/support/schedule?from=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = ts.do(t, http.MethodDelete, "/heroes/support/schedule/not-a-time", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = ts.do(t, http.MethodDelete, "/heroes/support/schedule/"+at(20*time.Hour), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReconcileAndStats(t *testing.T) {
	ts := newTestServer(t)
	require.Equal(t, http.StatusCreated, ts.do(t, http.MethodPost, "/heroes", gin.H{"name": "support", "members": []string{alice, bob}}).Code)
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPut, "/heroes/support/schedule", gin.H{"member": alice, "start": at(0), "duration": "8h"}).Code)
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPut, "/heroes/support/schedule", gin.H{"member": bob, "start": at(8 * time.Hour), "end": at(16 * time.Hour)}).Code)

	rec := ts.do(t, http.MethodGet, "/heroes/support/schedule?from="+at(time.Hour), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	schedule := decode[struct {
		Shifts []shiftResponse `json:"shifts"`
	}](t, rec)
	require.Len(t, schedule.Shifts, 1)
	assert.Equal(t, bob, schedule.Shifts[0].Member)
	assert.Equal(t, t0.Add(16*time.Hour), *schedule.Shifts[0].End)

	ts.now = t0.Add(12 * time.Hour)
	rec = ts.do(t, http.MethodPost, "/reconcile", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	report := decode[struct {
		Heroes []struct {
			Hero     string           `json:"hero"`
			Credited map[string]int64 `json:"credited_seconds"`
			Holder   string           `json:"holder"`
		} `json:"heroes"`
	}](t, rec)
	require.Len(t, report.Heroes, 1)
	assert.Equal(t, map[string]int64{alice: 28800, bob: 14400}, report.Heroes[0].Credited)
	assert.Equal(t, bob, report.Heroes[0].Holder)

	rec = ts.do(t, http.MethodGet, "/heroes/support/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[struct {
		Ranking []struct {
			Member   string `json:"member"`
			Seconds  int64  `json:"seconds"`
			Duration string `json:"duration"`
		} `json:"ranking"`
		Current *shiftResponse `json:"current"`
	}](t, rec)
	require.Len(t, stats.Ranking, 2)
	assert.Equal(t, alice, stats.Ranking[0].Member)
	assert.Equal(t, "8h0m0s", stats.Ranking[0].Duration)
	assert.Equal(t, int64(14400), stats.Ranking[1].Seconds)
	require.NotNil(t, stats.Current)
	assert.Equal(t, bob, stats.Current.Member)

	rec = ts.do(t, http.MethodPost, "/heroes/support/recalculate?as_of="+at(13*time.Hour), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = ts.do(t, http.MethodPost, "/heroes/support/recalculate", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"accumulated_seconds":28800`)
	rec = ts.do(t, http.MethodPost, "/recalculate?as_of="+at(10*time.Hour), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"accumulated_seconds":7200`)

	rec = ts.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `herooftheday_reconciler_heroes_total{outcome="credited"} 1`), rec.Body.String())
}

func TestUsers(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/users/me", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodPut, "/users/me/release-notes", gin.H{"version": "2024.1"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodPost, "/users/me", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"email":"alice@example.com"`)

	rec = ts.do(t, http.MethodPut, "/users/me/release-notes", gin.H{"version": "2024.1"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"2024.1"`)

	rec = ts.do(t, http.MethodPut, "/users/me/release-notes", gin.H{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodGet, "/users/me", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"email":"alice@example.com"`)
	assert.Contains(t, rec.Body.String(), `"2024.1"`)
}

func TestUsersStorageUnavailable(t *testing.T) {
	db := storetest.OpenDB(t)
	ts := newTestServerOn(t, db)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	for _, tc := range []struct {
		method string
		path   string
		body   any
	}{
		{http.MethodGet, "/users/me", nil},
		{http.MethodPost, "/users/me", nil},
		{http.MethodPut, "/users/me/release-notes", gin.H{"version": "2024.1"}},
	} {
		rec := ts.do(t, tc.method, tc.path, tc.body)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, "%s %s: %s", tc.method, tc.path, rec.Body.String())
		assert.Contains(t, rec.Body.String(), "storage unavailable")
	}
}
