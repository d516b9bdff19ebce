package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"habittracker/internal/auth"
	"habittracker/internal/calendar"
	"habittracker/internal/handler"
	"habittracker/internal/idempotency"
	"habittracker/internal/repository"
	"habittracker/internal/service"
	"habittracker/pkg/trace"
)

const testSecret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	t      *testing.T
	router *gin.Engine
	store  repository.Store
}

func newTestServer(t *testing.T, checks ...ReadinessCheck) *testServer {
	t.Helper()
	log := zap.NewNop()

	store, err := repository.OpenSQLite(filepath.Join(t.TempDir(), "habits.db"), log)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	h := handler.NewHabitHandler(
		service.NewHabitService(store, log),
		service.NewToggleService(store, log),
		service.NewStatsService(store, log),
		idempotency.NewGuard(rdb, time.Hour, log),
		calendar.NewFixedClock(calendar.Date(2024, time.January, 5)),
		log,
	)
	return &testServer{t: t, router: NewRouter(h, testSecret, log, checks...), store: store}
}

func (s *testServer) do(method, path string, userID int64, body string, headers ...string) *httptest.ResponseRecorder {
	s.t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if userID != 0 {
		token, err := auth.GenerateToken(userID, testSecret, time.Hour)
		require.NoError(s.t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) createHabit(userID int64, body string) int64 {
	s.t.Helper()
	w := s.do(http.MethodPost, "/habits", userID, body)
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())
	var h struct {
		ID int64 `json:"id"`
	}
	require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &h))
	return h.ID
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m), w.Body.String())
	return m
}

func TestAuthRequired(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodGet, "/habits", 0, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "missing token", decode(t, w)["error"])

	w = s.do(http.MethodGet, "/habits", 0, "", "Authorization", "Bearer nope")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "invalid token", decode(t, w)["error"])
}

func TestCreateHabit(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name       string
		body       string
		wantTarget float64
	}{
		{"number", `{"name":"Read","target_per_week":3}`, 3},
		{"numeric string", `{"name":"Read","target_per_week":"5"}`, 5},
		{"too high", `{"name":"Read","target_per_week":12}`, 7},
		{"too low", `{"name":"Read","target_per_week":0}`, 1},
		{"garbage", `{"name":"Read","target_per_week":"often"}`, 7},
		{"missing", `{"name":"Read"}`, 7},
		{"boolean", `{"name":"Read","target_per_week":true}`, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(http.MethodPost, "/habits", 1, tt.body)
			require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
			got := decode(t, w)
			assert.Equal(t, tt.wantTarget, got["target_per_week"])
			assert.Equal(t, "Read", got["name"])
			assert.Equal(t, float64(1), got["user_id"])
		})
	}
}

func TestCreateHabit_Invalid(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodPost, "/habits", 1, `{"name":"   "}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "name", decode(t, w)["field"])

	w = s.do(http.MethodPost, "/habits", 1, `{"name":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestToggleFlow(t *testing.T) {
	s := newTestServer(t)
	id := s.createHabit(1, `{"name":"Walk","target_per_week":5}`)
	path := "/habits/" + itoa(id) + "/toggle"

	w := s.do(http.MethodPost, path, 1, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, true, decode(t, w)["completed"])

	w = s.do(http.MethodGet, "/habits", 1, "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "2024-01-05", body["date"])
	habits := body["habits"].([]any)
	require.Len(t, habits, 1)
	assert.Equal(t, true, habits[0].(map[string]any)["completed_today"])
	assert.Equal(t, float64(1), habits[0].(map[string]any)["week_count"])

	w = s.do(http.MethodPost, path, 1, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decode(t, w)["completed"])
}

func TestToggle_IdempotencyKey(t *testing.T) {
	s := newTestServer(t)
	id := s.createHabit(1, `{"name":"Walk"}`)
	path := "/habits/" + itoa(id) + "/toggle"

	first := s.do(http.MethodPost, path, 1, "", handler.IdempotencyKeyHeader, "retry-1")
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, true, decode(t, first)["completed"])
	assert.Empty(t, first.Header().Get(handler.IdempotencyReplayedHeader))

	again := s.do(http.MethodPost, path, 1, "", handler.IdempotencyKeyHeader, "retry-1")
	require.Equal(t, http.StatusOK, again.Code)
	assert.Equal(t, true, decode(t, again)["completed"])
	assert.Equal(t, "true", again.Header().Get(handler.IdempotencyReplayedHeader))

	exists, err := s.store.RecordExists(context.Background(), 1, id, calendar.Date(2024, time.January, 5))
	require.NoError(t, err)
	assert.True(t, exists, "the replay must not flip the record back")
}

func TestForeignAndMissingHabits(t *testing.T) {
	s := newTestServer(t)
	id := s.createHabit(1, `{"name":"Private"}`)

	for _, path := range []string{
		"/habits/" + itoa(id) + "/toggle",
		"/habits/" + itoa(id+50) + "/toggle",
		"/habits/abc/toggle",
	} {
		w := s.do(http.MethodPost, path, 2, "")
		assert.Equal(t, http.StatusNotFound, w.Code, path)
		assert.Equal(t, "habit not found", decode(t, w)["error"])
	}

	w := s.do(http.MethodGet, "/habits/"+itoa(id)+"/statistics", 2, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = s.do(http.MethodDelete, "/habits/"+itoa(id), 2, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(http.MethodGet, "/habits", 2, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode(t, w)["habits"])
}

func TestStatisticsAndDelete(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	id := s.createHabit(1, `{"name":"Journal","target_per_week":4}`)
	for _, d := range []int{1, 2, 3, 5} {
		require.NoError(t, s.store.CreateRecord(ctx, 1, id, calendar.Date(2024, time.January, d)))
	}

	w := s.do(http.MethodGet, "/statistics", 1, "")
	require.Equal(t, http.StatusOK, w.Code)
	stats := decode(t, w)["statistics"].([]any)
	require.Len(t, stats, 1)
	st := stats[0].(map[string]any)
	assert.Equal(t, float64(1), st["current_streak"])
	assert.Equal(t, float64(3), st["max_streak"])
	assert.Equal(t, float64(4), st["total_count"])
	assert.Equal(t, float64(4), st["week_count"])
	assert.Len(t, st["last_30_days"], 30)

	w = s.do(http.MethodGet, "/habits/"+itoa(id)+"/statistics", 1, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(3), decode(t, w)["max_streak"])

	w = s.do(http.MethodDelete, "/habits/"+itoa(id), 1, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = s.do(http.MethodDelete, "/habits/"+itoa(id), 1, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	dates, err := s.store.ListRecordDates(ctx, 1, id)
	require.NoError(t, err)
	assert.Empty(t, dates)
}

func TestHealthReadinessAndMetrics(t *testing.T) {
	healthy := newTestServer(t, ReadinessCheck{Name: "store", Check: func(context.Context) error { return nil }})
	assert.Equal(t, http.StatusOK, healthy.do(http.MethodGet, "/healthz", 0, "").Code)
	assert.Equal(t, http.StatusOK, healthy.do(http.MethodGet, "/readyz", 0, "").Code)

	w := healthy.do(http.MethodGet, "/metrics", 0, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_request_duration_seconds")

	broken := newTestServer(t, ReadinessCheck{Name: "redis", Check: func(context.Context) error { return errors.New("down") }})
	w = broken.do(http.MethodGet, "/readyz", 0, "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "redis_not_ready", decode(t, w)["status"])
}

func TestTraceHeader(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodGet, "/healthz", 0, "", trace.HeaderName, "abc-123")
	assert.Equal(t, "abc-123", w.Header().Get(trace.HeaderName))

	w = s.do(http.MethodGet, "/healthz", 0, "")
	assert.NotEmpty(t, w.Header().Get(trace.HeaderName))
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
