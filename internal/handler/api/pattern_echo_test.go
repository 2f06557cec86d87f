package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"VolPulse/internal/domain/models"
	"VolPulse/internal/service/metrics"
	"VolPulse/internal/service/ratelimit"
	"VolPulse/internal/services/volatility"
	"VolPulse/internal/usecase"
	pkgmetrics "VolPulse/pkg/metrics"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Status int             `json:"status"`
	Data   json.RawMessage `json:"data"`
}

type listData struct {
	Rows  []models.HistoryEntry `json:"rows"`
	Total int64                 `json:"total"`
}

type stubArchive struct {
	rows []models.Transition
	err  error
}

func (a *stubArchive) Append(context.Context, models.Transition) error { return nil }
func (a *stubArchive) Latest(_ context.Context, limit int) ([]models.Transition, error) {
	if len(a.rows) > limit {
		return a.rows[:limit], a.err
	}
	return a.rows, a.err
}
func (a *stubArchive) Health(context.Context) error { return a.err }

type testClock struct{ now time.Time }

func (c *testClock) Now() time.Time { return c.now }

type fixture struct {
	e        *echo.Echo
	ingestor *usecase.StreamIngestor
	clock    *testClock
}

func newFixture(t *testing.T, archive *stubArchive, rl *ratelimit.Limiter) *fixture {
	t.Helper()
	clock := &testClock{now: time.Unix(1_700_000_000, 0).UTC()}
	tracker := volatility.NewHistoryTracker(volatility.WithClock(clock))
	ing := usecase.NewStreamIngestor(20, tracker, pkgmetrics.Noop{}, nil)

	var h *PatternEchoHandler
	m := metrics.NewAPIMetrics(prometheus.NewRegistry())
	if archive != nil {
		h = NewPatternEchoHandler(nil, ing, archive, rl, m)
	} else {
		h = NewPatternEchoHandler(nil, ing, nil, rl, m)
	}
	e := echo.New()
	h.RegisterRoutes(e)
	return &fixture{e: e, ingestor: ing, clock: clock}
}

func (f *fixture) do(method, target, body string) (*httptest.ResponseRecorder, envelope) {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	var env envelope
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	return rec, env
}

func (f *fixture) feed(t *testing.T, v float64, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, f.ingestor.IngestBatch(context.Background(), []float64{v}))
		f.clock.now = f.clock.now.Add(time.Second)
	}
}

func TestCurrentNoneIsNull(t *testing.T) {
	f := newFixture(t, nil, nil)
	rec, env := f.do(http.MethodGet, "/api/pattern/current", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"pattern":null}`, string(env.Data))
}

func TestCurrentAfterSurge(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.feed(t, 100, 10)
	f.feed(t, 104, 5)

	_, env := f.do(http.MethodGet, "/api/pattern/current", "")
	var res CurrentResponse
	require.NoError(t, json.Unmarshal(env.Data, &res))
	require.NotNil(t, res.Pattern)
	assert.Equal(t, models.PatternSurge, res.Pattern.Type)
	assert.Equal(t, 90.0, res.Pattern.Confidence)
}

func TestHistoryDefaultsNewestFirst(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.feed(t, 100, 10)
	f.feed(t, 104, 5)

	rec, env := f.do(http.MethodGet, "/api/pattern/history", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var data listData
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.Len(t, data.Rows, 2)
	assert.Equal(t, int64(2), data.Total)
	assert.Equal(t, models.PatternSurge, data.Rows[0].Pattern.Type)
	assert.Equal(t, models.PatternConsolidation, data.Rows[1].Pattern.Type)
}

func TestHistoryAscendingWithLimit(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.feed(t, 100, 10)
	f.feed(t, 104, 5)

	_, env := f.do(http.MethodGet, "/api/pattern/history?order=asc&limit=1", "")
	var data listData
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.Len(t, data.Rows, 1)
	assert.Equal(t, models.PatternSurge, data.Rows[0].Pattern.Type, "limit keeps the newest entries")
	assert.Equal(t, int64(2), data.Total)
}

func TestHistoryRejectsBadQuery(t *testing.T) {
	f := newFixture(t, nil, nil)
	for _, q := range []string{"limit=0", "limit=501", "order=random"} {
		rec, _ := f.do(http.MethodGet, "/api/pattern/history?"+q, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestWindowSummary(t *testing.T) {
	f := newFixture(t, nil, nil)
	for _, v := range []float64{98, 99, 100, 101, 102} {
		require.NoError(t, f.ingestor.IngestBatch(context.Background(), []float64{v}))
	}
	_, env := f.do(http.MethodGet, "/api/pattern/window", "")
	var s struct {
		Count int       `json:"count"`
		Mean  float64   `json:"mean"`
		Range float64   `json:"range"`
		Vals  []float64 `json:"values"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &s))
	assert.Equal(t, 5, s.Count)
	assert.Equal(t, 100.0, s.Mean)
	assert.Equal(t, 4.0, s.Range)
	assert.Equal(t, []float64{98, 99, 100, 101, 102}, s.Vals)
}

func TestArchiveDisabled(t *testing.T) {
	f := newFixture(t, nil, nil)
	rec, _ := f.do(http.MethodGet, "/api/pattern/archive", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestArchiveLatest(t *testing.T) {
	arch := &stubArchive{rows: []models.Transition{
		{Type: models.PatternCrash}, {Type: models.PatternSurge}, {Type: models.PatternSteady},
	}}
	f := newFixture(t, arch, nil)
	rec, env := f.do(http.MethodGet, "/api/pattern/archive?limit=2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var data struct {
		Rows []models.Transition `json:"rows"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.Len(t, data.Rows, 2)
	assert.Equal(t, models.PatternCrash, data.Rows[0].Type)
}

func TestArchiveError(t *testing.T) {
	f := newFixture(t, &stubArchive{err: errors.New("down")}, nil)
	rec, _ := f.do(http.MethodGet, "/api/pattern/archive", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestIngestAccepted(t *testing.T) {
	f := newFixture(t, nil, nil)
	rec, env := f.do(http.MethodPost, "/api/ticks", `{"values":[100,102]}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.JSONEq(t, `{"window_size":1}`, string(env.Data))
	assert.Equal(t, []float64{101}, f.ingestor.Window())
}

func TestIngestEmptyBatch(t *testing.T) {
	f := newFixture(t, nil, nil)
	for _, body := range []string{`{"values":[]}`, `{}`} {
		rec, _ := f.do(http.MethodPost, "/api/ticks", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
	assert.Empty(t, f.ingestor.Window())
}

func TestIngestRateLimited(t *testing.T) {
	f := newFixture(t, nil, ratelimit.New(0.001, 1))
	rec, _ := f.do(http.MethodPost, "/api/ticks", `{"values":[1]}`)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	rec, _ = f.do(http.MethodPost, "/api/ticks", `{"values":[1]}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}
