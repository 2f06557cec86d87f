package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pageQuery struct {
	Limit int    `query:"limit" default:"50" validate:"gte=1,lte=500"`
	Order string `query:"order" default:"desc" validate:"oneof=asc desc"`
}

func bindQuery(t *testing.T, rawQuery string) (pageQuery, interface{}) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/?"+rawQuery, nil)
	c := e.NewContext(req, httptest.NewRecorder())
	var q pageQuery
	return q, ReadAndValidateRequest(c, &q)
}

func TestReadAndValidateRequestDefaults(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	c := e.NewContext(req, httptest.NewRecorder())
	var q pageQuery
	require.Nil(t, ReadAndValidateRequest(c, &q))
	assert.Equal(t, 50, q.Limit)
	assert.Equal(t, "desc", q.Order)
}

func TestReadAndValidateRequestErrors(t *testing.T) {
	_, verr := bindQuery(t, "limit=900&order=sideways")
	errs, ok := verr.([]ValidationError)
	require.True(t, ok)
	require.Len(t, errs, 2)
	assert.Equal(t, "ERR_LTE", errs[0].Code)
	assert.Equal(t, "500", errs[0].Params["max"])
	assert.Equal(t, "ERR_ONEOF", errs[1].Code)
	assert.Equal(t, "Order must be one of: asc, desc", errs[1].Message)
}

func TestReadAndValidateRequestBindError(t *testing.T) {
	_, verr := bindQuery(t, "limit=abc")
	errs, ok := verr.([]ValidationError)
	require.True(t, ok)
	assert.Equal(t, "ERR_UNKNOWN", errs[0].Code)
}

func TestAppErrorResponse(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	appErr := NotFoundError("archive disabled").WithError(errors.New("no clickhouse"))
	require.NoError(t, AppErrorResponse(c, appErr))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var body APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, http.StatusNotFound, body.Status)
	assert.Contains(t, rec.Body.String(), "ERR_NOT_FOUND")
	assert.Equal(t, "archive disabled: no clickhouse", appErr.Error())

	rec = httptest.NewRecorder()
	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	require.NoError(t, AppErrorResponse(c, errors.New("plain")))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

type pingHandler struct{}

func (pingHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/ping", func(c echo.Context) error { return SuccessResponse(c, "pong") })
}

func TestServerRoutes(t *testing.T) {
	srv := NewServer(pingHandler{}, WithRegistry(prometheus.NewRegistry()))

	for _, path := range []string{"/ping", "/healthz"} {
		rec := httptest.NewRecorder()
		srv.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}

	rec := httptest.NewRecorder()
	srv.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "volpulse_http_requests_total"))
}
