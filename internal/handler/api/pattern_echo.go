package api

import (
	"errors"
	"slices"
	"time"

	"VolPulse/internal/domain/models"
	domrepo "VolPulse/internal/domain/repository"
	domsvc "VolPulse/internal/domain/service"
	"VolPulse/internal/service/metrics"
	"VolPulse/internal/service/ratelimit"
	"VolPulse/internal/services/features"
	"VolPulse/internal/usecase"
	xhttp "VolPulse/pkg/http"
	xlogger "VolPulse/pkg/logger"

	"github.com/labstack/echo/v4"
)

// PatternSource is the engine view the handler serves.
type PatternSource interface {
	usecase.BatchIngestor
	Window() []float64
	Reader() domsvc.PatternReader
}

// CurrentResponse wraps the current pattern; Pattern is null when none.
type CurrentResponse struct {
	Pattern *models.ClassifiedPattern `json:"pattern"`
}

// PatternEchoHandler serves the pattern query API.
type PatternEchoHandler struct {
	logger  *xlogger.Logger
	src     PatternSource
	archive domrepo.TransitionArchive
	rl      *ratelimit.Limiter
	m       *metrics.APIMetrics
}

// NewPatternEchoHandler creates the handler. archive and rl may be nil.
func NewPatternEchoHandler(logger *xlogger.Logger, src PatternSource, archive domrepo.TransitionArchive, rl *ratelimit.Limiter, m *metrics.APIMetrics) *PatternEchoHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &PatternEchoHandler{logger: logger.Component("pattern_api"), src: src, archive: archive, rl: rl, m: m}
}

func (h *PatternEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/pattern/current", h.Current)
	g.GET("/pattern/history", h.History)
	g.GET("/pattern/window", h.Window)
	g.GET("/pattern/archive", h.Archive)
	g.POST("/ticks", h.Ingest)
}

func (h *PatternEchoHandler) observe(endpoint string, start time.Time) {
	if h.m != nil {
		h.m.Latency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	}
}

func (h *PatternEchoHandler) fail(endpoint string) {
	if h.m != nil {
		h.m.Errors.WithLabelValues(endpoint).Inc()
	}
}

func (h *PatternEchoHandler) Current(c echo.Context) error {
	defer h.observe("current", time.Now())
	var res CurrentResponse
	if p, ok := h.src.Reader().Current(); ok {
		res.Pattern = &p
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	return xhttp.SuccessResponse(c, res)
}

// History returns the newest `limit` entries, newest first unless order=asc.
func (h *PatternEchoHandler) History(c echo.Context) error {
	defer h.observe("history", time.Now())
	req := &models.HistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		h.fail("history")
		return xhttp.BadRequestResponse(c, verr)
	}

	all := h.src.Reader().History()
	rows := all
	if len(rows) > req.Limit {
		rows = rows[len(rows)-req.Limit:]
	}
	if req.Order == "desc" {
		rows = slices.Clone(rows)
		slices.Reverse(rows)
	}
	return xhttp.ListResponse(c, rows, int64(len(all)))
}

func (h *PatternEchoHandler) Window(c echo.Context) error {
	defer h.observe("window", time.Now())
	return xhttp.SuccessResponse(c, features.Summarize(h.src.Window()))
}

func (h *PatternEchoHandler) Archive(c echo.Context) error {
	defer h.observe("archive", time.Now())
	if h.archive == nil {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("transition archive is disabled"))
	}
	req := &models.ArchiveRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		h.fail("archive")
		return xhttp.BadRequestResponse(c, verr)
	}

	rows, err := h.archive.Latest(c.Request().Context(), req.Limit)
	if err != nil {
		h.fail("archive")
		h.logger.Error("archive query error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.ServiceUnavailableError("transition archive unavailable").WithError(err))
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

// Ingest accepts a manual batch. Limited per client address when a limiter is set.
func (h *PatternEchoHandler) Ingest(c echo.Context) error {
	defer h.observe("ingest", time.Now())
	if h.rl != nil && !h.rl.Allow(c.RealIP()) {
		h.logger.Warn("ingest rate_limited", xlogger.String("remote", c.RealIP()))
		return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("ingest rate exceeded"))
	}
	req := &models.IngestRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		h.fail("ingest")
		return xhttp.BadRequestResponse(c, verr)
	}

	if err := h.src.IngestBatch(c.Request().Context(), req.Values); err != nil {
		h.fail("ingest")
		if errors.Is(err, usecase.ErrInvalidInput) {
			return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()))
		}
		h.logger.Error("ingest error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("ingest failed").WithError(err))
	}
	return xhttp.AcceptedResponse(c, map[string]int{"window_size": len(h.src.Window())})
}

var _ xhttp.Handler = (*PatternEchoHandler)(nil)
