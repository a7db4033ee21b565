// Package api exposes analyses and run history over HTTP.
package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"PriceScope/internal/collector"
	"PriceScope/internal/metrics"
	"PriceScope/internal/model"
	"PriceScope/internal/recorder"
)

const (
	defaultHistoryLimit = 10
)

// Runner runs and persists one analysis.
type Runner interface {
	AnalyzeAndRecord(ctx context.Context, req collector.HistoryRequest) (*model.Analysis, error)
}

// HistoryStore reads persisted runs.
type HistoryStore interface {
	RecentRuns(symbol string, limit int) ([]recorder.RunRecord, error)
}

// Server serves the JSON API.
type Server struct {
	Runner        Runner
	History       HistoryStore
	DefaultPeriod string
	Log           zerolog.Logger

	validate *validator.Validate
}

// NewServer creates a new Server.
func NewServer(runner Runner, history HistoryStore, defaultPeriod string, log zerolog.Logger) *Server {
	v := validator.New()
	v.RegisterValidation("symbol", func(fl validator.FieldLevel) bool {
		return collector.IsValidSymbol(fl.Field().String())
	})
	return &Server{
		Runner:        runner,
		History:       history,
		DefaultPeriod: defaultPeriod,
		Log:           log.With().Str("component", "api").Logger(),
		validate:      v,
	}
}

type analysisQuery struct {
	Symbol string `validate:"required,symbol"`
	Period string `validate:"omitempty,oneof=1d 5d 1mo 3mo 6mo 1y 2y 5y 10y ytd max"`
	Start  string `validate:"omitempty,datetime=2006-01-02"`
	End    string `validate:"omitempty,datetime=2006-01-02"`
}

type historyQuery struct {
	Symbol string `validate:"required,symbol"`
	Limit  int    `validate:"min=1,max=100"`
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Get("/analysis/{symbol}", s.getAnalysis)
		r.Get("/history/{symbol}", s.getHistory)
	})
	return r
}

func (s *Server) getAnalysis(w http.ResponseWriter, r *http.Request) {
	q := analysisQuery{
		Symbol: strings.ToUpper(chi.URLParam(r, "symbol")),
		Period: r.URL.Query().Get("period"),
		Start:  r.URL.Query().Get("start"),
		End:    r.URL.Query().Get("end"),
	}
	if q.Period == "" && q.Start == "" && q.End == "" {
		q.Period = s.DefaultPeriod
	}
	if err := s.validate.Struct(q); err != nil {
		render.Render(w, r, newAPIError(http.StatusBadRequest, "VALIDATION_FAILED", err.Error()))
		return
	}

	req := collector.HistoryRequest{Symbol: q.Symbol, Period: q.Period, Start: q.Start, End: q.End}
	if err := req.Validate(); err != nil {
		render.Render(w, r, mapError(err))
		return
	}
	res, err := s.Runner.AnalyzeAndRecord(r.Context(), req)
	if err != nil {
		apiErr := mapError(err)
		if apiErr.StatusCode >= http.StatusInternalServerError {
			s.Log.Error().Err(err).Str("symbol", q.Symbol).Msg("analysis failed")
		}
		render.Render(w, r, apiErr)
		return
	}
	render.JSON(w, r, newAnalysisResponse(res))
}

func (s *Server) getHistory(w http.ResponseWriter, r *http.Request) {
	q := historyQuery{Symbol: strings.ToUpper(chi.URLParam(r, "symbol")), Limit: defaultHistoryLimit}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			render.Render(w, r, newAPIError(http.StatusBadRequest, "VALIDATION_FAILED", "limit must be an integer"))
			return
		}
		q.Limit = n
	}
	if err := s.validate.Struct(q); err != nil {
		render.Render(w, r, newAPIError(http.StatusBadRequest, "VALIDATION_FAILED", err.Error()))
		return
	}

	runs, err := s.History.RecentRuns(q.Symbol, q.Limit)
	if err != nil {
		s.Log.Error().Err(err).Str("symbol", q.Symbol).Msg("load history")
		render.Render(w, r, newAPIError(http.StatusInternalServerError, "INTERNAL", err.Error()))
		return
	}
	render.JSON(w, r, newHistoryResponse(q.Symbol, runs))
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.Log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("http request")
	})
}
