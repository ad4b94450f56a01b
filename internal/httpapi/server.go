// Package httpapi exposes the prediction pipeline over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/lbodkin223/productionprivateMirrorOS/internal/econdata"
	"github.com/lbodkin223/productionprivateMirrorOS/internal/history"
	"github.com/lbodkin223/productionprivateMirrorOS/internal/observability"
	"github.com/lbodkin223/productionprivateMirrorOS/internal/odds"
	"github.com/lbodkin223/productionprivateMirrorOS/internal/share"
)

// PredictorAPI runs one prediction end to end.
type PredictorAPI interface {
	Predict(ctx context.Context, req odds.PredictionRequest) (odds.PredictionResult, error)
}

// EconSource yields the current macro snapshot.
type EconSource interface {
	Snapshot(ctx context.Context) econdata.Snapshot
}

var tracer = otel.Tracer("httpapi")

const (
	codeValidation = "validation"
	codeNotFound   = "not_found"
	codeInternal   = "internal"
)

type apiError struct {
	Code      string
	Message   string
	Status    int
	Transient bool
}

func (e *apiError) Error() string { return e.Message }

// EconomicContext reports how current macro conditions would shift the
// projection. The core result stays untouched so a stored prediction can be
// re-read against fresh conditions later.
type EconomicContext struct {
	Score               float64                 `json:"score"`
	Factor              float64                 `json:"factor"`
	Source              string                  `json:"source"`
	ProbabilityAdjusted float64                 `json:"probability_adjusted"`
	IntervalAdjusted    odds.ConfidenceInterval `json:"interval_adjusted"`
}

type Server struct {
	predictor PredictorAPI
	store     history.API
	econ      EconSource
	log       *zap.Logger
	timeout   time.Duration
	started   time.Time
}

func NewServer(predictor PredictorAPI, store history.API, econ EconSource, log *zap.Logger, timeout time.Duration) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	s := &Server{
		predictor: predictor,
		store:     store,
		econ:      econ,
		log:       log,
		timeout:   timeout,
		started:   time.Now(),
	}

	r := chi.NewRouter()
	r.Route("/v1", func(r chi.Router) {
		r.Post("/predict", s.handlePredict)
		r.Post("/shareable-odds", s.handleShareableOdds)
		r.Get("/predictions", s.handleListPredictions)
		r.Get("/predictions/{requestID}", s.handleGetPrediction)
		r.Get("/economic-data", s.handleEconomicData)
		r.Get("/health", s.handleHealth)
	})
	r.Handle("/metrics", promhttp.Handler())
	return r
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	ae := asAPIError(err)
	writeJSON(w, ae.Status, map[string]any{
		"ok": false,
		"error": map[string]any{
			"code":      ae.Code,
			"message":   ae.Message,
			"transient": ae.Transient,
		},
	})
}

func asAPIError(err error) *apiError {
	var ae *apiError
	if errors.As(err, &ae) {
		return ae
	}
	if errors.Is(err, odds.ErrGoalTooShort) || errors.Is(err, odds.ErrInvalidTrialCount) {
		return &apiError{Code: codeValidation, Message: err.Error(), Status: 400}
	}
	return &apiError{Code: codeInternal, Message: err.Error(), Status: 500, Transient: true}
}

func readBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return []byte("{}"), nil
	}
	blob, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	if len(blob) == 0 {
		blob = []byte("{}")
	}
	return blob, nil
}

func decodeJSONBytes(blob []byte, dst any) error {
	return json.Unmarshal(blob, dst)
}

func parseInt(value string, def int) int {
	if strings.TrimSpace(value) == "" {
		return def
	}
	v, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return v
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	blob, err := readBody(r)
	if err != nil {
		writeError(w, &apiError{Code: codeValidation, Message: err.Error(), Status: 400})
		return
	}
	var req odds.PredictionRequest
	if err := decodeJSONBytes(blob, &req); err != nil {
		writeError(w, &apiError{Code: codeValidation, Message: "invalid JSON body", Status: 400})
		return
	}

	res, err := s.runPrediction(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, 200, map[string]any{
		"ok":               true,
		"result":           res,
		"economic_context": s.econContext(r.Context(), res),
	})
}

func (s *Server) handleShareableOdds(w http.ResponseWriter, r *http.Request) {
	blob, err := readBody(r)
	if err != nil {
		writeError(w, &apiError{Code: codeValidation, Message: err.Error(), Status: 400})
		return
	}
	var req struct {
		RequestID   string `json:"request_id"`
		GoalText    string `json:"goal_text"`
		ContextText string `json:"context_text"`
		Trials      int    `json:"trials"`
		Seed        *int64 `json:"seed"`
	}
	if err := decodeJSONBytes(blob, &req); err != nil {
		writeError(w, &apiError{Code: codeValidation, Message: "invalid JSON body", Status: 400})
		return
	}

	var res odds.PredictionResult
	if id := strings.TrimSpace(req.RequestID); id != "" {
		stored, ok, err := s.store.Get(id)
		if err != nil {
			writeError(w, err)
			return
		}
		if !ok {
			writeError(w, &apiError{Code: codeNotFound, Message: "no prediction with that request_id", Status: 404})
			return
		}
		res = stored
	} else {
		res, err = s.runPrediction(r.Context(), odds.PredictionRequest{
			GoalText:    req.GoalText,
			ContextText: req.ContextText,
			Trials:      req.Trials,
			Seed:        req.Seed,
		})
		if err != nil {
			writeError(w, err)
			return
		}
	}

	sum, err := share.Build(res)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, 200, map[string]any{
		"ok":         true,
		"request_id": sum.RequestID,
		"title":      sum.Title,
		"markdown":   sum.Markdown,
		"html":       sum.HTML,
	})
}

// runPrediction executes one prediction under the request timeout, records
// metrics, and persists the result.
func (s *Server) runPrediction(ctx context.Context, req odds.PredictionRequest) (odds.PredictionResult, error) {
	ctx, span := tracer.Start(ctx, "httpapi.predict")
	defer span.End()
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	res, err := s.predictor.Predict(ctx, req)
	if err != nil {
		return odds.PredictionResult{}, err
	}

	domain := string(res.Goal.Domain)
	span.SetAttributes(
		attribute.String("request_id", res.RequestID),
		attribute.String("domain", domain),
		attribute.String("mode", string(res.Mode)),
	)
	observability.PredictionsTotal.WithLabelValues(domain, string(res.Mode)).Inc()
	observability.PredictionDuration.WithLabelValues(domain).Observe(time.Since(start).Seconds())
	for phase, n := range res.Diagnostics.Extraction.PhaseAttempts {
		observability.LLMCallsTotal.WithLabelValues(phase).Add(float64(n))
	}
	for phase, n := range res.Diagnostics.Extraction.PhaseContentRetries {
		if n > 0 {
			observability.LLMRetriesTotal.WithLabelValues(phase).Add(float64(n))
		}
	}

	if err := s.store.Save(res); err != nil {
		s.log.Warn("history save failed", zap.String("request_id", res.RequestID), zap.Error(err))
	}
	s.log.Info("prediction served",
		zap.String("request_id", res.RequestID),
		zap.String("domain", domain),
		zap.String("mode", string(res.Mode)),
		zap.Float64("projected", res.ProbabilityProjected),
		zap.Duration("elapsed", time.Since(start)),
	)
	return res, nil
}

func (s *Server) econContext(ctx context.Context, res odds.PredictionResult) *EconomicContext {
	if s.econ == nil {
		return nil
	}
	snap := s.econ.Snapshot(ctx)
	observability.EconSnapshotsTotal.WithLabelValues(snap.Source).Inc()
	return &EconomicContext{
		Score:               snap.Score,
		Factor:              snap.Factor,
		Source:              snap.Source,
		ProbabilityAdjusted: econdata.Adjust(res.ProbabilityProjected, res.Goal.Domain, snap.Factor),
		IntervalAdjusted: odds.ConfidenceInterval{
			Low:  econdata.Adjust(res.Interval.Low, res.Goal.Domain, snap.Factor),
			High: econdata.Adjust(res.Interval.High, res.Goal.Domain, snap.Factor),
		},
	}
}

func (s *Server) handleGetPrediction(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "requestID"))
	res, ok, err := s.store.Get(id)
	if err != nil {
		writeError(w, err)
		return
	}
	if !ok {
		writeError(w, &apiError{Code: codeNotFound, Message: "no prediction with that request_id", Status: 404})
		return
	}
	writeJSON(w, 200, map[string]any{"ok": true, "result": res})
}

func (s *Server) handleListPredictions(w http.ResponseWriter, r *http.Request) {
	limit := parseInt(r.URL.Query().Get("limit"), 0)
	entries, err := s.store.Recent(limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, 200, map[string]any{"ok": true, "predictions": entries})
}

func (s *Server) handleEconomicData(w http.ResponseWriter, r *http.Request) {
	if s.econ == nil {
		writeError(w, &apiError{Code: codeNotFound, Message: "economic data not configured", Status: 404})
		return
	}
	snap := s.econ.Snapshot(r.Context())
	observability.EconSnapshotsTotal.WithLabelValues(snap.Source).Inc()
	writeJSON(w, 200, map[string]any{"ok": true, "snapshot": snap})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	stored := int64(0)
	if n, err := s.store.Count(); err == nil {
		stored = n
	}
	writeJSON(w, 200, map[string]any{
		"ok":                 true,
		"status":             "ok",
		"predictions_stored": stored,
		"uptime_seconds":     int64(time.Since(s.started).Seconds()),
	})
}
