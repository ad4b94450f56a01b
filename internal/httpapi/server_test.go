package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/lbodkin223/productionprivateMirrorOS/internal/econdata"
	"github.com/lbodkin223/productionprivateMirrorOS/internal/history"
	"github.com/lbodkin223/productionprivateMirrorOS/internal/odds"
	"github.com/lbodkin223/productionprivateMirrorOS/internal/units"
)

type fakePredictor struct {
	calls int
	last  odds.PredictionRequest
	err   error
}

func (f *fakePredictor) Predict(ctx context.Context, req odds.PredictionRequest) (odds.PredictionResult, error) {
	f.calls++
	f.last = req
	if f.err != nil {
		return odds.PredictionResult{}, f.err
	}
	if len(strings.TrimSpace(req.GoalText)) < odds.MinGoalChars {
		return odds.PredictionResult{}, odds.ErrGoalTooShort
	}
	id := req.RequestID
	if id == "" {
		id = fmt.Sprintf("req-%d", f.calls)
	}
	return odds.PredictionResult{
		RequestID:            id,
		Goal:                 odds.GoalDescriptor{Statement: req.GoalText, Domain: odds.DomainCareer, Summary: "test goal"},
		ProbabilityBaseline:  0.50,
		ProbabilityProjected: 0.22,
		ImprovementFactor:    0.44,
		Interval:             odds.ConfidenceInterval{Low: 0.12, High: 0.35},
		Assessment:           odds.Assessment{Category: odds.OutcomeChallenging, Explanation: "This is a demanding goal."},
		TopFactors: []odds.FactorContribution{
			{Name: units.FactorTargetEntity, Impact: -1.2, Direction: odds.DirectionDrag, Explanation: "The target is extremely selective."},
		},
		Mode: odds.ReportModeComplete,
		Diagnostics: odds.Diagnostics{
			Seed:   42,
			Trials: 10000,
			Extraction: odds.ExtractionMetadata{
				Mode:          odds.ReportModeComplete,
				PhaseAttempts: map[string]int{"goal": 1, "variables": 1, "standardize": 1},
			},
		},
		Disclaimer: odds.Disclaimer,
	}, nil
}

type fakeEcon struct {
	snap econdata.Snapshot
}

func (f *fakeEcon) Snapshot(ctx context.Context) econdata.Snapshot { return f.snap }

func newServerForTest(t *testing.T) (http.Handler, *fakePredictor) {
	t.Helper()
	store, err := history.NewStore(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	pred := &fakePredictor{}
	econ := &fakeEcon{snap: econdata.Snapshot{
		Score:     75,
		Factor:    1.1,
		Source:    econdata.SourceFRED,
		FetchedAt: time.Now(),
	}}
	return NewServer(pred, store, econ, nil, 10*time.Second), pred
}

func postJSON(t *testing.T, h http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	blob, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(blob))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func getPath(t *testing.T, h http.Handler, rawPath string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, rawPath, nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func mustPredict(t *testing.T, h http.Handler, goal string) string {
	t.Helper()
	rr := postJSON(t, h, "/v1/predict", map[string]any{"goal_text": goal})
	if rr.Code != http.StatusOK {
		t.Fatalf("predict status=%d body=%s", rr.Code, rr.Body.String())
	}
	var out struct {
		Result struct {
			RequestID string `json:"request_id"`
		} `json:"result"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode predict response: %v", err)
	}
	if out.Result.RequestID == "" {
		t.Fatal("missing request_id in predict response")
	}
	return out.Result.RequestID
}

func TestPredictEndpoint(t *testing.T) {
	h, pred := newServerForTest(t)

	rr := postJSON(t, h, "/v1/predict", map[string]any{"goal_text": "Get a job at OpenAI within 6 months"})
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	var out struct {
		OK     bool `json:"ok"`
		Result struct {
			RequestID            string  `json:"request_id"`
			ProbabilityProjected float64 `json:"probability_projected"`
			ImprovementFactor    float64 `json:"improvement_factor"`
		} `json:"result"`
		Econ *EconomicContext `json:"economic_context"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !out.OK || out.Result.ProbabilityProjected != 0.22 {
		t.Fatalf("unexpected response: %s", rr.Body.String())
	}
	if out.Result.ImprovementFactor != 0.44 {
		t.Fatalf("improvement factor = %v, want 0.44", out.Result.ImprovementFactor)
	}
	if out.Econ == nil || out.Econ.Factor != 1.1 {
		t.Fatalf("missing economic context: %s", rr.Body.String())
	}
	wantAdjusted := 0.22 * 1.1
	if diff := out.Econ.ProbabilityAdjusted - wantAdjusted; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("adjusted probability = %v, want %v", out.Econ.ProbabilityAdjusted, wantAdjusted)
	}
	if pred.calls != 1 {
		t.Fatalf("predictor calls = %d, want 1", pred.calls)
	}
}

func TestPredictPersistsToHistory(t *testing.T) {
	h, _ := newServerForTest(t)
	id := mustPredict(t, h, "Get a job at OpenAI within 6 months")

	rr := getPath(t, h, "/v1/predictions/"+id)
	if rr.Code != http.StatusOK {
		t.Fatalf("get status=%d body=%s", rr.Code, rr.Body.String())
	}
	var out struct {
		Result struct {
			Goal struct {
				Statement string `json:"statement"`
			} `json:"goal"`
		} `json:"result"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Result.Goal.Statement != "Get a job at OpenAI within 6 months" {
		t.Fatalf("stored goal = %q", out.Result.Goal.Statement)
	}
}

func TestPredictRejectsBadJSON(t *testing.T) {
	h, _ := newServerForTest(t)
	req := httptest.NewRequest(http.MethodPost, "/v1/predict", strings.NewReader("{not json"))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	var out struct {
		OK    bool `json:"ok"`
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.OK || out.Error.Code != codeValidation {
		t.Fatalf("unexpected error envelope: %s", rr.Body.String())
	}
}

func TestPredictShortGoalIsValidationError(t *testing.T) {
	h, _ := newServerForTest(t)
	rr := postJSON(t, h, "/v1/predict", map[string]any{"goal_text": "up"})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), codeValidation) {
		t.Fatalf("expected validation code: %s", rr.Body.String())
	}
}

func TestGetPredictionNotFound(t *testing.T) {
	h, _ := newServerForTest(t)
	rr := getPath(t, h, "/v1/predictions/missing-id")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), codeNotFound) {
		t.Fatalf("expected not_found code: %s", rr.Body.String())
	}
}

func TestListPredictions(t *testing.T) {
	h, _ := newServerForTest(t)
	mustPredict(t, h, "Get a job at OpenAI within 6 months")
	mustPredict(t, h, "Run a marathon by next spring")

	rr := getPath(t, h, "/v1/predictions?limit=1")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	var out struct {
		Predictions []struct {
			RequestID string `json:"request_id"`
		} `json:"predictions"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Predictions) != 1 {
		t.Fatalf("got %d predictions, want 1", len(out.Predictions))
	}
}

func TestShareableOddsFromStoredResult(t *testing.T) {
	h, pred := newServerForTest(t)
	id := mustPredict(t, h, "Get a job at OpenAI within 6 months")

	rr := postJSON(t, h, "/v1/shareable-odds", map[string]any{"request_id": id})
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	var out struct {
		Title    string `json:"title"`
		Markdown string `json:"markdown"`
		HTML     string `json:"html"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.Contains(out.Title, "Your Odds") || !strings.Contains(out.Markdown, "22%") {
		t.Fatalf("unexpected summary: %+v", out)
	}
	if !strings.Contains(out.HTML, "<!doctype html>") {
		t.Fatal("html missing document shell")
	}
	if pred.calls != 1 {
		t.Fatalf("stored share should not re-run prediction, calls = %d", pred.calls)
	}
}

func TestShareableOddsInline(t *testing.T) {
	h, pred := newServerForTest(t)
	rr := postJSON(t, h, "/v1/shareable-odds", map[string]any{"goal_text": "Run a marathon by next spring"})
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	if pred.calls != 1 {
		t.Fatalf("inline share should run prediction, calls = %d", pred.calls)
	}
	if !strings.Contains(rr.Body.String(), "request_id") {
		t.Fatalf("missing request_id: %s", rr.Body.String())
	}
}

func TestShareableOddsUnknownID(t *testing.T) {
	h, _ := newServerForTest(t)
	rr := postJSON(t, h, "/v1/shareable-odds", map[string]any{"request_id": "missing"})
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
}

func TestEconomicDataEndpoint(t *testing.T) {
	h, _ := newServerForTest(t)
	rr := getPath(t, h, "/v1/economic-data")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	var out struct {
		OK       bool `json:"ok"`
		Snapshot struct {
			Factor float64 `json:"factor"`
			Source string  `json:"source"`
		} `json:"snapshot"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !out.OK || out.Snapshot.Factor != 1.1 || out.Snapshot.Source != econdata.SourceFRED {
		t.Fatalf("unexpected snapshot: %s", rr.Body.String())
	}
}

func TestHealthEndpoint(t *testing.T) {
	h, _ := newServerForTest(t)
	mustPredict(t, h, "Get a job at OpenAI within 6 months")

	rr := getPath(t, h, "/v1/health")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	var out struct {
		OK     bool   `json:"ok"`
		Status string `json:"status"`
		Stored int64  `json:"predictions_stored"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !out.OK || out.Status != "ok" || out.Stored != 1 {
		t.Fatalf("unexpected health: %s", rr.Body.String())
	}
}

func TestMetricsEndpointExposed(t *testing.T) {
	h, _ := newServerForTest(t)
	mustPredict(t, h, "Get a job at OpenAI within 6 months")

	rr := getPath(t, h, "/metrics")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "mirror_predictions_total") {
		t.Fatal("metrics output missing prediction counter")
	}
}
