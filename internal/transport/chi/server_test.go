package chi

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	chirouter "github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/leadstack/leadscout/internal/db/memory"
	"github.com/leadstack/leadscout/internal/domain"
	progressrepo "github.com/leadstack/leadscout/internal/repository/progress"
	resultsrepo "github.com/leadstack/leadscout/internal/repository/results"
	extractuc "github.com/leadstack/leadscout/internal/usecase/extract"
	healthuc "github.com/leadstack/leadscout/internal/usecase/health"
	searchuc "github.com/leadstack/leadscout/internal/usecase/search"
)

// stubProvider serves one fixed page of results.
type stubProvider struct {
	results []domain.RawResult
	healthy bool
}

func (p *stubProvider) FetchPage(_ context.Context, _, _ string, _ *domain.GeoBias) (domain.ResultPage, error) {
	return domain.ResultPage{Results: p.results}, nil
}

func (p *stubProvider) FetchDetails(_ context.Context, _ string) (*domain.PlaceDetail, error) {
	return &domain.PlaceDetail{Phone: "+34 600 000 000"}, nil
}

func (p *stubProvider) ResolveBias(_ []string) *domain.GeoBias { return nil }

func (p *stubProvider) HealthCheck(_ context.Context) error {
	if p.healthy {
		return nil
	}
	return domain.ErrProvider
}

func newTestRouter(t *testing.T, provider *stubProvider) http.Handler {
	t.Helper()

	store := memory.NewStore()
	t.Cleanup(store.Close)

	progress := progressrepo.New(store, "test:", time.Hour)
	results := resultsrepo.New(store, "test:", time.Hour)
	extractor := extractuc.New(
		[]extractuc.Band{{MaxReviews: 0, Label: "1-10"}},
		[]extractuc.Band{{MaxReviews: 0, Label: "<1M"}},
		"places",
	)

	searchSvc := searchuc.New(provider, progress, results, extractor, zap.NewNop()).
		WithLimits(3, 0, 1000)
	healthSvc := healthuc.New(store, provider)

	server := NewServer(searchSvc, healthSvc, zap.NewNop())
	r := chirouter.NewRouter()
	server.RegisterRoutes(r)
	return r
}

func startRun(t *testing.T, router http.Handler, body string) string {
	t.Helper()

	req := httptest.NewRequest("POST", "/api/v1/searches", strings.NewReader(body))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusAccepted {
		t.Fatalf("start: got %d, body %s", rr.Code, rr.Body.String())
	}
	var resp struct {
		RunID  string `json:"runId"`
		Status string `json:"status"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode start response: %v", err)
	}
	if resp.RunID == "" {
		t.Fatal("start response carries no run id")
	}
	if resp.Status != string(domain.StatusRunning) {
		t.Errorf("start status: got %q", resp.Status)
	}
	return resp.RunID
}

func waitTerminal(t *testing.T, router http.Handler, runID string) domain.ProgressRecord {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for {
		req := httptest.NewRequest("GET", "/api/v1/searches/"+runID, http.NoBody)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("progress: got %d, body %s", rr.Code, rr.Body.String())
		}

		var rec domain.ProgressRecord
		if err := json.NewDecoder(rr.Body).Decode(&rec); err != nil {
			t.Fatalf("decode progress: %v", err)
		}
		if rec.Status.Terminal() {
			return rec
		}
		if time.Now().After(deadline) {
			t.Fatalf("run %s never reached a terminal state", runID)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSearchFlow_StartPollResults(t *testing.T) {
	provider := &stubProvider{results: []domain.RawResult{
		{ProviderID: "p1", Name: "Bar Paco"},
		{ProviderID: "p2", Name: "Bar Lola"},
	}}
	router := newTestRouter(t, provider)

	runID := startRun(t, router, `{"keywords":"bar","max_results":10}`)
	rec := waitTerminal(t, router, runID)

	if rec.Status != domain.StatusCompleted {
		t.Fatalf("status: got %s, want %s", rec.Status, domain.StatusCompleted)
	}
	if rec.ProgressPercent != 100 {
		t.Errorf("progress: got %d, want 100", rec.ProgressPercent)
	}
	if rec.Stats == nil || rec.Stats.Processed != 2 {
		t.Errorf("stats: %+v", rec.Stats)
	}

	req := httptest.NewRequest("GET", "/api/v1/searches/"+runID+"/results", http.NoBody)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("results: got %d, body %s", rr.Code, rr.Body.String())
	}

	var resp struct {
		RunID string        `json:"runId"`
		Count int           `json:"count"`
		Leads []domain.Lead `json:"leads"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode results: %v", err)
	}
	if resp.Count != 2 || len(resp.Leads) != 2 {
		t.Fatalf("results payload: %+v", resp)
	}
	if resp.Leads[0].CompanyName != "Bar Paco" {
		t.Errorf("lead: %+v", resp.Leads[0])
	}
}

func TestSearchFlow_ResultsCSV(t *testing.T) {
	provider := &stubProvider{results: []domain.RawResult{{ProviderID: "p1", Name: "Bar Paco"}}}
	router := newTestRouter(t, provider)

	runID := startRun(t, router, `{"keywords":"bar"}`)
	waitTerminal(t, router, runID)

	req := httptest.NewRequest("GET", "/api/v1/searches/"+runID+"/results?format=csv", http.NoBody)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("csv results: got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "text/csv" {
		t.Errorf("content type: got %q", ct)
	}

	rows, err := csv.NewReader(rr.Body).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("csv rows: got %d, want header + 1 lead", len(rows))
	}
	if rows[0][0] != "company_name" {
		t.Errorf("header: %v", rows[0])
	}

	lead, err := domain.LeadFromCSVRecord(rows[1])
	if err != nil {
		t.Fatalf("csv record must round-trip: %v", err)
	}
	if lead.CompanyName != "Bar Paco" {
		t.Errorf("lead from csv: %+v", lead)
	}
}

func TestStartSearch_InvalidFilters_400(t *testing.T) {
	router := newTestRouter(t, &stubProvider{})

	req := httptest.NewRequest("POST", "/api/v1/searches", strings.NewReader(`{"max_results":10}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("got %d, want %d", rr.Code, http.StatusBadRequest)
	}
	var errResp ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&errResp); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if errResp.Code != CodeInvalidFilters {
		t.Errorf("code: got %s, want %s", errResp.Code, CodeInvalidFilters)
	}
}

func TestStartSearch_MalformedBody_400(t *testing.T) {
	router := newTestRouter(t, &stubProvider{})

	req := httptest.NewRequest("POST", "/api/v1/searches", strings.NewReader(`{not json`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestGetProgress_UnknownRun_404(t *testing.T) {
	router := newTestRouter(t, &stubProvider{})

	req := httptest.NewRequest("GET", "/api/v1/searches/missing", http.NoBody)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("got %d, want %d", rr.Code, http.StatusNotFound)
	}
	var errResp ErrorResponse
	_ = json.NewDecoder(rr.Body).Decode(&errResp)
	if errResp.Code != CodeRunNotFound {
		t.Errorf("code: got %s, want %s", errResp.Code, CodeRunNotFound)
	}
}

func TestGetResults_UnknownFormat_400(t *testing.T) {
	provider := &stubProvider{results: []domain.RawResult{{ProviderID: "p1", Name: "Bar Paco"}}}
	router := newTestRouter(t, provider)

	runID := startRun(t, router, `{"keywords":"bar"}`)
	waitTerminal(t, router, runID)

	req := httptest.NewRequest("GET", "/api/v1/searches/"+runID+"/results?format=xml", http.NoBody)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestStopSearch_FinishedRunIsNoop(t *testing.T) {
	provider := &stubProvider{results: []domain.RawResult{{ProviderID: "p1", Name: "Bar Paco"}}}
	router := newTestRouter(t, provider)

	runID := startRun(t, router, `{"keywords":"bar"}`)
	waitTerminal(t, router, runID)

	req := httptest.NewRequest("POST", "/api/v1/searches/"+runID+"/stop", http.NoBody)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("got %d, body %s", rr.Code, rr.Body.String())
	}
	var rec domain.ProgressRecord
	if err := json.NewDecoder(rr.Body).Decode(&rec); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec.Status != domain.StatusCompleted {
		t.Errorf("stopping a finished run must not change it: got %s", rec.Status)
	}
}

func TestStopSearch_UnknownRun_404(t *testing.T) {
	router := newTestRouter(t, &stubProvider{})

	req := httptest.NewRequest("POST", "/api/v1/searches/missing/stop", http.NoBody)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("got %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestHealth(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		router := newTestRouter(t, &stubProvider{healthy: true})

		req := httptest.NewRequest("GET", "/health", http.NoBody)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("got %d, want %d", rr.Code, http.StatusOK)
		}
	})

	t.Run("provider down", func(t *testing.T) {
		router := newTestRouter(t, &stubProvider{healthy: false})

		req := httptest.NewRequest("GET", "/health", http.NoBody)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		if rr.Code != http.StatusServiceUnavailable {
			t.Fatalf("got %d, want %d", rr.Code, http.StatusServiceUnavailable)
		}
		var resp struct {
			Status string            `json:"status"`
			Checks map[string]string `json:"checks"`
		}
		if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if resp.Checks["provider"] != "error" || resp.Checks["database"] != "ok" {
			t.Errorf("checks: %v", resp.Checks)
		}
	})
}
