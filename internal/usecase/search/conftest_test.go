package search

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/leadstack/leadscout/internal/domain"
	"github.com/leadstack/leadscout/internal/domain/filters"
)

// fakeProvider serves a fixed page sequence and counts fetches.
type fakeProvider struct {
	mu          sync.Mutex
	pages       []domain.ResultPage
	pageErr     error
	detail      *domain.PlaceDetail
	detailErr   error
	fetchCalls  int
	detailCalls int
}

func (p *fakeProvider) FetchPage(_ context.Context, _, pageToken string, _ *domain.GeoBias) (domain.ResultPage, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fetchCalls++
	if p.pageErr != nil {
		return domain.ResultPage{}, p.pageErr
	}
	idx := 0
	if pageToken != "" {
		// Tokens are "page-N" pointing at the next index.
		for i := range p.pages {
			if p.pages[i].NextPageToken == pageToken {
				idx = i + 1
				break
			}
		}
	}
	if idx >= len(p.pages) {
		return domain.ResultPage{}, nil
	}
	return p.pages[idx], nil
}

func (p *fakeProvider) FetchDetails(_ context.Context, _ string) (*domain.PlaceDetail, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.detailCalls++
	if p.detailErr != nil {
		return nil, p.detailErr
	}
	if p.detail == nil {
		return &domain.PlaceDetail{}, nil
	}
	d := *p.detail
	return &d, nil
}

func (p *fakeProvider) ResolveBias(_ []string) *domain.GeoBias { return nil }

func (p *fakeProvider) fetches() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fetchCalls
}

// fakeProgressStore keeps records in memory and remembers every Put so
// tests can assert write ordering.
type fakeProgressStore struct {
	mu      sync.Mutex
	records map[string]domain.ProgressRecord
	history []domain.ProgressRecord
	stopped map[string]bool

	// stopAfterChecks flips StopRequested to true once it has been
	// polled that many times (0 = never).
	stopAfterChecks int
	checks          int
}

func newFakeProgressStore() *fakeProgressStore {
	return &fakeProgressStore{
		records: make(map[string]domain.ProgressRecord),
		stopped: make(map[string]bool),
	}
}

func (s *fakeProgressStore) Put(_ context.Context, rec domain.ProgressRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.RunID] = rec
	s.history = append(s.history, rec)
	return nil
}

func (s *fakeProgressStore) Get(_ context.Context, runID string) (domain.ProgressRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[runID]
	if !ok {
		return domain.ProgressRecord{}, domain.ErrRunNotFound
	}
	return rec, nil
}

func (s *fakeProgressStore) RequestStop(_ context.Context, runID, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[runID]
	if !ok {
		return domain.ErrRunNotFound
	}
	if rec.Status.Terminal() {
		return nil
	}
	s.stopped[runID] = true
	rec.Status = domain.StatusStopped
	rec.Message = message
	s.records[runID] = rec
	return nil
}

func (s *fakeProgressStore) StopRequested(_ context.Context, runID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checks++
	if s.stopAfterChecks > 0 && s.checks > s.stopAfterChecks {
		return true, nil
	}
	return s.stopped[runID], nil
}

func (s *fakeProgressStore) record(runID string) (domain.ProgressRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[runID]
	return rec, ok
}

func (s *fakeProgressStore) puts() []domain.ProgressRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.ProgressRecord, len(s.history))
	copy(out, s.history)
	return out
}

// fakeResultStore keeps final lead lists in memory.
type fakeResultStore struct {
	mu    sync.Mutex
	lists map[string][]domain.Lead
}

func newFakeResultStore() *fakeResultStore {
	return &fakeResultStore{lists: make(map[string][]domain.Lead)}
}

func (s *fakeResultStore) Put(_ context.Context, runID string, leads []domain.Lead) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lists[runID] = leads
	return nil
}

func (s *fakeResultStore) Get(_ context.Context, runID string) ([]domain.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	leads, ok := s.lists[runID]
	if !ok {
		return nil, domain.ErrRunNotFound
	}
	return leads, nil
}

// fakeExtractor accepts every result except those whose name starts with
// "skip", echoing the detail contact fields into the lead.
type fakeExtractor struct{}

func (fakeExtractor) ToLead(raw domain.RawResult, detail *domain.PlaceDetail, _ filters.Filters) *domain.Lead {
	if strings.HasPrefix(raw.Name, "skip") {
		return nil
	}
	lead := domain.Lead{CompanyName: raw.Name, QualityScore: 0.5}
	if detail != nil {
		lead.Phone = detail.Phone
		lead.Email = detail.Email
		lead.Website = detail.Website
	}
	return &lead
}

// fakeContactFetcher returns a fixed contact for every website.
type fakeContactFetcher struct {
	contact *domain.Contact
	err     error
	calls   int
}

func (f *fakeContactFetcher) FetchContact(_ context.Context, _ string) (*domain.Contact, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.contact, nil
}

// --- Helpers ---

func resultsPage(token string, names ...string) domain.ResultPage {
	page := domain.ResultPage{NextPageToken: token}
	for _, n := range names {
		page.Results = append(page.Results, domain.RawResult{ProviderID: "id-" + n, Name: n})
	}
	return page
}

func mustFilters(t *testing.T, maxResults int) filters.Filters {
	t.Helper()
	f, err := filters.New("bar", nil, nil, nil, "", "", maxResults)
	if err != nil {
		t.Fatalf("filters.New: %v", err)
	}
	return f
}

func newTestService(provider *fakeProvider) (*Service, *fakeProgressStore, *fakeResultStore) {
	progress := newFakeProgressStore()
	results := newFakeResultStore()
	svc := New(provider, progress, results, fakeExtractor{}, nil).
		WithLimits(3, 0, filters.MaxMaxResults)
	svc.newRunID = func() string { return "run-test" }
	svc.now = func() time.Time { return time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC) }
	return svc, progress, results
}
