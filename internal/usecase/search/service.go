// Package search drives lead-search runs: query construction, the
// pagination loop, extraction, progress reporting, and cancellation.
package search

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/leadstack/leadscout/internal/domain"
	"github.com/leadstack/leadscout/internal/domain/filters"
	"github.com/leadstack/leadscout/internal/domain/query"
	"github.com/leadstack/leadscout/internal/metrics"
)

const (
	defaultMaxPages  = 3
	defaultPageDelay = 2 * time.Second

	// Progress while running tops out at 80%; only a completed terminal
	// record reaches 100.
	runningProgressCeiling = 80
)

// Service orchestrates search runs. One run executes on one goroutine;
// concurrent runs share state only through the stores, keyed by run id.
type Service struct {
	provider  Provider
	progress  ProgressStore
	results   ResultStore
	extractor Extractor
	contacts  ContactFetcher // nil disables website enrichment
	logger    *zap.Logger

	maxPages    int
	pageDelay   time.Duration
	detailDelay time.Duration
	capLimit    int

	newRunID func() string
	now      func() time.Time
}

// New creates a search orchestrator.
func New(
	provider Provider,
	progress ProgressStore,
	results ResultStore,
	extractor Extractor,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		provider:  provider,
		progress:  progress,
		results:   results,
		extractor: extractor,
		logger:    logger,
		maxPages:  defaultMaxPages,
		pageDelay: defaultPageDelay,
		capLimit:  filters.MaxMaxResults,
		newRunID:  uuid.NewString,
		now:       time.Now,
	}
}

// WithLimits overrides the page ceiling, inter-page delay, and the
// server-side result cap.
func (s *Service) WithLimits(maxPages int, pageDelay time.Duration, capLimit int) *Service {
	if maxPages > 0 {
		s.maxPages = maxPages
	}
	if pageDelay >= 0 {
		s.pageDelay = pageDelay
	}
	if capLimit > 0 {
		s.capLimit = capLimit
	}
	return s
}

// WithDetailDelay sets a pause before each detail fetch after the first,
// pacing per-result provider calls.
func (s *Service) WithDetailDelay(d time.Duration) *Service {
	if d > 0 {
		s.detailDelay = d
	}
	return s
}

// WithContactFetcher enables website contact enrichment.
func (s *Service) WithContactFetcher(cf ContactFetcher) *Service {
	s.contacts = cf
	return s
}

// Start validates the filters, registers the run, and executes it on a
// detached goroutine so the run outlives the originating request. The
// returned run id is the polling key.
func (s *Service) Start(ctx context.Context, f filters.Filters) (string, error) {
	if err := validate(f); err != nil {
		return "", err
	}
	f = capResults(f, s.capLimit)

	runID := s.newRunID()
	if err := s.writeRunning(ctx, runID, 0, "Starting search"); err != nil {
		return "", fmt.Errorf("register run %s: %w", runID, err)
	}

	// Detach from the request's cancellation but keep its values
	// (request-scoped logger). A client disconnect must not abort the run.
	bg := context.WithoutCancel(ctx)
	go func() {
		if _, err := s.execute(bg, runID, f); err != nil {
			s.logger.Error("search run failed",
				zap.String("run_id", runID),
				zap.Error(err),
			)
		}
	}()

	return runID, nil
}

// Run executes a search synchronously under the caller's context; used by
// callers that want the leads in-line. Same state machine as Start.
func (s *Service) Run(ctx context.Context, runID string, f filters.Filters) ([]domain.Lead, error) {
	if err := validate(f); err != nil {
		return nil, err
	}
	f = capResults(f, s.capLimit)

	if err := s.writeRunning(ctx, runID, 0, "Starting search"); err != nil {
		return nil, fmt.Errorf("register run %s: %w", runID, err)
	}
	return s.execute(ctx, runID, f)
}

// Progress returns the run's current progress record.
func (s *Service) Progress(ctx context.Context, runID string) (domain.ProgressRecord, error) {
	return s.progress.Get(ctx, runID)
}

// Stop requests cooperative cancellation. The orchestrator observes it
// before its next page fetch; an in-flight fetch always completes first.
func (s *Service) Stop(ctx context.Context, runID string) error {
	return s.progress.RequestStop(ctx, runID, "Search stopped by user")
}

// Results returns the final lead list of a finished run. Running runs
// surface domain.ErrRunNotFinished; failed runs have no leads.
func (s *Service) Results(ctx context.Context, runID string) ([]domain.Lead, error) {
	rec, err := s.progress.Get(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !rec.Status.Terminal() {
		return nil, fmt.Errorf("run %s is %s: %w", runID, rec.Status, domain.ErrRunNotFinished)
	}
	if rec.Status == domain.StatusFailed {
		return []domain.Lead{}, nil
	}
	leads, err := s.results.Get(ctx, runID)
	if err != nil {
		return nil, err
	}
	return leads, nil
}

// execute runs the page/result loop. Exactly one terminal record is
// written on every exit path; the deferred guard covers panics and
// unexpected returns so no record is ever left running.
func (s *Service) execute(ctx context.Context, runID string, f filters.Filters) (leads []domain.Lead, err error) {
	start := s.now()
	q := query.Build(f)
	bias := s.provider.ResolveBias(f.Locations())

	logger := s.logger.With(zap.String("run_id", runID))
	logger.Info("search run started",
		zap.String("query", q),
		zap.Int("max_results", f.MaxResults()),
		zap.Bool("geo_bias", bias != nil),
	)

	terminal := false
	lastProgress := 0
	defer func() {
		if !terminal {
			s.finishRun(ctx, runID, domain.StatusFailed, lastProgress, "search aborted", nil)
		}
		metrics.RunDuration.Observe(s.now().Sub(start).Seconds())
	}()

	leads = make([]domain.Lead, 0, f.MaxResults())
	pageToken := ""

	for page := 0; page < s.maxPages && len(leads) < f.MaxResults(); page++ {
		// Cooperative stop: observed only between page fetches.
		stopped, stopErr := s.progress.StopRequested(ctx, runID)
		if stopErr != nil {
			logger.Warn("stop signal read failed", zap.Error(stopErr))
		}
		if stopped {
			logger.Info("search run stopped", zap.Int("leads", len(leads)))
			stats := s.stats(leads, start)
			if putErr := s.results.Put(ctx, runID, leads); putErr != nil {
				logger.Error("persist results failed", zap.Error(putErr))
			}
			s.finishRun(ctx, runID, domain.StatusStopped, lastProgress, "Search stopped by user", &stats)
			terminal = true
			return leads, nil
		}

		if page > 0 {
			if pageToken == "" {
				break // provider exhausted
			}
			if sleepErr := sleepCtx(ctx, s.pageDelay); sleepErr != nil {
				s.finishRun(ctx, runID, domain.StatusFailed, lastProgress, sleepErr.Error(), nil)
				terminal = true
				return nil, sleepErr
			}
		}

		resultPage, fetchErr := s.provider.FetchPage(ctx, q, pageToken, bias)
		if fetchErr != nil {
			logger.Error("page fetch failed", zap.Int("page", page+1), zap.Error(fetchErr))
			s.finishRun(ctx, runID, domain.StatusFailed, lastProgress, fetchErr.Error(), nil)
			terminal = true
			return nil, fetchErr
		}

		logger.Info("page fetched",
			zap.Int("page", page+1),
			zap.Int("results", len(resultPage.Results)),
			zap.Bool("has_next", resultPage.NextPageToken != ""),
		)

		if len(resultPage.Results) == 0 {
			break // exhausted
		}

		for i, raw := range resultPage.Results {
			if len(leads) >= f.MaxResults() {
				break
			}

			if s.detailDelay > 0 && (page > 0 || i > 0) {
				if sleepErr := sleepCtx(ctx, s.detailDelay); sleepErr != nil {
					s.finishRun(ctx, runID, domain.StatusFailed, lastProgress, sleepErr.Error(), nil)
					terminal = true
					return nil, sleepErr
				}
			}

			detail := s.fetchDetail(ctx, raw, logger)
			lead := s.extractor.ToLead(raw, detail, f)
			if lead == nil {
				metrics.LeadsProcessedTotal.WithLabelValues("rejected").Inc()
				logger.Debug("result rejected", zap.String("name", raw.Name))
				continue
			}

			metrics.LeadsProcessedTotal.WithLabelValues("accepted").Inc()
			logger.Debug("lead accepted",
				zap.String("company", lead.CompanyName),
				zap.Float64("quality", lead.QualityScore),
			)
			leads = append(leads, *lead)

			if pct := progressPercent(len(leads), f.MaxResults()); pct > lastProgress {
				lastProgress = pct
			}
			msg := fmt.Sprintf("Collected %d of %d leads", len(leads), f.MaxResults())
			if putErr := s.writeRunning(ctx, runID, lastProgress, msg); putErr != nil {
				logger.Warn("progress write failed", zap.Error(putErr))
			}
		}

		pageToken = resultPage.NextPageToken
	}

	stats := s.stats(leads, start)
	if putErr := s.results.Put(ctx, runID, leads); putErr != nil {
		logger.Error("persist results failed", zap.Error(putErr))
	}
	s.finishRun(ctx, runID, domain.StatusCompleted, 100, "Search completed", &stats)
	terminal = true

	logger.Info("search run completed",
		zap.Int("leads", stats.Processed),
		zap.Float64("avg_quality", stats.AvgQuality),
		zap.Float64("duration_sec", stats.DurationSeconds),
	)
	return leads, nil
}

// fetchDetail retrieves provider detail and optional website contact
// enrichment. Every failure degrades to less-enriched data, never an error.
func (s *Service) fetchDetail(ctx context.Context, raw domain.RawResult, logger *zap.Logger) *domain.PlaceDetail {
	detail, err := s.provider.FetchDetails(ctx, raw.ProviderID)
	if err != nil {
		logger.Debug("detail fetch failed",
			zap.String("provider_id", raw.ProviderID),
			zap.Error(err),
		)
		detail = nil
	}

	if s.contacts == nil || detail == nil || detail.Website == "" {
		return detail
	}
	if detail.Phone != "" && detail.Email != "" {
		return detail
	}

	contact, err := s.contacts.FetchContact(ctx, detail.Website)
	if err != nil || contact == nil {
		return detail
	}
	enriched := *detail
	if enriched.Phone == "" {
		enriched.Phone = contact.Phone
	}
	if enriched.Email == "" {
		enriched.Email = contact.Email
	}
	return &enriched
}

// finishRun writes the terminal record. Terminal writes must not be lost;
// failures are logged because there is no caller left to return them to.
func (s *Service) finishRun(
	ctx context.Context, runID string, status domain.Status,
	progress int, message string, stats *domain.RunStats,
) {
	rec := domain.ProgressRecord{
		RunID:           runID,
		ProgressPercent: progress,
		Message:         message,
		Status:          status,
		Stats:           stats,
		UpdatedAt:       s.now().UTC(),
	}
	if status == domain.StatusCompleted {
		rec.ProgressPercent = 100
	}
	if err := s.progress.Put(ctx, rec); err != nil {
		s.logger.Error("terminal progress write failed",
			zap.String("run_id", runID),
			zap.String("status", string(status)),
			zap.Error(err),
		)
	}
	metrics.RunsTotal.WithLabelValues(string(status)).Inc()
}

func (s *Service) writeRunning(ctx context.Context, runID string, progress int, message string) error {
	return s.progress.Put(ctx, domain.ProgressRecord{
		RunID:           runID,
		ProgressPercent: progress,
		Message:         message,
		Status:          domain.StatusRunning,
		UpdatedAt:       s.now().UTC(),
	})
}

// stats aggregates the run outcome. avgQuality is 0.0 for lead-less runs.
func (s *Service) stats(leads []domain.Lead, start time.Time) domain.RunStats {
	var sum float64
	for _, l := range leads {
		sum += l.QualityScore
	}
	avg := 0.0
	if len(leads) > 0 {
		avg = sum / float64(len(leads))
	}
	return domain.RunStats{
		TotalFound:      len(leads),
		Processed:       len(leads),
		AvgQuality:      avg,
		DurationSeconds: s.now().Sub(start).Seconds(),
	}
}

// progressPercent maps collected leads onto the running-progress scale.
func progressPercent(collected, maxResults int) int {
	if maxResults <= 0 {
		return 0
	}
	pct := runningProgressCeiling * collected / maxResults
	if pct > 100 {
		pct = 100
	}
	return pct
}

// validate rejects filter sets with no search dimension before any
// progress record exists.
func validate(f filters.Filters) error {
	if f.Keywords() == "" && len(f.Sectors()) == 0 &&
		len(f.Provinces()) == 0 && len(f.Regions()) == 0 {
		return fmt.Errorf("%w: no search dimension set", domain.ErrInvalidFilters)
	}
	return nil
}

// capResults applies the server-side result ceiling.
func capResults(f filters.Filters, capLimit int) filters.Filters {
	if f.MaxResults() > capLimit {
		return f.WithMaxResults(capLimit)
	}
	return f
}

// sleepCtx pauses between pages, honoring context cancellation.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
