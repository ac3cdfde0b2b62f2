package search

import (
	"context"

	"github.com/leadstack/leadscout/internal/domain"
	"github.com/leadstack/leadscout/internal/domain/filters"
)

// Provider is the paginated place-search contract.
type Provider interface {
	// FetchPage returns one page of results. ZERO-result pages are a
	// normal end of pagination, not an error.
	FetchPage(ctx context.Context, query, pageToken string, bias *domain.GeoBias) (domain.ResultPage, error)

	// FetchDetails is best-effort enrichment; the orchestrator treats
	// any error as "no detail".
	FetchDetails(ctx context.Context, providerID string) (*domain.PlaceDetail, error)

	// ResolveBias maps location names onto a geographic bias, nil when
	// none of the names is known.
	ResolveBias(locations []string) *domain.GeoBias
}

// ProgressStore is the durable per-run progress channel polled by clients.
type ProgressStore interface {
	Put(ctx context.Context, rec domain.ProgressRecord) error
	Get(ctx context.Context, runID string) (domain.ProgressRecord, error)
	RequestStop(ctx context.Context, runID, message string) error
	StopRequested(ctx context.Context, runID string) (bool, error)
}

// ResultStore persists the final lead list of a finished run.
type ResultStore interface {
	Put(ctx context.Context, runID string, leads []domain.Lead) error
	Get(ctx context.Context, runID string) ([]domain.Lead, error)
}

// Extractor normalizes raw results into leads. A nil lead is a normal
// sector-mismatch skip.
type Extractor interface {
	ToLead(raw domain.RawResult, detail *domain.PlaceDetail, f filters.Filters) *domain.Lead
}

// ContactFetcher scrapes a lead's website for contact data (optional,
// best-effort).
type ContactFetcher interface {
	FetchContact(ctx context.Context, websiteURL string) (*domain.Contact, error)
}
