// Package filters holds the validated search filter set (immutable value object).
package filters

import (
	"fmt"
	"strings"

	"github.com/leadstack/leadscout/internal/domain"
)

const (
	// DefaultMaxResults applies when a caller does not set a result cap.
	DefaultMaxResults = 20
	// MaxMaxResults is the hard ceiling for a single run.
	MaxMaxResults = 1000
)

// Filters is a validated lead-search filter set.
type Filters struct {
	keywords      string
	sectors       []string
	provinces     []string
	regions       []string
	revenueBand   string
	employeesBand string
	maxResults    int
}

// New validates and creates a filter set. At least one of keywords,
// sectors, provinces, or regions must be non-empty; maxResults outside
// [1, MaxMaxResults] is clamped, 0 means DefaultMaxResults.
func New(
	keywords string, sectors, provinces, regions []string,
	revenueBand, employeesBand string, maxResults int,
) (Filters, error) {
	keywords = strings.TrimSpace(keywords)
	sectors = normalize(sectors)
	provinces = normalize(provinces)
	regions = normalize(regions)

	if keywords == "" && len(sectors) == 0 && len(provinces) == 0 && len(regions) == 0 {
		return Filters{}, fmt.Errorf(
			"%w: at least one of keywords, sectors, provinces or regions is required",
			domain.ErrInvalidFilters,
		)
	}

	switch {
	case maxResults == 0:
		maxResults = DefaultMaxResults
	case maxResults < 1:
		maxResults = 1
	case maxResults > MaxMaxResults:
		maxResults = MaxMaxResults
	}

	return Filters{
		keywords:      keywords,
		sectors:       sectors,
		provinces:     provinces,
		regions:       regions,
		revenueBand:   strings.TrimSpace(revenueBand),
		employeesBand: strings.TrimSpace(employeesBand),
		maxResults:    maxResults,
	}, nil
}

// Keywords returns the free-text keywords (may be empty).
func (f Filters) Keywords() string { return f.keywords }

// Sectors returns the requested sector labels.
func (f Filters) Sectors() []string { return f.sectors }

// Provinces returns the requested provinces.
func (f Filters) Provinces() []string { return f.provinces }

// Regions returns the requested regions.
func (f Filters) Regions() []string { return f.regions }

// RevenueBand returns the caller-asserted revenue band (may be empty).
func (f Filters) RevenueBand() string { return f.revenueBand }

// EmployeesBand returns the caller-asserted employee band (may be empty).
func (f Filters) EmployeesBand() string { return f.employeesBand }

// MaxResults returns the per-run result cap.
func (f Filters) MaxResults() int { return f.maxResults }

// Locations returns provinces and regions combined, in that order.
func (f Filters) Locations() []string {
	out := make([]string, 0, len(f.provinces)+len(f.regions))
	out = append(out, f.provinces...)
	out = append(out, f.regions...)
	return out
}

// WithMaxResults returns a copy with the cap replaced (clamped the same
// way as New). Used to apply a server-side ceiling.
func (f Filters) WithMaxResults(n int) Filters {
	switch {
	case n < 1:
		n = 1
	case n > MaxMaxResults:
		n = MaxMaxResults
	}
	c := f
	c.maxResults = n
	return c
}

// normalize trims entries and drops empty ones.
func normalize(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
