// Package query builds provider search queries from filter sets.
package query

import (
	"strings"

	"github.com/leadstack/leadscout/internal/domain/filters"
	"github.com/leadstack/leadscout/internal/domain/taxonomy"
)

// fallbackTerm keeps the provider query non-empty when neither keywords
// nor sector terms are present (location-only searches).
const fallbackTerm = "empresas"

// Build turns a validated filter set into a provider query string.
// Pure function; always non-empty for any valid filter set.
func Build(f filters.Filters) string {
	var parts []string

	if kw := f.Keywords(); kw != "" {
		parts = append(parts, kw)
	}

	if terms := sectorTerms(f.Sectors()); terms != "" {
		parts = append(parts, "("+terms+")")
	}

	if len(parts) == 0 {
		parts = append(parts, fallbackTerm)
	}

	if locs := locationTerms(f.Locations()); locs != "" {
		parts = append(parts, locs)
	}

	return strings.Join(parts, " ")
}

// sectorTerms OR-joins the taxonomy keywords of every requested sector.
func sectorTerms(sectors []string) string {
	var kws []string
	for _, s := range sectors {
		kws = append(kws, taxonomy.KeywordsFor(s)...)
	}
	return strings.Join(kws, " OR ")
}

// locationTerms OR-joins quoted location names.
func locationTerms(locations []string) string {
	if len(locations) == 0 {
		return ""
	}
	quoted := make([]string, len(locations))
	for i, l := range locations {
		quoted[i] = `"` + l + `"`
	}
	return "(" + strings.Join(quoted, " OR ") + ")"
}
