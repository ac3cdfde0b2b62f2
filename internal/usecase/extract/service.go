// Package extract converts raw provider results into normalized leads.
package extract

import (
	"math"
	"net/url"
	"strings"
	"time"

	"github.com/leadstack/leadscout/internal/domain"
	"github.com/leadstack/leadscout/internal/domain/filters"
	"github.com/leadstack/leadscout/internal/domain/taxonomy"
)

// Quality score weights. The baseline plus every bonus is fixed; banding
// thresholds, by contrast, are configuration (see Band).
const (
	scoreBaseline     = 0.5
	scorePhoneBonus   = 0.2
	scoreWebsiteBonus = 0.2
	scoreRatingBonus  = 0.1
	scoreReviewsBonus = 0.1

	ratingThreshold  = 4.0
	reviewsThreshold = 50
)

// Band maps a review-count ceiling to an estimate label. A zero
// MaxReviews marks the unbounded last band.
type Band struct {
	MaxReviews int
	Label      string
}

// Service derives Leads from raw results. Pure: no network, no state
// mutation; the same inputs always produce the same lead.
type Service struct {
	employeeBands []Band
	revenueBands  []Band
	source        string
	now           func() time.Time
}

// New creates an extractor with the given banding thresholds.
func New(employeeBands, revenueBands []Band, source string) *Service {
	return &Service{
		employeeBands: employeeBands,
		revenueBands:  revenueBands,
		source:        source,
		now:           time.Now,
	}
}

// WithClock replaces the capture timestamp source (tests).
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// ToLead builds a normalized Lead from one raw result and its optional
// detail record. Returns nil when the result does not match any requested
// sector; that is a normal skip, not an error.
func (s *Service) ToLead(
	raw domain.RawResult, detail *domain.PlaceDetail, f filters.Filters,
) *domain.Lead {
	if !taxonomy.MatchesAny(f.Sectors(), raw.Name, raw.Categories) {
		return nil
	}

	phone := pick(detailPhone(detail), "")
	website := pick(detailWebsite(detail), "")
	address := pick(detailAddress(detail), raw.Address)

	lead := domain.Lead{
		CompanyName:       pick(raw.Name, domain.Unknown),
		Address:           pick(address, domain.Unknown),
		Phone:             pick(phone, domain.Unknown),
		Email:             s.deriveEmail(detail, website),
		Website:           pick(website, domain.Unknown),
		Sector:            s.deriveSector(raw, f),
		EmployeesEstimate: s.estimate(f.EmployeesBand(), raw.ReviewCount, s.employeeBands),
		RevenueEstimate:   s.estimate(f.RevenueBand(), raw.ReviewCount, s.revenueBands),
		QualityScore:      qualityScore(phone, website, raw.Rating, raw.ReviewCount),
		Source:            s.source,
		CapturedAt:        s.now().UTC().Truncate(time.Second),
	}
	return &lead
}

// deriveEmail prefers a contact address recovered by enrichment, then the
// info@<domain> placeholder. Placeholder addresses are low-confidence by
// definition; they mark a contact route, not a verified mailbox.
func (s *Service) deriveEmail(detail *domain.PlaceDetail, website string) string {
	if detail != nil && detail.Email != "" {
		return detail.Email
	}
	if website == "" {
		return domain.Unknown
	}
	host := hostOf(website)
	if host == "" {
		return domain.Unknown
	}
	return "info@" + host
}

// deriveSector returns the first requested sector the result matches,
// falling back to the first category tag.
func (s *Service) deriveSector(raw domain.RawResult, f filters.Filters) string {
	for _, sector := range f.Sectors() {
		if taxonomy.Matches(sector, raw.Name, raw.Categories) {
			return sector
		}
	}
	if len(raw.Categories) > 0 {
		return raw.Categories[0]
	}
	return domain.Unknown
}

// estimate echoes a caller-asserted band verbatim, otherwise bands the
// review count: more reviews, larger estimated band.
func (s *Service) estimate(assertedBand string, reviewCount int, bands []Band) string {
	if assertedBand != "" {
		return assertedBand
	}
	for _, b := range bands {
		if b.MaxReviews == 0 || reviewCount <= b.MaxReviews {
			return b.Label
		}
	}
	return domain.Unknown
}

// qualityScore starts at the baseline and adds fixed bonuses for contact
// and reputation signals, clamped to [0, 1].
func qualityScore(phone, website string, rating float64, reviewCount int) float64 {
	score := scoreBaseline
	if phone != "" {
		score += scorePhoneBonus
	}
	if website != "" {
		score += scoreWebsiteBonus
	}
	if rating >= ratingThreshold {
		score += scoreRatingBonus
	}
	if reviewCount > reviewsThreshold {
		score += scoreReviewsBonus
	}
	return math.Min(1.0, math.Max(0.0, score))
}

func detailPhone(d *domain.PlaceDetail) string {
	if d == nil {
		return ""
	}
	return d.Phone
}

func detailWebsite(d *domain.PlaceDetail) string {
	if d == nil {
		return ""
	}
	return d.Website
}

func detailAddress(d *domain.PlaceDetail) string {
	if d == nil {
		return ""
	}
	return d.Address
}

// pick returns the first non-empty string.
func pick(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}

// hostOf extracts the bare domain from a website URL.
func hostOf(website string) string {
	u, err := url.Parse(website)
	if err != nil || u.Host == "" {
		// Bare domains without a scheme still make a usable address.
		if strings.Contains(website, ".") && !strings.ContainsAny(website, " /") {
			return strings.TrimPrefix(website, "www.")
		}
		return ""
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}
