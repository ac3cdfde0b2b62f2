// Package website recovers contact fields from a lead's own website when
// the provider detail record lacks them. Strictly best-effort: any
// failure means "no contact found", never a run error.
package website

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/leadstack/leadscout/internal/domain"
)

const (
	userAgent   = "Mozilla/5.0 (compatible; LeadScout/1.0)"
	maxBodySize = 2 << 20 // 2MB; contact pages are small, cap the read
)

var (
	// Spanish landline and mobile number shapes, optionally prefixed +34.
	phonePattern = regexp.MustCompile(`(\+34\s?)?[6-9]\d{2}[\s.]?\d{3}[\s.]?\d{3}`)
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
)

// Enricher fetches and parses a website's landing page for contact data.
type Enricher struct {
	httpClient *http.Client
	logger     *zap.Logger
}

// NewEnricher creates a website enricher with the given per-request timeout.
func NewEnricher(timeout time.Duration, logger *zap.Logger) *Enricher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Enricher{
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// FetchContact retrieves the page at websiteURL and extracts a phone and
// email. tel:/mailto: links win over free-text pattern matches.
func (e *Enricher) FetchContact(ctx context.Context, websiteURL string) (*domain.Contact, error) {
	parsed, err := url.Parse(websiteURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid website URL %q", websiteURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, websiteURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", websiteURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: HTTP %d", websiteURL, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", websiteURL, err)
	}

	contact := &domain.Contact{
		Phone: phoneFromDoc(doc),
		Email: emailFromDoc(doc),
	}
	if contact.Phone == "" && contact.Email == "" {
		return nil, fmt.Errorf("no contact data on %s", websiteURL)
	}

	e.logger.Debug("website contact extracted",
		zap.String("website", websiteURL),
		zap.Bool("phone", contact.Phone != ""),
		zap.Bool("email", contact.Email != ""),
	)
	return contact, nil
}

// phoneFromDoc prefers tel: links, then free-text number patterns.
func phoneFromDoc(doc *goquery.Document) string {
	var phone string
	doc.Find(`a[href^="tel:"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		phone = cleanTel(strings.TrimPrefix(href, "tel:"))
		return phone == ""
	})
	if phone != "" {
		return phone
	}
	return strings.TrimSpace(phonePattern.FindString(doc.Text()))
}

// emailFromDoc prefers mailto: links, then free-text address patterns.
func emailFromDoc(doc *goquery.Document) string {
	var email string
	doc.Find(`a[href^="mailto:"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		addr := strings.TrimPrefix(href, "mailto:")
		// mailto links may carry ?subject=... parameters
		if i := strings.IndexByte(addr, '?'); i >= 0 {
			addr = addr[:i]
		}
		email = strings.TrimSpace(addr)
		return email == ""
	})
	if email != "" {
		return email
	}
	return emailPattern.FindString(doc.Text())
}

// cleanTel strips URL escapes and separators from a tel: href value.
func cleanTel(raw string) string {
	if unescaped, err := url.QueryUnescape(raw); err == nil {
		raw = unescaped
	}
	return strings.TrimSpace(strings.ReplaceAll(raw, "-", " "))
}
