// Package places is the HTTP client for the paginated place-search
// provider (text search + per-result details).
package places

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/leadstack/leadscout/internal/domain"
	"github.com/leadstack/leadscout/internal/metrics"
)

const (
	statusOK          = "OK"
	statusZeroResults = "ZERO_RESULTS"

	endpointSearch  = "search"
	endpointDetails = "details"
)

// Config holds the provider client settings.
type Config struct {
	BaseURL  string
	APIKey   string
	PageSize int
	Timeout  time.Duration
	Language string
	Region   string
	Logger   *zap.Logger
}

// Client talks to a generic "place search + place detail" provider over
// a Google-Places-shaped JSON contract.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	pageSize   int
	language   string
	region     string
	logger     *zap.Logger
}

// NewClient creates a provider client.
func NewClient(cfg *Config) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		pageSize:   cfg.PageSize,
		language:   cfg.Language,
		region:     cfg.Region,
		logger:     logger,
	}
}

// searchResponse is the provider's text-search payload.
type searchResponse struct {
	Status        string            `json:"status"`
	ErrorMessage  string            `json:"error_message"`
	NextPageToken string            `json:"next_page_token"`
	Results       []searchResultDTO `json:"results"`
}

type searchResultDTO struct {
	PlaceID          string   `json:"place_id"`
	Name             string   `json:"name"`
	FormattedAddress string   `json:"formatted_address"`
	Types            []string `json:"types"`
	Rating           float64  `json:"rating"`
	UserRatingsTotal int      `json:"user_ratings_total"`
	Geometry         struct {
		Location struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"location"`
	} `json:"geometry"`
}

// detailsResponse is the provider's place-details payload.
type detailsResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Result       struct {
		FormattedPhoneNumber string `json:"formatted_phone_number"`
		Website              string `json:"website"`
		FormattedAddress     string `json:"formatted_address"`
	} `json:"result"`
}

// FetchPage retrieves one page of search results. A non-OK provider
// status other than ZERO_RESULTS is fatal (domain.ErrProvider);
// ZERO_RESULTS yields an empty page with no error.
func (c *Client) FetchPage(
	ctx context.Context, query, pageToken string, bias *domain.GeoBias,
) (domain.ResultPage, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("key", c.apiKey)
	if c.language != "" {
		params.Set("language", c.language)
	}
	if c.region != "" {
		params.Set("region", c.region)
	}
	if c.pageSize > 0 {
		params.Set("pagesize", strconv.Itoa(c.pageSize))
	}
	if pageToken != "" {
		params.Set("pagetoken", pageToken)
	}
	if bias != nil {
		params.Set("location", fmt.Sprintf("%f,%f", bias.Lat, bias.Lng))
		params.Set("radius", strconv.Itoa(bias.RadiusMeters))
	}

	var resp searchResponse
	if err := c.getJSON(ctx, endpointSearch, params, &resp); err != nil {
		return domain.ResultPage{}, err
	}

	switch resp.Status {
	case statusOK:
	case statusZeroResults:
		return domain.ResultPage{}, nil
	default:
		metrics.ProviderRequestsTotal.WithLabelValues(endpointSearch, "provider_error").Inc()
		if resp.ErrorMessage != "" {
			return domain.ResultPage{}, fmt.Errorf(
				"search status %s: %s: %w", resp.Status, resp.ErrorMessage, domain.ErrProvider)
		}
		return domain.ResultPage{}, fmt.Errorf("search status %s: %w", resp.Status, domain.ErrProvider)
	}

	page := domain.ResultPage{
		Results:       make([]domain.RawResult, 0, len(resp.Results)),
		NextPageToken: resp.NextPageToken,
	}
	for _, r := range resp.Results {
		page.Results = append(page.Results, domain.RawResult{
			ProviderID:  r.PlaceID,
			Name:        r.Name,
			Address:     r.FormattedAddress,
			Lat:         r.Geometry.Location.Lat,
			Lng:         r.Geometry.Location.Lng,
			Categories:  r.Types,
			Rating:      r.Rating,
			ReviewCount: r.UserRatingsTotal,
		})
	}
	return page, nil
}

// FetchDetails retrieves the enrichment record for one result. Best-effort:
// callers treat any error as "no detail available" and carry on.
func (c *Client) FetchDetails(ctx context.Context, providerID string) (*domain.PlaceDetail, error) {
	params := url.Values{}
	params.Set("place_id", providerID)
	params.Set("key", c.apiKey)
	if c.language != "" {
		params.Set("language", c.language)
	}

	var resp detailsResponse
	if err := c.getJSON(ctx, endpointDetails, params, &resp); err != nil {
		return nil, err
	}

	if resp.Status != statusOK {
		metrics.ProviderRequestsTotal.WithLabelValues(endpointDetails, "provider_error").Inc()
		return nil, fmt.Errorf("details status %s: %w", resp.Status, domain.ErrProvider)
	}

	return &domain.PlaceDetail{
		Phone:   resp.Result.FormattedPhoneNumber,
		Website: resp.Result.Website,
		Address: resp.Result.FormattedAddress,
	}, nil
}

// HealthCheck verifies provider reachability with a minimal search request.
func (c *Client) HealthCheck(ctx context.Context) error {
	params := url.Values{}
	params.Set("query", "ping")
	params.Set("key", c.apiKey)
	var resp searchResponse
	if err := c.getJSON(ctx, endpointSearch, params, &resp); err != nil {
		return err
	}
	return nil
}

// getJSON performs an instrumented GET and decodes the JSON body.
// Transport failures and non-2xx responses wrap domain.ErrProvider.
func (c *Client) getJSON(ctx context.Context, endpoint string, params url.Values, out any) error {
	reqURL := c.baseURL + "/" + endpoint + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("build %s request: %w", endpoint, err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		metrics.ProviderRequestsTotal.WithLabelValues(endpoint, "transport_error").Inc()
		return fmt.Errorf("%s request failed: %v: %w", endpoint, err, domain.ErrProvider)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.ProviderRequestsTotal.WithLabelValues(endpoint, "transport_error").Inc()
		return fmt.Errorf("read %s response: %v: %w", endpoint, err, domain.ErrProvider)
	}

	if resp.StatusCode != http.StatusOK {
		metrics.ProviderRequestsTotal.WithLabelValues(endpoint, "http_error").Inc()
		return fmt.Errorf("%s HTTP %d: %w", endpoint, resp.StatusCode, domain.ErrProvider)
	}

	if err := json.Unmarshal(body, out); err != nil {
		metrics.ProviderRequestsTotal.WithLabelValues(endpoint, "decode_error").Inc()
		return fmt.Errorf("decode %s response: %v: %w", endpoint, err, domain.ErrProvider)
	}

	metrics.ProviderRequestsTotal.WithLabelValues(endpoint, "success").Inc()
	metrics.ProviderRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
	return nil
}
