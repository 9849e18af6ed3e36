package web

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultEndpoint is the SerpAPI search endpoint.
	DefaultEndpoint = "https://serpapi.com/search"

	defaultMaxResults = 5
	defaultTimeout    = 10 * time.Second

	// maxErrorBodyBytes caps how much of an error response is quoted.
	maxErrorBodyBytes = 1024

	// maxResponseBytes caps how much of any response body is read.
	maxResponseBytes = 4 << 20
)

// Result is one web search hit.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
	Source  string `json:"source"`
}

// Config controls the search provider and its guardrails.
type Config struct {
	// Endpoint is the search API base URL. Empty means DefaultEndpoint.
	Endpoint string

	// APIKey authenticates against the provider. Required.
	APIKey string

	// MaxResults caps results per query. Zero means the default.
	MaxResults int

	// AllowDomains, when non-empty, keeps only results whose domain ends
	// with one of its entries. BlockDomains drops matching domains and is
	// applied first.
	AllowDomains []string
	BlockDomains []string

	// Timeout bounds every request. Zero means the default.
	Timeout time.Duration
}

// Client queries SerpAPI's Google engine.
type Client struct {
	endpoint     string
	apiKey       string
	maxResults   int
	allowDomains []string
	blockDomains []string
	timeout      time.Duration
	httpClient   *http.Client
	logger       *slog.Logger
}

// Option configures a Client.
type Option func(*Client) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) error {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger
		return nil
	}
}

// NewClient creates a new web search client.
func NewClient(config Config, opts ...Option) (*Client, error) {
	if config.APIKey == "" {
		return nil, ErrAPIKeyRequired
	}
	endpoint := config.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	parsed, err := url.Parse(endpoint)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidEndpoint, endpoint)
	}

	maxResults := config.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	c := &Client{
		endpoint:     endpoint,
		apiKey:       config.APIKey,
		maxResults:   maxResults,
		allowDomains: normalizeDomains(config.AllowDomains),
		blockDomains: normalizeDomains(config.BlockDomains),
		timeout:      timeout,
		httpClient:   &http.Client{},
		logger:       slog.Default(),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// Search runs one query and returns filtered, deduplicated results, at most
// MaxResults of them.
func (c *Client) Search(ctx context.Context, query string) ([]Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}

	endpoint, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidEndpoint, c.endpoint)
	}
	params := endpoint.Query()
	params.Set("engine", "google")
	params.Set("q", query)
	params.Set("api_key", c.apiKey)
	params.Set("num", strconv.Itoa(c.maxResults))
	endpoint.RawQuery = params.Encode()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrSearchFailed, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchFailed, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrSearchFailed, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: provider returned %d: %s",
			ErrSearchFailed, resp.StatusCode, truncateBody(raw))
	}

	var body struct {
		OrganicResults []struct {
			Title   string `json:"title"`
			Link    string `json:"link"`
			URL     string `json:"url"`
			Snippet string `json:"snippet"`
			Source  string `json:"source"`
		} `json:"organic_results"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("%w: invalid json: %v", ErrSearchFailed, err)
	}

	results := make([]Result, 0, len(body.OrganicResults))
	for _, item := range body.OrganicResults {
		if len(results) >= c.maxResults {
			break
		}
		link := item.Link
		if link == "" {
			link = item.URL
		}
		source := item.Source
		if source == "" {
			source = extractDomain(link)
		}
		results = append(results, Result{
			Title:   item.Title,
			URL:     link,
			Snippet: item.Snippet,
			Source:  source,
		})
	}

	results = Dedupe(c.filter(results))
	c.logger.Debug("web search completed", "query", query, "results", len(results))
	return results, nil
}

// filter applies the block list, then the allow list, by domain suffix.
func (c *Client) filter(results []Result) []Result {
	if len(c.allowDomains) == 0 && len(c.blockDomains) == 0 {
		return results
	}
	kept := make([]Result, 0, len(results))
	for _, res := range results {
		domain := strings.ToLower(res.Source)
		if domain == "" {
			domain = extractDomain(res.URL)
		}
		if matchesSuffix(domain, c.blockDomains) {
			continue
		}
		if len(c.allowDomains) > 0 && !matchesSuffix(domain, c.allowDomains) {
			continue
		}
		kept = append(kept, res)
	}
	return kept
}

// Dedupe drops results whose URL was already seen, keeping the first.
func Dedupe(results []Result) []Result {
	seen := make(map[string]bool, len(results))
	kept := make([]Result, 0, len(results))
	for _, res := range results {
		if seen[res.URL] {
			continue
		}
		seen[res.URL] = true
		kept = append(kept, res)
	}
	return kept
}

func matchesSuffix(domain string, suffixes []string) bool {
	for _, s := range suffixes {
		if strings.HasSuffix(domain, s) {
			return true
		}
	}
	return false
}

func normalizeDomains(domains []string) []string {
	normalized := make([]string, 0, len(domains))
	for _, d := range domains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d != "" {
			normalized = append(normalized, d)
		}
	}
	return normalized
}

func extractDomain(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(parsed.Host)
}

func truncateBody(raw []byte) string {
	body := strings.TrimSpace(string(raw))
	if len(body) > maxErrorBodyBytes {
		body = body[:maxErrorBodyBytes] + "..."
	}
	return body
}
