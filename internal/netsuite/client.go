package netsuite

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/ignite/netsuite-kpi/internal/config"
	"github.com/ignite/netsuite-kpi/internal/domain"
	"github.com/ignite/netsuite-kpi/internal/pkg/logger"
)

const (
	suiteQLPath = "/services/rest/query/v1/suiteql"

	// MaxPageSize is the largest page SuiteQL returns.
	MaxPageSize = 1000

	maxErrorBody = 2048
)

// HTTPDoer is the interface for executing HTTP requests.
// *http.Client satisfies it.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// APIError is a non-success response from the SuiteQL endpoint.
type APIError struct {
	StatusCode int
	Detail     string
	Body       string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("netsuite API error %d: %s", e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("netsuite API error %d: %s", e.StatusCode, e.Body)
}

// Client is the SuiteQL REST client
type Client struct {
	baseURL    string
	httpClient HTTPDoer
	pageSize   int
	limiter    *rate.Limiter
	query      string
}

// NewClient creates a SuiteQL client that sends requests through httpClient,
// which must already carry authentication. query is what Fetch runs.
func NewClient(baseURL string, httpClient HTTPDoer, query string, pageSize int, ratePerSecond float64) *Client {
	if pageSize <= 0 || pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	c := &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		pageSize:   pageSize,
		query:      query,
	}
	if ratePerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(ratePerSecond), 1)
	}
	return c
}

// New builds an authenticated client from configuration, choosing token-based
// auth or OAuth 2.0 client credentials by cfg.AuthMode.
func New(ctx context.Context, cfg config.NetSuiteConfig) (*Client, error) {
	query := cfg.Query
	if query == "" {
		q, err := BuildQuery(cfg.Since)
		if err != nil {
			return nil, err
		}
		query = q
	}

	base := &http.Client{Timeout: cfg.Timeout()}

	var httpClient *http.Client
	switch cfg.AuthMode {
	case config.AuthTBA:
		httpClient = NewTBAHTTPClient(ctx, TBACredentials{
			Realm:          cfg.Realm(),
			ConsumerKey:    cfg.ConsumerKey,
			ConsumerSecret: cfg.ConsumerSecret,
			TokenID:        cfg.TokenID,
			TokenSecret:    cfg.TokenSecret,
		}, base)
	case config.AuthOAuth2:
		pemData, err := LoadPrivateKey(cfg.PrivateKeyPath)
		if err != nil {
			return nil, err
		}
		httpClient, err = NewM2MHTTPClient(ctx, cfg.URL(), M2MCredentials{
			ClientID:      cfg.ClientID,
			CertificateID: cfg.CertificateID,
			Scope:         cfg.Scope,
			PrivateKeyPEM: pemData,
		}, base)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown auth mode %q", cfg.AuthMode)
	}

	return NewClient(cfg.URL(), httpClient, query, cfg.PageSize, cfg.RatePerSecond), nil
}

// Name identifies the source in logs.
func (c *Client) Name() string { return "netsuite" }

// Fetch runs the configured query and returns every row.
func (c *Client) Fetch(ctx context.Context) ([]domain.Record, error) {
	return c.Query(ctx, c.query)
}

type queryRequest struct {
	Q string `json:"q"`
}

type queryResponse struct {
	Count        int              `json:"count"`
	HasMore      bool             `json:"hasMore"`
	Items        *[]domain.Record `json:"items"`
	Offset       int              `json:"offset"`
	TotalResults int              `json:"totalResults"`
}

// Query runs a SuiteQL statement, following pages until hasMore is false.
// Any failing page fails the whole query; no partial result is returned.
func (c *Client) Query(ctx context.Context, q string) ([]domain.Record, error) {
	var records []domain.Record
	offset := 0

	for {
		page, err := c.page(ctx, q, offset)
		if err != nil {
			return nil, fmt.Errorf("suiteql page at offset %d: %w", offset, err)
		}

		items := *page.Items
		for _, item := range items {
			delete(item, "links")
			records = append(records, item)
		}

		logger.Debug("suiteql page fetched",
			"offset", offset, "count", len(items), "total", page.TotalResults, "has_more", page.HasMore)

		if !page.HasMore {
			return records, nil
		}
		if len(items) == 0 {
			return nil, errors.New("suiteql reported more rows but returned an empty page")
		}
		offset += len(items)
	}
}

func (c *Client) page(ctx context.Context, q string, offset int) (*queryResponse, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	body, err := json.Marshal(queryRequest{Q: q})
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("limit", strconv.Itoa(c.pageSize))
	params.Set("offset", strconv.Itoa(offset))
	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, suiteQLPath, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Prefer", "transient")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, newAPIError(resp.StatusCode, respBody)
	}

	var out queryResponse
	dec := json.NewDecoder(bytes.NewReader(respBody))
	dec.UseNumber()
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to parse suiteql response: %w", err)
	}
	if out.Items == nil {
		return nil, errors.New("suiteql response has no items array")
	}

	logger.Debug("suiteql request", "status", resp.StatusCode, "elapsed_ms", time.Since(start).Milliseconds())
	return &out, nil
}

// newAPIError extracts the first "o:errorDetails" detail NetSuite sends with
// failures, keeping a truncated raw body as a fallback.
func newAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status}
	if len(body) > maxErrorBody {
		apiErr.Body = string(body[:maxErrorBody]) + "..."
	} else {
		apiErr.Body = string(body)
	}

	var payload struct {
		Title   string `json:"title"`
		Details []struct {
			Detail    string `json:"detail"`
			ErrorCode string `json:"o:errorCode"`
		} `json:"o:errorDetails"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		switch {
		case len(payload.Details) > 0 && payload.Details[0].ErrorCode != "":
			apiErr.Detail = payload.Details[0].ErrorCode + ": " + payload.Details[0].Detail
		case len(payload.Details) > 0:
			apiErr.Detail = payload.Details[0].Detail
		case payload.Title != "":
			apiErr.Detail = payload.Title
		}
	}
	return apiErr
}
