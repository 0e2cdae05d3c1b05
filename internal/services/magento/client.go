package magento

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"magewoo/internal/logger"
	"magewoo/internal/models"
)

const maxPageLimit = 1000

// ErrUnauthorized is returned when the connector rejects the configured API key.
var ErrUnauthorized = errors.New("connector rejected API key")

// ErrMalformed marks a response body that was not the expected envelope.
var ErrMalformed = errors.New("malformed connector response")

// APIError is a connector-reported failure (success=false in the envelope).
type APIError struct {
	Endpoint string
	Message  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("connector %s: %s", e.Endpoint, e.Message)
}

// Client talks to the connector endpoint installed on the Magento server.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *logger.Logger
}

func NewClient(baseURL, apiKey string, timeout time.Duration, logger *logger.Logger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Ping checks that the connector is reachable. It carries no credentials and
// never returns entity data.
func (c *Client) Ping(ctx context.Context) error {
	env, err := c.get(ctx, "/ping", nil, false)
	if err != nil {
		return fmt.Errorf("connector unreachable: %w", err)
	}
	if !env.Success || !env.Accessible {
		return &APIError{Endpoint: "/ping", Message: env.Message}
	}
	return nil
}

// Probe verifies the configured API key against the connector.
func (c *Client) Probe(ctx context.Context) error {
	if c.apiKey == "" {
		return errors.New("no API key configured")
	}
	env, err := c.get(ctx, "/info", nil, true)
	if err != nil {
		return err
	}
	if !env.Success {
		return &APIError{Endpoint: "/info", Message: env.Message}
	}
	return nil
}

// Count returns the remote total for one entity type.
func (c *Client) Count(ctx context.Context, kind models.EntityKind) (int, error) {
	env, err := c.get(ctx, "/counts", nil, true)
	if err != nil {
		return 0, err
	}
	if !env.Success {
		return 0, &APIError{Endpoint: "/counts", Message: env.Message}
	}
	n, ok := env.Counts[string(kind)]
	if !ok {
		return 0, fmt.Errorf("connector reported no count for %s", kind)
	}
	return n, nil
}

// FetchPage returns one page of raw records plus the remote total. The total
// comes from an untrusted counter and is advisory only.
func (c *Client) FetchPage(ctx context.Context, kind models.EntityKind, page, limit int) ([]json.RawMessage, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 1
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	params := url.Values{}
	params.Set("page", fmt.Sprintf("%d", page))
	params.Set("limit", fmt.Sprintf("%d", limit))

	env, err := c.get(ctx, "/"+string(kind), params, true)
	if err != nil {
		return nil, 0, err
	}
	if !env.Success {
		return nil, 0, &APIError{Endpoint: "/" + string(kind), Message: env.Message}
	}

	var records []json.RawMessage
	switch kind {
	case models.KindProducts:
		records = env.Products
	case models.KindCategories:
		records = env.Categories
	case models.KindCustomers:
		records = env.Customers
	case models.KindOrders:
		records = env.Orders
	default:
		return nil, 0, fmt.Errorf("unknown entity type %q", kind)
	}

	c.logger.Debug("Fetched %s page %d: %d records, remote total %d", kind, page, len(records), env.Total)
	return records, env.Total, nil
}

// FetchProducts returns one decoded page of products. The typed fetchers are
// the client's convenience surface for callers that want whole-page decoding;
// the migration pipelines go through FetchPage instead so that one
// undecodable record fails only that item, not the whole page.
func (c *Client) FetchProducts(ctx context.Context, page, limit int) ([]RawProduct, int, error) {
	return fetchTyped[RawProduct](ctx, c, models.KindProducts, page, limit)
}

func (c *Client) FetchCategories(ctx context.Context, page, limit int) ([]RawCategory, int, error) {
	return fetchTyped[RawCategory](ctx, c, models.KindCategories, page, limit)
}

func (c *Client) FetchCustomers(ctx context.Context, page, limit int) ([]RawCustomer, int, error) {
	return fetchTyped[RawCustomer](ctx, c, models.KindCustomers, page, limit)
}

func (c *Client) FetchOrders(ctx context.Context, page, limit int) ([]RawOrder, int, error) {
	return fetchTyped[RawOrder](ctx, c, models.KindOrders, page, limit)
}

func fetchTyped[T any](ctx context.Context, c *Client, kind models.EntityKind, page, limit int) ([]T, int, error) {
	raw, total, err := c.FetchPage(ctx, kind, page, limit)
	if err != nil {
		return nil, 0, err
	}
	records := make([]T, 0, len(raw))
	for _, r := range raw {
		var rec T
		if err := json.Unmarshal(r, &rec); err != nil {
			return nil, 0, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		records = append(records, rec)
	}
	return records, total, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, authed bool) (*envelope, error) {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if authed {
		req.Header.Set("X-Api-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach connector: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, ErrUnauthorized
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("connector request failed: %d - %s", resp.StatusCode, string(body))
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return &env, nil
}
