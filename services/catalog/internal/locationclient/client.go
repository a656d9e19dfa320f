// Package locationclient looks up location groups in the remote location
// service.
package locationclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/utafrali/storefront-catalog/pkg/httpclient"

	"github.com/utafrali/storefront-catalog/services/catalog/internal/domain"
)

const serviceName = "location"

// HTTPDoer is the interface for executing HTTP requests.
// Both httpclient.Client and httpclient.CircuitBreakerClient satisfy this.
type HTTPDoer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// Client implements location.Lookup against the location service REST API.
type Client struct {
	http    HTTPDoer
	baseURL string
	logger  *slog.Logger
}

// New creates a client for the location service at baseURL.
func New(doer HTTPDoer, baseURL string, logger *slog.Logger) *Client {
	return &Client{
		http:    doer,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

// groupResponse is the envelope returned by the location service.
type groupResponse struct {
	Data domain.LocationGroup `json:"data"`
}

// LookupPincode returns the group serving pincode in the store.
func (c *Client) LookupPincode(ctx context.Context, storeID, pincode string) (*domain.LocationGroup, error) {
	return c.get(ctx, c.storePath(storeID, "pincodes", pincode), domain.ErrPincodeNotFound)
}

// DefaultGroup returns the store's default group.
func (c *Client) DefaultGroup(ctx context.Context, storeID string) (*domain.LocationGroup, error) {
	return c.get(ctx, c.storePath(storeID, "location-groups", "default"), domain.ErrNoDefaultGroup)
}

// GetGroup returns one group of the store.
func (c *Client) GetGroup(ctx context.Context, storeID, groupID string) (*domain.LocationGroup, error) {
	return c.get(ctx, c.storePath(storeID, "location-groups", groupID), domain.ErrLocationGroupNotFound)
}

func (c *Client) storePath(storeID string, segments ...string) string {
	var b strings.Builder
	b.WriteString(c.baseURL)
	b.WriteString("/api/v1/stores/")
	b.WriteString(url.PathEscape(storeID))
	for _, s := range segments {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(s))
	}
	return b.String()
}

func (c *Client) get(ctx context.Context, target string, notFound error) (*domain.LocationGroup, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create location request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		if errors.Is(err, httpclient.ErrCircuitOpen) {
			c.logger.WarnContext(ctx, "location service circuit open", slog.String("url", target))
		}
		return nil, fmt.Errorf("call location service: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		_ = resp.Body.Close()
		return nil, notFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, httpclient.ParseResponseError(resp, serviceName)
	}
	defer resp.Body.Close()

	var body groupResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode location response: %w", err)
	}
	return &body.Data, nil
}
