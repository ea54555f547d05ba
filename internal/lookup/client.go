// Package lookup is the client for the third-party handle-suggestion service.
// It is best effort: resolution treats every failure here as "no handle".
package lookup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/soundlytics/artistpulse/pkg/models"
)

// Sentinel errors for lookup client failures.
var (
	ErrLookupUnavailable = errors.New("handle lookup unavailable")
	ErrLookupTimeout     = errors.New("handle lookup timeout")
	ErrLookupError       = errors.New("handle lookup error")
)

// Client suggests social handles for an artist name.
type Client interface {
	SuggestHandles(ctx context.Context, artistName string) (map[models.Platform]string, error)
}

// HTTPClient implements Client against the suggestion service's HTTP API.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPClient creates a new lookup HTTP client.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type suggestResponse struct {
	Handles map[string]string `json:"handles"`
}

func (c *HTTPClient) SuggestHandles(ctx context.Context, artistName string) (map[models.Platform]string, error) {
	params := url.Values{"name": {artistName}}
	u := fmt.Sprintf("%s/v1/handles?%s", c.baseURL, params.Encode())

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, classifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrLookupError, resp.StatusCode)
	}

	var body suggestResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding lookup response: %w", err)
	}

	handles := make(map[models.Platform]string, len(body.Handles))
	for name, handle := range body.Handles {
		platform, err := models.ParsePlatform(name)
		if err != nil || handle == "" {
			continue
		}
		handles[platform] = handle
	}
	return handles, nil
}

// classifyError maps transport errors onto the client's sentinel errors.
func classifyError(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrLookupTimeout, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrLookupTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrLookupUnavailable, err)
}
