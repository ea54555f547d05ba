// Package worker invokes the external per-platform scraping workers. Scraping
// itself, including retry policy, lives in the worker service; this package
// only hands off analysis requests.
package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/soundlytics/artistpulse/pkg/models"
)

// ErrWorkerRejected means the worker service refused the dispatch request.
var ErrWorkerRejected = errors.New("worker rejected dispatch")

// Invoker hands an analysis request to one platform's worker.
type Invoker interface {
	Invoke(ctx context.Context, platform models.Platform, req models.WorkerRequest) error
}

// HTTPInvoker implements Invoker against the scraper service's HTTP API, one
// endpoint per platform.
type HTTPInvoker struct {
	baseURL string
	client  *http.Client
}

// NewHTTPInvoker creates a new HTTPInvoker.
func NewHTTPInvoker(baseURL string, timeout time.Duration) *HTTPInvoker {
	return &HTTPInvoker{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

func (i *HTTPInvoker) Invoke(ctx context.Context, platform models.Platform, req models.WorkerRequest) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal worker request: %w", err)
	}

	u := fmt.Sprintf("%s/workers/%s/analyze", i.baseURL, platform)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := i.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("invoke %s worker: %w", platform, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %s worker returned status %d", ErrWorkerRejected, platform, resp.StatusCode)
	}
	return nil
}
