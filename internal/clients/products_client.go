package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"
	"pim-service/internal/models"
)

// ProductsClient provides read-only access to products-service. Calculated
// fields evaluate against live product records fetched here.
type ProductsClient struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewProductsClient creates a new products service client. Requests are rate
// limited to avoid hammering products-service from bulk evaluations.
func NewProductsClient(baseURL string) *ProductsClient {
	return &ProductsClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Limit(20), 40),
	}
}

// productResponse is the envelope products-service wraps single records in.
type productResponse struct {
	Success bool                 `json:"success"`
	Data    models.ProductRecord `json:"data"`
	Error   string               `json:"error,omitempty"`
}

// GetProductRecord fetches one product as a flat attribute record. Retries
// transient failures twice with a short backoff.
func (c *ProductsClient) GetProductRecord(ctx context.Context, tenantID, productID string) (models.ProductRecord, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
			}
		}

		record, retryable, err := c.fetchRecord(ctx, tenantID, productID)
		if err == nil {
			return record, nil
		}
		lastErr = err
		if !retryable {
			return nil, err
		}
	}
	return nil, fmt.Errorf("failed to fetch product %s: %w", productID, lastErr)
}

func (c *ProductsClient) fetchRecord(ctx context.Context, tenantID, productID string) (models.ProductRecord, bool, error) {
	url := fmt.Sprintf("%s/api/v1/products/%s", c.baseURL, productID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Tenant-ID", tenantID)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, true, fmt.Errorf("failed to call products service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, true, fmt.Errorf("products service returned status %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("products service returned status %d", resp.StatusCode)
	}

	var envelope productResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, false, fmt.Errorf("failed to decode response: %w", err)
	}
	if !envelope.Success {
		return nil, false, fmt.Errorf("products service error: %s", envelope.Error)
	}
	return envelope.Data, false, nil
}
