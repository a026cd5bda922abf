package reconcile

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Stas733/digital-shop/internal/delivery"
)

// DeliveryClient fetches delivery codes from this service's own
// /api/deliver endpoint. Going through the HTTP surface keeps the
// reconciler deployable separately from the shop process.
type DeliveryClient struct {
	baseURL string
	client  *http.Client
}

// NewDeliveryClient creates a client for the delivery endpoint at
// baseURL (the shop's public address).
func NewDeliveryClient(baseURL string) *DeliveryClient {
	return &DeliveryClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// FetchDeliveryCode resolves the delivery for an item. For file items
// every call mints a fresh download token on the server side.
func (c *DeliveryClient) FetchDeliveryCode(ctx context.Context, itemID int64) (*delivery.Delivery, error) {
	url := fmt.Sprintf("%s/api/deliver/%d", c.baseURL, itemID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}

	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
			return nil, fmt.Errorf("deliver endpoint error (%d): %s", resp.StatusCode, errResp.Error)
		}
		return nil, fmt.Errorf("deliver endpoint error (%d): %s", resp.StatusCode, string(body))
	}

	var d delivery.Delivery
	if err := json.Unmarshal(body, &d); err != nil {
		return nil, fmt.Errorf("failed to decode delivery response: %w", err)
	}
	return &d, nil
}
