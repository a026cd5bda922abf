// Package marketplace is a client for the partner order API: listing
// orders awaiting digital delivery and posting delivery codes back.
package marketplace

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Stas733/digital-shop/internal/metrics"
)

const (
	defaultBaseURL = "https://api.partner.market.yandex.ru/v2"
	requestTimeout = 30 * time.Second
)

// StatusProcessing is the order state this service acts on.
const StatusProcessing = "PROCESSING"

// Order is an order as returned by the partner API. Read-only to this
// service; the marketplace owns its lifecycle.
type Order struct {
	ID        int64       `json:"id"`
	Status    string      `json:"status"`
	UpdatedAt time.Time   `json:"updatedAt"`
	Items     []OrderItem `json:"items"`
}

// OrderItem carries the external SKU used for item-identity mapping.
type OrderItem struct {
	ShopSKU string `json:"shopSku"`
}

// DigitalGood is one code/description pair delivered for an order.
type DigitalGood struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type ordersResponse struct {
	Orders []Order `json:"orders"`
}

type apiError struct {
	Errors []struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
}

// Client talks to the partner marketplace API for a single campaign.
type Client struct {
	campaignID string
	oauthToken string
	baseURL    string
	client     *http.Client
}

// NewClient creates a marketplace client for the given campaign.
func NewClient(campaignID, oauthToken string) *Client {
	return &Client{
		campaignID: campaignID,
		oauthToken: oauthToken,
		baseURL:    defaultBaseURL,
		client:     &http.Client{Timeout: requestTimeout},
	}
}

// SetBaseURL overrides the API base URL (used in tests).
func (c *Client) SetBaseURL(baseURL string) {
	c.baseURL = baseURL
}

// GetProcessingOrders fetches all orders currently in PROCESSING state.
func (c *Client) GetProcessingOrders(ctx context.Context) ([]Order, error) {
	url := fmt.Sprintf("%s/campaigns/%s/orders.json?status=%s", c.baseURL, c.campaignID, StatusProcessing)

	body, err := c.do(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	var resp ordersResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode orders response: %w", err)
	}
	return resp.Orders, nil
}

// DeliverDigitalGoods reports delivery codes for an order. The
// marketplace's own order status transition decides whether the order
// shows up again on the next poll.
func (c *Client) DeliverDigitalGoods(ctx context.Context, orderID int64, goods []DigitalGood) error {
	url := fmt.Sprintf("%s/campaigns/%s/orders/%d/deliverDigitalGoods.json", c.baseURL, c.campaignID, orderID)

	payload, err := json.Marshal(map[string]any{"digitalGoods": goods})
	if err != nil {
		return fmt.Errorf("failed to marshal delivery payload: %w", err)
	}

	_, err = c.do(ctx, http.MethodPost, url, payload)
	return err
}

func (c *Client) do(ctx context.Context, method, url string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "OAuth "+c.oauthToken)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	metrics.MarketplaceRequestDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}

	respBody, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		// Try to parse a structured API error
		var apiErr apiError
		if json.Unmarshal(respBody, &apiErr) == nil && len(apiErr.Errors) > 0 {
			return nil, fmt.Errorf("marketplace API error (%d): %s: %s",
				resp.StatusCode, apiErr.Errors[0].Code, apiErr.Errors[0].Message)
		}
		return nil, fmt.Errorf("marketplace API error (%d): %s", resp.StatusCode, string(respBody))
	}

	return respBody, nil
}
