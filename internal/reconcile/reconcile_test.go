package reconcile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Stas733/digital-shop/internal/delivery"
	"github.com/Stas733/digital-shop/internal/marketplace"
)

// MockMarketClient implements MarketClient for testing
type MockMarketClient struct {
	GetProcessingOrdersFunc func(ctx context.Context) ([]marketplace.Order, error)
	DeliverFunc             func(ctx context.Context, orderID int64, goods []marketplace.DigitalGood) error
	delivered               map[int64][]marketplace.DigitalGood
}

func (m *MockMarketClient) GetProcessingOrders(ctx context.Context) ([]marketplace.Order, error) {
	if m.GetProcessingOrdersFunc != nil {
		return m.GetProcessingOrdersFunc(ctx)
	}
	return nil, nil
}

func (m *MockMarketClient) DeliverDigitalGoods(ctx context.Context, orderID int64, goods []marketplace.DigitalGood) error {
	if m.delivered == nil {
		m.delivered = make(map[int64][]marketplace.DigitalGood)
	}
	m.delivered[orderID] = goods
	if m.DeliverFunc != nil {
		return m.DeliverFunc(ctx, orderID, goods)
	}
	return nil
}

// MockCodeFetcher implements CodeFetcher for testing
type MockCodeFetcher struct {
	FetchFunc func(ctx context.Context, itemID int64) (*delivery.Delivery, error)
	calls     []int64
}

func (m *MockCodeFetcher) FetchDeliveryCode(ctx context.Context, itemID int64) (*delivery.Delivery, error) {
	m.calls = append(m.calls, itemID)
	if m.FetchFunc != nil {
		return m.FetchFunc(ctx, itemID)
	}
	return &delivery.Delivery{Code: "CODE", Description: "DESC"}, nil
}

var testNow = time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

func newTestReconciler(market *MockMarketClient, codes *MockCodeFetcher, skus map[string]int64) *Reconciler {
	r := NewReconciler(market, codes, Config{SKUToItem: skus})
	r.now = func() time.Time { return testNow }
	return r
}

func order(id int64, age time.Duration, sku string) marketplace.Order {
	o := marketplace.Order{
		ID:        id,
		Status:    marketplace.StatusProcessing,
		UpdatedAt: testNow.Add(-age),
	}
	if sku != "" {
		o.Items = []marketplace.OrderItem{{ShopSKU: sku}}
	}
	return o
}

func TestRunDeliversRecentMappedOrder(t *testing.T) {
	market := &MockMarketClient{
		GetProcessingOrdersFunc: func(ctx context.Context) ([]marketplace.Order, error) {
			return []marketplace.Order{order(101, 5*time.Minute, "contract-pdf-01")}, nil
		},
	}
	codes := &MockCodeFetcher{
		FetchFunc: func(ctx context.Context, itemID int64) (*delivery.Delivery, error) {
			if itemID != 1 {
				t.Errorf("fetched item %d, want 1", itemID)
			}
			return &delivery.Delivery{Code: "https://shop/download?token=t", Description: "Enjoy"}, nil
		},
	}
	r := newTestReconciler(market, codes, map[string]int64{"contract-pdf-01": 1})

	r.Run(context.Background())

	goods, ok := market.delivered[101]
	if !ok {
		t.Fatal("order 101 was not delivered")
	}
	if len(goods) != 1 || goods[0].Code != "https://shop/download?token=t" || goods[0].Description != "Enjoy" {
		t.Errorf("delivered %+v, want resolved code and description", goods)
	}
}

func TestRecencyWindowBoundary(t *testing.T) {
	tests := []struct {
		name      string
		age       time.Duration
		delivered bool
	}{
		{"28 minutes old is eligible", 28 * time.Minute, true},
		{"exactly 29 minutes old is stale", 29 * time.Minute, false},
		{"30 minutes old is stale", 30 * time.Minute, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			market := &MockMarketClient{
				GetProcessingOrdersFunc: func(ctx context.Context) ([]marketplace.Order, error) {
					return []marketplace.Order{order(1, tt.age, "sku-1")}, nil
				},
			}
			codes := &MockCodeFetcher{}
			r := newTestReconciler(market, codes, map[string]int64{"sku-1": 1})

			r.Run(context.Background())

			_, got := market.delivered[1]
			if got != tt.delivered {
				t.Errorf("delivered = %v, want %v", got, tt.delivered)
			}
		})
	}
}

func TestStaleOrderScenario(t *testing.T) {
	// Order O1 updated 40 minutes ago with a mapped SKU: zero pushes.
	market := &MockMarketClient{
		GetProcessingOrdersFunc: func(ctx context.Context) ([]marketplace.Order, error) {
			return []marketplace.Order{order(1, 40*time.Minute, "s1")}, nil
		},
	}
	codes := &MockCodeFetcher{}
	r := newTestReconciler(market, codes, map[string]int64{"s1": 2})

	r.Run(context.Background())

	if len(codes.calls) != 0 {
		t.Errorf("resolver called %d times for stale order, want 0", len(codes.calls))
	}
	if len(market.delivered) != 0 {
		t.Errorf("marketplace pushed %d times for stale order, want 0", len(market.delivered))
	}
}

func TestUnknownSKUSkipped(t *testing.T) {
	market := &MockMarketClient{
		GetProcessingOrdersFunc: func(ctx context.Context) ([]marketplace.Order, error) {
			return []marketplace.Order{order(1, time.Minute, "never-configured")}, nil
		},
	}
	codes := &MockCodeFetcher{}
	r := newTestReconciler(market, codes, map[string]int64{"s1": 2})

	r.Run(context.Background())

	if len(codes.calls) != 0 {
		t.Errorf("resolver called %d times for unmapped SKU, want 0", len(codes.calls))
	}
	if len(market.delivered) != 0 {
		t.Errorf("marketplace pushed %d times for unmapped SKU, want 0", len(market.delivered))
	}
}

func TestOrderWithoutItemsSkipped(t *testing.T) {
	market := &MockMarketClient{
		GetProcessingOrdersFunc: func(ctx context.Context) ([]marketplace.Order, error) {
			return []marketplace.Order{order(1, time.Minute, "")}, nil
		},
	}
	codes := &MockCodeFetcher{}
	r := newTestReconciler(market, codes, map[string]int64{"s1": 2})

	r.Run(context.Background())

	if len(codes.calls) != 0 || len(market.delivered) != 0 {
		t.Error("order without items must be skipped entirely")
	}
}

func TestPerOrderIsolation(t *testing.T) {
	// Resolving the first order's item fails; the second order is
	// still attempted and pushed.
	market := &MockMarketClient{
		GetProcessingOrdersFunc: func(ctx context.Context) ([]marketplace.Order, error) {
			return []marketplace.Order{
				order(1, time.Minute, "sku-a"),
				order(2, time.Minute, "sku-b"),
			}, nil
		},
	}
	codes := &MockCodeFetcher{
		FetchFunc: func(ctx context.Context, itemID int64) (*delivery.Delivery, error) {
			if itemID == 10 {
				return nil, errors.New("item unavailable")
			}
			return &delivery.Delivery{Code: "B-CODE", Description: "B"}, nil
		},
	}
	r := newTestReconciler(market, codes, map[string]int64{"sku-a": 10, "sku-b": 20})

	r.Run(context.Background())

	if _, ok := market.delivered[1]; ok {
		t.Error("order 1 was pushed despite resolve failure")
	}
	if goods, ok := market.delivered[2]; !ok || goods[0].Code != "B-CODE" {
		t.Errorf("order 2 not delivered correctly: %+v", market.delivered)
	}
}

func TestPushFailureDoesNotAbortRun(t *testing.T) {
	market := &MockMarketClient{
		GetProcessingOrdersFunc: func(ctx context.Context) ([]marketplace.Order, error) {
			return []marketplace.Order{
				order(1, time.Minute, "sku-a"),
				order(2, time.Minute, "sku-b"),
			}, nil
		},
		DeliverFunc: func(ctx context.Context, orderID int64, goods []marketplace.DigitalGood) error {
			if orderID == 1 {
				return errors.New("marketplace rejected")
			}
			return nil
		},
	}
	codes := &MockCodeFetcher{}
	r := newTestReconciler(market, codes, map[string]int64{"sku-a": 10, "sku-b": 20})

	r.Run(context.Background())

	// Both orders were attempted despite the first push failing.
	if len(codes.calls) != 2 {
		t.Errorf("resolver called %d times, want 2", len(codes.calls))
	}
}

func TestFetchErrorIsSoft(t *testing.T) {
	market := &MockMarketClient{
		GetProcessingOrdersFunc: func(ctx context.Context) ([]marketplace.Order, error) {
			return nil, errors.New("marketplace down")
		},
	}
	codes := &MockCodeFetcher{}
	r := newTestReconciler(market, codes, map[string]int64{"s1": 1})

	// Must not panic and must not call anything downstream.
	r.Run(context.Background())

	if len(codes.calls) != 0 || len(market.delivered) != 0 {
		t.Error("downstream calls made despite fetch failure")
	}
}

func TestCustomRecencyWindow(t *testing.T) {
	market := &MockMarketClient{
		GetProcessingOrdersFunc: func(ctx context.Context) ([]marketplace.Order, error) {
			return []marketplace.Order{order(1, 45*time.Minute, "s1")}, nil
		},
	}
	codes := &MockCodeFetcher{}
	r := NewReconciler(market, codes, Config{
		SKUToItem:     map[string]int64{"s1": 1},
		RecencyWindow: time.Hour,
	})
	r.now = func() time.Time { return testNow }

	r.Run(context.Background())

	if _, ok := market.delivered[1]; !ok {
		t.Error("order within custom window was not delivered")
	}
}
