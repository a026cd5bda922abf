// Package reconcile bridges marketplace orders to digital deliveries.
// A single Run polls PROCESSING orders, maps their SKUs to catalog
// items, fetches a delivery code from the shop's own endpoint and
// pushes it back to the marketplace. Periodic triggering (cron, a
// scheduler) is the caller's job; Run holds no state between calls.
package reconcile

import (
	"context"
	"log"
	"time"

	"github.com/Stas733/digital-shop/internal/delivery"
	"github.com/Stas733/digital-shop/internal/marketplace"
	"github.com/Stas733/digital-shop/internal/metrics"
)

// DefaultRecencyWindow bounds which PROCESSING orders are eligible:
// anything not updated within the window is left alone, so a lagging
// marketplace never causes deliveries for long-stale orders.
const DefaultRecencyWindow = 29 * time.Minute

// MarketClient is the slice of the marketplace API the reconciler uses.
type MarketClient interface {
	GetProcessingOrders(ctx context.Context) ([]marketplace.Order, error)
	DeliverDigitalGoods(ctx context.Context, orderID int64, goods []marketplace.DigitalGood) error
}

// CodeFetcher resolves an item into a delivery code.
type CodeFetcher interface {
	FetchDeliveryCode(ctx context.Context, itemID int64) (*delivery.Delivery, error)
}

// Config holds the static reconciler configuration.
type Config struct {
	// SKUToItem maps the marketplace shopSku to a catalog item id.
	SKUToItem map[string]int64

	// RecencyWindow overrides DefaultRecencyWindow when positive.
	RecencyWindow time.Duration
}

// Reconciler runs the order-to-delivery loop.
type Reconciler struct {
	market MarketClient
	codes  CodeFetcher
	config Config
	window time.Duration
	now    func() time.Time
}

// NewReconciler creates a reconciler over the given marketplace client
// and code fetcher.
func NewReconciler(market MarketClient, codes CodeFetcher, config Config) *Reconciler {
	window := config.RecencyWindow
	if window <= 0 {
		window = DefaultRecencyWindow
	}
	return &Reconciler{
		market: market,
		codes:  codes,
		config: config,
		window: window,
		now:    time.Now,
	}
}

// Run executes one reconciliation pass. Failures are isolated per
// order: a skipped or failed order never stops the rest of the run.
// A fetch failure makes the whole run a no-op; the next scheduled run
// re-fetches from scratch.
func (r *Reconciler) Run(ctx context.Context) {
	orders, err := r.market.GetProcessingOrders(ctx)
	if err != nil {
		log.Printf("failed to fetch processing orders: %v", err)
		metrics.ReconcileRunsTotal.WithLabelValues("fetch_error").Inc()
		return
	}

	log.Printf("reconcile: %d processing orders", len(orders))
	for _, order := range orders {
		r.processOrder(ctx, order)
	}
	metrics.ReconcileRunsTotal.WithLabelValues("ok").Inc()
}

func (r *Reconciler) processOrder(ctx context.Context, order marketplace.Order) {
	if !r.isRecent(order) {
		log.Printf("order %d: stale (updated %s), skipping", order.ID, order.UpdatedAt.Format(time.RFC3339))
		metrics.ReconcileOrdersTotal.WithLabelValues("skipped_stale").Inc()
		return
	}

	if len(order.Items) == 0 {
		log.Printf("order %d: no items, skipping", order.ID)
		metrics.ReconcileOrdersTotal.WithLabelValues("skipped_empty").Inc()
		return
	}

	shopSKU := order.Items[0].ShopSKU
	itemID, ok := r.config.SKUToItem[shopSKU]
	if !ok {
		// Configuration gap, not a transient error: it will not
		// self-resolve without a mapping change.
		log.Printf("order %d: unknown shopSku %q, skipping", order.ID, shopSKU)
		metrics.ReconcileOrdersTotal.WithLabelValues("skipped_unmapped").Inc()
		return
	}

	d, err := r.codes.FetchDeliveryCode(ctx, itemID)
	if err != nil {
		// The order stays PROCESSING and recent, so the next run
		// retries it naturally.
		log.Printf("order %d: failed to fetch delivery code for item %d: %v", order.ID, itemID, err)
		metrics.ReconcileOrdersTotal.WithLabelValues("resolve_failed").Inc()
		return
	}

	goods := []marketplace.DigitalGood{{Code: d.Code, Description: d.Description}}
	if err := r.market.DeliverDigitalGoods(ctx, order.ID, goods); err != nil {
		log.Printf("order %d: failed to push delivery: %v", order.ID, err)
		metrics.ReconcileOrdersTotal.WithLabelValues("push_failed").Inc()
		return
	}

	log.Printf("order %d: delivered item %d", order.ID, itemID)
	metrics.ReconcileOrdersTotal.WithLabelValues("delivered").Inc()
}

// isRecent reports whether the order was updated strictly less than
// the recency window ago. An order updated exactly window ago is stale.
func (r *Reconciler) isRecent(order marketplace.Order) bool {
	if order.UpdatedAt.IsZero() {
		return false
	}
	return r.now().Sub(order.UpdatedAt) < r.window
}
