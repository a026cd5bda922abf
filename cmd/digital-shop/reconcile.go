package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Stas733/digital-shop/internal/marketplace"
	"github.com/Stas733/digital-shop/internal/metrics"
	"github.com/Stas733/digital-shop/internal/reconcile"
)

var (
	reconcileMapping string
	reconcileAppURL  string
	reconcileTimeout time.Duration
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Run one marketplace reconciliation pass",
	Long: `Run a single reconciliation pass: poll PROCESSING orders from the
marketplace, map their SKUs to catalog items, fetch delivery codes from
the shop's delivery endpoint and push them back to the marketplace.

Intended to be triggered periodically by cron or a scheduler.
Requires CAMPAIGN_ID and OAUTH_TOKEN in the environment.

Examples:
  digital-shop reconcile --mapping sku_mapping.yaml
  digital-shop reconcile --app-url https://shop.example.com`,
	RunE: runReconcile,
}

func init() {
	reconcileCmd.Flags().StringVar(&reconcileMapping, "mapping", "sku_mapping.yaml", "path to the SKU mapping YAML file")
	reconcileCmd.Flags().StringVar(&reconcileAppURL, "app-url", "", "shop base URL (overrides SHOP_BASE_URL)")
	reconcileCmd.Flags().DurationVar(&reconcileTimeout, "timeout", 2*time.Minute, "overall run timeout")
}

func runReconcile(cmd *cobra.Command, args []string) error {
	cfg := LoadConfig()
	if cfg.CampaignID == "" || cfg.OAuthToken == "" {
		return fmt.Errorf("CAMPAIGN_ID and OAUTH_TOKEN must be set")
	}

	appURL := cfg.BaseURL
	if reconcileAppURL != "" {
		appURL = reconcileAppURL
	}

	skuToItem, err := LoadSKUMapping(reconcileMapping)
	if err != nil {
		return err
	}

	// One-shot process: counters live only for the run's duration and
	// are not scraped; see DESIGN.md for when they become visible.
	metrics.Register()

	ctx, cancel := context.WithTimeout(context.Background(), reconcileTimeout)
	defer cancel()

	market := marketplace.NewClient(cfg.CampaignID, cfg.OAuthToken)
	codes := reconcile.NewDeliveryClient(appURL)
	r := reconcile.NewReconciler(market, codes, reconcile.Config{SKUToItem: skuToItem})

	r.Run(ctx)
	return nil
}
