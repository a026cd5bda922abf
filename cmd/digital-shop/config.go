package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds CLI configuration loaded from environment variables
type Config struct {
	Addr       string
	DBPath     string
	FilesDir   string
	BaseURL    string
	CampaignID string
	OAuthToken string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	addr := getEnv("SHOP_ADDR", ":"+getEnv("PORT", "10000"))
	return &Config{
		Addr:       addr,
		DBPath:     getEnv("SHOP_DB", "/tmp/shop.db"),
		FilesDir:   getEnv("SHOP_FILES_DIR", "/tmp/files"),
		BaseURL:    getEnv("SHOP_BASE_URL", "http://localhost"+addr),
		CampaignID: os.Getenv("CAMPAIGN_ID"),
		OAuthToken: os.Getenv("OAUTH_TOKEN"),
	}
}

// LoadSKUMapping reads the shopSku -> item id mapping from a YAML file:
//
//	skus:
//	  contract-pdf-01: 1
//	  license-key-pro: 2
//
// Marketplace SKUs are matched case-sensitively, so keys are decoded
// exactly as written.
func LoadSKUMapping(path string) (map[string]int64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read SKU mapping %s: %w", path, err)
	}

	var cfg struct {
		SKUs map[string]int64 `yaml:"skus"`
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse SKU mapping %s: %w", path, err)
	}
	if len(cfg.SKUs) == 0 {
		return nil, fmt.Errorf("SKU mapping %s is empty", path)
	}
	return cfg.SKUs, nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
