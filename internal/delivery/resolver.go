// Package delivery resolves catalog items into buyer-facing delivery
// codes: a single-use download link for file items, or the stored
// activation key for key items.
package delivery

import (
	"fmt"
	"strings"

	"github.com/Stas733/digital-shop/internal/metrics"
	"github.com/Stas733/digital-shop/internal/storage"
)

// DefaultDescription is used when an item has no instruction text.
const DefaultDescription = "Your digital item"

// Catalog is the read side of the item store used by the resolver.
type Catalog interface {
	GetItem(id int64) (*storage.ItemRecord, error)
}

// TokenIssuer mints single-use download tokens.
type TokenIssuer interface {
	IssueToken(itemID int64) (string, error)
}

// Delivery is the code/description pair handed to the marketplace or
// shown to a buyer.
type Delivery struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// Resolver produces deliveries for catalog items.
type Resolver struct {
	catalog Catalog
	tokens  TokenIssuer
	baseURL string
}

// NewResolver creates a resolver. baseURL is the public address of this
// deployment, used to build download links.
func NewResolver(catalog Catalog, tokens TokenIssuer, baseURL string) *Resolver {
	return &Resolver{
		catalog: catalog,
		tokens:  tokens,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Resolve looks up the item and produces its delivery.
//
// Key items return the stored key verbatim and never touch the token
// ledger. File items mint a fresh token on every call: each resolution
// grants one independent, single-use right of retrieval, so N calls
// yield N distinct redeemable links.
func (r *Resolver) Resolve(itemID int64) (*Delivery, error) {
	item, err := r.catalog.GetItem(itemID)
	if err != nil {
		return nil, err
	}

	description := item.Instruction
	if description == "" {
		description = DefaultDescription
	}

	if item.Kind == storage.KindKey {
		metrics.DeliveriesResolvedTotal.WithLabelValues(storage.KindKey).Inc()
		return &Delivery{Code: item.KeyValue, Description: description}, nil
	}

	token, err := r.tokens.IssueToken(item.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token for item %d: %w", item.ID, err)
	}

	metrics.TokensIssuedTotal.Inc()
	metrics.DeliveriesResolvedTotal.WithLabelValues(storage.KindFile).Inc()
	return &Delivery{
		Code:        fmt.Sprintf("%s/download?token=%s", r.baseURL, token),
		Description: description,
	}, nil
}
