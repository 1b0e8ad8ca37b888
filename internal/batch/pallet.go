package batch

import (
	"context"
	"fmt"
	"math"

	"github.com/altruan-tools/pulpopicker/internal/articleservice"
	"github.com/altruan-tools/pulpopicker/pkg/model"
)

// unboundedPalletCapacity stands in for "no known pallet limit" — a
// product with neither a WMS nor an article-service figure on file is
// batched as if it had infinite pallet capacity, so a single batch for it
// is never split purely on the missing-data branch.
const unboundedPalletCapacity = math.MaxInt32

// updateProductBody is the payload written back to the WMS once a pallet
// capacity has been resolved from the article service, so future runs
// don't pay the lookup cost again.
type updateProductBody struct {
	UnitsPerPallet int      `json:"unitsPerPallet"`
	Barcodes       []string `json:"barcodes"`
}

// resolvePalletCapacity returns the number of sales units that fit on one
// pallet for productID, and the product's display name (used in batch
// notes). It checks the WMS record first, falls back to the article
// service (by weclapp_article_id cross-reference, or by SKU), persists a
// resolved figure back to the WMS, and alerts the operator when no source
// has the information at all.
func (p *Planner) resolvePalletCapacity(ctx context.Context, productID string) (capacity int, name string, err error) {
	var product model.Product
	if err := p.client.Get(ctx, "inventory/products/"+productID, nil, &product); err != nil {
		return 0, "", fmt.Errorf("fetch product %s: %w", productID, err)
	}
	name = product.Name

	if product.UnitsPerPallet != nil && *product.UnitsPerPallet > 0 {
		return *product.UnitsPerPallet, name, nil
	}

	capacity = p.lookupArticleServiceCapacity(ctx, product)
	if capacity > 0 {
		body := updateProductBody{UnitsPerPallet: capacity, Barcodes: product.Barcodes}
		if err := p.client.Put(ctx, "inventory/products/"+productID, body, nil); err != nil {
			p.logger.Error("failed to persist resolved pallet capacity", "product", productID, "error", err)
		}
		return capacity, name, nil
	}

	p.logger.Warn("product has no pallet capacity information", "product", productID, "name", name)
	if err := p.notifier.MissingPalletInfo(ctx, name, product.SKU); err != nil {
		p.logger.Error("failed to send missing pallet capacity alert", "error", err)
	}
	return unboundedPalletCapacity, name, nil
}

// lookupArticleServiceCapacity consults the article-master service when
// the WMS itself has no pallet figure, returning 0 if the service has
// nothing usable either.
func (p *Planner) lookupArticleServiceCapacity(ctx context.Context, product model.Product) int {
	var (
		article *articleservice.Article
		err     error
	)
	if product.Attributes.WeclappArticleID != "" {
		article, err = p.articles.FetchByID(ctx, product.Attributes.WeclappArticleID)
	} else {
		article, err = p.articles.FetchBySKU(ctx, product.SKU)
	}
	if err != nil {
		p.logger.Warn("article service lookup failed", "product", product.ID, "error", err)
		return 0
	}
	return article.UnitsPerPallet()
}
