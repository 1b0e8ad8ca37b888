// Package shelves builds the warehouse's shelf index and product
// availability snapshot at the start of a run, by paginating the WMS's
// stock endpoint.
package shelves

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/altruan-tools/pulpopicker/internal/wmsclient"
	"github.com/altruan-tools/pulpopicker/pkg/model"
)

const shelfNameLength = 6

// AllowedZones restricts the index to the picking-eligible warehouse
// zones (H1, H2, H3, CrossdockingArea); stock sitting in reception,
// packing, or other non-picking zones is ignored. Exported so
// internal/cart's live stock fallback checks the same zone set.
var AllowedZones = map[int]struct{}{
	1419: {}, // H1
	1423: {}, // H2
	1472: {}, // H3
	1417: {}, // CrossdockingArea
}

const pageSize = 3000

// Indexer builds a ShelvesIndex and ProductAvailability snapshot from the
// WMS's stock endpoint.
type Indexer struct {
	client *wmsclient.Client
	logger *slog.Logger
}

// New creates an Indexer backed by client.
func New(client *wmsclient.Client, logger *slog.Logger) *Indexer {
	return &Indexer{client: client, logger: logger}
}

// Build pages through inventory/stocks and returns the shelf index and
// product availability snapshot. Malformed rows are logged and skipped
// rather than aborting the whole scan.
func (idx *Indexer) Build(ctx context.Context) (model.ShelvesIndex, model.ProductAvailability, error) {
	index := make(model.ShelvesIndex)
	availability := make(model.ProductAvailability)

	paginator := wmsclient.NewPaginator(idx.client, "inventory/stocks", nil, 0, pageSize)
	err := paginator.Each(ctx, func(page []json.RawMessage) (bool, error) {
		for _, raw := range page {
			var stock model.StockRecord
			if err := json.Unmarshal(raw, &stock); err != nil {
				idx.logger.Error("malformed stock record", "error", err)
				continue
			}
			if _, ok := AllowedZones[stock.Location.ZoneID]; !ok {
				continue
			}
			addProductOnShelf(index, stock)
			addProductAvailability(availability, stock)
		}
		return true, nil
	})
	if err != nil {
		return nil, nil, err
	}

	idx.logger.Info("shelves index built", "shelves", len(index), "products", len(availability))
	return index, availability, nil
}

// addProductOnShelf records stock.ProductID on the shelf identified by the
// first shelfNameLength characters of the location code, e.g.
// "H1-111-1-2-1-1" -> "H1-111".
func addProductOnShelf(index model.ShelvesIndex, stock model.StockRecord) {
	code := stock.Location.Code
	if len(code) > shelfNameLength {
		code = code[:shelfNameLength]
	}
	index.AddProduct(code, stock.ProductID)
}

func addProductAvailability(availability model.ProductAvailability, stock model.StockRecord) {
	availability[stock.ProductID] += stock.Quantity
}
