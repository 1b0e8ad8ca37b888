// Package batch implements the Batch Planner: it groups same-SKU,
// single-item orders into one picking order per batch, splitting on
// pallet capacity and on the operator-maintained special-SKU list, which
// pulls large single orders out into their own palette pick before the
// remainder joins the regular batch.
package batch

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/altruan-tools/pulpopicker/internal/alert"
	"github.com/altruan-tools/pulpopicker/internal/articleservice"
	"github.com/altruan-tools/pulpopicker/internal/classify"
	"github.com/altruan-tools/pulpopicker/internal/notes"
	"github.com/altruan-tools/pulpopicker/internal/wmsclient"
	"github.com/altruan-tools/pulpopicker/pkg/model"
)

// Config carries the tunable values the Batch Planner needs from
// internal/config.RunConfig.
type Config struct {
	MinBatchSize          int
	MaxBatchSize          int
	MinBatchSizeSeni      int
	IsRunningDry          bool
	RunningDryDenominator float64
	WorkingDays           map[time.Weekday]struct{}
}

// orderQty is one order's quantity of a single-SKU product, kept as a
// slice (not a map) so the descending-by-quantity order the original
// produces via a sorted dict survives into Go.
type orderQty struct {
	orderID  string
	quantity int
}

// Planner batches single-SKU orders for one orchestrator run.
type Planner struct {
	client   *wmsclient.Client
	articles *articleservice.Client
	notifier *alert.Notifier
	logger   *slog.Logger
	cfg      Config

	now       time.Time
	isPrio    bool
	skuRules  model.SkusToBatchRules
	processed model.ProcessedSet

	seniProductIDs map[string]struct{}
	productNames   map[string]string
}

// New creates a Planner. skuRules is the special-SKU batching
// configuration (see LoadSkusToBatchRules); processed accumulates every
// order ID claimed by a batch or palette pick during this run.
func New(client *wmsclient.Client, articles *articleservice.Client, notifier *alert.Notifier, logger *slog.Logger, cfg Config, skuRules model.SkusToBatchRules, now time.Time, processed model.ProcessedSet) *Planner {
	return &Planner{
		client:         client,
		articles:       articles,
		notifier:       notifier,
		logger:         logger,
		cfg:            cfg,
		now:            now,
		skuRules:       skuRules,
		processed:      processed,
		seniProductIDs: make(map[string]struct{}),
		productNames:   make(map[string]string),
	}
}

// Run batches every eligible single-SKU order in orders. productStock is
// the caller's working stock snapshot; Run decrements it in place for
// every unit it commits to a batch or palette pick, so a later planner in
// the same run sees accurate remaining availability.
func (p *Planner) Run(ctx context.Context, orders []model.FulfillmentOrder, isPrio bool, productStock model.ProductAvailability) error {
	p.isPrio = isPrio
	composer := &notes.Composer{Orders: orders, Now: p.now, IsPrio: isPrio, IsBatch: true, WorkingDays: p.cfg.WorkingDays}

	productIDs := p.findProductsToBatch(orders)
	p.logger.Info("products selected for batching", "count", len(productIDs))

	for _, productID := range productIDs {
		if err := p.batchingProducts(ctx, productID, orders, productStock, composer); err != nil {
			p.logger.Error("error batching product", "product", productID, "error", err)
		}
	}
	return nil
}

// findProductsToBatch returns the product IDs that have at least
// getBatchSize(productID) single-item queued orders, and records each
// Seni-product ID it sees along the way.
func (p *Planner) findProductsToBatch(orders []model.FulfillmentOrder) []string {
	counts := make(map[string]int)
	for _, order := range orders {
		if len(order.Items) != 1 {
			continue
		}
		item := order.Items[0]
		if classify.IsSeniProduct(item.Product) {
			p.seniProductIDs[item.ProductID] = struct{}{}
		}
		counts[item.ProductID]++
	}

	var productIDs []string
	for productID, count := range counts {
		if count >= p.getBatchSize(productID) {
			productIDs = append(productIDs, productID)
		}
	}
	sort.Strings(productIDs)
	return productIDs
}

// getBatchSize returns the minimum number of queued orders a product
// needs before it is worth batching, adjusted for Seni products (which
// use a lower threshold, being lower-volume/higher-margin) and for a
// running-dry run (which lowers every threshold so batches still form
// when the queue is thin).
func (p *Planner) getBatchSize(productID string) int {
	minBatchSize := p.cfg.MinBatchSize
	if _, seni := p.seniProductIDs[productID]; seni {
		minBatchSize = p.cfg.MinBatchSizeSeni
	}
	if p.cfg.IsRunningDry {
		minBatchSize = int(float64(minBatchSize)*p.cfg.RunningDryDenominator + 0.5)
	}
	return minBatchSize
}

func (p *Planner) batchingProducts(ctx context.Context, productID string, orders []model.FulfillmentOrder, productStock model.ProductAvailability, composer *notes.Composer) error {
	maxUnitsPerPallet, name, err := p.resolvePalletCapacity(ctx, productID)
	if err != nil {
		return err
	}
	p.productNames[productID] = name

	minBatchSize := p.getBatchSize(productID)
	batchOrders := p.extractQuantities(orders, productID)
	totalQuantity := 0
	for _, o := range batchOrders {
		totalQuantity += o.quantity
	}
	currentStock := int(productStock[productID])

	p.logger.Info("batching product", "product", productID, "stock", currentStock, "queued", totalQuantity, "max_per_pallet", maxUnitsPerPallet)

	if totalQuantity > currentStock {
		p.logger.Warn("stock insufficient for full batch", "product", productID, "available", currentStock)
		if !isBatchSizeSufficient(currentStock, batchOrders, minBatchSize) {
			p.logger.Warn("not enough orders fit in available stock, skipping batch", "product", productID)
			return nil
		}
		totalQuantity = currentStock
	}

	if rule, special := p.skuRules.RuleForProduct(productID); special {
		return p.specialBatching(ctx, maxUnitsPerPallet, totalQuantity, batchOrders, productID, minBatchSize, rule, productStock, composer)
	}
	return p.regularBatching(ctx, maxUnitsPerPallet, totalQuantity, batchOrders, productID, productStock, composer)
}

// regularBatching creates a single picking order covering every order in
// batchOrders when the batch fits in one pallet and under the maximum
// order count, otherwise splits it across multiple picking orders.
func (p *Planner) regularBatching(ctx context.Context, maxUnitsPerPallet, totalQuantity int, batchOrders []orderQty, productID string, productStock model.ProductAvailability, composer *notes.Composer) error {
	if totalQuantity <= maxUnitsPerPallet && len(batchOrders) <= p.cfg.MaxBatchSize {
		ids := make([]string, 0, len(batchOrders))
		for _, o := range batchOrders {
			ids = append(ids, o.orderID)
		}
		note := composer.CreateNote(ids, notes.Options{BatchedQuantity: totalQuantity, BatchedProduct: p.productNames[productID]})
		if err := p.createPicking(ctx, ids, note, true); err != nil {
			return err
		}
		for _, id := range ids {
			p.processed.Mark(id)
		}
		productStock[productID] -= float64(totalQuantity)
		return nil
	}

	p.logger.Warn("batch too large for one picking order, splitting", "product", productID)
	return p.splitBatches(ctx, batchOrders, maxUnitsPerPallet, productID, productStock, composer)
}

// specialBatching pulls out any order whose quantity alone justifies a
// dedicated palette pick, then regular-batches whatever orders remain.
func (p *Planner) specialBatching(ctx context.Context, maxUnitsPerPallet, totalQuantity int, batchOrders []orderQty, productID string, minBatchSize int, rule model.SkuBatchRule, productStock model.ProductAvailability, composer *notes.Composer) error {
	remaining, err := p.specialPaletteBatching(ctx, totalQuantity, batchOrders, productID, rule, productStock, composer)
	if err != nil {
		return err
	}

	var leftOrders []orderQty
	for _, o := range batchOrders {
		if !p.processed.Contains(o.orderID) {
			leftOrders = append(leftOrders, o)
		}
	}
	if len(leftOrders) > 0 && remaining > minBatchSize {
		return p.regularBatching(ctx, maxUnitsPerPallet, remaining, leftOrders, productID, productStock, composer)
	}
	return nil
}

// specialPaletteBatching creates one dedicated palette pick per order
// whose quantity is at or above the SKU's separate-batch-from threshold,
// in descending-quantity order, stopping once the running total is spent.
// Returns the quantity still left to batch normally.
func (p *Planner) specialPaletteBatching(ctx context.Context, totalQuantity int, batchOrders []orderQty, productID string, rule model.SkuBatchRule, productStock model.ProductAvailability, composer *notes.Composer) (int, error) {
	for _, o := range batchOrders {
		if totalQuantity <= 0 {
			break
		}
		if p.processed.Contains(o.orderID) {
			continue
		}
		if o.quantity < rule.SeparateBatchFrom || o.quantity > totalQuantity {
			continue
		}

		note := composer.CreateNote([]string{o.orderID}, notes.Options{BatchedQuantity: o.quantity, BatchedProduct: p.productNames[productID]})
		if err := p.createPicking(ctx, []string{o.orderID}, note, false); err != nil {
			p.logger.Error("error creating palette pick", "order", o.orderID, "error", err)
			continue
		}
		p.processed.Mark(o.orderID)
		totalQuantity -= o.quantity
		productStock[productID] -= float64(o.quantity)
	}
	return totalQuantity, nil
}

// splitBatches packs orders into consecutive picking orders, each capped
// at maxUnitsPerPallet units and cfg.MaxBatchSize orders, walking the
// list once per batch so an order that didn't fit in an earlier batch is
// reconsidered for the next one.
func (p *Planner) splitBatches(ctx context.Context, batchOrders []orderQty, maxUnitsPerPallet int, productID string, productStock model.ProductAvailability, composer *notes.Composer) error {
	totalQuantity := 0
	for _, o := range batchOrders {
		totalQuantity += o.quantity
	}
	numBatchesByArticles := totalQuantity / maxUnitsPerPallet
	numBatchesByOrders := len(batchOrders) / p.cfg.MaxBatchSize
	numBatches := numBatchesByArticles
	if numBatchesByOrders < numBatches {
		numBatches = numBatchesByOrders
	}

	for i := 0; i < numBatches; i++ {
		batchedQuantity := 0
		var ids []string
		for _, o := range batchOrders {
			if p.processed.Contains(o.orderID) {
				continue
			}
			if batchedQuantity+o.quantity > maxUnitsPerPallet {
				break
			}
			if len(ids) >= p.cfg.MaxBatchSize {
				break
			}
			batchedQuantity += o.quantity
			ids = append(ids, o.orderID)
		}
		if len(ids) == 0 {
			continue
		}

		note := composer.CreateNote(ids, notes.Options{BatchedQuantity: batchedQuantity, BatchedProduct: p.productNames[productID]})
		if err := p.createPicking(ctx, ids, note, true); err != nil {
			p.logger.Error("error creating split batch", "product", productID, "error", err)
			continue
		}
		for _, id := range ids {
			p.processed.Mark(id)
		}
		productStock[productID] -= float64(batchedQuantity)
	}
	return nil
}

// extractQuantities collects, for every order in orders with exactly one
// item matching productID, that order's quantity, sorted descending so
// downstream palette/split logic consumes the largest orders first.
// Orders already in the run's processed set are skipped, so no batch path
// (regular, single-pick, split or palette) can emit an order twice.
func (p *Planner) extractQuantities(orders []model.FulfillmentOrder, productID string) []orderQty {
	var result []orderQty
	for _, order := range orders {
		if len(order.Items) != 1 {
			continue
		}
		if p.processed.Contains(order.SalesOrderID) {
			continue
		}
		item := order.Items[0]
		if item.ProductID != productID {
			continue
		}
		result = append(result, orderQty{orderID: order.SalesOrderID, quantity: int(item.Quantity)})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].quantity > result[j].quantity })
	return result
}

// isBatchSizeSufficient reports whether, after capping total quantity at
// the available stock, more orders fit in that stock than minBatchSize —
// i.e. a partial batch is still worth creating.
func isBatchSizeSufficient(currentStock int, batchOrders []orderQty, minBatchSize int) bool {
	fitted := 0
	ordersThatFit := 0
	for _, o := range batchOrders {
		if fitted+o.quantity < currentStock {
			fitted += o.quantity
			ordersThatFit++
		}
	}
	return ordersThatFit > minBatchSize
}

func (p *Planner) createPicking(ctx context.Context, ids []string, note string, cart bool) error {
	body := model.PickingOrder{FulfillmentOrderIDs: ids, Note: note, Cart: cart}
	if err := p.client.Post(ctx, "picking/orders", body, nil); err != nil {
		return err
	}
	p.logger.Info("batch picking order created", "note", note, "orders", ids)
	return nil
}
