// Package cart implements the two Cart Planners — shelf-based and
// random — and the Manager that runs them in sequence for each
// package-size bucket. A cart groups several single-item-sized orders
// into one picking order so a picker walks one route instead of many.
package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/altruan-tools/pulpopicker/internal/classify"
	"github.com/altruan-tools/pulpopicker/internal/notes"
	"github.com/altruan-tools/pulpopicker/internal/shelves"
	"github.com/altruan-tools/pulpopicker/internal/wmsclient"
	"github.com/altruan-tools/pulpopicker/pkg/model"
)

// Package-size bucket names, matching the original's PackageSizes enum
// members (SIZE_S .. SIZE_XXL). Palette (XXL) is listed here for
// completeness but the Manager never builds a cart for it — palette
// orders are single-picked by the Separator before a Cart Planner ever
// sees them.
const (
	SizeS       = "S"
	SizeM1      = "M1"
	SizeM2      = "M2"
	SizeL       = "L"
	SizeXL      = "XL"
	SizePalette = "XXL"
)

// A pallet-sized order always ships alone: unlike S/M1/M2/L, whose
// min/max are operator-tunable (internal/config.RunConfig.
// CartSizeMinOrders/CartSizeMaxOrders), this is a physical invariant of
// the package size itself.
const singleOrderPerCart = 1

// PackageSize is one cart-size bucket: the label-share note that routes
// an order into it, and the min/max number of orders a cart of this size
// may hold.
type PackageSize struct {
	Name string
	Note string
	Min  int
	Max  int
}

// Sizes builds the six package-size buckets in the order the original
// processes them: smallest to largest, then XL and Palette last since
// those can only ever hold the lone order that triggered them.
func Sizes(minOrders, maxOrders int) []PackageSize {
	return []PackageSize{
		{Name: SizeS, Note: classify.NoteSizeS, Min: minOrders, Max: maxOrders},
		{Name: SizeM1, Note: classify.NoteSizeM1, Min: minOrders, Max: maxOrders},
		{Name: SizeM2, Note: classify.NoteSizeM2, Min: minOrders, Max: maxOrders},
		{Name: SizeL, Note: classify.NoteSizeL, Min: minOrders, Max: maxOrders},
		{Name: SizeXL, Note: classify.NoteSizeXL, Min: singleOrderPerCart, Max: singleOrderPerCart},
		{Name: SizePalette, Note: classify.NotePalette, Min: singleOrderPerCart, Max: singleOrderPerCart},
	}
}

// Config carries the tunable values the cart planners need from
// internal/config.RunConfig.
type Config struct {
	NonPrioCartThreshold  int
	SweepingMinOrders     int
	RunningDryDenominator float64
	Sizes                 []PackageSize
	WorkingDays           map[time.Weekday]struct{}
}

// pickingStates are the two picking-order states that count against the
// non-prio warehouse space budget.
var pickingStates = [...]string{"queue", "taken"}

// Manager orchestrates cart creation for one priority/Seni bucket across
// every non-palette package size: it computes how much warehouse space
// is left, selects the orders matching each size's note, fills
// shelf-based carts first, then falls back to random carts for whatever
// space remains.
type Manager struct {
	client *wmsclient.Client
	logger *slog.Logger
	cfg    Config
	now    time.Time

	shelvesIndex model.ShelvesIndex
	processed    model.ProcessedSet
	productStock model.ProductAvailability

	noSpaceLeft bool
}

// NewManager creates a Manager. productStock is the run's shared working
// stock map, already decremented in place by whatever the Batch Planner
// claimed earlier in the run.
func NewManager(client *wmsclient.Client, logger *slog.Logger, cfg Config, now time.Time, shelvesIndex model.ShelvesIndex, processed model.ProcessedSet, productStock model.ProductAvailability) *Manager {
	return &Manager{
		client:       client,
		logger:       logger,
		cfg:          cfg,
		now:          now,
		shelvesIndex: shelvesIndex,
		processed:    processed,
		productStock: productStock,
	}
}

// Run creates carts for orders (already filtered to one priority/Seni
// bucket by the Separator) across every size except Palette, stopping
// early once the warehouse has no non-prio space left, unless it is
// sweeping time, when every order must be cleared regardless of space.
func (m *Manager) Run(ctx context.Context, orders []model.FulfillmentOrder, isPrio, isSweepingTime, isRunningDry bool) error {
	for _, size := range m.cfg.Sizes {
		if size.Name == SizePalette {
			continue
		}
		if m.noSpaceLeft && !isSweepingTime {
			m.logger.Warn("no warehouse space left, skipping remaining cart sizes")
			return nil
		}
		if err := m.processSize(ctx, size, orders, isPrio, isSweepingTime, isRunningDry); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) processSize(ctx context.Context, size PackageSize, orders []model.FulfillmentOrder, isPrio, isSweepingTime, isRunningDry bool) error {
	spaceLeft, err := m.checkSpace(ctx, isPrio)
	if err != nil {
		return fmt.Errorf("check warehouse space: %w", err)
	}
	toProcess := m.selectOrdersBySize(orders, size.Note)
	m.logger.Info("cart size space check", "size", size.Name, "space_left", spaceLeft, "orders", len(toProcess))
	if len(toProcess) == 0 || (spaceLeft <= 0 && !isSweepingTime) {
		return nil
	}

	shelfState := &common{
		client:         m.client,
		logger:         m.logger,
		cfg:            m.cfg,
		now:            m.now,
		isPrio:         isPrio,
		isSweepingTime: isSweepingTime,
		isRunningDry:   isRunningDry,
		orders:         toProcess,
		processed:      m.processed,
		productStock:   m.productStock,
	}

	byShelf := &shelfPlanner{common: shelfState, shelvesIndex: m.shelvesIndex}
	spaceLeft = byShelf.run(size, spaceLeft)
	m.logger.Info("space left after shelf carts", "size", size.Name, "space_left", spaceLeft)

	if spaceLeft <= 0 {
		return nil
	}
	remaining := removeProcessed(toProcess, m.processed)
	randomState := &common{
		client:         m.client,
		logger:         m.logger,
		cfg:            m.cfg,
		now:            m.now,
		isPrio:         isPrio,
		isSweepingTime: isSweepingTime,
		isRunningDry:   isRunningDry,
		orders:         remaining,
		processed:      m.processed,
		productStock:   m.productStock,
	}
	random := &randomPlanner{common: randomState}
	random.run(size, spaceLeft)
	return nil
}

// checkSpace returns the number of additional cart picking orders the
// warehouse can absorb right now. Prio carts are never space-limited.
func (m *Manager) checkSpace(ctx context.Context, isPrio bool) (int, error) {
	if isPrio {
		return math.MaxInt32, nil
	}
	count, err := m.countActivePickingOrders(ctx)
	if err != nil {
		return 0, err
	}
	left := m.cfg.NonPrioCartThreshold - count
	if left < 0 {
		m.noSpaceLeft = true
	}
	return left, nil
}

func (m *Manager) countActivePickingOrders(ctx context.Context) (int, error) {
	total := 0
	for _, state := range pickingStates {
		var picks []json.RawMessage
		if err := m.client.Get(ctx, "picking/orders", map[string]string{"state": state}, &picks); err != nil {
			return 0, fmt.Errorf("count %s picking orders: %w", state, err)
		}
		total += len(picks)
	}
	return total, nil
}

// selectOrdersBySize returns the unprocessed orders whose label share
// resolves to size's note.
func (m *Manager) selectOrdersBySize(orders []model.FulfillmentOrder, note string) []model.FulfillmentOrder {
	var out []model.FulfillmentOrder
	for _, order := range orders {
		if m.processed.Contains(order.SalesOrderID) {
			continue
		}
		labelShare := classify.ExtractSize(order)
		if labelShare == 0 {
			continue
		}
		if classify.DefineSizeNote(labelShare) == note {
			out = append(out, order)
		}
	}
	return out
}

func removeProcessed(orders []model.FulfillmentOrder, processed model.ProcessedSet) []model.FulfillmentOrder {
	out := make([]model.FulfillmentOrder, 0, len(orders))
	for _, order := range orders {
		if !processed.Contains(order.SalesOrderID) {
			out = append(out, order)
		}
	}
	return out
}

// common carries the state and helpers shared by the shelf and random
// Cart Planners: availability checks, note composition, and the final
// WMS call to create the picking order.
type common struct {
	client *wmsclient.Client
	logger *slog.Logger
	cfg    Config
	now    time.Time

	isPrio         bool
	isSweepingTime bool
	isRunningDry   bool

	orders       []model.FulfillmentOrder
	processed    model.ProcessedSet
	productStock model.ProductAvailability
}

// createCart checks newCart against its minimum/maximum size and, if it
// qualifies, composes its note and creates the cart picking order.
// Returns true if a picking order was created.
func (c *common) createCart(ctx context.Context, newCart []string, size PackageSize, shelf string) bool {
	cartMinimum := float64(size.Min)
	if c.isRunningDry {
		cartMinimum *= c.cfg.RunningDryDenominator
	}
	if c.isPrio && c.isSweepingTime {
		cartMinimum = float64(c.cfg.SweepingMinOrders)
	}

	count := float64(len(newCart))
	if count < cartMinimum || count > float64(size.Max) {
		return false
	}

	composer := &notes.Composer{Orders: c.orders, Now: c.now, IsPrio: c.isPrio, IsSweepingTime: c.isSweepingTime, WorkingDays: c.cfg.WorkingDays}
	note := composer.CreateNote(newCart, notes.Options{SizeNote: size.Note, Shelf: shelf})

	if err := c.createPicking(ctx, newCart, note); err != nil {
		c.logger.Error("error creating cart picking order", "error", err)
		return false
	}
	return true
}

func (c *common) createPicking(ctx context.Context, ids []string, note string) error {
	cart := len(ids) > 1
	body := model.PickingOrder{FulfillmentOrderIDs: ids, Note: note, Cart: cart}
	if err := c.client.Post(ctx, "picking/orders", body, nil); err != nil {
		return fmt.Errorf("create cart picking order: %w", err)
	}
	c.logger.Info("cart picking order created", "note", note, "orders", ids)
	return nil
}

// isOrderFullyAvailable reports whether order's items are covered by the
// planner's working stock snapshot, accounting for everything already
// tentatively committed to the in-progress cart (allProducts). Falls
// back to a live WMS stock query when a product has never been seen
// before (matching the original's lazy-populate check_stock call).
func (c *common) isOrderFullyAvailable(ctx context.Context, allProducts map[string]float64, order model.FulfillmentOrder) bool {
	for _, item := range order.Items {
		stock, ok := c.productStock[item.ProductID]
		if !ok {
			live, err := c.fetchLiveStock(ctx, item.ProductID)
			if err != nil {
				c.logger.Error("failed to check live stock", "product", item.ProductID, "error", err)
				live = 0
			}
			c.productStock[item.ProductID] = live
			stock = live
		}
		quantityInCart := item.Quantity + allProducts[item.ProductID]
		if stock < quantityInCart {
			c.logger.Warn("order not available for cart", "order", order.SalesOrderID)
			return false
		}
	}
	return true
}

// fetchLiveStock queries the WMS directly for a product's available
// stock across picking-eligible zones, for products the run's shelf
// scan never saw (e.g. they had zero stock when the index was built).
func (c *common) fetchLiveStock(ctx context.Context, productID string) (float64, error) {
	var stocks []model.StockRecord
	if err := c.client.Get(ctx, "inventory/stocks", map[string]string{"product_id": productID}, &stocks); err != nil {
		return 0, err
	}
	var total float64
	for _, s := range stocks {
		if _, ok := shelves.AllowedZones[s.Location.ZoneID]; ok {
			total += s.Quantity
		}
	}
	return total, nil
}

// updateProductsDictionary merges order's items into allProducts, the
// running total of quantities already committed to the in-progress cart.
func updateProductsDictionary(allProducts map[string]float64, order model.FulfillmentOrder) {
	for _, item := range order.Items {
		allProducts[item.ProductID] += item.Quantity
	}
}

// updateStockDictionary decrements the planner's working stock snapshot
// for every item in the orders that just formed a cart, so subsequent
// carts in the same run never over-commit the same units.
func (c *common) updateStockDictionary(cartOrderIDs []string) {
	for _, orderID := range cartOrderIDs {
		for _, order := range c.orders {
			if order.SalesOrderID != orderID {
				continue
			}
			for _, item := range order.Items {
				if _, ok := c.productStock[item.ProductID]; ok {
					c.productStock[item.ProductID] -= item.Quantity
				}
			}
		}
	}
}
