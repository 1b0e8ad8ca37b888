package cart

import (
	"context"
	"sort"

	"github.com/altruan-tools/pulpopicker/pkg/model"
)

// shelfPlanner fills carts from orders that share a physical shelf: if
// enough orders have at least one item stocked on the same shelf, a cart
// is built from that shelf's orders before falling back to random
// grouping.
type shelfPlanner struct {
	*common
	shelvesIndex model.ShelvesIndex
}

// run selects every shelf with at least size.Min matching orders, most
// frequent first, and fills a cart from each until spaceLeft reaches
// zero. Returns the space remaining after shelf-based carts.
func (p *shelfPlanner) run(size PackageSize, spaceLeft int) int {
	frequency := p.shelvesFrequency()
	selected := p.selectShelves(frequency, size.Min)
	if len(selected) == 0 {
		return spaceLeft
	}
	return p.generateCarts(selected, size, spaceLeft)
}

func (p *shelfPlanner) generateCarts(shelvesByFrequency []string, size PackageSize, spaceLeft int) int {
	ctx := context.Background()
	for _, shelf := range shelvesByFrequency {
		if spaceLeft == 0 {
			break
		}
		productsOnShelf := p.shelvesIndex[shelf]
		newCart := p.fillCartFromShelf(ctx, size.Max, productsOnShelf)
		if len(newCart) == 0 {
			continue
		}
		if p.createCart(ctx, newCart, size, shelf) {
			spaceLeft--
			for _, id := range newCart {
				p.processed.Mark(id)
			}
			p.updateStockDictionary(newCart)
		}
	}
	return spaceLeft
}

// fillCartFromShelf greedily adds unprocessed orders that have a
// product on this shelf and remain fully available, stopping once the
// cart hits maxCartSize.
func (p *shelfPlanner) fillCartFromShelf(ctx context.Context, maxCartSize int, productsOnShelf map[string]struct{}) []string {
	allProductsInCart := make(map[string]float64)
	var newCart []string
	seen := make(map[string]struct{})

	for _, order := range p.orders {
		if len(newCart) >= maxCartSize {
			break
		}
		if p.processed.Contains(order.SalesOrderID) {
			continue
		}
		if _, already := seen[order.SalesOrderID]; already {
			continue
		}
		if !orderHasProductsOnShelf(order, productsOnShelf) {
			continue
		}
		if !p.isOrderFullyAvailable(ctx, allProductsInCart, order) {
			continue
		}
		newCart = append(newCart, order.SalesOrderID)
		seen[order.SalesOrderID] = struct{}{}
		updateProductsDictionary(allProductsInCart, order)
	}
	return newCart
}

func orderHasProductsOnShelf(order model.FulfillmentOrder, productsOnShelf map[string]struct{}) bool {
	for _, item := range order.Items {
		if _, ok := productsOnShelf[item.ProductID]; ok {
			return true
		}
	}
	return false
}

// selectShelves keeps only the shelves whose order frequency meets
// minimumOrders, multiplied by RunningDryDenominator (lowering it) when the
// run is running dry.
func (p *shelfPlanner) selectShelves(frequency []shelfCount, minimumOrders int) []string {
	threshold := float64(minimumOrders)
	if p.isRunningDry {
		threshold *= p.cfg.RunningDryDenominator
	}
	var selected []string
	for _, sc := range frequency {
		if float64(sc.count) >= threshold {
			selected = append(selected, sc.shelf)
		}
	}
	return selected
}

type shelfCount struct {
	shelf string
	count int
}

// shelvesFrequency counts, across p.orders, how many distinct orders
// touch each shelf (an order with three items on the same shelf still
// counts once), sorted most-frequent first.
func (p *shelfPlanner) shelvesFrequency() []shelfCount {
	counts := make(map[string]int)
	for _, order := range p.orders {
		for shelf := range p.shelvesFrequencyPerOrder(order) {
			counts[shelf]++
		}
	}
	out := make([]shelfCount, 0, len(counts))
	for shelf, count := range counts {
		out = append(out, shelfCount{shelf, count})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].count > out[j].count })
	return out
}

func (p *shelfPlanner) shelvesFrequencyPerOrder(order model.FulfillmentOrder) map[string]struct{} {
	shelvesForOrder := make(map[string]struct{})
	for _, item := range order.Items {
		for shelf, products := range p.shelvesIndex {
			if _, ok := products[item.ProductID]; ok {
				shelvesForOrder[shelf] = struct{}{}
			}
		}
	}
	return shelvesForOrder
}
