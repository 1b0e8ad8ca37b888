package cart

import (
	"context"
	"math"
)

// randomPlanner fills carts from whatever orders the shelf planner left
// behind, with no regard for shared shelves — it simply walks the order
// list in order and packs as many carts as space and orders allow.
//
// The original Python implementation (fill_cart_randomly) computes the
// number of carts it could build from len(orders)/size.max, but its loop
// unconditionally returns after the first iteration, so it only ever
// creates a single cart per size regardless of how many more orders or
// how much more space remained. This builds every cart the loop allows,
// stopping only when orders or space run out.
type randomPlanner struct {
	*common
}

func (p *randomPlanner) run(size PackageSize, spaceLeft int) int {
	ctx := context.Background()
	numberOfCarts := int(math.Ceil(float64(len(p.orders)) / float64(size.Max)))

	for i := 0; i < numberOfCarts && spaceLeft > 0; i++ {
		newCart := p.fillCartRandomly(ctx, size.Max)
		if len(newCart) == 0 {
			break
		}
		if p.createCart(ctx, newCart, size, "Rest") {
			spaceLeft--
			for _, id := range newCart {
				p.processed.Mark(id)
			}
			p.updateStockDictionary(newCart)
		}
	}
	return spaceLeft
}

// fillCartRandomly walks p.orders in order (no shuffling — "random" here
// means "without regard for shelf," matching the original's naming) and
// adds every unprocessed, fully-available order until the cart reaches
// maxCartSize.
func (p *randomPlanner) fillCartRandomly(ctx context.Context, maxCartSize int) []string {
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
		if !p.isOrderFullyAvailable(ctx, allProductsInCart, order) {
			continue
		}
		newCart = append(newCart, order.SalesOrderID)
		seen[order.SalesOrderID] = struct{}{}
		updateProductsDictionary(allProductsInCart, order)
	}
	return newCart
}
