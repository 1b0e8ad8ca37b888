// Package model defines shared data structures used across all packages.
//
// This package is the common vocabulary for the picker — fulfillment
// orders, product and stock records, shelf indexes, and the picking orders
// produced at the end of a run. It has no dependencies on internal
// packages, so it can be imported by any layer.
package model

import "time"

// ————————————————————————————————————————————————————————————————————————
// Addresses
// ————————————————————————————————————————————————————————————————————————

// Address is a shipping address as returned by the WMS.
type Address struct {
	City        string `json:"city"`
	Street      string `json:"street1"`
	HouseNr     string `json:"houseNr"`
	Zipcode     string `json:"zipcode"`
	CountryCode string `json:"countryCode"` // numeric ISO code, e.g. "276" for Germany
}

// ShipTo wraps the recipient address of a fulfillment order.
type ShipTo struct {
	Address Address `json:"address"`
}

// ————————————————————————————————————————————————————————————————————————
// Products
// ————————————————————————————————————————————————————————————————————————

// ProductAttributes carries the tags and cross-references used by
// classification. WeclappArticleID backs the article-service fallback
// lookup when UnitsPerPallet is absent from the WMS record.
type ProductAttributes struct {
	Tags             []string `json:"tags"`
	WeclappArticleID string   `json:"weclapp_article_id"`
}

// ProductCategory is a category reference on a product record.
type ProductCategory struct {
	ID int `json:"id"`
}

// Product is the article master record embedded in order items.
type Product struct {
	ID                  string            `json:"id"`
	SKU                 string            `json:"sku"`
	Name                string            `json:"name"`
	Barcodes            []string          `json:"barcodes"`
	ProductCategories   []ProductCategory `json:"productCategories"`
	UnitsPerPallet      *int              `json:"unitsPerPallet"` // nil when the WMS has none on file
	UnitsPerPurchasePkg int               `json:"unitsPerPurchasePackage"`
	UnitsPerSalesPkg    int               `json:"unitsPerSalesPackage"`
	Weight              float64           `json:"weight"`
	Volume              float64           `json:"volume"`
	Attributes          ProductAttributes `json:"attributes"`
}

// ————————————————————————————————————————————————————————————————————————
// Orders
// ————————————————————————————————————————————————————————————————————————

// Item is a single line of a fulfillment order.
type Item struct {
	ProductID         string  `json:"productId"`
	Quantity          float64 `json:"quantity"`
	FulfilledQuantity float64 `json:"fulfilledQuantity"`
	Product           Product `json:"product"`
}

// FulfillmentOrder is a queued order as returned by
// sales/orders/fulfillments. It is the unit of work the Order Classifier
// and Separator operate on.
type FulfillmentOrder struct {
	ID               string    `json:"id"`
	SalesOrderID     string    `json:"salesOrderId"`
	WarehouseID      string    `json:"warehouseId"`
	State            string    `json:"state"`
	Channel          string    `json:"salesChannel"`
	Priority         int       `json:"priority"`
	ShippingMethodID int       `json:"shippingMethodId"`
	DeliveryDate     time.Time `json:"deliveryDate"`
	CreatedDate      time.Time `json:"createdDate"`
	ShipTo           ShipTo    `json:"shipTo"`
	Criterium        string    `json:"criterium"` // comma-separated tags, e.g. "LA_0_5,other_tag"
	Items            []Item    `json:"orderItems"`
}

// User is a WMS user record, used to resolve roster names to user IDs.
type User struct {
	ID       string `json:"id"`
	Username string `json:"email"`
}

// ————————————————————————————————————————————————————————————————————————
// Stock & shelves
// ————————————————————————————————————————————————————————————————————————

// StockLocation is the storage location a stock row sits at.
type StockLocation struct {
	Code   string `json:"code"`   // full location code, e.g. "H1-111-1-2-1-1"
	ZoneID int    `json:"zoneId"`
}

// StockRecord is a single stock row from inventory/stocks: one product, on
// one shelf, in one warehouse zone.
type StockRecord struct {
	ProductID string        `json:"productId"`
	Location  StockLocation `json:"location"`
	Quantity  float64       `json:"quantity"`
}

// ShelvesIndex maps each shelf to the set of product IDs stocked on it.
// Built once per run by the Shelves Indexer and treated as read-only by
// every downstream planner.
type ShelvesIndex map[string]map[string]struct{}

// AddProduct records that productID is stocked on shelf.
func (s ShelvesIndex) AddProduct(shelf, productID string) {
	set, ok := s[shelf]
	if !ok {
		set = make(map[string]struct{})
		s[shelf] = set
	}
	set[productID] = struct{}{}
}

// ProductAvailability maps a product ID to its total quantity available
// across all picking-eligible warehouse zones. Built once at the start of
// a run; the same map is handed to each planner in turn, and the batch and
// cart planners decrement it in place as they commit stock.
type ProductAvailability map[string]float64

// Clone returns an independent copy so a planner can reserve against its
// own view without affecting others reading the same snapshot.
func (p ProductAvailability) Clone() ProductAvailability {
	out := make(ProductAvailability, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// ————————————————————————————————————————————————————————————————————————
// Picking orders
// ————————————————————————————————————————————————————————————————————————

// PickingOrder is the payload sent to the WMS to create a pick, batch, or
// cart.
type PickingOrder struct {
	FulfillmentOrderIDs []string `json:"fulfillmentOrderIds"`
	Note                string   `json:"note"`
	Cart                bool     `json:"cart"`
	AssignedUserIDs     []string `json:"assignedUserIds,omitempty"`
}

// ————————————————————————————————————————————————————————————————————————
// Configuration-derived lookups
// ————————————————————————————————————————————————————————————————————————

// SkusToBatch is the set of SKUs eligible for the special palette-batching
// regime, loaded once per run and cached by the caller (see
// internal/batch.Planner).
type SkusToBatch map[string]struct{}

// Contains reports whether sku is in the batchable set.
func (s SkusToBatch) Contains(sku string) bool {
	_, ok := s[sku]
	return ok
}

// SkuBatchRule is one entry of the special-SKU batching configuration: the
// product it refers to, and the quantity above which a single order for
// it is pulled out into its own palette pick rather than joining the
// regular batch.
type SkuBatchRule struct {
	ProductID         string `json:"id"`
	SeparateBatchFrom int    `json:"separate_batch_from"`
}

// SkusToBatchRules is the full special-SKU batching configuration, keyed
// by SKU, as loaded from the operator-maintained skus-to-batch file.
type SkusToBatchRules map[string]SkuBatchRule

// Set projects the rules down to the plain membership set classify.
// SuitableForCartCreation needs.
func (r SkusToBatchRules) Set() SkusToBatch {
	out := make(SkusToBatch, len(r))
	for sku := range r {
		out[sku] = struct{}{}
	}
	return out
}

// RuleForProduct returns the batching rule for productID, if any of the
// SKUs map to it.
func (r SkusToBatchRules) RuleForProduct(productID string) (SkuBatchRule, bool) {
	for _, rule := range r {
		if rule.ProductID == productID {
			return rule, true
		}
	}
	return SkuBatchRule{}, false
}

// PickerRoster is the set of picker user IDs for each assignment category,
// persisted in blob storage and periodically refreshed from a
// spreadsheet.
type PickerRoster struct {
	Palettenversand []string `json:"Palettenversand"`
	Partnerkunden   []string `json:"Partnerkunden"`
}

// ————————————————————————————————————————————————————————————————————————
// Run-scoped state
// ————————————————————————————————————————————————————————————————————————

// ProcessedSet tracks which fulfillment orders have already been assigned
// to a pick, batch, or cart during the current run. It is explicit,
// caller-owned state passed to every planner — never a shared mutable
// field on a long-lived object — so a planner cannot double-emit an order
// by forgetting a previous stage already claimed it.
type ProcessedSet map[string]struct{}

// Mark records that orderID has been claimed by some picking order.
func (p ProcessedSet) Mark(orderID string) {
	p[orderID] = struct{}{}
}

// Contains reports whether orderID has already been claimed.
func (p ProcessedSet) Contains(orderID string) bool {
	_, ok := p[orderID]
	return ok
}
