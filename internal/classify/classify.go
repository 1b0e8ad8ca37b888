// Package classify implements the pure predicates used to route a
// fulfillment order to a priority band, a size bucket, and a picking
// strategy.
//
// Every function here is a pure function of its arguments — none of them
// read the OS clock or hold mutable state — so the Separator and Batch
// Planner can run them repeatedly over the same order queue with
// deterministic results, and tests can drive them with a fixed time
// instead of a frozen clock field on a long-lived object.
package classify

import (
	"strconv"
	"strings"
	"time"

	"github.com/altruan-tools/pulpopicker/pkg/model"
)

// Domain constants that encode the fixed business grammar rather than
// per-deployment tuning (contrast internal/config.RunConfig, which holds
// the genuinely operator-tunable thresholds).
const (
	tagIdentifierLabelShare = "LA_"
	germanyCountryCode      = "276"
	correctionHours         = 2
	yesterdayOrdersStart    = 9
	yesterdayOrdersEnd      = 13
	timeFormat              = "2006-01-02T15:04:05"
	seniProductsIdentifier  = "Seni"
	tzmoManufacturerID      = 6468
	queueState              = "queue"
)

var plzFarRange = map[byte]struct{}{'1': {}, '2': {}, '3': {}, '4': {}}

// WorkingDaySet converts internal/config.RunConfig.WorkingDays (ints per
// time.Weekday, Sunday == 0) into the set IsOrderPrio and notes.Composer
// both test membership against. Built once per run by the orchestrator
// rather than parsed on every call.
func WorkingDaySet(days []int) map[time.Weekday]struct{} {
	set := make(map[time.Weekday]struct{}, len(days))
	for _, d := range days {
		set[time.Weekday(d)] = struct{}{}
	}
	return set
}

// Size notes, exported so internal/cart's package-size table names the
// same labels this package's DefineSizeNote produces, rather than
// re-literal-izing them.
const (
	NoteSizeS   = "S (bis 0.25)"
	NoteSizeM1  = "M1 (bis 0.5)"
	NoteSizeM2  = "M2 (bis 1)"
	NoteSizeL   = "L (bis 3)"
	NoteSizeXL  = "XL (ab 3)"
	NotePalette = "Palette"
)

// labelShareDividers maps a maximum label share to its size note, checked
// in slice order (ascending max).
var labelShareDividers = []struct {
	max  float64
	note string
}{
	{0.25, NoteSizeS},
	{0.5, NoteSizeM1},
	{1, NoteSizeM2},
	{3, NoteSizeL},
	{9, NoteSizeXL},
}

// IsOrderPrio reports whether the order should be treated as a priority
// order given the current time, per the three time-band rule:
//
//   - 00:00–09:00 on a working day: PLZ 1-4, Germany, and the delivery
//     date already past → priority (customer is behind on a delivery that
//     should have gone out already).
//   - 09:00–14:00, or any non-working day: the delivery date is past →
//     priority.
//   - 14:00–24:00 on a working day: PLZ 1-4, Germany → priority, even
//     without a past delivery date (these are the long-haul routes that
//     must ship today to make tomorrow's delivery window).
func IsOrderPrio(order model.FulfillmentOrder, now time.Time, workingDays map[time.Weekday]struct{}) bool {
	plz := order.ShipTo.Address.Zipcode
	if plz == "" {
		return false
	}
	_, farPLZ := plzFarRange[plz[0]]
	_, working := workingDays[now.Weekday()]
	isGermany := order.ShipTo.Address.CountryCode == germanyCountryCode

	if now.Hour() < yesterdayOrdersStart && working && isGermany && farPLZ && IsPastDeliveryDate(order, now) {
		return true
	}
	if ((now.Hour() >= yesterdayOrdersStart && now.Hour() <= yesterdayOrdersEnd) || !working) && IsPastDeliveryDate(order, now) {
		return true
	}
	if now.Hour() > yesterdayOrdersEnd && working && isGermany && farPLZ {
		return true
	}
	return false
}

// IsPastDeliveryDate reports whether order's delivery date has already
// passed as of now (date comparison, not time-of-day — matching the
// original's strict "< today" check after applying the timezone
// correction).
func IsPastDeliveryDate(order model.FulfillmentOrder, now time.Time) bool {
	if order.DeliveryDate.IsZero() {
		return false
	}
	corrected := order.DeliveryDate.Add(correctionHours * time.Hour)
	return corrected.Before(dateOnly(now))
}

// IsDeliveryInFuture reports whether order's delivery date is after today.
func IsDeliveryInFuture(order model.FulfillmentOrder, now time.Time) bool {
	corrected := order.DeliveryDate.Add(correctionHours * time.Hour)
	return corrected.After(dateOnly(now))
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// ExtractSize extracts the label share from an order's criterium tags.
// The tag is formatted "LA_<int>_<frac>", e.g. "LA_0_5" means a label
// share of 0.5. Returns 0 if no such tag is present or it cannot be
// parsed.
func ExtractSize(order model.FulfillmentOrder) float64 {
	for _, tag := range strings.Split(order.Criterium, ",") {
		if !strings.HasPrefix(tag, tagIdentifierLabelShare) {
			continue
		}
		parts := strings.Split(tag, "_")
		if len(parts) < 3 {
			continue
		}
		value, err := strconv.ParseFloat(parts[1]+"."+parts[2], 64)
		if err != nil {
			continue
		}
		return value
	}
	return 0
}

// DefineSizeNote maps a label share to its display note.
func DefineSizeNote(labelShare float64) string {
	if labelShare == 0 {
		return NotePalette
	}
	for _, d := range labelShareDividers {
		if labelShare <= d.max {
			return d.note
		}
	}
	return NotePalette
}

// CheckForSeni reports whether any item in the order is a Seni
// (incontinence) product, identified either by manufacturer category ID
// or by a name match.
func CheckForSeni(order model.FulfillmentOrder) bool {
	for _, item := range order.Items {
		if IsSeniProduct(item.Product) {
			return true
		}
	}
	return false
}

// IsSeniProduct reports whether product is a Seni (incontinence) product,
// identified either by the TZMO manufacturer category ID or by a name
// match. This is the single detector every package uses for Seni
// classification, at order level (CheckForSeni) or per item (the Batch
// Planner, which tracks Seni status per product ID rather than per order).
func IsSeniProduct(product model.Product) bool {
	for _, cat := range product.ProductCategories {
		if cat.ID == tzmoManufacturerID {
			return true
		}
	}
	return strings.Contains(product.Name, seniProductsIdentifier)
}

// CheckOrderSuitability reports whether the order is eligible to have any
// picking order created for it at all — it must be in the queue state.
func CheckOrderSuitability(order model.FulfillmentOrder) bool {
	return order.State == queueState
}

// SuitableForCartCreation reports whether order can be placed into a cart
// rather than requiring a batch or single pick. During sweeping hours
// every order is cart-eligible; otherwise an order containing any
// batch-only SKU, or shipped via a special/palette method, is excluded.
func SuitableForCartCreation(order model.FulfillmentOrder, isSweepingTime bool, skusToBatch model.SkusToBatch, specialShippingMethods map[int]struct{}, paletteLabelShare float64) bool {
	if isSweepingTime {
		return true
	}
	for _, item := range order.Items {
		if skusToBatch.Contains(item.Product.SKU) {
			return false
		}
	}
	if ExtractSize(order) >= paletteLabelShare {
		return false
	}
	if _, special := specialShippingMethods[order.ShippingMethodID]; special {
		return false
	}
	return true
}
