package classify

import (
	"testing"
	"time"

	"github.com/altruan-tools/pulpopicker/pkg/model"
)

var testWorkingDays = WorkingDaySet([]int{1, 2, 3, 4, 5})

const testPaletteLabelShare = 9

func mustTime(t *testing.T, layout, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse(layout, value)
	if err != nil {
		t.Fatalf("time.Parse: %v", err)
	}
	return parsed
}

func TestIsOrderPrioMorningPastDueFarPLZ(t *testing.T) {
	t.Parallel()
	// Monday 2026-07-27 at 06:00, PLZ starting with 1, delivery date already past.
	now := mustTime(t, "2006-01-02T15:04:05", "2026-07-27T06:00:00")
	order := model.FulfillmentOrder{
		ShipTo: model.ShipTo{Address: model.Address{
			Zipcode:     "10115",
			CountryCode: "276",
		}},
		DeliveryDate: mustTime(t, "2006-01-02T15:04:05", "2026-07-25T00:00:00"),
	}
	if !IsOrderPrio(order, now, testWorkingDays) {
		t.Error("expected order to be prio (morning window, far PLZ, past delivery date)")
	}
}

func TestIsOrderPrioMorningNearPLZNotPrio(t *testing.T) {
	t.Parallel()
	now := mustTime(t, "2006-01-02T15:04:05", "2026-07-27T06:00:00")
	order := model.FulfillmentOrder{
		ShipTo: model.ShipTo{Address: model.Address{
			Zipcode:     "90115", // PLZ range 9, not far
			CountryCode: "276",
		}},
		DeliveryDate: mustTime(t, "2006-01-02T15:04:05", "2026-07-25T00:00:00"),
	}
	if IsOrderPrio(order, now, testWorkingDays) {
		t.Error("expected non-far PLZ order to not be prio in the morning window")
	}
}

func TestIsOrderPrioAfternoonFarPLZNoPastDue(t *testing.T) {
	t.Parallel()
	// 15:00, far PLZ, Germany, delivery date in the future — still prio.
	now := mustTime(t, "2006-01-02T15:04:05", "2026-07-27T15:00:00")
	order := model.FulfillmentOrder{
		ShipTo: model.ShipTo{Address: model.Address{
			Zipcode:     "20095",
			CountryCode: "276",
		}},
		DeliveryDate: mustTime(t, "2006-01-02T15:04:05", "2026-07-30T00:00:00"),
	}
	if !IsOrderPrio(order, now, testWorkingDays) {
		t.Error("expected afternoon far-PLZ order to be prio regardless of delivery date")
	}
}

func TestIsOrderPrioWeekendAnyPastDue(t *testing.T) {
	t.Parallel()
	// Saturday, any PLZ, past delivery date.
	now := mustTime(t, "2006-01-02T15:04:05", "2026-08-01T12:00:00")
	order := model.FulfillmentOrder{
		ShipTo: model.ShipTo{Address: model.Address{
			Zipcode:     "80331",
			CountryCode: "276",
		}},
		DeliveryDate: mustTime(t, "2006-01-02T15:04:05", "2026-07-30T00:00:00"),
	}
	if !IsOrderPrio(order, now, testWorkingDays) {
		t.Error("expected weekend order with past delivery date to be prio")
	}
}

func TestExtractSizeParsesLabelShareTag(t *testing.T) {
	t.Parallel()
	order := model.FulfillmentOrder{Criterium: "other_tag,LA_0_5,another"}
	if got := ExtractSize(order); got != 0.5 {
		t.Errorf("ExtractSize() = %v, want 0.5", got)
	}
}

func TestExtractSizeNoTagReturnsZero(t *testing.T) {
	t.Parallel()
	order := model.FulfillmentOrder{Criterium: "unrelated"}
	if got := ExtractSize(order); got != 0 {
		t.Errorf("ExtractSize() = %v, want 0", got)
	}
}

func TestDefineSizeNote(t *testing.T) {
	t.Parallel()
	cases := []struct {
		labelShare float64
		want       string
	}{
		{0, NotePalette},
		{0.2, "S (bis 0.25)"},
		{0.5, "M1 (bis 0.5)"},
		{1, "M2 (bis 1)"},
		{2.5, "L (bis 3)"},
		{8, "XL (ab 3)"},
		{15, NotePalette},
	}
	for _, c := range cases {
		if got := DefineSizeNote(c.labelShare); got != c.want {
			t.Errorf("DefineSizeNote(%v) = %q, want %q", c.labelShare, got, c.want)
		}
	}
}

func TestCheckForSeniByCategory(t *testing.T) {
	t.Parallel()
	order := model.FulfillmentOrder{Items: []model.Item{
		{Product: model.Product{ProductCategories: []model.ProductCategory{{ID: 6468}}}},
	}}
	if !CheckForSeni(order) {
		t.Error("expected Seni category to be detected")
	}
}

func TestCheckForSeniByName(t *testing.T) {
	t.Parallel()
	order := model.FulfillmentOrder{Items: []model.Item{
		{Product: model.Product{Name: "Seni Lady Optima"}},
	}}
	if !CheckForSeni(order) {
		t.Error("expected Seni name match to be detected")
	}
}

func TestCheckForSeniNoMatch(t *testing.T) {
	t.Parallel()
	order := model.FulfillmentOrder{Items: []model.Item{
		{Product: model.Product{Name: "Generic Towel", ProductCategories: []model.ProductCategory{{ID: 1}}}},
	}}
	if CheckForSeni(order) {
		t.Error("expected no Seni match")
	}
}

func TestSuitableForCartCreationDuringSweeping(t *testing.T) {
	t.Parallel()
	order := model.FulfillmentOrder{ShippingMethodID: 604} // Palettenversand, would otherwise be excluded
	if !SuitableForCartCreation(order, true, model.SkusToBatch{}, map[int]struct{}{604: {}}, testPaletteLabelShare) {
		t.Error("expected all orders to be cart-suitable during sweeping time")
	}
}

func TestSuitableForCartCreationExcludesBatchSKU(t *testing.T) {
	t.Parallel()
	order := model.FulfillmentOrder{Items: []model.Item{{Product: model.Product{SKU: "BATCH-1"}}}}
	skus := model.SkusToBatch{"BATCH-1": struct{}{}}
	if SuitableForCartCreation(order, false, skus, nil, testPaletteLabelShare) {
		t.Error("expected order with a batch-only SKU to be excluded from carts")
	}
}

func TestSuitableForCartCreationExcludesSpecialShipping(t *testing.T) {
	t.Parallel()
	order := model.FulfillmentOrder{ShippingMethodID: 604}
	if SuitableForCartCreation(order, false, model.SkusToBatch{}, map[int]struct{}{604: {}}, testPaletteLabelShare) {
		t.Error("expected special shipping method to be excluded from carts")
	}
}

func TestSuitableForCartCreationExcludesAtLabelShareThreshold(t *testing.T) {
	t.Parallel()
	order := model.FulfillmentOrder{Criterium: "LA_9_0"}
	if SuitableForCartCreation(order, false, model.SkusToBatch{}, nil, testPaletteLabelShare) {
		t.Error("expected an order at the palette label-share threshold to be excluded from carts")
	}
}

func TestCheckOrderSuitability(t *testing.T) {
	t.Parallel()
	if !CheckOrderSuitability(model.FulfillmentOrder{State: "queue"}) {
		t.Error("expected queue-state order to be suitable")
	}
	if CheckOrderSuitability(model.FulfillmentOrder{State: "taken"}) {
		t.Error("expected non-queue order to be unsuitable")
	}
}
