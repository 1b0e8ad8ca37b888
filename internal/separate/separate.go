// Package separate implements the Separator: it walks the fulfillment
// order queue once, filters out orders that aren't eligible for picking
// yet, eagerly creates single picks for Partnerkunde/prio/Palette orders,
// and routes everything else into six priority/Seni buckets for the
// Batch Planner and Cart Planners to consume.
package separate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/altruan-tools/pulpopicker/internal/classify"
	"github.com/altruan-tools/pulpopicker/internal/notes"
	"github.com/altruan-tools/pulpopicker/internal/wmsclient"
	"github.com/altruan-tools/pulpopicker/pkg/model"
)

// Config carries the tunable values the Separator needs from
// internal/config.RunConfig, kept narrow so this package doesn't import
// the whole application config.
type Config struct {
	PaletteLabelShare      float64
	SpecialShippingMethods map[int]struct{}
	PartnerkundeChannels   map[string]struct{}
	NormalPriorityValue    int
	SkusToBatch            model.SkusToBatch
	WorkingDays            map[time.Weekday]struct{}
}

// Result is the six-bucket output of a Separator run, plus the total
// count of orders observed in the queue (used later to compute the
// running-dry signal).
type Result struct {
	PrioOrdersForBatches  []model.FulfillmentOrder
	PrioOrdersWithoutSeni []model.FulfillmentOrder
	SeniPrioOrders        []model.FulfillmentOrder
	OrdersForBatches      []model.FulfillmentOrder
	OrdersWithoutSeni     []model.FulfillmentOrder
	SeniOrders            []model.FulfillmentOrder
	OrdersCount           int
}

// Separator walks the queue and performs single-pick creation + bucket
// routing for one orchestrator run.
type Separator struct {
	client *wmsclient.Client
	logger *slog.Logger
	cfg    Config

	now            time.Time
	isSweepingTime bool
	productStock   model.ProductAvailability
	processed      model.ProcessedSet

	partnerkundePickers             []string
	partnerkundePickersDistribution map[string]int
	palettePickers                  []string
	palettePickersDistribution      map[string]int
}

// New creates a Separator. productStock is the shelf-availability
// snapshot for the run (read-only — the Separator never reserves against
// it, it only gates). processed accumulates every order ID the Separator
// itself claims via a single pick, so later stages (Batch Planner, Cart
// Planners) never re-emit it.
func New(client *wmsclient.Client, logger *slog.Logger, cfg Config, now time.Time, isSweepingTime bool, roster model.PickerRoster, productStock model.ProductAvailability, processed model.ProcessedSet) *Separator {
	return &Separator{
		client:         client,
		logger:         logger,
		cfg:            cfg,
		now:            now,
		isSweepingTime: isSweepingTime,
		productStock:   productStock,
		processed:      processed,

		partnerkundePickers: roster.Partnerkunden,
		palettePickers:      roster.Palettenversand,
	}
}

// Run fetches the queue via sales/orders/fulfillments?state=queue,
// filters, and routes every remaining order into one of the six buckets.
// It is important to iterate fulfillment orders rather than sales orders:
// only fulfillment orders reflect state changes like being paused.
func (s *Separator) Run(ctx context.Context) (*Result, error) {
	var err error
	s.partnerkundePickersDistribution, err = s.picksPerUserDistribution(ctx, s.partnerkundePickers)
	if err != nil {
		return nil, fmt.Errorf("partnerkunde picks distribution: %w", err)
	}
	s.palettePickersDistribution, err = s.picksPerUserDistribution(ctx, s.palettePickers)
	if err != nil {
		return nil, fmt.Errorf("palette picks distribution: %w", err)
	}

	result := &Result{}
	paginator := wmsclient.NewPaginator(s.client, "sales/orders/fulfillments", map[string]string{"state": "queue"}, 0, 0)
	err = paginator.Each(ctx, func(page []json.RawMessage) (bool, error) {
		for _, raw := range page {
			var order model.FulfillmentOrder
			if err := json.Unmarshal(raw, &order); err != nil {
				s.logger.Error("malformed fulfillment order", "error", err)
				continue
			}
			if s.processed.Contains(order.SalesOrderID) {
				continue
			}
			if !classify.CheckOrderSuitability(order) || !s.checkAvailabilityLocally(order) {
				continue
			}
			if err := s.handleOrder(ctx, order, result); err != nil {
				s.logger.Error("error handling order in separator", "order", order.SalesOrderID, "error", err)
			}
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Separator) handleOrder(ctx context.Context, order model.FulfillmentOrder, result *Result) error {
	result.OrdersCount++ // every order passing the queue gate counts toward running-dry, regardless of outcome below

	prio := classify.IsOrderPrio(order, s.now, s.cfg.WorkingDays)
	containsSeni := classify.CheckForSeni(order)
	suitableForCarts := classify.SuitableForCartCreation(order, s.isSweepingTime, s.cfg.SkusToBatch, s.cfg.SpecialShippingMethods, s.cfg.PaletteLabelShare)

	created, err := s.singlePicksCreation(ctx, order, prio)
	if err != nil {
		return err
	}
	if created {
		s.processed.Mark(order.SalesOrderID)
		return nil
	}

	if prio {
		result.PrioOrdersForBatches = append(result.PrioOrdersForBatches, order)
		if suitableForCarts {
			if containsSeni {
				result.SeniPrioOrders = append(result.SeniPrioOrders, order)
			} else {
				result.PrioOrdersWithoutSeni = append(result.PrioOrdersWithoutSeni, order)
			}
		}
		return nil
	}

	result.OrdersForBatches = append(result.OrdersForBatches, order)
	if suitableForCarts {
		if containsSeni {
			result.SeniOrders = append(result.SeniOrders, order)
		} else {
			result.OrdersWithoutSeni = append(result.OrdersWithoutSeni, order)
		}
	}
	return nil
}

// checkAvailabilityLocally reports whether every item in order is covered
// by the run's stock snapshot. Deliberately requires ALL items (not just
// the first) to be available, matching the stock-safety invariant that a
// picking order never goes out partially unfulfillable.
func (s *Separator) checkAvailabilityLocally(order model.FulfillmentOrder) bool {
	for _, item := range order.Items {
		qty, ok := s.productStock[item.ProductID]
		if !ok || qty < item.Quantity {
			return false
		}
	}
	return true
}

// singlePicksCreation handles the three eager single-pick paths:
// Partnerkunde, prio above the normal threshold, and Palette/special
// shipping. Returns true if a pick was created for order.
func (s *Separator) singlePicksCreation(ctx context.Context, order model.FulfillmentOrder, isPrio bool) (bool, error) {
	labelShare := classify.ExtractSize(order)

	if _, isPartnerkunde := s.cfg.PartnerkundeChannels[order.Channel]; isPartnerkunde {
		s.logger.Warn("order is Partnerkunde", "order", order.SalesOrderID)
		pickerID, err := s.createAssignedPicking(ctx, order, s.partnerkundePickers, s.partnerkundePickersDistribution, "", isPrio)
		if err != nil {
			return false, err
		}
		if pickerID != "" {
			s.partnerkundePickersDistribution[pickerID]++
		}
		return true, nil
	}

	if order.Priority > s.cfg.NormalPriorityValue {
		s.logger.Warn("order is Prio", "order", order.SalesOrderID)
		composer := &notes.Composer{Orders: []model.FulfillmentOrder{order}, Now: s.now, WorkingDays: s.cfg.WorkingDays}
		note := composer.CreateNote([]string{order.SalesOrderID}, notes.Options{SingleOrder: &order})
		if err := s.createPicking(ctx, []string{order.SalesOrderID}, note, false, nil); err != nil {
			return false, err
		}
		return true, nil
	}

	_, specialShipping := s.cfg.SpecialShippingMethods[order.ShippingMethodID]
	if labelShare >= s.cfg.PaletteLabelShare || specialShipping {
		s.logger.Warn("order is Palette", "order", order.SalesOrderID)
		pickerID, err := s.createAssignedPicking(ctx, order, s.palettePickers, s.palettePickersDistribution, "Palette", isPrio)
		if err != nil {
			return false, err
		}
		if pickerID != "" {
			s.palettePickersDistribution[pickerID]++
		}
		return true, nil
	}

	return false, nil
}

// createAssignedPicking creates a single pick for order, assigning it to
// whichever picker in distribution currently has the fewest queued
// picks. The same computed picker list is used uniformly across both
// call sites (Partnerkunde and Palette) — there is no branch that
// instead assigns the order to the full roster.
func (s *Separator) createAssignedPicking(ctx context.Context, order model.FulfillmentOrder, pickers []string, distribution map[string]int, sizeNote string, isPrio bool) (string, error) {
	composer := &notes.Composer{Orders: []model.FulfillmentOrder{order}, Now: s.now, IsPrio: isPrio, WorkingDays: s.cfg.WorkingDays, PartnerkundeChannels: s.cfg.PartnerkundeChannels}
	note := composer.CreateNote([]string{order.SalesOrderID}, notes.Options{SingleOrder: &order, SizeNote: sizeNote})

	picker := choosePicker(distribution)
	if err := s.createPicking(ctx, []string{order.SalesOrderID}, note, false, picker); err != nil {
		return "", err
	}
	if len(picker) == 0 {
		return "", nil
	}
	return picker[0], nil
}

// createPicking issues the WMS call to create a picking order.
func (s *Separator) createPicking(ctx context.Context, ids []string, note string, cart bool, pickers []string) error {
	if len(ids) == 1 {
		cart = false
	}
	body := model.PickingOrder{
		FulfillmentOrderIDs: ids,
		Note:                note,
		Cart:                cart,
		AssignedUserIDs:     pickers,
	}
	if err := s.client.Post(ctx, "picking/orders", body, nil); err != nil {
		return fmt.Errorf("create picking order: %w", err)
	}
	s.logger.Info("picking order created", "note", note, "orders", ids)
	return nil
}

// choosePicker returns a single-element slice containing the picker with
// the fewest queued picks, or all of distribution's keys if there is at
// most one picker (nothing to choose between).
func choosePicker(distribution map[string]int) []string {
	if len(distribution) <= 1 {
		out := make([]string, 0, len(distribution))
		for k := range distribution {
			out = append(out, k)
		}
		return out
	}
	type entry struct {
		id    string
		count int
	}
	entries := make([]entry, 0, len(distribution))
	for id, count := range distribution {
		entries = append(entries, entry{id, count})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].count < entries[j].count })
	return []string{entries[0].id}
}

// picksPerUserDistribution queries how many picks are currently queued
// for each picker, so choosePicker can balance new assignments.
func (s *Separator) picksPerUserDistribution(ctx context.Context, pickers []string) (map[string]int, error) {
	distribution := make(map[string]int, len(pickers))
	for _, userID := range pickers {
		count, err := s.countQueuedPicksForUser(ctx, userID)
		if err != nil {
			s.logger.Error("failed to count queued picks for user", "user", userID, "error", err)
			count = 0
		}
		distribution[userID] = count
	}
	return distribution, nil
}

func (s *Separator) countQueuedPicksForUser(ctx context.Context, userID string) (int, error) {
	var picks []json.RawMessage
	err := s.client.Get(ctx, "picking/orders", map[string]string{"state": "queue", "owner_id": userID}, &picks)
	if err != nil {
		return 0, err
	}
	return len(picks), nil
}
