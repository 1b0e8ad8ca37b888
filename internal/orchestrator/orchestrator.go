// Package orchestrator wires every subsystem together into one
// cooperative, sequential run: maintenance tasks, queue preprocessing,
// shelf indexing, order separation, batching, and cart creation, in the
// exact order the original run script performs them. There is
// deliberately no concurrency here — the WMS rate limiter already caps
// the throughput a single run can use, and running the stages out of
// order would let a later stage see a stock snapshot an earlier stage
// hadn't finished decrementing.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/altruan-tools/pulpopicker/internal/alert"
	"github.com/altruan-tools/pulpopicker/internal/articleservice"
	"github.com/altruan-tools/pulpopicker/internal/batch"
	"github.com/altruan-tools/pulpopicker/internal/cart"
	"github.com/altruan-tools/pulpopicker/internal/classify"
	"github.com/altruan-tools/pulpopicker/internal/config"
	"github.com/altruan-tools/pulpopicker/internal/roster"
	"github.com/altruan-tools/pulpopicker/internal/separate"
	"github.com/altruan-tools/pulpopicker/internal/shelves"
	"github.com/altruan-tools/pulpopicker/internal/wmsclient"
	"github.com/altruan-tools/pulpopicker/pkg/model"
)

// altruanLieferdienstShippingMethod is paused on sight: the carrier
// picks these up on its own schedule, so no pick should ever be created
// for them.
const altruanLieferdienstShippingMethod = 807

// Summary reports what one Run accomplished, for logging/alerting by
// the caller.
type Summary struct {
	OrdersSeen     int
	IsRunningDry   bool
	IsSweepingTime bool
}

// Orchestrator holds every subsystem a run needs. Build one with New and
// call Run once per invocation (a cron trigger or a manual kick).
type Orchestrator struct {
	client        *wmsclient.Client
	rosterStore   *roster.Store
	rosterRefresh *roster.Refresher
	shelfIndexer  *shelves.Indexer
	articles      *articleservice.Client
	notifier      *alert.Notifier
	logger        *slog.Logger

	cfg               config.RunConfig
	rosterUpdateHours []int
	skuRules          model.SkusToBatchRules
}

// New builds an Orchestrator. rosterRefresh may be nil when no
// spreadsheet refresh is configured, in which case the roster is only
// ever read from (never refreshed into) Blob Storage.
func New(
	client *wmsclient.Client,
	rosterStore *roster.Store,
	rosterRefresh *roster.Refresher,
	rosterUpdateHours []int,
	shelfIndexer *shelves.Indexer,
	articles *articleservice.Client,
	notifier *alert.Notifier,
	logger *slog.Logger,
	cfg config.RunConfig,
	skuRules model.SkusToBatchRules,
) *Orchestrator {
	return &Orchestrator{
		client:            client,
		rosterStore:       rosterStore,
		rosterRefresh:     rosterRefresh,
		rosterUpdateHours: rosterUpdateHours,
		shelfIndexer:      shelfIndexer,
		articles:          articles,
		notifier:          notifier,
		logger:            logger,
		cfg:               cfg,
		skuRules:          skuRules,
	}
}

// Run executes one complete picking-plan cycle at now: scheduled
// maintenance, queue preprocessing, shelf indexing, order separation,
// then batch and cart creation for the priority bucket followed by the
// non-priority bucket.
func (o *Orchestrator) Run(ctx context.Context, now time.Time) (Summary, error) {
	isSweepingTime := isInHours(now.Hour(), o.cfg.SweepingHours)
	o.logger.Warn("run started", "time", now, "sweeping_time", isSweepingTime)

	if err := o.scheduledMaintenanceTasks(ctx, now); err != nil {
		o.logger.Error("scheduled maintenance failed", "error", err)
	}

	if err := o.preprocessOrders(ctx); err != nil {
		o.logger.Error("order preprocessing failed", "error", err)
	}

	shelvesIndex, productStock, err := o.shelfIndexer.Build(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("build shelves index: %w", err)
	}

	pickerRoster, err := o.rosterStore.Load(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("load picker roster: %w", err)
	}

	workingDays := classify.WorkingDaySet(o.cfg.WorkingDays)

	processed := model.ProcessedSet{}
	separatorCfg := separate.Config{
		PaletteLabelShare:      o.cfg.PaletteLabelShare,
		SpecialShippingMethods: toIntSet(o.cfg.SpecialShippingMethods),
		PartnerkundeChannels:   toStringSet(o.cfg.PartnerkundeChannels),
		NormalPriorityValue:    o.cfg.NormalPriorityValue,
		SkusToBatch:            o.skuRules.Set(),
		WorkingDays:            workingDays,
	}
	separator := separate.New(o.client, o.logger, separatorCfg, now, isSweepingTime, pickerRoster, productStock, processed)
	separated, err := separator.Run(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("separate orders: %w", err)
	}
	o.logger.Warn("orders separated",
		"prio_for_batches", len(separated.PrioOrdersForBatches),
		"seni_prio", len(separated.SeniPrioOrders),
		"prio_without_seni", len(separated.PrioOrdersWithoutSeni),
		"for_batches", len(separated.OrdersForBatches),
		"seni", len(separated.SeniOrders),
		"without_seni", len(separated.OrdersWithoutSeni),
	)

	isRunningDry := separated.OrdersCount < o.cfg.RunningDryNumOrders
	o.logger.Warn("running dry check", "orders_count", separated.OrdersCount, "is_running_dry", isRunningDry)

	batchPlanner := batch.New(o.client, o.articles, o.notifier, o.logger, batch.Config{
		MinBatchSize:          o.cfg.MinBatchSize,
		MaxBatchSize:          o.cfg.MaxBatchSize,
		MinBatchSizeSeni:      o.cfg.MinBatchSizeSeni,
		IsRunningDry:          isRunningDry,
		RunningDryDenominator: o.cfg.RunningDryDenominator,
		WorkingDays:           workingDays,
	}, o.skuRules, now, processed)

	cartCfg := cart.Config{
		NonPrioCartThreshold:  o.cfg.NonPrioCartThreshold,
		SweepingMinOrders:     o.cfg.SweepingMinOrders,
		RunningDryDenominator: o.cfg.RunningDryDenominator,
		Sizes:                 cart.Sizes(o.cfg.CartSizeMinOrders, o.cfg.CartSizeMaxOrders),
		WorkingDays:           workingDays,
	}

	o.logger.Warn("processing priority orders")
	if err := o.pickingCreationManager(ctx, now, isSweepingTime, isRunningDry, true,
		separated.PrioOrdersForBatches, separated.SeniPrioOrders, separated.PrioOrdersWithoutSeni,
		batchPlanner, cartCfg, shelvesIndex, productStock, processed); err != nil {
		return Summary{}, fmt.Errorf("process priority orders: %w", err)
	}

	o.logger.Warn("processing non-priority orders")
	if err := o.pickingCreationManager(ctx, now, isSweepingTime, isRunningDry, false,
		separated.OrdersForBatches, separated.SeniOrders, separated.OrdersWithoutSeni,
		batchPlanner, cartCfg, shelvesIndex, productStock, processed); err != nil {
		return Summary{}, fmt.Errorf("process non-priority orders: %w", err)
	}

	return Summary{
		OrdersSeen:     separated.OrdersCount,
		IsRunningDry:   isRunningDry,
		IsSweepingTime: isSweepingTime,
	}, nil
}

// pickingCreationManager runs the batch planner over batchList, then the
// cart manager over cartSeniList followed by cartList, matching the
// original's fixed stage order: batches first, then Seni carts, then
// the remaining carts, all sharing one working stock snapshot so every
// stage sees what the previous stage already committed.
func (o *Orchestrator) pickingCreationManager(
	ctx context.Context,
	now time.Time,
	isSweepingTime, isRunningDry, isPrio bool,
	batchList, cartSeniList, cartList []model.FulfillmentOrder,
	batchPlanner *batch.Planner,
	cartCfg cart.Config,
	shelvesIndex model.ShelvesIndex,
	productStock model.ProductAvailability,
	processed model.ProcessedSet,
) error {
	if err := batchPlanner.Run(ctx, batchList, isPrio, productStock); err != nil {
		return fmt.Errorf("batch planner: %w", err)
	}

	cartsManager := cart.NewManager(o.client, o.logger, cartCfg, now, shelvesIndex, processed, productStock)
	o.logger.Warn("processing seni carts", "count", len(cartSeniList))
	if err := cartsManager.Run(ctx, cartSeniList, isPrio, isSweepingTime, isRunningDry); err != nil {
		return fmt.Errorf("seni cart manager: %w", err)
	}
	if err := cartsManager.Run(ctx, cartList, isPrio, isSweepingTime, isRunningDry); err != nil {
		return fmt.Errorf("cart manager: %w", err)
	}
	return nil
}

// scheduledMaintenanceTasks deletes unowned queued picks during the
// configured night-cleaning hours and refreshes the picker roster from
// the spreadsheet during the configured update hours.
func (o *Orchestrator) scheduledMaintenanceTasks(ctx context.Context, now time.Time) error {
	if isInHours(now.Hour(), o.cfg.NightCleaningHours) {
		if err := o.cleanUnownedPicks(ctx); err != nil {
			return fmt.Errorf("night cleaning: %w", err)
		}
	}
	if o.rosterRefresh != nil && roster.ShouldRefresh(now.Hour(), o.rosterUpdateHours) {
		refreshed, err := o.rosterRefresh.Refresh(ctx)
		if err != nil {
			if o.notifier != nil {
				if aErr := o.notifier.Send(ctx, "Picker roster refresh failed", err.Error()); aErr != nil {
					o.logger.Error("failed to send roster refresh alert", "error", aErr)
				}
			}
			return fmt.Errorf("refresh roster: %w", err)
		}
		if err := o.rosterStore.Save(ctx, refreshed); err != nil {
			return fmt.Errorf("save refreshed roster: %w", err)
		}
	}
	return nil
}

// queuedPick is the narrow shape cleanUnownedPicks needs from a
// picking/orders row: enough to tell an unowned pick apart from one a
// picker has already taken.
type queuedPick struct {
	ID    string          `json:"id"`
	Owner json.RawMessage `json:"owner"`
}

func (p queuedPick) hasOwner() bool {
	return len(p.Owner) > 0 && string(p.Owner) != "null"
}

// cleanUnownedPicks deletes every queued picking order that no one has
// taken yet, clearing stale picks before a new run creates more.
func (o *Orchestrator) cleanUnownedPicks(ctx context.Context) error {
	paginator := wmsclient.NewPaginator(o.client, "picking/orders", map[string]string{"state": "queue"}, 0, 0)
	return paginator.Each(ctx, func(page []json.RawMessage) (bool, error) {
		for _, raw := range page {
			var pick queuedPick
			if err := json.Unmarshal(raw, &pick); err != nil {
				o.logger.Error("malformed picking order during cleaning", "error", err)
				continue
			}
			if pick.hasOwner() {
				continue
			}
			if err := o.client.Delete(ctx, fmt.Sprintf("picking/orders/%s", pick.ID)); err != nil {
				o.logger.Error("failed to delete unowned picking order", "id", pick.ID, "error", err)
				continue
			}
			o.logger.Warn("picking order deleted", "id", pick.ID)
		}
		return true, nil
	})
}

// preprocessOrders pauses every queued order shipped via Altruan
// Lieferdienst before any pick is created for it: the carrier collects
// these on its own schedule, outside the picking flow entirely.
func (o *Orchestrator) preprocessOrders(ctx context.Context) error {
	paginator := wmsclient.NewPaginator(o.client, "sales/orders/fulfillments", map[string]string{"state": "queue"}, 0, 0)
	return paginator.Each(ctx, func(page []json.RawMessage) (bool, error) {
		for _, raw := range page {
			var order model.FulfillmentOrder
			if err := json.Unmarshal(raw, &order); err != nil {
				o.logger.Error("malformed fulfillment order during preprocessing", "error", err)
				continue
			}
			if order.ShippingMethodID != altruanLieferdienstShippingMethod {
				continue
			}
			if err := o.client.Post(ctx, fmt.Sprintf("sales/orders/%s/pause", order.SalesOrderID), nil, nil); err != nil {
				o.logger.Error("failed to pause order", "order", order.SalesOrderID, "error", err)
				continue
			}
			o.logger.Warn("order paused", "order", order.SalesOrderID)
		}
		return true, nil
	})
}

func isInHours(hour int, hours []int) bool {
	for _, h := range hours {
		if h == hour {
			return true
		}
	}
	return false
}

func toIntSet(values []int) map[int]struct{} {
	out := make(map[int]struct{}, len(values))
	for _, v := range values {
		out[v] = struct{}{}
	}
	return out
}

func toStringSet(values []string) map[string]struct{} {
	out := make(map[string]struct{}, len(values))
	for _, v := range values {
		out[v] = struct{}{}
	}
	return out
}
