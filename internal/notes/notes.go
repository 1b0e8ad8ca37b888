// Package notes builds the free-text note attached to every picking
// order created in the WMS. The grammar is a fixed, ordered sequence of
// tokens — never a template string — so the order in which blocks are
// appended is the single source of truth for what a picker sees on their
// handheld.
package notes

import (
	"strconv"
	"strings"
	"time"

	"github.com/altruan-tools/pulpopicker/internal/classify"
	"github.com/altruan-tools/pulpopicker/pkg/model"
)

const (
	baseNote           = "Bot:"
	noteBatch          = "Batch"
	notePLZFarRange    = "PLZ 1-4"
	noteYesterday      = "Vortag"
	noteSweeper        = "Rest"
	noteSeni           = "Seni"
	notePrio           = "PRIO"
	noteAbholung       = "Abholung"
	noteDBSchenker     = "Palette"
	noteAltruan        = "Altruan Lieferdienst"
	notePalette        = "Palette"
	notePartnerkunde   = "Partnerkunde (Bitte Lieferschein ausdrucken)"
	normalPriorityVal  = 1
	yesterdayHourStart = 9
	yesterdayHourEnd   = 13
)

// Shipping method IDs that earn a dedicated note token, matching the
// original's SPECIAL_SHIPPING_METHODS subset that carries its own label
// rather than the size-based one.
const (
	shippingAbholung              = 665
	shippingDBSchenker            = 605
	shippingAltruanLieferdienst   = 807
	shippingDBSchenkerEuropalette = 1097
)

// Composer builds notes for a related group of picking-order creations —
// one Composer per batch/cart/single-pick decision, mirroring the
// original NoteCreator's per-creation lifetime instead of a singleton.
type Composer struct {
	Orders         []model.FulfillmentOrder // source orders, looked up by sales order ID for Seni detection
	Now            time.Time
	IsPrio         bool
	IsBatch        bool
	IsSweepingTime bool

	PartnerkundeChannels map[string]struct{}

	// WorkingDays is the same set classify.IsOrderPrio tests Now.Weekday()
	// against, threaded in from internal/config.RunConfig.WorkingDays so
	// the "Vortag" vs "PLZ far range" phrasing agrees with whether the run
	// actually treated today as a working day.
	WorkingDays map[time.Weekday]struct{}
}

// Options carries the optional per-call parameters to CreateNote. All
// fields are optional; zero values are skipped.
type Options struct {
	SingleOrder     *model.FulfillmentOrder
	SizeNote        string
	BatchedQuantity int
	BatchedProduct  string
	Shelf           string
}

// CreateNote composes the note for a picking order covering listOfIDs
// (sales order IDs). Blocks are appended in this fixed order: base,
// Seni, priority, batch, special shipping method, Partnerkunde, sweeper
// marker, size, batched quantity+product, shelf, and — only during
// sweeping for a prio pick — the order count.
func (c *Composer) CreateNote(listOfIDs []string, opts Options) string {
	sizeNote := opts.SizeNote
	if sizeNote == "" && opts.SingleOrder != nil {
		sizeNote = c.sizeNote(*opts.SingleOrder)
	}

	var b strings.Builder
	b.WriteString(baseNote)

	if c.containsSeniProducts(listOfIDs) {
		b.WriteString(" " + noteSeni)
	}

	switch {
	case opts.SingleOrder != nil && opts.SingleOrder.Priority > normalPriorityVal:
		b.WriteString(" " + notePrio + " " + strconv.Itoa(opts.SingleOrder.Priority))
	case c.IsPrio:
		b.WriteString(" " + c.priorityNote())
	}

	if c.IsBatch {
		b.WriteString(" " + noteBatch)
	}

	if opts.SingleOrder != nil {
		if m := c.specialShippingNote(*opts.SingleOrder); m != "" {
			b.WriteString(" " + m)
		}
		if _, ok := c.PartnerkundeChannels[opts.SingleOrder.Channel]; ok {
			b.WriteString(" " + notePartnerkunde)
		}
	}

	if c.IsSweepingTime && c.IsPrio {
		b.WriteString(" " + noteSweeper)
	}

	if sizeNote != "" {
		b.WriteString(" " + sizeNote)
	}

	if opts.BatchedQuantity != 0 && opts.BatchedProduct != "" {
		b.WriteString(" " + strconv.Itoa(opts.BatchedQuantity) + " " + opts.BatchedProduct)
	}

	if opts.Shelf != "" {
		b.WriteString(" " + opts.Shelf)
	}

	if c.IsSweepingTime && c.IsPrio {
		b.WriteString(" " + strconv.Itoa(len(listOfIDs)))
	}

	return b.String()
}

// specialShippingNote returns the dedicated note for a handful of
// shipping methods that override the usual size-based note.
func (c *Composer) specialShippingNote(order model.FulfillmentOrder) string {
	switch order.ShippingMethodID {
	case shippingAbholung:
		return noteAbholung
	case shippingDBSchenker:
		return noteDBSchenker
	case shippingAltruanLieferdienst:
		return noteAltruan
	case shippingDBSchenkerEuropalette:
		return notePalette
	default:
		return ""
	}
}

func (c *Composer) sizeNote(order model.FulfillmentOrder) string {
	return classify.DefineSizeNote(classify.ExtractSize(order))
}

// priorityNote picks between the "processed yesterday" and "far PLZ"
// phrasing for a prio cart/batch, based on the same time bands
// classify.IsOrderPrio uses.
func (c *Composer) priorityNote() string {
	hour := c.Now.Hour()
	_, working := c.WorkingDays[c.Now.Weekday()]
	if (hour >= yesterdayHourStart && hour <= yesterdayHourEnd) || !working {
		return noteYesterday
	}
	return notePLZFarRange
}

// containsSeniProducts reports whether any order in listOfIDs — resolved
// against c.Orders by sales order ID — carries a Seni product.
func (c *Composer) containsSeniProducts(listOfIDs []string) bool {
	for _, id := range listOfIDs {
		for _, order := range c.Orders {
			if order.SalesOrderID == id && classify.CheckForSeni(order) {
				return true
			}
		}
	}
	return false
}
