package notes

import (
	"strings"
	"testing"
	"time"

	"github.com/altruan-tools/pulpopicker/pkg/model"
)

func TestCreateNoteBaseOnly(t *testing.T) {
	t.Parallel()
	c := &Composer{Now: time.Date(2026, 7, 27, 10, 0, 0, 0, time.UTC)}
	note := c.CreateNote([]string{"so-1"}, Options{})
	if note != baseNote {
		t.Errorf("CreateNote() = %q, want %q", note, baseNote)
	}
}

func TestCreateNoteSeniBlock(t *testing.T) {
	t.Parallel()
	order := model.FulfillmentOrder{
		SalesOrderID: "so-1",
		Items:        []model.Item{{Product: model.Product{Name: "Seni Optima"}}},
	}
	c := &Composer{Orders: []model.FulfillmentOrder{order}}
	note := c.CreateNote([]string{"so-1"}, Options{})
	if !strings.Contains(note, noteSeni) {
		t.Errorf("CreateNote() = %q, want it to contain %q", note, noteSeni)
	}
}

func TestCreateNoteHighPriorityOrder(t *testing.T) {
	t.Parallel()
	order := model.FulfillmentOrder{SalesOrderID: "so-1", Priority: 5}
	c := &Composer{Orders: []model.FulfillmentOrder{order}}
	note := c.CreateNote([]string{"so-1"}, Options{SingleOrder: &order})
	if !strings.Contains(note, "PRIO 5") {
		t.Errorf("CreateNote() = %q, want it to contain %q", note, "PRIO 5")
	}
}

func TestCreateNoteBatchAndPartnerkundeAndSpecialShipping(t *testing.T) {
	t.Parallel()
	order := model.FulfillmentOrder{
		SalesOrderID:     "so-1",
		Channel:          "Partnerkunde (netto)",
		ShippingMethodID: shippingDBSchenker,
	}
	c := &Composer{
		Orders:               []model.FulfillmentOrder{order},
		IsBatch:              true,
		PartnerkundeChannels: map[string]struct{}{"Partnerkunde (netto)": {}},
	}
	note := c.CreateNote([]string{"so-1"}, Options{SingleOrder: &order})
	wantTokens := []string{baseNote, noteBatch, noteDBSchenker, notePartnerkunde}
	for _, tok := range wantTokens {
		if !strings.Contains(note, tok) {
			t.Errorf("CreateNote() = %q, want it to contain %q", note, tok)
		}
	}
}

func TestCreateNoteSweepingPrioAppendsCountLast(t *testing.T) {
	t.Parallel()
	c := &Composer{
		Now:            time.Date(2026, 7, 27, 10, 0, 0, 0, time.UTC),
		IsPrio:         true,
		IsSweepingTime: true,
	}
	note := c.CreateNote([]string{"so-1", "so-2", "so-3"}, Options{})
	if !strings.HasSuffix(note, " 3") {
		t.Errorf("CreateNote() = %q, want it to end with the order count", note)
	}
	if !strings.Contains(note, noteSweeper) {
		t.Errorf("CreateNote() = %q, want it to contain %q", note, noteSweeper)
	}
}

func TestCreateNoteBatchedQuantityAndShelf(t *testing.T) {
	t.Parallel()
	c := &Composer{}
	note := c.CreateNote([]string{"so-1"}, Options{
		BatchedQuantity: 12,
		BatchedProduct:  "SKU-99",
		Shelf:           "A1-12",
	})
	if !strings.Contains(note, "12 SKU-99") {
		t.Errorf("CreateNote() = %q, want batched quantity block", note)
	}
	if !strings.HasSuffix(note, "A1-12") {
		t.Errorf("CreateNote() = %q, want shelf block at the end", note)
	}
}

func TestPriorityNoteYesterdayVsFarPLZ(t *testing.T) {
	t.Parallel()
	workingDays := map[time.Weekday]struct{}{
		time.Monday:    {},
		time.Tuesday:   {},
		time.Wednesday: {},
		time.Thursday:  {},
		time.Friday:    {},
	}
	c := &Composer{Now: time.Date(2026, 7, 27, 10, 0, 0, 0, time.UTC), WorkingDays: workingDays} // Monday 10:00 -> within yesterday window
	if got := c.priorityNote(); got != noteYesterday {
		t.Errorf("priorityNote() = %q, want %q", got, noteYesterday)
	}
	c.Now = time.Date(2026, 7, 27, 15, 0, 0, 0, time.UTC) // Monday 15:00 -> outside window
	if got := c.priorityNote(); got != notePLZFarRange {
		t.Errorf("priorityNote() = %q, want %q", got, notePLZFarRange)
	}
}

func TestPriorityNoteNonWorkingDayIsYesterday(t *testing.T) {
	t.Parallel()
	workingDays := map[time.Weekday]struct{}{time.Monday: {}}
	c := &Composer{Now: time.Date(2026, 8, 1, 15, 0, 0, 0, time.UTC), WorkingDays: workingDays} // Saturday 15:00, not a working day
	if got := c.priorityNote(); got != noteYesterday {
		t.Errorf("priorityNote() = %q, want %q", got, noteYesterday)
	}
}
