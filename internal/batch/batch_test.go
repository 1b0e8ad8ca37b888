package batch

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/altruan-tools/pulpopicker/internal/alert"
	"github.com/altruan-tools/pulpopicker/internal/articleservice"
	"github.com/altruan-tools/pulpopicker/internal/wmsclient"
	"github.com/altruan-tools/pulpopicker/pkg/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestWMSClient(t *testing.T, handler http.HandlerFunc) *wmsclient.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return wmsclient.NewClient(wmsclient.Config{
		BaseURL:    srv.URL,
		Login:      "tester",
		Password:   "secret",
		Timeout:    2 * time.Second,
		MaxCalls:   1000,
		TimeWindow: time.Second,
		Retries:    1,
	}, testLogger())
}

func singleItemOrder(salesOrderID, productID string, quantity float64) model.FulfillmentOrder {
	return model.FulfillmentOrder{
		ID:           salesOrderID,
		SalesOrderID: salesOrderID,
		State:        "queue",
		Items: []model.Item{
			{ProductID: productID, Quantity: quantity, Product: model.Product{ID: productID, SKU: "sku-" + productID, Name: "Product " + productID}},
		},
	}
}

func TestRegularBatchingCreatesOnePickingOrder(t *testing.T) {
	t.Parallel()

	var created []model.PickingOrder
	client := newTestWMSClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodGet && strings.Contains(r.URL.Path, "inventory/products/"):
			units := 100
			_, _ = w.Write(mustJSON(model.Product{ID: "p1", Name: "Widget", UnitsPerPallet: &units}))
		case r.Method == http.MethodPost && strings.Contains(r.URL.Path, "picking/orders"):
			body, _ := io.ReadAll(r.Body)
			var po model.PickingOrder
			_ = json.Unmarshal(body, &po)
			created = append(created, po)
			_, _ = w.Write([]byte(`{"created": true}`))
		default:
			t.Fatalf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
	})

	orders := []model.FulfillmentOrder{
		singleItemOrder("so-1", "p1", 3),
		singleItemOrder("so-2", "p1", 2),
		singleItemOrder("so-3", "p1", 1),
	}
	stock := model.ProductAvailability{"p1": 20}
	processed := model.ProcessedSet{}

	planner := New(client, articleservice.NewClient(articleservice.Config{}, testLogger()), alert.NewNotifier("", testLogger()), testLogger(), Config{MinBatchSize: 3, MaxBatchSize: 50}, model.SkusToBatchRules{}, time.Now(), processed)

	if err := planner.Run(context.Background(), orders, false, stock); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(created) != 1 {
		t.Fatalf("expected 1 picking order, got %d: %+v", len(created), created)
	}
	if len(created[0].FulfillmentOrderIDs) != 3 {
		t.Errorf("expected all 3 orders batched, got %+v", created[0].FulfillmentOrderIDs)
	}
	if stock["p1"] != 14 {
		t.Errorf("expected stock decremented by 6, got %v", stock["p1"])
	}
	for _, id := range []string{"so-1", "so-2", "so-3"} {
		if !processed.Contains(id) {
			t.Errorf("expected %s to be marked processed", id)
		}
	}
}

func TestBatchingSkipsProductBelowThreshold(t *testing.T) {
	t.Parallel()

	called := false
	client := newTestWMSClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"created": true}`))
	})

	orders := []model.FulfillmentOrder{singleItemOrder("so-1", "p1", 1)}
	stock := model.ProductAvailability{"p1": 10}
	processed := model.ProcessedSet{}

	planner := New(client, articleservice.NewClient(articleservice.Config{}, testLogger()), alert.NewNotifier("", testLogger()), testLogger(), Config{MinBatchSize: 5, MaxBatchSize: 50}, model.SkusToBatchRules{}, time.Now(), processed)

	if err := planner.Run(context.Background(), orders, false, stock); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if called {
		t.Error("expected no WMS calls when a product has fewer orders than MinBatchSize")
	}
	if processed.Contains("so-1") {
		t.Error("so-1 should not be processed — it never met the batch threshold")
	}
}

func TestSpecialPaletteBatchingSplitsOutLargeOrder(t *testing.T) {
	t.Parallel()

	var created []model.PickingOrder
	client := newTestWMSClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodGet && strings.Contains(r.URL.Path, "inventory/products/"):
			units := 100
			_, _ = w.Write(mustJSON(model.Product{ID: "p1", Name: "Palette Widget", UnitsPerPallet: &units}))
		case r.Method == http.MethodPost && strings.Contains(r.URL.Path, "picking/orders"):
			body, _ := io.ReadAll(r.Body)
			var po model.PickingOrder
			_ = json.Unmarshal(body, &po)
			created = append(created, po)
			_, _ = w.Write([]byte(`{"created": true}`))
		default:
			t.Fatalf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
	})

	orders := []model.FulfillmentOrder{
		singleItemOrder("so-big", "p1", 50),
		singleItemOrder("so-1", "p1", 2),
		singleItemOrder("so-2", "p1", 2),
		singleItemOrder("so-3", "p1", 2),
	}
	stock := model.ProductAvailability{"p1": 100}
	processed := model.ProcessedSet{}
	rules := model.SkusToBatchRules{"sku-p1": model.SkuBatchRule{ProductID: "p1", SeparateBatchFrom: 20}}

	planner := New(client, articleservice.NewClient(articleservice.Config{}, testLogger()), alert.NewNotifier("", testLogger()), testLogger(), Config{MinBatchSize: 3, MaxBatchSize: 50}, rules, time.Now(), processed)

	if err := planner.Run(context.Background(), orders, false, stock); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(created) != 2 {
		t.Fatalf("expected a palette pick plus a regular batch, got %d: %+v", len(created), created)
	}
	if len(created[0].FulfillmentOrderIDs) != 1 || created[0].FulfillmentOrderIDs[0] != "so-big" {
		t.Errorf("expected first picking order to be the dedicated palette pick for so-big, got %+v", created[0])
	}
	if len(created[1].FulfillmentOrderIDs) != 3 {
		t.Errorf("expected the remaining 3 orders regular-batched, got %+v", created[1].FulfillmentOrderIDs)
	}
}

func TestMissingPalletInfoFallsBackToUnboundedCapacity(t *testing.T) {
	t.Parallel()

	var alerted bool
	alertSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		alerted = true
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(alertSrv.Close)

	client := newTestWMSClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodGet && strings.Contains(r.URL.Path, "inventory/products/"):
			_, _ = w.Write(mustJSON(model.Product{ID: "p1", SKU: "sku-p1", Name: "Mystery Widget"}))
		case r.Method == http.MethodPost && strings.Contains(r.URL.Path, "picking/orders"):
			_, _ = w.Write([]byte(`{"created": true}`))
		default:
			t.Fatalf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
	})

	articleSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(articleSrv.Close)
	articles := articleservice.NewClient(articleservice.Config{BaseURL: articleSrv.URL, Timeout: 2 * time.Second}, testLogger())

	orders := []model.FulfillmentOrder{
		singleItemOrder("so-1", "p1", 1),
		singleItemOrder("so-2", "p1", 1),
		singleItemOrder("so-3", "p1", 1),
	}
	stock := model.ProductAvailability{"p1": 10}
	processed := model.ProcessedSet{}

	planner := New(client, articles, alert.NewNotifier(alertSrv.URL, testLogger()), testLogger(), Config{MinBatchSize: 3, MaxBatchSize: 50}, model.SkusToBatchRules{}, time.Now(), processed)

	if err := planner.Run(context.Background(), orders, false, stock); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !alerted {
		t.Error("expected a Teams alert for a product with no pallet information anywhere")
	}
	if !processed.Contains("so-1") {
		t.Error("expected the batch to still be created despite missing pallet info")
	}
}

func mustJSON(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}
