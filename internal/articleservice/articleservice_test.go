package articleservice

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestUnitsPerPalletByLevel(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		a    Article
		want int
	}{
		{"article level multiplies all three", Article{Level: LevelArticle, UnitsPerPackage: 2, UnitsPerCarton: 6, UnitsPerShipment: 4}, 48},
		{"package level skips package factor", Article{Level: LevelPackage, UnitsPerCarton: 6, UnitsPerShipment: 4}, 24},
		{"carton level is shipment alone", Article{Level: LevelCarton, UnitsPerShipment: 4}, 4},
		{"none level is always unknown", Article{Level: LevelNone, UnitsPerShipment: 4}, 0},
		{"missing a required figure is unknown", Article{Level: LevelArticle, UnitsPerPackage: 2, UnitsPerCarton: 0, UnitsPerShipment: 4}, 0},
	}
	for _, tc := range cases {
		if got := tc.a.UnitsPerPallet(); got != tc.want {
			t.Errorf("%s: UnitsPerPallet() = %d, want %d", tc.name, got, tc.want)
		}
	}
}

func TestFetchByIDReturnsArticle(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/article/abc" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"abc","sku":"sku-1","packagingLevel":"KARTON","unitsPerShipment":10}`))
	}))
	t.Cleanup(srv.Close)

	c := NewClient(Config{BaseURL: srv.URL, Timeout: 2 * time.Second}, testLogger())
	article, err := c.FetchByID(context.Background(), "abc")
	if err != nil {
		t.Fatalf("FetchByID: %v", err)
	}
	if article.UnitsPerPallet() != 10 {
		t.Errorf("expected 10 units per pallet, got %d", article.UnitsPerPallet())
	}
}

func TestFetchBySKUReturnsFirstMatch(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("sku"); got != "sku-1" {
			t.Fatalf("expected sku query param sku-1, got %s", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":"a1","sku":"sku-1","packagingLevel":"KARTON","unitsPerShipment":5}]`))
	}))
	t.Cleanup(srv.Close)

	c := NewClient(Config{BaseURL: srv.URL, Timeout: 2 * time.Second}, testLogger())
	article, err := c.FetchBySKU(context.Background(), "sku-1")
	if err != nil {
		t.Fatalf("FetchBySKU: %v", err)
	}
	if article.ID != "a1" {
		t.Errorf("expected article a1, got %s", article.ID)
	}
}

func TestFetchBySKUErrorsWhenNoMatch(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	}))
	t.Cleanup(srv.Close)

	c := NewClient(Config{BaseURL: srv.URL, Timeout: 2 * time.Second}, testLogger())
	if _, err := c.FetchBySKU(context.Background(), "missing-sku"); err == nil {
		t.Error("expected an error when no article matches the sku")
	}
}
