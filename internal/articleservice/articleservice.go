// Package articleservice is a thin client for the secondary article-master
// service (WeClapp in the original system) consulted when the WMS has no
// units-per-pallet figure on file for a product.
package articleservice

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"
)

// PackagingLevel is the granularity at which an article's packaging
// metadata is expressed.
type PackagingLevel string

const (
	LevelNone    PackagingLevel = "KEINE"
	LevelArticle PackagingLevel = "ARTIKEL"
	LevelPackage PackagingLevel = "PACKUNG"
	LevelCarton  PackagingLevel = "KARTON"
)

// Article is the packaging metadata for one article-master record.
type Article struct {
	ID                string         `json:"id"`
	SKU               string         `json:"sku"`
	Name              string         `json:"name"`
	Level             PackagingLevel `json:"packagingLevel"`
	UnitsPerPackage   float64        `json:"unitsPerPackage"`
	UnitsPerCarton    float64        `json:"unitsPerCarton"`
	UnitsPerShipment  float64        `json:"unitsPerShipment"`
}

// UnitsPerPallet computes how many sales units fit on one pallet from the
// article's packaging hierarchy, matching the original's per-level
// multiplication (article: package x carton x shipment; package: carton x
// shipment; carton: shipment alone). Returns 0 when the level or any
// required figure is missing, signalling "unknown" to the caller.
func (a Article) UnitsPerPallet() int {
	switch a.Level {
	case LevelArticle:
		if a.UnitsPerPackage <= 0 || a.UnitsPerCarton <= 0 || a.UnitsPerShipment <= 0 {
			return 0
		}
		return int(a.UnitsPerPackage * a.UnitsPerCarton * a.UnitsPerShipment)
	case LevelPackage:
		if a.UnitsPerCarton <= 0 || a.UnitsPerShipment <= 0 {
			return 0
		}
		return int(a.UnitsPerCarton * a.UnitsPerShipment)
	case LevelCarton:
		if a.UnitsPerShipment <= 0 {
			return 0
		}
		return int(a.UnitsPerShipment)
	default:
		return 0
	}
}

// Config is the subset of internal/config.ArticleServiceConfig the client
// needs.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client queries the article-master service by article ID or SKU.
type Client struct {
	http   *resty.Client
	logger *slog.Logger
}

// NewClient builds an article-master client against cfg.BaseURL.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	return &Client{
		http: resty.New().
			SetBaseURL(cfg.BaseURL).
			SetTimeout(cfg.Timeout),
		logger: logger,
	}
}

// FetchByID looks up an article by its cross-referenced ID, used when the
// WMS product carries a weclapp_article_id attribute.
func (c *Client) FetchByID(ctx context.Context, articleID string) (*Article, error) {
	var article Article
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&article).
		Get(fmt.Sprintf("article/%s", articleID))
	if err != nil {
		return nil, fmt.Errorf("articleservice: fetch by id %s: %w", articleID, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("articleservice: fetch by id %s: status %d", articleID, resp.StatusCode())
	}
	return &article, nil
}

// FetchBySKU looks up the active, storable article matching sku, used when
// the product has no weclapp_article_id cross-reference on file.
func (c *Client) FetchBySKU(ctx context.Context, sku string) (*Article, error) {
	var articles []Article
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"sku":         sku,
			"active":      "true",
			"articleType": "STORABLE",
		}).
		SetResult(&articles).
		Get("article")
	if err != nil {
		return nil, fmt.Errorf("articleservice: fetch by sku %s: %w", sku, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("articleservice: fetch by sku %s: status %d", sku, resp.StatusCode())
	}
	if len(articles) == 0 {
		return nil, fmt.Errorf("articleservice: no article found for sku %s", sku)
	}
	return &articles[0], nil
}
