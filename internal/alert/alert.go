// Package alert sends operator-facing notifications to a Microsoft Teams
// incoming webhook when a run hits a condition that needs a human, such as
// a product with no pallet-capacity information anywhere.
package alert

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-resty/resty/v2"
)

// card is a Teams "MessageCard" payload, the connector's legacy but still
// broadly supported incoming-webhook format.
type card struct {
	Type       string `json:"@type"`
	Context    string `json:"@context"`
	Summary    string `json:"summary"`
	ThemeColor string `json:"themeColor"`
	Title      string `json:"title"`
	Text       string `json:"text"`
}

const themeColorWarning = "FFA500"

// Notifier posts alert cards to a Teams incoming webhook. A zero-value
// webhook URL makes every Send a no-op logged at warn level, so a run
// without alerting configured never fails because of it.
type Notifier struct {
	http       *resty.Client
	webhookURL string
	logger     *slog.Logger
}

// NewNotifier builds a Notifier posting to webhookURL.
func NewNotifier(webhookURL string, logger *slog.Logger) *Notifier {
	return &Notifier{
		http:       resty.New(),
		webhookURL: webhookURL,
		logger:     logger,
	}
}

// Send posts a single alert card with title and text.
func (n *Notifier) Send(ctx context.Context, title, text string) error {
	if n.webhookURL == "" {
		n.logger.Warn("alert webhook not configured, dropping alert", "title", title)
		return nil
	}

	resp, err := n.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(card{
			Type:       "MessageCard",
			Context:    "http://schema.org/extensions",
			Summary:    title,
			ThemeColor: themeColorWarning,
			Title:      title,
			Text:       text,
		}).
		Post(n.webhookURL)
	if err != nil {
		return fmt.Errorf("alert: post to webhook: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("alert: webhook returned status %d", resp.StatusCode())
	}
	return nil
}

// MissingPalletInfo alerts that a product has no pallet-capacity
// information in either the WMS or the article-master service, so the
// batch planner is falling back to treating it as unbounded.
func (n *Notifier) MissingPalletInfo(ctx context.Context, productName, sku string) error {
	return n.Send(ctx,
		"Missing pallet capacity",
		fmt.Sprintf("Product %q (SKU %s) has no units-per-pallet information in the WMS or the article service. Batches for it will not be capacity-split.", productName, sku),
	)
}
