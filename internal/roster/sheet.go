package roster

import (
	"context"
	"fmt"
	"log/slog"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/altruan-tools/pulpopicker/internal/wmsclient"
	"github.com/altruan-tools/pulpopicker/pkg/model"
)

// SheetConfig points at the spreadsheet and named ranges that hold each
// roster category's usernames, one range per model.PickerRoster field.
type SheetConfig struct {
	SpreadsheetID string
	Ranges        map[string]string // "Palettenversand" / "Partnerkunden" -> A1 range
}

const (
	rosterKeyPalettenversand = "Palettenversand"
	rosterKeyPartnerkunden   = "Partnerkunden"
)

// Refresher rebuilds the roster from the spreadsheet, resolving each
// listed username to a WMS user ID so the rest of the module only ever
// deals in IDs.
type Refresher struct {
	sheets *sheets.Service
	wms    *wmsclient.Client
	cfg    SheetConfig
	logger *slog.Logger
}

// NewRefresher creates a Refresher backed by the Google Sheets API using
// application-default credentials, matching the original's
// ServiceAccount-scoped discovery client.
func NewRefresher(ctx context.Context, cfg SheetConfig, wms *wmsclient.Client, logger *slog.Logger) (*Refresher, error) {
	svc, err := sheets.NewService(ctx, option.WithScopes(sheets.SpreadsheetsReadonlyScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &Refresher{sheets: svc, wms: wms, cfg: cfg, logger: logger}, nil
}

// Refresh reads every configured range and resolves each username cell
// to a WMS user ID, skipping rows it cannot resolve rather than failing
// the whole refresh.
func (r *Refresher) Refresh(ctx context.Context) (model.PickerRoster, error) {
	var roster model.PickerRoster

	palette, err := r.readColumn(ctx, rosterKeyPalettenversand)
	if err != nil {
		return model.PickerRoster{}, err
	}
	roster.Palettenversand = palette

	partner, err := r.readColumn(ctx, rosterKeyPartnerkunden)
	if err != nil {
		return model.PickerRoster{}, err
	}
	roster.Partnerkunden = partner

	return roster, nil
}

func (r *Refresher) readColumn(ctx context.Context, key string) ([]string, error) {
	rangeA1, ok := r.cfg.Ranges[key]
	if !ok {
		return nil, nil
	}
	resp, err := r.sheets.Spreadsheets.Values.Get(r.cfg.SpreadsheetID, rangeA1).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read sheet range %s for %s: %w", rangeA1, key, err)
	}

	var ids []string
	for _, row := range resp.Values {
		if len(row) == 0 {
			continue
		}
		username, ok := row[0].(string)
		if !ok || username == "" {
			continue
		}
		userID, err := r.lookupUserID(ctx, username)
		if err != nil {
			r.logger.Error("failed to resolve picker username to WMS user", "username", username, "error", err)
			continue
		}
		if userID != "" {
			ids = append(ids, userID)
		}
	}
	return ids, nil
}

// lookupUserID resolves a roster sheet's username cell to the WMS user
// ID the rest of the module assigns picks by.
func (r *Refresher) lookupUserID(ctx context.Context, username string) (string, error) {
	var users []model.User
	if err := r.wms.Get(ctx, "iam/users", map[string]string{"username": username}, &users); err != nil {
		return "", err
	}
	if len(users) == 0 {
		return "", nil
	}
	return users[0].ID, nil
}
