// Package roster persists the picker roster — which WMS users get
// single-picks routed to them for Partnerkunde and Palette orders — in
// Azure Blob Storage, and periodically refreshes it from a Google Sheet
// that HR/ops maintain by hand.
package roster

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"

	"github.com/altruan-tools/pulpopicker/pkg/model"
)

// BlobConfig points at the blob that holds the current roster JSON.
type BlobConfig struct {
	ConnectionString string
	Container        string
	Blob             string
}

// Store reads and writes the roster blob. A Store created with no
// connection string degrades to a no-op — Load returns an empty roster
// and Save is a no-op — rather than aborting a run, matching the
// original's "fall back to the last-known PICKERS dict" behavior when
// the blob connection cannot be established.
type Store struct {
	client    *azblob.Client
	container string
	blob      string
	logger    *slog.Logger
}

// NewStore creates a Store. If cfg.ConnectionString is empty the
// returned Store has no client and every call degrades gracefully.
func NewStore(cfg BlobConfig, logger *slog.Logger) (*Store, error) {
	if cfg.ConnectionString == "" {
		logger.Warn("roster blob connection string not set, roster persistence disabled")
		return &Store{logger: logger}, nil
	}
	client, err := azblob.NewClientFromConnectionString(cfg.ConnectionString, nil)
	if err != nil {
		return nil, fmt.Errorf("connect to blob storage: %w", err)
	}
	return &Store{client: client, container: cfg.Container, blob: cfg.Blob, logger: logger}, nil
}

// Load downloads and decodes the roster blob. Returns an empty roster,
// not an error, when the Store has no client or the blob doesn't exist
// yet — a fresh deployment with no roster blob should still be able to
// run, just with no eager single-pick assignment.
func (s *Store) Load(ctx context.Context) (model.PickerRoster, error) {
	if s.client == nil {
		return model.PickerRoster{}, nil
	}
	resp, err := s.client.DownloadStream(ctx, s.container, s.blob, nil)
	if err != nil {
		s.logger.Error("failed to download roster blob, continuing with an empty roster", "error", err)
		return model.PickerRoster{}, nil
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return model.PickerRoster{}, fmt.Errorf("read roster blob: %w", err)
	}
	var roster model.PickerRoster
	if err := json.Unmarshal(data, &roster); err != nil {
		return model.PickerRoster{}, fmt.Errorf("decode roster blob: %w", err)
	}
	return roster, nil
}

// Save uploads roster as the new blob content, overwriting whatever was
// there before.
func (s *Store) Save(ctx context.Context, roster model.PickerRoster) error {
	if s.client == nil {
		return nil
	}
	data, err := json.Marshal(roster)
	if err != nil {
		return fmt.Errorf("encode roster: %w", err)
	}
	if _, err := s.client.UploadBuffer(ctx, s.container, s.blob, data, nil); err != nil {
		return fmt.Errorf("upload roster blob: %w", err)
	}
	return nil
}

// ShouldRefresh reports whether now falls in one of the configured
// refresh hours.
func ShouldRefresh(hour int, updateHours []int) bool {
	for _, h := range updateHours {
		if h == hour {
			return true
		}
	}
	return false
}
