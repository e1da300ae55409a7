package realtime

import (
	"fmt"
	"os"

	"github.com/vmihailenco/msgpack/v5"
)

// SaveSnapshot persists the price book to disk so a restarted server shows
// last-known prices instead of blank dashboards until the feed catches up.
// Written atomically via a temp file rename.
func SaveSnapshot(book *PriceBook, path string) error {
	data, err := msgpack.Marshal(book.Snapshot())
	if err != nil {
		return fmt.Errorf("failed to encode price book: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to move snapshot into place: %w", err)
	}
	return nil
}

// LoadSnapshot restores a persisted price book. A missing file is not an
// error; it just means a cold start.
func LoadSnapshot(book *PriceBook, path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read snapshot: %w", err)
	}

	var prices map[string]PricePoint
	if err := msgpack.Unmarshal(data, &prices); err != nil {
		return fmt.Errorf("failed to decode snapshot: %w", err)
	}
	book.Restore(prices)
	return nil
}
