package memory

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

// loadRecords reads a store's durable map from disk. A missing or corrupt
// file yields an empty map so the store stays usable; corruption is warned
// about, not fatal.
func loadRecords(path string) map[string]Entry {
	raw, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("memory: unreadable store file, starting empty", "path", path, "error", err)
		}
		return map[string]Entry{}
	}

	records := map[string]Entry{}
	if err := json.Unmarshal(raw, &records); err != nil {
		slog.Warn("memory: corrupt store file, starting empty", "path", path, "error", err)
		return map[string]Entry{}
	}
	for id, e := range records {
		e.ID = id
		if e.Domain == "" {
			e.Domain = DefaultDomain
		}
		records[id] = e
	}
	return records
}

// saveRecords writes the durable map atomically: temp file then rename, so a
// crash mid-write never leaves a truncated store file behind.
func saveRecords(path string, records map[string]Entry) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode store file: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write store file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace store file: %w", err)
	}
	return nil
}

// exportFile is the portable dump written by Export on shared and private
// stores.
type exportFile struct {
	AgentID         string           `json:"agent_id,omitempty"`
	MemoryData      map[string]Entry `json:"memory_data"`
	AccessStats     AccessStats      `json:"access_stats"`
	Summary         Summary          `json:"summary"`
	ExportTimestamp string           `json:"export_timestamp"`
}

func marshalIndent(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	return data, nil
}

func writeExport(path string, export exportFile) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}
	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("encode export: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	return nil
}
