package status

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// StateDocument is the on-disk shape of the file-backed state store.
// It bundles the current status, the timestamp markers and the recent
// run history in a single JSON document.
type StateDocument struct {
	Status  *SyncStatus          `json:"status,omitempty"`
	Markers map[string]time.Time `json:"markers,omitempty"`
	Runs    []RunRecord          `json:"runs,omitempty"`
}

// StatePersistence defines the interface for sync state persistence
type StatePersistence interface {
	// SaveState saves the full sync state document to persistent storage
	SaveState(ctx context.Context, doc *StateDocument) error

	// LoadState loads the sync state document from persistent storage.
	// Returns an empty document if none exists yet (first run).
	LoadState(ctx context.Context) (*StateDocument, error)
}

// fileStatePersistence implements StatePersistence using the local filesystem
type fileStatePersistence struct {
	filePath string
}

// NewFileStatePersistence creates a new file-based state persistence
// writing to the given file path
func NewFileStatePersistence(filePath string) StatePersistence {
	return &fileStatePersistence{
		filePath: filePath,
	}
}

// SaveState saves the state document to a JSON file
func (f *fileStatePersistence) SaveState(_ context.Context, doc *StateDocument) error {
	if err := os.MkdirAll(filepath.Dir(f.filePath), 0750); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	// Marshal with pretty printing for readability
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state data: %w", err)
	}

	// Write to temporary file first for atomic operation
	tempPath := f.filePath + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temporary state file: %w", err)
	}

	// Atomic rename
	if err := os.Rename(tempPath, f.filePath); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to rename state file: %w", err)
	}

	return nil
}

// LoadState loads the state document from a JSON file.
// Returns an empty document if the file doesn't exist.
func (f *fileStatePersistence) LoadState(_ context.Context) (*StateDocument, error) {
	// #nosec G304 -- filePath comes from validated configuration
	data, err := os.ReadFile(f.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			// File doesn't exist - this is OK for first run
			return &StateDocument{Markers: make(map[string]time.Time)}, nil
		}
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	var doc StateDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state data: %w", err)
	}
	if doc.Markers == nil {
		doc.Markers = make(map[string]time.Time)
	}

	return &doc, nil
}
