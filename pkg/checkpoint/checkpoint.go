// Package checkpoint persists batch-run progress so an interrupted run can
// resume without re-scraping profiles it already finished.
package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Checkpoint records the progress of one batch run
type Checkpoint struct {
	RunID     string          `json:"run_id"`
	Inputs    []string        `json:"inputs"`
	Completed map[string]bool `json:"completed"`
	Failed    map[string]bool `json:"failed"`
	StartedAt time.Time       `json:"started_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// New creates a checkpoint for a fresh batch run
func New(inputs []string) *Checkpoint {
	return &Checkpoint{
		RunID:     uuid.NewString(),
		Inputs:    inputs,
		Completed: make(map[string]bool),
		Failed:    make(map[string]bool),
		StartedAt: time.Now().UTC(),
	}
}

// MarkCompleted records a successfully scraped input
func (c *Checkpoint) MarkCompleted(input string) {
	c.Completed[input] = true
	delete(c.Failed, input)
	c.UpdatedAt = time.Now().UTC()
}

// MarkFailed records an input that produced only a fallback record
func (c *Checkpoint) MarkFailed(input string) {
	c.Failed[input] = true
	c.UpdatedAt = time.Now().UTC()
}

// Remaining returns the inputs not yet completed, in original order.
// Failed inputs are included so a resumed run retries them.
func (c *Checkpoint) Remaining() []string {
	var remaining []string
	for _, input := range c.Inputs {
		if !c.Completed[input] {
			remaining = append(remaining, input)
		}
	}
	return remaining
}

// Done reports whether every input has completed
func (c *Checkpoint) Done() bool {
	return len(c.Remaining()) == 0
}

// Manager handles checkpoint persistence
type Manager struct {
	path string
}

// NewManager creates a checkpoint manager for the given file path.
// An empty path uses the default location under the user data directory.
func NewManager(path string) (*Manager, error) {
	if path == "" {
		dir, err := getDataDirectory()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(dir, "batch-checkpoint.json")
	}
	return &Manager{path: path}, nil
}

// Save atomically persists the checkpoint
func (m *Manager) Save(c *Checkpoint) error {
	if c == nil {
		return fmt.Errorf("nil checkpoint")
	}
	c.UpdatedAt = time.Now().UTC()

	dir := filepath.Dir(m.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create checkpoint directory: %w", err)
	}

	tempFile, err := os.CreateTemp(dir, ".checkpoint-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tempPath := tempFile.Name()

	defer func() {
		if tempFile != nil {
			tempFile.Close()
			os.Remove(tempPath)
		}
	}()

	encoder := json.NewEncoder(tempFile)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(c); err != nil {
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}

	if err := tempFile.Sync(); err != nil {
		return fmt.Errorf("failed to sync checkpoint: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("failed to close checkpoint: %w", err)
	}
	tempFile = nil

	if err := os.Rename(tempPath, m.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to finalize checkpoint: %w", err)
	}

	return nil
}

// Load reads the saved checkpoint. A missing file returns (nil, nil).
func (m *Manager) Load() (*Checkpoint, error) {
	data, err := os.ReadFile(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read checkpoint: %w", err)
	}

	var c Checkpoint
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse checkpoint: %w", err)
	}
	if c.Completed == nil {
		c.Completed = make(map[string]bool)
	}
	if c.Failed == nil {
		c.Failed = make(map[string]bool)
	}

	return &c, nil
}

// Delete removes the checkpoint file. Missing file is not an error.
func (m *Manager) Delete() error {
	if err := os.Remove(m.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}
	return nil
}

// Path returns the checkpoint file path
func (m *Manager) Path() string {
	return m.path
}

// getDataDirectory returns the per-OS directory for application data
func getDataDirectory() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	var dataDir string
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		dataDir = filepath.Join(xdgData, "liscraper")
	} else {
		dataDir = filepath.Join(home, ".local", "share", "liscraper")
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}

	return dataDir, nil
}
