// Package storage persists scraped profiles as JSON documents, one file per
// profile, and tracks which profiles have already been saved so batch runs
// can skip duplicates.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"liscraper/pkg/linkedin"
	"liscraper/pkg/logger"
)

// Manager handles profile persistence and duplicate detection
type Manager struct {
	outputDir string
	overwrite bool
	saved     map[string]bool
	fallbacks map[string]bool
	mu        sync.RWMutex
	logger    logger.Logger
}

// NewManager creates a storage manager rooted at outputDir. Existing profile
// files are indexed so repeat runs skip what is already on disk.
func NewManager(outputDir string, overwrite bool, log logger.Logger) (*Manager, error) {
	if log == nil {
		log = logger.GetLogger()
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	m := &Manager{
		outputDir: outputDir,
		overwrite: overwrite,
		saved:     make(map[string]bool),
		fallbacks: make(map[string]bool),
		logger:    log,
	}

	if err := m.scanExistingFiles(); err != nil {
		return nil, fmt.Errorf("failed to scan existing files: %w", err)
	}

	return m, nil
}

// scanExistingFiles indexes profiles already present in the output directory.
// Fallback records are tracked separately so a later successful scrape can
// replace them.
func (m *Manager) scanExistingFiles() error {
	entries, err := os.ReadDir(m.outputDir)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), ".json")
		m.saved[id] = true
		if m.isFallbackFile(entry.Name()) {
			m.fallbacks[id] = true
		}
	}

	m.logger.DebugWithFields("Indexed existing profiles", map[string]interface{}{
		"dir":   m.outputDir,
		"count": len(m.saved),
	})
	return nil
}

// IsSaved reports whether a profile is already on disk.
func (m *Manager) IsSaved(profileID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saved[profileID]
}

// SaveProfile writes the profile atomically. Already-saved profiles are
// skipped unless overwrite is enabled. Fallback records are written too; a
// failed scrape still leaves a trace of the attempted profile, and a real
// profile always replaces a stored fallback so retries can land.
func (m *Manager) SaveProfile(profile *linkedin.Profile) (string, error) {
	if profile == nil {
		return "", fmt.Errorf("nil profile")
	}

	id := profile.ProfileID
	if id == "" {
		id = "unknown"
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	path := filepath.Join(m.outputDir, id+".json")
	upgrade := m.fallbacks[id] && profile.Source != linkedin.SourceFallback
	if m.saved[id] && !m.overwrite && !upgrade {
		m.logger.DebugWithFields("Profile already saved, skipping", map[string]interface{}{
			"profile_id": id,
		})
		return path, nil
	}

	data, err := json.MarshalIndent(profile, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal profile: %w", err)
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write profile: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return "", fmt.Errorf("failed to finalize profile file: %w", err)
	}

	m.saved[id] = true
	if profile.Source == linkedin.SourceFallback {
		m.fallbacks[id] = true
	} else {
		delete(m.fallbacks, id)
	}
	return path, nil
}

// isFallbackFile reads just enough of a stored record to see whether it came
// from a failed scrape. Unreadable files count as real profiles.
func (m *Manager) isFallbackFile(name string) bool {
	data, err := os.ReadFile(filepath.Join(m.outputDir, name))
	if err != nil {
		return false
	}
	var record struct {
		Source linkedin.ProfileSource `json:"source"`
	}
	if err := json.Unmarshal(data, &record); err != nil {
		return false
	}
	return record.Source == linkedin.SourceFallback
}

// Count returns the number of saved profiles.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.saved)
}

// OutputDir returns the directory profiles are written to.
func (m *Manager) OutputDir() string {
	return m.outputDir
}
