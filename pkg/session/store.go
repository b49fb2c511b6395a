// Package session persists browser cookies between runs so the scraper can
// resume an authenticated LinkedIn session without logging in again.
package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"liscraper/pkg/logger"
)

// authCookieName is the cookie LinkedIn sets for an authenticated session.
const authCookieName = "li_at"

// Cookie is a browser cookie in a form that survives a JSON round trip.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires,omitempty"`
	HTTPOnly bool    `json:"httpOnly"`
	Secure   bool    `json:"secure"`
	SameSite string  `json:"sameSite,omitempty"`
}

// CookieSet is a saved browser session.
type CookieSet struct {
	Cookies []Cookie  `json:"cookies"`
	SavedAt time.Time `json:"saved_at"`
}

// HasAuthCookie reports whether the set contains an unexpired LinkedIn
// authentication cookie.
func (s *CookieSet) HasAuthCookie() bool {
	if s == nil {
		return false
	}
	now := float64(time.Now().Unix())
	for _, c := range s.Cookies {
		if c.Name != authCookieName {
			continue
		}
		if c.Expires > 0 && c.Expires < now {
			continue
		}
		return c.Value != ""
	}
	return false
}

// StorageError indicates an I/O failure separate from an absent session.
type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("session storage %s failed for %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// FileStore persists cookie sets to a single JSON file.
type FileStore struct {
	path   string
	logger logger.Logger
}

// NewFileStore creates a store backed by the given file path.
func NewFileStore(path string, log logger.Logger) *FileStore {
	if log == nil {
		log = logger.GetLogger()
	}
	return &FileStore{path: path, logger: log}
}

// Path returns the backing file path.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the saved session. A missing file means no session and returns
// (nil, nil). A corrupt file is treated the same way: the file is removed and
// a fresh login will replace it.
func (s *FileStore) Load() (*CookieSet, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &StorageError{Op: "read", Path: s.path, Err: err}
	}

	var set CookieSet
	if err := json.Unmarshal(data, &set); err != nil {
		s.logger.WarnWithFields("Cookie file is corrupt, discarding", map[string]interface{}{
			"path":  s.path,
			"error": err.Error(),
		})
		_ = os.Remove(s.path)
		return nil, nil
	}

	return &set, nil
}

// Save atomically writes the cookie set. The file is written to a temp path
// in the same directory and renamed into place so a crash mid-write never
// leaves a truncated session behind.
func (s *FileStore) Save(set *CookieSet) error {
	if set == nil {
		return &StorageError{Op: "write", Path: s.path, Err: fmt.Errorf("nil cookie set")}
	}
	set.SavedAt = time.Now()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return &StorageError{Op: "mkdir", Path: dir, Err: err}
	}

	tempFile, err := os.CreateTemp(dir, ".cookies-*.tmp")
	if err != nil {
		return &StorageError{Op: "create", Path: s.path, Err: err}
	}
	tempPath := tempFile.Name()

	// Clean up temp file on any error
	defer func() {
		if tempFile != nil {
			tempFile.Close()
			os.Remove(tempPath)
		}
	}()

	encoder := json.NewEncoder(tempFile)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(set); err != nil {
		return &StorageError{Op: "encode", Path: s.path, Err: err}
	}

	if err := tempFile.Sync(); err != nil {
		return &StorageError{Op: "sync", Path: s.path, Err: err}
	}

	if err := tempFile.Close(); err != nil {
		return &StorageError{Op: "close", Path: s.path, Err: err}
	}
	tempFile = nil

	if err := os.Chmod(tempPath, 0600); err != nil {
		os.Remove(tempPath)
		return &StorageError{Op: "chmod", Path: s.path, Err: err}
	}

	if err := os.Rename(tempPath, s.path); err != nil {
		os.Remove(tempPath)
		return &StorageError{Op: "rename", Path: s.path, Err: err}
	}

	s.logger.DebugWithFields("Session cookies saved", map[string]interface{}{
		"path":    s.path,
		"cookies": len(set.Cookies),
	})

	return nil
}

// Clear removes the saved session. Clearing an absent session is not an error.
func (s *FileStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return &StorageError{Op: "remove", Path: s.path, Err: err}
	}
	return nil
}
