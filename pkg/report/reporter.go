// Package report records scraper failures to a rotating JSONL log and keeps
// per-category counters for post-run analysis. Reporting is fail-open: a
// broken log file never interrupts a scrape.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "liscraper/pkg/errors"
	"liscraper/pkg/logger"
)

const logFileName = "errors.log"

// Entry is a single reported error, written as one JSON line.
type Entry struct {
	ID        string                 `json:"id"`
	Timestamp time.Time              `json:"timestamp"`
	Category  apperrors.ErrorType    `json:"category"`
	Message   string                 `json:"message"`
	Operation string                 `json:"operation"`
	Caller    string                 `json:"caller,omitempty"`
	Context   map[string]interface{} `json:"context,omitempty"`
}

// Stats summarizes everything reported since the reporter was created.
type Stats struct {
	TotalErrors  int                         `json:"total_errors"`
	ErrorsByType map[apperrors.ErrorType]int `json:"errors_by_type"`
}

// Analysis is a human-oriented digest of the collected stats.
type Analysis struct {
	Stats             Stats               `json:"stats"`
	MostCommonError   apperrors.ErrorType `json:"most_common_error,omitempty"`
	RecommendedAction string              `json:"recommended_action,omitempty"`
}

// Reporter appends entries to a size-capped, generation-rotated log file.
type Reporter struct {
	mu             sync.Mutex
	dir            string
	maxSizeBytes   int64
	maxGenerations int
	file           *os.File
	size           int64
	total          int
	byType         map[apperrors.ErrorType]int
	logger         logger.Logger
}

// Config controls log location and rotation.
type Config struct {
	Dir            string
	MaxSizeBytes   int64
	MaxGenerations int
}

// New creates a reporter writing to <dir>/errors.log. The directory is
// created if needed. Opening the log lazily is deliberate: construction
// never fails, so the scraper can always start.
func New(cfg Config, log logger.Logger) *Reporter {
	if log == nil {
		log = logger.GetLogger()
	}
	if cfg.MaxSizeBytes <= 0 {
		cfg.MaxSizeBytes = 5 * 1024 * 1024
	}
	if cfg.MaxGenerations <= 0 {
		cfg.MaxGenerations = 5
	}
	return &Reporter{
		dir:            cfg.Dir,
		maxSizeBytes:   cfg.MaxSizeBytes,
		maxGenerations: cfg.MaxGenerations,
		byType:         make(map[apperrors.ErrorType]int),
		logger:         log,
	}
}

// LogError records an error under the given operation. It classifies the
// error, bumps the category counter, and appends a JSONL entry. It never
// fails: when the log cannot be written the entry is mirrored to the
// application logger instead. The return value reports whether the entry
// made it into the log file.
func (r *Reporter) LogError(operation string, err error, context map[string]interface{}) bool {
	return r.record(operation, err, context, 2)
}

// LogChallenge records a detected challenge as an entry in its category.
func (r *Reporter) LogChallenge(operation string, ch *apperrors.Challenge) bool {
	if ch == nil {
		return false
	}
	return r.record(operation, apperrors.New(ch.Category, ch.Evidence), map[string]interface{}{
		"url": ch.URL,
	}, 2)
}

// record is the shared path behind LogError and LogChallenge. skip is the
// number of frames above callerLocation to report; both public entry points
// pass 2 so the entry is attributed to the code that invoked them.
func (r *Reporter) record(operation string, err error, context map[string]interface{}, skip int) bool {
	if err == nil {
		return false
	}

	category := apperrors.ClassifyError(err)

	entry := Entry{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Category:  category,
		Message:   err.Error(),
		Operation: operation,
		Caller:    callerLocation(skip),
		Context:   context,
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.total++
	r.byType[category]++

	if writeErr := r.writeEntry(&entry); writeErr != nil {
		r.logger.WarnWithFields("Error log unavailable, entry dropped to console", map[string]interface{}{
			"log_error": writeErr.Error(),
			"operation": operation,
			"category":  string(category),
			"message":   err.Error(),
		})
		return false
	}
	return true
}

func (r *Reporter) writeEntry(entry *Entry) error {
	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}
	line = append(line, '\n')

	if err := r.ensureOpen(); err != nil {
		return err
	}

	if r.size+int64(len(line)) > r.maxSizeBytes {
		if err := r.rotate(); err != nil {
			return err
		}
	}

	n, err := r.file.Write(line)
	r.size += int64(n)
	if err != nil {
		return fmt.Errorf("failed to append entry: %w", err)
	}
	return nil
}

func (r *Reporter) ensureOpen() error {
	if r.file != nil {
		return nil
	}

	if err := os.MkdirAll(r.dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	path := filepath.Join(r.dir, logFileName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open error log: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("failed to stat error log: %w", err)
	}

	r.file = f
	r.size = info.Size()
	return nil
}

// rotate shifts existing generations up by one (errors.log.1 becomes
// errors.log.2 and so on), drops the oldest, and moves the active file to
// errors.log.1. Callers must hold the mutex.
func (r *Reporter) rotate() error {
	if r.file != nil {
		r.file.Close()
		r.file = nil
	}

	active := filepath.Join(r.dir, logFileName)

	oldest := fmt.Sprintf("%s.%d", active, r.maxGenerations)
	if err := os.Remove(oldest); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to drop oldest generation: %w", err)
	}

	for gen := r.maxGenerations - 1; gen >= 1; gen-- {
		src := fmt.Sprintf("%s.%d", active, gen)
		dst := fmt.Sprintf("%s.%d", active, gen+1)
		if err := os.Rename(src, dst); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to shift generation %d: %w", gen, err)
		}
	}

	if err := os.Rename(active, active+".1"); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to rotate active log: %w", err)
	}

	return r.ensureOpen()
}

// Stats returns a snapshot of the counters.
func (r *Reporter) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	byType := make(map[apperrors.ErrorType]int, len(r.byType))
	for k, v := range r.byType {
		byType[k] = v
	}
	return Stats{TotalErrors: r.total, ErrorsByType: byType}
}

// Analyze returns the stats plus the dominant error category and the static
// recovery instruction for it.
func (r *Reporter) Analyze() Analysis {
	stats := r.Stats()
	analysis := Analysis{Stats: stats}

	if stats.TotalErrors == 0 {
		return analysis
	}

	// Deterministic winner on ties: highest count, then category name.
	type categoryCount struct {
		category apperrors.ErrorType
		count    int
	}
	counts := make([]categoryCount, 0, len(stats.ErrorsByType))
	for cat, n := range stats.ErrorsByType {
		counts = append(counts, categoryCount{cat, n})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].count != counts[j].count {
			return counts[i].count > counts[j].count
		}
		return counts[i].category < counts[j].category
	})

	analysis.MostCommonError = counts[0].category
	analysis.RecommendedAction = apperrors.Instruction(counts[0].category)
	return analysis
}

// LogPath returns the active log file path.
func (r *Reporter) LogPath() string {
	return filepath.Join(r.dir, logFileName)
}

// Close flushes and closes the active log file. Safe to call more than once.
func (r *Reporter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}

func callerLocation(skip int) string {
	_, file, line, ok := runtime.Caller(skip + 1)
	if !ok {
		return ""
	}
	return fmt.Sprintf("%s:%d", filepath.Base(file), line)
}
