package report

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "liscraper/pkg/errors"
)

func newTestReporter(t *testing.T, maxSize int64, maxGen int) (*Reporter, string) {
	t.Helper()
	dir := t.TempDir()
	r := New(Config{Dir: dir, MaxSizeBytes: maxSize, MaxGenerations: maxGen}, nil)
	t.Cleanup(func() { r.Close() })
	return r, dir
}

func readEntries(t *testing.T, path string) []Entry {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e Entry
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &e))
		entries = append(entries, e)
	}
	require.NoError(t, scanner.Err())
	return entries
}

func TestLogErrorWritesJSONL(t *testing.T) {
	r, dir := newTestReporter(t, 0, 0)

	ok := r.LogError("session.login", apperrors.New(apperrors.ErrorTypeInvalidCredentials, "bad password"), map[string]interface{}{
		"email": "a***@example.com",
	})
	assert.True(t, ok)
	require.NoError(t, r.Close())

	entries := readEntries(t, filepath.Join(dir, "errors.log"))
	require.Len(t, entries, 1)

	entry := entries[0]
	assert.NotEmpty(t, entry.ID)
	assert.False(t, entry.Timestamp.IsZero())
	assert.Equal(t, apperrors.ErrorTypeInvalidCredentials, entry.Category)
	assert.Contains(t, entry.Message, "bad password")
	assert.Equal(t, "session.login", entry.Operation)
	assert.Equal(t, "a***@example.com", entry.Context["email"])
}

func TestLogErrorIgnoresNil(t *testing.T) {
	r, _ := newTestReporter(t, 0, 0)

	assert.False(t, r.LogError("op", nil, nil))

	stats := r.Stats()
	assert.Equal(t, 0, stats.TotalErrors)
}

func TestStatsCounters(t *testing.T) {
	r, _ := newTestReporter(t, 0, 0)

	r.LogError("op", apperrors.New(apperrors.ErrorTypeRateLimited, "throttled"), nil)
	r.LogError("op", apperrors.New(apperrors.ErrorTypeRateLimited, "throttled again"), nil)
	r.LogError("op", apperrors.New(apperrors.ErrorTypeNetwork, "timeout"), nil)

	stats := r.Stats()
	assert.Equal(t, 3, stats.TotalErrors)
	assert.Equal(t, 2, stats.ErrorsByType[apperrors.ErrorTypeRateLimited])
	assert.Equal(t, 1, stats.ErrorsByType[apperrors.ErrorTypeNetwork])
}

func TestAnalyze(t *testing.T) {
	r, _ := newTestReporter(t, 0, 0)

	t.Run("empty reporter", func(t *testing.T) {
		analysis := r.Analyze()
		assert.Equal(t, 0, analysis.Stats.TotalErrors)
		assert.Empty(t, analysis.MostCommonError)
		assert.Empty(t, analysis.RecommendedAction)
	})

	t.Run("dominant category wins", func(t *testing.T) {
		r.LogError("op", apperrors.New(apperrors.ErrorTypeCaptchaDetected, "captcha"), nil)
		r.LogError("op", apperrors.New(apperrors.ErrorTypeCaptchaDetected, "captcha"), nil)
		r.LogError("op", apperrors.New(apperrors.ErrorTypeNetwork, "timeout"), nil)

		analysis := r.Analyze()
		assert.Equal(t, apperrors.ErrorTypeCaptchaDetected, analysis.MostCommonError)
		assert.Equal(t, apperrors.Instruction(apperrors.ErrorTypeCaptchaDetected), analysis.RecommendedAction)
	})
}

func TestRotationShiftsGenerations(t *testing.T) {
	// Cap small enough that every entry forces a rotation check
	r, dir := newTestReporter(t, 512, 3)

	// Each entry is well over 100 bytes, so this comfortably exceeds
	// several generations worth of log
	for i := 0; i < 40; i++ {
		r.LogError("op", apperrors.New(apperrors.ErrorTypeNetwork,
			fmt.Sprintf("failure number %03d with enough padding text to fill the log quickly", i)), nil)
	}
	require.NoError(t, r.Close())

	active := filepath.Join(dir, "errors.log")
	_, err := os.Stat(active)
	assert.NoError(t, err, "active log must exist")

	_, err = os.Stat(active + ".1")
	assert.NoError(t, err, "first generation must exist after rotation")

	// No generation beyond the configured maximum may exist
	_, err = os.Stat(active + ".4")
	assert.True(t, os.IsNotExist(err))

	// Size cap holds for every retained file
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	count := 0
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), "errors.log") {
			continue
		}
		count++
		info, err := e.Info()
		require.NoError(t, err)
		assert.LessOrEqual(t, info.Size(), int64(512+256), "file %s exceeds cap", e.Name())
	}
	assert.LessOrEqual(t, count, 4, "at most active + 3 generations")

	// Counters survive rotation
	assert.Equal(t, 40, r.Stats().TotalErrors)
}

func TestLogErrorFailOpen(t *testing.T) {
	// Point the reporter at a directory path that cannot be created
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	r := New(Config{Dir: filepath.Join(blocker, "logs")}, nil)
	defer r.Close()

	// Must not panic or error, and counters still track
	ok := r.LogError("op", apperrors.New(apperrors.ErrorTypeNetwork, "timeout"), nil)
	assert.False(t, ok)
	assert.Equal(t, 1, r.Stats().TotalErrors)
}

func TestCloseIdempotent(t *testing.T) {
	r, _ := newTestReporter(t, 0, 0)
	r.LogError("op", apperrors.New(apperrors.ErrorTypeNetwork, "x"), nil)

	assert.NoError(t, r.Close())
	assert.NoError(t, r.Close())
}

func TestLogChallenge(t *testing.T) {
	r, _ := newTestReporter(t, 0, 0)

	ok := r.LogChallenge("session.navigate", &apperrors.Challenge{
		Category: apperrors.ErrorTypeCaptchaDetected,
		Evidence: "captcha",
		URL:      "https://www.linkedin.com/checkpoint/challenge/x",
	})
	assert.True(t, ok)
	assert.False(t, r.LogChallenge("session.navigate", nil))

	stats := r.Stats()
	assert.Equal(t, 1, stats.ErrorsByType[apperrors.ErrorTypeCaptchaDetected])
}
