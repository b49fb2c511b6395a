package session

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	dir := t.TempDir()
	return NewFileStore(filepath.Join(dir, "cookies.json"), nil)
}

func TestFileStoreRoundTrip(t *testing.T) {
	store := newTestStore(t)

	set := &CookieSet{
		Cookies: []Cookie{
			{
				Name:     "li_at",
				Value:    "token-value",
				Domain:   ".linkedin.com",
				Path:     "/",
				Expires:  float64(time.Now().Add(24 * time.Hour).Unix()),
				HTTPOnly: true,
				Secure:   true,
				SameSite: "None",
			},
			{Name: "JSESSIONID", Value: "ajax:123", Domain: ".www.linkedin.com", Path: "/"},
		},
	}

	require.NoError(t, store.Save(set))

	loaded, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Len(t, loaded.Cookies, 2)
	assert.Equal(t, "li_at", loaded.Cookies[0].Name)
	assert.Equal(t, "token-value", loaded.Cookies[0].Value)
	assert.True(t, loaded.Cookies[0].HTTPOnly)
	assert.False(t, loaded.SavedAt.IsZero())
}

func TestFileStoreLoadMissingFile(t *testing.T) {
	store := newTestStore(t)

	set, err := store.Load()
	assert.NoError(t, err)
	assert.Nil(t, set)
}

func TestFileStoreLoadCorruptFile(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, os.WriteFile(store.Path(), []byte("{not valid json"), 0600))

	set, err := store.Load()
	assert.NoError(t, err)
	assert.Nil(t, set)

	// The corrupt file is discarded so the next save starts clean
	_, statErr := os.Stat(store.Path())
	assert.True(t, os.IsNotExist(statErr))
}

func TestFileStoreSaveCreatesDirectory(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(filepath.Join(dir, "nested", "deeper", "cookies.json"), nil)

	require.NoError(t, store.Save(&CookieSet{Cookies: []Cookie{{Name: "a", Value: "b"}}}))

	loaded, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Len(t, loaded.Cookies, 1)
}

func TestFileStoreSaveNil(t *testing.T) {
	store := newTestStore(t)

	err := store.Save(nil)
	require.Error(t, err)

	var storageErr *StorageError
	assert.ErrorAs(t, err, &storageErr)
}

func TestFileStoreClear(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Save(&CookieSet{Cookies: []Cookie{{Name: "a", Value: "b"}}}))
	require.NoError(t, store.Clear())

	set, err := store.Load()
	assert.NoError(t, err)
	assert.Nil(t, set)

	// Clearing an absent session is fine
	assert.NoError(t, store.Clear())
}

func TestHasAuthCookie(t *testing.T) {
	future := float64(time.Now().Add(time.Hour).Unix())
	past := float64(time.Now().Add(-time.Hour).Unix())

	tests := []struct {
		name     string
		set      *CookieSet
		expected bool
	}{
		{
			name:     "nil set",
			set:      nil,
			expected: false,
		},
		{
			name:     "no cookies",
			set:      &CookieSet{},
			expected: false,
		},
		{
			name: "valid auth cookie",
			set: &CookieSet{Cookies: []Cookie{
				{Name: "li_at", Value: "tok", Expires: future},
			}},
			expected: true,
		},
		{
			name: "session cookie without expiry",
			set: &CookieSet{Cookies: []Cookie{
				{Name: "li_at", Value: "tok"},
			}},
			expected: true,
		},
		{
			name: "expired auth cookie",
			set: &CookieSet{Cookies: []Cookie{
				{Name: "li_at", Value: "tok", Expires: past},
			}},
			expected: false,
		},
		{
			name: "empty auth cookie value",
			set: &CookieSet{Cookies: []Cookie{
				{Name: "li_at", Value: "", Expires: future},
			}},
			expected: false,
		},
		{
			name: "other cookies only",
			set: &CookieSet{Cookies: []Cookie{
				{Name: "JSESSIONID", Value: "x", Expires: future},
			}},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.set.HasAuthCookie())
		})
	}
}
