package auth

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerStoreAndRetrieve(t *testing.T) {
	manager, store := NewMockManager()

	account := &Account{Email: "user@example.com", Password: "hunter22"}
	require.NoError(t, manager.Store(account))
	assert.False(t, account.LastModified.IsZero())

	got, err := manager.Retrieve("user@example.com")
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", got.Email)
	assert.Equal(t, "hunter22", got.Password)
	assert.Equal(t, 1, store.Count())
}

func TestManagerStoreValidation(t *testing.T) {
	manager, _ := NewMockManager()

	assert.Error(t, manager.Store(&Account{Password: "x"}))
	assert.Error(t, manager.Store(&Account{Email: "user@example.com"}))
}

func TestManagerRetrieveNotFound(t *testing.T) {
	manager, _ := NewMockManager()

	_, err := manager.Retrieve("nobody@example.com")
	assert.Error(t, err)
}

func TestManagerFallsBackToNextStore(t *testing.T) {
	broken := NewMockStore()
	broken.StoreError = ErrStoreUnavailable
	broken.RetrieveError = ErrStoreUnavailable

	working := NewMockStore()
	manager := NewMockManagerWithStores(broken, working)

	require.NoError(t, manager.Store(&Account{Email: "user@example.com", Password: "hunter22"}))
	assert.Equal(t, 0, broken.Count())
	assert.Equal(t, 1, working.Count())

	got, err := manager.Retrieve("user@example.com")
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", got.Email)
}

func TestManagerStoreAllStoresFail(t *testing.T) {
	broken := NewMockStore()
	broken.StoreError = ErrStoreUnavailable
	manager := NewMockManagerWithStores(broken)

	err := manager.Store(&Account{Email: "user@example.com", Password: "hunter22"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}

func TestManagerListPrefersNewest(t *testing.T) {
	older := NewMockStore()
	require.NoError(t, older.Store(&Account{
		Email:        "user@example.com",
		Password:     "old",
		LastModified: time.Now().Add(-time.Hour),
	}))

	newer := NewMockStore()
	require.NoError(t, newer.Store(&Account{
		Email:        "user@example.com",
		Password:     "new",
		LastModified: time.Now(),
	}))

	manager := NewMockManagerWithStores(older, newer)
	accounts, err := manager.List()
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "new", accounts[0].Password)
}

func TestManagerListSkipsBrokenStores(t *testing.T) {
	broken := NewMockStore()
	broken.ListError = errors.New("backend down")

	working := NewMockStore()
	require.NoError(t, working.Store(&Account{Email: "user@example.com", Password: "hunter22"}))

	manager := NewMockManagerWithStores(broken, working)
	accounts, err := manager.List()
	require.NoError(t, err)
	assert.Len(t, accounts, 1)
}

func TestManagerDelete(t *testing.T) {
	manager, store := NewMockManager()
	require.NoError(t, manager.Store(&Account{Email: "user@example.com", Password: "hunter22"}))

	require.NoError(t, manager.Delete("user@example.com"))
	assert.Equal(t, 0, store.Count())

	assert.Error(t, manager.Delete("user@example.com"))
}

func TestManagerDeleteAll(t *testing.T) {
	manager, store := NewMockManager()
	require.NoError(t, manager.Store(&Account{Email: "a@example.com", Password: "hunter22"}))
	require.NoError(t, manager.Store(&Account{Email: "b@example.com", Password: "hunter22"}))

	require.NoError(t, manager.DeleteAll())
	assert.Equal(t, 0, store.Count())
}

func TestEnvironmentStore(t *testing.T) {
	t.Setenv("LISCRAPER_EMAIL", "env@example.com")
	t.Setenv("LISCRAPER_PASSWORD", "envpass")

	store := NewEnvironmentStore()

	got, err := store.Retrieve("env@example.com")
	require.NoError(t, err)
	assert.Equal(t, "envpass", got.Password)

	// Empty email means "whatever the environment has"
	got, err = store.Retrieve("")
	require.NoError(t, err)
	assert.Equal(t, "env@example.com", got.Email)

	// A different account is not served from the environment
	_, err = store.Retrieve("other@example.com")
	assert.Error(t, err)
}

func TestRetrieveDefaultPrefersEnvironment(t *testing.T) {
	t.Setenv("LISCRAPER_EMAIL", "env@example.com")
	t.Setenv("LISCRAPER_PASSWORD", "envpass")

	stored := NewMockStore()
	require.NoError(t, stored.Store(&Account{Email: "file@example.com", Password: "filepass"}))

	manager := NewMockManagerWithStores(stored, NewEnvironmentStore())
	got, err := manager.RetrieveDefault()
	require.NoError(t, err)
	assert.Equal(t, "env@example.com", got.Email)
}

func TestRetrieveDefaultFallsBackToStores(t *testing.T) {
	t.Setenv("LISCRAPER_EMAIL", "")
	t.Setenv("LISCRAPER_PASSWORD", "")

	stored := NewMockStore()
	require.NoError(t, stored.Store(&Account{Email: "file@example.com", Password: "filepass"}))

	manager := NewMockManagerWithStores(stored, NewEnvironmentStore())
	got, err := manager.RetrieveDefault()
	require.NoError(t, err)
	assert.Equal(t, "file@example.com", got.Email)
}

func TestSanitizeAccount(t *testing.T) {
	assert.Nil(t, SanitizeAccount(nil))

	clean := SanitizeAccount(&Account{Email: "user@example.com", Password: "supersecret"})
	assert.Equal(t, "user@example.com", clean.Email)
	assert.Equal(t, "s******t", clean.Password)

	short := SanitizeAccount(&Account{Email: "user@example.com", Password: "abc"})
	assert.Equal(t, "********", short.Password)
}

func TestEncryptedFileStoreRoundTrip(t *testing.T) {
	t.Setenv("LISCRAPER_PASSPHRASE", "test-passphrase")

	path := t.TempDir() + "/credentials.enc"
	store, err := NewEncryptedFileStore(path)
	require.NoError(t, err)

	account := &Account{Email: "user@example.com", Password: "hunter22", LastModified: time.Now()}
	require.NoError(t, store.Store(account))
	assert.True(t, store.Exists("user@example.com"))

	reopened, err := NewEncryptedFileStore(path)
	require.NoError(t, err)

	got, err := reopened.Retrieve("user@example.com")
	require.NoError(t, err)
	assert.Equal(t, "hunter22", got.Password)

	require.NoError(t, reopened.Delete("user@example.com"))
	assert.False(t, reopened.Exists("user@example.com"))

	// Deleting the last account removes the vault file itself
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestEncryptedFileStoreWrongPassphrase(t *testing.T) {
	path := t.TempDir() + "/credentials.enc"

	t.Setenv("LISCRAPER_PASSPHRASE", "first-passphrase")
	store, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Store(&Account{Email: "user@example.com", Password: "hunter22"}))

	t.Setenv("LISCRAPER_PASSPHRASE", "other-passphrase")
	reopened, err := NewEncryptedFileStore(path)
	require.NoError(t, err)

	_, err = reopened.Retrieve("user@example.com")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCredentialsNotFound)
}
