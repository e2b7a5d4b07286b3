package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sqliteadapter "github.com/ericfisherdev/movieclub/internal/adapter/driven/sqlite"
)

const testSecretKeyHex = "0102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f20"

// setupCredentialEnv points the commands at a fresh database file and returns
// its path.
func setupCredentialEnv(t *testing.T) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "movieclub.db")
	t.Setenv("MOVIECLUB_DB_PATH", dbPath)
	t.Setenv("MOVIECLUB_SECRET_KEY", testSecretKeyHex)
	t.Setenv("MOVIECLUB_CATALOG_SECRET_ID", "")
	return dbPath
}

func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), err
}

// storedCredential reads name back through the repository the server uses.
func storedCredential(t *testing.T, dbPath, name string) string {
	t.Helper()
	db, err := sqliteadapter.NewDB(context.Background(), dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i + 1)
	}
	value, err := sqliteadapter.NewCredentialRepo(db, key).Get(context.Background(), name)
	require.NoError(t, err)
	return value
}

func TestCredentials_SetListDelete(t *testing.T) {
	dbPath := setupCredentialEnv(t)

	out, err := runCLI(t, "", "credentials", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No stored credentials")

	out, err = runCLI(t, "", "credentials", "set", "--value", "k-first")
	require.NoError(t, err)
	assert.Contains(t, out, `Stored credential "tmdb"`)
	assert.Contains(t, out, "Restart movieclub")
	assert.Equal(t, "k-first", storedCredential(t, dbPath, "tmdb"))

	out, err = runCLI(t, "", "credentials", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "tmdb")
	assert.Contains(t, out, "7")
	assert.NotContains(t, out, "k-first")

	out, err = runCLI(t, "", "credentials", "delete")
	require.NoError(t, err)
	assert.Contains(t, out, `Deleted credential "tmdb"`)
	assert.Equal(t, "", storedCredential(t, dbPath, "tmdb"))

	out, err = runCLI(t, "", "credentials", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No stored credentials")
}

func TestCredentials_SetFromStdinRotatesValue(t *testing.T) {
	dbPath := setupCredentialEnv(t)

	_, err := runCLI(t, "", "credentials", "set", "catalog/prod", "--value", "old")
	require.NoError(t, err)

	_, err = runCLI(t, "  {\"api_key\":\"new\"}\n", "credentials", "set", "catalog/prod")
	require.NoError(t, err)

	assert.Equal(t, `{"api_key":"new"}`, storedCredential(t, dbPath, "catalog/prod"))
}

func TestCredentials_SetRejectsEmptyValue(t *testing.T) {
	setupCredentialEnv(t)

	_, err := runCLI(t, "   \n", "credentials", "set")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty")

	out, err := runCLI(t, "", "credentials", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No stored credentials")
}

func TestCredentials_DeleteMissing(t *testing.T) {
	setupCredentialEnv(t)

	_, err := runCLI(t, "", "credentials", "delete", "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"nope"`)
}

func TestCredentials_RequireSecretKey(t *testing.T) {
	setupCredentialEnv(t)
	t.Setenv("MOVIECLUB_SECRET_KEY", "")

	_, err := runCLI(t, "", "credentials", "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MOVIECLUB_SECRET_KEY")
}

func TestCredentials_WrongKeyCannotRead(t *testing.T) {
	setupCredentialEnv(t)

	_, err := runCLI(t, "", "credentials", "set", "--value", "k-first")
	require.NoError(t, err)

	t.Setenv("MOVIECLUB_SECRET_KEY", strings.Repeat("ff", 32))
	_, err = runCLI(t, "", "credentials", "list")
	assert.Error(t, err)
}
