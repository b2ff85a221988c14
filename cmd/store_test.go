package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/listing-extract/internal/config"
)

func TestInitStore_SQLite(t *testing.T) {
	cfg = &config.Config{
		Store: config.StoreConfig{
			Driver:      "sqlite",
			DatabaseURL: filepath.Join(t.TempDir(), "test.db"),
		},
	}

	st, err := initStore(context.Background())
	require.NoError(t, err)
	require.NotNil(t, st)
	defer st.Close() //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
}

func TestInitStore_SQLiteDefaultDSN(t *testing.T) {
	tmpDir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(tmpDir))
	defer os.Chdir(origDir) //nolint:errcheck

	cfg = &config.Config{Store: config.StoreConfig{Driver: "sqlite"}}

	st, err := initStore(context.Background())
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))

	_, err = os.Stat(filepath.Join(tmpDir, "listing-extract.db"))
	assert.NoError(t, err)
}

func TestInitStore_None(t *testing.T) {
	cfg = &config.Config{Store: config.StoreConfig{Driver: "none"}}

	st, err := initStore(context.Background())
	require.NoError(t, err)
	assert.Nil(t, st)
}

func TestInitStore_UnsupportedDriver(t *testing.T) {
	cfg = &config.Config{Store: config.StoreConfig{Driver: "mongo"}}

	_, err := initStore(context.Background())
	var cfgErr *config.ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "store.driver", cfgErr.Field)
}

func TestInitStore_PostgresBadURL(t *testing.T) {
	cfg = &config.Config{Store: config.StoreConfig{Driver: "postgres", DatabaseURL: "://not a url"}}

	_, err := initStore(context.Background())
	assert.ErrorContains(t, err, "postgres: parse config")
}

func TestOpenLedger_FallsBackWithoutLedger(t *testing.T) {
	cfg = &config.Config{Store: config.StoreConfig{Driver: "postgres", DatabaseURL: "://not a url"}}

	st, err := openLedger(context.Background())
	require.NoError(t, err)
	assert.Nil(t, st)
}

func TestOpenRunsStore_Disabled(t *testing.T) {
	cfg = &config.Config{Store: config.StoreConfig{Driver: "none"}}

	_, err := openRunsStore(context.Background())
	assert.ErrorContains(t, err, "disabled")
}
