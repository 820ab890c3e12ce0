package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DB_DSN", "postgres://localhost/agreements")
	t.Setenv("JWT_ACCESS_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "development", cfg.Environment)
	require.Equal(t, 7091, cfg.HTTP.Port)
	require.Equal(t, "local", cfg.Storage.Driver)
	require.Equal(t, 180, cfg.Agreements.ReminderLeadDays)
	require.Equal(t, int64(20<<20), cfg.Agreements.MaxAttachmentSize)
	require.Equal(t, 24*time.Hour, cfg.Agreements.DraftTTL)
	require.Equal(t, time.UTC, cfg.Location())
}

func TestLoadRequiresSecrets(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DB_DSN", "")
	t.Setenv("JWT_ACCESS_SECRET", "")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadRejectsUnknownStorageDriver(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DB_DSN", "postgres://localhost/agreements")
	t.Setenv("JWT_ACCESS_SECRET", "secret")
	t.Setenv("STORAGE_DRIVER", "ftp")

	_, err := Load()
	require.ErrorContains(t, err, "STORAGE_DRIVER")
}

func TestParseList(t *testing.T) {
	require.Nil(t, parseList("  "))
	require.Equal(t, []string{"a", "b"}, parseList(" a, ,b "))
}
