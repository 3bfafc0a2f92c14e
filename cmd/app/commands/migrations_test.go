package commands

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunMigrations(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("invalid-driver", func(t *testing.T) {
		err := RunMigrations(logger, "invalid", "postgres://localhost")
		require.Error(t, err)
		require.Contains(t, err.Error(), "failed to create migrate instance")
	})

	t.Run("invalid-connection-string", func(t *testing.T) {
		err := RunMigrations(logger, "postgres", "invalid-connection-string")
		require.Error(t, err)
		require.Contains(t, err.Error(), "failed to create migrate instance")
	})
}

func TestMigrationTarget(t *testing.T) {
	dir, url, err := migrationTarget("postgres", "postgres://u:p@localhost:5432/db?sslmode=disable")
	require.NoError(t, err)
	assert.Equal(t, "postgresql", dir)
	assert.Equal(t, "postgres://u:p@localhost:5432/db?sslmode=disable", url)

	dir, url, err = migrationTarget("mysql", "u:p@tcp(localhost:3306)/db?parseTime=true")
	require.NoError(t, err)
	assert.Equal(t, "mysql", dir)
	assert.Equal(t, "mysql://u:p@tcp(localhost:3306)/db?parseTime=true", url)

	_, url, err = migrationTarget("mysql", "mysql://u:p@tcp(localhost:3306)/db")
	require.NoError(t, err)
	assert.Equal(t, "mysql://u:p@tcp(localhost:3306)/db", url)
}
