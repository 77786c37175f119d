package shared

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func TestDatabase(t *testing.T) {
	t.Run("NewDatabase in memory", func(t *testing.T) {
		db, err := NewDatabase(":memory:")
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		if got := db.Stats().MaxOpenConnections; got != 1 {
			t.Errorf("expected in-memory database pinned to 1 connection, got %d", got)
		}
	})

	t.Run("NewDatabase on file", func(t *testing.T) {
		db, err := NewDatabase(filepath.Join(t.TempDir(), "sparkify.db"))
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		ConfigureDatabase(db, 4, 2)
		if got := db.Stats().MaxOpenConnections; got != 4 {
			t.Errorf("expected 4 max open connections, got %d", got)
		}
	})

	t.Run("NewDatabase unreachable", func(t *testing.T) {
		_, err := NewDatabase(filepath.Join(t.TempDir(), "missing", "dir", "x.db"))
		if !errors.Is(err, ErrConnection) {
			t.Fatalf("expected ErrConnection, got %v", err)
		}
	})

	t.Run("NewPostgresPool bad url", func(t *testing.T) {
		_, err := NewPostgresPool(context.Background(), "://not a url", 1)
		if !errors.Is(err, ErrConnection) {
			t.Fatalf("expected ErrConnection, got %v", err)
		}
	})
}
