package testing

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	PostgresImage    = "postgres:17-alpine"
	PostgresUser     = "student"
	PostgresPassword = "student"
	PostgresDB       = "sparkifydb"

	// EnvTestDatabaseURL points integration tests at an existing server instead of a container.
	EnvTestDatabaseURL = "SPARKIFY_TEST_DATABASE_URL"
)

// PostgresURL returns a connection string for a throwaway PostgreSQL server.
//
// It prefers SPARKIFY_TEST_DATABASE_URL, then starts a container that is terminated when the test ends.
// The test is skipped under -short or when no container provider is available.
func PostgresURL(t *testing.T) string {
	t.Helper()

	if url := os.Getenv(EnvTestDatabaseURL); url != "" {
		return url
	}
	if testing.Short() {
		t.Skip("skipping PostgreSQL integration test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	ctr, err := StartPostgres(ctx)
	if err != nil {
		t.Skipf("PostgreSQL container unavailable: %v", err)
	}
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(ctr); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	url, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("Failed to get connection string: %v", err)
	}
	return url
}

// StartPostgres runs a PostgreSQL container with the sparkify credentials.
func StartPostgres(ctx context.Context) (*postgres.PostgresContainer, error) {
	ctr, err := postgres.Run(ctx,
		PostgresImage,
		postgres.WithUsername(PostgresUser),
		postgres.WithPassword(PostgresPassword),
		postgres.WithDatabase(PostgresDB),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		if ctr != nil {
			ctr.Terminate(ctx) //nolint:errcheck
		}
		return nil, fmt.Errorf("start postgres: %w", err)
	}
	return ctr, nil
}
