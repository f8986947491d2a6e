package postgres

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
)

// testDB is one migrated container shared by the package's integration
// tests. Each test truncates it before use.
type testDB struct {
	once      sync.Once
	err       error
	container *tcpostgres.PostgresContainer
	pool      *pgxpool.Pool
	url       string
}

var shared testDB

func TestMain(m *testing.M) {
	code := m.Run()
	shared.close()
	os.Exit(code)
}

// setupPostgres returns a migrated, empty database. Skipped in -short mode
// and when no container runtime is reachable.
func setupPostgres(t *testing.T) (*pgxpool.Pool, string) {
	t.Helper()
	if testing.Short() {
		t.Skip("postgres integration test skipped in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	shared.once.Do(func() { shared.err = shared.start() })
	require.NoError(t, shared.err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	_, err := shared.pool.Exec(ctx, `TRUNCATE TABLE attendee_registrations, events, users RESTART IDENTITY CASCADE`)
	require.NoError(t, err)

	return shared.pool, shared.url
}

func (db *testDB) start() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("rsvp"),
		tcpostgres.WithUsername("rsvp"),
		tcpostgres.WithPassword("rsvp_dev"),
		tcpostgres.BasicWaitStrategies(),
	)
	if err != nil {
		return fmt.Errorf("start container: %w", err)
	}
	db.container = container

	if db.url, err = container.ConnectionString(ctx, "sslmode=disable"); err != nil {
		return fmt.Errorf("connection string: %w", err)
	}
	if db.pool, err = pgxpool.New(ctx, db.url); err != nil {
		return fmt.Errorf("open pool: %w", err)
	}

	// The wait strategy can report ready slightly before connections are accepted.
	for attempt := 0; ; attempt++ {
		if err = db.pool.Ping(ctx); err == nil {
			break
		}
		if attempt == 20 {
			return fmt.Errorf("ping: %w", err)
		}
		time.Sleep(250 * time.Millisecond)
	}
	return MigrateUp(db.url)
}

func (db *testDB) close() {
	if db.pool != nil {
		db.pool.Close()
	}
	if db.container != nil {
		_ = testcontainers.TerminateContainer(db.container)
	}
}

func countRows(t *testing.T, pool *pgxpool.Pool, table string) int {
	t.Helper()
	var n int
	require.NoError(t, pool.QueryRow(context.Background(), "SELECT count(*) FROM "+table).Scan(&n))
	return n
}
