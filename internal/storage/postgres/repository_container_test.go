//go:build container

package postgres

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"expensetracker/internal/ports"
	"expensetracker/internal/storage/storetest"
)

func startPostgres(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	req := tc.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "expenses",
			"POSTGRES_PASSWORD": "expenses",
			"POSTGRES_DB":       "expenses",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	return fmt.Sprintf("postgres://expenses:expenses@%s:%s/expenses?sslmode=disable", host, port.Port())
}

func TestPostgresStoreSuite(t *testing.T) {
	dsn := startPostgres(t)

	suite.Run(t, &storetest.Suite{
		NewStore: func() (ports.Store, error) {
			repo, err := New(context.Background(), Config{DSN: dsn, MaxConns: 4})
			if err != nil {
				return nil, err
			}
			// One database serves every test; start each from empty tables.
			if _, err := repo.pool.Exec(context.Background(), `TRUNCATE users CASCADE`); err != nil {
				repo.Close()
				return nil, err
			}
			return repo, nil
		},
	})
}

func TestPostgresMigrationsIdempotent(t *testing.T) {
	dsn := startPostgres(t)

	first, err := RunMigrations(dsn)
	require.NoError(t, err)
	require.Equal(t, uint(2), first)

	second, err := RunMigrations(dsn)
	require.NoError(t, err)
	require.Equal(t, first, second)
}
