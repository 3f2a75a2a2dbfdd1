//nolint:errcheck // testsetup
package tcpostgres

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/rallytrack/tracking-service-manager-go/pkg/db/migrate"
	database "github.com/rallytrack/tracking-service-manager-go/pkg/db/postgres"
)

// create a pg connection pool for the tracking testdatabase
func SetupTestDB() *pgxpool.Pool {
	ctx := context.Background()
	port, err := nat.NewPort("tcp", "5432")
	if err != nil {
		log.Fatal(err)
	}
	container, err := SetupPostgres(ctx,
		WithPort(port.Port()),
		WithInitialDatabase("postgres", "password", "postgres"),
		WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Second)),
		WithName("tracking-service-manager-test"),
	)
	if err != nil {
		log.Fatal(err)
	}
	containerPort, _ := container.MappedPort(ctx, port)
	host, _ := container.Host(ctx)
	dbURL := fmt.Sprintf("postgresql://postgres:password@%s:%s/postgres",
		host, containerPort.Port())

	if err = migrate.MigrateDB(dbURL); err != nil {
		log.Fatal(err)
	}

	pool := database.InitWithURL(dbURL)
	return pool
}

// SetupExternalTestDB connects to a prepared database named by TESTDB_URL.
func SetupExternalTestDB() *pgxpool.Pool {
	dbURL := os.Getenv("TESTDB_URL")
	if err := migrate.MigrateDB(dbURL); err != nil {
		log.Fatal(err)
	}
	return database.InitWithURL(dbURL)
}

func ClearCheckpointTable(pool *pgxpool.Pool) {
	pool.Exec(context.Background(), "delete from competitor_checkpoint")
}

func ClearPositionTable(pool *pgxpool.Pool) {
	pool.Exec(context.Background(), "delete from competitor_position")
}

func ClearRouteTable(pool *pgxpool.Pool) {
	pool.Exec(context.Background(), "delete from route")
}

func ClearCompetitorTable(pool *pgxpool.Pool) {
	pool.Exec(context.Background(), "delete from competitor")
}

func ClearAllTables(pool *pgxpool.Pool) {
	ClearCheckpointTable(pool)
	ClearPositionTable(pool)
	ClearRouteTable(pool)
	ClearCompetitorTable(pool)
}
