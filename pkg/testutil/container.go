// Package testutil provides testing utilities for the PharmaTrack backend.
// It includes a testcontainers PostgreSQL setup with the service schema,
// a sqlmock harness and common test fixtures.
package testutil

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// PostgresContainer wraps a testcontainers PostgreSQL instance
type PostgresContainer struct {
	*postgres.PostgresContainer
	DSN string
}

// PostgresContainerConfig configures the test PostgreSQL container
type PostgresContainerConfig struct {
	Database string
	Username string
	Password string
	Image    string // Optional: defaults to postgres:15-alpine
}

// DefaultPostgresConfig returns sensible defaults for test containers
func DefaultPostgresConfig() PostgresContainerConfig {
	return PostgresContainerConfig{
		Database: "pharmatrack_test",
		Username: "test",
		Password: "test",
		Image:    "postgres:15-alpine",
	}
}

// NewPostgresContainer creates a new PostgreSQL test container.
//
// Usage:
//
//	func TestMain(m *testing.M) {
//	    ctx := context.Background()
//	    container, err := testutil.NewPostgresContainer(ctx, testutil.DefaultPostgresConfig())
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    defer container.Terminate(ctx)
//
//	    code := m.Run()
//	    os.Exit(code)
//	}
func NewPostgresContainer(ctx context.Context, cfg PostgresContainerConfig) (*PostgresContainer, error) {
	if cfg.Image == "" {
		cfg.Image = "postgres:15-alpine"
	}
	if cfg.Database == "" {
		cfg.Database = "pharmatrack_test"
	}
	if cfg.Username == "" {
		cfg.Username = "test"
	}
	if cfg.Password == "" {
		cfg.Password = "test"
	}

	container, err := postgres.RunContainer(ctx,
		testcontainers.WithImage(cfg.Image),
		postgres.WithDatabase(cfg.Database),
		postgres.WithUsername(cfg.Username),
		postgres.WithPassword(cfg.Password),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	return &PostgresContainer{
		PostgresContainer: container,
		DSN:               dsn,
	}, nil
}

// Connect returns a sqlx.DB connection to the container
func (c *PostgresContainer) Connect(ctx context.Context) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", c.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to test database: %w", err)
	}
	return db, nil
}

// Terminate stops and removes the container
func (c *PostgresContainer) Terminate(ctx context.Context) error {
	return c.PostgresContainer.Terminate(ctx)
}

// ApplySchema creates the service tables. Mirrors migrations/001_initial.sql.
func (c *PostgresContainer) ApplySchema(ctx context.Context, db *sqlx.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS pharmacies (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			name VARCHAR(255) NOT NULL,
			address VARCHAR(500) NOT NULL,
			phone VARCHAR(32),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS medications (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			name VARCHAR(255) NOT NULL,
			category VARCHAR(100) NOT NULL,
			manufacturer VARCHAR(255) NOT NULL,
			expiration_days INTEGER NOT NULL CHECK (expiration_days > 0),
			min_temperature DOUBLE PRECISION NOT NULL DEFAULT 15,
			max_temperature DOUBLE PRECISION NOT NULL DEFAULT 25,
			min_humidity DOUBLE PRECISION NOT NULL DEFAULT 30,
			max_humidity DOUBLE PRECISION NOT NULL DEFAULT 60,
			is_prescription_only BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS iot_devices (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			pharmacy_id UUID NOT NULL REFERENCES pharmacies(id) ON DELETE CASCADE,
			serial_number VARCHAR(64) NOT NULL UNIQUE,
			min_temperature DOUBLE PRECISION NOT NULL DEFAULT 15,
			max_temperature DOUBLE PRECISION NOT NULL DEFAULT 25,
			min_humidity DOUBLE PRECISION NOT NULL DEFAULT 30,
			max_humidity DOUBLE PRECISION NOT NULL DEFAULT 60,
			measurement_interval_seconds INTEGER NOT NULL DEFAULT 300,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS inventory_lots (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			pharmacy_id UUID NOT NULL REFERENCES pharmacies(id) ON DELETE CASCADE,
			medication_id UUID REFERENCES medications(id) ON DELETE SET NULL,
			price NUMERIC(12,2) NOT NULL CONSTRAINT price_non_negative CHECK (price >= 0),
			manufacture_date TIMESTAMPTZ NOT NULL,
			quantity INTEGER NOT NULL CONSTRAINT quantity_non_negative CHECK (quantity >= 0),
			batch_code VARCHAR(64) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT inventory_lots_batch_code_key UNIQUE (pharmacy_id, batch_code)
		);
		CREATE INDEX IF NOT EXISTS idx_lots_pharmacy ON inventory_lots(pharmacy_id);
		CREATE INDEX IF NOT EXISTS idx_lots_medication ON inventory_lots(medication_id);

		CREATE TABLE IF NOT EXISTS transactions (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			lot_id UUID REFERENCES inventory_lots(id) ON DELETE SET NULL,
			pharmacy_id UUID NOT NULL,
			medication_id UUID,
			type VARCHAR(20) NOT NULL CHECK (type IN ('sale', 'restock', 'adjustment')),
			quantity INTEGER NOT NULL,
			unit_price NUMERIC(12,2) NOT NULL,
			customer_id UUID,
			performed_by UUID,
			occurred_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_transactions_pharmacy ON transactions(pharmacy_id, occurred_at);
		CREATE INDEX IF NOT EXISTS idx_transactions_type ON transactions(type, occurred_at);

		CREATE TABLE IF NOT EXISTS write_offs (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			lot_id UUID REFERENCES inventory_lots(id) ON DELETE SET NULL,
			pharmacy_id UUID NOT NULL,
			medication_id UUID,
			quantity INTEGER NOT NULL CHECK (quantity > 0),
			reason VARCHAR(20) NOT NULL CONSTRAINT writeoff_reason_valid
				CHECK (reason IN ('expired', 'damaged', 'lost', 'recalled', 'other')),
			performed_by UUID,
			occurred_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_write_offs_pharmacy ON write_offs(pharmacy_id, occurred_at);

		CREATE TABLE IF NOT EXISTS storage_condition_samples (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			pharmacy_id UUID NOT NULL REFERENCES pharmacies(id) ON DELETE CASCADE,
			device_id UUID REFERENCES iot_devices(id) ON DELETE SET NULL,
			temperature DOUBLE PRECISION NOT NULL,
			humidity DOUBLE PRECISION NOT NULL,
			recorded_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_condition_samples_pharmacy
			ON storage_condition_samples(pharmacy_id, recorded_at DESC);

		CREATE TABLE IF NOT EXISTS user_cache (
			id UUID PRIMARY KEY,
			full_name VARCHAR(255) NOT NULL,
			role VARCHAR(100) NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// TruncateAll empties all service tables between tests
func (c *PostgresContainer) TruncateAll(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		TRUNCATE storage_condition_samples, write_offs, transactions,
			inventory_lots, iot_devices, user_cache, medications, pharmacies CASCADE
	`)
	return err
}
