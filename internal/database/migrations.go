package database

import (
	"database/sql"
	"fmt"
	"sort"
)

// Migration represents a database migration
type Migration struct {
	Version int
	Up      string
	Down    string
}

// Migrations contains all database migrations
var Migrations = []Migration{
	{
		Version: 1,
		Up: `
			CREATE TABLE IF NOT EXISTS users (
				id BIGSERIAL PRIMARY KEY,
				email VARCHAR(255) UNIQUE NOT NULL,
				name VARCHAR(100) NOT NULL,
				phone_num VARCHAR(20) NOT NULL DEFAULT '',
				role VARCHAR(20) NOT NULL DEFAULT 'viewer',
				profile_slug VARCHAR(100) NOT NULL DEFAULT '',
				address VARCHAR(255) NOT NULL DEFAULT '',
				balance NUMERIC(12,2) NOT NULL DEFAULT 0,
				bank_name VARCHAR(50) NOT NULL DEFAULT '',
				account_num VARCHAR(50) NOT NULL DEFAULT '',
				password_hash VARCHAR(255) NOT NULL,
				created_at TIMESTAMP NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP NOT NULL DEFAULT NOW()
			);

			CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);
		`,
		Down: `
			DROP TABLE IF EXISTS users;
		`,
	},
	{
		Version: 2,
		Up: `
			CREATE TABLE IF NOT EXISTS products (
				id BIGSERIAL PRIMARY KEY,
				seller_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				name VARCHAR(100) NOT NULL,
				price INT NOT NULL,
				description VARCHAR(1000) NOT NULL DEFAULT '',
				image VARCHAR(255) NOT NULL DEFAULT '',
				is_public BOOLEAN NOT NULL DEFAULT true,
				created_at TIMESTAMP NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP NOT NULL DEFAULT NOW()
			);

			CREATE TABLE IF NOT EXISTS product_options (
				id BIGSERIAL PRIMARY KEY,
				product_id BIGINT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
				name VARCHAR(100) NOT NULL,
				quantity INT NOT NULL CHECK (quantity >= 0),
				UNIQUE(product_id, name)
			);

			CREATE INDEX IF NOT EXISTS idx_products_seller ON products(seller_id);
			CREATE INDEX IF NOT EXISTS idx_product_options_product ON product_options(product_id);
		`,
		Down: `
			DROP TABLE IF EXISTS product_options;
			DROP TABLE IF EXISTS products;
		`,
	},
	{
		Version: 3,
		Up: `
			CREATE TABLE IF NOT EXISTS broadcasts (
				id BIGSERIAL PRIMARY KEY,
				seller_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				title VARCHAR(255) NOT NULL,
				thumbnail_url VARCHAR(255) NOT NULL DEFAULT '',
				scheduled_at TIMESTAMP NOT NULL,
				description VARCHAR(1000) NOT NULL DEFAULT '',
				max_viewer INT NOT NULL DEFAULT 0,
				product_ids JSONB NOT NULL DEFAULT '[]',
				started_at TIMESTAMP,
				ended_at TIMESTAMP,
				shipping_fee INT NOT NULL DEFAULT 0,
				meeting_room_id VARCHAR(64),
				hls_url VARCHAR(500),
				created_at TIMESTAMP NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP NOT NULL DEFAULT NOW()
			);

			CREATE INDEX IF NOT EXISTS idx_broadcasts_seller ON broadcasts(seller_id);
			CREATE INDEX IF NOT EXISTS idx_broadcasts_open ON broadcasts(seller_id) WHERE ended_at IS NULL;
		`,
		Down: `
			DROP TABLE IF EXISTS broadcasts;
		`,
	},
	{
		Version: 4,
		Up: `
			CREATE TABLE IF NOT EXISTS plans (
				id BIGSERIAL PRIMARY KEY,
				name VARCHAR(100) NOT NULL,
				minutes INT NOT NULL,
				max_viewer INT NOT NULL,
				price NUMERIC(12,2) NOT NULL,
				is_active BOOLEAN NOT NULL DEFAULT true,
				display_order INT NOT NULL DEFAULT 0
			);

			CREATE TABLE IF NOT EXISTS seller_plans (
				id BIGSERIAL PRIMARY KEY,
				seller_id BIGINT UNIQUE NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				plan_id BIGINT NOT NULL REFERENCES plans(id),
				remain_minutes INT NOT NULL DEFAULT 0,
				max_viewer INT NOT NULL DEFAULT 0
			);

			CREATE TABLE IF NOT EXISTS point_transactions (
				id BIGSERIAL PRIMARY KEY,
				user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				amount NUMERIC(12,2) NOT NULL,
				memo VARCHAR(255),
				created_at TIMESTAMP NOT NULL DEFAULT NOW()
			);

			CREATE INDEX IF NOT EXISTS idx_point_transactions_user ON point_transactions(user_id);
		`,
		Down: `
			DROP TABLE IF EXISTS point_transactions;
			DROP TABLE IF EXISTS seller_plans;
			DROP TABLE IF EXISTS plans;
		`,
	},
	{
		Version: 5,
		Up: `
			CREATE TABLE IF NOT EXISTS orders (
				id BIGSERIAL PRIMARY KEY,
				seller_id BIGINT NOT NULL REFERENCES users(id),
				buyer_id BIGINT NOT NULL REFERENCES users(id),
				product_id BIGINT NOT NULL REFERENCES products(id),
				buyer_name VARCHAR(100) NOT NULL DEFAULT '',
				phone_num VARCHAR(20) NOT NULL DEFAULT '',
				product_name VARCHAR(100) NOT NULL,
				options JSONB NOT NULL DEFAULT '[]',
				price INT NOT NULL,
				address VARCHAR(255) NOT NULL DEFAULT '',
				status VARCHAR(20) NOT NULL DEFAULT 'WAITING',
				broadcast_id BIGINT REFERENCES broadcasts(id),
				ordered_at TIMESTAMP NOT NULL DEFAULT NOW()
			);

			CREATE INDEX IF NOT EXISTS idx_orders_buyer ON orders(buyer_id, ordered_at DESC);
			CREATE INDEX IF NOT EXISTS idx_orders_seller_broadcast ON orders(seller_id, broadcast_id);
		`,
		Down: `
			DROP TABLE IF EXISTS orders;
		`,
	},
	{
		Version: 6,
		Up: `
			CREATE TABLE IF NOT EXISTS deliveries (
				id BIGSERIAL PRIMARY KEY,
				order_id BIGINT UNIQUE NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
				seller_id BIGINT NOT NULL REFERENCES users(id),
				product_name VARCHAR(100) NOT NULL,
				options JSONB NOT NULL DEFAULT '[]',
				ordered_at TIMESTAMP NOT NULL,
				recipient_name VARCHAR(100) NOT NULL DEFAULT '',
				phone_num VARCHAR(20) NOT NULL DEFAULT '',
				address VARCHAR(255) NOT NULL DEFAULT '',
				courier_company VARCHAR(100) NOT NULL DEFAULT '',
				courier_code VARCHAR(100) NOT NULL DEFAULT '',
				status VARCHAR(20) NOT NULL DEFAULT 'READY'
			);

			CREATE TABLE IF NOT EXISTS returns (
				id BIGSERIAL PRIMARY KEY,
				order_id BIGINT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
				seller_id BIGINT NOT NULL REFERENCES users(id),
				buyer_name VARCHAR(100) NOT NULL DEFAULT '',
				product_name VARCHAR(100) NOT NULL,
				options JSONB NOT NULL DEFAULT '[]',
				price INT NOT NULL,
				bank_name VARCHAR(50) NOT NULL DEFAULT '',
				account_num VARCHAR(50) NOT NULL DEFAULT '',
				reason VARCHAR(500) NOT NULL DEFAULT '',
				status VARCHAR(20) NOT NULL DEFAULT 'REQUEST',
				requested_at TIMESTAMP NOT NULL DEFAULT NOW()
			);

			CREATE INDEX IF NOT EXISTS idx_deliveries_seller ON deliveries(seller_id);
			CREATE INDEX IF NOT EXISTS idx_returns_seller ON returns(seller_id);
		`,
		Down: `
			DROP TABLE IF EXISTS returns;
			DROP TABLE IF EXISTS deliveries;
		`,
	},
	{
		Version: 7,
		Up: `
			CREATE TABLE IF NOT EXISTS follows (
				id BIGSERIAL PRIMARY KEY,
				seller_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				follower_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				created_at TIMESTAMP NOT NULL DEFAULT NOW(),
				UNIQUE(seller_id, follower_id)
			);

			CREATE INDEX IF NOT EXISTS idx_follows_seller ON follows(seller_id);
		`,
		Down: `
			DROP TABLE IF EXISTS follows;
		`,
	},
}

// RunMigrations runs all pending migrations
func RunMigrations(db *sql.DB) error {
	// Ensure migrations table exists
	if err := ensureMigrationsTable(db); err != nil {
		return err
	}

	// Get current version
	currentVersion, err := getCurrentVersion(db)
	if err != nil {
		return err
	}

	// Run pending migrations in ascending order by version
	sorted := make([]Migration, len(Migrations))
	copy(sorted, Migrations)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Version < sorted[j].Version })

	for _, migration := range sorted {
		if migration.Version <= currentVersion {
			continue
		}

		fmt.Printf("Running migration %d...\n", migration.Version)

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}

		if _, err := tx.Exec(migration.Up); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to run migration %d: %w", migration.Version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES ($1)", migration.Version); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}

		fmt.Printf("Migration %d completed\n", migration.Version)
	}

	return nil
}

func ensureMigrationsTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INT PRIMARY KEY,
			applied_at TIMESTAMP NOT NULL DEFAULT NOW()
		)
	`)
	return err
}

func getCurrentVersion(db *sql.DB) (int, error) {
	var version int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	if err != nil {
		return 0, err
	}
	return version, nil
}
