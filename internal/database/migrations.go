package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tbergot/spotify-dashboard/config"
	"github.com/tbergot/spotify-dashboard/internal/logger"
	"github.com/tbergot/spotify-dashboard/internal/models"

	_ "github.com/lib/pq"
	migrate "github.com/rubenv/sql-migrate"
)

const (
	MIGRATION_PATH = "migrations"
	MIGRATION_DB   = "postgres"
)

// MigrateModels runs GORM AutoMigrate for all models
func (db *DB) MigrateModels() error {
	log := logger.New("database").Function("MigrateModels")
	log.Info("Starting database migration")

	modelsToMigrate := []interface{}{
		&models.Stream{},
		&models.IngestRun{},
	}

	for _, model := range modelsToMigrate {
		if err := db.SQL.AutoMigrate(model); err != nil {
			return log.Err("failed to migrate model", err, "model", fmt.Sprintf("%T", model))
		}
	}

	log.Info("Database migration completed successfully")
	return nil
}

// DropModels drops the managed tables for a from-scratch rebuild
func (db *DB) DropModels() error {
	log := logger.New("database").Function("DropModels")
	log.Warn("Dropping managed tables")

	modelsToDrop := []interface{}{
		&models.Stream{},
		&models.IngestRun{},
	}

	for _, model := range modelsToDrop {
		if err := db.SQL.Migrator().DropTable(model); err != nil {
			return log.Err("failed to drop table", err, "model", fmt.Sprintf("%T", model))
		}
	}

	return nil
}

// CreateIndexes creates the secondary indexes that serve the analysis
// queries. GORM only creates what the model tags declare; the named
// indexes here match the original schema exactly.
func (db *DB) CreateIndexes() error {
	log := logger.New("database").Function("CreateIndexes")
	log.Info("Creating additional database indexes")

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_streams_ts ON streaming_history.streams(ts)",
		"CREATE INDEX IF NOT EXISTS idx_streams_artist ON streaming_history.streams(artist_name)",
		"CREATE INDEX IF NOT EXISTS idx_streams_track ON streaming_history.streams(track_name)",
		"CREATE INDEX IF NOT EXISTS idx_streams_platform ON streaming_history.streams(platform)",
		"CREATE INDEX IF NOT EXISTS idx_streams_country ON streaming_history.streams(conn_country)",
		"CREATE INDEX IF NOT EXISTS idx_streams_artist_ts ON streaming_history.streams(artist_name, ts)",
	}

	for _, idx := range indexes {
		if err := db.SQL.Exec(idx).Error; err != nil {
			return log.Err("failed to create index", err, "index", idx)
		}
	}

	log.Info("Database indexes created successfully")
	return nil
}

// RunFileMigrations applies the SQL migrations under migrations/ with
// sql-migrate. The schema itself (streaming_history) is created here,
// before AutoMigrate touches the schema-qualified tables.
func RunFileMigrations(
	config config.Config,
	log logger.Logger,
	direction migrate.MigrationDirection,
) error {
	log = log.Function("RunFileMigrations")

	if _, err := os.Stat(MIGRATION_PATH); os.IsNotExist(err) {
		log.Info("Migrations directory does not exist, skipping file-based migrations")
		return nil
	}

	files, err := filepath.Glob(filepath.Join(MIGRATION_PATH, "*.sql"))
	if err != nil {
		return log.Err("failed to check for migration files", err)
	}

	if len(files) == 0 {
		log.Info("No migration files found, skipping file-based migrations")
		return nil
	}

	migrations := &migrate.FileMigrationSource{
		Dir: MIGRATION_PATH,
	}

	db, err := sql.Open(MIGRATION_DB, migrationDSN(config))
	if err != nil {
		return log.Err("failed to open database for migrations", err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			log.Er("failed to close database", err)
		}
	}()

	applied, err := migrate.Exec(db, MIGRATION_DB, migrations, direction)
	if err != nil {
		return log.Err("failed to execute migrations", err)
	}

	log.Info("Applied migrations", "count", applied)
	return nil
}

// migrationDSN builds a lib/pq connection string. The GORM DSN carries
// a TimeZone parameter that lib/pq does not accept.
func migrationDSN(config config.Config) string {
	if config.DatabaseURL != "" {
		return config.DatabaseURL
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		config.PostgresHost,
		config.PostgresPort,
		config.PostgresUser,
		config.PostgresPassword,
		config.PostgresDB,
	)
}
