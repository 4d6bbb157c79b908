package cmd

import (
	"os"

	"github.com/tbergot/spotify-dashboard/config"
	"github.com/tbergot/spotify-dashboard/internal/database"
	"github.com/tbergot/spotify-dashboard/internal/logger"

	migrate "github.com/rubenv/sql-migrate"
	"github.com/spf13/cobra"
)

var dropTables bool

var dbInitCmd = &cobra.Command{
	Use:   "db-init",
	Short: "Create the streaming_history schema and tables",
	Long: `Creates the streaming_history schema (file migrations), runs the
model auto-migration, and creates the secondary indexes. Idempotent
unless --drop is given, which drops the managed tables first.`,
	Run: func(cmd *cobra.Command, args []string) {
		log := logger.New("db-init").Function("Run")

		cfg, err := config.New()
		if err != nil {
			log.Er("failed to initialize config", err)
			os.Exit(1)
		}

		if err := database.RunFileMigrations(cfg, log, migrate.Up); err != nil {
			log.Er("failed to run file migrations", err)
			os.Exit(1)
		}

		db, err := database.New(cfg)
		if err != nil {
			log.Er("failed to connect to database", err)
			os.Exit(1)
		}
		defer func() {
			if err := db.Close(); err != nil {
				log.Er("failed to close database", err)
			}
		}()

		if dropTables {
			if err := db.DropModels(); err != nil {
				log.Er("failed to drop tables", err)
				os.Exit(1)
			}
		}

		if err := db.MigrateModels(); err != nil {
			log.Er("failed to migrate models", err)
			os.Exit(1)
		}

		if err := db.CreateIndexes(); err != nil {
			log.Er("failed to create indexes", err)
			os.Exit(1)
		}

		log.Info("Database initialized successfully")
	},
}

func init() {
	dbInitCmd.Flags().BoolVar(&dropTables, "drop", false,
		"drop the managed tables before recreating them")
	rootCmd.AddCommand(dbInitCmd)
}
