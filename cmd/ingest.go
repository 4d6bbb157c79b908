package cmd

import (
	"context"
	"os"

	"github.com/tbergot/spotify-dashboard/config"
	"github.com/tbergot/spotify-dashboard/internal/database"
	"github.com/tbergot/spotify-dashboard/internal/ingest"
	"github.com/tbergot/spotify-dashboard/internal/logger"
	"github.com/tbergot/spotify-dashboard/internal/repositories"

	"github.com/spf13/cobra"
)

var (
	dataDir    string
	batchSize  int
	dryRun     bool
	clearTable bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Load streaming-history export files into the streams table",
	Long: `Discovers Streaming_History_Audio_*.json files under --data-dir,
maps each record to a row and bulk-inserts them. --clear truncates the
table first so a re-run yields the same row count.`,
	Run: func(cmd *cobra.Command, args []string) {
		log := logger.New("ingest").Function("Run")

		cfg, err := config.New()
		if err != nil {
			log.Er("failed to initialize config", err)
			os.Exit(1)
		}

		if dataDir == "" {
			dataDir = cfg.DataDir
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

		repos := repositories.New(db)
		ingester := ingest.New(repos.Stream, repos.IngestRun, ingest.Options{
			DataDir:   dataDir,
			BatchSize: batchSize,
			DryRun:    dryRun,
			Clear:     clearTable,
		})

		stats, err := ingester.Run(context.Background())
		if err != nil {
			log.Er("ingest failed", err,
				"files", stats.FilesProcessed,
				"records", stats.RecordsIngested,
			)
			os.Exit(1)
		}
	},
}

func init() {
	ingestCmd.Flags().StringVar(&dataDir, "data-dir", "",
		"directory containing the export files (defaults to DATA_DIR)")
	ingestCmd.Flags().IntVar(&batchSize, "batch-size", ingest.DefaultBatchSize,
		"number of rows per insert batch")
	ingestCmd.Flags().BoolVar(&dryRun, "dry-run", false,
		"parse and map everything without writing to the database")
	ingestCmd.Flags().BoolVar(&clearTable, "clear", false,
		"truncate the streams table before importing")
	rootCmd.AddCommand(ingestCmd)
}
