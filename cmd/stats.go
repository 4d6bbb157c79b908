package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/tbergot/spotify-dashboard/config"
	"github.com/tbergot/spotify-dashboard/internal/database"
	"github.com/tbergot/spotify-dashboard/internal/logger"
	"github.com/tbergot/spotify-dashboard/internal/models"
	"github.com/tbergot/spotify-dashboard/internal/repositories"

	"github.com/spf13/cobra"
)

var topN int

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print listening statistics from the streams table",
	Run: func(cmd *cobra.Command, args []string) {
		log := logger.New("stats").Function("Run")

		cfg, err := config.New()
		if err != nil {
			log.Er("failed to initialize config", err)
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

		repos := repositories.New(db)
		ctx := context.Background()

		summary, err := repos.Stream.Summary(ctx)
		if err != nil {
			log.Er("failed to build summary", err)
			os.Exit(1)
		}

		topArtists, err := repos.Stream.TopArtists(ctx, topN)
		if err != nil {
			log.Er("failed to query top artists", err)
			os.Exit(1)
		}

		topTracks, err := repos.Stream.TopTracks(ctx, topN)
		if err != nil {
			log.Er("failed to query top tracks", err)
			os.Exit(1)
		}

		lastRun, err := repos.IngestRun.GetLatest(ctx)
		if err != nil {
			log.Er("failed to query last ingest run", err)
			os.Exit(1)
		}

		printStats(summary, topArtists, topTracks, lastRun)
	},
}

func printStats(
	summary *repositories.StreamSummary,
	topArtists []repositories.ArtistPlays,
	topTracks []repositories.TrackPlays,
	lastRun *models.IngestRun,
) {
	fmt.Println("Streaming history")
	fmt.Printf("  streams:  %d\n", summary.TotalStreams)
	fmt.Printf("  artists:  %d\n", summary.DistinctArtists)
	fmt.Printf("  tracks:   %d\n", summary.DistinctTracks)
	fmt.Printf("  playtime: %s\n", formatPlaytime(summary.TotalMsPlayed))
	if summary.FirstStreamAt != nil && summary.LastStreamAt != nil {
		fmt.Printf("  range:    %s to %s\n",
			summary.FirstStreamAt.Format("2006-01-02"),
			summary.LastStreamAt.Format("2006-01-02"),
		)
	}

	if lastRun != nil {
		fmt.Printf("  last ingest: %s (%s, %d records)\n",
			lastRun.StartedAt.Format(time.RFC3339),
			lastRun.Status,
			lastRun.RecordsIngested,
		)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)

	fmt.Fprintf(w, "\nTop artists\tplays\tplaytime\n")
	for _, artist := range topArtists {
		fmt.Fprintf(w, "%s\t%d\t%s\n",
			artist.ArtistName, artist.Plays, formatPlaytime(artist.MsPlayed))
	}

	fmt.Fprintf(w, "\nTop tracks\tartist\tplays\tplaytime\n")
	for _, track := range topTracks {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n",
			track.TrackName, track.ArtistName, track.Plays, formatPlaytime(track.MsPlayed))
	}

	w.Flush()
}

// formatPlaytime renders milliseconds as whole hours and minutes
func formatPlaytime(ms int64) string {
	d := time.Duration(ms) * time.Millisecond
	hours := int64(d.Hours())
	minutes := int64(d.Minutes()) % 60
	return fmt.Sprintf("%dh%02dm", hours, minutes)
}

func init() {
	statsCmd.Flags().IntVar(&topN, "top", 10, "number of top artists and tracks to show")
	rootCmd.AddCommand(statsCmd)
}
