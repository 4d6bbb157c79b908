package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "spotify-dashboard",
	Short: "Ingest a Spotify streaming-history export into PostgreSQL",
	Long: `spotify-dashboard loads the JSON files of a personal Spotify
streaming-history export into the streaming_history.streams table and
reports simple listening statistics from it.`,
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
