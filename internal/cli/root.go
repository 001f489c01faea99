// Package cli provides the command-line interface for tootpick.
package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

// Version and Commit are set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
)

var configDir string

var rootCmd = &cobra.Command{
	Use:   "tootpick",
	Short: "Pick random posts from a fediverse account",
	Long:  "tootpick fetches an account's public posts from a Mastodon or Misskey server and serves them back one at a time, uniformly at random, never repeating a post until you reset.",
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("tootpick %s (%s)\n", Version, Commit)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", defaultConfigDir(), "directory holding config.yaml and the database")
	rootCmd.AddCommand(versionCmd)
}

func defaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".tootpick"
	}
	return filepath.Join(home, ".tootpick")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
