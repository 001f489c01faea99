package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vertotem/Mastodon-Random-Picker/internal/session"
)

var importCmd = &cobra.Command{
	Use:   "import <file.json>",
	Short: "Import posts from a snapshot file",
	Long: `Import reads a snapshot and merges it into the local cache. Three
shapes are understood: a plain status array, a tootpick backup with
progress, and an ActivityPub outbox archive as exported by Mastodon's
"Download your archive". Posts already cached are skipped; viewed sets
are merged.`,
	Args: cobra.ExactArgs(1),
	RunE: importAction,
}

func init() {
	rootCmd.AddCommand(importCmd)
}

func importAction(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}

	cfg, db, err := openEnv()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	s := session.New(db, cfg)
	added, err := s.Import(cmd.Context(), data)
	if err != nil {
		return err
	}

	fmt.Printf("Imported %d new posts of %s (%d cached total, %d viewed).\n",
		added, s.Account().Handle(), len(s.Posts()), s.ViewedCount())
	return nil
}
