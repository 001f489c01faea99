package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vertotem/Mastodon-Random-Picker/internal/config"
	"github.com/vertotem/Mastodon-Random-Picker/internal/session"
	"github.com/vertotem/Mastodon-Random-Picker/internal/store"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check config and local cache health",
	RunE:  doctorAction,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func doctorAction(cmd *cobra.Command, _ []string) error {
	ok := true

	// Config dir
	if info, err := os.Stat(configDir); err != nil || !info.IsDir() {
		printCheck(false, "config directory %s (run tootpick init)", configDir)
		ok = false
	} else {
		printCheck(true, "config directory %s", configDir)
	}

	// Config file
	cfg, err := config.Load(configDir)
	if err != nil {
		printCheck(false, "config.yaml: %v", err)
		ok = false
	} else {
		printCheck(true, "config.yaml (dialect %s, batch %d)", cfg.Fetch.Dialect, cfg.Fetch.BatchSize)
	}

	// Database
	var db *store.Store
	if cfg != nil {
		db, err = store.Open(cfg.Storage.Path)
		if err != nil {
			printCheck(false, "database: %v", err)
			ok = false
		} else {
			defer func() { _ = db.Close() }()
			printCheck(true, "database %s", cfg.Storage.Path)
		}
	}

	// Cached accounts (info-level, non-fatal)
	if db != nil && cfg != nil {
		checkCacheHealth(cmd, db, cfg)
	}

	if !ok {
		return fmt.Errorf("some checks failed")
	}
	fmt.Println("\nAll checks passed.")
	return nil
}

func checkCacheHealth(cmd *cobra.Command, db *store.Store, cfg *config.Config) {
	ctx := cmd.Context()
	accounts, err := session.CachedAccounts(ctx, db)
	if err != nil || len(accounts) == 0 {
		return // no cache yet, nothing to report
	}

	fmt.Println()
	for _, acct := range accounts {
		s := session.New(db, cfg)
		if err := s.Load(ctx, acct.Acct); err != nil {
			printInfo("broken cache: %s — %v", acct.Handle(), err)
			continue
		}
		posts, viewed := len(s.Posts()), s.ViewedCount()
		switch {
		case posts == 0:
			printInfo("empty cache: %s — fetch again", acct.Handle())
		case viewed >= posts:
			printInfo("exhausted: %s — all %d posts shown, run tootpick reset", acct.Handle(), posts)
		default:
			printInfo("%s — %d posts, %d unseen", acct.Handle(), posts, posts-viewed)
		}
	}
}

func printCheck(pass bool, format string, args ...any) {
	mark := "FAIL"
	if pass {
		mark = " OK "
	}
	fmt.Printf("[%s] %s\n", mark, fmt.Sprintf(format, args...))
}

func printInfo(format string, args ...any) {
	fmt.Printf("[INFO] %s\n", fmt.Sprintf(format, args...))
}
