package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/vertotem/Mastodon-Random-Picker/internal/config"
	"github.com/vertotem/Mastodon-Random-Picker/internal/fetch"
	"github.com/vertotem/Mastodon-Random-Picker/internal/session"
	"github.com/vertotem/Mastodon-Random-Picker/internal/store"
)

var (
	fetchOlder          bool
	fetchNewer          bool
	fetchLimitCount     int
	fetchLimitDate      string
	fetchBatch          int
	fetchExcludeReplies bool
	fetchExcludeReblogs bool
)

var fetchCmd = &cobra.Command{
	Use:   "fetch [profile]",
	Short: "Fetch an account's public posts",
	Long: `Fetch walks an account's public posts from newest to oldest and caches
them locally. Pass a profile URL (https://example.social/@user) or a
handle (@user@example.social). With --older or --newer the profile may be
omitted when exactly one account is cached.

Press Ctrl-C to stop; everything fetched so far is kept.`,
	Args: cobra.MaximumNArgs(1),
	RunE: fetchAction,
}

func init() {
	fetchCmd.Flags().BoolVar(&fetchOlder, "older", false, "continue a cached walk further back in history")
	fetchCmd.Flags().BoolVar(&fetchNewer, "newer", false, "catch up on posts newer than the cached walk")
	fetchCmd.Flags().IntVar(&fetchLimitCount, "limit-count", 0, "stop after roughly this many posts")
	fetchCmd.Flags().StringVar(&fetchLimitDate, "limit-date", "", "stop at posts older than this day (YYYY-MM-DD)")
	fetchCmd.Flags().IntVar(&fetchBatch, "batch", 0, fmt.Sprintf("posts per request, 1..%d", config.MaxBatchSize))
	fetchCmd.Flags().BoolVar(&fetchExcludeReplies, "exclude-replies", false, "ask the server to omit replies")
	fetchCmd.Flags().BoolVar(&fetchExcludeReblogs, "exclude-reblogs", false, "ask the server to omit boosts")
	rootCmd.AddCommand(fetchCmd)
}

func fetchAction(cmd *cobra.Command, args []string) error {
	if fetchOlder && fetchNewer {
		return errors.New("--older and --newer are mutually exclusive")
	}

	cfg, db, err := openEnv()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	walkCfg, err := buildWalkConfig(cfg)
	if err != nil {
		return err
	}

	s := session.New(db, cfg)
	s.Warnf = func(format string, args ...any) {
		fmt.Printf(format+"\n", args...)
	}

	ctx := cmd.Context()
	stopOnInterrupt(ctx, s)

	onMerge := func(total int) {
		fmt.Printf("\rFetched %d posts...", total)
	}

	var res fetch.Result
	switch {
	case fetchOlder || fetchNewer:
		ref := ""
		if len(args) == 1 {
			ref = args[0]
		}
		if err := s.Load(ctx, ref); err != nil {
			return err
		}
		dir := fetch.DirOlder
		if fetchNewer {
			dir = fetch.DirNewer
		}
		res, err = s.Continue(ctx, dir, walkCfg, onMerge)
	default:
		if len(args) != 1 {
			return errors.New("a profile URL or @user@domain handle is required")
		}
		res, err = s.Start(ctx, args[0], walkCfg, onMerge)
	}
	if res.Pages > 0 {
		fmt.Println()
	}
	if err != nil {
		return err
	}

	suffix := ""
	if res.Stopped {
		suffix = " (stopped)"
	}
	fmt.Printf("Done: %d posts added in %d pages%s. %d posts cached for %s.\n",
		res.Added, res.Pages, suffix, len(s.Posts()), s.Account().Handle())
	return nil
}

// openEnv loads the config and opens the store underneath it.
func openEnv() (*config.Config, *store.Store, error) {
	cfg, err := config.Load(configDir)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	db, err := store.Open(cfg.Storage.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}
	return cfg, db, nil
}

// buildWalkConfig merges config defaults with the fetch flags.
func buildWalkConfig(cfg *config.Config) (fetch.Config, error) {
	wc := fetch.Config{
		Mode:           fetch.ModeAll,
		BatchSize:      cfg.Fetch.BatchSize,
		PageDelay:      cfg.Fetch.PageDelay.Duration,
		ExcludeReplies: fetchExcludeReplies || cfg.Fetch.ExcludeReplies,
		ExcludeReblogs: fetchExcludeReblogs || cfg.Fetch.ExcludeReblogs,
	}
	if fetchBatch > 0 {
		wc.BatchSize = fetchBatch
	}
	if wc.BatchSize < 1 || wc.BatchSize > config.MaxBatchSize {
		return fetch.Config{}, fmt.Errorf("--batch: %d out of range 1..%d", wc.BatchSize, config.MaxBatchSize)
	}

	if fetchLimitCount > 0 && fetchLimitDate != "" {
		return fetch.Config{}, errors.New("--limit-count and --limit-date are mutually exclusive")
	}
	if fetchLimitCount > 0 {
		wc.Mode = fetch.ModeCount
		wc.LimitCount = fetchLimitCount
	}
	if fetchLimitDate != "" {
		day, err := parseDay(fetchLimitDate)
		if err != nil {
			return fetch.Config{}, fmt.Errorf("parse --limit-date: %w", err)
		}
		wc.Mode = fetch.ModeDate
		wc.LimitDate = day
	}
	return wc, nil
}

// parseDay reads a YYYY-MM-DD date in local time.
func parseDay(s string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", s, time.Local)
}

// stopOnInterrupt turns the first Ctrl-C into a graceful stop: the running
// page finishes and everything merged so far is kept and cached.
func stopOnInterrupt(ctx context.Context, s *session.Session) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt)
	go func() {
		defer signal.Stop(ch)
		select {
		case <-ch:
			fmt.Println("\nStopping after the current page...")
			s.Stop()
		case <-ctx.Done():
		}
	}()
}
