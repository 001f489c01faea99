package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vertotem/Mastodon-Random-Picker/internal/picker"
	"github.com/vertotem/Mastodon-Random-Picker/internal/privacy"
	"github.com/vertotem/Mastodon-Random-Picker/internal/render"
	"github.com/vertotem/Mastodon-Random-Picker/internal/session"
)

var (
	pickJSON        bool
	pickCount       int
	pickStartDate   string
	pickEndDate     string
	pickHideReplies bool
	pickHideReblogs bool
)

var pickCmd = &cobra.Command{
	Use:   "pick [account]",
	Short: "Show one random unseen post",
	Long: `Pick draws one post uniformly at random from the cached collection,
skipping posts already shown. When every matching post has been shown,
pick says so; run "tootpick reset" to start over.`,
	Args: cobra.MaximumNArgs(1),
	RunE: pickAction,
}

func init() {
	pickCmd.Flags().BoolVar(&pickJSON, "json", false, "print the raw post as JSON")
	pickCmd.Flags().IntVarP(&pickCount, "count", "n", 1, "number of posts to pick")
	pickCmd.Flags().StringVar(&pickStartDate, "start-date", "", "only posts from this day on (YYYY-MM-DD)")
	pickCmd.Flags().StringVar(&pickEndDate, "end-date", "", "only posts up to and including this day (YYYY-MM-DD)")
	pickCmd.Flags().BoolVar(&pickHideReplies, "hide-replies", false, "never pick replies")
	pickCmd.Flags().BoolVar(&pickHideReblogs, "hide-reblogs", false, "never pick boosts")
	rootCmd.AddCommand(pickCmd)
}

func pickAction(cmd *cobra.Command, args []string) error {
	cfg, db, err := openEnv()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	s := session.New(db, cfg)
	ctx := cmd.Context()

	ref := ""
	if len(args) == 1 {
		ref = args[0]
	}
	if err := s.Load(ctx, ref); err != nil {
		return err
	}

	filter := picker.DisplayFilter{
		HideReplies: pickHideReplies || cfg.Display.HideReplies,
		HideReblogs: pickHideReblogs || cfg.Display.HideReblogs,
	}
	if pickStartDate != "" {
		if filter.StartDate, err = parseDay(pickStartDate); err != nil {
			return fmt.Errorf("parse --start-date: %w", err)
		}
	}
	if pickEndDate != "" {
		if filter.EndDate, err = parseDay(pickEndDate); err != nil {
			return fmt.Errorf("parse --end-date: %w", err)
		}
	}

	if pickCount < 1 {
		return errors.New("--count must be at least 1")
	}

	redact, err := privacy.New(cfg.Display.Redact)
	if err != nil {
		return err
	}
	f := render.NewFormatter(!cfg.Display.NoColor && !pickJSON, redact)

	for i := 0; i < pickCount; i++ {
		p, matching, unseen, err := s.Pick(ctx, filter)
		switch {
		case errors.Is(err, picker.ErrEmptyPool):
			return fmt.Errorf("no cached posts of %s match the filter", s.Account().Handle())
		case errors.Is(err, picker.ErrExhausted):
			if i > 0 {
				fmt.Println()
			}
			fmt.Printf("Every matching post of %s has been shown. Run \"tootpick reset\" to start over.\n", s.Account().Handle())
			return nil
		case err != nil:
			return err
		}

		if pickJSON {
			if err := f.JSON(os.Stdout, p); err != nil {
				return err
			}
			continue
		}
		if i > 0 {
			fmt.Println()
		}
		f.Post(os.Stdout, p, unseen, matching)
	}
	return nil
}
