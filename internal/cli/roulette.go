package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vertotem/Mastodon-Random-Picker/internal/fetch"
	"github.com/vertotem/Mastodon-Random-Picker/internal/picker"
	"github.com/vertotem/Mastodon-Random-Picker/internal/privacy"
	"github.com/vertotem/Mastodon-Random-Picker/internal/render"
	"github.com/vertotem/Mastodon-Random-Picker/internal/session"
)

var rouletteCmd = &cobra.Command{
	Use:   "roulette <profile>",
	Short: "Fetch an account and pick posts interactively",
	Long: `Roulette fetches an account's posts and then deals them out one at a
time. While fetching, type p to pause, r to resume, or s to stop early
and play with what was fetched so far. Afterwards, press Enter for the
next random post and q to quit.`,
	Args: cobra.ExactArgs(1),
	RunE: rouletteAction,
}

func init() {
	rootCmd.AddCommand(rouletteCmd)
}

type walkOutcome struct {
	res fetch.Result
	err error
}

func rouletteAction(cmd *cobra.Command, args []string) error {
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

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- strings.TrimSpace(strings.ToLower(scanner.Text()))
		}
	}()

	fmt.Println("Fetching... type p to pause, r to resume, s to stop early.")
	done := make(chan walkOutcome, 1)
	go func() {
		res, err := s.Start(ctx, args[0], walkCfg, func(total int) {
			fmt.Printf("\rFetched %d posts...", total)
		})
		done <- walkOutcome{res: res, err: err}
	}()

	res, err := superviseWalk(s, lines, done)
	fmt.Println()
	if err != nil {
		return err
	}
	if res.Stopped {
		fmt.Printf("Stopped early with %d posts. Let's play.\n", len(s.Posts()))
	} else {
		fmt.Printf("Fetched %d posts. Let's play.\n", len(s.Posts()))
	}

	filter := picker.DisplayFilter{
		HideReplies: cfg.Display.HideReplies,
		HideReblogs: cfg.Display.HideReblogs,
	}
	redact, err := privacy.New(cfg.Display.Redact)
	if err != nil {
		return err
	}
	f := render.NewFormatter(!cfg.Display.NoColor, redact)

	for {
		p, matching, unseen, err := s.Pick(ctx, filter)
		switch {
		case errors.Is(err, picker.ErrEmptyPool):
			return fmt.Errorf("no posts of %s match the filter", s.Account().Handle())
		case errors.Is(err, picker.ErrExhausted):
			fmt.Println("That was the last unseen post. Run \"tootpick reset\" to start over.")
			return nil
		case err != nil:
			return err
		}

		fmt.Println()
		f.Post(os.Stdout, p, unseen, matching)
		fmt.Println("\nEnter for another, q to quit.")

		line, ok := <-lines
		if !ok || line == "q" {
			return nil
		}
	}
}

// superviseWalk relays pause/resume/stop keystrokes to the session while
// the walk runs.
func superviseWalk(s *session.Session, lines <-chan string, done <-chan walkOutcome) (fetch.Result, error) {
	for {
		select {
		case out := <-done:
			return out.res, out.err
		case line, ok := <-lines:
			if !ok {
				// stdin closed; keep waiting for the walk
				lines = nil
				continue
			}
			switch line {
			case "p":
				s.Pause()
				fmt.Println("\nPaused. Type r to resume, s to stop.")
			case "r":
				s.Resume()
				fmt.Println("Resuming.")
			case "s":
				s.Stop()
				fmt.Println("Stopping after the current page...")
			}
		}
	}
}
