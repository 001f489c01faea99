package cli

import (
	"fmt"
	"io"
	"os"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"github.com/vertotem/Mastodon-Random-Picker/internal/session"
)

var statsFormat string

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cached accounts and picking progress",
	RunE:  statsAction,
}

func init() {
	statsCmd.Flags().StringVar(&statsFormat, "format", "terminal", "output format: terminal, json")
	rootCmd.AddCommand(statsCmd)
}

type accountStats struct {
	Account string `json:"account"`
	Posts   int    `json:"posts"`
	Viewed  int    `json:"viewed"`
	Unseen  int    `json:"unseen"`
}

func statsAction(cmd *cobra.Command, _ []string) error {
	cfg, db, err := openEnv()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	ctx := cmd.Context()
	accounts, err := session.CachedAccounts(ctx, db)
	if err != nil {
		return fmt.Errorf("list accounts: %w", err)
	}

	rows := make([]accountStats, 0, len(accounts))
	for _, acct := range accounts {
		s := session.New(db, cfg)
		if err := s.Load(ctx, acct.Acct); err != nil {
			return fmt.Errorf("load %s: %w", acct.Handle(), err)
		}
		posts, viewed := len(s.Posts()), s.ViewedCount()
		unseen := posts - viewed
		if unseen < 0 {
			unseen = 0
		}
		rows = append(rows, accountStats{
			Account: acct.Handle(),
			Posts:   posts,
			Viewed:  viewed,
			Unseen:  unseen,
		})
	}

	switch statsFormat {
	case "json":
		enc := jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	case "terminal":
		printStats(os.Stdout, rows)
		return nil
	default:
		return fmt.Errorf("unknown format %q", statsFormat)
	}
}

func printStats(w io.Writer, rows []accountStats) {
	if len(rows) == 0 {
		fmt.Fprintln(w, "Nothing cached yet. Fetch an account first.")
		return
	}
	fmt.Fprintf(w, "%-40s %8s %8s %8s\n", "ACCOUNT", "POSTS", "VIEWED", "UNSEEN")
	for _, r := range rows {
		fmt.Fprintf(w, "%-40s %8d %8d %8d\n", r.Account, r.Posts, r.Viewed, r.Unseen)
	}
}
