package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vertotem/Mastodon-Random-Picker/internal/session"
)

var resetCmd = &cobra.Command{
	Use:   "reset [account]",
	Short: "Forget which posts were already shown",
	Long: `Reset clears the viewed set for an account so every cached post becomes
pickable again. The cached posts themselves are kept.`,
	Args: cobra.MaximumNArgs(1),
	RunE: resetAction,
}

func init() {
	rootCmd.AddCommand(resetCmd)
}

func resetAction(cmd *cobra.Command, args []string) error {
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

	viewed := s.ViewedCount()
	if err := s.ResetViewed(ctx); err != nil {
		return fmt.Errorf("reset viewed set: %w", err)
	}
	fmt.Printf("Forgot %d viewed posts of %s; %d posts are pickable again.\n",
		viewed, s.Account().Handle(), len(s.Posts()))
	return nil
}
