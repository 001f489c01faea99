package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vertotem/Mastodon-Random-Picker/internal/session"
)

var (
	exportProgress bool
	exportOut      string
)

var exportCmd = &cobra.Command{
	Use:   "export [account]",
	Short: "Write the cached posts to a JSON file",
	Long: `Export serializes the cached collection. The plain form is the status
array a server would have returned; with --progress the document also
carries the account and the viewed set, so importing it elsewhere
resumes where you left off.`,
	Args: cobra.MaximumNArgs(1),
	RunE: exportAction,
}

func init() {
	exportCmd.Flags().BoolVar(&exportProgress, "progress", false, "include the account and viewed set")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file (default stdout)")
	rootCmd.AddCommand(exportCmd)
}

func exportAction(cmd *cobra.Command, args []string) error {
	cfg, db, err := openEnv()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	s := session.New(db, cfg)
	ref := ""
	if len(args) == 1 {
		ref = args[0]
	}
	if err := s.Load(cmd.Context(), ref); err != nil {
		return err
	}

	data, err := s.Export(exportProgress)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	if exportOut == "" {
		fmt.Println(string(data))
		return nil
	}
	if err := os.WriteFile(exportOut, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", exportOut, err)
	}
	fmt.Printf("Exported %d posts of %s to %s.\n", len(s.Posts()), s.Account().Handle(), exportOut)
	return nil
}
