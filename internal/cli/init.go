package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/vertotem/Mastodon-Random-Picker/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create config directory with an example config",
	RunE:  initAction,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func initAction(_ *cobra.Command, _ []string) error {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	configPath := filepath.Join(configDir, config.DefaultConfigFile)
	wrote, err := writeIfNotExists(configPath, []byte(exampleConfig))
	if err != nil {
		return err
	}
	if wrote {
		fmt.Printf("Initialized %s.\n", configDir)
	} else {
		fmt.Printf("Config directory %s already initialized.\n", configDir)
	}
	return nil
}

// writeIfNotExists writes data to path if the file does not exist.
// Returns true if the file was created.
func writeIfNotExists(path string, data []byte) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		fmt.Printf("  exists: %s\n", path)
		return false, nil
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return false, fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Printf("  created: %s\n", path)
	return true, nil
}

const exampleConfig = `# tootpick configuration

storage:
  path: .tootpick/tootpick.db

fetch:
  # auto probes the server; or force mastodon, misskey, rss
  dialect: auto
  batch_size: 40
  page_delay: 350ms
  poll_interval: 400ms
  exclude_replies: false
  exclude_reblogs: false

display:
  hide_replies: false
  hide_reblogs: false
  no_color: false
  # regex patterns masked in displayed text, e.g. mentions:
  redact: []
  # - '@\w+@[\w.]+'
`
