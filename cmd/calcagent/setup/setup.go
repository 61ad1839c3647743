package setup

import (
	"fmt"
	"log/slog"
	"os"

	"calcagent/internal/config"

	"github.com/spf13/cobra"
)

var (
	path  string
	force bool
)

var Cmd = &cobra.Command{
	Use:   "setup",
	Short: "Write a default calcagent configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if path == "" {
			path = config.DefaultPath()
		}
		if _, err := os.Stat(path); err == nil && !force {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}

		if err := config.Default().Save(path); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}
		slog.Info("config written", "path", path)
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

func init() {
	Cmd.Flags().StringVarP(&path, "config", "c", "", "where to write config.toml")
	Cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")
}
