package cmd

import (
	"github.com/spf13/cobra"

	"github.com/hoanghonghuy/commitstream/internal/app"
)

var installHookCmd = &cobra.Command{
	Use:   "install-hook",
	Short: "Install the prepare-commit-msg hook into the current repository",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return app.InstallHook(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(installHookCmd)
}
