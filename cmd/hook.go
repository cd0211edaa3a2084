package cmd

import (
	"github.com/spf13/cobra"
)

// hookCmd is invoked by the prepare-commit-msg script installed via
// "commitstream install-hook". Instead of committing, the accepted
// message is written to the file git hands the hook.
var hookCmd = &cobra.Command{
	Use:    "hook <message-file>",
	Short:  "Write the suggested message to a git hook file",
	Hidden: true,
	Args:   cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSuggest(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(hookCmd)
}
