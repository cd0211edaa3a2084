package cmd

import (
	"github.com/spf13/cobra"
)

// suggestCmd is the explicit form of the default action.
var suggestCmd = &cobra.Command{
	Use:   "suggest",
	Short: "Suggest a commit message for the staged changes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSuggest(cmd, "")
	},
}

func init() {
	rootCmd.AddCommand(suggestCmd)
}
