package cmd

import (
	"github.com/spf13/cobra"

	"github.com/hoanghonghuy/commitstream/internal/app"
)

var dumpPromptOut string

// dumpPromptCmd assembles the exact message array a generation would
// send and prints it as JSON without calling the provider.
var dumpPromptCmd = &cobra.Command{
	Use:   "dump-prompt",
	Short: "Print the assembled prompt as JSON instead of generating",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a := app.New(cfg, logger)
		return a.DumpPrompt(cmd.Context(), suggestOptions(), dumpPromptOut)
	},
}

func init() {
	dumpPromptCmd.Flags().StringVar(&dumpPromptOut, "out", "", "write to a file instead of stdout")
	rootCmd.AddCommand(dumpPromptCmd)
}
