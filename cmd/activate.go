package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hoanghonghuy/commitstream/internal/license"
)

var activateCmd = &cobra.Command{
	Use:   "activate <key>",
	Short: "Activate a license key and leave trial mode",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		gate := &license.Gate{}
		if err := gate.Activate(args[0]); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "License activated. Trial limits no longer apply.")
		return nil
	},
}

// mintKeyCmd exists for issuing keys out of band; it never ships in docs.
var mintKeyCmd = &cobra.Command{
	Use:    "mint-key",
	Short:  "Generate a fresh license key",
	Hidden: true,
	Args:   cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := license.GenerateKey()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), key)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(activateCmd)
	rootCmd.AddCommand(mintKeyCmd)
}
