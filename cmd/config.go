package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"

	"github.com/hoanghonghuy/commitstream/internal/app"
	"github.com/hoanghonghuy/commitstream/internal/config"
	"github.com/hoanghonghuy/commitstream/internal/license"
)

var headerStyle = lipgloss.NewStyle().Bold(true)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or edit the configuration",
	Long: `Display the current commitstream configuration.

Examples:
  commitstream config          # Show all config
  commitstream config --path   # Show config file path
  commitstream config --json   # Output as JSON
  commitstream config --edit   # Interactive settings editor`,
	RunE: runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)

	configCmd.Flags().Bool("path", false, "show config file path")
	configCmd.Flags().Bool("json", false, "output as JSON")
	configCmd.Flags().Bool("edit", false, "edit settings interactively")
}

func runConfig(cmd *cobra.Command, args []string) error {
	showPath, _ := cmd.Flags().GetBool("path")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	edit, _ := cmd.Flags().GetBool("edit")

	if edit {
		return editConfig(cmd)
	}

	if showPath {
		if file := config.FileUsed(); file == "" {
			fmt.Fprintln(cmd.OutOrStdout(), "No config file found (using defaults)")
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), "Config file:", file)
		}
		return nil
	}

	if jsonOutput {
		masked := *cfg
		masked.API.Key = maskKey(masked.API.Key)
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(masked)
	}

	// Print configuration as table
	fmt.Fprintln(cmd.OutOrStdout(), headerStyle.Render("Current Configuration"))

	table := newKVTable(cmd.OutOrStdout())
	table.Header([]string{"KEY", "VALUE"})
	_ = table.Bulk([][]string{
		{"api.base_url", cfg.API.BaseURL},
		{"api.key", maskKey(cfg.API.Key)},
		{"api.model", cfg.API.Model},
		{"api.max_tokens", fmt.Sprintf("%d", cfg.API.MaxTokens)},
		{"api.temperature", fmt.Sprintf("%v", cfg.API.Temperature)},
		{"api.timeout_seconds", fmt.Sprintf("%d", cfg.API.TimeoutSeconds)},
		{"prompt.conventional", fmt.Sprintf("%v", cfg.Prompt.Conventional)},
		{"prompt.custom_instructions", cfg.Prompt.CustomInstructions},
		{"prompt.max_chars", fmt.Sprintf("%d", cfg.Prompt.MaxChars)},
		{"files.max", fmt.Sprintf("%d", cfg.Files.Max)},
		{"files.ignored", fmt.Sprintf("%v", cfg.Files.Ignored)},
		{"files.summarize", fmt.Sprintf("%v", cfg.Files.Summarize)},
		{"history.recent", fmt.Sprintf("%d", cfg.History.Recent)},
	})
	_ = table.Render()

	st, err := (&license.Gate{}).Status()
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout())
	if st.Licensed {
		fmt.Fprintf(cmd.OutOrStdout(), "License: activated (%s)\n", maskKey(st.Key))
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "License: trial, %d of %d uses left\n", st.Remaining, st.Limit)
	}

	return nil
}

func editConfig(cmd *cobra.Command) error {
	saved, err := app.ConfigForm(cfg)
	if err != nil {
		return err
	}
	if !saved {
		fmt.Fprintln(cmd.OutOrStdout(), "No changes saved.")
		return nil
	}
	if err := config.Save(cfg, ""); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Configuration saved to ~/.commitstream.yaml")
	return nil
}

// newKVTable builds a borderless two-column table for config output.
func newKVTable(w io.Writer) *tablewriter.Table {
	return tablewriter.NewTable(w,
		tablewriter.WithConfig(tablewriter.Config{
			Row: tw.CellConfig{
				Formatting: tw.CellFormatting{
					AutoWrap: tw.WrapNone,
				},
				Alignment: tw.CellAlignment{
					Global: tw.AlignLeft,
				},
			},
			Header: tw.CellConfig{
				Formatting: tw.CellFormatting{
					AutoFormat: tw.On,
				},
				Alignment: tw.CellAlignment{
					Global: tw.AlignLeft,
				},
			},
		}),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.BorderNone,
			Settings: tw.Settings{
				Separators: tw.Separators{
					ShowHeader: tw.Off,
				},
			},
		}),
	)
}

// maskKey hides all but the edges of an API or license key.
func maskKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 8 {
		return "********"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
