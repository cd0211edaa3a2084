package app

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/hoanghonghuy/commitstream/internal/config"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212")) // Pinkish

	messageBoxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")). // Purplish
			Padding(1, 2).
			MarginBottom(1)
)

// ConfigForm launches a TUI form to edit the configuration in place. It
// reports false when the user backed out without submitting.
func ConfigForm(cfg *config.Config) (bool, error) {
	baseURL := cfg.API.BaseURL
	apiKey := cfg.API.Key
	model := cfg.API.Model

	recentStr := fmt.Sprintf("%d", cfg.History.Recent)
	maxFilesStr := fmt.Sprintf("%d", cfg.Files.Max)
	maxTokensStr := fmt.Sprintf("%d", cfg.API.MaxTokens)
	tempStr := fmt.Sprintf("%.2f", cfg.API.Temperature)
	summarize := cfg.Files.Summarize
	conventional := cfg.Prompt.Conventional
	ignoredStr := strings.Join(cfg.Files.Ignored, ", ")
	instructions := cfg.Prompt.CustomInstructions

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("commitstream Configuration").
				Description("Update your global settings in ~/.commitstream.yaml"),

			huh.NewInput().
				Title("Base URL").
				Description("Chat-completions endpoint").
				Placeholder("https://api.openai.com/v1").
				Value(&baseURL),

			huh.NewInput().
				Title("API Key").
				Description("Also read from COMMITSTREAM_API_KEY / OPENAI_API_KEY").
				Value(&apiKey).
				EchoMode(huh.EchoModePassword),

			huh.NewSelect[string]().
				Title("Model").
				Options(huh.NewOptions(config.Models()...)...).
				Value(&model),
		),

		huh.NewGroup(
			huh.NewInput().
				Title("Recent Commits").
				Description("Number of recent commits to include").
				Value(&recentStr).
				Validate(func(s string) error {
					_, err := strconv.Atoi(s)
					return err
				}),

			huh.NewInput().
				Title("Max Files").
				Description("Max staged files sent to the model").
				Value(&maxFilesStr).
				Validate(func(s string) error {
					_, err := strconv.Atoi(s)
					return err
				}),

			huh.NewInput().
				Title("Max Tokens").
				Description("Response token ceiling").
				Value(&maxTokensStr).
				Validate(func(s string) error {
					_, err := strconv.Atoi(s)
					return err
				}),

			huh.NewInput().
				Title("Temperature").
				Description("Sampling temperature (0.0 - 2.0)").
				Value(&tempStr).
				Validate(func(s string) error {
					v, err := strconv.ParseFloat(s, 64)
					if err != nil {
						return err
					}
					if v < 0 || v > 2.0 {
						return fmt.Errorf("must be between 0.0 and 2.0")
					}
					return nil
				}),
		),

		huh.NewGroup(
			huh.NewConfirm().
				Title("Summarize Changes").
				Description("Summarize file content for larger files?").
				Value(&summarize),

			huh.NewConfirm().
				Title("Conventional Commits").
				Description("Enforce Conventional Commits specification?").
				Value(&conventional),
		),

		huh.NewGroup(
			huh.NewInput().
				Title("Ignored Files").
				Description("Glob patterns (comma separated)").
				Value(&ignoredStr),

			huh.NewText().
				Title("Custom Instructions").
				Description("Extra guidance for the model (optional)").
				Value(&instructions),
		),
	)

	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return false, nil
		}
		return false, err
	}

	cfg.API.BaseURL = baseURL
	cfg.API.Key = apiKey
	cfg.API.Model = model

	if v, err := strconv.Atoi(recentStr); err == nil {
		cfg.History.Recent = v
	}
	if v, err := strconv.Atoi(maxFilesStr); err == nil {
		cfg.Files.Max = v
	}
	if v, err := strconv.Atoi(maxTokensStr); err == nil {
		cfg.API.MaxTokens = v
	}
	if v, err := strconv.ParseFloat(tempStr, 64); err == nil {
		cfg.API.Temperature = v
	}
	cfg.Files.Summarize = summarize
	cfg.Prompt.Conventional = conventional
	cfg.Prompt.CustomInstructions = instructions

	var ignores []string
	for _, s := range strings.Split(ignoredStr, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			ignores = append(ignores, s)
		}
	}
	cfg.Files.Ignored = ignores

	return true, nil
}

// Action enum for confirmation
type Action int

const (
	ActionCommit Action = iota
	ActionRegenerate
	ActionEdit
	ActionCancel
)

func confirmCommit(commitMsg string) (Action, error) {
	fmt.Println()
	fmt.Println(titleStyle.Render("Generated Commit Message:"))
	fmt.Println(messageBoxStyle.Render(strings.TrimSpace(commitMsg)))

	var selected string

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("What would you like to do?").
				Options(
					huh.NewOption("Commit (Apply)", "commit"),
					huh.NewOption("Regenerate", "regenerate"),
					huh.NewOption("Edit", "edit"),
					huh.NewOption("Cancel", "cancel"),
				).
				Value(&selected),
		),
	)

	if err := form.Run(); err != nil {
		return ActionCancel, err
	}

	switch selected {
	case "commit":
		return ActionCommit, nil
	case "edit":
		return ActionEdit, nil
	case "regenerate":
		return ActionRegenerate, nil
	default:
		return ActionCancel, nil
	}
}

func editCommitMessage(initialMsg string) (string, error) {
	content := initialMsg

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewText().
				Title("Edit Commit Message").
				Description("Modify the message below (Press Esc+Enter or standard submit key to finish)").
				Value(&content),
		),
	)

	if err := form.Run(); err != nil {
		return "", err
	}
	return content, nil
}

func confirmRegenerate() (bool, error) {
	again := true

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Generation cancelled").
				Description("Try again?").
				Affirmative("Regenerate").
				Negative("Quit").
				Value(&again),
		),
	)

	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return false, nil
		}
		return false, err
	}
	return again, nil
}
