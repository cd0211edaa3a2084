// Package app ties the pieces together: it assembles the prompt from the
// staged diff, drives a streaming generation through the coordinator, and
// walks the user through commit, edit, regenerate or cancel.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/hoanghonghuy/commitstream/internal/ai"
	"github.com/hoanghonghuy/commitstream/internal/config"
	"github.com/hoanghonghuy/commitstream/internal/gitx"
	"github.com/hoanghonghuy/commitstream/internal/license"
	"github.com/hoanghonghuy/commitstream/internal/openai"
	"github.com/hoanghonghuy/commitstream/internal/prompt"
	"github.com/hoanghonghuy/commitstream/internal/sse"
)

var defaultIgnores = []string{
	"go.sum", "package-lock.json", "yarn.lock", "pnpm-lock.yaml",
	"*.map", "*.svg", "*.min.js", "*.min.css",
}

const maxDiffSize = 100 * 1024 // 100KB

// App carries the resolved configuration and shared collaborators for one
// invocation.
type App struct {
	Cfg  *config.Config
	Log  *slog.Logger
	Gate *license.Gate
}

func New(cfg *config.Config, log *slog.Logger) *App {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &App{Cfg: cfg, Log: log, Gate: &license.Gate{}}
}

// SuggestOptions are the per-invocation inputs that do not belong in the
// config file.
type SuggestOptions struct {
	RepoArg          string
	InstructionsPath string
	HookFile         string
}

// Suggest runs one interactive generation flow. With HookFile set the
// accepted message is written there instead of committed.
func (a *App) Suggest(ctx context.Context, opts SuggestOptions) error {
	if err := a.Cfg.RequireAPIKey(); err != nil {
		return err
	}
	if err := a.Gate.Check(); err != nil {
		return err
	}

	repoRoot, err := gitx.ResolveRepoRoot(ctx, opts.RepoArg)
	if err != nil {
		return err
	}

	msgs, err := a.assembleMessages(ctx, repoRoot, opts)
	if err != nil {
		return err
	}

	provider := openai.New(openai.Config{
		BaseURL:     a.Cfg.API.BaseURL,
		APIKey:      a.Cfg.API.Key,
		Model:       a.Cfg.API.Model,
		MaxTokens:   a.Cfg.API.MaxTokens,
		Temperature: a.Cfg.API.Temperature,
		Timeout:     a.Cfg.Timeout(),
		Logger:      a.Log,
	})

	return a.generationLoop(ctx, repoRoot, provider, msgs, opts.HookFile)
}

// DumpPrompt writes the exact messages a suggest run would send, as
// indented JSON, to outPath or stdout.
func (a *App) DumpPrompt(ctx context.Context, opts SuggestOptions, outPath string) error {
	repoRoot, err := gitx.ResolveRepoRoot(ctx, opts.RepoArg)
	if err != nil {
		return err
	}
	msgs, err := a.assembleMessages(ctx, repoRoot, opts)
	if err != nil {
		return err
	}
	return writeJSON(msgs, outPath)
}

func (a *App) assembleMessages(ctx context.Context, repoRoot string, opts SuggestOptions) ([]prompt.Message, error) {
	instructions, err := a.customInstructions(opts)
	if err != nil {
		return nil, err
	}

	data, err := a.buildPromptData(ctx, repoRoot, instructions)
	if err != nil {
		return nil, err
	}

	msgs := prompt.BuildMessages(data)
	if a.Cfg.Prompt.Conventional {
		msgs = append(msgs, prompt.ConventionalReminder())
	}

	if total := prompt.TotalChars(msgs); total > a.Cfg.Prompt.MaxChars {
		return nil, fmt.Errorf("assembled prompt is %d characters, over the %d limit: stage fewer files or raise prompt.max_chars", total, a.Cfg.Prompt.MaxChars)
	}
	return msgs, nil
}

func (a *App) customInstructions(opts SuggestOptions) (string, error) {
	text := a.Cfg.Prompt.CustomInstructions
	if strings.TrimSpace(opts.InstructionsPath) != "" {
		b, err := os.ReadFile(opts.InstructionsPath)
		if err != nil {
			return "", fmt.Errorf("read instructions file: %w", err)
		}
		text = string(b)
	}
	if s := strings.TrimSpace(text); s != "" && utf8.RuneCountInString(s) < config.MinInstructionLen {
		return "", fmt.Errorf("custom instructions too short: need at least %d characters", config.MinInstructionLen)
	}
	return text, nil
}

func (a *App) buildPromptData(ctx context.Context, repoRoot, customInstructions string) (prompt.Data, error) {
	repoName := gitx.RepoNameFromRoot(repoRoot)

	branch, _ := gitx.CurrentBranch(ctx, repoRoot)
	userEmail, _ := gitx.GitConfig(ctx, repoRoot, "user.email")

	recentN := a.Cfg.History.Recent
	userCommits, _ := gitx.RecentCommitsByAuthor(ctx, repoRoot, recentN, userEmail)
	repoCommits, _ := gitx.RecentCommits(ctx, repoRoot, recentN)

	// Fetch more changes initially to account for filtering
	maxFiles := a.Cfg.Files.Max
	fetchFiles := max(maxFiles*2, 20)
	changes, err := gitx.StagedChanges(ctx, repoRoot, fetchFiles)
	if err != nil {
		if errors.Is(err, gitx.ErrNoStagedChanges) {
			return prompt.Data{}, errors.New("no staged changes. Run: git add -A")
		}
		return prompt.Data{}, err
	}

	allIgnores := append(slices.Clone(defaultIgnores), a.Cfg.Files.Ignored...)

	filtered := make([]prompt.Change, 0, maxFiles)
	for _, ch := range changes {
		if len(filtered) >= maxFiles {
			break
		}
		if shouldIgnore(ch.Path, allIgnores) {
			continue
		}

		if len(ch.Diff) > maxDiffSize {
			ch.Diff = ch.Diff[:2000] + "\n...[Diff truncated due to size]..."
		}

		attachment := ""
		if ch.Status != gitx.StatusDeleted {
			origPath := ch.Path
			if ch.OldPath != "" {
				origPath = ch.OldPath
			}
			orig, _ := gitx.OriginalFileAtHEAD(ctx, repoRoot, origPath)
			if strings.TrimSpace(orig) == "" {
				orig, _ = gitx.ReadWorkingTreeFile(repoRoot, ch.Path)
			}
			if len(orig) > maxDiffSize {
				orig = orig[:2000] + "\n...[Content truncated due to size]..."
			}
			if strings.TrimSpace(orig) != "" {
				attachment = prompt.BuildAttachment(repoRoot, ch.Path, orig, a.Cfg.Files.Summarize)
			}
		}

		filtered = append(filtered, prompt.Change{
			Path:         ch.Path,
			OldPath:      ch.OldPath,
			Status:       ch.Status,
			Diff:         ch.Diff,
			OriginalCode: attachment,
		})
	}

	if len(filtered) == 0 {
		return prompt.Data{}, fmt.Errorf("all staged files were ignored (checked %d files)", len(changes))
	}

	return prompt.Data{
		RepositoryName:     repoName,
		BranchName:         branch,
		RecentUserCommits:  userCommits,
		RecentRepoCommits:  repoCommits,
		Changes:            filtered,
		CustomInstructions: customInstructions,
		SystemTemplate:     a.Cfg.Prompt.Template,
	}, nil
}

func shouldIgnore(path string, ignores []string) bool {
	base := filepath.Base(path)
	for _, ign := range ignores {
		if ign == base || ign == path {
			return true
		}
		if matched, _ := filepath.Match(ign, base); matched {
			return true
		}
	}
	return false
}

func (a *App) generationLoop(ctx context.Context, repoRoot string, provider ai.StreamingProvider, msgs []prompt.Message, hookFile string) error {
	coord := ai.NewCoordinator(a.Log, nil)

	for {
		render := newStreamRenderer(os.Stdout)

		// Ctrl+C while streaming cancels the generation, not the program.
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt)
		stop := make(chan struct{})
		go func() {
			select {
			case <-sigCh:
				coord.CancelActive()
			case <-stop:
			}
		}()

		var (
			res    *ai.Result
			genErr error
		)
		render.Start()
		coord.Trigger(ctx, func(runCtx context.Context) {
			res, genErr = provider.StreamCommitMessage(runCtx, msgs, render.OnText)
		})
		render.Finish()
		signal.Stop(sigCh)
		close(stop)

		if genErr != nil {
			return describeFailure(genErr)
		}
		if res == nil {
			fmt.Println("Generation cancelled.")
			again, err := confirmRegenerate()
			if err != nil {
				return err
			}
			if !again {
				if hookFile != "" {
					return errors.New("commit message generation cancelled")
				}
				return nil
			}
			continue
		}

		if err := a.Gate.Record(); err != nil {
			a.Log.Warn("could not record trial use", "error", err)
		}

		commitMsg, ok := prompt.ExtractOneTextCodeBlock(res.Text)
		if !ok {
			fmt.Fprintln(os.Stderr, "Warning: model formatting issue (raw output shown below)")
			commitMsg = res.Text
		}

		// Inner Confirmation Loop
		for {
			action, err := confirmCommit(commitMsg)
			if err != nil {
				return err
			}

			switch action {
			case ActionCommit:
				if hookFile != "" {
					// Hook mode: Write to file instead of running git commit
					if err := os.WriteFile(hookFile, []byte(commitMsg), 0644); err != nil {
						return fmt.Errorf("write hook file: %w", err)
					}
					fmt.Println("Message generated for git hook.")
					return nil
				}
				if err := gitx.Commit(ctx, repoRoot, commitMsg); err != nil {
					return err
				}
				fmt.Println("Commit successful!")
				return nil

			case ActionEdit:
				newMsg, err := editCommitMessage(commitMsg)
				if err != nil {
					return err
				}
				commitMsg = newMsg
				// Stay in confirmation loop to approve the new message
				continue

			case ActionRegenerate:
				fmt.Println("Regenerating...")
				goto NextGeneration

			case ActionCancel:
				fmt.Println("Cancelled.")
				if hookFile != "" {
					return errors.New("commit cancelled by user")
				}
				return nil
			}
		}
	NextGeneration:
	}
}

// describeFailure turns the session error taxonomy into actionable
// one-liners; anything unrecognized passes through unchanged.
func describeFailure(err error) error {
	var perr *openai.ProviderError
	var merr *sse.MalformedChunkError
	var terr *openai.TransportError
	switch {
	case errors.As(err, &perr):
		return fmt.Errorf("the provider rejected the request (status %d, code %q); check your key, model and quota", perr.StatusCode, perr.Code)
	case errors.As(err, &merr):
		return fmt.Errorf("the response stream was malformed: %w", merr)
	case errors.As(err, &terr):
		return fmt.Errorf("could not reach the provider: %w", terr.Err)
	}
	return err
}

func writeJSON(msgs []prompt.Message, outPath string) error {
	if strings.TrimSpace(outPath) == "" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(msgs)
	}
	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(msgs); err != nil {
		return fmt.Errorf("write json: %w", err)
	}
	return nil
}
