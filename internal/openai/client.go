// Package openai implements the streaming chat-completions session. One
// Client owns the endpoint configuration; each StreamCommitMessage call is
// a single-request session that feeds response bytes through the sse parser
// and hands the growing text to the caller's sink.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hoanghonghuy/commitstream/internal/ai"
	"github.com/hoanghonghuy/commitstream/internal/prompt"
	"github.com/hoanghonghuy/commitstream/internal/sse"
)

const (
	defaultBaseURL   = "https://api.openai.com/v1"
	defaultMaxTokens = 256
	defaultTimeout   = 120 * time.Second
	maxErrorBody     = 32 << 10
)

type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
	Logger      *slog.Logger
}

type Client struct {
	cfg  Config
	http *http.Client
	log  *slog.Logger
}

var _ ai.StreamingProvider = (*Client)(nil)

func New(cfg Config) *Client {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	if cfg.Timeout <= 0 {
		// The response body is a stream, so this is a ceiling on the whole
		// exchange, not a read deadline.
		cfg.Timeout = defaultTimeout
	}
	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		log:  log,
	}
}

// ProviderError is a non-success answer from the completion endpoint,
// carrying the provider's own error code when the body yields one.
type ProviderError struct {
	StatusCode int
	Code       string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider rejected request: status %d, code %q", e.StatusCode, e.Code)
}

// TransportError is a connection-level failure before or during streaming.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return "transport failure: " + e.Err.Error() }
func (e *TransportError) Unwrap() error { return e.Err }

type chatReq struct {
	Model       string           `json:"model"`
	Messages    []prompt.Message `json:"messages"`
	MaxTokens   int              `json:"max_tokens"`
	Stream      bool             `json:"stream"`
	Temperature float64          `json:"temperature,omitempty"`
}

type errorResp struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// StreamCommitMessage opens one streaming completion request. onText is
// called with the cumulative text after every fragment. A nil result with a
// nil error means ctx was cancelled; cancellation is not an error. Failures
// are *ProviderError, *sse.MalformedChunkError or *TransportError, and are
// never retried here.
func (c *Client) StreamCommitMessage(ctx context.Context, msgs []prompt.Message, onText func(string)) (*ai.Result, error) {
	if onText == nil {
		onText = func(string) {}
	}

	payload, err := json.Marshal(chatReq{
		Model:       c.cfg.Model,
		Messages:    msgs,
		MaxTokens:   c.cfg.MaxTokens,
		Stream:      true,
		Temperature: c.cfg.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	url := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	if strings.TrimSpace(c.cfg.APIKey) != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	log := c.log.With("request_id", uuid.NewString())
	log.Debug("starting completion stream", "model", c.cfg.Model, "messages", len(msgs))

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			log.Debug("cancelled before a response arrived")
			return nil, nil
		}
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, rejection(resp, log)
	}

	return consume(ctx, resp.Body, onText, log)
}

// rejection reads the whole error body and extracts the provider's error
// code; an unreadable or codeless body is reported as "unknown".
func rejection(resp *http.Response, log *slog.Logger) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	perr := &ProviderError{StatusCode: resp.StatusCode, Code: "unknown"}
	var er errorResp
	if err := json.Unmarshal(body, &er); err == nil && er.Error.Code != "" {
		perr.Code = er.Error.Code
	}
	log.Debug("provider rejected request", "status", perr.StatusCode, "code", perr.Code)
	return perr
}

// consume drives the chunk loop strictly in order (read, check cancellation,
// parse, append, sink) so no fragment is ever delivered out of arrival order
// and none is delivered after cancellation was requested.
func consume(ctx context.Context, body io.Reader, onText func(string), log *slog.Logger) (*ai.Result, error) {
	var parser sse.Parser
	var out strings.Builder
	deltas := 0

	buf := make([]byte, 4096)
	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			if cerr := ctx.Err(); cerr != nil {
				if errors.Is(cerr, context.Canceled) {
					log.Debug("cancelled mid-stream", "deltas", deltas)
					return nil, nil
				}
				return nil, &TransportError{Err: cerr}
			}
			ds, perr := parser.Feed(buf[:n])
			for _, d := range ds {
				out.WriteString(d.Content)
				deltas++
				onText(out.String())
			}
			if perr != nil {
				log.Debug("stream carried a malformed chunk", "deltas", deltas)
				return nil, perr
			}
			if parser.Done() {
				break
			}
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				break
			}
			if errors.Is(ctx.Err(), context.Canceled) {
				log.Debug("cancelled mid-stream", "deltas", deltas)
				return nil, nil
			}
			if cerr := ctx.Err(); cerr != nil {
				return nil, &TransportError{Err: cerr}
			}
			return nil, &TransportError{Err: readErr}
		}
	}

	if errors.Is(ctx.Err(), context.Canceled) {
		log.Debug("cancelled at stream end", "deltas", deltas)
		return nil, nil
	}
	text := out.String()
	log.Debug("stream complete", "deltas", deltas, "chars", len(text))
	return &ai.Result{Text: text}, nil
}
