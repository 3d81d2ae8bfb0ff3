// Package advisor asks a generative-AI endpoint for spending advice based
// on the user's recent transactions. The call is best effort: any failure
// yields a static fallback message, never an error to the caller.
package advisor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"fundbook/internal/core"
)

// FallbackAdvice is returned whenever the advice call cannot complete.
const FallbackAdvice = "Advice is unavailable right now. Keep expenses below income, settle investor dues on schedule, and review your category totals monthly."

const maxPromptTransactions = 50

type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

type Advisor struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

// New builds an advisor against an OpenAI-compatible endpoint. A nil
// return means advice is disabled (missing configuration); callers treat
// that the same as a failed call.
func New(cfg Config) *Advisor {
	if cfg.APIKey == "" || cfg.Model == "" {
		return nil
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Advisor{
		client:  openai.NewClientWithConfig(clientCfg),
		model:   cfg.Model,
		timeout: timeout,
	}
}

// Advise returns advice text for the given transactions and ledgers.
// It never returns an error: failures are logged and replaced with
// FallbackAdvice.
func (a *Advisor) Advise(ctx context.Context, txs []core.Transaction, ledgers []core.InvestorLedger) string {
	if a == nil {
		slog.InfoContext(ctx, "Advisor disabled, returning fallback advice")
		return FallbackAdvice
	}

	cctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	resp, err := a.client.CreateChatCompletion(cctx, openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You are a concise personal finance assistant. Answer in short plain sentences, no markdown.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: BuildPrompt(txs, ledgers),
			},
		},
	})
	if err != nil {
		slog.WarnContext(ctx, "Advice call failed, returning fallback", "error", err)
		return FallbackAdvice
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		slog.WarnContext(ctx, "Advice call returned empty answer, returning fallback")
		return FallbackAdvice
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content)
}

// BuildPrompt serializes recent transactions and investor positions into
// the advice prompt. Only the most recent transactions are included to
// keep the prompt bounded.
func BuildPrompt(txs []core.Transaction, ledgers []core.InvestorLedger) string {
	var b strings.Builder
	b.WriteString("Give practical advice on this finance tracker data.\n\nRecent transactions (date type category amount):\n")

	start := 0
	if len(txs) > maxPromptTransactions {
		start = len(txs) - maxPromptTransactions
	}
	for _, t := range txs[start:] {
		fmt.Fprintf(&b, "%s %s %s %s\n", t.Date.Format("2006-01-02"), t.Type, t.Category, t.Amount)
	}
	if len(txs) == 0 {
		b.WriteString("(none)\n")
	}

	if len(ledgers) > 0 {
		b.WriteString("\nInvestor positions (name principal accrued-interest payments outstanding):\n")
		for _, l := range ledgers {
			fmt.Fprintf(&b, "%s %s %s %s %s\n",
				l.Name, l.Principal, l.AccruedInterest, l.Payments, l.Outstanding)
		}
	}

	b.WriteString("\nAnswer with at most five short suggestions.")
	return b.String()
}
