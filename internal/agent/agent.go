// Package agent runs the autonomous trading conversation: the model reviews
// the portfolio, researches and trades through function calls until it
// writes a final report.
package agent

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/bobmcallan/iacob/internal/common"
	"github.com/bobmcallan/iacob/internal/interfaces"
	"github.com/bobmcallan/iacob/internal/models"
)

// ErrMaxTurns is returned when the model keeps calling tools past the turn
// budget without producing a final answer.
var ErrMaxTurns = errors.New("max turns exceeded")

// DefaultMaxTurns bounds the number of model turns in one run.
const DefaultMaxTurns = 100

// Session is a multi-turn chat. *genai.Chat satisfies it.
type Session interface {
	Send(ctx context.Context, parts ...*genai.Part) (*genai.GenerateContentResponse, error)
	History(curated bool) []*genai.Content
}

// SessionFactory starts a chat seeded with previous history.
type SessionFactory func(ctx context.Context, config *genai.GenerateContentConfig, history []*genai.Content) (Session, error)

// ThreadStore persists the conversation between runs.
type ThreadStore interface {
	Load(ctx context.Context) []*genai.Content
	Save(ctx context.Context, history []*genai.Content) error
}

// Config holds the per-run settings.
type Config struct {
	Market     models.Market
	Name       string
	PromptFile string
	MaxTurns   int
	Notify     bool
}

// Agent wires a chat session to the trading tools.
type Agent struct {
	config    Config
	sessions  SessionFactory
	functions []Function
	library   Library
	threads   ThreadStore
	notifier  interfaces.Notifier
	logger    *common.Logger
	now       func() time.Time
}

// RunResult summarises one completed run.
type RunResult struct {
	Market      models.Market `json:"market"`
	FinalOutput string        `json:"final_output"`
	Turns       int           `json:"turns"`
	ToolCalls   int           `json:"tool_calls"`
	Notified    bool          `json:"notified"`
}

// New creates an agent. notifier may be nil.
func New(config Config, sessions SessionFactory, tools *Tools, threads ThreadStore, notifier interfaces.Notifier, logger *common.Logger) *Agent {
	if config.MaxTurns <= 0 {
		config.MaxTurns = DefaultMaxTurns
	}
	functions := tools.Functions()
	return &Agent{
		config:    config,
		sessions:  sessions,
		functions: functions,
		library:   NewLibrary(functions),
		threads:   threads,
		notifier:  notifier,
		logger:    logger,
		now:       time.Now,
	}
}

// KickoffMessage is the user turn that starts each run.
func KickoffMessage(now time.Time) string {
	return fmt.Sprintf("It's %s. Time for your trading analysis! Review your portfolio, scan the markets for opportunities, and make strategic trades to grow your initial $1,000 investment. Good luck! 📈",
		now.Format("1/2/2006, 3:04:05 PM"))
}

func (a *Agent) loadInstructions() (string, error) {
	data, err := os.ReadFile(a.config.PromptFile)
	if err != nil {
		return "", fmt.Errorf("failed to read system prompt %s: %w", a.config.PromptFile, err)
	}
	prompt := strings.TrimSpace(string(data))
	if prompt == "" {
		return "", fmt.Errorf("system prompt %s is empty", a.config.PromptFile)
	}
	return prompt, nil
}

// Run executes one trading session: load the previous thread, send the
// kick-off message, service tool calls until the model answers in text,
// then save the thread and send the report.
func (a *Agent) Run(ctx context.Context) (*RunResult, error) {
	instructions, err := a.loadInstructions()
	if err != nil {
		return nil, err
	}

	a.logger.Info().Str("market", a.config.Market.String()).Str("assistant", a.config.Name).Msg("Starting agent")

	history := a.threads.Load(ctx)
	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: instructions}}},
		Tools:             []*genai.Tool{{FunctionDeclarations: NewDeclarations(a.functions)}},
	}

	session, err := a.sessions(ctx, config, history)
	if err != nil {
		return nil, err
	}

	result := &RunResult{Market: a.config.Market}
	runErr := a.converse(ctx, session, result)

	if err := a.threads.Save(ctx, session.History(false)); err != nil {
		a.logger.Error().Err(err).Msg("Failed to save thread")
	}
	if runErr != nil {
		return result, runErr
	}

	a.logger.Info().
		Int("turns", result.Turns).
		Int("tool_calls", result.ToolCalls).
		Str("output", result.FinalOutput).
		Msg("🎉 Agent finished")

	if a.config.Notify && a.notifier != nil {
		result.Notified = a.notifier.SendReport(ctx, result.FinalOutput)
	}
	return result, nil
}

func (a *Agent) converse(ctx context.Context, session Session, result *RunResult) error {
	parts := []*genai.Part{{Text: KickoffMessage(a.now())}}

	for result.Turns < a.config.MaxTurns {
		if err := ctx.Err(); err != nil {
			return err
		}

		resp, err := session.Send(ctx, parts...)
		result.Turns++
		if err != nil {
			return fmt.Errorf("model turn %d failed: %w", result.Turns, err)
		}

		calls := functionCalls(resp)
		if len(calls) == 0 {
			result.FinalOutput = responseText(resp)
			return nil
		}

		parts = make([]*genai.Part, 0, len(calls))
		for _, call := range calls {
			result.ToolCalls++
			a.logger.Debug().Str("function", call.Name).Interface("args", call.Args).Msg("Tool call")
			parts = append(parts, &genai.Part{FunctionResponse: a.library(ctx, call)})
		}
	}

	a.logger.Warn().Int("max_turns", a.config.MaxTurns).Msg("Agent stopped before a final answer")
	return fmt.Errorf("%w (%d)", ErrMaxTurns, a.config.MaxTurns)
}

func functionCalls(resp *genai.GenerateContentResponse) []*genai.FunctionCall {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil
	}
	var calls []*genai.FunctionCall
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && part.FunctionCall != nil {
			calls = append(calls, part.FunctionCall)
		}
	}
	return calls
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" && !part.Thought {
			b.WriteString(part.Text)
		}
	}
	return strings.TrimSpace(b.String())
}
