// Package repl runs the interactive chat loop on top of the orchestrator.
package repl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/peterh/liner"

	"unit-converter/internal/orchestrator"
)

const (
	prompt  = "You: "
	welcome = "Connected to the unit converter. Enter your query (type 'exit' to quit)."
	goodbye = "Exiting..."
)

// Prompter reads one line of user input.
type Prompter interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
}

// TurnHandler answers one user turn within a conversation.
type TurnHandler interface {
	HandleTurn(ctx context.Context, conv *orchestrator.Conversation, input string) (string, error)
}

// REPL reads user turns until exit, EOF or Ctrl+C at the prompt.
type REPL struct {
	in    Prompter
	turns TurnHandler
	conv  *orchestrator.Conversation
	out   io.Writer
	log   *slog.Logger
}

// New builds a REPL writing replies to out.
func New(in Prompter, turns TurnHandler, conv *orchestrator.Conversation, out io.Writer, log *slog.Logger) *REPL {
	return &REPL{in: in, turns: turns, conv: conv, out: out, log: log}
}

// Run loops until the user leaves or ctx is done. Failed turns are printed
// and the loop continues.
func (r *REPL) Run(ctx context.Context) error {
	fmt.Fprintln(r.out, welcome)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		line, err := r.in.Prompt(prompt)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
				fmt.Fprintln(r.out)
				fmt.Fprintln(r.out, goodbye)
				return nil
			}
			return fmt.Errorf("read input: %w", err)
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}
		r.in.AppendHistory(input)
		if strings.EqualFold(input, "exit") || strings.EqualFold(input, "quit") {
			fmt.Fprintln(r.out, goodbye)
			return nil
		}

		reply, err := r.turn(ctx, input)
		if err != nil {
			r.log.Error("turn failed", "conversation_id", r.conv.ID, "err", err)
			fmt.Fprintf(r.out, "Error: %v\n", err)
			continue
		}
		fmt.Fprintf(r.out, "Assistant: %s\n", reply)
	}
}

// turn runs one turn; Ctrl+C cancels it without leaving the loop.
func (r *REPL) turn(ctx context.Context, input string) (string, error) {
	turnCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()
	return r.turns.HandleTurn(turnCtx, r.conv, input)
}

// Liner is a Prompter with line editing and a persisted history file.
type Liner struct {
	state       *liner.State
	historyFile string
}

// NewLiner takes over the terminal. An empty historyFile disables history
// persistence. Call Close to restore the terminal.
func NewLiner(historyFile string) *Liner {
	state := liner.NewLiner()
	state.SetCtrlCAborts(true)
	l := &Liner{state: state, historyFile: historyFile}
	if historyFile != "" {
		if f, err := os.Open(historyFile); err == nil {
			_, _ = state.ReadHistory(f)
			_ = f.Close()
		}
	}
	return l
}

func (l *Liner) Prompt(p string) (string, error) {
	return l.state.Prompt(p)
}

func (l *Liner) AppendHistory(item string) {
	l.state.AppendHistory(item)
}

// Close saves history and restores the terminal.
func (l *Liner) Close() error {
	if l.historyFile != "" {
		if f, err := os.OpenFile(l.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600); err == nil {
			_, _ = l.state.WriteHistory(f)
			_ = f.Close()
		}
	}
	return l.state.Close()
}
