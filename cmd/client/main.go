package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"unit-converter/internal/app"
	"unit-converter/internal/converter"
	"unit-converter/internal/orchestrator"
	"unit-converter/internal/repl"
	"unit-converter/internal/toolclient"
	"unit-converter/internal/toolserver"
	"unit-converter/internal/units"
	"unit-converter/internal/version"
)

// unitsSource reads the supported units document from the tool server.
type unitsSource interface {
	SupportedUnits(ctx context.Context) (string, error)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "unitconv",
		Short:        "Chat with a local LLM that converts units through an MCP tool server",
		Version:      version.String("unitconv"),
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := app.Build(app.ClientLogLevel)
			if err != nil {
				slog.Default().Error("failed to build dependencies", "err", err)
				return err
			}
			return runChat(cmd.Context(), deps, cmd.OutOrStdout())
		},
	}
	cmd.SetVersionTemplate("{{.Version}}\n")
	cmd.AddCommand(newConvertCmd(), newUnitsCmd())
	return cmd
}

func newConvertCmd() *cobra.Command {
	var precision int
	cmd := &cobra.Command{
		Use:   "convert <value> <from_unit> <to_unit>",
		Short: "Convert a value directly, without the LLM",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			var p *int
			if cmd.Flags().Changed("precision") {
				p = &precision
			}
			return withTools(cmd.Context(), func(ctx context.Context, tools *toolclient.Client) error {
				return runConvert(ctx, tools, cmd.OutOrStdout(), args, p)
			})
		},
	}
	cmd.Flags().IntVarP(&precision, "precision", "p", converter.DefaultPrecision, "decimal places in the result (0-12)")
	return cmd
}

func newUnitsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "units",
		Short: "List supported units by category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withTools(cmd.Context(), func(ctx context.Context, tools *toolclient.Client) error {
				return runUnits(ctx, tools, cmd.OutOrStdout())
			})
		},
	}
}

// withTools builds dependencies and a tool server session for fn.
func withTools(ctx context.Context, fn func(context.Context, *toolclient.Client) error) error {
	deps, err := app.Build(app.ClientLogLevel)
	if err != nil {
		slog.Default().Error("failed to build dependencies", "err", err)
		return err
	}
	tools, err := app.ConnectTools(ctx, deps)
	if err != nil {
		return err
	}
	defer tools.Close()
	return fn(ctx, tools)
}

func runChat(ctx context.Context, deps app.Deps, out io.Writer) error {
	client, err := app.BuildClient(ctx, deps)
	if err != nil {
		return err
	}
	defer client.Tools.Close()

	defs, err := client.Tools.Tools(ctx)
	if err != nil {
		return err
	}
	unitsJSON, err := client.Tools.SupportedUnits(ctx)
	if err != nil {
		return err
	}
	deps.Log.Info("connected to tool server", "tools", len(defs))

	orch := orchestrator.New(client.LLM, client.Tools, defs, deps.Log)
	conv := orchestrator.NewConversation(orchestrator.SystemPrompt(unitsJSON))

	line := repl.NewLiner(deps.Config.HistoryFile)
	defer line.Close()
	return repl.New(line, orch, conv, out, deps.Log).Run(ctx)
}

func runConvert(ctx context.Context, tools orchestrator.ToolCaller, out io.Writer, args []string, precision *int) error {
	value, err := strconv.ParseFloat(strings.TrimSpace(args[0]), 64)
	if err != nil {
		return fmt.Errorf("invalid value %q: %w", args[0], err)
	}
	callArgs := map[string]any{
		"value":     value,
		"from_unit": args[1],
		"to_unit":   args[2],
	}
	if precision != nil {
		callArgs["precision"] = *precision
	}

	res, err := tools.CallTool(ctx, toolserver.ConvertToolName, callArgs)
	if err != nil {
		return err
	}
	if res.IsError {
		if toolErr, ok := toolserver.DecodeError(res.Text); ok {
			return fmt.Errorf("%s: %s", toolErr.Code, toolErr.Message)
		}
		return fmt.Errorf("conversion failed: %s", res.Text)
	}

	var result converter.Result
	if err := json.Unmarshal([]byte(res.Text), &result); err != nil {
		return fmt.Errorf("decode conversion result: %w", err)
	}
	_, err = fmt.Fprintln(out, result.String())
	return err
}

func runUnits(ctx context.Context, src unitsSource, out io.Writer) error {
	raw, err := src.SupportedUnits(ctx)
	if err != nil {
		return err
	}
	var groups map[units.Category][]units.Definition
	if err := json.Unmarshal([]byte(raw), &groups); err != nil {
		return fmt.Errorf("decode supported units: %w", err)
	}
	for _, cat := range units.Categories {
		defs, ok := groups[cat]
		if !ok {
			continue
		}
		fmt.Fprintf(out, "%s:\n", cat)
		for _, d := range defs {
			line := fmt.Sprintf("  %-4s %s", d.Symbol, d.Name)
			if len(d.Aliases) > 0 {
				line += " (" + strings.Join(d.Aliases, ", ") + ")"
			}
			fmt.Fprintln(out, line)
		}
	}
	return nil
}
