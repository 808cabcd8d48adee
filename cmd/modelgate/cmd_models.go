package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"modelgate/internal/gateway"
	"modelgate/internal/generation"
	"modelgate/internal/status"
	"modelgate/internal/structured"
)

var (
	statusJSON     bool
	generateModel  string
	generateShape  string
	generateAPIKey string
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show ranked models and their availability for the caller",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		_, a, err := loadApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Shutdown(cmd.Context()) //nolint:errcheck

		report, err := a.Session(callerID).Status(cmd.Context())
		if err != nil {
			return err
		}
		if statusJSON {
			return writeJSON(cmd.OutOrStdout(), report)
		}
		return writeReport(cmd.OutOrStdout(), report)
	},
}

var selectCmd = &cobra.Command{
	Use:   "select <model-id>",
	Short: "Store the caller's model choice",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, a, err := loadApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Shutdown(cmd.Context()) //nolint:errcheck

		return runSelect(cmd.Context(), cmd.OutOrStdout(), a.Session(callerID), args[0])
	},
}

type modelSelector interface {
	Select(ctx context.Context, id string) error
	IsUnavailable(ctx context.Context, id string) (bool, error)
}

func runSelect(ctx context.Context, w io.Writer, sess modelSelector, raw string) error {
	id := strings.TrimSpace(raw)
	if err := sess.Select(ctx, id); err != nil {
		return err
	}
	unavailable, err := sess.IsUnavailable(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "selected %s\n", id)
	if unavailable {
		fmt.Fprintln(w, "warning: this model is currently rate limited")
	}
	return nil
}

var generateCmd = &cobra.Command{
	Use:   "generate <prompt>",
	Short: "Run one generation call with the caller's model",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, a, err := loadApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Shutdown(cmd.Context()) //nolint:errcheck

		prompt := strings.Join(args, " ")
		opts := generation.Options{Model: generateModel, APIKey: generateAPIKey}
		sess := a.Session(callerID)

		if generateShape == "" {
			res, err := sess.Generate(cmd.Context(), prompt, opts)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Text)
			return nil
		}

		shape, err := structured.ParseShape(generateShape)
		if err != nil {
			return err
		}
		data, model, err := gateway.GenerateInto(cmd.Context(), sess, prompt, opts, shape, structured.ForShape(shape))
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), map[string]any{"model": model, "data": data})
	},
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Print the report as JSON")

	generateCmd.Flags().StringVar(&generateModel, "model", "", "Model id overriding the caller's selection")
	generateCmd.Flags().StringVar(&generateShape, "shape", "", "Parse the reply as JSON: array or object")
	generateCmd.Flags().StringVar(&generateAPIKey, "api-key", "", "Upstream key overriding GEMINI_API_KEY")
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeReport(w io.Writer, report *status.Report) error {
	fmt.Fprintf(w, "selected: %s", report.SelectedID)
	if !report.CurrentAvailable {
		fmt.Fprint(w, " (rate limited)")
	}
	fmt.Fprintln(w)
	if report.AllExhausted {
		fmt.Fprintf(w, "all models exhausted, next available %s\n", formatTime(report.NextAvailable()))
	}
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "MODEL\tSCORE\tSTATE\tTAGS")
	for _, m := range report.Models {
		state := "available"
		if m.Disabled {
			state = "cooldown"
			if m.AvailableAt != nil {
				state += " until " + formatTime(*m.AvailableAt)
			}
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", m.ID, m.Score, state, strings.Join(m.Tags, ","))
	}
	return tw.Flush()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	return t.Local().Format(time.DateTime)
}
