package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/bookwright/steward/internal/metrics"
	"github.com/bookwright/steward/internal/replay"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay <request.json>",
		Short: "Run a counterfactual replay from a request file",
		Long: `Run a counterfactual replay described by a JSON request file.

The request names the simulation config (seed, domains, tuning), the tick
range, and the intervention variants to fork. Every variant is diffed
against the zero-intervention baseline. Identical requests always produce
reports with identical content hashes.

Example request:
  {
    "config": {"seed": 7, "domains": ["booking-load", "payments"]},
    "startTick": 1,
    "endTick": 20,
    "variants": [
      {
        "name": "throttled",
        "interventions": [
          {"tick": 5, "domain": "booking-load", "action": "throttle-bookings"}
        ]
      }
    ]
  }

Examples:
  steward replay request.json
  steward replay request.json --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, args[0], cmd)
		},
	}

	return cmd
}

func runReplay(opts *ReplayOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read request file", err)
	}

	var req replay.Request
	if err := json.Unmarshal(data, &req); err != nil {
		return WrapExitError(ExitCommandError, "failed to parse request file", err)
	}
	if err := req.Validate(); err != nil {
		return WrapExitError(ExitCommandError, "invalid replay request", err)
	}

	formatter.VerboseLog("replaying ticks %d..%d with %d variant(s)",
		req.StartTick, req.EndTick, len(req.Variants))

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	runner := replay.NewRunner(metrics.MustDefaultRegistry(), logger)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	report, err := runner.Run(ctx, req)
	if err != nil {
		return WrapExitError(ExitFailure, "replay failed", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(report)
	}
	return printReplayText(formatter, report)
}

func printReplayText(formatter *OutputFormatter, report *replay.Report) error {
	w := formatter.Writer

	fmt.Fprintf(w, "Replay %s: ticks %d..%d\n", report.RunID, report.StartTick, report.EndTick)
	fmt.Fprintf(w, "Hash: %s\n\n", report.Hash)
	fmt.Fprintf(w, "Baseline: %d events\n", report.Baseline.Summary.EventCount)

	for _, vr := range report.Variants {
		fmt.Fprintf(w, "\nVariant %q: %d events, %d event diff(s)\n",
			vr.Variant.Name, vr.Variant.Summary.EventCount, len(vr.EventDiffs))
		for _, d := range vr.EventDiffs {
			fmt.Fprintf(w, "  %s/%s: baseline=%d variant=%d\n",
				d.Domain, d.Type, d.BaselineCount, d.VariantCount)
		}
		for _, md := range vr.MetricDeltas {
			fmt.Fprintf(w, "  %s: %+.4f (baseline=%.4f variant=%.4f)\n",
				md.Key, md.Delta, md.Baseline, md.Variant)
		}
	}
	return nil
}
