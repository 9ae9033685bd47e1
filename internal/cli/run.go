package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/bookwright/steward/internal/event"
	"github.com/bookwright/steward/internal/metrics"
	"github.com/bookwright/steward/internal/proposal"
	"github.com/bookwright/steward/internal/sim"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Seed      uint32
	Ticks     int
	Domains   []string
	Proposals bool
}

// RunResult is the outcome of an offline run.
type RunResult struct {
	Seed      uint32              `json:"seed"`
	Ticks     int                 `json:"ticks"`
	Events    []event.Event       `json:"events"`
	Metrics   map[string]float64  `json:"metrics"`
	Dials     metrics.Snapshot    `json:"dials"`
	Proposals []proposal.Proposal `json:"proposals,omitempty"`
}

// allowAll is the offline gate: local runs never touch a deployment
// environment, so the allow-list does not apply.
type allowAll struct{}

func (allowAll) Check() error { return nil }

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the simulation offline for a fixed number of ticks",
		Long: `Run a seeded simulation offline and print the resulting event trace,
metric values, and dial readings. The same seed and configuration always
produce the same trace.

Examples:
  steward run --seed 7 --ticks 10
  steward run --seed 7 --ticks 10 --domains booking-load,payments --proposals
  steward run --seed 7 --ticks 10 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOffline(opts, cmd)
		},
	}

	cmd.Flags().Uint32Var(&opts.Seed, "seed", 1, "RNG seed")
	cmd.Flags().IntVar(&opts.Ticks, "ticks", 10, "number of ticks to simulate")
	cmd.Flags().StringSliceVar(&opts.Domains, "domains", sim.DomainNames(), "domains to activate")
	cmd.Flags().BoolVar(&opts.Proposals, "proposals", false, "enable proposal generation")

	return cmd
}

func runOffline(opts *RunOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	if opts.Ticks < 1 {
		return NewExitError(ExitCommandError, "ticks must be >= 1")
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	var generator sim.ProposalGenerator
	if opts.Proposals {
		generator = proposal.NewEngine(proposal.Options{}, logger)
	}
	engine := sim.NewEngine(allowAll{}, generator, logger)
	err := engine.Start(sim.Config{
		Seed:             opts.Seed,
		Domains:          opts.Domains,
		ProposalsEnabled: opts.Proposals,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to start engine", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	for i := 0; i < opts.Ticks; i++ {
		if _, err := engine.Tick(ctx); err != nil {
			return WrapExitError(ExitFailure, fmt.Sprintf("tick %d failed", i+1), err)
		}
	}

	registry := metrics.MustDefaultRegistry()
	board, err := metrics.NewBoard(registry, metrics.DefaultDials())
	if err != nil {
		return WrapExitError(ExitFailure, "failed to build dial board", err)
	}

	events := engine.Events(0)
	values := metrics.Extract(registry, events)

	result := RunResult{
		Seed:      opts.Seed,
		Ticks:     opts.Ticks,
		Events:    events,
		Metrics:   values,
		Dials:     board.Snapshot(values),
		Proposals: engine.Proposals(),
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	return printRunText(formatter, result)
}

func printRunText(formatter *OutputFormatter, result RunResult) error {
	w := formatter.Writer

	fmt.Fprintf(w, "Run complete: seed=%d ticks=%d events=%d\n\n",
		result.Seed, result.Ticks, len(result.Events))

	for _, e := range result.Events {
		fmt.Fprintf(w, "  tick %3d  %-14s %s\n", e.Tick, e.Domain, e.Type)
	}

	fmt.Fprintln(w, "\nDials:")
	for _, id := range result.Dials.SortedMetrics() {
		r := result.Dials[id]
		fmt.Fprintf(w, "  %-28s %-6s %.4f\n", id, r.Zone, r.Value)
	}

	if len(result.Proposals) > 0 {
		fmt.Fprintln(w, "\nProposals (last tick):")
		for _, p := range result.Proposals {
			fmt.Fprintf(w, "  %s  %s/%s  confidence=%.2f\n", p.ID, p.Domain, p.Action, p.Confidence)
		}
	}
	return nil
}
