package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/bookwright/steward/internal/compiler"
	"github.com/bookwright/steward/internal/config"
	"github.com/bookwright/steward/internal/governance"
	"github.com/bookwright/steward/internal/override"
	"github.com/bookwright/steward/internal/proposal"
	"github.com/bookwright/steward/internal/replay"
	"github.com/bookwright/steward/internal/server"
	"github.com/bookwright/steward/internal/shadow"
	"github.com/bookwright/steward/internal/sim"
	"github.com/bookwright/steward/internal/store"
)

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP control plane",
		Long: `Start the steward HTTP control plane.

Configuration comes from STEWARD_* environment variables: listen address,
store path, dial pack, environment allow-list, and proposal source. The
server refuses to start when the current environment is not on the
allow-list.

Example:
  STEWARD_ENVIRONMENT=staging \
  STEWARD_ALLOWED_ENVIRONMENTS=staging,sandbox \
  steward serve`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(rootOpts, cmd)
		},
	}
	return cmd
}

func runServe(opts *RootOptions, cmd *cobra.Command) error {
	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load configuration", err)
	}

	gate := cfg.EnvGate()
	if err := gate.Check(); err != nil {
		return WrapExitError(ExitCommandError, "environment gate refused startup", err)
	}

	pack, err := loadPack(cfg.DialPack)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load dial pack", err)
	}
	if errs := compiler.ValidatePack(pack); len(errs) > 0 {
		return WrapExitError(ExitCommandError, "dial pack invalid", errs[0])
	}
	registry, board, err := pack.Board()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build dial board", err)
	}
	logger.Info("dial pack loaded", "pack", pack.Name, "metrics", len(pack.Metrics))

	st, err := store.Open(cfg.StorePath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open store", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing store", "err", closeErr)
		}
	}()
	logger.Info("store ready", "path", cfg.StorePath)

	propOpts := proposal.Options{}
	if cfg.ProposalSourceURL != "" {
		propOpts.External = &proposal.HTTPSource{
			URL:     cfg.ProposalSourceURL,
			Timeout: cfg.ProposalSourceTimeout,
		}
		logger.Info("external proposal source enabled", "url", cfg.ProposalSourceURL)
	}

	srv := server.New(server.Options{
		Engine:     sim.NewEngine(gate, proposal.NewEngine(propOpts, logger), logger),
		Runner:     replay.NewRunner(registry, logger),
		Governance: governance.NewEngine(nil, logger),
		Overrides:  override.NewLog(st),
		Comparator: shadow.NewComparator(registry, board, 0, logger),
		Registry:   registry,
		Board:      board,
		Store:      st,
		Gate:       gate,
		Logger:     logger,
	})

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	errChan := make(chan error, 1)
	go func() {
		errChan <- httpServer.ListenAndServe()
	}()

	logger.Info("control plane listening", "addr", cfg.ListenAddr, "environment", cfg.Environment)
	fmt.Fprintf(cmd.OutOrStdout(), "Listening on %s. Press Ctrl-C to stop.\n", cfg.ListenAddr)

	select {
	case err := <-errChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return WrapExitError(ExitFailure, "server error", err)
		}
	case <-ctx.Done():
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return WrapExitError(ExitFailure, "shutdown error", err)
		}
	}

	logger.Info("control plane stopped")
	return nil
}

// loadPack loads the configured dial pack, falling back to the built-in
// default when no path is set.
func loadPack(path string) (*compiler.Pack, error) {
	if path == "" {
		return compiler.LoadDefault()
	}
	return compiler.LoadFile(path)
}
