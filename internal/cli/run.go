package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/resinker/resinker/internal/engine"
	"github.com/resinker/resinker/internal/sink"
	"github.com/resinker/resinker/internal/spec"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Config string
	Seed   int64

	seedSet bool
}

// RunSummary is the machine-readable run report.
type RunSummary struct {
	EventsEmitted     int              `json:"events_emitted"`
	SimulatedDuration string           `json:"simulated_duration"`
	WallDuration      string           `json:"wall_duration"`
	TerminationReason string           `json:"termination_reason"`
	Seed              int64            `json:"seed"`
	DroppedEvents     map[string]int64 `json:"dropped_events,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a simulation from a YAML config",
		Long: `Run an event stream simulation.

The simulator loads the configuration (merging any imports), seeds the
entity store, and emits events to the configured outputs until a budget
is reached or the candidate pool starves.

Example:
  resinker run -c ./sim.yaml
  resinker run -c ./sim.yaml --seed 42 --verbose`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.seedSet = cmd.Flags().Changed("seed")
			return runSimulation(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Config, "config", "c", "", "path to simulation config (required)")
	cmd.Flags().Int64Var(&opts.Seed, "seed", 0, "override the config's random_seed")
	_ = cmd.MarkFlagRequired("config")

	return cmd
}

func runSimulation(opts *RunOptions, cmd *cobra.Command) error {
	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	slog.Info("loading config", "path", opts.Config)
	doc, err := spec.Load(opts.Config)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}

	sinks, err := sink.Build(doc.Outputs, logger)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build outputs", err)
	}
	fanout := sink.NewFanout(sinks, logger)

	engineOpts := []engine.Option{engine.WithLogger(logger)}
	if opts.seedSet {
		engineOpts = append(engineOpts, engine.WithSeed(opts.Seed))
	}
	eng, err := engine.New(doc, fanout, engineOpts...)
	if err != nil {
		_ = fanout.Close()
		return WrapExitError(ExitCommandError, "failed to initialize engine", err)
	}

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 2)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, finishing up", "signal", sig)
			cancel()
		case <-ctx.Done():
			return
		}
		// A second signal aborts without flushing.
		if sig, ok := <-sigChan; ok {
			slog.Error("received second signal, aborting", "signal", sig)
			os.Exit(ExitFailure)
		}
	}()

	slog.Info("simulation starting", "config", opts.Config, "seed", eng.Seed())
	result, err := eng.Run(ctx)
	closeErr := fanout.Close()
	if err != nil {
		return WrapExitError(ExitFailure, "simulation error", err)
	}
	if closeErr != nil {
		slog.Error("error closing outputs", "error", closeErr)
	}

	for _, d := range result.Diagnostics {
		slog.Warn("diagnostic", "code", d.Code, "event_type", d.EventType, "message", d.Message)
	}

	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	summary := RunSummary{
		EventsEmitted:     result.EventsEmitted,
		SimulatedDuration: result.SimulatedDuration.String(),
		WallDuration:      result.Duration.Round(time.Millisecond).String(),
		TerminationReason: result.TerminationReason,
		Seed:              eng.Seed(),
	}
	if dropped := fanout.Dropped(); len(dropped) > 0 {
		summary.DroppedEvents = dropped
	}
	if formatter.Format == "json" {
		return formatter.OK(summary)
	}
	fmt.Fprintf(formatter.Writer, "Simulation finished: %d event(s) in %s simulated (%s wall), reason=%s, seed=%d\n",
		summary.EventsEmitted, summary.SimulatedDuration, summary.WallDuration, summary.TerminationReason, summary.Seed)
	return nil
}
