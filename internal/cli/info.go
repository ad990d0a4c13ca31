package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/resinker/resinker/internal/spec"
)

// DocumentInfo is the machine-readable config summary.
type DocumentInfo struct {
	Version     string       `json:"version,omitempty"`
	Duration    string       `json:"duration,omitempty"`
	TotalEvents *int         `json:"total_events,omitempty"`
	RandomSeed  *int64       `json:"random_seed,omitempty"`
	StartTime   string       `json:"start_time,omitempty"`
	Multiplier  float64      `json:"time_multiplier,omitempty"`
	Schemas     []string     `json:"schemas"`
	Entities    []string     `json:"entities"`
	EventTypes  []string     `json:"event_types"`
	Scenarios   []string     `json:"scenarios"`
	Outputs     []OutputInfo `json:"outputs"`
}

// OutputInfo summarizes one configured sink.
type OutputInfo struct {
	Type    string `json:"type"`
	Enabled bool   `json:"enabled"`
}

// NewInfoCommand creates the info command.
func NewInfoCommand(rootOpts *RootOptions) *cobra.Command {
	opts := struct{ Config string }{}

	cmd := &cobra.Command{
		Use:   "info",
		Short: "Summarize a simulation config",
		Long: `Print a summary of a YAML simulation config: run budgets, declared
schemas, entity kinds, event types, scenarios, and outputs.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInfo(rootOpts, opts.Config, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Config, "config", "c", "", "path to simulation config (required)")
	_ = cmd.MarkFlagRequired("config")

	return cmd
}

func runInfo(opts *RootOptions, configPath string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	doc, err := spec.Load(configPath)
	if err != nil {
		_ = formatter.Issue("E000", err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}

	info := summarize(doc)
	if formatter.Format == "json" {
		return formatter.OK(info)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "Config: %s\n", configPath)
	if info.Version != "" {
		fmt.Fprintf(w, "Version: %s\n", info.Version)
	}
	if info.Duration != "" {
		fmt.Fprintf(w, "Duration: %s\n", info.Duration)
	}
	if info.TotalEvents != nil {
		fmt.Fprintf(w, "Total events: %d\n", *info.TotalEvents)
	}
	if info.RandomSeed != nil {
		fmt.Fprintf(w, "Random seed: %d\n", *info.RandomSeed)
	}
	if info.StartTime != "" {
		fmt.Fprintf(w, "Start time: %s (x%g)\n", info.StartTime, info.Multiplier)
	}
	fmt.Fprintf(w, "Schemas (%d): %s\n", len(info.Schemas), strings.Join(info.Schemas, ", "))
	fmt.Fprintf(w, "Entities (%d): %s\n", len(info.Entities), strings.Join(info.Entities, ", "))
	fmt.Fprintf(w, "Event types (%d): %s\n", len(info.EventTypes), strings.Join(info.EventTypes, ", "))
	fmt.Fprintf(w, "Scenarios (%d): %s\n", len(info.Scenarios), strings.Join(info.Scenarios, ", "))
	for _, out := range info.Outputs {
		state := "enabled"
		if !out.Enabled {
			state = "disabled"
		}
		fmt.Fprintf(w, "Output: %s (%s)\n", out.Type, state)
	}
	return nil
}

func summarize(doc *spec.Document) DocumentInfo {
	settings := doc.SimulationSettings
	info := DocumentInfo{
		Version:     doc.Version,
		Duration:    settings.Duration,
		TotalEvents: settings.TotalEvents,
		RandomSeed:  settings.RandomSeed,
		StartTime:   settings.TimeProgression.StartTime,
		Multiplier:  settings.TimeProgression.TimeMultiplier,
	}
	for _, s := range doc.Schemas {
		info.Schemas = append(info.Schemas, s.Name)
	}
	for _, e := range doc.Entities {
		info.Entities = append(info.Entities, e.Name)
	}
	for _, et := range doc.EventTypes {
		info.EventTypes = append(info.EventTypes, et.Name)
	}
	for _, sc := range doc.Scenarios {
		info.Scenarios = append(info.Scenarios, sc.Name)
	}
	for _, out := range doc.Outputs {
		info.Outputs = append(info.Outputs, OutputInfo{Type: out.Type, Enabled: out.IsEnabled()})
	}
	return info
}
