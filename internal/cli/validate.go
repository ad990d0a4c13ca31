package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/resinker/resinker/internal/spec"
)

// ValidationIssue is one reported config problem.
type ValidationIssue struct {
	Code    string `json:"code"`
	Path    string `json:"path,omitempty"`
	Message string `json:"message"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Issues []ValidationIssue `json:"issues,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := struct{ Config string }{}

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a simulation config without running it",
		Long: `Validate a YAML simulation config.

Loads the document (merging imports), then checks schema references,
generator names and parameters, entity dependencies, scenarios, and
output configs. All problems are reported, not just the first.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, opts.Config, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Config, "config", "c", "", "path to simulation config (required)")
	_ = cmd.MarkFlagRequired("config")

	return cmd
}

func runValidate(opts *RootOptions, configPath string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	doc, err := spec.LoadUnvalidated(configPath)
	if err != nil {
		// Unreadable or unparseable config is a command error, not a
		// validation finding.
		var loadErr *spec.LoadError
		if errors.As(err, &loadErr) {
			_ = formatter.Issue(loadErr.Code, loadErr.Error(), nil)
			return NewExitError(ExitCommandError, loadErr.Error())
		}
		_ = formatter.Issue("E000", err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}

	formatter.VerboseLog("Loaded %s: %d schema(s), %d entity kind(s), %d event type(s), %d scenario(s)",
		configPath, len(doc.Schemas), len(doc.Entities), len(doc.EventTypes), len(doc.Scenarios))

	errs := spec.Validate(doc)
	if len(errs) == 0 {
		return outputValidateSuccess(formatter)
	}

	issues := make([]ValidationIssue, len(errs))
	for i, e := range errs {
		issues[i] = ValidationIssue{Code: e.Code, Path: e.Path, Message: e.Message}
	}
	return outputValidationIssues(formatter, issues)
}

func outputValidateSuccess(formatter *OutputFormatter) error {
	if formatter.Format == "json" {
		return formatter.OK(ValidationResult{Valid: true})
	}
	fmt.Fprintln(formatter.Writer, "✓ Config valid")
	return nil
}

func outputValidationIssues(formatter *OutputFormatter, issues []ValidationIssue) error {
	if formatter.Format == "json" {
		_ = formatter.Envelope(CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Issues: issues},
			Error:  &CLIError{Code: issues[0].Code, Message: issues[0].Message},
		})
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d issue(s)", len(issues)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)
	for _, issue := range issues {
		if issue.Path != "" {
			fmt.Fprintf(formatter.Writer, "%s\n", issue.Path)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", issue.Code, issue.Message)
	}
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d issue(s)", len(issues)))
}
