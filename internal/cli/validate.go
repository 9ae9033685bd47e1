package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bookwright/steward/internal/compiler"
)

// ValidationResult holds validation results for one dial pack.
type ValidationResult struct {
	Valid  bool                       `json:"valid"`
	Pack   string                     `json:"pack,omitempty"`
	Errors []compiler.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [pack.cue]",
		Short: "Validate a dial pack",
		Long: `Validate a CUE dial pack: syntax, schema shape, and pack-level
consistency (every metric has exactly one dial, ranges are contiguous and
direction-ordered). With no argument, validates the built-in default pack.

Exit codes:
  0 - pack is valid
  1 - validation failed
  2 - command error (file not found, etc.)

Examples:
  steward validate
  steward validate packs/production.cue --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return runValidate(rootOpts, path, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	pack, err := loadPack(path)
	if err != nil {
		var compileErr *compiler.CompileError
		if errors.As(err, &compileErr) {
			return outputValidationErrors(formatter, "", []compiler.ValidationError{{
				Field:   compileErr.Field,
				Message: compileErr.Message,
				Code:    ErrCodeCompile,
			}})
		}
		return WrapExitError(ExitCommandError, "failed to load pack", err)
	}

	formatter.VerboseLog("compiled pack %q: %d metric(s), %d dial(s)",
		pack.Name, len(pack.Metrics), len(pack.Dials))

	if errs := compiler.ValidatePack(pack); len(errs) > 0 {
		return outputValidationErrors(formatter, pack.Name, errs)
	}
	return outputValidateSuccess(formatter, pack.Name)
}

// ErrCodeCompile tags compile-stage failures in validate output; pack-level
// diagnostics carry their own E2xx codes.
const ErrCodeCompile = "E100"

func outputValidateSuccess(formatter *OutputFormatter, packName string) error {
	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true, Pack: packName})
	}
	fmt.Fprintf(formatter.Writer, "pack %q valid\n", packName)
	return nil
}

func outputValidationErrors(formatter *OutputFormatter, packName string, errs []compiler.ValidationError) error {
	if formatter.Format == "json" {
		enc := json.NewEncoder(formatter.Writer)
		enc.SetIndent("", "  ")
		_ = enc.Encode(Response{
			Status: "error",
			Data:   ValidationResult{Valid: false, Pack: packName, Errors: errs},
			Error:  &ResponseError{Code: errs[0].Code, Message: errs[0].Message},
		})
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "validation failed")
	for _, e := range errs {
		fmt.Fprintf(formatter.Writer, "  %s %s: %s\n", e.Code, e.Field, e.Message)
	}
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
