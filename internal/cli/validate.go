package cli

import (
	"errors"
	"fmt"

	"cuelang.org/go/cue/token"
	"github.com/spf13/cobra"

	"github.com/roach88/entitystate/internal/compiler"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid       bool                       `json:"valid"`
	Collections []string                   `json:"collections,omitempty"`
	Errors      []compiler.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <collections-dir>",
		Short: "Validate collection definitions without output",
		Long: `Validate CUE collection definitions without writing output.

Checks syntax, required fields and the consistency of seed records:
known id strategy, seed ids present and unique, active id among
the seeds. Every problem is reported, not just the first.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	names, validationErrors, err := validateDir(dir, formatter)
	if err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			return outputValidateError(formatter, loadErr.Code, loadErr.Message, nil)
		}
		return outputValidateError(formatter, ErrCodeGeneric, err.Error(), nil)
	}

	if len(validationErrors) > 0 {
		return outputValidationErrors(formatter, validationErrors)
	}

	return outputValidateSuccess(formatter, names)
}

// validateDir loads every definition in dir and validates the ones that
// compile. A returned error means the directory itself could not be loaded.
func validateDir(dir string, formatter *OutputFormatter) ([]string, []compiler.ValidationError, error) {
	loadResult, loadErrors := LoadCollections(dir, LoadModeCollectAll)
	if loadResult == nil && len(loadErrors) > 0 {
		return nil, nil, loadErrors[0]
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, dir)

	var allErrors []compiler.ValidationError

	// Definitions that failed to compile
	for _, err := range loadErrors {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			allErrors = append(allErrors, compiler.ValidationError{
				Field:   "load",
				Message: loadErr.Message,
				Code:    loadErr.Code,
				Line:    lineOf(loadErr.Pos),
			})
			continue
		}
		allErrors = append(allErrors, compiler.ValidationError{
			Field:   "load",
			Message: err.Error(),
			Code:    ErrCodeGeneric,
		})
	}

	for _, def := range loadResult.Collections {
		formatter.VerboseLog("Validating collection: %s", def.Name)
		for _, ve := range compiler.Validate(def) {
			ve.Field = fmt.Sprintf("collection.%s.%s", def.Name, ve.Field)
			allErrors = append(allErrors, ve)
		}
	}

	return loadResult.Names(), allErrors, nil
}

// lineOf extracts the line number from a token.Pos.
func lineOf(pos token.Pos) int {
	if pos.IsValid() {
		return pos.Line()
	}
	return 0
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, names []string) error {
	if formatter.IsJSON() {
		return formatter.Success(ValidationResult{Valid: true, Collections: names})
	}

	formatter.Printf("✓ All collections valid (%d)\n", len(names))
	return nil
}

// outputValidateError outputs a single validation error.
func outputValidateError(formatter *OutputFormatter, code, message string, details any) error {
	_ = formatter.Error(code, message, details)
	// Load errors are command-level errors (exit code 2)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, errs []compiler.ValidationError) error {
	if formatter.IsJSON() {
		response := CLIResponse{
			Status: "error",
			Data: ValidationResult{
				Valid:  false,
				Errors: errs,
			},
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}
		if err := formatter.Response(response); err != nil {
			return err
		}

		// Validation failures = exit code 1 (test/validation failure)
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	// Text format
	formatter.Printf("✗ Validation failed\n\n")

	for _, err := range errs {
		if err.Line > 0 {
			formatter.Printf("line %d\n", err.Line)
		}
		formatter.Printf("  %s: %s: %s\n\n", err.Code, err.Field, err.Message)
	}

	// Validation failures = exit code 1 (test/validation failure)
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}

// ValidateCollectionsDir validates all definitions in a directory.
// This is a helper function for external callers.
func ValidateCollectionsDir(dir string) ([]compiler.ValidationError, error) {
	_, errs, err := validateDir(dir, &OutputFormatter{Format: "text"})
	return errs, err
}
