package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/entitystate/internal/compiler"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CompiledCollection is a compiled definition with its fingerprint.
type CompiledCollection struct {
	*compiler.CollectionDef
	Hash string `json:"hash"`
}

// CompilationResult holds the compiled collections.
type CompilationResult struct {
	Collections []CompiledCollection `json:"collections"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <collections-dir>",
		Short: "Compile CUE collection definitions to JSON",
		Long: `Compile CUE collection definitions to canonical JSON.

The compiler parses the CUE files, checks every definition and
outputs the compiled collections with their definition hashes.
A journaled run records the hash of the definition it was dispatched
against, so replay can detect definitions that changed since.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

func runCompile(opts *CompileOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	// Use shared loader with collect-all mode
	loadResult, loadErrors := LoadCollections(dir, LoadModeCollectAll)

	// Handle load errors (directory not found, no files, etc.)
	if loadResult == nil && len(loadErrors) > 0 {
		var loadErr *LoadError
		if errors.As(loadErrors[0], &loadErr) {
			return outputCompileError(formatter, loadErr.Code, loadErr.Message, nil)
		}
		return outputCompileError(formatter, ErrCodeGeneric, loadErrors[0].Error(), nil)
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, dir)

	result := &CompilationResult{Collections: []CompiledCollection{}}
	for _, def := range loadResult.Collections {
		formatter.VerboseLog("Compiling collection: %s", def.Name)

		// Definitions that parse may still be inconsistent
		for _, ve := range compiler.Validate(def) {
			loadErrors = append(loadErrors, &LoadError{
				Code:    ve.Code,
				Message: fmt.Sprintf("collection.%s: %s: %s", def.Name, ve.Field, ve.Message),
			})
		}

		hash, err := def.Hash()
		if err != nil {
			loadErrors = append(loadErrors, &LoadError{
				Code:    ErrCodeGeneric,
				Message: fmt.Sprintf("collection.%s: hash: %v", def.Name, err),
			})
			continue
		}
		result.Collections = append(result.Collections, CompiledCollection{CollectionDef: def, Hash: hash})
	}

	// Handle compilation errors
	if len(loadErrors) > 0 {
		return outputCompileErrors(formatter, loadErrors)
	}

	// Write to file if --output specified
	if opts.Output != "" {
		if err := writeCompiledToFile(result, opts.Output); err != nil {
			return outputCompileError(formatter, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), nil)
		}
	}

	return outputCompileSuccess(formatter, result, opts.Output)
}

// outputCompileSuccess outputs successful compilation results.
func outputCompileSuccess(formatter *OutputFormatter, result *CompilationResult, outputFile string) error {
	if formatter.IsJSON() {
		return formatter.Success(result)
	}

	// Human-readable text output
	formatter.Printf("✓ Compiled %d collection(s)\n\n", len(result.Collections))

	for _, c := range result.Collections {
		formatter.Printf("  %s: id %s (%s), %d seed record(s)\n",
			c.Name, c.IDField, c.IDStrategy, len(c.Seed))
		formatter.VerboseLog("  %s hash: %s", c.Name, c.Hash)
	}
	formatter.Printf("\n")

	if outputFile != "" {
		formatter.Printf("Wrote compiled collections to %s\n", outputFile)
	}

	return nil
}

// outputCompileError outputs a single compilation error.
func outputCompileError(formatter *OutputFormatter, code, message string, details any) error {
	_ = formatter.Error(code, message, details)
	// Compilation errors are command-level errors (exit code 2)
	return WrapExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message), nil)
}

// outputCompileErrors outputs multiple compilation errors.
func outputCompileErrors(formatter *OutputFormatter, errs []error) error {
	if formatter.IsJSON() {
		cliErrors := make([]CLIError, len(errs))
		for i, err := range errs {
			code, message := parseCompileError(err)
			cliErrors[i] = CLIError{
				Code:    code,
				Message: message,
			}
		}

		response := CLIResponse{
			Status: "error",
			Error:  &cliErrors[0],
			Data:   cliErrors, // Include all errors in data
		}
		if err := formatter.Response(response); err != nil {
			return err
		}

		// Compilation errors are command-level errors (exit code 2)
		return NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
	}

	// Text format
	formatter.Printf("✗ Compilation failed\n\n")

	for _, err := range errs {
		code, message := parseCompileError(err)
		var loadErr *LoadError
		if errors.As(err, &loadErr) && loadErr.Pos.IsValid() {
			formatter.Printf("%s:%d:%d\n",
				loadErr.Pos.Filename(),
				loadErr.Pos.Line(),
				loadErr.Pos.Column())
		}
		formatter.Printf("  %s: %s\n\n", code, message)
	}

	// Compilation errors are command-level errors (exit code 2)
	return NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
}

// parseCompileError extracts error code and message from an error.
func parseCompileError(err error) (string, string) {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code, loadErr.Message
	}
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return MapFieldToErrorCode(compileErr.Field), compileErr.Message
	}
	return ErrCodeGeneric, err.Error()
}

// writeCompiledToFile writes the compilation result to a file.
func writeCompiledToFile(result *CompilationResult, filename string) error {
	// Use standard JSON with indentation for readability
	// (canonical JSON without indentation is used only for hashing)
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling collections: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}

	return nil
}
