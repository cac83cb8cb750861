package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"tirecore/pkg/domain"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // command completed
	ExitFailure      = 1 // ledger rejected the command
	ExitCommandError = 2 // usage, configuration or storage failure
)

// ExitError carries the process exit code for a failed command.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// WrapExitError wraps err with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from err. Errors that are not an
// ExitError map to ExitFailure.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

var rejections = []error{
	domain.ErrUnknownSpecCode,
	domain.ErrUnknownCombination,
	domain.ErrUnknownOrder,
	domain.ErrUnknownFieldKey,
	domain.ErrNoEligibleOrder,
	domain.ErrInvalidTransition,
	domain.ErrInvalidDirection,
}

// commandError classifies a service error: ledger rejections exit with
// ExitFailure, everything else with ExitCommandError.
func commandError(message string, err error) error {
	var violation domain.RuleViolationError
	if errors.As(err, &violation) {
		return WrapExitError(ExitFailure, message, err)
	}
	for _, target := range rejections {
		if errors.Is(err, target) {
			return WrapExitError(ExitFailure, message, err)
		}
	}
	return WrapExitError(ExitCommandError, message, err)
}

// Response is the JSON envelope written with --format json.
type Response struct {
	Status     string             `json:"status"`
	Data       any                `json:"data,omitempty"`
	Violations []domain.Violation `json:"violations,omitempty"`
}

// OutputFormatter writes command results as text tables or JSON.
type OutputFormatter struct {
	Format string
	Writer io.Writer
}

// Emit writes data. In text mode render draws the human-readable form.
func (f OutputFormatter) Emit(data any, violations []domain.Violation, render func(w io.Writer)) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(Response{Status: "ok", Data: data, Violations: violations})
	}
	tw := tabwriter.NewWriter(f.Writer, 0, 4, 2, ' ', 0)
	render(tw)
	for _, v := range violations {
		fmt.Fprintf(tw, "warning\t%s\t%s\n", v.Rule, v.Message)
	}
	return tw.Flush()
}
