package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/Julie-03/Kapee/internal/cart"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Backend or session failure
	ExitCommandError = 2 // Invalid arguments or configuration
)

// Error codes carried in JSON error responses.
const (
	ErrCodeGeneric  = "E001"
	ErrCodeAuth     = "E002"
	ErrCodeNotFound = "E003"
	ErrCodeBackend  = "E004"
	ErrCodeInvalid  = "E005"
)

// ExitError represents an error with a specific exit code.
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

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure if the error is not an ExitError.
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

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format string
	Writer io.Writer
}

// CLIResponse is the JSON envelope for every command.
type CLIResponse struct {
	Status  string       `json:"status"`
	Data    any          `json:"data,omitempty"`
	Notices []NoticeView `json:"notices,omitempty"`
	Error   *CLIError    `json:"error,omitempty"`
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NoticeView is a cart mutation notice as printed.
type NoticeView struct {
	ProductID string `json:"productId,omitempty"`
	Outcome   string `json:"outcome"`
	Severity  string `json:"severity"`
	Message   string `json:"message"`
}

func noticeViews(results []cart.Result) []NoticeView {
	out := make([]NoticeView, 0, len(results))
	for _, r := range results {
		n := r.Notice()
		out = append(out, NoticeView{
			ProductID: r.ProductID,
			Outcome:   r.Outcome.String(),
			Severity:  string(n.Severity),
			Message:   n.Message,
		})
	}
	return out
}

// Success writes data. In text mode render prints it; render may be nil.
func (f *OutputFormatter) Success(data any, render func(w io.Writer)) error {
	return f.write(data, nil, render)
}

// Results writes the notices of cart mutations followed by data.
func (f *OutputFormatter) Results(results []cart.Result, data any, render func(w io.Writer)) error {
	return f.write(data, noticeViews(results), render)
}

func (f *OutputFormatter) write(data any, notices []NoticeView, render func(w io.Writer)) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{Status: "ok", Data: data, Notices: notices})
	}
	for _, n := range notices {
		if n.ProductID != "" {
			fmt.Fprintf(f.Writer, "[%s] %s: %s\n", n.Severity, n.ProductID, n.Message)
			continue
		}
		fmt.Fprintf(f.Writer, "[%s] %s\n", n.Severity, n.Message)
	}
	if render != nil {
		render(f.Writer)
	}
	return nil
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error:  &CLIError{Code: code, Message: message},
		})
	}
	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	return nil
}
