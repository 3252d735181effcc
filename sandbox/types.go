package sandbox

import (
	"context"
	"fmt"
	"maps"
	"strings"
	"time"
)

// DefaultMethod is used when a request specification carries no method
const DefaultMethod = "GET"

// DefaultTimeout is the wall-clock budget for one script execution
const DefaultTimeout = 5000 * time.Millisecond

// BytesPerKB is used for the script size limit
const BytesPerKB = 1024

// RequestSpec describes an outgoing HTTP call
type RequestSpec struct {
	Method  string            `json:"method"`
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers"`
	// Body is any JSON-serializable value; nil means no body.
	Body any `json:"data,omitempty"`
}

// Normalized returns a copy with the structural invariants applied:
// a non-empty method and a non-nil headers map.
func (r RequestSpec) Normalized() RequestSpec {
	out := r.Clone()
	if strings.TrimSpace(out.Method) == "" {
		out.Method = DefaultMethod
	}
	return out
}

// Clone returns a copy that shares no header map with r.
func (r RequestSpec) Clone() RequestSpec {
	headers := make(map[string]string, len(r.Headers))
	maps.Copy(headers, r.Headers)
	r.Headers = headers
	return r
}

// Environment is the string scratch mapping a script may populate
type Environment map[string]string

// ErrorKind classifies a failed execution. It is informational only.
type ErrorKind string

// ErrorKind values
const (
	ErrorKindSyntax   ErrorKind = "syntax"
	ErrorKindRuntime  ErrorKind = "runtime"
	ErrorKindTimeout  ErrorKind = "timeout"
	ErrorKindCanceled ErrorKind = "canceled"
	ErrorKindInvalid  ErrorKind = "invalid"
)

// Success is the outcome of a script that completed within budget
type Success struct {
	Request     RequestSpec `json:"request"`
	Environment Environment `json:"environment"`
}

// Failure is the outcome of a script that did not complete
type Failure struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"error"`
}

func (f *Failure) Error() string {
	return f.Message
}

// ConsoleLine is one call to a console method made by a script
type ConsoleLine struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// ExecutionResult holds exactly one of Success or Failure.
type ExecutionResult struct {
	Success *Success      `json:"success,omitempty"`
	Failure *Failure      `json:"failure,omitempty"`
	Console []ConsoleLine `json:"console,omitempty"`
}

// Succeeded reports whether the script completed
func (r ExecutionResult) Succeeded() bool {
	return r.Success != nil && r.Failure == nil
}

// Err returns the failure as an error, or nil on success
func (r ExecutionResult) Err() error {
	if r.Failure != nil {
		return r.Failure
	}
	if r.Success == nil {
		return &Failure{Kind: ErrorKindInvalid, Message: "empty execution result"}
	}
	return nil
}

func succeeded(req RequestSpec, env Environment, console []ConsoleLine) ExecutionResult {
	if env == nil {
		env = Environment{}
	}
	return ExecutionResult{
		Success: &Success{Request: req, Environment: env},
		Console: console,
	}
}

func failed(kind ErrorKind, console []ConsoleLine, format string, args ...any) ExecutionResult {
	return ExecutionResult{
		Failure: &Failure{Kind: kind, Message: fmt.Sprintf(format, args...)},
		Console: console,
	}
}

// ScriptExecutor runs pre-request scripts against a request specification.
// Implementations never return Go errors; every problem is a Failure.
type ScriptExecutor interface {
	Execute(ctx context.Context, script string, req RequestSpec) ExecutionResult
}
