package runner

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/isdmx/reqbox/history"
	"github.com/isdmx/reqbox/httpclient"
	"github.com/isdmx/reqbox/sandbox"
)

// Submission is a request as a user submits it, with an optional script
type Submission struct {
	Request          sandbox.RequestSpec
	PreRequestScript string
}

// Outcome is the result of a submission that was sent
type Outcome struct {
	Request     sandbox.RequestSpec
	Environment sandbox.Environment
	Console     []sandbox.ConsoleLine
	Response    *httpclient.Response
	HistoryID   string
}

// ScriptError reports a pre-request script that did not complete.
// The request was not sent.
type ScriptError struct {
	Failure *sandbox.Failure
	Console []sandbox.ConsoleLine
}

func (e *ScriptError) Error() string {
	return "Pre-request script error: " + e.Failure.Message
}

func (e *ScriptError) Unwrap() error {
	return e.Failure
}

// Doer sends a request specification
type Doer interface {
	Do(ctx context.Context, spec sandbox.RequestSpec) (*httpclient.Response, error)
}

// Recorder stores completed exchanges
type Recorder interface {
	Add(e history.Entry) history.Entry
}

// Runner runs the pre-request script of a submission, sends the resulting
// request and records it
type Runner struct {
	logger   *zap.Logger
	executor sandbox.ScriptExecutor
	client   Doer
	recorder Recorder
}

// New creates a new Runner. recorder may be nil.
func New(logger *zap.Logger, executor sandbox.ScriptExecutor, client Doer, recorder Recorder) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		logger:   logger,
		executor: executor,
		client:   client,
		recorder: recorder,
	}
}

// Run executes sub. A failing script yields a *ScriptError; an HTTP status
// of 400 or above yields an error wrapping *httpclient.ResponseError.
func (r *Runner) Run(ctx context.Context, sub Submission) (*Outcome, error) {
	out := &Outcome{
		Request:     sub.Request.Normalized(),
		Environment: sandbox.Environment{},
	}

	if strings.TrimSpace(sub.PreRequestScript) != "" {
		result := r.executor.Execute(ctx, sub.PreRequestScript, out.Request)
		if result.Failure != nil {
			r.logger.Info("request aborted by pre-request script",
				zap.String("url", out.Request.URL),
				zap.String("kind", string(result.Failure.Kind)),
				zap.String("error", result.Failure.Message))
			return nil, &ScriptError{Failure: result.Failure, Console: result.Console}
		}
		out.Request = result.Success.Request
		out.Environment = result.Success.Environment
		out.Console = result.Console
	}

	resp, err := r.client.Do(ctx, out.Request)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", out.Request.Method, out.Request.URL, err)
	}
	out.Response = resp

	if r.recorder != nil {
		entry := r.recorder.Add(history.Entry{
			Timestamp:        time.Now().UTC(),
			Request:          sub.Request.Clone(),
			PreRequestScript: sub.PreRequestScript,
			Sent:             out.Request,
			Response: history.ResponseSummary{
				Status:  resp.Status,
				Headers: resp.Headers,
				Data:    resp.Data,
			},
		})
		out.HistoryID = entry.ID
	}

	return out, nil
}

// DryRun runs only the pre-request script of sub
func (r *Runner) DryRun(ctx context.Context, sub Submission) sandbox.ExecutionResult {
	return r.executor.Execute(ctx, sub.PreRequestScript, sub.Request)
}
