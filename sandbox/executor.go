package sandbox

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dlclark/regexp2"
	"github.com/dop251/goja"
	"go.uber.org/zap"
)

// scriptName is reported in syntax errors and stack traces
const scriptName = "pre-request.js"

// RegexpMatchTimeout caps one backtracking regular expression match.
// Such a match runs inside a single native call that Interrupt cannot
// reach; when the cap is hit the match reports no result and a pending
// interrupt fires on the next instruction.
const RegexpMatchTimeout = 100 * time.Millisecond

func init() {
	regexp2.DefaultMatchTimeout = RegexpMatchTimeout
}

// Config holds configuration for the goja executor
type Config struct {
	TimeoutMs        int
	MaxScriptSizeKB  int
	MaxCallStackSize int
	MaxConsoleLines  int
}

// DefaultConfig returns the executor defaults
func DefaultConfig() *Config {
	return &Config{
		TimeoutMs:        int(DefaultTimeout / time.Millisecond),
		MaxScriptSizeKB:  256,
		MaxCallStackSize: 1024,
		MaxConsoleLines:  200,
	}
}

// GojaExecutor implements ScriptExecutor with an embedded ECMAScript runtime.
// Every Execute call builds a fresh runtime, so one executor can serve
// concurrent callers.
type GojaExecutor struct {
	logger       *zap.Logger
	config       *Config
	capabilities []Capability
}

// GojaExecutorOption defines a functional option for GojaExecutor
type GojaExecutorOption func(*GojaExecutor)

// WithCapabilities restricts the installed capabilities to the given ones
func WithCapabilities(caps ...Capability) GojaExecutorOption {
	return func(g *GojaExecutor) {
		g.capabilities = caps
	}
}

// NewGojaExecutor creates a new GojaExecutor with the full capability allow-list
func NewGojaExecutor(logger *zap.Logger, config *Config, opts ...GojaExecutorOption) *GojaExecutor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config == nil {
		config = DefaultConfig()
	}

	executor := &GojaExecutor{
		logger:       logger,
		config:       config,
		capabilities: DefaultCapabilities(),
	}

	for _, opt := range opts {
		opt(executor)
	}

	return executor
}

// Timeout returns the wall-clock budget applied to each execution
func (g *GojaExecutor) Timeout() time.Duration {
	if g.config.TimeoutMs <= 0 {
		return DefaultTimeout
	}
	return time.Duration(g.config.TimeoutMs) * time.Millisecond
}

// Execute runs script against a private copy of req.
func (g *GojaExecutor) Execute(ctx context.Context, script string, req RequestSpec) (result ExecutionResult) {
	initial := req.Normalized()

	if strings.TrimSpace(script) == "" {
		return succeeded(initial, Environment{}, nil)
	}

	if limit := g.config.MaxScriptSizeKB * BytesPerKB; limit > 0 && len(script) > limit {
		return failed(ErrorKindInvalid, nil, "script size %d bytes exceeds limit of %d bytes", len(script), limit)
	}

	program, err := goja.Compile(scriptName, script, false)
	if err != nil {
		return failed(ErrorKindSyntax, nil, "%s", syntaxMessage(err))
	}

	started := time.Now()
	sc := newScriptContext(g.logger, g.config)

	// The runtime must never take the process down; anything that escapes
	// goja's own error handling is reported as a runtime failure.
	defer func() {
		if r := recover(); r != nil {
			g.logger.Error("pre-request script panicked", zap.Any("panic", r))
			result = failed(ErrorKindRuntime, sc.consoleLines(), "internal sandbox error: %v", r)
		}
	}()

	if err := sc.install(g.capabilities, initial); err != nil {
		return failed(ErrorKindRuntime, nil, "failed to prepare script context: %v", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, g.Timeout())
	defer cancel()

	finished := make(chan struct{})
	watcherDone := make(chan struct{})
	go func() {
		defer close(watcherDone)
		select {
		case <-runCtx.Done():
			sc.vm.Interrupt(runCtx.Err())
		case <-finished:
		}
	}()

	out, env, err := sc.run(runCtx, program, initial)
	var described string
	if err != nil {
		// thrown values may carry getters, so describe them under the budget too
		described = sc.describe(err)
	}

	close(finished)
	<-watcherDone

	elapsed := time.Since(started)
	if err != nil {
		kind, message := g.classify(ctx, runCtx, err, described)
		g.logger.Info("pre-request script failed",
			zap.String("kind", string(kind)),
			zap.String("error", message),
			zap.Duration("elapsed", elapsed))
		return failed(kind, sc.consoleLines(), "%s", message)
	}

	g.logger.Debug("pre-request script completed",
		zap.Duration("elapsed", elapsed),
		zap.Int("environment_keys", len(env)),
		zap.Int("console_lines", len(sc.consoleLines())))

	return succeeded(out, env, sc.consoleLines())
}

// classify maps an evaluation error to a failure kind
func (g *GojaExecutor) classify(parent, runCtx context.Context, err error, described string) (ErrorKind, string) {
	var interrupted *goja.InterruptedError
	budgetHit := errors.As(err, &interrupted) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled)

	if budgetHit || runCtx.Err() != nil {
		if parent.Err() != nil {
			return ErrorKindCanceled, fmt.Sprintf("Script execution canceled: %v", parent.Err())
		}
		if runCtx.Err() != nil {
			return ErrorKindTimeout, fmt.Sprintf("Script execution timed out after %dms", g.Timeout().Milliseconds())
		}
	}

	if described == "" {
		described = "script failed without an error message"
	}
	return ErrorKindRuntime, described
}

func syntaxMessage(err error) string {
	msg := err.Error()
	if !strings.HasPrefix(msg, "SyntaxError") {
		msg = "SyntaxError: " + msg
	}
	return msg
}
