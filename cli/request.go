package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/isdmx/reqbox/config"
	"github.com/isdmx/reqbox/httpclient"
	"github.com/isdmx/reqbox/logger"
	"github.com/isdmx/reqbox/runner"
	"github.com/isdmx/reqbox/sandbox"
)

// requestFlags are the flags shared by send, script and curl
type requestFlags struct {
	method     string
	headers    []string
	data       string
	script     string
	scriptFile string
}

func (f *requestFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.method, "method", "X", "", "HTTP method (default GET)")
	cmd.Flags().StringArrayVarP(&f.headers, "header", "H", nil, `request header "Name: value" (repeatable)`)
	cmd.Flags().StringVarP(&f.data, "data", "d", "", "request body; parsed as JSON when valid, sent verbatim otherwise")
	cmd.Flags().StringVar(&f.script, "script", "", "pre-request script source")
	cmd.Flags().StringVar(&f.scriptFile, "script-file", "", "file containing the pre-request script")
}

func (f *requestFlags) reset() {
	*f = requestFlags{}
}

// submission builds the submission described by the flags
func (f *requestFlags) submission(url string) (runner.Submission, error) {
	headers := make(map[string]string, len(f.headers))
	for _, h := range f.headers {
		name, value, ok := strings.Cut(h, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return runner.Submission{}, fmt.Errorf("invalid header %q, expected \"Name: value\"", h)
		}
		headers[strings.TrimSpace(name)] = strings.TrimSpace(value)
	}

	var body any
	if f.data != "" {
		if err := json.Unmarshal([]byte(f.data), &body); err != nil {
			body = f.data
		}
	}

	script := f.script
	if f.scriptFile != "" {
		if script != "" {
			return runner.Submission{}, fmt.Errorf("--script and --script-file are mutually exclusive")
		}
		raw, err := os.ReadFile(f.scriptFile)
		if err != nil {
			return runner.Submission{}, fmt.Errorf("failed to read script file: %w", err)
		}
		script = string(raw)
	}

	return runner.Submission{
		Request: sandbox.RequestSpec{
			Method:  f.method,
			URL:     url,
			Headers: headers,
			Body:    body,
		},
		PreRequestScript: script,
	}, nil
}

// newCLIRunner builds a runner for one-shot commands. History is not kept
// between invocations, so none is attached.
func newCLIRunner(cfg *config.Config) (*runner.Runner, *zap.Logger, error) {
	log, err := logger.NewFromConfig(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}

	executor, err := sandbox.NewExecutor(log, cfg)
	if err != nil {
		return nil, nil, err
	}

	return runner.New(logger.Component(log, "runner"), executor, httpclient.NewFromConfig(log, cfg), nil), log, nil
}

// printJSON writes v as indented JSON to the command output
func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
