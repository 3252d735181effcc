package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/isdmx/reqbox/httpclient"
	"github.com/isdmx/reqbox/runner"
)

var (
	sendFlags   requestFlags
	sendVerbose bool
)

var sendCmd = &cobra.Command{
	Use:   "send <url>",
	Short: "Run the pre-request script and send the request",
	Long: `Send one HTTP request and print the response as JSON.

When a pre-request script is given it runs first and may change the method,
URL, headers and body. A failing script aborts the request.`,
	Example: `  reqbox send https://api.example.com/users \
    -X POST -H "Content-Type: application/json" -d '{"name":"alice"}' \
    --script 'request.headers["X-Request-Id"] = String(Date.now())'`,
	Args: cobra.ExactArgs(1),
	RunE: runSend,
}

func init() {
	sendFlags.bind(sendCmd)
	sendCmd.Flags().BoolVarP(&sendVerbose, "verbose", "v", false, "also print the final request, environment and console output")
	rootCmd.AddCommand(sendCmd)
}

func runSend(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	sub, err := sendFlags.submission(args[0])
	if err != nil {
		return err
	}

	r, log, err := newCLIRunner(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	out, err := r.Run(cmd.Context(), sub)
	if err != nil {
		return reportRunError(cmd, err)
	}

	result := map[string]any{
		"status":  out.Response.Status,
		"headers": out.Response.Headers,
		"data":    out.Response.Data,
	}
	if sendVerbose {
		result["request"] = out.Request
		result["environment"] = out.Environment
		result["console"] = out.Console
	}
	return printJSON(cmd, result)
}

// reportRunError prints what is known about a failed run and maps it to an exit code
func reportRunError(cmd *cobra.Command, err error) error {
	var scriptErr *runner.ScriptError
	if errors.As(err, &scriptErr) {
		for _, line := range scriptErr.Console {
			fmt.Fprintf(cmd.ErrOrStderr(), "console.%s: %s\n", line.Level, line.Message)
		}
		return &ExitCodeError{Code: ExitScriptFailed, Err: err}
	}

	var respErr *httpclient.ResponseError
	if errors.As(err, &respErr) {
		if printErr := printJSON(cmd, map[string]any{
			"error":    respErr.Error(),
			"response": respErr.Response,
		}); printErr != nil {
			return printErr
		}
	}
	return &ExitCodeError{Code: ExitRequestFailed, Err: err}
}
