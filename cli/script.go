package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var scriptFlags requestFlags

var scriptCmd = &cobra.Command{
	Use:   "script [url]",
	Short: "Run a pre-request script without sending the request",
	Long: `Run a pre-request script against a request and print the execution
result (the modified request and environment, or the failure) as JSON.`,
	Example: `  reqbox script https://example.com --script 'environment.token = Buffer.from("u:p").toString("base64")'`,
	Args:    cobra.MaximumNArgs(1),
	RunE:    runScript,
}

func init() {
	scriptFlags.bind(scriptCmd)
	rootCmd.AddCommand(scriptCmd)
}

func runScript(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	url := ""
	if len(args) == 1 {
		url = args[0]
	}
	sub, err := scriptFlags.submission(url)
	if err != nil {
		return err
	}
	if sub.PreRequestScript == "" {
		return errors.New("a script is required: use --script or --script-file")
	}

	r, log, err := newCLIRunner(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	result := r.DryRun(cmd.Context(), sub)
	if err := printJSON(cmd, result); err != nil {
		return err
	}

	if result.Failure != nil {
		return &ExitCodeError{
			Code: ExitScriptFailed,
			Err:  fmt.Errorf("pre-request script failed: %w", result.Failure),
		}
	}
	return nil
}
