package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/isdmx/reqbox/httpclient"
)

var (
	curlFlags     requestFlags
	curlRunScript bool
)

var curlCmd = &cobra.Command{
	Use:   "curl <url>",
	Short: "Print the request as a curl command",
	Long: `Print the request as a curl command line.

With --apply-script the pre-request script runs first and the command
reflects the request it produced.`,
	Args: cobra.ExactArgs(1),
	RunE: runCurl,
}

func init() {
	curlFlags.bind(curlCmd)
	curlCmd.Flags().BoolVar(&curlRunScript, "apply-script", false, "run the pre-request script before rendering")
	rootCmd.AddCommand(curlCmd)
}

func runCurl(cmd *cobra.Command, args []string) error {
	sub, err := curlFlags.submission(args[0])
	if err != nil {
		return err
	}

	spec := sub.Request
	if curlRunScript && sub.PreRequestScript != "" {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		r, log, err := newCLIRunner(cfg)
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		result := r.DryRun(cmd.Context(), sub)
		if result.Failure != nil {
			return &ExitCodeError{
				Code: ExitScriptFailed,
				Err:  fmt.Errorf("pre-request script failed: %w", result.Failure),
			}
		}
		spec = result.Success.Request
	}

	curl, err := httpclient.CurlCommand(spec)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), curl)
	return nil
}
