package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/isdmx/reqbox/collection"
	"github.com/isdmx/reqbox/httpclient"
	"github.com/isdmx/reqbox/runner"
)

var (
	collectionRequest  string
	collectionContinue bool
)

var collectionCmd = &cobra.Command{
	Use:   "collection",
	Short: "Work with saved request collections",
}

var collectionListCmd = &cobra.Command{
	Use:     "list <file>",
	Short:   "List the requests of a collection",
	Aliases: []string{"ls"},
	Args:    cobra.ExactArgs(1),
	RunE:    runCollectionList,
}

var collectionRunCmd = &cobra.Command{
	Use:   "run <file>",
	Short: "Run the requests of a collection in order",
	Long: `Run every request of a collection, or a single one with --request.

Each request runs its own pre-request script before it is sent. The run
stops at the first failure unless --continue is given.`,
	Args: cobra.ExactArgs(1),
	RunE: runCollectionRun,
}

func init() {
	collectionRunCmd.Flags().StringVar(&collectionRequest, "request", "", "run only the request with this name")
	collectionRunCmd.Flags().BoolVar(&collectionContinue, "continue", false, "keep going after a failed request")

	collectionCmd.AddCommand(collectionListCmd)
	collectionCmd.AddCommand(collectionRunCmd)
	rootCmd.AddCommand(collectionCmd)
}

func runCollectionList(cmd *cobra.Command, args []string) error {
	c, err := collection.Load(args[0])
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tMETHOD\tURL\tSCRIPT")
	for _, r := range c.Requests {
		spec := r.Spec()
		script := "no"
		if r.PreRequestScript != "" {
			script = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.Name, spec.Method, spec.URL, script)
	}
	return w.Flush()
}

// collectionResult is one line of a collection run report
type collectionResult struct {
	Name   string `json:"name"`
	Status int    `json:"status,omitempty"`
	Error  string `json:"error,omitempty"`
}

func runCollectionRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	c, err := collection.Load(args[0])
	if err != nil {
		return err
	}

	requests := c.Requests
	if collectionRequest != "" {
		r, err := c.Find(collectionRequest)
		if err != nil {
			return err
		}
		requests = []collection.Request{r}
	}

	r, log, err := newCLIRunner(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	results, runErr := runRequests(cmd, r, requests)
	if err := printJSON(cmd, map[string]any{
		"collection": c.Name,
		"results":    results,
	}); err != nil {
		return err
	}
	return runErr
}

func runRequests(cmd *cobra.Command, r *runner.Runner, requests []collection.Request) ([]collectionResult, error) {
	results := make([]collectionResult, 0, len(requests))
	var failed error

	for _, req := range requests {
		result := collectionResult{Name: req.Name}

		out, err := r.Run(cmd.Context(), req.Submission())
		if err != nil {
			result.Error = err.Error()
			var respErr *httpclient.ResponseError
			if errors.As(err, &respErr) {
				result.Status = respErr.Response.Status
			}

			results = append(results, result)
			if failed == nil {
				failed = fmt.Errorf("request %q: %w", req.Name, err)
			}
			if !collectionContinue {
				break
			}
			continue
		}

		result.Status = out.Response.Status
		results = append(results, result)
	}

	if failed != nil {
		var scriptErr *runner.ScriptError
		code := ExitRequestFailed
		if errors.As(failed, &scriptErr) {
			code = ExitScriptFailed
		}
		return results, &ExitCodeError{Code: code, Err: failed}
	}
	return results, nil
}
