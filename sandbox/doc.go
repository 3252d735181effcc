// Package sandbox runs pre-request scripts in an isolated JavaScript context.
//
// A script receives a mutable copy of the outgoing request as `request`
// (method, url, headers, data with the alias body) and an empty
// `environment` object. The only other host bindings are the ones on the
// capability allow-list: console, setTimeout/clearTimeout and Buffer.
// There is no filesystem, process or network access.
//
// Each execution gets a fresh goja runtime and a hard wall-clock budget
// (5 seconds by default). Evaluation past the budget is interrupted and
// reported as a Failure; scripts never raise errors past Execute.
//
// Usage:
//
//	executor := sandbox.NewGojaExecutor(logger, sandbox.DefaultConfig())
//	result := executor.Execute(ctx, `request.headers["X-Token"] = "abc"`, sandbox.RequestSpec{
//	    Method: "GET",
//	    URL:    "https://example.com",
//	})
//	if err := result.Err(); err != nil {
//	    return err
//	}
//	send(result.Success.Request)
package sandbox
