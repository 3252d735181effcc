// Package runner ties the sandbox, the HTTP client and the history together.
//
// Run executes a submission's pre-request script, aborts with a
// *ScriptError when it fails, otherwise sends the request the script left
// behind and records the exchange. DryRun executes the script only.
package runner
