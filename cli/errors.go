package cli

import "fmt"

// ExitCodeError carries the process exit code for a failed command
type ExitCodeError struct {
	Code int
	Err  error
}

func (e *ExitCodeError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit code %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitCodeError) Unwrap() error {
	return e.Err
}

// Exit codes
const (
	// ExitScriptFailed means the pre-request script did not complete
	ExitScriptFailed = 2
	// ExitRequestFailed means the request could not be sent or returned an error status
	ExitRequestFailed = 3
)
