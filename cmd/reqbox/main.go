// Package main is the entry point for the reqbox command.
//
// Reqbox sends REST requests after running an optional JavaScript
// pre-request script in an isolated runtime. It can be used as a one-shot
// CLI or run as a server exposing a JSON API or Model Context Protocol tools.
//
// The server uses Uber's fx framework for dependency injection and lifecycle
// management, with zap for structured logging and viper for configuration.
package main

import (
	"errors"
	"os"

	"github.com/isdmx/reqbox/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		var exitErr *cli.ExitCodeError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}
