// Package main holds the main command line interface for conductor. The package itself is mainly concerned with
// configuring the necessary options before passing control to `internal/cli`, which holds the business logic itself.
package main

import (
	"fmt"
	"os"

	"github.com/rwx-research/conductor/internal/errors"
)

func main() {
	// Logging is expected to take place in `internal/cli`, as text output is the primary way of communicating
	// to a user on the terminal and is therefore one of our main concerns.
	// This error here is mainly used to communicate any necessary exit Code.
	if err := rootCmd.Execute(); err != nil {
		if e, ok := errors.AsExecutionError(err); ok {
			os.Exit(e.Code)
		}

		if _, ok := errors.AsConfigurationError(err); ok || conductor.Log == nil {
			fmt.Fprintln(os.Stderr, errors.WithDecoration(err))
		}

		os.Exit(1)
	}
}
