// Command ptescore scores PTE Academic responses from the command line and
// runs the Temporal scoring worker.
package main

import (
	"errors"
	"fmt"
	"os"
)

// Exit codes.
const (
	ExitSuccess   = 0
	ExitError     = 1
	ExitUnhealthy = 2
)

func main() {
	if err := execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		var unhealthy *unhealthyError
		if errors.As(err, &unhealthy) {
			os.Exit(ExitUnhealthy)
		}
		os.Exit(ExitError)
	}
}
