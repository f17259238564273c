package main

import (
	"errors"
	"fmt"
	"os"
)

// Exit codes for different failure modes
const (
	ExitSuccess    = 0 // Evaluation completed
	ExitIncomplete = 1 // Evaluation ran but did not complete
	ExitError      = 2 // Configuration or runtime error
)

// IncompleteError indicates that the workflow ran to the end of the graph
// but the final synthesis was not produced.
type IncompleteError struct {
	Message string
}

func (e *IncompleteError) Error() string {
	return e.Message
}

func main() {
	if err := execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)

		var incompleteErr *IncompleteError
		if errors.As(err, &incompleteErr) {
			os.Exit(ExitIncomplete)
		}

		// All other errors are configuration/runtime errors
		os.Exit(ExitError)
	}
}
