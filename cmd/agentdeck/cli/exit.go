// Copyright 2026 The AgentDeck Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import "fmt"

// ExitError makes the process exit with Code without printing
// anything further; the command has already written its output. Used
// for outcomes such as "no search results" that are not failures of
// the CLI itself.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit code %d", e.Code)
}

// ExitCode satisfies the interface process.Fatal checks for.
func (e *ExitError) ExitCode() int {
	return e.Code
}
