// Copyright 2026 The AgentDeck Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"errors"
	"fmt"
	"os"
)

// exitCoder is implemented by errors that carry their own exit status
// and have already reported themselves to the user.
type exitCoder interface {
	ExitCode() int
}

// Fatal reports err from run() and exits. An error carrying an exit
// code exits with that code without printing; anything else prints
// "error: err" to stderr and exits 1.
func Fatal(err error) {
	var coded exitCoder
	if errors.As(err, &coded) {
		os.Exit(coded.ExitCode())
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
