// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"fmt"
	"io"
	"os"
)

// Fatal writes "error: err" to stderr and exits with code 1. main
// calls it with the error from run, when the logger may not exist.
func Fatal(err error) {
	report(os.Stderr, err)
	os.Exit(1)
}

func report(w io.Writer, err error) {
	fmt.Fprintf(w, "error: %v\n", err)
}
