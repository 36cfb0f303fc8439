// Package main implements the a64isel binary.
//
// a64isel runs AArch64 instruction selection over legalized operation graphs
// described in YAML and reports what each node became.
package main

import (
	"fmt"
	"os"

	"github.com/tebeka/atexit"
)

func main() {
	if err := RootCommand.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		atexit.Exit(1)
	}
	atexit.Exit(0)
}
