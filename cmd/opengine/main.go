// Package main is the entrypoint for the operation engine (binary name "opengine").
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "opengine: %v\n", err)
		os.Exit(1)
	}
}
