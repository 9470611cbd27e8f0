// Command staffnum validates employee number patterns and issues numbers
// from the command line, keeping counters in a JSON file and employees in
// a YAML directory.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
