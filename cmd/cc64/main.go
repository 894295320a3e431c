// Command cc64 is the entry point for the cc64 compiler CLI.
package main

import (
	"fmt"
	"os"

	"cc64/cmd/cc64/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
