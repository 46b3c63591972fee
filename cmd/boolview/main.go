// Command boolview inspects and edits a file of booleans as an
// n-dimensional array.
package main

import (
	"fmt"
	"os"

	"github.com/rawbytedev/indexer/cmd"
)

func main() {
	rootCmd := cmd.NewRootCommand(os.Stdin, os.Stdout, os.Stderr)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
