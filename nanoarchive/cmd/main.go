// Command nanoarchive inspects and manages nanoarchive archive trees: it
// prints entry locations, shows and lists cached entries, imports JSON
// responses into a collection and clears the cache.
package main

import (
	"fmt"
	"os"
)

func main() {
	cli := NewCLI()
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
