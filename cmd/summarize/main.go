// Command summarize extracts and summarizes the content behind a URL.
package main

import (
	"os"

	"github.com/jmylchreest/summarize/cmd/summarize/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(cmd.ExitCodeFor(err))
	}
}
