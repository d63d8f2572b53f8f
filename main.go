// The main package for the cmed-crawler executable.
package main

import (
	"github.com/lucianohb/cmed-crawler/cmd"
)

// main is the entry point of the application.
// It defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
