// The main package for the imgcrawl executable.
package main

import (
	"github.com/imgcrawl/imgcrawl/cmd"
)

// main is the entry point of the application.
// It defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
