// The main package for the portal executable.
package main

import (
	"github.com/vedicportal/portal/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
