// Command blue-onyx runs a single-model object-detection HTTP server.
package main

import (
	"github.com/blue-onyx-go/blueonyx/cmd/blue-onyx/cmd"
)

func main() {
	cmd.Execute()
}
