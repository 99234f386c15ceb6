// Command sagactl inspects and maintains the world library offline, using the
// same STORAGE_BACKEND settings as the API server.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, bad.Render("error: "+err.Error()))
		os.Exit(1)
	}
}
