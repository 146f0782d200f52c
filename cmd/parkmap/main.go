// Command parkmap is a terminal client for the campus parking backend. Every
// subcommand drives the same screen controllers a graphical client would
// and prints the resulting screen.
package main

import (
	"errors"
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		// The failure banner has already been printed with the screen.
		if !errors.Is(err, errFailureShown) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}
