// Command nsctl creates, pins, and enters Linux namespaces.
package main

import (
	"fmt"
	"os"

	"nsctl-go/cmd"
	"nsctl-go/reexec"
)

func main() {
	if reexec.Init() {
		return
	}

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "nsctl:", err)
		os.Exit(1)
	}
}
