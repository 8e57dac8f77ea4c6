package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"nsctl-go/launcher"
	"nsctl-go/nskernel"
	"nsctl-go/nsregistry"
)

var enterCmd = &cobra.Command{
	Use:   "enter <ns-bind-dir> [--] <command> [args...]",
	Short: "Join previously pinned namespaces and run a command inside them",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runEnter,
}

var enterKinds []string

func init() {
	rootCmd.AddCommand(enterCmd)
	enterCmd.Flags().StringSliceVar(&enterKinds, "namespace", nil, "namespace kind to join (repeatable); default is every kind pinned under the bind dir")
}

func runEnter(cmd *cobra.Command, args []string) error {
	bindDir := args[0]
	rest := args[1:]

	kinds := enterKinds
	if len(kinds) == 0 {
		for _, k := range nsregistry.All() {
			if k == nsregistry.Mount {
				continue
			}
			entry, _ := nsregistry.ProcEntry(k)
			if _, err := os.Stat(filepath.Join(bindDir, entry)); err != nil {
				continue
			}
			kinds = append(kinds, string(k))
		}
	}

	for _, name := range kinds {
		kind, ok := nsregistry.Lookup(name)
		if !ok {
			return fmt.Errorf("unknown namespace kind %q", name)
		}
		entry, _ := nsregistry.ProcEntry(kind)
		path := filepath.Join(bindDir, entry)
		if err := nskernel.SetnsPath(path, 0); err != nil {
			return fmt.Errorf("join %s namespace: %w", kind, err)
		}
	}

	var rawState *term.State
	if term.IsTerminal(int(os.Stdin.Fd())) {
		state, err := term.MakeRaw(int(os.Stdin.Fd()))
		if err == nil {
			rawState = state
			defer term.Restore(int(os.Stdin.Fd()), rawState)
		}
	}

	code, err := launcher.RunCommand(rest)
	if err != nil {
		return fmt.Errorf("run command: %w", err)
	}
	os.Exit(code)
	return nil
}
