package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"nsctl-go/nspin"
	"nsctl-go/nsregistry"
)

var pinsCmd = &cobra.Command{
	Use:   "pins <ns-bind-dir>",
	Short: "Verify the namespace bind mounts under a pin directory",
	Args:  cobra.ExactArgs(1),
	RunE:  runPins,
}

var pinsUnbind bool

func init() {
	rootCmd.AddCommand(pinsCmd)
	pinsCmd.Flags().BoolVar(&pinsUnbind, "unbind", false, "lazily unmount every pinned entry instead of verifying it")
}

func runPins(cmd *cobra.Command, args []string) error {
	dir := args[0]

	for _, kind := range nsregistry.All() {
		if kind == nsregistry.Mount {
			continue
		}
		entry, ok := nsregistry.ProcEntry(kind)
		if !ok {
			continue
		}
		path := filepath.Join(dir, entry)

		if pinsUnbind {
			if err := nspin.Unbind(path); err != nil {
				fmt.Printf("%-8s %s: %v\n", kind, path, err)
				continue
			}
			fmt.Printf("%-8s %s unbound\n", kind, path)
			continue
		}

		info, err := nspin.Verify(path)
		if err != nil {
			fmt.Printf("%-8s %s: %v\n", kind, path, err)
			continue
		}
		fmt.Printf("%-8s %s (mount id %d)\n", kind, path, info.ID)
	}
	return nil
}
