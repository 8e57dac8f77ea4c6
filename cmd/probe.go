package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"nsctl-go/nsprobe"
	"nsctl-go/nsregistry"
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Report which namespace kinds this kernel supports",
	Args:  cobra.NoArgs,
	RunE:  runProbe,
}

func init() {
	rootCmd.AddCommand(probeCmd)
}

func runProbe(cmd *cobra.Command, args []string) error {
	if err := nsprobe.Probe(); err != nil {
		return fmt.Errorf("probe: %w", err)
	}

	for _, kind := range nsregistry.All() {
		available, _ := nsregistry.Available(kind)
		status := "unavailable"
		if available {
			status = "available"
		}
		fmt.Printf("%-8s %s\n", kind, status)
	}
	return nil
}
