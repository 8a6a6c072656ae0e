package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/parleyhq/parley"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Compile every flow definition and report problems",
	RunE:  runValidate,
}

func runValidate(cmd *cobra.Command, _ []string) error {
	flows, err := loadFlows()
	if err != nil {
		return err
	}

	failures := 0
	for _, flow := range flows {
		info, err := parley.CompileFlow(flow)
		if err != nil {
			failures++
			fmt.Fprintf(cmd.OutOrStdout(), "FAIL %s: %v\n", flow.Name, err)
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "ok   %s: %d steps, %d edges, entry %q\n",
			info.Flow, len(info.Nodes), info.Edges, info.Entry)
	}
	if failures > 0 {
		return fmt.Errorf("%d of %d flows failed validation", failures, len(flows))
	}
	return nil
}
