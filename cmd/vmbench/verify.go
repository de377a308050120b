package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/feather-lang/vmbench/suite"
)

func newVerifyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check that every runtime agrees with the native functions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			checks, err := suite.Verify(cmd.Context(), a.logger)

			out := cmd.OutOrStdout()
			for _, c := range checks {
				status := "PASS"
				if !c.OK() {
					status = "FAIL"
				}
				fmt.Fprintf(out, "%s: %s %s %s\n", status, c.Workload, c.Runtime, c.Input)
				if !c.OK() {
					fmt.Fprintf(out, "  want: %s\n  got:  %s\n", c.Want, c.Got)
					if c.Err != nil {
						fmt.Fprintf(out, "  error: %v\n", c.Err)
					}
				}
			}
			fmt.Fprintf(out, "\nTotal: %d\n", len(checks))
			return err
		},
	}
}
