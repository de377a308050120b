package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/feather-lang/vmbench/baseline"
	"github.com/feather-lang/vmbench/harness"
	"github.com/feather-lang/vmbench/internal/config"
	"github.com/feather-lang/vmbench/suite"
)

func newListCmd(a *app) *cobra.Command {
	var (
		filter    string
		runtimes  bool
		baselines bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print benchmark names, runtimes or saved baselines",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()

			switch {
			case runtimes:
				for _, spec := range suite.Runtimes() {
					fmt.Fprintf(out, "%-20s %s\n", spec.Name, spec.Description)
				}
				return nil
			case baselines:
				store, err := baseline.NewFileStore(a.v.GetString(config.KeyBaselineDir))
				if err != nil {
					return err
				}
				names, err := store.List()
				if err != nil {
					return err
				}
				for _, name := range names {
					fmt.Fprintln(out, name)
				}
				return nil
			}

			names, err := harness.Names(suite.Benchmarks(), filter)
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Fprintln(out, name)
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&filter, "filter", "",
		"Go regular expression selecting benchmarks by name")
	flags.BoolVar(&runtimes, "runtimes", false,
		"List runtimes instead of benchmarks")
	flags.BoolVar(&baselines, "baselines", false,
		"List saved baselines instead of benchmarks")

	return cmd
}
