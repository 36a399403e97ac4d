// Package main provides the countrystats command line tool, a one-shot
// generator of bibliometric country reports from the OpenAlex API.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "countrystats",
		Short: "Generate a bibliometric country report from OpenAlex",
		Long: `countrystats queries the OpenAlex scholarly catalog and produces a
one-shot bibliometric report for a country: publication totals, open
access statistics, knowledge field breakdowns, top authors and
institutions, and international collaboration. Results are written as
JSON documents and PNG charts.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newReportCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}
