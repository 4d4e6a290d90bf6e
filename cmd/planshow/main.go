// Command planshow is a debug-only tool that decodes a binary query plan
// file and prints its iterator tree. It is never part of the production
// query path; it exists to inspect plans captured from the wire while
// diagnosing a query.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/oracle/nosql-go-queryexec/pkgs/queryplan"
)

func main() {
	var planFile string

	rootCmd := &cobra.Command{
		Use:           "planshow",
		Short:         "Decode and print a query plan's iterator tree",
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if planFile == "" {
				return fmt.Errorf("--plan is required")
			}
			f, err := os.Open(planFile)
			if err != nil {
				return fmt.Errorf("opening plan file: %w", err)
			}
			defer f.Close()

			root, err := queryplan.NewReader(f).ReadPlan()
			if err != nil {
				return fmt.Errorf("decoding plan: %w", err)
			}
			printStep(cmd.OutOrStdout(), root, 0)
			return nil
		},
	}
	rootCmd.Flags().StringVar(&planFile, "plan", "", "path to a binary plan file")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "planshow:", err)
		os.Exit(1)
	}
}

func printStep(w interface{ Write([]byte) (int, error) }, s *queryplan.Step, depth int) {
	if s == nil {
		fmt.Fprintf(w, "%s<nil>\n", strings.Repeat("  ", depth))
		return
	}
	fmt.Fprintf(w, "%s%s res=%d\n", strings.Repeat("  ", depth), s.Kind, s.ResPos)
	for _, child := range children(s) {
		printStep(w, child, depth+1)
	}
}

func children(s *queryplan.Step) []*queryplan.Step {
	var out []*queryplan.Step
	if s.Input != nil {
		out = append(out, s.Input)
	}
	if s.FromStep != nil {
		out = append(out, s.FromStep)
	}
	out = append(out, s.ColumnSteps...)
	if s.OffsetStep != nil {
		out = append(out, s.OffsetStep)
	}
	if s.LimitStep != nil {
		out = append(out, s.LimitStep)
	}
	out = append(out, s.Args...)
	return out
}
