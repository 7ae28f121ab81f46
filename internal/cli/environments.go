package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"mdqengine/internal/executor"
	"mdqengine/internal/executor/native"
)

var environmentsListQuiet bool

var environmentsCmd = &cobra.Command{
	Use:     "environments",
	Aliases: []string{"envs"},
	Short:   "Inspect script environments",
	Long: `Inspect the script environments checks can run in.

A check's <environment> names one of these, or one of its aliases, matched
case-insensitively.

Examples:
  mdqengine environments list
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var environmentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered environments",
	Long: `List every environment registered in this build, sorted by name.

Output:
  A vertical list of environments:
    ----------------------------------------
    ENVIRONMENT: {NAME}
    ----------------------------------------
    {DESCRIPTION}
    Aliases: {ALIASES}
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, b := range executor.Default().List() {
			if environmentsListQuiet {
				fmt.Fprintln(cmd.OutOrStdout(), b.Name)
				continue
			}
			var checks []string
			if b.Name == native.Name {
				checks = native.Names()
			}
			printEnvironment(cmd.OutOrStdout(), b, checks)
		}
		return nil
	},
}

func printEnvironment(w io.Writer, b executor.Backend, checks []string) {
	bold := color.New(color.Bold)
	fmt.Fprintln(w, "----------------------------------------")
	bold.Fprintf(w, "ENVIRONMENT: %s\n", b.Name)
	fmt.Fprintln(w, "----------------------------------------")
	if b.Description != "" {
		fmt.Fprintln(w, b.Description)
	}
	if len(b.Aliases) > 0 {
		fmt.Fprintf(w, "Aliases: %s\n", strings.Join(b.Aliases, ", "))
	}
	if len(checks) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Checks:")
		for _, c := range checks {
			fmt.Fprintf(w, "  %s\n", c)
		}
	}
	fmt.Fprintln(w)
}

func init() {
	rootCmd.AddCommand(environmentsCmd)
	environmentsCmd.AddCommand(environmentsListCmd)
	environmentsListCmd.Flags().BoolVarP(&environmentsListQuiet, "quiet", "q", false, "Only print environment names")
}
