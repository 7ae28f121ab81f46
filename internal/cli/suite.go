package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"mdqengine/internal/executor"
	"mdqengine/internal/model"
	"mdqengine/internal/suite"
)

var suiteShowFormat string

var suiteCmd = &cobra.Command{
	Use:   "suite",
	Short: "Inspect quality suites",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var suiteShowCmd = &cobra.Command{
	Use:   "show [suite-file]",
	Short: "Show the checks of a suite and any problems with them",
	Long: `Load a suite file (XML, JSON or YAML), report structural problems and
print its checks in order.

--format json|yaml prints the suite as the engine decoded it, which also
converts between suite formats.

Examples:
  mdqengine suite show suites/knb.xml
  mdqengine suite show suites/knb.xml --format yaml > knb.yaml
`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := suite.Load(args[0])
		if err != nil {
			return err
		}
		switch strings.ToLower(strings.TrimSpace(suiteShowFormat)) {
		case "", "text":
			printSuite(cmd.OutOrStdout(), s, executor.Default())
			return nil
		case "json":
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(s)
		case "yaml":
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(s); err != nil {
				return err
			}
			return enc.Close()
		default:
			return fmt.Errorf("unsupported --format: %s (must be one of: text, json, yaml)", suiteShowFormat)
		}
	},
}

func printSuite(w io.Writer, s *model.Suite, reg *executor.Registry) {
	bold := color.New(color.Bold)
	fmt.Fprintln(w, "----------------------------------------")
	bold.Fprintf(w, "SUITE: %s\n", s.ID)
	fmt.Fprintln(w, "----------------------------------------")
	if s.Name != "" {
		fmt.Fprintln(w, s.Name)
	}
	if s.Description != "" {
		fmt.Fprintln(w, s.Description)
	}
	fmt.Fprintln(w)

	for i, c := range s.Checks {
		env := c.Environment
		if _, ok := reg.Lookup(env); !ok {
			env = color.YellowString("%s (not available)", env)
		}
		fmt.Fprintf(w, "%2d. %s [%s]", i+1, c.ID, env)
		if c.Level != "" {
			fmt.Fprintf(w, " %s", c.Level)
		}
		fmt.Fprintln(w)
		if c.Name != "" {
			fmt.Fprintf(w, "    %s\n", c.Name)
		}
		if len(c.Selectors) > 0 {
			names := make([]string, 0, len(c.Selectors))
			for _, sel := range c.Selectors {
				names = append(names, sel.Name)
			}
			fmt.Fprintf(w, "    Selectors: %s\n", strings.Join(names, ", "))
		}
		if len(c.Dialects) > 0 {
			names := make([]string, 0, len(c.Dialects))
			for _, d := range c.Dialects {
				names = append(names, d.Name)
			}
			fmt.Fprintf(w, "    Dialects:  %s\n", strings.Join(names, ", "))
		}
		if len(c.Library) > 0 {
			fmt.Fprintf(w, "    Libraries: %s\n", strings.Join(c.Library, ", "))
		}
	}

	if err := suite.Validate(s); err != nil {
		fmt.Fprintln(w)
		color.New(color.FgRed, color.Bold).Fprintln(w, "Problems:")
		for _, p := range problems(err) {
			fmt.Fprintf(w, "  - %s\n", p)
		}
	}
}

// problems flattens a joined validation error into one line per problem.
func problems(err error) []string {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var out []string
		for _, e := range joined.Unwrap() {
			out = append(out, problems(e)...)
		}
		return out
	}
	return []string{err.Error()}
}

func init() {
	rootCmd.AddCommand(suiteCmd)
	suiteCmd.AddCommand(suiteShowCmd)
	suiteShowCmd.Flags().StringVar(&suiteShowFormat, "format", "text", "Output format: text|json|yaml")
}
