package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"mdqengine/internal/executor"
)

// versionCmd reports the build stamp and the check environments compiled
// into this binary, so a result set can be traced to the engine that made it.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the engine build and its check environments",
	Long: `Print the mdqengine build stamp (version, commit, build date) followed by
the check environments this binary can execute.

Environments backed by an external interpreter are listed even when the
interpreter is missing from PATH; checks using them report ERROR at run time.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		printVersion(cmd.OutOrStdout(), executor.Default())
	},
}

func printVersion(w io.Writer, reg *executor.Registry) {
	version, commit, date := BuildInfo()
	fmt.Fprintf(w, "mdqengine %s\n", version)
	fmt.Fprintf(w, "commit:       %s\n", commit)
	fmt.Fprintf(w, "built:        %s\n", date)

	var names []string
	for _, b := range reg.List() {
		names = append(names, b.Name)
	}
	if len(names) == 0 {
		names = []string{"none"}
	}
	fmt.Fprintf(w, "environments: %s\n", strings.Join(names, ", "))
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
