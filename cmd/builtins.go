package cmd

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/startterm/startsh/commands"
)

// builtinsCmd lists the commands every shell starts with
var builtinsCmd = &cobra.Command{
	Use:   "builtins",
	Short: "Show the builtin commands of the shell.",
	Args:  cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		builtins := commands.Builtins()
		sort.Slice(builtins, func(i, j int) bool {
			return builtins[i].Name < builtins[j].Name
		})

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		for _, c := range builtins {
			fmt.Fprintf(w, "%s\t%s\t%s\n", c.Kind, c.Use, c.Help)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(builtinsCmd)
}
