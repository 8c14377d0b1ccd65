package internal

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var varsCmd = &cobra.Command{
	Use:   "vars [name...]",
	Short: "Show the variables of the master file list",
	Long: `Vars parses the master file list and prints its variable names with
their entry counts, or the entries of the named variables.`,
	RunE: runVars,
}

func init() {
	rootCmd.AddCommand(varsCmd)
}

func runVars(cmd *cobra.Command, args []string) error {
	vars, list, _, err := loadVars()
	if err != nil {
		return err
	}

	if len(args) == 0 {
		names := make([]string, 0, len(vars))
		for name := range vars {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Printf("%s (%d files)\n", name, len(vars[name]))
		}
		return nil
	}
	for _, name := range args {
		entries, ok := vars[name]
		if !ok {
			return fmt.Errorf("variable %q is not defined in %s", name, list)
		}
		fmt.Printf("%s =\n", name)
		for _, entry := range entries {
			fmt.Printf("    %s\n", entry)
		}
	}
	return nil
}
