package internal

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mksync/mksync/internal/apply"
)

var checkCmd = &cobra.Command{
	Use:   "check [build-file...]",
	Short: "Report build files that are out of sync",
	Long: `Check runs the synchronization without writing anything and fails
when any build file would change, printing the path of each one. Useful
as a CI gate.`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	vars, targets, err := loadProject(args)
	if err != nil {
		return err
	}

	stale := 0
	for _, tgt := range targets {
		changed, err := apply.File(tgt.path, tgt.update, vars, apply.Options{DryRun: true})
		if err != nil {
			return err
		}
		if changed {
			fmt.Println(tgt.path)
			stale++
		}
	}
	if stale > 0 {
		return fmt.Errorf("%d build file(s) out of sync", stale)
	}
	return nil
}
