package internal

import (
	"os"

	"github.com/qiniu/x/log"
	"github.com/spf13/cobra"

	"github.com/mksync/mksync/internal/apply"
)

var (
	syncDryRun bool
	syncDiff   bool
)

var syncCmd = &cobra.Command{
	Use:   "sync [build-file...]",
	Short: "Synchronize build files with the master file list",
	Long: `Sync rewrites the given build files, or the configured targets when
none are given, so that their file lists match the master list. The
format of positional files is detected from their extension.`,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().BoolVarP(&syncDryRun, "dry-run", "n", false, "Report what would change without writing")
	syncCmd.Flags().BoolVarP(&syncDiff, "diff", "d", false, "Print a unified diff of the changes without writing")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	vars, targets, err := loadProject(args)
	if err != nil {
		return err
	}

	opts := apply.Options{
		DryRun:  syncDryRun,
		Diff:    syncDiff,
		DiffOut: os.Stdout,
	}
	for _, tgt := range targets {
		changed, err := apply.File(tgt.path, tgt.update, vars, opts)
		if err != nil {
			return err
		}
		switch {
		case !changed:
			log.Debugf("no changes in %s", tgt.path)
		case syncDryRun || syncDiff:
			log.Infof("would update %s", tgt.path)
		default:
			log.Infof("updated %s", tgt.path)
		}
	}
	return nil
}
