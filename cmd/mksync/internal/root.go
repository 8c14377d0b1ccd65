package internal

import (
	"fmt"
	"os"

	"github.com/qiniu/x/log"
	"github.com/spf13/cobra"

	"github.com/mksync/mksync/internal/apply"
	"github.com/mksync/mksync/internal/config"
	"github.com/mksync/mksync/pkgs/filelist"
	"github.com/mksync/mksync/pkgs/rewrite"
)

var (
	cfgFile  string
	listFile string
	quiet    bool
	verbose  bool
)

var rootCmd = &cobra.Command{
	Use:   "mksync",
	Short: "mksync keeps build file lists in sync",
	Long: `mksync rewrites the file lists of makefiles, bakefiles and MSBuild
projects so that they match one authoritative master list, preserving
the formatting conventions of each file.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		switch {
		case verbose:
			log.SetOutputLevel(log.Ldebug)
		case quiet:
			log.SetOutputLevel(log.Lwarn)
		default:
			log.SetOutputLevel(log.Linfo)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Path to the project configuration file")
	rootCmd.PersistentFlags().StringVarP(&listFile, "list", "l", "", "Path to the master file list")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Only print warnings and errors")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		log.Fatal(err)
	}
}

// target is one build file to synchronize together with its rewriter.
type target struct {
	path   string
	update rewrite.UpdateFunc
}

// loadVars loads the project configuration and parses the master file
// list, returning the list path that was used.
func loadVars() (rewrite.Vars, string, *config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, "", nil, err
	}
	list := listFile
	if list == "" {
		list = cfg.FileList
	}
	vars, err := filelist.Parse(list, nil)
	if err != nil {
		return nil, "", nil, fmt.Errorf("failed to load file list: %w", err)
	}
	return vars, list, cfg, nil
}

// loadProject resolves the build files to work on: the positional args
// when given, the configured targets otherwise. All targets must exist;
// this is checked up front so that a typo cannot leave the project half
// synchronized.
func loadProject(args []string) (rewrite.Vars, []target, error) {
	vars, _, cfg, err := loadVars()
	if err != nil {
		return nil, nil, err
	}

	var targets []target
	if len(args) > 0 {
		for _, path := range args {
			update, err := apply.Resolve(apply.Auto, path)
			if err != nil {
				return nil, nil, err
			}
			targets = append(targets, target{path, update})
		}
	} else {
		for _, tgt := range cfg.Targets {
			update, err := apply.Resolve(apply.Format(tgt.Format), tgt.Path)
			if err != nil {
				return nil, nil, fmt.Errorf("target %s: %w", tgt.Path, err)
			}
			targets = append(targets, target{tgt.Path, update})
		}
	}
	if len(targets) == 0 {
		return nil, nil, fmt.Errorf("no build files given and no targets configured")
	}
	for _, tgt := range targets {
		if _, err := os.Stat(tgt.path); err != nil {
			return nil, nil, fmt.Errorf("failed to stat %s: %w", tgt.path, err)
		}
	}
	return vars, targets, nil
}
