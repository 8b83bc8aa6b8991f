// Package cmds implements the command-line interface of kmon.
package cmds

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/penguinnnnn/kmon/pkg/config"
	"github.com/penguinnnnn/kmon/pkg/core"
	"github.com/penguinnnnn/kmon/pkg/logflags"
	"github.com/penguinnnnn/kmon/pkg/terminal"
	"github.com/penguinnnnn/kmon/pkg/version"
)

var (
	// log is whether to log debug statements.
	log bool
	// logOutput is a comma separated list of components that should produce debug output.
	logOutput string
	// initFile is the path to an initialization file replayed before the prompt.
	initFile string

	// rootCommand is the root of the command tree.
	rootCommand *cobra.Command

	conf *config.Config
)

const kmonCommandLongDesc = `Kmon is an interactive monitor for suspended kernel images.

It gives you a command line for inspecting a trapped kernel context:
walking the stack, examining and editing page mappings, dumping memory,
and resuming or single-stepping the trapped context.`

// New returns an initialized command tree.
func New() *cobra.Command {
	conf = config.LoadConfig()

	rootCommand = &cobra.Command{
		Use:   "kmon",
		Short: "Kmon is an interactive monitor for suspended kernel images.",
		Long:  kmonCommandLongDesc,
	}

	rootCommand.PersistentFlags().BoolVarP(&log, "log", "", false, "Enable debug logging.")
	rootCommand.PersistentFlags().StringVarP(&logOutput, "log-output", "", "", "Comma separated list of components that should produce debug output (monitor, kernel, core).")
	rootCommand.PersistentFlags().StringVar(&initFile, "init", "", "Init file, executed by the monitor before the first prompt.")

	// 'core' subcommand.
	coreCommand := &cobra.Command{
		Use:   "core <snapshot>",
		Short: "Examine a kernel snapshot.",
		Long: `Examine a kernel snapshot.

Loads the machine image from the given snapshot file and starts the
monitor prompt on it.`,
		Args: cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			os.Exit(execute(args[0], conf))
		},
	}
	rootCommand.AddCommand(coreCommand)

	// 'version' subcommand.
	versionCommand := &cobra.Command{
		Use:   "version",
		Short: "Prints version.",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Kmon Monitor\n%s\nGo: %s\n", version.KmonVersion, version.BuildInfo())
		},
	}
	rootCommand.AddCommand(versionCommand)

	return rootCommand
}

func execute(snapshotPath string, conf *config.Config) int {
	if err := logflags.Setup(log, logOutput); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}

	machine, err := core.OpenSnapshot(snapshotPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not open snapshot: %v\n", err)
		return 1
	}

	term := terminal.New(machine, conf)
	term.InitFile = initFile
	status, err := term.Run()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	return status
}
