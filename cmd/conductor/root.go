package main

import (
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/rwx-research/conductor/internal/cli"
	"github.com/rwx-research/conductor/internal/errors"
	"github.com/rwx-research/conductor/internal/exec"
	"github.com/rwx-research/conductor/internal/fs"
	"github.com/rwx-research/conductor/internal/logging"
	"github.com/rwx-research/conductor/internal/telemetry"
	"github.com/rwx-research/conductor/internal/vcs"
)

var (
	conductor cli.Service

	// closeLogFile is replaced once a shared log file is opened
	closeLogFile = func() error { return nil }

	rootCmd = &cobra.Command{
		Use:                "conductor",
		Short:              "conductor runs BDD test suites and reports on them",
		Long:               descriptionConductor,
		PersistentPreRunE:  initCLIService,
		PersistentPostRunE: shutdownCLIService,
		SilenceErrors:      true, // Errors are manually printed in 'main'
		SilenceUsage:       true, // Disables usage text on error
	}
)

// AddRootFlags adds the flags every sub-command understands
func AddRootFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.String("config-file", "", "the config file for conductor (default: .conductor/config.yaml)")
	flags.Bool("debug", false, "enable debug output")
	flags.Bool("verbose", false, "show the complete output of the BDD runner")
	flags.String("log-file", "", "additionally write all log entries as JSON into this file")
}

func init() {
	AddRootFlags(rootCmd)
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

func initCLIService(cmd *cobra.Command, _ []string) error {
	cfg, err := InitConfig(cmd)
	if err != nil {
		return errors.WithStack(err)
	}

	logger := logging.NewProductionLogger()
	if cfg.Output.Debug {
		logger = logging.NewDebugLogger()
	}

	if cfg.Output.LogFile != "" {
		logger, closeLogFile, err = logging.WithSharedLogFile(logger, cfg.Output.LogFile)
		if err != nil {
			logger.Warnf("Logging to the console only: %s", err)
		}
	}

	runID := uuid.NewString()
	logger.Debugf("Run ID: %s", runID)

	conductor = cli.Service{
		Log:        logger,
		FileSystem: fs.Local{},
		TaskRunner: exec.Local{},
		Telemetry:  telemetry.NewRecorder(runID),
		RunID:      runID,
		Commit:     vcs.HeadCommit("."),
	}

	return nil
}

func shutdownCLIService(_ *cobra.Command, _ []string) error {
	if conductor.Log != nil {
		_ = conductor.Log.Sync()
	}

	return errors.WithStack(closeLogFile())
}
