// Package cmd implements the cuenim CLI.
package cmd

import (
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	errUtils "github.com/WaywardWizard/cuenim/errors"
	"github.com/WaywardWizard/cuenim/pkg/schema"
)

var (
	settings schema.Settings

	logLevelFlag string
	snapshotFlag string
)

// RootCmd is the base command when called without any subcommands.
var RootCmd = &cobra.Command{
	Use:   "cuenim",
	Short: "Layered configuration resolution for CUE, sops, and the environment",
	Long: `cuenim resolves application configuration from CUE documents, sops-encrypted
secrets, plain JSON files, and environment variables into one
precedence-ordered view, and carries build-time defaults into the run phase.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		settings, err = schema.LoadSettings()
		if err != nil {
			return errUtils.Wrap(err, "loading settings")
		}
		if logLevelFlag != "" {
			settings.LogLevel = logLevelFlag
		}
		if snapshotFlag != "" {
			settings.SnapshotPath = snapshotFlag
		}
		configureLogger(settings.LogLevel)
		return nil
	},
}

// Execute runs the root command.
func Execute() error {
	return RootCmd.Execute()
}

func init() {
	addGlobalFlags(RootCmd.PersistentFlags())
}

func addGlobalFlags(fs *pflag.FlagSet) {
	fs.StringVar(&logLevelFlag, "log-level", "",
		"log level (debug, info, warn, error)")
	fs.StringVar(&snapshotFlag, "snapshot", "",
		"path to the cross-phase snapshot artifact")
}

func configureLogger(level string) {
	switch strings.ToLower(level) {
	case "debug":
		log.SetLevel(log.DebugLevel)
	case "warn", "warning":
		log.SetLevel(log.WarnLevel)
	case "error":
		log.SetLevel(log.ErrorLevel)
	default:
		log.SetLevel(log.InfoLevel)
	}
}
