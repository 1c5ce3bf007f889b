package cmd

import (
	"github.com/spf13/cobra"

	"github.com/WaywardWizard/cuenim/pkg/bridge"
)

var projectRootFlag string

var commitCmd = &cobra.Command{
	Use:   "commit",
	Short: "Snapshot build-phase sources for the run phase",
	Long: `Load every source declared in the settings using build-phase context
({CONTEXT} resolves to the project root) and write the cross-phase
snapshot artifact. Secret sources are rejected: they must never be baked
into an artifact.`,
	Example: "  cuenim commit --project-root ./",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		resolver, err := newBuildResolver(settings, projectRootFlag)
		if err != nil {
			return err
		}
		return bridge.Commit(
			resolver.Registry(),
			resolver.Context(),
			resolver.Translator(),
			resolver.Decryptor(),
			settings.SnapshotPath)
	},
}

func init() {
	commitCmd.Flags().StringVar(&projectRootFlag, "project-root", "",
		"project root the build-phase {CONTEXT} token resolves to")
	RootCmd.AddCommand(commitCmd)
}
