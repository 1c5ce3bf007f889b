package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/WaywardWizard/cuenim/pkg/version"
)

var versionCmd = &cobra.Command{
	Use:     "version",
	Short:   "Print the CLI version",
	Example: "  cuenim version",
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("cuenim %s on %s/%s\n", version.Version, runtime.GOOS, runtime.GOARCH)
	},
}

func init() {
	RootCmd.AddCommand(versionCmd)
}
