package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Re-enumerate every registered source",
	Long: `Force a refresh of the run-phase store: re-enumerate every selector,
reload every matching file through the collaborators, and re-scan every
environment prefix. Prints the loaded source identities in precedence
order, lowest first.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		resolver, err := newRunResolver(settings)
		if err != nil {
			return err
		}
		if err := resolver.Refresh(); err != nil {
			return err
		}
		for _, name := range resolver.Store().SourceIdentities() {
			fmt.Println(name)
		}
		return nil
	},
}

func init() {
	RootCmd.AddCommand(refreshCmd)
}
