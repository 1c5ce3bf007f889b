package cmd

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	errUtils "github.com/WaywardWizard/cuenim/errors"
)

var getCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Resolve a configuration key",
	Long: `Resolve a dotted configuration key against every registered source and
print the result as JSON. Object-valued keys merge every contributing
source; scalar keys come from the single highest-precedence source.`,
	Example: "  cuenim get server.port",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		resolver, err := newRunResolver(settings)
		if err != nil {
			return err
		}

		value, err := resolver.Get(args[0])
		if err != nil {
			return err
		}

		out, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalIndent(value, "", "  ")
		if err != nil {
			return errUtils.Wrap(err, "encoding result")
		}
		fmt.Println(string(out))
		return nil
	},
}

func init() {
	RootCmd.AddCommand(getCmd)
}
