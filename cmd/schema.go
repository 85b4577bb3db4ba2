// -- cmd/schema.go --
package cmd

import (
	"os"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"

	"github.com/xkilldash9x/scenario-cli/internal/suite"
)

func newSchemaCmd() *cobra.Command {
	var output string
	schemaCmd := &cobra.Command{
		Use:   "schema",
		Short: "Prints the JSON Schema for suite files",
		Long:  `Prints the JSON Schema that suite YAML documents are validated against, for editor integration.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := suite.GenerateJSONSchema()
			if err != nil {
				return err
			}
			data = append(data, '\n')
			if output == "" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			p, err := homedir.Expand(output)
			if err != nil {
				return err
			}
			return os.WriteFile(p, data, 0o644)
		},
	}
	schemaCmd.Flags().StringVarP(&output, "output", "o", "", "Write the schema to this file instead of stdout")
	return schemaCmd
}
