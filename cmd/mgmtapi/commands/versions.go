package commands

import (
	"fmt"
	"os"

	"github.com/appliance-io/mgmtapi/internal/constants"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// NewVersionsCommand creates the versions command.
func NewVersionsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "versions",
		Short: "List appliance API versions",
		Long:  "List the API versions the appliance advertises, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := createClient(cmd.Context())
			if err != nil {
				return err
			}

			names := client.VersionNames()
			current := client.Version().String()

			output := viper.GetString("output")
			switch output {
			case constants.FormatJSON:
				return renderJSON(names)
			case constants.FormatYAML:
				return renderYAML(names)
			default:
				table := tablewriter.NewWriter(os.Stdout)
				table.Header("Version", "Current")

				for _, name := range names {
					marker := ""
					if name == current {
						marker = constants.CheckMarkSymbol
					}

					_ = table.Append(name, marker)
				}

				if err := table.Render(); err != nil {
					return fmt.Errorf("failed to render table: %w", err)
				}
			}

			return nil
		},
	}
}
