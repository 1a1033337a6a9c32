package commands

import (
	"fmt"
	"os"

	"github.com/appliance-io/mgmtapi/internal/constants"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// NewInfoCommand creates the info command.
func NewInfoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Display appliance information",
		Long:  "Display the appliance's API version and collection summary from its root document",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := createClient(cmd.Context())
			if err != nil {
				return err
			}

			type Info struct {
				Endpoint        string   `json:"endpoint"          yaml:"endpoint"`
				Version         string   `json:"version"           yaml:"version"`
				LatestVersion   string   `json:"latest_version"    yaml:"latest_version"`
				OnLatestVersion bool     `json:"on_latest_version" yaml:"on_latest_version"`
				Collections     []string `json:"collections"       yaml:"collections"`
			}

			info := Info{
				Endpoint:        viper.GetString("endpoint"),
				Version:         client.Version().String(),
				LatestVersion:   client.LatestVersion(),
				OnLatestVersion: client.OnLatestVersion(),
				Collections:     client.CollectionNames(),
			}

			output := viper.GetString("output")
			switch output {
			case constants.FormatJSON:
				return renderJSON(info)
			case constants.FormatYAML:
				return renderYAML(info)
			default:
				table := tablewriter.NewWriter(os.Stdout)
				table.Header("Property", "Value")
				_ = table.Append("Endpoint", info.Endpoint)
				_ = table.Append("Version", info.Version)
				_ = table.Append("Latest Version", info.LatestVersion)
				_ = table.Append("On Latest", fmt.Sprintf("%t", info.OnLatestVersion))
				_ = table.Append("Collections", fmt.Sprintf("%d", len(info.Collections)))

				if err := table.Render(); err != nil {
					return fmt.Errorf("failed to render table: %w", err)
				}
			}

			return nil
		},
	}
}
