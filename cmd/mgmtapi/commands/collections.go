package commands

import (
	"fmt"
	"os"

	"github.com/appliance-io/mgmtapi/internal/constants"
	"github.com/appliance-io/mgmtapi/pkg/mgmtapi"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// NewCollectionsCommand creates the collections command group.
func NewCollectionsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "collections",
		Short: "Work with appliance collections",
		Long:  "List and inspect the collections the appliance advertises",
	}

	cmd.AddCommand(newCollectionsListCommand())
	cmd.AddCommand(newCollectionsShowCommand())

	return cmd
}

type collectionSummary struct {
	Name        string `json:"name"        yaml:"name"`
	Href        string `json:"href"        yaml:"href"`
	Description string `json:"description" yaml:"description"`
}

func newCollectionsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List collections",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := createClient(cmd.Context())
			if err != nil {
				return err
			}

			summaries := make([]collectionSummary, 0, len(client.CollectionNames()))

			for _, name := range client.CollectionNames() {
				collection, err := client.Collection(name)
				if err != nil {
					return err
				}

				summaries = append(summaries, collectionSummary{
					Name:        collection.Name(),
					Href:        collection.Href(),
					Description: collection.Description(),
				})
			}

			output := viper.GetString("output")
			switch output {
			case constants.FormatJSON:
				return renderJSON(summaries)
			case constants.FormatYAML:
				return renderYAML(summaries)
			default:
				table := tablewriter.NewWriter(os.Stdout)
				table.Header("Name", "Description")

				for _, summary := range summaries {
					description := summary.Description
					if description == "" {
						description = constants.NotAvailable
					}

					_ = table.Append(summary.Name, description)
				}

				if err := table.Render(); err != nil {
					return fmt.Errorf("failed to render table: %w", err)
				}
			}

			return nil
		},
	}
}

func newCollectionsShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show COLLECTION",
		Short: "Show collection details",
		Long:  "Show a collection's size, matched size, and declared actions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := createClient(cmd.Context())
			if err != nil {
				return err
			}

			collection, err := client.Collection(args[0])
			if err != nil {
				return err
			}

			ctx := cmd.Context()

			count, err := collection.Count(ctx)
			if err != nil {
				return err
			}

			subcount, err := collection.Subcount(ctx)
			if err != nil {
				return err
			}

			actionNames, err := collection.Actions().Names(ctx)
			if err != nil && !mgmtapi.IsNotFound(err) {
				return err
			}

			type details struct {
				Name        string   `json:"name"        yaml:"name"`
				Href        string   `json:"href"        yaml:"href"`
				Description string   `json:"description" yaml:"description"`
				Count       int      `json:"count"       yaml:"count"`
				Subcount    int      `json:"subcount"    yaml:"subcount"`
				Actions     []string `json:"actions"     yaml:"actions"`
			}

			info := details{
				Name:        collection.Name(),
				Href:        collection.Href(),
				Description: collection.Description(),
				Count:       count,
				Subcount:    subcount,
				Actions:     actionNames,
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
				_ = table.Append("Name", info.Name)
				_ = table.Append("Href", info.Href)
				_ = table.Append("Count", fmt.Sprintf("%d", info.Count))
				_ = table.Append("Subcount", fmt.Sprintf("%d", info.Subcount))
				_ = table.Append("Actions", fmt.Sprintf("%d", len(info.Actions)))

				if err := table.Render(); err != nil {
					return fmt.Errorf("failed to render table: %w", err)
				}
			}

			return nil
		},
	}
}
