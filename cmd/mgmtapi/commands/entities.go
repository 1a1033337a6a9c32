package commands

import (
	"fmt"
	"os"
	"sort"

	"github.com/appliance-io/mgmtapi/internal/constants"
	"github.com/appliance-io/mgmtapi/pkg/mgmtapi"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// NewEntitiesCommand creates the entities command group.
func NewEntitiesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "entities",
		Short: "Work with collection entities",
		Long:  "List, filter, and inspect the entities inside a collection",
	}

	cmd.AddCommand(newEntitiesListCommand())
	cmd.AddCommand(newEntitiesGetCommand())

	return cmd
}

func newEntitiesListCommand() *cobra.Command {
	var filterPairs []string

	cmd := &cobra.Command{
		Use:   "list COLLECTION",
		Short: "List entities in a collection",
		Long:  "List entities, optionally narrowed by server-side filters",
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

			filters, err := parseFilters(filterPairs)
			if err != nil {
				return err
			}

			ctx := cmd.Context()

			var entities []mgmtapi.Entity

			if len(filters) > 0 {
				result, err := collection.FindBy(ctx, filters)
				if err != nil {
					return err
				}

				entities = result.Resources
			} else {
				entities, err = collection.All(ctx)
				if err != nil {
					return err
				}
			}

			refs := make([]map[string]string, 0, len(entities))
			for _, entity := range entities {
				refs = append(refs, map[string]string{
					"identity": entity.Identity(),
					"href":     entity.Href(),
				})
			}

			output := viper.GetString("output")
			switch output {
			case constants.FormatJSON:
				return renderJSON(refs)
			case constants.FormatYAML:
				return renderYAML(refs)
			default:
				table := tablewriter.NewWriter(os.Stdout)
				table.Header("Identity", "Href")

				for _, ref := range refs {
					_ = table.Append(ref["identity"], ref["href"])
				}

				if err := table.Render(); err != nil {
					return fmt.Errorf("failed to render table: %w", err)
				}
			}

			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&filterPairs, "filter", "f", nil, "server-side filter (key=value, repeatable)")

	return cmd
}

func newEntitiesGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get COLLECTION ID",
		Short: "Show one entity",
		Long:  "Fetch and display the full attribute set of one entity",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := createClient(cmd.Context())
			if err != nil {
				return err
			}

			entity := client.GetEntity(args[0], args[1])

			attrs, err := entitySnapshot(cmd.Context(), entity)
			if err != nil {
				return err
			}

			output := viper.GetString("output")
			switch output {
			case constants.FormatJSON:
				return renderJSON(attrs)
			case constants.FormatYAML:
				return renderYAML(attrs)
			default:
				keys := make([]string, 0, len(attrs))
				for key := range attrs {
					keys = append(keys, key)
				}

				sort.Strings(keys)

				table := tablewriter.NewWriter(os.Stdout)
				table.Header("Attribute", "Value")

				for _, key := range keys {
					_ = table.Append(key, displayValue(attrs[key]))
				}

				if err := table.Render(); err != nil {
					return fmt.Errorf("failed to render table: %w", err)
				}
			}

			return nil
		},
	}
}
