package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/appliance-io/mgmtapi/internal/constants"
	"github.com/appliance-io/mgmtapi/pkg/mgmtapi"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// NewActionsCommand creates the actions command group.
func NewActionsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "actions",
		Short: "Work with collection and entity actions",
		Long:  "List and invoke the actions the server declares on collections and entities",
	}

	cmd.AddCommand(newActionsListCommand())
	cmd.AddCommand(newActionsInvokeCommand())

	return cmd
}

// resolveActionContainer returns the action container of either a collection
// or, when an id is given, one of its entities.
func resolveActionContainer(client mgmtapi.Client, collectionName, entityID string) (mgmtapi.ActionContainer, error) {
	collection, err := client.Collection(collectionName)
	if err != nil {
		return nil, err
	}

	if entityID == "" {
		return collection.Actions(), nil
	}

	return collection.Entity(entityID).Actions(), nil
}

func newActionsListCommand() *cobra.Command {
	var entityID string

	cmd := &cobra.Command{
		Use:   "list COLLECTION",
		Short: "List declared actions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := createClient(cmd.Context())
			if err != nil {
				return err
			}

			container, err := resolveActionContainer(client, args[0], entityID)
			if err != nil {
				return err
			}

			names, err := container.Names(cmd.Context())
			if err != nil {
				return err
			}

			output := viper.GetString("output")
			switch output {
			case constants.FormatJSON:
				return renderJSON(names)
			case constants.FormatYAML:
				return renderYAML(names)
			default:
				table := tablewriter.NewWriter(os.Stdout)
				table.Header("Action")

				for _, name := range names {
					_ = table.Append(name)
				}

				if err := table.Render(); err != nil {
					return fmt.Errorf("failed to render table: %w", err)
				}
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&entityID, "id", "", "list actions of one entity instead of the collection")

	return cmd
}

func newActionsInvokeCommand() *cobra.Command {
	var (
		entityID    string
		resourceIDs []string
		fieldPairs  []string
	)

	cmd := &cobra.Command{
		Use:   "invoke COLLECTION ACTION",
		Short: "Invoke an action",
		Long: `Invoke a declared action.

Against a collection, --resource-id picks the entities the action applies to
(bulk form). Against one entity (--id), --field key=value pairs become the
single-resource payload.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := createClient(cmd.Context())
			if err != nil {
				return err
			}

			collection, err := client.Collection(args[0])
			if err != nil {
				return err
			}

			container, err := resolveActionContainer(client, args[0], entityID)
			if err != nil {
				return err
			}

			ctx := cmd.Context()

			action, err := container.Get(ctx, args[1])
			if err != nil {
				return err
			}

			var result any

			if entityID != "" {
				resource, err := parseFieldPairs(fieldPairs)
				if err != nil {
					return err
				}

				result, err = action.InvokeSingle(ctx, resource)
				if err != nil {
					return err
				}
			} else {
				resources := make([]any, 0, len(resourceIDs))
				for _, id := range resourceIDs {
					resources = append(resources, collection.Entity(id))
				}

				result, err = action.Invoke(ctx, resources...)
				if err != nil {
					return err
				}
			}

			return renderActionResult(result)
		},
	}

	cmd.Flags().StringVar(&entityID, "id", "", "invoke against one entity instead of the collection")
	cmd.Flags().StringArrayVar(&resourceIDs, "resource-id", nil, "entity id to include in a bulk invocation (repeatable)")
	cmd.Flags().StringArrayVar(&fieldPairs, "field", nil, "resource field for a single invocation (key=value, repeatable)")

	return cmd
}

func parseFieldPairs(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	fields := make(map[string]any, len(pairs))

	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidResourceField, pair)
		}

		fields[key] = value
	}

	return fields, nil
}

func renderActionResult(result any) error {
	if result == nil {
		fmt.Println("OK")

		return nil
	}

	if entities, ok := result.([]mgmtapi.Entity); ok {
		output := viper.GetString("output")
		if output == constants.FormatJSON || output == constants.FormatYAML {
			refs := make([]map[string]any, 0, len(entities))
			for _, entity := range entities {
				refs = append(refs, entity.Ref())
			}

			if output == constants.FormatJSON {
				return renderJSON(refs)
			}

			return renderYAML(refs)
		}

		table := tablewriter.NewWriter(os.Stdout)
		table.Header("Result Href")

		for _, entity := range entities {
			_ = table.Append(entity.Href())
		}

		if err := table.Render(); err != nil {
			return fmt.Errorf("failed to render table: %w", err)
		}

		return nil
	}

	return renderJSON(result)
}
