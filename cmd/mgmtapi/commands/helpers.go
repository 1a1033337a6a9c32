// Package commands implements the mgmtapi CLI commands.
package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/appliance-io/mgmtapi/internal/constants"
	"github.com/appliance-io/mgmtapi/pkg/applianceclient"
	"github.com/appliance-io/mgmtapi/pkg/mgmtapi"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Common static errors used throughout the commands package.
var (
	ErrEndpointRequired     = errors.New("appliance endpoint is required (use --endpoint or MGMTAPI_ENDPOINT)")
	ErrInvalidFilterFormat  = errors.New("invalid filter format, expected key=value")
	ErrInvalidResourceField = errors.New("invalid resource field, expected key=value")
)

// createClient builds a client from the resolved CLI configuration.
func createClient(ctx context.Context) (mgmtapi.Client, error) {
	endpoint := viper.GetString("endpoint")
	if endpoint == "" {
		return nil, ErrEndpointRequired
	}

	config := &mgmtapi.Config{
		Endpoint:  endpoint,
		Username:  viper.GetString("username"),
		Password:  viper.GetString("password"),
		VerifyTLS: viper.GetBool("verify-tls"),
	}

	client, err := applianceclient.New(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	return client, nil
}

// parseFilters turns repeated key=value flags into a filter map.
func parseFilters(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	filters := make(map[string]any, len(pairs))

	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidFilterFormat, pair)
		}

		filters[key] = value
	}

	return filters, nil
}

// renderJSON writes a value as indented JSON to stdout.
func renderJSON(value any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", strings.Repeat(" ", constants.JSONIndentSize))

	if err := encoder.Encode(value); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}

	return nil
}

// renderYAML writes a value as YAML to stdout.
func renderYAML(value any) error {
	encoder := yaml.NewEncoder(os.Stdout)
	encoder.SetIndent(constants.JSONIndentSize)

	if err := encoder.Encode(value); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}

	return encoder.Close()
}

// displayValue formats an attribute value for table output.
func displayValue(value any) string {
	switch typed := value.(type) {
	case nil:
		return constants.NotAvailable
	case string:
		return typed
	case time.Time:
		return typed.Format(time.RFC3339)
	case float64:
		if typed == float64(int64(typed)) {
			return fmt.Sprintf("%d", int64(typed))
		}

		return fmt.Sprintf("%v", typed)
	default:
		return fmt.Sprintf("%v", typed)
	}
}

// entitySnapshot fetches an entity's attributes with table-friendly values
// flattened in place.
func entitySnapshot(ctx context.Context, entity mgmtapi.Entity) (map[string]any, error) {
	attrs, err := entity.Attributes(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load entity %s: %w", entity.Href(), err)
	}

	return attrs, nil
}
