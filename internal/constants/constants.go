package constants

import "time"

// File and directory permissions.
const (
	// ConfigDirPerm is the permission for configuration directories.
	ConfigDirPerm = 0750

	// ConfigFilePerm is the permission for configuration files.
	ConfigFilePerm = 0600
)

// HTTP and network timeouts.
const (
	// DefaultHTTPTimeout is the default timeout for HTTP requests.
	DefaultHTTPTimeout = 30 * time.Second

	// ShortHTTPTimeout is used for quick operations.
	ShortHTTPTimeout = 10 * time.Second
)

// Retry limits.
const (
	// DefaultRetryWaitMin is the minimum wait time between retries.
	DefaultRetryWaitMin = 1 * time.Second

	// DefaultRetryWaitMax is the maximum wait time between retries.
	DefaultRetryWaitMax = 10 * time.Second
)

// Task polling.
const (
	// DefaultTaskPollInterval is the interval between task state checks.
	DefaultTaskPollInterval = 2 * time.Second

	// DefaultTaskPollTimeout bounds how long a task is polled.
	DefaultTaskPollTimeout = 5 * time.Minute
)

// Output format constants.
const (
	// FormatJSON for JSON output format.
	FormatJSON = "json"

	// FormatYAML for YAML output format.
	FormatYAML = "yaml"

	// FormatTable for table output format.
	FormatTable = "table"
)

// Display constants.
const (
	// NotAvailable is used when information is not available.
	NotAvailable = "N/A"

	// CheckMarkSymbol is used to indicate current/active items.
	CheckMarkSymbol = "✓"

	// JSONIndentSize is the number of spaces for JSON and YAML indentation.
	JSONIndentSize = 2
)

// Task states reported by the appliance.
const (
	// TaskStateFinished is the terminal task state.
	TaskStateFinished = "Finished"

	// TaskStatusError marks a finished task that failed.
	TaskStatusError = "Error"
)
