package common

import (
	"fmt"
	"strconv"
	"strings"
)

// --------------------------------------------------------------------------
// RPC server configuration struct
// --------------------------------------------------------------------------

// ServerConfig holds all configuration parameters for the database server.
type ServerConfig struct {
	// Storage parameters
	DataDir  string
	InMemory bool // run without storage, nothing is persisted
	NoEvict  bool // flush idle databases but keep them resident

	// Invalidation parameters
	SweepIntervalSecond int64

	// Access control
	SuperAdmins []string

	// RPC settings
	Endpoint      string
	TimeoutSecond int64

	// Observability
	MetricsEndpoint string // empty disables the metrics listener

	// Logging configuration
	LogLevel string
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// RPC settings
	addSection("RPC Server")
	addField("Endpoint", c.Endpoint)
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))

	// Storage
	addSection("Storage")
	if c.InMemory {
		addField("Mode", "memory-only")
	} else {
		addField("Mode", "file-backed")
		addField("Data Directory", c.DataDir)
	}

	// Invalidation
	addSection("Invalidation")
	addField("Sweep Interval", fmt.Sprintf("%d sec", c.SweepIntervalSecond))
	addField("Eviction", fmt.Sprintf("%t", !c.NoEvict && !c.InMemory))

	// Access control
	addSection("Access Control")
	addField("Super Admins", strconv.Itoa(len(c.SuperAdmins)))

	// Observability
	addSection("Observability")
	if c.MetricsEndpoint != "" {
		addField("Metrics Endpoint", c.MetricsEndpoint)
	} else {
		addField("Metrics Endpoint", "disabled")
	}

	// Logging configuration
	addSection("Logging")
	addField("Log Level", c.LogLevel)

	return sb.String()
}

// --------------------------------------------------------------------------
// RPC client configuration struct
// --------------------------------------------------------------------------

type ClientConfig struct {
	Endpoint      string
	AccessKey     string
	Encrypt       bool
	TimeoutSecond int
	RetryCount    int
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// General Client Settings
	addSection("Client Configuration")
	addField("Endpoint", c.Endpoint)
	addField("Access Key", maskKey(c.AccessKey))
	addField("Encryption", fmt.Sprintf("%t", c.Encrypt))
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Retry Count", strconv.Itoa(c.RetryCount))

	return sb.String()
}

// maskKey hides all but the first two characters of an access key.
func maskKey(key string) string {
	if key == "" {
		return "(none)"
	}
	if len(key) <= 2 {
		return "**"
	}
	return key[:2] + strings.Repeat("*", len(key)-2)
}
