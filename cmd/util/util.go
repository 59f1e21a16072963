package util

import (
	"fmt"
	"strings"

	"github.com/ValentinKolb/smolDB/rpc/common"
	"github.com/ValentinKolb/smolDB/rpc/serializer"
	"github.com/ValentinKolb/smolDB/rpc/transport"
	"github.com/ValentinKolb/smolDB/rpc/transport/tcp"
	"github.com/ValentinKolb/smolDB/rpc/transport/unix"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		// Add space before word (if not first word on line)
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		// Add the word
		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	// Add any remaining text
	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// SetupRPCClientFlags adds common RPC connection flags to a command
func SetupRPCClientFlags(cmd *cobra.Command) {
	key := "endpoint"
	cmd.PersistentFlags().String(key, "localhost:8222", WrapString("The address of the smolDB server (host:port for tcp, a socket path for unix)"))

	key = "access-key"
	cmd.PersistentFlags().String(key, "", WrapString("The access key identifying this client to the server"))

	key = "encrypt"
	cmd.PersistentFlags().Bool(key, false, WrapString("Whether to encrypt the connection with the server"))

	key = "timeout"
	cmd.PersistentFlags().Int(key, 10, WrapString("The timeout in seconds of the client"))

	key = "retries"
	cmd.PersistentFlags().Int(key, 3, WrapString("How many times to retry a request over a fresh connection"))
}

// InitClientConfig initializes configuration from environment variables
func InitClientConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("smoldb")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// GetClientConfig reads client configuration from viper
func GetClientConfig() *common.ClientConfig {
	return &common.ClientConfig{
		Endpoint:      viper.GetString("endpoint"),
		AccessKey:     viper.GetString("access-key"),
		Encrypt:       viper.GetBool("encrypt"),
		TimeoutSecond: viper.GetInt("timeout"),
		RetryCount:    viper.GetInt("retries"),
	}
}

// GetSerializer creates a serializer based on configuration
func GetSerializer() (serializer.IRPCSerializer, error) {
	switch viper.GetString("serializer") {
	case "json":
		return serializer.NewJSONSerializer(), nil
	case "gob":
		return serializer.NewGOBSerializer(), nil
	default:
		return nil, fmt.Errorf("invalid serializer %s", viper.GetString("serializer"))
	}
}

// GetClientTransport creates a client transport based on configuration
func GetClientTransport() (transport.IRPCClientTransport, error) {
	switch viper.GetString("transport") {
	case "tcp":
		return tcp.NewTCPClientTransport(), nil
	case "unix":
		return unix.NewUnixClientTransport(), nil
	default:
		return nil, fmt.Errorf("invalid transport %s", viper.GetString("transport"))
	}
}

// GetServerTransport creates a server transport based on configuration
func GetServerTransport() (transport.IRPCServerTransport, error) {
	switch viper.GetString("transport") {
	case "tcp":
		return tcp.NewTCPServerTransport(), nil
	case "unix":
		return unix.NewUnixServerTransport(), nil
	default:
		return nil, fmt.Errorf("invalid transport %s", viper.GetString("transport"))
	}
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}
