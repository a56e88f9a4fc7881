package util

import (
	"fmt"
	"github.com/ValentinKolb/goporto/rpc/client"
	"github.com/ValentinKolb/goporto/rpc/common"
	"github.com/ValentinKolb/goporto/rpc/serializer"
	"github.com/ValentinKolb/goporto/rpc/transport/unix"
	"github.com/VictoriaMetrics/metrics"
	"github.com/joho/godotenv"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"os"
	"strings"
	"time"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50
)

// Logger is used by all client commands
var Logger = logger.GetLogger("client")

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// SetupClientFlags adds the connection flags to a command group
func SetupClientFlags(cmd *cobra.Command) {
	key := "socket"
	cmd.PersistentFlags().String(key, common.DefaultSocketPath, WrapString("Path of the daemon's unix socket"))

	key = "timeout"
	cmd.PersistentFlags().Int(key, common.DefaultTimeoutSecond, WrapString("Budget of one call in seconds (0 disables the deadline)"))

	key = "connect-retry"
	cmd.PersistentFlags().Int(key, common.DefaultConnectRetryMs, WrapString("Pause between connect attempts in milliseconds"))

	key = "log-level"
	cmd.PersistentFlags().String(key, "warn", WrapString("Level at which logs will be output (debug, info, warn, error)"))

	key = "metrics"
	cmd.PersistentFlags().Bool(key, false, WrapString("Print the client metrics in Prometheus format after the command"))
}

// InitClientConfig initializes configuration from environment variables
func InitClientConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("goporto")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// GetClientConfig reads client configuration from viper
func GetClientConfig() *common.ClientConfig {
	conf := common.DefaultClientConfig()
	conf.SocketPath = viper.GetString("socket")
	conf.TimeoutSecond = viper.GetInt("timeout")
	conf.ConnectRetryMs = viper.GetInt("connect-retry")
	conf.LogLevel = viper.GetString("log-level")
	return &conf
}

// GetSerializer creates a serializer based on configuration
func GetSerializer() (serializer.IRPCSerializer, error) {
	switch viper.GetString("serializer") {
	case "protobuf", "":
		return serializer.NewProtobufSerializer(), nil
	case "json":
		return serializer.NewJSONSerializer(), nil
	default:
		return nil, fmt.Errorf("invalid serializer %s", viper.GetString("serializer"))
	}
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}

// NewConnection builds an unconnected Connection from the viper configuration
// and applies the configured log level
func NewConnection() (*client.Connection, error) {
	config := GetClientConfig()
	if err := common.InitLoggers(config.LogLevel); err != nil {
		return nil, err
	}

	s, err := GetSerializer()
	if err != nil {
		return nil, err
	}

	Logger.Debugf("%s", config.String())
	return client.NewConnection(*config, unix.NewUnixClientTransport(), s, nil), nil
}

// CloseConnection disconnects c and, if the metrics flag is set, prints the
// client metrics in Prometheus text format
func CloseConnection(c *client.Connection) error {
	if c == nil {
		return nil
	}
	err := c.Disconnect()
	if viper.GetBool("metrics") {
		fmt.Println()
		metrics.WritePrometheus(os.Stdout, false)
	}
	return err
}

// ParseProperties parses "key=value" arguments
func ParseProperties(args []string) (map[string]string, error) {
	props := make(map[string]string, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid property %q (expected key=value)", arg)
		}
		props[key] = value
	}
	return props, nil
}

// ParseDuration parses a duration flag value; "" and "-1" mean forever
func ParseDuration(value string) (time.Duration, error) {
	if value == "" || value == "-1" {
		return -1, nil
	}
	return time.ParseDuration(value)
}
