package util

import (
	"fmt"
	"github.com/ValentinKolb/pollnet/lib/common"
	"github.com/ValentinKolb/pollnet/lib/pollnet"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"net"
	"strconv"
	"strings"
	"sync"
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

		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// SetupEngineFlags adds the pollnet engine flags to a command, using defaults for the initial values
func SetupEngineFlags(cmd *cobra.Command, defaults pollnet.Config) {
	key := "recv-buf-size"
	cmd.PersistentFlags().Int(key, defaults.RecvBufSize, WrapString("Capacity of each connection's receive buffer in bytes, which is also the largest message a connection accepts"))

	key = "conn-retry"
	cmd.PersistentFlags().Duration(key, defaults.ConnRetryInterval, WrapString("Minimum time between two connect attempts (0 = only reconnect on request)"))

	key = "conn-timeout"
	cmd.PersistentFlags().Duration(key, defaults.ConnTimeout, WrapString("Timeout of a single connect attempt (0 = none)"))

	key = "send-timeout"
	cmd.PersistentFlags().Duration(key, defaults.SendTimeout, WrapString("Fire a send timeout when nothing was sent for this long (0 = disabled)"))

	key = "recv-timeout"
	cmd.PersistentFlags().Duration(key, defaults.RecvTimeout, WrapString("Fire a receive timeout when nothing was received for this long (0 = disabled)"))

	key = "poll-interval"
	cmd.PersistentFlags().Duration(key, 0, WrapString("Sleep between two poll ticks (0 = busy loop)"))
}

var (
	initOnce   sync.Once
	loggerOnce sync.Once
)

// InitConfig loads env files and makes viper read POLLNET_* environment variables
func InitConfig() {
	initOnce.Do(func() {
		// load env files
		_ = godotenv.Load(".env")
		_ = godotenv.Load(".env.local")

		// initialize viper
		viper.SetEnvPrefix("pollnet")
		viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
		viper.AutomaticEnv() // read in environment variables that match
	})
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}

// SetupLogging installs the pollnet loggers with the configured level
func SetupLogging() error {
	var err error
	loggerOnce.Do(func() {
		err = common.InitLoggers(viper.GetString("log-level"))
	})
	return err
}

// GetEngineConfig reads the engine configuration from viper
func GetEngineConfig() pollnet.Config {
	return pollnet.Config{
		RecvBufSize:       viper.GetInt("recv-buf-size"),
		MaxConns:          viper.GetInt("max-conns"),
		ListenBacklog:     viper.GetInt("listen-backlog"),
		ConnRetryInterval: viper.GetDuration("conn-retry"),
		ConnTimeout:       viper.GetDuration("conn-timeout"),
		SendTimeout:       viper.GetDuration("send-timeout"),
		RecvTimeout:       viper.GetDuration("recv-timeout"),
	}
}

// SplitEndpoint splits "ip:port" into its parts
func SplitEndpoint(endpoint string) (string, uint16, error) {
	host, portStr, err := net.SplitHostPort(endpoint)
	if err != nil {
		return "", 0, fmt.Errorf("invalid endpoint %s: %v", endpoint, err)
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return "", 0, fmt.Errorf("invalid port in endpoint %s: %v", endpoint, err)
	}
	return host, uint16(port), nil
}
