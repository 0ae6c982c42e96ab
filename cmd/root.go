package cmd

import (
	"fmt"
	"github.com/ValentinKolb/pollnet/cmd/client"
	"github.com/ValentinKolb/pollnet/cmd/serve"
	"github.com/ValentinKolb/pollnet/cmd/util"
	"github.com/spf13/cobra"
	"os"
)

const (
	Version = "0.3.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "pollnet",
		Short: "single-threaded non-blocking tcp engine demos",
		Long: fmt.Sprintf(`pollnet (v%s)

Demo server and client for the pollnet engine: non-blocking TCP
connections driven by a caller-owned poll loop, without a goroutine
per connection.`, Version),
		SilenceUsage: true,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of pollnet",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("pollnet v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(client.ClientCmd)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	key := "log-level"
	RootCmd.PersistentFlags().String(key, "info", util.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
	key = "codec"
	RootCmd.PersistentFlags().String(key, "json", util.WrapString("codec for length-prefixed messages (json, msgpack)"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
