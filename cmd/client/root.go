package client

import (
	"fmt"
	cmdUtil "github.com/ValentinKolb/pollnet/cmd/util"
	"github.com/ValentinKolb/pollnet/lib/codec"
	"github.com/ValentinKolb/pollnet/lib/frame"
	"github.com/ValentinKolb/pollnet/lib/pollnet"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"
)

var Logger = logger.GetLogger("client")

var (
	clientConfig pollnet.Config
	ClientCmd    = &cobra.Command{
		Use:   "client",
		Short: "Connect to a pollnet demo server",
		Long: `Connect to a pollnet server, send a number of messages and wait for the replies.
The client reconnects on its own and resends unanswered messages. It exits once all replies arrived or a limit was hit.
The configuration can be set via command line flags or environment variables. The format of the environment variables is POLLNET_<flag> (e.g. POLLNET_COUNT=10)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(cmdUtil.InitConfig)

	cmdUtil.SetupEngineFlags(ClientCmd, pollnet.DefaultClientConfig())

	// add flags
	key := "endpoint"
	ClientCmd.PersistentFlags().String(key, "127.0.0.1:1234", cmdUtil.WrapString("The address of the server (ip:port)"))

	key = "interface"
	ClientCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("Local address to bind before connecting (empty = chosen by the OS)"))

	key = "local-port"
	ClientCmd.PersistentFlags().Uint16(key, 0, cmdUtil.WrapString("Local port to bind before connecting (0 = chosen by the OS)"))

	key = "mode"
	ClientCmd.PersistentFlags().String(key, "frame", cmdUtil.WrapString("Protocol: upper (raw bytes) or frame (length-prefixed messages), must match the server"))

	key = "count"
	ClientCmd.PersistentFlags().Int(key, 3, cmdUtil.WrapString("Number of messages to send"))

	key = "body"
	ClientCmd.PersistentFlags().String(key, "hello pollnet", cmdUtil.WrapString("Body of each message"))

	key = "max-ticks"
	ClientCmd.PersistentFlags().Int(key, 0, cmdUtil.WrapString("Stop after this many poll ticks (0 = unlimited)"))

	key = "duration"
	ClientCmd.PersistentFlags().Duration(key, 30*time.Second, cmdUtil.WrapString("Stop after this duration (0 = unlimited)"))
}

// processConfig reads the configuration from the command line flags and environment variables
func processConfig(cmd *cobra.Command, _ []string) error {
	if err := cmdUtil.BindCommandFlags(cmd); err != nil {
		return err
	}
	if err := cmdUtil.SetupLogging(); err != nil {
		return err
	}

	clientConfig = cmdUtil.GetEngineConfig()
	if err := clientConfig.Validate(); err != nil {
		return err
	}
	if viper.GetInt("count") < 0 {
		return fmt.Errorf("invalid count %d", viper.GetInt("count"))
	}
	switch mode := viper.GetString("mode"); mode {
	case "upper", "frame":
	default:
		return fmt.Errorf("invalid mode %s (expected upper or frame)", mode)
	}
	return nil
}

// run polls the client until every reply arrived, a limit is hit or a signal is received
func run(_ *cobra.Command, _ []string) error {
	c, err := codec.New(viper.GetString("codec"))
	if err != nil {
		return err
	}

	ip, port, err := cmdUtil.SplitEndpoint(viper.GetString("endpoint"))
	if err != nil {
		return err
	}

	client, err := pollnet.NewClient[stats](clientConfig)
	if err != nil {
		return err
	}
	if err := client.Init(viper.GetString("interface"), ip, port, viper.GetUint16("local-port")); err != nil {
		return fmt.Errorf("init failed: %v", err)
	}
	defer client.Shutdown("done")

	h := newHandler(client, c, viper.GetString("mode") == "frame", clientConfig.RecvBufSize-frame.HeaderLen)
	if err := h.enqueue(viper.GetInt("count"), viper.GetString("body")); err != nil {
		return err
	}

	var running atomic.Bool
	running.Store(true)
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-signals
		running.Store(false)
	}()

	var (
		maxTicks = viper.GetInt("max-ticks")
		duration = viper.GetDuration("duration")
		interval = viper.GetDuration("poll-interval")
		start    = time.Now()
		ticks    int
	)
	for running.Load() && !h.done() {
		if maxTicks > 0 && ticks >= maxTicks {
			break
		}
		if duration > 0 && time.Since(start) >= duration {
			break
		}
		client.Poll(h)
		ticks++
		if interval > 0 {
			time.Sleep(interval)
		}
	}

	Logger.Infof("%s finished after %d ticks and %d connections", client, ticks, client.Payload.connects)
	if !h.done() {
		return fmt.Errorf("incomplete: %d of %d replies received", progress(h), h.expect)
	}
	return nil
}

func progress(h *handler) int {
	if h.frameMode {
		return h.client.Payload.replies
	}
	return h.client.Payload.bytes
}
