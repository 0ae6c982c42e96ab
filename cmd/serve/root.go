package serve

import (
	"fmt"
	cmdUtil "github.com/ValentinKolb/pollnet/cmd/util"
	"github.com/ValentinKolb/pollnet/lib/codec"
	"github.com/ValentinKolb/pollnet/lib/frame"
	"github.com/ValentinKolb/pollnet/lib/pollnet"
	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"
)

var Logger = logger.GetLogger("serve")

var (
	serveConfig pollnet.Config
	ServeCmd    = &cobra.Command{
		Use:     "serve",
		Short:   "Start a pollnet demo server",
		Long:    `Start a pollnet server that uppercases everything it receives. In "upper" mode the raw byte stream is echoed back uppercased, in "frame" mode every length-prefixed message is decoded and answered. The configuration can be set via command line flags or environment variables. The format of the environment variables is POLLNET_<flag> (e.g. POLLNET_MAX_CONNS=100)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(cmdUtil.InitConfig)

	cmdUtil.SetupEngineFlags(ServeCmd, pollnet.DefaultServerConfig())

	// add flags
	key := "endpoint"
	ServeCmd.PersistentFlags().String(key, "127.0.0.1:1234", cmdUtil.WrapString("The address on which the server will listen (ip:port)"))

	key = "interface"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("Interface address used when the endpoint has no ip"))

	key = "max-conns"
	ServeCmd.PersistentFlags().Int(key, pollnet.DefaultMaxConns, cmdUtil.WrapString("Capacity of the connection pool. Further clients wait in the listen backlog until a connection closes"))

	key = "listen-backlog"
	ServeCmd.PersistentFlags().Int(key, pollnet.DefaultListenBacklog, cmdUtil.WrapString("Backlog passed to listen(2)"))

	key = "mode"
	ServeCmd.PersistentFlags().String(key, ModeUpper, cmdUtil.WrapString("Protocol: upper (raw bytes) or frame (length-prefixed messages)"))

	key = "metrics-endpoint"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("If set, serve Prometheus metrics on this address (e.g. localhost:9100)"))
}

// processConfig reads the configuration from the command line flags and environment variables
func processConfig(cmd *cobra.Command, _ []string) error {
	if err := cmdUtil.BindCommandFlags(cmd); err != nil {
		return err
	}
	if err := cmdUtil.SetupLogging(); err != nil {
		return err
	}

	serveConfig = cmdUtil.GetEngineConfig()
	if err := serveConfig.Validate(); err != nil {
		return err
	}

	switch mode := viper.GetString("mode"); mode {
	case ModeUpper, ModeFrame:
	default:
		return fmt.Errorf("invalid mode %s (expected %s or %s)", mode, ModeUpper, ModeFrame)
	}
	return nil
}

// run starts the server and polls it until SIGINT or SIGTERM
func run(_ *cobra.Command, _ []string) error {
	c, err := codec.New(viper.GetString("codec"))
	if err != nil {
		return err
	}

	ip, port, err := cmdUtil.SplitEndpoint(viper.GetString("endpoint"))
	if err != nil {
		return err
	}

	server, err := pollnet.NewServer[peer](serveConfig)
	if err != nil {
		return err
	}
	if err := server.Init(viper.GetString("interface"), ip, port); err != nil {
		return fmt.Errorf("init failed: %v", err)
	}
	defer server.Close("shutdown")

	// a frame must fit into the receive buffer including its header
	h := newHandler(server, viper.GetString("mode"), c, serveConfig.RecvBufSize-frame.HeaderLen)

	if endpoint := viper.GetString("metrics-endpoint"); endpoint != "" {
		startMetrics(endpoint, h)
	}

	var running atomic.Bool
	running.Store(true)
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-signals
		Logger.Infof("received %s, %d sessions open", sig, h.sessions.Size())
		h.sessions.Range(func(id uint64, s session) bool {
			Logger.Infof("session %d: %s, up %s, %d frames, %d bytes",
				id, s.Addr, time.Since(s.Since).Round(time.Millisecond), s.Frames, s.Bytes)
			return true
		})
		running.Store(false)
	}()

	Logger.Infof("serving in %s mode with %s codec", viper.GetString("mode"), c.Name())
	interval := viper.GetDuration("poll-interval")
	for running.Load() {
		server.Poll(h)
		if interval > 0 {
			time.Sleep(interval)
		}
	}
	return nil
}

// startMetrics serves the engine counters plus the session gauge
func startMetrics(endpoint string, h *handler) {
	metrics.NewGauge("pollnet_serve_sessions", func() float64 {
		return float64(h.sessions.Size())
	})
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, _ *http.Request) {
		metrics.WritePrometheus(w, true)
	})
	go func() {
		Logger.Infof("metrics on http://%s/metrics", endpoint)
		if err := http.ListenAndServe(endpoint, mux); err != nil {
			Logger.Errorf("metrics server: %v", err)
		}
	}()
}
