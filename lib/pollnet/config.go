package pollnet

import (
	"fmt"
	"github.com/ValentinKolb/pollnet/lib/sock"
	"time"
)

const (
	// defaults used by DefaultClientConfig and DefaultServerConfig
	DefaultRecvBufSize       = 4096
	DefaultMaxConns          = 10
	DefaultListenBacklog     = 5
	DefaultConnRetryInterval = 3 * time.Second
	DefaultConnTimeout       = 30 * time.Second
	DefaultRecvTimeout       = 10 * time.Second
)

// --------------------------------------------------------------------------
// Engine configuration struct
// --------------------------------------------------------------------------

// Config is fixed at construction time. A zero duration disables the
// corresponding feature.
type Config struct {
	// RecvBufSize is the capacity of each connection's receive buffer and thus
	// the largest message (or accumulated partial message) a connection accepts
	RecvBufSize int
	// MaxConns is the capacity of the server's connection pool (servers only)
	MaxConns int
	// ListenBacklog is passed to listen(2) (servers only, 0 = DefaultListenBacklog)
	ListenBacklog int
	// ConnRetryInterval is the minimum time between two connect attempts.
	// Zero means the client only retries after AllowReconnect
	ConnRetryInterval time.Duration
	// ConnTimeout bounds a single connect attempt
	ConnTimeout time.Duration
	// SendTimeout fires OnSendTimeout when nothing was sent for this long
	SendTimeout time.Duration
	// RecvTimeout fires OnRecvTimeout when nothing was received for this long
	RecvTimeout time.Duration
}

// DefaultClientConfig returns the client configuration used by the demo binaries
func DefaultClientConfig() Config {
	return Config{
		RecvBufSize:       DefaultRecvBufSize,
		ConnRetryInterval: DefaultConnRetryInterval,
		ConnTimeout:       DefaultConnTimeout,
	}
}

// DefaultServerConfig returns the server configuration used by the demo binaries
func DefaultServerConfig() Config {
	return Config{
		RecvBufSize:   DefaultRecvBufSize,
		MaxConns:      DefaultMaxConns,
		ListenBacklog: DefaultListenBacklog,
		RecvTimeout:   DefaultRecvTimeout,
	}
}

// Validate checks the configuration for values the engine cannot work with
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("nil config")
	}
	if c.RecvBufSize < 2 {
		return fmt.Errorf("invalid RecvBufSize=%d, must be at least 2", c.RecvBufSize)
	}
	if c.MaxConns < 0 {
		return fmt.Errorf("invalid MaxConns=%d", c.MaxConns)
	}
	if c.ListenBacklog < 0 {
		return fmt.Errorf("invalid ListenBacklog=%d", c.ListenBacklog)
	}
	if c.ConnRetryInterval < 0 {
		return fmt.Errorf("invalid ConnRetryInterval=%s", c.ConnRetryInterval)
	}
	if c.ConnTimeout < 0 {
		return fmt.Errorf("invalid ConnTimeout=%s", c.ConnTimeout)
	}
	if c.SendTimeout < 0 {
		return fmt.Errorf("invalid SendTimeout=%s", c.SendTimeout)
	}
	if c.RecvTimeout < 0 {
		return fmt.Errorf("invalid RecvTimeout=%s", c.RecvTimeout)
	}
	return nil
}

// --------------------------------------------------------------------------
// Options
// --------------------------------------------------------------------------

// Option customizes the collaborators of a Client or Server
type Option func(*options)

type options struct {
	sys   sock.ISys
	clock func() time.Time
}

// WithSys replaces the OS socket layer (e.g. with socktest.Net in tests)
func WithSys(sys sock.ISys) Option {
	return func(o *options) {
		o.sys = sys
	}
}

// WithClock replaces the time source sampled once per Poll
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		o.clock = clock
	}
}

func buildOptions(opts []Option) options {
	o := options{
		sys:   sock.Unix(),
		clock: time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
