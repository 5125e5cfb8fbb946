package clickhouse

import (
	"net"
	"strconv"
	"time"

	ch "github.com/ClickHouse/clickhouse-go/v2"
)

// ClientOption configures NewClient.
type ClientOption func(*settings)

type settings struct {
	host        string
	port        int
	database    string
	user        string
	password    string
	useHTTP     bool
	compress    bool
	maxOpen     int
	maxIdle     int
	maxLifetime time.Duration
	dialTimeout time.Duration
	readTimeout time.Duration
	maxExecTime time.Duration
	pingTimeout time.Duration
}

func defaultSettings() settings {
	return settings{
		port:        9000,
		database:    "proscalper",
		user:        "default",
		compress:    true,
		maxOpen:     10,
		maxIdle:     5,
		maxLifetime: 5 * time.Minute,
		dialTimeout: 5 * time.Second,
		readTimeout: 10 * time.Second,
		pingTimeout: 5 * time.Second,
	}
}

// options maps s onto the driver's connection options.
func (s settings) options() *ch.Options {
	opts := &ch.Options{
		Protocol: ch.Native,
		Addr:     []string{net.JoinHostPort(s.host, strconv.Itoa(s.port))},
		Auth: ch.Auth{
			Database: s.database,
			Username: s.user,
			Password: s.password,
		},
		DialTimeout:     s.dialTimeout,
		ReadTimeout:     s.readTimeout,
		MaxOpenConns:    s.maxOpen,
		MaxIdleConns:    s.maxIdle,
		ConnMaxLifetime: s.maxLifetime,
	}
	if s.useHTTP {
		opts.Protocol = ch.HTTP
	}
	if s.compress {
		opts.Compression = &ch.Compression{Method: ch.CompressionLZ4}
	}
	if s.maxExecTime > 0 {
		opts.Settings = ch.Settings{"max_execution_time": int(s.maxExecTime.Seconds())}
	}
	return opts
}

// WithAddr sets host and port. A zero port keeps the default.
func WithAddr(host string, port int) ClientOption {
	return func(s *settings) {
		s.host = host
		if port > 0 {
			s.port = port
		}
	}
}

// WithAuth sets the database and credentials. An empty database keeps the default.
func WithAuth(database, user, password string) ClientOption {
	return func(s *settings) {
		if database != "" {
			s.database = database
		}
		s.user = user
		s.password = password
	}
}

// WithPool sizes the connection pool.
func WithPool(maxOpen, maxIdle int) ClientOption {
	return func(s *settings) {
		s.maxOpen = maxOpen
		s.maxIdle = maxIdle
	}
}

// WithTimeouts sets dial and read timeouts. Zero keeps the default.
func WithTimeouts(dial, read time.Duration) ClientOption {
	return func(s *settings) {
		if dial > 0 {
			s.dialTimeout = dial
		}
		if read > 0 {
			s.readTimeout = read
		}
	}
}

// WithHTTP selects the HTTP interface instead of native TCP.
func WithHTTP(useHTTP bool) ClientOption {
	return func(s *settings) { s.useHTTP = useHTTP }
}

// WithCompression toggles LZ4 block compression.
func WithCompression(on bool) ClientOption {
	return func(s *settings) { s.compress = on }
}

// WithMaxExecutionTime sets the server-side max_execution_time setting.
func WithMaxExecutionTime(d time.Duration) ClientOption {
	return func(s *settings) { s.maxExecTime = d }
}
