package mexc

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"ProScalper/internal/domain/models"
	drepo "ProScalper/internal/domain/repository"
	xhttp "ProScalper/pkg/http"
	applogger "ProScalper/pkg/logger"
	xutil "ProScalper/pkg/util"
)

const DefaultBaseURL = "https://contract.mexc.com"

var (
	// ErrUnsupportedTimeframe is returned for timeframes MEXC has no interval for.
	ErrUnsupportedTimeframe = errors.New("mexc: unsupported timeframe")
	// ErrMalformed is returned when the kline arrays disagree in length.
	ErrMalformed = errors.New("mexc: malformed kline payload")
)

// Client implements BarSource over the public MEXC contract (perpetual swap)
// kline endpoint. No API key is needed.
type Client struct {
	baseURL  string
	attempts int
	backoff  time.Duration
	http     *xhttp.Client
	now      func() time.Time
	l        *applogger.Logger
}

var _ drepo.BarSource = (*Client)(nil)

// Option configures Client.
type Option func(*Client)

// WithBaseURL overrides the API host.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithAttempts sets how many times a failed request is tried.
func WithAttempts(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.attempts = n
		}
	}
}

// WithBackoff sets the base delay between attempts; attempt k waits k*d.
func WithBackoff(d time.Duration) Option {
	return func(c *Client) {
		c.backoff = d
	}
}

// WithHTTPClient replaces the transport client.
func WithHTTPClient(h *xhttp.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// New creates a MEXC kline client.
func New(timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := &Client{
		baseURL:  DefaultBaseURL,
		attempts: 3,
		backoff:  500 * time.Millisecond,
		http:     xhttp.NewClient(xhttp.WithTimeout(timeout), xhttp.WithHeader("User-Agent", "proscalper/1.0")),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetLogger injects a structured logger.
func (c *Client) SetLogger(l *applogger.Logger) { c.l = l }

type klineResponse struct {
	Success bool   `json:"success"`
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    struct {
		Time  []int64   `json:"time"`
		Open  []float64 `json:"open"`
		Close []float64 `json:"close"`
		High  []float64 `json:"high"`
		Low   []float64 `json:"low"`
		Vol   []float64 `json:"vol"`
	} `json:"data"`
}

// GetLatestBars fetches the last n bars for symbol, oldest first.
func (c *Client) GetLatestBars(ctx context.Context, symbol string, tf drepo.Timeframe, n int) ([]models.Bar, error) {
	interval, ok := intervalFor(tf)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedTimeframe, tf)
	}
	if n <= 0 {
		return nil, nil
	}
	sym := models.NormalizeSymbol(symbol)
	from, to := xutil.LookbackWindow(c.now(), tf.Duration(), n)
	query := map[string][]string{
		"interval": {interval},
		"start":    {strconv.FormatInt(from.Unix(), 10)},
		"end":      {strconv.FormatInt(to.Unix(), 10)},
	}
	url := fmt.Sprintf("%s/api/v1/contract/kline/%s", c.baseURL, sym)

	start := time.Now()
	var (
		resp klineResponse
		err  error
	)
	for attempt := 1; attempt <= c.attempts; attempt++ {
		resp = klineResponse{}
		err = c.http.GetJSON(ctx, url, query, &resp)
		if err == nil && !resp.Success {
			err = fmt.Errorf("mexc: code=%d message=%q", resp.Code, resp.Message)
		}
		if err == nil {
			break
		}
		if c.l != nil {
			c.l.Warn("mexc.kline attempt failed",
				applogger.String("symbol", sym),
				applogger.String("tf", tf.String()),
				applogger.Int("attempt", attempt),
				applogger.Error(err),
			)
		}
		var se *xhttp.StatusError
		if attempt == c.attempts || (errors.As(err, &se) && !se.Temporary()) {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt) * c.backoff):
		}
	}
	if err != nil {
		return nil, fmt.Errorf("mexc kline %s %s: %w", sym, tf, err)
	}

	bars, err := toBars(resp)
	if err != nil {
		return nil, fmt.Errorf("mexc kline %s %s: %w", sym, tf, err)
	}
	if len(bars) > n {
		bars = bars[len(bars)-n:]
	}
	if c.l != nil {
		c.l.Debug("mexc.kline ok",
			applogger.String("symbol", sym),
			applogger.String("tf", tf.String()),
			applogger.Int("bars", len(bars)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return bars, nil
}

// toBars zips the column arrays, sorts by time and drops duplicate timestamps
// keeping the most recent row.
func toBars(r klineResponse) ([]models.Bar, error) {
	d := r.Data
	n := len(d.Time)
	if len(d.Open) != n || len(d.Close) != n || len(d.High) != n || len(d.Low) != n || len(d.Vol) != n {
		return nil, ErrMalformed
	}
	bars := make([]models.Bar, 0, n)
	for i := 0; i < n; i++ {
		bars = append(bars, models.Bar{
			Timestamp: time.Unix(d.Time[i], 0).UTC(),
			Open:      d.Open[i],
			High:      d.High[i],
			Low:       d.Low[i],
			Close:     d.Close[i],
			Volume:    d.Vol[i],
		})
	}
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Timestamp.Before(bars[j].Timestamp) })

	out := bars[:0]
	for _, b := range bars {
		if k := len(out); k > 0 && out[k-1].Timestamp.Equal(b.Timestamp) {
			out[k-1] = b
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func intervalFor(tf drepo.Timeframe) (string, bool) {
	switch tf {
	case drepo.TF1m:
		return "Min1", true
	case drepo.TF5m:
		return "Min5", true
	case drepo.TF15m:
		return "Min15", true
	case drepo.TF1h:
		return "Min60", true
	case drepo.TF4h:
		return "Hour4", true
	case drepo.TF1d:
		return "Day1", true
	default:
		return "", false
	}
}
