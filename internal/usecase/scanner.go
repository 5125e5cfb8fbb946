package usecase

import (
	"context"
	"sync"
	"time"

	"ProScalper/internal/domain/models"
	domrepo "ProScalper/internal/domain/repository"
	applogger "ProScalper/pkg/logger"

	"golang.org/x/sync/errgroup"
)

// DefaultScanConcurrency bounds how many symbols are recomputed at once.
const DefaultScanConcurrency = 8

// Computer produces a signal report for one symbol and timeframe.
type Computer interface {
	Compute(ctx context.Context, p ComputeParams) (*models.SignalReport, error)
}

var _ Computer = (*SignalsUseCase)(nil)

// Broadcaster fans a summary out to live subscribers.
type Broadcaster interface {
	Broadcast(v interface{})
}

// ScannerConfig holds the scanner settings.
type ScannerConfig struct {
	Symbols     []string
	Timeframe   domrepo.Timeframe
	Limit       int
	Refresh     time.Duration
	Concurrency int // parallel recomputes; <= 0 uses DefaultScanConcurrency
}

// Scanner periodically recomputes every configured symbol, pushes summaries
// to subscribers and publishes Buy/Sell events on the latest bar.
type Scanner struct {
	uc      Computer
	pub     domrepo.SignalPublisher
	bc      Broadcaster
	cfg     ScannerConfig
	now     func() time.Time
	l       *applogger.Logger
	mu      sync.RWMutex
	latest  map[string]models.SignalReport
	emitted map[string]time.Time
}

func NewScanner(uc Computer, pub domrepo.SignalPublisher, bc Broadcaster, cfg ScannerConfig) *Scanner {
	symbols := make([]string, 0, len(cfg.Symbols))
	seen := make(map[string]struct{}, len(cfg.Symbols))
	for _, s := range cfg.Symbols {
		s = models.NormalizeSymbol(s)
		if _, dup := seen[s]; s == "" || dup {
			continue
		}
		seen[s] = struct{}{}
		symbols = append(symbols, s)
	}
	cfg.Symbols = symbols
	cfg.Timeframe = domrepo.NormalizeTimeframe(cfg.Timeframe.String())
	if cfg.Refresh <= 0 {
		cfg.Refresh = 5 * time.Second
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultScanConcurrency
	}
	return &Scanner{
		uc:      uc,
		pub:     pub,
		bc:      bc,
		cfg:     cfg,
		now:     time.Now,
		latest:  make(map[string]models.SignalReport),
		emitted: make(map[string]time.Time),
	}
}

// SetLogger injects a structured logger.
func (s *Scanner) SetLogger(l *applogger.Logger) { s.l = l }

// Symbols returns the normalized symbol list.
func (s *Scanner) Symbols() []string { return append([]string(nil), s.cfg.Symbols...) }

// Run scans immediately and then every refresh interval until ctx is done.
func (s *Scanner) Run(ctx context.Context) error {
	if s.l != nil {
		s.l.Info("scanner.start",
			applogger.Strings("symbols", s.cfg.Symbols),
			applogger.String("tf", s.cfg.Timeframe.String()),
			applogger.Duration("refresh_ms", s.cfg.Refresh),
		)
	}
	ticker := time.NewTicker(s.cfg.Refresh)
	defer ticker.Stop()

	s.ScanOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			if s.l != nil {
				s.l.Info("scanner.stop")
			}
			return nil
		case <-ticker.C:
			s.ScanOnce(ctx)
		}
	}
}

// ScanOnce recomputes all symbols, at most cfg.Concurrency at a time, and
// waits for them. A failing symbol is logged and does not affect the others.
func (s *Scanner) ScanOnce(ctx context.Context) {
	var g errgroup.Group
	g.SetLimit(s.cfg.Concurrency)
	for _, sym := range s.cfg.Symbols {
		sym := sym
		g.Go(func() error {
			s.scanSymbol(ctx, sym)
			return nil
		})
	}
	_ = g.Wait()
}

func (s *Scanner) scanSymbol(ctx context.Context, symbol string) {
	report, err := s.uc.Compute(ctx, ComputeParams{Symbol: symbol, Timeframe: s.cfg.Timeframe, Limit: s.cfg.Limit})
	if err != nil {
		if s.l != nil {
			s.l.Error("scanner.compute failed", applogger.String("symbol", symbol), applogger.Error(err))
		}
		return
	}

	snapshot := *report
	snapshot.Bars = nil
	s.mu.Lock()
	s.latest[symbol] = snapshot
	s.mu.Unlock()

	if s.bc != nil {
		s.bc.Broadcast(snapshot)
	}

	last, ok := report.Latest()
	if !ok {
		return
	}
	ev, ok := models.EventFromBar(report.Symbol, report.Timeframe, last, s.now().UTC())
	if !ok || !s.markEmitted(ev) {
		return
	}
	if err := s.pub.Publish(ctx, ev); err != nil && s.l != nil {
		s.l.Error("scanner.publish failed", applogger.String("symbol", symbol), applogger.Error(err))
	}
}

// markEmitted reports whether ev is the first event seen for its bar.
func (s *Scanner) markEmitted(ev models.SignalEvent) bool {
	key := ev.Symbol + "|" + ev.Timeframe + "|" + string(ev.Side)
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.emitted[key]; ok && !ev.BarTime.After(t) {
		return false
	}
	s.emitted[key] = ev.BarTime
	return true
}

// Snapshot returns the latest report (without bars) for symbol.
func (s *Scanner) Snapshot(symbol string) (models.SignalReport, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.latest[models.NormalizeSymbol(symbol)]
	return r, ok
}

// Snapshots returns the latest report for every scanned symbol.
func (s *Scanner) Snapshots() []models.SignalReport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.SignalReport, 0, len(s.latest))
	for _, sym := range s.cfg.Symbols {
		if r, ok := s.latest[sym]; ok {
			out = append(out, r)
		}
	}
	return out
}
