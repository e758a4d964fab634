package price

import (
	"context"
	"finnhub-stock-bot/internal/alert"
	"finnhub-stock-bot/internal/metrics"
	"finnhub-stock-bot/internal/notify"
	"finnhub-stock-bot/internal/quote"
	"finnhub-stock-bot/internal/types"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"sync/atomic"
	"time"
)

const (
	DefaultInterval     = 5 * time.Minute
	DefaultFetchTimeout = 30 * time.Second
)

// Phase is the step of the poll cycle a poller is in.
type Phase int32

const (
	PhaseIdle Phase = iota
	PhaseFetching
	PhaseEvaluating
	PhasePublished
)

func (p Phase) String() string {
	switch p {
	case PhaseFetching:
		return "fetching"
	case PhaseEvaluating:
		return "evaluating"
	case PhasePublished:
		return "published"
	default:
		return "idle"
	}
}

// Recorder keeps the history of published states.
//
//go:generate mockgen -package=price_test -destination=mock_sinks_test.go -source=poller.go Recorder
type Recorder interface {
	Record(ctx context.Context, state types.SymbolState) error
}

// Poller periodically fetches one symbol, evaluates it and publishes the
// result. The state is owned by the poller; readers get copies.
type Poller struct {
	symbol       types.Symbol
	provider     quote.Provider
	recorder     Recorder
	publisher    notify.Publisher
	metrics      *metrics.Metrics
	interval     time.Duration
	fetchTimeout time.Duration
	window       alert.Window
	now          func() time.Time

	state atomic.Pointer[types.SymbolState]
	phase atomic.Int32
}

type Option func(*Poller)

func WithRecorder(r Recorder) Option {
	return func(p *Poller) { p.recorder = r }
}

func WithPublisher(pub notify.Publisher) Option {
	return func(p *Poller) { p.publisher = pub }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Poller) { p.metrics = m }
}

func WithInterval(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

func WithFetchTimeout(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.fetchTimeout = d
		}
	}
}

// WithWindow limits alert evaluation to the given session.
func WithWindow(w alert.Window) Option {
	return func(p *Poller) { p.window = w }
}

func WithClock(now func() time.Time) Option {
	return func(p *Poller) { p.now = now }
}

func NewPoller(symbol types.Symbol, provider quote.Provider, opts ...Option) *Poller {
	p := &Poller{
		symbol:       symbol,
		provider:     provider,
		interval:     DefaultInterval,
		fetchTimeout: DefaultFetchTimeout,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Poller) Symbol() types.Symbol {
	return p.symbol
}

func (p *Poller) Phase() Phase {
	return Phase(p.phase.Load())
}

// State returns a copy of the last published state. Before the first
// successful cycle only the symbol is set.
func (p *Poller) State() types.SymbolState {
	if s := p.state.Load(); s != nil {
		return s.Clone()
	}
	return types.SymbolState{Symbol: p.symbol}
}

// Run polls immediately and then every interval until ctx is done.
func (p *Poller) Run(ctx context.Context) error {
	logger := log.WithField("symbol", p.symbol.Ticker)
	logger.Debugf("Poller started, interval %s", p.interval)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		_ = p.RunOnce(ctx)

		select {
		case <-ctx.Done():
			logger.Debug("Poller stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// RunOnce executes a single fetch, evaluate and publish cycle. A failed
// cycle leaves the published state untouched.
func (p *Poller) RunOnce(ctx context.Context) (err error) {
	logger := log.WithField("symbol", p.symbol.Ticker)
	defer p.setPhase(PhaseIdle)
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("poll cycle panicked: %v", r)
			logger.Error(err)
			p.metrics.ObservePoll(p.symbol.Ticker, "panic")
		}
	}()

	p.setPhase(PhaseFetching)
	started := time.Now()
	q, f, err := p.fetch(ctx)
	p.metrics.ObserveFetch(p.symbol.Ticker, time.Since(started))
	if err != nil {
		kind := quote.Kind(err)
		p.metrics.ObservePoll(p.symbol.Ticker, kind)
		entry := logger.WithField("error_kind", kind)
		if kind == "invalid_snapshot" {
			entry.Errorf("Fetch failed: %v", err)
		} else {
			entry.Warnf("Fetch failed: %v", err)
		}
		return err
	}

	p.setPhase(PhaseEvaluating)
	prev := p.state.Load()
	in := alert.Input{Symbol: p.symbol, Quote: q, Fundamentals: f, ObservedAt: p.now()}

	var (
		next  types.SymbolState
		event *types.AlertEvent
	)
	if p.window.Allows(in.ObservedAt, q.Timestamp) {
		next, event, err = alert.Evaluate(prev, in)
	} else {
		logger.Debug("Alert window closed, refreshing without evaluation")
		next, err = alert.Refresh(prev, in)
	}
	if err != nil {
		p.metrics.ObservePoll(p.symbol.Ticker, quote.Kind(err))
		logger.Errorf("Evaluation failed: %v", err)
		return err
	}

	p.setPhase(PhasePublished)
	p.state.Store(&next)
	p.metrics.ObservePoll(p.symbol.Ticker, "ok")
	p.metrics.ObservePrice(p.symbol.Ticker, q.Current, in.ObservedAt)
	logger.Debugf("Published state: current %v, condition %s", q.Current, next.ActiveCondition)

	if p.recorder != nil {
		if err := p.recorder.Record(ctx, next.Clone()); err != nil {
			logger.Errorf("Failed to record state: %v", err)
		}
	}

	if event != nil {
		p.metrics.ObserveAlert(p.symbol.Ticker, string(event.Condition))
		if p.publisher != nil {
			err := p.publisher.Publish(ctx, *event)
			p.metrics.ObservePublish(err)
			if err != nil {
				logger.Errorf("Failed to publish alert %s: %v", event.ID, err)
			}
		}
	}
	return nil
}

func (p *Poller) fetch(ctx context.Context) (types.QuoteSnapshot, types.FundamentalsSnapshot, error) {
	var (
		q types.QuoteSnapshot
		f types.FundamentalsSnapshot
	)

	fetchCtx, cancel := context.WithTimeout(ctx, p.fetchTimeout)
	defer cancel()

	g, gctx := errgroup.WithContext(fetchCtx)
	g.Go(func() error {
		var err error
		q, err = p.provider.Quote(gctx, p.symbol.Ticker)
		return errors.Wrap(err, "quote")
	})
	g.Go(func() error {
		var err error
		f, err = p.provider.Fundamentals(gctx, p.symbol.Ticker)
		return errors.Wrap(err, "fundamentals")
	})

	if err := g.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return q, f, errors.Wrap(ctxErr, "fetch aborted")
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return q, f, errors.Wrapf(quote.ErrTransientFetch, "fetch timed out after %s", p.fetchTimeout)
		}
		return q, f, err
	}
	// A provider may ignore cancellation and still hand back data.
	if ctxErr := ctx.Err(); ctxErr != nil {
		return q, f, errors.Wrap(ctxErr, "fetch aborted")
	}
	return q, f, nil
}

func (p *Poller) setPhase(phase Phase) {
	p.phase.Store(int32(phase))
}
