package price

import (
	"context"
	"finnhub-stock-bot/internal/types"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"sort"
)

// Tracker owns one poller per configured symbol.
type Tracker struct {
	pollers []*Poller
	byID    map[string]*Poller
}

func NewTracker(pollers ...*Poller) *Tracker {
	t := &Tracker{byID: make(map[string]*Poller, len(pollers))}
	for _, p := range pollers {
		id := p.Symbol().EntityID()
		if _, dup := t.byID[id]; dup {
			log.Warnf("Ignoring duplicate symbol %s", p.Symbol().Ticker)
			continue
		}
		t.byID[id] = p
		t.pollers = append(t.pollers, p)
	}
	return t
}

// Run starts every poller in its own goroutine and blocks until ctx is done.
func (t *Tracker) Run(ctx context.Context) error {
	if len(t.pollers) == 0 {
		log.Warn("No symbols configured, polling disabled")
		<-ctx.Done()
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, p := range t.pollers {
		p := p
		g.Go(func() error { return p.Run(ctx) })
	}
	log.Infof("Tracking %d symbols", len(t.pollers))
	return g.Wait()
}

// RunOnce runs a single cycle of every poller concurrently and returns the
// first error.
func (t *Tracker) RunOnce(ctx context.Context) error {
	var g errgroup.Group
	for _, p := range t.pollers {
		p := p
		g.Go(func() error { return p.RunOnce(ctx) })
	}
	return g.Wait()
}

// States returns copies of every state, ordered by entity id.
func (t *Tracker) States() []types.SymbolState {
	states := make([]types.SymbolState, 0, len(t.pollers))
	for _, p := range t.pollers {
		states = append(states, p.State())
	}
	sort.Slice(states, func(i, j int) bool {
		return states[i].Symbol.EntityID() < states[j].Symbol.EntityID()
	})
	return states
}

// State looks a symbol up by entity id.
func (t *Tracker) State(entityID string) (types.SymbolState, bool) {
	p, ok := t.byID[entityID]
	if !ok {
		return types.SymbolState{}, false
	}
	return p.State(), true
}

func (t *Tracker) Pollers() []*Poller {
	return t.pollers
}
