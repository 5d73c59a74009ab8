package reputation

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// DefaultTimeout bounds a single lookup when the gateway is built without one.
const DefaultTimeout = 5 * time.Second

// Source is one threat-intelligence feed. Check must not return until the
// lookup is finished or ctx is done, and reports failures as Unknown.
type Source interface {
	Name() string
	Check(ctx context.Context, rawURL string) Verdict
}

// Observer is notified of every finished lookup.
type Observer interface {
	ObserveLookup(source string, outcome Outcome)
}

// Gateway runs all sources concurrently, each under its own timeout.
type Gateway struct {
	sources  []Source
	timeout  time.Duration
	log      logrus.FieldLogger
	observer Observer
}

// NewGateway returns a gateway over sources. A non-positive timeout selects
// DefaultTimeout.
func NewGateway(log logrus.FieldLogger, timeout time.Duration, sources ...Source) *Gateway {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Gateway{sources: sources, timeout: timeout, log: log}
}

// WithObserver sets the lookup observer and returns g.
func (g *Gateway) WithObserver(o Observer) *Gateway {
	g.observer = o
	return g
}

// Check asks every source about rawURL and waits for all of them. It never
// fails: errors, timeouts and panics all surface as Unknown verdicts.
func (g *Gateway) Check(ctx context.Context, rawURL string) Results {
	results := make(Results, len(g.sources))

	var eg errgroup.Group
	for i, src := range g.sources {
		i, src := i, src
		eg.Go(func() error {
			results[i] = Result{Source: src.Name(), Verdict: g.lookup(ctx, src, rawURL)}
			return nil
		})
	}
	_ = eg.Wait()

	return results
}

func (g *Gateway) lookup(ctx context.Context, src Source, rawURL string) (v Verdict) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	log := g.log.WithFields(logrus.Fields{"source": src.Name(), "url": rawURL})

	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", fmt.Sprint(r)).Errorf("reputation lookup panicked\n%s", debug.Stack())
			v = UnknownVerdict("internal error")
		}
		if g.observer != nil {
			g.observer.ObserveLookup(src.Name(), v.Outcome)
		}
		log.WithFields(logrus.Fields{
			"outcome":  v.Outcome.String(),
			"reason":   v.Reason,
			"duration": time.Since(start).String(),
		}).Debug("reputation lookup finished")
	}()

	return src.Check(ctx, rawURL)
}
