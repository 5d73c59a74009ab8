package enrichment

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	RegistrarUnknown    = "Unknown"
	CreationUnknown     = "Unknown"
	CreationUnavailable = "Not Available"
)

// Whois is the registration summary for a hostname.
type Whois struct {
	Registrar    string `json:"registrar"`
	CreationDate string `json:"creationDate"`
	IsNewDomain  bool   `json:"isNewDomain"`
}

// DNS is the outcome of the A-record lookup.
type DNS struct {
	HasRecords bool     `json:"hasRecords"`
	Records    []string `json:"records,omitempty"`
}

// Result is the enrichment of one hostname. DNS is nil when there was no
// hostname to look up.
type Result struct {
	Whois   Whois
	DNS     *DNS
	Skipped bool
}

// WhoisLookup fetches a WHOIS record for a hostname.
type WhoisLookup interface {
	Lookup(ctx context.Context, host string) (Record, error)
}

// HostResolver resolves a hostname to IPv4 addresses.
type HostResolver interface {
	Resolve(ctx context.Context, host string) ([]string, error)
}

// Gateway runs WHOIS and DNS lookups for a hostname. Failures become default
// values; Enrich never returns an error.
type Gateway struct {
	whois    WhoisLookup
	resolver HostResolver
	timeout  time.Duration
	now      func() time.Time
	log      logrus.FieldLogger
}

// NewGateway creates a gateway. Each lookup runs under its own timeout.
func NewGateway(w WhoisLookup, r HostResolver, timeout time.Duration, log logrus.FieldLogger) *Gateway {
	return &Gateway{
		whois:    w,
		resolver: r,
		timeout:  timeout,
		now:      time.Now,
		log:      log,
	}
}

// WithClock replaces the clock used for domain age and returns g.
func (g *Gateway) WithClock(now func() time.Time) *Gateway {
	g.now = now
	return g
}

// Enrich looks up hostname. An empty hostname yields the skipped result.
func (g *Gateway) Enrich(ctx context.Context, hostname string) Result {
	if hostname == "" {
		return Result{
			Whois:   Whois{Registrar: RegistrarUnknown, CreationDate: CreationUnavailable},
			Skipped: true,
		}
	}

	var (
		wg  sync.WaitGroup
		res Result
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		res.Whois = g.lookupWhois(ctx, hostname)
	}()
	go func() {
		defer wg.Done()
		res.DNS = g.lookupDNS(ctx, hostname)
	}()
	wg.Wait()

	return res
}

func (g *Gateway) lookupWhois(ctx context.Context, host string) (w Whois) {
	log := g.log.WithField("host", host)
	defer g.recoverLookup(log, "whois", func() {
		w = Whois{Registrar: RegistrarUnknown, CreationDate: CreationUnknown}
	})

	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	rec, err := g.whois.Lookup(ctx, host)
	if err != nil {
		log.WithError(err).Warn("whois lookup failed")
		return Whois{Registrar: RegistrarUnknown, CreationDate: CreationUnknown}
	}

	w.Registrar = rec.First("registrar", "registrarName")
	if w.Registrar == "" {
		w.Registrar = RegistrarUnknown
	}

	raw := rec.First("creationDate", "createdDate", "created")
	if raw == "" {
		w.CreationDate = CreationUnavailable
		return w
	}
	w.CreationDate, w.IsNewDomain = RegistrationAge(raw, g.now())
	return w
}

func (g *Gateway) lookupDNS(ctx context.Context, host string) (d *DNS) {
	log := g.log.WithField("host", host)
	defer g.recoverLookup(log, "dns", func() { d = &DNS{} })

	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	ips, err := g.resolver.Resolve(ctx, host)
	if err != nil {
		log.WithError(err).Warn("dns lookup failed")
		return &DNS{}
	}
	if len(ips) == 0 {
		return &DNS{}
	}
	return &DNS{HasRecords: true, Records: ips}
}

func (g *Gateway) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, g.timeout)
}

func (g *Gateway) recoverLookup(log logrus.FieldLogger, lookup string, fallback func()) {
	if r := recover(); r != nil {
		log.WithField("lookup", lookup).Errorf("enrichment panicked: %s\n%s", fmt.Sprint(r), debug.Stack())
		fallback()
	}
}
