package history

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/mssola/useragent"
	"github.com/sirupsen/logrus"

	"phishing-detector/detection"
	"phishing-detector/reputation"
)

const unknown = "unknown"

// ClientDetails describes who asked for a scan.
type ClientDetails struct {
	IPAddress string `json:"ip_address"`
	Browser   string `json:"browser"`
	Location  string `json:"location"`
}

// ClientFromRequest reads the first X-Forwarded-For address (falling back to
// the peer address), the browser named by the User-Agent and the CF-IPCountry
// header.
func ClientFromRequest(r *http.Request) ClientDetails {
	c := ClientDetails{IPAddress: unknown, Browser: browser(r.UserAgent()), Location: unknown}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if first = strings.TrimSpace(first); first != "" {
			c.IPAddress = first
		}
	} else if r.RemoteAddr != "" {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		c.IPAddress = host
	}

	if country := strings.TrimSpace(r.Header.Get("CF-IPCountry")); country != "" {
		c.Location = country
	}
	return c
}

// browser returns "<name> <version>" for a User-Agent header, or "unknown"
// when no browser can be identified.
func browser(header string) string {
	if strings.TrimSpace(header) == "" {
		return unknown
	}
	name, version := useragent.New(header).Browser()
	if name == "" {
		name = unknown
	}
	return strings.TrimSpace(name + " " + version)
}

// ScanResults keeps each signal as true, false or null.
type ScanResults struct {
	GoogleSafeBrowsing *bool `json:"google_safe_browsing"`
	URLhaus            *bool `json:"urlhaus"`
	WhoisSuspicious    *bool `json:"whois_suspicious"`
	DNSSuspicious      *bool `json:"dns_suspicious"`
	PatternSuspicious  *bool `json:"pattern_suspicious"`
}

// Scan is one stored detection.
type Scan struct {
	URL         string
	Client      ClientDetails
	IsPhishing  bool
	Verdict     string
	Score       int
	ScanResults ScanResults
	CreatedAt   time.Time
}

// NewScan flattens a detection report into a Scan. Signals the pipeline did
// not compute are left nil.
func NewScan(rep *detection.Report, client ClientDetails, now time.Time) Scan {
	s := Scan{
		URL:        rep.URL.Href,
		Client:     client,
		IsPhishing: rep.Verdict != detection.LikelySafe,
		Verdict:    rep.Verdict.String(),
		Score:      rep.Score,
		CreatedAt:  now.UTC(),
	}

	if v, ok := rep.Reputation.Get(reputation.SafeBrowsingName); ok {
		s.ScanResults.GoogleSafeBrowsing = v.Bool()
	}
	if v, ok := rep.Reputation.Get(reputation.URLhausName); ok {
		s.ScanResults.URLhaus = v.Bool()
	}

	if rep.ShortCircuited() {
		return s
	}

	pattern := len(rep.Rules.Triggered()) > 0
	s.ScanResults.PatternSuspicious = &pattern

	if e := rep.Enrichment; e != nil && !e.Skipped {
		newDomain := e.Whois.IsNewDomain
		s.ScanResults.WhoisSuspicious = &newDomain
		if e.DNS != nil {
			noRecords := !e.DNS.HasRecords
			s.ScanResults.DNSSuspicious = &noRecords
		}
	}
	return s
}

// Store persists scans.
type Store interface {
	Insert(ctx context.Context, s Scan) error
	Close()
}

// Nop discards scans.
type Nop struct{}

func (Nop) Insert(context.Context, Scan) error { return nil }
func (Nop) Close()                             {}

// Recorder adapts a Store to detection.ScanRecorder. Storage errors are
// logged and never reach the client.
type Recorder struct {
	store   Store
	timeout time.Duration
	now     func() time.Time
	log     logrus.FieldLogger
}

// NewRecorder creates a recorder writing to store.
func NewRecorder(store Store, timeout time.Duration, log logrus.FieldLogger) *Recorder {
	if store == nil {
		store = Nop{}
	}
	return &Recorder{store: store, timeout: timeout, now: time.Now, log: log}
}

// RecordScan implements detection.ScanRecorder.
func (rc *Recorder) RecordScan(r *http.Request, rep *detection.Report) {
	scan := NewScan(rep, ClientFromRequest(r), rc.now())

	// The insert outlives a client that hangs up right after the response.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), rc.timeout)
	defer cancel()

	if err := rc.store.Insert(ctx, scan); err != nil {
		rc.log.WithError(err).WithFields(logrus.Fields{
			"url":     scan.URL,
			"verdict": scan.Verdict,
		}).Warn("failed to record scan")
	}
}
