package enrichment

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"
	"unicode"

	"github.com/likexian/whois"
	whoisparser "github.com/likexian/whois-parser"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/publicsuffix"
)

// Record holds WHOIS fields keyed by camel-cased field name, for example
// "registrar" or "creationDate".
type Record map[string]string

// First returns the first non-empty value among keys.
func (r Record) First(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(r[k]); v != "" {
			return v
		}
	}
	return ""
}

// WhoisClient queries WHOIS servers for the registrable part of a hostname.
type WhoisClient struct {
	client *whois.Client
	log    logrus.FieldLogger
}

// NewWhoisClient returns a client whose network operations are bounded by
// timeout.
func NewWhoisClient(timeout time.Duration, log logrus.FieldLogger) *WhoisClient {
	c := whois.NewClient()
	if timeout > 0 {
		c.SetTimeout(timeout)
	}
	return &WhoisClient{client: c, log: log}
}

// RegistrableDomain returns the eTLD+1 of host, or host itself when it has
// none (IP literals, bare public suffixes).
func RegistrableDomain(host string) string {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	if net.ParseIP(host) != nil {
		return host
	}
	if d, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil {
		return d
	}
	return host
}

// Lookup fetches and parses the WHOIS record for host.
func (c *WhoisClient) Lookup(ctx context.Context, host string) (Record, error) {
	target := RegistrableDomain(host)

	type reply struct {
		raw string
		err error
	}
	ch := make(chan reply, 1)
	go func() {
		raw, err := c.client.Whois(target)
		ch <- reply{raw, err}
	}()

	var raw string
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("whois %s: %w", target, ctx.Err())
	case r := <-ch:
		if r.err != nil {
			return nil, fmt.Errorf("whois %s: %w", target, r.err)
		}
		raw = r.raw
	}

	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("whois %s: empty response", target)
	}

	rec := ParseRecord(raw)
	c.log.WithFields(logrus.Fields{"domain": target, "fields": len(rec)}).Debug("whois record fetched")
	return rec, nil
}

// ParseRecord turns a raw WHOIS response into a Record. Structured values
// from whois-parser win over the raw "Key: value" lines.
func ParseRecord(raw string) Record {
	rec := rawFields(raw)

	info, err := whoisparser.Parse(raw)
	if err != nil {
		return rec
	}
	if info.Registrar != nil && info.Registrar.Name != "" {
		rec["registrar"] = info.Registrar.Name
	}
	if info.Domain != nil && info.Domain.CreatedDate != "" {
		rec["creationDate"] = info.Domain.CreatedDate
	}
	return rec
}

// rawFields collects "Key: value" lines. The first occurrence of a key wins.
func rawFields(raw string) Record {
	rec := Record{}
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "%") || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ">>>") {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = camelCase(key)
		value = strings.TrimSpace(value)
		if key == "" || value == "" {
			continue
		}
		if _, seen := rec[key]; !seen {
			rec[key] = value
		}
	}
	return rec
}

// camelCase converts "Registrar WHOIS Server" to "registrarWhoisServer".
func camelCase(s string) string {
	words := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	var b strings.Builder
	for i, w := range words {
		w = strings.ToLower(w)
		if i > 0 {
			w = strings.ToUpper(w[:1]) + w[1:]
		}
		b.WriteString(w)
	}
	return b.String()
}
