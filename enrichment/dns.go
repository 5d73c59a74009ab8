package enrichment

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/miekg/dns"
	"github.com/sirupsen/logrus"
)

// DefaultServers are tried in order when no resolvers are configured.
var DefaultServers = []string{
	"8.8.8.8:53",
	"8.8.4.4:53",
	"1.1.1.1:53",
	"1.0.0.1:53",
}

// ErrNoAnswer is returned when no server produced a usable response.
var ErrNoAnswer = errors.New("no response from any DNS server")

// Resolver looks up A records, failing over across servers.
type Resolver struct {
	servers []string
	client  *dns.Client
	log     logrus.FieldLogger
}

// NewResolver creates a resolver. Each server gets at most timeout per query.
func NewResolver(servers []string, timeout time.Duration, log logrus.FieldLogger) *Resolver {
	if len(servers) == 0 {
		servers = DefaultServers
	}
	return &Resolver{
		servers: servers,
		client:  &dns.Client{Timeout: timeout},
		log:     log,
	}
}

// Resolve returns the IPv4 addresses of host in answer order. An IP literal
// resolves to itself.
func (r *Resolver) Resolve(ctx context.Context, host string) ([]string, error) {
	if ip := net.ParseIP(host); ip != nil {
		return []string{ip.String()}, nil
	}

	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(host), dns.TypeA)
	msg.RecursionDesired = true

	lastErr := ErrNoAnswer
	for _, server := range r.servers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		resp, rtt, err := r.client.ExchangeContext(ctx, msg, server)
		if err != nil || resp == nil {
			r.log.WithFields(logrus.Fields{"server": server, "host": host}).WithError(err).Debug("dns query failed, trying next server")
			if err != nil {
				lastErr = err
			}
			continue
		}

		switch resp.Rcode {
		case dns.RcodeSuccess:
		case dns.RcodeNameError:
			return nil, fmt.Errorf("resolve %s: %s", host, dns.RcodeToString[resp.Rcode])
		default:
			lastErr = fmt.Errorf("resolve %s via %s: %s", host, server, dns.RcodeToString[resp.Rcode])
			continue
		}

		var ips []string
		for _, answer := range resp.Answer {
			if a, ok := answer.(*dns.A); ok {
				ips = append(ips, a.A.String())
			}
		}

		r.log.WithFields(logrus.Fields{
			"server":  server,
			"host":    host,
			"records": len(ips),
			"rtt":     rtt.String(),
		}).Debug("dns query answered")
		return ips, nil
	}

	return nil, fmt.Errorf("resolve %s: %w", host, lastErr)
}
