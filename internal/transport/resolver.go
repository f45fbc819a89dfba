package transport

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/miekg/dns"
)

// Resolver looks host names up against a fixed DNS server instead of the
// system resolver.
type Resolver struct {
	Server  string // host:port
	Timeout time.Duration
}

// NewResolver returns a resolver querying server over UDP.
func NewResolver(server string, timeout time.Duration) *Resolver {
	return &Resolver{Server: server, Timeout: timeout}
}

// LookupIP returns the A and AAAA records for host, IPv4 first.
func (r *Resolver) LookupIP(ctx context.Context, host string) ([]net.IP, error) {
	if ip := net.ParseIP(host); ip != nil {
		return []net.IP{ip}, nil
	}

	c := new(dns.Client)
	c.Net = "udp"
	c.Timeout = r.Timeout

	var ips []net.IP
	var lastErr error
	for _, qtype := range []uint16{dns.TypeA, dns.TypeAAAA} {
		m := new(dns.Msg)
		m.SetQuestion(dns.Fqdn(host), qtype)
		m.RecursionDesired = true

		resp, _, err := c.ExchangeContext(ctx, m, r.Server)
		if err != nil {
			lastErr = err
			continue
		}
		if resp.Rcode != dns.RcodeSuccess {
			lastErr = fmt.Errorf("%s query: %s", dns.TypeToString[qtype], dns.RcodeToString[resp.Rcode])
			continue
		}

		for _, rr := range resp.Answer {
			switch a := rr.(type) {
			case *dns.A:
				ips = append(ips, a.A)
			case *dns.AAAA:
				ips = append(ips, a.AAAA)
			}
		}
	}

	if len(ips) == 0 {
		if lastErr == nil {
			lastErr = fmt.Errorf("no address records")
		}
		return nil, fmt.Errorf("lookup %s via %s: %w", host, r.Server, lastErr)
	}
	return ips, nil
}
