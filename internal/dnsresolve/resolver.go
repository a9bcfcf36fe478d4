// Package dnsresolve wraps github.com/miekg/dns for the bounded,
// context-aware MX/A/TXT lookups the EmailCheck and DomainCheck need —
// the OS stub resolver (net.LookupMX) has no per-call timeout and no
// way to point at a specific resolver, which matters when a malicious
// domain's nameserver stalls the request.
package dnsresolve

import (
	"context"
	"fmt"
	"time"

	"github.com/miekg/dns"
)

type Resolver struct {
	server  string
	timeout time.Duration
}

func NewResolver(server string, timeout time.Duration) *Resolver {
	if server == "" {
		server = "8.8.8.8:53"
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Resolver{server: server, timeout: timeout}
}

// HasMX reports whether domain has at least one MX record.
func (r *Resolver) HasMX(ctx context.Context, domain string) (bool, error) {
	msg, err := r.exchange(ctx, domain, dns.TypeMX)
	if err != nil {
		return false, err
	}
	for _, rr := range msg.Answer {
		if _, ok := rr.(*dns.MX); ok {
			return true, nil
		}
	}
	return false, nil
}

// HasAddress reports whether domain resolves to an A or AAAA record.
func (r *Resolver) HasAddress(ctx context.Context, domain string) (bool, error) {
	for _, qtype := range []uint16{dns.TypeA, dns.TypeAAAA} {
		msg, err := r.exchange(ctx, domain, qtype)
		if err != nil {
			continue
		}
		for _, rr := range msg.Answer {
			switch rr.(type) {
			case *dns.A, *dns.AAAA:
				return true, nil
			}
		}
	}
	return false, nil
}

// HasSPF reports whether domain publishes an SPF TXT record.
func (r *Resolver) HasSPF(ctx context.Context, domain string) (bool, error) {
	msg, err := r.exchange(ctx, domain, dns.TypeTXT)
	if err != nil {
		return false, err
	}
	for _, rr := range msg.Answer {
		if txt, ok := rr.(*dns.TXT); ok {
			for _, segment := range txt.Txt {
				if len(segment) >= 6 && segment[:6] == "v=spf1" {
					return true, nil
				}
			}
		}
	}
	return false, nil
}

func (r *Resolver) exchange(ctx context.Context, domain string, qtype uint16) (*dns.Msg, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(domain), qtype)
	msg.RecursionDesired = true

	client := &dns.Client{Net: "udp", Timeout: r.timeout}
	resp, _, err := client.ExchangeContext(ctx, msg, r.server)
	if err != nil {
		return nil, fmt.Errorf("dnsresolve: exchange failed for %s: %w", domain, err)
	}
	if resp.Rcode != dns.RcodeSuccess && resp.Rcode != dns.RcodeNameError {
		return nil, fmt.Errorf("dnsresolve: rcode %d for %s", resp.Rcode, domain)
	}
	return resp, nil
}
