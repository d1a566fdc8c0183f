// Package netdiag reports how a hostname resolves through the system resolver
// and through the configured smart DNS nameservers.
package netdiag

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"
	"go.uber.org/zap"

	"github.com/JakeFAU/game-catalog/internal/logging"
)

const (
	defaultTimeout = 5 * time.Second
	resolvConfPath = "/etc/resolv.conf"
)

// Report is the outcome of ResolveDebug. Failures appear inline as
// "error: ..." entries.
type Report struct {
	Host             string   `json:"host"`
	SystemResolution []string `json:"system_resolution"`
	SmartDNS         []string `json:"smart_dns"`
	SmartResolution  []string `json:"smart_resolution"`
}

// Config controls the diagnostic resolver.
type Config struct {
	// Nameservers are queried directly; empty falls back to resolv.conf.
	Nameservers []string
	Timeout     time.Duration
}

// Resolver runs DNS diagnostics.
type Resolver struct {
	nameservers []string
	client      *dns.Client
	logger      *zap.Logger

	systemLookup func(ctx context.Context, host string) ([]net.IPAddr, error)
	fallback     func() ([]string, error)
}

// New constructs a Resolver.
func New(cfg Config, logger *zap.Logger) *Resolver {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Resolver{
		nameservers:  append([]string(nil), cfg.Nameservers...),
		client:       &dns.Client{Net: "udp", Timeout: timeout},
		logger:       logging.OrNop(logger).Named("netdiag"),
		systemLookup: net.DefaultResolver.LookupIPAddr,
		fallback:     resolvConfServers,
	}
}

// ResolveDebug resolves host both ways. It never fails; errors are embedded
// in the report.
func (r *Resolver) ResolveDebug(ctx context.Context, host string) Report {
	host = strings.TrimSpace(host)
	report := Report{
		Host:             host,
		SmartDNS:         append([]string{}, r.nameservers...),
		SystemResolution: r.resolveSystem(ctx, host),
	}
	report.SmartResolution = r.resolveSmart(ctx, host)
	r.logger.Debug("dns check",
		zap.String("host", host),
		zap.Strings("system", report.SystemResolution),
		zap.Strings("smart", report.SmartResolution),
	)
	return report
}

func (r *Resolver) resolveSystem(ctx context.Context, host string) []string {
	addrs, err := r.systemLookup(ctx, host)
	if err != nil {
		return []string{errorEntry(err)}
	}
	seen := make(map[string]struct{}, len(addrs))
	out := make([]string, 0, len(addrs))
	for _, addr := range addrs {
		ip := addr.IP.String()
		if _, ok := seen[ip]; ok {
			continue
		}
		seen[ip] = struct{}{}
		out = append(out, ip)
	}
	return out
}

func (r *Resolver) resolveSmart(ctx context.Context, host string) []string {
	servers := r.nameservers
	if len(servers) == 0 {
		fallback, err := r.fallback()
		if err != nil {
			return []string{errorEntry(err)}
		}
		servers = fallback
	}
	if len(servers) == 0 {
		return []string{errorEntry(errors.New("no nameservers configured"))}
	}

	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(host), dns.TypeA)
	msg.RecursionDesired = true

	var lastErr error
	for _, server := range servers {
		ips, err := r.exchange(ctx, msg, NameserverAddr(server))
		if err == nil {
			return ips
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return []string{errorEntry(lastErr)}
}

func (r *Resolver) exchange(ctx context.Context, msg *dns.Msg, server string) ([]string, error) {
	resp, _, err := r.client.ExchangeContext(ctx, msg, server)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", server, err)
	}
	if resp.Rcode != dns.RcodeSuccess {
		return nil, fmt.Errorf("query %s: %s", server, dns.RcodeToString[resp.Rcode])
	}
	ips := make([]string, 0, len(resp.Answer))
	for _, rr := range resp.Answer {
		if a, ok := rr.(*dns.A); ok {
			ips = append(ips, a.A.String())
		}
	}
	if len(ips) == 0 {
		return nil, fmt.Errorf("query %s: no A records", server)
	}
	return ips, nil
}

// NameserverAddr appends the default DNS port when server has none.
func NameserverAddr(server string) string {
	server = strings.TrimSpace(server)
	if _, _, err := net.SplitHostPort(server); err == nil {
		return server
	}
	return net.JoinHostPort(strings.Trim(server, "[]"), "53")
}

func resolvConfServers() ([]string, error) {
	conf, err := dns.ClientConfigFromFile(resolvConfPath)
	if err != nil {
		return nil, fmt.Errorf("read resolv.conf: %w", err)
	}
	out := make([]string, 0, len(conf.Servers))
	for _, s := range conf.Servers {
		out = append(out, net.JoinHostPort(s, conf.Port))
	}
	return out, nil
}

func errorEntry(err error) string {
	return "error: " + err.Error()
}
