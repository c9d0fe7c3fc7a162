package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/miekg/dns"

	"IP-DNS-API/log"
)

// TypeANAME is the private-use code resolvers assign to the ANAME draft record.
const TypeANAME uint16 = 65305

// recordTypes is the lookup order, and the field order of Result.
var recordTypes = []uint16{dns.TypeA, dns.TypeAAAA, TypeANAME, dns.TypeCNAME, dns.TypePTR}

// Resolver answers a single forward query with the textual form of the
// records of the asked type.
type Resolver interface {
	Resolve(ctx context.Context, name string, qtype uint16) ([]string, error)
}

// Result is the body of /dns. Every field is an empty list rather than null.
type Result struct {
	A     []string `json:"A"`
	AAAA  []string `json:"AAAA"`
	ANAME []string `json:"ANAME"`
	CNAME []string `json:"CNAME"`
	PTR   []string `json:"PTR"`
}

// Answer keeps an empty answer apart from a failed lookup.
type Answer struct {
	Records []string
	Err     error
}

// RcodeError is returned when a nameserver answers with anything but NOERROR.
type RcodeError struct {
	Name  string
	Rcode int
}

func (e *RcodeError) Error() string {
	return fmt.Sprintf("%s: %s", e.Name, dns.RcodeToString[e.Rcode])
}

func typeName(qtype uint16) string {
	if qtype == TypeANAME {
		return "ANAME"
	}
	return dns.TypeToString[qtype]
}

// --- DNS CORE LOGIC ---

// Lookup queries every record type of recordTypes concurrently. A failed
// lookup is logged and reported as an empty list, it never fails the others.
func Lookup(ctx context.Context, resolver Resolver, query string) Result {
	answers := make([]Answer, len(recordTypes))

	var wg sync.WaitGroup
	for i, qtype := range recordTypes {
		i, qtype := i, qtype
		wg.Add(1)
		go func() {
			defer wg.Done()
			records, err := resolver.Resolve(ctx, query, qtype)
			answers[i] = Answer{Records: records, Err: err}
		}()
	}
	wg.Wait()

	var result Result
	fields := []*[]string{&result.A, &result.AAAA, &result.ANAME, &result.CNAME, &result.PTR}
	for i, answer := range answers {
		*fields[i] = answer.recordsOrEmpty(query, recordTypes[i])
	}
	return result
}

func (a Answer) recordsOrEmpty(query string, qtype uint16) []string {
	if a.Err != nil {
		lookupFailures.WithLabelValues(typeName(qtype)).Inc()
		log.Sugar.Warnf("%s lookup of %q failed: %v", typeName(qtype), query, a.Err)
		return []string{}
	}
	if a.Records == nil {
		return []string{}
	}
	return a.Records
}

// DNSResolver is the platform stub resolver: it asks the configured
// nameservers in order, moving on only when one cannot be reached.
type DNSResolver struct {
	nameservers []string
	timeout     time.Duration
}

func NewDNSResolver(cfg Config) (*DNSResolver, error) {
	servers, timeout, err := nameservers(cfg)
	if err != nil {
		return nil, err
	}

	for i, server := range servers {
		log.Sugar.Debugf("nameserver %d %s", i, server)
	}

	return &DNSResolver{nameservers: servers, timeout: timeout}, nil
}

// nameservers also returns the per-query timeout: dns-timeout when set,
// otherwise the "options timeout:" of resolv.conf.
func nameservers(cfg Config) ([]string, time.Duration, error) {
	if len(cfg.Nameservers) > 0 {
		servers := make([]string, 0, len(cfg.Nameservers))
		for _, ns := range cfg.Nameservers {
			servers = append(servers, withPort(ns, "53"))
		}
		return servers, cfg.DNSLookupTimeout, nil
	}

	cc, err := dns.ClientConfigFromFile(cfg.ResolvConf)
	if err != nil {
		return nil, 0, fmt.Errorf("read %s: %w", cfg.ResolvConf, err)
	}
	if len(cc.Servers) == 0 {
		return nil, 0, fmt.Errorf("no nameserver in %s", cfg.ResolvConf)
	}

	servers := make([]string, 0, len(cc.Servers))
	for _, server := range cc.Servers {
		servers = append(servers, net.JoinHostPort(server, cc.Port))
	}

	timeout := cfg.DNSLookupTimeout
	if timeout <= 0 {
		timeout = time.Duration(cc.Timeout) * time.Second
	}
	return servers, timeout, nil
}

func withPort(ns, port string) string {
	if _, _, err := net.SplitHostPort(ns); err == nil {
		return ns
	}
	return net.JoinHostPort(strings.Trim(ns, "[]"), port)
}

func (r *DNSResolver) Resolve(ctx context.Context, name string, qtype uint16) ([]string, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(name), qtype)
	msg.SetEdns0(4096, false)

	var errs []error
	for _, nameserver := range r.nameservers {
		resp, err := r.exchange(ctx, msg, nameserver)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", nameserver, err))
			continue
		}

		if resp.Rcode != dns.RcodeSuccess {
			return nil, &RcodeError{Name: msg.Question[0].Name, Rcode: resp.Rcode}
		}

		return records(resp.Answer, qtype)
	}

	return nil, errors.Join(errs...)
}

func (r *DNSResolver) exchange(ctx context.Context, msg *dns.Msg, nameserver string) (*dns.Msg, error) {
	c := new(dns.Client)
	c.Timeout = r.timeout

	start := time.Now()
	transport := "udp"
	resp, _, err := c.ExchangeContext(ctx, msg, nameserver)

	if err == nil && resp != nil && resp.Truncated {
		c.Net = "tcp"
		transport = "tcp"
		resp, _, err = c.ExchangeContext(ctx, msg, nameserver)
	}

	duration := time.Since(start).Seconds()
	dnsQueryDuration.WithLabelValues(typeName(msg.Question[0].Qtype), nameserver, transport).Observe(duration)

	if err != nil {
		return nil, err
	}
	return resp, nil
}

// records renders the answers of type qtype, skipping the CNAME chain and
// anything else the nameserver added.
func records(answer []dns.RR, qtype uint16) ([]string, error) {
	out := make([]string, 0, len(answer))
	for _, rr := range answer {
		if rr.Header().Rrtype != qtype {
			continue
		}

		switch v := rr.(type) {
		case *dns.A:
			out = append(out, v.A.String())
		case *dns.AAAA:
			out = append(out, v.AAAA.String())
		case *dns.CNAME:
			out = append(out, v.Target)
		case *dns.PTR:
			out = append(out, v.Ptr)
		case *dns.RFC3597:
			target, err := unknownTarget(v)
			if err != nil {
				return nil, err
			}
			out = append(out, target)
		}
	}
	return out, nil
}

// unknownTarget decodes the uncompressed domain name carried by an alias
// record the dns package has no type for, such as ANAME.
func unknownTarget(rr *dns.RFC3597) (string, error) {
	raw, err := hex.DecodeString(rr.Rdata)
	if err != nil {
		return "", fmt.Errorf("%s rdata: %w", typeName(rr.Hdr.Rrtype), err)
	}

	target, _, err := dns.UnpackDomainName(raw, 0)
	if err != nil {
		return "", fmt.Errorf("%s target: %w", typeName(rr.Hdr.Rrtype), err)
	}
	return target, nil
}
