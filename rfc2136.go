package ddns

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/go-logr/logr"
	"github.com/miekg/dns"
)

// rfc2136Provider implements Provider using RFC 2136 dynamic updates
// signed with TSIG, as spoken by BIND and compatible servers.
//
// The protocol has no record identifiers, so the record FQDN doubles as
// the ID: it is stable across updates, which is all the reconciler needs.
type rfc2136Provider struct {
	server   string
	zone     string
	tsigName string
	ttl      int
	client   *dns.Client
	log      logr.Logger
}

// newRFC2136Provider builds a dynamic-update client from a settings map.
// Required settings: server (host or host:port), zone, tsig_name,
// tsig_secret (base64 HMAC-SHA256 key).
// Optional settings: ttl (default 300), timeout (seconds, default 10).
func newRFC2136Provider(log logr.Logger, settings map[string]string) (*rfc2136Provider, error) {
	server := settings["server"]
	if server == "" {
		return nil, fmt.Errorf("rfc2136: missing required setting \"server\"")
	}
	if _, _, err := net.SplitHostPort(server); err != nil {
		server = net.JoinHostPort(server, "53")
	}
	zone := settings["zone"]
	if zone == "" {
		return nil, fmt.Errorf("rfc2136: missing required setting \"zone\"")
	}
	tsigName := settings["tsig_name"]
	if tsigName == "" {
		return nil, fmt.Errorf("rfc2136: missing required setting \"tsig_name\"")
	}
	tsigSecret := settings["tsig_secret"]
	if tsigSecret == "" {
		return nil, fmt.Errorf("rfc2136: missing required setting \"tsig_secret\"")
	}

	ttl := 300
	if v := settings["ttl"]; v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("rfc2136: invalid ttl %q: %w", v, err)
		}
		ttl = parsed
	}

	timeout, err := settingTimeout(settings)
	if err != nil {
		return nil, fmt.Errorf("rfc2136: %w", err)
	}

	client := &dns.Client{
		Timeout:    timeout,
		TsigSecret: map[string]string{dns.Fqdn(tsigName): tsigSecret},
	}

	return &rfc2136Provider{
		server:   server,
		zone:     dns.Fqdn(zone),
		tsigName: dns.Fqdn(tsigName),
		ttl:      ttl,
		client:   client,
		log:      log,
	}, nil
}

// FindRecord implements ddns.Provider by querying the authoritative
// server directly, bypassing any resolver cache.
func (p *rfc2136Provider) FindRecord(ctx context.Context, host string) (*Record, error) {
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(host), dns.TypeA)
	m.RecursionDesired = false

	resp, _, err := p.client.ExchangeContext(ctx, m, p.server)
	if err != nil {
		return nil, fmt.Errorf("rfc2136: query %s: %w", host, err)
	}
	if resp.Rcode == dns.RcodeNameError {
		return nil, nil
	}
	if err := p.checkRcode("query", resp.Rcode); err != nil {
		return nil, err
	}

	var answers []*dns.A
	for _, rr := range resp.Answer {
		if a, ok := rr.(*dns.A); ok {
			answers = append(answers, a)
		}
	}
	p.log.V(1).Info("queried records", "host", host, "count", len(answers))

	switch len(answers) {
	case 0:
		return nil, nil
	case 1:
		a := answers[0]
		return &Record{
			ID:      a.Hdr.Name,
			Name:    a.Hdr.Name,
			Type:    "A",
			Content: a.A.String(),
			TTL:     int(a.Hdr.Ttl),
		}, nil
	default:
		return nil, fmt.Errorf("rfc2136: %d A records exist for %s: %w", len(answers), host, ErrAmbiguousRecord)
	}
}

// CreateRecord implements ddns.Provider.
func (p *rfc2136Provider) CreateRecord(ctx context.Context, host, ip string) (*Record, error) {
	fqdn := dns.Fqdn(host)
	rr, err := dns.NewRR(fmt.Sprintf("%s %d IN A %s", fqdn, p.ttl, ip))
	if err != nil {
		return nil, fmt.Errorf("rfc2136: building record for %s: %w", host, err)
	}

	m := new(dns.Msg)
	m.SetUpdate(p.zone)
	m.Insert([]dns.RR{rr})

	if err := p.exchangeUpdate(ctx, "create", m); err != nil {
		return nil, err
	}
	p.log.V(1).Info("created record", "host", host, "ip", ip)
	return &Record{ID: fqdn, Name: fqdn, Type: "A", Content: ip, TTL: p.ttl}, nil
}

// UpdateRecord implements ddns.Provider. The update message carries an
// rrset-exists prerequisite so that a record deleted since the find is
// reported as ErrRecordNotFound instead of silently recreated here; the
// create fallback is the reconciler's decision.
func (p *rfc2136Provider) UpdateRecord(ctx context.Context, id, host, ip string) (*Record, error) {
	fqdn := dns.Fqdn(host)
	rr, err := dns.NewRR(fmt.Sprintf("%s %d IN A %s", fqdn, p.ttl, ip))
	if err != nil {
		return nil, fmt.Errorf("rfc2136: building record for %s: %w", host, err)
	}

	m := new(dns.Msg)
	m.SetUpdate(p.zone)
	m.RRsetUsed([]dns.RR{rr})
	m.RemoveRRset([]dns.RR{rr})
	m.Insert([]dns.RR{rr})

	if err := p.exchangeUpdate(ctx, "update", m); err != nil {
		return nil, err
	}
	p.log.V(1).Info("updated record", "host", host, "ip", ip)
	return &Record{ID: fqdn, Name: fqdn, Type: "A", Content: ip, TTL: p.ttl}, nil
}

func (p *rfc2136Provider) exchangeUpdate(ctx context.Context, op string, m *dns.Msg) error {
	m.SetTsig(p.tsigName, dns.HmacSHA256, 300, time.Now().Unix())

	resp, _, err := p.client.ExchangeContext(ctx, m, p.server)
	if err != nil {
		return fmt.Errorf("rfc2136: %s: %w", op, err)
	}
	return p.checkRcode(op, resp.Rcode)
}

func (p *rfc2136Provider) checkRcode(op string, rcode int) error {
	switch rcode {
	case dns.RcodeSuccess:
		return nil
	case dns.RcodeRefused, dns.RcodeNotAuth, dns.RcodeBadSig, dns.RcodeBadKey, dns.RcodeBadTime:
		return fmt.Errorf("rfc2136: %s: server returned %s: %w", op, dns.RcodeToString[rcode], ErrAuth)
	case dns.RcodeNXRrset:
		return fmt.Errorf("rfc2136: %s: %w", op, ErrRecordNotFound)
	default:
		return fmt.Errorf("rfc2136: %s: server returned %s", op, dns.RcodeToString[rcode])
	}
}
