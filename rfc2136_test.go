package ddns

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/go-logr/logr"
	"github.com/miekg/dns"
)

func TestNewRFC2136ProviderValidation(t *testing.T) {
	valid := func() map[string]string {
		return map[string]string{
			"server":      "ns1.example.com",
			"zone":        "example.com",
			"tsig_name":   "ddns-key",
			"tsig_secret": "c2VjcmV0",
		}
	}
	tests := []struct {
		name    string
		mutate  func(map[string]string)
		wantErr bool
	}{
		{"valid", func(s map[string]string) {}, false},
		{"missing server", func(s map[string]string) { delete(s, "server") }, true},
		{"missing zone", func(s map[string]string) { delete(s, "zone") }, true},
		{"missing tsig_name", func(s map[string]string) { delete(s, "tsig_name") }, true},
		{"missing tsig_secret", func(s map[string]string) { delete(s, "tsig_secret") }, true},
		{"invalid ttl", func(s map[string]string) { s["ttl"] = "forever" }, true},
		{"invalid timeout", func(s map[string]string) { s["timeout"] = "0" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings := valid()
			tt.mutate(settings)
			_, err := newRFC2136Provider(logr.Discard(), settings)
			if tt.wantErr && err == nil {
				t.Fatal("expected error")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestNewRFC2136ProviderNormalizes(t *testing.T) {
	p, err := newRFC2136Provider(logr.Discard(), map[string]string{
		"server":      "ns1.example.com",
		"zone":        "example.com",
		"tsig_name":   "ddns-key",
		"tsig_secret": "c2VjcmV0",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.server != "ns1.example.com:53" {
		t.Errorf("expected default port 53 appended; got %q", p.server)
	}
	if p.zone != "example.com." {
		t.Errorf("expected fqdn zone; got %q", p.zone)
	}
	if p.ttl != 300 {
		t.Errorf("expected default ttl 300; got %d", p.ttl)
	}
}

// runDNSServer starts a UDP DNS server on a random loopback port and
// returns its address.
func runDNSServer(t *testing.T, handler dns.Handler) string {
	t.Helper()
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	srv := &dns.Server{PacketConn: pc, Handler: handler}
	go srv.ActivateAndServe()
	t.Cleanup(func() { srv.Shutdown() })
	return pc.LocalAddr().String()
}

func answeringServer(t *testing.T, rcode int, ips ...string) string {
	return runDNSServer(t, dns.HandlerFunc(func(w dns.ResponseWriter, r *dns.Msg) {
		m := new(dns.Msg)
		m.SetReply(r)
		m.Rcode = rcode
		for _, ip := range ips {
			rr, err := dns.NewRR(fmt.Sprintf("%s 300 IN A %s", r.Question[0].Name, ip))
			if err != nil {
				t.Errorf("bad test record: %v", err)
				continue
			}
			m.Answer = append(m.Answer, rr)
		}
		w.WriteMsg(m)
	}))
}

func testRFC2136(t *testing.T, server string) *rfc2136Provider {
	t.Helper()
	p, err := newRFC2136Provider(logr.Discard(), map[string]string{
		"server":      server,
		"zone":        "example.com",
		"tsig_name":   "ddns-key",
		"tsig_secret": "c2VjcmV0",
		"timeout":     "2",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return p
}

func TestRFC2136FindRecord(t *testing.T) {
	p := testRFC2136(t, answeringServer(t, dns.RcodeSuccess, "5.6.7.8"))

	record, err := p.FindRecord(context.Background(), "home.example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record == nil {
		t.Fatal("expected a record")
	}
	if record.Content != "5.6.7.8" || record.ID != "home.example.com." {
		t.Errorf("unexpected record %+v", record)
	}
}

func TestRFC2136FindRecordAbsent(t *testing.T) {
	for name, rcode := range map[string]int{"empty answer": dns.RcodeSuccess, "nxdomain": dns.RcodeNameError} {
		t.Run(name, func(t *testing.T) {
			p := testRFC2136(t, answeringServer(t, rcode))

			record, err := p.FindRecord(context.Background(), "home.example.com")
			if err != nil {
				t.Fatalf("expected no error for zero matches; got %v", err)
			}
			if record != nil {
				t.Fatalf("expected nil record; got %+v", record)
			}
		})
	}
}

func TestRFC2136FindRecordAmbiguous(t *testing.T) {
	p := testRFC2136(t, answeringServer(t, dns.RcodeSuccess, "5.6.7.8", "9.9.9.9"))

	_, err := p.FindRecord(context.Background(), "home.example.com")
	if !errors.Is(err, ErrAmbiguousRecord) {
		t.Fatalf("expected ErrAmbiguousRecord; got %v", err)
	}
}

func TestRFC2136FindRecordRefused(t *testing.T) {
	p := testRFC2136(t, answeringServer(t, dns.RcodeRefused))

	_, err := p.FindRecord(context.Background(), "home.example.com")
	if !errors.Is(err, ErrAuth) {
		t.Fatalf("expected ErrAuth; got %v", err)
	}
}

func TestRFC2136RcodeMapping(t *testing.T) {
	p := testRFC2136(t, "127.0.0.1:1") // never dialed
	tests := []struct {
		rcode int
		want  error
	}{
		{dns.RcodeSuccess, nil},
		{dns.RcodeRefused, ErrAuth},
		{dns.RcodeNotAuth, ErrAuth},
		{dns.RcodeNXRrset, ErrRecordNotFound},
	}
	for _, tt := range tests {
		err := p.checkRcode("update", tt.rcode)
		if tt.want == nil {
			if err != nil {
				t.Errorf("rcode %d: unexpected error %v", tt.rcode, err)
			}
			continue
		}
		if !errors.Is(err, tt.want) {
			t.Errorf("rcode %d: expected %v; got %v", tt.rcode, tt.want, err)
		}
	}
}
