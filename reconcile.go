package ddns

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"regexp"
	"time"

	"github.com/go-logr/logr"
)

// DefaultTimeout bounds the remote calls of one reconciliation when no
// explicit timeout is configured.
const DefaultTimeout = 10 * time.Second

var hostnameRE = regexp.MustCompile(`^([a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?\.)+[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?$`)

// Service owns the idempotent upsert of a single A record: find the
// record, short-circuit when it already matches, otherwise update in
// place or create. It never caches records across requests; the provider
// is re-queried every time so external changes are always observed.
type Service struct {
	log     logr.Logger
	timeout time.Duration
}

// NewService returns a reconciliation service. A non-positive timeout
// falls back to DefaultTimeout.
func NewService(log logr.Logger, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Service{log: log, timeout: timeout}
}

// Reconcile makes the provider's A record for host point at ip and
// reports the outcome as a Result, never as an error: logical failures
// become Result{Success: false} so that a failed update can not affect
// other requests.
//
// Input validation happens before any remote call. The one internal
// retry is ErrRecordNotFound from the update, which means the record was
// deleted between find and update; that race is absorbed by falling back
// to a single create. Every other provider error is surfaced for the
// caller to back off externally.
func (s *Service) Reconcile(ctx context.Context, provider Provider, host, ip string) Result {
	if !hostnameRE.MatchString(host) {
		return Result{Success: false, Error: fmt.Sprintf("Invalid hostname: %s", host)}
	}
	addr, err := netip.ParseAddr(ip)
	if err != nil || !addr.Is4() {
		return Result{Success: false, Error: fmt.Sprintf("Invalid IP address: %s", ip)}
	}

	// Run the remote sequence on a context that keeps its own deadline
	// but ignores the caller disconnecting: abandoning a half-applied
	// update is worse than finishing a wasted one.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	result := s.upsert(ctx, provider, host, ip)
	if result.Success {
		s.log.Info("reconciled record", "host", host, "ip", ip, "record_id", result.RecordID)
	} else {
		s.log.Info("reconcile failed", "host", host, "ip", ip, "reason", result.Error)
	}
	return result
}

func (s *Service) upsert(ctx context.Context, provider Provider, host, ip string) Result {
	existing, err := provider.FindRecord(ctx, host)
	if err != nil {
		return s.failure(host, err)
	}

	if existing != nil && existing.Content == ip {
		// No-op refresh: the common case for polling clients.
		return Result{
			Success:  true,
			Message:  fmt.Sprintf("Record already up to date with IP %s", ip),
			RecordID: existing.ID,
		}
	}

	var record *Record
	if existing != nil {
		record, err = provider.UpdateRecord(ctx, existing.ID, host, ip)
		if errors.Is(err, ErrRecordNotFound) {
			// Deleted between find and update. Create once; no loop.
			record, err = provider.CreateRecord(ctx, host, ip)
		}
	} else {
		record, err = provider.CreateRecord(ctx, host, ip)
	}
	if err != nil {
		return s.failure(host, err)
	}

	return Result{
		Success:  true,
		Message:  fmt.Sprintf("Updated record %s to IP %s", host, ip),
		RecordID: record.ID,
	}
}

// failure maps provider errors onto user-facing strings. The handler
// only ever sees the string, never provider-specific detail.
func (s *Service) failure(host string, err error) Result {
	var reason string
	switch {
	case errors.Is(err, ErrAuth):
		reason = "Provider authentication failed"
	case errors.Is(err, ErrRateLimited):
		reason = "Provider rate limited, retry later"
	case errors.Is(err, ErrAmbiguousRecord):
		reason = fmt.Sprintf("Multiple A records exist for %s, refusing to guess", host)
	default:
		reason = fmt.Sprintf("DNS update failed: %v", err)
	}
	s.log.V(1).Info("provider call failed", "host", host, "error", err.Error())
	return Result{Success: false, Error: reason}
}
