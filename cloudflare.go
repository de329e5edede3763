package ddns

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/cloudflare/cloudflare-go"
	"github.com/go-logr/logr"
)

const cloudflareAutoTTL = 1

// cloudflareProvider implements Provider against the Cloudflare v4 API.
// It is bound to a single zone by its zone_id setting.
type cloudflareProvider struct {
	api     *cloudflare.API
	zoneID  string
	ttl     int
	comment string // attached to records we create
	log     logr.Logger
}

// newCloudflareProvider builds a Cloudflare client from a settings map.
// Required settings: api_token, zone_id.
// Optional settings: ttl (default 1 = automatic), timeout (seconds,
// default 10), api_base (override API endpoint).
func newCloudflareProvider(log logr.Logger, settings map[string]string) (*cloudflareProvider, error) {
	token := settings["api_token"]
	if token == "" {
		return nil, fmt.Errorf("cloudflare: missing required setting \"api_token\"")
	}
	zoneID := settings["zone_id"]
	if zoneID == "" {
		return nil, fmt.Errorf("cloudflare: missing required setting \"zone_id\"")
	}

	ttl := cloudflareAutoTTL
	if v := settings["ttl"]; v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("cloudflare: invalid ttl %q: %w", v, err)
		}
		ttl = parsed
	}

	timeout, err := settingTimeout(settings)
	if err != nil {
		return nil, fmt.Errorf("cloudflare: %w", err)
	}

	opts := []cloudflare.Option{
		cloudflare.HTTPClient(&http.Client{Timeout: timeout}),
	}
	if base := settings["api_base"]; base != "" {
		opts = append(opts, cloudflare.BaseURL(base))
	}

	api, err := cloudflare.NewWithAPIToken(token, opts...)
	if err != nil {
		return nil, fmt.Errorf("cloudflare: error creating api client: %w", err)
	}

	return &cloudflareProvider{
		api:     api,
		zoneID:  zoneID,
		ttl:     ttl,
		comment: "managed by ddns",
		log:     log,
	}, nil
}

// FindRecord implements ddns.Provider.
func (cf *cloudflareProvider) FindRecord(ctx context.Context, host string) (*Record, error) {
	records, _, err := cf.api.ListDNSRecords(ctx, cloudflare.ZoneIdentifier(cf.zoneID), cloudflare.ListDNSRecordsParams{
		Type: "A",
		Name: host,
	})
	if err != nil {
		return nil, classifyCloudflareErr("list records", err)
	}
	cf.log.V(1).Info("listed records", "host", host, "count", len(records))

	switch len(records) {
	case 0:
		return nil, nil
	case 1:
		return fromCloudflareRecord(records[0]), nil
	default:
		return nil, fmt.Errorf("cloudflare: %d A records exist for %s: %w", len(records), host, ErrAmbiguousRecord)
	}
}

// CreateRecord implements ddns.Provider.
func (cf *cloudflareProvider) CreateRecord(ctx context.Context, host, ip string) (*Record, error) {
	record, err := cf.api.CreateDNSRecord(ctx, cloudflare.ZoneIdentifier(cf.zoneID), cloudflare.CreateDNSRecordParams{
		Type:    "A",
		Name:    host,
		Content: ip,
		TTL:     cf.ttl,
		Proxied: cloudflare.BoolPtr(false),
		Comment: cf.comment,
	})
	if err != nil {
		return nil, classifyCloudflareErr("create record", err)
	}
	cf.log.V(1).Info("created record", "host", host, "id", record.ID)
	return fromCloudflareRecord(record), nil
}

// UpdateRecord implements ddns.Provider.
func (cf *cloudflareProvider) UpdateRecord(ctx context.Context, id, host, ip string) (*Record, error) {
	record, err := cf.api.UpdateDNSRecord(ctx, cloudflare.ZoneIdentifier(cf.zoneID), cloudflare.UpdateDNSRecordParams{
		ID:      id,
		Type:    "A",
		Name:    host,
		Content: ip,
		TTL:     cf.ttl,
		Proxied: cloudflare.BoolPtr(false),
	})
	if err != nil {
		return nil, classifyCloudflareErr("update record", err)
	}
	cf.log.V(1).Info("updated record", "host", host, "id", record.ID)
	return fromCloudflareRecord(record), nil
}

func fromCloudflareRecord(r cloudflare.DNSRecord) *Record {
	return &Record{
		ID:      r.ID,
		Name:    r.Name,
		Type:    r.Type,
		Content: r.Content,
		TTL:     r.TTL,
	}
}

// classifyCloudflareErr maps cloudflare-go error types onto the package
// sentinels. The SDK returns some of its API errors by value and some by
// pointer, so both forms are matched.
func classifyCloudflareErr(op string, err error) error {
	var (
		authnV cloudflare.AuthenticationError
		authnP *cloudflare.AuthenticationError
		authzV cloudflare.AuthorizationError
		authzP *cloudflare.AuthorizationError
		rateV  cloudflare.RatelimitError
		rateP  *cloudflare.RatelimitError
		nfV    cloudflare.NotFoundError
		nfP    *cloudflare.NotFoundError
	)
	switch {
	case errors.As(err, &authnV), errors.As(err, &authnP),
		errors.As(err, &authzV), errors.As(err, &authzP):
		return fmt.Errorf("cloudflare: %s: %v: %w", op, err, ErrAuth)
	case errors.As(err, &rateV), errors.As(err, &rateP):
		return fmt.Errorf("cloudflare: %s: %v: %w", op, err, ErrRateLimited)
	case errors.As(err, &nfV), errors.As(err, &nfP):
		return fmt.Errorf("cloudflare: %s: %v: %w", op, err, ErrRecordNotFound)
	default:
		return fmt.Errorf("cloudflare: %s: %w", op, err)
	}
}

// settingTimeout reads the optional per-provider "timeout" setting in
// whole seconds, shared by all provider constructors.
func settingTimeout(settings map[string]string) (time.Duration, error) {
	const defaultTimeout = 10 * time.Second
	v := settings["timeout"]
	if v == "" {
		return defaultTimeout, nil
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs <= 0 {
		return 0, fmt.Errorf("invalid timeout %q: must be a positive number of seconds", v)
	}
	return time.Duration(secs) * time.Second, nil
}
