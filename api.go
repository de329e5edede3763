package ddns

import "context"

// Record is a single provider-side DNS record. The ID is whatever opaque
// identifier the provider assigned; for providers without identifiers it
// is synthesized from the record name.
type Record struct {
	ID      string
	Name    string
	Type    string
	Content string
	TTL     int
}

// Provider is the capability set required of every DNS provider client.
// A client is bound to one zone at construction time.
type Provider interface {
	// FindRecord returns the A record for host, or nil if none exists.
	// More than one match is reported as ErrAmbiguousRecord.
	FindRecord(ctx context.Context, host string) (*Record, error)

	// CreateRecord creates a new A record pointing host at ip and returns
	// it with the provider-assigned ID.
	CreateRecord(ctx context.Context, host, ip string) (*Record, error)

	// UpdateRecord rewrites the content of the record identified by id,
	// keeping its identity. A record deleted since it was found is
	// reported as ErrRecordNotFound.
	UpdateRecord(ctx context.Context, id, host, ip string) (*Record, error)
}

// Result is the JSON envelope returned for every DDNS update request.
// Logical failures set Success to false and Error to a human-readable
// reason; the HTTP status stays 200 either way.
type Result struct {
	Success  bool   `json:"success"`
	Message  string `json:"message,omitempty"`
	RecordID string `json:"record_id,omitempty"`
	Error    string `json:"error,omitempty"`
}
