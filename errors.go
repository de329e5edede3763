package ddns

import "errors"

// Provider clients wrap these sentinels with %w so that the reconciler
// can classify failures with errors.Is without knowing which vendor
// produced them. Anything not matching a sentinel is treated as a
// transport failure with no assumption about remote state.
var (
	// ErrAuth means the provider rejected our credentials.
	ErrAuth = errors.New("provider authentication failed")

	// ErrRateLimited means the provider throttled us. It is surfaced to
	// the caller for external backoff, never retried internally.
	ErrRateLimited = errors.New("provider rate limit exceeded")

	// ErrRecordNotFound means a record or zone vanished between calls.
	// The reconciler consumes it once by falling back to a create.
	ErrRecordNotFound = errors.New("record not found")

	// ErrAmbiguousRecord means more than one A record matched a hostname
	// that should have at most one authoritative record.
	ErrAmbiguousRecord = errors.New("multiple matching records")
)
