package ddns

import (
	"fmt"

	"github.com/go-logr/logr"
)

// Registry holds one constructed provider client per configured provider,
// keyed by the name used in request paths. It is built once at startup
// and read-only afterwards, so lookups need no locking.
type Registry struct {
	clients map[string]Provider
}

// NewRegistry constructs a client for every provider in cfgs. It fails
// fast on an unknown provider type, missing required settings, or a
// duplicate name; this is the only place configuration-shape errors
// surface, so the reconciler never sees config validation.
func NewRegistry(cfgs []ProviderConfig, log logr.Logger) (*Registry, error) {
	clients := make(map[string]Provider, len(cfgs))
	for _, cfg := range cfgs {
		if _, exists := clients[cfg.Name]; exists {
			return nil, fmt.Errorf("registry: duplicate provider name %q", cfg.Name)
		}

		plog := log.WithName(cfg.Type).WithValues("provider", cfg.Name)
		client, err := newProvider(cfg, plog)
		if err != nil {
			return nil, fmt.Errorf("registry: provider %q: %w", cfg.Name, err)
		}
		clients[cfg.Name] = client
	}
	return &Registry{clients: clients}, nil
}

// newProvider selects the concrete client for a provider type. The set
// of types is closed at compile time; adding a provider means adding a
// case here and an implementation of Provider, nothing else.
func newProvider(cfg ProviderConfig, log logr.Logger) (Provider, error) {
	switch cfg.Type {
	case "cloudflare":
		return newCloudflareProvider(log, cfg.Settings)
	case "rfc2136":
		return newRFC2136Provider(log, cfg.Settings)
	default:
		return nil, fmt.Errorf("unsupported provider type %q", cfg.Type)
	}
}

// Resolve returns the client registered under name.
func (r *Registry) Resolve(name string) (Provider, bool) {
	p, ok := r.clients[name]
	return p, ok
}

// Names returns the registered provider names, for startup logging.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.clients))
	for n := range r.clients {
		names = append(names, n)
	}
	return names
}
