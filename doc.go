/*
Package ddns implements an HTTP relay that keeps DNS A records in sync
with the public IP reported by polling clients.

A request to /ddns/{provider}/{host}/{ip} resolves the named provider
from the [Registry] and asks [Service.Reconcile] to find the A record
for host and create or update it so that it points at ip. The remote
provider is always treated as the source of truth; nothing is cached
between requests.

Provider implementations satisfy the [Provider] interface. Cloudflare
and RFC 2136 (BIND dynamic update) clients are included.
*/
package ddns
