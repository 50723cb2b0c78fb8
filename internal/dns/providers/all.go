// Package providers imports all DNS provider packages to trigger their init() registration.
package providers

import (
	_ "github.com/yuriy-kovalchuk/yk-dyndns/internal/dns/cloudflare"
	_ "github.com/yuriy-kovalchuk/yk-dyndns/internal/dns/digitalocean"
	_ "github.com/yuriy-kovalchuk/yk-dyndns/internal/dns/hetzner"
	_ "github.com/yuriy-kovalchuk/yk-dyndns/internal/dns/opnsense"
)
