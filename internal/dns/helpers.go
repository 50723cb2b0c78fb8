package dns

import (
	"strings"
)

// FQDN joins a record name relative to zone into a fully qualified name
// without the trailing dot.
// e.g. ("@", "example.com") → "example.com"
// e.g. ("home", "example.com") → "home.example.com"
func FQDN(name, zone string) string {
	zone = strings.TrimSuffix(zone, ".")
	if name == "" || name == ApexName {
		return zone
	}
	return name + "." + zone
}

// RelativeName is the inverse of FQDN. Names outside zone are returned as is.
// e.g. ("example.com", "example.com") → "@"
// e.g. ("home.example.com.", "example.com") → "home"
func RelativeName(fqdn, zone string) string {
	fqdn = strings.TrimSuffix(fqdn, ".")
	zone = strings.TrimSuffix(zone, ".")
	if strings.EqualFold(fqdn, zone) {
		return ApexName
	}
	if len(fqdn) > len(zone) && strings.EqualFold(fqdn[len(fqdn)-len(zone):], zone) && fqdn[len(fqdn)-len(zone)-1] == '.' {
		return fqdn[:len(fqdn)-len(zone)-1]
	}
	return fqdn
}
