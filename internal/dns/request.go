package dns

import (
	"fmt"
	"net/netip"
	"strings"

	mdns "github.com/miekg/dns"

	"github.com/yuriy-kovalchuk/yk-dyndns/internal/apierror"
)

const (
	// ApexName is the record name used when no subdomain is given.
	ApexName = "@"
	// DefaultTTL applies when a request carries no TTL.
	DefaultTTL = 300
	// ListPageSize is the number of records fetched per listing. Only the
	// first page is read.
	ListPageSize = 100
)

// RecordType is a DNS record type this updater can manage.
type RecordType string

const (
	TypeA     RecordType = "A"
	TypeAAAA  RecordType = "AAAA"
	TypeCNAME RecordType = "CNAME"
)

// ParseRecordType parses s case-insensitively.
func ParseRecordType(s string) (RecordType, error) {
	switch t := RecordType(strings.ToUpper(strings.TrimSpace(s))); t {
	case TypeA, TypeAAAA, TypeCNAME:
		return t, nil
	default:
		return "", apierror.BadRequest("unsupported record type %q", s)
	}
}

// Equal compares two record types ignoring case.
func (t RecordType) Equal(other RecordType) bool {
	return strings.EqualFold(string(t), string(other))
}

// Wire returns the upper-cased form providers expect.
func (t RecordType) Wire() string {
	return strings.ToUpper(string(t))
}

// UpdateRecordRequest describes the desired state of one record.
type UpdateRecordRequest struct {
	DomainName string
	Subdomain  string // empty means the zone apex
	RecordType RecordType
	Data       string
	TTL        int // zero means DefaultTTL

	// CreateIfNotExists creates the record when it is missing instead of
	// failing with apierror.ErrNotFound.
	CreateIfNotExists bool
	// ForceUpdate writes the record even when it already matches.
	ForceUpdate bool
}

// NewUpdateRecordRequest returns a request that creates missing records and
// only writes when something changed.
func NewUpdateRecordRequest(domainName string, recordType RecordType, data string) UpdateRecordRequest {
	return UpdateRecordRequest{
		DomainName:        domainName,
		RecordType:        recordType,
		Data:              data,
		CreateIfNotExists: true,
	}
}

// RecordName is the subdomain label, or ApexName when there is none.
func (r UpdateRecordRequest) RecordName() string {
	if r.Subdomain == "" {
		return ApexName
	}
	return r.Subdomain
}

// EffectiveTTL is the requested TTL, or DefaultTTL when there is none.
func (r UpdateRecordRequest) EffectiveTTL() int {
	if r.TTL == 0 {
		return DefaultTTL
	}
	return r.TTL
}

// Validate rejects requests that no provider could apply.
func (r UpdateRecordRequest) Validate() error {
	if r.DomainName == "" {
		return apierror.BadRequest("domain name must not be empty")
	}
	if _, ok := mdns.IsDomainName(r.DomainName); !ok || !strings.Contains(strings.TrimSuffix(r.DomainName, "."), ".") {
		return apierror.BadRequest("invalid domain name %q", r.DomainName)
	}
	if r.Subdomain != "" && r.Subdomain != ApexName {
		if _, ok := mdns.IsDomainName(r.Subdomain); !ok {
			return apierror.BadRequest("invalid subdomain %q", r.Subdomain)
		}
	}
	if _, err := ParseRecordType(string(r.RecordType)); err != nil {
		return err
	}
	if r.Data == "" {
		return apierror.BadRequest("record data must not be empty")
	}
	if r.TTL < 0 {
		return apierror.BadRequest("ttl %d must not be negative", r.TTL)
	}

	switch {
	case r.RecordType.Equal(TypeA):
		addr, err := netip.ParseAddr(r.Data)
		if err != nil || !addr.Is4() {
			return apierror.BadRequest("%q is not an IPv4 address", r.Data)
		}
	case r.RecordType.Equal(TypeAAAA):
		addr, err := netip.ParseAddr(r.Data)
		if err != nil || !addr.Is6() || addr.Is4In6() {
			return apierror.BadRequest("%q is not an IPv6 address", r.Data)
		}
	case r.RecordType.Equal(TypeCNAME):
		if _, ok := mdns.IsDomainName(r.Data); !ok {
			return apierror.BadRequest("%q is not a valid CNAME target", r.Data)
		}
	}
	return nil
}

func (r UpdateRecordRequest) String() string {
	return fmt.Sprintf("%s %s.%s -> %s", r.RecordType, r.RecordName(), r.DomainName, r.Data)
}
