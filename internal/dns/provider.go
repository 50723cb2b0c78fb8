package dns

import "context"

// Provider is the interface that DNS providers must implement.
type Provider interface {
	// UpdateRecord creates or updates the record described by req so that it
	// holds req.Data, leaving it untouched when it already does.
	UpdateRecord(ctx context.Context, req UpdateRecordRequest) error
}

// Zone is a provider's representation of a registered domain.
type Zone struct {
	ID   string // opaque provider id; the domain name for providers without one
	Name string
	TTL  int
}

// Record is a single DNS record within a zone.
type Record struct {
	ID     string
	ZoneID string
	Type   RecordType
	Name   string // label relative to the zone apex, "@" for the apex itself
	Data   string
	TTL    int
}

// ZoneAPI is the provider-specific half of a Provider: the four calls the
// reconciler needs. Implementations must classify HTTP failures with the
// apierror kinds.
type ZoneAPI interface {
	FetchZone(ctx context.Context, domainName string) (Zone, error)
	ListRecords(ctx context.Context, zone Zone, recordType RecordType) ([]Record, error)
	CreateRecord(ctx context.Context, zone Zone, record Record) (Record, error)
	ReplaceRecord(ctx context.Context, zone Zone, record Record) (Record, error)
}
