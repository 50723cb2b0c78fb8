package dns

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-logr/logr"
	"github.com/samber/lo"

	"github.com/yuriy-kovalchuk/yk-dyndns/internal/apierror"
)

// Outcome reports what Reconcile did to the provider.
type Outcome int

const (
	Unchanged Outcome = iota
	Created
	Updated
)

func (o Outcome) String() string {
	switch o {
	case Created:
		return "created"
	case Updated:
		return "updated"
	default:
		return "unchanged"
	}
}

// Reconcile makes the provider behind api hold the record described by req.
func Reconcile(ctx context.Context, log logr.Logger, api ZoneAPI, req UpdateRecordRequest) error {
	_, err := ReconcileOutcome(ctx, log, api, req)
	return err
}

// ReconcileOutcome is Reconcile that also reports which write, if any, it made.
//
// The zone is resolved first, then the first page of records is listed and
// the first one matching (name, type) is compared against req. At most one
// write is issued. Nothing is retried.
func ReconcileOutcome(ctx context.Context, log logr.Logger, api ZoneAPI, req UpdateRecordRequest) (Outcome, error) {
	req.DomainName = strings.TrimSuffix(req.DomainName, ".")
	if err := req.Validate(); err != nil {
		return Unchanged, err
	}

	zone, err := api.FetchZone(ctx, req.DomainName)
	if err != nil {
		return Unchanged, fmt.Errorf("fetching zone %q: %w", req.DomainName, err)
	}
	log.V(1).Info("resolved zone", "zone", zone.Name, "id", zone.ID)

	recordName := req.RecordName()
	recordTTL := req.EffectiveTTL()

	records, err := api.ListRecords(ctx, zone, req.RecordType)
	if err != nil {
		return Unchanged, fmt.Errorf("listing records of zone %q: %w", zone.Name, err)
	}
	log.V(1).Info("listed records", "zone", zone.Name, "count", len(records))

	existing, found := FindRecord(records, recordName, req.RecordType)

	if !found {
		if !req.CreateIfNotExists {
			return Unchanged, apierror.NotFound("no record found on domain '%s' called '%s' with type '%s'",
				req.DomainName, recordName, req.RecordType)
		}
		log.Info("creating record", "domain", req.DomainName, "name", recordName, "type", req.RecordType, "data", req.Data, "ttl", recordTTL)
		created, err := api.CreateRecord(ctx, zone, Record{
			ZoneID: zone.ID,
			Type:   req.RecordType,
			Name:   recordName,
			Data:   req.Data,
			TTL:    recordTTL,
		})
		if err != nil {
			return Unchanged, fmt.Errorf("creating record %q in zone %q: %w", recordName, zone.Name, err)
		}
		log.Info("record created", "id", created.ID)
		return Created, nil
	}

	// Without a requested TTL the record keeps the one it has.
	if req.TTL == 0 {
		recordTTL = existing.TTL
	}
	if !req.ForceUpdate && existing.Data == req.Data && existing.TTL == recordTTL {
		log.Info("record is up to date", "id", existing.ID, "name", existing.Name, "data", existing.Data, "ttl", existing.TTL)
		return Unchanged, nil
	}

	log.Info("updating record", "id", existing.ID, "name", existing.Name, "type", req.RecordType,
		"from", existing.Data, "to", req.Data, "ttl", recordTTL, "force", req.ForceUpdate)
	updated, err := api.ReplaceRecord(ctx, zone, Record{
		ID:     existing.ID,
		ZoneID: zone.ID,
		Type:   req.RecordType,
		Name:   existing.Name,
		Data:   req.Data,
		TTL:    recordTTL,
	})
	if err != nil {
		return Unchanged, fmt.Errorf("updating record %s (%q) in zone %q: %w", existing.ID, existing.Name, zone.Name, err)
	}
	log.Info("record updated", "id", updated.ID)
	return Updated, nil
}

// FindRecord returns the first record named name whose type matches
// recordType ignoring case. Duplicates beyond the first are ignored.
func FindRecord(records []Record, name string, recordType RecordType) (Record, bool) {
	return lo.Find(records, func(r Record) bool {
		return r.Name == name && r.Type.Equal(recordType)
	})
}
