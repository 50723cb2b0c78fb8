// Package cloudflare implements dns.Provider on top of cloudflare-go.
package cloudflare

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/cloudflare/cloudflare-go"
	"github.com/go-logr/logr"

	"github.com/yuriy-kovalchuk/yk-dyndns/internal/apierror"
	"github.com/yuriy-kovalchuk/yk-dyndns/internal/dns"
)

// DefaultBaseURL is the public Cloudflare API.
const DefaultBaseURL = "https://api.cloudflare.com/client/v4"

// comment is attached to every record this provider creates.
const comment = "managed by yk-dyndns"

func init() {
	dns.Register("cloudflare", func(log logr.Logger, settings map[string]string) (dns.Provider, error) {
		return New(log, settings)
	})
}

// Provider implements dns.Provider and dns.ZoneAPI for Cloudflare.
//
// Cloudflare names records by FQDN; the ZoneAPI methods translate to and from
// the "@"/label form the reconciler works with.
type Provider struct {
	api *cloudflare.API
	log logr.Logger
}

// New creates a Cloudflare DNS provider from the given settings map.
// Required settings: api_key (an API token with DNS edit permission).
// Optional settings: base_url, timeout (default 10s).
func New(log logr.Logger, settings map[string]string) (*Provider, error) {
	s, err := dns.ParseSettings("cloudflare", DefaultBaseURL, settings)
	if err != nil {
		return nil, err
	}
	api, err := cloudflare.NewWithAPIToken(s.APIKey,
		cloudflare.BaseURL(s.BaseURL),
		cloudflare.HTTPClient(&http.Client{
			Timeout:   s.Timeout,
			Transport: statusTransport{next: http.DefaultTransport},
		}),
		cloudflare.UsingRetryPolicy(0, 0, 0),
	)
	if err != nil {
		return nil, fmt.Errorf("cloudflare: creating api client: %w", err)
	}
	return &Provider{api: api, log: log}, nil
}

// statusTransport turns 429 and 5xx responses into *apierror.Error before
// cloudflare-go reduces them to plain string errors.
type statusTransport struct {
	next http.RoundTripper
}

func (t statusTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.next.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusTooManyRequests && resp.StatusCode < http.StatusInternalServerError {
		return resp, nil
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	return nil, apierror.Check(resp.StatusCode, resp.Status, apierror.Details{
		RequestID: resp.Header.Get("cf-ray"),
	}, body)
}

// wrap maps a cloudflare-go failure onto the apierror kinds.
// cloudflare-go reports 401 as AuthorizationError and 403 as
// AuthenticationError.
func wrap(op string, err error) error {
	var (
		apiErr    *apierror.Error
		authn     *cloudflare.AuthenticationError
		authz     *cloudflare.AuthorizationError
		notFound  *cloudflare.NotFoundError
		rateLimit *cloudflare.RatelimitError
		netErr    interface{ Timeout() bool }
	)
	if errors.As(err, &apiErr) {
		return fmt.Errorf("cloudflare: %s: %w", op, apiErr)
	}

	kind := apierror.ErrUnexpectedResponse
	status := 0
	switch {
	case errors.As(err, &authz):
		kind, status = apierror.ErrAuthenticationFailed, http.StatusUnauthorized
	case errors.As(err, &authn):
		kind, status = apierror.ErrForbidden, http.StatusForbidden
	case errors.As(err, &notFound):
		kind, status = apierror.ErrNotFound, http.StatusNotFound
	case errors.As(err, &rateLimit):
		kind, status = apierror.ErrRateLimited, http.StatusTooManyRequests
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		kind = apierror.ErrUpstreamTimeout
	}
	return fmt.Errorf("cloudflare: %s: %w", op, &apierror.Error{Kind: kind, StatusCode: status, Cause: err})
}

// FetchZone looks up the zone named domainName.
func (p *Provider) FetchZone(ctx context.Context, domainName string) (dns.Zone, error) {
	zones, err := p.api.ListZones(ctx, domainName)
	if err != nil {
		return dns.Zone{}, wrap("list zones", err)
	}
	for _, z := range zones {
		if strings.EqualFold(z.Name, domainName) {
			return dns.Zone{ID: z.ID, Name: z.Name}, nil
		}
	}
	return dns.Zone{}, apierror.NotFound("cloudflare: zone %q not found", domainName)
}

// ListRecords returns the first page of records of the given type in zone.
// An explicit page turns off cloudflare-go's auto pagination.
func (p *Provider) ListRecords(ctx context.Context, zone dns.Zone, recordType dns.RecordType) ([]dns.Record, error) {
	rs, _, err := p.api.ListDNSRecords(ctx, cloudflare.ZoneIdentifier(zone.ID), cloudflare.ListDNSRecordsParams{
		Type:       recordType.Wire(),
		ResultInfo: cloudflare.ResultInfo{Page: 1, PerPage: dns.ListPageSize},
	})
	if err != nil {
		return nil, wrap("list dns records", err)
	}

	records := make([]dns.Record, 0, len(rs))
	for _, r := range rs {
		records = append(records, fromLibrary(zone, r))
	}
	return records, nil
}

// CreateRecord adds a record to zone.
func (p *Provider) CreateRecord(ctx context.Context, zone dns.Zone, rec dns.Record) (dns.Record, error) {
	_, err := p.api.CreateDNSRecord(ctx, cloudflare.ZoneIdentifier(zone.ID), cloudflare.CreateDNSRecordParams{
		Type:    rec.Type.Wire(),
		Name:    dns.FQDN(rec.Name, zone.Name),
		Content: rec.Data,
		ZoneID:  zone.ID,
		TTL:     rec.TTL,
		Comment: comment,
	})
	if err != nil {
		return dns.Record{}, wrap("create dns record", err)
	}
	p.log.V(1).Info("created dns record", "zone", zone.ID, "name", rec.Name)
	rec.ZoneID = zone.ID
	return rec, nil
}

// ReplaceRecord overwrites the record with rec.ID.
func (p *Provider) ReplaceRecord(ctx context.Context, zone dns.Zone, rec dns.Record) (dns.Record, error) {
	updated, err := p.api.UpdateDNSRecord(ctx, cloudflare.ZoneIdentifier(zone.ID), cloudflare.UpdateDNSRecordParams{
		ID:      rec.ID,
		Type:    rec.Type.Wire(),
		Name:    dns.FQDN(rec.Name, zone.Name),
		Content: rec.Data,
		TTL:     rec.TTL,
	})
	if err != nil {
		return dns.Record{}, wrap("update dns record", err)
	}
	p.log.V(1).Info("updated dns record", "zone", zone.ID, "id", updated.ID)
	return fromLibrary(zone, updated), nil
}

func fromLibrary(zone dns.Zone, r cloudflare.DNSRecord) dns.Record {
	return dns.Record{
		ID:     r.ID,
		ZoneID: zone.ID,
		Type:   dns.RecordType(r.Type),
		Name:   dns.RelativeName(r.Name, zone.Name),
		Data:   r.Content,
		TTL:    r.TTL,
	}
}

// UpdateRecord implements dns.Provider.
func (p *Provider) UpdateRecord(ctx context.Context, req dns.UpdateRecordRequest) error {
	return dns.Reconcile(ctx, p.log, p, req)
}
