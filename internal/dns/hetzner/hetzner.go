// Package hetzner implements dns.Provider for the Hetzner DNS console API.
package hetzner

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/go-logr/logr"

	"github.com/yuriy-kovalchuk/yk-dyndns/internal/apierror"
	"github.com/yuriy-kovalchuk/yk-dyndns/internal/dns"
	"github.com/yuriy-kovalchuk/yk-dyndns/internal/rest"
)

// DefaultBaseURL is the public Hetzner DNS API.
const DefaultBaseURL = "https://dns.hetzner.com/api/v1"

func init() {
	dns.Register("hetzner", func(log logr.Logger, settings map[string]string) (dns.Provider, error) {
		return New(log, settings)
	})
}

// Provider implements dns.Provider and dns.ZoneAPI for Hetzner DNS.
type Provider struct {
	client *rest.Client
	log    logr.Logger
}

// New creates a Hetzner DNS provider from the given settings map.
// Required settings: api_key. Optional settings: base_url, timeout (default 10s).
func New(log logr.Logger, settings map[string]string) (*Provider, error) {
	s, err := dns.ParseSettings("hetzner", DefaultBaseURL, settings)
	if err != nil {
		return nil, err
	}
	return &Provider{
		client: rest.New(s.BaseURL,
			rest.WithHeader("Auth-API-Token", s.APIKey),
			rest.WithTimeout(s.Timeout),
		),
		log: log,
	}, nil
}

// errorResponse covers both error envelopes Hetzner is known to return:
// {"error": {"message": ..., "code": ...}} and the flat {"id", "message", "request_id"}.
type errorResponse struct {
	Error *struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
	ID        string `json:"id"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
}

func (e errorResponse) details() apierror.Details {
	d := apierror.Details{Code: e.ID, Message: e.Message, RequestID: e.RequestID}
	if e.Error != nil {
		if d.Message == "" {
			d.Message = e.Error.Message
		}
		if d.Code == "" && e.Error.Code != 0 {
			d.Code = fmt.Sprint(e.Error.Code)
		}
	}
	return d
}

type zone struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	TTL  int    `json:"ttl"`
}

type record struct {
	ID     string `json:"id,omitempty"`
	ZoneID string `json:"zone_id"`
	Type   string `json:"type"`
	Name   string `json:"name"`
	Value  string `json:"value"`
	TTL    int    `json:"ttl"`
}

type zonesParams struct {
	Name string `url:"name"`
}

type recordsParams struct {
	ZoneID  string `url:"zone_id"`
	PerPage int    `url:"per_page"`
	Page    int    `url:"page"`
}

func check(resp *rest.Response, success ...int) error {
	var body errorResponse
	_ = json.Unmarshal(resp.Body, &body)
	return apierror.Check(resp.StatusCode, resp.Status, body.details(), resp.Body, success...)
}

func (p *Provider) do(ctx context.Context, method, path string, params, body any, out any, success ...int) error {
	resp, err := p.client.Do(ctx, method, path, params, body)
	if err != nil {
		return fmt.Errorf("hetzner: %w", err)
	}
	if err := check(resp, success...); err != nil {
		return fmt.Errorf("hetzner: %s %s: %w", method, path, err)
	}
	if err := resp.Decode(out); err != nil {
		return fmt.Errorf("hetzner: %s %s: %w", method, path, err)
	}
	return nil
}

// FetchZone looks up a zone by its domain name and returns the first match.
func (p *Provider) FetchZone(ctx context.Context, domainName string) (dns.Zone, error) {
	var out struct {
		Zones []zone `json:"zones"`
	}
	if err := p.do(ctx, http.MethodGet, "/zones", zonesParams{Name: domainName}, nil, &out, http.StatusOK); err != nil {
		return dns.Zone{}, err
	}
	if len(out.Zones) == 0 {
		return dns.Zone{}, apierror.NotFound("hetzner: zone %q not found", domainName)
	}
	z := out.Zones[0]
	return dns.Zone{ID: z.ID, Name: z.Name, TTL: z.TTL}, nil
}

// ListRecords returns the first page of records in zone. Hetzner has no
// server-side type filter, so recordType is left to the caller to match.
func (p *Provider) ListRecords(ctx context.Context, zone dns.Zone, _ dns.RecordType) ([]dns.Record, error) {
	var out struct {
		Records []record `json:"records"`
	}
	params := recordsParams{
		ZoneID:  zone.ID,
		PerPage: dns.ListPageSize,
		Page:    1,
	}
	if err := p.do(ctx, http.MethodGet, "/records", params, nil, &out, http.StatusOK); err != nil {
		return nil, err
	}

	records := make([]dns.Record, 0, len(out.Records))
	for _, r := range out.Records {
		records = append(records, fromWire(r))
	}
	return records, nil
}

// CreateRecord adds a record to zone.
func (p *Provider) CreateRecord(ctx context.Context, zone dns.Zone, rec dns.Record) (dns.Record, error) {
	var out struct {
		Record record `json:"record"`
	}
	if err := p.do(ctx, http.MethodPost, "/records", nil, toWire(zone, rec), &out, http.StatusOK); err != nil {
		return dns.Record{}, err
	}
	p.log.V(1).Info("created record", "id", out.Record.ID, "zone", zone.ID)
	return fromWire(out.Record), nil
}

// ReplaceRecord replaces type, name, value and ttl of the record with rec.ID,
// keeping it in zone.
func (p *Provider) ReplaceRecord(ctx context.Context, zone dns.Zone, rec dns.Record) (dns.Record, error) {
	var out struct {
		Record record `json:"record"`
	}
	path := "/records/" + url.PathEscape(rec.ID)
	if err := p.do(ctx, http.MethodPut, path, nil, toWire(zone, rec), &out, http.StatusOK); err != nil {
		return dns.Record{}, err
	}
	p.log.V(1).Info("updated record", "id", out.Record.ID, "zone", zone.ID)
	return fromWire(out.Record), nil
}

// UpdateRecord implements dns.Provider.
func (p *Provider) UpdateRecord(ctx context.Context, req dns.UpdateRecordRequest) error {
	return dns.Reconcile(ctx, p.log, p, req)
}

func toWire(zone dns.Zone, r dns.Record) record {
	return record{
		ZoneID: zone.ID,
		Type:   r.Type.Wire(),
		Name:   r.Name,
		Value:  r.Data,
		TTL:    r.TTL,
	}
}

func fromWire(r record) dns.Record {
	return dns.Record{
		ID:     r.ID,
		ZoneID: r.ZoneID,
		Type:   dns.RecordType(r.Type),
		Name:   r.Name,
		Data:   r.Value,
		TTL:    r.TTL,
	}
}
