// Package digitalocean implements dns.Provider for the Digital Ocean domains API.
package digitalocean

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-logr/logr"

	"github.com/yuriy-kovalchuk/yk-dyndns/internal/apierror"
	"github.com/yuriy-kovalchuk/yk-dyndns/internal/dns"
	"github.com/yuriy-kovalchuk/yk-dyndns/internal/rest"
)

// DefaultBaseURL is the public Digital Ocean API.
const DefaultBaseURL = "https://api.digitalocean.com/v2"

func init() {
	dns.Register("digitalocean", func(log logr.Logger, settings map[string]string) (dns.Provider, error) {
		return New(log, settings)
	})
}

// Provider implements dns.Provider and dns.ZoneAPI for Digital Ocean.
type Provider struct {
	client *rest.Client
	log    logr.Logger
}

// New creates a Digital Ocean DNS provider from the given settings map.
// Required settings: api_key. Optional settings: base_url, timeout (default 10s).
func New(log logr.Logger, settings map[string]string) (*Provider, error) {
	s, err := dns.ParseSettings("digitalocean", DefaultBaseURL, settings)
	if err != nil {
		return nil, err
	}
	return &Provider{
		client: rest.New(s.BaseURL,
			rest.WithHeader("Authorization", "Bearer "+s.APIKey),
			rest.WithTimeout(s.Timeout),
		),
		log: log,
	}, nil
}

// errorResponse is the body Digital Ocean sends with every non-2xx status.
type errorResponse struct {
	ID        string `json:"id"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
}

type domain struct {
	Name     string `json:"name"`
	TTL      int    `json:"ttl"`
	ZoneFile string `json:"zone_file"`
}

type domainRecord struct {
	ID   int64  `json:"id,omitempty"`
	Type string `json:"type"`
	Name string `json:"name"`
	Data string `json:"data"`
	TTL  int    `json:"ttl"`
}

type listRecordsParams struct {
	Type    string `url:"type,omitempty"`
	PerPage int    `url:"per_page"`
	Page    int    `url:"page"`
}

// check classifies resp, reading the Digital Ocean error envelope on failure.
func check(resp *rest.Response, success ...int) error {
	var body errorResponse
	_ = json.Unmarshal(resp.Body, &body)
	return apierror.Check(resp.StatusCode, resp.Status, apierror.Details{
		Code:      body.ID,
		Message:   body.Message,
		RequestID: body.RequestID,
	}, resp.Body, success...)
}

func (p *Provider) do(ctx context.Context, method, path string, params, body any, out any, success ...int) error {
	resp, err := p.client.Do(ctx, method, path, params, body)
	if err != nil {
		return fmt.Errorf("digitalocean: %w", err)
	}
	if err := check(resp, success...); err != nil {
		return fmt.Errorf("digitalocean: %s %s: %w", method, path, err)
	}
	if err := resp.Decode(out); err != nil {
		return fmt.Errorf("digitalocean: %s %s: %w", method, path, err)
	}
	return nil
}

// FetchZone looks up a domain by name. The domain name doubles as the zone id.
func (p *Provider) FetchZone(ctx context.Context, domainName string) (dns.Zone, error) {
	var out struct {
		Domain domain `json:"domain"`
	}
	if err := p.do(ctx, http.MethodGet, "/domains/"+url.PathEscape(domainName), nil, nil, &out, http.StatusOK); err != nil {
		return dns.Zone{}, err
	}
	name := out.Domain.Name
	if name == "" {
		name = domainName
	}
	return dns.Zone{ID: name, Name: name, TTL: out.Domain.TTL}, nil
}

// ListRecords returns the first page of records of the given type.
func (p *Provider) ListRecords(ctx context.Context, zone dns.Zone, recordType dns.RecordType) ([]dns.Record, error) {
	var out struct {
		DomainRecords []domainRecord `json:"domain_records"`
	}
	params := listRecordsParams{
		Type:    recordType.Wire(),
		PerPage: dns.ListPageSize,
		Page:    1,
	}
	if err := p.do(ctx, http.MethodGet, recordsPath(zone), params, nil, &out, http.StatusOK); err != nil {
		return nil, err
	}

	records := make([]dns.Record, 0, len(out.DomainRecords))
	for _, r := range out.DomainRecords {
		records = append(records, fromWire(zone, r))
	}
	return records, nil
}

// CreateRecord adds a record to the domain.
func (p *Provider) CreateRecord(ctx context.Context, zone dns.Zone, record dns.Record) (dns.Record, error) {
	var out struct {
		DomainRecord domainRecord `json:"domain_record"`
	}
	body := domainRecord{
		Type: record.Type.Wire(),
		Name: record.Name,
		Data: record.Data,
		TTL:  record.TTL,
	}
	if err := p.do(ctx, http.MethodPost, recordsPath(zone), nil, body, &out, http.StatusCreated); err != nil {
		return dns.Record{}, err
	}
	p.log.V(1).Info("created domain record", "id", out.DomainRecord.ID)
	return fromWire(zone, out.DomainRecord), nil
}

// ReplaceRecord replaces type, name, data and ttl of the record with record.ID.
func (p *Provider) ReplaceRecord(ctx context.Context, zone dns.Zone, record dns.Record) (dns.Record, error) {
	id, err := strconv.ParseInt(record.ID, 10, 64)
	if err != nil {
		return dns.Record{}, fmt.Errorf("digitalocean: invalid record id %q: %w", record.ID, err)
	}

	var out struct {
		DomainRecord domainRecord `json:"domain_record"`
	}
	body := domainRecord{
		ID:   id,
		Type: record.Type.Wire(),
		Name: record.Name,
		Data: record.Data,
		TTL:  record.TTL,
	}
	path := recordsPath(zone) + "/" + record.ID
	if err := p.do(ctx, http.MethodPut, path, nil, body, &out, http.StatusOK); err != nil {
		return dns.Record{}, err
	}
	p.log.V(1).Info("updated domain record", "id", out.DomainRecord.ID)
	return fromWire(zone, out.DomainRecord), nil
}

// UpdateRecord implements dns.Provider.
func (p *Provider) UpdateRecord(ctx context.Context, req dns.UpdateRecordRequest) error {
	return dns.Reconcile(ctx, p.log, p, req)
}

func recordsPath(zone dns.Zone) string {
	return "/domains/" + url.PathEscape(zone.ID) + "/records"
}

func fromWire(zone dns.Zone, r domainRecord) dns.Record {
	return dns.Record{
		ID:     strconv.FormatInt(r.ID, 10),
		ZoneID: zone.ID,
		Type:   dns.RecordType(r.Type),
		Name:   r.Name,
		Data:   r.Data,
		TTL:    r.TTL,
	}
}
