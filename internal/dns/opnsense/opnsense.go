// Package opnsense implements dns.Provider for OPNsense Unbound host overrides.
package opnsense

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-logr/logr"

	"github.com/yuriy-kovalchuk/yk-dyndns/internal/apierror"
	"github.com/yuriy-kovalchuk/yk-dyndns/internal/dns"
	"github.com/yuriy-kovalchuk/yk-dyndns/internal/rest"
)

const description = "managed by yk-dyndns"

func init() {
	dns.Register("opnsense", func(log logr.Logger, settings map[string]string) (dns.Provider, error) {
		return New(log, settings)
	})
}

// Provider implements dns.Provider and dns.ZoneAPI for OPNsense Unbound DNS.
//
// Unbound has no zones and no per-record TTL. The requested domain is used
// as the zone as is, and every override reports defaultTTL.
type Provider struct {
	client     *rest.Client
	defaultTTL int
	log        logr.Logger
}

// New creates an OPNsense DNS provider from the given settings map.
// Required settings: base_url, api_key, api_secret.
// Optional settings: default_ttl (default 300), skip_tls_verify (default false), timeout.
func New(log logr.Logger, settings map[string]string) (*Provider, error) {
	s, err := dns.ParseSettings("opnsense", "", settings)
	if err != nil {
		return nil, err
	}
	if s.BaseURL == "" {
		return nil, fmt.Errorf("opnsense: missing required setting '%s'", dns.SettingBaseURL)
	}
	apiSecret := settings["api_secret"]
	if apiSecret == "" {
		return nil, fmt.Errorf("opnsense: missing required setting 'api_secret'")
	}

	defaultTTL := dns.DefaultTTL
	if v := settings["default_ttl"]; v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("opnsense: invalid default_ttl %q: %w", v, err)
		}
		defaultTTL = parsed
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if v := settings["skip_tls_verify"]; v == "true" {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	auth := base64.StdEncoding.EncodeToString([]byte(s.APIKey + ":" + apiSecret))
	return &Provider{
		client: rest.New(s.BaseURL,
			rest.WithHeader("Authorization", "Basic "+auth),
			rest.WithTimeout(s.Timeout),
			rest.WithHTTPClient(&http.Client{Transport: transport}),
		),
		defaultTTL: defaultTTL,
		log:        log,
	}, nil
}

// searchResponse is the shape returned by searchHostOverride.
type searchResponse struct {
	Rows []hostRow `json:"rows"`
}

// hostRow represents a single host override row from the search response.
type hostRow struct {
	UUID     string `json:"uuid"`
	Enabled  string `json:"enabled"`
	Hostname string `json:"hostname"`
	Domain   string `json:"domain"`
	RR       string `json:"rr"`
	Server   string `json:"server"`
}

type hostOverride struct {
	Enabled     string `json:"enabled"`
	Hostname    string `json:"hostname"`
	Domain      string `json:"domain"`
	RR          string `json:"rr"`
	Server      string `json:"server"`
	Description string `json:"description"`
	MXPrio      string `json:"mxprio"`
	MX          string `json:"mx"`
}

// saveResponse is returned by add/set calls. Validation failures come back
// with status 200 and result "failed".
type saveResponse struct {
	Result      string            `json:"result"`
	UUID        string            `json:"uuid"`
	Validations map[string]string `json:"validations"`
}

func (p *Provider) do(ctx context.Context, method, path string, body, out any) error {
	resp, err := p.client.Do(ctx, method, path, nil, body)
	if err != nil {
		return fmt.Errorf("opnsense: %w", err)
	}
	if err := apierror.Check(resp.StatusCode, resp.Status, apierror.Details{}, resp.Body, http.StatusOK); err != nil {
		return fmt.Errorf("opnsense: %s %s: %w", method, path, err)
	}
	if err := resp.Decode(out); err != nil {
		return fmt.Errorf("opnsense: %s %s: %w", method, path, err)
	}
	return nil
}

// reconfigure tells OPNsense to apply DNS changes.
func (p *Provider) reconfigure(ctx context.Context) error {
	var result struct {
		Status string `json:"status"`
	}
	if err := p.do(ctx, http.MethodPost, "unbound/service/reconfigure", struct{}{}, &result); err != nil {
		return fmt.Errorf("reconfigure: %w", err)
	}
	p.log.V(1).Info("reconfigure completed", "status", result.Status)
	return nil
}

// FetchZone makes no request: Unbound serves whatever domain an override names.
func (p *Provider) FetchZone(_ context.Context, domainName string) (dns.Zone, error) {
	return dns.Zone{ID: domainName, Name: domainName, TTL: p.defaultTTL}, nil
}

// ListRecords returns the overrides of zone with the given type.
func (p *Provider) ListRecords(ctx context.Context, zone dns.Zone, recordType dns.RecordType) ([]dns.Record, error) {
	var sr searchResponse
	if err := p.do(ctx, http.MethodGet, "unbound/settings/searchHostOverride", nil, &sr); err != nil {
		return nil, err
	}

	var records []dns.Record
	for _, row := range sr.Rows {
		if !strings.EqualFold(row.Domain, zone.Name) || !dns.RecordType(row.RR).Equal(recordType) {
			continue
		}
		name := row.Hostname
		if name == "" {
			name = dns.ApexName
		}
		records = append(records, dns.Record{
			ID:     row.UUID,
			ZoneID: zone.ID,
			Type:   dns.RecordType(row.RR),
			Name:   name,
			Data:   row.Server,
			TTL:    p.defaultTTL,
		})
	}
	return records, nil
}

// CreateRecord adds a host override and applies it.
func (p *Provider) CreateRecord(ctx context.Context, zone dns.Zone, rec dns.Record) (dns.Record, error) {
	body, err := buildHostBody(zone, rec)
	if err != nil {
		return dns.Record{}, err
	}
	var result saveResponse
	if err := p.do(ctx, http.MethodPost, "unbound/settings/addHostOverride", body, &result); err != nil {
		return dns.Record{}, err
	}
	if err := result.check("addHostOverride"); err != nil {
		return dns.Record{}, err
	}

	p.log.Info("override created", "uuid", result.UUID)
	rec.ID = result.UUID
	rec.ZoneID = zone.ID
	return rec, p.reconfigure(ctx)
}

// ReplaceRecord overwrites the host override with rec.ID and applies it.
func (p *Provider) ReplaceRecord(ctx context.Context, zone dns.Zone, rec dns.Record) (dns.Record, error) {
	body, err := buildHostBody(zone, rec)
	if err != nil {
		return dns.Record{}, err
	}
	var result saveResponse
	if err := p.do(ctx, http.MethodPost, "unbound/settings/setHostOverride/"+rec.ID, body, &result); err != nil {
		return dns.Record{}, err
	}
	if err := result.check("setHostOverride"); err != nil {
		return dns.Record{}, err
	}

	p.log.Info("override updated", "uuid", rec.ID)
	rec.ZoneID = zone.ID
	return rec, p.reconfigure(ctx)
}

// UpdateRecord implements dns.Provider.
func (p *Provider) UpdateRecord(ctx context.Context, req dns.UpdateRecordRequest) error {
	return dns.Reconcile(ctx, p.log, p, req)
}

func (r saveResponse) check(op string) error {
	if r.Result == "saved" {
		return nil
	}
	msg := fmt.Sprintf("%s: unexpected result %q", op, r.Result)
	for field, v := range r.Validations {
		msg += fmt.Sprintf("; %s: %s", field, v)
	}
	return fmt.Errorf("opnsense: %w", &apierror.Error{
		Kind:    apierror.ErrUnexpectedResponse,
		Details: apierror.Details{Message: msg},
	})
}

// buildHostBody creates the JSON body for add/set host override calls.
func buildHostBody(zone dns.Zone, rec dns.Record) (map[string]hostOverride, error) {
	if !rec.Type.Equal(dns.TypeA) && !rec.Type.Equal(dns.TypeAAAA) {
		return nil, apierror.BadRequest("opnsense: host overrides support A and AAAA records, not %s", rec.Type)
	}
	hostname := rec.Name
	if hostname == dns.ApexName {
		hostname = ""
	}
	return map[string]hostOverride{
		"host": {
			Enabled:     "1",
			Hostname:    hostname,
			Domain:      zone.Name,
			RR:          rec.Type.Wire(),
			Server:      rec.Data,
			Description: description,
		},
	}, nil
}
