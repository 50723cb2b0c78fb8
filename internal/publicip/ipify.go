package publicip

import (
	"context"
	"fmt"
	"net/http"
	"net/netip"
	"time"

	"github.com/go-logr/logr"

	"github.com/yuriy-kovalchuk/yk-dyndns/internal/apierror"
	"github.com/yuriy-kovalchuk/yk-dyndns/internal/rest"
)

const (
	DefaultIpifyV4URL = "https://api.ipify.org"
	DefaultIpifyV6URL = "https://api64.ipify.org"
)

// IpifyOption configures an Ipify retriever.
type IpifyOption func(*ipifyConfig)

type ipifyConfig struct {
	v4URL, v6URL string
	timeout      time.Duration
}

// WithURLs points the retriever at other endpoints, e.g. a test server.
// Empty values keep the defaults.
func WithURLs(v4, v6 string) IpifyOption {
	return func(c *ipifyConfig) {
		if v4 != "" {
			c.v4URL = v4
		}
		if v6 != "" {
			c.v6URL = v6
		}
	}
}

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) IpifyOption {
	return func(c *ipifyConfig) { c.timeout = d }
}

// Ipify retrieves addresses from the ipify.org JSON API.
type Ipify struct {
	v4, v6 *rest.Client
	log    logr.Logger
}

var _ Retriever = (*Ipify)(nil)

func NewIpify(log logr.Logger, opts ...IpifyOption) *Ipify {
	cfg := ipifyConfig{
		v4URL:   DefaultIpifyV4URL,
		v6URL:   DefaultIpifyV6URL,
		timeout: rest.DefaultTimeout,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Ipify{
		v4:  rest.New(cfg.v4URL, rest.WithTimeout(cfg.timeout), rest.WithHeader("Cache-Control", "no-cache")),
		v6:  rest.New(cfg.v6URL, rest.WithTimeout(cfg.timeout), rest.WithHeader("Cache-Control", "no-cache")),
		log: log,
	}
}

type ipifyParams struct {
	Format string `url:"format"`
}

type ipifyResponse struct {
	IP string `json:"ip"`
}

// Retrieve implements Retriever.
func (r *Ipify) Retrieve(ctx context.Context, family Family) (string, error) {
	var client *rest.Client
	switch family {
	case V4:
		client = r.v4
	case V6:
		client = r.v6
	default:
		return "", apierror.BadRequest("unsupported ip version %q, expected v4 or v6", family)
	}

	resp, err := client.Do(ctx, http.MethodGet, "/", ipifyParams{Format: "json"}, nil)
	if err != nil {
		return "", fmt.Errorf("ipify: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		// ipify answers errors in plain text, so any non-200 is unexpected.
		return "", fmt.Errorf("ipify: %w", &apierror.Error{
			Kind:       apierror.ErrUnexpectedResponse,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       resp.Body,
		})
	}

	var out ipifyResponse
	if err := resp.Decode(&out); err != nil {
		return "", fmt.Errorf("ipify: %w", err)
	}

	addr, err := netip.ParseAddr(out.IP)
	if err != nil {
		return "", fmt.Errorf("ipify: %w", &apierror.Error{
			Kind:    apierror.ErrUnexpectedResponse,
			Details: apierror.Details{Message: fmt.Sprintf("invalid ip address %q", out.IP)},
			Cause:   err,
		})
	}
	addr = addr.Unmap()
	if (family == V4) != addr.Is4() {
		return "", fmt.Errorf("ipify: %w", &apierror.Error{
			Kind:    apierror.ErrUnexpectedResponse,
			Details: apierror.Details{Message: fmt.Sprintf("got %s address %s for %s lookup", familyOf(addr), addr, family)},
		})
	}

	r.log.V(1).Info("retrieved public ip", "family", family, "ip", addr.String())
	return addr.String(), nil
}

func familyOf(addr netip.Addr) Family {
	if addr.Is4() {
		return V4
	}
	return V6
}
