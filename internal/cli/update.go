package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"

	"github.com/yuriy-kovalchuk/yk-dyndns/internal/apierror"
	"github.com/yuriy-kovalchuk/yk-dyndns/internal/dns"
	"github.com/yuriy-kovalchuk/yk-dyndns/internal/publicip"
	"github.com/yuriy-kovalchuk/yk-dyndns/internal/rest"
)

type providerCommand struct {
	name      string
	aliases   []string
	envPrefix string
	title     string
}

var providerCommands = []providerCommand{
	{name: "digitalocean", aliases: []string{"do"}, envPrefix: "DYNDNS_DO", title: "Digital Ocean"},
	{name: "hetzner", envPrefix: "DYNDNS_HETZNER", title: "Hetzner DNS"},
	{name: "cloudflare", aliases: []string{"cf"}, envPrefix: "DYNDNS_CF", title: "Cloudflare"},
	{name: "opnsense", envPrefix: "DYNDNS_OPNSENSE", title: "OPNsense Unbound"},
}

// recordFlags are the values of one update command after flag, environment
// and config file resolution.
type recordFlags struct {
	domain      string
	subdomain   string
	ipAddress   string
	recordType  string
	ttl         int
	ipVersion   string
	apiKey      string
	forceUpdate bool
	create      bool
	timeout     time.Duration
	apiURL      string
	settings    map[string]string
}

func newUpdateCommand(st *state, p providerCommand) *cobra.Command {
	var f recordFlags

	cmd := &cobra.Command{
		Use:     p.name,
		Aliases: p.aliases,
		Short:   "Create or update a DNS record at " + p.title,
		Long: fmt.Sprintf(`Create or update a DNS record at %s.

Every flag can also be set through the environment, e.g. --api-key as
%s. When --ip-address is omitted the public address is looked up
with ipify.`, p.title, envName(p.envPrefix, "api-key")),
		Args: cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if err := st.loadConfig(cmd); err != nil {
				return err
			}
			if st.cfg != nil && st.cfg.Provider != "" && st.cfg.Provider != p.name {
				return fmt.Errorf("config file is for provider %q, not %q", st.cfg.Provider, p.name)
			}
			return st.bindFlags(cmd, p.envPrefix, cmd.LocalNonPersistentFlags(), st.cfg.FlagValues())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return st.runUpdate(cmd.Context(), p, f)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&f.domain, "domain", "d", "", "Domain (zone) the record belongs to")
	flags.StringVarP(&f.subdomain, "subdomain", "s", "", "Record name inside the domain, empty for the apex")
	flags.StringVarP(&f.ipAddress, "ip-address", "a", "", "Record data; looked up with ipify when empty")
	flags.StringVar(&f.recordType, "type", "", "Record type: A, AAAA or CNAME (default derived from --ip-version)")
	flags.IntVarP(&f.ttl, "ttl", "t", dns.DefaultTTL, "Record TTL in seconds")
	flags.StringVar(&f.ipVersion, "ip-version", string(publicip.V4), "Public IP version to look up: v4 or v6")
	flags.StringVarP(&f.apiKey, "api-key", "k", "", p.title+" API key")
	flags.BoolVarP(&f.forceUpdate, "force-update", "f", false, "Write the record even when it is up to date")
	flags.BoolVarP(&f.create, "create", "c", true, "Create the record when it does not exist")
	flags.DurationVar(&f.timeout, "timeout", rest.DefaultTimeout, "Timeout of each HTTP request")
	flags.StringVar(&f.apiURL, "api-url", "", "Override the provider API base URL")
	flags.StringToStringVar(&f.settings, "setting", nil, "Extra provider setting as key=value, e.g. api_secret=... (repeatable)")
	_ = flags.MarkHidden("api-url")
	_ = cmd.MarkFlagRequired("domain")

	return cmd
}

func (st *state) runUpdate(ctx context.Context, p providerCommand, f recordFlags) error {
	log := st.log.WithName(p.name)

	recordType, family, err := resolveType(f.recordType, f.ipVersion)
	if err != nil {
		return err
	}

	data := f.ipAddress
	if data == "" {
		if recordType == dns.TypeCNAME {
			return apierror.BadRequest("--ip-address is required for CNAME records")
		}
		data, err = st.retriever(log, f.timeout, "").Retrieve(ctx, family)
		if err != nil {
			return fmt.Errorf("retrieving public ip: %w", err)
		}
		log.Info("retrieved public ip", "ip", data, "family", family)
	}

	apiKey := f.apiKey
	if apiKey == "" {
		apiKey, err = promptAPIKey(st.opts.In, st.opts.Err, p.title)
		if err != nil {
			return err
		}
	}
	if apiKey == "" {
		return apierror.BadRequest("missing api key: use --api-key or %s", envName(p.envPrefix, "api-key"))
	}

	settings := st.cfg.ExtraSettings()
	for k, v := range f.settings {
		settings[k] = v
	}
	settings[dns.SettingAPIKey] = apiKey
	settings[dns.SettingTimeout] = f.timeout.String()
	if f.apiURL != "" {
		settings[dns.SettingBaseURL] = f.apiURL
	}

	provider, err := dns.NewProvider(p.name, log, settings)
	if err != nil {
		return fmt.Errorf("creating %s provider: %w", p.name, err)
	}

	req := dns.NewUpdateRecordRequest(f.domain, recordType, data)
	req.Subdomain = f.subdomain
	req.TTL = f.ttl
	req.ForceUpdate = f.forceUpdate
	req.CreateIfNotExists = f.create

	api, ok := provider.(dns.ZoneAPI)
	if !ok {
		if err := provider.UpdateRecord(ctx, req); err != nil {
			return err
		}
		fmt.Fprintf(st.opts.Out, "done: %s\n", req)
		return nil
	}

	outcome, err := dns.ReconcileOutcome(ctx, log, api, req)
	if err != nil {
		return err
	}
	fmt.Fprintf(st.opts.Out, "%s: %s\n", outcome, req)
	return nil
}

// resolveType picks the record type and the public IP family to look up.
// An explicit A or AAAA type decides the family; otherwise ipVersion does.
func resolveType(recordType, ipVersion string) (dns.RecordType, publicip.Family, error) {
	family, err := publicip.ParseFamily(ipVersion)
	if err != nil {
		return "", "", err
	}
	if recordType == "" {
		if family == publicip.V6 {
			return dns.TypeAAAA, family, nil
		}
		return dns.TypeA, family, nil
	}

	rt, err := dns.ParseRecordType(recordType)
	if err != nil {
		return "", "", err
	}
	switch rt {
	case dns.TypeA:
		family = publicip.V4
	case dns.TypeAAAA:
		family = publicip.V6
	}
	return rt, family, nil
}

func (st *state) retriever(log logr.Logger, timeout time.Duration, url string) publicip.Retriever {
	if st.opts.Retriever != nil {
		return st.opts.Retriever
	}
	return publicip.NewIpify(log.WithName("ipify"),
		publicip.WithTimeout(timeout),
		publicip.WithURLs(url, url),
	)
}
