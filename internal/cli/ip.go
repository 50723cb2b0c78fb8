package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/yuriy-kovalchuk/yk-dyndns/internal/publicip"
	"github.com/yuriy-kovalchuk/yk-dyndns/internal/rest"
)

const ipifyEnvPrefix = "DYNDNS_IPIFY"

func newIPCommand(st *state) *cobra.Command {
	var (
		ipVersion string
		timeout   time.Duration
		apiURL    string
	)

	cmd := &cobra.Command{
		Use:   "ip",
		Short: "Print this host's public IP address",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return st.bindFlags(cmd, ipifyEnvPrefix, cmd.LocalNonPersistentFlags(), nil)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			family, err := publicip.ParseFamily(ipVersion)
			if err != nil {
				return err
			}
			ip, err := st.retriever(st.log, timeout, apiURL).Retrieve(cmd.Context(), family)
			if err != nil {
				return err
			}
			fmt.Fprintln(st.opts.Out, ip)
			return nil
		},
	}

	cmd.Flags().StringVar(&ipVersion, "ip-version", string(publicip.V4), "IP version to look up: v4 or v6")
	cmd.Flags().DurationVar(&timeout, "timeout", rest.DefaultTimeout, "Timeout of the HTTP request")
	cmd.Flags().StringVar(&apiURL, "api-url", "", "Override the ipify endpoint")
	_ = cmd.Flags().MarkHidden("api-url")

	return cmd
}
