package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yuriy-kovalchuk/yk-dyndns/internal/dns"
	_ "github.com/yuriy-kovalchuk/yk-dyndns/internal/dns/providers"
)

func newProvidersCommand(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List the supported DNS providers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range dns.Providers() {
				fmt.Fprintln(st.opts.Out, name)
			}
			return nil
		},
	}
}
