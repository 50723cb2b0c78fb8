package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/yuriy-kovalchuk/yk-dyndns/internal/config"
)

// envName maps a flag to its environment variable, e.g.
// ("DYNDNS_DO", "api-key") → "DYNDNS_DO_API_KEY".
func envName(prefix, flag string) string {
	return prefix + "_" + strings.ToUpper(strings.ReplaceAll(flag, "-", "_"))
}

// loadConfig reads the file named by --config or DYNDNS_CONFIG_PATH, if any.
func (st *state) loadConfig(cmd *cobra.Command) error {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path, _ = st.opts.LookupEnv(config.PathEnv)
	}
	if path == "" {
		return nil
	}
	cfg, err := config.LoadConfigFromPath(path)
	if err != nil {
		return err
	}
	st.log.V(1).Info("loaded config file", "path", path, "provider", cfg.Provider)
	st.cfg = cfg
	return nil
}

// bindFlags fills every flag of local that was not given on the command line,
// first from the environment and then from fileValues.
func (st *state) bindFlags(cmd *cobra.Command, prefix string, local *pflag.FlagSet, fileValues map[string]string) error {
	var errs []error
	local.VisitAll(func(f *pflag.Flag) {
		if cmd.Flags().Changed(f.Name) {
			return
		}
		source, value := "", ""
		if v, ok := st.opts.LookupEnv(envName(prefix, f.Name)); ok && v != "" {
			source, value = envName(prefix, f.Name), v
		} else if v, ok := fileValues[f.Name]; ok {
			source, value = "config file", v
		} else {
			return
		}
		if err := cmd.Flags().Set(f.Name, value); err != nil {
			errs = append(errs, fmt.Errorf("invalid value %q for --%s from %s: %w", value, f.Name, source, err))
		}
	})
	return errors.Join(errs...)
}
