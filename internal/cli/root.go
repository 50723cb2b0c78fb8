// Package cli implements the yk-dyndns command line.
package cli

import (
	"flag"
	"io"
	"os"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"

	"github.com/yuriy-kovalchuk/yk-dyndns/internal/config"
	"github.com/yuriy-kovalchuk/yk-dyndns/internal/publicip"
)

// Options carries the process environment into the commands.
type Options struct {
	Version   string
	In        *os.File
	Out       io.Writer
	Err       io.Writer
	LookupEnv func(string) (string, bool)
	// Retriever replaces the ipify retriever when set.
	Retriever publicip.Retriever
}

// DefaultOptions wires the commands to the real process.
func DefaultOptions(version string) Options {
	return Options{
		Version:   version,
		In:        os.Stdin,
		Out:       os.Stdout,
		Err:       os.Stderr,
		LookupEnv: os.LookupEnv,
	}
}

// state is shared by the commands of one invocation.
type state struct {
	opts Options
	log  logr.Logger
	cfg  *config.Config
}

// NewRootCommand builds the yk-dyndns command tree.
func NewRootCommand(opts Options) *cobra.Command {
	if opts.LookupEnv == nil {
		opts.LookupEnv = func(string) (string, bool) { return "", false }
	}
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	if opts.Err == nil {
		opts.Err = io.Discard
	}
	st := &state{opts: opts, log: logr.Discard()}

	zapOpts := zap.Options{
		Development: true,
	}
	goFlags := flag.NewFlagSet("zap", flag.ContinueOnError)
	zapOpts.BindFlags(goFlags)

	root := &cobra.Command{
		Use:           "yk-dyndns",
		Short:         "Keep a DNS record pointed at this host's public IP address",
		Version:       opts.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			st.log = zap.New(zap.UseFlagOptions(&zapOpts), zap.WriteTo(opts.Err))
		},
	}
	root.SetOut(opts.Out)
	root.SetErr(opts.Err)
	root.PersistentFlags().AddGoFlagSet(goFlags)
	root.PersistentFlags().String("config", "", "Path to a YAML config file (env "+config.PathEnv+")")

	for _, p := range providerCommands {
		root.AddCommand(newUpdateCommand(st, p))
	}
	root.AddCommand(newIPCommand(st))
	root.AddCommand(newProvidersCommand(st))

	return root
}
