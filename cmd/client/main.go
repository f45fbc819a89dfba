package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/rcoop/rac/client"
	"github.com/rcoop/rac/internal/config"
)

// options holds the root flags shared by every subcommand.
type options struct {
	configPath string
	host       string
	proxy      string
	resolver   string
	timeout    time.Duration
	removeNull bool
	strictTLS  bool

	cfg *config.Config
}

func main() {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "rac",
		Short: "Client for RAC and WRAC chat servers",
		Long: `rac talks to RAC chat servers over rac://, racs://, wrac:// and wracs://
URLs, optionally through a SOCKS5 proxy.

Settings are read from the YAML config file and can be overridden with flags.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd)
		},
	}

	f := rootCmd.PersistentFlags()
	f.StringVarP(&opts.configPath, "config", "c", "", "config file (default <user config dir>/bRAC/config.yml)")
	f.StringVarP(&opts.host, "host", "H", "", "server URL, overrides the config file")
	f.StringVar(&opts.proxy, "proxy", "", "SOCKS5 proxy URL: [socks5://][user:pass@]host:port")
	f.StringVar(&opts.resolver, "resolver", "", "DNS server (host:port) used instead of the system resolver")
	f.DurationVar(&opts.timeout, "timeout", client.DefaultTimeout, "dial, read and write timeout")
	f.BoolVar(&opts.removeNull, "remove-null", false, "skip NUL bytes around RAC size fields")
	f.BoolVar(&opts.strictTLS, "strict-tls", false, "verify server certificates")

	rootCmd.AddCommand(
		readCmd(opts),
		sendCmd(opts),
		registerCmd(opts),
		authCmd(opts),
		watchCmd(opts),
		pingCmd(opts),
		configCmd(opts),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

// load reads the config file and applies flag overrides.
func (o *options) load(cmd *cobra.Command) error {
	if o.configPath == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return err
		}
		o.configPath = p
	}

	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}

	f := cmd.Flags()
	if f.Changed("host") {
		cfg.Host = o.host
	}
	if f.Changed("proxy") {
		cfg.Proxy = o.proxy
	}
	if f.Changed("resolver") {
		cfg.Resolver = o.resolver
	}
	if f.Changed("timeout") {
		cfg.Timeout = int(o.timeout / time.Millisecond)
	}
	if f.Changed("remove-null") {
		cfg.RemoveNull = o.removeNull
	}
	if f.Changed("strict-tls") {
		cfg.InsecureSkipVerify = !o.strictTLS
	}

	o.cfg = cfg
	return nil
}

func (o *options) client() *client.Client {
	return client.New(o.cfg.Host, o.cfg.ClientConfig())
}

func init() {
	log.SetFlags(log.Ltime)
}
