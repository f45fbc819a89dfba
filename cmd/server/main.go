package main

import (
	"crypto/tls"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rcoop/rac/server"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "racd",
		Short:         "In-memory RAC and WRAC chat server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(serveCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	var (
		cfg      server.Config
		certFile string
		keyFile  string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve RAC, RACS, WRAC and WRACS listeners",
		Long: `Serve an in-memory chat log. Listeners with an empty address are disabled.
The TLS listeners (--racs, --wracs) need --cert and --key.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if certFile != "" || keyFile != "" {
				cert, err := tls.LoadX509KeyPair(certFile, keyFile)
				if err != nil {
					return fmt.Errorf("loading certificate: %w", err)
				}
				cfg.TLSConfig = &tls.Config{Certificates: []tls.Certificate{cert}}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := server.New(cfg)
			if err := srv.Run(ctx); err != nil {
				return err
			}
			log.Println("Shutting down...")
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&cfg.RACAddr, "rac", ":42666", "RAC listen address")
	f.StringVar(&cfg.RACSAddr, "racs", "", "RAC over TLS listen address (e.g. :42667)")
	f.StringVar(&cfg.WRACAddr, "wrac", ":52666", "WRAC listen address")
	f.StringVar(&cfg.WRACSAddr, "wracs", "", "WRAC over TLS listen address (e.g. :52667)")
	f.StringVar(&cfg.MetricsAddr, "metrics", "", "Prometheus /metrics listen address (e.g. :9100)")
	f.IntVar(&cfg.MaxRequestSize, "max-request", server.DefaultMaxRequestSize, "largest request accepted in bytes")
	f.StringVar(&certFile, "cert", "", "TLS certificate file (PEM)")
	f.StringVar(&keyFile, "key", "", "TLS private key file (PEM)")
	return cmd
}
