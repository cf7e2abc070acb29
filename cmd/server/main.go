// Command accentdna-server serves the interactive upload page.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/himanishpuri/AccentDNA/pkg/accentdna"
	"github.com/himanishpuri/AccentDNA/pkg/config"
	"github.com/himanishpuri/AccentDNA/pkg/logger"
)

func newRootCmd() *cobra.Command {
	var (
		configPath     string
		addr           string
		referenceDir   string
		allowedOrigins string
	)

	cmd := &cobra.Command{
		Use:           "accentdna-server",
		Short:         "Serve the accent detection upload page",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				s.Server.Addr = addr
			}
			if cmd.Flags().Changed("references") {
				s.ReferenceDir = referenceDir
			}
			if err := s.Validate(); err != nil {
				return err
			}

			log := logger.GetLogger()
			log.SetLevel(logger.ParseLevel(s.LogLevel))

			var origins []string
			for _, o := range strings.Split(allowedOrigins, ",") {
				if o = strings.TrimSpace(o); o != "" {
					origins = append(origins, o)
				}
			}

			service, err := accentdna.NewService(s.ServiceOptions(log)...)
			if err != nil {
				return fmt.Errorf("failed to create service: %w", err)
			}
			defer service.Close()

			server := NewServer(service, &ServerConfig{
				Addr:           s.Server.Addr,
				TempDir:        s.TempDir,
				ReferenceDir:   s.ReferenceDir,
				MaxUploadBytes: s.Server.MaxUploadMB << 20,
				AllowedOrigins: origins,
			}, log)
			return server.Start(cmd.Context())
		},
	}

	f := cmd.Flags()
	f.StringVar(&configPath, "config", "", "config file (default: ./accentdna.yaml if present)")
	f.StringVar(&addr, "addr", ":8080", "listen address (env: ACCENT_ADDR)")
	f.StringVarP(&referenceDir, "references", "r", "", "reference sample directory (env: ACCENT_REFERENCE_DIR)")
	f.StringVar(&allowedOrigins, "origins", "*", "comma-separated list of allowed CORS origins (use * for all)")
	return cmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Server failed: %v\n", err)
		stop()
		os.Exit(1)
	}
}
