package main

import (
	"fmt"
	"net"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"geoform/internal/config"
	"geoform/internal/masters"
	"geoform/internal/server"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		addr       string
		privateKey string
		mastersDir string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the masters API, the public key and the submit endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("addr") {
				_ = config.Set(config.KeyBackendListen, addr)
			}
			if cmd.Flags().Changed("private-key") {
				_ = config.Set(config.KeyBackendPrivateKey, privateKey)
			}
			if cmd.Flags().Changed("masters") {
				_ = config.Set(config.KeyBackendMastersDir, mastersDir)
			}
			log := a.logs.Logger("serve")

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			store, err := masters.Open(ctx, config.GetString(config.KeyBackendDatabase))
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if dir := strings.TrimSpace(config.GetString(config.KeyBackendMastersDir)); dir != "" {
				report, err := store.Seed(ctx, dir, a.logs.Logger("seed"))
				if err != nil {
					return err
				}
				log.Info("masters seeded", "states", report.States, "districts", report.Districts, "blocks", report.Blocks, "skipped", report.Skipped)
			}

			keys, err := loadOrGenerateKeys(config.GetString(config.KeyBackendPrivateKey))
			if err != nil {
				return err
			}

			srv, err := server.New(server.Config{
				Masters:      store,
				Keys:         keys,
				SecretFields: config.GetStringSlice(config.KeyBackendSecretFields),
				Logger:       a.logs.Logger("http"),
			})
			if err != nil {
				return err
			}

			listenAddr := strings.TrimSpace(config.GetString(config.KeyBackendListen))
			ln, err := net.Listen("tcp", listenAddr)
			if err != nil {
				return fmt.Errorf("listen %s: %w", listenAddr, err)
			}
			return srv.Serve(ctx, ln)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:5000", "Listen address")
	cmd.Flags().StringVar(&privateKey, "private-key", "", "PEM private key (generated at start when empty)")
	cmd.Flags().StringVar(&mastersDir, "masters", "", "Directory holding state.csv, district.csv and block.csv")
	return cmd
}

func loadOrGenerateKeys(path string) (*server.KeyPair, error) {
	if strings.TrimSpace(path) != "" {
		return server.LoadKeyPair(path)
	}
	return server.GenerateKeyPair(server.KeyBits)
}

// compile-time check that the store satisfies the server's lister.
var _ server.Lister = (*masters.Store)(nil)
