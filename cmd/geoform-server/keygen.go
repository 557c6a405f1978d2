package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"geoform/internal/server"
)

func newKeygenCmd(a *app) *cobra.Command {
	var (
		out  string
		bits int
	)

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Write a new RSA key pair to disk",
		RunE: func(cmd *cobra.Command, args []string) error {
			keys, err := server.GenerateKeyPair(bits)
			if err != nil {
				return err
			}
			privPath, err := keys.WriteFiles(out)
			if err != nil {
				return err
			}
			a.logs.Logger("keygen").Info("key pair written", "dir", out, "bits", bits)
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "private key: %s\nserve with: geoform-server serve --private-key %s\n", privPath, privPath)
			return err
		},
	}

	cmd.Flags().StringVar(&out, "out", "keys", "Output directory")
	cmd.Flags().IntVar(&bits, "bits", server.KeyBits, "RSA modulus size")
	return cmd
}
