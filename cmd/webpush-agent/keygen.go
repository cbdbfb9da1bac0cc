package main

import (
	"crypto/ecdh"
	"encoding/base64"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shinosaki/webpush-agent-go/autopush"
	"github.com/shinosaki/webpush-agent-go/config"
	"github.com/shinosaki/webpush-agent-go/rfc8291"
)

var keygenWrite bool

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Create the auth secret and P-256 key of a push subscription",
	Long: `keygen creates new key material for receiving encrypted pushes and prints
the values an application server needs (p256dh and auth). With --write the
private key and auth secret are stored in the config file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		authSecret, _, privateKey, err := rfc8291.NewSecrets(ecdh.P256())
		if err != nil {
			return err
		}
		keys := autopush.Keys{AuthSecret: authSecret, PrivateKey: privateKey}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "p256dh:", base64.RawURLEncoding.EncodeToString(privateKey.PublicKey().Bytes()))
		fmt.Fprintln(out, "auth:  ", base64.RawURLEncoding.EncodeToString(authSecret))

		if !keygenWrite {
			return nil
		}

		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		cfg.SetKeys(keys)
		if err := config.Save(cfgFile, cfg); err != nil {
			return err
		}
		fmt.Fprintln(out, "written to", cfgFile)
		return nil
	},
}

func init() {
	keygenCmd.Flags().BoolVar(&keygenWrite, "write", false, "store the keys in the config file")
}
