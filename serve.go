package main

import (
	"time"

	"github.com/nodecrypt/nodecrypt/lib/config"
	"github.com/nodecrypt/nodecrypt/lib/keys"
	"github.com/nodecrypt/nodecrypt/lib/relay"
	"github.com/nodecrypt/nodecrypt/lib/util/signals"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the relay",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("listen", "", "listen address (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.NewRelayConfigFromViper()
	if listen, _ := cmd.Flags().GetString("listen"); listen != "" {
		cfg.ListenAddr = listen
	}

	ks, err := keys.NewRelayKeystore(cfg.DataDir, cfg.RSARotationInterval)
	if err != nil {
		return err
	}

	server := relay.NewServer(relay.Config{
		ListenAddr:       cfg.ListenAddr,
		IdleTimeout:      cfg.IdleTimeout,
		TickInterval:     10 * time.Second,
		MaxEnvelopeBytes: cfg.MaxEnvelopeBytes,
		FrameRate:        relay.DefaultConfig().FrameRate,
		FrameBurst:       relay.DefaultConfig().FrameBurst,
	}, ks)
	if err := server.Start(); err != nil {
		return err
	}

	done := make(chan struct{})
	signals.RegisterInterruptHandler(func() {
		server.Stop()
		close(done)
	})
	signals.RegisterReloadHandler(func() {
		config.InitConfig()
		log.Debug("configuration reloaded")
	})
	go signals.Handle()

	// Sweep empty channels alongside the room ticks.
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return nil
		case <-ticker.C:
			server.SweepEmptyRooms()
		}
	}
}
