// Copyright 2025 The go-openlcb Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command olcb-hub relays GridConnect frames between TCP clients and can
// run an OpenLCB node of its own on the hub's bus.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/destiny/openlcb"
	"github.com/destiny/openlcb/can"
	"github.com/destiny/openlcb/hub"
)

var rootCmd = &cobra.Command{
	Use:   "olcb-hub",
	Short: "Run an OpenLCB GridConnect TCP hub.",
	Args:  cobra.NoArgs,
	RunE:  run,
}

func init() {
	rootCmd.Flags().StringP("config", "c", "", "path to a TOML config file")
	rootCmd.Flags().StringP("listen", "l", "", "listen address, overrides the config file")
	rootCmd.Flags().String("node-id", "", "run a local node with this ID, overrides the config file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := loadConfig(path)
	if err != nil {
		return err
	}
	if listen, _ := cmd.Flags().GetString("listen"); listen != "" {
		cfg.Listen = listen
	}
	if s, _ := cmd.Flags().GetString("node-id"); s != "" {
		if cfg.NodeID, err = openlcb.ParseNodeID(s); err != nil {
			return err
		}
	}

	log := openlcb.NewLogger(cfg.LogLevel)
	options := hub.DefaultOptions()
	options.Logger = log.With("component", "hub")
	options.QueueSize = cfg.QueueSize

	// The local node sees every client frame through the tap and writes
	// its own frames to all clients.
	var node *can.Interface
	if !cfg.NodeID.IsZero() {
		options.Tap = can.FrameSinkFunc(func(f can.Frame) error {
			return node.HandleFrame(f)
		})
	}
	h := hub.NewHub(cfg.Listen, options)
	if !cfg.NodeID.IsZero() {
		node = can.NewInterface(cfg.NodeID, can.FrameSinkFunc(h.Inject),
			can.WithLogger(log.With("component", "node")),
			can.WithSNIP(cfg.SNIP),
		)
		defer node.Close()
	}

	if err := h.Start(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if node != nil {
		if err := node.Start(ctx); err != nil {
			h.Stop()
			return fmt.Errorf("local node: %w", err)
		}
	}

	ticker := time.NewTicker(cfg.StatsInterval)
	defer ticker.Stop()
loop:
	for {
		select {
		case <-ticker.C:
			stats, _ := json.MarshalIndent(h.GetStats(), "", "  ")
			log.Info("hub stats:\n%s", stats)
		case <-ctx.Done():
			break loop
		}
	}

	log.Info("shutting down hub...")
	return h.Stop()
}
