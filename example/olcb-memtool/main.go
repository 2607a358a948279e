// Copyright 2025 The go-openlcb Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command olcb-memtool reads and writes the configuration memory of an
// OpenLCB node reached through a GridConnect TCP hub.
package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/destiny/openlcb"
	"github.com/destiny/openlcb/memconfig"
)

var rootCmd = &cobra.Command{
	Use:           "olcb-memtool",
	Short:         "Read and write OpenLCB configuration memory over a GridConnect hub.",
	SilenceUsage:  true,
	SilenceErrors: false,
}

var readCmd = &cobra.Command{
	Use:   "read ADDRESS LENGTH",
	Short: "Read LENGTH bytes at ADDRESS and print them as hex.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		address, err := parseUint(args[0], 32)
		if err != nil {
			return fmt.Errorf("address: %w", err)
		}
		length, err := parseUint(args[1], 16)
		if err != nil {
			return fmt.Errorf("length: %w", err)
		}
		return withSession(cmd, func(ctx context.Context, s *session, space byte) error {
			data, err := s.Read(ctx, space, uint32(address), int(length))
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), hex.Dump(data))
			return nil
		})
	},
}

var writeCmd = &cobra.Command{
	Use:   "write ADDRESS HEXDATA",
	Short: "Write HEXDATA at ADDRESS.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		address, err := parseUint(args[0], 32)
		if err != nil {
			return fmt.Errorf("address: %w", err)
		}
		data, err := hex.DecodeString(args[1])
		if err != nil {
			return fmt.Errorf("data: %w", err)
		}
		return withSession(cmd, func(ctx context.Context, s *session, space byte) error {
			if err := s.Write(ctx, space, uint32(address), data); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d bytes\n", len(data))
			return nil
		})
	},
}

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show the configuration options and the selected address space.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withSession(cmd, func(ctx context.Context, s *session, space byte) error {
			w := cmd.OutOrStdout()
			opts, err := s.ConfigOptions(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "commands 0x%04X, write lengths 0x%02X, spaces 0x%02X-0x%02X %s\n",
				opts.Commands, opts.WriteLengths, opts.LowestSpace, opts.HighestSpace, opts.Name)

			info, err := s.SpaceInfo(ctx, space)
			if err != nil {
				return err
			}
			if !info.Present {
				fmt.Fprintf(w, "space %s not present\n", spaceName(space))
				return nil
			}
			fmt.Fprintf(w, "space %s: 0x%08X-0x%08X read-only=%t %s\n",
				spaceName(info.Space), info.LowestAddress, info.HighestAddress, info.ReadOnly, info.Description)
			return nil
		})
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringP("hub", "H", "localhost:12021", "GridConnect hub address")
	flags.StringP("node", "n", "", "node ID of the target node (required)")
	flags.String("local", "02.01.12.FE.FF.01", "node ID of this tool")
	flags.StringP("space", "s", "0xFD", "address space")
	flags.Duration("timeout", 10*time.Second, "overall timeout")
	flags.String("log-level", "warn", "log level: error, warn, info, debug or trace")
	_ = rootCmd.MarkPersistentFlagRequired("node")

	rootCmd.AddCommand(readCmd, writeCmd, infoCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func withSession(cmd *cobra.Command, fn func(ctx context.Context, s *session, space byte) error) error {
	flags := cmd.Flags()
	hubAddr, _ := flags.GetString("hub")
	nodeStr, _ := flags.GetString("node")
	localStr, _ := flags.GetString("local")
	spaceStr, _ := flags.GetString("space")
	timeout, _ := flags.GetDuration("timeout")
	level, _ := flags.GetString("log-level")

	target, err := openlcb.ParseNodeID(nodeStr)
	if err != nil {
		return err
	}
	local, err := openlcb.ParseNodeID(localStr)
	if err != nil {
		return err
	}
	space, err := parseUint(spaceStr, 8)
	if err != nil {
		return fmt.Errorf("space: %w", err)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	s, err := openSession(ctx, sessionOptions{
		Hub:    hubAddr,
		Local:  local,
		Target: target,
		Logger: openlcb.NewLogger(openlcb.ParseLogLevel(level)),
	})
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(ctx, s, byte(space))
}

func parseUint(s string, bits int) (uint64, error) {
	return strconv.ParseUint(s, 0, bits)
}

// spaceName labels the well-known address spaces.
func spaceName(space byte) string {
	switch space {
	case memconfig.SpaceCDI:
		return "cdi"
	case memconfig.SpaceAll:
		return "all"
	case memconfig.SpaceConfig:
		return "config"
	case memconfig.SpaceACDIManufacturer:
		return "acdi-manufacturer"
	case memconfig.SpaceACDIUser:
		return "acdi-user"
	}
	return fmt.Sprintf("0x%02X", space)
}
