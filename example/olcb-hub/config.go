// Copyright 2025 The go-openlcb Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/destiny/openlcb"
)

type config struct {
	Listen        string
	QueueSize     int
	LogLevel      openlcb.LogLevel
	StatsInterval time.Duration

	// NodeID is zero when the hub does not run a node of its own.
	NodeID openlcb.NodeID
	SNIP   openlcb.SNIP
}

func defaultConfig() config {
	return config{
		Listen:        fmt.Sprintf(":%d", 12021),
		QueueSize:     256,
		LogLevel:      openlcb.LogLevelInfo,
		StatsInterval: 10 * time.Second,
		SNIP: openlcb.SNIP{
			ManufacturerVersion: 4,
			Manufacturer:        "destiny",
			Model:               "olcb-hub",
			SoftwareVersion:     "1.0",
			UserVersion:         2,
		},
	}
}

type fileConfig struct {
	Listen        string `toml:"listen"`
	QueueSize     int    `toml:"queue_size"`
	LogLevel      string `toml:"log_level"`
	StatsInterval string `toml:"stats_interval"`
	NodeID        string `toml:"node_id"`
	UserName      string `toml:"user_name"`
	UserDesc      string `toml:"user_description"`
}

func loadConfig(path string) (config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return config{}, fmt.Errorf("load hub config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return config{}, fmt.Errorf("load hub config: unknown key %q", undecoded[0].String())
	}

	if meta.IsDefined("listen") {
		cfg.Listen = strings.TrimSpace(raw.Listen)
	}
	if meta.IsDefined("queue_size") {
		if raw.QueueSize <= 0 {
			return config{}, fmt.Errorf("queue_size must be positive, got %d", raw.QueueSize)
		}
		cfg.QueueSize = raw.QueueSize
	}
	if meta.IsDefined("log_level") {
		cfg.LogLevel = openlcb.ParseLogLevel(raw.LogLevel)
	}
	if meta.IsDefined("stats_interval") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.StatsInterval))
		if err != nil {
			return config{}, fmt.Errorf("parse stats_interval: %w", err)
		}
		if d <= 0 {
			return config{}, fmt.Errorf("stats_interval must be positive, got %s", d)
		}
		cfg.StatsInterval = d
	}
	if meta.IsDefined("node_id") {
		id, err := openlcb.ParseNodeID(strings.TrimSpace(raw.NodeID))
		if err != nil {
			return config{}, fmt.Errorf("parse node_id: %w", err)
		}
		cfg.NodeID = id
	}
	if meta.IsDefined("user_name") {
		cfg.SNIP.UserName = raw.UserName
	}
	if meta.IsDefined("user_description") {
		cfg.SNIP.UserDescription = raw.UserDesc
	}

	return cfg, nil
}
