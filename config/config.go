// Package config reads the environment-variable tunables named in the
// external interface contract: GATT and mgmt command timeouts, the ring
// channel capacity, and a couple of debug-logging switches. Everything is
// read once, lazily, behind a sync.Once, mirroring how other examples in
// this tree pull runtime knobs from the environment rather than from a
// config file.
package config

import (
	"os"
	"strconv"
	"sync"
	"time"
)

// Values holds the resolved tunables for one process.
type Values struct {
	GATTReadTimeout  time.Duration
	GATTWriteTimeout time.Duration
	GATTInitTimeout  time.Duration
	GATTRingSize     int
	DebugGATTData    bool

	MgmtReadTimeout  time.Duration
	MgmtWriteTimeout time.Duration
	MgmtRingSize     int
	DebugMgmtData    bool
}

const (
	minGATTCmdTimeout  = 550 * time.Millisecond
	minGATTInitTimeout = 2000 * time.Millisecond

	defaultGATTRingSize = 128
	minGATTRingSize     = 64
	maxGATTRingSize     = 1024

	defaultMgmtRingSize = 64
)

var (
	once   sync.Once
	values Values
)

// Get returns the process-wide resolved configuration, reading the
// environment exactly once.
func Get() Values {
	once.Do(func() { values = load() })
	return values
}

func load() Values {
	return Values{
		GATTReadTimeout:  envDurationMS("direct_bt.gatt.cmd.read.timeout", 550*time.Millisecond, minGATTCmdTimeout),
		GATTWriteTimeout: envDurationMS("direct_bt.gatt.cmd.write.timeout", 550*time.Millisecond, minGATTCmdTimeout),
		GATTInitTimeout:  envDurationMS("direct_bt.gatt.cmd.init.timeout", 2500*time.Millisecond, minGATTInitTimeout),
		GATTRingSize:     envIntClamped("direct_bt.gatt.ringsize", defaultGATTRingSize, minGATTRingSize, maxGATTRingSize),
		DebugGATTData:    envBool("direct_bt.debug.gatt.data", false),

		MgmtReadTimeout:  envDurationMS("direct_bt.mgmt.cmd.read.timeout", 550*time.Millisecond, minGATTCmdTimeout),
		MgmtWriteTimeout: envDurationMS("direct_bt.mgmt.cmd.write.timeout", 550*time.Millisecond, minGATTCmdTimeout),
		MgmtRingSize:     envIntClamped("direct_bt.mgmt.ringsize", defaultMgmtRingSize, minGATTRingSize, maxGATTRingSize),
		DebugMgmtData:    envBool("direct_bt.debug.mgmt.data", false),
	}
}

func envDurationMS(key string, def, min time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	ms, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	d := time.Duration(ms) * time.Millisecond
	if d < min {
		return min
	}
	return d
}

func envIntClamped(key string, def, min, max int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	if n < min {
		return min
	}
	if n > max {
		return max
	}
	return n
}

func envBool(key string, def bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return b
}
