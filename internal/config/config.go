// Package config loads the node's construction-time configuration, per
// spec.md §6. Grounded on the pack's obrs repo, which reaches for Viper for
// exactly this job (cmd/commands/init.go), rather than the teacher's own
// hand-rolled flag.IntVar/flag.StringVar calls (parameters.go) or its
// bespoke whitespace-delimited peer-list scanner (loadconf.go) — Viper
// subsumes both with one declarative layer (flags, env, file), which is a
// strict improvement over re-deriving the same job twice.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/kjstanding/BlueChain-for-ML/internal/address"
	"github.com/kjstanding/BlueChain-for-ML/internal/blockchain"
)

// Config is the full construction-time configuration spec.md §6 lists,
// plus the fields this expansion's open-question decisions (SPEC_FULL.md
// §9) require.
type Config struct {
	Use                 blockchain.Flavor `mapstructure:"use"`
	Port                string            `mapstructure:"port"`
	MaxPeers            int               `mapstructure:"max_peers"`
	InitialConnections  int               `mapstructure:"initial_connections"`
	NumNodes            int               `mapstructure:"num_nodes"`
	QuorumSize          int               `mapstructure:"quorum_size"`
	MinimumTransactions int               `mapstructure:"minimum_transactions"`
	DebugLevel          int               `mapstructure:"debug_level"`
	IsMalicious         bool              `mapstructure:"is_malicious"`

	// GlobalPeers is the fixed, run-wide peer list spec.md §3 requires be
	// identical across healthy nodes. Load does not read it (mapstructure
	// "-"); cmd/bluechain-node fills it from the --peers flag.
	GlobalPeers []address.Address `mapstructure:"-"`

	// LegacyVoteSeeding preserves the off-by-one in tallyQuorumSigs's
	// vote-seeding spec.md §9 open question 1 flags (a hash first seen
	// from a signature is seeded at 0 votes, not 1). Default true to match
	// the teacher/original's actual behavior.
	LegacyVoteSeeding bool `mapstructure:"legacy_vote_seeding"`

	// SkeletonAssemblyTimeout bounds how long receive_skeleton waits for
	// missing transactions to arrive via gossip before giving up (the
	// chosen resolution of spec.md §9 open question 2).
	SkeletonAssemblyTimeout time.Duration `mapstructure:"skeleton_assembly_timeout"`

	// PhaseGateTimeout bounds every phase-gated wait (spec.md §4.1's
	// "bounded wait with periodic re-check").
	PhaseGateTimeout time.Duration `mapstructure:"phase_gate_timeout"`
}

// Default returns the configuration defaults, mirroring the teacher's
// loadCmdParameters default values (parameters.go) scaled to this spec's
// field set.
func Default() Config {
	return Config{
		Use:                     blockchain.FlavorFinancial,
		Port:                    "7000",
		MaxPeers:                8,
		InitialConnections:      4,
		NumNodes:                4,
		QuorumSize:              3,
		MinimumTransactions:     2,
		DebugLevel:              0,
		IsMalicious:             false,
		LegacyVoteSeeding:       true,
		SkeletonAssemblyTimeout: 5 * time.Second,
		PhaseGateTimeout:        10 * time.Second,
	}
}

// Load reads configuration from an optional file at path, environment
// variables prefixed BLUECHAIN_, and whatever flags the caller has already
// bound into v, in that ascending precedence order (Viper's own
// file-then-env-then-flag resolution order).
func Load(v *viper.Viper, path string) (Config, error) {
	cfg := Default()

	v.SetEnvPrefix("BLUECHAIN")
	v.AutomaticEnv()
	for _, key := range []string{
		"use", "port", "max_peers", "initial_connections", "num_nodes",
		"quorum_size", "minimum_transactions", "debug_level", "is_malicious",
		"legacy_vote_seeding", "skeleton_assembly_timeout", "phase_gate_timeout",
	} {
		_ = v.BindEnv(key)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}

	return cfg, nil
}
