// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package config holds the Supervisor's own tunable configuration — its
// approval mode and the deadline offsets applied to governance requests —
// separate from the per-proposal ConfigChange payloads the Supervisor
// coordinates on-chain.
package config

// Mode decides how many validator confirmations a governance action needs
// before it is approved. See supervisor.Mode for the runtime policy this
// configures.
type Mode int

const (
	// Simple requires only the acting validator's own vote; intended for
	// single-validator or trusted-operator deployments.
	Simple Mode = iota
	// Decentralized requires a Byzantine quorum (floor(2N/3)+1) of the
	// current validator set.
	Decentralized
)

func (m Mode) String() string {
	switch m {
	case Simple:
		return "simple"
	case Decentralized:
		return "decentralized"
	default:
		return "unknown"
	}
}

// Config is the Supervisor's construction-time configuration.
type Config struct {
	// Mode selects the approval policy applied to every quorum check.
	Mode Mode

	// TotalValidators is the expected validator-set size, used only by
	// config validation (the authoritative count is always read live from
	// CoreSchema.ConsensusConfig at transaction time).
	TotalValidators int

	// DefaultDeployDeadlineOffset is added to the current height when a
	// caller submits a DeployRequest with deadline_height == 0.
	DefaultDeployDeadlineOffset uint64

	// DefaultMigrationDeadlineOffset is the same offset for migration
	// requests.
	DefaultMigrationDeadlineOffset uint64

	// DefaultConfigDeadlineOffset is read only by config validation, which
	// requires it to be at least 1; the governance driver does not use it
	// and accepts any actual_from > current height.
	DefaultConfigDeadlineOffset uint64
}

// Validate checks cfg's own self-consistency constraints and returns the
// first one violated: a known mode, deadline offsets of at least 1, and no
// Simple mode with TotalValidators > 1 (which ValidateDetailed and
// ValidateForProduction report only as a warning). Use
// NewValidator().ValidateDetailed for the softer, warning-annotated report a
// preflight CLI check wants instead.
func (c *Config) Validate() error {
	if c.Mode != Simple && c.Mode != Decentralized {
		return ErrInvalidMode
	}
	if c.DefaultDeployDeadlineOffset < 1 {
		return ErrDeployDeadlineTooLow
	}
	if c.DefaultMigrationDeadlineOffset < 1 {
		return ErrMigrationDeadlineLow
	}
	if c.DefaultConfigDeadlineOffset < 1 {
		return ErrConfigDeadlineTooLow
	}
	if c.Mode == Simple && c.TotalValidators > 1 {
		return ErrSimpleModeMultiValidator
	}
	return nil
}

// DefaultConfig returns a Decentralized-mode configuration with
// conservative deadline offsets.
func DefaultConfig() *Config {
	return &Config{
		Mode:                           Decentralized,
		TotalValidators:                4,
		DefaultDeployDeadlineOffset:    1000,
		DefaultMigrationDeadlineOffset: 1000,
		DefaultConfigDeadlineOffset:    100,
	}
}
