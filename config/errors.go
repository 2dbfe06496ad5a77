// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import "errors"

// Config validation errors.
var (
	ErrInvalidMode            = errors.New("supervisor mode must be Simple or Decentralized")
	ErrDeployDeadlineTooLow   = errors.New("deploy deadline offset must be >= 1 block")
	ErrMigrationDeadlineLow   = errors.New("migration deadline offset must be >= 1 block")
	ErrConfigDeadlineTooLow   = errors.New("config proposal deadline offset must be >= 1 block")
	ErrSimpleModeMultiValidator = errors.New("simple mode is only safe with a single validator")
)
