// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import (
	"fmt"
	"strings"

	"github.com/luxfi/log"
)

// ValidationMode determines how strict validation should be.
type ValidationMode int

const (
	// StrictMode enforces all recommended production constraints.
	StrictMode ValidationMode = iota
	// SoftMode allows configurations suited to local/test deployments.
	SoftMode
)

// ValidationError contains detailed validation error information.
type ValidationError struct {
	Field      string
	Value      interface{}
	Constraint string
	Severity   string // "error" or "warning"
	Suggestion string
}

func (ve ValidationError) Error() string {
	return fmt.Sprintf("%s: %s=%v violates constraint: %s", ve.Severity, ve.Field, ve.Value, ve.Constraint)
}

// ValidationResult contains all validation errors and warnings accumulated
// for a single Config.
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationError
	Valid    bool
}

// Validator validates Supervisor configurations.
type Validator struct {
	mode ValidationMode
}

// NewValidator creates a validator with strict mode by default.
func NewValidator() *Validator {
	return &Validator{mode: StrictMode}
}

// WithMode sets the validation mode.
func (v *Validator) WithMode(mode ValidationMode) *Validator {
	v.mode = mode
	return v
}

// Validate performs comprehensive validation of a configuration.
func (v *Validator) Validate(cfg *Config) error {
	result := v.ValidateDetailed(cfg)
	if !result.Valid {
		var errStrs []string
		for _, err := range result.Errors {
			errStrs = append(errStrs, err.Error())
		}
		return fmt.Errorf("validation failed:\n%s", strings.Join(errStrs, "\n"))
	}
	return nil
}

// ValidateDetailed returns detailed validation results instead of failing on
// the first bad field.
func (v *Validator) ValidateDetailed(cfg *Config) *ValidationResult {
	result := &ValidationResult{Valid: true}

	v.validateMode(cfg, result)
	v.validateDeadlines(cfg, result)

	return result
}

func (v *Validator) validateMode(cfg *Config, result *ValidationResult) {
	if cfg.Mode != Simple && cfg.Mode != Decentralized {
		v.addError(result, "Mode", cfg.Mode, "must be Simple or Decentralized",
			"Set Mode to config.Simple or config.Decentralized")
		return
	}

	if cfg.Mode == Simple && cfg.TotalValidators > 1 {
		log.Warn("simple mode configured with more than one validator",
			"totalValidators", cfg.TotalValidators)
		v.addWarning(result, "Mode", cfg.Mode,
			fmt.Sprintf("Simple mode ignores all but one vote (TotalValidators=%d)", cfg.TotalValidators),
			"Use Decentralized mode for multi-validator clusters")
	}
}

func (v *Validator) validateDeadlines(cfg *Config, result *ValidationResult) {
	if cfg.DefaultDeployDeadlineOffset < 1 {
		v.addError(result, "DefaultDeployDeadlineOffset", cfg.DefaultDeployDeadlineOffset,
			"must be at least 1 block", "Set DefaultDeployDeadlineOffset >= 1")
	}
	if cfg.DefaultMigrationDeadlineOffset < 1 {
		v.addError(result, "DefaultMigrationDeadlineOffset", cfg.DefaultMigrationDeadlineOffset,
			"must be at least 1 block", "Set DefaultMigrationDeadlineOffset >= 1")
	}
	if cfg.DefaultConfigDeadlineOffset < 1 {
		v.addError(result, "DefaultConfigDeadlineOffset", cfg.DefaultConfigDeadlineOffset,
			"must be at least 1 block", "Set DefaultConfigDeadlineOffset >= 1")
	}

	if v.mode == StrictMode && cfg.DefaultDeployDeadlineOffset < 10 {
		v.addWarning(result, "DefaultDeployDeadlineOffset", cfg.DefaultDeployDeadlineOffset,
			"short deploy deadlines may expire before slow runtimes finish",
			"Consider DefaultDeployDeadlineOffset >= 10 blocks in production")
	}
}

func (v *Validator) addError(result *ValidationResult, field string, value interface{},
	constraint string, suggestion string,
) {
	result.Errors = append(result.Errors, ValidationError{
		Field:      field,
		Value:      value,
		Constraint: constraint,
		Severity:   "error",
		Suggestion: suggestion,
	})
	result.Valid = false
}

func (v *Validator) addWarning(result *ValidationResult, field string, value interface{},
	constraint string, suggestion string,
) {
	result.Warnings = append(result.Warnings, ValidationError{
		Field:      field,
		Value:      value,
		Constraint: constraint,
		Severity:   "warning",
		Suggestion: suggestion,
	})
}

// ValidateForProduction performs strict validation for production use.
func ValidateForProduction(cfg *Config, totalValidators int) error {
	validator := NewValidator().WithMode(StrictMode)
	cfg.TotalValidators = totalValidators

	result := validator.ValidateDetailed(cfg)
	if cfg.Mode == Decentralized && totalValidators < 4 {
		return fmt.Errorf("decentralized mode needs at least 4 validators for production (got %d)", totalValidators)
	}

	if !result.Valid {
		var errStrs []string
		for _, err := range result.Errors {
			errStrs = append(errStrs, err.Error())
		}
		return fmt.Errorf("validation failed:\n%s", strings.Join(errStrs, "\n"))
	}

	return nil
}
