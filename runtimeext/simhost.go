// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package runtimeext provides a demo implementation of
// supervisor.RuntimeExtensions that performs deploys and migrations on a
// background goroutine and reports results back as ordinary values on a
// channel, the way a real local runtime would post its outcome back onto
// the chain as a new signed transaction rather than being awaited inline.
package runtimeext

import (
	"crypto/sha256"
	"time"

	"github.com/google/uuid"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"
	"github.com/luxfi/supervisor"
)

// DeployOutcome is a completed simulated deploy, ready to be wrapped into
// a supervisor.DeployResult and submitted as a transaction.
type DeployOutcome struct {
	CorrelationID string
	Request       supervisor.DeployRequest
	Err           error
}

// MigrationOutcome is a completed simulated migration.
type MigrationOutcome struct {
	CorrelationID string
	Request       supervisor.MigrationRequest
	Hash          ids.ID
	Err           error
}

// SimHost is a RuntimeExtensions implementation that simulates local
// deploy and migration work with a fixed artificial latency, posting
// completions onto buffered channels the caller (typically the harness's
// block loop) drains and turns into ReportDeployResult /
// ReportMigrationResult calls.
type SimHost struct {
	logger log.Logger
	delay  time.Duration

	Deploys    chan DeployOutcome
	Migrations chan MigrationOutcome

	configErr      error
	features       map[uint32]map[supervisor.RuntimeFeature]bool
	failArtifacts  map[string]error
	failMigrations map[string]error
}

// NewSimHost returns a SimHost that completes simulated work after delay.
func NewSimHost(logger log.Logger, delay time.Duration) *SimHost {
	return &SimHost{
		logger:         logger,
		delay:          delay,
		Deploys:        make(chan DeployOutcome, 64),
		Migrations:     make(chan MigrationOutcome, 64),
		features:       make(map[uint32]map[supervisor.RuntimeFeature]bool),
		failArtifacts:  make(map[string]error),
		failMigrations: make(map[string]error),
	}
}

// SetFeature toggles whether runtimeID advertises feature, for exercising
// FreezeServiceChange validation in the harness.
func (h *SimHost) SetFeature(runtimeID uint32, feature supervisor.RuntimeFeature, supported bool) {
	if h.features[runtimeID] == nil {
		h.features[runtimeID] = make(map[supervisor.RuntimeFeature]bool)
	}
	h.features[runtimeID][feature] = supported
}

// FailArtifact makes any deploy of artifact complete with err instead of
// succeeding, simulating a broken build.
func (h *SimHost) FailArtifact(artifact supervisor.ArtifactID, err error) {
	h.failArtifacts[artifact.String()] = err
}

// FailMigration makes migrations of service complete with err.
func (h *SimHost) FailMigration(service string, err error) {
	h.failMigrations[service] = err
}

func (h *SimHost) VerifyConfig(instanceID uint32, params []byte) error {
	return h.configErr
}

// ApplyConfig accepts every config change; SimHost keeps no per-instance
// configuration.
func (h *SimHost) ApplyConfig(instanceID uint32, params []byte) error {
	h.logger.Debug("simhost: config applied", "instance", instanceID)
	return nil
}

func (h *SimHost) CheckFeature(runtimeID uint32, feature supervisor.RuntimeFeature) bool {
	return h.features[runtimeID][feature]
}

// InitiateMigration always reports MigrationAsync: SimHost never fast
// forwards, so every migration exercises the hash-agreement path.
func (h *SimHost) InitiateMigration(artifact supervisor.ArtifactID, service string) (supervisor.MigrationType, error) {
	return supervisor.MigrationAsync, nil
}

func (h *SimHost) CommitMigration(service string, hash ids.ID) error {
	h.logger.Debug("simhost: migration committed", "service", service, "hash", hash.String())
	return nil
}

func (h *SimHost) RollbackMigration(service string) error {
	h.logger.Debug("simhost: migration rolled back", "service", service)
	return nil
}

// StartDeploy kicks off a simulated background deploy of req, posting its
// outcome onto h.Deploys after the configured delay.
func (h *SimHost) StartDeploy(req supervisor.DeployRequest) {
	correlationID := uuid.NewString()
	go func() {
		time.Sleep(h.delay)
		err := h.failArtifacts[req.Artifact.String()]
		h.Deploys <- DeployOutcome{CorrelationID: correlationID, Request: req, Err: err}
	}()
}

// StartMigration kicks off a simulated background migration of req,
// posting its outcome onto h.Migrations after the configured delay. The
// reported hash is deterministic: SHA-256 of the request key salted by its
// seed, so two SimHosts fed the same request agree, mirroring honest
// replicas running the same deterministic transform.
func (h *SimHost) StartMigration(req supervisor.MigrationRequest) {
	correlationID := uuid.NewString()
	go func() {
		time.Sleep(h.delay)
		if err := h.failMigrations[req.Service]; err != nil {
			h.Migrations <- MigrationOutcome{CorrelationID: correlationID, Request: req, Err: err}
			return
		}
		sum := sha256.Sum256([]byte(req.Key()))
		h.Migrations <- MigrationOutcome{CorrelationID: correlationID, Request: req, Hash: ids.ID(sum)}
	}()
}

var _ supervisor.RuntimeExtensions = (*SimHost)(nil)
