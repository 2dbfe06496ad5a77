// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package supervisortest provides in-memory fakes for the three
// collaborator interfaces the supervisor package consumes (CoreSchema,
// Dispatcher, RuntimeExtensions), in the style of the teacher's xxxtest
// packages (validators/validatorstest would be the teacher-side analogue)
// used to drive the Supervisor end to end without a real node process.
package supervisortest

import (
	"errors"
	"sync"

	"github.com/luxfi/ids"
	"github.com/luxfi/supervisor"
)

var (
	errInstanceNameTaken = errors.New("supervisortest: instance name already in use")
	errUnknownInstance   = errors.New("supervisortest: unknown instance")
	errUnknownArtifact   = errors.New("supervisortest: unknown artifact")
)

// Core is an in-memory supervisor.CoreSchema fake: a settable height and
// validator set plus a fixed mode.
type Core struct {
	mu              sync.Mutex
	height          supervisor.Height
	validatorKeys   []ids.NodeID
	mode            supervisor.Mode
}

// NewCore returns a Core fake starting at height 0 with the given
// validator set and mode.
func NewCore(mode supervisor.Mode, validators ...ids.NodeID) *Core {
	return &Core{validatorKeys: validators, mode: mode}
}

// SetHeight advances the fake's reported height; tests call this between
// blocks to simulate chain progress.
func (c *Core) SetHeight(h supervisor.Height) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.height = h
}

// SetValidators replaces the current validator set, simulating a
// consensus-engine-adopted membership change.
func (c *Core) SetValidators(keys ...ids.NodeID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.validatorKeys = keys
}

func (c *Core) Height() supervisor.Height {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.height
}

func (c *Core) ConsensusConfig() supervisor.ConsensusConfig {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := make([]ids.NodeID, len(c.validatorKeys))
	copy(keys, c.validatorKeys)
	return supervisor.ConsensusConfig{ValidatorKeys: keys, Mode: c.mode}
}

func (c *Core) IsValidator(id ids.NodeID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range c.validatorKeys {
		if k == id {
			return true
		}
	}
	return false
}

var _ supervisor.CoreSchema = (*Core)(nil)

// Dispatcher is an in-memory supervisor.Dispatcher fake.
type Dispatcher struct {
	mu         sync.Mutex
	artifacts  map[string]supervisor.ArtifactState
	instances  map[uint32]supervisor.InstanceState
	byName     map[string]uint32
	unloadable map[string]error
	nextID     uint32
}

// NewDispatcher returns an empty Dispatcher fake.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		artifacts:  make(map[string]supervisor.ArtifactState),
		instances:  make(map[uint32]supervisor.InstanceState),
		byName:     make(map[string]uint32),
		unloadable: make(map[string]error),
	}
}

// SeedArtifact registers an already-deployed, active artifact.
func (d *Dispatcher) SeedArtifact(id supervisor.ArtifactID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.artifacts[id.String()] = supervisor.ArtifactState{ID: id, Status: supervisor.ArtifactStatusActive}
}

// SeedInstance registers a running instance, returning its assigned ID.
func (d *Dispatcher) SeedInstance(name string, artifact supervisor.ArtifactID, status supervisor.InstanceStatus) uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	id := d.nextID
	d.instances[id] = supervisor.InstanceState{
		InstanceID: id,
		Name:       name,
		Artifact:   artifact,
		Status:     status,
	}
	d.byName[name] = id
	return id
}

// DenyUnload makes CheckUnloadingArtifact fail for id with err, simulating
// a still-referenced artifact. A nil err leaves unloading id allowed.
func (d *Dispatcher) DenyUnload(id supervisor.ArtifactID, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.unloadable[id.String()] = err
}

func (d *Dispatcher) GetArtifact(id supervisor.ArtifactID) (supervisor.ArtifactState, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	a, ok := d.artifacts[id.String()]
	return a, ok
}

func (d *Dispatcher) GetInstance(instanceID uint32) (supervisor.InstanceState, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	i, ok := d.instances[instanceID]
	return i, ok
}

func (d *Dispatcher) GetInstanceByName(name string) (supervisor.InstanceState, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	id, ok := d.byName[name]
	if !ok {
		return supervisor.InstanceState{}, false
	}
	return d.instances[id], true
}

func (d *Dispatcher) CheckUnloadingArtifact(id supervisor.ArtifactID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.unloadable[id.String()]
}

func (d *Dispatcher) StartArtifactRegistration(id supervisor.ArtifactID, specBytes []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.artifacts[id.String()] = supervisor.ArtifactState{ID: id, Status: supervisor.ArtifactStatusActive}
	return nil
}

// StartInstance implements supervisor.Dispatcher by creating a new active
// instance of artifact under name, mirroring the dispatcher state change a
// matured ChangeStartService proposal is expected to have caused.
func (d *Dispatcher) StartInstance(name string, artifact supervisor.ArtifactID) (uint32, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.byName[name]; exists {
		return 0, errInstanceNameTaken
	}
	d.nextID++
	id := d.nextID
	d.instances[id] = supervisor.InstanceState{
		InstanceID:  id,
		Name:        name,
		Artifact:    artifact,
		Status:      supervisor.StatusActive,
		DataVersion: artifact.Version,
	}
	d.byName[name] = id
	return id, nil
}

// StopInstance implements supervisor.Dispatcher.
func (d *Dispatcher) StopInstance(instanceID uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	inst, ok := d.instances[instanceID]
	if !ok {
		return errUnknownInstance
	}
	inst.Status = supervisor.StatusStopped
	d.instances[instanceID] = inst
	return nil
}

// FreezeInstance implements supervisor.Dispatcher.
func (d *Dispatcher) FreezeInstance(instanceID uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	inst, ok := d.instances[instanceID]
	if !ok {
		return errUnknownInstance
	}
	inst.Status = supervisor.StatusFrozen
	d.instances[instanceID] = inst
	return nil
}

// ResumeInstance implements supervisor.Dispatcher.
func (d *Dispatcher) ResumeInstance(instanceID uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	inst, ok := d.instances[instanceID]
	if !ok {
		return errUnknownInstance
	}
	inst.Status = supervisor.StatusActive
	d.instances[instanceID] = inst
	return nil
}

// UnloadArtifact implements supervisor.Dispatcher by removing artifact from
// the dispatcher's deployed set.
func (d *Dispatcher) UnloadArtifact(id supervisor.ArtifactID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.artifacts[id.String()]; !ok {
		return errUnknownArtifact
	}
	delete(d.artifacts, id.String())
	return nil
}

var _ supervisor.Dispatcher = (*Dispatcher)(nil)

// Runtime is an in-memory, synchronous supervisor.RuntimeExtensions fake.
// Unlike runtimeext.SimHost it never uses a background goroutine: every
// call resolves immediately against scripted behavior, making it suitable
// for deterministic unit tests.
type Runtime struct {
	mu                 sync.Mutex
	configErr          error
	applyConfigErr     error
	appliedConfigs     map[uint32][]byte
	features           map[uint32]map[supervisor.RuntimeFeature]bool
	migrationType      supervisor.MigrationType
	migrationErr       error
	commitErr          error
	rollbackErr        error
	committedHashes    map[string]ids.ID
	rolledBackServices map[string]bool
}

// NewRuntime returns a Runtime fake that accepts every config change and
// completes migrations as fast-forward by default.
func NewRuntime() *Runtime {
	return &Runtime{
		appliedConfigs:     make(map[uint32][]byte),
		features:           make(map[uint32]map[supervisor.RuntimeFeature]bool),
		migrationType:      supervisor.MigrationFastForward,
		committedHashes:    make(map[string]ids.ID),
		rolledBackServices: make(map[string]bool),
	}
}

// SetConfigErr makes every VerifyConfig call fail with err.
func (r *Runtime) SetConfigErr(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.configErr = err
}

// SetApplyConfigErr makes every ApplyConfig call fail with err.
func (r *Runtime) SetApplyConfigErr(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.applyConfigErr = err
}

// AppliedConfig returns the params last committed to instanceID via
// ApplyConfig, if any.
func (r *Runtime) AppliedConfig(instanceID uint32) ([]byte, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.appliedConfigs[instanceID]
	return p, ok
}

// SetFeature toggles whether runtimeID advertises feature.
func (r *Runtime) SetFeature(runtimeID uint32, feature supervisor.RuntimeFeature, supported bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.features[runtimeID] == nil {
		r.features[runtimeID] = make(map[supervisor.RuntimeFeature]bool)
	}
	r.features[runtimeID][feature] = supported
}

// SetMigrationType controls what InitiateMigration reports.
func (r *Runtime) SetMigrationType(t supervisor.MigrationType) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.migrationType = t
}

// SetMigrationErr makes InitiateMigration fail with err.
func (r *Runtime) SetMigrationErr(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.migrationErr = err
}

// CommittedHash returns the hash CommitMigration was last called with for
// service, if any.
func (r *Runtime) CommittedHash(service string) (ids.ID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.committedHashes[service]
	return h, ok
}

// RolledBack reports whether RollbackMigration was called for service.
func (r *Runtime) RolledBack(service string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rolledBackServices[service]
}

func (r *Runtime) VerifyConfig(instanceID uint32, params []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.configErr
}

func (r *Runtime) ApplyConfig(instanceID uint32, params []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.applyConfigErr != nil {
		return r.applyConfigErr
	}
	r.appliedConfigs[instanceID] = params
	return nil
}

func (r *Runtime) CheckFeature(runtimeID uint32, feature supervisor.RuntimeFeature) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.features[runtimeID][feature]
}

func (r *Runtime) InitiateMigration(artifact supervisor.ArtifactID, service string) (supervisor.MigrationType, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.migrationErr != nil {
		return 0, r.migrationErr
	}
	return r.migrationType, nil
}

func (r *Runtime) CommitMigration(service string, hash ids.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.commitErr != nil {
		return r.commitErr
	}
	r.committedHashes[service] = hash
	return nil
}

func (r *Runtime) RollbackMigration(service string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rolledBackServices[service] = true
	return r.rollbackErr
}

var _ supervisor.RuntimeExtensions = (*Runtime)(nil)
