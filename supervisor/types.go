// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package supervisor implements the on-chain governance coordinator: a
// privileged service that deploys artifacts, starts/stops/freezes/resumes
// service instances, changes consensus parameters, and runs data-schema
// migrations, deterministically across every validator replica.
package supervisor

import (
	"fmt"

	"github.com/luxfi/ids"
)

// Height is a block height: the authoritative, monotonically increasing
// clock the Supervisor reasons about deadlines against.
type Height uint64

// Version is a totally ordered artifact version triple.
type Version struct {
	Major uint32
	Minor uint32
	Patch uint32
}

// Compare returns -1, 0, or 1 as v is less than, equal to, or greater than
// other.
func (v Version) Compare(other Version) int {
	switch {
	case v.Major != other.Major:
		return cmpUint32(v.Major, other.Major)
	case v.Minor != other.Minor:
		return cmpUint32(v.Minor, other.Minor)
	default:
		return cmpUint32(v.Patch, other.Patch)
	}
}

func cmpUint32(a, b uint32) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// ArtifactID identifies a deployable artifact by its runtime, name, and
// version.
type ArtifactID struct {
	RuntimeID uint32
	Name      string
	Version   Version
}

func (a ArtifactID) String() string {
	return fmt.Sprintf("%d:%s:%s", a.RuntimeID, a.Name, a.Version)
}

// Validate checks that the identifier is well formed, independent of
// whether it refers to anything that actually exists.
func (a ArtifactID) Validate() error {
	if a.Name == "" {
		return fmt.Errorf("artifact name must not be empty")
	}
	return nil
}

// InstanceStatus is the lifecycle state of a service instance.
type InstanceStatus int

const (
	// StatusNone indicates no instance is registered under this ID/name.
	StatusNone InstanceStatus = iota
	StatusActive
	StatusStopped
	StatusFrozen
	StatusMigrating
)

func (s InstanceStatus) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusStopped:
		return "stopped"
	case StatusFrozen:
		return "frozen"
	case StatusMigrating:
		return "migrating"
	default:
		return "none"
	}
}

// CanBeStopped reports whether an instance in this status may be stopped.
func (s InstanceStatus) CanBeStopped() bool { return s == StatusActive }

// CanBeFrozen reports whether an instance in this status may be frozen.
func (s InstanceStatus) CanBeFrozen() bool { return s == StatusActive }

// CanBeResumed reports whether an instance in this status may be resumed.
func (s InstanceStatus) CanBeResumed() bool { return s == StatusFrozen }

// InstanceState is the dispatcher's view of a running service instance.
type InstanceState struct {
	InstanceID  uint32
	Name        string
	Artifact    ArtifactID
	Status      InstanceStatus
	DataVersion Version
}

// AssociatedArtifact returns the instance's artifact if its data version
// still matches that artifact's version, or false if the association has
// been lost (the instance's data predates a migration that never
// committed, or postdates one the artifact doesn't know about).
func (s InstanceState) AssociatedArtifact() (ArtifactID, bool) {
	if s.DataVersion.Compare(s.Artifact.Version) != 0 {
		return ArtifactID{}, false
	}
	return s.Artifact, true
}

// RuntimeFeature names an optional capability a runtime may advertise.
type RuntimeFeature int

const (
	// FeatureFreezingServices indicates the runtime supports freezing
	// instances in place.
	FeatureFreezingServices RuntimeFeature = iota
)

// ArtifactStatus is the dispatcher's lifecycle state for a deployed
// artifact.
type ArtifactStatus int

const (
	ArtifactStatusNone ArtifactStatus = iota
	ArtifactStatusPending
	ArtifactStatusActive
)

// ArtifactState is the dispatcher's view of a deployed artifact.
type ArtifactState struct {
	ID     ArtifactID
	Status ArtifactStatus
}

// DeployRequest requests that an artifact be deployed cluster-wide.
// Identity (and therefore deduplication) is the triple
// (Artifact, SpecBytes, DeadlineHeight).
type DeployRequest struct {
	Artifact       ArtifactID
	SpecBytes      []byte
	DeadlineHeight Height
}

// Key returns a stable identity for use as a map/quorum-tracker key.
func (d DeployRequest) Key() string {
	return fmt.Sprintf("%s|%x|%d", d.Artifact, d.SpecBytes, d.DeadlineHeight)
}

// DeployResult is the local runtime's asynchronous report of a deploy
// attempt, signed by the reporting validator.
type DeployResult struct {
	Request DeployRequest
	Err     string // empty string means success
}

// Ok reports whether the reported deploy succeeded.
func (r DeployResult) Ok() bool { return r.Err == "" }

// ConfigChangeKind tags the variant held by a ConfigChange.
type ConfigChangeKind int

const (
	ChangeConsensus ConfigChangeKind = iota
	ChangeService
	ChangeStartService
	ChangeStopService
	ChangeFreezeService
	ChangeResumeService
	ChangeUnloadArtifact
)

// ConsensusParams is an opaque bundle of consensus parameters; Validate
// performs only the self-consistency checks the Supervisor itself is
// responsible for (full semantic validation belongs to the consensus
// engine out of scope per this package).
type ConsensusParams struct {
	ValidatorKeys []ids.NodeID
}

// Validate checks the embedded consensus parameters are self-consistent.
func (c ConsensusParams) Validate() error {
	if len(c.ValidatorKeys) == 0 {
		return fmt.Errorf("consensus config must name at least one validator")
	}
	seen := make(map[ids.NodeID]struct{}, len(c.ValidatorKeys))
	for _, k := range c.ValidatorKeys {
		if _, dup := seen[k]; dup {
			return fmt.Errorf("validator key %s listed more than once", k)
		}
		seen[k] = struct{}{}
	}
	return nil
}

// ConfigChange is a single atomic governance action within a ConfigPropose.
// Exactly one of the typed fields is populated, selected by Kind — a tagged
// union rather than an inheritance hierarchy.
type ConfigChange struct {
	Kind ConfigChangeKind

	Consensus      *ConsensusParams
	Service        *ServiceConfigChange
	StartService   *StartServiceChange
	StopService    *StopServiceChange
	FreezeService  *FreezeServiceChange
	ResumeService  *ResumeServiceChange
	UnloadArtifact *UnloadArtifactChange
}

// ServiceConfigChange reconfigures a running instance's parameters.
type ServiceConfigChange struct {
	InstanceID uint32
	Params     []byte
}

// StartServiceChange starts a new instance of an already-active artifact.
type StartServiceChange struct {
	Name     string
	Artifact ArtifactID
}

// StopServiceChange stops a running instance.
type StopServiceChange struct {
	InstanceID uint32
}

// FreezeServiceChange freezes a running instance in place.
type FreezeServiceChange struct {
	InstanceID uint32
}

// ResumeServiceChange resumes a frozen instance.
type ResumeServiceChange struct {
	InstanceID uint32
}

// UnloadArtifactChange unloads a deployed-but-unused artifact.
type UnloadArtifactChange struct {
	ArtifactID ArtifactID
}

// touchedInstance returns the instance ID this change concerns, if any.
// Grounded on the original Rust's ConfigChange::register_instance, which
// shares one dedup rule across every instance-targeting variant instead of
// repeating it per variant.
func (c ConfigChange) touchedInstance() (uint32, bool) {
	switch c.Kind {
	case ChangeStopService:
		return c.StopService.InstanceID, true
	case ChangeFreezeService:
		return c.FreezeService.InstanceID, true
	case ChangeResumeService:
		return c.ResumeService.InstanceID, true
	case ChangeService:
		return c.Service.InstanceID, true
	default:
		return 0, false
	}
}

// ConfigPropose proposes a bundle of config changes to take effect at a
// given height.
type ConfigPropose struct {
	ActualFrom          Height
	ConfigurationNumber uint64
	Changes             []ConfigChange
}

// ConfigProposalWithHash pairs a stored proposal with the hash it was
// registered under, so late confirmations can be matched against it.
type ConfigProposalWithHash struct {
	ConfigPropose ConfigPropose
	ProposeHash   ids.ID
}

// ConfigVote confirms a pending config proposal by hash.
type ConfigVote struct {
	ProposeHash ids.ID
}

// MigrationType describes how a migration was actually carried out.
type MigrationType int

const (
	// MigrationFastForward means no data transform was necessary; the
	// migration completes immediately with no cross-validator hash
	// agreement step.
	MigrationFastForward MigrationType = iota
	// MigrationAsync means the runtime is transforming data on its own
	// worker and will report back a state hash.
	MigrationAsync
)

// MigrationRequest requests a data migration for a running service.
type MigrationRequest struct {
	NewArtifact    ArtifactID
	Service        string
	DeadlineHeight Height
	Seed           uint64
}

// Key returns a stable identity for use as a map/quorum-tracker key.
func (m MigrationRequest) Key() string {
	return fmt.Sprintf("%s|%s|%d|%d", m.NewArtifact, m.Service, m.DeadlineHeight, m.Seed)
}

// MigrationResult is the local runtime's asynchronous report of a
// migration attempt, signed by the reporting validator.
type MigrationResult struct {
	Request MigrationRequest
	Hash    ids.ID // zero value only meaningful when Err == ""
	Err     string
}

// Ok reports whether the reported migration succeeded.
func (r MigrationResult) Ok() bool { return r.Err == "" }

// AsyncEventPhase is the shared lifecycle tag for deploys and migrations.
type AsyncEventPhase int

const (
	PhasePending AsyncEventPhase = iota
	PhaseSucceed
	PhaseFailed
)

// AsyncEventState is the shared lifecycle state for an asynchronously
// completed event (a deploy or a migration).
type AsyncEventState struct {
	Phase         AsyncEventPhase
	FailedHeight  Height
	FailureReason string
}

// IsFailed reports whether this state is terminally failed.
func (s AsyncEventState) IsFailed() bool { return s.Phase == PhaseFailed }

// MigrationState tracks an in-flight or completed migration, including the
// state hash(es) reported by validators so far.
type MigrationState struct {
	AsyncEventState
	CurrentVersion  Version
	AccumulatedHash ids.ID
	HashRecorded    bool
}

// AddStateHash records a validator-reported state hash, or reports
// StateHashDivergence if it disagrees with a previously recorded hash for
// the same migration.
func (m *MigrationState) AddStateHash(hash ids.ID) error {
	if m.HashRecorded && m.AccumulatedHash != hash {
		return ErrStateHashDivergence
	}
	m.AccumulatedHash = hash
	m.HashRecorded = true
	return nil
}
