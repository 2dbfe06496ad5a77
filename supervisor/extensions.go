// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package supervisor

import "github.com/luxfi/ids"

// ConsensusConfig is the view of the active consensus parameters the
// Supervisor needs: who the current validators are, and under which mode
// quorum is computed. It is a read projection the real consensus engine
// exposes through CoreSchema; the Supervisor never mutates it directly
// except by proposing a ConsensusParams change that the engine later
// adopts.
type ConsensusConfig struct {
	ValidatorKeys []ids.NodeID
	Mode          Mode
}

// CoreSchema is the slice of the surrounding blockchain's core schema the
// Supervisor reads from: current height, the active consensus
// configuration, and validator-identity checks. Implemented by the node
// process out of scope per this package; supervisortest provides an
// in-memory fake for tests.
type CoreSchema interface {
	Height() Height
	ConsensusConfig() ConsensusConfig
	IsValidator(ids.NodeID) bool
}

// Dispatcher is the runtime dispatcher the Supervisor coordinates artifact
// and instance lifecycle through. Implemented by the node process;
// supervisortest provides an in-memory fake. The Start/Stop/Freeze/Resume
// and Unload methods are the apply-side counterparts of the transitions
// configverify.go validates before a proposal is ever accepted: by the time
// applyConfigChanges calls one of these, the instance is already known to
// be in a status the transition permits.
type Dispatcher interface {
	GetArtifact(ArtifactID) (ArtifactState, bool)
	GetInstance(instanceID uint32) (InstanceState, bool)
	GetInstanceByName(name string) (InstanceState, bool)
	CheckUnloadingArtifact(ArtifactID) error
	StartArtifactRegistration(artifact ArtifactID, specBytes []byte) error

	// StartInstance creates a new running instance of artifact under name,
	// returning its assigned instance ID.
	StartInstance(name string, artifact ArtifactID) (uint32, error)
	// StopInstance transitions instanceID to StatusStopped.
	StopInstance(instanceID uint32) error
	// FreezeInstance transitions instanceID to StatusFrozen.
	FreezeInstance(instanceID uint32) error
	// ResumeInstance transitions instanceID from StatusFrozen back to
	// StatusActive.
	ResumeInstance(instanceID uint32) error
	// UnloadArtifact removes a deployed-but-unreferenced artifact.
	UnloadArtifact(artifact ArtifactID) error
}

// RuntimeExtensions is the local runtime host the Supervisor calls into for
// work that cannot be decided deterministically from chain state alone:
// config validation against a running service's actual runtime, feature
// queries, and migration lifecycle. Implemented by the node process;
// runtimeext.SimHost provides a background-goroutine demo implementation,
// supervisortest a synchronous fake for tests.
type RuntimeExtensions interface {
	VerifyConfig(instanceID uint32, params []byte) error
	// ApplyConfig commits params to instanceID's running configuration,
	// after VerifyConfig has already accepted it during proposal
	// verification.
	ApplyConfig(instanceID uint32, params []byte) error
	CheckFeature(runtimeID uint32, feature RuntimeFeature) bool
	InitiateMigration(artifact ArtifactID, service string) (MigrationType, error)
	CommitMigration(service string, hash ids.ID) error
	RollbackMigration(service string) error
}

// TxContext is passed to every transaction handler: the block height and
// author the transaction executes at/as, plus handles to the three
// external collaborators. It plays the role the teacher's
// networking/router inbound-message wrapper plays for P2P messages, but
// for the Supervisor's own transaction entrypoints.
type TxContext struct {
	Height     Height
	Author     ids.NodeID
	Core       CoreSchema
	Dispatcher Dispatcher
	Runtime    RuntimeExtensions
}
