// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package supervisor

import (
	"sort"

	"github.com/luxfi/database"
	"github.com/luxfi/supervisor/codec"
)

// Persistent key prefixes, one per §3 schema table. Every persisted value
// is namespaced by one of these so a single database.Database can back the
// whole service partition.
var (
	prefixPendingProposal      = []byte("pending_proposal/")
	prefixConfigurationNumber  = []byte("configuration_number/")
	prefixConfigConfirms       = []byte("config_confirms/")
	prefixDeployRequests       = []byte("deploy_requests/")
	prefixDeployConfirmations  = []byte("deploy_confirmations/")
	prefixDeployStates         = []byte("deploy_states/")
	prefixPendingDeployments   = []byte("pending_deployments/")
	prefixMigrationRequests    = []byte("migration_requests/")
	prefixMigrationConfirms    = []byte("migration_confirmations/")
	prefixMigrationStates      = []byte("migration_states/")
	prefixPendingMigrations    = []byte("pending_migrations/")
	prefixMigrationsToFlush    = []byte("migrations_to_flush/")
)

const pendingProposalSingletonKey = "singleton"

// schema is a typed accessor layer over the Supervisor's database.Database
// partition, in the style of the teacher's engine/dag/state serializer:
// a thin struct wrapping a db handle, with one method per
// logical table rather than raw byte-slice calls scattered through the
// transaction handlers.
type schema struct {
	db database.Database
}

func newSchema(db database.Database) *schema {
	return &schema{db: db}
}

// --- pending_proposal --------------------------------------------------

func (s *schema) getPendingProposal() (ConfigProposalWithHash, bool) {
	raw, err := s.db.Get(append(prefixPendingProposal, pendingProposalSingletonKey...))
	if err != nil {
		return ConfigProposalWithHash{}, false
	}
	var v ConfigProposalWithHash
	if _, err := codec.Codec.Unmarshal(raw, &v); err != nil {
		return ConfigProposalWithHash{}, false
	}
	return v, true
}

func (s *schema) setPendingProposal(v ConfigProposalWithHash) error {
	raw, err := codec.Codec.Marshal(codec.CurrentVersion, v)
	if err != nil {
		return err
	}
	return s.db.Put(append(prefixPendingProposal, pendingProposalSingletonKey...), raw)
}

func (s *schema) removePendingProposal() error {
	return s.db.Delete(append(prefixPendingProposal, pendingProposalSingletonKey...))
}

// --- configuration_number ------------------------------------------------

func (s *schema) getConfigurationNumber() uint64 {
	raw, err := s.db.Get(configurationNumberKey())
	if err != nil {
		return 0
	}
	var n uint64
	if _, err := codec.Codec.Unmarshal(raw, &n); err != nil {
		return 0
	}
	return n
}

func (s *schema) increaseConfigurationNumber() error {
	n := s.getConfigurationNumber() + 1
	raw, err := codec.Codec.Marshal(codec.CurrentVersion, n)
	if err != nil {
		return err
	}
	return s.db.Put(configurationNumberKey(), raw)
}

func configurationNumberKey() []byte {
	return append(append([]byte{}, prefixConfigurationNumber...), pendingProposalSingletonKey...)
}

// --- generic per-key JSON table helpers ---------------------------------

func (s *schema) putValue(prefix []byte, key string, v interface{}) error {
	raw, err := codec.Codec.Marshal(codec.CurrentVersion, v)
	if err != nil {
		return err
	}
	return s.db.Put(tableKey(prefix, key), raw)
}

func (s *schema) getValue(prefix []byte, key string, out interface{}) bool {
	raw, err := s.db.Get(tableKey(prefix, key))
	if err != nil {
		return false
	}
	_, err = codec.Codec.Unmarshal(raw, out)
	return err == nil
}

func (s *schema) hasValue(prefix []byte, key string) bool {
	ok, err := s.db.Has(tableKey(prefix, key))
	return err == nil && ok
}

func (s *schema) deleteValue(prefix []byte, key string) error {
	return s.db.Delete(tableKey(prefix, key))
}

// keysWithPrefix returns every stored key under prefix, stripped of the
// prefix, in sorted order — the only order the epoch hook (§9: "all
// maps/sets iterated during block application must be key-sorted") is
// allowed to observe.
func (s *schema) keysWithPrefix(prefix []byte) []string {
	it := s.db.NewIteratorWithPrefix(prefix)
	defer it.Release()

	var keys []string
	for it.Next() {
		keys = append(keys, string(it.Key()[len(prefix):]))
	}
	sort.Strings(keys)
	return keys
}

func tableKey(prefix []byte, key string) []byte {
	out := make([]byte, 0, len(prefix)+len(key))
	out = append(out, prefix...)
	out = append(out, key...)
	return out
}

// --- config_confirms / deploy_requests / deploy_confirmations /
// migration_requests / migration_confirmations (quorum trackers) --------
//
// Each of these five §3 tables is a Tracker (confirmations.go) opened
// against this schema with its own prefix, below, by New in supervisor.go.
// A Tracker writes every confirmation straight through putValue under its
// prefix, so reopening a Supervisor against the same database.Database
// recovers every vote a restart would otherwise have lost.

// --- pending_deployments: ArtifactID -> DeployRequest --------------------

func (s *schema) putPendingDeployment(artifact ArtifactID, req DeployRequest) error {
	return s.putValue(prefixPendingDeployments, artifact.String(), req)
}

func (s *schema) getPendingDeployment(artifact ArtifactID) (DeployRequest, bool) {
	var req DeployRequest
	ok := s.getValue(prefixPendingDeployments, artifact.String(), &req)
	return req, ok
}

func (s *schema) hasPendingDeployment(artifact ArtifactID) bool {
	return s.hasValue(prefixPendingDeployments, artifact.String())
}

func (s *schema) removePendingDeployment(artifact ArtifactID) error {
	return s.deleteValue(prefixPendingDeployments, artifact.String())
}

func (s *schema) pendingDeploymentKeys() []string {
	return s.keysWithPrefix(prefixPendingDeployments)
}

// --- deploy_states: DeployRequest -> AsyncEventState --------------------

func (s *schema) putDeployState(req DeployRequest, state AsyncEventState) error {
	return s.putValue(prefixDeployStates, req.Key(), state)
}

func (s *schema) getDeployState(req DeployRequest) (AsyncEventState, bool) {
	var v AsyncEventState
	ok := s.getValue(prefixDeployStates, req.Key(), &v)
	return v, ok
}

// --- migration_states: MigrationRequest -> MigrationState ----------------

func (s *schema) putMigrationState(req MigrationRequest, state MigrationState) error {
	return s.putValue(prefixMigrationStates, req.Key(), state)
}

func (s *schema) getMigrationState(req MigrationRequest) (MigrationState, bool) {
	var v MigrationState
	ok := s.getValue(prefixMigrationStates, req.Key(), &v)
	return v, ok
}

// --- pending_migrations / migrations_to_flush: sets of MigrationRequest --

func (s *schema) addPendingMigration(req MigrationRequest) error {
	return s.putValue(prefixPendingMigrations, req.Key(), req)
}

func (s *schema) removePendingMigration(req MigrationRequest) error {
	return s.deleteValue(prefixPendingMigrations, req.Key())
}

func (s *schema) isPendingMigration(req MigrationRequest) bool {
	return s.hasValue(prefixPendingMigrations, req.Key())
}

func (s *schema) pendingMigrationKeys() []string {
	return s.keysWithPrefix(prefixPendingMigrations)
}

func (s *schema) addMigrationToFlush(req MigrationRequest) error {
	return s.putValue(prefixMigrationsToFlush, req.Key(), req)
}

func (s *schema) removeMigrationToFlush(req MigrationRequest) error {
	return s.deleteValue(prefixMigrationsToFlush, req.Key())
}

func (s *schema) migrationsToFlush() []MigrationRequest {
	keys := s.keysWithPrefix(prefixMigrationsToFlush)
	out := make([]MigrationRequest, 0, len(keys))
	for _, k := range keys {
		var req MigrationRequest
		if s.getValue(prefixMigrationsToFlush, k, &req) {
			out = append(out, req)
		}
	}
	return out
}

func (s *schema) pendingDeploymentRequests() []DeployRequest {
	keys := s.keysWithPrefix(prefixPendingDeployments)
	out := make([]DeployRequest, 0, len(keys))
	for _, k := range keys {
		var req DeployRequest
		if s.getValue(prefixPendingDeployments, k, &req) {
			out = append(out, req)
		}
	}
	return out
}

func (s *schema) pendingMigrationRequests() []MigrationRequest {
	keys := s.keysWithPrefix(prefixPendingMigrations)
	out := make([]MigrationRequest, 0, len(keys))
	for _, k := range keys {
		var req MigrationRequest
		if s.getValue(prefixPendingMigrations, k, &req) {
			out = append(out, req)
		}
	}
	return out
}
