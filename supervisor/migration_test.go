// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package supervisor

import (
	"testing"

	"github.com/luxfi/ids"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/supervisor/memdb"
	"github.com/luxfi/supervisor/supervisortest"
)

func newArtifact() ArtifactID {
	return ArtifactID{RuntimeID: 0, Name: "payments", Version: Version{Major: 2}}
}

func seedMigratableInstance(dispatcher *supervisortest.Dispatcher, artifact ArtifactID) {
	dispatcher.SeedArtifact(artifact)
	dispatcher.SeedInstance("payments-svc", artifact, StatusActive)
}

// S7 — fast_forward_migration: a migration requiring no data transform
// completes within the very same transaction that crosses request
// quorum, with no further report/hash-agreement round at all.
func TestRequestMigrationFastForwardCompletesImmediately(t *testing.T) {
	require := require.New(t)

	validators := fourValidators()
	sup, core, dispatcher, runtime := newTestSupervisor(ModeDecentralized, validators)
	core.SetHeight(1)

	artifact := newArtifact()
	seedMigratableInstance(dispatcher, artifact)
	runtime.SetMigrationType(MigrationFastForward)

	req := MigrationRequest{NewArtifact: artifact, Service: "payments-svc", DeadlineHeight: 100}

	for i, v := range validators[:3] {
		ctx := TxContext{Height: 1, Author: v, Core: core, Dispatcher: dispatcher, Runtime: runtime}
		require.NoError(sup.RequestMigration(ctx, req))
		if i < 2 {
			require.False(sup.schema.isPendingMigration(req))
		}
	}

	require.False(sup.schema.isPendingMigration(req), "fast-forward migration must not remain pending")
	state, ok := sup.schema.getMigrationState(req)
	require.True(ok)
	require.Equal(PhaseSucceed, state.Phase)
	require.Equal(artifact.Version, state.CurrentVersion)
}

// S6 — migration_hash_mismatch: divergent state hashes reported by two
// validators for the same migration fail and roll it back.
func TestMigrationHashMismatchFailsAndRollsBack(t *testing.T) {
	require := require.New(t)

	validators := fourValidators()
	sup, core, dispatcher, runtime := newTestSupervisor(ModeDecentralized, validators)
	core.SetHeight(1)

	artifact := newArtifact()
	seedMigratableInstance(dispatcher, artifact)
	runtime.SetMigrationType(MigrationAsync)

	req := MigrationRequest{NewArtifact: artifact, Service: "payments-svc", DeadlineHeight: 100}
	for _, v := range validators {
		ctx := TxContext{Height: 1, Author: v, Core: core, Dispatcher: dispatcher, Runtime: runtime}
		require.NoError(sup.RequestMigration(ctx, req))
	}
	require.True(sup.schema.isPendingMigration(req))

	hashA := ids.ID{1}
	hashB := ids.ID{2}

	ctx1 := TxContext{Height: 2, Author: validators[0], Core: core, Dispatcher: dispatcher, Runtime: runtime}
	require.NoError(sup.ReportMigrationResult(ctx1, MigrationResult{Request: req, Hash: hashA}))

	ctx2 := TxContext{Height: 2, Author: validators[1], Core: core, Dispatcher: dispatcher, Runtime: runtime}
	err := sup.ReportMigrationResult(ctx2, MigrationResult{Request: req, Hash: hashB})
	require.Error(err)
	require.ErrorIs(err, ErrMigrationFailed)

	state, ok := sup.schema.getMigrationState(req)
	require.True(ok)
	require.True(state.IsFailed())
	require.True(runtime.RolledBack("payments-svc"))
	require.False(sup.schema.isPendingMigration(req))
}

func TestMigrationAsyncCommitsOnHashQuorum(t *testing.T) {
	require := require.New(t)

	validators := fourValidators()
	sup, core, dispatcher, runtime := newTestSupervisor(ModeDecentralized, validators)
	core.SetHeight(1)

	artifact := newArtifact()
	seedMigratableInstance(dispatcher, artifact)
	runtime.SetMigrationType(MigrationAsync)

	req := MigrationRequest{NewArtifact: artifact, Service: "payments-svc", DeadlineHeight: 100}
	for _, v := range validators {
		ctx := TxContext{Height: 1, Author: v, Core: core, Dispatcher: dispatcher, Runtime: runtime}
		require.NoError(sup.RequestMigration(ctx, req))
	}

	hash := ids.ID{7}
	for i, v := range validators[:3] {
		ctx := TxContext{Height: 2, Author: v, Core: core, Dispatcher: dispatcher, Runtime: runtime}
		require.NoError(sup.ReportMigrationResult(ctx, MigrationResult{Request: req, Hash: hash}))
		if i < 2 {
			_, committed := runtime.CommittedHash("payments-svc")
			require.False(committed)
		}
	}

	committedHash, committed := runtime.CommittedHash("payments-svc")
	require.True(committed)
	require.Equal(hash, committedHash)

	state, ok := sup.schema.getMigrationState(req)
	require.True(ok)
	require.Equal(PhaseSucceed, state.Phase)
	require.False(sup.schema.isPendingMigration(req))
}

// A migration that fails to even start never touches the runtime's
// rollback path: there is nothing to roll back.
func TestRequestMigrationInitiateFailureSkipsRollback(t *testing.T) {
	require := require.New(t)

	validators := fourValidators()
	sup, core, dispatcher, runtime := newTestSupervisor(ModeDecentralized, validators)
	core.SetHeight(1)

	artifact := newArtifact()
	seedMigratableInstance(dispatcher, artifact)
	runtime.SetMigrationErr(errTestMigrationRefused)

	req := MigrationRequest{NewArtifact: artifact, Service: "payments-svc", DeadlineHeight: 100}
	var lastErr error
	for _, v := range validators[:3] {
		ctx := TxContext{Height: 1, Author: v, Core: core, Dispatcher: dispatcher, Runtime: runtime}
		lastErr = sup.RequestMigration(ctx, req)
	}
	require.Error(lastErr)
	require.ErrorIs(lastErr, ErrMigrationFailed)

	require.False(runtime.RolledBack("payments-svc"))
	state, ok := sup.schema.getMigrationState(req)
	require.True(ok)
	require.True(state.IsFailed())
}

var errTestMigrationRefused = wrap(ErrMigrationFailed, "runtime refuses by test design")

// Repeat confirmations after request quorum has already initiated the
// migration must never call InitiateMigration a second time.
func TestRequestMigrationNeverInitiatesTwice(t *testing.T) {
	require := require.New(t)

	validators := fourValidators()
	sup, core, dispatcher, runtime := newTestSupervisor(ModeDecentralized, validators)
	core.SetHeight(1)

	artifact := newArtifact()
	seedMigratableInstance(dispatcher, artifact)
	runtime.SetMigrationType(MigrationAsync)

	req := MigrationRequest{NewArtifact: artifact, Service: "payments-svc", DeadlineHeight: 100}
	for _, v := range validators {
		ctx := TxContext{Height: 1, Author: v, Core: core, Dispatcher: dispatcher, Runtime: runtime}
		require.NoError(sup.RequestMigration(ctx, req))
	}
	require.True(sup.schema.isPendingMigration(req))

	// A late validator confirming afterwards must not re-trigger anything
	// observable: the migration state stays exactly as it was.
	before, _ := sup.schema.getMigrationState(req)
	require.NoError(sup.RequestMigration(TxContext{Height: 1, Author: validators[3], Core: core, Dispatcher: dispatcher, Runtime: runtime}, req))
	after, _ := sup.schema.getMigrationState(req)
	require.Equal(before, after)
}

func TestRequestMigrationRejectsPastDeadline(t *testing.T) {
	require := require.New(t)

	validators := fourValidators()
	sup, core, dispatcher, runtime := newTestSupervisor(ModeDecentralized, validators)
	core.SetHeight(10)

	artifact := newArtifact()
	seedMigratableInstance(dispatcher, artifact)

	req := MigrationRequest{NewArtifact: artifact, Service: "payments-svc", DeadlineHeight: 5}
	ctx := TxContext{Height: 10, Author: validators[0], Core: core, Dispatcher: dispatcher, Runtime: runtime}

	err := sup.RequestMigration(ctx, req)
	require.Error(err)
	require.ErrorIs(err, ErrActualFromIsPast)
}

func TestReportMigrationResultRejectsUnregistered(t *testing.T) {
	require := require.New(t)

	validators := fourValidators()
	sup, core, dispatcher, runtime := newTestSupervisor(ModeDecentralized, validators)
	core.SetHeight(1)

	req := MigrationRequest{NewArtifact: newArtifact(), Service: "payments-svc", DeadlineHeight: 100}
	ctx := TxContext{Height: 1, Author: validators[0], Core: core, Dispatcher: dispatcher, Runtime: runtime}

	err := sup.ReportMigrationResult(ctx, MigrationResult{Request: req})
	require.Error(err)
	require.ErrorIs(err, ErrMigrationRequestNotRegistered)
}

func TestExpireStaleMigrationsRollsBack(t *testing.T) {
	require := require.New(t)

	validators := fourValidators()
	sup, core, dispatcher, runtime := newTestSupervisor(ModeDecentralized, validators)
	core.SetHeight(1)

	artifact := newArtifact()
	seedMigratableInstance(dispatcher, artifact)
	runtime.SetMigrationType(MigrationAsync)

	req := MigrationRequest{NewArtifact: artifact, Service: "payments-svc", DeadlineHeight: 5}
	for _, v := range validators {
		ctx := TxContext{Height: 1, Author: v, Core: core, Dispatcher: dispatcher, Runtime: runtime}
		require.NoError(sup.RequestMigration(ctx, req))
	}
	require.True(sup.schema.isPendingMigration(req))

	core.SetHeight(6)
	ctx := TxContext{Height: 6, Author: validators[0], Core: core, Dispatcher: dispatcher, Runtime: runtime}
	require.NoError(sup.expireStaleMigrations(ctx))

	require.False(sup.schema.isPendingMigration(req))
	require.True(runtime.RolledBack("payments-svc"))
}
