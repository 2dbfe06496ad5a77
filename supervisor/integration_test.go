// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package supervisor

import (
	"testing"

	"github.com/luxfi/ids"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/supervisor/supervisortest"
)

// These scenarios drive the Supervisor the way a real node would: one
// BeforeTransactions call per block, then the block's transactions, with
// height actually advancing between blocks — unlike the single-block unit
// tests alongside each module, which mostly hand-drive one handler at a
// time without calling BeforeTransactions.

type blockDriver struct {
	sup        *Supervisor
	core       *supervisortest.Core
	dispatcher *supervisortest.Dispatcher
	runtime    *supervisortest.Runtime
}

// block advances to height h, running the epoch hook first, then returns a
// TxContext template for that height's transactions.
func (d *blockDriver) block(t *testing.T, h Height) TxContext {
	t.Helper()
	d.core.SetHeight(h)
	ctx := TxContext{Height: h, Core: d.core, Dispatcher: d.dispatcher, Runtime: d.runtime}
	require.NoError(t, d.sup.BeforeTransactions(ctx))
	return ctx
}

func (d *blockDriver) as(ctx TxContext, author ids.NodeID) TxContext {
	ctx.Author = author
	return ctx
}

func newBlockDriver(mode Mode, validators []ids.NodeID) *blockDriver {
	sup, core, dispatcher, runtime := newTestSupervisor(mode, validators)
	return &blockDriver{sup: sup, core: core, dispatcher: dispatcher, runtime: runtime}
}

// S1 — apply_by_min_required_majority, driven across three real blocks: a
// proposal is submitted in block 1, confirmed to quorum in block 2, and
// matured by block 3's epoch hook with no transaction in block 3 at all.
func TestIntegrationConfigProposalAppliesAcrossBlocks(t *testing.T) {
	require := require.New(t)
	validators := fourValidators()
	d := newBlockDriver(ModeDecentralized, validators)

	artifact := testArtifact()
	d.dispatcher.SeedArtifact(artifact)
	d.dispatcher.DenyUnload(artifact, nil)

	ctx1 := d.block(t, 1)
	propose := unloadArtifactPropose(0, 3, artifact)
	require.NoError(d.sup.ProposeConfigChange(d.as(ctx1, validators[0]), propose))

	pending, ok := d.sup.schema.getPendingProposal()
	require.True(ok)
	vote := ConfigVote{ProposeHash: pending.ProposeHash}

	ctx2 := d.block(t, 2)
	for _, v := range validators[1:3] {
		require.NoError(d.sup.ConfirmConfigChange(d.as(ctx2, v), vote))
	}
	_, stillPending := d.sup.schema.getPendingProposal()
	require.True(stillPending, "actual_from is 3, the proposal must not mature in block 2")

	d.block(t, 3) // no transactions this block; the epoch hook alone matures it

	_, stillPending = d.sup.schema.getPendingProposal()
	require.False(stillPending)

	_, stillDeployed := d.dispatcher.GetArtifact(artifact)
	require.False(stillDeployed, "the activated proposal must have unloaded the artifact")
}

// S2 — not_enough_confirms, driven across two blocks: the proposal from
// block 1 matures in block 2's epoch hook without reaching quorum and is
// discarded rather than retried.
func TestIntegrationConfigProposalDiscardedAcrossBlocks(t *testing.T) {
	require := require.New(t)
	validators := fourValidators()
	d := newBlockDriver(ModeDecentralized, validators)

	artifact := testArtifact()
	d.dispatcher.SeedArtifact(artifact)
	d.dispatcher.DenyUnload(artifact, nil)

	ctx1 := d.block(t, 1)
	propose := unloadArtifactPropose(0, 2, artifact)
	require.NoError(d.sup.ProposeConfigChange(d.as(ctx1, validators[0]), propose))

	d.block(t, 2)

	_, stillPending := d.sup.schema.getPendingProposal()
	require.False(stillPending, "an unconfirmed proposal must be discarded once matured, not left pending")
}

// S3 — attempt_to_vote_twice, driven across three blocks: the proposer's
// implicit first vote lands in block 1, a validator's confirmation in
// block 2, and that same validator's repeat confirmation in block 3 is
// rejected without disturbing the proposal.
func TestIntegrationAttemptToVoteTwiceAcrossBlocks(t *testing.T) {
	require := require.New(t)
	validators := fourValidators()
	d := newBlockDriver(ModeDecentralized, validators)

	artifact := testArtifact()
	d.dispatcher.SeedArtifact(artifact)
	d.dispatcher.DenyUnload(artifact, nil)

	ctx1 := d.block(t, 1)
	propose := unloadArtifactPropose(0, 10, artifact)
	require.NoError(d.sup.ProposeConfigChange(d.as(ctx1, validators[0]), propose))
	pending, _ := d.sup.schema.getPendingProposal()
	vote := ConfigVote{ProposeHash: pending.ProposeHash}

	ctx2 := d.block(t, 2)
	require.NoError(d.sup.ConfirmConfigChange(d.as(ctx2, validators[1]), vote))

	ctx3 := d.block(t, 3)
	err := d.sup.ConfirmConfigChange(d.as(ctx3, validators[1]), vote)
	require.Error(err)
	require.ErrorIs(err, ErrAttemptToVoteTwice)

	_, stillPending := d.sup.schema.getPendingProposal()
	require.True(stillPending, "the rejected double vote must not evict the proposal")
}

// S4 — actual_from_past: a proposal naming a past height is rejected
// outright in the very block it is submitted, never registered for a
// later block's epoch hook to find.
func TestIntegrationActualFromPastRejectedImmediately(t *testing.T) {
	require := require.New(t)
	validators := fourValidators()
	d := newBlockDriver(ModeDecentralized, validators)

	artifact := testArtifact()
	d.dispatcher.SeedArtifact(artifact)
	d.dispatcher.DenyUnload(artifact, nil)

	d.block(t, 1)
	d.block(t, 2)
	ctx := d.block(t, 10)

	propose := unloadArtifactPropose(0, 5, artifact)
	err := d.sup.ProposeConfigChange(d.as(ctx, validators[0]), propose)
	require.Error(err)
	require.ErrorIs(err, ErrActualFromIsPast)

	_, pending := d.sup.schema.getPendingProposal()
	require.False(pending)
}

// S5 — deploy_two_phase, driven across two blocks: request quorum in block
// 1, report quorum (and dispatcher registration) in block 2.
func TestIntegrationDeployTwoPhaseAcrossBlocks(t *testing.T) {
	require := require.New(t)
	validators := fourValidators()
	d := newBlockDriver(ModeDecentralized, validators)

	req := DeployRequest{Artifact: testArtifact(), DeadlineHeight: 100}

	ctx1 := d.block(t, 1)
	for _, v := range validators {
		require.NoError(d.sup.RequestArtifactDeploy(d.as(ctx1, v), req))
	}
	_, deployed := d.dispatcher.GetArtifact(req.Artifact)
	require.False(deployed, "dispatcher must stay untouched until a report quorum exists")

	ctx2 := d.block(t, 2)
	for _, v := range validators {
		require.NoError(d.sup.ReportDeployResult(d.as(ctx2, v), DeployResult{Request: req}))
	}

	state, ok := d.sup.schema.getDeployState(req)
	require.True(ok)
	require.Equal(PhaseSucceed, state.Phase)

	art, deployed := d.dispatcher.GetArtifact(req.Artifact)
	require.True(deployed)
	require.Equal(ArtifactStatusActive, art.Status)
}

// S6 — migration_hash_mismatch, driven across two blocks: request quorum
// in block 1 starts an async migration, divergent hash reports in block 2
// fail and roll it back.
func TestIntegrationMigrationHashMismatchAcrossBlocks(t *testing.T) {
	require := require.New(t)
	validators := fourValidators()
	d := newBlockDriver(ModeDecentralized, validators)

	artifact := newArtifact()
	seedMigratableInstance(d.dispatcher, artifact)
	d.runtime.SetMigrationType(MigrationAsync)

	req := MigrationRequest{NewArtifact: artifact, Service: "payments-svc", DeadlineHeight: 100}

	ctx1 := d.block(t, 1)
	for _, v := range validators {
		require.NoError(d.sup.RequestMigration(d.as(ctx1, v), req))
	}
	require.True(d.sup.schema.isPendingMigration(req))

	ctx2 := d.block(t, 2)
	require.NoError(d.sup.ReportMigrationResult(d.as(ctx2, validators[0]), MigrationResult{Request: req, Hash: ids.ID{1}}))
	err := d.sup.ReportMigrationResult(d.as(ctx2, validators[1]), MigrationResult{Request: req, Hash: ids.ID{2}})
	require.Error(err)
	require.ErrorIs(err, ErrMigrationFailed)

	state, ok := d.sup.schema.getMigrationState(req)
	require.True(ok)
	require.True(state.IsFailed())
	require.True(d.runtime.RolledBack("payments-svc"))

	// A fresh block's epoch hook must not resurrect the failed migration.
	d.block(t, 3)
	require.False(d.sup.schema.isPendingMigration(req))
}

// S7 — fast_forward_migration, driven across two blocks: request quorum
// (floor(2*4/3)+1 = 3) is reached only on the third confirmation, which
// this scenario delays to block 2 rather than issuing all four in block 1,
// exercising the mid-flight request-tracker persistence across a block
// boundary.
func TestIntegrationFastForwardMigrationAcrossBlocks(t *testing.T) {
	require := require.New(t)
	validators := fourValidators()
	d := newBlockDriver(ModeDecentralized, validators)

	artifact := newArtifact()
	seedMigratableInstance(d.dispatcher, artifact)
	d.runtime.SetMigrationType(MigrationFastForward)

	req := MigrationRequest{NewArtifact: artifact, Service: "payments-svc", DeadlineHeight: 100}

	ctx1 := d.block(t, 1)
	require.NoError(d.sup.RequestMigration(d.as(ctx1, validators[0]), req))
	require.NoError(d.sup.RequestMigration(d.as(ctx1, validators[1]), req))
	require.False(d.sup.schema.isPendingMigration(req))

	ctx2 := d.block(t, 2)
	require.NoError(d.sup.RequestMigration(d.as(ctx2, validators[2]), req))

	require.False(d.sup.schema.isPendingMigration(req), "fast-forward migration must not remain pending")
	state, ok := d.sup.schema.getMigrationState(req)
	require.True(ok)
	require.Equal(PhaseSucceed, state.Phase)
	require.Equal(artifact.Version, state.CurrentVersion)
}

// S8 — start_conflicts_with_unload: verified at propose time, in the same
// block the conflicting proposal is submitted — it never reaches a second
// block's epoch hook at all.
func TestIntegrationStartConflictsWithUnloadRejectedAtPropose(t *testing.T) {
	require := require.New(t)
	validators := fourValidators()
	d := newBlockDriver(ModeDecentralized, validators)

	artifact := testArtifact()
	d.dispatcher.SeedArtifact(artifact)

	ctx1 := d.block(t, 1)
	propose := ConfigPropose{
		ActualFrom:          5,
		ConfigurationNumber: 0,
		Changes: []ConfigChange{
			{Kind: ChangeStartService, StartService: &StartServiceChange{Name: "new-instance", Artifact: artifact}},
			{Kind: ChangeUnloadArtifact, UnloadArtifact: &UnloadArtifactChange{ArtifactID: artifact}},
		},
	}

	err := d.sup.ProposeConfigChange(d.as(ctx1, validators[0]), propose)
	require.Error(err)
	require.ErrorIs(err, ErrMalformedConfigPropose)

	_, pending := d.sup.schema.getPendingProposal()
	require.False(pending)
}

// A larger scenario combining a deploy, a config change that starts a
// service from the newly-deployed artifact, and a migration of that
// service, all interleaved block by block — the shape a real cluster's
// history actually takes, rather than one isolated feature per test.
func TestIntegrationDeployThenStartThenMigrate(t *testing.T) {
	require := require.New(t)
	validators := fourValidators()
	d := newBlockDriver(ModeDecentralized, validators)

	artifactV1 := ArtifactID{RuntimeID: 0, Name: "ledger-svc", Version: Version{Major: 1}}
	deployReq := DeployRequest{Artifact: artifactV1, DeadlineHeight: 1000}

	ctx1 := d.block(t, 1)
	for _, v := range validators {
		require.NoError(d.sup.RequestArtifactDeploy(d.as(ctx1, v), deployReq))
	}

	ctx2 := d.block(t, 2)
	for _, v := range validators {
		require.NoError(d.sup.ReportDeployResult(d.as(ctx2, v), DeployResult{Request: deployReq}))
	}
	_, deployed := d.dispatcher.GetArtifact(artifactV1)
	require.True(deployed)

	ctx3 := d.block(t, 3)
	startPropose := ConfigPropose{
		ActualFrom:          5,
		ConfigurationNumber: 0,
		Changes: []ConfigChange{
			{Kind: ChangeStartService, StartService: &StartServiceChange{Name: "ledger", Artifact: artifactV1}},
		},
	}
	require.NoError(d.sup.ProposeConfigChange(d.as(ctx3, validators[0]), startPropose))
	pending, _ := d.sup.schema.getPendingProposal()
	vote := ConfigVote{ProposeHash: pending.ProposeHash}
	for _, v := range validators[1:3] {
		require.NoError(d.sup.ConfirmConfigChange(d.as(ctx3, v), vote))
	}

	d.block(t, 4) // still before actual_from
	d.block(t, 5) // epoch hook matures the proposal and starts the instance

	inst, ok := d.dispatcher.GetInstanceByName("ledger")
	require.True(ok)
	require.Equal(StatusActive, inst.Status)

	artifactV2 := ArtifactID{RuntimeID: 0, Name: "ledger-svc", Version: Version{Major: 2}}
	d.dispatcher.SeedArtifact(artifactV2)
	d.runtime.SetMigrationType(MigrationFastForward)

	migrateReq := MigrationRequest{NewArtifact: artifactV2, Service: "ledger", DeadlineHeight: 1000}
	ctx6 := d.block(t, 6)
	for _, v := range validators {
		require.NoError(d.sup.RequestMigration(d.as(ctx6, v), migrateReq))
	}

	state, ok := d.sup.schema.getMigrationState(migrateReq)
	require.True(ok)
	require.Equal(PhaseSucceed, state.Phase)
	require.Equal(artifactV2.Version, state.CurrentVersion)
}
