// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package supervisor

import "github.com/luxfi/ids"

// RequestMigration registers a cluster-wide request to migrate a running
// service to a new artifact version. Once quorum of currently-active
// validators agrees, the runtime is asked to initiate the migration; a
// fast-forward result completes immediately with no hash-agreement phase,
// an async result leaves the migration pending until every validator
// reports a state hash.
func (s *Supervisor) RequestMigration(ctx TxContext, req MigrationRequest) error {
	if err := requireValidator(ctx); err != nil {
		return err
	}
	inst, ok := ctx.Dispatcher.GetInstanceByName(req.Service)
	if !ok {
		return wrap(ErrUnknownInstance, "migration targets unknown service `"+req.Service+"`")
	}
	if req.DeadlineHeight == 0 {
		req.DeadlineHeight = ctx.Height + Height(s.config.DefaultMigrationDeadlineOffset)
	}
	if req.DeadlineHeight < ctx.Height {
		return wrap(ErrActualFromIsPast, "migration deadline height is in the past")
	}
	if _, ok := ctx.Dispatcher.GetArtifact(req.NewArtifact); !ok {
		return wrap(ErrUnknownArtifact, "migration targets unknown artifact `"+req.NewArtifact.String()+"`")
	}

	key := req.Key()

	// Once request quorum has already been reached (a migration state is
	// recorded, whether still pending, completed or failed), this is just an
	// additional confirmation; initiate_migration must never fire twice
	// for the same request.
	if _, registered := s.schema.getMigrationState(req); registered {
		return s.migrationRequests.Confirm(key, ctx.Author)
	}

	validators, mode := currentValidatorKeys(ctx)
	reachesQuorum := wouldReachQuorum(s.migrationRequests, key, ctx.Author, validators, mode)
	if err := s.migrationRequests.Confirm(key, ctx.Author); err != nil {
		return err
	}
	if !reachesQuorum {
		return nil
	}

	if err := s.schema.addPendingMigration(req); err != nil {
		return err
	}
	if err := s.schema.putMigrationState(req, MigrationState{
		AsyncEventState: AsyncEventState{Phase: PhasePending},
		CurrentVersion:  inst.DataVersion,
	}); err != nil {
		return err
	}

	migrationType, err := ctx.Runtime.InitiateMigration(req.NewArtifact, req.Service)
	if err != nil {
		// Migration failed even before starting: it never reached the
		// runtime, so there is nothing to roll back.
		return s.failMigration(ctx, req, err.Error(), false)
	}
	if migrationType == MigrationFastForward {
		return s.completeFastForwardMigration(ctx, req)
	}
	s.logger.Info("migration request reached quorum, awaiting hash reports", "service", req.Service)
	return nil
}

// completeFastForwardMigration finishes a migration that required no data
// transform. Unlike the async path, this needs no cross-validator hash
// agreement: it runs as part of the very same deterministic transaction
// that crossed request quorum, so every honest replica reaches the same
// outcome without exchanging further confirmations. A replica whose local
// runtime disagrees diverges on the resulting state hash and is excluded
// by consensus, not by this function.
func (s *Supervisor) completeFastForwardMigration(ctx TxContext, req MigrationRequest) error {
	state, _ := s.schema.getMigrationState(req)
	state.Phase = PhaseSucceed
	state.CurrentVersion = req.NewArtifact.Version
	if err := s.schema.putMigrationState(req, state); err != nil {
		return err
	}
	if err := s.schema.removePendingMigration(req); err != nil {
		return err
	}
	s.logger.Info("fast-forward migration completed", "service", req.Service, "version", state.CurrentVersion.String())
	return nil
}

// ReportMigrationResult records a validator's local migration outcome. On
// success, the reported state hash must agree with every other
// validator's report for the same migration or the migration is rolled
// back and failed.
func (s *Supervisor) ReportMigrationResult(ctx TxContext, result MigrationResult) error {
	if err := requireValidator(ctx); err != nil {
		return err
	}

	req := result.Request
	state, ok := s.schema.getMigrationState(req)
	if !ok {
		return wrap(ErrMigrationRequestNotRegistered, "migration request for service `"+req.Service+"` is not registered")
	}
	if state.IsFailed() {
		return nil
	}
	if req.DeadlineHeight < ctx.Height {
		return wrap(ErrDeadlineExceeded, "migration deadline height exceeded, reporting its result is impossible")
	}

	if !result.Ok() {
		return s.failMigration(ctx, req, result.Err, true)
	}
	return s.recordMigrationResult(ctx, req, result.Hash)
}

// recordMigrationResult folds one validator's reported state hash into the
// migration's accumulated hash, failing the migration on divergence, and
// commits once quorum of current validators has reported.
func (s *Supervisor) recordMigrationResult(ctx TxContext, req MigrationRequest, hash ids.ID) error {
	state, _ := s.schema.getMigrationState(req)
	if state.IsFailed() {
		return nil
	}
	if err := state.AddStateHash(hash); err != nil {
		return s.failMigration(ctx, req, err.Error(), true)
	}
	if err := s.schema.putMigrationState(req, state); err != nil {
		return err
	}

	resultKey := req.Key()
	if err := s.migrationConfirmations.Confirm(resultKey, ctx.Author); err != nil {
		return err
	}

	validators, mode := currentValidatorKeys(ctx)
	if !s.migrationConfirmations.IntersectWithValidators(resultKey, validators, mode) {
		return nil
	}

	state.Phase = PhaseSucceed
	if err := s.schema.putMigrationState(req, state); err != nil {
		return err
	}
	if err := ctx.Runtime.CommitMigration(req.Service, state.AccumulatedHash); err != nil {
		return s.failMigration(ctx, req, err.Error(), true)
	}
	if err := s.schema.removePendingMigration(req); err != nil {
		return err
	}
	if err := s.schema.addMigrationToFlush(req); err != nil {
		return err
	}
	s.logger.Info("migration completed", "service", req.Service, "hash", state.AccumulatedHash.String())
	return nil
}

// failMigration marks req as failed and, unless this is a migration that
// never made it past initiation (rollback=false), asks the runtime to roll
// back whatever local state the migration had already touched.
func (s *Supervisor) failMigration(ctx TxContext, req MigrationRequest, reason string, rollback bool) error {
	state, _ := s.schema.getMigrationState(req)
	if state.IsFailed() {
		return nil
	}
	state.Phase = PhaseFailed
	state.FailedHeight = ctx.Height
	state.FailureReason = reason
	if err := s.schema.putMigrationState(req, state); err != nil {
		return err
	}
	if err := s.schema.removePendingMigration(req); err != nil {
		return err
	}
	if rollback {
		if err := ctx.Runtime.RollbackMigration(req.Service); err != nil {
			s.logger.Warn("migration rollback itself failed", "service", req.Service, "error", err.Error())
		}
		s.logger.Warn("migration failed, rolling back", "service", req.Service, "reason", reason)
	} else {
		s.logger.Warn("migration failed to start", "service", req.Service, "reason", reason)
	}
	return wrap(ErrMigrationFailed, reason)
}

// flushCompletedMigrations is called from the epoch hook to remove every
// completed migration from migrations_to_flush, in deterministic
// (key-sorted) order. It does not touch the instance's data version or any
// storage outside the Supervisor's own schema.
func (s *Supervisor) flushCompletedMigrations(ctx TxContext) error {
	for _, req := range s.schema.migrationsToFlush() {
		if err := s.schema.removeMigrationToFlush(req); err != nil {
			return err
		}
		s.logger.Debug("migration flushed", "service", req.Service)
	}
	return nil
}

// expireStaleMigrations is called from the epoch hook; any pending
// migration whose deadline has passed is failed and rolled back.
func (s *Supervisor) expireStaleMigrations(ctx TxContext) error {
	for _, req := range s.schema.pendingMigrationRequests() {
		if ctx.Height > req.DeadlineHeight {
			_ = s.failMigration(ctx, req, "migration deadline exceeded", true)
		}
	}
	return nil
}
