// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package supervisor

import "strconv"

// ProposeConfigChange registers a new config proposal, rejecting it if one
// is already pending, if the configuration number does not match, or if
// actual_from is not strictly in the future. Grounded on the original's
// propose_config_change handler.
func (s *Supervisor) ProposeConfigChange(ctx TxContext, propose ConfigPropose) error {
	if err := requireValidator(ctx); err != nil {
		return err
	}

	// If actual_from is unset, default it to the next height; otherwise it
	// must be strictly in the future.
	if propose.ActualFrom == 0 {
		propose.ActualFrom = ctx.Height + 1
	} else if ctx.Height >= propose.ActualFrom {
		return wrap(ErrActualFromIsPast, "actual_from height for config proposal is in the past")
	}

	if pending, ok := s.schema.getPendingProposal(); ok {
		if ctx.Height < pending.ConfigPropose.ActualFrom {
			return wrap(ErrConfigProposeExists, "a config proposal is already awaiting confirmation")
		}
		// The pending proposal is stale: it matured but was never cleaned
		// up (e.g. activation panicked). Evict it to make room.
		if err := s.schema.removePendingProposal(); err != nil {
			return err
		}
	}

	if err := verifyConfigChanges(ctx, propose.Changes); err != nil {
		return err
	}

	if propose.ConfigurationNumber != s.schema.getConfigurationNumber() {
		return wrap(ErrIncorrectConfigurationNumber, "expected configuration_number "+strconv.FormatUint(s.schema.getConfigurationNumber(), 10))
	}
	if err := s.schema.increaseConfigurationNumber(); err != nil {
		return err
	}

	hash, err := proposeHash(propose)
	if err != nil {
		return err
	}

	if err := s.votes.Confirm(hash.String(), ctx.Author); err != nil {
		return err
	}
	if err := s.schema.setPendingProposal(ConfigProposalWithHash{ConfigPropose: propose, ProposeHash: hash}); err != nil {
		return err
	}

	s.logger.Info("config proposal registered",
		"hash", hash.String(), "actual_from", uint64(propose.ActualFrom), "author", ctx.Author.String())
	return nil
}

// ConfirmConfigChange records a validator's confirmation of the pending
// proposal. A validator confirming its own propose_config_change is
// already recorded as the implicit first vote; a second confirmation by
// the same validator is rejected.
func (s *Supervisor) ConfirmConfigChange(ctx TxContext, vote ConfigVote) error {
	if err := requireValidator(ctx); err != nil {
		return err
	}

	pending, ok := s.schema.getPendingProposal()
	if !ok {
		return wrap(ErrConfigProposeNotRegistered, "no config proposal is currently pending")
	}
	if pending.ProposeHash != vote.ProposeHash {
		return wrap(ErrConfigProposeNotRegistered, "vote does not match the currently pending proposal hash")
	}
	if pending.ConfigPropose.ActualFrom <= ctx.Height {
		return wrap(ErrDeadlineExceeded, "deadline height exceeded for the config proposal, voting for it is impossible")
	}

	key := vote.ProposeHash.String()
	if s.votes.ConfirmedBy(key, ctx.Author) {
		return wrap(ErrAttemptToVoteTwice, "validator "+ctx.Author.String()+" already confirmed this proposal")
	}

	if err := s.votes.Confirm(key, ctx.Author); err != nil {
		return err
	}
	s.logger.Debug("config proposal confirmed", "hash", key, "author", ctx.Author.String())
	return nil
}

// maybeActivateConfig is called from the epoch hook once actual_from has
// been reached; it never runs from inside a transaction handler.
func (s *Supervisor) maybeActivateConfig(ctx TxContext) error {
	pending, ok := s.schema.getPendingProposal()
	if !ok {
		return nil
	}
	if ctx.Height < pending.ConfigPropose.ActualFrom {
		return nil
	}

	validators, mode := currentValidatorKeys(ctx)
	key := pending.ProposeHash.String()
	if !s.votes.IntersectWithValidators(key, validators, mode) {
		s.logger.Debug("config proposal matured without quorum, discarding", "hash", key)
		return s.schema.removePendingProposal()
	}

	if err := s.applyConfigChanges(ctx, pending.ConfigPropose.Changes); err != nil {
		s.logger.Warn("config proposal matured but failed to apply, discarding", "hash", key, "error", err.Error())
		return s.schema.removePendingProposal()
	}

	if err := s.schema.removePendingProposal(); err != nil {
		return err
	}
	s.logger.Info("config proposal activated", "hash", key, "height", uint64(ctx.Height))
	return nil
}

// applyConfigChanges performs the side effects of an activated proposal, in
// order, stopping at the first per-change failure and returning its error;
// changes already applied to the dispatcher or runtime before the failing
// one are not undone. Consensus
// changes are the one variant left to the out-of-scope consensus engine to
// pick up via ConsensusConfig (Open Question 7: the Supervisor only
// validates and durably records them); every other variant drives the
// dispatcher or runtime directly, exactly the transitions configverify.go
// validated when the proposal was first submitted.
func (s *Supervisor) applyConfigChanges(ctx TxContext, changes []ConfigChange) error {
	for _, change := range changes {
		switch change.Kind {
		case ChangeConsensus:
			// Adoption is the consensus engine's responsibility; the
			// Supervisor's contract ends at having validated and
			// durably recorded the change.
		case ChangeService:
			if err := ctx.Runtime.ApplyConfig(change.Service.InstanceID, change.Service.Params); err != nil {
				return err
			}
		case ChangeStartService:
			if _, err := ctx.Dispatcher.StartInstance(change.StartService.Name, change.StartService.Artifact); err != nil {
				return err
			}
		case ChangeStopService:
			if err := ctx.Dispatcher.StopInstance(change.StopService.InstanceID); err != nil {
				return err
			}
		case ChangeFreezeService:
			if err := ctx.Dispatcher.FreezeInstance(change.FreezeService.InstanceID); err != nil {
				return err
			}
		case ChangeResumeService:
			if err := ctx.Dispatcher.ResumeInstance(change.ResumeService.InstanceID); err != nil {
				return err
			}
		case ChangeUnloadArtifact:
			if err := ctx.Dispatcher.UnloadArtifact(change.UnloadArtifact.ArtifactID); err != nil {
				return err
			}
		}
	}
	return nil
}
