// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package supervisor

// RequestArtifactDeploy registers a cluster-wide request to deploy an
// artifact. The requesting validator's own confirmation is recorded
// immediately; once quorum of currently-active validators agrees, the
// request is marked pending and every validator is expected to perform
// the deploy locally, off-consensus, and report back the outcome via
// ReportDeployResult. No runtime extension is invoked here: registration
// in the dispatcher only happens once a second quorum, of successful
// reports, is reached in confirmDeploy.
func (s *Supervisor) RequestArtifactDeploy(ctx TxContext, req DeployRequest) error {
	if err := requireValidator(ctx); err != nil {
		return err
	}
	if err := req.Artifact.Validate(); err != nil {
		return wrap(ErrInvalidArtifactID, err.Error())
	}
	if req.DeadlineHeight == 0 {
		req.DeadlineHeight = ctx.Height + Height(s.config.DefaultDeployDeadlineOffset)
	}
	if req.DeadlineHeight < ctx.Height {
		return wrap(ErrActualFromIsPast, "deploy deadline height is in the past")
	}
	if _, deployed := ctx.Dispatcher.GetArtifact(req.Artifact); deployed {
		return wrap(ErrAlreadyDeployed, "artifact `"+req.Artifact.String()+"` is already deployed")
	}

	key := req.Key()

	// If this artifact's deployment already reached request quorum, this
	// is just an additional confirmation: no further state promotion is
	// possible, and a repeat from the same author is the only rejection.
	if s.schema.hasPendingDeployment(req.Artifact) {
		if s.deployRequests.ConfirmedBy(key, ctx.Author) {
			return wrap(ErrDeployRequestAlreadyRegistered, "deploy of artifact `"+req.Artifact.String()+"` is already confirmed by validator "+ctx.Author.String())
		}
		return s.deployRequests.Confirm(key, ctx.Author)
	}

	// Before quorum, a repeat confirmation from the same author is a
	// harmless no-op: the tracker is idempotent on (key, validator).
	if err := s.deployRequests.Confirm(key, ctx.Author); err != nil {
		return err
	}

	validators, mode := currentValidatorKeys(ctx)
	if s.deployRequests.IntersectWithValidators(key, validators, mode) {
		if err := s.schema.putPendingDeployment(req.Artifact, req); err != nil {
			return err
		}
		if err := s.schema.putDeployState(req, AsyncEventState{Phase: PhasePending}); err != nil {
			return err
		}
		s.logger.Trace("deploy request reached quorum, awaiting local deploy reports", "artifact", req.Artifact.String())
	}
	return nil
}

// ReportDeployResult records a validator's local deploy outcome. A
// failure from any single validator fails the whole deploy: determinism
// requires every honest replica to reach the same verdict, so the first
// failure reported is authoritative. A report that arrives after the deploy
// has already failed or succeeded is accepted without effect.
func (s *Supervisor) ReportDeployResult(ctx TxContext, result DeployResult) error {
	if err := requireValidator(ctx); err != nil {
		return err
	}

	state, _ := s.schema.getDeployState(result.Request)
	if state.IsFailed() || state.Phase == PhaseSucceed {
		return nil
	}

	pending, ok := s.schema.getPendingDeployment(result.Request.Artifact)
	if !ok {
		return wrap(ErrDeployRequestNotRegistered, "no pending deployment for artifact `"+result.Request.Artifact.String()+"`")
	}
	if pending.Key() != result.Request.Key() {
		return wrap(ErrDeployRequestNotRegistered, "mismatch between recorded deploy request and reported result for artifact `"+result.Request.Artifact.String()+"`")
	}
	if pending.DeadlineHeight < ctx.Height {
		return wrap(ErrDeadlineExceeded, "deploy deadline height exceeded, reporting its result is impossible")
	}

	req := pending
	if !result.Ok() {
		return s.failDeploy(ctx, req, result.Err)
	}
	return s.confirmDeploy(ctx, req)
}

// confirmDeploy records a validator's successful local deploy report and,
// once a second quorum (of Ok reports, distinct from the request quorum)
// is reached, registers the artifact in the dispatcher exactly once. If
// the dispatcher refuses, the whole report is discarded: nothing is
// persisted and the deploy remains pending for a later report to retry.
func (s *Supervisor) confirmDeploy(ctx TxContext, req DeployRequest) error {
	state, _ := s.schema.getDeployState(req)
	if state.IsFailed() || state.Phase == PhaseSucceed {
		return nil
	}

	key := req.Key()
	if s.deployConfirmations.ConfirmedBy(key, ctx.Author) {
		return nil
	}

	validators, mode := currentValidatorKeys(ctx)
	reachesQuorum := wouldReachQuorum(s.deployConfirmations, key, ctx.Author, validators, mode)

	if reachesQuorum {
		s.logger.Trace("registering deployed artifact in dispatcher", "artifact", req.Artifact.String())
		if err := ctx.Dispatcher.StartArtifactRegistration(req.Artifact, req.SpecBytes); err != nil {
			return wrap(ErrDeployRequestNotRegistered, "dispatcher refused artifact registration: "+err.Error())
		}
	}

	if err := s.deployConfirmations.Confirm(key, ctx.Author); err != nil {
		return err
	}
	if !reachesQuorum {
		return nil
	}

	state.Phase = PhaseSucceed
	if err := s.schema.putDeployState(req, state); err != nil {
		return err
	}
	if err := s.schema.removePendingDeployment(req.Artifact); err != nil {
		return err
	}
	s.logger.Info("deploy confirmed by report quorum, artifact registered", "artifact", req.Artifact.String())
	return nil
}

func (s *Supervisor) failDeploy(ctx TxContext, req DeployRequest, reason string) error {
	state, _ := s.schema.getDeployState(req)
	if state.IsFailed() {
		return nil
	}
	state.Phase = PhaseFailed
	state.FailedHeight = ctx.Height
	state.FailureReason = reason
	if err := s.schema.putDeployState(req, state); err != nil {
		return err
	}
	if err := s.schema.removePendingDeployment(req.Artifact); err != nil {
		return err
	}
	s.logger.Warn("deploy failed", "artifact", req.Artifact.String(), "reason", reason)
	return wrap(ErrDeployRequestNotRegistered, reason)
}

// expireStaleDeploys is called from the epoch hook; any pending deployment
// whose deadline has passed is failed with a deadline-exceeded reason,
// iterating artifact keys in sorted order for determinism.
func (s *Supervisor) expireStaleDeploys(ctx TxContext) error {
	for _, req := range s.schema.pendingDeploymentRequests() {
		if ctx.Height > req.DeadlineHeight {
			// failDeploy's returned error is the same rejection it would
			// hand back to a ReportDeployResult caller; here it is just a
			// record of the outcome, not a fault in the hook itself.
			_ = s.failDeploy(ctx, req, "deploy deadline exceeded")
		}
	}
	return nil
}
