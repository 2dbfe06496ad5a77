// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package supervisor

import (
	"github.com/luxfi/database"
	"github.com/luxfi/log"

	supervisorconfig "github.com/luxfi/supervisor/config"
	nolog "github.com/luxfi/supervisor/log"
)

// Transaction method IDs, matching the dispatch table a real node would
// route signed transactions through by (service_id, method_id).
const (
	MethodRequestArtifactDeploy uint32 = iota
	MethodReportDeployResult
	MethodProposeConfigChange
	MethodConfirmConfigChange
	MethodRequestMigration
	MethodReportMigrationResult
)

// Supervisor is the governance coordinator: construction wires a
// persistent partition, a logger, and nothing else — every piece of
// surrounding blockchain state (height, validators, dispatcher, runtime)
// arrives per-call via TxContext, so a single Supervisor value is safe to
// reuse across blocks and, given a race-free caller, across goroutines
// calling at different heights.
type Supervisor struct {
	schema *schema
	logger log.Logger
	config supervisorconfig.Config

	votes                  *Tracker // config_confirms
	deployRequests         *Tracker // deploy_requests
	deployConfirmations    *Tracker // deploy_confirmations
	migrationRequests      *Tracker // migration_requests
	migrationConfirmations *Tracker // migration_confirmations
}

// New returns a Supervisor backed by db for persistent state and logger
// for structured logging, construction-time tuned by cfg. cfg is validated
// via its own Validate method before anything is built; a malformed cfg
// fails construction rather than surfacing later as a confusing runtime
// rejection. Pass memdb.New() for tests or the harness binary; a
// production node supplies its real database.Database partition.
func New(db database.Database, logger log.Logger, cfg supervisorconfig.Config) (*Supervisor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = nolog.NewNoOpLogger()
	}
	s := newSchema(db)
	return &Supervisor{
		schema:                 s,
		logger:                 logger,
		config:                 cfg,
		votes:                  newTracker(s, prefixConfigConfirms),
		deployRequests:         newTracker(s, prefixDeployRequests),
		deployConfirmations:    newTracker(s, prefixDeployConfirmations),
		migrationRequests:      newTracker(s, prefixMigrationRequests),
		migrationConfirmations: newTracker(s, prefixMigrationConfirms),
	}, nil
}

// Dispatch routes a transaction by method ID to its handler, the way a
// real node's service dispatcher would after deserializing the payload;
// callers with a typed payload in hand should prefer calling the
// corresponding method directly.
func (s *Supervisor) Dispatch(ctx TxContext, methodID uint32, payload interface{}) error {
	switch methodID {
	case MethodRequestArtifactDeploy:
		req, ok := payload.(DeployRequest)
		if !ok {
			return wrap(ErrMalformedConfigPropose, "payload is not a DeployRequest")
		}
		return s.RequestArtifactDeploy(ctx, req)
	case MethodReportDeployResult:
		res, ok := payload.(DeployResult)
		if !ok {
			return wrap(ErrMalformedConfigPropose, "payload is not a DeployResult")
		}
		return s.ReportDeployResult(ctx, res)
	case MethodProposeConfigChange:
		p, ok := payload.(ConfigPropose)
		if !ok {
			return wrap(ErrMalformedConfigPropose, "payload is not a ConfigPropose")
		}
		return s.ProposeConfigChange(ctx, p)
	case MethodConfirmConfigChange:
		v, ok := payload.(ConfigVote)
		if !ok {
			return wrap(ErrMalformedConfigPropose, "payload is not a ConfigVote")
		}
		return s.ConfirmConfigChange(ctx, v)
	case MethodRequestMigration:
		req, ok := payload.(MigrationRequest)
		if !ok {
			return wrap(ErrMalformedConfigPropose, "payload is not a MigrationRequest")
		}
		return s.RequestMigration(ctx, req)
	case MethodReportMigrationResult:
		res, ok := payload.(MigrationResult)
		if !ok {
			return wrap(ErrMalformedConfigPropose, "payload is not a MigrationResult")
		}
		return s.ReportMigrationResult(ctx, res)
	default:
		return wrap(ErrMalformedConfigPropose, "unknown method id")
	}
}
