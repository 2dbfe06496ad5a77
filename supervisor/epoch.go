// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package supervisor

// BeforeTransactions runs once per block, before any transaction in that
// block is executed: it matures pending config proposals whose actual_from
// has arrived, flushes migrations that completed in a prior block, and
// times out deploys/migrations whose deadline has passed. Every internal
// iteration walks key-sorted slices (schema.keysWithPrefix and its typed
// wrappers) so two honest replicas never observe a different order.
func (s *Supervisor) BeforeTransactions(ctx TxContext) error {
	if err := s.maybeActivateConfig(ctx); err != nil {
		return err
	}
	if err := s.flushCompletedMigrations(ctx); err != nil {
		return err
	}
	if err := s.expireStaleDeploys(ctx); err != nil {
		return err
	}
	if err := s.expireStaleMigrations(ctx); err != nil {
		return err
	}
	return nil
}
