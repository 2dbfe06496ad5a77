// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package supervisor

import "github.com/luxfi/ids"

// requireValidator rejects a transaction whose author is not a current
// validator. Every transaction handler calls this first, before touching
// any schema state, mirroring the original's get_validator guard at the
// top of every handler in transactions.rs.
func requireValidator(ctx TxContext) error {
	if !ctx.Core.IsValidator(ctx.Author) {
		return wrap(ErrUnauthorizedCaller, "caller "+ctx.Author.String()+" is not a current validator")
	}
	return nil
}

// currentValidatorKeys returns the current validator set and quorum mode,
// read fresh from ctx.Core on every call so intersection checks never use
// a stale snapshot (§4.2's "quorum is computed against current membership,
// not against what was recorded when the vote was cast").
func currentValidatorKeys(ctx TxContext) (keys []ids.NodeID, mode Mode) {
	cfg := ctx.Core.ConsensusConfig()
	return cfg.ValidatorKeys, cfg.Mode
}
