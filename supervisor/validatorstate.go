// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package supervisor

import (
	"context"

	"github.com/luxfi/ids"
	"github.com/luxfi/validators"
)

// ValidatorKeysFromState reads the validator set active at height from a
// live validators.State — the same validator-manager interface the
// teacher's consensus engine queries (validators/validatorstest.TestState
// implements it identically for tests) — and reduces it to the bare node
// IDs CoreSchema.ConsensusConfig needs. It never inspects a
// GetValidatorOutput's weight or public key: the Supervisor's quorum math
// only cares who is a validator, not how much stake they carry.
func ValidatorKeysFromState(ctx context.Context, state validators.State, height uint64, netID ids.ID) ([]ids.NodeID, error) {
	set, err := state.GetValidatorSet(ctx, height, netID)
	if err != nil {
		return nil, err
	}
	keys := make([]ids.NodeID, 0, len(set))
	for id := range set {
		keys = append(keys, id)
	}
	return keys, nil
}

// ValidatorStateCore adapts a live validators.State plus a block-height
// source into a CoreSchema, the way a real node wires the Supervisor
// against its actual validator manager instead of supervisortest's
// in-memory fake. Height is read from HeightFunc rather than tracked here,
// since the surrounding node — not the Supervisor — owns the canonical
// current height.
type ValidatorStateCore struct {
	State      validators.State
	NetID      ids.ID
	Mode       Mode
	HeightFunc func() Height
}

func (c *ValidatorStateCore) Height() Height {
	return c.HeightFunc()
}

func (c *ValidatorStateCore) ConsensusConfig() ConsensusConfig {
	keys, err := ValidatorKeysFromState(context.Background(), c.State, uint64(c.HeightFunc()), c.NetID)
	if err != nil {
		// A validator-manager query failure leaves the Supervisor unable to
		// compute quorum at all this block; reporting an empty set is safer
		// than panicking or caching a stale one, since every quorum check
		// against an empty set simply fails closed.
		return ConsensusConfig{Mode: c.Mode}
	}
	return ConsensusConfig{ValidatorKeys: keys, Mode: c.Mode}
}

func (c *ValidatorStateCore) IsValidator(id ids.NodeID) bool {
	for _, k := range c.ConsensusConfig().ValidatorKeys {
		if k == id {
			return true
		}
	}
	return false
}

var _ CoreSchema = (*ValidatorStateCore)(nil)
