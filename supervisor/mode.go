// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package supervisor

import supervisorconfig "github.com/luxfi/supervisor/config"

// Mode is the approval policy applied to every quorum check: how many
// validator confirmations a governance action needs before it is approved.
type Mode = supervisorconfig.Mode

const (
	// ModeSimple requires only the acting validator's own vote.
	ModeSimple = supervisorconfig.Simple
	// ModeDecentralized requires floor(2N/3)+1 of the current validator
	// set.
	ModeDecentralized = supervisorconfig.Decentralized
)

// quorumFor returns the number of distinct validator confirmations required
// out of a validator set of the given size.
func quorumFor(mode Mode, validatorCount int) int {
	switch mode {
	case supervisorconfig.Simple:
		if validatorCount == 0 {
			return 1
		}
		return 1
	case supervisorconfig.Decentralized:
		return (2*validatorCount)/3 + 1
	default:
		return (2*validatorCount)/3 + 1
	}
}
