// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package supervisor

import (
	"sort"

	"github.com/luxfi/ids"
)

// Tracker is a generic "confirmations of X by validator keys" set, keyed by
// a caller-chosen, canonicalized string key (a propose hash, a
// DeployRequest.Key(), a MigrationRequest.Key()). It generalizes the
// teacher's utils/bag vote-counting pattern from counting occurrences of an
// ID to counting distinct validators confirming a key, and — unlike a bag —
// is itself durable: every confirmation is written through to the
// Supervisor's own schema under a caller-assigned table prefix, one per §3
// quorum table, so a Supervisor reconstructed against the same database
// recovers every vote a restart would otherwise have lost.
type Tracker struct {
	schema *schema
	prefix []byte
}

// newTracker returns a Tracker whose confirmations are persisted under
// prefix in s's underlying database.
func newTracker(s *schema, prefix []byte) *Tracker {
	return &Tracker{schema: s, prefix: prefix}
}

func (t *Tracker) confirmedSet(key string) []ids.NodeID {
	var set []ids.NodeID
	t.schema.getValue(t.prefix, key, &set)
	return set
}

// Confirm records that validator confirmed key. Idempotent on
// (key, validator): a repeat confirmation performs no write.
func (t *Tracker) Confirm(key string, validator ids.NodeID) error {
	set := t.confirmedSet(key)
	for _, v := range set {
		if v == validator {
			return nil
		}
	}
	set = append(set, validator)
	return t.schema.putValue(t.prefix, key, set)
}

// ConfirmedBy reports whether validator has already confirmed key.
func (t *Tracker) ConfirmedBy(key string, validator ids.NodeID) bool {
	for _, v := range t.confirmedSet(key) {
		if v == validator {
			return true
		}
	}
	return false
}

// Count returns how many distinct validators have confirmed key.
func (t *Tracker) Count(key string) int {
	return len(t.confirmedSet(key))
}

// ConfirmingValidators returns a deterministically (lexically) sorted list
// of validators who have confirmed key — iteration order must never depend
// on the underlying storage's own enumeration order, per the determinism
// requirement in spec.md §9.
func (t *Tracker) ConfirmingValidators(key string) []ids.NodeID {
	out := t.confirmedSet(key)
	sort.Slice(out, func(i, j int) bool {
		return out[i].String() < out[j].String()
	})
	return out
}

// IntersectWithValidators reports whether the confirmations recorded for
// key, restricted to the supplied current validator set, meet quorum under
// mode. A validator that confirmed but has since left the validator set is
// not counted — the test is always against current membership, never
// against what was true when the vote was cast.
func (t *Tracker) IntersectWithValidators(key string, currentValidators []ids.NodeID, mode Mode) bool {
	set := t.confirmedSet(key)
	if len(set) == 0 {
		return false
	}
	confirmed := make(map[ids.NodeID]struct{}, len(set))
	for _, v := range set {
		confirmed[v] = struct{}{}
	}
	matched := 0
	for _, v := range currentValidators {
		if _, ok := confirmed[v]; ok {
			matched++
		}
	}
	return matched >= quorumFor(mode, len(currentValidators))
}

// wouldReachQuorum reports whether key would meet quorum under mode if
// candidate confirmed it in addition to whatever confirmations t already
// holds, without mutating t. Used where a caller must decide whether to
// take a side effect (e.g. a dispatcher call) before committing the
// confirmation itself.
func wouldReachQuorum(t *Tracker, key string, candidate ids.NodeID, validators []ids.NodeID, mode Mode) bool {
	matched := 0
	isValidator := false
	for _, v := range validators {
		if v == candidate {
			isValidator = true
			matched++
			continue
		}
		if t.ConfirmedBy(key, v) {
			matched++
		}
	}
	if !isValidator {
		return false
	}
	return matched >= quorumFor(mode, len(validators))
}
