// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package supervisor

import (
	"crypto/sha256"

	"github.com/luxfi/ids"
	"github.com/luxfi/supervisor/codec"
)

// hashOf returns the canonical content hash of v: JSON-encode via the
// shared codec, then SHA-256 the bytes into an ids.ID. Used to derive
// propose hashes and any other content-addressed identity that must be
// identical on every validator replicating the same call.
func hashOf(v interface{}) (ids.ID, error) {
	raw, err := codec.Codec.Marshal(codec.CurrentVersion, v)
	if err != nil {
		return ids.ID{}, err
	}
	return ids.ID(sha256.Sum256(raw)), nil
}

// proposeHash returns the stable hash a ConfigPropose is registered and
// confirmed under.
func proposeHash(p ConfigPropose) (ids.ID, error) {
	return hashOf(p)
}
