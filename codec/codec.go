// Package codec encodes and decodes the values the Supervisor persists
// under its schema tables — deploy/migration requests, config proposals,
// quorum-tracker vote sets — and nothing else; transaction wire framing is
// the surrounding node's concern, out of scope here.
package codec

import (
	"encoding/json"
	"fmt"
)

// CodecVersion tags the wire format a persisted value was written with, so
// a future schema migration can tell old records apart from new ones.
type CodecVersion uint16

const (
	// CurrentVersion is the only version this build writes or accepts.
	CurrentVersion CodecVersion = 0
)

// MaxValueSize bounds a single persisted value. The Supervisor's schema
// tables only ever hold small, bounded structures (a handful of
// ConfigChanges, a NodeID slice no longer than the validator set); a value
// anywhere near this limit indicates a malformed or adversarial payload,
// not a legitimate governance record.
const MaxValueSize = 1 << 20 // 1 MiB

// Codec is the schema layer's shared marshaler.
var Codec = &JSONCodec{}

// JSONCodec implements Marshal/Unmarshal over encoding/json, rejecting
// anything that would produce or consume a value larger than MaxValueSize.
type JSONCodec struct{}

// Marshal encodes v at version, the only version this build supports.
func (c *JSONCodec) Marshal(version CodecVersion, v interface{}) ([]byte, error) {
	if version != CurrentVersion {
		return nil, fmt.Errorf("codec: unsupported version %d", version)
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if len(raw) > MaxValueSize {
		return nil, fmt.Errorf("codec: encoded value is %d bytes, exceeds MaxValueSize %d", len(raw), MaxValueSize)
	}
	return raw, nil
}

// Unmarshal decodes data into v, reporting the version it was written
// with (always CurrentVersion, until a second version exists to decode).
func (c *JSONCodec) Unmarshal(data []byte, v interface{}) (CodecVersion, error) {
	if len(data) > MaxValueSize {
		return 0, fmt.Errorf("codec: stored value is %d bytes, exceeds MaxValueSize %d", len(data), MaxValueSize)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return 0, err
	}
	return CurrentVersion, nil
}
