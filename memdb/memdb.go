// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package memdb provides an in-memory implementation of
// github.com/luxfi/database's Database interface, modeled on Exonum's
// TemporaryDB: a single RWMutex-guarded map whose iterators walk keys in
// sorted order, never durable, intended for tests and the
// supervisor-harness demo binary only.
package memdb

import (
	"sort"
	"sync"

	"github.com/luxfi/database"
)

// Database is an in-memory, non-durable key-value store.
type Database struct {
	mu     sync.RWMutex
	data   map[string][]byte
	closed bool
}

// New returns an empty in-memory database.
func New() *Database {
	return &Database{data: make(map[string][]byte)}
}

var _ database.Database = (*Database)(nil)

// Has reports whether key is present.
func (db *Database) Has(key []byte) (bool, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	if db.closed {
		return false, database.ErrClosed
	}
	_, ok := db.data[string(key)]
	return ok, nil
}

// Get returns the value stored for key, or database.ErrNotFound.
func (db *Database) Get(key []byte) ([]byte, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	if db.closed {
		return nil, database.ErrClosed
	}
	v, ok := db.data[string(key)]
	if !ok {
		return nil, database.ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

// Put stores value under key, overwriting any previous value.
func (db *Database) Put(key, value []byte) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return database.ErrClosed
	}
	v := make([]byte, len(value))
	copy(v, value)
	db.data[string(key)] = v
	return nil
}

// Delete removes key, if present.
func (db *Database) Delete(key []byte) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return database.ErrClosed
	}
	delete(db.data, string(key))
	return nil
}

// Close marks the database as no longer usable.
func (db *Database) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.closed = true
	return nil
}

// NewIteratorWithPrefix returns a key-sorted iterator over every entry whose
// key starts with prefix. The snapshot is copied under lock so that the
// caller may safely mutate the database mid-iteration (mirroring
// TemporaryDB's clone-under-read-lock snapshot semantics).
func (db *Database) NewIteratorWithPrefix(prefix []byte) database.Iterator {
	db.mu.RLock()
	defer db.mu.RUnlock()

	keys := make([]string, 0, len(db.data))
	p := string(prefix)
	for k := range db.data {
		if len(k) >= len(p) && k[:len(p)] == p {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	entries := make([]entry, len(keys))
	for i, k := range keys {
		entries[i] = entry{key: []byte(k), value: append([]byte(nil), db.data[k]...)}
	}
	return &iterator{entries: entries, index: -1}
}

type entry struct {
	key   []byte
	value []byte
}

type iterator struct {
	entries []entry
	index   int
}

var _ database.Iterator = (*iterator)(nil)

func (it *iterator) Next() bool {
	it.index++
	return it.index < len(it.entries)
}

func (it *iterator) Key() []byte {
	if it.index < 0 || it.index >= len(it.entries) {
		return nil
	}
	return it.entries[it.index].key
}

func (it *iterator) Value() []byte {
	if it.index < 0 || it.index >= len(it.entries) {
		return nil
	}
	return it.entries[it.index].value
}

func (it *iterator) Error() error { return nil }

func (it *iterator) Release() {}
