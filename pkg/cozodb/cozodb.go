// Copyright 2026 CodeRef Authors
//
// SPDX-License-Identifier: Apache-2.0

package cozodb

/*
#cgo LDFLAGS: -lcozo_c
#include <stdlib.h>
#include "cozo_c.h"
*/
import "C"

import (
	"encoding/json"
	"fmt"
	"sync"
	"unsafe"
)

// NamedRows is the decoded result of a Datalog query: column headers
// plus rows of arbitrary JSON-decoded values.
type NamedRows struct {
	Headers []string `json:"headers"`
	Rows    [][]any  `json:"rows"`
	Next    *string  `json:"next,omitempty"`
}

// CozoDB is a handle to one open CozoDB instance. The zero value is
// not usable; construct with New.
type CozoDB struct {
	mu     sync.Mutex
	id     C.int32_t
	closed bool
}

// New opens (or creates) a CozoDB database at path using the given
// storage engine ("mem", "sqlite", or "rocksdb"). options is encoded
// as a JSON object and passed straight to the C API; nil uses the
// engine's defaults.
func New(engine, path string, options map[string]any) (CozoDB, error) {
	cEngine := C.CString(engine)
	defer C.free(unsafe.Pointer(cEngine))
	cPath := C.CString(path)
	defer C.free(unsafe.Pointer(cPath))

	optJSON := "{}"
	if options != nil {
		b, err := json.Marshal(options)
		if err != nil {
			return CozoDB{}, fmt.Errorf("marshal cozodb options: %w", err)
		}
		optJSON = string(b)
	}
	cOpts := C.CString(optJSON)
	defer C.free(unsafe.Pointer(cOpts))

	var dbID C.int32_t
	var cErr *C.char
	ok := C.cozo_open_db(cEngine, cPath, cOpts, &dbID, &cErr)
	if !bool(ok) {
		defer C.cozo_free_str(cErr)
		return CozoDB{}, fmt.Errorf("cozo_open_db: %s", C.GoString(cErr))
	}
	return CozoDB{id: dbID}, nil
}

// Close releases the database handle. Safe to call more than once.
func (db *CozoDB) Close() {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return
	}
	C.cozo_close_db(db.id)
	db.closed = true
}

func (db *CozoDB) run(script string, params map[string]any, immutable bool) (NamedRows, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return NamedRows{}, fmt.Errorf("cozodb: database is closed")
	}

	cScript := C.CString(script)
	defer C.free(unsafe.Pointer(cScript))

	paramsJSON := "{}"
	if params != nil {
		b, err := json.Marshal(params)
		if err != nil {
			return NamedRows{}, fmt.Errorf("marshal cozodb params: %w", err)
		}
		paramsJSON = string(b)
	}
	cParams := C.CString(paramsJSON)
	defer C.free(unsafe.Pointer(cParams))

	result := C.cozo_run_query(db.id, cScript, cParams, C.bool(immutable))
	defer C.cozo_free_str(result)

	raw := C.GoString(result)
	var decoded struct {
		Headers []string `json:"headers"`
		Rows    [][]any  `json:"rows"`
		Ok      bool     `json:"ok"`
		Message string   `json:"message"`
		Display string   `json:"display"`
	}
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return NamedRows{}, fmt.Errorf("decode cozodb result: %w", err)
	}
	if !decoded.Ok {
		msg := decoded.Display
		if msg == "" {
			msg = decoded.Message
		}
		return NamedRows{}, fmt.Errorf("cozo query failed: %s", msg)
	}
	return NamedRows{Headers: decoded.Headers, Rows: decoded.Rows}, nil
}

// Run executes a Datalog script that may mutate the database (inserts,
// schema changes, HNSW index creation).
func (db *CozoDB) Run(script string, params map[string]any) (NamedRows, error) {
	return db.run(script, params, false)
}

// RunReadOnly executes a Datalog query under the database's read-only
// mode, rejecting any script that attempts a mutation.
func (db *CozoDB) RunReadOnly(script string, params map[string]any) (NamedRows, error) {
	return db.run(script, params, true)
}

// Backup writes a full copy of the database to path.
func (db *CozoDB) Backup(path string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return fmt.Errorf("cozodb: database is closed")
	}
	cPath := C.CString(path)
	defer C.free(unsafe.Pointer(cPath))

	var cErr *C.char
	ok := C.cozo_backup(db.id, cPath, &cErr)
	if !bool(ok) {
		defer C.cozo_free_str(cErr)
		return fmt.Errorf("cozo_backup: %s", C.GoString(cErr))
	}
	return nil
}

// Restore replaces the database's contents with a backup written by
// Backup. HNSW indexes are not part of a CozoDB backup, so the caller
// must issue the `::hnsw create` statement again afterward
// (internal/storage issues it from Open).
func (db *CozoDB) Restore(path string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return fmt.Errorf("cozodb: database is closed")
	}
	cPath := C.CString(path)
	defer C.free(unsafe.Pointer(cPath))

	var cErr *C.char
	ok := C.cozo_restore(db.id, cPath, &cErr)
	if !bool(ok) {
		defer C.cozo_free_str(cErr)
		return fmt.Errorf("cozo_restore: %s", C.GoString(cErr))
	}
	return nil
}
