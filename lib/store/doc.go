// Package store defines the in-memory store engine used by every distrilock
// socket. A store is an isolated key table implementing one Strategy, addressed
// by its index within a socket.
//
// The package focuses on:
//   - A unified interface (IStore) shared by all strategies
//   - Soft-miss results: every operation returns a Result, never an error
//   - Shared helpers for expiries and key-range scans
//
// Key Components:
//
//   - IStore Interface: size, keys, get, set, update and delete. The
//     server maps the Ok flag of a Result straight onto the response frame.
//
//   - Result: the success flag plus either the payload or a short diagnostic
//     message (see the Msg* constants).
//
//   - Strategy: the semantics of a store. Three implementations exist:
//
//     - Lock (lockstore): Set acquires and only succeeds for absent keys,
//     Update renews a held key. Every operation takes one store-wide mutex
//     so the check-and-create of an acquire is atomic.
//
//     - Cache (cachestore): an ordinary TTL cache. Mutations take a per-key
//     guard, Get is lock-free.
//
//     - Counter (counterstore): Set increments a saturating uint32 counter
//     and returns the new value. Get and Update are not implemented.
//
// Eviction:
//
//	Every entry created with an expiry owns one cancellable timer. Renewing
//	the entry stops that timer and schedules a new one. A generation number
//	guards against a timer that already fired but has not yet acquired the
//	entry's guard, so a renewed key is never removed by a stale timer.
//
// Key ranges:
//
//	Keys are returned in insertion order. A range spec has the form
//	"start..end" where either bound may be omitted (see ParseKeyRange).
package store
