// Package ownercache implements per-owner lazy memoization: a Cache definition
// computes a value derived from an owner, memoizes it on that owner, and serves
// later reads without locking.
//
// Components:
//   - Owner: any type exposing a Slot (embed ownercache.Slot). The slot lazily
//     holds the owner's state for every Cache.
//   - Cache[O, V]: the definition. Holds an identity and a current version;
//     Remove and Put mint a new version, which lazily stales every fast-path
//     entry of that cache across all owners.
//   - Per owner: an authoritative map guarded by one mutex, mirrored into an
//     open-addressed table of immutable entries read with atomic loads.
//   - Backing: optional second-level store (package tier) over a byte
//     provider (Ristretto, BigCache, Redis) with generation-checked frames.
//
// Read path:
//
//	fast:  table[hash & mask] (then a few backup slots), entry.version == cache.version
//	slow:  lock owner -> start (promise | committed) -> compute unlocked -> finish
//
// A computation that loses a race against Remove or Put is discarded and the
// caller retries; concurrent callers for the same owner wait for the one
// computation in flight.
package ownercache
