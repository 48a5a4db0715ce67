// Package credentials owns the single cached API credential.
//
// A [Store] serializes one [Credential] into a durable [Slot] and only serves it while it is
// outside the safety margin before expiry. A [Session] sits on top of the store and an
// [Issuer]: it hands out the current credential and re-issues on demand, collapsing
// concurrent re-issuance into a single in-flight request.
//
// Slot backends:
//   - [FileSlot] : one JSON file per key in a directory (default)
//   - [MemorySlot] : process-local map, used by tests and `--store memory`
//   - [RedisSlot] : a redis key, for sharing one credential between a proxy and CLI runs
//
// The sqlite backend lives in the repositories package.
package credentials
