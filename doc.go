// Package otpgate issues and verifies short-lived one-time-passcode challenges
// that gate two sensitive state transitions: completing a new-account
// registration, and authorizing a login after password verification.
//
// All challenge state is ephemeral and lives in Redis with a fixed TTL. A
// challenge is attempt-limited and consumable exactly once: verification
// destroys it, and a replay of an already-consumed challenge is
// indistinguishable from expiry.
//
// # Architecture boundaries
//
// otpgate is the public surface. It exposes [Engine], [Builder], [Config],
// sentinel errors, and value types. Durable account storage, file staging, and
// code delivery are consumed through the narrow [AccountStore], [FileStager],
// and [Notifier] interfaces; reference implementations live in the gormstore
// and filestore subpackages.
//
// # What this package must NOT do
//
//   - Expose Redis clients, store internals, or record encodings in its public API.
//   - Store a passcode in clear anywhere: codes are sealed (SHA-256) at write
//     time and compared digest-to-digest in constant time.
//   - Retry on behalf of the caller. Failed verification outcomes are reported
//     as structured errors; retry policy belongs to the HTTP layer.
//
// # Concurrency contract
//
// Engine methods are safe for concurrent use after [Builder.Build]. There is no
// shared in-process mutable state between challenges; cross-request
// coordination happens through Redis, and the attempt counter read-modify-write
// runs under an optimistic WATCH transaction so concurrent guesses against one
// challenge cannot under-count attempts.
package otpgate
