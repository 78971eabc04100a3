// Package authcore issues, verifies, and revokes proof of identity and proof
// of second-factor possession for API clients, and throttles abuse of the
// credential-checking surface.
//
// The package is the core of an authentication stack: stateless signed tokens
// combined with a stateful Redis-backed revocation ledger, replay-safe
// time-based one-time codes, and attempt lockout / sliding-window rate
// limiting. HTTP routing, durable user records, and outbound message delivery
// are collaborators supplied by the caller, never owned here.
//
// # Architecture boundaries
//
// authcore is the public surface. It exposes [Engine], [Builder], [Config],
// sentinel errors, and value types. Mechanism packages ([token], [otp],
// [password], [session]) hold the protocol pieces; coordination (governors,
// reset records, notification dispatch, audit) lives under internal/ and is
// never exported.
//
// # Concurrency contract
//
// Engine methods are safe to call from multiple goroutines after
// [Builder.Build]. No cross-request state is held in process memory:
// correctness under concurrent workers relies on the shared store's atomic
// increment, TTL, and compare-and-set primitives. Revocations are
// acknowledged by the store before the Engine returns, so a subsequent
// lookup from any worker observes them.
package authcore
