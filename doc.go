// Package auth orchestrates credential verification flows behind short-lived
// process tokens.
//
// Request/verify loop:
//   - Orchestrator.Request validates and fingerprints a credential, rate
//     limits the caller, asks the matching Backend to start its challenge
//     (send a code, ping a liveness worker), and mints a signed process token
//     carrying the attempt ID, method, and fingerprint.
//   - Orchestrator.Verify checks the token, re-derives the fingerprint from
//     the stored user record, and hands the attempt to the Backend. A
//     successful confirmation activates pending users and exchanges the
//     process token for a session token pair.
//
// Backends:
//   - Backend implementations cover one-time codes (email/SMS), passwords
//     with lazy hash provisioning, and face liveness over a correlated
//     message channel. Federated identities bypass the backend registry and
//     enter through Orchestrator.AcceptFederated.
//
// Activity sinks:
//   - ActivitySink is a light-weight audit emitter describing accepted,
//     rejected, and verified attempts. Sinks run best-effort (errors are
//     logged) so you can forward to a database or queue without blocking
//     authentication.
package auth
