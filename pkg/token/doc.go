// Package token holds the per-supervisor proxy token and its lifecycle.
//
// A token is a single optional secret shared by every proxied port of one
// workload. Its value encodes one of three modes:
//
//   - disabled: no secret (nil). Every proxied request is refused.
//   - open: the empty string. Every proxied request is allowed without a check.
//   - protected: any other string. A request must present exactly that value
//     in the X-Proxy-Token header.
//
// The lifecycle functions (InitializeIfAbsent, Regenerate, Set, Finalize)
// move a State between modes according to the deployment's StartupPolicy and
// ShutdownPolicy, and Persist/Restore carry the secret in and out of the
// supervisor's durable state blob. Decide is the authorization gate.
//
// # Thread Safety
//
// A State guards its secret with its own lock, so concurrent requests for the
// same supervisor never observe a half-updated value, while different
// supervisors never contend with each other.
package token
