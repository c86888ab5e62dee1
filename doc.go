// Package auth implements the credential subsystem of a small marketplace
// backend: registration, login, password change/reset, role checks, and JWT
// bearer tokens.
//
// Dual store:
//   - A durable CredentialStore (Bun-backed, see NewUsersRepository) is
//     consulted first for every operation, under a bounded timeout.
//   - A FallbackCache mirrors the store's surface in memory and serves a
//     single retry whenever the store is unreachable. Records created there
//     are flagged Temporary and are lost on restart; nothing is reconciled
//     back into the store.
//
// Tokens:
//   - TokenService signs HS256 claims carrying the user's id, email, and
//     role. Validity is signature + expiry only, no server-side sessions.
//     The middleware/jwtware package gates protected routes on these claims
//     and optionally on a role set.
//
// Roles:
//   - user < admin < owner. At most one owner may exist; the invariant is
//     enforced by Auther.EnsureOwner at bootstrap/promotion time, not by
//     storage.
package auth
