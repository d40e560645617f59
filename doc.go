// Package identity manages the user account lifecycle for a multi-tenant
// automation platform: invitations, signup, password resets, and the
// transfer or purge of a departing user's owned resources.
//
// Lifecycle:
//   - Invites create shell users (no password hash) inside a single
//     transaction; the invite credential is the (inviterId, inviteeId)
//     pair validated against database state, not a stored secret.
//   - CompleteSignup fills a shell with a name and password hash,
//     activating it. A claimed invite cannot be replayed.
//   - Password resets issue single-use tokens with a two hour TTL. Token
//     consumption and the password update happen in one statement so a
//     crash can never leave a live token behind a changed password.
//
// Ownership transfer:
//   - DeleteUser either re-points every owner share row at a transferee
//     or purges the owned workflows and credentials, in one transaction.
//     Partial unique indexes keep each resource at exactly one owner even
//     under concurrent transfers.
//
// Activity sinks:
//   - ActivitySink is a light-weight audit emitter describing lifecycle
//     events. Sinks run best-effort after commit (errors are logged) so
//     telemetry can never roll back or block the primary operation.
package identity
