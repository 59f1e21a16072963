// Package db contains the model for a single named database: its settings,
// its key-value contents and the role-based permission checks that guard
// every operation on it.
//
// The package focuses on:
//   - Settings: per-database configuration (invalidation time, per-role
//     rwx bits, admin and user identity lists)
//   - Role resolution: mapping an access key to super admin, admin, user
//     or other, and deciding whether that role may perform an operation
//   - Snapshot persistence: serializing settings plus contents to an
//     io.Writer and restoring them from an io.Reader
//
// Trust model: access keys are opaque strings compared verbatim against
// the identity lists. A key is both authentication token and identity,
// there is no server-side verification beyond the string match. This is
// intentional, the server targets mostly-local deployments where the key
// acts as a shared secret.
//
// Thread Safety:
//
//	Database is NOT safe for concurrent use. Callers (the registry) must
//	hold the per-database lock around every access.
package db
