// Package seed provides idempotent, manifest-driven local data seeding.
//
// The runner writes through the same marketplace store the API uses, keyed by
// email and swap skills, so rerunning a manifest against a seeded database
// leaves it unchanged.
package seed
