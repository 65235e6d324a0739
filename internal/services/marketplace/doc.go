// Package marketplace hosts the skill-swap marketplace service: identities,
// profiles, swap requests, scheduled sessions, conversations, and ratings.
package marketplace
