// Package ai contains the moderation and summarization sidecar.
//
// The marketplace calls it over HTTP through aiclient; provider adapters keep
// the LLM vendor behind a single Generate call.
package ai
