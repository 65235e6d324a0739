// Package timeouts defines shared timeout constants used across services.
package timeouts

import "time"

// ReadHeader limits how long an HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long an HTTP server waits for in-flight requests
// during graceful shutdown.
const Shutdown = 5 * time.Second

// AIRequest caps one moderation or summarization call to the AI service.
const AIRequest = 10 * time.Second

// Provider caps one upstream LLM generation inside the AI service.
const Provider = 30 * time.Second
