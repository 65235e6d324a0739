// Package chat implements the live transport for swap conversations.
//
// It keeps WebSocket lifecycle, room membership, and fan-out isolated from the
// conversation flow so the marketplace store remains the source of truth for
// messages and swap status. Video call signaling rides the same rooms.
package chat
