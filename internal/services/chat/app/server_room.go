package server

import (
	"encoding/json"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/louisbranch/skillswap/internal/services/marketplace/message"
)

type wsPeer struct {
	mu      sync.Mutex
	userID  string
	encoder *json.Encoder
	closer  io.Closer
}

func newWSPeer(userID string, conn io.ReadWriteCloser) *wsPeer {
	return &wsPeer{userID: userID, encoder: json.NewEncoder(conn), closer: conn}
}

func (p *wsPeer) writeFrame(frame wsFrame) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.encoder.Encode(frame)
}

func (p *wsPeer) close() {
	if p.closer != nil {
		_ = p.closer.Close()
	}
}

type wsSession struct {
	mu   sync.Mutex
	room *swapRoom
	peer *wsPeer
}

func newWSSession(peer *wsPeer) *wsSession {
	return &wsSession{peer: peer}
}

func (s *wsSession) userID() string {
	return s.peer.userID
}

func (s *wsSession) setRoom(next *swapRoom) *swapRoom {
	s.mu.Lock()
	previous := s.room
	s.room = next
	s.mu.Unlock()
	return previous
}

func (s *wsSession) currentRoom() *swapRoom {
	s.mu.Lock()
	room := s.room
	s.mu.Unlock()
	return room
}

// Hub tracks live swap rooms and fans stored messages out to them.
type Hub struct {
	mu     sync.Mutex
	rooms  map[string]*swapRoom
	closed bool
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{rooms: make(map[string]*swapRoom)}
}

// join adds peer to the swap room, creating the room on first use. It
// returns nil once the hub is closed.
func (h *Hub) join(swapID string, peer *wsPeer) *swapRoom {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	room, ok := h.rooms[swapID]
	if !ok {
		room = newSwapRoom(swapID)
		h.rooms[swapID] = room
	}
	room.join(peer)
	return room
}

func (h *Hub) leave(room *swapRoom, peer *wsPeer) {
	if room == nil || peer == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if room.leave(peer) && h.rooms[room.swapID] == room {
		delete(h.rooms, room.swapID)
	}
}

func (h *Hub) lookup(swapID string) *swapRoom {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.rooms[swapID]
}

// PublishMessage broadcasts m as chat.message to every subscriber of its swap.
func (h *Hub) PublishMessage(m message.Message) {
	if h == nil {
		return
	}
	room := h.lookup(strings.TrimSpace(m.SwapID))
	if room == nil {
		return
	}
	room.broadcast(wsFrame{
		Type:    frameMessage,
		Payload: mustJSON(messageEnvelope{Message: toChatMessage(m)}),
	}, nil)
}

// Close disconnects every peer and refuses new joins.
func (h *Hub) Close() {
	if h == nil {
		return
	}
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	rooms := h.rooms
	h.rooms = make(map[string]*swapRoom)
	h.mu.Unlock()

	for _, room := range rooms {
		for _, peer := range room.peers(nil) {
			peer.close()
		}
	}
}

type swapRoom struct {
	mu          sync.Mutex
	swapID      string
	subscribers map[*wsPeer]struct{}
}

func newSwapRoom(swapID string) *swapRoom {
	return &swapRoom{
		swapID:      swapID,
		subscribers: make(map[*wsPeer]struct{}),
	}
}

func (r *swapRoom) join(peer *wsPeer) {
	r.mu.Lock()
	r.subscribers[peer] = struct{}{}
	r.mu.Unlock()
}

func (r *swapRoom) leave(peer *wsPeer) bool {
	r.mu.Lock()
	delete(r.subscribers, peer)
	empty := len(r.subscribers) == 0
	r.mu.Unlock()
	return empty
}

// peers returns the subscribers other than except.
func (r *swapRoom) peers(except *wsPeer) []*wsPeer {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*wsPeer, 0, len(r.subscribers))
	for peer := range r.subscribers {
		if peer != except {
			out = append(out, peer)
		}
	}
	return out
}

func (r *swapRoom) broadcast(frame wsFrame, except *wsPeer) {
	for _, peer := range r.peers(except) {
		_ = peer.writeFrame(frame)
	}
}

func toChatMessage(m message.Message) chatMessage {
	return chatMessage{
		MessageID:       m.ID,
		SwapID:          m.SwapID,
		SenderID:        m.SenderID,
		SequenceID:      m.SequenceID,
		SentAt:          m.CreatedAt.UTC().Format(time.RFC3339),
		Body:            m.Body,
		ClientMessageID: m.ClientMessageID,
	}
}
