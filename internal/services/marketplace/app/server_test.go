package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/net/websocket"
)

func TestNewServerValidatesConfig(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "skillswap.db")
	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "missing address", cfg: Config{DBPath: dbPath, JWTSecret: testSecret}},
		{name: "short secret", cfg: Config{HTTPAddr: "127.0.0.1:0", DBPath: dbPath, JWTSecret: "short"}},
		{name: "missing db path", cfg: Config{HTTPAddr: "127.0.0.1:0", JWTSecret: testSecret}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewServer(tt.cfg); err == nil {
				t.Fatal("expected config error")
			}
		})
	}
}

func TestListenAndServeNilServer(t *testing.T) {
	var s *Server
	if err := s.ListenAndServe(context.Background()); err == nil {
		t.Fatal("expected error for nil server")
	}
}

func startTestServer(t *testing.T) (*Server, context.CancelFunc, chan error) {
	t.Helper()
	server, err := NewServer(Config{
		HTTPAddr:  "127.0.0.1:0",
		DBPath:    filepath.Join(t.TempDir(), "data", "skillswap.db"),
		JWTSecret: testSecret,
	})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	t.Cleanup(server.Close)

	ctx, cancel := context.WithCancel(context.Background())
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe(ctx)
	}()
	return server, cancel, serveErr
}

func TestListenAndServeStopsOnCancel(t *testing.T) {
	_, cancel, serveErr := startTestServer(t)
	time.Sleep(25 * time.Millisecond)
	cancel()

	select {
	case err := <-serveErr:
		if err != nil {
			t.Fatalf("serve returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop on cancel")
	}
}

func postJSON(t *testing.T, url string, accessToken string, body any, dst any) int {
	t.Helper()
	raw, _ := json.Marshal(body)
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	defer resp.Body.Close()
	payload, _ := io.ReadAll(resp.Body)
	if dst != nil {
		if err := json.Unmarshal(payload, dst); err != nil {
			t.Fatalf("decode %s: %v (%s)", url, err, string(payload))
		}
	}
	return resp.StatusCode
}

func TestServerRelaysRESTMessagesToWebSocket(t *testing.T) {
	server, cancel, _ := startTestServer(t)
	defer cancel()
	base := "http://" + server.Addr()

	register := func(email string) authResponse {
		var resp authResponse
		if status := postJSON(t, base+"/api/auth/register", "", map[string]string{
			"email": email, "name": strings.Split(email, "@")[0], "password": "correct horse",
		}, &resp); status != http.StatusCreated {
			t.Fatalf("register %s status = %d", email, status)
		}
		return resp
	}
	alice := register("alice@example.com")
	bob := register("bob@example.com")

	putProfile := func(token string, offered string) {
		raw, _ := json.Marshal(map[string]any{"public": true, "skills_offered": []string{offered}})
		req, _ := http.NewRequest(http.MethodPut, base+"/api/profile", bytes.NewReader(raw))
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("put profile: %v", err)
		}
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("put profile status = %d", resp.StatusCode)
		}
	}
	putProfile(alice.Token, "Guitar")
	putProfile(bob.Token, "Spanish")

	var created swapView
	if status := postJSON(t, base+"/api/swaps", alice.Token, map[string]string{
		"recipient_id": bob.User.ID, "offered_skill": "Guitar", "wanted_skill": "Spanish",
	}, &created); status != http.StatusCreated {
		t.Fatalf("create swap status = %d", status)
	}
	if status := postJSON(t, base+"/api/swaps/"+created.ID+"/accept", bob.Token, nil, nil); status != http.StatusOK {
		t.Fatalf("accept status = %d", status)
	}

	conn, err := websocket.Dial("ws://"+server.Addr()+"/ws?access_token="+bob.Token, "", base)
	if err != nil {
		t.Fatalf("dial websocket: %v", err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(3 * time.Second))

	if err := json.NewEncoder(conn).Encode(map[string]any{
		"type":    "chat.join",
		"payload": map[string]any{"swap_id": created.ID},
	}); err != nil {
		t.Fatalf("send join: %v", err)
	}
	var joined struct {
		Type string `json:"type"`
	}
	if err := json.NewDecoder(conn).Decode(&joined); err != nil || joined.Type != "chat.joined" {
		t.Fatalf("joined frame = %+v err=%v", joined, err)
	}

	if status := postJSON(t, base+"/api/swaps/"+created.ID+"/messages", alice.Token, map[string]string{
		"client_message_id": "c-1", "body": "Hola Bob",
	}, nil); status != http.StatusCreated {
		t.Fatalf("send message status = %d", status)
	}

	var frame struct {
		Type    string `json:"type"`
		Payload struct {
			Message struct {
				Body     string `json:"body"`
				SenderID string `json:"sender_id"`
			} `json:"message"`
		} `json:"payload"`
	}
	if err := json.NewDecoder(conn).Decode(&frame); err != nil {
		t.Fatalf("read relayed message: %v", err)
	}
	if frame.Type != "chat.message" || frame.Payload.Message.Body != "Hola Bob" || frame.Payload.Message.SenderID != alice.User.ID {
		t.Fatalf("relayed frame = %+v", frame)
	}
}
