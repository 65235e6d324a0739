package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/louisbranch/skillswap/internal/services/ai/aiclient"
	"github.com/louisbranch/skillswap/internal/services/marketplace/conversation"
	"github.com/louisbranch/skillswap/internal/services/marketplace/storage/sqlite"
	"github.com/louisbranch/skillswap/internal/services/marketplace/token"
)

var testNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

const testSecret = "test-secret-with-at-least-32-bytes!!"

type fakeSummarizer struct {
	summary        string
	err            error
	lastTranscript string
}

func (f *fakeSummarizer) Summarize(_ context.Context, transcript string) (string, error) {
	f.lastTranscript = transcript
	if f.err != nil {
		return "", f.err
	}
	return f.summary, nil
}

// wordModerator flags any message containing one of its words.
type wordModerator struct {
	words []string
	err   error
}

func (m wordModerator) Moderate(_ context.Context, text string) (aiclient.Verdict, error) {
	if m.err != nil {
		return aiclient.Verdict{}, m.err
	}
	lower := strings.ToLower(text)
	for _, word := range m.words {
		if strings.Contains(lower, word) {
			return aiclient.Verdict{Label: aiclient.LabelUnsafe, Categories: "harassment"}, nil
		}
	}
	return aiclient.Verdict{Label: aiclient.LabelSafe}, nil
}

type testAPI struct {
	server     *httptest.Server
	store      *sqlite.Store
	summarizer *fakeSummarizer
	clock      *time.Time
}

type testAPIOptions struct {
	moderator  conversation.Moderator
	failOpen   bool
	summarizer Summarizer
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	summarizer := &fakeSummarizer{summary: "- Learned chord shapes"}
	api := newTestAPIWithOptions(t, testAPIOptions{
		moderator:  wordModerator{words: []string{"idiot"}},
		summarizer: summarizer,
	})
	api.summarizer = summarizer
	return api
}

func newTestAPIWithOptions(t *testing.T, opts testAPIOptions) *testAPI {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "skillswap.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	clock := testNow
	now := func() time.Time { return clock }
	tokens, err := token.NewManager(token.Config{Secret: []byte(testSecret), Now: now})
	if err != nil {
		t.Fatalf("new token manager: %v", err)
	}
	conv, err := conversation.New(conversation.Config{
		Store:     store,
		Moderator: opts.moderator,
		FailOpen:  opts.failOpen,
		Now:       now,
	})
	if err != nil {
		t.Fatalf("new conversation: %v", err)
	}
	handler, err := NewHandler(Deps{
		Store:          store,
		Tokens:         tokens,
		Conversation:   conv,
		Summarizer:     opts.summarizer,
		MeetingBaseURL: "https://meet.example.test/",
		Now:            now,
	})
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return &testAPI{server: srv, store: store, clock: &clock}
}

func (api *testAPI) do(t *testing.T, method string, path string, accessToken string, body any) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encode body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, api.server.URL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}
	resp, err := api.server.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, raw
}

func (api *testAPI) expect(t *testing.T, method string, path string, accessToken string, body any, wantStatus int, dst any) {
	t.Helper()
	status, raw := api.do(t, method, path, accessToken, body)
	if status != wantStatus {
		t.Fatalf("%s %s status = %d, want %d (body %s)", method, path, status, wantStatus, string(raw))
	}
	if dst != nil {
		if err := json.Unmarshal(raw, dst); err != nil {
			t.Fatalf("decode %s %s: %v (body %s)", method, path, err, string(raw))
		}
	}
}

func (api *testAPI) expectError(t *testing.T, method string, path string, accessToken string, body any, wantStatus int, wantCode string) map[string]string {
	t.Helper()
	var payload struct {
		Error struct {
			Code     string            `json:"code"`
			Metadata map[string]string `json:"metadata"`
		} `json:"error"`
	}
	api.expect(t, method, path, accessToken, body, wantStatus, &payload)
	if payload.Error.Code != wantCode {
		t.Fatalf("%s %s code = %q, want %q", method, path, payload.Error.Code, wantCode)
	}
	return payload.Error.Metadata
}

type testMember struct {
	ID    string
	Token string
}

func (api *testAPI) register(t *testing.T, email string, name string) testMember {
	t.Helper()
	var resp authResponse
	api.expect(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email":    email,
		"name":     name,
		"password": "correct horse",
	}, http.StatusCreated, &resp)
	if resp.Token == "" || resp.User.ID == "" {
		t.Fatalf("register response = %+v", resp)
	}
	return testMember{ID: resp.User.ID, Token: resp.Token}
}

func (api *testAPI) setSkills(t *testing.T, member testMember, offered []string, wanted []string) {
	t.Helper()
	api.expect(t, http.MethodPut, "/api/profile", member.Token, map[string]any{
		"location":       "Lisbon",
		"bio":            "hello",
		"availability":   []string{"evenings"},
		"public":         true,
		"skills_offered": offered,
		"skills_wanted":  wanted,
	}, http.StatusOK, nil)
}

// community registers an admin and two members with complementary skills.
func (api *testAPI) community(t *testing.T) (admin testMember, alice testMember, bob testMember) {
	t.Helper()
	admin = api.register(t, "admin@example.com", "Admin")
	alice = api.register(t, "alice@example.com", "Alice")
	bob = api.register(t, "bob@example.com", "Bob")
	api.setSkills(t, alice, []string{"Guitar"}, []string{"Spanish"})
	api.setSkills(t, bob, []string{"Spanish"}, []string{"Guitar"})
	return admin, alice, bob
}

func (api *testAPI) createSwap(t *testing.T, from testMember, to testMember, offered string, wanted string) swapView {
	t.Helper()
	var created swapView
	api.expect(t, http.MethodPost, "/api/swaps", from.Token, map[string]string{
		"recipient_id":  to.ID,
		"offered_skill": offered,
		"wanted_skill":  wanted,
		"message":       "let's trade",
	}, http.StatusCreated, &created)
	return created
}

func (api *testAPI) acceptedSwap(t *testing.T, alice testMember, bob testMember) swapView {
	t.Helper()
	created := api.createSwap(t, alice, bob, "guitar", "spanish")
	var accepted swapView
	api.expect(t, http.MethodPost, "/api/swaps/"+created.ID+"/accept", bob.Token, nil, http.StatusOK, &accepted)
	return accepted
}

func TestNewHandlerRequiresDeps(t *testing.T) {
	if _, err := NewHandler(Deps{}); err == nil {
		t.Fatal("expected missing store error")
	}
}

func TestUpEndpoint(t *testing.T) {
	api := newTestAPI(t)
	status, body := api.do(t, http.MethodGet, "/up", "", nil)
	if status != http.StatusOK || string(body) != "OK" {
		t.Fatalf("GET /up = %d %q", status, string(body))
	}
}

func TestRegisterLoginAndMe(t *testing.T) {
	api := newTestAPI(t)
	admin := api.register(t, "Admin@Example.com", "Admin")
	member := api.register(t, "member@example.com", "Member")

	var me userView
	api.expect(t, http.MethodGet, "/api/auth/me", admin.Token, nil, http.StatusOK, &me)
	if me.Role != "admin" || me.Email != "admin@example.com" {
		t.Fatalf("first user = %+v, want admin with normalized email", me)
	}
	api.expect(t, http.MethodGet, "/api/auth/me", member.Token, nil, http.StatusOK, &me)
	if me.Role != "user" {
		t.Fatalf("second user role = %q, want user", me.Role)
	}

	var login authResponse
	api.expect(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "MEMBER@example.com",
		"password": "correct horse",
	}, http.StatusOK, &login)
	if login.User.ID != member.ID || login.Token == "" {
		t.Fatalf("login = %+v", login)
	}
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	api := newTestAPI(t)
	api.register(t, "ada@example.com", "Ada")

	api.expectError(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email":    "ADA@example.com",
		"name":     "Ada Again",
		"password": "correct horse",
	}, http.StatusConflict, "USER_EMAIL_TAKEN")
}

func TestRegisterValidation(t *testing.T) {
	api := newTestAPI(t)
	api.expectError(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email":    "ada@example.com",
		"name":     "Ada",
		"password": "short",
	}, http.StatusBadRequest, "USER_WEAK_PASSWORD")
	api.expectError(t, http.MethodPost, "/api/auth/register", "", map[string]any{
		"email":   "ada@example.com",
		"unknown": true,
	}, http.StatusBadRequest, "INVALID_ARGUMENT")
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	api := newTestAPI(t)
	api.register(t, "ada@example.com", "Ada")

	api.expectError(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "ada@example.com",
		"password": "wrong password",
	}, http.StatusUnauthorized, "AUTH_INVALID_CREDENTIALS")
	api.expectError(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "nobody@example.com",
		"password": "correct horse",
	}, http.StatusUnauthorized, "AUTH_INVALID_CREDENTIALS")
}

func TestAuthRequired(t *testing.T) {
	api := newTestAPI(t)
	api.expectError(t, http.MethodGet, "/api/auth/me", "", nil, http.StatusUnauthorized, "AUTH_REQUIRED")
	api.expectError(t, http.MethodGet, "/api/auth/me", "not-a-jwt", nil, http.StatusUnauthorized, "AUTH_TOKEN_INVALID")
}

func TestCookieSessionAndLogout(t *testing.T) {
	api := newTestAPI(t)
	body, _ := json.Marshal(map[string]string{"email": "ada@example.com", "name": "Ada", "password": "correct horse"})
	resp, err := api.server.Client().Post(api.server.URL+"/api/auth/register", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	_ = resp.Body.Close()

	var session *http.Cookie
	for _, cookie := range resp.Cookies() {
		if cookie.Name == tokenCookieName {
			session = cookie
		}
	}
	if session == nil || session.Value == "" || !session.HttpOnly {
		t.Fatalf("session cookie = %+v", session)
	}

	req, _ := http.NewRequest(http.MethodGet, api.server.URL+"/api/auth/me", nil)
	req.AddCookie(session)
	meResp, err := api.server.Client().Do(req)
	if err != nil {
		t.Fatalf("me: %v", err)
	}
	_ = meResp.Body.Close()
	if meResp.StatusCode != http.StatusOK {
		t.Fatalf("cookie auth status = %d, want 200", meResp.StatusCode)
	}

	status, _ := api.do(t, http.MethodPost, "/api/auth/logout", "", nil)
	if status != http.StatusNoContent {
		t.Fatalf("logout status = %d, want 204", status)
	}
}

func TestProfileUpdateAndBrowse(t *testing.T) {
	api := newTestAPI(t)
	_, alice, bob := api.community(t)

	var own profileView
	api.expect(t, http.MethodGet, "/api/profile", alice.Token, nil, http.StatusOK, &own)
	if len(own.SkillsOffered) != 1 || own.SkillsOffered[0] != "Guitar" || own.Location != "Lisbon" {
		t.Fatalf("own profile = %+v", own)
	}

	var page listResponse[profileView]
	api.expect(t, http.MethodGet, "/api/users?skill=guitar", bob.Token, nil, http.StatusOK, &page)
	if len(page.Items) != 1 || page.Items[0].UserID != alice.ID {
		t.Fatalf("browse by skill = %+v, want alice only", page.Items)
	}
	api.expect(t, http.MethodGet, "/api/users?skill=guitar", alice.Token, nil, http.StatusOK, &page)
	if len(page.Items) != 0 {
		t.Fatalf("browse excludes caller, got %+v", page.Items)
	}
	api.expectError(t, http.MethodGet, "/api/users?availability=never", alice.Token, nil, http.StatusBadRequest, "PROFILE_INVALID")
}

func TestPrivateProfileHiddenFromOthers(t *testing.T) {
	api := newTestAPI(t)
	admin, alice, bob := api.community(t)

	api.expect(t, http.MethodPut, "/api/profile", alice.Token, map[string]any{
		"public":         false,
		"skills_offered": []string{"Guitar"},
	}, http.StatusOK, nil)

	api.expectError(t, http.MethodGet, "/api/users/"+alice.ID, bob.Token, nil, http.StatusNotFound, "NOT_FOUND")
	api.expect(t, http.MethodGet, "/api/users/"+alice.ID, alice.Token, nil, http.StatusOK, nil)
	api.expect(t, http.MethodGet, "/api/users/"+alice.ID, admin.Token, nil, http.StatusOK, nil)

	var page listResponse[profileView]
	api.expect(t, http.MethodGet, "/api/users", bob.Token, nil, http.StatusOK, &page)
	for _, item := range page.Items {
		if item.UserID == alice.ID {
			t.Fatal("private profile listed in browse")
		}
	}
}

func TestProfileUpdateWithoutPublicKeepsVisibility(t *testing.T) {
	api := newTestAPI(t)
	_, alice, bob := api.community(t)

	var updated profileView
	api.expect(t, http.MethodPut, "/api/profile", alice.Token, map[string]any{
		"bio":            "still teaching",
		"skills_offered": []string{"Guitar"},
	}, http.StatusOK, &updated)
	if !updated.Public || updated.Bio != "still teaching" {
		t.Fatalf("updated profile = %+v, want public with new bio", updated)
	}
	api.expect(t, http.MethodGet, "/api/users/"+alice.ID, bob.Token, nil, http.StatusOK, nil)

	api.expect(t, http.MethodPut, "/api/profile", alice.Token, map[string]any{
		"public":         false,
		"skills_offered": []string{"Guitar"},
	}, http.StatusOK, nil)
	api.expect(t, http.MethodPut, "/api/profile", alice.Token, map[string]any{
		"bio":            "back later",
		"skills_offered": []string{"Guitar"},
	}, http.StatusOK, &updated)
	if updated.Public {
		t.Fatalf("updated profile = %+v, want private kept", updated)
	}
	api.expectError(t, http.MethodGet, "/api/users/"+alice.ID, bob.Token, nil, http.StatusNotFound, "NOT_FOUND")
}

func TestRequestIDHeader(t *testing.T) {
	api := newTestAPI(t)
	resp, err := api.server.Client().Get(api.server.URL + "/up")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	_ = resp.Body.Close()
	if resp.Header.Get("X-Request-ID") == "" {
		t.Fatal("expected request id header")
	}
}

var errUpstream = errors.New("upstream down")
