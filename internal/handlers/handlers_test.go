package handlers

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/harentsoaR/counsel-api/internal/broker"
	"github.com/harentsoaR/counsel-api/internal/cache"
	"github.com/harentsoaR/counsel-api/internal/repository/memory"
	"github.com/harentsoaR/counsel-api/internal/services"
	"github.com/harentsoaR/counsel-api/internal/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testAPI struct {
	t      *testing.T
	router *gin.Engine
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	store := memory.NewStore()
	logger := zap.NewNop()
	tokens := utils.NewTokenManager("handler-secret", time.Hour)
	audit := services.NewAuditService(store.Audit, logger)
	hotlines := services.NewHotlineService(cache.NewMemoryCache(), "", time.Hour, logger)

	auth := services.NewAuthService(store.Users, store.Profiles, tokens, bcrypt.MinCost, audit, logger)
	if err := auth.EnsureAdmin(context.Background(), "admin@example.com", "admin-password"); err != nil {
		t.Fatalf("ensure admin: %v", err)
	}

	h := &Handler{
		Auth:        auth,
		Profiles:    services.NewProfileService(store.Users, store.Profiles, store.Sessions, audit),
		Booking:     services.NewBookingService(store.Users, store.Profiles, store.Sessions, audit, nil, logger),
		Reviews:     services.NewReviewService(store.Reviews, store.Sessions, audit),
		Chat:        services.NewChatService(store.Chat, store.Sessions, store.Profiles, broker.NewMemoryBroker(), audit, logger, "salt"),
		Hotlines:    hotlines,
		Emergencies: services.NewEmergencyService(store.Emergencies, hotlines, audit, logger),
		Audit:       audit,
		Logger:      logger,
	}
	r := NewRouter(h, RouterConfig{
		CORSOrigins:       []string{"http://localhost:3000"},
		MaxRequestsPerMin: 10000,
		Tokens:            tokens,
		Logger:            logger,
	})
	return &testAPI{t: t, router: r}
}

func (a *testAPI) do(method, path, token string, body any) (int, map[string]any) {
	a.t.Helper()
	code, raw := a.raw(method, path, token, body)
	out := map[string]any{}
	if len(raw) > 0 && raw[0] == '{' {
		if err := json.Unmarshal(raw, &out); err != nil {
			a.t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return code, out
}

func (a *testAPI) raw(method, path, token string, body any) (int, []byte) {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w.Code, w.Body.Bytes()
}

// signup registers and logs in, returning the token and user id.
func (a *testAPI) signup(name, email, role string) (string, string) {
	a.t.Helper()
	code, body := a.do(http.MethodPost, "/api/auth/register", "", gin.H{
		"fullName": name, "email": email, "password": "password123", "role": role,
	})
	if code != http.StatusCreated {
		a.t.Fatalf("register %s: %d %v", email, code, body)
	}
	return a.login(email, "password123"), body["id"].(string)
}

func (a *testAPI) login(email, password string) string {
	a.t.Helper()
	code, body := a.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": email, "password": password})
	if code != http.StatusOK {
		a.t.Fatalf("login %s: %d %v", email, code, body)
	}
	return body["token"].(string)
}

func slotJSON(day time.Time, h1, h2 int) gin.H {
	return gin.H{
		"start": day.Add(time.Duration(h1) * time.Hour).Format(time.RFC3339),
		"end":   day.Add(time.Duration(h2) * time.Hour).Format(time.RFC3339),
	}
}

var bookingDay = time.Date(2099, 1, 5, 0, 0, 0, 0, time.UTC)

func (a *testAPI) bookable() (clientToken, clientID, counsellorToken, counsellorID string) {
	a.t.Helper()
	clientToken, clientID = a.signup("Thandi", "thandi@example.com", "client")
	counsellorToken, counsellorID = a.signup("Dr Naidoo", "naidoo@example.com", "counsellor")

	code, body := a.do(http.MethodPut, "/api/counselors/"+counsellorID, counsellorToken, gin.H{
		"specialties":  []string{"Anxiety"},
		"languages":    []string{"English"},
		"availability": []gin.H{slotJSON(bookingDay, 9, 17)},
	})
	if code != http.StatusOK {
		a.t.Fatalf("set availability: %d %v", code, body)
	}
	return
}

func (a *testAPI) bookSession(token, counsellorID string, h1, m1, h2, m2 int) (int, map[string]any) {
	a.t.Helper()
	start := bookingDay.Add(time.Duration(h1)*time.Hour + time.Duration(m1)*time.Minute)
	end := bookingDay.Add(time.Duration(h2)*time.Hour + time.Duration(m2)*time.Minute)
	return a.do(http.MethodPost, "/api/sessions", token, gin.H{
		"counsellorId": counsellorID,
		"startTime":    start.Format(time.RFC3339),
		"endTime":      end.Format(time.RFC3339),
	})
}

func TestBookingFlowOverHTTP(t *testing.T) {
	api := newTestAPI(t)
	clientToken, _, counsellorToken, counsellorID := api.bookable()

	code, session := api.bookSession(clientToken, counsellorID, 10, 0, 11, 0)
	if code != http.StatusCreated || session["status"] != "requested" {
		t.Fatalf("book: %d %v", code, session)
	}
	sessionID := session["id"].(string)

	if code, body := api.bookSession(clientToken, counsellorID, 10, 30, 11, 30); code != http.StatusConflict {
		t.Fatalf("overlap: expected 409, got %d %v", code, body)
	}
	if code, _ := api.do(http.MethodPut, "/api/sessions/"+sessionID, clientToken, gin.H{"status": "confirmed"}); code != http.StatusForbidden {
		t.Fatalf("client confirm: expected 403, got %d", code)
	}
	if code, _ := api.do(http.MethodPut, "/api/sessions/"+sessionID, counsellorToken, gin.H{"status": "completed"}); code != http.StatusConflict {
		t.Fatalf("complete requested: expected 409, got %d", code)
	}
	if code, body := api.do(http.MethodPut, "/api/sessions/"+sessionID, counsellorToken, gin.H{"status": "confirmed"}); code != http.StatusOK || body["status"] != "confirmed" {
		t.Fatalf("confirm: %d %v", code, body)
	}
	if code, body := api.do(http.MethodPut, "/api/sessions/"+sessionID, counsellorToken, gin.H{"status": "completed"}); code != http.StatusOK || body["status"] != "completed" {
		t.Fatalf("complete: %d %v", code, body)
	}

	review := gin.H{"sessionId": sessionID, "rating": 5, "text": "Helpful"}
	if code, body := api.do(http.MethodPost, "/api/counselors/"+counsellorID+"/reviews", clientToken, review); code != http.StatusCreated {
		t.Fatalf("review: %d %v", code, body)
	}
	if code, _ := api.do(http.MethodPost, "/api/counselors/"+counsellorID+"/reviews", clientToken, review); code != http.StatusConflict {
		t.Fatalf("repeat review: expected 409, got %d", code)
	}
	code, summary := api.do(http.MethodGet, "/api/counselors/"+counsellorID+"/reviews", clientToken, nil)
	if code != http.StatusOK || summary["count"].(float64) != 1 || summary["averageRating"].(float64) != 5 {
		t.Fatalf("list reviews: %d %v", code, summary)
	}

	code, raw := api.raw(http.MethodGet, "/api/sessions?status=completed", clientToken, nil)
	var sessions []map[string]any
	_ = json.Unmarshal(raw, &sessions)
	if code != http.StatusOK || len(sessions) != 1 {
		t.Fatalf("list sessions: %d %s", code, raw)
	}
}

func TestErrorStatuses(t *testing.T) {
	api := newTestAPI(t)
	clientToken, clientID, counsellorToken, counsellorID := api.bookable()
	_, otherID := api.signup("Sipho", "sipho@example.com", "client")

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		body   any
		want   int
	}{
		{"no token", http.MethodGet, "/api/counselors", "", nil, http.StatusUnauthorized},
		{"bad token", http.MethodGet, "/api/counselors", "garbage", nil, http.StatusUnauthorized},
		{"bad id", http.MethodGet, "/api/sessions/not-an-id", clientToken, nil, http.StatusBadRequest},
		{"unknown session", http.MethodGet, "/api/sessions/64b7f0000000000000000000", clientToken, nil, http.StatusNotFound},
		{"admin self-registration", http.MethodPost, "/api/auth/register", "", gin.H{"fullName": "X", "email": "x@example.com", "password": "password123", "role": "admin"}, http.StatusUnprocessableEntity},
		{"duplicate email", http.MethodPost, "/api/auth/register", "", gin.H{"fullName": "T", "email": "thandi@example.com", "password": "password123"}, http.StatusConflict},
		{"wrong password", http.MethodPost, "/api/auth/login", "", gin.H{"email": "thandi@example.com", "password": "nope-nope"}, http.StatusUnauthorized},
		{"bad time", http.MethodPost, "/api/sessions", clientToken, gin.H{"counsellorId": counsellorID, "startTime": "tomorrow", "endTime": "later"}, http.StatusBadRequest},
		{"book with client as counsellor", http.MethodPost, "/api/sessions", clientToken, gin.H{
			"counsellorId": otherID,
			"startTime":    bookingDay.Add(10 * time.Hour).Format(time.RFC3339),
			"endTime":      bookingDay.Add(11 * time.Hour).Format(time.RFC3339),
		}, http.StatusUnprocessableEntity},
		{"read other client profile", http.MethodGet, "/api/clients/" + otherID, clientToken, nil, http.StatusForbidden},
		{"counsellor reads unrelated client", http.MethodGet, "/api/clients/" + clientID, counsellorToken, nil, http.StatusForbidden},
		{"client audit log", http.MethodGet, "/api/audit/logs", clientToken, nil, http.StatusForbidden},
		{"client emergency list", http.MethodGet, "/api/emergencies", clientToken, nil, http.StatusForbidden},
		{"counsellor raises emergency", http.MethodPost, "/api/emergencies", counsellorToken, gin.H{"details": "help"}, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if code, body := api.do(tt.method, tt.path, tt.token, tt.body); code != tt.want {
				t.Fatalf("expected %d, got %d %v", tt.want, code, body)
			}
		})
	}
}

func TestUserVisibility(t *testing.T) {
	api := newTestAPI(t)
	clientToken, clientID, counsellorToken, _ := api.bookable()

	_, self := api.do(http.MethodGet, "/api/users/"+clientID, clientToken, nil)
	if self["email"] != "thandi@example.com" {
		t.Fatalf("owner should see email, got %v", self)
	}
	if _, leaked := self["password"]; leaked {
		t.Fatalf("password hash must never be serialised")
	}
	_, public := api.do(http.MethodGet, "/api/users/"+clientID, counsellorToken, nil)
	if _, ok := public["email"]; ok || public["fullName"] != "Thandi" {
		t.Fatalf("others should get the public view, got %v", public)
	}
}

func TestAdminEndpointsAndEmergencies(t *testing.T) {
	api := newTestAPI(t)
	clientToken, _, _, _ := api.bookable()
	adminToken := api.login("admin@example.com", "admin-password")

	code, emergency := api.do(http.MethodPost, "/api/emergencies", clientToken, gin.H{"details": "I feel unsafe"})
	if code != http.StatusCreated || len(emergency["hotlines"].([]any)) == 0 {
		t.Fatalf("emergency: %d %v", code, emergency)
	}

	code, raw := api.raw(http.MethodGet, "/api/emergencies", adminToken, nil)
	var list []map[string]any
	_ = json.Unmarshal(raw, &list)
	if code != http.StatusOK || len(list) != 1 {
		t.Fatalf("list emergencies: %d %s", code, raw)
	}

	code, raw = api.raw(http.MethodGet, "/api/audit/logs?action=emergency.requested", adminToken, nil)
	var logs []map[string]any
	_ = json.Unmarshal(raw, &logs)
	if code != http.StatusOK || len(logs) != 1 {
		t.Fatalf("audit logs: %d %s", code, raw)
	}

	code, raw = api.raw(http.MethodGet, "/api/hotlines", clientToken, nil)
	if code != http.StatusOK || !strings.Contains(string(raw), "0800") {
		t.Fatalf("hotlines: %d %s", code, raw)
	}

	if code, body := api.do(http.MethodGet, "/healthz", "", nil); code != http.StatusOK || body["status"] != "ok" {
		t.Fatalf("healthz: %d %v", code, body)
	}
}

func TestChatOverHTTP(t *testing.T) {
	api := newTestAPI(t)
	clientToken, clientID, counsellorToken, counsellorID := api.bookable()

	_, session := api.bookSession(clientToken, counsellorID, 10, 0, 11, 0)
	code, room := api.do(http.MethodPost, "/api/chatrooms", clientToken, gin.H{"sessionId": session["id"], "anonymous": true})
	if code != http.StatusCreated {
		t.Fatalf("create room: %d %v", code, room)
	}
	roomPath := "/api/chatrooms/" + room["id"].(string)

	code, msg := api.do(http.MethodPost, roomPath+"/messages", clientToken, gin.H{"body": "hello"})
	if code != http.StatusCreated {
		t.Fatalf("post: %d %v", code, msg)
	}
	if _, ok := msg["senderId"]; ok || !strings.HasPrefix(msg["senderAlias"].(string), "anon-") {
		t.Fatalf("client should post anonymously, got %v", msg)
	}
	if strings.Contains(msg["senderAlias"].(string), clientID) {
		t.Fatalf("alias leaks the client id")
	}

	code, raw := api.raw(http.MethodGet, roomPath+"/messages", counsellorToken, nil)
	var history []map[string]any
	_ = json.Unmarshal(raw, &history)
	if code != http.StatusOK || len(history) != 1 {
		t.Fatalf("history: %d %s", code, raw)
	}

	outsider, _ := api.signup("Sipho", "sipho@example.com", "client")
	if code, _ := api.do(http.MethodPost, roomPath+"/messages", outsider, gin.H{"body": "hi"}); code != http.StatusForbidden {
		t.Fatalf("outsider post: expected 403, got %d", code)
	}
}

func TestChatStream(t *testing.T) {
	api := newTestAPI(t)
	clientToken, _, counsellorToken, counsellorID := api.bookable()
	_, session := api.bookSession(clientToken, counsellorID, 10, 0, 11, 0)
	_, room := api.do(http.MethodPost, "/api/chatrooms", clientToken, gin.H{"sessionId": session["id"]})
	roomPath := "/api/chatrooms/" + room["id"].(string)
	api.do(http.MethodPost, roomPath+"/messages", clientToken, gin.H{"body": "from history"})

	srv := httptest.NewServer(api.router)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+roomPath+"/stream", nil)
	req.Header.Set("Authorization", "Bearer "+counsellorToken)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	defer resp.Body.Close()
	if !strings.HasPrefix(resp.Header.Get("Content-Type"), "text/event-stream") {
		t.Fatalf("unexpected content type %q", resp.Header.Get("Content-Type"))
	}

	lines := bufio.NewScanner(resp.Body)
	nextData := func() string {
		t.Helper()
		for lines.Scan() {
			if line := lines.Text(); strings.HasPrefix(line, "data:") {
				return line
			}
		}
		t.Fatalf("stream ended: %v", lines.Err())
		return ""
	}

	if got := nextData(); !strings.Contains(got, "from history") {
		t.Fatalf("expected replayed message, got %q", got)
	}
	api.do(http.MethodPost, roomPath+"/messages", clientToken, gin.H{"body": "live one"})
	if got := nextData(); !strings.Contains(got, "live one") {
		t.Fatalf("expected live message, got %q", got)
	}
}
