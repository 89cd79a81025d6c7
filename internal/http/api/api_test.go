package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/botdeck/botdeck/internal/analysis"
	"github.com/botdeck/botdeck/internal/config"
	"github.com/botdeck/botdeck/internal/session"
	"github.com/botdeck/botdeck/internal/store"
	"github.com/gin-gonic/gin"
	"github.com/pquerna/otp/totp"
)

type stubAnalyzer struct {
	report *analysis.Report
	err    error
}

func (s *stubAnalyzer) Analyze(ctx context.Context, code string) (*analysis.Report, error) {
	return s.report, s.err
}

func newTestRouter(t *testing.T, analyzer analysis.Analyzer) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	r := gin.New()
	RegisterRoutes(r, Deps{
		Store:    store.NewMemoryStore(),
		Sessions: session.NewManager(time.Hour),
		Session:  config.SessionConfig{Secret: "test-secret", Expiry: time.Hour},
		Analyzer: analyzer,
	})
	return r
}

// doJSON performs a request with an optional JSON body and session cookie.
func doJSON(t *testing.T, r *gin.Engine, method, path, body, cookie string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: "botdeck_session", Value: cookie})
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// sessionCookie extracts the session cookie value from a response.
func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	for _, ck := range w.Result().Cookies() {
		if ck.Name == "botdeck_session" {
			return ck.Value
		}
	}
	t.Fatalf("session cookie not set")
	return ""
}

func registerUser(t *testing.T, r *gin.Engine, username, password string) string {
	t.Helper()
	w := doJSON(t, r, http.MethodPost, "/api/register", `{"username":"`+username+`","password":"`+password+`"}`, "")
	if w.Code != http.StatusCreated {
		t.Fatalf("register status = %d, body %s", w.Code, w.Body.String())
	}
	return sessionCookie(t, w)
}

func createBot(t *testing.T, r *gin.Engine, cookie, name, token string) uint64 {
	t.Helper()
	w := doJSON(t, r, http.MethodPost, "/api/bots", `{"name":"`+name+`","token":"`+token+`"}`, cookie)
	if w.Code != http.StatusCreated {
		t.Fatalf("create bot status = %d, body %s", w.Code, w.Body.String())
	}
	var payload struct {
		ID       uint64 `json:"id"`
		IsActive bool   `json:"isActive"`
	}
	if errDecode := json.Unmarshal(w.Body.Bytes(), &payload); errDecode != nil {
		t.Fatalf("decode bot: %v", errDecode)
	}
	if payload.IsActive {
		t.Fatalf("new bot should not be active")
	}
	return payload.ID
}

func TestHealthz(t *testing.T) {
	r := newTestRouter(t, &stubAnalyzer{})
	w := doJSON(t, r, http.MethodGet, "/healthz", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("healthz status = %d", w.Code)
	}
}

func TestRegisterLoginLogout(t *testing.T) {
	r := newTestRouter(t, &stubAnalyzer{})

	cookie := registerUser(t, r, "alice", "hunter22")

	w := doJSON(t, r, http.MethodGet, "/api/user", "", cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("me status = %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "hunter22") {
		t.Fatalf("password leaked into response: %s", w.Body.String())
	}

	w = doJSON(t, r, http.MethodPost, "/api/login", `{"username":"alice","password":"wrong"}`, "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("bad login status = %d", w.Code)
	}

	w = doJSON(t, r, http.MethodPost, "/api/login", `{"username":"nobody","password":"hunter22"}`, "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("unknown user login status = %d", w.Code)
	}

	w = doJSON(t, r, http.MethodPost, "/api/login", `{"username":"alice","password":"hunter22"}`, "")
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d, body %s", w.Code, w.Body.String())
	}
	fresh := sessionCookie(t, w)

	w = doJSON(t, r, http.MethodPost, "/api/logout", "", fresh)
	if w.Code != http.StatusOK {
		t.Fatalf("logout status = %d", w.Code)
	}

	// The revoked session no longer authenticates.
	w = doJSON(t, r, http.MethodGet, "/api/user", "", fresh)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("revoked session status = %d", w.Code)
	}
}

func TestRegisterValidation(t *testing.T) {
	r := newTestRouter(t, &stubAnalyzer{})

	w := doJSON(t, r, http.MethodPost, "/api/register", `{"username":"","password":""}`, "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("empty register status = %d", w.Code)
	}

	registerUser(t, r, "bob", "secret123")
	w = doJSON(t, r, http.MethodPost, "/api/register", `{"username":"bob","password":"other456"}`, "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("duplicate register status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "username already taken") {
		t.Fatalf("unexpected duplicate body: %s", w.Body.String())
	}
}

func TestUnauthenticatedWall(t *testing.T) {
	r := newTestRouter(t, &stubAnalyzer{})

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/user"},
		{http.MethodGet, "/api/bots"},
		{http.MethodPost, "/api/bots"},
		{http.MethodPost, "/api/analyze-code"},
		{http.MethodPost, "/api/logout"},
	}
	for _, p := range paths {
		w := doJSON(t, r, p.method, p.path, "", "")
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s without cookie: status = %d", p.method, p.path, w.Code)
		}
	}

	w := doJSON(t, r, http.MethodGet, "/api/bots", "", "not-a-token")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("garbage cookie status = %d", w.Code)
	}
}

func TestBotLifecycle(t *testing.T) {
	r := newTestRouter(t, &stubAnalyzer{})
	cookie := registerUser(t, r, "carol", "secret123")

	createBot(t, r, cookie, "greeter", "tok-1")

	w := doJSON(t, r, http.MethodGet, "/api/bots", "", cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	var bots []map[string]any
	if errDecode := json.Unmarshal(w.Body.Bytes(), &bots); errDecode != nil {
		t.Fatalf("decode list: %v", errDecode)
	}
	if len(bots) != 1 {
		t.Fatalf("bots = %d, want 1", len(bots))
	}

	w = doJSON(t, r, http.MethodPatch, "/api/bots/1", `{"name":"renamed","isActive":true}`, cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("update status = %d, body %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"renamed"`) || !strings.Contains(w.Body.String(), `"isActive":true`) {
		t.Fatalf("update body: %s", w.Body.String())
	}
	// Token was not part of the patch and must survive.
	if !strings.Contains(w.Body.String(), `"tok-1"`) {
		t.Fatalf("token lost on partial update: %s", w.Body.String())
	}

	w = doJSON(t, r, http.MethodDelete, "/api/bots/1", "", cookie)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", w.Code)
	}

	w = doJSON(t, r, http.MethodGet, "/api/bots/1/commands", "", cookie)
	if w.Code != http.StatusForbidden {
		t.Fatalf("commands of deleted bot status = %d", w.Code)
	}
}

func TestBotCreateValidation(t *testing.T) {
	r := newTestRouter(t, &stubAnalyzer{})
	cookie := registerUser(t, r, "dave", "secret123")

	w := doJSON(t, r, http.MethodPost, "/api/bots", `{"name":"","token":""}`, cookie)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("empty bot status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "validation failed") {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
}

func TestOwnershipIsolation(t *testing.T) {
	r := newTestRouter(t, &stubAnalyzer{})
	alice := registerUser(t, r, "alice", "secret123")
	mallory := registerUser(t, r, "mallory", "secret123")

	createBot(t, r, alice, "private", "tok-a")

	// A foreign bot and a missing bot answer identically.
	for _, path := range []string{"/api/bots/1/commands", "/api/bots/99/commands"} {
		w := doJSON(t, r, http.MethodGet, path, "", mallory)
		if w.Code != http.StatusForbidden {
			t.Fatalf("GET %s as mallory: status = %d", path, w.Code)
		}
	}

	w := doJSON(t, r, http.MethodPatch, "/api/bots/1", `{"name":"stolen"}`, mallory)
	if w.Code != http.StatusForbidden {
		t.Fatalf("foreign patch status = %d", w.Code)
	}
	w = doJSON(t, r, http.MethodDelete, "/api/bots/1", "", mallory)
	if w.Code != http.StatusForbidden {
		t.Fatalf("foreign delete status = %d", w.Code)
	}

	// The owner still sees the untouched bot.
	w = doJSON(t, r, http.MethodGet, "/api/bots", "", alice)
	if !strings.Contains(w.Body.String(), `"private"`) {
		t.Fatalf("owner list: %s", w.Body.String())
	}
}

func TestCommandLifecycle(t *testing.T) {
	r := newTestRouter(t, &stubAnalyzer{})
	cookie := registerUser(t, r, "erin", "secret123")
	createBot(t, r, cookie, "helper", "tok-1")
	createBot(t, r, cookie, "other", "tok-2")

	w := doJSON(t, r, http.MethodPost, "/api/bots/1/commands", `{"name":"ping","description":"replies pong","code":"reply('pong')"}`, cookie)
	if w.Code != http.StatusCreated {
		t.Fatalf("create command status = %d, body %s", w.Code, w.Body.String())
	}

	w = doJSON(t, r, http.MethodPost, "/api/bots/1/commands", `{"name":"","description":"","code":""}`, cookie)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("empty command status = %d", w.Code)
	}

	w = doJSON(t, r, http.MethodGet, "/api/bots/1/commands", "", cookie)
	var commands []map[string]any
	if errDecode := json.Unmarshal(w.Body.Bytes(), &commands); errDecode != nil {
		t.Fatalf("decode commands: %v", errDecode)
	}
	if len(commands) != 1 {
		t.Fatalf("commands = %d, want 1", len(commands))
	}

	w = doJSON(t, r, http.MethodPatch, "/api/bots/1/commands/1", `{"description":"updated"}`, cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("patch command status = %d, body %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"updated"`) || !strings.Contains(w.Body.String(), `"ping"`) {
		t.Fatalf("patch command body: %s", w.Body.String())
	}

	// The command belongs to bot 1, not bot 2.
	w = doJSON(t, r, http.MethodPatch, "/api/bots/2/commands/1", `{"description":"x"}`, cookie)
	if w.Code != http.StatusNotFound {
		t.Fatalf("cross-bot command patch status = %d", w.Code)
	}

	w = doJSON(t, r, http.MethodDelete, "/api/bots/1/commands/1", "", cookie)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete command status = %d", w.Code)
	}
	w = doJSON(t, r, http.MethodDelete, "/api/bots/1/commands/1", "", cookie)
	if w.Code != http.StatusNotFound {
		t.Fatalf("delete missing command status = %d", w.Code)
	}
}

func TestAnalytics(t *testing.T) {
	r := newTestRouter(t, &stubAnalyzer{})
	cookie := registerUser(t, r, "frank", "secret123")
	createBot(t, r, cookie, "stats", "tok-1")

	w := doJSON(t, r, http.MethodPost, "/api/bots/1/analytics", `{"metrics":{"messages":5},"timestamp":"2024-01-01T00:00:00Z"}`, cookie)
	if w.Code != http.StatusCreated {
		t.Fatalf("save analytics status = %d, body %s", w.Code, w.Body.String())
	}
	w = doJSON(t, r, http.MethodPost, "/api/bots/1/analytics", `{"metrics":{"messages":9},"timestamp":"2024-06-01T00:00:00Z"}`, cookie)
	if w.Code != http.StatusCreated {
		t.Fatalf("save analytics status = %d", w.Code)
	}

	w = doJSON(t, r, http.MethodPost, "/api/bots/1/analytics", `{"metrics":null}`, cookie)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("null metrics status = %d", w.Code)
	}

	w = doJSON(t, r, http.MethodGet, "/api/bots/1/analytics", "", cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("list analytics status = %d", w.Code)
	}
	var records []struct {
		Timestamp string `json:"timestamp"`
	}
	if errDecode := json.Unmarshal(w.Body.Bytes(), &records); errDecode != nil {
		t.Fatalf("decode analytics: %v", errDecode)
	}
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}
	if records[0].Timestamp != "2024-06-01T00:00:00Z" {
		t.Fatalf("newest record first, got %s", records[0].Timestamp)
	}
}

func TestTOTPFlow(t *testing.T) {
	r := newTestRouter(t, &stubAnalyzer{})
	cookie := registerUser(t, r, "heidi", "secret123")

	w := doJSON(t, r, http.MethodPost, "/api/account/totp/prepare", "", cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("prepare status = %d, body %s", w.Code, w.Body.String())
	}
	var prepared struct {
		Secret string `json:"secret"`
		URL    string `json:"url"`
	}
	if errDecode := json.Unmarshal(w.Body.Bytes(), &prepared); errDecode != nil {
		t.Fatalf("decode prepare: %v", errDecode)
	}
	if prepared.Secret == "" || prepared.URL == "" {
		t.Fatalf("prepare returned empty material: %+v", prepared)
	}

	// Preparing alone must not turn the factor on.
	w = doJSON(t, r, http.MethodPost, "/api/login", `{"username":"heidi","password":"secret123"}`, "")
	if w.Code != http.StatusOK {
		t.Fatalf("login before confirm status = %d", w.Code)
	}

	code, errCode := totp.GenerateCode(prepared.Secret, time.Now())
	if errCode != nil {
		t.Fatalf("generate code: %v", errCode)
	}
	w = doJSON(t, r, http.MethodPost, "/api/account/totp/confirm", `{"secret":"`+prepared.Secret+`","code":"`+code+`"}`, cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("confirm status = %d, body %s", w.Code, w.Body.String())
	}

	// Password alone no longer signs in.
	w = doJSON(t, r, http.MethodPost, "/api/login", `{"username":"heidi","password":"secret123"}`, "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("login without code status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "totpRequired") {
		t.Fatalf("missing totpRequired hint: %s", w.Body.String())
	}

	code, errCode = totp.GenerateCode(prepared.Secret, time.Now())
	if errCode != nil {
		t.Fatalf("generate code: %v", errCode)
	}
	w = doJSON(t, r, http.MethodPost, "/api/login", `{"username":"heidi","password":"secret123","totpCode":"`+code+`"}`, "")
	if w.Code != http.StatusOK {
		t.Fatalf("login with code status = %d, body %s", w.Code, w.Body.String())
	}

	code, errCode = totp.GenerateCode(prepared.Secret, time.Now())
	if errCode != nil {
		t.Fatalf("generate code: %v", errCode)
	}
	w = doJSON(t, r, http.MethodPost, "/api/account/totp/disable", `{"code":"`+code+`"}`, cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("disable status = %d, body %s", w.Code, w.Body.String())
	}

	w = doJSON(t, r, http.MethodPost, "/api/login", `{"username":"heidi","password":"secret123"}`, "")
	if w.Code != http.StatusOK {
		t.Fatalf("login after disable status = %d", w.Code)
	}
}

func TestAnalyzeCode(t *testing.T) {
	stub := &stubAnalyzer{report: &analysis.Report{
		Suggestions: []string{"use a switch"},
		Security:    []string{},
		Performance: []string{},
	}}
	r := newTestRouter(t, stub)
	cookie := registerUser(t, r, "grace", "secret123")

	w := doJSON(t, r, http.MethodPost, "/api/analyze-code", `{"code":""}`, cookie)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("empty code status = %d", w.Code)
	}

	w = doJSON(t, r, http.MethodPost, "/api/analyze-code", `{"code":"client.on('message', () => {})"}`, cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("analyze status = %d, body %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "use a switch") {
		t.Fatalf("analyze body: %s", w.Body.String())
	}

	stub.report = nil
	stub.err = errors.New("provider unreachable")
	w = doJSON(t, r, http.MethodPost, "/api/analyze-code", `{"code":"x"}`, cookie)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("analyze failure status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "provider unreachable") {
		t.Fatalf("failure body: %s", w.Body.String())
	}
}
