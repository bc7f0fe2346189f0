package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"helpdesk-go/internal/config"
	"helpdesk-go/internal/model"
	"helpdesk-go/internal/recommend"
	"helpdesk-go/internal/repository"
	"helpdesk-go/internal/service"
	"helpdesk-go/pkg/database"
	"helpdesk-go/pkg/token"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type memBlacklist struct {
	mu     sync.Mutex
	tokens map[string]bool
}

func (m *memBlacklist) Add(ctx context.Context, tok string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tokens == nil {
		m.tokens = map[string]bool{}
	}
	m.tokens[tok] = true
	return nil
}

func (m *memBlacklist) Contains(ctx context.Context, tok string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tokens[tok], nil
}

type apiResponse struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testServer struct {
	t      *testing.T
	router *gin.Engine
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	users := repository.NewUserRepository(db)
	tickets := repository.NewTicketRepository(db)
	records := repository.NewRecordRepository(db)
	if err := records.CreateBatch([]model.HistoricalRecord{
		{Category: "Network", Issue: "vpn drops connection", Resolution: "reinstall vpn client"},
		{Category: "Network", Issue: "vpn slow speed", Resolution: "switch vpn server"},
		{Category: "Hardware", Issue: "printer jammed paper", Resolution: "remove jammed paper"},
		{Category: "Hardware", Issue: "monitor flickering screen", Resolution: "replace monitor cable"},
	}); err != nil {
		t.Fatalf("seed records: %v", err)
	}

	jwtManager := token.NewJWTManager("test-secret", 1, 1)
	userSvc := service.NewUserService(users, &memBlacklist{}, jwtManager)
	if err := userSvc.EnsureAdmin(config.AdminSeedConfig{Username: "admin", Password: "admin123"}); err != nil {
		t.Fatalf("EnsureAdmin: %v", err)
	}
	recSvc, err := service.NewRecommendationService(context.Background(), service.RecommendationConfig{
		Source:  records,
		Options: recommend.DefaultOptions(),
	})
	if err != nil {
		t.Fatalf("NewRecommendationService: %v", err)
	}
	ticketSvc := service.NewTicketService(tickets, recSvc, nil, nil, nil)
	adminSvc := service.NewAdminService(users, tickets, records, ticketSvc, recSvc, nil, nil)

	r := gin.New()
	RegisterRoutes(r, Services{User: userSvc, Ticket: ticketSvc, Admin: adminSvc, Recommendation: recSvc, JWT: jwtManager})
	return &testServer{t: t, router: r}
}

func (s *testServer) do(method, path, tok string, body interface{}) (int, apiResponse) {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			s.t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var resp apiResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	return w.Code, resp
}

func (s *testServer) login(username, password string) string {
	s.t.Helper()
	code, resp := s.do(http.MethodPost, "/api/v1/users/login", "", gin.H{"username": username, "password": password})
	if code != http.StatusOK {
		s.t.Fatalf("login %s: %d %s", username, code, resp.Message)
	}
	var data struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(resp.Data, &data); err != nil || data.Token == "" {
		s.t.Fatalf("login data %s: %v", resp.Data, err)
	}
	return data.Token
}

func (s *testServer) register(username string) string {
	s.t.Helper()
	if code, resp := s.do(http.MethodPost, "/api/v1/users/register", "", gin.H{"username": username, "password": "pw"}); code != http.StatusOK {
		s.t.Fatalf("register %s: %d %s", username, code, resp.Message)
	}
	return s.login(username, "pw")
}

func TestUserRoutes(t *testing.T) {
	s := newTestServer(t)
	tok := s.register("alice")

	if code, _ := s.do(http.MethodPost, "/api/v1/users/register", "", gin.H{"username": "alice", "password": "pw"}); code != http.StatusConflict {
		t.Errorf("duplicate register = %d, want 409", code)
	}
	if code, _ := s.do(http.MethodPost, "/api/v1/users/login", "", gin.H{"username": "alice", "password": "bad"}); code != http.StatusUnauthorized {
		t.Errorf("bad login = %d, want 401", code)
	}
	if code, _ := s.do(http.MethodGet, "/api/v1/users/me", "", nil); code != http.StatusUnauthorized {
		t.Errorf("anonymous /me = %d, want 401", code)
	}
	code, resp := s.do(http.MethodGet, "/api/v1/users/me", tok, nil)
	if code != http.StatusOK || !strings.Contains(string(resp.Data), `"alice"`) || strings.Contains(string(resp.Data), "password") {
		t.Errorf("/me = %d %s", code, resp.Data)
	}

	if code, _ := s.do(http.MethodPost, "/api/v1/users/logout", tok, nil); code != http.StatusOK {
		t.Fatalf("logout = %d", code)
	}
	if code, _ := s.do(http.MethodGet, "/api/v1/users/me", tok, nil); code != http.StatusUnauthorized {
		t.Errorf("/me after logout = %d, want 401", code)
	}
}

func TestTicketRoutes(t *testing.T) {
	s := newTestServer(t)
	alice := s.register("alice")
	bob := s.register("bob")

	code, resp := s.do(http.MethodPost, "/api/v1/tickets", alice, gin.H{"description": "vpn connection drops", "category": "Network"})
	if code != http.StatusOK {
		t.Fatalf("create = %d %s", code, resp.Message)
	}
	var created service.TicketWithSuggestions
	if err := json.Unmarshal(resp.Data, &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(created.Recommendations) == 0 || created.Recommendations[0].ResolutionText != "reinstall vpn client" {
		t.Errorf("recommendations = %+v", created.Recommendations)
	}
	base := fmt.Sprintf("/api/v1/tickets/%d", created.Ticket.ID)

	if code, _ := s.do(http.MethodPost, "/api/v1/tickets", alice, gin.H{"category": "Network"}); code != http.StatusBadRequest {
		t.Errorf("missing description = %d, want 400", code)
	}
	if code, _ := s.do(http.MethodGet, base, bob, nil); code != http.StatusForbidden {
		t.Errorf("other user get = %d, want 403", code)
	}
	if code, _ := s.do(http.MethodGet, "/api/v1/tickets/9999", alice, nil); code != http.StatusNotFound {
		t.Errorf("missing ticket = %d, want 404", code)
	}
	if code, _ := s.do(http.MethodGet, "/api/v1/tickets/abc", alice, nil); code != http.StatusBadRequest {
		t.Errorf("bad id = %d, want 400", code)
	}
	if code, resp := s.do(http.MethodGet, base+"/suggestions?top_k=1", alice, nil); code != http.StatusOK || !strings.Contains(string(resp.Data), "reinstall vpn client") {
		t.Errorf("suggestions = %d %s", code, resp.Data)
	}
	if code, resp := s.do(http.MethodPut, base+"/escalate", alice, nil); code != http.StatusOK || !strings.Contains(string(resp.Data), model.EscalationNote) {
		t.Errorf("escalate = %d %s", code, resp.Data)
	}
	if code, _ := s.do(http.MethodPut, base+"/resolve", alice, gin.H{"resolution": "reinstalled the client"}); code != http.StatusOK {
		t.Errorf("resolve = %d", code)
	}
	if code, _ := s.do(http.MethodPut, base+"/resolve", alice, gin.H{"resolution": "again"}); code != http.StatusBadRequest {
		t.Errorf("second resolve = %d, want 400", code)
	}

	code, resp = s.do(http.MethodGet, "/api/v1/tickets", alice, nil)
	var mine []model.TicketDTO
	_ = json.Unmarshal(resp.Data, &mine)
	if code != http.StatusOK || len(mine) != 1 || mine[0].Status != model.StatusResolved {
		t.Errorf("list = %d %+v", code, mine)
	}
}

func TestRecommendationRoutes(t *testing.T) {
	s := newTestServer(t)
	tok := s.register("alice")

	code, resp := s.do(http.MethodPost, "/api/v1/recommendations", tok, gin.H{"description": "printer jammed", "category": "Hardware", "top_k": 1})
	if code != http.StatusOK || !strings.Contains(string(resp.Data), "remove jammed paper") || !strings.Contains(string(resp.Data), "RECOMMENDED RESOLUTIONS") {
		t.Errorf("recommend = %d %s", code, resp.Data)
	}

	code, resp = s.do(http.MethodPost, "/api/v1/recommendations/enhanced", tok, gin.H{"description": "printer jammed", "category": "Hardware"})
	var enhanced service.EnhancedRecommendation
	_ = json.Unmarshal(resp.Data, &enhanced)
	if code != http.StatusOK || enhanced.Status != service.EnhanceStatusNotConfigured || len(enhanced.BaseRecommendations) == 0 {
		t.Errorf("enhanced = %d %+v", code, enhanced)
	}
}

func TestAdminRoutes(t *testing.T) {
	s := newTestServer(t)
	alice := s.register("alice")
	admin := s.login("admin", "admin123")

	if code, _ := s.do(http.MethodGet, "/api/v1/admin/analytics", alice, nil); code != http.StatusForbidden {
		t.Errorf("non-admin analytics = %d, want 403", code)
	}

	_, resp := s.do(http.MethodPost, "/api/v1/tickets", alice, gin.H{"description": "monitor flickering", "category": "Hardware"})
	var created service.TicketWithSuggestions
	_ = json.Unmarshal(resp.Data, &created)
	base := fmt.Sprintf("/api/v1/admin/tickets/%d", created.Ticket.ID)

	if code, _ := s.do(http.MethodPut, base+"/status", admin, gin.H{"status": "Pending"}); code != http.StatusBadRequest {
		t.Errorf("bad status = %d, want 400", code)
	}
	if code, _ := s.do(http.MethodPut, base+"/status", admin, gin.H{"status": model.StatusInProgress}); code != http.StatusOK {
		t.Errorf("update status = %d", code)
	}
	if code, _ := s.do(http.MethodPut, "/api/v1/admin/tickets/9999/resolution", admin, gin.H{"resolution": "x"}); code != http.StatusNotFound {
		t.Errorf("resolution on missing = %d, want 404", code)
	}
	if code, _ := s.do(http.MethodPut, base+"/resolution", admin, gin.H{"resolution": "replaced the cable"}); code != http.StatusOK {
		t.Errorf("add resolution = %d", code)
	}

	code, resp := s.do(http.MethodGet, "/api/v1/admin/analytics", admin, nil)
	var a service.Analytics
	_ = json.Unmarshal(resp.Data, &a)
	if code != http.StatusOK || a.TotalTickets != 1 || a.MostCommonCategory != "Hardware" {
		t.Errorf("analytics = %d %+v", code, a)
	}

	if code, _ := s.do(http.MethodPost, "/api/v1/admin/records", admin, gin.H{"category": "Software", "issue": "excel freezes", "resolution": "disable add-ins"}); code != http.StatusOK {
		t.Errorf("add record = %d", code)
	}
	code, resp = s.do(http.MethodPost, "/api/v1/admin/corpus/rebuild", admin, nil)
	var stats service.CorpusStats
	_ = json.Unmarshal(resp.Data, &stats)
	// 四条种子记录、一条已解决工单、一条手工记录
	if code != http.StatusOK || stats.Records != 6 {
		t.Errorf("rebuild = %d %+v", code, stats)
	}
	if code, _ := s.do(http.MethodGet, "/api/v1/admin/corpus/stats", admin, nil); code != http.StatusOK {
		t.Errorf("stats = %d", code)
	}
	if code, _ := s.do(http.MethodGet, "/api/v1/admin/tickets/search?q=monitor", admin, nil); code != http.StatusServiceUnavailable {
		t.Errorf("search without index = %d, want 503", code)
	}
	if code, resp := s.do(http.MethodGet, "/api/v1/admin/users?page=1&size=10", admin, nil); code != http.StatusOK || !strings.Contains(string(resp.Data), `"alice"`) {
		t.Errorf("users = %d %s", code, resp.Data)
	}
	if code, resp := s.do(http.MethodGet, "/api/v1/admin/tickets?status=Resolved", admin, nil); code != http.StatusOK || !strings.Contains(string(resp.Data), "replaced the cable") {
		t.Errorf("tickets = %d %s", code, resp.Data)
	}
}

func TestAdminRaiseTicketRoute(t *testing.T) {
	s := newTestServer(t)
	alice := s.register("alice")
	admin := s.login("admin", "admin123")

	_, resp := s.do(http.MethodGet, "/api/v1/users/me", alice, nil)
	var me model.User
	if err := json.Unmarshal(resp.Data, &me); err != nil || me.ID == 0 {
		t.Fatalf("me = %s, %v", resp.Data, err)
	}

	path := fmt.Sprintf("/api/v1/admin/tickets?user_id=%d", me.ID)
	body := gin.H{"description": "printer jammed", "category": "Hardware"}
	code, resp := s.do(http.MethodPost, path, admin, body)
	var raised service.TicketWithSuggestions
	_ = json.Unmarshal(resp.Data, &raised)
	if code != http.StatusOK || raised.Ticket.UserID != me.ID || len(raised.Recommendations) == 0 {
		t.Fatalf("raise = %d %s", code, resp.Data)
	}

	tests := []struct {
		name string
		path string
		tok  string
		body interface{}
		want int
	}{
		{"missing user_id", "/api/v1/admin/tickets", admin, body, http.StatusBadRequest},
		{"unknown user", "/api/v1/admin/tickets?user_id=9999", admin, body, http.StatusNotFound},
		{"missing description", path, admin, gin.H{"category": "Hardware"}, http.StatusBadRequest},
		{"not admin", path, alice, body, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if code, _ := s.do(http.MethodPost, tt.path, tt.tok, tt.body); code != tt.want {
				t.Errorf("status = %d, want %d", code, tt.want)
			}
		})
	}

	_, resp = s.do(http.MethodGet, "/api/v1/tickets", alice, nil)
	var mine []model.TicketDTO
	_ = json.Unmarshal(resp.Data, &mine)
	if len(mine) != 1 || mine[0].ID != raised.Ticket.ID {
		t.Errorf("alice tickets = %+v", mine)
	}
}

func TestSuggestionWebsocket(t *testing.T) {
	s := newTestServer(t)
	tok := s.register("alice")
	srv := httptest.NewServer(s.router)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/chat/recommendations/"
	if _, resp, err := websocket.DefaultDialer.Dial(wsURL+"bogus", nil); err == nil {
		t.Fatal("dial with invalid token succeeded")
	} else if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("invalid token response = %v", resp)
	}

	conn, _, err := websocket.DefaultDialer.Dial(wsURL+tok, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	if err := conn.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, msg, err := conn.ReadMessage()
	if err != nil || !strings.Contains(string(msg), "error") {
		t.Fatalf("invalid message reply = %s, %v", msg, err)
	}

	if err := conn.WriteJSON(gin.H{"description": "vpn connection drops", "category": "Network"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	var done completionMessage
	if err := conn.ReadJSON(&done); err != nil {
		t.Fatalf("read completion: %v", err)
	}
	if done.Type != "completion" || done.Status != service.EnhanceStatusNotConfigured || done.Message == "" {
		t.Errorf("completion = %+v", done)
	}
}
