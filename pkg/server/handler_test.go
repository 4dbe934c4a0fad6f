package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mikeboe/web-research/pkg/chat"
	"github.com/mikeboe/web-research/pkg/config"
	"github.com/mikeboe/web-research/pkg/store"
)

func newTestRouter(t *testing.T, svc *Service, withChat bool) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	var chatSvc *chat.Service
	if withChat {
		var err error
		chatSvc, err = chat.NewService(context.Background(), svc.Store, &config.Config{
			GoogleApiKey: "test-key",
			ChatModel:    "gemini-2.0-flash",
		})
		if err != nil {
			t.Fatalf("chat.NewService: %v", err)
		}
	}

	r := gin.New()
	NewHandler(svc, chatSvc).RegisterRoutes(r)
	return r
}

func performRequest(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestStartResearchEndpoint(t *testing.T) {
	st := store.NewStore()
	llm := &scriptedLLM{replies: []string{testPlanJSON, "extracted analysis", "final summary"}}
	svc := NewService(st, stubFactory(llm, fixedResolver{urls: []string{"https://example.com/one"}}))
	router := newTestRouter(t, svc, false)

	w := performRequest(router, http.MethodPost, "/api/research", `{"objective": "graphene applications"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("POST /api/research = %d, body %s", w.Code, w.Body.String())
	}

	var created store.Run
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decoding created run: %v", err)
	}
	if created.ID == uuid.Nil || created.Objective != "graphene applications" || created.Status != store.RunPending {
		t.Errorf("created run = %+v", created)
	}

	// The worker finishes in the background; poll the API until it does.
	deadline := time.Now().Add(5 * time.Second)
	var run store.Run
	for time.Now().Before(deadline) {
		w := performRequest(router, http.MethodGet, "/api/research/"+created.ID.String(), "")
		if w.Code != http.StatusOK {
			t.Fatalf("GET run = %d, body %s", w.Code, w.Body.String())
		}
		if err := json.Unmarshal(w.Body.Bytes(), &run); err != nil {
			t.Fatalf("decoding run: %v", err)
		}
		if run.Status == store.RunCompleted || run.Status == store.RunFailed {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	if run.Status != store.RunCompleted {
		t.Fatalf("run status = %q (error %q)", run.Status, run.Error)
	}
	if run.Output == nil || run.Output.Summary != "final summary" {
		t.Errorf("run output = %+v", run.Output)
	}

	// Logs are exposed once the run exists
	lw := performRequest(router, http.MethodGet, "/api/research/"+created.ID.String()+"/logs", "")
	if lw.Code != http.StatusOK {
		t.Fatalf("GET logs = %d", lw.Code)
	}
	var logs []store.LogEntry
	if err := json.Unmarshal(lw.Body.Bytes(), &logs); err != nil {
		t.Fatalf("decoding logs: %v", err)
	}
	if len(logs) == 0 {
		t.Error("completed run has no captured logs")
	}
}

func TestStartResearchRejectsMalformedBody(t *testing.T) {
	svc := NewService(store.NewStore(), nil)
	router := newTestRouter(t, svc, false)

	w := performRequest(router, http.MethodPost, "/api/research", `{"objective": `)
	if w.Code != http.StatusBadRequest {
		t.Errorf("POST malformed body = %d, want 400", w.Code)
	}
}

func TestGetRunValidation(t *testing.T) {
	svc := NewService(store.NewStore(), nil)
	router := newTestRouter(t, svc, false)

	tests := []struct {
		name     string
		path     string
		wantCode int
	}{
		{"malformed uuid", "/api/research/not-a-uuid", http.StatusBadRequest},
		{"unknown run", "/api/research/" + uuid.NewString(), http.StatusNotFound},
		{"malformed uuid logs", "/api/research/not-a-uuid/logs", http.StatusBadRequest},
		{"unknown run logs", "/api/research/" + uuid.NewString() + "/logs", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := performRequest(router, http.MethodGet, tt.path, "")
			if w.Code != tt.wantCode {
				t.Errorf("GET %s = %d, want %d", tt.path, w.Code, tt.wantCode)
			}
		})
	}
}

func TestListRunsEmpty(t *testing.T) {
	svc := NewService(store.NewStore(), nil)
	router := newTestRouter(t, svc, false)

	w := performRequest(router, http.MethodGet, "/api/research", "")
	if w.Code != http.StatusOK {
		t.Fatalf("GET /api/research = %d", w.Code)
	}
	if body := strings.TrimSpace(w.Body.String()); body != "[]" {
		t.Errorf("empty listing = %q, want []", body)
	}
}

func TestCreatePlanEndpoint(t *testing.T) {
	st := store.NewStore()
	llm := &scriptedLLM{replies: []string{testPlanJSON}}
	svc := NewService(st, stubFactory(llm, fixedResolver{urls: []string{"https://example.com/one"}}))
	router := newTestRouter(t, svc, false)

	w := performRequest(router, http.MethodPost, "/api/research/plan", `{"objective": "graphene applications"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("POST /api/research/plan = %d, body %s", w.Code, w.Body.String())
	}

	var plan struct {
		Objective string `json:"objective"`
		Questions []struct {
			Question string   `json:"question"`
			Sources  []string `json:"sources"`
		} `json:"questions"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &plan); err != nil {
		t.Fatalf("decoding plan: %v", err)
	}
	if plan.Objective != "graphene applications" || len(plan.Questions) != 1 {
		t.Errorf("plan = %+v", plan)
	}
	if len(plan.Questions) == 1 && len(plan.Questions[0].Sources) != 1 {
		t.Errorf("plan sources = %+v, want the resolved url", plan.Questions)
	}

	// Planning alone must not register a run
	if got := len(st.ListRuns(0)); got != 0 {
		t.Errorf("plan endpoint registered %d runs, want 0", got)
	}
}

func TestChatConversationEndpoints(t *testing.T) {
	svc := NewService(store.NewStore(), nil)
	router := newTestRouter(t, svc, true)

	w := performRequest(router, http.MethodPost, "/api/chat/conversations", "")
	if w.Code != http.StatusCreated {
		t.Fatalf("POST conversations = %d, body %s", w.Code, w.Body.String())
	}
	var conv store.Conversation
	if err := json.Unmarshal(w.Body.Bytes(), &conv); err != nil {
		t.Fatalf("decoding conversation: %v", err)
	}
	if conv.Title != "New Conversation" {
		t.Errorf("new conversation title = %q", conv.Title)
	}

	lw := performRequest(router, http.MethodGet, "/api/chat/conversations", "")
	if lw.Code != http.StatusOK {
		t.Fatalf("GET conversations = %d", lw.Code)
	}
	var convs []store.Conversation
	if err := json.Unmarshal(lw.Body.Bytes(), &convs); err != nil {
		t.Fatalf("decoding conversations: %v", err)
	}
	if len(convs) != 1 || convs[0].ID != conv.ID {
		t.Errorf("conversations = %+v", convs)
	}

	mw := performRequest(router, http.MethodGet, "/api/chat/conversations/"+conv.ID.String()+"/messages", "")
	if mw.Code != http.StatusOK {
		t.Fatalf("GET messages = %d", mw.Code)
	}
	if body := strings.TrimSpace(mw.Body.String()); body != "[]" {
		t.Errorf("fresh conversation messages = %q, want []", body)
	}

	uw := performRequest(router, http.MethodGet, "/api/chat/conversations/"+uuid.NewString()+"/messages", "")
	if uw.Code != http.StatusNotFound {
		t.Errorf("GET messages of unknown conversation = %d, want 404", uw.Code)
	}
}
