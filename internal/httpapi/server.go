package httpapi

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/planweave/planweave/internal/conversation"
	"github.com/planweave/planweave/internal/knowledge"
	"github.com/planweave/planweave/internal/plan"
	"github.com/planweave/planweave/internal/research"
	"github.com/planweave/planweave/internal/session"
	"github.com/planweave/planweave/internal/turn"
)

// Server is the HTTP front door: it owns session resolution, one paced turn
// per request, and read access to plans and history.
type Server struct {
	sessions   *session.Store
	controller *turn.Controller
	indexer    *knowledge.Indexer
	search     *knowledge.VectorStore
	http       *http.Server
}

// Option configures optional server collaborators.
type Option func(*Server)

// WithIndexer enables background knowledge indexing of finished turns.
func WithIndexer(ix *knowledge.Indexer) Option {
	return func(s *Server) { s.indexer = ix }
}

// WithSearch exposes the knowledge search endpoint over the given store.
func WithSearch(vs *knowledge.VectorStore) Option {
	return func(s *Server) { s.search = vs }
}

func NewServer(sessions *session.Store, controller *turn.Controller, opts ...Option) *Server {
	s := &Server{sessions: sessions, controller: controller}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed handler with CORS applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("GET /api/history/{id}", s.handleHistory)
	mux.HandleFunc("GET /api/plans/{id}", s.handleGetPlan)
	mux.HandleFunc("PUT /api/plans/{id}", s.handlePutPlan)
	mux.HandleFunc("GET /api/plans/{id}/diff", s.handleDiffPlan)
	mux.HandleFunc("GET /api/search", s.handleSearch)

	return withCORS(mux)
}

// Start begins serving in a background goroutine.
func (s *Server) Start(addr string) {
	s.http = &http.Server{Addr: addr, Handler: s.Handler()}
	go func() {
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("WARNING: httpapi: serve: %v", err)
		}
	}()
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

// ChatRequest is the POST /api/chat body. The session is resolved from
// ConversationID, then PlanID, then a per-user default.
type ChatRequest struct {
	Message        string `json:"message"`
	UserID         string `json:"userId"`
	ConversationID string `json:"conversationId,omitempty"`
	PlanID         string `json:"planId,omitempty"`
	Company        string `json:"company,omitempty"`
	Goal           string `json:"goal,omitempty"`
}

// HistoryMessage is one message of the returned conversation history, with
// the command envelope stripped from assistant turns.
type HistoryMessage struct {
	Role             string             `json:"role"`
	Content          string             `json:"content"`
	ResearchProgress *research.Progress `json:"researchProgress,omitempty"`
}

// ChatResponse is the POST /api/chat reply.
type ChatResponse struct {
	SessionID         string             `json:"sessionId"`
	Reply             string             `json:"reply"`
	Plan              *plan.Plan         `json:"plan,omitempty"`
	Messages          []HistoryMessage   `json:"messages"`
	ResearchStatus    string             `json:"researchStatus"`
	NewVersionCreated bool               `json:"newVersionCreated"`
	Progress          *research.Progress `json:"progress,omitempty"`
	ResearchPlan      []research.Task    `json:"researchPlan,omitempty"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	userID := req.UserID
	if userID == "" {
		userID = "anonymous"
	}
	sid := req.ConversationID
	if sid == "" {
		sid = req.PlanID
	}
	if sid == "" {
		sid = "session-" + userID
	}

	ctx := r.Context()
	var runErr error
	err := s.sessions.Update(sid, func(st *turn.State) {
		if st.UserID == "" {
			st.UserID = userID
		}
		if st.Plan == nil {
			st.Plan = plan.New(userID, req.Company, req.Goal)
		}
		st.NewVersionCreated = false
		st.Research.StepsThisTurn = 0
		st.Research.ContinueAfterPause = false
		if req.Message != "" {
			st.AppendHuman(req.Message)
		}

		runErr = s.controller.Run(ctx, st)

		// Paced multi-step research: at most one research task runs per
		// request. The pause leaves a progress marker in history and hands
		// control back; the caller re-invokes (an empty message is fine)
		// for the next step.
		if runErr == nil && st.Research.ContinueAfterPause {
			if pr := research.ProgressOf(&st.Research); pr != nil {
				st.Messages = append(st.Messages, turn.Message{
					Role:             turn.RoleAI,
					Content:          pr.Label,
					ResearchProgress: pr,
				})
			}
		}
	})
	if err == nil {
		err = runErr
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	st, err := s.sessions.Get(sid)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if s.indexer != nil {
		s.indexer.IndexTurn(sid, st)
		if st.NewVersionCreated {
			s.indexer.IndexPlan(st.Plan)
		}
	}

	resp := ChatResponse{
		SessionID:         sid,
		Reply:             conversation.CleanReply(st.LastAIMessage()),
		Plan:              st.Plan,
		Messages:          historyOf(st),
		ResearchStatus:    research.StatusOf(&st.Research),
		NewVersionCreated: st.NewVersionCreated,
		Progress:          research.ProgressOf(&st.Research),
	}
	if len(st.Research.Plan) > 0 && !st.Research.Approved {
		resp.ResearchPlan = st.Research.Plan
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	st, err := s.sessions.Get(r.PathValue("id"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": historyOf(st)})
}

func (s *Server) handleGetPlan(w http.ResponseWriter, r *http.Request) {
	_, st, err := s.findPlan(r.PathValue("id"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, st.Plan)
}

// handlePutPlan replaces the plan's sections (and optionally title) with the
// submitted content, as a normal versioned mutation.
func (s *Server) handlePutPlan(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Title    string         `json:"title"`
		Sections []plan.Section `json:"sections"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	planID := r.PathValue("id")
	sid, _, err := s.findPlan(planID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	var updated *plan.Plan
	err = s.sessions.Update(sid, func(st *turn.State) {
		st.Plan.ReplaceContent(body.Title, body.Sections)
		snap := st.Plan.Snapshot()
		updated = &snap
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if s.indexer != nil {
		s.indexer.IndexPlan(updated)
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDiffPlan(w http.ResponseWriter, r *http.Request) {
	_, st, err := s.findPlan(r.PathValue("id"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	from, err1 := strconv.Atoi(r.URL.Query().Get("from"))
	to, err2 := strconv.Atoi(r.URL.Query().Get("to"))
	if err1 != nil || err2 != nil {
		http.Error(w, "from and to must be version numbers", http.StatusBadRequest)
		return
	}
	lines, err := st.Plan.DiffVersions(from, to)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"from": from, "to": to, "lines": lines})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if s.search == nil {
		http.Error(w, "search is not enabled", http.StatusNotImplemented)
		return
	}
	q := r.URL.Query().Get("q")
	if q == "" {
		http.Error(w, "missing q parameter", http.StatusBadRequest)
		return
	}
	topK, _ := strconv.Atoi(r.URL.Query().Get("k"))
	matches, err := s.search.Search(r.Context(), q, topK)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	results := make([]map[string]any, 0, len(matches))
	for _, m := range matches {
		results = append(results, map[string]any{
			"id":    m.Document.ID,
			"text":  m.Document.Text,
			"meta":  m.Document.Meta,
			"score": m.Score,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

// findPlan locates the session holding the plan with the given ID.
func (s *Server) findPlan(planID string) (string, *turn.State, error) {
	return s.sessions.FindByPlanID(planID)
}

// historyOf renders the stored history for clients, unwrapping assistant
// command JSON and dropping assistant turns with nothing to show.
func historyOf(st *turn.State) []HistoryMessage {
	out := make([]HistoryMessage, 0, len(st.Messages))
	for _, m := range st.Messages {
		content := m.Content
		if m.Role == turn.RoleAI {
			content = conversation.CleanReply(content)
			if content == "" && m.ResearchProgress == nil {
				continue
			}
		}
		out = append(out, HistoryMessage{
			Role:             m.Role,
			Content:          content,
			ResearchProgress: m.ResearchProgress,
		})
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("WARNING: httpapi: encode response: %v", err)
	}
}

// withCORS allows browser front ends on other origins to call the API.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
