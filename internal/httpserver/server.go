// Package httpserver exposes the tool catalog over REST plus the Cursor
// context endpoints (SSE stream, search/retrieve dispatch, health probe).
package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/charmbracelet/log"

	"github.com/xiy/toolbelt-mcp/internal/registry"
	"github.com/xiy/toolbelt-mcp/internal/store"
	"github.com/xiy/toolbelt-mcp/internal/tools"
	"github.com/xiy/toolbelt-mcp/internal/websearch"
)

// AuditSink records handled tool invocations. A nil sink disables auditing.
type AuditSink interface {
	Insert(ctx context.Context, rec store.Invocation) error
}

// Server handles the REST tool surface.
type Server struct {
	logger    *log.Logger
	registry  *registry.Registry
	search    websearch.Provider
	retriever *websearch.Retriever
	audit     AuditSink

	searchLimit int
}

// Options configures a Server.
type Options struct {
	Logger      *log.Logger
	Registry    *registry.Registry
	Search      websearch.Provider
	Retriever   *websearch.Retriever
	Audit       AuditSink
	SearchLimit int
}

func New(opts Options) *Server {
	limit := opts.SearchLimit
	if limit <= 0 {
		limit = 5
	}
	return &Server{
		logger:      opts.Logger,
		registry:    opts.Registry,
		search:      opts.Search,
		retriever:   opts.Retriever,
		audit:       opts.Audit,
		searchLimit: limit,
	}
}

// Handler returns the fully wired route tree.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /tools", s.handleCatalog)
	mux.HandleFunc("POST /tools/{name}", s.handleToolCall)
	mux.HandleFunc("GET /cursor/context", s.handleContextStream)
	mux.HandleFunc("POST /cursor/context", s.handleContextDispatch)
	mux.HandleFunc("POST /cursor/context/search", s.handleContextSearch)
	mux.HandleFunc("POST /cursor/context/retrieve", s.handleContextRetrieve)
	mux.HandleFunc("GET /cursor/health", s.handleHealth)

	var handler http.Handler = mux
	handler = corsMiddleware(handler)
	handler = requestLogMiddleware(s.logger, handler)
	return handler
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"tools": s.registry.Definitions()})
}

func (s *Server) handleToolCall(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if !s.registry.Has(name) {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "unknown tool: " + name})
		return
	}

	args, err := decodeBody(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid JSON body"})
		return
	}

	start := time.Now()
	result, err := s.registry.Call(r.Context(), name, args)
	s.record(r.Context(), name, start, err)
	if err != nil {
		writeJSON(w, statusForError(err), map[string]any{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"result": result})
}

func (s *Server) record(ctx context.Context, name string, start time.Time, callErr error) {
	if s.audit == nil {
		return
	}
	rec := store.Invocation{
		Surface:    "http",
		ToolName:   name,
		Success:    callErr == nil,
		DurationMS: time.Since(start).Milliseconds(),
	}
	if callErr != nil {
		rec.ErrorText = callErr.Error()
	}
	if err := s.audit.Insert(context.WithoutCancel(ctx), rec); err != nil {
		s.logger.Warn("audit insert failed", "tool", name, "error", err)
	}
}

// handleContextStream emits one "connected" event and then holds the
// connection open until the client goes away.
func (s *Server) handleContextStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write([]byte("id: 1\nevent: message\ndata: {\"type\": \"connected\"}\n\n")); err != nil {
		return
	}
	flusher.Flush()

	<-r.Context().Done()
}

// handleContextDispatch routes a POST body to search or retrieve based on
// which field is present, falling back to an explicit action field.
func (s *Server) handleContextDispatch(w http.ResponseWriter, r *http.Request) {
	body, err := decodeBody(r)
	if err != nil || len(body) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid JSON request"})
		return
	}

	if _, ok := body["query"]; ok {
		s.respondSearch(w, r, body)
		return
	}
	if _, ok := body["urls"]; ok {
		s.respondRetrieve(w, r, body)
		return
	}
	switch action, _ := body["action"].(string); action {
	case "search":
		s.respondSearch(w, r, body)
	case "retrieve":
		s.respondRetrieve(w, r, body)
	default:
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid request format"})
	}
}

func (s *Server) handleContextSearch(w http.ResponseWriter, r *http.Request) {
	body, err := decodeBody(r)
	if err != nil || len(body) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid JSON request"})
		return
	}
	s.respondSearch(w, r, body)
}

func (s *Server) handleContextRetrieve(w http.ResponseWriter, r *http.Request) {
	body, err := decodeBody(r)
	if err != nil || len(body) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid JSON request"})
		return
	}
	s.respondRetrieve(w, r, body)
}

func (s *Server) respondSearch(w http.ResponseWriter, r *http.Request, body map[string]any) {
	query, _ := body["query"].(string)
	items := s.search.Search(r.Context(), query, s.searchLimit)
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) respondRetrieve(w http.ResponseWriter, r *http.Request, body map[string]any) {
	raw, _ := body["urls"].([]any)
	urls := make([]string, 0, len(raw))
	for _, v := range raw {
		if u, ok := v.(string); ok {
			urls = append(urls, u)
		}
	}
	items := s.retriever.Retrieve(r.Context(), urls)
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"message": "tool server is running",
	})
}

func decodeBody(r *http.Request) (map[string]any, error) {
	if r.Body == nil || r.ContentLength == 0 {
		return map[string]any{}, nil
	}
	var body map[string]any
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&body); err != nil {
		return nil, err
	}
	if body == nil {
		body = map[string]any{}
	}
	return body, nil
}

// statusForError maps the tool error taxonomy onto HTTP status codes:
// caller mistakes are 400, provider and configuration failures are 500.
func statusForError(err error) int {
	switch tools.KindOf(err) {
	case tools.KindValidation, tools.KindUnsupportedType, tools.KindEvaluation, tools.KindNotFound:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
