package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/Duff-Y11/Symbiosis-Memory/internal/engine"
	"github.com/Duff-Y11/Symbiosis-Memory/internal/logger"
	"github.com/Duff-Y11/Symbiosis-Memory/internal/model"
	"github.com/Duff-Y11/Symbiosis-Memory/internal/store"
)

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	st, err := s.reader.Stats(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

type turnRequest struct {
	SessionID   string     `json:"session_id"`
	Role        model.Role `json:"role"`
	Text        string     `json:"text"`
	AutoExtract *bool      `json:"auto_extract"`
}

func (s *Server) addTurn(w http.ResponseWriter, r *http.Request) {
	var req turnRequest
	if !readJSON(w, r, &req) {
		return
	}
	if req.Role == "" {
		req.Role = model.RoleUser
	}
	auto := true
	if req.AutoExtract != nil {
		auto = *req.AutoExtract
	}

	res, err := s.engine.Ingest(r.Context(), engine.IngestParams{
		SessionID:   req.SessionID,
		Role:        req.Role,
		Text:        req.Text,
		AutoExtract: auto,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) getContext(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	res, err := s.reader.Context(r.Context(), store.ContextParams{
		SessionID: q.Get("session_id"),
		K:         queryInt(q.Get("k"), store.DefaultContextK),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type rememberRequest struct {
	Content    string   `json:"content"`
	Importance int      `json:"importance"`
	Tags       []string `json:"tags"`
}

func (s *Server) remember(w http.ResponseWriter, r *http.Request) {
	var req rememberRequest
	if !readJSON(w, r, &req) {
		return
	}
	m, err := s.engine.Remember(r.Context(), engine.RememberParams{
		Content:    req.Content,
		Importance: req.Importance,
		Tags:       req.Tags,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) listMemories(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	tier := q.Get("tier")
	if tier == "" {
		tier = q.Get("layer")
	}
	memories, err := s.reader.ListMemories(r.Context(), store.ListParams{
		Tier:   model.Tier(tier),
		Status: model.Status(q.Get("status")),
		Query:  q.Get("q"),
		Limit:  queryInt(q.Get("limit"), store.DefaultListLimit),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	if memories == nil {
		memories = []model.Memory{}
	}
	writeJSON(w, http.StatusOK, memories)
}

func (s *Server) getMemory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	m, err := s.reader.GetMemory(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// postMemory accepts PATCH semantics through POST with ?_method=PATCH.
func (s *Server) postMemory(w http.ResponseWriter, r *http.Request) {
	if !strings.EqualFold(r.URL.Query().Get("_method"), http.MethodPatch) {
		writeError(w, r, fmt.Errorf("%w: POST /memories/{id} requires _method=PATCH", model.ErrNotFound))
		return
	}
	s.patchMemory(w, r)
}

func (s *Server) patchMemory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var body map[string]json.RawMessage
	if !readJSON(w, r, &body) {
		return
	}
	p, err := patchParams(body)
	if err != nil {
		writeError(w, r, err)
		return
	}
	m, err := s.engine.Patch(r.Context(), id, p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// patchParams reads status, content and tags from a patch body. Tags that
// are present but not a list clear the tag set.
func patchParams(body map[string]json.RawMessage) (store.PatchParams, error) {
	var p store.PatchParams
	if raw, ok := body["status"]; ok {
		var status model.Status
		if err := json.Unmarshal(raw, &status); err != nil {
			return p, fmt.Errorf("%w: status must be a string", model.ErrInvalid)
		}
		p.Status = &status
	}
	if raw, ok := body["content"]; ok {
		var content string
		if err := json.Unmarshal(raw, &content); err != nil {
			return p, fmt.Errorf("%w: content must be a string", model.ErrInvalid)
		}
		p.Content = &content
	}
	if raw, ok := body["tags"]; ok {
		var tags []string
		if err := json.Unmarshal(raw, &tags); err != nil || tags == nil {
			tags = []string{}
		}
		p.Tags = &tags
	}
	return p, nil
}

func (s *Server) deleteMemory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.engine.Forget(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": true, "id": id})
}

func (s *Server) recall(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	m, err := s.engine.Recall(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) explain(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	x, err := s.engine.Explain(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, x)
}

func (s *Server) links(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	links, err := s.reader.Links(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, links)
}

func (s *Server) gc(w http.ResponseWriter, r *http.Request) {
	run, err := s.engine.GC(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) gcRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.reader.GCRuns(r.Context(), queryInt(r.URL.Query().Get("limit"), 20))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, r, fmt.Errorf("%w: memory id must be a positive integer", model.ErrInvalid))
		return 0, false
	}
	return id, true
}

// queryInt parses a query parameter, falling back to def when absent or malformed.
func queryInt(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func readJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, r, fmt.Errorf("%w: invalid JSON: %v", model.ErrInvalid, err))
		return false
	}
	return true
}

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, model.ErrInvalid):
		status = http.StatusBadRequest
	case errors.Is(err, model.ErrNotFound):
		status = http.StatusNotFound
	default:
		logger.Error("request failed", "path", r.URL.Path, "error", err, "request_id", RequestID(r.Context()))
	}
	writeJSON(w, status, errorResponse{Error: err.Error(), RequestID: RequestID(r.Context())})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
