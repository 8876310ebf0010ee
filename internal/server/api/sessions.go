package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/ryanhyunminbae/airtype/internal/store"
)

// defaultSessionLimit bounds GET /api/sessions without a limit parameter.
const defaultSessionLimit = 50

// SessionHandler serves stored session transcripts.
type SessionHandler struct {
	store *store.Store
}

// NewSessionHandler creates a new SessionHandler with the given store.
func NewSessionHandler(s *store.Store) *SessionHandler {
	return &SessionHandler{store: s}
}

// ServeHTTP routes /api/sessions and /api/sessions/{id}.
func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := itemID(r, "/api/sessions")

	if id == "" {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.list(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.get(w, r, id)
	case http.MethodDelete:
		h.delete(w, r, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

type sessionResponse struct {
	ID            string                 `json:"id"`
	Source        string                 `json:"source"`
	Text          string                 `json:"text"`
	Frames        int64                  `json:"frames"`
	Dropped       int64                  `json:"dropped"`
	CreatedAt     string                 `json:"created_at"`
	EndedAt       string                 `json:"ended_at,omitempty"`
	Confirmations []confirmationResponse `json:"confirmations,omitempty"`
}

type confirmationResponse struct {
	Letter     string  `json:"letter"`
	Confidence float64 `json:"confidence"`
	Source     string  `json:"source"`
	CreatedAt  string  `json:"created_at"`
}

type listSessionsResponse struct {
	Sessions []sessionResponse `json:"sessions"`
}

func toSessionResponse(s *store.Session) sessionResponse {
	resp := sessionResponse{
		ID:        s.ID,
		Source:    s.Source,
		Text:      s.Text,
		Frames:    s.Frames,
		Dropped:   s.Dropped,
		CreatedAt: formatTime(s.CreatedAt),
	}
	if s.EndedAt != nil {
		resp.EndedAt = formatTime(*s.EndedAt)
	}
	return resp
}

// list handles GET /api/sessions?limit=N, most recent first.
func (h *SessionHandler) list(w http.ResponseWriter, r *http.Request) {
	limit := defaultSessionLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	sessions, err := h.store.Sessions().List(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list sessions")
		return
	}

	response := listSessionsResponse{
		Sessions: make([]sessionResponse, 0, len(sessions)),
	}
	for _, s := range sessions {
		response.Sessions = append(response.Sessions, toSessionResponse(s))
	}

	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/sessions/{id} and includes the confirmed letters.
func (h *SessionHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	session, err := h.store.Sessions().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get session")
		return
	}

	confirmations, err := h.store.Confirmations().ListBySession(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list confirmations")
		return
	}

	resp := toSessionResponse(session)
	for _, c := range confirmations {
		resp.Confirmations = append(resp.Confirmations, confirmationResponse{
			Letter:     c.Letter,
			Confidence: c.Confidence,
			Source:     c.Source,
			CreatedAt:  formatTime(c.CreatedAt),
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

// delete handles DELETE /api/sessions/{id}.
func (h *SessionHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.store.Sessions().Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete session")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
